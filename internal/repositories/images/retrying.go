package images

import (
	"context"

	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/retry"
)

// RetryingRepository retries transient store failures of the delegate.
//
// Create is only retried on throttling, where the store guarantees nothing
// was written. Retrying an ambiguous 5xx could turn our own first write
// into a spurious conflict.
type RetryingRepository struct {
	delegate Repository
	policy   retry.Policy
	create   retry.Policy
}

func NewRetryingRepository(delegate Repository, policy retry.Policy) *RetryingRepository {
	create := policy
	create.Retryable = retry.IsThrottling
	return &RetryingRepository{delegate: delegate, policy: policy, create: create}
}

func (r *RetryingRepository) Create(ctx context.Context, rec *models.ImageRecord) error {
	return r.create.Do(ctx, func(ctx context.Context) error {
		return r.delegate.Create(ctx, rec)
	})
}

func (r *RetryingRepository) GetByImageID(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	return retry.Value(ctx, r.policy, func(ctx context.Context) (*models.ImageRecord, error) {
		return r.delegate.GetByImageID(ctx, imageID)
	})
}

func (r *RetryingRepository) ListByOwner(ctx context.Context, owner string, limit int, cursor string) (*Page, error) {
	return retry.Value(ctx, r.policy, func(ctx context.Context) (*Page, error) {
		return r.delegate.ListByOwner(ctx, owner, limit, cursor)
	})
}

func (r *RetryingRepository) Transition(ctx context.Context, rec *models.ImageRecord, t models.Transition) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.delegate.Transition(ctx, rec, t)
	})
}

func (r *RetryingRepository) Delete(ctx context.Context, rec *models.ImageRecord) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.delegate.Delete(ctx, rec)
	})
}

var _ Repository = (*RetryingRepository)(nil)
