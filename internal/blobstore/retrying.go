package blobstore

import (
	"context"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/retry"
)

// RetryingStore retries transient failures of the delegate's network calls.
// Presigning is local and is not retried.
type RetryingStore struct {
	delegate Store
	policy   retry.Policy
}

func NewRetryingStore(delegate Store, policy retry.Policy) *RetryingStore {
	return &RetryingStore{delegate: delegate, policy: policy}
}

func (r *RetryingStore) Head(ctx context.Context, key string) (int64, error) {
	return retry.Value(ctx, r.policy, func(ctx context.Context) (int64, error) {
		return r.delegate.Head(ctx, key)
	})
}

func (r *RetryingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return retry.Value(ctx, r.policy, func(ctx context.Context) ([]byte, error) {
		return r.delegate.Get(ctx, key)
	})
}

func (r *RetryingStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.delegate.Put(ctx, key, body, contentType)
	})
}

func (r *RetryingStore) Delete(ctx context.Context, key string) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.delegate.Delete(ctx, key)
	})
}

func (r *RetryingStore) PresignUpload(ctx context.Context, req UploadRequest) (*models.UploadCredential, error) {
	return r.delegate.PresignUpload(ctx, req)
}

func (r *RetryingStore) PresignDownload(ctx context.Context, key string, expiry time.Duration) (*models.DownloadCredential, error) {
	return r.delegate.PresignDownload(ctx, key, expiry)
}

var _ Store = (*RetryingStore)(nil)
