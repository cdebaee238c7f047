package images

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/retry"
)

func TestMemory_CreateCollisionLeavesFirstRecord(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := sampleRecord()
	require.NoError(t, repo.Create(ctx, first))

	second := sampleRecord()
	second.Filename = "other.jpg"
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, common.ErrConflict)

	got, err := repo.GetByImageID(ctx, first.ImageID)
	require.NoError(t, err)
	assert.Equal(t, "pic.jpg", got.Filename)
}

func TestMemory_TransitionOnlyOnce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rec := sampleRecord()
	require.NoError(t, repo.Create(ctx, rec))

	size := int64(5)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Transition(ctx, rec, models.Transition{To: lifecycle.StatusAvailable, Size: &size, At: time.Now()})
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
		} else {
			assert.ErrorIs(t, err, common.ErrConditionFailed)
		}
	}
	assert.Equal(t, 1, applied)

	err := repo.Transition(ctx, rec, models.Transition{To: lifecycle.StatusFailed, At: time.Now()})
	assert.ErrorIs(t, err, common.ErrConditionFailed)

	got, err := repo.GetByImageID(ctx, rec.ImageID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAvailable, got.Status)
}

func TestMemory_ListByOwnerPagesNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("img-%d", i)
		require.NoError(t, repo.Create(ctx, models.NewPendingRecord("u1", id, "k", "f.jpg", "image/jpeg", 1, nil, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, models.NewPendingRecord("u2", "other", "k", "f.jpg", "image/jpeg", 1, nil, base)))

	var ids []string
	cursor := ""
	for {
		page, err := repo.ListByOwner(ctx, "u1", 2, cursor)
		require.NoError(t, err)
		for _, r := range page.Items {
			ids = append(ids, r.ImageID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"img-4", "img-3", "img-2", "img-1", "img-0"}, ids)
}

func TestMemory_ListByOwnerOrdersWithinSecond(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	created := map[string]time.Time{
		"whole": base,
		"a":     base.Add(100 * time.Millisecond),
		"b":     base.Add(120 * time.Millisecond),
	}
	for id, at := range created {
		require.NoError(t, repo.Create(ctx, models.NewPendingRecord("u1", id, "k", "f.jpg", "image/jpeg", 1, nil, at)))
	}

	page, err := repo.ListByOwner(ctx, "u1", 10, "")
	require.NoError(t, err)

	var ids []string
	for _, r := range page.Items {
		ids = append(ids, r.ImageID)
	}
	assert.Equal(t, []string{"b", "a", "whole"}, ids)
}

type countingRepo struct {
	Repository
	calls int
	err   error
}

func (c *countingRepo) Create(ctx context.Context, rec *models.ImageRecord) error {
	c.calls++
	return c.err
}

func (c *countingRepo) GetByImageID(ctx context.Context, id string) (*models.ImageRecord, error) {
	c.calls++
	return nil, c.err
}

func TestRetryingRepository_CreateRetriesOnlyThrottling(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	throttled := &countingRepo{err: common.Dependency("x", &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"})}
	require.Error(t, NewRetryingRepository(throttled, policy).Create(context.Background(), sampleRecord()))
	assert.Equal(t, 3, throttled.calls)

	unavailable := &countingRepo{err: common.Dependency("x", &smithy.GenericAPIError{Code: "ServiceUnavailable"})}
	require.Error(t, NewRetryingRepository(unavailable, policy).Create(context.Background(), sampleRecord()))
	assert.Equal(t, 1, unavailable.calls)

	reads := &countingRepo{err: common.Dependency("x", &smithy.GenericAPIError{Code: "ServiceUnavailable"})}
	_, err := NewRetryingRepository(reads, policy).GetByImageID(context.Background(), "i")
	require.Error(t, err)
	assert.Equal(t, 3, reads.calls)
}
