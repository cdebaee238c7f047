// Package images persists image records. Implementations must make Create a
// create-if-absent keyed on imageId and Transition a write conditional on the
// stored status still being PENDING.
package images

import (
	"context"

	"github.com/dmitrijs2005/imagevault/internal/models"
)

// Page is one page of an owner's records, newest first. NextCursor is empty
// on the last page.
type Page struct {
	Items      []*models.ImageRecord
	NextCursor string
}

// Repository is the metadata store contract.
//
// Errors:
//   - Create: common.ErrConflict when the imageId already exists.
//   - GetByImageID: common.ErrNotFound when absent.
//   - Transition: common.ErrConditionFailed when the stored record is not
//     PENDING (or no longer exists).
//   - any store failure: common.ErrDependency.
type Repository interface {
	Create(ctx context.Context, rec *models.ImageRecord) error
	GetByImageID(ctx context.Context, imageID string) (*models.ImageRecord, error)
	ListByOwner(ctx context.Context, owner string, limit int, cursor string) (*Page, error)
	Transition(ctx context.Context, rec *models.ImageRecord, t models.Transition) error
	Delete(ctx context.Context, rec *models.ImageRecord) error
}
