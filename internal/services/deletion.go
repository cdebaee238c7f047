package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/imagevault/internal/blobstore"
	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/repositories/images"
)

// DeletionService removes an image's blobs and record.
type DeletionService struct {
	repo  images.Repository
	blobs blobstore.Store
	log   logging.Logger
}

func NewDeletionService(repo images.Repository, blobs blobstore.Store, log logging.Logger) *DeletionService {
	return &DeletionService{repo: repo, blobs: blobs, log: log.With("component", "deletion")}
}

// Delete removes the original blob, then the thumbnail (best effort), then
// the record. If the original cannot be removed the record is kept, so the
// call can simply be retried.
func (s *DeletionService) Delete(ctx context.Context, imageID string) error {
	return s.delete(ctx, imageID, "")
}

// DeleteAs is Delete for a known caller: it fails with ErrForbidden, and
// removes nothing, when the image belongs to someone else.
func (s *DeletionService) DeleteAs(ctx context.Context, caller, imageID string) error {
	if strings.TrimSpace(caller) == "" {
		return common.Validation("caller is required")
	}
	return s.delete(ctx, imageID, caller)
}

func (s *DeletionService) delete(ctx context.Context, imageID, caller string) error {
	if strings.TrimSpace(imageID) == "" {
		return common.Validation("imageId is required")
	}

	rec, err := s.repo.GetByImageID(ctx, imageID)
	if err != nil {
		return err
	}
	if caller != "" && rec.Owner != caller {
		return common.Forbidden("image " + imageID + " belongs to another owner")
	}

	if rec.ObjectKey != "" {
		if err := s.blobs.Delete(ctx, rec.ObjectKey); err != nil {
			return err
		}
	}

	if rec.ThumbnailKey != nil {
		if err := s.blobs.Delete(ctx, *rec.ThumbnailKey); err != nil {
			s.log.Warn(ctx, "thumbnail delete failed", "image_id", imageID, "key", *rec.ThumbnailKey, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, rec); err != nil {
		return err
	}

	s.log.Info(ctx, "image deleted", "image_id", imageID, "owner", rec.Owner)
	return nil
}
