// Package services implements the synchronous operations behind the API:
// initiating uploads, reading records and deleting images.
package services

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/imagevault/internal/blobstore"
	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/repositories/images"
)

const (
	maxFilenameBytes = 255
	maxOwnerBytes    = 128
	maxTags          = 50
	maxTagKeyBytes   = 128
	maxTagValueBytes = 256
)

// UploadConfig configures UploadService.
type UploadConfig struct {
	KeyPrefix        string
	CredentialExpiry time.Duration
	MaxUploadSize    int64
}

// InitiateRequest is the input of UploadService.Initiate. ContentType is
// derived from the filename extension when empty; MaxSize defaults to the
// configured limit.
type InitiateRequest struct {
	Owner       string
	Filename    string
	ContentType string
	MaxSize     int64
	Tags        map[string]string
}

// InitiateResult carries the persisted record and the write credential.
type InitiateResult struct {
	Record *models.ImageRecord
	Upload *models.UploadCredential
}

// UploadService issues write credentials and creates PENDING records.
type UploadService struct {
	repo  images.Repository
	blobs blobstore.Store
	cfg   UploadConfig
	log   logging.Logger
	newID func() string
	now   func() time.Time
}

func NewUploadService(repo images.Repository, blobs blobstore.Store, cfg UploadConfig, log logging.Logger) *UploadService {
	return &UploadService{
		repo:  repo,
		blobs: blobs,
		cfg:   cfg,
		log:   log.With("component", "uploads"),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Initiate validates req, presigns a POST for the derived object key and
// persists the PENDING record with a create-if-absent write. An imageId
// collision is returned as ErrConflict and never retried here.
func (s *UploadService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	contentType, maxSize, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	imageID := s.newID()
	key := models.ObjectKey(s.cfg.KeyPrefix, req.Owner, imageID, req.Filename)

	cred, err := s.blobs.PresignUpload(ctx, blobstore.UploadRequest{
		Key:         key,
		ContentType: contentType,
		MaxSize:     maxSize,
		Expiry:      s.cfg.CredentialExpiry,
	})
	if err != nil {
		return nil, err
	}

	rec := models.NewPendingRecord(req.Owner, imageID, key, req.Filename, contentType, maxSize, req.Tags, s.now())
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload initiated", "image_id", imageID, "owner", req.Owner, "content_type", contentType, "max_size", maxSize)
	return &InitiateResult{Record: rec, Upload: cred}, nil
}

func (s *UploadService) validate(req *InitiateRequest) (string, int64, error) {
	req.Owner = strings.TrimSpace(req.Owner)
	switch {
	case req.Owner == "":
		return "", 0, common.Validation("owner is required")
	case len(req.Owner) > maxOwnerBytes:
		return "", 0, common.Validation(fmt.Sprintf("owner must be at most %d bytes", maxOwnerBytes))
	case strings.Contains(req.Owner, "/"):
		return "", 0, common.Validation("owner must not contain '/'")
	}

	switch {
	case strings.TrimSpace(req.Filename) == "":
		return "", 0, common.Validation("filename is required")
	case len(req.Filename) > maxFilenameBytes:
		return "", 0, common.Validation(fmt.Sprintf("filename must be at most %d bytes", maxFilenameBytes))
	case strings.Contains(req.Filename, "/"):
		return "", 0, common.Validation("filename must not contain '/'")
	case req.Filename == "." || req.Filename == "..":
		return "", 0, common.Validation("filename is invalid")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(path.Ext(req.Filename)))
		if contentType == "" {
			return "", 0, common.Validation("contentType is required when it cannot be derived from the filename")
		}
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", 0, common.Validation(fmt.Sprintf("contentType %q is invalid", contentType))
	}
	if !strings.HasPrefix(mt, "image/") {
		return "", 0, common.Validation(fmt.Sprintf("contentType %q is not an image type", mt))
	}

	maxSize := req.MaxSize
	switch {
	case maxSize == 0:
		maxSize = s.cfg.MaxUploadSize
	case maxSize < 0:
		return "", 0, common.Validation("maxSize must be positive")
	case maxSize > s.cfg.MaxUploadSize:
		return "", 0, common.Validation(fmt.Sprintf("maxSize must be at most %d", s.cfg.MaxUploadSize))
	}

	if len(req.Tags) > maxTags {
		return "", 0, common.Validation(fmt.Sprintf("at most %d tags are allowed", maxTags))
	}
	for k, v := range req.Tags {
		if k == "" || len(k) > maxTagKeyBytes || len(v) > maxTagValueBytes {
			return "", 0, common.Validation(fmt.Sprintf("tag %q is invalid", k))
		}
	}

	return mt, maxSize, nil
}
