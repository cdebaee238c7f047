package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/blobstore"
	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/repositories/images"
)

// MaxPageSize bounds ListRequest.Limit.
const MaxPageSize = 1000

// QueryConfig configures QueryService.
type QueryConfig struct {
	CredentialExpiry time.Duration
	DefaultPageSize  int
}

// GetResult is a record and a read credential for its original.
type GetResult struct {
	Record   *models.ImageRecord
	Download *models.DownloadCredential
}

// ListRequest pages through an owner's records. Status, when set, filters
// the fetched page, so pages may come back shorter than Limit.
type ListRequest struct {
	Owner             string
	Status            string
	Limit             int
	ContinuationToken string
}

type ListResult struct {
	Items []*models.ImageRecord
	// NextToken is empty on the last page.
	NextToken string
}

// QueryService reads records and issues read credentials.
type QueryService struct {
	repo  images.Repository
	blobs blobstore.Store
	cfg   QueryConfig
}

func NewQueryService(repo images.Repository, blobs blobstore.Store, cfg QueryConfig) *QueryService {
	return &QueryService{repo: repo, blobs: blobs, cfg: cfg}
}

func (s *QueryService) Get(ctx context.Context, imageID string) (*GetResult, error) {
	if strings.TrimSpace(imageID) == "" {
		return nil, common.Validation("imageId is required")
	}

	rec, err := s.repo.GetByImageID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if rec.ObjectKey == "" {
		return nil, common.Dependency("query.Get", fmt.Errorf("record %s has no object key", imageID))
	}

	cred, err := s.blobs.PresignDownload(ctx, rec.ObjectKey, s.cfg.CredentialExpiry)
	if err != nil {
		return nil, err
	}
	return &GetResult{Record: rec, Download: cred}, nil
}

func (s *QueryService) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, common.Validation("owner is required")
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, common.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
	}

	var status lifecycle.Status
	if req.Status != "" {
		st, err := lifecycle.ParseStatus(strings.ToUpper(req.Status))
		if err != nil {
			return nil, common.Validation(err.Error())
		}
		status = st
	}

	cursor, err := DecodeToken(req.ContinuationToken)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.ListByOwner(ctx, req.Owner, limit, cursor)
	if err != nil {
		return nil, err
	}

	items := page.Items
	if status != "" {
		items = make([]*models.ImageRecord, 0, len(page.Items))
		for _, rec := range page.Items {
			if rec.Status == status {
				items = append(items, rec)
			}
		}
	}

	return &ListResult{Items: items, NextToken: EncodeToken(page.NextCursor)}, nil
}

// EncodeToken wraps a store cursor into an opaque continuation token.
func EncodeToken(cursor string) string {
	if cursor == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(cursor))
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || !strings.HasPrefix(string(b), "CREATED#") {
		return "", common.Validation("continuationToken is malformed")
	}
	return string(b), nil
}
