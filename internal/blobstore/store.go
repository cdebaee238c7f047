// Package blobstore stores original and derived image blobs and issues
// presigned credentials for direct client access.
package blobstore

import (
	"context"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/models"
)

// UploadRequest scopes a write credential to one key.
type UploadRequest struct {
	Key         string
	ContentType string
	MaxSize     int64
	Expiry      time.Duration
}

// Store is the object store contract used by the services and the worker.
//
// Head and Get return an error matching common.ErrNotFound when the object is
// absent. Delete treats an absent object as success. Every other failure
// matches common.ErrDependency.
type Store interface {
	Head(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignUpload(ctx context.Context, req UploadRequest) (*models.UploadCredential, error)
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (*models.DownloadCredential, error)
}
