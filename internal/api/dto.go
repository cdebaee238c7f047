package api

import (
	"time"

	"github.com/dmitrijs2005/imagevault/internal/models"
)

// initiateRequest also accepts userId, the field name older clients send.
type initiateRequest struct {
	Owner       string            `json:"owner"`
	UserID      string            `json:"userId"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType"`
	MaxSize     int64             `json:"maxSize"`
	Tags        map[string]string `json:"tags"`
}

type initiateResponse struct {
	ImageID   string                   `json:"imageId"`
	ObjectKey string                   `json:"objectKey"`
	Upload    *models.UploadCredential `json:"upload"`
}

type getResponse struct {
	DownloadURL string              `json:"downloadUrl"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	Metadata    *models.ImageRecord `json:"metadata"`
}

type listResponse struct {
	Items             []*models.ImageRecord `json:"items"`
	ContinuationToken string                `json:"continuationToken,omitempty"`
}

type deleteResponse struct {
	DeletedImageID string `json:"deletedImageId"`
}
