package models

import "time"

// UploadCredential lets a client POST one object directly to the object
// store. Fields must be sent as multipart form fields before the file part.
type UploadCredential struct {
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	ObjectKey string            `json:"objectKey"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// DownloadCredential is a short-lived GET URL for a single object.
type DownloadCredential struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
