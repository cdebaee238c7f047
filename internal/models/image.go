// Package models defines the persisted image record and the credentials
// handed out to clients.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
)

const (
	ownerKeyPrefix = "USER#"
	sortKeyPrefix  = "CREATED#"
)

// ImageRecord is one upload attempt.
type ImageRecord struct {
	// OwnerKey is the partition key, USER#<owner>.
	OwnerKey string `dynamodbav:"PK" json:"-"`
	// SortKey orders records of one owner by creation: CREATED#<createdAt>#<imageId>.
	SortKey string `dynamodbav:"SK" json:"-"`

	Owner       string            `dynamodbav:"userId" json:"owner"`
	ImageID     string            `dynamodbav:"imageId" json:"imageId"`
	ObjectKey   string            `dynamodbav:"s3Key" json:"objectKey"`
	Filename    string            `dynamodbav:"filename" json:"filename"`
	ContentType string            `dynamodbav:"contentType" json:"contentType"`
	Tags        map[string]string `dynamodbav:"tags,omitempty" json:"tags,omitempty"`
	MaxSize     int64             `dynamodbav:"maxSize" json:"maxSize"`

	Status lifecycle.Status `dynamodbav:"status" json:"status"`

	// Size is set only at AVAILABLE.
	Size *int64 `dynamodbav:"size,omitempty" json:"size"`
	// ThumbnailKey is set only at AVAILABLE, and stays nil when the thumbnail
	// could not be produced.
	ThumbnailKey *string `dynamodbav:"thumbnailKey,omitempty" json:"thumbnailKey"`
	// FailureReason is set only at FAILED.
	FailureReason string `dynamodbav:"failureReason,omitempty" json:"failureReason,omitempty"`

	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// NewPendingRecord builds a PENDING record with derived keys.
func NewPendingRecord(owner, imageID, objectKey, filename, contentType string, maxSize int64, tags map[string]string, now time.Time) *ImageRecord {
	now = now.UTC()
	return &ImageRecord{
		OwnerKey:    OwnerKey(owner),
		SortKey:     SortKey(now, imageID),
		Owner:       owner,
		ImageID:     imageID,
		ObjectKey:   objectKey,
		Filename:    filename,
		ContentType: contentType,
		Tags:        tags,
		MaxSize:     maxSize,
		Status:      lifecycle.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OwnerKey returns the partition key for owner.
func OwnerKey(owner string) string {
	return ownerKeyPrefix + owner
}

// sortKeyLayout keeps every fraction digit so keys compare in time order.
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SortKey returns the creation-ordered sort key.
func SortKey(createdAt time.Time, imageID string) string {
	return fmt.Sprintf("%s%s#%s", sortKeyPrefix, createdAt.UTC().Format(sortKeyLayout), imageID)
}

// OwnerFromKey strips the USER# prefix.
func OwnerFromKey(key string) (string, bool) {
	return strings.CutPrefix(key, ownerKeyPrefix)
}

// Clone returns a deep copy of r.
func (r *ImageRecord) Clone() *ImageRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Tags != nil {
		c.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			c.Tags[k] = v
		}
	}
	if r.Size != nil {
		v := *r.Size
		c.Size = &v
	}
	if r.ThumbnailKey != nil {
		v := *r.ThumbnailKey
		c.ThumbnailKey = &v
	}
	return &c
}

// Transition describes the single status change the worker applies.
type Transition struct {
	To            lifecycle.Status
	Size          *int64
	ThumbnailKey  *string
	FailureReason string
	At            time.Time
}

// Apply returns a copy of r with t applied. The caller is responsible for
// checking the current status first.
func (r *ImageRecord) Apply(t Transition) *ImageRecord {
	c := r.Clone()
	c.Status = t.To
	c.UpdatedAt = t.At.UTC()
	switch t.To {
	case lifecycle.StatusAvailable:
		c.Size = t.Size
		c.ThumbnailKey = t.ThumbnailKey
		c.FailureReason = ""
	case lifecycle.StatusFailed:
		c.Size = nil
		c.ThumbnailKey = nil
		c.FailureReason = t.FailureReason
	}
	return c
}
