package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

type memObject struct {
	body        []byte
	contentType string
}

// MemoryStore is an in-process Store for local runs and tests. Presigned
// URLs use the memory:// scheme and cannot be fetched.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
	now     func() time.Time
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]memObject), now: time.Now}
}

func (m *MemoryStore) Head(ctx context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return 0, &common.Error{Kind: common.ErrNotFound, Op: "memory.Head", Message: "object " + key + " not found"}
	}
	return int64(len(o.body)), nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, &common.Error{Kind: common.ErrNotFound, Op: "memory.Get", Message: "object " + key + " not found"}
	}
	return append([]byte(nil), o.body...), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PresignUpload(ctx context.Context, req UploadRequest) (*models.UploadCredential, error) {
	expiresAt := m.now().UTC().Add(req.Expiry)
	return &models.UploadCredential{
		URL: fmt.Sprintf("memory://%s", m.bucket),
		Fields: map[string]string{
			"key":          req.Key,
			"Content-Type": req.ContentType,
			"Policy":       fmt.Sprintf("content-length-range=1,%d", req.MaxSize),
		},
		ObjectKey: req.Key,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *MemoryStore) PresignDownload(ctx context.Context, key string, expiry time.Duration) (*models.DownloadCredential, error) {
	expiresAt := m.now().UTC().Add(expiry)
	u := url.URL{Scheme: "memory", Host: m.bucket, Path: "/" + key, RawQuery: "expires=" + expiresAt.Format(time.RFC3339)}
	return &models.DownloadCredential{URL: u.String(), ExpiresAt: expiresAt}, nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// ContentType returns the stored content type of key.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

var _ Store = (*MemoryStore)(nil)
