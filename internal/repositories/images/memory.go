package images

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

// MemoryRepository keeps records in process. It has the same conditional
// semantics as the persistent backends and is safe for concurrent use.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]*models.ImageRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*models.ImageRecord)}
}

func (m *MemoryRepository) Create(ctx context.Context, rec *models.ImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[rec.ImageID]; ok {
		return conflict("memory.Create", rec.ImageID, nil)
	}
	m.byID[rec.ImageID] = rec.Clone()
	return nil
}

func (m *MemoryRepository) GetByImageID(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[imageID]
	if !ok {
		return nil, notFound("memory.GetByImageID", imageID)
	}
	return rec.Clone(), nil
}

func (m *MemoryRepository) ListByOwner(ctx context.Context, owner string, limit int, cursor string) (*Page, error) {
	if limit < 1 {
		limit = 1
	}

	m.mu.Lock()
	var all []*models.ImageRecord
	for _, rec := range m.byID {
		if rec.Owner == owner && (cursor == "" || rec.SortKey < cursor) {
			all = append(all, rec.Clone())
		}
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].SortKey > all[j].SortKey })

	page := &Page{Items: all}
	if len(all) > limit {
		page.Items = all[:limit]
		page.NextCursor = page.Items[limit-1].SortKey
	}
	return page, nil
}

func (m *MemoryRepository) Transition(ctx context.Context, rec *models.ImageRecord, t models.Transition) error {
	if err := checkTransition(t); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[rec.ImageID]
	if !ok {
		return conditionFailed("memory.Transition", rec.ImageID, "", nil)
	}
	if cur.Status != lifecycle.StatusPending {
		return conditionFailed("memory.Transition", rec.ImageID, cur.Status, nil)
	}
	m.byID[rec.ImageID] = cur.Apply(t)
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, rec *models.ImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, rec.ImageID)
	return nil
}

// Len returns the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

var _ Repository = (*MemoryRepository)(nil)
