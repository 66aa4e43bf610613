package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/teradrop/internal/model"
)

// MemoryStore keeps records in a slice guarded by an RWMutex. It backs tests
// and local runs that do not need a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.FileRecord
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Create appends a copy of rec in insertion order.
func (m *MemoryStore) Create(ctx context.Context, rec *model.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	if rec.UploadDate.IsZero() {
		rec.UploadDate = m.now().UTC()
	}
	m.records = append(m.records, *rec)
	return nil
}

// List returns copies sorted newest first. Records with equal timestamps come
// back in reverse insertion order.
func (m *MemoryStore) List(ctx context.Context) ([]model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.FileRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadDate.After(out[j].UploadDate)
	})
	return out, nil
}

// FindByCustomName returns the earliest record whose CustomName equals name.
func (m *MemoryStore) FindByCustomName(ctx context.Context, name string) (*model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *model.FileRecord
	for i := range m.records {
		rec := m.records[i]
		if rec.CustomName != name {
			continue
		}
		if found == nil || rec.UploadDate.Before(found.UploadDate) {
			found = &rec
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
