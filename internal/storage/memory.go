// Package storage contains the in-memory asset store used by the memory
// driver and by tests.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/repository"
)

// MemoryStore keeps asset records in a map guarded by an RWMutex. Ids come
// from a monotonic counter and are never reused.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	assets map[int64]*model.Asset
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets: make(map[int64]*model.Asset),
	}
}

var _ repository.AssetStore = (*MemoryStore)(nil)

// Create inserts a record.
func (m *MemoryStore) Create(ctx context.Context, in model.NewAsset) (model.Asset, error) {
	if err := ctx.Err(); err != nil {
		return model.Asset{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := &model.Asset{
		ID:               m.nextID,
		Size:             in.Size,
		OriginalFilename: in.OriginalFilename,
		Name:             in.Name,
		CreatedAt:        time.Now().UTC(),
	}
	m.assets[rec.ID] = rec
	return *rec, nil
}

// Get returns a record copy.
func (m *MemoryStore) Get(ctx context.Context, id int64) (model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.assets[id]
	if !ok {
		return model.Asset{}, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	return *rec, nil
}

// BlockState returns the block flag for id.
func (m *MemoryStore) BlockState(ctx context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.assets[id]
	if !ok {
		return false, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	return rec.IsBlocked, nil
}

// SetBlocked updates the block flag.
func (m *MemoryStore) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	rec.IsBlocked = blocked
	return nil
}

// Search filters by case-insensitive name substring and exact size, ordered by id.
func (m *MemoryStore) Search(ctx context.Context, f repository.Filter) ([]model.Asset, error) {
	var needle string
	if f.Name != nil {
		needle = strings.ToLower(*f.Name)
	}
	m.mu.RLock()
	out := []model.Asset{}
	for _, rec := range m.assets {
		if needle != "" && !strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		if f.Size != nil && rec.Size != *f.Size {
			continue
		}
		out = append(out, *rec)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// NameInUse reports whether any record references the canonical name.
func (m *MemoryStore) NameInUse(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.assets {
		if rec.Name == name {
			return true, nil
		}
	}
	return false, nil
}
