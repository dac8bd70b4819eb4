package catalog

import (
	"context"
	"sort"
	"sync"
)

var _ Repository = (*Memory)(nil)

// Memory is an in-memory Repository. It backs library-only use of the
// pricing engine and tests; the server uses the PostgreSQL repository.
type Memory struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{products: make(map[string]Product)}
}

// Add registers a product, replacing any previous entry with the same ID.
func (m *Memory) Add(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// List returns all products ordered by ID.
func (m *Memory) List(_ context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID returns a single product by its identifier.
func (m *Memory) GetByID(_ context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Unknown IDs are
// skipped; callers detect missing products by comparing lengths.
func (m *Memory) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
