package coupon

import (
	"context"
	"sync"
)

var _ Repository = (*Memory)(nil)

// entry pairs a coupon with its own lock so redemptions of independent
// coupons never serialize against each other.
type entry struct {
	mu sync.Mutex
	c  Coupon
}

// Memory is an in-memory Repository for library use and tests.
type Memory struct {
	mu      sync.RWMutex
	coupons map[string]*entry
}

// NewMemory creates an empty in-memory coupon repository.
func NewMemory() *Memory {
	return &Memory{coupons: make(map[string]*entry)}
}

// Register adds a coupon, replacing any previous one with the same code.
func (m *Memory) Register(c Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.Code] = &entry{c: c}
}

// FindByCode returns a snapshot of the coupon with the given code.
func (m *Memory) FindByCode(_ context.Context, code string) (*Coupon, error) {
	m.mu.RLock()
	e, ok := m.coupons[code]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.c
	return &c, nil
}

// IncrementUses consumes one use of the coupon, enforcing MaxUses under the
// coupon's own lock.
func (m *Memory) IncrementUses(_ context.Context, code string) error {
	m.mu.RLock()
	e, ok := m.coupons[code]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.c.MaxUses > 0 && e.c.Uses >= e.c.MaxUses {
		return ErrExhausted
	}
	e.c.Uses++
	return nil
}
