package loyalty

import (
	"context"
	"sync"
)

var _ Repository = (*Memory)(nil)

// Memory is an in-memory Repository for library use and tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemory creates an empty in-memory loyalty repository.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]*Account)}
}

// FindByCustomer returns a snapshot of the customer's account.
func (m *Memory) FindByCustomer(_ context.Context, customerID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[customerID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acct
	out.History = append([]Transaction(nil), acct.History...)
	return &out, nil
}

// Create registers an empty account for the customer.
func (m *Memory) Create(_ context.Context, customerID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if acct, ok := m.accounts[customerID]; ok {
		out := *acct
		return &out, nil
	}
	m.accounts[customerID] = &Account{CustomerID: customerID}
	return &Account{CustomerID: customerID}, nil
}

// AdjustBalance applies a signed delta to the account balance.
func (m *Memory) AdjustBalance(_ context.Context, customerID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[customerID]
	if !ok {
		return ErrAccountNotFound
	}
	acct.Balance += delta
	return nil
}

// AddTransaction appends a transaction to the account history.
func (m *Memory) AddTransaction(_ context.Context, tx Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[tx.CustomerID]
	if !ok {
		return ErrAccountNotFound
	}
	acct.History = append(acct.History, tx)
	return nil
}
