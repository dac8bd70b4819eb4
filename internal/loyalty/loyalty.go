package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrInsufficientBalance is returned when a redemption requests more
	// points than the account holds.
	ErrInsufficientBalance = errors.New("insufficient loyalty balance")
	// ErrAccountNotFound is returned when no account exists for a customer.
	ErrAccountNotFound = errors.New("loyalty account not found")
)

// TransactionType distinguishes point earnings from redemptions.
type TransactionType string

const (
	// TransactionEarn credits points for a purchase.
	TransactionEarn TransactionType = "earn"
	// TransactionRedeem debits points exchanged for a monetary discount.
	TransactionRedeem TransactionType = "redeem"
)

// Transaction records a single balance movement on an account.
type Transaction struct {
	ID         string
	CustomerID string
	Type       TransactionType
	Points     int64
	At         time.Time
}

// Account tracks a customer's point balance. The balance never goes negative.
type Account struct {
	CustomerID string
	Balance    int64
	History    []Transaction
}

// Repository persists loyalty accounts and their transaction history.
// Implementations only store state; balance invariants are enforced by
// Program under per-customer locks.
type Repository interface {
	// FindByCustomer returns the account for a customer, or ErrAccountNotFound.
	FindByCustomer(ctx context.Context, customerID string) (*Account, error)
	// Create registers an empty account. Creating an existing account is an error.
	Create(ctx context.Context, customerID string) (*Account, error)
	// AdjustBalance applies a signed delta to the account balance.
	AdjustBalance(ctx context.Context, customerID string, delta int64) error
	// AddTransaction appends a transaction to the account history.
	AddTransaction(ctx context.Context, tx Transaction) error
}
