package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/market-teller/internal/loyalty"
)

const (
	getAccountSQL = `SELECT customer_id, balance FROM loyalty_accounts WHERE customer_id = $1`

	createAccountSQL = `INSERT INTO loyalty_accounts (customer_id) VALUES ($1)
		ON CONFLICT (customer_id) DO NOTHING`

	adjustBalanceSQL = `UPDATE loyalty_accounts SET balance = balance + $2 WHERE customer_id = $1`

	addTransactionSQL = `INSERT INTO loyalty_transactions (id, customer_id, type, points, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	listTransactionsSQL = `SELECT id, customer_id, type, points, created_at
		FROM loyalty_transactions WHERE customer_id = $1 ORDER BY created_at, id`
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements loyalty.Repository backed by PostgreSQL.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// FindByCustomer returns the account with its full transaction history.
func (r *LoyaltyRepository) FindByCustomer(ctx context.Context, customerID string) (*loyalty.Account, error) {
	rows, err := r.pool.Query(ctx, getAccountSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("finding account %q: %w", customerID, err)
	}

	acct, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loyalty.ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding account %q: %w", customerID, err)
	}

	txRows, err := r.pool.Query(ctx, listTransactionsSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %q: %w", customerID, err)
	}
	acct.History, err = pgx.CollectRows(txRows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %q: %w", customerID, err)
	}
	return &acct, nil
}

// Create registers an empty account for the customer.
func (r *LoyaltyRepository) Create(ctx context.Context, customerID string) (*loyalty.Account, error) {
	if _, err := r.pool.Exec(ctx, createAccountSQL, customerID); err != nil {
		return nil, fmt.Errorf("creating account %q: %w", customerID, err)
	}
	return &loyalty.Account{CustomerID: customerID}, nil
}

// AdjustBalance applies a signed delta to the account balance.
func (r *LoyaltyRepository) AdjustBalance(ctx context.Context, customerID string, delta int64) error {
	tag, err := r.pool.Exec(ctx, adjustBalanceSQL, customerID, delta)
	if err != nil {
		return fmt.Errorf("adjusting balance for %q: %w", customerID, err)
	}
	if tag.RowsAffected() == 0 {
		return loyalty.ErrAccountNotFound
	}
	return nil
}

// AddTransaction appends a transaction to the account history.
func (r *LoyaltyRepository) AddTransaction(ctx context.Context, tx loyalty.Transaction) error {
	_, err := r.pool.Exec(ctx, addTransactionSQL,
		tx.ID, tx.CustomerID, string(tx.Type), tx.Points, tx.At,
	)
	if err != nil {
		return fmt.Errorf("adding transaction %q: %w", tx.ID, err)
	}
	return nil
}

func scanAccount(row pgx.CollectableRow) (loyalty.Account, error) {
	var acct loyalty.Account
	err := row.Scan(&acct.CustomerID, &acct.Balance)
	return acct, err
}

func scanTransaction(row pgx.CollectableRow) (loyalty.Transaction, error) {
	var (
		tx  loyalty.Transaction
		typ string
	)
	err := row.Scan(&tx.ID, &tx.CustomerID, &typ, &tx.Points, &tx.At)
	tx.Type = loyalty.TransactionType(typ)
	return tx, err
}
