package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/market-teller/internal/checkout"
)

const createReceiptSQL = `INSERT INTO receipts (id, items, discounts, total, created_at)
	VALUES ($1, $2, $3, $4, $5)`

var _ checkout.Repository = (*ReceiptRepository)(nil)

// ReceiptRepository implements checkout.Repository backed by PostgreSQL.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

type receiptItemJSON struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
	Total     string `json:"total"`
}

type receiptDiscountJSON struct {
	ProductID   string `json:"productId,omitempty"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Save persists a finished receipt. Items and discounts are serialized to
// JSON for storage in JSONB columns; money is rounded to two decimals here,
// at the persistence edge.
func (r *ReceiptRepository) Save(ctx context.Context, rec *checkout.Receipt) error {
	items := make([]receiptItemJSON, len(rec.Items))
	for i, item := range rec.Items {
		items[i] = receiptItemJSON{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity.String(),
			Price:     item.Price.StringFixed(2),
			Total:     item.Total.StringFixed(2),
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling receipt items: %w", err)
	}

	discounts := make([]receiptDiscountJSON, len(rec.Discounts))
	for i, d := range rec.Discounts {
		discounts[i] = receiptDiscountJSON{
			ProductID:   d.ProductID,
			Description: d.Description,
			Amount:      d.Amount.StringFixed(2),
		}
	}
	discountsJSON, err := json.Marshal(discounts)
	if err != nil {
		return fmt.Errorf("marshaling receipt discounts: %w", err)
	}

	_, err = r.pool.Exec(ctx, createReceiptSQL,
		rec.ID, itemsJSON, discountsJSON, rec.Total().Round(2), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating receipt %q: %w", rec.ID, err)
	}
	return nil
}
