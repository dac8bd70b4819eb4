package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Unit describes how a product is quantified and priced.
type Unit string

const (
	// UnitEach prices discrete items; quantities must be whole numbers.
	UnitEach Unit = "each"
	// UnitKilo prices by weight; fractional quantities are allowed.
	UnitKilo Unit = "kilo"
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID    string
	Name  string
	Unit  Unit
	Price decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
