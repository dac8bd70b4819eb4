package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/catalog"
	"github.com/xenking/market-teller/internal/offer"
)

// Item is a priced receipt line: a product, the purchased quantity, the
// catalog unit price, and the undiscounted line total.
type Item struct {
	Product  catalog.Product
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Total    decimal.Decimal
}

// Receipt is the priced outcome of a checkout: items and discounts in the
// order they were produced.
type Receipt struct {
	ID        string
	Items     []Item
	Discounts []offer.Discount
	CreatedAt time.Time
}

// addItem appends a priced line for the product.
func (r *Receipt) addItem(p catalog.Product, quantity, unitPrice decimal.Decimal) {
	r.Items = append(r.Items, Item{
		Product:  p,
		Quantity: quantity,
		Price:    unitPrice,
		Total:    quantity.Mul(unitPrice),
	})
}

// addDiscount appends a discount line.
func (r *Receipt) addDiscount(d offer.Discount) {
	r.Discounts = append(r.Discounts, d)
}

// Subtotal sums the undiscounted item totals.
func (r *Receipt) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		sum = sum.Add(item.Total)
	}
	return sum
}

// DiscountTotal sums all discount amounts; it is zero or negative.
func (r *Receipt) DiscountTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range r.Discounts {
		sum = sum.Add(d.Amount)
	}
	return sum
}

// Total is the grand total: subtotal plus discounts, clamped at zero.
// TotalClamped reports whether clamping kicked in.
func (r *Receipt) Total() decimal.Decimal {
	total := r.Subtotal().Add(r.DiscountTotal())
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// TotalClamped reports whether stacked discounts exceeded the subtotal,
// in which case Total returns zero rather than a negative amount.
func (r *Receipt) TotalClamped() bool {
	return r.Subtotal().Add(r.DiscountTotal()).IsNegative()
}

// Repository persists finished receipts.
type Repository interface {
	Save(ctx context.Context, r *Receipt) error
}
