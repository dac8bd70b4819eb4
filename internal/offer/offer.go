package offer

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported per-product offer strategies.
type Kind string

const (
	// KindThreeForTwo gives every third unit for free.
	KindThreeForTwo Kind = "three_for_two"
	// KindPercentage takes a percentage off the full line price.
	KindPercentage Kind = "percentage"
	// KindTwoForAmount sells pairs of units for a fixed special price.
	KindTwoForAmount Kind = "two_for_amount"
	// KindFiveForAmount sells sets of five units for a fixed special price.
	KindFiveForAmount Kind = "five_for_amount"
)

// ErrUnknownKind is returned when no calculator is registered for an offer kind.
var ErrUnknownKind = errors.New("unknown offer kind")

// Offer attaches a promotional pricing rule to a product. Argument carries
// the rule parameter: a percentage for KindPercentage, a special set price
// for the amount-based kinds, and is ignored for KindThreeForTwo.
type Offer struct {
	Kind      Kind
	ProductID string
	Argument  decimal.Decimal
}

// Discount holds a computed price reduction. Amount is never positive.
type Discount struct {
	ProductID   string
	Description string
	Amount      decimal.Decimal
}

// Calculator computes the discount an offer yields for a quantity of a
// product at a given unit price. Implementations are stateless and safe for
// concurrent use.
type Calculator interface {
	// AppliesTo reports whether the offer triggers at all for the quantity.
	// Calculators must guard the minimum quantity here rather than rely on
	// the arithmetic degenerating to zero.
	AppliesTo(quantity decimal.Decimal, o Offer) bool

	// Calculate returns the discount for the line, or nil when AppliesTo is
	// false. The returned amount is always zero or negative.
	Calculate(productID string, quantity, unitPrice decimal.Decimal, o Offer) *Discount
}
