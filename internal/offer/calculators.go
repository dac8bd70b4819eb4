package offer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// wholeUnits returns the truncated whole-unit part of a quantity. Set-based
// offers only ever count whole items; weighed remainders stay at full price.
func wholeUnits(quantity decimal.Decimal) int64 {
	return quantity.IntPart()
}

// ThreeForTwo charges two units for every complete set of three.
type ThreeForTwo struct{}

// AppliesTo reports whether at least one complete set of three is present.
func (ThreeForTwo) AppliesTo(quantity decimal.Decimal, _ Offer) bool {
	return wholeUnits(quantity) >= 3
}

// Calculate discounts one unit price per complete set of three.
func (c ThreeForTwo) Calculate(productID string, quantity, unitPrice decimal.Decimal, o Offer) *Discount {
	if !c.AppliesTo(quantity, o) {
		return nil
	}

	units := wholeUnits(quantity)
	sets := units / 3
	remainder := units % 3

	discounted := unitPrice.Mul(decimal.NewFromInt(sets*2 + remainder))
	full := quantity.Mul(unitPrice)

	return &Discount{
		ProductID:   productID,
		Description: "3 for 2",
		Amount:      discounted.Sub(full),
	}
}

// Percentage takes Offer.Argument percent off the full line price. Valid for
// both discrete and weighed products.
type Percentage struct{}

// AppliesTo reports whether any quantity is being purchased.
func (Percentage) AppliesTo(quantity decimal.Decimal, _ Offer) bool {
	return quantity.IsPositive()
}

// Calculate discounts Argument percent of quantity times unit price.
func (c Percentage) Calculate(productID string, quantity, unitPrice decimal.Decimal, o Offer) *Discount {
	if !c.AppliesTo(quantity, o) {
		return nil
	}

	amount := quantity.Mul(unitPrice).Mul(o.Argument).Div(hundred)

	return &Discount{
		ProductID:   productID,
		Description: fmt.Sprintf("%s%% off", o.Argument),
		Amount:      amount.Neg(),
	}
}

// ForAmount sells sets of Size units for the special price in Offer.Argument.
// Remainder units are charged at the regular unit price.
type ForAmount struct {
	Size int64
}

// AppliesTo reports whether at least one complete set is present.
func (c ForAmount) AppliesTo(quantity decimal.Decimal, _ Offer) bool {
	return wholeUnits(quantity) >= c.Size
}

// Calculate prices complete sets at the special price and the remainder at
// the unit price. The set count uses integer floor division over whole
// units; true division here would bill fractional sets.
func (c ForAmount) Calculate(productID string, quantity, unitPrice decimal.Decimal, o Offer) *Discount {
	if !c.AppliesTo(quantity, o) {
		return nil
	}

	units := wholeUnits(quantity)
	sets := units / c.Size
	remainder := units % c.Size

	discounted := o.Argument.Mul(decimal.NewFromInt(sets)).
		Add(unitPrice.Mul(decimal.NewFromInt(remainder)))
	full := quantity.Mul(unitPrice)

	return &Discount{
		ProductID:   productID,
		Description: fmt.Sprintf("%d for %s", c.Size, o.Argument),
		Amount:      discounted.Sub(full),
	}
}
