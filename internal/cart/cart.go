// Package cart holds the shopping cart contents handed to checkout.
// Quantities are validated against the catalog at checkout time, not here.
package cart

import "github.com/shopspring/decimal"

// Line is a single cart entry: a product reference and a quantity.
// Quantities are decimal so weighed products can carry fractional amounts.
type Line struct {
	ProductID string
	Quantity  decimal.Decimal
}

// Cart accumulates line items in insertion order.
type Cart struct {
	lines []Line
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem adds one unit of a product.
func (c *Cart) AddItem(productID string) {
	c.AddItemQuantity(productID, decimal.NewFromInt(1))
}

// AddItemQuantity adds the given quantity of a product as a new line.
func (c *Cart) AddItemQuantity(productID string, quantity decimal.Decimal) {
	c.lines = append(c.lines, Line{ProductID: productID, Quantity: quantity})
}

// Lines returns the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	return c.lines
}

// Quantities aggregates quantities per product across all lines.
func (c *Cart) Quantities() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.lines))
	for _, l := range c.lines {
		out[l.ProductID] = out[l.ProductID].Add(l.Quantity)
	}
	return out
}
