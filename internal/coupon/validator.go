package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/offer"
)

var hundred = decimal.NewFromInt(100)

// Validator checks coupon eligibility against a cart subtotal. Validation is
// side-effect-free; only Redeem consumes a use.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate looks up the coupon for the given code and checks, in order:
// existence, validity window, remaining uses, and minimum purchase. It never
// mutates coupon state, so calling it repeatedly is safe.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.MaxUses > 0 && c.Uses >= c.MaxUses {
		return nil, ErrExhausted
	}

	if c.MinPurchase.IsPositive() && subtotal.LessThan(c.MinPurchase) {
		return nil, ErrMinimumPurchaseNotMet
	}

	return c, nil
}

// Redeem consumes one use of the coupon. Callers invoke it exactly once per
// successful checkout, after Validate has passed.
func (v *Validator) Redeem(ctx context.Context, code string) error {
	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrap(err, "increment coupon uses")
	}
	return nil
}

// Apply computes the discount a validated coupon yields for the subtotal.
// Percentage coupons reduce the subtotal proportionally; fixed coupons never
// discount more than the subtotal itself.
func Apply(c *Coupon, subtotal decimal.Decimal) offer.Discount {
	var amount decimal.Decimal
	switch c.Type {
	case TypeFixed:
		amount = decimal.Min(c.Value, subtotal)
	default:
		amount = subtotal.Mul(c.Value).Div(hundred)
	}

	return offer.Discount{
		Description: describe(c),
		Amount:      amount.Neg(),
	}
}

// describe renders the receipt line for a coupon discount.
func describe(c *Coupon) string {
	desc := c.Description
	if desc == "" {
		desc = fmt.Sprintf("Coupon %s", c.Code)
	}
	if c.Type == TypeFixed {
		return fmt.Sprintf("%s (-$%s)", desc, c.Value.StringFixed(2))
	}
	return fmt.Sprintf("%s (-%s%%)", desc, c.Value)
}
