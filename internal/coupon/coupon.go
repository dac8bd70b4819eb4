package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount to the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount capped at the subtotal.
	TypeFixed Type = "fixed"
)

var (
	// ErrNotFound is returned when a coupon code is not registered.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon's validity window has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrNotYetValid is returned when a coupon's validity window has not started.
	ErrNotYetValid = errors.New("coupon not yet valid")
	// ErrExhausted is returned when a coupon has no uses remaining.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrMinimumPurchaseNotMet is returned when the cart subtotal is below
	// the coupon's minimum purchase amount.
	ErrMinimumPurchaseNotMet = errors.New("minimum purchase not met")
)

// Coupon defines a code-activated discount and its eligibility constraints.
// MaxUses of zero means unlimited; a zero MinPurchase means no minimum.
type Coupon struct {
	Code        string
	Type        Type
	Value       decimal.Decimal
	Description string
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	MaxUses     int
	Uses        int
	MinPurchase decimal.Decimal
}

// Repository provides lookup and redemption of coupons. IncrementUses must
// be atomic per coupon so concurrent checkouts cannot exceed MaxUses.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUses(ctx context.Context, code string) error
}
