package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name     string
		coupon   *Coupon
		code     string
		subtotal string
		wantErr  error
	}{
		{
			name:     "valid percentage coupon",
			coupon:   &Coupon{Code: "SAVE10", Type: TypePercentage, Value: d("10")},
			code:     "SAVE10",
			subtotal: "100",
		},
		{
			name:     "unknown code",
			code:     "BOGUS",
			subtotal: "100",
			wantErr:  ErrNotFound,
		},
		{
			name: "expired",
			coupon: &Coupon{
				Code: "OLD", Type: TypePercentage, Value: d("10"),
				ValidUntil: &pastTime,
			},
			code:     "OLD",
			subtotal: "100",
			wantErr:  ErrExpired,
		},
		{
			name: "not yet valid",
			coupon: &Coupon{
				Code: "SOON", Type: TypePercentage, Value: d("10"),
				ValidFrom: &futureTime,
			},
			code:     "SOON",
			subtotal: "100",
			wantErr:  ErrNotYetValid,
		},
		{
			name: "within window",
			coupon: &Coupon{
				Code: "NOW", Type: TypePercentage, Value: d("10"),
				ValidFrom: &pastTime, ValidUntil: &futureTime,
			},
			code:     "NOW",
			subtotal: "100",
		},
		{
			name:     "exhausted",
			coupon:   &Coupon{Code: "GONE", Type: TypeFixed, Value: d("5"), MaxUses: 3, Uses: 3},
			code:     "GONE",
			subtotal: "100",
			wantErr:  ErrExhausted,
		},
		{
			name:     "uses remaining",
			coupon:   &Coupon{Code: "LEFT", Type: TypeFixed, Value: d("5"), MaxUses: 3, Uses: 2},
			code:     "LEFT",
			subtotal: "100",
		},
		{
			name:     "unlimited uses",
			coupon:   &Coupon{Code: "FOREVER", Type: TypeFixed, Value: d("5"), Uses: 9999},
			code:     "FOREVER",
			subtotal: "100",
		},
		{
			name:     "below minimum purchase",
			coupon:   &Coupon{Code: "MIN10", Type: TypeFixed, Value: d("2"), MinPurchase: d("10.00")},
			code:     "MIN10",
			subtotal: "9.99",
			wantErr:  ErrMinimumPurchaseNotMet,
		},
		{
			name:     "exactly at minimum purchase",
			coupon:   &Coupon{Code: "MIN10", Type: TypeFixed, Value: d("2"), MinPurchase: d("10.00")},
			code:     "MIN10",
			subtotal: "10.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemory()
			if tt.coupon != nil {
				repo.Register(*tt.coupon)
			}

			v := NewValidator(repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, d(tt.subtotal))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

// Validation must be pure: repeated calls leave the usage counter untouched.
func TestValidator_ValidateIsSideEffectFree(t *testing.T) {
	repo := NewMemory()
	repo.Register(Coupon{Code: "ONCE", Type: TypeFixed, Value: d("5"), MaxUses: 1})

	v := NewValidator(repo)

	for range 5 {
		_, err := v.Validate(context.Background(), "ONCE", d("50"))
		require.NoError(t, err)
	}

	c, err := repo.FindByCode(context.Background(), "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Uses)

	require.NoError(t, v.Redeem(context.Background(), "ONCE"))

	c, err = repo.FindByCode(context.Background(), "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Uses)

	_, err = v.Validate(context.Background(), "ONCE", d("50"))
	require.ErrorIs(t, err, ErrExhausted)
}

func TestMemory_IncrementUsesEnforcesMaxUses(t *testing.T) {
	repo := NewMemory()
	repo.Register(Coupon{Code: "CAP2", Type: TypeFixed, Value: d("1"), MaxUses: 2})

	ctx := context.Background()
	require.NoError(t, repo.IncrementUses(ctx, "CAP2"))
	require.NoError(t, repo.IncrementUses(ctx, "CAP2"))
	require.ErrorIs(t, repo.IncrementUses(ctx, "CAP2"), ErrExhausted)

	c, err := repo.FindByCode(ctx, "CAP2")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Uses)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		coupon     *Coupon
		subtotal   string
		wantAmount string
		wantDesc   string
	}{
		{
			name:       "percentage of subtotal",
			coupon:     &Coupon{Code: "SAVE10", Type: TypePercentage, Value: d("10")},
			subtotal:   "40",
			wantAmount: "-4",
			wantDesc:   "Coupon SAVE10 (-10%)",
		},
		{
			name:       "fixed amount",
			coupon:     &Coupon{Code: "FLAT5", Type: TypeFixed, Value: d("5"), Description: "Flat five"},
			subtotal:   "40",
			wantAmount: "-5",
			wantDesc:   "Flat five (-$5.00)",
		},
		{
			name:       "fixed amount capped at subtotal",
			coupon:     &Coupon{Code: "FLAT50", Type: TypeFixed, Value: d("50")},
			subtotal:   "12.30",
			wantAmount: "-12.30",
			wantDesc:   "Coupon FLAT50 (-$50.00)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.coupon, d(tt.subtotal))
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.True(t, d(tt.wantAmount).Equal(got.Amount),
				"expected %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}
