package loyalty

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Default kata rates: one point per currency unit, one cent per point.
func newTestProgram() *Program {
	return NewProgram(NewMemory(), d("1"), d("0.01"))
}

func TestProgram_Earn(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		wantPoints int64
	}{
		{name: "whole total", total: "25", wantPoints: 25},
		{name: "fractional total floors", total: "25.99", wantPoints: 25},
		{name: "below one point", total: "0.75", wantPoints: 0},
		{name: "zero total", total: "0", wantPoints: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProgram()

			points, err := p.Earn(context.Background(), "alice", d(tt.total))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPoints, points)

			if tt.wantPoints == 0 {
				return
			}
			acct, err := p.Account(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPoints, acct.Balance)
			require.Len(t, acct.History, 1)
			assert.Equal(t, TransactionEarn, acct.History[0].Type)
		})
	}
}

func TestProgram_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("discount equals points times redemption rate", func(t *testing.T) {
		p := newTestProgram()
		_, err := p.Earn(ctx, "bob", d("500"))
		require.NoError(t, err)

		got, err := p.Redeem(ctx, "bob", 200)
		require.NoError(t, err)
		assert.Equal(t, "Loyalty points (200 pts)", got.Description)
		assert.True(t, d("-2").Equal(got.Amount), "got %s", got.Amount)

		acct, err := p.Account(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(300), acct.Balance)
		require.Len(t, acct.History, 2)
		assert.Equal(t, TransactionRedeem, acct.History[1].Type)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		p := newTestProgram()
		_, err := p.Earn(ctx, "bob", d("10"))
		require.NoError(t, err)

		_, err = p.Redeem(ctx, "bob", 11)
		require.ErrorIs(t, err, ErrInsufficientBalance)

		acct, err := p.Account(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(10), acct.Balance, "failed redemption must not touch the balance")
		assert.Len(t, acct.History, 1)
	})

	t.Run("missing account cannot redeem", func(t *testing.T) {
		p := newTestProgram()
		_, err := p.Redeem(ctx, "nobody", 1)
		require.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("non-positive points rejected", func(t *testing.T) {
		p := newTestProgram()
		_, err := p.Redeem(ctx, "bob", 0)
		require.Error(t, err)
		_, err = p.Redeem(ctx, "bob", -5)
		require.Error(t, err)
	})
}

// Earning then redeeming the earned amount on the same account either
// succeeds deterministically or fails with ErrInsufficientBalance.
func TestProgram_EarnThenRedeemEarned(t *testing.T) {
	ctx := context.Background()
	p := newTestProgram()

	earned, err := p.Earn(ctx, "carol", d("42.50"))
	require.NoError(t, err)
	require.Equal(t, int64(42), earned)

	got, err := p.Redeem(ctx, "carol", earned)
	require.NoError(t, err)
	assert.True(t, d("-0.42").Equal(got.Amount), "got %s", got.Amount)

	acct, err := p.Account(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Balance)

	_, err = p.Redeem(ctx, "carol", 1)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestProgram_CanRedeem(t *testing.T) {
	ctx := context.Background()
	p := newTestProgram()

	ok, err := p.CanRedeem(ctx, "dave", 1)
	require.NoError(t, err)
	assert.False(t, ok, "missing account cannot redeem")

	_, err = p.Earn(ctx, "dave", d("5"))
	require.NoError(t, err)

	ok, err = p.CanRedeem(ctx, "dave", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CanRedeem(ctx, "dave", 6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProgram_AccountCreatedOnFirstReference(t *testing.T) {
	ctx := context.Background()
	p := newTestProgram()

	acct, err := p.Account(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, "erin", acct.CustomerID)
	assert.Equal(t, int64(0), acct.Balance)

	again, err := p.Account(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, acct.CustomerID, again.CustomerID)
}
