package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, description,
		valid_from, valid_until, max_uses, uses, min_purchase
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	// The guard keeps concurrent redemptions from exceeding max_uses;
	// max_uses of zero means unlimited.
	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		AND (max_uses = 0 OR uses < max_uses)`

	upsertCouponSQL = `INSERT INTO coupons
		(code, discount_type, value, description, valid_from, valid_until, max_uses, min_purchase, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (code) DO UPDATE SET discount_type = $2, value = $3,
			description = $4, valid_from = $5, valid_until = $6,
			max_uses = $7, min_purchase = $8, active = TRUE`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUses atomically consumes one use of the coupon. Returns
// coupon.ErrExhausted when the usage limit has already been reached.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		c, err := r.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if c.MaxUses > 0 && c.Uses >= c.MaxUses {
			return coupon.ErrExhausted
		}
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a coupon, reactivating it if needed.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, string(c.Type), c.Value, c.Description,
		c.ValidFrom, c.ValidUntil, c.MaxUses, c.MinPurchase,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		value        decimal.Decimal
		validFrom    *time.Time
		validUntil   *time.Time
		maxUses      int32
		uses         int32
		minPurchase  decimal.Decimal
	)
	err := row.Scan(
		&c.Code, &discountType, &value, &c.Description,
		&validFrom, &validUntil, &maxUses, &uses, &minPurchase,
	)
	c.Type = coupon.Type(discountType)
	c.Value = value
	c.ValidFrom = validFrom
	c.ValidUntil = validUntil
	c.MaxUses = int(maxUses)
	c.Uses = int(uses)
	c.MinPurchase = minPurchase
	return c, err
}
