package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/bundle"
	"github.com/xenking/market-teller/internal/offer"
)

const (
	listOffersSQL = `SELECT product_id, kind, argument FROM offers ORDER BY product_id`

	upsertOfferSQL = `INSERT INTO offers (product_id, kind, argument)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET kind = $2, argument = $3`

	listBundlesSQL = `SELECT b.id, b.description, b.percent,
			array_agg(bp.product_id ORDER BY bp.product_id) AS product_ids
		FROM bundles b
		JOIN bundle_products bp ON bp.bundle_id = b.id
		GROUP BY b.id, b.description, b.percent, b.position
		ORDER BY b.position, b.id`

	upsertBundleSQL = `INSERT INTO bundles (id, description, percent, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET description = $2, percent = $3, position = $4`

	deleteBundleProductsSQL = `DELETE FROM bundle_products WHERE bundle_id = $1`

	insertBundleProductSQL = `INSERT INTO bundle_products (bundle_id, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

// PromotionRepository loads and stores offer and bundle definitions.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ListOffers returns all configured per-product offers.
func (r *PromotionRepository) ListOffers(ctx context.Context) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// UpsertOffer inserts or replaces the offer attached to a product.
func (r *PromotionRepository) UpsertOffer(ctx context.Context, o offer.Offer) error {
	_, err := r.pool.Exec(ctx, upsertOfferSQL, o.ProductID, string(o.Kind), o.Argument)
	if err != nil {
		return fmt.Errorf("upserting offer for %q: %w", o.ProductID, err)
	}
	return nil
}

// ListBundles returns all bundle definitions in their configured position
// order. Position order decides which bundle wins contested cart units.
func (r *PromotionRepository) ListBundles(ctx context.Context) ([]bundle.Bundle, error) {
	rows, err := r.pool.Query(ctx, listBundlesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing bundles: %w", err)
	}
	return pgx.CollectRows(rows, scanBundle)
}

// UpsertBundle inserts or replaces a bundle and its product set.
func (r *PromotionRepository) UpsertBundle(ctx context.Context, b bundle.Bundle, position int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning bundle upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertBundleSQL, b.ID, b.Description, b.Percent, position); err != nil {
		return fmt.Errorf("upserting bundle %q: %w", b.ID, err)
	}
	if _, err := tx.Exec(ctx, deleteBundleProductsSQL, b.ID); err != nil {
		return fmt.Errorf("clearing bundle products for %q: %w", b.ID, err)
	}
	for _, productID := range b.ProductIDs {
		if _, err := tx.Exec(ctx, insertBundleProductSQL, b.ID, productID); err != nil {
			return fmt.Errorf("adding product %q to bundle %q: %w", productID, b.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing bundle upsert: %w", err)
	}
	return nil
}

func scanOffer(row pgx.CollectableRow) (offer.Offer, error) {
	var (
		o        offer.Offer
		kind     string
		argument decimal.Decimal
	)
	err := row.Scan(&o.ProductID, &kind, &argument)
	o.Kind = offer.Kind(kind)
	o.Argument = argument
	return o, err
}

func scanBundle(row pgx.CollectableRow) (bundle.Bundle, error) {
	var (
		b       bundle.Bundle
		percent decimal.Decimal
	)
	err := row.Scan(&b.ID, &b.Description, &percent, &b.ProductIDs)
	b.Percent = percent
	return b, err
}
