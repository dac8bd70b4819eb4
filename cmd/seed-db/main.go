package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/bundle"
	"github.com/xenking/market-teller/internal/catalog"
	"github.com/xenking/market-teller/internal/coupon"
	"github.com/xenking/market-teller/internal/offer"
	"github.com/xenking/market-teller/internal/repository"
)

type seedFile struct {
	Products []productJSON `json:"products"`
	Offers   []offerJSON   `json:"offers"`
	Bundles  []bundleJSON  `json:"bundles"`
	Coupons  []couponJSON  `json:"coupons"`
}

type productJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Unit  string          `json:"unit"`
	Price decimal.Decimal `json:"price"`
}

type offerJSON struct {
	ProductID string          `json:"productId"`
	Kind      string          `json:"kind"`
	Argument  decimal.Decimal `json:"argument"`
}

type bundleJSON struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Percent     decimal.Decimal `json:"percent"`
	ProductIDs  []string        `json:"productIds"`
}

type couponJSON struct {
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
	MaxUses     int             `json:"maxUses"`
	MinPurchase decimal.Decimal `json:"minPurchase"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	slog.Info("reading seed file", slog.String("path", seedPath))

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalogRepo := repository.NewCatalogRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)

	slog.Info("upserting products", slog.Int("count", len(seed.Products)))
	for _, p := range seed.Products {
		unit := catalog.Unit(p.Unit)
		if unit == "" {
			unit = catalog.UnitEach
		}
		if err := catalogRepo.Upsert(ctx, catalog.Product{
			ID:    p.ID,
			Name:  p.Name,
			Unit:  unit,
			Price: p.Price,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	slog.Info("upserting offers", slog.Int("count", len(seed.Offers)))
	for _, o := range seed.Offers {
		if err := promotionRepo.UpsertOffer(ctx, offer.Offer{
			Kind:      offer.Kind(o.Kind),
			ProductID: o.ProductID,
			Argument:  o.Argument,
		}); err != nil {
			return errors.Wrapf(err, "upsert offer for %s", o.ProductID)
		}
	}

	slog.Info("upserting bundles", slog.Int("count", len(seed.Bundles)))
	for i, b := range seed.Bundles {
		if err := promotionRepo.UpsertBundle(ctx, bundle.Bundle{
			ID:          b.ID,
			Description: b.Description,
			Percent:     b.Percent,
			ProductIDs:  b.ProductIDs,
		}, i); err != nil {
			return errors.Wrapf(err, "upsert bundle %s", b.ID)
		}
	}

	slog.Info("upserting coupons", slog.Int("count", len(seed.Coupons)))
	for _, c := range seed.Coupons {
		if err := couponRepo.Upsert(ctx, coupon.Coupon{
			Code:        c.Code,
			Type:        coupon.Type(c.Type),
			Value:       c.Value,
			Description: c.Description,
			MaxUses:     c.MaxUses,
			MinPurchase: c.MinPurchase,
		}); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
	}

	return nil
}
