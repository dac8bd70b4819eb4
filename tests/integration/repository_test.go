//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/market-teller/internal/bundle"
	"github.com/xenking/market-teller/internal/cart"
	"github.com/xenking/market-teller/internal/catalog"
	"github.com/xenking/market-teller/internal/checkout"
	"github.com/xenking/market-teller/internal/coupon"
	"github.com/xenking/market-teller/internal/loyalty"
	"github.com/xenking/market-teller/internal/offer"
	"github.com/xenking/market-teller/internal/repository"
)

var pool *pgxpool.Pool

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "teller",
				"POSTGRES_PASSWORD": "teller",
				"POSTGRES_DB":       "teller",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	databaseURL := fmt.Sprintf("postgres://teller:teller@%s:%s/teller?sslmode=disable", host, port.Port())

	pool, err = repository.NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCatalogRepository(pool)

	require.NoError(t, repo.Upsert(ctx, catalog.Product{
		ID: "it-toothbrush", Name: "Toothbrush", Unit: catalog.UnitEach, Price: d("0.99"),
	}))
	require.NoError(t, repo.Upsert(ctx, catalog.Product{
		ID: "it-apples", Name: "Apples", Unit: catalog.UnitKilo, Price: d("1.99"),
	}))

	t.Run("get by id", func(t *testing.T) {
		p, err := repo.GetByID(ctx, "it-apples")
		require.NoError(t, err)
		assert.Equal(t, catalog.UnitKilo, p.Unit)
		assert.True(t, d("1.99").Equal(p.Price), "got %s", p.Price)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "it-caviar")
		require.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("get by ids skips unknown", func(t *testing.T) {
		products, err := repo.GetByIDs(ctx, []string{"it-toothbrush", "it-caviar"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "it-toothbrush", products[0].ID)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, catalog.Product{
			ID: "it-toothbrush", Name: "Toothbrush", Unit: catalog.UnitEach, Price: d("1.09"),
		}))
		p, err := repo.GetByID(ctx, "it-toothbrush")
		require.NoError(t, err)
		assert.True(t, d("1.09").Equal(p.Price), "got %s", p.Price)
	})
}

func TestPromotionRepository(t *testing.T) {
	ctx := context.Background()
	catalogRepo := repository.NewCatalogRepository(pool)
	repo := repository.NewPromotionRepository(pool)

	for _, p := range []catalog.Product{
		{ID: "it-bread", Name: "Bread", Unit: catalog.UnitEach, Price: d("2.00")},
		{ID: "it-butter", Name: "Butter", Unit: catalog.UnitEach, Price: d("3.00")},
	} {
		require.NoError(t, catalogRepo.Upsert(ctx, p))
	}

	require.NoError(t, repo.UpsertOffer(ctx, offer.Offer{
		Kind: offer.KindPercentage, ProductID: "it-bread", Argument: d("20"),
	}))
	require.NoError(t, repo.UpsertBundle(ctx, bundle.Bundle{
		ID:          "it-breakfast",
		Description: "Breakfast bundle",
		Percent:     d("10"),
		ProductIDs:  []string{"it-bread", "it-butter"},
	}, 0))

	offers, err := repo.ListOffers(ctx)
	require.NoError(t, err)
	found := false
	for _, o := range offers {
		if o.ProductID == "it-bread" {
			found = true
			assert.Equal(t, offer.KindPercentage, o.Kind)
			assert.True(t, d("20").Equal(o.Argument), "got %s", o.Argument)
		}
	}
	assert.True(t, found, "offer for it-bread not listed")

	bundles, err := repo.ListBundles(ctx)
	require.NoError(t, err)
	found = false
	for _, b := range bundles {
		if b.ID == "it-breakfast" {
			found = true
			assert.ElementsMatch(t, []string{"it-bread", "it-butter"}, b.ProductIDs)
			assert.True(t, d("10").Equal(b.Percent), "got %s", b.Percent)
		}
	}
	assert.True(t, found, "bundle it-breakfast not listed")
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(pool)

	require.NoError(t, repo.Upsert(ctx, coupon.Coupon{
		Code: "IT-SAVE10", Type: coupon.TypePercentage, Value: d("10"),
		Description: "10% off", MaxUses: 2,
	}))

	t.Run("find is case-insensitive", func(t *testing.T) {
		c, err := repo.FindByCode(ctx, "it-save10")
		require.NoError(t, err)
		assert.Equal(t, "IT-SAVE10", c.Code)
		assert.Equal(t, 2, c.MaxUses)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "IT-BOGUS")
		require.ErrorIs(t, err, coupon.ErrNotFound)
	})

	t.Run("increment enforces max uses", func(t *testing.T) {
		require.NoError(t, repo.IncrementUses(ctx, "IT-SAVE10"))
		require.NoError(t, repo.IncrementUses(ctx, "IT-SAVE10"))
		require.ErrorIs(t, repo.IncrementUses(ctx, "IT-SAVE10"), coupon.ErrExhausted)

		c, err := repo.FindByCode(ctx, "IT-SAVE10")
		require.NoError(t, err)
		assert.Equal(t, 2, c.Uses)
	})
}

func TestLoyaltyRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLoyaltyRepository(pool)
	program := loyalty.NewProgram(repo, d("1"), d("0.01"))

	earned, err := program.Earn(ctx, "it-alice", d("42.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), earned)

	discount, err := program.Redeem(ctx, "it-alice", 40)
	require.NoError(t, err)
	assert.True(t, d("-0.4").Equal(discount.Amount), "got %s", discount.Amount)

	acct, err := repo.FindByCustomer(ctx, "it-alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.Balance)
	require.Len(t, acct.History, 2)
	assert.Equal(t, loyalty.TransactionEarn, acct.History[0].Type)
	assert.Equal(t, loyalty.TransactionRedeem, acct.History[1].Type)

	_, err = program.Redeem(ctx, "it-alice", 3)
	require.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
}

func TestCheckoutAgainstDatabase(t *testing.T) {
	ctx := context.Background()

	catalogRepo := repository.NewCatalogRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	loyaltyRepo := repository.NewLoyaltyRepository(pool)
	receiptRepo := repository.NewReceiptRepository(pool)

	for _, p := range []catalog.Product{
		{ID: "it-rice", Name: "Rice", Unit: catalog.UnitEach, Price: d("2.49")},
		{ID: "it-tomatoes", Name: "Cherry Tomatoes", Unit: catalog.UnitEach, Price: d("0.69")},
	} {
		require.NoError(t, catalogRepo.Upsert(ctx, p))
	}
	require.NoError(t, couponRepo.Upsert(ctx, coupon.Coupon{
		Code: "IT-HALF", Type: coupon.TypePercentage, Value: d("50"),
	}))

	teller := checkout.NewTeller(
		catalogRepo,
		coupon.NewValidator(couponRepo),
		loyalty.NewProgram(loyaltyRepo, d("1"), d("0.01")),
		receiptRepo,
	)
	teller.AddOffer(offer.KindTwoForAmount, "it-tomatoes", d("0.99"))

	c := cart.New()
	c.AddItemQuantity("it-rice", d("2"))
	c.AddItemQuantity("it-tomatoes", d("2"))

	res, err := teller.Checkout(ctx, c, checkout.Options{
		CouponCode: "IT-HALF",
		CustomerID: "it-bob",
	})
	require.NoError(t, err)

	r := res.Receipt
	// 2*2.49 + 2*0.69 = 6.36; tomatoes 2 for 0.99 -> -0.39; coupon -50% of 5.97.
	require.Len(t, r.Discounts, 2)
	assert.True(t, d("-0.39").Equal(r.Discounts[0].Amount), "got %s", r.Discounts[0].Amount)
	assert.True(t, d("2.985").Equal(r.Total()), "got %s", r.Total())

	require.NotNil(t, res.Loyalty)
	assert.Equal(t, int64(2), res.Loyalty.PointsEarned)

	// The receipt row landed in the database.
	var total decimal.Decimal
	err = pool.QueryRow(ctx, `SELECT total FROM receipts WHERE id = $1`, r.ID).Scan(&total)
	require.NoError(t, err)
	assert.True(t, d("2.99").Equal(total), "got %s", total)

	// The coupon use was consumed.
	stored, err := couponRepo.FindByCode(ctx, "IT-HALF")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Uses)
}
