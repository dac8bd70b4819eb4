// Package app wires configuration, storage, and HTTP transport together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/market-teller/internal/api"
	"github.com/xenking/market-teller/internal/checkout"
	"github.com/xenking/market-teller/internal/coupon"
	"github.com/xenking/market-teller/internal/loyalty"
	"github.com/xenking/market-teller/internal/repository"
	"github.com/xenking/market-teller/pkg/health"
	"github.com/xenking/market-teller/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	earnRate, err := decimal.NewFromString(cfg.Loyalty.EarnRate)
	if err != nil {
		return errors.Wrap(err, "parse earn rate")
	}
	redeemRate, err := decimal.NewFromString(cfg.Loyalty.RedeemRate)
	if err != nil {
		return errors.Wrap(err, "parse redeem rate")
	}

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	catalogRepo := repository.NewCatalogRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	loyaltyRepo := repository.NewLoyaltyRepository(pool)
	receiptRepo := repository.NewReceiptRepository(pool)

	// Checkout engine: offers and bundles are loaded once at startup.
	teller := checkout.NewTeller(
		catalogRepo,
		coupon.NewValidator(couponRepo),
		loyalty.NewProgram(loyaltyRepo, earnRate, redeemRate),
		receiptRepo,
	)

	offers, err := promotionRepo.ListOffers(ctx)
	if err != nil {
		return errors.Wrap(err, "load offers")
	}
	for _, o := range offers {
		teller.AddOffer(o.Kind, o.ProductID, o.Argument)
	}
	bundles, err := promotionRepo.ListBundles(ctx)
	if err != nil {
		return errors.Wrap(err, "load bundles")
	}
	for _, b := range bundles {
		teller.RegisterBundle(b)
	}
	lg.Info("Promotions loaded",
		zap.Int("offers", len(offers)),
		zap.Int("bundles", len(bundles)),
	)

	// HTTP handlers.
	h := api.NewHandler(catalogRepo, teller, checkout.NewPrinter(cfg.ReceiptColumns))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type"},
				MaxAge:       86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("teller-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
