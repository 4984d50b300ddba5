package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/introcar/introcar-backend/api/controllers"
	"github.com/introcar/introcar-backend/api/routes"
	"github.com/introcar/introcar-backend/internal/cart"
	"github.com/introcar/introcar-backend/internal/checkout"
	"github.com/introcar/introcar-backend/internal/cms"
	"github.com/introcar/introcar-backend/internal/fitment"
	"github.com/introcar/introcar-backend/internal/products"
	"github.com/introcar/introcar-backend/internal/search"
	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/tenants"
	"github.com/introcar/introcar-backend/internal/vehicles"
	squarewebhook "github.com/introcar/introcar-backend/internal/webhooks/square"
	"github.com/introcar/introcar-backend/pkg/config"
	"github.com/introcar/introcar-backend/pkg/db"
	"github.com/introcar/introcar-backend/pkg/instance"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/metrics"
	"github.com/introcar/introcar-backend/pkg/migrate"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/redis"
	"github.com/introcar/introcar-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	dbStats, err := dbClient.StatsCollector()
	if err != nil {
		return err
	}
	registry.MustRegister(dbStats)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	catalogMetrics := metrics.NewCatalogMetrics(registry)

	vehicleRepo, err := vehicles.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	fitmentRepo, err := fitment.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	supersessionRepo, err := supersession.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	loader, err := fitment.NewStoreLoader(vehicleRepo, fitmentRepo, supersessionRepo)
	if err != nil {
		return err
	}
	holder, err := fitment.NewHolder(fitment.HolderConfig{
		Loader: loader,
		Options: fitment.Options{
			SuggestionLimit:      cfg.Catalog.SuggestionLimit,
			SupersessionMaxDepth: cfg.Catalog.SupersessionMaxDepth,
		},
		Timeout: cfg.Catalog.ResolveTimeout,
		Logger:  logg,
		Metrics: catalogMetrics,
	})
	if err != nil {
		return err
	}
	if _, err := holder.Reload(ctx); err != nil {
		return err
	}

	syncer, err := fitment.NewSyncer(holder, redisClient, cfg.Redis.CatalogChannel, instance.GetID(), logg)
	if err != nil {
		return err
	}
	go func() {
		if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "catalog invalidation listener stopped", err)
		}
	}()

	var onChange func(ctx context.Context) error
	if cfg.Catalog.AutoReload {
		onChange = func(ctx context.Context) error {
			_, err := syncer.Invalidate(ctx)
			return err
		}
	}

	fitmentService, err := fitment.NewService(fitmentRepo, onChange)
	if err != nil {
		return err
	}
	supersessionService, err := supersession.NewService(supersessionRepo, cfg.Catalog.SupersessionMaxDepth, onChange)
	if err != nil {
		return err
	}

	productRepo, err := products.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	productService, err := products.NewAdminService(productRepo)
	if err != nil {
		return err
	}
	searchService, err := search.NewService(holder, productRepo, cfg.Catalog.VariantSuffixes)
	if err != nil {
		return err
	}

	tenantRepo, err := tenants.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	tenantService, err := tenants.NewService(tenantRepo, redisClient, cfg.Redis.TenantCacheTTL, logg)
	if err != nil {
		return err
	}

	cmsRepo, err := cms.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	cmsService, err := cms.NewService(cmsRepo)
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(redisClient, holder, productRepo, cfg.Cart.TTL, cfg.Cart.MaxLines)
	if err != nil {
		return err
	}

	var gateway checkout.Gateway
	if cfg.Square.Enabled() {
		squareClient, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return err
		}
		gateway = squareClient
	} else {
		logg.Warn(ctx, "square is not configured; hosted checkout is disabled")
	}
	orderRepo, err := checkout.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	checkoutService, err := checkout.NewService(
		orderRepo,
		cartService,
		productRepo,
		outboxService,
		gateway,
		checkout.Options{Currency: cfg.Checkout.Currency, RedirectURL: cfg.Checkout.RedirectURL},
		logg,
	)
	if err != nil {
		return err
	}

	var (
		webhookService controllers.SquareWebhookService
		webhookGuard   controllers.WebhookGuard
	)
	if cfg.Square.WebhooksEnabled() {
		svc, err := squarewebhook.NewService(orderRepo, outboxService, logg)
		if err != nil {
			return err
		}
		guard, err := squarewebhook.NewEventGuard(redisClient, cfg.Square.WebhookEventTTL, "square-webhook")
		if err != nil {
			return err
		}
		webhookService, webhookGuard = svc, guard
	} else {
		logg.Warn(ctx, "square webhook signature key not configured; payment notifications are rejected")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			HTTP:          httpMetrics,
			Resolver:      holder,
			Syncer:        syncer,
			Fitments:      fitmentService,
			Supersessions: supersessionService,
			Products:      productService,
			Search:        searchService,
			Tenants:       tenantService,
			CMS:           cmsService,
			Cart:          cartService,
			Checkout:      checkoutService,
			SquareWebhook: webhookService,
			WebhookGuard:  webhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
