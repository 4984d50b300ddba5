package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/introcar/introcar-backend/internal/checkout"
	"github.com/introcar/introcar-backend/internal/cron"
	"github.com/introcar/introcar-backend/pkg/config"
	"github.com/introcar/introcar-backend/pkg/db"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/metrics"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	orders, err := checkout.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())

	expiry, err := cron.NewPendingOrderExpiry(orders, outbox.NewService(outboxRepo, logg),
		cfg.Cron.PendingOrderTTL, cfg.Cron.ExpiryBatchSize, logg)
	if err != nil {
		return err
	}
	retention, err := cron.NewOutboxRetention(dbClient, outboxRepo, cfg.Cron.OutboxRetention)
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, "introcar:"+cfg.App.Env+":cron:lock", cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	scheduler, err := cron.NewScheduler(cron.SchedulerConfig{
		Logger:   logg,
		Registry: cron.NewRegistry(expiry, retention),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		_, err := scheduler.RunOnce(ctx)
		return err
	}
	logg.Info(logg.WithField(ctx, "interval", cfg.Cron.Interval.String()), "starting cron worker")
	return scheduler.Run(ctx)
}
