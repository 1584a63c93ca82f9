package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrigenai/agrigen-backend/internal/cron"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/agrigenai/agrigen-backend/pkg/db"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/agrigenai/agrigen-backend/pkg/metrics"
	"github.com/agrigenai/agrigen-backend/pkg/migrate"
	"github.com/agrigenai/agrigen-backend/pkg/redis"
)

// cron-worker purges expired session entries from the SQL store outside the api processes.
func main() {
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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	if cfg.Store.Driver != config.StoreDriverSQL {
		logg.Warn(logg.WithField(context.Background(), "store", cfg.Store.Driver), "cron worker only purges the sql store; nothing to do")
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	store, err := kvstore.NewSQL(dbClient, cfg.Store.EntryTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sql store", err)
		os.Exit(1)
	}
	purge, err := cron.NewEntryPurgeJob(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create purge job", err)
		os.Exit(1)
	}

	var lock cron.Lock
	if cfg.Redis.Configured() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey("entry-purge:"+cfg.App.Env), 0)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(purge),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
