package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agrigenai/agrigen-backend/api/controllers"
	"github.com/agrigenai/agrigen-backend/api/middleware"
	"github.com/agrigenai/agrigen-backend/api/routes"
	"github.com/agrigenai/agrigen-backend/internal/analysis"
	"github.com/agrigenai/agrigen-backend/internal/checkout"
	"github.com/agrigenai/agrigen-backend/internal/cron"
	"github.com/agrigenai/agrigen-backend/internal/session"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/agrigenai/agrigen-backend/pkg/db"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/agrigenai/agrigen-backend/pkg/metrics"
	"github.com/agrigenai/agrigen-backend/pkg/migrate"
	"github.com/agrigenai/agrigen-backend/pkg/redis"
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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	store, closeStore, err := openStore(ctx, cfg, logg, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap session store", err)
		os.Exit(1)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	commerceMetrics := metrics.NewCommerceMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	taxRate, err := cfg.Commerce.TaxRateDecimal()
	if err != nil {
		logg.Error(ctx, "invalid commerce config", err)
		os.Exit(1)
	}
	sessions, err := session.NewManager(session.ManagerParams{
		Store:     store,
		Logger:    logg,
		Metrics:   commerceMetrics,
		UnitPrice: cfg.Commerce.SeedUnitPrice,
		Pricing:   &checkout.Pricing{ShippingFlat: cfg.Commerce.ShippingFlat, TaxRate: taxRate},
	})
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	var analyzer controllers.Analyzer
	analysisClient, err := analysis.NewClient(cfg.Analysis, logg.Component("analysis"), analysis.WithMetrics(commerceMetrics))
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "analysis backend disabled")
	} else {
		analyzer = analysisClient
	}

	var limiter middleware.RateLimiter = middleware.NewMemoryRateLimiter()
	if redisClient != nil {
		limiter = redisClient
	}

	housekeeping, err := newHousekeeping(cfg, logg, sessions, store, redisClient, jobMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create housekeeping service", err)
		os.Exit(1)
	}
	for _, service := range housekeeping {
		go func(service *cron.Service) {
			if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "housekeeping stopped unexpectedly", err)
			}
		}(service)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"addr":  addr,
		"store": cfg.Store.Driver,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, sessions, analyzer, limiter, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "api server shutdown failed", err)
		}
		logg.Info(serverCtx, "api server shut down gracefully")
	}
}

// openStore builds the session entry store selected by AGRIGEN_STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger, redisClient *redis.Client) (kvstore.Store, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		store, err := kvstore.NewRedis(redisClient, cfg.Store.EntryTTL)
		return store, noop, err

	case config.StoreDriverSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, noop, err
		}
		closeDB := func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			closeDB()
			return nil, noop, fmt.Errorf("running dev migrations: %w", err)
		}
		store, err := kvstore.NewSQL(dbClient, cfg.Store.EntryTTL)
		if err != nil {
			closeDB()
			return nil, noop, err
		}
		return store, closeDB, nil

	default:
		return kvstore.NewMemory(cfg.Store.EntryTTL), noop, nil
	}
}

// newHousekeeping returns the services that evict idle sessions and purge expired entries.
// Sweeping is always local to the process; purging a shared SQL store takes the redis lock when
// one is available so a single instance runs it.
func newHousekeeping(
	cfg *config.Config,
	logg *logger.Logger,
	sessions *session.Manager,
	store kvstore.Store,
	redisClient *redis.Client,
	jobMetrics *metrics.JobMetrics,
) ([]*cron.Service, error) {
	logg = logg.Component("housekeeping")
	sweep, err := cron.NewSessionSweepJob(sessions, cfg.Store.IdleSession)
	if err != nil {
		return nil, err
	}
	sweeper, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweep),
		Metrics:  jobMetrics,
		Interval: time.Minute,
	})
	if err != nil {
		return nil, err
	}
	services := []*cron.Service{sweeper}

	purger, ok := store.(kvstore.Purger)
	if !ok {
		return services, nil
	}
	purge, err := cron.NewEntryPurgeJob(purger)
	if err != nil {
		return nil, err
	}
	var lock cron.Lock
	if redisClient != nil && cfg.Store.Driver == config.StoreDriverSQL {
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("entry-purge:"+cfg.App.Env), 0)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}
	purgeService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(purge),
		Lock:     lock,
		Metrics:  jobMetrics,
	})
	if err != nil {
		return nil, err
	}
	return append(services, purgeService), nil
}
