package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pinwheelhq/atrium/pkg/accounts"
	"github.com/pinwheelhq/atrium/pkg/api"
	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/config"
	"github.com/pinwheelhq/atrium/pkg/middleware"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/pgdb"
	"github.com/pinwheelhq/atrium/pkg/policy"
	"github.com/pinwheelhq/atrium/pkg/projects"
	"github.com/pinwheelhq/atrium/pkg/quota"
	"github.com/pinwheelhq/atrium/pkg/schema"
	"github.com/pinwheelhq/atrium/pkg/subscriptions"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting atrium")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	otelProviders, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	// Database
	connMgr, err := pgdb.NewConnectionManager(pgdb.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: pgdb.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	connMgr.StartHealthCheckRoutine(ctx, 30*time.Second)

	db := connMgr.Primary()
	if err := schema.RunMigrations(ctx, db, logger); err != nil {
		logger.WithError(err).Error("migrations failed")
		os.Exit(1)
	}
	if err := schema.InitializePlans(ctx, db, logger); err != nil {
		logger.WithError(err).Error("plan seeding failed")
		os.Exit(1)
	}

	// Redis backs rate limiting and the readiness probe
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup")
		}
	}

	// Domain services
	auditLog, err := audit.NewDBLogger(db, logger, metrics)
	if err != nil {
		logger.WithError(err).Error("failed to initialize audit log")
		os.Exit(1)
	}

	// Read-mostly queries go to a replica when one is configured;
	// Replica falls back to the primary otherwise
	reader := connMgr.Replica()

	tokenManager := auth.NewTokenManager(db)
	authz := policy.New()
	subscriptionsSvc := subscriptions.NewPostgresService(db, reader)
	gate := quota.NewGate(db, subscriptionsSvc)
	accountsSvc := accounts.NewPostgresService(db, reader, gate, tokenManager, authz)
	projectsSvc := projects.NewPostgresService(db, gate)

	authMW := middleware.NewAuthMiddleware(tokenManager)
	var rateLimitMW *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, time.Minute)
		rateLimitMW = middleware.NewRateLimitMiddleware(limiter, metrics)
	}

	server := api.NewServer(
		accountsSvc, projectsSvc, subscriptionsSvc,
		authz, auditLog, authMW, rateLimitMW,
		logger, metrics,
	)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener for probes and scraping
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Background maintenance
	scheduler := cron.New()
	scheduler.AddFunc("@hourly", func() {
		defer observability.RecoverPanic(logger, "subscription sweep")
		if n, err := subscriptionsSvc.DeactivateEnded(context.Background()); err != nil {
			logger.WithError(err).Error("subscription sweep failed")
		} else if n > 0 {
			logger.Infof("deactivated %d ended subscriptions", n)
		}
	})
	scheduler.AddFunc("@daily", func() {
		defer observability.RecoverPanic(logger, "token cleanup")
		if n, err := tokenManager.CleanupExpiredTokens(context.Background()); err != nil {
			logger.WithError(err).Error("token cleanup failed")
		} else if n > 0 {
			logger.Infof("deleted %d expired tokens", n)
		}
	})
	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	scheduler.AddFunc("@daily", func() {
		defer observability.RecoverPanic(logger, "audit retention sweep")
		if n, err := auditLog.DeleteOlderThan(context.Background(), retention); err != nil {
			logger.WithError(err).Error("audit retention sweep failed")
		} else if n > 0 {
			logger.Infof("pruned %d audit events", n)
		}
	})
	scheduler.AddFunc("@every 15s", func() {
		metrics.CollectDBStats(db.Stats())
	})
	scheduler.Start()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
			return nil
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return connMgr.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
	cancel()

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server error")
		os.Exit(1)
	}
}
