package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/warden/pkg/access"
	"github.com/platinummonkey/warden/pkg/api"
	"github.com/platinummonkey/warden/pkg/apps"
	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/config"
	"github.com/platinummonkey/warden/pkg/features"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, nil).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.ShutdownOTel(context.Background(), providers, logger); err != nil {
			logger.WithError(err).Warn("OpenTelemetry shutdown incomplete")
		}
	}()

	db, err := sql.Open("postgres", cfg.Storage.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Storage.PostgresMaxConns)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("Connected to PostgreSQL")

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisURL,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable; membership cache runs in-process only")
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	roleRegistry := roles.NewRegistry()
	if cfg.Authz.RolesFile != "" {
		if err := roleRegistry.LoadFile(cfg.Authz.RolesFile); err != nil {
			return err
		}
		logger.Infof("Loaded role definitions from %s", cfg.Authz.RolesFile)
	}

	store := orgs.NewPostgresStore(db)
	var members orgs.MembershipStore = store
	if cfg.Storage.CacheEnabled {
		cached, err := orgs.NewCachedMembershipStore(store, redisClient, cfg.Storage.L1CacheSize, cfg.Storage.CacheTTL, metrics)
		if err != nil {
			return err
		}
		members = cached
	}

	teamRolesOrgs, err := cfg.Authz.TeamRolesFeature()
	if err != nil {
		return err
	}
	var gate features.Gate
	if teamRolesOrgs != nil {
		gate = features.NewStaticGate(map[string][]int64{features.TeamRoles: teamRolesOrgs})
	}

	resolver, err := access.NewResolver(access.Config{
		Members:       members,
		AuthState:     auth.NewPostgresStateService(db),
		Installations: apps.NewPostgresInstallationStore(db),
		Features:      gate,
		Registry:      roleRegistry,
		Elevation:     auth.ElevationPolicy{SuperuserScopes: cfg.Authz.SuperuserScopes},
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	var trail audit.Trail = audit.NopTrail{}
	if cfg.Authz.AuditLogPath != "" {
		auditFile, err := os.OpenFile(cfg.Authz.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer auditFile.Close()
		trail = audit.NewLogrusTrail(auditFile)
	}

	mw := middleware.NewAccessMiddleware(resolver, store, trail, logger, metrics)
	server := api.NewServer(store, mw, logger, metrics)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	healthMux.HandleFunc("/healthz", checker.Liveness)
	healthMux.HandleFunc("/readyz", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("Access API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.Infof("Health endpoints listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.Authz.RolesFile != "" {
		group.Go(func() error {
			return roleRegistry.Watch(ctx, cfg.Authz.RolesFile, logger)
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown incomplete")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Health server shutdown incomplete")
		}
		return nil
	})

	return group.Wait()
}
