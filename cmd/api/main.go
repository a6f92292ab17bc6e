// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/templates/pos-backend/internal/catalog"
	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/health"
	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
	"github.com/carterperez-dev/templates/pos-backend/internal/metrics"
	"github.com/carterperez-dev/templates/pos-backend/internal/middleware"
	"github.com/carterperez-dev/templates/pos-backend/internal/ops"
	"github.com/carterperez-dev/templates/pos-backend/internal/scoped"
	"github.com/carterperez-dev/templates/pos-backend/internal/server"
	"github.com/carterperez-dev/templates/pos-backend/internal/tenant"
	"github.com/carterperez-dev/templates/pos-backend/migrations"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"driver", db.Dialect.Driver,
		"max_open_conns", cfg.Database.MaxOpenConns,
	)

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.Dialect.Driver, cfg.Database.URL, db.DB, logger); err != nil {
			return err
		}
		logger.Info("database schema up to date")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redis != nil {
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	} else {
		logger.Info("redis not configured, using in-process cache and rate limits")
	}

	verifier, err := identity.NewVerifier(ctx, cfg.Identity)
	if err != nil {
		return err
	}
	if cfg.Identity.Offline {
		logger.Warn("identity provider offline, trusting identity header",
			"header", identity.IdentityHeader,
		)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	policy, err := scoped.PolicyFromConfig(cfg.Scoped)
	if err != nil {
		return err
	}

	store := identity.NewMetadataStore(cfg.Identity)
	cache := identity.NewTenantCache(redis, cfg.Identity.CacheTTL)

	links := identity.NewLinkRepository(db)
	linker := identity.NewLinker(identity.LinkerConfig{
		Links:       links,
		Store:       store,
		Cache:       cache,
		MetadataKey: cfg.Identity.MetadataKey,
		Retry:       identity.RetryFromConfig(cfg.Provisioning),
		Metrics:     m,
		Logger:      logger,
	})

	tenantRepo := tenant.NewRepository(db)
	resolver := identity.NewResolver(identity.ResolverConfig{
		Store:       store,
		Cache:       cache,
		Users:       tenantRepo,
		Linker:      linker,
		MetadataKey: cfg.Identity.MetadataKey,
		Logger:      logger,
	})

	validate := core.NewValidator()

	cat := catalog.New(db, scoped.ServiceConfig{
		Resolver:  resolver,
		Validator: validate,
		Policy:    policy,
		Metrics:   m,
	})

	tenantSvc := tenant.NewService(tenant.ServiceConfig{
		DB:           db,
		Repository:   tenantRepo,
		Seeder:       cat,
		Linker:       linker,
		Validator:    validate,
		Provisioning: cfg.Provisioning,
		Metrics:      m,
		Logger:       logger,
	})
	tenantHandler := tenant.NewHandler(tenantSvc, resolver)

	reconciler := identity.NewReconciler(identity.ReconcilerConfig{
		Links:     links,
		Linker:    linker,
		Interval:  cfg.Provisioning.ReconcileInterval,
		BatchSize: cfg.Provisioning.ReconcileBatchSize,
		Metrics:   m,
		Logger:    logger,
	})

	checks := []health.Check{
		{Name: "database", Checker: db},
		{Name: "schema", Checker: health.Schema(db.DB, "tenants", "users", "identity_links")},
	}
	if redis != nil {
		checks = append(checks, health.Check{Name: "redis", Checker: redis, Optional: true})
	}
	healthHandler := health.NewHandler(checks...)

	opsHandler := ops.NewHandler(ops.HandlerConfig{
		DBStats:    db.Stats,
		DBPing:     db.Ping,
		RedisStats: redisStats(redis),
		RedisPing:  redisPing(redis),
		Tenants:    tenantRepo,
		Links:      links,
		Linker:     linker,
		Reconciler: reconciler,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	rdb := redisClient(redis)

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(m))
	router.Use(
		middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	opsHandler.RegisterRoutes(router, middleware.RequireOperatorKey(cfg.Ops.APIKey))

	if m != nil {
		router.Method(http.MethodGet, cfg.Metrics.Path, m.Handler())
	}

	authenticator := middleware.Authenticator(verifier)

	router.Route("/v1", func(r chi.Router) {
		tenantHandler.RegisterRoutes(r, authenticator)
		cat.RegisterRoutes(r, authenticator)
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error {
		return reconciler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
		)
		defer cancel()

		return srv.Shutdown(shutdownCtx, drainDelay)
	})

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("server error", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(closeCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return runErr
}

func redisClient(r *core.Redis) *goredis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

// redisStats and redisPing return nil without redis so the ops handler
// reports it as disabled.
func redisStats(r *core.Redis) func() *goredis.PoolStats {
	if r == nil {
		return nil
	}
	return r.PoolStats
}

func redisPing(r *core.Redis) func(context.Context) error {
	if r == nil {
		return nil
	}
	return r.Ping
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
