package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	allocationapp "github.com/pharmaerp/receivables/internal/application/allocation"
	settingsapp "github.com/pharmaerp/receivables/internal/application/settings"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/pharmaerp/receivables/internal/infrastructure/cache"
	"github.com/pharmaerp/receivables/internal/infrastructure/config"
	"github.com/pharmaerp/receivables/internal/infrastructure/event"
	"github.com/pharmaerp/receivables/internal/infrastructure/jobs"
	"github.com/pharmaerp/receivables/internal/infrastructure/logger"
	"github.com/pharmaerp/receivables/internal/infrastructure/migration"
	"github.com/pharmaerp/receivables/internal/infrastructure/persistence"
	"github.com/pharmaerp/receivables/internal/infrastructure/storage"
	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"github.com/pharmaerp/receivables/internal/interfaces/http/handler"
	"github.com/pharmaerp/receivables/internal/interfaces/http/middleware"
	"github.com/pharmaerp/receivables/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             cfg.Telemetry.LogsLevel,
	}, baseLog)
	if err != nil {
		return err
	}
	log := logProvider.Attach(baseLog)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting receivables",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		return err
	}
	if cfg.Profiling.SpanProfiles && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Warn("Failed to stop profiler", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down log provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.ParseGormLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver()))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:             cfg.Database.DBName,
		IncludeVariables:   cfg.Telemetry.DBTraceVariables,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThreshold,
	}, log); err != nil {
		return err
	}

	if err := migrate(db, cfg.Database, log); err != nil {
		return err
	}

	// Shared state
	stores, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStores(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("Error closing stores", zap.Error(err))
		}
	}()

	archive, err := newReceiptArchive(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	defaults, err := settingsDefaults(cfg.Allocation)
	if err != nil {
		return err
	}

	allocationMetrics, err := telemetry.NewAllocationMetrics(meterProvider.Meter("receivables/allocation"))
	if err != nil {
		return err
	}

	// Services
	ledger := persistence.NewGormInvoiceLedger(db.DB)
	payments := persistence.NewGormPaymentRepository(db.DB)
	eventBus := event.NewInMemoryEventBus(log)

	allocationService := allocationapp.NewService(ledger, payments,
		allocationapp.WithLogger(log),
		allocationapp.WithMetrics(allocationMetrics),
		allocationapp.WithEventPublisher(eventBus),
		allocationapp.WithSubmissionGuard(stores.Guard, cfg.Allocation.IdempotencyTTL),
		allocationapp.WithSettings(stores.Settings, defaults),
		allocationapp.WithReceiptArchive(archive, cfg.Storage.PresignExpiry),
	)
	settingsService := settingsapp.NewService(stores.Settings, defaults, log)
	archiver := allocationapp.NewReceiptArchiver(payments, archive, log)

	g, gctx := errgroup.WithContext(ctx)

	var enqueuer allocationapp.ReceiptTaskEnqueuer
	if cfg.Jobs.Enabled && stores.Redis != nil {
		jobsClient := jobs.NewClientFromRedis(stores.Redis, cfg.Jobs)
		defer func() {
			_ = jobsClient.Close()
		}()
		enqueuer = jobsClient

		worker := jobs.NewWorkerFromRedis(stores.Redis, jobs.WorkerConfig{
			Jobs:     cfg.Jobs,
			Archiver: archiver,
			Logger:   log,
		})
		g.Go(func() error {
			log.Info("Receipt worker starting", zap.String("queue", cfg.Jobs.Queue))
			return worker.Run(gctx)
		})
	} else if cfg.Jobs.Enabled {
		log.Warn("Jobs enabled but Redis is unavailable, archiving receipts inline")
	}

	eventBus.Subscribe(allocationapp.NewAuditLogHandler(log))
	eventBus.Subscribe(allocationapp.NewReceiptArchiveHandler(archiver, enqueuer, cfg.Allocation.ReceiptSyncFallback, log))
	if err := eventBus.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = eventBus.Stop(context.Background())
	}()

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.SpanErrorMarker(),
	)
	if cfg.HTTP.SecurityHeaders {
		secCfg := middleware.DefaultSecurityConfig()
		secCfg.IsDevelopment = !cfg.App.IsProduction()
		engine.Use(middleware.SecureWithConfig(secCfg))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Logger:        log,
		}),
	)

	apiMiddleware := []gin.HandlerFunc{
		middleware.Tenant(middleware.DefaultTenantConfig()),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   profiler.IsEnabled(),
			SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
		}),
	}
	if cfg.HTTP.RateLimitEnabled {
		// After Tenant so the limiter key carries the tenant.
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.HTTP.RateLimitRequests,
			Window:   cfg.HTTP.RateLimitWindow,
		}))
	}

	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if stores.Redis != nil {
		redisClient := stores.Redis
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	r := router.NewRouter(engine, router.WithAPIMiddleware(apiMiddleware...))
	router.RegisterReceivables(engine, r, router.Handlers{
		Ledger:     handler.NewLedgerHandler(allocationService),
		Allocation: handler.NewAllocationHandler(allocationService),
		Payment:    handler.NewPaymentHandler(allocationService),
		Settings:   handler.NewSettingsHandler(settingsService),
		System:     handler.NewSystemHandler(version, checks...),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// migrate prepares the schema. SQLite is built from the GORM models; Postgres
// runs the embedded migrations when auto_migrate is set.
func migrate(db *persistence.Database, cfg config.DatabaseConfig, log *zap.Logger) error {
	if db.Driver() == persistence.DriverSQLite {
		return db.AutoMigrate()
	}
	if !cfg.AutoMigrate {
		return nil
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// newReceiptArchive returns the S3 archive when storage is enabled and an
// in-memory one otherwise.
func newReceiptArchive(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (allocation.ReceiptArchive, error) {
	if !cfg.Enabled {
		log.Info("Receipt storage disabled, keeping receipts in memory")
		return storage.NewMemoryReceiptArchive(), nil
	}

	archive, err := storage.NewS3ReceiptArchive(ctx, &cfg,
		storage.WithLogger(log),
		storage.WithPresignExpiry(cfg.PresignExpiry),
	)
	if err != nil {
		return nil, err
	}
	if cfg.CreateBucket {
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	log.Info("Receipt storage ready", zap.String("bucket", archive.Bucket()))
	return archive, nil
}

func settingsDefaults(cfg config.AllocationConfig) (settings.Settings, error) {
	defaults := settings.Defaults()
	currency, err := valueobject.ParseCurrency(cfg.DefaultCurrency)
	if err != nil {
		return defaults, fmt.Errorf("allocation.default_currency: %w", err)
	}
	defaults.Currency = currency
	defaults.AutoAllocate = cfg.AutoAllocate
	if cfg.DefaultLocale != "" {
		defaults.Locale = cfg.DefaultLocale
	}
	return defaults, nil
}
