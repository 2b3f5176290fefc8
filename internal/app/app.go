// Package app wires configuration, storage, locking, events and the HTTP API
// into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/commissiontier"
	"github.com/Ramsey-B/clover/internal/repositories/harmonised"
	"github.com/Ramsey-B/clover/internal/repositories/rawsale"
	"github.com/Ramsey-B/clover/internal/repositories/threshold"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/harmonisation"
	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/locks"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/reconciler"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

const (
	depTracing  = "tracing"
	depDatabase = "database"
	depMigrate  = "migrations"
	depRedis    = "redis"
	depKafka    = "kafka"
	depPipeline = "pipeline"
)

// App owns every long lived dependency. Fields are populated by Start.
type App struct {
	Config   *config.Config
	Logger   ectologger.Logger
	Registry *vendors.Registry

	DB           database.DB
	RawSales     *rawsale.Repository
	Ledger       *harmonised.Repository
	Tiers        *commissiontier.Repository
	Thresholds   *threshold.Repository
	Orchestrator *pipeline.Orchestrator
	Health       *health.Checker

	redis           *redis.Client
	producer        *kafka.Producer
	startup         *startup.Startup
	shutdownTracing func(context.Context) error
}

type Options struct {
	// Migrate applies the bundled schema on start regardless of config.
	Migrate bool
	// SkipPipeline stops after storage is ready, for commands that only migrate.
	SkipPipeline bool
}

func New(cfg *config.Config, logger ectologger.Logger) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: vendors.Default(),
		Health:   health.NewChecker(cfg.Version),
	}
}

// Start brings dependencies up in order, retrying the whole sequence with a
// fibonacci backoff.
func (a *App) Start(ctx context.Context, opts Options) error {
	cfg := a.Config
	a.startup = startup.NewStartup(a.Logger, cfg.StartupMaxAttempts)

	a.startup.AddDependency(startup.Func{
		Name:    depTracing,
		OnStart: a.startTracing,
		OnStop: func(ctx context.Context) error {
			return a.shutdownTracing(ctx)
		},
	})
	a.startup.AddDependency(startup.Func{
		Name:     depDatabase,
		Requires: []string{depTracing},
		OnStart:  a.startDatabase,
		OnStop: func(context.Context) error {
			return a.DB.Close()
		},
	})
	if opts.Migrate || cfg.DatabaseMigrateOnStart {
		a.startup.AddDependency(startup.Func{Name: depMigrate, Requires: []string{depDatabase}, OnStart: a.migrate})
	}
	if opts.SkipPipeline {
		return a.startup.Start(ctx)
	}

	pipelineRequires := []string{depDatabase}
	if opts.Migrate || cfg.DatabaseMigrateOnStart {
		pipelineRequires = append(pipelineRequires, depMigrate)
	}
	if cfg.RedisEnabled {
		a.startup.AddDependency(startup.Func{
			Name:    depRedis,
			OnStart: a.startRedis,
			OnStop: func(context.Context) error {
				return a.redis.Close()
			},
		})
		pipelineRequires = append(pipelineRequires, depRedis)
	}
	if cfg.KafkaEnabled {
		a.startup.AddDependency(startup.Func{
			Name: depKafka,
			OnStart: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, a.Logger)
				return nil
			},
			OnStop: func(context.Context) error {
				return a.producer.Close()
			},
		})
		pipelineRequires = append(pipelineRequires, depKafka)
	}
	a.startup.AddDependency(startup.Func{Name: depPipeline, Requires: pipelineRequires, OnStart: a.startPipeline})

	return a.startup.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	if a.startup == nil {
		return nil
	}
	return a.startup.Stop(ctx)
}

func (a *App) startTracing(ctx context.Context) error {
	cfg := a.Config
	var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}
	if cfg.TracingEnabled {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingEndpoint,
			Protocol: cfg.TracingProtocol,
			Insecure: cfg.TracingInsecure,
		})
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = otlp
	}
	a.shutdownTracing = tracing.Init(cfg.AppName, exporter)
	return nil
}

func (a *App) startDatabase(ctx context.Context) error {
	cfg := a.Config
	db, err := database.Connect(ctx, database.ConnectionConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		Path:            cfg.DatabasePath,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, a.Logger)
	if err != nil {
		return err
	}

	a.DB = db
	a.RawSales = rawsale.NewRepository(db, a.Logger)
	a.Ledger = harmonised.NewRepository(db, a.Logger)
	a.Tiers = commissiontier.NewRepository(db, a.Logger)
	a.Thresholds = threshold.NewRepository(db, a.Logger)
	a.Health.AddCheck(depDatabase, health.Database(db), true)
	return nil
}

func (a *App) migrate(_ context.Context) error {
	cfg := a.Config
	ms := database.NewMigrationService(a.Logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Run(a.DB)
}

func (a *App) startRedis(ctx context.Context) error {
	cfg := a.Config
	rdb, err := locks.NewRedisClient(ctx, locks.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.redis = rdb
	a.Health.AddCheck(depRedis, health.Redis(rdb), false)
	return nil
}

func (a *App) startPipeline(_ context.Context) error {
	cfg := a.Config

	var locker locks.Locker = locks.NewLocalLocker(cfg.LockWaitTimeout)
	if a.redis != nil {
		locker = locks.NewRedisLocker(a.redis, cfg.LockKeyPrefix, cfg.LockTTL, cfg.LockWaitTimeout, a.Logger)
	}

	var emitter *events.Emitter
	if a.producer != nil {
		emitter = events.NewEmitter(a.producer, a.Logger)
	}

	var publisher reconciler.Publisher
	if emitter != nil {
		publisher = emitter
	}

	a.Orchestrator = pipeline.NewOrchestrator(
		a.Registry,
		a.RawSales,
		harmonisation.NewService(a.RawSales, a.Tiers, a.Ledger, a.Logger),
		reconciler.NewReconciler(a.Thresholds, a.Ledger, publisher, a.Logger),
		locker,
		emitter,
		a.Logger,
	)
	a.Health.SetReady(true)
	return nil
}

// Server builds the echo instance serving the API. Start must have succeeded.
func (a *App) Server() (*echo.Echo, error) {
	cfg := a.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.Logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowOrigins}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.Logger))

	a.Health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		verifier, err := middleware.NewVerifier(context.Background(), cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to create oidc verifier: %w", err)
		}
		api.Use(middleware.Authentication(a.Logger, verifier))
	}
	a.registerRoutes(api)

	return e, nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains it.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	e, err := a.Server()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		a.Logger.WithField("port", cfg.Port).Info("HTTP server listening")
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Logger.Info("Shutting down HTTP server")
	return server.Shutdown(shutdownCtx)
}
