package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	caseapp "github.com/scaregistry/backend/internal/application/casework"
	eventapp "github.com/scaregistry/backend/internal/application/event"
	identityapp "github.com/scaregistry/backend/internal/application/identity"
	"github.com/scaregistry/backend/internal/domain/policy"
	"github.com/scaregistry/backend/internal/infrastructure/auth"
	"github.com/scaregistry/backend/internal/infrastructure/cache"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"github.com/scaregistry/backend/internal/infrastructure/event"
	"github.com/scaregistry/backend/internal/infrastructure/logger"
	"github.com/scaregistry/backend/internal/infrastructure/metrics"
	"github.com/scaregistry/backend/internal/infrastructure/persistence"
	"github.com/scaregistry/backend/internal/infrastructure/scheduler"
	"github.com/scaregistry/backend/internal/infrastructure/storage"
	"github.com/scaregistry/backend/internal/infrastructure/telemetry"
	"github.com/scaregistry/backend/internal/interfaces/http/handler"
	"github.com/scaregistry/backend/internal/interfaces/http/middleware"
	"github.com/scaregistry/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() { _ = log.Sync() }()

	log.Info("Starting SCA registry",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	dbOpts := persistence.DefaultOptions(log)
	dbOpts.LogLevel = logger.GormLevel(cfg.Log.Level)
	dbOpts.Tracing = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == config.DriverSQLite {
		// postgres schemas come from cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	stores, err := cache.NewStoreFactory(cfg.Redis, cfg.Session.IdleTimeout,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize session stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("Error closing session stores", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()

	// Events
	serializer := event.NewEventSerializer()
	event.RegisterDomainEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	bus := event.NewInMemoryEventBus(log)

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB, publisher)
	caseRepo := persistence.NewGormCaseRepository(db.DB, publisher)

	// Authorization
	resolver := identityapp.NewResolver(userRepo, log, identityapp.WithOfflineBootstrap(cfg.Authorization.OfflineBootstrap))
	gate := policy.NewGate(policy.Config{
		IdleTimeout:          cfg.Session.IdleTimeout,
		SelfReviewPrevention: cfg.Authorization.SelfReviewPrevention,
	}, policy.DefaultRules())
	guard := identityapp.NewGuard(resolver, gate, stores.Activity, log, identityapp.WithDecisionRecorder(collector))

	// Casework
	var engineOpts []caseapp.EngineOption
	var presigner *storage.S3Presigner
	if cfg.Storage.Enabled {
		presigner, err = storage.NewS3Presigner(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		engineOpts = append(engineOpts, caseapp.WithPresigner(presigner))
	}
	snapshots := caseapp.NewSnapshotSync(caseRepo, userRepo, collector, log)
	engine := caseapp.NewEngine(caseRepo, guard, snapshots, collector, log, engineOpts...)
	userService := identityapp.NewUserService(userRepo, guard, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	refresh := caseapp.NewSnapshotRefreshHandler(caseRepo, collector, log)
	bus.Subscribe(event.NewIdempotentHandler(refresh, stores.Idempotency, log), refresh.EventTypes()...)

	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  time.Hour,
		}, collector, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	var (
		sched   *scheduler.Scheduler
		trigger *scheduler.IntervalTrigger
	)
	if cfg.Scheduler.Enabled {
		sweep := caseapp.NewExpirySweep(engine, caseRepo, cfg.Authorization.SystemPrincipal, collector, log)
		sched = scheduler.NewScheduler(scheduler.ConfigFrom(cfg.Scheduler), sweep, log)
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		trigger = scheduler.NewIntervalTrigger(cfg.Scheduler.ExpirySweepInterval, true, sched, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start expiry sweep trigger", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	health := handler.NewHealthHandler(cfg.App.Name, version).AddCheck("database", db.Ping)
	if client := stores.Client(); client != nil {
		health.AddCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}
	if presigner != nil {
		health.AddCheck("storage", presigner.Ping)
	}

	handlers := router.Handlers{
		Cases:   handler.NewCaseHandler(engine),
		Users:   handler.NewUserHandler(userService),
		Penalty: handler.NewPenaltyHandler(),
		Health:  health,
		Outbox:  handler.NewOutboxHandler(outboxService),
	}
	if trigger != nil {
		handlers.Sweep = handler.NewSweepHandler(trigger)
	}

	srv := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: router.NewEngine(router.EngineConfig{
			HTTP: cfg.HTTP,
			Tracing: middleware.TracingConfig{
				ServiceName: cfg.Telemetry.ServiceName,
				Enabled:     tp.Enabled(),
			},
			Tokens:  auth.NewJWTService(cfg.JWT),
			Actors:  guard,
			Metrics: collector,
			Logger:  log,
		}, handlers),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warn("Expiry sweep trigger did not stop cleanly", zap.Error(err))
		}
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox processor did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
