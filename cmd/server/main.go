// Command server runs the payment and allocation ledger API.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/cache"
	"github.com/travelops/backoffice/internal/infrastructure/config"
	"github.com/travelops/backoffice/internal/infrastructure/logger"
	"github.com/travelops/backoffice/internal/infrastructure/persistence"
	"github.com/travelops/backoffice/internal/infrastructure/scheduler"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"github.com/travelops/backoffice/internal/interfaces/http/handler"
	"github.com/travelops/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting travel back office ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Profiling.Enabled,
		ServerAddress:        cfg.Profiling.ServerAddress,
		ApplicationName:      cfg.Profiling.ApplicationName,
		MutexProfileFraction: cfg.Profiling.MutexProfileFraction,
		BlockProfileRate:     cfg.Profiling.BlockProfileRate,
	}, tracerProvider, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	err = telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	var advanceCache appledger.AdvanceCache
	if cfg.Ledger.AdvanceCacheEnabled {
		advanceCache, err = cache.NewAdvanceCacheFactory(cfg.Redis, cfg.Ledger.AdvanceCacheTTL, cache.WithLogger(log)).Create()
		if err != nil {
			log.Fatal("Failed to create advance cache", zap.Error(err))
		}
		if closer, ok := advanceCache.(io.Closer); ok {
			defer func() {
				_ = closer.Close()
			}()
		}
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	poolMetrics, err := telemetry.RegisterPoolMetrics(meterProvider.Meter("db"), func() (telemetry.PoolSnapshot, error) {
		stats, err := db.Stats()
		if err != nil {
			return telemetry.PoolSnapshot{}, err
		}
		return telemetry.PoolSnapshot{
			Open:      stats.OpenConnections,
			InUse:     stats.InUse,
			Idle:      stats.Idle,
			WaitCount: stats.WaitCount,
		}, nil
	}, log)
	if err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}
	defer func() {
		_ = poolMetrics.Unregister()
	}()
	opts := []appledger.Option{appledger.WithLogger(log), appledger.WithMetrics(ledgerMetrics)}

	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, persistence.WithLockTimeout(cfg.Ledger.LockTimeout))

	vouchers := appledger.NewVoucherSequencer(opts...)
	store := appledger.NewLedgerStore(repos, opts...)
	advances := appledger.NewAdvanceTracker(repos, advanceCache, opts...)
	allocations := appledger.NewAllocationService(scope, repos, store, advances, opts...)
	payments := appledger.NewPaymentService(scope, repos, vouchers, store, allocations, advances, opts...)
	reports := appledger.NewReportService(repos, opts...)

	var reconcileScheduler *scheduler.Scheduler
	var reconcileTrigger *scheduler.CronTrigger
	if cfg.Ledger.ReconcileEnabled {
		hour, minute, err := scheduler.ParseCronSchedule(cfg.Ledger.ReconcileSchedule)
		if err != nil {
			log.Fatal("Invalid reconciliation schedule", zap.Error(err))
		}
		schedCfg := scheduler.DefaultConfig()
		schedCfg.RetryAttempts = cfg.Ledger.ReconcileRetries
		if err := schedCfg.Validate(); err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}

		reconciler := appledger.NewAdvanceReconciler(scope, repos, advances, opts...)
		reconcileScheduler = scheduler.NewScheduler(schedCfg, scheduler.NewReconcileExecutor(reconciler, log), log)
		if err := reconcileScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}

		triggerCfg := scheduler.DefaultCronTriggerConfig()
		triggerCfg.Hour, triggerCfg.Minute = hour, minute
		reconcileTrigger = scheduler.NewCronTrigger(triggerCfg, reconcileScheduler, log)
		if err := reconcileTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation trigger", zap.Error(err))
		}
	}

	engine, err := router.New(router.Config{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          meterProvider.Meter("http.server"),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Payments:       handler.NewPaymentHandler(payments),
		Allocations:    handler.NewAllocationHandler(allocations, store),
		Reports:        handler.NewReportHandler(reports, advances),
		Health:         handler.NewHealthHandler(db, cfg.App.Version),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if reconcileTrigger != nil {
		if err := reconcileTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Reconciliation trigger shutdown failed", zap.Error(err))
		}
		if err := reconcileScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Reconciliation scheduler shutdown failed", zap.Error(err))
		}
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}
}
