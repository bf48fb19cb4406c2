package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans; never in production
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm on db plus a callback that flags slow queries
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { markSlowQuery(tx, cfg.SlowQueryThresh) }

	cb := db.Callback()
	registrations := []struct {
		register func(string, func(*gorm.DB)) error
		name     string
		fn       func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create").Register, "ledger_timing:before_create", before},
		{cb.Query().Before("gorm:query").Register, "ledger_timing:before_query", before},
		{cb.Update().Before("gorm:update").Register, "ledger_timing:before_update", before},
		{cb.Raw().Before("gorm:raw").Register, "ledger_timing:before_raw", before},
		{cb.Row().Before("gorm:row").Register, "ledger_timing:before_row", before},
		{cb.Create().After("gorm:create").Register, "ledger_timing:after_create", after},
		{cb.Query().After("gorm:query").Register, "ledger_timing:after_query", after},
		{cb.Update().After("gorm:update").Register, "ledger_timing:after_update", after},
		{cb.Raw().After("gorm:raw").Register, "ledger_timing:after_raw", after},
		{cb.Row().After("gorm:row").Register, "ledger_timing:after_row", after},
	}
	for _, r := range registrations {
		if err := r.register(r.name, r.fn); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markSlowQuery(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		RecordError(span, tx.Error)
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
