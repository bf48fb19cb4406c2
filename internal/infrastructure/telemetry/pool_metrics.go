package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// AttrPoolState labels db_pool_connections
var AttrPoolState = attribute.Key("state")

// PoolSnapshot is the subset of connection pool statistics exported as gauges.
type PoolSnapshot struct {
	Open      int
	InUse     int
	Idle      int
	WaitCount int64
}

// PoolStatsFunc reads the current pool statistics.
type PoolStatsFunc func() (PoolSnapshot, error)

// RegisterPoolMetrics exports connection pool gauges. Stats are read on
// every collection, so there is no background goroutine to stop.
func RegisterPoolMetrics(meter metric.Meter, stats PoolStatsFunc, logger *zap.Logger) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if stats == nil {
		return nil, errors.New("telemetry: pool stats func cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s, err := stats()
		if err != nil {
			logger.Warn("Failed to read connection pool stats", zap.Error(err))
			return nil
		}
		o.ObserveInt64(connections, int64(s.Open), metric.WithAttributes(AttrPoolState.String("open")))
		o.ObserveInt64(connections, int64(s.InUse), metric.WithAttributes(AttrPoolState.String("in_use")))
		o.ObserveInt64(connections, int64(s.Idle), metric.WithAttributes(AttrPoolState.String("idle")))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, connections, waits)
}
