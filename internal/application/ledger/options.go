package ledger

import (
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// serviceConfig carries the ambient collaborators shared by the ledger services
type serviceConfig struct {
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// Option configures a ledger service
type Option func(*serviceConfig)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the ledger metrics; nil disables recording
func WithMetrics(metrics *telemetry.LedgerMetrics) Option {
	return func(c *serviceConfig) {
		c.metrics = metrics
	}
}

func newServiceConfig(name string, opts []Option) serviceConfig {
	c := serviceConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.Named(name)
	return c
}

// endSpan records err on span, if any, and ends it
func endSpan(span trace.Span, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
		if code := shared.ErrorCode(err); code != "" {
			telemetry.SetAttribute(span, telemetry.SpanAttrErrorCode, code)
		}
	}
	span.End()
}
