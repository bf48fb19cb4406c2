// Package middleware provides the gin middleware of the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ActorHeader carries the acting user's id. Authentication happens upstream.
const ActorHeader = "X-User-ID"

// MaxRequestIDLength caps request IDs copied into span attributes
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing starts a server span per request through otelgin. The span name is
// the matched route, e.g. "/api/v1/payments/:id".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher adds ledger attributes to the span started by Tracing and
// records the response status on it. It must run after Tracing.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			if len(requestID) > MaxRequestIDLength {
				requestID = requestID[:MaxRequestIDLength]
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		// Only well-formed ids reach the trace
		if actor, err := uuid.Parse(c.GetHeader(ActorHeader)); err == nil {
			span.SetAttributes(attribute.String("actor_id", actor.String()))
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
