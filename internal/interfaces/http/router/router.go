// Package router wires the ledger HTTP handlers into a gin engine.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/travelops/backoffice/internal/infrastructure/logger"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
	"github.com/travelops/backoffice/internal/interfaces/http/handler"
	"github.com/travelops/backoffice/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefaultMaxBodySize caps request bodies when no limit is configured
const DefaultMaxBodySize int64 = 1 << 20

// Config carries everything the router needs
type Config struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	Meter          metric.Meter // nil disables HTTP metrics
	MaxBodySize    int64
	TrustedProxies []string

	Payments    *handler.PaymentHandler
	Allocations *handler.AllocationHandler
	Reports     *handler.ReportHandler
	Health      *handler.HealthHandler
}

// New builds the gin engine with the middleware chain and every ledger route
func New(cfg Config) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		logger.GinMiddleware(cfg.Logger),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(cfg.Meter, cfg.Logger),
		middleware.BodyLimit(maxBody),
	)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", cfg.Health.Health)

	v1 := engine.Group("/api/v1")
	{
		payments := v1.Group("/payments")
		payments.POST("", cfg.Payments.Create)
		payments.GET("/:id", cfg.Payments.Get)
		payments.PATCH("/:id", cfg.Payments.Update)
		payments.DELETE("/:id", cfg.Payments.Delete)
		payments.POST("/:id/allocate", cfg.Allocations.Allocate)
		payments.POST("/:id/refund", cfg.Payments.Refund)
		payments.GET("/:id/refunds", cfg.Payments.ListRefunds)
		payments.GET("/:id/allocations", cfg.Allocations.ListByPayment)

		pnrs := v1.Group("/pnrs")
		pnrs.GET("/:id/payments", cfg.Allocations.ListPNRPayments)
		pnrs.GET("/:id/ledger", cfg.Allocations.PNRLedger)

		v1.GET("/customers/:id/advance", cfg.Reports.CustomerAdvance)
		v1.GET("/reports/outstanding", cfg.Reports.Outstanding)
		v1.POST("/financial-years/:fy/close", cfg.Allocations.CloseFinancialYear)
	}

	return engine, nil
}
