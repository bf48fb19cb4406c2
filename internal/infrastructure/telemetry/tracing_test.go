package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "create",
		telemetry.WithAttribute(telemetry.SpanAttrAmount, "1000"),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "payment.create", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "1000", spans[0].Attributes()[0].Value.AsString())
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "allocation.allocate")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLineCount, 3,
		42, "ignored",
		telemetry.SpanAttrFinancialYear, "2024-25",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, int64(3), attrs[0].Value.AsInt64())
	assert.Equal(t, "2024-25", attrs[1].Value.AsString())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "refund.issue")
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "boom", ended.Status().Description)
	assert.Len(t, ended.Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}
