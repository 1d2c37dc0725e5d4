package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestStartServiceSpan(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartServiceSpan(context.Background(), "case_engine", "transition")
	SetAttributes(span, AttrEntity, "Registration", AttrCaseID, 42, 7, "skipped", "approved", true)
	RecordError(span, errors.New("conflict"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "case_engine.transition", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.ElementsMatch(t, []attribute.KeyValue{
		attribute.String(AttrEntity, "Registration"),
		attribute.Int(AttrCaseID, 42),
		attribute.Bool("approved", true),
	}, ended[0].Attributes())
}

func TestRecordError_NilIsNoop(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartServiceSpan(context.Background(), "case_engine", "get")
	RecordError(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, rec.Ended()[0].Status().Code)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}
