package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordReduction does nothing.
func (NoopMetrics) RecordReduction(_ context.Context, _ string, _ time.Duration) {}

// RecordEffectRun does nothing.
func (NoopMetrics) RecordEffectRun(_ context.Context, _, _ string, _ time.Duration, _ error) {}

// RecordEffectCancellation does nothing.
func (NoopMetrics) RecordEffectCancellation(_ context.Context, _, _ string) {}

// RecordHistoryOp does nothing.
func (NoopMetrics) RecordHistoryOp(_ context.Context, _, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartEffectSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartEffectSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
