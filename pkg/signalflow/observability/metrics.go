package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records signalflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordReduction records one applied reduction.
	RecordReduction(ctx context.Context, store string, duration time.Duration)

	// RecordEffectRun records a settled effect run with its duration and error status.
	RecordEffectRun(ctx context.Context, store, effectID string, duration time.Duration, err error)

	// RecordEffectCancellation records a run whose settlement was dropped.
	RecordEffectCancellation(ctx context.Context, store, effectID string)

	// RecordHistoryOp records an undo or redo.
	RecordHistoryOp(ctx context.Context, store, op string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	reductions          metric.Int64Counter
	reduceLatency       metric.Float64Histogram
	effectRuns          metric.Int64Counter
	effectLatency       metric.Float64Histogram
	effectErrors        metric.Int64Counter
	effectCancellations metric.Int64Counter
	historyOps          metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("signalflow")

	reductions, err := meter.Int64Counter("signalflow.store.reductions",
		metric.WithDescription("Number of applied reductions"),
	)
	if err != nil {
		return nil, err
	}

	reduceLatency, err := meter.Float64Histogram("signalflow.store.reduce_latency_ms",
		metric.WithDescription("Reduction latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	effectRuns, err := meter.Int64Counter("signalflow.effect.runs",
		metric.WithDescription("Number of settled effect runs"),
	)
	if err != nil {
		return nil, err
	}

	effectLatency, err := meter.Float64Histogram("signalflow.effect.latency_ms",
		metric.WithDescription("Effect operation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	effectErrors, err := meter.Int64Counter("signalflow.effect.errors",
		metric.WithDescription("Number of failed effect runs"),
	)
	if err != nil {
		return nil, err
	}

	effectCancellations, err := meter.Int64Counter("signalflow.effect.cancellations",
		metric.WithDescription("Number of effect runs replaced before settling"),
	)
	if err != nil {
		return nil, err
	}

	historyOps, err := meter.Int64Counter("signalflow.history.ops",
		metric.WithDescription("Number of undo and redo operations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		reductions:          reductions,
		reduceLatency:       reduceLatency,
		effectRuns:          effectRuns,
		effectLatency:       effectLatency,
		effectErrors:        effectErrors,
		effectCancellations: effectCancellations,
		historyOps:          historyOps,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordReduction records a reduction.
func (m *otelMetrics) RecordReduction(ctx context.Context, store string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("store", store))
	m.reductions.Add(ctx, 1, attrs)
	m.reduceLatency.Record(ctx, ms(duration), attrs)
}

// RecordEffectRun records a settled effect run.
func (m *otelMetrics) RecordEffectRun(ctx context.Context, store, effectID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("effect_id", effectID),
	)

	m.effectRuns.Add(ctx, 1, attrs)
	m.effectLatency.Record(ctx, ms(duration), attrs)

	if err != nil {
		m.effectErrors.Add(ctx, 1, attrs)
	}
}

// RecordEffectCancellation records a dropped settlement.
func (m *otelMetrics) RecordEffectCancellation(ctx context.Context, store, effectID string) {
	m.effectCancellations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("effect_id", effectID),
	))
}

// RecordHistoryOp records an undo or redo.
func (m *otelMetrics) RecordHistoryOp(ctx context.Context, store, op string) {
	m.historyOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("operation", op),
	))
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
