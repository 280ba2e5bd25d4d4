package signalflow

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/signalflow/pkg/signalflow/config"
	"github.com/randalmurphal/signalflow/pkg/signalflow/observability"
)

// Runner starts an effect task. The default runner starts one goroutine per
// task; Inline runs the task on the triggering goroutine.
type Runner func(task func())

// Inline is a Runner that runs each effect task synchronously, before the
// triggering Invoke returns. Useful in tests and for effects whose work is
// already non-blocking.
var Inline Runner = func(task func()) { task() }

func goroutine(task func()) { go task() }

// storeConfig holds configuration for a store.
type storeConfig struct {
	name          string
	withPatches   bool
	enableMapSet  bool
	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	spans         observability.SpanManager
	runner        Runner
	effectTimeout time.Duration
}

// defaultStoreConfig returns the default store configuration.
func defaultStoreConfig() storeConfig {
	return storeConfig{
		name:    "store",
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		runner:  goroutine,
	}
}

// Option configures a Store.
type Option func(*storeConfig)

// WithName sets the store name used in logs, metrics, and spans.
// Default: "store"
func WithName(name string) Option {
	return func(c *storeConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithPatches enables undo/redo history (the withPatches flag).
//
// Every reduction is diffed and the forward/inverse pair is recorded. The
// state must survive a JSON round trip; NewStore returns ErrNotSerializable
// otherwise.
//
// Undo and Redo rebuild the value from its JSON form. Unexported fields and
// fields tagged `json:"-"` come back as their zero value, and numbers held
// in fields of type any come back as float64.
func WithPatches() Option {
	return func(c *storeConfig) {
		c.withPatches = true
	}
}

// WithMapSet enables extended-container support (the enableMapSet flag).
// Without it, a state type containing maps is rejected by NewStore.
func WithMapSet() Option {
	return func(c *storeConfig) {
		c.enableMapSet = true
	}
}

// WithLogger sets the logger. It is enriched with store_id and store.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
//
// Example:
//
//	st, err := signalflow.NewStore(initial, signalflow.WithMetrics(true))
func WithMetrics(enabled bool) Option {
	return func(c *storeConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *storeConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables one OpenTelemetry span per effect run through the
// global tracer provider. The span's context is passed to the operation.
func WithTracing(enabled bool) Option {
	return func(c *storeConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSpanManager sets a custom span manager.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *storeConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// WithEffectRunner sets how effect tasks are started.
// Default: one goroutine per task.
func WithEffectRunner(r Runner) Option {
	return func(c *storeConfig) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithEffectTimeout bounds every effect run. A run that exceeds it fails
// with context.DeadlineExceeded, which lands in the error slot.
// Default: no timeout.
func WithEffectTimeout(d time.Duration) Option {
	return func(c *storeConfig) {
		if d > 0 {
			c.effectTimeout = d
		}
	}
}

// WithConfig applies store settings from a config.Config. Recognized keys:
//
//	name           string
//	withPatches    bool
//	enableMapSet   bool
//	metrics        bool
//	tracing        bool
//	effectTimeout  duration
//
// Missing keys leave the current setting alone, so WithConfig composes
// with the other options in argument order.
func WithConfig(cfg config.Config) Option {
	return func(c *storeConfig) {
		WithName(cfg.String("name", ""))(c)
		c.withPatches = cfg.Bool("withPatches", c.withPatches)
		c.enableMapSet = cfg.Bool("enableMapSet", c.enableMapSet)
		if cfg.Has("metrics") {
			WithMetrics(cfg.Bool("metrics", false))(c)
		}
		if cfg.Has("tracing") {
			WithTracing(cfg.Bool("tracing", false))(c)
		}
		WithEffectTimeout(cfg.Duration("effectTimeout", 0))(c)
	}
}
