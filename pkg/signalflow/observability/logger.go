// Package observability provides structured logging, metrics, and tracing
// for signalflow stores and effects.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds store context to a logger.
// Returns a new logger with store_id and store fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "a1b2c3", "todos")
//	enriched.Debug("reduced") // includes store_id, store
func EnrichLogger(logger *slog.Logger, storeID, name string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("store_id", storeID),
		slog.String("store", name),
	)
}

// LogReduce logs an applied reduction.
func LogReduce(logger *slog.Logger, durationMs float64, recorded bool) {
	if logger == nil {
		return
	}
	logger.Debug("reduction applied",
		slog.Float64("duration_ms", durationMs),
		slog.Bool("history", recorded),
	)
}

// LogEffectStart logs the launch of an effect operation.
func LogEffectStart(logger *slog.Logger, effectID string, generation uint64) {
	if logger == nil {
		return
	}
	logger.Debug("effect starting",
		slog.String("effect_id", effectID),
		slog.Uint64("generation", generation),
	)
}

// LogEffectSettled logs a successful settlement.
func LogEffectSettled(logger *slog.Logger, effectID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("effect settled",
		slog.String("effect_id", effectID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEffectError logs a failed settlement.
func LogEffectError(logger *slog.Logger, effectID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("effect failed",
		slog.String("effect_id", effectID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEffectStale logs a settlement dropped because a newer run replaced it.
func LogEffectStale(logger *slog.Logger, effectID string, generation uint64) {
	if logger == nil {
		return
	}
	logger.Debug("stale effect settlement dropped",
		slog.String("effect_id", effectID),
		slog.Uint64("generation", generation),
	)
}

// LogHistory logs an undo or redo.
func LogHistory(logger *slog.Logger, op string, cursor, length int) {
	if logger == nil {
		return
	}
	logger.Debug("history "+op+" applied",
		slog.String("operation", op),
		slog.Int("cursor", cursor),
		slog.Int("length", length),
	)
}

// LogHistoryError logs a history fault. The history is reset afterwards, so
// this is reported at error level.
func LogHistoryError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("history failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
