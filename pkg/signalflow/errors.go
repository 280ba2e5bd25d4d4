package signalflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for store construction.
var (
	// ErrMapSetDisabled indicates the state type contains a map while
	// extended-container support (enableMapSet) is off.
	ErrMapSetDisabled = errors.New("state contains map containers but enableMapSet is off")

	// ErrNotSerializable indicates history was requested for a state that
	// does not survive a JSON round trip.
	ErrNotSerializable = errors.New("state is not serializable for history")
)

// Sentinel errors for history.
var (
	// ErrHistoryDisabled indicates an undo or redo on a store created
	// without withPatches.
	ErrHistoryDisabled = errors.New("history not enabled")
)

// HistoryError wraps a failure while recording or applying history.
// The store logs it and resets the history.
type HistoryError struct {
	// Op is the operation that failed ("diff", "undo", "redo").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HistoryError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HistoryError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside an effect operation or its
// result reducer. It is written to the store's error slot like any other
// effect failure.
type PanicError struct {
	// EffectID is the effect whose run panicked.
	EffectID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("effect %s panicked: %v", e.EffectID, e.Value)
}
