package signalflow

import "encoding/json"

// ErrorKey is the reserved name of the error slot in a state's JSON form.
const ErrorKey = "error"

// State is a snapshot of a store: the application value plus the reserved
// error slot. Error is nil when no error is pending.
//
// A State obtained from Read or a subscription is shared with other readers
// and must be treated as immutable. Reducers receive a deep copy instead.
type State[T any] struct {
	Value T
	Error error
}

// MarshalJSON encodes the snapshot as {"value": ..., "error": "..."}.
// The error slot is encoded as its message and omitted when nil.
func (s State[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Value T       `json:"value"`
		Error *string `json:"error,omitempty"`
	}{Value: s.Value}
	if s.Error != nil {
		msg := s.Error.Error()
		out.Error = &msg
	}
	return json.Marshal(out)
}
