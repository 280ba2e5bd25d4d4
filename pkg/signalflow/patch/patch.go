// Package patch is the structural-diff utility behind store history.
//
// Diff compares two snapshots and produces a forward patch (old to new) and
// its inverse (new to old). Apply replays either one onto a snapshot. The
// value part of a snapshot is diffed through its JSON encoding as RFC 6902
// operations; the error slot travels beside the operations as an explicit
// before/after pair, since errors have no faithful JSON form.
//
// Consequences of the JSON route:
//   - only exported, JSON-visible fields take part in history
//   - numbers pass through float64 while diffing, so integers beyond 2^53
//     lose precision
package patch

import (
	"encoding/json"
	"fmt"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// Snapshot is the unit patches are computed over: a value plus an error slot.
type Snapshot[T any] struct {
	Value T
	Error error
}

// ErrorChange records the error slot after a change. Set is false when the
// change did not touch the error slot.
type ErrorChange struct {
	Set   bool
	Value error
}

// Patch is one direction of a change between two snapshots.
// The zero Patch is empty and applies as a no-op.
type Patch struct {
	Ops   jsondiff.Patch
	Error ErrorChange
}

// IsEmpty reports whether applying p would change nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Ops) == 0 && !p.Error.Set
}

// String renders the operations as a JSON array, followed by the error
// change when there is one.
func (p Patch) String() string {
	ops := "[]"
	if len(p.Ops) > 0 {
		if b, err := json.Marshal(p.Ops); err == nil {
			ops = string(b)
		}
	}
	if !p.Error.Set {
		return ops
	}
	return fmt.Sprintf("%s error=%v", ops, p.Error.Value)
}

// Diff computes the forward and inverse patches between prev and next.
func Diff[T any](prev, next Snapshot[T]) (forward, inverse Patch, err error) {
	before, err := json.Marshal(prev.Value)
	if err != nil {
		return Patch{}, Patch{}, fmt.Errorf("encode previous state: %w", err)
	}
	after, err := json.Marshal(next.Value)
	if err != nil {
		return Patch{}, Patch{}, fmt.Errorf("encode next state: %w", err)
	}

	forward.Ops, err = jsondiff.CompareJSON(before, after)
	if err != nil {
		return Patch{}, Patch{}, fmt.Errorf("diff forward: %w", err)
	}
	inverse.Ops, err = jsondiff.CompareJSON(after, before)
	if err != nil {
		return Patch{}, Patch{}, fmt.Errorf("diff inverse: %w", err)
	}

	if !sameError(prev.Error, next.Error) {
		forward.Error = ErrorChange{Set: true, Value: next.Error}
		inverse.Error = ErrorChange{Set: true, Value: prev.Error}
	}
	return forward, inverse, nil
}

// Apply returns s with p applied. s itself is not modified.
func Apply[T any](s Snapshot[T], p Patch) (Snapshot[T], error) {
	out := s
	if len(p.Ops) > 0 {
		doc, err := json.Marshal(s.Value)
		if err != nil {
			return s, fmt.Errorf("encode state: %w", err)
		}
		raw, err := json.Marshal(p.Ops)
		if err != nil {
			return s, fmt.Errorf("encode patch: %w", err)
		}
		ops, err := jsonpatch.DecodePatch(raw)
		if err != nil {
			return s, fmt.Errorf("decode patch: %w", err)
		}
		patched, err := ops.Apply(doc)
		if err != nil {
			return s, fmt.Errorf("apply patch: %w", err)
		}

		var v T
		if err := json.Unmarshal(patched, &v); err != nil {
			return s, fmt.Errorf("decode state: %w", err)
		}
		out.Value = v
	}
	if p.Error.Set {
		out.Error = p.Error.Value
	}
	return out, nil
}

// Check verifies that v survives a JSON round trip, which history needs.
func Check[T any](v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	var back T
	if err := json.Unmarshal(b, &back); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return nil
}

// sameError compares error identity without panicking on error types that
// are not comparable.
func sameError(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}
