package signalflow

import (
	"github.com/randalmurphal/signalflow/pkg/signalflow/stream"
)

// Source is a typed emitter bound to one store. Values pushed with Invoke
// reach every subscriber, in subscription order, before Invoke returns.
type Source[T, V any] struct {
	store *Store[T]
	s     *stream.Stream[V]
}

// SourceOf creates a source with no current value. Subscribers see only
// values invoked after they subscribe.
//
// Example:
//
//	inc := signalflow.SourceOf[int](st)
//	inc.Reduce(func(draft *Counter, n int) { draft.Count += n })
//	inc.Invoke(1)
func SourceOf[V, T any](st *Store[T]) *Source[T, V] {
	return &Source[T, V]{store: st, s: stream.New[V]()}
}

// SourceWith creates a source holding start as its current value. Every new
// subscriber, including reducers and effects attached later, receives the
// current value immediately.
func SourceWith[T, V any](st *Store[T], start V) *Source[T, V] {
	return &Source[T, V]{store: st, s: stream.NewStateful(start)}
}

// Invoke pushes v to all subscribers.
func (src *Source[T, V]) Invoke(v V) {
	src.s.Emit(v)
}

// Trigger pushes the zero value of V. It is a real emission, never a no-op.
func (src *Source[T, V]) Trigger() {
	var zero V
	src.s.Emit(zero)
}

// Subscribe registers fn for every emission.
func (src *Source[T, V]) Subscribe(fn func(V)) stream.Subscription {
	return src.s.Subscribe(fn)
}

// Stream returns the read-only stream of emissions.
func (src *Source[T, V]) Stream() stream.Observable[V] {
	return src.s.ReadOnly()
}

// Any returns the emissions as an Observable[any], for ReduceLatest and
// EffectLatest.
func (src *Source[T, V]) Any() stream.Observable[any] {
	return stream.Erase[V](src.s)
}

// Store returns the store the source is bound to.
func (src *Source[T, V]) Store() *Store[T] {
	return src.store
}

// Reduce attaches a direct reducer: every emission v runs one reduction
// calling fn(draft, v). Reducers are additive; each attached one runs on
// every emission. Unsubscribing the returned subscription detaches fn.
func (src *Source[T, V]) Reduce(fn func(draft *T, v V)) stream.Subscription {
	return src.s.Subscribe(func(v V) {
		src.store.Reduce(func(draft *T) { fn(draft, v) })
	})
}
