// Package stream provides the push-based event stream primitive that
// signalflow sources and stores are built on.
//
// A Stream delivers every emitted value synchronously to its subscribers, in
// subscription order, before Emit returns. There is no buffering and no
// background goroutine: a slow subscriber slows the emitter.
//
// Two variants exist:
//   - stateless (New): subscribers only see values emitted after they subscribed
//   - stateful (NewStateful): the stream holds its last value and replays it to
//     each new subscriber immediately on Subscribe
//
// Design Influences:
//   - RxJS Subject / BehaviorSubject
package stream

import (
	"sync"
	"sync/atomic"
)

// Observable is the read-only side of a stream.
type Observable[V any] interface {
	// Subscribe registers fn to receive values. The returned Subscription
	// stops delivery when unsubscribed.
	Subscribe(fn func(V)) Subscription
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes the subscription. Safe to call more than once.
	Unsubscribe()

	// Pause temporarily stops delivery. Values emitted while paused are
	// dropped, not queued.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// Stream is a synchronous multi-subscriber stream of V.
//
// Stream is safe for concurrent use. Values emitted from different goroutines
// are each delivered in full, but their relative order is whatever order the
// emitters reach the stream in.
type Stream[V any] struct {
	mu       sync.Mutex
	subs     []*subscription[V]
	stateful bool
	hasValue bool
	last     V
}

// New creates a stateless stream.
func New[V any]() *Stream[V] {
	return &Stream[V]{}
}

// NewStateful creates a stream that holds start as its current value and
// replays the latest value to every new subscriber.
func NewStateful[V any](start V) *Stream[V] {
	return &Stream[V]{
		stateful: true,
		hasValue: true,
		last:     start,
	}
}

// Emit pushes v to all current subscribers.
func (s *Stream[V]) Emit(v V) {
	s.mu.Lock()
	if s.stateful {
		s.last = v
		s.hasValue = true
	}
	subs := make([]*subscription[V], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	// Delivery happens outside the lock so subscribers may emit again.
	for _, sub := range subs {
		sub.deliver(v)
	}
}

// Subscribe registers fn. On a stateful stream fn receives the current value
// before Subscribe returns, and before any value emitted after it; those are
// held until the replay call returns.
func (s *Stream[V]) Subscribe(fn func(V)) Subscription {
	sub := &subscription[V]{fn: fn, stream: s}
	sub.active.Store(true)

	s.mu.Lock()
	replay, ok := s.last, s.hasValue
	sub.replaying = ok
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	if ok {
		sub.replay(replay)
	}
	return sub
}

// Value returns the current value of a stateful stream. The boolean is false
// for a stateless stream.
func (s *Stream[V]) Value() (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasValue
}

// Stateful reports whether the stream replays its last value.
func (s *Stream[V]) Stateful() bool {
	return s.stateful
}

// Len returns the number of active subscriptions.
func (s *Stream[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ReadOnly hides Emit from callers that should only observe.
func (s *Stream[V]) ReadOnly() Observable[V] {
	return readOnly[V]{s}
}

func (s *Stream[V]) remove(target *subscription[V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == target {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

type readOnly[V any] struct {
	s *Stream[V]
}

func (r readOnly[V]) Subscribe(fn func(V)) Subscription {
	return r.s.Subscribe(fn)
}

// subscription is the Stream's Subscription implementation.
type subscription[V any] struct {
	fn     func(V)
	stream *Stream[V]
	active atomic.Bool
	paused atomic.Bool

	mu        sync.Mutex
	replaying bool
	held      []V
}

func (s *subscription[V]) deliver(v V) {
	s.mu.Lock()
	if s.replaying {
		s.held = append(s.held, v)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.call(v)
}

func (s *subscription[V]) call(v V) {
	if !s.active.Load() || s.paused.Load() {
		return
	}
	s.fn(v)
}

// replay delivers the stream's value at subscribe time, then whatever was
// emitted meanwhile, in emission order.
func (s *subscription[V]) replay(v V) {
	defer func() {
		s.mu.Lock()
		s.replaying = false
		s.held = nil
		s.mu.Unlock()
	}()

	s.call(v)
	for {
		s.mu.Lock()
		held := s.held
		s.held = nil
		if len(held) == 0 {
			s.replaying = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		for _, h := range held {
			s.call(h)
		}
	}
}

// Unsubscribe removes the subscription.
func (s *subscription[V]) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.stream.remove(s)
}

// Pause temporarily stops delivery.
func (s *subscription[V]) Pause() {
	s.paused.Store(true)
}

// Resume continues delivery after pause.
func (s *subscription[V]) Resume() {
	s.paused.Store(false)
}

// IsPaused returns true if the subscription is paused.
func (s *subscription[V]) IsPaused() bool {
	return s.paused.Load()
}
