package stream

import (
	"sync"
	"sync/atomic"
)

// Map returns an Observable that applies fn to every value of src.
func Map[A, B any](src Observable[A], fn func(A) B) Observable[B] {
	return mapped[A, B]{src: src, fn: fn}
}

// Erase converts a typed Observable into an Observable[any]. It is how
// streams of different element types join one CombineLatest.
func Erase[V any](src Observable[V]) Observable[any] {
	return Map(src, func(v V) any { return v })
}

type mapped[A, B any] struct {
	src Observable[A]
	fn  func(A) B
}

func (m mapped[A, B]) Subscribe(fn func(B)) Subscription {
	return m.src.Subscribe(func(a A) { fn(m.fn(a)) })
}

// Combined fans several inputs into one stream of their latest values.
// See CombineLatest.
type Combined struct {
	inputs []Observable[any]
}

// CombineLatest returns an Observable that, per subscriber, holds the latest
// value of every input in a slot. It emits nothing until every input has
// emitted at least once; from then on it emits once per emission of any
// input, carrying the latest value of all inputs in input order.
//
// Each Subscribe creates an independent fan-in coordinator. Inputs that are
// stateful streams replay during Subscribe, so a combination of stateful
// inputs can fire before Subscribe returns. With zero inputs it never emits.
func CombineLatest(inputs ...Observable[any]) *Combined {
	in := make([]Observable[any], len(inputs))
	copy(in, inputs)
	return &Combined{inputs: in}
}

// Len returns the number of inputs.
func (c *Combined) Len() int {
	return len(c.inputs)
}

// Subscribe registers fn to receive the latest values of all inputs. The
// slice passed to fn is a fresh copy owned by fn.
func (c *Combined) Subscribe(fn func([]any)) Subscription {
	co := &coordinator{
		fn:      fn,
		values:  make([]any, len(c.inputs)),
		emitted: make([]bool, len(c.inputs)),
	}
	co.active.Store(true)

	inner := make([]Subscription, 0, len(c.inputs))
	for i, input := range c.inputs {
		slot := i
		inner = append(inner, input.Subscribe(func(v any) { co.update(slot, v) }))
	}

	co.mu.Lock()
	co.inner = inner
	co.mu.Unlock()

	// fn may have unsubscribed while inputs were replaying.
	if !co.active.Load() {
		for _, sub := range inner {
			sub.Unsubscribe()
		}
	}
	return co
}

// coordinator holds one slot and one has-emitted flag per input.
type coordinator struct {
	mu      sync.Mutex
	fn      func([]any)
	values  []any
	emitted []bool
	ready   int
	inner   []Subscription
	active  atomic.Bool
	paused  atomic.Bool
}

func (co *coordinator) update(slot int, v any) {
	if !co.active.Load() {
		return
	}

	co.mu.Lock()
	co.values[slot] = v
	if !co.emitted[slot] {
		co.emitted[slot] = true
		co.ready++
	}
	if co.ready < len(co.values) {
		co.mu.Unlock()
		return
	}
	latest := make([]any, len(co.values))
	copy(latest, co.values)
	co.mu.Unlock()

	// Slots keep updating while paused; only delivery is suppressed.
	if co.paused.Load() {
		return
	}
	co.fn(latest)
}

// Unsubscribe detaches from every input.
func (co *coordinator) Unsubscribe() {
	if !co.active.CompareAndSwap(true, false) {
		return
	}
	co.mu.Lock()
	inner := co.inner
	co.inner = nil
	co.mu.Unlock()
	for _, sub := range inner {
		sub.Unsubscribe()
	}
}

// Pause temporarily stops delivery.
func (co *coordinator) Pause() {
	co.paused.Store(true)
}

// Resume continues delivery after pause.
func (co *coordinator) Resume() {
	co.paused.Store(false)
}

// IsPaused returns true if the subscription is paused.
func (co *coordinator) IsPaused() bool {
	return co.paused.Load()
}
