package signalflow

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	clone "github.com/huandu/go-clone/generic"

	"github.com/randalmurphal/signalflow/pkg/signalflow/history"
	"github.com/randalmurphal/signalflow/pkg/signalflow/observability"
	"github.com/randalmurphal/signalflow/pkg/signalflow/patch"
	"github.com/randalmurphal/signalflow/pkg/signalflow/registry"
	"github.com/randalmurphal/signalflow/pkg/signalflow/stream"
)

// Store owns one state value and is the only place it changes.
//
// Reads are lock-free. Reductions are serialized: each one deep-copies the
// current value into a draft, runs the reducer on the draft, swaps the
// result in as the new snapshot, and records history, all under one lock.
// Subscribers are notified after the lock is released, so a subscriber may
// reduce again.
//
// A Store is safe for concurrent use.
type Store[T any] struct {
	id     string
	cfg    storeConfig
	logger *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[snapshot[T]]
	history *history.History[patch.Patch]

	changes *stream.Stream[*snapshot[T]]
	effects *registry.Registry[string, effectHandle]
}

// snapshot is a State plus its position in the store's sequence of states.
type snapshot[T any] struct {
	state   State[T]
	version uint64
}

// effectHandle is what a store needs to know about its effects.
type effectHandle interface {
	Loading() bool
	Wait()
	Stop()
}

// NewStore creates a store holding initial.
//
// Returns ErrMapSetDisabled if T contains maps and WithMapSet was not given,
// and ErrNotSerializable if WithPatches was given and initial does not
// survive a JSON round trip.
func NewStore[T any](initial T, opts ...Option) (*Store[T], error) {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.enableMapSet {
		if path, ok := findMap(reflect.TypeOf(&initial).Elem()); ok {
			return nil, fmt.Errorf("%w: %s", ErrMapSetDisabled, path)
		}
	}

	s := &Store[T]{
		id:      uuid.New().String()[:8],
		cfg:     cfg,
		changes: stream.New[*snapshot[T]](),
		effects: registry.New[string, effectHandle](),
	}
	s.logger = observability.EnrichLogger(cfg.logger, s.id, cfg.name)

	if cfg.withPatches {
		if err := patch.Check(initial); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
		}
		s.history = history.New[patch.Patch]()
	}

	s.current.Store(&snapshot[T]{state: State[T]{Value: initial}, version: 1})
	return s, nil
}

// MustNewStore is like NewStore but panics on error.
func MustNewStore[T any](initial T, opts ...Option) *Store[T] {
	s, err := NewStore(initial, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the store's generated identifier.
func (s *Store[T]) ID() string {
	return s.id
}

// Name returns the configured store name.
func (s *Store[T]) Name() string {
	return s.cfg.name
}

// Logger returns the store's enriched logger.
func (s *Store[T]) Logger() *slog.Logger {
	return s.logger
}

// Read returns the current snapshot. It never blocks.
func (s *Store[T]) Read() State[T] {
	return s.current.Load().state
}

// Reduce applies fn to a draft of the current value and makes the result
// the new snapshot. The error slot is carried over unchanged.
//
// A panic in fn propagates to the caller; the store is left as it was.
// fn must not call Reduce on the same store.
func (s *Store[T]) Reduce(fn func(draft *T)) {
	s.commit(func(draft *State[T]) { fn(&draft.Value) }, nil)
}

// ReduceState is Reduce with access to the whole draft snapshot, including
// the error slot.
func (s *Store[T]) ReduceState(fn func(draft *State[T])) {
	s.commit(fn, nil)
}

// commit runs one reduction. If guard is non-nil it is evaluated inside the
// critical section and the reduction is skipped when it returns false.
func (s *Store[T]) commit(fn func(draft *State[T]), guard func() bool) bool {
	return s.commitTagged(fn, guard, nil)
}

// commitTagged is commit that also hands the new snapshot's version to tag,
// inside the critical section and before any subscriber sees it.
func (s *Store[T]) commitTagged(fn func(draft *State[T]), guard func() bool, tag func(version uint64)) bool {
	start := time.Now()
	next, ok := s.apply(fn, guard, tag)
	if !ok {
		return false
	}
	s.cfg.metrics.RecordReduction(context.Background(), s.cfg.name, time.Since(start))
	s.changes.Emit(next)
	return true
}

func (s *Store[T]) apply(fn func(draft *State[T]), guard func() bool, tag func(version uint64)) (*snapshot[T], bool) {
	done := observability.TimedOperation()

	s.mu.Lock()
	defer s.mu.Unlock()

	if guard != nil && !guard() {
		return nil, false
	}

	prev := s.current.Load()
	draft := State[T]{
		Value: clone.Clone(prev.state.Value),
		Error: prev.state.Error,
	}
	fn(&draft)

	recorded := s.record(prev.state, draft)
	next := &snapshot[T]{state: draft, version: prev.version + 1}
	s.current.Store(next)
	if tag != nil {
		tag(next.version)
	}

	observability.LogReduce(s.logger, done(), recorded)
	return next, true
}

// record appends the patch pair for prev -> next. Caller holds s.mu.
func (s *Store[T]) record(prev, next State[T]) bool {
	if s.history == nil {
		return false
	}
	forward, inverse, err := patch.Diff(patch.Snapshot[T](prev), patch.Snapshot[T](next))
	if err != nil {
		s.historyFault("diff", err)
		return false
	}
	s.history.AddPatches(forward, inverse)
	return true
}

// historyFault drops all history after a failure. Caller holds s.mu.
func (s *Store[T]) historyFault(op string, err error) {
	herr := &HistoryError{Op: op, Err: err}
	observability.LogHistoryError(s.logger, op, herr)
	s.history.Reset()
}

// Subscribe registers fn to receive every new snapshot. fn receives the
// current snapshot before Subscribe returns.
//
// Calls to fn never overlap and a subscriber never sees an older snapshot
// after a newer one. A snapshot published while fn is running, including one
// produced by fn itself, is delivered after fn returns; when several are
// published meanwhile only the latest is delivered.
func (s *Store[T]) Subscribe(fn func(State[T])) stream.Subscription {
	return s.subscribe(func(snap *snapshot[T]) { fn(snap.state) })
}

func (s *Store[T]) subscribe(fn func(*snapshot[T])) stream.Subscription {
	d := &subscriber[T]{fn: fn}
	sub := s.changes.Subscribe(d.deliver)
	d.deliver(s.current.Load())
	return sub
}

// subscriber serializes delivery to one fn. Whichever goroutine finds it idle
// drains pending snapshots; everyone else only replaces the pending one.
type subscriber[T any] struct {
	fn func(*snapshot[T])

	mu       sync.Mutex
	seen     uint64
	pending  *snapshot[T]
	draining bool
}

func (d *subscriber[T]) deliver(snap *snapshot[T]) {
	d.mu.Lock()
	if snap.version <= d.seen || (d.pending != nil && snap.version <= d.pending.version) {
		d.mu.Unlock()
		return
	}
	d.pending = snap
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	d.drain()
}

func (d *subscriber[T]) drain() {
	done := false
	defer func() {
		if !done {
			// fn panicked; let the next delivery drain.
			d.mu.Lock()
			d.draining = false
			d.pending = nil
			d.mu.Unlock()
		}
	}()

	for {
		d.mu.Lock()
		next := d.pending
		if next == nil {
			d.draining = false
			d.mu.Unlock()
			done = true
			return
		}
		d.pending = nil
		d.seen = next.version
		d.mu.Unlock()

		d.fn(next)
	}
}

// Undo reverts the most recent change that has not been undone. It returns
// false when there is nothing to undo or history is disabled.
func (s *Store[T]) Undo() bool {
	return s.travel("undo")
}

// Redo reapplies the most recently undone change. It returns false when
// there is nothing to redo or history is disabled.
func (s *Store[T]) Redo() bool {
	return s.travel("redo")
}

// CanUndo reports whether there is a recorded change to undo.
func (s *Store[T]) CanUndo() bool {
	if s.history == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether there is an undone change to redo.
func (s *Store[T]) CanRedo() bool {
	if s.history == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// History reports the history cursor and length. It returns -1, 0 and
// ErrHistoryDisabled when the store was created without WithPatches.
func (s *Store[T]) History() (cursor, length int, err error) {
	if s.history == nil {
		return -1, 0, ErrHistoryDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Cursor(), s.history.Len(), nil
}

func (s *Store[T]) travel(op string) bool {
	if s.history == nil {
		return false
	}

	next, ok := s.step(op)
	if !ok {
		return false
	}
	s.cfg.metrics.RecordHistoryOp(context.Background(), s.cfg.name, op)
	s.changes.Emit(next)
	return true
}

// step moves the history cursor and applies the patch it yields, bypassing
// the draft path.
func (s *Store[T]) step(op string) (*snapshot[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p patch.Patch
	switch op {
	case "undo":
		if !s.history.CanUndo() {
			return nil, false
		}
		p = s.history.Undo()
	case "redo":
		if !s.history.CanRedo() {
			return nil, false
		}
		p = s.history.Redo()
	}

	prev := s.current.Load()
	applied, err := patch.Apply(patch.Snapshot[T](prev.state), p)
	if err != nil {
		s.historyFault(op, err)
		return nil, false
	}

	next := &snapshot[T]{state: State[T](applied), version: prev.version + 1}
	s.current.Store(next)
	observability.LogHistory(s.logger, op, s.history.Cursor(), s.history.Len())
	return next, true
}

// Loading reports whether any effect created on the store is loading.
func (s *Store[T]) Loading() bool {
	loading := false
	s.effects.Range(func(_ string, e effectHandle) bool {
		loading = e.Loading()
		return !loading
	})
	return loading
}

// Wait blocks until no effect created on the store has a run in flight.
// It is meant for tests and shutdown; triggering effects concurrently with
// Wait is a race.
func (s *Store[T]) Wait() {
	for _, e := range s.effects.Values() {
		e.Wait()
	}
}

// Close stops every effect created on the store: their triggers are
// detached and in-flight runs are cancelled and discarded. Reads, reductions
// and subscriptions keep working.
func (s *Store[T]) Close() {
	for _, id := range s.effects.Keys() {
		if e, ok := s.effects.Get(id); ok {
			e.Stop()
		}
		s.effects.Delete(id)
	}
}

// findMap reports the first map reachable in t, as a field path.
func findMap(t reflect.Type) (string, bool) {
	return walkMap(t, t.String(), map[reflect.Type]bool{})
}

func walkMap(t reflect.Type, path string, seen map[reflect.Type]bool) (string, bool) {
	if t == nil || seen[t] {
		return "", false
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Map:
		return path, true
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return walkMap(t.Elem(), path+"[]", seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if p, ok := walkMap(f.Type, path+"."+f.Name, seen); ok {
				return p, true
			}
		}
	}
	return "", false
}
