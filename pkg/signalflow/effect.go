package signalflow

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/signalflow/pkg/signalflow/observability"
	"github.com/randalmurphal/signalflow/pkg/signalflow/stream"
)

// Effect runs an asynchronous operation each time its trigger fires and
// commits the outcome to its store in one reduction.
//
// At most one run is in flight. A new trigger cancels the previous run's
// context and supersedes it; a superseded run's outcome is discarded even if
// it arrives later. On success the result reducer (if any) runs and the
// error slot is cleared. On failure the error slot is set to the error and
// the result reducer is skipped. Loading is true from trigger until the
// latest run settles.
type Effect[T, R any] struct {
	id    string
	store *Store[T]

	loading atomic.Bool
	wg      sync.WaitGroup

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	reducer func(draft *T, r R)
	sub     stream.Subscription
	stopped bool
}

func newEffect[T, R any](st *Store[T]) *Effect[T, R] {
	e := &Effect[T, R]{
		id:    "eff-" + uuid.New().String()[:8],
		store: st,
	}
	st.effects.Register(e.id, e)
	return e
}

// EffectOf creates an effect triggered by every emission of src. A source
// created with a start value triggers it immediately.
//
// Example:
//
//	search := signalflow.SourceOf[string](st)
//	results := signalflow.EffectOf(search, func(ctx context.Context, q string) ([]Hit, error) {
//	    return client.Search(ctx, q)
//	})
//	results.Reduce(func(draft *State, hits []Hit) { draft.Hits = hits })
func EffectOf[T, V, R any](src *Source[T, V], fn func(ctx context.Context, v V) (R, error)) *Effect[T, R] {
	e := newEffect[T, R](src.store)
	sub := src.Subscribe(func(v V) {
		e.launch(func(ctx context.Context) (R, error) { return fn(ctx, v) })
	})
	e.attach(sub)
	return e
}

// Effect creates a store-level effect: fn runs synchronously on the current
// snapshot and again on every later snapshot, with Loading true while it
// runs. Nothing is committed on its behalf.
//
// fn writes back through reduce. Snapshots produced only by reduce do not
// re-run fn; any other change does, including a Reduce on the store itself
// from inside fn. Runs never overlap: changes published during a run are
// coalesced into one more run on the latest snapshot.
//
// Example:
//
//	st.Effect(func(s signalflow.State[Cart], reduce func(func(*Cart))) {
//	    if total := s.Value.Sum(); total != s.Value.Total {
//	        reduce(func(draft *Cart) { draft.Total = total })
//	    }
//	})
func (s *Store[T]) Effect(fn func(snap State[T], reduce func(fn func(draft *T)))) *Effect[T, struct{}] {
	e := newEffect[T, struct{}](s)
	w := &writeback{}
	reduce := func(r func(draft *T)) {
		s.commitTagged(func(draft *State[T]) { r(&draft.Value) }, nil, w.tag)
	}
	sub := s.subscribe(func(snap *snapshot[T]) {
		if w.ownOnly(snap.version) {
			return
		}
		e.loading.Store(true)
		defer e.loading.Store(false)
		fn(snap.state, reduce)
	})
	e.attach(sub)
	return e
}

// writeback tracks the store versions a store-level effect produced itself.
type writeback struct {
	mu   sync.Mutex
	base uint64
	own  map[uint64]bool
}

func (w *writeback) tag(version uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.own == nil {
		w.own = make(map[uint64]bool)
	}
	w.own[version] = true
}

// ownOnly advances to version and reports whether every version since the
// last one seen was tagged. Versions arrive in increasing order.
func (w *writeback) ownOnly(version uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	all := true
	for v := w.base + 1; v <= version; v++ {
		if !w.own[v] {
			all = false
			break
		}
	}
	for v := range w.own {
		if v <= version {
			delete(w.own, v)
		}
	}
	w.base = version
	return all
}

// ID returns the effect's identifier, used in logs, metrics, and spans.
func (e *Effect[T, R]) ID() string {
	return e.id
}

// Loading reports whether a run is in flight.
func (e *Effect[T, R]) Loading() bool {
	return e.loading.Load()
}

// Reduce sets the result reducer, replacing any previous one. It applies
// to runs that settle after the call.
func (e *Effect[T, R]) Reduce(fn func(draft *T, r R)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reducer = fn
}

// Wait blocks until no run is in flight.
func (e *Effect[T, R]) Wait() {
	e.wg.Wait()
}

// Stop detaches the trigger and cancels the in-flight run, whose outcome
// is then discarded. Loading becomes false.
func (e *Effect[T, R]) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	sub := e.sub
	e.loading.Store(false)
	e.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (e *Effect[T, R]) attach(sub stream.Subscription) {
	e.mu.Lock()
	stopped := e.stopped
	e.sub = sub
	e.mu.Unlock()

	if stopped {
		sub.Unsubscribe()
	}
}

// launch cancels the current run and starts op as the new one.
func (e *Effect[T, R]) launch(op func(ctx context.Context) (R, error)) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout := e.store.cfg.effectTimeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	e.cancel = cancel
	e.loading.Store(true)
	e.wg.Add(1)
	e.mu.Unlock()

	e.store.cfg.runner(func() {
		defer e.wg.Done()
		defer cancel()
		e.execute(ctx, gen, op)
	})
}

func (e *Effect[T, R]) execute(ctx context.Context, gen uint64, op func(ctx context.Context) (R, error)) {
	st := e.store
	ctx, span := st.cfg.spans.StartEffectSpan(ctx, st.cfg.name, e.id)
	observability.LogEffectStart(st.logger, e.id, gen)

	start := time.Now()
	result, err := e.call(ctx, op)
	duration := time.Since(start)

	if !e.settle(gen, result, err) {
		observability.LogEffectStale(st.logger, e.id, gen)
		st.cfg.metrics.RecordEffectCancellation(ctx, st.cfg.name, e.id)
		st.cfg.spans.AddSpanEvent(ctx, "effect.superseded")
		st.cfg.spans.EndSpanWithError(span, context.Canceled)
		return
	}

	durationMs := float64(duration.Microseconds()) / 1000
	if err != nil {
		observability.LogEffectError(st.logger, e.id, err, durationMs)
	} else {
		observability.LogEffectSettled(st.logger, e.id, durationMs)
	}
	st.cfg.metrics.RecordEffectRun(ctx, st.cfg.name, e.id, duration, err)
	st.cfg.spans.EndSpanWithError(span, err)
}

// call runs op with panic recovery.
func (e *Effect[T, R]) call(ctx context.Context, op func(ctx context.Context) (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				EffectID: e.id,
				Value:    r,
				Stack:    string(debug.Stack()),
			}
		}
	}()
	return op(ctx)
}

// settle commits the outcome of run gen if it is still the current run.
// It reports false when the run was superseded.
func (e *Effect[T, R]) settle(gen uint64, result R, err error) bool {
	e.mu.Lock()
	reducer := e.reducer
	e.mu.Unlock()

	current := func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.gen == gen
	}

	applied, perr := e.commit(func(draft *State[T]) {
		if err != nil {
			draft.Error = err
			return
		}
		if reducer != nil {
			reducer(&draft.Value, result)
		}
		draft.Error = nil
	}, current)
	if perr != nil {
		// The result reducer or a subscriber panicked; report it through
		// the error slot.
		observability.LogEffectError(e.store.logger, e.id, perr, 0)
		_, _ = e.commit(func(draft *State[T]) { draft.Error = perr }, current)
	} else if !applied {
		return false
	}

	e.mu.Lock()
	if e.gen == gen {
		e.loading.Store(false)
	}
	e.mu.Unlock()
	return true
}

func (e *Effect[T, R]) commit(fn func(draft *State[T]), guard func() bool) (applied bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				EffectID: e.id,
				Value:    r,
				Stack:    string(debug.Stack()),
			}
		}
	}()
	return e.store.commit(fn, guard), nil
}
