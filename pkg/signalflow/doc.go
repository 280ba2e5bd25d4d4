/*
Package signalflow provides a reactive state container.

# Overview

A Store holds one value of an application-defined type T plus a reserved
error slot. The value only changes through reductions: a reducer receives a
deep copy (the draft) of the current value, mutates it, and the result
becomes the new snapshot. Readers holding an older snapshot are never
affected.

Values enter through Sources, typed emitters bound to a store. Effects turn
emissions into asynchronous work and commit the outcome back in a single
reduction. Optional history records every reduction as a forward/inverse
patch pair and supports undo and redo.

# Basic Usage

	type Counter struct {
	    Count int `json:"count"`
	}

	st, err := signalflow.NewStore(Counter{})
	if err != nil {
	    log.Fatal(err)
	}

	inc := signalflow.SourceOf[int](st)
	inc.Reduce(func(draft *Counter, n int) {
	    draft.Count += n
	})

	inc.Invoke(1)
	inc.Invoke(2)
	fmt.Println(st.Read().Value.Count) // 3

# Combined Sources

ReduceLatest and EffectLatest wait until every input has emitted once, then
fire on every emission of any input with the latest value of each:

	a := signalflow.SourceOf[int](st)
	b := signalflow.SourceOf[int](st)
	signalflow.ReduceLatest2(st, a, b, func(draft *Counter, x, y int) {
	    draft.Count = x + y
	})

# Effects

An effect runs its operation on every trigger. A new trigger cancels the
context of the previous run, and a superseded run's outcome never reaches
the store:

	search := signalflow.SourceOf[string](st)
	hits := signalflow.EffectOf(search, func(ctx context.Context, q string) ([]Hit, error) {
	    return client.Search(ctx, q)
	})
	hits.Reduce(func(draft *Page, r []Hit) {
	    draft.Hits = r
	})

On success the result reducer runs and the error slot is cleared. On failure
the error lands in the error slot and the reducer is skipped. Loading reports
whether a run is in flight. Failures are never returned to the caller of
Invoke; SelectError observes them.

Panics in an effect operation are recovered and stored as *PanicError.

Store.Effect runs a function synchronously on every new snapshot. It writes
back through the reduce func it is given; those writes do not re-run it,
while every other change does:

	st.Effect(func(s signalflow.State[Cart], reduce func(func(*Cart))) {
	    if total := s.Value.Sum(); total != s.Value.Total {
	        reduce(func(draft *Cart) { draft.Total = total })
	    }
	})

# Derived Values

Select, SelectEqual, SelectError, SelectPath and Compute return a Derived
that recomputes on every store change and notifies subscribers only when its
value changed:

	count := signalflow.Select(st, func(s signalflow.State[Counter]) int {
	    return s.Value.Count
	})
	count.Subscribe(func(n int) { fmt.Println("count:", n) })

# History

	st, err := signalflow.NewStore(Counter{}, signalflow.WithPatches())
	st.Reduce(func(d *Counter) { d.Count = 1 })
	st.Undo() // Count == 0
	st.Redo() // Count == 1

History is linear: a reduction after an undo discards the redo tail. Only
JSON-visible fields take part in undo and redo.

# Observability

	st, err := signalflow.NewStore(Counter{},
	    signalflow.WithName("counter"),
	    signalflow.WithLogger(logger),
	    signalflow.WithMetrics(true),
	    signalflow.WithTracing(true))

Logs carry store_id and store fields. Metrics are recorded under
signalflow.store.*, signalflow.effect.* and signalflow.history.*. Each effect
run gets a signalflow.effect span whose context is passed to the operation.

# Thread Safety

  - Store IS safe for concurrent use; reductions are serialized
  - Read never blocks
  - Source and Effect ARE safe for concurrent use
  - Reducers must not call Reduce on their own store

Within one goroutine, emissions are processed in order, each completely
before the next. Across goroutines, reductions are serialized but their
order is the order in which they reach the store.

# Subpackages

  - stream: synchronous multi-subscriber streams and CombineLatest
  - history: linear undo/redo log
  - patch: structural diff and patch application
  - observability: logging, metrics, and tracing helpers
  - config: YAML/JSON store configuration
  - registry: insertion-ordered concurrent registry
*/
package signalflow
