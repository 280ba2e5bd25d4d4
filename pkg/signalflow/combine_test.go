package signalflow

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEffectLatest2_Gating tests that a combined effect waits for every
// input before its first run, then runs with the latest pair.
func TestEffectLatest2_Gating(t *testing.T) {
	st := newCounter(t, WithEffectRunner(Inline))
	a := SourceOf[int](st)
	b := SourceOf[int](st)

	var calls recorder[[2]int]
	sum := EffectLatest2(st, a, b, func(_ context.Context, x, y int) (int, error) {
		calls.add([2]int{x, y})
		return x + y, nil
	})
	sum.Reduce(func(d *Counter, r int) { d.Count = r })

	assert.Zero(t, calls.len())

	a.Invoke(2)
	assert.Zero(t, calls.len())

	b.Invoke(3)
	require.Equal(t, [][2]int{{2, 3}}, calls.all())
	assert.Equal(t, 5, st.Read().Value.Count)

	a.Invoke(10)
	assert.Equal(t, [][2]int{{2, 3}, {10, 3}}, calls.all())
	assert.Equal(t, 13, st.Read().Value.Count)
}

// TestReduceLatest tests the variadic combined reducer.
func TestReduceLatest(t *testing.T) {
	st, err := NewStore(Todos{})
	require.NoError(t, err)

	title := SourceOf[string](st)
	count := SourceOf[int](st)
	done := SourceOf[bool](st)

	var fired atomic.Int32
	ReduceLatest(st, func(d *Todos, latest []any) {
		fired.Add(1)
		d.Title = latest[0].(string)
		d.Items = make([]Todo, latest[1].(int))
		for i := range d.Items {
			d.Items[i].Done = latest[2].(bool)
		}
	}, title.Any(), count.Any(), done.Any())

	title.Invoke("x")
	count.Invoke(2)
	assert.Zero(t, fired.Load())

	done.Invoke(true)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, "x", st.Read().Value.Title)
	assert.Equal(t, []Todo{{Done: true}, {Done: true}}, st.Read().Value.Items)

	count.Invoke(1)
	assert.Equal(t, int32(2), fired.Load())
	assert.Len(t, st.Read().Value.Items, 1)
}

// TestReduceLatest2 tests the typed two-input reducer with one stateful
// input.
func TestReduceLatest2(t *testing.T) {
	st := newCounter(t)
	base := SourceWith(st, 100)
	delta := SourceOf[int](st)

	ReduceLatest2(st, base.Stream(), delta.Stream(), func(d *Counter, b, dlt int) {
		d.Count = b + dlt
	})
	assert.Equal(t, 0, st.Read().Value.Count)

	delta.Invoke(1)
	assert.Equal(t, 101, st.Read().Value.Count)

	base.Invoke(200)
	assert.Equal(t, 201, st.Read().Value.Count)
}

// TestReduceLatest_NoInputs tests that a combination of nothing never
// fires.
func TestReduceLatest_NoInputs(t *testing.T) {
	st := newCounter(t)
	var fired bool
	ReduceLatest(st, func(*Counter, []any) { fired = true })
	st.Reduce(func(d *Counter) { d.Count = 1 })
	assert.False(t, fired)
}

// TestReduceLatest_Unsubscribe tests detaching a combined reducer.
func TestReduceLatest_Unsubscribe(t *testing.T) {
	st := newCounter(t)
	a := SourceOf[int](st)
	b := SourceOf[int](st)
	sub := ReduceLatest2(st, a, b, func(d *Counter, x, y int) { d.Count = x * y })

	a.Invoke(2)
	b.Invoke(3)
	require.Equal(t, 6, st.Read().Value.Count)

	sub.Unsubscribe()
	a.Invoke(5)
	assert.Equal(t, 6, st.Read().Value.Count)
}

// TestEffectLatest_Failure tests that a combined effect writes failures to
// the error slot.
func TestEffectLatest_Failure(t *testing.T) {
	st := newCounter(t, WithEffectRunner(Inline))
	a := SourceOf[int](st)
	b := SourceOf[int](st)

	EffectLatest(st, func(ctx context.Context, latest []any) (int, error) {
		return double(ctx, latest[0].(int)+latest[1].(int))
	}, a.Any(), b.Any())

	a.Invoke(-2)
	b.Invoke(1)
	assert.ErrorIs(t, st.Read().Error, errNegative)
}
