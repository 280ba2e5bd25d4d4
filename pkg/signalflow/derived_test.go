package signalflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// TestSelect_NotifiesOnChange tests that a selection only notifies when the
// projected value changes.
func TestSelect_NotifiesOnChange(t *testing.T) {
	st, err := NewStore(Todos{Title: "a"})
	require.NoError(t, err)

	title := Select(st, func(s State[Todos]) string { return s.Value.Title })
	var got recorder[string]
	title.Subscribe(got.add)

	st.Reduce(func(d *Todos) { d.Items = append(d.Items, Todo{Text: "x"}) })
	st.Reduce(func(d *Todos) { d.Title = "b" })
	st.Reduce(func(d *Todos) { d.Title = "b" })
	st.Reduce(func(d *Todos) { d.Title = "c" })

	assert.Equal(t, []string{"a", "b", "c"}, got.all())
	assert.Equal(t, "c", title.Get())
}

// TestSelect_Close tests that a closed selection stops following the store.
func TestSelect_Close(t *testing.T) {
	st := newCounter(t)
	count := Select(st, func(s State[Counter]) int { return s.Value.Count })
	var got recorder[int]
	count.Subscribe(got.add)

	count.Close()
	st.Reduce(func(d *Counter) { d.Count = 1 })

	assert.Equal(t, []int{0}, got.all())
	assert.Equal(t, 1, count.Get(), "Get always reads the current snapshot")
}

// TestSelectEqual tests a custom equality over a slice projection.
func TestSelectEqual(t *testing.T) {
	st, err := NewStore(Todos{})
	require.NoError(t, err)

	texts := SelectEqual(st, func(s State[Todos]) []string {
		out := make([]string, 0, len(s.Value.Items))
		for _, it := range s.Value.Items {
			out = append(out, it.Text)
		}
		return out
	}, func(a, b []string) bool { return fmt.Sprint(a) == fmt.Sprint(b) })

	var got recorder[[]string]
	texts.Subscribe(got.add)

	st.Reduce(func(d *Todos) { d.Items = append(d.Items, Todo{Text: "a"}) })
	st.Reduce(func(d *Todos) { d.Items[0].Done = true })

	assert.Equal(t, [][]string{{}, {"a"}}, got.all())
}

// TestSelectError tests error-slot selection by identity.
func TestSelectError(t *testing.T) {
	st := newCounter(t)
	errs := SelectError(st)
	var got recorder[error]
	errs.Subscribe(got.add)

	first := errors.New("same text")
	second := errors.New("same text")
	st.ReduceState(func(d *State[Counter]) { d.Error = first })
	st.Reduce(func(d *Counter) { d.Count++ })
	st.ReduceState(func(d *State[Counter]) { d.Error = second })
	st.ReduceState(func(d *State[Counter]) { d.Error = nil })

	values := got.all()
	require.Len(t, values, 4)
	assert.Nil(t, values[0])
	assert.Same(t, first, values[1])
	assert.Same(t, second, values[2])
	assert.Nil(t, values[3])
}

// TestSelectPath tests gjson path selection over the snapshot's JSON form.
func TestSelectPath(t *testing.T) {
	st, err := NewStore(Todos{Title: "list"})
	require.NoError(t, err)

	n := SelectPath(st, "value.items.#")
	msg := SelectPath(st, ErrorKey)

	var counts recorder[int64]
	n.Subscribe(func(r gjson.Result) { counts.add(r.Int()) })

	assert.False(t, msg.Get().Exists())

	st.Reduce(func(d *Todos) { d.Items = []Todo{{Text: "a"}, {Text: "b"}} })
	st.Reduce(func(d *Todos) { d.Title = "renamed" })
	st.ReduceState(func(d *State[Todos]) { d.Error = errors.New("offline") })

	assert.Equal(t, []int64{0, 2}, counts.all())
	assert.Equal(t, "offline", msg.Get().String())
	assert.Equal(t, "renamed", SelectPath(st, "value.title").Get().String())
}

// TestCompute_Memoizes tests that the combining function only reruns when a
// key changes.
func TestCompute_Memoizes(t *testing.T) {
	st, err := NewStore(Todos{})
	require.NoError(t, err)

	calls := 0
	summary := Compute(st, func(v []any) string {
		calls++
		return fmt.Sprintf("%d items, error=%v", v[0], v[1])
	},
		func(s State[Todos]) any { return len(s.Value.Items) },
		func(s State[Todos]) any { return s.Error },
	)

	var got recorder[string]
	summary.Subscribe(got.add)
	require.Equal(t, 1, calls)

	st.Reduce(func(d *Todos) { d.Title = "unrelated" })
	assert.Equal(t, 1, calls)

	st.Reduce(func(d *Todos) { d.Items = append(d.Items, Todo{}) })
	assert.Equal(t, 2, calls)

	st.ReduceState(func(d *State[Todos]) { d.Error = errors.New("x") })
	assert.Equal(t, 3, calls)

	assert.Equal(t, []string{
		"0 items, error=<nil>",
		"1 items, error=<nil>",
		"1 items, error=x",
	}, got.all())
	assert.Equal(t, "1 items, error=x", summary.Get())
}

// TestEqualValue tests the comparison used by Compute.
func TestEqualValue(t *testing.T) {
	type pair struct {
		A any
		B int
	}

	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"nil nil", nil, nil, true},
		{"nil vs value", nil, 1, false},
		{"ints", 1, 1, true},
		{"different types", 1, int64(1), false},
		{"slices", []int{1}, []int{1}, true},
		{"different slices", []int{1}, []int{2}, false},
		{"struct with slice inside interface", pair{A: []int{1}}, pair{A: []int{1}}, true},
		{"struct with comparable interface", pair{A: "x", B: 1}, pair{A: "x", B: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.equal, equalValue(tt.a, tt.b))
			})
		})
	}
}
