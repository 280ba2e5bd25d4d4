package signalflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test state types used across tests

// Counter is the simplest state.
type Counter struct {
	Count int `json:"count"`
}

// Todos exercises nested slices and pointers.
type Todos struct {
	Title string  `json:"title"`
	Items []Todo  `json:"items"`
	Owner *string `json:"owner,omitempty"`
}

// Todo is one entry of Todos.
type Todo struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Tagged contains a map and needs WithMapSet.
type Tagged struct {
	Tags map[string]int `json:"tags"`
}

var errNegative = errors.New("negative input")

// double fails for -1 and doubles anything else.
func double(_ context.Context, v int) (int, error) {
	if v == -1 {
		return 0, errNegative
	}
	return v * 2, nil
}

// recorder collects values delivered to a subscriber.
type recorder[V any] struct {
	mu     sync.Mutex
	values []V
}

func (r *recorder[V]) add(v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[V]) all() []V {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]V, len(r.values))
	copy(out, r.values)
	return out
}

func (r *recorder[V]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// newCounter creates a Counter store or fails the test.
func newCounter(t testing.TB, opts ...Option) *Store[Counter] {
	t.Helper()
	st, err := NewStore(Counter{}, opts...)
	require.NoError(t, err)
	return st
}
