package signalflow

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/signalflow/pkg/signalflow/stream"
)

// Derived is a read-only projection of a store. It recomputes when the store
// changes and notifies its subscribers only when the projected value
// changed.
type Derived[V any] struct {
	mu       sync.Mutex
	eval     func() V
	equal    func(a, b V) bool
	notified V
	has      bool

	out *stream.Stream[V]
	sub stream.Subscription
}

func newDerived[T, V any](st *Store[T], eval func() V, equal func(a, b V) bool) *Derived[V] {
	d := &Derived[V]{eval: eval, equal: equal}
	d.notified = eval()
	d.has = true
	d.out = stream.NewStateful(d.notified)
	d.sub = st.Subscribe(func(State[T]) { d.refresh() })
	return d
}

// refresh recomputes and emits when the value moved.
func (d *Derived[V]) refresh() {
	d.mu.Lock()
	v := d.eval()
	if d.has && d.equal(d.notified, v) {
		d.mu.Unlock()
		return
	}
	d.notified, d.has = v, true
	d.mu.Unlock()

	d.out.Emit(v)
}

// Get returns the projection of the store's current snapshot.
func (d *Derived[V]) Get() V {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eval()
}

// Subscribe registers fn for changes of the projected value. fn receives the
// current value before Subscribe returns.
func (d *Derived[V]) Subscribe(fn func(V)) stream.Subscription {
	return d.out.Subscribe(fn)
}

// Close detaches the projection from its store.
func (d *Derived[V]) Close() {
	d.sub.Unsubscribe()
}

// Select projects the store through key. Subscribers are notified when the
// projected value changes by ==.
//
// Example:
//
//	count := signalflow.Select(st, func(s signalflow.State[Counter]) int { return s.Value.Count })
func Select[T any, V comparable](st *Store[T], key func(State[T]) V) *Derived[V] {
	return SelectEqual(st, key, func(a, b V) bool { return a == b })
}

// SelectEqual is Select with a caller-supplied equality.
func SelectEqual[T, V any](st *Store[T], key func(State[T]) V, equal func(a, b V) bool) *Derived[V] {
	return newDerived(st, func() V { return key(st.Read()) }, equal)
}

// SelectError projects the store's error slot. A new error value notifies
// even if its message matches the previous one.
func SelectError[T any](st *Store[T]) *Derived[error] {
	return SelectEqual(st, func(s State[T]) error { return s.Error }, sameError)
}

// SelectPath projects the field at a gjson path of the snapshot's JSON form,
// for example "value.todos.#" or "error". Values are compared by their raw
// JSON.
func SelectPath[T any](st *Store[T], path string) *Derived[gjson.Result] {
	return SelectEqual(st, func(s State[T]) gjson.Result {
		b, err := json.Marshal(s)
		if err != nil {
			return gjson.Result{}
		}
		return gjson.GetBytes(b, path)
	}, func(a, b gjson.Result) bool {
		return a.Exists() == b.Exists() && a.Raw == b.Raw
	})
}

// Compute derives a value from several keys of the store. fn runs again
// only when one of the key values changed, and subscribers are notified
// only when its result changed.
//
// Example:
//
//	summary := signalflow.Compute(st, func(v []any) string {
//	    return fmt.Sprintf("%d todos, error=%v", v[0], v[1])
//	}, func(s signalflow.State[Todos]) any { return len(s.Value.Items) },
//	    func(s signalflow.State[Todos]) any { return s.Error })
func Compute[T, R any](st *Store[T], fn func(values []any) R, keys ...func(State[T]) any) *Derived[R] {
	var (
		last   []any
		result R
		ready  bool
	)
	eval := func() R {
		state := st.Read()
		values := make([]any, len(keys))
		for i, key := range keys {
			values[i] = key(state)
		}
		if ready && equalValues(last, values) {
			return result
		}
		last, result, ready = values, fn(values), true
		return result
	}
	return newDerived(st, eval, func(a, b R) bool { return equalValue(a, b) })
}

func equalValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

// equalValue compares with == where the dynamic type allows it and falls
// back to reflect.DeepEqual otherwise.
func equalValue(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() && comparableValue(reflect.ValueOf(a)) && comparableValue(reflect.ValueOf(b)) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// comparableValue reports whether == on v cannot panic.
func comparableValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return v.Elem().Type().Comparable() && comparableValue(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !comparableValue(v.Field(i)) {
				return false
			}
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !comparableValue(v.Index(i)) {
				return false
			}
		}
	}
	return true
}

// sameError compares errors by identity without panicking on error types
// that are not comparable.
func sameError(a, b error) bool {
	return equalValue(a, b)
}
