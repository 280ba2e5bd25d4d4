// Package registry provides a generic thread-safe registry that remembers
// insertion order.
//
// A store uses one to track the effects created on it, keyed by effect ID,
// so that it can wait on all of them or list them in creation order.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//	r.Register("two", 2)
//
//	value, ok := r.Get("one")
//	r.Keys() // ["one", "two"]
//
// Re-registering an existing key replaces the value and keeps its position.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Range iterates over a
// snapshot, so fn may call Register or Delete without affecting the
// current iteration.
package registry
