package shutdown

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"sync"

	"gracefulexit/core"
)

// Callback is one registered cleanup action together with its execution metadata.
type Callback struct {
	// Name identifies the callback in logs and metrics.
	Name string

	// Action is invoked once during draining.
	Action core.Action

	// Blocking callbacks are awaited before the next callback starts.
	// Non-blocking callbacks are started and joined after all callbacks started.
	Blocking bool

	// Order sorts callbacks ascending; equal orders keep registration order.
	Order int
}

// Registry maintains the ordered collection of shutdown callbacks.
//
// Usage:
//
//	registry := NewRegistry()
//
//	registry.Register(Callback{Name: "http", Action: stopHTTP, Blocking: true, Order: -10})
//	registry.Register(Callback{Name: "db", Action: closeDB})
//
//	// During shutdown:
//	for cb := range registry.Drain() {
//	    cb.Action()
//	}
type Registry struct {
	mu        sync.Mutex
	callbacks []Callback
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		callbacks: make([]Callback, 0),
	}
}

// Register appends a callback. The action is not inspected; failures are
// handled by whoever drains the registry. Callbacks without a name are
// named after their registration position.
func (r *Registry) Register(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb.Name == "" {
		cb.Name = fmt.Sprintf("callback-%d", len(r.callbacks)+1)
	}
	r.callbacks = append(r.callbacks, cb)
}

// Drain returns the callbacks in execution order: Order ascending, ties
// broken by registration order.
//
// The snapshot is taken when Drain is called; callbacks registered afterwards
// are not part of it. The returned sequence can be ranged over any number of
// times and never mutates the registry.
func (r *Registry) Drain() iter.Seq[Callback] {
	sorted := r.sorted()
	return func(yield func(Callback) bool) {
		for _, cb := range sorted {
			if !yield(cb) {
				return
			}
		}
	}
}

// Names returns the callback names in execution order.
func (r *Registry) Names() []string {
	sorted := r.sorted()
	names := make([]string, len(sorted))
	for i, cb := range sorted {
		names[i] = cb.Name
	}
	return names
}

// Count returns the number of registered callbacks.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.callbacks)
}

func (r *Registry) sorted() []Callback {
	r.mu.Lock()
	sorted := slices.Clone(r.callbacks)
	r.mu.Unlock()

	slices.SortStableFunc(sorted, func(a, b Callback) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}
