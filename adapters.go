package toon

import (
	"reflect"
	"sync"
)

// Adapter projects a Go value of a registered type into an intermediate
// value that is normalized again — it replaces the value entirely rather
// than emitting text directly (see normalize.go: tree first, serialize last).
type Adapter func(v interface{}) (interface{}, error)

// AdapterRegistry holds user-registered per-type normalization adapters,
// looked up by reflect.Type the way ai.NewClient dispatches on a provider
// tag before falling back to a default.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[reflect.Type]Adapter
}

// NewAdapterRegistry returns an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[reflect.Type]Adapter)}
}

// Register associates fn with the type of sample. A nil sample panics,
// since there would be no type to key the registration on.
func (r *AdapterRegistry) Register(sample interface{}, fn Adapter) {
	if sample == nil {
		panic("toon: Register requires a non-nil sample value")
	}
	t := reflect.TypeOf(sample)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[t] = fn
}

func (r *AdapterRegistry) lookup(t reflect.Type) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.adapters[t]
	return fn, ok
}

// DefaultAdapters is the package-level registry consulted when
// EncodeOptions.Adapters is nil.
var DefaultAdapters = NewAdapterRegistry()
