// Package dispatch provides the type-keyed reducer registry consulted before
// the decomposition hooks. Registering a reducer for a type overrides how the
// engine takes instances of that type apart.
package dispatch

import (
	"fmt"
	"sync"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

// ReducerFunc decomposes obj into a reduction tuple understood by the
// reconstructor: (constructor, args[, state[, seqItems[, mapItems]]]).
// Returning the object itself signals "copy as-is, do not register".
type ReducerFunc func(obj object.Object) (object.Object, error)

// Registry is a thread-safe map from type identity to reducer. The engine
// consults it first for every object that is not a known container or atom.
type Registry struct {
	reducers map[uint64]ReducerFunc
	mu       sync.RWMutex
}

// NewRegistry creates a new, empty reducer registry.
func NewRegistry() *Registry {
	return &Registry{
		reducers: make(map[uint64]ReducerFunc),
	}
}

// Register associates typ with reducer. Registering the same type twice is
// rejected: a silent override would make copy behavior order-dependent.
func (r *Registry) Register(typ *object.Type, reducer ReducerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if typ == nil {
		return klonerrors.NewConfigError("reducer registration error: type cannot be nil", nil)
	}
	if reducer == nil {
		return klonerrors.NewConfigError(fmt.Sprintf("reducer registration error for %q: reducer cannot be nil", typ.Name()), nil)
	}
	if _, exists := r.reducers[typ.ID()]; exists {
		return klonerrors.NewConfigError(fmt.Sprintf("reducer registration error: duplicate reducer for type %q", typ.Name()), nil)
	}

	r.reducers[typ.ID()] = reducer
	return nil
}

// Lookup returns the reducer registered for typ, if any.
func (r *Registry) Lookup(typ *object.Type) (ReducerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reducer, ok := r.reducers[typ.ID()]
	return reducer, ok
}

// Len returns the number of registered reducers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reducers)
}
