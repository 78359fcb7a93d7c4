// Package object provides the dynamically-typed, boxed object model that the
// KLON engine walks. It plays the role of the host environment: it supplies
// node identity, type descriptors, the built-in aggregate kinds, and the
// copy/reduce hooks the engine consults for types it does not know.
package object

import "sync/atomic"

// Object is a handle to one node of an object graph. Every boxed value
// implements it. Mutable values and tuples additionally implement
// Identifiable; atoms do not, since the engine never needs their identity.
type Object interface {
	// Type returns the node's type descriptor. Type descriptors are
	// themselves objects (of type TypeType) and are always shared, never
	// cloned.
	Type() *Type
}

// Identifiable is implemented by objects that have a stable identity for the
// lifetime of the process. The identity is an opaque handle usable as a
// hash-table key; it is assigned once at construction and never reused.
type Identifiable interface {
	Object
	// ID returns the object's identity handle. Always non-zero.
	ID() uint64
}

// nextID is the global identity counter. Handle 0 is reserved so that the
// memo table can use it as the empty-slot marker.
var nextID atomic.Uint64

// newID allocates a fresh, process-unique identity handle.
func newID() uint64 {
	return nextID.Add(1)
}

// NewID allocates an identity handle for objects implemented outside this
// package. Implementations of Identifiable must call it once at
// construction and return the same handle for life.
func NewID() uint64 {
	return newID()
}

// Identity returns the identity handle of obj, or (0, false) if the object
// is an atom and has none.
func Identity(obj Object) (uint64, bool) {
	if ident, ok := obj.(Identifiable); ok {
		return ident.ID(), true
	}
	return 0, false
}

// Cloner is the engine callback handed to copy hooks. A hook may re-enter
// the in-flight walk through it; recursive entries share the operation's
// memo, so aliasing and cycles are preserved across the hook boundary.
type Cloner interface {
	// Clone deep-copies obj within the current operation.
	Clone(obj Object) (Object, error)
}

// Copier is the deep-copy override hook. When an object implements it, the
// engine delegates the whole subtree to the hook instead of walking it.
type Copier interface {
	Object
	DeepCopy(c Cloner) (Object, error)
}

// ShallowCopier is the shallow-copy override hook.
type ShallowCopier interface {
	Object
	Copy() (Object, error)
}

// ReducerEx is the extended decomposition hook. The returned object must be
// either a *Str/*Bytes (meaning "immutable, reuse the original") or a *Tuple
// of 2 to 5 slots: (constructor, args, state?, seq-items?, map-items?).
type ReducerEx interface {
	Object
	ReduceEx(protocol int) (Object, error)
}

// Reducer is the basic decomposition hook, tried when ReducerEx is absent.
// Return conventions match ReducerEx.
type Reducer interface {
	Object
	Reduce() (Object, error)
}

// StateSetter is the state-restore hook. When present, the engine passes the
// (already deep-copied) state object to it and performs no structural state
// interpretation of its own.
type StateSetter interface {
	Object
	SetState(state Object) error
}

// Appender is the generic append surface used when a decomposition carries
// sequence items.
type Appender interface {
	Object
	Append(item Object) error
}

// ItemSetter is the generic item-assignment surface used when a
// decomposition carries mapping items.
type ItemSetter interface {
	Object
	SetItem(key, value Object) error
}

// AttrSetter is the named-field assignment surface used by the structural
// state fallback for slot state.
type AttrSetter interface {
	Object
	SetAttr(name string, value Object) error
}

// AttrHolder exposes an object's attribute mapping for structural state
// application (the dict half of a two-element state tuple).
type AttrHolder interface {
	Object
	Attrs() *Dict
}

// Callable is anything invocable with positional arguments: funcs, and type
// descriptors that carry a constructor.
type Callable interface {
	Object
	Call(args ...Object) (Object, error)
}

// Iterator yields objects one at a time. Next returns done=true after the
// last element. An iterator is single-use.
type Iterator interface {
	Next() (item Object, done bool, err error)
}

// Iterable is implemented by objects that can be iterated. Dicts iterate
// their entries as (key, value) 2-tuples in insertion order.
type Iterable interface {
	Object
	Iterate() Iterator
}
