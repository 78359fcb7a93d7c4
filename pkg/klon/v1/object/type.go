package object

import "fmt"

// Type is a type descriptor. Descriptors are objects themselves (their type
// is TypeType) and are classified as atomic: a clone of a type is the type.
type Type struct {
	id   uint64
	name string
	// construct builds a new instance when the type is used as the
	// constructor slot of a decomposition. Nil for types that cannot be
	// called.
	construct func(args ...Object) (Object, error)
}

// NewType creates a user-defined type descriptor. construct may be nil.
func NewType(name string, construct func(args ...Object) (Object, error)) *Type {
	return &Type{id: newID(), name: name, construct: construct}
}

func (t *Type) Type() *Type { return TypeType }

// ID implements Identifiable. Type identities exist so types can be used as
// dict keys and dispatch-registry keys; the engine itself never memoizes a
// type.
func (t *Type) ID() uint64 { return t.id }

// Name returns the type's display name.
func (t *Type) Name() string { return t.name }

// Call invokes the type's constructor.
func (t *Type) Call(args ...Object) (Object, error) {
	if t.construct == nil {
		return nil, fmt.Errorf("type %q is not callable", t.name)
	}
	return t.construct(args...)
}

func (t *Type) String() string { return "<type " + t.name + ">" }

// Built-in type descriptors. These are compared by pointer equality in the
// classifier; none of them can be subtyped.
var (
	TypeType      = &Type{id: newID(), name: "type"}
	NoneType      = &Type{id: newID(), name: "NoneType"}
	BoolType      = &Type{id: newID(), name: "bool"}
	IntType       = &Type{id: newID(), name: "int"}
	FloatType     = &Type{id: newID(), name: "float"}
	StrType       = &Type{id: newID(), name: "str"}
	BytesType     = &Type{id: newID(), name: "bytes"}
	DictType      = &Type{id: newID(), name: "dict"}
	ListType      = &Type{id: newID(), name: "list"}
	TupleType     = &Type{id: newID(), name: "tuple"}
	SetType       = &Type{id: newID(), name: "set"}
	FrozenSetType = &Type{id: newID(), name: "frozenset"}
	ByteArrayType = &Type{id: newID(), name: "bytearray"}
	FuncType      = &Type{id: newID(), name: "function"}
	MethodType    = &Type{id: newID(), name: "method"}
)

// Func wraps a Go function as a callable object. Funcs are shared, never
// cloned.
type Func struct {
	id   uint64
	name string
	fn   func(args ...Object) (Object, error)
}

// NewFunc creates a callable object around fn.
func NewFunc(name string, fn func(args ...Object) (Object, error)) *Func {
	return &Func{id: newID(), name: name, fn: fn}
}

func (f *Func) Type() *Type { return FuncType }
func (f *Func) ID() uint64  { return f.id }

// Name returns the function's display name.
func (f *Func) Name() string { return f.name }

func (f *Func) Call(args ...Object) (Object, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("function %q has no implementation", f.name)
	}
	return f.fn(args...)
}

func (f *Func) String() string { return "<function " + f.name + ">" }

// BoundMethod pairs a function with a receiver. Deep-copying a bound method
// shares the function and deep-copies the receiver.
type BoundMethod struct {
	id       uint64
	fn       *Func
	receiver Object
}

// NewBoundMethod binds fn to receiver.
func NewBoundMethod(fn *Func, receiver Object) *BoundMethod {
	return &BoundMethod{id: newID(), fn: fn, receiver: receiver}
}

func (m *BoundMethod) Type() *Type { return MethodType }
func (m *BoundMethod) ID() uint64  { return m.id }

// Func returns the underlying function.
func (m *BoundMethod) Func() *Func { return m.fn }

// Receiver returns the bound receiver.
func (m *BoundMethod) Receiver() Object { return m.receiver }

// Call invokes the function with the receiver prepended to args.
func (m *BoundMethod) Call(args ...Object) (Object, error) {
	full := make([]Object, 0, len(args)+1)
	full = append(full, m.receiver)
	full = append(full, args...)
	return m.fn.Call(full...)
}
