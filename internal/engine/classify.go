package engine

import "github.com/klon-labs/klon/pkg/klon/v1/object"

// kind is the walker's classification of a node. Classification is by exact
// concrete type: a user type that wraps a dict is not a dict and takes the
// opaque path, where its own hooks decide.
type kind int

const (
	kindAtomic kind = iota
	kindDict
	kindList
	kindTuple
	kindSet
	kindFrozenSet
	kindByteArray
	kindMethod
	kindOpaque
)

// classify maps a node to its cloning strategy. Immutable leaves and
// shared-by-contract objects (types, funcs) are atomic. Anything that is
// neither a known container nor an atom is opaque and goes through the
// hook/reduce path.
func classify(obj object.Object) kind {
	switch obj.(type) {
	case nil:
		return kindAtomic
	case *object.Dict:
		return kindDict
	case *object.List:
		return kindList
	case *object.Tuple:
		return kindTuple
	case *object.Set:
		return kindSet
	case *object.FrozenSet:
		return kindFrozenSet
	case *object.ByteArray:
		return kindByteArray
	case *object.BoundMethod:
		return kindMethod
	case *object.Bool, *object.Int, *object.Float, *object.Str, *object.Bytes,
		*object.Type, *object.Func:
		return kindAtomic
	}
	if obj == object.None {
		return kindAtomic
	}
	return kindOpaque
}
