package object

import (
	"bytes"
	"fmt"
	"math"
)

// UnhashableError reports an attempt to use a mutable object as a dict key
// or set element.
type UnhashableError struct {
	TypeName string
}

func (e *UnhashableError) Error() string {
	return fmt.Sprintf("unhashable type: %s", e.TypeName)
}

// Per-kind seeds keep values of different kinds from colliding trivially.
const (
	hashSeedNone  = 0x9e3779b97f4a7c15
	hashSeedBool  = 0xbf58476d1ce4e5b9
	hashSeedBytes = 0x94d049bb133111eb
	hashSeedTuple = 0xd6e8feb86659fd93
	hashSeedSet   = 0xff51afd7ed558ccd
)

// Hash returns the structural hash of a hashable object. Atoms hash by
// value; tuples and frozen sets hash structurally when every element is
// hashable; types, funcs and instances hash by identity. Mutable containers
// are unhashable.
func Hash(obj Object) (uint64, error) {
	switch v := obj.(type) {
	case noneObject:
		return hashSeedNone, nil
	case *Bool:
		if v.v {
			return mix64(hashSeedBool ^ 1), nil
		}
		return mix64(hashSeedBool), nil
	case *Int:
		return mix64(uint64(v.v)), nil
	case *Float:
		// An integral float hashes like the matching int so 1 and 1.0
		// can coexist as equal keys.
		if v.v == math.Trunc(v.v) && !math.IsInf(v.v, 0) {
			return mix64(uint64(int64(v.v))), nil
		}
		return mix64(math.Float64bits(v.v)), nil
	case *Str:
		return hashBytes([]byte(v.v)), nil
	case *Bytes:
		return hashBytes(v.v) ^ hashSeedBytes, nil
	case *Tuple:
		h := uint64(hashSeedTuple)
		for i := 0; i < v.Len(); i++ {
			eh, err := Hash(v.At(i))
			if err != nil {
				return 0, err
			}
			h = mix64(h ^ eh)
		}
		return h, nil
	case *FrozenSet:
		// XOR keeps the hash independent of insertion order.
		h := uint64(hashSeedSet)
		for i := 0; i < v.Len(); i++ {
			eh, err := Hash(v.At(i))
			if err != nil {
				return 0, err
			}
			h ^= mix64(eh)
		}
		return h, nil
	case Identifiable:
		// Types, funcs, methods, instances: hashable by identity.
		switch obj.(type) {
		case *Dict, *List, *Set, *ByteArray:
			return 0, &UnhashableError{TypeName: obj.Type().Name()}
		}
		return mix64(v.ID()), nil
	default:
		return 0, &UnhashableError{TypeName: obj.Type().Name()}
	}
}

// hashBytes is FNV-1a folded through a final avalanche.
func hashBytes(b []byte) uint64 {
	const (
		offset = 0xcbf29ce484222325
		prime  = 0x100000001b3
	)
	h := uint64(offset)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime
	}
	return mix64(h)
}

// mix64 is the SplitMix64 finalizer, the same avalanche the memo table
// applies to identity handles.
func mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Equal reports structural equality. Atoms compare by value (ints and
// floats cross-compare numerically), sequences element-wise, sets by
// mutual membership, dicts entry-wise; everything else compares by
// identity. Equal does not guard against cycles: comparing two cyclic
// graphs is the caller's responsibility to avoid.
func Equal(a, b Object) bool {
	if a == b {
		return true
	}
	switch av := a.(type) {
	case noneObject:
		_, ok := b.(noneObject)
		return ok
	case *Bool:
		bv, ok := b.(*Bool)
		return ok && av.v == bv.v
	case *Int:
		switch bv := b.(type) {
		case *Int:
			return av.v == bv.v
		case *Float:
			return float64(av.v) == bv.v
		}
		return false
	case *Float:
		switch bv := b.(type) {
		case *Float:
			return av.v == bv.v
		case *Int:
			return av.v == float64(bv.v)
		}
		return false
	case *Str:
		bv, ok := b.(*Str)
		return ok && av.v == bv.v
	case *Bytes:
		bv, ok := b.(*Bytes)
		return ok && bytes.Equal(av.v, bv.v)
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && seqEqual(av.Len(), bv.Len(), av.At, bv.At)
	case *List:
		bv, ok := b.(*List)
		return ok && seqEqual(av.Len(), bv.Len(), av.At, bv.At)
	case *ByteArray:
		bv, ok := b.(*ByteArray)
		return ok && bytes.Equal(av.data, bv.data)
	case *Set:
		bv, ok := b.(*Set)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		return setSubset(av.Len(), av.At, bv.Contains)
	case *FrozenSet:
		bv, ok := b.(*FrozenSet)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		return setSubset(av.Len(), av.At, bv.Contains)
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			k, v := av.At(i)
			other, found, err := bv.Get(k)
			if err != nil || !found || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func seqEqual(la, lb int, at, bt func(int) Object) bool {
	if la != lb {
		return false
	}
	for i := 0; i < la; i++ {
		if !Equal(at(i), bt(i)) {
			return false
		}
	}
	return true
}

func setSubset(n int, at func(int) Object, contains func(Object) (bool, error)) bool {
	for i := 0; i < n; i++ {
		found, err := contains(at(i))
		if err != nil || !found {
			return false
		}
	}
	return true
}
