package engine

import (
	"context"

	klon "github.com/klon-labs/klon/pkg/klon/v1"
	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/object"

	"github.com/klon-labs/klon/internal/memo"
)

// ctxCheckInterval controls how often the walker polls for cancellation,
// in visited nodes.
const ctxCheckInterval = 256

// walker carries the state of one deep-copy operation: either a pooled
// session or a caller-supplied external memo, the depth guard, and the
// operation's counters. A walker is single-goroutine.
type walker struct {
	engine  *Engine
	ctx     context.Context
	session *memo.Session // pooled path; nil when ext is set
	ext     klon.Memo     // external-memo path; nil when session is set

	maxDepth int
	depth    int

	nodes    int
	memoHits int

	opID string
	op   string

	// usedHook is set once a DeepCopy hook has seen the engine callback.
	// The callback reaches the session memo, so the session is tainted.
	usedHook bool
}

// walker is the Cloner handed to DeepCopy hooks.
var _ object.Cloner = (*walker)(nil)

// Clone implements object.Cloner for re-entrant hooks.
func (w *walker) Clone(obj object.Object) (object.Object, error) {
	return w.clone(obj)
}

func (w *walker) lookup(id, hash uint64) (object.Object, bool) {
	if w.ext != nil {
		v, ok := w.ext[id]
		return v, ok
	}
	return w.session.Table.Lookup(id, hash)
}

// register records clone as the copy of the original with the given
// identity, pinning the original for the rest of the operation. Always
// called before recursing into the original's children.
func (w *walker) register(original object.Object, id, hash uint64, clone object.Object) {
	if w.ext != nil {
		w.ext[id] = clone
		return
	}
	w.session.Table.Insert(id, clone, hash)
	w.session.Keep.Append(original)
}

// clone dispatches one node. The identity hash is computed exactly once
// here and threaded into the lookup and the cloner's register call.
func (w *walker) clone(obj object.Object) (object.Object, error) {
	if obj == nil {
		return object.None, nil
	}
	k := classify(obj)
	if k == kindAtomic {
		return obj, nil
	}

	w.nodes++
	if w.nodes%ctxCheckInterval == 0 {
		if err := w.ctx.Err(); err != nil {
			return nil, err
		}
	}

	w.depth++
	defer func() { w.depth-- }()
	if w.depth > w.maxDepth {
		return nil, klonerrors.NewDepthExceededError(w.maxDepth)
	}

	id, ok := object.Identity(obj)
	if !ok {
		// No identity means no aliasing to preserve; treat as a leaf.
		return obj, nil
	}
	hash := memo.HashIdentity(id)
	if hit, found := w.lookup(id, hash); found {
		w.memoHits++
		return hit, nil
	}

	switch k {
	case kindDict:
		return w.cloneDict(obj.(*object.Dict), id, hash)
	case kindList:
		return w.cloneList(obj.(*object.List), id, hash)
	case kindTuple:
		return w.cloneTuple(obj.(*object.Tuple), id, hash)
	case kindSet:
		return w.cloneSet(obj.(*object.Set), id, hash)
	case kindFrozenSet:
		return w.cloneFrozenSet(obj.(*object.FrozenSet), id, hash)
	case kindByteArray:
		return w.cloneByteArray(obj.(*object.ByteArray), id, hash)
	case kindMethod:
		return w.cloneMethod(obj.(*object.BoundMethod), id, hash)
	default:
		return w.cloneOpaque(obj, id, hash)
	}
}

// cloneDict registers an empty result before touching any entry, so that a
// value reaching back to the dict resolves to the clone under construction.
func (w *walker) cloneDict(d *object.Dict, id, hash uint64) (object.Object, error) {
	result := object.NewDictSized(d.Len())
	w.register(d, id, hash, result)

	for i := 0; i < d.Len(); i++ {
		key, value := d.At(i)
		clonedKey, err := w.clone(key)
		if err != nil {
			return nil, err
		}
		clonedValue, err := w.clone(value)
		if err != nil {
			return nil, err
		}
		if err := result.SetItem(clonedKey, clonedValue); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (w *walker) cloneList(l *object.List, id, hash uint64) (object.Object, error) {
	result := object.NewListSized(l.Len())
	w.register(l, id, hash, result)

	for i := 0; i < l.Len(); i++ {
		item, err := w.clone(l.At(i))
		if err != nil {
			return nil, err
		}
		if err := result.Append(item); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// cloneTuple clones children into a staging slice first: a tuple cannot be
// mutated after construction, so there is nothing to register up front.
// When every child came back shared, the original is returned unregistered.
// Otherwise the memo is consulted once more: a cycle through the children
// may already have produced and registered this tuple's clone, and that
// clone wins so the cycle stays closed.
func (w *walker) cloneTuple(t *object.Tuple, id, hash uint64) (object.Object, error) {
	n := t.Len()
	staged := make([]object.Object, n)
	allShared := true
	for i := 0; i < n; i++ {
		item := t.At(i)
		cloned, err := w.clone(item)
		if err != nil {
			return nil, err
		}
		if cloned != item {
			allShared = false
		}
		staged[i] = cloned
	}

	if allShared {
		return t, nil
	}
	if hit, found := w.lookup(id, hash); found {
		return hit, nil
	}

	result := object.NewTuple(staged...)
	w.register(t, id, hash, result)
	return result, nil
}

// cloneSet iterates a snapshot of the element slice taken before the result
// is registered, so a hook mutating the original mid-walk cannot skew the
// iteration.
func (w *walker) cloneSet(s *object.Set, id, hash uint64) (object.Object, error) {
	snapshot := make([]object.Object, s.Len())
	for i := range snapshot {
		snapshot[i] = s.At(i)
	}

	result, err := object.NewSet()
	if err != nil {
		return nil, err
	}
	w.register(s, id, hash, result)

	for _, elem := range snapshot {
		cloned, cloneErr := w.clone(elem)
		if cloneErr != nil {
			return nil, cloneErr
		}
		if addErr := result.Add(cloned); addErr != nil {
			return nil, addErr
		}
	}
	return result, nil
}

// cloneFrozenSet builds through a staging slice: the result has to be
// constructed in one shot, since frozensets reject mutation.
func (w *walker) cloneFrozenSet(fs *object.FrozenSet, id, hash uint64) (object.Object, error) {
	staged := make([]object.Object, fs.Len())
	for i := range staged {
		cloned, err := w.clone(fs.At(i))
		if err != nil {
			return nil, err
		}
		staged[i] = cloned
	}

	if hit, found := w.lookup(id, hash); found {
		return hit, nil
	}

	result, err := object.NewFrozenSet(staged...)
	if err != nil {
		return nil, err
	}
	w.register(fs, id, hash, result)
	return result, nil
}

// cloneByteArray copies the byte payload. There are no children to recurse
// into; registering the result is all the bookkeeping needed.
func (w *walker) cloneByteArray(b *object.ByteArray, id, hash uint64) (object.Object, error) {
	result := object.NewByteArray(b.Bytes())
	w.register(b, id, hash, result)
	return result, nil
}

// cloneMethod shares the function and deep-copies the receiver. A method
// over an atomic receiver comes back as the original.
func (w *walker) cloneMethod(m *object.BoundMethod, id, hash uint64) (object.Object, error) {
	receiver, err := w.clone(m.Receiver())
	if err != nil {
		return nil, err
	}
	if receiver == m.Receiver() {
		return m, nil
	}
	result := object.NewBoundMethod(m.Func(), receiver)
	w.register(m, id, hash, result)
	return result, nil
}
