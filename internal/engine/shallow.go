package engine

import (
	"fmt"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

// shallowClone copies root one level deep: a fresh container of the same
// kind whose elements are shared with the original. Immutable kinds come
// back as themselves. No memo is involved; there is no recursion to alias.
func (e *Engine) shallowClone(root object.Object) (object.Object, error) {
	switch v := root.(type) {
	case *object.Dict:
		result := object.NewDictSized(v.Len())
		for i := 0; i < v.Len(); i++ {
			key, value := v.At(i)
			if err := result.SetItem(key, value); err != nil {
				return nil, err
			}
		}
		return result, nil

	case *object.List:
		result := object.NewListSized(v.Len())
		for i := 0; i < v.Len(); i++ {
			if err := result.Append(v.At(i)); err != nil {
				return nil, err
			}
		}
		return result, nil

	case *object.Tuple, *object.FrozenSet:
		// Immutable aggregates share with a shallow copy everything they
		// could share with the original; return the original.
		return root, nil

	case *object.Set:
		elems := make([]object.Object, v.Len())
		for i := range elems {
			elems[i] = v.At(i)
		}
		return object.NewSet(elems...)

	case *object.ByteArray:
		return object.NewByteArray(v.Bytes()), nil

	case *object.BoundMethod:
		return root, nil
	}

	if classify(root) == kindAtomic {
		return root, nil
	}

	if copier, ok := root.(object.ShallowCopier); ok {
		result, err := copier.Copy()
		if err != nil {
			return nil, klonerrors.NewHookError("Copy", typeName(root), err)
		}
		return result, nil
	}

	if reduction, ok, err := e.decomposeShallow(root); ok {
		if err != nil {
			return nil, err
		}
		return e.reconstructShallow(root, reduction)
	}

	if inst, ok := root.(*object.Instance); ok {
		result := object.NewInstance(inst.Type())
		attrs := inst.Attrs()
		for i := 0; i < attrs.Len(); i++ {
			key, value := attrs.At(i)
			if err := result.Attrs().SetItem(key, value); err != nil {
				return nil, err
			}
		}
		for _, name := range inst.SlotNames() {
			if value, ok := inst.GetAttr(name); ok {
				if err := result.SetAttr(name, value); err != nil {
					return nil, err
				}
			}
		}
		return result, nil
	}

	return nil, klonerrors.NewUncopyableError(typeName(root))
}

// decomposeShallow runs the same decomposition ladder as the deep path:
// registered reducer, then ReduceEx, then Reduce. ok=false means the object
// has no decomposition surface at all.
func (e *Engine) decomposeShallow(root object.Object) (object.Object, bool, error) {
	var reduction object.Object
	var err error
	if e.reducers != nil {
		if reducer, found := e.reducers.Lookup(root.Type()); found {
			reduction, err = reducer(root)
			if err != nil {
				return nil, true, klonerrors.NewDecompositionError(typeName(root), err)
			}
			return reduction, true, nil
		}
	}
	if rex, ok := root.(object.ReducerEx); ok {
		reduction, err = rex.ReduceEx(reduceProtocol)
	} else if red, ok := root.(object.Reducer); ok {
		reduction, err = red.Reduce()
	} else {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, klonerrors.NewDecompositionError(typeName(root), err)
	}
	return reduction, true, nil
}

// reconstructShallow rebuilds from a decomposition without cloning anything:
// args, state, and item streams are handed over shared. There is no memo to
// consult since nothing recurses.
func (e *Engine) reconstructShallow(root object.Object, reduction object.Object) (object.Object, error) {
	d, err := parseReduction(root, reduction)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return root, nil
	}

	args := make([]object.Object, d.args.Len())
	for i := range args {
		args[i] = d.args.At(i)
	}
	result, err := d.constructor.Call(args...)
	if err != nil {
		return nil, klonerrors.NewReconstructionError(typeName(root), err)
	}

	if d.state != nil {
		if err := applyState(result, d.state); err != nil {
			e.log.Warnf("Skipping state application during reconstruction of %s: %v", typeName(root), err)
		}
	}
	if d.seqItems != nil {
		appender, ok := result.(object.Appender)
		if !ok {
			return nil, klonerrors.NewReconstructionError(typeName(result),
				fmt.Errorf("reduction carries sequence items but object has no Append surface"))
		}
		it := d.seqItems.Iterate()
		for {
			item, done, err := it.Next()
			if err != nil {
				return nil, klonerrors.NewReconstructionError(typeName(root), err)
			}
			if done {
				break
			}
			if err := appender.Append(item); err != nil {
				e.log.Warnf("Skipping item during append reconstruction of %s: %v", typeName(root), err)
			}
		}
	}
	if d.mapItems != nil {
		setter, ok := result.(object.ItemSetter)
		if !ok {
			return nil, klonerrors.NewReconstructionError(typeName(result),
				fmt.Errorf("reduction carries mapping items but object has no SetItem surface"))
		}
		it := d.mapItems.Iterate()
		for {
			item, done, err := it.Next()
			if err != nil {
				return nil, klonerrors.NewReconstructionError(typeName(root), err)
			}
			if done {
				break
			}
			pair, ok := item.(*object.Tuple)
			if !ok || pair.Len() != 2 {
				e.log.Warnf("Skipping item during set_item reconstruction of %s: item is not a 2-tuple", typeName(root))
				continue
			}
			if err := setter.SetItem(pair.At(0), pair.At(1)); err != nil {
				e.log.Warnf("Skipping item during set_item reconstruction of %s: %v", typeName(root), err)
			}
		}
	}
	return result, nil
}
