package engine

import (
	"fmt"
	"time"

	"github.com/klon-labs/klon/pkg/klon/v1/events"
	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

// reduceProtocol is the protocol number passed to ReduceEx hooks.
const reduceProtocol = 4

// decomposition is a parsed, validated reduction tuple.
type decomposition struct {
	constructor object.Callable
	args        *object.Tuple
	state       object.Object
	seqItems    object.Iterable
	mapItems    object.Iterable
}

// cloneOpaque copies an object outside the native container set. The
// strategies, in order: the object's DeepCopy override, a registered
// reducer for its type, ReduceEx, Reduce, and for plain instances a
// structural field copy. An object matching none of them is uncopyable.
func (w *walker) cloneOpaque(obj object.Object, id, hash uint64) (object.Object, error) {
	if copier, ok := obj.(object.Copier); ok {
		w.usedHook = true
		result, err := copier.DeepCopy(w)
		if err != nil {
			return nil, klonerrors.NewHookError("DeepCopy", typeName(obj), err)
		}
		if result != obj {
			w.register(obj, id, hash, result)
		}
		return result, nil
	}

	var reduction object.Object
	var err error
	if reducer := w.reducerFor(obj); reducer != nil {
		reduction, err = reducer(obj)
	} else if rex, ok := obj.(object.ReducerEx); ok {
		reduction, err = rex.ReduceEx(reduceProtocol)
	} else if red, ok := obj.(object.Reducer); ok {
		reduction, err = red.Reduce()
	} else if inst, ok := obj.(*object.Instance); ok {
		return w.cloneInstance(inst, id, hash)
	} else {
		return nil, klonerrors.NewUncopyableError(typeName(obj))
	}
	if err != nil {
		return nil, klonerrors.NewDecompositionError(typeName(obj), err)
	}

	if w.engine.reduceFallbacks != nil {
		w.engine.reduceFallbacks.Inc()
	}
	return w.reconstruct(obj, id, hash, reduction)
}

func (w *walker) reducerFor(obj object.Object) func(object.Object) (object.Object, error) {
	if w.engine.reducers == nil {
		return nil
	}
	reducer, ok := w.engine.reducers.Lookup(obj.Type())
	if !ok {
		return nil
	}
	return reducer
}

// parseReduction validates a raw reduction value. A nil decomposition with
// a nil error means "reuse the original unchanged".
func parseReduction(obj object.Object, reduction object.Object) (*decomposition, error) {
	if reduction == obj {
		return nil, nil
	}
	switch reduction.(type) {
	case *object.Str, *object.Bytes:
		return nil, nil
	}

	tup, ok := reduction.(*object.Tuple)
	if !ok {
		return nil, klonerrors.NewDecompositionError(typeName(obj),
			fmt.Errorf("reduction must be a string, bytes, or tuple, got %s", typeName(reduction)))
	}
	arity := tup.Len()
	if arity > 5 {
		return nil, klonerrors.NewProtocolViolationError(typeName(obj), arity)
	}
	if arity < 2 {
		return nil, nil
	}

	d := &decomposition{}
	d.constructor, ok = tup.At(0).(object.Callable)
	if !ok {
		return nil, klonerrors.NewDecompositionError(typeName(obj),
			fmt.Errorf("reduction slot 0 must be callable, got %s", typeName(tup.At(0))))
	}
	switch args := tup.At(1).(type) {
	case *object.Tuple:
		d.args = args
	default:
		if args != object.None {
			return nil, klonerrors.NewDecompositionError(typeName(obj),
				fmt.Errorf("reduction slot 1 must be an argument tuple, got %s", typeName(tup.At(1))))
		}
		d.args = object.NewTuple()
	}
	if arity >= 3 && tup.At(2) != object.None {
		d.state = tup.At(2)
	}
	if arity >= 4 && tup.At(3) != object.None {
		iter, ok := tup.At(3).(object.Iterable)
		if !ok {
			return nil, klonerrors.NewDecompositionError(typeName(obj),
				fmt.Errorf("reduction slot 3 must be iterable, got %s", typeName(tup.At(3))))
		}
		d.seqItems = iter
	}
	if arity == 5 && tup.At(4) != object.None {
		iter, ok := tup.At(4).(object.Iterable)
		if !ok {
			return nil, klonerrors.NewDecompositionError(typeName(obj),
				fmt.Errorf("reduction slot 4 must be iterable, got %s", typeName(tup.At(4))))
		}
		d.mapItems = iter
	}
	return d, nil
}

// reconstruct rebuilds a copy from a reduction: clone the args, invoke the
// constructor, register the fresh object, then restore state and feed the
// item streams. Registration precedes state so self-references inside the
// state resolve to the clone. A failure to apply the cloned state is
// best-effort, like item failures: the clone is still returned.
func (w *walker) reconstruct(obj object.Object, id, hash uint64, reduction object.Object) (object.Object, error) {
	d, err := parseReduction(obj, reduction)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return obj, nil
	}

	args := make([]object.Object, d.args.Len())
	for i := range args {
		cloned, cloneErr := w.clone(d.args.At(i))
		if cloneErr != nil {
			return nil, cloneErr
		}
		args[i] = cloned
	}

	result, err := d.constructor.Call(args...)
	if err != nil {
		return nil, klonerrors.NewReconstructionError(typeName(obj), err)
	}

	w.register(obj, id, hash, result)

	if d.state != nil {
		clonedState, cloneErr := w.clone(d.state)
		if cloneErr != nil {
			return nil, cloneErr
		}
		if err := applyState(result, clonedState); err != nil {
			w.bestEffortFailure(obj, "set_state", err)
		}
	}
	if d.seqItems != nil {
		if err := w.applySeqItems(obj, result, d.seqItems); err != nil {
			return nil, err
		}
	}
	if d.mapItems != nil {
		if err := w.applyMapItems(obj, result, d.mapItems); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// applyState hands the state to the SetState hook when present, or
// interprets it structurally: a dict updates the attribute mapping; a
// 2-tuple carries (attribute dict, slot dict). The caller decides whether
// the state values are cloned or shared before passing them in.
func applyState(result object.Object, state object.Object) error {
	if setter, ok := result.(object.StateSetter); ok {
		if err := setter.SetState(state); err != nil {
			return klonerrors.NewHookError("SetState", typeName(result), err)
		}
		return nil
	}

	switch st := state.(type) {
	case *object.Dict:
		return applyAttrState(result, st)
	case *object.Tuple:
		if st.Len() != 2 {
			return klonerrors.NewReconstructionError(typeName(result),
				fmt.Errorf("structural state tuple must have 2 slots, got %d", st.Len()))
		}
		if attrState, ok := st.At(0).(*object.Dict); ok {
			if err := applyAttrState(result, attrState); err != nil {
				return err
			}
		} else if st.At(0) != object.None {
			return klonerrors.NewReconstructionError(typeName(result),
				fmt.Errorf("structural state slot 0 must be a dict, got %s", typeName(st.At(0))))
		}
		if slotState, ok := st.At(1).(*object.Dict); ok {
			return applySlotState(result, slotState)
		} else if st.At(1) != object.None {
			return klonerrors.NewReconstructionError(typeName(result),
				fmt.Errorf("structural state slot 1 must be a dict, got %s", typeName(st.At(1))))
		}
		return nil
	default:
		return klonerrors.NewReconstructionError(typeName(result),
			fmt.Errorf("cannot interpret state of type %s without a SetState hook", typeName(state)))
	}
}

func applyAttrState(result object.Object, attrs *object.Dict) error {
	if holder, ok := result.(object.AttrHolder); ok {
		return holder.Attrs().Update(attrs)
	}
	if setter, ok := result.(object.AttrSetter); ok {
		for i := 0; i < attrs.Len(); i++ {
			key, value := attrs.At(i)
			name, ok := key.(*object.Str)
			if !ok {
				return klonerrors.NewReconstructionError(typeName(result),
					fmt.Errorf("attribute name must be a string, got %s", typeName(key)))
			}
			if err := setter.SetAttr(name.Value(), value); err != nil {
				return klonerrors.NewHookError("SetAttr", typeName(result), err)
			}
		}
		return nil
	}
	return klonerrors.NewReconstructionError(typeName(result),
		fmt.Errorf("object exposes no attribute surface for dict state"))
}

func applySlotState(result object.Object, slots *object.Dict) error {
	setter, ok := result.(object.AttrSetter)
	if !ok {
		return klonerrors.NewReconstructionError(typeName(result),
			fmt.Errorf("object exposes no attribute surface for slot state"))
	}
	for i := 0; i < slots.Len(); i++ {
		key, value := slots.At(i)
		name, ok := key.(*object.Str)
		if !ok {
			return klonerrors.NewReconstructionError(typeName(result),
				fmt.Errorf("slot name must be a string, got %s", typeName(key)))
		}
		if err := setter.SetAttr(name.Value(), value); err != nil {
			return klonerrors.NewHookError("SetAttr", typeName(result), err)
		}
	}
	return nil
}

// applySeqItems feeds the sequence-item stream into the result's Append
// surface. Per-item failures are logged and skipped; the absence of the
// surface itself is fatal.
func (w *walker) applySeqItems(original, result object.Object, items object.Iterable) error {
	appender, ok := result.(object.Appender)
	if !ok {
		return klonerrors.NewReconstructionError(typeName(result),
			fmt.Errorf("reduction carries sequence items but object has no Append surface"))
	}

	it := items.Iterate()
	for {
		item, done, err := it.Next()
		if err != nil {
			return klonerrors.NewReconstructionError(typeName(original), err)
		}
		if done {
			return nil
		}
		cloned, err := w.clone(item)
		if err != nil {
			w.bestEffortFailure(original, "append", err)
			continue
		}
		if err := appender.Append(cloned); err != nil {
			w.bestEffortFailure(original, "append", err)
		}
	}
}

// applyMapItems feeds (key, value) pairs into the result's SetItem surface.
// Per-item failures are logged and skipped.
func (w *walker) applyMapItems(original, result object.Object, items object.Iterable) error {
	setter, ok := result.(object.ItemSetter)
	if !ok {
		return klonerrors.NewReconstructionError(typeName(result),
			fmt.Errorf("reduction carries mapping items but object has no SetItem surface"))
	}

	it := items.Iterate()
	for {
		item, done, err := it.Next()
		if err != nil {
			return klonerrors.NewReconstructionError(typeName(original), err)
		}
		if done {
			return nil
		}
		pair, ok := item.(*object.Tuple)
		if !ok || pair.Len() != 2 {
			w.bestEffortFailure(original, "set_item", fmt.Errorf("mapping item is not a 2-tuple"))
			continue
		}
		key, err := w.clone(pair.At(0))
		if err != nil {
			w.bestEffortFailure(original, "set_item", err)
			continue
		}
		value, err := w.clone(pair.At(1))
		if err != nil {
			w.bestEffortFailure(original, "set_item", err)
			continue
		}
		if err := setter.SetItem(key, value); err != nil {
			w.bestEffortFailure(original, "set_item", err)
		}
	}
}

// bestEffortFailure records a skipped item: WARN log, counter, event.
func (w *walker) bestEffortFailure(original object.Object, surface string, err error) {
	w.engine.log.Warnf("Skipping item during %s reconstruction of %s: %v", surface, typeName(original), err)
	if w.engine.bestEffortCounter != nil {
		w.engine.bestEffortCounter.Inc()
	}
	w.engine.eventBus.Emit(events.Event{
		Type:        events.BestEffortFailure,
		Timestamp:   time.Now(),
		OperationID: w.opID,
		Operation:   w.op,
		RootType:    typeName(original),
		Payload:     map[string]interface{}{"surface": surface, "error": err.Error()},
	})
}

// cloneInstance is the structural fallback for plain instances without any
// copy or reduce hook: same type, deep-copied attributes and slots.
func (w *walker) cloneInstance(inst *object.Instance, id, hash uint64) (object.Object, error) {
	result := object.NewInstance(inst.Type())
	w.register(inst, id, hash, result)

	attrs := inst.Attrs()
	for i := 0; i < attrs.Len(); i++ {
		key, value := attrs.At(i)
		clonedKey, err := w.clone(key)
		if err != nil {
			return nil, err
		}
		clonedValue, err := w.clone(value)
		if err != nil {
			return nil, err
		}
		if err := result.Attrs().SetItem(clonedKey, clonedValue); err != nil {
			return nil, err
		}
	}

	for _, name := range inst.SlotNames() {
		value, ok := inst.GetAttr(name)
		if !ok {
			continue
		}
		cloned, err := w.clone(value)
		if err != nil {
			return nil, err
		}
		if err := result.SetAttr(name, cloned); err != nil {
			return nil, err
		}
	}
	return result, nil
}
