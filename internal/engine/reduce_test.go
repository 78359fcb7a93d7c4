package engine_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klon-labs/klon/internal/dispatch"
	intEvents "github.com/klon-labs/klon/internal/events"
	"github.com/klon-labs/klon/internal/logger"
	klon "github.com/klon-labs/klon/pkg/klon/v1"
	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/events"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

// box is a reducible test type: it reconstructs through its type's
// constructor and restores its payload through SetState.
type box struct {
	id    uint64
	state object.Object
}

var boxType = object.NewType("box", func(args ...object.Object) (object.Object, error) {
	return newBox(nil), nil
})

func newBox(state object.Object) *box {
	return &box{id: object.NewID(), state: state}
}

func (b *box) Type() *object.Type { return boxType }
func (b *box) ID() uint64         { return b.id }

func (b *box) ReduceEx(protocol int) (object.Object, error) {
	return object.NewTuple(boxType, object.NewTuple(), b.state), nil
}

func (b *box) SetState(state object.Object) error {
	b.state = state
	return nil
}

func TestReduce_RoundTrip(t *testing.T) {
	e := newTestEngine(t)

	payload := object.NewList(object.NewInt(1), object.NewInt(2))
	b := newBox(payload)

	got, err := e.Clone(context.Background(), b)
	require.NoError(t, err)

	clone, ok := got.(*box)
	require.True(t, ok)
	assert.NotSame(t, b, clone)
	assert.NotSame(t, payload, clone.state, "state must be deep-copied before SetState")
	assert.True(t, object.Equal(payload, clone.state.(*object.List)))
}

func TestReduce_SelfReferentialState(t *testing.T) {
	e := newTestEngine(t)

	b := newBox(nil)
	holder := object.NewList(b)
	b.state = holder

	got, err := e.Clone(context.Background(), b)
	require.NoError(t, err)

	clone := got.(*box)
	clonedHolder := clone.state.(*object.List)
	assert.Same(t, clone, clonedHolder.At(0),
		"the clone must be registered before its state is walked")
}

func TestReduce_AliasingThroughReduce(t *testing.T) {
	e := newTestEngine(t)

	shared := object.NewList(object.NewInt(5))
	b := newBox(shared)
	root := object.NewList(b, shared)

	got, err := e.Clone(context.Background(), root)
	require.NoError(t, err)

	clone := got.(*object.List)
	clonedBox := clone.At(0).(*box)
	assert.Same(t, clonedBox.state, clone.At(1),
		"state cloned through the reduce path must share the operation memo")
}

// strReducer reduces to a string, signalling an immutable to reuse.
type strReducer struct{ id uint64 }

var strReducerType = object.NewType("str_reducer", nil)

func (s *strReducer) Type() *object.Type { return strReducerType }
func (s *strReducer) ID() uint64         { return s.id }
func (s *strReducer) ReduceEx(protocol int) (object.Object, error) {
	return object.NewStr("immutable"), nil
}

func TestReduce_StringReductionReusesOriginal(t *testing.T) {
	e := newTestEngine(t)

	s := &strReducer{id: object.NewID()}
	got, err := e.Clone(context.Background(), s)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

// arityReducer reduces to a tuple of configurable arity.
type arityReducer struct {
	id    uint64
	arity int
}

var arityReducerType = object.NewType("arity_reducer", nil)

func (a *arityReducer) Type() *object.Type { return arityReducerType }
func (a *arityReducer) ID() uint64         { return a.id }
func (a *arityReducer) ReduceEx(protocol int) (object.Object, error) {
	slots := make([]object.Object, a.arity)
	slots[0] = boxType
	for i := 1; i < a.arity; i++ {
		slots[i] = object.None
	}
	if a.arity >= 2 {
		slots[1] = object.NewTuple()
	}
	return object.NewTuple(slots...), nil
}

func TestReduce_ArityValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t.Run("arity above five is a protocol violation", func(t *testing.T) {
		a := &arityReducer{id: object.NewID(), arity: 6}
		_, err := e.Clone(ctx, a)
		require.Error(t, err)
		var pv *klonerrors.ProtocolViolationError
		require.ErrorAs(t, err, &pv)
		assert.Equal(t, 6, pv.Arity)
	})

	t.Run("arity below two reuses the original", func(t *testing.T) {
		a := &arityReducer{id: object.NewID(), arity: 1}
		got, err := e.Clone(ctx, a)
		require.NoError(t, err)
		assert.Same(t, a, got)
	})
}

// failingCtorValue reconstructs through a constructor that always fails.
var errCtorBroken = errors.New("constructor exploded")

var failingCtorType = object.NewType("failing", func(args ...object.Object) (object.Object, error) {
	return nil, errCtorBroken
})

type failingCtorValue struct{ id uint64 }

func (f *failingCtorValue) Type() *object.Type { return failingCtorType }
func (f *failingCtorValue) ID() uint64         { return f.id }
func (f *failingCtorValue) ReduceEx(protocol int) (object.Object, error) {
	return object.NewTuple(failingCtorType, object.NewTuple()), nil
}

func TestReduce_ConstructorErrorPropagatesVerbatim(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Clone(context.Background(), &failingCtorValue{id: object.NewID()})
	require.Error(t, err)
	var re *klonerrors.ReconstructionError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, errCtorBroken, "the constructor's error must survive unwrapped")
}

func TestReduce_DispatchRegistryTakesPrecedence(t *testing.T) {
	reg := dispatch.NewRegistry()
	require.NoError(t, reg.Register(boxType, func(obj object.Object) (object.Object, error) {
		// Copy-as-is: the registry overrides the box's own ReduceEx.
		return obj, nil
	}))

	e := newTestEngine(t)
	require.NoError(t, e.SetDispatchRegistry(reg))

	b := newBox(object.NewList(object.NewInt(1)))
	got, err := e.Clone(context.Background(), b)
	require.NoError(t, err)
	assert.Same(t, b, got, "registry reducer must win over ReduceEx")
}

// collection reconstructs empty and refills through Append.
type collection struct {
	id    uint64
	items []object.Object
}

var collectionType = object.NewType("collection", func(args ...object.Object) (object.Object, error) {
	return &collection{id: object.NewID()}, nil
})

func (c *collection) Type() *object.Type { return collectionType }
func (c *collection) ID() uint64         { return c.id }

func (c *collection) ReduceEx(protocol int) (object.Object, error) {
	return object.NewTuple(collectionType, object.NewTuple(), object.None, object.NewList(c.items...)), nil
}

func (c *collection) Append(item object.Object) error {
	if s, ok := item.(*object.Str); ok && s.Value() == "poison" {
		return fmt.Errorf("refusing poison item")
	}
	c.items = append(c.items, item)
	return nil
}

func TestReduce_SeqItemsBestEffort(t *testing.T) {
	e := newTestEngine(t)

	c := &collection{id: object.NewID(), items: []object.Object{
		object.NewInt(1),
		object.NewStr("poison"),
		object.NewInt(3),
	}}

	got, err := e.Clone(context.Background(), c)
	require.NoError(t, err, "per-item failures must not fail the operation")

	clone := got.(*collection)
	require.Len(t, clone.items, 2, "the failing item is skipped, the rest survive")
	assert.Equal(t, int64(1), clone.items[0].(*object.Int).Value())
	assert.Equal(t, int64(3), clone.items[1].(*object.Int).Value())
}

// mapping reconstructs empty and refills through SetItem.
type mapping struct {
	id      uint64
	entries *object.Dict
}

var mappingType = object.NewType("mapping", func(args ...object.Object) (object.Object, error) {
	return &mapping{id: object.NewID(), entries: object.NewDict()}, nil
})

func (m *mapping) Type() *object.Type { return mappingType }
func (m *mapping) ID() uint64         { return m.id }

func (m *mapping) ReduceEx(protocol int) (object.Object, error) {
	return object.NewTuple(mappingType, object.NewTuple(), object.None, object.None, m.entries), nil
}

func (m *mapping) SetItem(key, value object.Object) error {
	return m.entries.SetItem(key, value)
}

func TestReduce_MapItems(t *testing.T) {
	e := newTestEngine(t)

	m := &mapping{id: object.NewID(), entries: object.NewDict()}
	payload := object.NewList(object.NewInt(9))
	require.NoError(t, m.entries.SetItem(object.NewStr("xs"), payload))

	got, err := e.Clone(context.Background(), m)
	require.NoError(t, err)

	clone := got.(*mapping)
	v, found, err := clone.entries.Get(object.NewStr("xs"))
	require.NoError(t, err)
	require.True(t, found)
	assert.NotSame(t, payload, v, "mapping values are deep-copied")
	assert.True(t, object.Equal(payload, v.(*object.List)))
}

// slotted restores through a two-element structural state.
type slotted struct {
	id    uint64
	attrs *object.Dict
	slots map[string]object.Object
}

var slottedType = object.NewType("slotted", func(args ...object.Object) (object.Object, error) {
	return &slotted{id: object.NewID(), attrs: object.NewDict(), slots: map[string]object.Object{}}, nil
})

func (s *slotted) Type() *object.Type { return slottedType }
func (s *slotted) ID() uint64         { return s.id }
func (s *slotted) Attrs() *object.Dict { return s.attrs }
func (s *slotted) SetAttr(name string, value object.Object) error {
	s.slots[name] = value
	return nil
}

func (s *slotted) ReduceEx(protocol int) (object.Object, error) {
	slotDict := object.NewDict()
	for name, value := range s.slots {
		if err := slotDict.SetItem(object.NewStr(name), value); err != nil {
			return nil, err
		}
	}
	return object.NewTuple(slottedType, object.NewTuple(), object.NewTuple(s.attrs, slotDict)), nil
}

func TestReduce_TwoElementStructuralState(t *testing.T) {
	e := newTestEngine(t)

	s := &slotted{id: object.NewID(), attrs: object.NewDict(), slots: map[string]object.Object{}}
	require.NoError(t, s.attrs.SetItem(object.NewStr("a"), object.NewInt(1)))
	s.slots["hidden"] = object.NewList(object.NewInt(2))

	got, err := e.Clone(context.Background(), s)
	require.NoError(t, err)

	clone := got.(*slotted)
	v, found, err := clone.attrs.Get(object.NewStr("a"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), v.(*object.Int).Value())

	hidden, ok := clone.slots["hidden"]
	require.True(t, ok)
	assert.NotSame(t, s.slots["hidden"], hidden, "slot values are deep-copied")
}

// badReducer returns a malformed reduction.
type badReducer struct{ id uint64 }

var badReducerType = object.NewType("bad_reducer", nil)

func (b *badReducer) Type() *object.Type { return badReducerType }
func (b *badReducer) ID() uint64         { return b.id }
func (b *badReducer) ReduceEx(protocol int) (object.Object, error) {
	return object.NewInt(42), nil
}

func TestReduce_MalformedReduction(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Clone(context.Background(), &badReducer{id: object.NewID()})
	require.Error(t, err)
	var de *klonerrors.DecompositionError
	assert.ErrorAs(t, err, &de)
}

// grumpyBox reduces like box but rejects every state restoration.
type grumpyBox struct {
	id    uint64
	state object.Object
}

var errStateRejected = errors.New("state rejected")

var grumpyBoxType = object.NewType("grumpy_box", func(args ...object.Object) (object.Object, error) {
	return &grumpyBox{id: object.NewID()}, nil
})

func (g *grumpyBox) Type() *object.Type { return grumpyBoxType }
func (g *grumpyBox) ID() uint64         { return g.id }

func (g *grumpyBox) ReduceEx(protocol int) (object.Object, error) {
	return object.NewTuple(grumpyBoxType, object.NewTuple(), g.state), nil
}

func (g *grumpyBox) SetState(state object.Object) error {
	return errStateRejected
}

func TestReduce_FailingSetStateSkipped(t *testing.T) {
	bus := intEvents.NewChannelEventBus(8, logger.NewLogger("error", "text", io.Discard))
	e := newTestEngine(t, klon.WithEventBus(bus))

	g := &grumpyBox{id: object.NewID(), state: object.NewList(object.NewInt(1))}
	got, err := e.Clone(context.Background(), g)
	require.NoError(t, err, "a failing state hook must not fail the operation")

	clone := got.(*grumpyBox)
	assert.NotSame(t, g, clone)
	assert.Nil(t, clone.state, "the rejected state stays unset")

	bus.Close()
	var sawStateFailure bool
	for ev := range bus.GetChannel() {
		if ev.Type == events.BestEffortFailure && ev.Payload["surface"] == "set_state" {
			sawStateFailure = true
		}
	}
	assert.True(t, sawStateFailure, "the skipped state must surface as a BestEffortFailure event")
}

func TestShallowClone_FailingSetStateSkipped(t *testing.T) {
	e := newTestEngine(t)

	g := &grumpyBox{id: object.NewID(), state: object.NewList(object.NewInt(1))}
	got, err := e.ShallowClone(context.Background(), g)
	require.NoError(t, err, "a failing state hook must not fail the operation")

	clone := got.(*grumpyBox)
	assert.NotSame(t, g, clone)
	assert.Nil(t, clone.state)
}
