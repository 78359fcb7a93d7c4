package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

func TestRetention_AppendClear(t *testing.T) {
	var r Retention
	a, b := object.NewStr("a"), object.NewStr("b")
	r.Append(a)
	r.Append(b)
	require.Equal(t, 2, r.Len())
	assert.Same(t, a, r.At(0))
	assert.Same(t, b, r.At(1))

	capBefore := r.Cap()
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, capBefore, r.Cap(), "clear must retain capacity")
}

func TestRetention_ShrinkIfLarge(t *testing.T) {
	var r Retention
	for i := 0; i <= retentionRetainMax; i++ {
		r.Append(object.None)
	}
	require.Greater(t, r.Cap(), retentionRetainMax)

	r.Clear()
	r.ShrinkIfLarge()
	assert.Equal(t, retentionShrinkTo, r.Cap())

	// Under the high-water mark the buffer is left alone.
	before := r.Cap()
	r.ShrinkIfLarge()
	assert.Equal(t, before, r.Cap())
}

func TestRetention_ShrinkPreservesContents(t *testing.T) {
	var r Retention
	for i := 0; i <= retentionRetainMax; i++ {
		r.Append(object.NewInt(int64(i)))
	}
	r.ShrinkIfLarge()
	require.Equal(t, retentionRetainMax+1, r.Len())
	assert.Equal(t, int64(0), r.At(0).(*object.Int).Value())
	assert.Equal(t, int64(retentionRetainMax), r.At(retentionRetainMax).(*object.Int).Value())
}

func TestPool_RecyclesClearedSessions(t *testing.T) {
	p := NewPool()
	s := p.Acquire()
	s.Table.Insert(1, object.None, HashIdentity(1))
	s.Keep.Append(object.None)

	assert.True(t, p.Release(s))
	// Whatever session comes back next must be empty.
	s2 := p.Acquire()
	assert.Equal(t, 0, s2.Table.Len())
	assert.Equal(t, 0, s2.Keep.Len())
	assert.False(t, s2.Exposed())
}

func TestPool_AbandonsExposedSessions(t *testing.T) {
	p := NewPool()
	s := p.Acquire()
	s.Table.Insert(1, object.True, HashIdentity(1))
	s.MarkExposed()

	assert.False(t, p.Release(s), "exposed sessions must not be recycled")
	// The abandoned session's table is untouched: the caller may still hold it.
	got, ok := s.Table.Lookup(1, HashIdentity(1))
	require.True(t, ok)
	assert.Same(t, object.True, got)
}
