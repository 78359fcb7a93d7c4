package memo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

func TestTable_LazyAllocation(t *testing.T) {
	var tbl Table
	assert.Equal(t, 0, tbl.Cap(), "zero table must not hold slots")

	_, ok := tbl.Lookup(42, HashIdentity(42))
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Cap(), "lookup on empty table must not allocate")

	tbl.Insert(42, object.None, HashIdentity(42))
	assert.Equal(t, initialSlots, tbl.Cap())
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_InsertLookup(t *testing.T) {
	var tbl Table
	vals := make(map[uint64]object.Object)
	for i := uint64(1); i <= 500; i++ {
		v := object.NewInt(int64(i))
		vals[i] = v
		tbl.Insert(i, v, HashIdentity(i))
	}
	require.Equal(t, 500, tbl.Len())

	for i := uint64(1); i <= 500; i++ {
		got, ok := tbl.Lookup(i, HashIdentity(i))
		require.True(t, ok, "key %d", i)
		assert.Same(t, vals[i], got)
	}
	_, ok := tbl.Lookup(501, HashIdentity(501))
	assert.False(t, ok)
}

func TestTable_InsertUpdatesInPlace(t *testing.T) {
	var tbl Table
	h := HashIdentity(7)
	tbl.Insert(7, object.True, h)
	tbl.Insert(7, object.False, h)

	assert.Equal(t, 1, tbl.Len())
	got, ok := tbl.Lookup(7, h)
	require.True(t, ok)
	assert.Same(t, object.False, got)
}

func TestTable_TombstoneDoesNotTerminateProbe(t *testing.T) {
	var tbl Table
	// Force a crowded neighborhood, then punch a hole in the middle of a
	// probe chain and verify keys past the hole stay reachable.
	for i := uint64(1); i <= 64; i++ {
		tbl.Insert(i, object.NewInt(int64(i)), HashIdentity(i))
	}
	require.True(t, tbl.Remove(10))
	_, ok := tbl.Lookup(10, HashIdentity(10))
	assert.False(t, ok)

	for i := uint64(1); i <= 64; i++ {
		if i == 10 {
			continue
		}
		_, ok := tbl.Lookup(i, HashIdentity(i))
		assert.True(t, ok, "key %d unreachable after tombstone", i)
	}
}

func TestTable_TombstoneReuse(t *testing.T) {
	var tbl Table
	for i := uint64(1); i <= 16; i++ {
		tbl.Insert(i, object.None, HashIdentity(i))
	}
	filledBefore := tbl.filled
	require.True(t, tbl.Remove(5))
	tbl.Insert(5, object.True, HashIdentity(5))

	got, ok := tbl.Lookup(5, HashIdentity(5))
	require.True(t, ok)
	assert.Same(t, object.True, got)
	assert.Equal(t, filledBefore, tbl.filled, "re-insert must reuse the tombstone slot")
}

func TestTable_GrowthPreservesEntries(t *testing.T) {
	var tbl Table
	const n = 10000
	for i := uint64(1); i <= n; i++ {
		tbl.Insert(i, object.NewInt(int64(i)), HashIdentity(i))
	}
	assert.Equal(t, n, tbl.Len())
	assert.GreaterOrEqual(t, tbl.Cap()*loadFactorNum, tbl.Len()*loadFactorDen,
		"load factor bound violated after growth")

	for i := uint64(1); i <= n; i++ {
		got, ok := tbl.Lookup(i, HashIdentity(i))
		require.True(t, ok, "key %d lost during growth", i)
		require.Equal(t, int64(i), got.(*object.Int).Value())
	}
}

func TestTable_ClearRetainsCapacity(t *testing.T) {
	var tbl Table
	for i := uint64(1); i <= 1000; i++ {
		tbl.Insert(i, object.None, HashIdentity(i))
	}
	capBefore := tbl.Cap()
	tbl.Clear()

	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, capBefore, tbl.Cap())
	_, ok := tbl.Lookup(1, HashIdentity(1))
	assert.False(t, ok)
}

func TestTable_ShrinkIfLarge(t *testing.T) {
	var tbl Table
	for i := uint64(1); tbl.Cap() <= tableRetainMaxSlots; i++ {
		tbl.Insert(i, object.None, HashIdentity(i))
	}
	tbl.Clear()
	tbl.ShrinkIfLarge()
	assert.Equal(t, tableShrinkToSlots, tbl.Cap())

	// Below the high-water mark the capacity is left alone.
	tbl.ShrinkIfLarge()
	assert.Equal(t, tableShrinkToSlots, tbl.Cap())
}

func TestTable_ShrinkKeepsLiveEntries(t *testing.T) {
	var tbl Table
	var last uint64
	for tbl.Cap() <= tableRetainMaxSlots {
		last++
		tbl.Insert(last, object.NewInt(int64(last)), HashIdentity(last))
	}
	tbl.ShrinkIfLarge()
	for i := uint64(1); i <= last; i++ {
		_, ok := tbl.Lookup(i, HashIdentity(i))
		require.True(t, ok, "key %d lost during shrink", i)
	}
}

func TestHashIdentity_Avalanche(t *testing.T) {
	// Sequential handles must not collide in the low bits the mask selects.
	seen := make(map[uint64]uint64)
	for i := uint64(1); i <= 4096; i++ {
		h := HashIdentity(i)
		low := h & 0xfff
		if prev, dup := seen[low]; dup {
			t.Logf("low-bit collision between %d and %d", prev, i)
		}
		seen[low] = i
	}
	// A perfect avalanche will still collide occasionally; just require that
	// the distribution is far from degenerate.
	assert.Greater(t, len(seen), 2048)
	assert.NotEqual(t, HashIdentity(1), HashIdentity(2))
	assert.NotZero(t, HashIdentity(1))
}

func BenchmarkTableInsertLookup(b *testing.B) {
	for _, n := range []int{64, 4096, 262144} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var tbl Table
				for k := uint64(1); k <= uint64(n); k++ {
					h := HashIdentity(k)
					tbl.Insert(k, object.None, h)
					if _, ok := tbl.Lookup(k, h); !ok {
						b.Fatal("lost key")
					}
				}
			}
		})
	}
}
