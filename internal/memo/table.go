// Package memo implements the per-operation working set of the KLON engine:
// the identity-keyed memo table that preserves aliasing and breaks cycles,
// the retention buffer that keeps originals reachable during a walk, and the
// pooled session that reuses both across operations.
package memo

import "github.com/klon-labs/klon/pkg/klon/v1/object"

const (
	// initialSlots is the slot count of a freshly allocated table.
	initialSlots = 8

	// Load factor bound of 7/10: resize triggers when filled/size >= 0.7.
	loadFactorNum = 7
	loadFactorDen = 10

	// tableRetainMaxSlots is the high-water mark above which ShrinkIfLarge
	// releases slot memory between operations.
	tableRetainMaxSlots = 1 << 17
	// tableShrinkToSlots is the low-water target of a shrink.
	tableShrinkToSlots = 1 << 13
)

// Identity handle 0 marks an empty slot; handles are allocated starting at 1.
const (
	emptyKey     = uint64(0)
	tombstoneKey = ^uint64(0)
)

// HashIdentity avalanches an identity handle into a table hash. It is the
// SplitMix64 finalizer; callers compute it exactly once per identity per
// logical operation and thread it through every lookup and insert.
func HashIdentity(id uint64) uint64 {
	h := id
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

type entry struct {
	key   uint64
	value object.Object
}

// Table is an open-addressing hash map from node identity to its clone.
// The slot count is always a power of two; deletions are tombstone-marked.
// A zero Table is ready to use: allocation is deferred to the first insert.
type Table struct {
	slots  []entry
	used   int // live entries (excludes tombstones)
	filled int // live entries + tombstones
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.used }

// Cap returns the current slot count. Zero before the first insert.
func (t *Table) Cap() int { return len(t.slots) }

// Lookup returns the clone registered for key, if any. hash must be
// HashIdentity(key), computed by the caller.
func (t *Table) Lookup(key, hash uint64) (object.Object, bool) {
	if len(t.slots) == 0 {
		return nil, false
	}
	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	for {
		slot := &t.slots[idx]
		if slot.key == emptyKey {
			return nil, false
		}
		// Tombstones do not terminate a probe sequence.
		if slot.key != tombstoneKey && slot.key == key {
			return slot.value, true
		}
		idx = (idx + 1) & mask
	}
}

// Insert registers value under key. Re-inserting an existing key updates the
// value in place. hash must be HashIdentity(key), computed by the caller.
func (t *Table) Insert(key uint64, value object.Object, hash uint64) {
	if len(t.slots) == 0 {
		t.resize(initialSlots)
	}
	if t.filled*loadFactorDen >= len(t.slots)*loadFactorNum {
		t.grow()
	}

	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	firstTomb := -1
	for {
		slot := &t.slots[idx]
		if slot.key == emptyKey {
			insertAt := idx
			if firstTomb >= 0 {
				// Reuse the first tombstone seen on the probe path.
				insertAt = uint64(firstTomb)
				t.slots[insertAt] = entry{key: key, value: value}
				t.used++
				return
			}
			t.slots[insertAt] = entry{key: key, value: value}
			t.used++
			t.filled++
			return
		}
		if slot.key == tombstoneKey {
			if firstTomb < 0 {
				firstTomb = int(idx)
			}
		} else if slot.key == key {
			slot.value = value
			return
		}
		idx = (idx + 1) & mask
	}
}

// Remove deletes key, leaving a tombstone. Returns false if absent.
func (t *Table) Remove(key uint64) bool {
	if len(t.slots) == 0 {
		return false
	}
	hash := HashIdentity(key)
	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	for {
		slot := &t.slots[idx]
		if slot.key == emptyKey {
			return false
		}
		if slot.key != tombstoneKey && slot.key == key {
			slot.key = tombstoneKey
			slot.value = nil
			t.used--
			return true
		}
		idx = (idx + 1) & mask
	}
}

// Range calls f for every live entry until f returns false.
func (t *Table) Range(f func(key uint64, value object.Object) bool) {
	for i := range t.slots {
		slot := &t.slots[i]
		if slot.key != emptyKey && slot.key != tombstoneKey {
			if !f(slot.key, slot.value) {
				return
			}
		}
	}
}

// Clear drops every entry but retains the slot array for reuse.
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i] = entry{}
	}
	t.used = 0
	t.filled = 0
}

// ShrinkIfLarge resizes the table down to the low-water target when the
// slot count exceeded the high-water mark. Live entries survive the resize.
// Intended to run between operations, never mid-walk.
func (t *Table) ShrinkIfLarge() {
	if len(t.slots) > tableRetainMaxSlots {
		target := tableShrinkToSlots
		for target < t.used*2 {
			target <<= 1
		}
		t.resize(target)
	}
}

// grow doubles capacity, rehashing live entries only (tombstones are shed).
func (t *Table) grow() {
	newSize := initialSlots
	minNeeded := t.used + 1
	for newSize < minNeeded*2 {
		newSize <<= 1
	}
	if newSize <= len(t.slots) {
		newSize = len(t.slots) * 2
	}
	t.resize(newSize)
}

func (t *Table) resize(newSize int) {
	old := t.slots
	t.slots = make([]entry, newSize)
	t.filled = 0
	t.used = 0
	mask := uint64(newSize - 1)
	for i := range old {
		e := &old[i]
		if e.key == emptyKey || e.key == tombstoneKey {
			continue
		}
		idx := HashIdentity(e.key) & mask
		for t.slots[idx].key != emptyKey {
			idx = (idx + 1) & mask
		}
		t.slots[idx] = entry{key: e.key, value: e.value}
		t.used++
		t.filled++
	}
}
