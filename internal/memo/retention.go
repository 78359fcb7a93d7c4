package memo

import "github.com/klon-labs/klon/pkg/klon/v1/object"

const (
	retentionInitialCap = 8
	retentionRetainMax  = 8192
	retentionShrinkTo   = 1024
)

// Retention is an append-only buffer that pins originals for the duration of
// a clone walk. The engine appends every original whose clone it registers,
// so a memoized identity can never be reused by a new object mid-operation.
type Retention struct {
	items []object.Object
}

// Append pins obj until the next Clear.
func (r *Retention) Append(obj object.Object) {
	if r.items == nil {
		r.items = make([]object.Object, 0, retentionInitialCap)
	}
	r.items = append(r.items, obj)
}

// Len returns the number of pinned objects.
func (r *Retention) Len() int { return len(r.items) }

// Cap returns the current buffer capacity.
func (r *Retention) Cap() int { return cap(r.items) }

// At returns the i-th pinned object in append order.
func (r *Retention) At(i int) object.Object { return r.items[i] }

// Clear releases every pinned object but keeps the buffer capacity.
func (r *Retention) Clear() {
	for i := range r.items {
		r.items[i] = nil
	}
	r.items = r.items[:0]
}

// ShrinkIfLarge reallocates the buffer at the low-water target when its
// capacity exceeded the high-water mark. Runs between operations only.
func (r *Retention) ShrinkIfLarge() {
	if cap(r.items) > retentionRetainMax {
		target := retentionShrinkTo
		if len(r.items) > target {
			target = len(r.items)
		}
		next := make([]object.Object, len(r.items), target)
		copy(next, r.items)
		r.items = next
	}
}
