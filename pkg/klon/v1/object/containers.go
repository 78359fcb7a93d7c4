package object

import "fmt"

// Dict is the insertion-ordered mapping kind. Keys may be any hashable
// object; key equality is structural (see Equal). Lookup is backed by a
// hash index, iteration follows insertion order.
type Dict struct {
	id      uint64
	entries []dictEntry
	index   map[uint64][]int
}

type dictEntry struct {
	hash  uint64
	key   Object
	value Object
}

// NewDict creates an empty dict.
func NewDict() *Dict {
	return NewDictSized(0)
}

// NewDictSized creates an empty dict with room for n entries.
func NewDictSized(n int) *Dict {
	return &Dict{
		id:      newID(),
		entries: make([]dictEntry, 0, n),
		index:   make(map[uint64][]int, n),
	}
}

func (d *Dict) Type() *Type { return DictType }
func (d *Dict) ID() uint64  { return d.id }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// SetItem inserts or updates key. Insertion order is preserved for updates.
func (d *Dict) SetItem(key, value Object) error {
	h, err := Hash(key)
	if err != nil {
		return err
	}
	for _, i := range d.index[h] {
		if Equal(d.entries[i].key, key) {
			d.entries[i].value = value
			return nil
		}
	}
	d.entries = append(d.entries, dictEntry{hash: h, key: key, value: value})
	d.index[h] = append(d.index[h], len(d.entries)-1)
	return nil
}

// Get returns the value for key, or found=false.
func (d *Dict) Get(key Object) (value Object, found bool, err error) {
	h, err := Hash(key)
	if err != nil {
		return nil, false, err
	}
	for _, i := range d.index[h] {
		if Equal(d.entries[i].key, key) {
			return d.entries[i].value, true, nil
		}
	}
	return nil, false, nil
}

// Delete removes key. Returns found=false if the key was absent. The
// operation is O(n): the entry slice is spliced and the index rebuilt, which
// is acceptable for the rare delete on this kind.
func (d *Dict) Delete(key Object) (found bool, err error) {
	h, err := Hash(key)
	if err != nil {
		return false, err
	}
	for _, i := range d.index[h] {
		if Equal(d.entries[i].key, key) {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			d.rebuildIndex()
			return true, nil
		}
	}
	return false, nil
}

func (d *Dict) rebuildIndex() {
	d.index = make(map[uint64][]int, len(d.entries))
	for i, e := range d.entries {
		d.index[e.hash] = append(d.index[e.hash], i)
	}
}

// At returns the (key, value) pair at insertion position i.
func (d *Dict) At(i int) (key, value Object) {
	e := d.entries[i]
	return e.key, e.value
}

// Update copies every entry of other into d, preserving other's order.
func (d *Dict) Update(other *Dict) error {
	for i := 0; i < other.Len(); i++ {
		k, v := other.At(i)
		if err := d.SetItem(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Iterate yields (key, value) 2-tuples in insertion order.
func (d *Dict) Iterate() Iterator {
	return &dictIterator{d: d}
}

type dictIterator struct {
	d   *Dict
	pos int
}

func (it *dictIterator) Next() (Object, bool, error) {
	if it.pos >= it.d.Len() {
		return nil, true, nil
	}
	k, v := it.d.At(it.pos)
	it.pos++
	return NewTuple(k, v), false, nil
}

func (d *Dict) String() string { return fmt.Sprintf("<dict len=%d>", d.Len()) }

// List is the growable ordered sequence kind.
type List struct {
	id    uint64
	items []Object
}

// NewList creates a list holding items.
func NewList(items ...Object) *List {
	return &List{id: newID(), items: items}
}

// NewListSized creates an empty list with room for n elements.
func NewListSized(n int) *List {
	return &List{id: newID(), items: make([]Object, 0, n)}
}

// NewListOfLen creates a list of n slots, each initialized to None. Used
// when the final size is known before the elements are.
func NewListOfLen(n int) *List {
	items := make([]Object, n)
	for i := range items {
		items[i] = None
	}
	return &List{id: newID(), items: items}
}

func (l *List) Type() *Type { return ListType }
func (l *List) ID() uint64  { return l.id }

// Len returns the element count.
func (l *List) Len() int { return len(l.items) }

// At returns the element at index i.
func (l *List) At(i int) Object { return l.items[i] }

// SetAt replaces the element at index i.
func (l *List) SetAt(i int, item Object) { l.items[i] = item }

// Append adds item at the end.
func (l *List) Append(item Object) error {
	l.items = append(l.items, item)
	return nil
}

// Iterate yields the elements in order.
func (l *List) Iterate() Iterator {
	return &seqIterator{at: l.At, len: l.Len}
}

func (l *List) String() string { return fmt.Sprintf("<list len=%d>", l.Len()) }

// Tuple is the fixed-arity sequence kind. Its slots never change after
// construction.
type Tuple struct {
	id    uint64
	items []Object
}

// NewTuple creates a tuple of items. The slice is taken over by the tuple;
// callers must not retain it.
func NewTuple(items ...Object) *Tuple {
	return &Tuple{id: newID(), items: items}
}

func (t *Tuple) Type() *Type { return TupleType }
func (t *Tuple) ID() uint64  { return t.id }

// Len returns the arity.
func (t *Tuple) Len() int { return len(t.items) }

// At returns the element at index i.
func (t *Tuple) At(i int) Object { return t.items[i] }

// Iterate yields the elements in order.
func (t *Tuple) Iterate() Iterator {
	return &seqIterator{at: t.At, len: t.Len}
}

func (t *Tuple) String() string { return fmt.Sprintf("<tuple len=%d>", t.Len()) }

// seqIterator iterates any indexable sequence. Length is re-read each step
// so a sequence that grows mid-iteration yields its tail too.
type seqIterator struct {
	at  func(int) Object
	len func() int
	pos int
}

func (it *seqIterator) Next() (Object, bool, error) {
	if it.pos >= it.len() {
		return nil, true, nil
	}
	item := it.at(it.pos)
	it.pos++
	return item, false, nil
}

// Set is the mutable unordered set kind. Iteration order is insertion
// order, which keeps clone results deterministic.
type Set struct {
	id      uint64
	entries []setEntry
	index   map[uint64][]int
}

type setEntry struct {
	hash uint64
	elem Object
}

// NewSet creates a set holding elems. Unhashable elements are rejected.
func NewSet(elems ...Object) (*Set, error) {
	s := &Set{id: newID(), index: make(map[uint64][]int, len(elems))}
	for _, e := range elems {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Type() *Type { return SetType }
func (s *Set) ID() uint64  { return s.id }

// Len returns the element count.
func (s *Set) Len() int { return len(s.entries) }

// At returns the element at insertion position i.
func (s *Set) At(i int) Object { return s.entries[i].elem }

// Add inserts elem if not already present.
func (s *Set) Add(elem Object) error {
	h, err := Hash(elem)
	if err != nil {
		return err
	}
	for _, i := range s.index[h] {
		if Equal(s.entries[i].elem, elem) {
			return nil
		}
	}
	s.entries = append(s.entries, setEntry{hash: h, elem: elem})
	s.index[h] = append(s.index[h], len(s.entries)-1)
	return nil
}

// Contains reports whether elem is present.
func (s *Set) Contains(elem Object) (bool, error) {
	h, err := Hash(elem)
	if err != nil {
		return false, err
	}
	for _, i := range s.index[h] {
		if Equal(s.entries[i].elem, elem) {
			return true, nil
		}
	}
	return false, nil
}

// Iterate yields the elements in insertion order.
func (s *Set) Iterate() Iterator {
	return &seqIterator{at: s.At, len: s.Len}
}

func (s *Set) String() string { return fmt.Sprintf("<set len=%d>", s.Len()) }

// FrozenSet is the immutable unordered set kind. It is built once from a
// finished collection and never mutated afterwards.
type FrozenSet struct {
	id      uint64
	entries []setEntry
	index   map[uint64][]int
}

// NewFrozenSet creates a frozen set from elems, deduplicating structurally
// equal elements.
func NewFrozenSet(elems ...Object) (*FrozenSet, error) {
	fs := &FrozenSet{id: newID(), index: make(map[uint64][]int, len(elems))}
	for _, e := range elems {
		h, err := Hash(e)
		if err != nil {
			return nil, err
		}
		dup := false
		for _, i := range fs.index[h] {
			if Equal(fs.entries[i].elem, e) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		fs.entries = append(fs.entries, setEntry{hash: h, elem: e})
		fs.index[h] = append(fs.index[h], len(fs.entries)-1)
	}
	return fs, nil
}

func (fs *FrozenSet) Type() *Type { return FrozenSetType }
func (fs *FrozenSet) ID() uint64  { return fs.id }

// Len returns the element count.
func (fs *FrozenSet) Len() int { return len(fs.entries) }

// At returns the element at insertion position i.
func (fs *FrozenSet) At(i int) Object { return fs.entries[i].elem }

// Contains reports whether elem is present.
func (fs *FrozenSet) Contains(elem Object) (bool, error) {
	h, err := Hash(elem)
	if err != nil {
		return false, err
	}
	for _, i := range fs.index[h] {
		if Equal(fs.entries[i].elem, elem) {
			return true, nil
		}
	}
	return false, nil
}

// Iterate yields the elements in insertion order.
func (fs *FrozenSet) Iterate() Iterator {
	return &seqIterator{at: fs.At, len: fs.Len}
}

func (fs *FrozenSet) String() string { return fmt.Sprintf("<frozenset len=%d>", fs.Len()) }

// ByteArray is the mutable byte buffer kind. It holds no nested object
// references.
type ByteArray struct {
	id   uint64
	data []byte
}

// NewByteArray creates a buffer holding a copy of data.
func NewByteArray(data []byte) *ByteArray {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &ByteArray{id: newID(), data: cp}
}

func (b *ByteArray) Type() *Type { return ByteArrayType }
func (b *ByteArray) ID() uint64  { return b.id }

// Len returns the byte length.
func (b *ByteArray) Len() int { return len(b.data) }

// Bytes returns the underlying buffer. The returned slice is the live
// buffer; mutating it mutates the object.
func (b *ByteArray) Bytes() []byte { return b.data }

func (b *ByteArray) String() string { return fmt.Sprintf("<bytearray len=%d>", b.Len()) }
