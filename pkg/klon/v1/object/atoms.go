package object

import (
	"fmt"
	"strconv"
)

// noneObject is the singleton empty marker.
type noneObject struct{}

// None is the shared empty/absent marker. deepcopy(None) is None.
var None Object = noneObject{}

func (noneObject) Type() *Type    { return NoneType }
func (noneObject) String() string { return "None" }

// Bool is an immutable boolean. Only the two singletons True and False
// exist; constructing more is deliberately impossible.
type Bool struct {
	v bool
}

// True and False are the shared boolean singletons.
var (
	True  = &Bool{v: true}
	False = &Bool{v: false}
)

// NewBool returns the singleton for v.
func NewBool(v bool) *Bool {
	if v {
		return True
	}
	return False
}

func (b *Bool) Type() *Type { return BoolType }

// Value reports the wrapped boolean.
func (b *Bool) Value() bool { return b.v }

func (b *Bool) String() string {
	if b.v {
		return "True"
	}
	return "False"
}

// Int is an immutable boxed integer.
type Int struct {
	v int64
}

// NewInt boxes v.
func NewInt(v int64) *Int { return &Int{v: v} }

func (i *Int) Type() *Type { return IntType }

// Value returns the wrapped integer.
func (i *Int) Value() int64 { return i.v }

func (i *Int) String() string { return strconv.FormatInt(i.v, 10) }

// Float is an immutable boxed float.
type Float struct {
	v float64
}

// NewFloat boxes v.
func NewFloat(v float64) *Float { return &Float{v: v} }

func (f *Float) Type() *Type { return FloatType }

// Value returns the wrapped float.
func (f *Float) Value() float64 { return f.v }

func (f *Float) String() string { return strconv.FormatFloat(f.v, 'g', -1, 64) }

// Str is an immutable text scalar.
type Str struct {
	v string
}

// NewStr boxes v.
func NewStr(v string) *Str { return &Str{v: v} }

func (s *Str) Type() *Type { return StrType }

// Value returns the wrapped string.
func (s *Str) Value() string { return s.v }

func (s *Str) String() string { return strconv.Quote(s.v) }

// Bytes is an immutable byte scalar. The constructor copies the input so the
// box can never observe external mutation.
type Bytes struct {
	v []byte
}

// NewBytes boxes a copy of v.
func NewBytes(v []byte) *Bytes {
	cp := make([]byte, len(v))
	copy(cp, v)
	return &Bytes{v: cp}
}

func (b *Bytes) Type() *Type { return BytesType }

// Value returns the underlying bytes. Callers must not mutate the result.
func (b *Bytes) Value() []byte { return b.v }

// Len returns the byte length.
func (b *Bytes) Len() int { return len(b.v) }

func (b *Bytes) String() string { return fmt.Sprintf("b%q", b.v) }
