package object

import "fmt"

// Instance is a user-defined object: a type descriptor plus an attribute
// mapping and optional named slots. Custom behavior (copy hooks, reduce
// hooks) is added by embedding Instance in a host struct and implementing
// the hook interfaces on the wrapper.
type Instance struct {
	id    uint64
	typ   *Type
	attrs *Dict
	slots map[string]Object
}

// NewInstance creates an instance of typ with an empty attribute mapping.
func NewInstance(typ *Type) *Instance {
	return &Instance{id: newID(), typ: typ, attrs: NewDict()}
}

func (o *Instance) Type() *Type { return o.typ }
func (o *Instance) ID() uint64  { return o.id }

// Attrs returns the live attribute mapping.
func (o *Instance) Attrs() *Dict { return o.attrs }

// SetAttr assigns a named slot, distinct from the attribute mapping.
func (o *Instance) SetAttr(name string, value Object) error {
	if o.slots == nil {
		o.slots = make(map[string]Object)
	}
	o.slots[name] = value
	return nil
}

// GetAttr looks up name in the slots first, then the attribute mapping.
func (o *Instance) GetAttr(name string) (Object, bool) {
	if v, ok := o.slots[name]; ok {
		return v, true
	}
	v, found, err := o.attrs.Get(NewStr(name))
	if err != nil || !found {
		return nil, false
	}
	return v, true
}

// SlotNames returns the names of assigned slots, in no particular order.
func (o *Instance) SlotNames() []string {
	names := make([]string, 0, len(o.slots))
	for name := range o.slots {
		names = append(names, name)
	}
	return names
}

func (o *Instance) String() string {
	return fmt.Sprintf("<%s instance #%d>", o.typ.Name(), o.id)
}
