package concept

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/conceptc/pkg/token"
)

// Handle addresses an instance inside a model arena. The zero handle means
// "not bound".
type Handle int32

// Valid reports whether the handle is bound.
func (h Handle) Valid() bool {
	return h > 0
}

// Ref is a concept reference slot: the key the reference must resolve to,
// and the handle of the target once resolved.
type Ref struct {
	// Type is the base type name of the target.
	Type string
	// Path is the target's key-member serialization, e.g. "M.E".
	Path   string
	Handle Handle
}

// PendingRef creates an unresolved reference to the concept with the given
// base type name and key-member path.
func PendingRef(baseType, path string) Ref {
	return Ref{Type: baseType, Path: path}
}

// Key returns the full key of the target.
func (r Ref) Key() string {
	if r.Type == "" {
		return r.Path
	}
	return r.Type + " " + r.Path
}

// Resolved reports whether the reference is bound to a model handle.
func (r Ref) Resolved() bool {
	return r.Handle.Valid()
}

// Value holds one member value. Only the field matching the member kind is
// meaningful.
type Value struct {
	Set  bool
	Str  string
	Bool bool
	Int  int64
	Ref  Ref
}

// StringValue returns a set string value.
func StringValue(s string) Value { return Value{Set: true, Str: s} }

// BoolValue returns a set bool value.
func BoolValue(b bool) Value { return Value{Set: true, Bool: b} }

// IntValue returns a set int value.
func IntValue(n int64) Value { return Value{Set: true, Int: n} }

// RefValue returns a set reference value.
func RefValue(r Ref) Value { return Value{Set: true, Ref: r} }

// Text renders a scalar value as written in the DSL.
func (v Value) Text(m Member) string {
	if !v.Set {
		return ""
	}
	if m.IsConcept() {
		return v.Ref.Key()
	}
	switch m.Scalar {
	case Bool:
		return strconv.FormatBool(v.Bool)
	case Int:
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Str
}

// equal compares two values of the same member. References compare by
// target key, never by handle.
func (v Value) equal(o Value, m Member) bool {
	if v.Set != o.Set {
		return false
	}
	if !v.Set {
		return true
	}
	if m.IsConcept() {
		return v.Ref.Key() == o.Ref.Key()
	}
	switch m.Scalar {
	case Bool:
		return v.Bool == o.Bool
	case Int:
		return v.Int == o.Int
	}
	return v.Str == o.Str
}

// Instance is a concept of a given type with its member values.
type Instance struct {
	Type   *Type
	values []Value
	// Pos is where the concept's statement started. Concepts created by
	// macros carry the position of the concept that triggered them.
	Pos token.Position
	// MemberPos records the positions of user-supplied member values.
	MemberPos map[string]token.Position
}

// New creates an empty instance of type t.
func New(t *Type) *Instance {
	return &Instance{
		Type:   t,
		values: make([]Value, len(t.AllMembers())),
	}
}

// Members returns the type's member list.
func (i *Instance) Members() []Member {
	return i.Type.AllMembers()
}

// Value returns the value of the named member.
func (i *Instance) Value(name string) (Value, bool) {
	idx := i.Type.MemberIndex(name)
	if idx < 0 {
		return Value{}, false
	}
	return i.values[idx], true
}

// ValueAt returns the value at a member position.
func (i *Instance) ValueAt(idx int) Value {
	return i.values[idx]
}

// Set assigns the value of the named member.
func (i *Instance) Set(name string, v Value) error {
	idx := i.Type.MemberIndex(name)
	if idx < 0 {
		return fmt.Errorf("concept type %s has no member %q", i.Type.Name, name)
	}
	i.values[idx] = v
	return nil
}

// SetAt assigns the value at a member position.
func (i *Instance) SetAt(idx int, v Value) {
	i.values[idx] = v
}

// With assigns a member from a Go value and returns the instance. It panics
// on an unknown member or a mismatched value type; it is meant for plugin
// code constructing concepts with known shapes.
func (i *Instance) With(name string, v any) *Instance {
	var val Value
	switch x := v.(type) {
	case string:
		val = StringValue(x)
	case bool:
		val = BoolValue(x)
	case int:
		val = IntValue(int64(x))
	case int64:
		val = IntValue(x)
	case Ref:
		val = RefValue(x)
	case Value:
		val = x
	default:
		panic(fmt.Sprintf("concept %s: unsupported value %T for member %q", i.Type.Name, v, name))
	}
	if err := i.Set(name, val); err != nil {
		panic(err)
	}
	return i
}

// String returns the string value of the named member.
func (i *Instance) String(name string) string {
	v, _ := i.Value(name)
	return v.Str
}

// Bool returns the bool value of the named member.
func (i *Instance) Bool(name string) bool {
	v, _ := i.Value(name)
	return v.Bool
}

// Int returns the int value of the named member.
func (i *Instance) Int(name string) int64 {
	v, _ := i.Value(name)
	return v.Int
}

// Ref returns the reference slot of the named member.
func (i *Instance) Ref(name string) Ref {
	v, _ := i.Value(name)
	return v.Ref
}

// Refs returns the reference slots of all set concept members in member order.
func (i *Instance) Refs() []Ref {
	var refs []Ref
	for idx, m := range i.Members() {
		if m.IsConcept() && i.values[idx].Set {
			refs = append(refs, i.values[idx].Ref)
		}
	}
	return refs
}

// Bind sets the handle of the reference at a member position.
func (i *Instance) Bind(idx int, h Handle) {
	i.values[idx].Ref.Handle = h
}

// Clone returns a copy of the instance with independent values.
func (i *Instance) Clone() *Instance {
	c := &Instance{
		Type:   i.Type,
		values: append([]Value(nil), i.values...),
		Pos:    i.Pos,
	}
	if i.MemberPos != nil {
		c.MemberPos = make(map[string]token.Position, len(i.MemberPos))
		for k, v := range i.MemberPos {
			c.MemberPos[k] = v
		}
	}
	return c
}

// Equal reports full member-wise structural equality: same concept type and
// equal values for every member. References compare by target key.
func (i *Instance) Equal(o *Instance) bool {
	if i.Type.Name != o.Type.Name || len(i.values) != len(o.values) {
		return false
	}
	for idx, m := range i.Members() {
		if !i.values[idx].equal(o.values[idx], m) {
			return false
		}
	}
	return true
}
