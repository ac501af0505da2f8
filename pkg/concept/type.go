package concept

import "fmt"

// MemberKind describes how a member gets its value.
type MemberKind int

const (
	// Scalar members hold a string, bool or int.
	Scalar MemberKind = iota
	// Reference members point to another concept.
	Reference
	// Parent members are bound to the enclosing concept when nested.
	Parent
)

func (k MemberKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Reference:
		return "reference"
	case Parent:
		return "parent"
	}
	return fmt.Sprintf("MemberKind(%d)", int(k))
}

// ScalarKind is the value type of a scalar member.
type ScalarKind int

const (
	String ScalarKind = iota
	Bool
	Int
)

func (k ScalarKind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int:
		return "int"
	}
	return fmt.Sprintf("ScalarKind(%d)", int(k))
}

// Member describes one typed member of a concept type.
type Member struct {
	Name   string
	Kind   MemberKind
	Scalar ScalarKind
	// Ref is the referenced concept type of a Reference or Parent member.
	// Nil means any concept type.
	Ref *Type
	// Key members participate in the concept's identity.
	Key bool
	// NonParsable members are not written in the DSL; an initializer or a
	// macro fills them.
	NonParsable bool
}

// IsConcept reports whether the member holds a concept reference.
func (m Member) IsConcept() bool {
	return m.Kind == Reference || m.Kind == Parent
}

// IsPolymorphic reports whether the member may reference any concept type.
func (m Member) IsPolymorphic() bool {
	return m.IsConcept() && m.Ref == nil
}

// TypeName returns a short description of the member's value type.
func (m Member) TypeName() string {
	if !m.IsConcept() {
		return m.Scalar.String()
	}
	if m.Ref == nil {
		return "concept"
	}
	return m.Ref.Name
}

// KeyString declares a string key member.
func KeyString(name string) Member {
	return Member{Name: name, Kind: Scalar, Scalar: String, Key: true}
}

// StringMember declares a non-key string member.
func StringMember(name string) Member {
	return Member{Name: name, Kind: Scalar, Scalar: String}
}

// BoolMember declares a non-key bool member.
func BoolMember(name string) Member {
	return Member{Name: name, Kind: Scalar, Scalar: Bool}
}

// IntMember declares a non-key int member.
func IntMember(name string) Member {
	return Member{Name: name, Kind: Scalar, Scalar: Int}
}

// KeyRef declares a key reference member.
func KeyRef(name string, t *Type) Member {
	return Member{Name: name, Kind: Reference, Ref: t, Key: true}
}

// RefMember declares a non-key reference member.
func RefMember(name string, t *Type) Member {
	return Member{Name: name, Kind: Reference, Ref: t}
}

// KeyParent declares a key member bound to the enclosing concept.
func KeyParent(name string, t *Type) Member {
	return Member{Name: name, Kind: Parent, Ref: t, Key: true}
}

// Type is a plugin-declared concept shape.
type Type struct {
	// Name is the unique type name, e.g. "EntityInfo".
	Name string
	// Keyword introduces the concept in DSL scripts. Empty for abstract
	// types that can only be referenced or created by macros.
	Keyword string
	// Base is the parent type in the single-inheritance hierarchy.
	Base *Type
	// Members are the members declared by this type, not including the
	// members inherited from Base.
	Members []Member
}

// AllMembers returns the inherited members first, then the type's own
// members, each in declaration order. The order defines the positional
// parsing order of the DSL syntax.
func (t *Type) AllMembers() []Member {
	if t.Base == nil {
		return append([]Member(nil), t.Members...)
	}
	return append(t.Base.AllMembers(), t.Members...)
}

// KeyMembers returns the key members in parsing order.
func (t *Type) KeyMembers() []Member {
	var keys []Member
	for _, m := range t.AllMembers() {
		if m.Key {
			keys = append(keys, m)
		}
	}
	return keys
}

// MemberIndex returns the position of the named member in AllMembers, or -1.
func (t *Type) MemberIndex(name string) int {
	for i, m := range t.AllMembers() {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Root returns the first type of the inheritance chain.
func (t *Type) Root() *Type {
	for t.Base != nil {
		t = t.Base
	}
	return t
}

// BaseName is the type name used in keys. Derived types share the key
// space of their root type, so a derived instance and a base instance with
// the same key members are the same concept.
func (t *Type) BaseName() string {
	return t.Root().Name
}

// Chain returns the type followed by its base types.
func (t *Type) Chain() []*Type {
	var chain []*Type
	for c := t; c != nil; c = c.Base {
		chain = append(chain, c)
	}
	return chain
}

// IsA reports whether t is other or derives from it. A nil other matches
// every type.
func (t *Type) IsA(other *Type) bool {
	if other == nil {
		return true
	}
	for c := t; c != nil; c = c.Base {
		if c == other || c.Name == other.Name {
			return true
		}
	}
	return false
}

// Abstract reports whether the type has no keyword.
func (t *Type) Abstract() bool {
	return t.Keyword == ""
}

func (t *Type) String() string {
	return t.Name
}
