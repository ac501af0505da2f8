package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"go.starlark.net/starlark"
)

// Concept exposes a concept instance to Starlark. Members are attributes
// named as declared; reference members evaluate to the referenced concept
// when the model can resolve them and to the target key otherwise. The
// attributes "type", "keyword" and "key" describe the concept itself.
type Concept struct {
	inst  *concept.Instance
	model concept.Model
}

var (
	_ starlark.Value    = (*Concept)(nil)
	_ starlark.HasAttrs = (*Concept)(nil)
)

// NewConcept wraps inst. A nil model leaves references as keys.
func NewConcept(inst *concept.Instance, model concept.Model) *Concept {
	return &Concept{inst: inst, model: model}
}

// Instance returns the wrapped instance.
func (c *Concept) Instance() *concept.Instance { return c.inst }

func (c *Concept) String() string        { return identity.Describe(c.inst) }
func (c *Concept) Type() string          { return "concept" }
func (c *Concept) Freeze()               {}
func (c *Concept) Truth() starlark.Bool  { return starlark.True }
func (c *Concept) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: concept") }

// Attr implements starlark.HasAttrs.
func (c *Concept) Attr(name string) (starlark.Value, error) {
	if idx := c.inst.Type.MemberIndex(name); idx >= 0 {
		return c.member(c.inst.Members()[idx], c.inst.ValueAt(idx)), nil
	}
	switch name {
	case "type":
		return starlark.String(c.inst.Type.Name), nil
	case "keyword":
		return starlark.String(c.inst.Type.Keyword), nil
	case "key":
		key, err := identity.Key(c.inst)
		if err != nil {
			return starlark.None, nil
		}
		return starlark.String(key), nil
	}
	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (c *Concept) AttrNames() []string {
	names := []string{"key", "keyword", "type"}
	for _, m := range c.inst.Members() {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

func (c *Concept) member(m concept.Member, v concept.Value) starlark.Value {
	if !v.Set {
		return starlark.None
	}
	if m.IsConcept() {
		if c.model != nil {
			if target, ok := c.model.Resolve(v.Ref); ok {
				return NewConcept(target, c.model)
			}
		}
		return starlark.String(v.Ref.Key())
	}
	switch m.Scalar {
	case concept.Bool:
		return starlark.Bool(v.Bool)
	case concept.Int:
		return starlark.MakeInt64(v.Int)
	}
	return starlark.String(v.Str)
}

// Model exposes read access to the concept model as the second argument of
// a macro function: model.lookup(key) and model.by_type(type_name).
type Model struct {
	model concept.Model
}

var _ starlark.HasAttrs = (*Model)(nil)

// NewModel wraps a concept model.
func NewModel(model concept.Model) *Model {
	return &Model{model: model}
}

func (m *Model) String() string        { return "<model>" }
func (m *Model) Type() string          { return "model" }
func (m *Model) Freeze()               {}
func (m *Model) Truth() starlark.Bool  { return starlark.True }
func (m *Model) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: model") }

// Attr implements starlark.HasAttrs.
func (m *Model) Attr(name string) (starlark.Value, error) {
	switch name {
	case "lookup":
		return starlark.NewBuiltin("lookup", m.lookup), nil
	case "by_type":
		return starlark.NewBuiltin("by_type", m.byType), nil
	}
	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (m *Model) AttrNames() []string {
	return []string{"by_type", "lookup"}
}

func (m *Model) lookup(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key); err != nil {
		return nil, err
	}
	inst, ok := m.model.Lookup(key)
	if !ok {
		return starlark.None, nil
	}
	return NewConcept(inst, m.model), nil
}

func (m *Model) byType(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var typeName string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &typeName); err != nil {
		return nil, err
	}
	insts := m.model.ByType(typeName)
	out := make([]starlark.Value, len(insts))
	for i, inst := range insts {
		out[i] = NewConcept(inst, m.model)
	}
	return starlark.NewList(out), nil
}
