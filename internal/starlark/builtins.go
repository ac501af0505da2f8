package starlark

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// TypeLookup finds a concept type by name.
type TypeLookup func(name string) (*concept.Type, bool)

// Predeclared returns the globals available to macro files:
//
//	concept(type, **members)  creates a concept of the named type
//	edge(before, after)       declares an explicit dependency edge
//
// fail() is Starlark's own builtin; a macro that calls it rejects its
// trigger concept.
func Predeclared(types TypeLookup) starlark.StringDict {
	return starlark.StringDict{
		"concept": starlark.NewBuiltin("concept", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			return newConcept(types, b, args, kwargs)
		}),
		"edge": starlark.NewBuiltin("edge", newEdge),
	}
}

func newConcept(types TypeLookup, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s: expected the concept type name as the only positional argument", b.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: type name must be a string, got %s", b.Name(), args[0].Type())
	}
	t, ok := types(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown concept type %q", b.Name(), name)
	}

	inst := concept.New(t)
	for _, kv := range kwargs {
		member := string(kv[0].(starlark.String))
		idx := t.MemberIndex(member)
		if idx < 0 {
			return nil, fmt.Errorf("%s: concept type %s has no member %q", b.Name(), t.Name, member)
		}
		v, err := memberValue(t.AllMembers()[idx], kv[1])
		if err != nil {
			return nil, fmt.Errorf("%s: member %s: %w", b.Name(), member, err)
		}
		inst.SetAt(idx, v)
	}
	return NewConcept(inst, nil), nil
}

// memberValue converts a Starlark argument to a member value. References
// accept a concept or a full key string ("EntityInfo M.E").
func memberValue(m concept.Member, v starlark.Value) (concept.Value, error) {
	if v == starlark.None {
		return concept.Value{}, nil
	}
	if m.IsConcept() {
		switch x := v.(type) {
		case *Concept:
			ref, err := identity.RefTo(x.Instance())
			if err != nil {
				return concept.Value{}, err
			}
			return concept.RefValue(ref), nil
		case starlark.String:
			baseType, path, ok := strings.Cut(string(x), " ")
			if !ok || path == "" {
				return concept.Value{}, fmt.Errorf("reference key %q must be \"Type path\"", string(x))
			}
			return concept.RefValue(concept.PendingRef(baseType, path)), nil
		}
		return concept.Value{}, fmt.Errorf("expected a concept or key string, got %s", v.Type())
	}

	gv, err := ToGo(v)
	if err != nil {
		return concept.Value{}, err
	}
	switch m.Scalar {
	case concept.Bool:
		if b, ok := gv.(bool); ok {
			return concept.BoolValue(b), nil
		}
	case concept.Int:
		if n, ok := gv.(int64); ok {
			return concept.IntValue(n), nil
		}
	default:
		if s, ok := gv.(string); ok {
			return concept.StringValue(s), nil
		}
	}
	return concept.Value{}, fmt.Errorf("expected %s, got %s", m.Scalar, v.Type())
}

// edgeConstructor tags the structs returned by edge().
var edgeConstructor = starlark.String("edge")

func newEdge(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var before, after starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "before", &before, "after", &after); err != nil {
		return nil, err
	}
	bk, err := edgeKey(before)
	if err != nil {
		return nil, fmt.Errorf("%s: before: %w", b.Name(), err)
	}
	ak, err := edgeKey(after)
	if err != nil {
		return nil, fmt.Errorf("%s: after: %w", b.Name(), err)
	}
	return starlarkstruct.FromStringDict(edgeConstructor, starlark.StringDict{
		"before": starlark.String(bk),
		"after":  starlark.String(ak),
	}), nil
}

func edgeKey(v starlark.Value) (string, error) {
	switch x := v.(type) {
	case *Concept:
		return identity.Key(x.Instance())
	case starlark.String:
		return string(x), nil
	}
	return "", fmt.Errorf("expected a concept or key string, got %s", v.Type())
}

// AsEdge converts a value returned by edge() back to a concept edge.
func AsEdge(v starlark.Value) (concept.Edge, bool) {
	s, ok := v.(*starlarkstruct.Struct)
	if !ok || s.Constructor() != edgeConstructor {
		return concept.Edge{}, false
	}
	before, _ := s.Attr("before")
	after, _ := s.Attr("after")
	bs, _ := starlark.AsString(before)
	as, _ := starlark.AsString(after)
	return concept.Edge{Before: bs, After: as}, true
}
