package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/conceptc/internal/grammar"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"github.com/leapstack-labs/conceptc/pkg/token"
)

// apply reads the members of rule starting at token index start. It never
// changes the parser position; the caller picks the winning attempt.
func (r *run) apply(rule grammar.Rule, start int) attempt {
	a := attempt{rule: rule, inst: concept.New(rule.Type)}
	i := start
	// A parent written as a path is joined to the next key member with a
	// dot, as in "Entity M.E".
	joined := false
	for _, step := range rule.Steps {
		m := step.Member
		var (
			v   concept.Value
			err error
		)
		if joined {
			joined = false
			if tok := r.peek(i); !tok.Is(token.Dot) {
				a.err = fmt.Errorf("member %s: expected '.' at %s, found %s", m.Name, tok.Pos, tok)
				return a
			}
			i++
		}
		switch m.Kind {
		case concept.Parent:
			if ctx := r.context(m.Ref); ctx != nil {
				var ref concept.Ref
				if ref, err = identity.RefTo(ctx); err != nil {
					a.err = err
					return a
				}
				a.inst.SetAt(step.Index, concept.RefValue(ref))
				continue
			}
			// Outside a compatible block the parent is written as a path.
			v, i, err = r.reference(m, i)
			joined = err == nil && nextIsKey(rule, step)
		case concept.Reference:
			v, i, err = r.reference(m, i)
		default:
			tok := r.peek(i)
			v, err = scalar(m, tok)
			if err == nil {
				if tok.Kind == token.String {
					if a.inst.MemberPos == nil {
						a.inst.MemberPos = make(map[string]token.Position)
					}
					a.inst.MemberPos[m.Name] = tok.Pos
				}
				i++
			}
		}
		if err != nil {
			a.err = fmt.Errorf("member %s: %w", m.Name, err)
			return a
		}
		a.inst.SetAt(step.Index, v)
	}
	a.end = i
	return a
}

// context returns the innermost open concept if it can serve as a parent
// of type want.
func (r *run) context(want *concept.Type) *concept.Instance {
	if len(r.stack) == 0 {
		return nil
	}
	top := r.stack[len(r.stack)-1].inst
	if top.Type.IsA(want) {
		return top
	}
	return nil
}

// reference reads a concept reference written as the dotted key path of the
// referenced type. Polymorphic members are written as "Type:path".
func (r *run) reference(m concept.Member, i int) (concept.Value, int, error) {
	target := m.Ref
	if target == nil {
		name := r.peek(i)
		if name.Kind != token.Ident || !r.peek(i + 1).Is(token.Colon) {
			return concept.Value{}, i, fmt.Errorf("expected Type:path at %s, found %s", name.Pos, name)
		}
		t, ok := r.lookupType(name.Text)
		if !ok {
			return concept.Value{}, i, fmt.Errorf("unknown concept type %q at %s", name.Text, name.Pos)
		}
		target = t
		i += 2
	}
	path, next, err := r.path(target, i)
	if err != nil {
		return concept.Value{}, i, err
	}
	return concept.RefValue(concept.PendingRef(target.BaseName(), path)), next, nil
}

func (r *run) lookupType(name string) (*concept.Type, bool) {
	if t, ok := r.reg.Type(name); ok {
		return t, true
	}
	if types := r.reg.ByKeyword(name); len(types) > 0 {
		return types[0], true
	}
	return nil, false
}

// path reads the key members of t separated by dots and returns their
// serialization, which is the referenced concept's key without its type name.
func (r *run) path(t *concept.Type, i int) (string, int, error) {
	keys := t.KeyMembers()
	if len(keys) == 0 {
		return "", i, fmt.Errorf("concept type %s cannot be referenced: it has no key members", t.Name)
	}
	parts := make([]string, 0, len(keys))
	for n, km := range keys {
		if n > 0 {
			if !r.peek(i).Is(token.Dot) {
				tok := r.peek(i)
				return "", i, fmt.Errorf("expected '.' in %s reference at %s, found %s", t.Name, tok.Pos, tok)
			}
			i++
		}
		if km.IsConcept() {
			if km.Ref == nil {
				v, next, err := r.reference(km, i)
				if err != nil {
					return "", i, err
				}
				parts = append(parts, v.Ref.Type+":"+v.Ref.Path)
				i = next
				continue
			}
			sub, next, err := r.path(km.Ref, i)
			if err != nil {
				return "", i, err
			}
			parts = append(parts, sub)
			i = next
			continue
		}
		tok := r.peek(i)
		v, err := scalar(km, tok)
		if err != nil {
			return "", i, err
		}
		parts = append(parts, identity.Quote(v.Text(km)))
		i++
	}
	return strings.Join(parts, "."), i, nil
}

// scalar converts a value token to a scalar member value.
func scalar(m concept.Member, tok token.Token) (concept.Value, error) {
	if !tok.IsValue() {
		return concept.Value{}, fmt.Errorf("expected a %s value at %s, found %s", m.Scalar, tok.Pos, tok)
	}
	switch m.Scalar {
	case concept.Bool:
		b, err := strconv.ParseBool(strings.ToLower(tok.Text))
		if err != nil {
			return concept.Value{}, fmt.Errorf("expected true or false at %s, found %s", tok.Pos, tok)
		}
		return concept.BoolValue(b), nil
	case concept.Int:
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return concept.Value{}, fmt.Errorf("expected an integer at %s, found %s", tok.Pos, tok)
		}
		return concept.IntValue(n), nil
	}
	return concept.StringValue(tok.Text), nil
}

// nextIsKey reports whether the step after step reads a key member.
func nextIsKey(rule grammar.Rule, step grammar.Step) bool {
	for n, s := range rule.Steps {
		if s.Index == step.Index {
			return n+1 < len(rule.Steps) && rule.Steps[n+1].Member.Key
		}
	}
	return false
}
