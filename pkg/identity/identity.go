// Package identity computes canonical concept keys.
//
// A key is the base type name of the concept followed by the dot-joined
// serialization of its key members, e.g. "EntityInfo Sales.Order". Keys are
// the only identity of a concept: two instances are the same concept iff
// their keys are equal.
package identity

import (
	"strings"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
)

// Path serializes the key members of inst. Reference key members contribute
// the referenced concept's own path; polymorphic references are prefixed
// with the referenced base type name and a colon.
func Path(inst *concept.Instance) (string, error) {
	parts := make([]string, 0, 2)
	for idx, m := range inst.Members() {
		if !m.Key {
			continue
		}
		v := inst.ValueAt(idx)
		if !v.Set || (m.IsConcept() && v.Ref.Path == "") {
			return "", dslerr.NewIdentityError(inst.Pos, "", m.Name,
				"%s: key member %q is not set", Describe(inst), m.Name)
		}
		parts = append(parts, memberText(m, v))
	}
	return strings.Join(parts, "."), nil
}

// Key returns the canonical key of inst.
func Key(inst *concept.Instance) (string, error) {
	path, err := Path(inst)
	if err != nil {
		return "", err
	}
	return inst.Type.BaseName() + " " + path, nil
}

// RefTo returns a reference slot pointing at inst.
func RefTo(inst *concept.Instance) (concept.Ref, error) {
	path, err := Path(inst)
	if err != nil {
		return concept.Ref{}, err
	}
	return concept.PendingRef(inst.Type.BaseName(), path), nil
}

// Describe returns the user-facing description of a concept: its keyword
// (or type name for abstract types) and key members. Missing members are
// shown as <null>; Describe never fails.
func Describe(inst *concept.Instance) string {
	name := inst.Type.Keyword
	if name == "" {
		name = inst.Type.Name
	}
	var parts []string
	for idx, m := range inst.Members() {
		if !m.Key {
			continue
		}
		v := inst.ValueAt(idx)
		if !v.Set {
			parts = append(parts, "<null>")
			continue
		}
		parts = append(parts, memberText(m, v))
	}
	if len(parts) == 0 {
		return name
	}
	return name + " " + strings.Join(parts, ".")
}

func memberText(m concept.Member, v concept.Value) string {
	if !m.IsConcept() {
		return Quote(v.Text(m))
	}
	if m.IsPolymorphic() {
		return v.Ref.Type + ":" + v.Ref.Path
	}
	return v.Ref.Path
}
