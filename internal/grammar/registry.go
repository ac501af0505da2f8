// Package grammar holds the registry of concept types known to a build and
// derives the per-keyword parsing rules from their member metadata.
package grammar

import (
	"sort"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/identity"
)

// Registry maps keywords and type names to concept types. It is built once
// per pipeline and is read-only afterwards.
type Registry struct {
	// types in registration order; bases and referenced types that were not
	// passed explicitly are appended when first seen.
	types []*concept.Type

	// byName maps type names to types: "EntityInfo" → *Type
	byName map[string]*concept.Type

	// byKeyword maps keywords to every type using it, in registration order.
	byKeyword map[string][]*concept.Type

	// initializers maps type names to their alternative initializers.
	initializers map[string][]concept.Initializer
}

// Option configures a Registry.
type Option func(*Registry) error

// WithInitializers registers alternative initializers.
func WithInitializers(inits ...concept.Initializer) Option {
	return func(r *Registry) error {
		for _, init := range inits {
			if _, ok := r.byName[init.Type()]; !ok {
				return dslerr.NewConfigError(init.Type(), "initializer registered for an unknown concept type")
			}
			r.initializers[init.Type()] = append(r.initializers[init.Type()], init)
		}
		return nil
	}
}

// New builds a registry and validates the concept types. Invalid type
// declarations are configuration errors and fail here rather than during
// parsing.
func New(types []*concept.Type, opts ...Option) (*Registry, error) {
	r := &Registry{
		byName:       make(map[string]*concept.Type),
		byKeyword:    make(map[string][]*concept.Type),
		initializers: make(map[string][]concept.Initializer),
	}

	for _, t := range types {
		if err := r.add(t); err != nil {
			return nil, err
		}
	}

	for _, t := range r.types {
		if err := validate(t); err != nil {
			return nil, err
		}
		if t.Keyword != "" {
			r.byKeyword[t.Keyword] = append(r.byKeyword[t.Keyword], t)
		}
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// add registers t together with its base types and referenced types.
func (r *Registry) add(t *concept.Type) error {
	if t == nil {
		return dslerr.NewConfigError("<nil>", "nil concept type")
	}
	if t.Name == "" {
		return dslerr.NewConfigError("<unnamed>", "concept type has no name")
	}
	if existing, ok := r.byName[t.Name]; ok {
		if existing != t {
			return dslerr.NewConfigError(t.Name, "declared more than once")
		}
		return nil
	}

	r.byName[t.Name] = t
	r.types = append(r.types, t)

	if t.Base != nil {
		if err := r.add(t.Base); err != nil {
			return err
		}
	}
	for _, m := range t.Members {
		if m.Ref != nil {
			if err := r.add(m.Ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// validate checks a single type declaration.
func validate(t *concept.Type) error {
	if t.Keyword != "" && !identity.IsPlain(t.Keyword) {
		return dslerr.NewConfigError(t.Name, "keyword %q is not an identifier", t.Keyword)
	}

	seen := make(map[string]bool)
	for _, m := range t.AllMembers() {
		if m.Name == "" {
			return dslerr.NewConfigError(t.Name, "member without a name")
		}
		if seen[m.Name] {
			return dslerr.NewConfigError(t.Name, "member %q declared more than once", m.Name)
		}
		seen[m.Name] = true
	}

	if t.Base != nil && len(t.Base.KeyMembers()) > 0 {
		for _, m := range t.Members {
			if m.Key {
				return dslerr.NewConfigError(t.Name,
					"key member %q added to keyed base type %s; derived types must keep the base identity",
					m.Name, t.Base.Name)
			}
		}
	}

	if !t.Abstract() && len(t.KeyMembers()) == 0 {
		return dslerr.NewConfigError(t.Name, "concept type with keyword %q has no key members", t.Keyword)
	}
	return nil
}

// Keyword returns the keyword of t, or "" for abstract types.
func (r *Registry) Keyword(t *concept.Type) string {
	return t.Keyword
}

// Members returns the flattened member list of t: base members first, then
// own members, in declaration order.
func (r *Registry) Members(t *concept.Type) []concept.Member {
	return t.AllMembers()
}

// Type returns the type with the given name.
func (r *Registry) Type(name string) (*concept.Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// ByKeyword returns the types introduced by keyword, in registration order.
func (r *Registry) ByKeyword(keyword string) []*concept.Type {
	return r.byKeyword[keyword]
}

// Types returns all registered types in registration order.
func (r *Registry) Types() []*concept.Type {
	return append([]*concept.Type(nil), r.types...)
}

// Keywords returns all keywords in alphabetical order.
func (r *Registry) Keywords() []string {
	keywords := make([]string, 0, len(r.byKeyword))
	for kw := range r.byKeyword {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	return keywords
}

// Initializers returns the initializers applicable to t, base types first.
func (r *Registry) Initializers(t *concept.Type) []concept.Initializer {
	chain := t.Chain()
	var inits []concept.Initializer
	for i := len(chain) - 1; i >= 0; i-- {
		inits = append(inits, r.initializers[chain[i].Name]...)
	}
	return inits
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	return len(r.types)
}
