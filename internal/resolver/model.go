package resolver

import (
	"github.com/leapstack-labs/conceptc/pkg/concept"
)

// Model is the arena of resolved concepts. Instances are addressed by
// handles; the handle of a concept never changes once it is added. Only the
// engine mutates a model, strictly between passes.
type Model struct {
	arena  []*concept.Instance // handle h lives at arena[h-1]
	keys   []string
	depth  []int // macro derivation depth per handle; 0 for parsed concepts
	byKey  map[string]concept.Handle
	byType map[string][]concept.Handle
	edges  []concept.Edge
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		byKey:  make(map[string]concept.Handle),
		byType: make(map[string][]concept.Handle),
	}
}

var _ concept.Model = (*Model)(nil)

func (m *Model) add(inst *concept.Instance, key string, depth int) concept.Handle {
	m.arena = append(m.arena, inst)
	m.keys = append(m.keys, key)
	m.depth = append(m.depth, depth)
	h := concept.Handle(len(m.arena))
	m.byKey[key] = h
	for _, t := range inst.Type.Chain() {
		m.byType[t.Name] = append(m.byType[t.Name], h)
	}
	return h
}

// Len returns the number of concepts.
func (m *Model) Len() int {
	return len(m.arena)
}

// Get returns the concept with handle h.
func (m *Model) Get(h concept.Handle) *concept.Instance {
	if !h.Valid() || int(h) > len(m.arena) {
		return nil
	}
	return m.arena[h-1]
}

// Key returns the key of the concept with handle h.
func (m *Model) Key(h concept.Handle) string {
	if !h.Valid() || int(h) > len(m.keys) {
		return ""
	}
	return m.keys[h-1]
}

// Handle returns the handle of the concept with the given key.
func (m *Model) Handle(key string) (concept.Handle, bool) {
	h, ok := m.byKey[key]
	return h, ok
}

// Lookup returns the concept with the given key.
func (m *Model) Lookup(key string) (*concept.Instance, bool) {
	h, ok := m.byKey[key]
	if !ok {
		return nil, false
	}
	return m.Get(h), true
}

// Resolve returns the target of a reference.
func (m *Model) Resolve(ref concept.Ref) (*concept.Instance, bool) {
	if ref.Resolved() {
		if inst := m.Get(ref.Handle); inst != nil {
			return inst, true
		}
	}
	return m.Lookup(ref.Key())
}

// ByType returns the concepts of the named type, including derived types,
// in the order they entered the model.
func (m *Model) ByType(typeName string) []*concept.Instance {
	handles := m.byType[typeName]
	out := make([]*concept.Instance, 0, len(handles))
	for _, h := range handles {
		out = append(out, m.Get(h))
	}
	return out
}

// Concepts returns all concepts in the order they entered the model.
func (m *Model) Concepts() []*concept.Instance {
	return append([]*concept.Instance(nil), m.arena...)
}

// Keys returns all keys in the order the concepts entered the model.
func (m *Model) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Edges returns the explicit dependency edges emitted by macros.
func (m *Model) Edges() []concept.Edge {
	return append([]concept.Edge(nil), m.edges...)
}

// Records flattens the model for caching and comparison.
func (m *Model) Records() []concept.Record {
	records := make([]concept.Record, 0, len(m.arena))
	for i, inst := range m.arena {
		records = append(records, concept.NewRecord(m.keys[i], inst))
	}
	return records
}
