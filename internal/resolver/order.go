package resolver

import (
	"errors"

	"github.com/leapstack-labs/conceptc/internal/dag"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"github.com/leapstack-labs/conceptc/pkg/token"
)

// Graph builds the dependency graph of a resolved model. Every bound
// reference adds an edge from the referenced concept to the referencing one;
// explicit macro edges are added as declared. Node data is the instance.
func Graph(m *Model) (*dag.Graph, error) {
	g := dag.NewGraph()
	for i, inst := range m.arena {
		g.AddNode(m.keys[i], inst)
	}
	for i, inst := range m.arena {
		h := concept.Handle(i + 1)
		for idx, mem := range inst.Members() {
			v := inst.ValueAt(idx)
			if !mem.IsConcept() || !v.Set || v.Ref.Handle == h {
				continue
			}
			if !v.Ref.Resolved() {
				return nil, dslerr.NewReferenceError(inst.Pos, identity.Describe(inst), mem.Name, v.Ref.Key())
			}
			if err := g.AddEdge(m.Key(v.Ref.Handle), m.keys[i]); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range m.edges {
		if e.Before == e.After {
			continue
		}
		for _, key := range []string{e.Before, e.After} {
			if _, ok := m.byKey[key]; !ok {
				return nil, dslerr.NewReferenceError(token.Position{}, "dependency edge "+e.Before+" -> "+e.After, "", key)
			}
		}
		if err := g.AddEdge(e.Before, e.After); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Order returns the concepts of a resolved model sorted so that every
// concept follows the concepts it depends on. Among concepts whose
// dependencies are satisfied, the one that entered the model first comes
// first.
func Order(m *Model) ([]*concept.Instance, error) {
	return OrderBy(m, func(key string) int {
		return int(m.byKey[key])
	})
}

// OrderBy is Order with a caller-supplied tie-break priority; lower values
// come first.
func OrderBy(m *Model, priority func(key string) int) ([]*concept.Instance, error) {
	g, err := Graph(m)
	if err != nil {
		return nil, err
	}
	nodes, err := g.TopologicalSort(priority)
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, dslerr.NewOrderingError(cycle.Cycle)
		}
		return nil, err
	}
	out := make([]*concept.Instance, len(nodes))
	for i, n := range nodes {
		out[i] = n.Data.(*concept.Instance)
	}
	return out, nil
}
