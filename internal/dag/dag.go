// Package dag provides directed acyclic graph operations for concept dependencies.
// It supports cycle detection, priority-stable topological sorting, and
// downstream/upstream queries used for incremental change reporting.
package dag

import (
	"container/heap"
	"fmt"
	"sort"
)

// Node represents a node in the DAG.
type Node struct {
	// ID is the unique identifier (concept key)
	ID string
	// Data holds arbitrary node data
	Data any
	// seq is the insertion index, used for deterministic iteration
	seq int
}

// Graph represents a directed acyclic graph.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // node IDs in insertion order
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id string, data any) {
	if node, exists := g.nodes[id]; exists {
		// Update data if node already exists
		node.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data, seq: len(g.order)}
	g.order = append(g.order, id)
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}

	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	// Add edge (avoid duplicates)
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle
// path. The path starts and ends with the same node. Nodes are visited in
// insertion order, so the reported cycle is deterministic.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string) // Track the path for error reporting

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// Found cycle, reconstruct path childID -> ... -> id -> childID
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// CycleError is returned by sorting operations on a cyclic graph.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Cycle)
}

// TopologicalSort returns nodes in topological order (dependencies before
// dependents). Among nodes that are ready at the same time, the one with the
// lowest priority value comes first; equal priorities keep insertion order.
// A nil priority orders ready nodes by insertion order alone.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort(priority func(id string) int) ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, &CycleError{Cycle: cyclePath}
	}

	pending := make(map[string]int, len(g.nodes))
	ready := &readyQueue{}
	for _, id := range g.order {
		pending[id] = len(g.parents[id])
		if pending[id] == 0 {
			heap.Push(ready, g.item(id, priority))
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for ready.Len() > 0 {
		it := heap.Pop(ready).(readyItem)
		result = append(result, g.nodes[it.id])
		for _, childID := range g.edges[it.id] {
			pending[childID]--
			if pending[childID] == 0 {
				heap.Push(ready, g.item(childID, priority))
			}
		}
	}

	return result, nil
}

func (g *Graph) item(id string, priority func(string) int) readyItem {
	it := readyItem{id: id, seq: g.nodes[id].seq}
	if priority != nil {
		it.priority = priority(id)
	}
	return it
}

// GetExecutionLevels returns nodes grouped by level.
// Level 0 contains nodes with no dependencies; nodes at level N depend only
// on nodes of lower levels.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, &CycleError{Cycle: cyclePath}
	}

	levels := [][]string{}
	assigned := make(map[string]int)

	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}

		parents := g.parents[id]
		if len(parents) == 0 {
			assigned[id] = 0
			return 0
		}

		maxParentLevel := 0
		for _, parentID := range parents {
			maxParentLevel = max(maxParentLevel, getLevel(parentID))
		}

		level := maxParentLevel + 1
		assigned[id] = level
		return level
	}

	maxLevel := 0
	for _, id := range g.order {
		maxLevel = max(maxLevel, getLevel(id))
	}

	for i := 0; i <= maxLevel && len(g.order) > 0; i++ {
		levels = append(levels, []string{})
	}
	for _, id := range g.order {
		level := assigned[id]
		levels[level] = append(levels[level], id)
	}

	return levels, nil
}

// GetAffectedNodes returns all nodes affected by changes to the given nodes.
// This includes the changed nodes and all their downstream dependents.
func (g *Graph) GetAffectedNodes(changedIDs []string) []string {
	affected := make(map[string]bool)

	var markAffected func(id string)
	markAffected = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true

		for _, childID := range g.edges[id] {
			markAffected(childID)
		}
	}

	for _, id := range changedIDs {
		if _, exists := g.nodes[id]; exists {
			markAffected(id)
		}
	}

	return sortedKeys(affected)
}

// GetUpstreamNodes returns all nodes upstream of the given node (its dependencies and their dependencies).
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var markUpstream func(nodeID string)
	markUpstream = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				markUpstream(parentID)
			}
		}
	}

	markUpstream(id)

	return sortedKeys(upstream)
}

func sortedKeys(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

type readyItem struct {
	id       string
	priority int
	seq      int
}

// readyQueue is a min-heap of nodes whose dependencies are all emitted.
type readyQueue []readyItem

func (q readyQueue) Len() int { return len(q) }
func (q readyQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)   { *q = append(*q, x.(readyItem)) }
func (q *readyQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
