package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle matches every cycle error returned by the graph.
var ErrCycle = errors.New("dependency cycle")

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds id to the graph. Adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge records that `to` requires `from`.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, from)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("source node not found: %s", from)
	}
	toNode, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("destination node not found: %s", to)
	}

	toNode.deps[from] = fromNode
	fromNode.dependents[to] = toNode
	return nil
}

// Has reports whether id is in the graph.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Dependencies returns the sorted ids that id directly requires.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted ids that directly require id.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.dependents), nil
}

// DetectCycles returns an error wrapping ErrCycle when any cycle exists.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	done := make(map[string]bool)
	for _, id := range sortedKeys(g.nodes) {
		if _, err := g.walk(g.nodes[id], done, map[string]bool{}, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// Plan returns id and everything it transitively requires, ordered so that
// every node comes after all of its dependencies. Ties are broken by id.
func (g *Graph) Plan(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return g.walk(n, map[string]bool{}, map[string]bool{}, nil, nil)
}

// walk is a depth-first post-order traversal over dependencies. done holds
// finished nodes; active holds the current path for cycle detection.
func (g *Graph) walk(n *node, done, active map[string]bool, path, order []string) ([]string, error) {
	if done[n.id] {
		return order, nil
	}
	path = append(path, n.id)
	if active[n.id] {
		start := slices.Index(path, n.id)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(path[start:], " -> "))
	}
	active[n.id] = true

	for _, dep := range n.sortedDeps() {
		var err error
		if order, err = g.walk(dep, done, active, path, order); err != nil {
			return nil, err
		}
	}

	delete(active, n.id)
	done[n.id] = true
	return append(order, n.id), nil
}
