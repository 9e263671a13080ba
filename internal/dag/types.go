package dag

import "sync"

// Graph is a set of named nodes joined by dependency edges.
// All operations are safe for concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

type node struct {
	id string
	// deps are the nodes this node requires.
	deps map[string]*node
	// dependents are the nodes that require this node.
	dependents map[string]*node
}

func (n *node) sortedDeps() []*node {
	out := make([]*node, 0, len(n.deps))
	for _, d := range n.deps {
		out = append(out, d)
	}
	sortNodes(out)
	return out
}
