// Package graph implements the directed, weighted, loop-permitted graph
// used for symbolic planning, plus a time-expanded A* search over it.
//
// The adjacency store is built on gonum's simple.WeightedDirectedGraph
// (gonum.org/v1/gonum/graph/simple), which gives O(1)-amortized node
// membership and adjacency lookups for free. gonum's WeightedDirectedGraph
// rejects self edges outright ("simple: adding self edge"), so self-loops
// (used to represent "wait in place") are tracked in a small side map
// instead of being forced through gonum's edge set.
package graph

import (
	"fmt"
)

// NodeID is an opaque node identifier.
type NodeID string

// Path is an ordered sequence of nodes, beginning at a source.
type Path []NodeID

// Graph is a directed, weighted, loop-permitted simple graph: at most one
// edge per ordered (from, to) pair, including a single optional self-loop
// per node.
type Graph struct {
	adj       *adjacency
	selfLoops map[NodeID]float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		adj:       newAdjacency(),
		selfLoops: make(map[NodeID]float64),
	}
}

// AddNode inserts n. Returns false if n was already present.
func (g *Graph) AddNode(n NodeID) bool {
	return g.adj.addNode(n)
}

// AddEdge inserts a directed edge (u, v) with weight w. Both endpoints must
// already exist. Returns false if (u, v) is already present, if either
// endpoint is missing, or if u == v and a self-loop already exists.
func (g *Graph) AddEdge(u, v NodeID, w float64) bool {
	if !g.adj.hasNode(u) || !g.adj.hasNode(v) {
		return false
	}
	if u == v {
		if _, exists := g.selfLoops[u]; exists {
			return false
		}
		g.selfLoops[u] = w
		return true
	}
	return g.adj.addEdge(u, v, w)
}

// RemoveNode deletes n and every edge incident to it (both directions,
// including a self-loop).
func (g *Graph) RemoveNode(n NodeID) bool {
	delete(g.selfLoops, n)
	return g.adj.removeNode(n)
}

// RemoveEdge deletes the directed edge (u, v).
func (g *Graph) RemoveEdge(u, v NodeID) bool {
	if u == v {
		if _, exists := g.selfLoops[u]; !exists {
			return false
		}
		delete(g.selfLoops, u)
		return true
	}
	return g.adj.removeEdge(u, v)
}

// HasNode reports whether n is a member of the graph.
func (g *Graph) HasNode(n NodeID) bool {
	return g.adj.hasNode(n)
}

// Outgoing returns the nodes reachable from n by a single outgoing edge,
// including n itself if a self-loop exists.
func (g *Graph) Outgoing(n NodeID) []NodeID {
	out := g.adj.outgoing(n)
	if _, ok := g.selfLoops[n]; ok {
		out = append(out, n)
	}
	return out
}

// Incoming returns the nodes that reach n by a single outgoing edge,
// including n itself if a self-loop exists.
func (g *Graph) Incoming(n NodeID) []NodeID {
	in := g.adj.incoming(n)
	if _, ok := g.selfLoops[n]; ok {
		in = append(in, n)
	}
	return in
}

// Weight returns the weight of edge (u, v), defaulting to 0 if absent.
func (g *Graph) Weight(u, v NodeID) float64 {
	if u == v {
		return g.selfLoops[u]
	}
	return g.adj.weight(u, v)
}

// Nodes returns all nodes currently in the graph.
func (g *Graph) Nodes() []NodeID {
	return g.adj.nodes()
}

// PathCost sums the edge weights along consecutive pairs of path. An empty
// or single-node path costs 0.
func (g *Graph) PathCost(path Path) float64 {
	var cost float64
	for i := 1; i < len(path); i++ {
		cost += g.Weight(path[i-1], path[i])
	}
	return cost
}

// Copy returns a deep copy that shares no mutable state with g.
func (g *Graph) Copy() *Graph {
	cp := New()
	for _, n := range g.Nodes() {
		cp.AddNode(n)
	}
	for _, n := range g.Nodes() {
		for _, to := range g.adj.outgoing(n) {
			cp.AddEdge(n, to, g.Weight(n, to))
		}
	}
	for n, w := range g.selfLoops {
		cp.selfLoops[n] = w
	}
	return cp
}

func (g *Graph) String() string {
	return fmt.Sprintf("Graph{nodes=%d}", len(g.Nodes()))
}
