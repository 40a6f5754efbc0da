package graph

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// adjacency maps string NodeIDs onto a gonum simple.WeightedDirectedGraph,
// which owns the actual adjacency storage (maps of maps keyed by int64 node
// ID, giving O(1)-amortized membership/adjacency/weight lookups).
type adjacency struct {
	g      *simple.WeightedDirectedGraph
	idOf   map[NodeID]int64
	nodeOf map[int64]NodeID
	nextID int64
}

func newAdjacency() *adjacency {
	return &adjacency{
		g:      simple.NewWeightedDirectedGraph(0, 0),
		idOf:   make(map[NodeID]int64),
		nodeOf: make(map[int64]NodeID),
	}
}

func (a *adjacency) hasNode(n NodeID) bool {
	_, ok := a.idOf[n]
	return ok
}

func (a *adjacency) addNode(n NodeID) bool {
	if a.hasNode(n) {
		return false
	}
	id := a.nextID
	a.nextID++
	a.idOf[n] = id
	a.nodeOf[id] = n
	a.g.AddNode(simple.Node(id))
	return true
}

func (a *adjacency) removeNode(n NodeID) bool {
	id, ok := a.idOf[n]
	if !ok {
		return false
	}
	a.g.RemoveNode(id)
	delete(a.idOf, n)
	delete(a.nodeOf, id)
	return true
}

func (a *adjacency) addEdge(u, v NodeID, w float64) bool {
	uid, uok := a.idOf[u]
	vid, vok := a.idOf[v]
	if !uok || !vok {
		return false
	}
	if a.g.HasEdgeFromTo(uid, vid) {
		return false
	}
	a.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(uid), T: simple.Node(vid), W: w})
	return true
}

func (a *adjacency) removeEdge(u, v NodeID) bool {
	uid, uok := a.idOf[u]
	vid, vok := a.idOf[v]
	if !uok || !vok || !a.g.HasEdgeFromTo(uid, vid) {
		return false
	}
	a.g.RemoveEdge(uid, vid)
	return true
}

func (a *adjacency) outgoing(n NodeID) []NodeID {
	id, ok := a.idOf[n]
	if !ok {
		return nil
	}
	var out []NodeID
	it := a.g.From(id)
	for it.Next() {
		out = append(out, a.nodeOf[it.Node().ID()])
	}
	return out
}

func (a *adjacency) incoming(n NodeID) []NodeID {
	id, ok := a.idOf[n]
	if !ok {
		return nil
	}
	var in []NodeID
	it := a.g.To(id)
	for it.Next() {
		in = append(in, a.nodeOf[it.Node().ID()])
	}
	return in
}

func (a *adjacency) weight(u, v NodeID) float64 {
	uid, uok := a.idOf[u]
	vid, vok := a.idOf[v]
	if !uok || !vok {
		return 0
	}
	e := a.g.WeightedEdge(uid, vid)
	if e == nil {
		return 0
	}
	return e.Weight()
}

func (a *adjacency) nodes() []NodeID {
	out := make([]NodeID, 0, len(a.idOf))
	for n := range a.idOf {
		out = append(out, n)
	}
	return out
}

// ensure graph.WeightedDirectedGraph satisfies the traverse.Graph-shaped
// interfaces we rely on structurally (From/To/WeightedEdge).
var _ graph.WeightedDirected = (*simple.WeightedDirectedGraph)(nil)
