// Package cbs implements Conflict-Based Search over a mapf.Task: a
// constraint tree of per-agent path sets, expanded in bounded parallel
// batches until a conflict-free candidate is found.
package cbs

import (
	"sort"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/swarmcore/internal/graph"
	"github.com/elektrokombinacija/swarmcore/internal/mapf"
)

// Constraint forbids agent Agent from occupying Node at timestep Time.
type Constraint struct {
	Time  int
	Agent mapf.AgentID
	Node  graph.NodeID
}

// Less orders constraints by t descending, then n ascending, then a
// ascending. The exact order only needs to be total and stable. The
// constraint-tree node ordering does not use it: it compares canonicalKey
// strings instead.
func (c Constraint) Less(o Constraint) bool {
	if c.Time != o.Time {
		return c.Time > o.Time
	}
	if c.Node != o.Node {
		return c.Node < o.Node
	}
	return c.Agent < o.Agent
}

// constraintSet holds every constraint active at a tree node, indexed for
// fast per-agent, per-timestep lookup during low-level replanning.
type constraintSet struct {
	byAgent map[mapf.AgentID]map[int]map[graph.NodeID]bool
	all     []Constraint
}

func newConstraintSet() *constraintSet {
	return &constraintSet{byAgent: make(map[mapf.AgentID]map[int]map[graph.NodeID]bool)}
}

func (cs *constraintSet) copy() *constraintSet {
	out := newConstraintSet()
	out.all = append([]Constraint(nil), cs.all...)
	for a, byT := range cs.byAgent {
		cp := make(map[int]map[graph.NodeID]bool, len(byT))
		for t, nodes := range byT {
			cpNodes := make(map[graph.NodeID]bool, len(nodes))
			for n := range nodes {
				cpNodes[n] = true
			}
			cp[t] = cpNodes
		}
		out.byAgent[a] = cp
	}
	return out
}

func (cs *constraintSet) add(c Constraint) {
	cs.all = append(cs.all, c)
	byT, ok := cs.byAgent[c.Agent]
	if !ok {
		byT = make(map[int]map[graph.NodeID]bool)
		cs.byAgent[c.Agent] = byT
	}
	nodes, ok := byT[c.Time]
	if !ok {
		nodes = make(map[graph.NodeID]bool)
		byT[c.Time] = nodes
	}
	nodes[c.Node] = true
}

// forAgent returns the constraint set for a single agent in the shape the
// low-level planner expects (graph.Constraints).
func (cs *constraintSet) forAgent(a mapf.AgentID) graph.Constraints {
	byT, ok := cs.byAgent[a]
	if !ok {
		return nil
	}
	out := make(graph.Constraints, len(byT))
	for t, nodes := range byT {
		cp := make(map[graph.NodeID]bool, len(nodes))
		for n := range nodes {
			cp[n] = true
		}
		out[t] = cp
	}
	return out
}

// hash is a cheap, collision-prone digest of the constraint set, used as a
// fast pre-filter in the open-set ordering. The closed set is keyed by
// canonicalKey, not by hash.
func (cs *constraintSet) hash() uint64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for _, c := range cs.canonical() {
		h = fnvMix(h, uint64(c.Time))
		h = fnvMix(h, uint64(c.Agent))
		for _, r := range c.Node {
			h = fnvMix(h, uint64(r))
		}
	}
	return h
}

func fnvMix(h uint64, v uint64) uint64 {
	h ^= v
	h *= 1099511628211 // FNV-1a prime
	return h
}

// canonical returns the constraint set sorted into a deterministic order,
// used both for hashing and as the final tiebreaker in open-set ordering
// (lexicographic comparison of canonical constraint sets), since hash
// collisions must not be mistaken for constraint-set equality.
func (cs *constraintSet) canonical() []Constraint {
	out := append([]Constraint(nil), cs.all...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Node < out[j].Node
	})
	return out
}

// canonicalKey renders the canonical constraint set as a comparable string,
// suitable for use as a closed-set map key that is safe even under hash
// collisions.
func (cs *constraintSet) canonicalKey() string {
	var b strings.Builder
	for _, c := range cs.canonical() {
		b.WriteString(string(c.Node))
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(c.Time))
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(int(c.Agent)))
		b.WriteByte(';')
	}
	return b.String()
}
