package graph

import "container/heap"

// Heuristic estimates the remaining cost from a node to a fixed target. It
// must be non-negative; for optimality guarantees it must also be
// admissible.
type Heuristic func(n NodeID) float64

// Constraints maps a timestep to the set of nodes forbidden at that
// timestep for the agent being planned.
type Constraints map[int]map[NodeID]bool

// timedState is a (node, timestep) pair: the state space of the
// time-expanded search.
type timedState struct {
	node NodeID
	t    int
}

// ShortestPath runs a time-expanded A* from source to target. Unlike the
// node-only g-value indexing historically used for this search (see
// DESIGN.md), g is indexed by the full (node, timestep) state, which is
// required for optimality whenever waiting can be cheaper than moving.
//
// Expansion from (u, t) considers every neighbor s of u (the self-loop,
// when present, models waiting in place), skipping s if it is an obstacle,
// forbidden by constraints at t+1, or already closed at t+1. The goal test
// at a popped state (target, t) only accepts it if no constraint at any
// t' >= t (up to the last constrained timestep) forbids target; otherwise
// the search continues past it, since a "parked at goal" constraint can
// force a later detour.
//
// Past the last constrained timestep nothing depends on time any more, so
// there a state is only pushed if its node has not already been reached
// beyond that timestep at an equal or lower cost. This keeps zero-cost
// waiting from growing the search without bound and lets it end with nil
// when the target cannot be reached.
func (g *Graph) ShortestPath(source, target NodeID, h Heuristic, obstacles map[NodeID]bool, constraints Constraints) Path {
	maxConstraintTime := 0
	for t := range constraints {
		if t > maxConstraintTime {
			maxConstraintTime = t
		}
	}

	start := timedState{source, 0}
	g0 := map[timedState]float64{start: 0}
	prev := map[timedState]timedState{}
	hasPrev := map[timedState]bool{}
	closed := map[timedState]bool{}
	settled := map[NodeID]float64{} // best g per node beyond maxConstraintTime

	open := &astarHeap{}
	heap.Push(open, astarItem{state: start, f: h(source)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(astarItem)
		cs := cur.state
		if closed[cs] {
			continue
		}

		if cs.node == target && targetStaysFree(target, cs.t, maxConstraintTime, constraints) {
			return reconstructTimed(prev, hasPrev, cs)
		}

		closed[cs] = true
		nextT := cs.t + 1

		for _, s := range g.Outgoing(cs.node) {
			if obstacles[s] {
				continue
			}
			if constraints[nextT][s] {
				continue
			}
			ns := timedState{s, nextT}
			if closed[ns] {
				continue
			}
			gPrime := g0[cs] + g.Weight(cs.node, s)
			if existing, ok := g0[ns]; ok && existing <= gPrime {
				continue
			}
			if nextT > maxConstraintTime {
				if best, ok := settled[s]; ok && best <= gPrime {
					continue
				}
				settled[s] = gPrime
			}
			g0[ns] = gPrime
			prev[ns] = cs
			hasPrev[ns] = true
			heap.Push(open, astarItem{state: ns, f: gPrime + h(s)})
		}
	}

	return nil
}

func targetStaysFree(target NodeID, tGoal, maxT int, constraints Constraints) bool {
	for t := tGoal; t <= maxT; t++ {
		if constraints[t][target] {
			return false
		}
	}
	return true
}

func reconstructTimed(prev map[timedState]timedState, hasPrev map[timedState]bool, goal timedState) Path {
	var states []timedState
	cur := goal
	for {
		states = append(states, cur)
		if !hasPrev[cur] {
			break
		}
		cur = prev[cur]
	}
	path := make(Path, len(states))
	for i, s := range states {
		path[len(states)-1-i] = s.node
	}
	return path
}

type astarItem struct {
	state timedState
	f     float64
}

type astarHeap []astarItem

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].state.t != h[j].state.t {
		return h[i].state.t < h[j].state.t
	}
	return h[i].state.node < h[j].state.node
}
func (h astarHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *astarHeap) Push(x any)   { *h = append(*h, x.(astarItem)) }
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
