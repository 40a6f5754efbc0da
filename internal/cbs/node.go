package cbs

import (
	"github.com/elektrokombinacija/swarmcore/internal/graph"
	"github.com/elektrokombinacija/swarmcore/internal/mapf"
)

// Heuristic estimates remaining cost for an agent's low-level search.
type Heuristic func(agent mapf.AgentID, n graph.NodeID) float64

// node is a constraint-tree node: a constraint set, the per-agent paths
// satisfying it, and their aggregate cost. The solver keeps nodes in a
// plain slice and drops them once they leave the frontier.
type node struct {
	task        *mapf.Task
	constraints *constraintSet
	paths       map[mapf.AgentID]graph.Path
	costs       map[mapf.AgentID]float64
	soc         float64
	hashVal     uint64
}

func (n *node) hash() uint64 { return n.hashVal }

// hasSolution is true iff every agent found a feasible path under n's
// constraints.
func (n *node) hasSolution() bool {
	return len(n.paths) == n.task.NumAgents()
}

// solution renders the per-agent paths as a dense timestep -> agent -> node
// mapping, padding shorter paths by repeating each agent's final node.
func (n *node) solution() []mapf.Step {
	maxLen := 0
	for _, p := range n.paths {
		if len(p) > maxLen {
			maxLen = len(p)
		}
	}
	steps := make([]mapf.Step, maxLen)
	for t := 0; t < maxLen; t++ {
		steps[t] = make(mapf.Step, len(n.paths))
	}
	for a, p := range n.paths {
		for t := 0; t < maxLen; t++ {
			if t < len(p) {
				steps[t][a] = p[t]
			} else {
				steps[t][a] = p[len(p)-1]
			}
		}
	}
	return steps
}

// newRoot plans every agent's shortest path independently, with no
// obstacles and no constraints. Paths are stored unpadded; solution() pads
// them to equal length.
func newRoot(task *mapf.Task, h Heuristic) *node {
	n := &node{
		task:        task,
		constraints: newConstraintSet(),
		paths:       make(map[mapf.AgentID]graph.Path),
		costs:       make(map[mapf.AgentID]float64),
	}
	g := task.Graph()
	for _, a := range task.Agents() {
		ep, ok := task.Endpoints(a)
		if !ok {
			continue
		}
		ah := func(nd graph.NodeID) float64 { return h(a, nd) }
		path := g.ShortestPath(ep.Start, ep.Target, ah, nil, nil)
		if path == nil {
			continue
		}
		n.paths[a] = path
		cost := g.PathCost(path)
		n.costs[a] = cost
		n.soc += cost
	}
	n.hashVal = n.constraints.hash()
	return n
}

// child copies the parent's state, adds one new constraint, and replans
// only the constrained agent's path. If that agent no longer has a
// feasible path, the returned child lacks that agent's path and cost, so
// hasSolution reports false for it.
func (parent *node) child(h Heuristic, c Constraint) *node {
	cs := parent.constraints.copy()
	cs.add(c)

	child := &node{
		task:        parent.task,
		constraints: cs,
		paths:       make(map[mapf.AgentID]graph.Path, len(parent.paths)),
		costs:       make(map[mapf.AgentID]float64, len(parent.costs)),
		soc:         parent.soc,
	}
	for a, p := range parent.paths {
		child.paths[a] = p
	}
	for a, cost := range parent.costs {
		child.costs[a] = cost
	}

	ep, ok := parent.task.Endpoints(c.Agent)
	if !ok {
		child.hashVal = cs.hash()
		return child
	}

	g := parent.task.Graph()
	ah := func(nd graph.NodeID) float64 { return h(c.Agent, nd) }
	newPath := g.ShortestPath(ep.Start, ep.Target, ah, nil, cs.forAgent(c.Agent))
	if newPath == nil {
		delete(child.paths, c.Agent)
		child.soc -= child.costs[c.Agent]
		delete(child.costs, c.Agent)
		child.hashVal = cs.hash()
		return child
	}

	oldCost := child.costs[c.Agent]
	newCost := g.PathCost(newPath)
	child.paths[c.Agent] = newPath
	child.costs[c.Agent] = newCost
	child.soc += newCost - oldCost
	child.hashVal = cs.hash()
	return child
}

// firstConflict returns the first conflict in the node's dense solution, or
// nil if it is conflict-free. ErrNotDense indicates a structural invariant
// violation (padding should have made every populated timestep dense) and
// is fatal for this solve.
func (n *node) firstConflict() (*Conflict, error) {
	return firstConflict(n.task.Agents(), n.solution())
}

// less implements the open-set ordering: by SOC, then hash, then canonical
// constraint-set comparison as the final, collision-proof tiebreaker.
func (n *node) less(o *node) bool {
	if n.soc != o.soc {
		return n.soc < o.soc
	}
	if n.hashVal != o.hashVal {
		return n.hashVal < o.hashVal
	}
	return n.constraints.canonicalKey() < o.constraints.canonicalKey()
}
