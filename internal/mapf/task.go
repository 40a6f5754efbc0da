// Package mapf defines the multi-agent pathfinding problem instance (Task)
// and its solution (Plan), plus a simulation driver that replays a Plan
// timestep by timestep.
package mapf

import (
	"sort"

	"github.com/elektrokombinacija/swarmcore/internal/graph"
)

// AgentID identifies a single planned agent.
type AgentID uint16

// Endpoints is an agent's start and target node.
type Endpoints struct {
	Start  graph.NodeID
	Target graph.NodeID
}

// Task is an immutable MAPF problem instance: a graph and a start/target
// node pair per agent.
type Task struct {
	g      graph.Graph
	agents map[AgentID]Endpoints
}

// NewTask copies g by value (per the graph's value semantics) and the agent
// map, so the returned Task is independent of further mutation by the
// caller.
func NewTask(g *graph.Graph, agents map[AgentID]Endpoints) *Task {
	cp := make(map[AgentID]Endpoints, len(agents))
	for a, e := range agents {
		cp[a] = e
	}
	return &Task{g: *g.Copy(), agents: cp}
}

// Graph returns a copy of the task's graph, safe for the caller to mutate
// (e.g. to mark obstacles) without affecting the task. Every call copies
// the whole graph, including calls that only read it; Task has no
// read-only graph accessor.
func (t *Task) Graph() *graph.Graph {
	return t.g.Copy()
}

// Endpoints returns agent a's start/target pair.
func (t *Task) Endpoints(a AgentID) (Endpoints, bool) {
	e, ok := t.agents[a]
	return e, ok
}

// Agents returns every agent ID in ascending order, giving callers a
// deterministic iteration order for conflict detection and path planning.
func (t *Task) Agents() []AgentID {
	out := make([]AgentID, 0, len(t.agents))
	for a := range t.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NumAgents returns the number of agents in the task.
func (t *Task) NumAgents() int {
	return len(t.agents)
}
