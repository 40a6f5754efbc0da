package cbs

import (
	"errors"

	"github.com/elektrokombinacija/swarmcore/internal/graph"
	"github.com/elektrokombinacija/swarmcore/internal/mapf"
)

// ErrNotDense signals that a node's solution skipped a timestep or omitted
// an agent from a populated timestep, violating the density invariant that
// every populated timestep must report every agent.
var ErrNotDense = errors.New("cbs: solution is not dense in time")

// Conflict is either a vertex conflict (n1 == n2, two agents sharing a
// node) or an edge/swap conflict (two agents exchanging nodes between
// consecutive timesteps).
type Conflict struct {
	Time   int
	Agent1 mapf.AgentID
	Agent2 mapf.AgentID
	Node1  graph.NodeID
	Node2  graph.NodeID
}

// firstConflict scans solution in timestep order and returns the first
// vertex conflict found across all timesteps, else the first edge conflict,
// else nil. Returns ErrNotDense if a populated timestep is missing an
// agent present at another populated timestep.
func firstConflict(agents []mapf.AgentID, solution []mapf.Step) (*Conflict, error) {
	if len(solution) == 0 {
		return nil, nil
	}

	for t := 0; t < len(solution); t++ {
		occupants := make(map[graph.NodeID]mapf.AgentID, len(agents))
		for _, a := range agents {
			n, ok := solution[t][a]
			if !ok {
				return nil, ErrNotDense
			}
			if prior, taken := occupants[n]; taken {
				return &Conflict{Time: t, Agent1: prior, Agent2: a, Node1: n, Node2: n}, nil
			}
			occupants[n] = a
		}
	}

	for t := 0; t < len(solution)-1; t++ {
		for _, a1 := range agents {
			for _, a2 := range agents {
				if a1 == a2 {
					continue
				}
				if solution[t][a1] == solution[t+1][a2] && solution[t+1][a1] == solution[t][a2] {
					return &Conflict{
						Time:   t + 1,
						Agent1: a1,
						Agent2: a2,
						Node1:  solution[t+1][a1],
						Node2:  solution[t][a1],
					}, nil
				}
			}
		}
	}

	return nil, nil
}
