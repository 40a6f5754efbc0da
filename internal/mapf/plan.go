package mapf

import "github.com/elektrokombinacija/swarmcore/internal/graph"

// Step is a single timestep's agent -> node snapshot. It is sparse: an
// agent absent from a Step inherits its node from the previous timestep
// when the Plan is simulated.
type Step map[AgentID]graph.NodeID

// Plan is a finite sequence of Steps produced by the CBS solver.
type Plan struct {
	Steps []Step
}

// Empty reports whether the plan carries no solution.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Steps) == 0
}

// Len returns the number of timesteps in the plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// FinalPositions returns the agent -> node mapping after the last step has
// been applied, following the same sticky-inheritance rule as Simulate.
func (p *Plan) FinalPositions() map[AgentID]graph.NodeID {
	cumulative := make(map[AgentID]graph.NodeID)
	if p == nil {
		return cumulative
	}
	for _, step := range p.Steps {
		for a, n := range step {
			cumulative[a] = n
		}
	}
	return cumulative
}

// Observer is invoked once per simulated timestep with the cumulative
// agent -> node snapshot after applying that timestep's Step.
type Observer func(t int, snapshot map[AgentID]graph.NodeID)

// Simulate replays the plan timestep by timestep, starting from an empty
// cumulative map, calling observer after each timestep is folded in. Agents
// missing from a given Step retain their most recently observed node.
func (p *Plan) Simulate(observer Observer) {
	if p == nil {
		return
	}
	cumulative := make(map[AgentID]graph.NodeID)
	for t, step := range p.Steps {
		for a, n := range step {
			cumulative[a] = n
		}
		snapshot := make(map[AgentID]graph.NodeID, len(cumulative))
		for a, n := range cumulative {
			snapshot[a] = n
		}
		observer(t, snapshot)
	}
}
