package mapf

import (
	"reflect"
	"testing"

	"github.com/elektrokombinacija/swarmcore/internal/graph"
)

func TestPlanEmpty(t *testing.T) {
	var nilPlan *Plan
	if !nilPlan.Empty() {
		t.Fatalf("expected a nil plan to be empty")
	}
	if (&Plan{}).Empty() != true {
		t.Fatalf("expected a plan with no steps to be empty")
	}
	nonEmpty := &Plan{Steps: []Step{{0: "a"}}}
	if nonEmpty.Empty() {
		t.Fatalf("expected a plan with a step to be non-empty")
	}
}

func TestPlanLen(t *testing.T) {
	var nilPlan *Plan
	if nilPlan.Len() != 0 {
		t.Fatalf("expected nil plan length 0")
	}
	p := &Plan{Steps: []Step{{0: "a"}, {0: "b"}, {0: "c"}}}
	if p.Len() != 3 {
		t.Fatalf("expected length 3, got %d", p.Len())
	}
}

func TestPlanFinalPositionsStickyInheritance(t *testing.T) {
	p := &Plan{Steps: []Step{
		{0: "a", 1: "x"},
		{0: "b"},
	}}
	final := p.FinalPositions()
	want := map[AgentID]graph.NodeID{0: "b", 1: "x"}
	if !reflect.DeepEqual(final, want) {
		t.Fatalf("expected %v, got %v", want, final)
	}
}

func TestPlanSimulateVisitsEveryTimestepWithStickyState(t *testing.T) {
	p := &Plan{Steps: []Step{
		{0: "a", 1: "p"},
		{0: "b"},
		{1: "q"},
	}}

	var seen []map[AgentID]graph.NodeID
	p.Simulate(func(t int, snapshot map[AgentID]graph.NodeID) {
		cp := make(map[AgentID]graph.NodeID, len(snapshot))
		for k, v := range snapshot {
			cp[k] = v
		}
		seen = append(seen, cp)
	})

	if len(seen) != 3 {
		t.Fatalf("expected 3 observed timesteps, got %d", len(seen))
	}
	if !reflect.DeepEqual(seen[0], map[AgentID]graph.NodeID{0: "a", 1: "p"}) {
		t.Fatalf("unexpected snapshot at t=0: %v", seen[0])
	}
	if !reflect.DeepEqual(seen[1], map[AgentID]graph.NodeID{0: "b", 1: "p"}) {
		t.Fatalf("expected agent 1 to stick at its last node at t=1: %v", seen[1])
	}
	if !reflect.DeepEqual(seen[2], map[AgentID]graph.NodeID{0: "b", 1: "q"}) {
		t.Fatalf("unexpected snapshot at t=2: %v", seen[2])
	}
}

func TestPlanSimulateOnNilPlanDoesNothing(t *testing.T) {
	var p *Plan
	called := false
	p.Simulate(func(t int, snapshot map[AgentID]graph.NodeID) { called = true })
	if called {
		t.Fatalf("expected Simulate on a nil plan never to invoke the observer")
	}
}
