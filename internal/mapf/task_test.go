package mapf

import (
	"testing"

	"github.com/elektrokombinacija/swarmcore/internal/graph"
)

func buildTriangle() *graph.Graph {
	g := graph.New()
	for _, n := range []graph.NodeID{"a", "b", "c"} {
		g.AddNode(n)
	}
	g.AddEdge("a", "b", 1)
	g.AddEdge("b", "a", 1)
	g.AddEdge("b", "c", 1)
	g.AddEdge("c", "b", 1)
	return g
}

func TestNewTaskCopiesGraphIndependently(t *testing.T) {
	g := buildTriangle()
	task := NewTask(g, map[AgentID]Endpoints{0: {Start: "a", Target: "c"}})

	g.RemoveNode("b")
	if !task.Graph().HasNode("b") {
		t.Fatalf("mutating the caller's graph after NewTask must not affect the task")
	}
}

func TestTaskGraphReturnsIndependentCopy(t *testing.T) {
	g := buildTriangle()
	task := NewTask(g, map[AgentID]Endpoints{0: {Start: "a", Target: "c"}})

	cp := task.Graph()
	cp.RemoveNode("a")
	if !task.Graph().HasNode("a") {
		t.Fatalf("mutating a Graph() result must not affect the task's internal graph")
	}
}

func TestTaskEndpointsAndAgents(t *testing.T) {
	g := buildTriangle()
	task := NewTask(g, map[AgentID]Endpoints{
		2: {Start: "a", Target: "c"},
		0: {Start: "b", Target: "a"},
	})

	if task.NumAgents() != 2 {
		t.Fatalf("expected 2 agents, got %d", task.NumAgents())
	}
	agents := task.Agents()
	if len(agents) != 2 || agents[0] != 0 || agents[1] != 2 {
		t.Fatalf("expected agents sorted ascending [0 2], got %v", agents)
	}

	ep, ok := task.Endpoints(2)
	if !ok || ep.Start != "a" || ep.Target != "c" {
		t.Fatalf("unexpected endpoints for agent 2: %+v ok=%v", ep, ok)
	}

	if _, ok := task.Endpoints(99); ok {
		t.Fatalf("expected no endpoints for an unknown agent")
	}
}

func TestNewTaskWithNoAgents(t *testing.T) {
	task := NewTask(buildTriangle(), map[AgentID]Endpoints{})
	if task.NumAgents() != 0 {
		t.Fatalf("expected 0 agents, got %d", task.NumAgents())
	}
	if len(task.Agents()) != 0 {
		t.Fatalf("expected empty agent list")
	}
}
