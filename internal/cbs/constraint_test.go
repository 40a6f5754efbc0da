package cbs

import (
	"testing"

	"github.com/elektrokombinacija/swarmcore/internal/mapf"
)

func TestConstraintSetCopyIsIndependent(t *testing.T) {
	base := newConstraintSet()
	base.add(Constraint{Time: 1, Agent: 0, Node: "0,0,0"})

	cp := base.copy()
	cp.add(Constraint{Time: 2, Agent: 1, Node: "1,1,0"})

	if len(base.all) != 1 {
		t.Fatalf("expected base to be unaffected by copy mutation, got %d constraints", len(base.all))
	}
	if len(cp.all) != 2 {
		t.Fatalf("expected copy to carry both constraints, got %d", len(cp.all))
	}
}

func TestConstraintSetForAgentIsolatesPerAgentWindows(t *testing.T) {
	cs := newConstraintSet()
	cs.add(Constraint{Time: 3, Agent: 0, Node: "0,0,0"})
	cs.add(Constraint{Time: 3, Agent: 1, Node: "1,0,0"})

	forA0 := cs.forAgent(0)
	if !forA0[3]["0,0,0"] {
		t.Fatalf("expected agent 0's constraint at t=3 to be present")
	}
	if forA0[3]["1,0,0"] {
		t.Fatalf("agent 0's window must not see agent 1's constraint")
	}
	if len(cs.forAgent(2)) != 0 {
		t.Fatalf("expected empty window for an unconstrained agent")
	}
}

func TestConstraintSetCanonicalKeyIsOrderIndependent(t *testing.T) {
	a := newConstraintSet()
	a.add(Constraint{Time: 1, Agent: 0, Node: "0,0,0"})
	a.add(Constraint{Time: 2, Agent: 1, Node: "1,0,0"})

	b := newConstraintSet()
	b.add(Constraint{Time: 2, Agent: 1, Node: "1,0,0"})
	b.add(Constraint{Time: 1, Agent: 0, Node: "0,0,0"})

	if a.canonicalKey() != b.canonicalKey() {
		t.Fatalf("expected identical constraint sets added in different orders to produce the same key, got %q vs %q",
			a.canonicalKey(), b.canonicalKey())
	}
	if a.hash() != b.hash() {
		t.Fatalf("expected identical constraint sets to hash equal")
	}
}

func TestConstraintSetCanonicalKeyDistinguishesDistinctSets(t *testing.T) {
	a := newConstraintSet()
	a.add(Constraint{Time: 1, Agent: 0, Node: "0,0,0"})

	b := newConstraintSet()
	b.add(Constraint{Time: 1, Agent: 0, Node: "1,0,0"})

	if a.canonicalKey() == b.canonicalKey() {
		t.Fatalf("expected distinct constraint sets to produce distinct keys")
	}
}

func TestConstraintLessOrdersTimeDescNodeAscAgentAsc(t *testing.T) {
	earlierButHigherTime := Constraint{Time: 5, Agent: 2, Node: "9,9,0"}
	laterLowerTime := Constraint{Time: 1, Agent: 0, Node: "0,0,0"}
	if !earlierButHigherTime.Less(laterLowerTime) {
		t.Fatalf("expected higher Time to sort first")
	}

	sameTimeLowerNode := Constraint{Time: 1, Agent: 9, Node: "0,0,0"}
	sameTimeHigherNode := Constraint{Time: 1, Agent: 0, Node: "1,0,0"}
	if !sameTimeLowerNode.Less(sameTimeHigherNode) {
		t.Fatalf("expected lower Node to sort first when Time is equal")
	}

	sameTimeNodeLowerAgent := Constraint{Time: 1, Agent: 0, Node: "0,0,0"}
	sameTimeNodeHigherAgent := Constraint{Time: 1, Agent: 1, Node: "0,0,0"}
	if !sameTimeNodeLowerAgent.Less(sameTimeNodeHigherAgent) {
		t.Fatalf("expected lower Agent to sort first when Time and Node are equal")
	}
}

func TestConstraintSetCanonicalKeyDistinguishesFromEmpty(t *testing.T) {
	empty := newConstraintSet()
	withOneConstraint := newConstraintSet()
	withOneConstraint.add(Constraint{Time: 0, Agent: mapf.AgentID(0), Node: ""})

	if empty.canonicalKey() == withOneConstraint.canonicalKey() {
		t.Fatalf("an empty constraint set must not share a canonical key with a non-empty one")
	}
}
