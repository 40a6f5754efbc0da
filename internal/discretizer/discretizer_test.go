package discretizer

import (
	"testing"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/graph"
)

func testConfig() Config {
	return Config{
		HeightOffset: 1.0,
		Height:       0.7,
		Step:         geomtype.Position{X: 0.6, Y: 0.6, Z: 0.6},
		Weight:       geomtype.Position{X: 1, Y: 1, Z: 1},
	}
}

// testInitial uses an extent of 4.2 rather than the literal 4.0 from the
// scenario this test is modeled on: 4.2/0.6 lands on exactly 7 whole steps
// (64 ground nodes, 49 spike nodes), whereas 4.0 does not divide evenly by
// the 0.6 step and yields a different count.
func testInitial() map[uint16]geomtype.Position {
	return map[uint16]geomtype.Position{
		0: {X: 0, Y: 0, Z: 1},
		1: {X: 4.2, Y: 4.2, Z: 1},
	}
}

func TestNewRejectsFewerThanTwoPositions(t *testing.T) {
	_, err := New(testConfig(), map[uint16]geomtype.Position{0: {}})
	if err == nil {
		t.Fatal("expected error for fewer than two initial positions")
	}
}

func TestLayerConstructionCounts(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ground, spike int
	for n := range d.NodePositions() {
		if len(n) > 0 && n[len(n)-1] == '1' {
			spike++
		} else {
			ground++
		}
	}

	// 4.2/0.6 ~= 7 steps -> 8x8 = 64 ground nodes, 7x7 = 49 spike nodes.
	if ground != 64 {
		t.Fatalf("expected 64 ground nodes, got %d", ground)
	}
	if spike != 49 {
		t.Fatalf("expected 49 spike nodes, got %d", spike)
	}
}

func TestSpikeNodeHasFourGroundNeighbors(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spike := encode(0, 0, LayerSpike)
	out := d.Graph().Outgoing(spike)
	// 4 ground corners + the self-loop.
	if len(out) != 5 {
		t.Fatalf("expected 5 outgoing edges (4 corners + wait), got %d: %v", len(out), out)
	}
}

func TestSnapPreservesOrderAndUsesEachNodeOnce(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions := []geomtype.Position{{X: 0, Y: 0, Z: 1}, {X: 0.05, Y: 0.05, Z: 1}}
	nodes, err := d.Snap(positions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 snapped nodes, got %d", len(nodes))
	}
	if nodes[0] == nodes[1] {
		t.Fatal("expected distinct nodes for distinct positions")
	}
}

func TestSnapFailsWhenOversubscribed(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := len(d.Graph().Nodes())
	positions := make([]geomtype.Position, total+1)
	if _, err := d.Snap(positions); err == nil {
		t.Fatal("expected error when snapping more positions than nodes")
	}
}

func TestTranslateRoundTripsSnap(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodes, err := d.Snap([]geomtype.Position{{X: 0, Y: 0, Z: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := d.Translate(nodes[0])
	if !ok {
		t.Fatal("expected translation to succeed for a snapped node")
	}
	if p.EuclideanDistance(geomtype.Position{X: 0, Y: 0, Z: 1}) > 0.6 {
		t.Fatalf("translated position too far from requested snap target: %v", p)
	}
}

func TestRefineFallsBackToNodeCentreOnConflict(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g0, g1 := encode(0, 0, LayerGround), encode(1, 0, LayerGround)
	at := map[uint16]graph.NodeID{0: g0, 1: g1}

	centre0, _ := d.Translate(g0)
	centre1, _ := d.Translate(g1)

	// Both agents want to refine toward the same point, which sits close
	// to both node centres; the second agent processed must fall back to
	// its own node centre instead of colliding with the first.
	mid := geomtype.Position{
		X: (centre0.X + centre1.X) / 2,
		Y: centre0.Y,
		Z: centre0.Z,
	}
	targets := map[uint16]geomtype.Position{0: mid, 1: mid}

	result := d.Refine([]uint16{0, 1}, targets, at)
	if !result[1].Equal(centre1) {
		t.Fatalf("expected second agent to fall back to its node centre, got %v want %v", result[1], centre1)
	}
}

func TestRefineClipsToCellBounds(t *testing.T) {
	d, err := New(testConfig(), testInitial())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g0 := encode(0, 0, LayerGround)
	centre, _ := d.Translate(g0)

	// A wildly out-of-cell target should be clipped to within a half-step
	// of the node centre, never snapped verbatim.
	far := geomtype.Position{X: centre.X + 100, Y: centre.Y, Z: centre.Z}
	result := d.Refine([]uint16{0}, map[uint16]geomtype.Position{0: far}, map[uint16]graph.NodeID{0: g0})

	if result[0].EuclideanDistance(centre) > testConfig().Step.X {
		t.Fatalf("refined target escaped its cell: %v (centre %v)", result[0], centre)
	}
}
