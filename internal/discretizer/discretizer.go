// Package discretizer builds the hypercube graph used for symbolic planning
// from a continuous flight volume, and translates between real-world
// positions and the nodes of that graph.
//
// The construction follows the "ground layer plus elevated spike layer"
// approach of the original geometry module: a dense 2-D ground layer at the
// minimum flight altitude, with an optional sparser layer of "spike" nodes
// above cell centres that give agents room to pass each other vertically.
package discretizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/graph"
)

// Layer distinguishes the two z-levels of the hypercube.
type Layer int

const (
	LayerGround Layer = iota
	LayerSpike
)

// Config parameterizes hypercube construction.
type Config struct {
	// HeightOffset is the minimum flight altitude (z0).
	HeightOffset float64
	// Height is the vertical extent above HeightOffset within which a spike
	// layer may be built (H).
	Height float64
	// Step holds the per-axis spacing between adjacent ground nodes.
	Step geomtype.Position
	// Weight holds the per-axis edge weight used for ground-layer edges.
	Weight geomtype.Position
}

// Discretizer holds the constructed hypercube graph and the real-world
// position of every node in it.
type Discretizer struct {
	cfg   Config
	env   *graph.Graph
	pos   map[graph.NodeID]geomtype.Position
	minXY geomtype.Position // xmin, ymin of the ground layer
	cells [2]int            // number of ground cells along (x, y)
}

// New builds the environment hypercube from the initial positions of the
// fleet. The drone pair with maximum pairwise distance determines the
// bounding rectangle; every other initial position must lie within it.
func New(cfg Config, initial map[uint16]geomtype.Position) (*Discretizer, error) {
	if len(initial) < 2 {
		return nil, fmt.Errorf("discretizer: need at least two initial positions, got %d", len(initial))
	}
	if cfg.Step.X <= 0 || cfg.Step.Y <= 0 || cfg.Step.Z <= 0 {
		return nil, fmt.Errorf("discretizer: step sizes must be positive, got %+v", cfg.Step)
	}

	a, b := maxPairwiseDistance(initial)
	xmin, xmax := a.X, b.X
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}
	ymin, ymax := a.Y, b.Y
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}

	d := &Discretizer{
		cfg:   cfg,
		env:   graph.New(),
		pos:   make(map[graph.NodeID]geomtype.Position),
		minXY: geomtype.Position{X: xmin, Y: ymin},
	}
	d.buildGroundLayer(xmin, xmax, ymin, ymax)
	if cfg.Step.Z <= cfg.Height {
		d.buildSpikeLayer()
	}
	return d, nil
}

func maxPairwiseDistance(positions map[uint16]geomtype.Position) (geomtype.Position, geomtype.Position) {
	ids := make([]uint16, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var best float64 = -1
	var a, b geomtype.Position
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			p1, p2 := positions[ids[i]], positions[ids[j]]
			if dist := p1.EuclideanDistance(p2); dist > best {
				best = dist
				a, b = p1, p2
			}
		}
	}
	return a, b
}

// encode produces the canonical "X,Y,Z" node identifier for a hypercube
// index, where Z is the layer (0 = ground, 1 = spike). It is reversible:
// parse(encode(x, y, z)) == (x, y, z).
func encode(cx, cy int, layer Layer) graph.NodeID {
	return graph.NodeID(fmt.Sprintf("%d,%d,%d", cx, cy, layer))
}

// parse recovers the hypercube index encoded by a node identifier produced
// by encode. It returns ok=false if n is not in canonical form.
func parse(n graph.NodeID) (cx, cy int, layer Layer, ok bool) {
	var x, y, z int
	if _, err := fmt.Sscanf(string(n), "%d,%d,%d", &x, &y, &z); err != nil {
		return 0, 0, 0, false
	}
	return x, y, Layer(z), true
}

func (d *Discretizer) buildGroundLayer(xmin, xmax, ymin, ymax float64) {
	step := d.cfg.Step
	maxCx := int(math.Floor((xmax-xmin)/step.X + 1e-9))
	maxCy := int(math.Floor((ymax-ymin)/step.Y + 1e-9))
	d.cells = [2]int{maxCx, maxCy}

	for cy := 0; cy <= maxCy; cy++ {
		for cx := 0; cx <= maxCx; cx++ {
			n := encode(cx, cy, LayerGround)
			p := geomtype.Position{
				X: xmin + float64(cx)*step.X,
				Y: ymin + float64(cy)*step.Y,
				Z: d.cfg.HeightOffset,
			}
			d.env.AddNode(n)
			d.pos[n] = p
			d.env.AddEdge(n, n, 0) // wait in place

			if cx > 0 {
				prev := encode(cx-1, cy, LayerGround)
				d.env.AddEdge(prev, n, d.cfg.Weight.X)
				d.env.AddEdge(n, prev, d.cfg.Weight.X)
			}
			if cy > 0 {
				prev := encode(cx, cy-1, LayerGround)
				d.env.AddEdge(prev, n, d.cfg.Weight.Y)
				d.env.AddEdge(n, prev, d.cfg.Weight.Y)
			}
		}
	}
}

func (d *Discretizer) buildSpikeLayer() {
	step := d.cfg.Step
	w := d.cfg.Weight
	diag := math.Sqrt(w.X*w.X + w.Y*w.Y + w.Z*w.Z)
	maxCx, maxCy := d.cells[0], d.cells[1]

	for cy := 0; cy < maxCy; cy++ {
		for cx := 0; cx < maxCx; cx++ {
			n := encode(cx, cy, LayerSpike)
			p := geomtype.Position{
				X: d.minXY.X + (float64(cx)+0.5)*step.X,
				Y: d.minXY.Y + (float64(cy)+0.5)*step.Y,
				Z: d.cfg.HeightOffset + step.Z,
			}
			d.env.AddNode(n)
			d.pos[n] = p
			d.env.AddEdge(n, n, 0)

			corners := [4]graph.NodeID{
				encode(cx, cy, LayerGround),
				encode(cx+1, cy, LayerGround),
				encode(cx, cy+1, LayerGround),
				encode(cx+1, cy+1, LayerGround),
			}
			for _, g := range corners {
				d.env.AddEdge(n, g, diag)
				d.env.AddEdge(g, n, diag)
			}
		}
	}
}

// Graph returns the constructed environment graph.
func (d *Discretizer) Graph() *graph.Graph {
	return d.env
}

// HeightOffset returns the minimum flight altitude (z0) this discretizer
// was configured with.
func (d *Discretizer) HeightOffset() float64 {
	return d.cfg.HeightOffset
}

// NodePositions returns the real-world position of every node in the graph.
func (d *Discretizer) NodePositions() map[graph.NodeID]geomtype.Position {
	out := make(map[graph.NodeID]geomtype.Position, len(d.pos))
	for n, p := range d.pos {
		out[n] = p
	}
	return out
}

// HypercubeIndex returns the relative (x, y, z) hypercube index of a node.
// This is the logical grid position, not a real-world coordinate, and is
// used by callers (e.g. the CBS heuristic) that need a cheap distance proxy
// without a position lookup.
func HypercubeIndex(n graph.NodeID) (x, y, z int, ok bool) {
	cx, cy, layer, ok := parse(n)
	return cx, cy, int(layer), ok
}

// Snap assigns each position in order to its nearest unused node. An error
// is returned if there are more positions than nodes.
func (d *Discretizer) Snap(positions []geomtype.Position) ([]graph.NodeID, error) {
	nodes := d.env.Nodes()
	if len(positions) > len(nodes) {
		return nil, fmt.Errorf("discretizer: cannot snap %d positions onto %d nodes", len(positions), len(nodes))
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	used := make(map[graph.NodeID]bool, len(positions))
	result := make([]graph.NodeID, len(positions))

	for i, p := range positions {
		var best graph.NodeID
		bestDist := math.Inf(1)
		for _, n := range nodes {
			if used[n] {
				continue
			}
			dist := p.EuclideanDistance(d.pos[n])
			if dist < bestDist {
				bestDist = dist
				best = n
			}
		}
		used[best] = true
		result[i] = best
	}
	return result, nil
}

// SnapKeyed snaps a keyed map of agent positions, preserving keys. Agents
// are snapped in ascending key order so the result is deterministic.
func (d *Discretizer) SnapKeyed(positions map[uint16]geomtype.Position) (map[uint16]graph.NodeID, error) {
	keys := make([]uint16, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	seq := make([]geomtype.Position, len(keys))
	for i, k := range keys {
		seq[i] = positions[k]
	}
	snapped, err := d.Snap(seq)
	if err != nil {
		return nil, err
	}
	result := make(map[uint16]graph.NodeID, len(keys))
	for i, k := range keys {
		result[k] = snapped[i]
	}
	return result, nil
}

// Translate returns the real-world position of a single node.
func (d *Discretizer) Translate(n graph.NodeID) (geomtype.Position, bool) {
	p, ok := d.pos[n]
	return p, ok
}

// TranslateSequence translates a sequence of nodes, preserving order.
func (d *Discretizer) TranslateSequence(nodes []graph.NodeID) []geomtype.Position {
	out := make([]geomtype.Position, len(nodes))
	for i, n := range nodes {
		out[i] = d.pos[n]
	}
	return out
}

// TranslateKeyed translates a keyed map of nodes to positions.
func (d *Discretizer) TranslateKeyed(nodes map[uint16]graph.NodeID) map[uint16]geomtype.Position {
	out := make(map[uint16]geomtype.Position, len(nodes))
	for k, n := range nodes {
		out[k] = d.pos[n]
	}
	return out
}

const accuracyCorrection = 0.05

// minInterAgentDistance is the closest a refined (within-cell) target may
// come to another agent's refined target before falling back to the node
// centre, computed from the diagonal half-step in each pair of axes.
func (d *Discretizer) minInterAgentDistance() float64 {
	s := d.cfg.Step
	xy := math.Sqrt(s.X*s.X+s.Y*s.Y) / 2
	xz := math.Sqrt(s.X*s.X+s.Z*s.Z) / 2
	yz := math.Sqrt(s.Y*s.Y+s.Z*s.Z) / 2
	return math.Max(xy, math.Max(xz, yz))
}

func (d *Discretizer) boundingBox() (min, max geomtype.Position) {
	min = geomtype.Position{X: math.Inf(1), Y: math.Inf(1), Z: d.cfg.HeightOffset}
	max = geomtype.Position{X: math.Inf(-1), Y: math.Inf(-1), Z: d.cfg.HeightOffset + d.cfg.Height}
	for _, p := range d.pos {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Refine produces within-cell real-world targets for each agent, given its
// currently snapped node and a desired target position. Each target is
// first clipped to the graph's bounding box, then to a half-step box around
// its node centre (with a small accuracy-correction slack); if the result
// would come within the minimum inter-agent distance of any already-chosen
// refined target, the node centre is used instead.
//
// Agents are processed in the order of the caller-provided slice, so the
// caller decides which agent keeps its refined target when two conflict.
func (d *Discretizer) Refine(order []uint16, targets map[uint16]geomtype.Position, at map[uint16]graph.NodeID) map[uint16]geomtype.Position {
	minBB, maxBB := d.boundingBox()
	minDist := d.minInterAgentDistance()
	step := d.cfg.Step

	result := make(map[uint16]geomtype.Position, len(order))
	for _, agent := range order {
		target := targets[agent]
		node := at[agent]
		centre := d.pos[node]

		target.X = clamp(target.X, minBB.X, maxBB.X)
		target.Y = clamp(target.Y, minBB.Y, maxBB.Y)
		target.Z = clamp(target.Z, minBB.Z, maxBB.Z)

		target.X = clamp(target.X, centre.X-step.X/2-accuracyCorrection, centre.X+step.X/2+accuracyCorrection)
		target.Y = clamp(target.Y, centre.Y-step.Y/2-accuracyCorrection, centre.Y+step.Y/2+accuracyCorrection)
		target.Z = clamp(target.Z, centre.Z-step.Z/2-accuracyCorrection, centre.Z+step.Z/2+accuracyCorrection)

		conflict := false
		for _, chosen := range result {
			if target.EuclideanDistance(chosen) < minDist {
				conflict = true
				break
			}
		}
		if conflict {
			result[agent] = centre
		} else {
			result[agent] = target
		}
	}
	return result
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
