package ophandler

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/swarmcore/internal/cbs"
	"github.com/elektrokombinacija/swarmcore/internal/discretizer"
	"github.com/elektrokombinacija/swarmcore/internal/fleet"
	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/graph"
	"github.com/elektrokombinacija/swarmcore/internal/mapf"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
	"github.com/elektrokombinacija/swarmcore/internal/telemetry"
)

// Handler is the per-tick state machine gluing the drone fleet, the
// operator, and the CBS planner together. One Handler serves one swarm.
//
// It intentionally has no notion of merging or refining an in-flight plan
// against a newer one: a new Move request replaces whatever plan is
// executing, in full, rather than splicing paths together.
type Handler struct {
	drones      fleet.DroneEndpoint
	interaction fleet.InteractionEndpoint
	geometry    *discretizer.Discretizer
	solver      *cbs.Solver
	cfg         Config

	swarmState protocol.SwarmState
	plan       *planExecution

	lastSnapshot map[uint16]fleet.DroneSnapshot
	lastChanged  map[uint16]time.Time
}

// NewHandler wires a Handler from its four collaborators. geometry must
// already be built from the fleet's initial positions.
func NewHandler(drones fleet.DroneEndpoint, interaction fleet.InteractionEndpoint, geometry *discretizer.Discretizer, solver *cbs.Solver, cfg Config) *Handler {
	return &Handler{
		drones:       drones,
		interaction:  interaction,
		geometry:     geometry,
		solver:       solver,
		cfg:          cfg,
		swarmState:   protocol.SwarmStateIdle,
		lastSnapshot: make(map[uint16]fleet.DroneSnapshot),
		lastChanged:  make(map[uint16]time.Time),
	}
}

// Tick runs one iteration of the handler: it refreshes fleet state, runs
// the safety watchdogs, dispatches at most one pending operator request,
// advances any in-flight plan, and publishes the resulting state.
func (h *Handler) Tick(ctx context.Context, now time.Time) error {
	snapshot, err := h.drones.Snapshot()
	if err != nil {
		return err
	}
	h.trackStaleness(snapshot, now)
	h.swarmState = deriveSwarmState(snapshot, h.swarmState)

	if stale := h.staleDrones(now); len(stale) > 0 {
		telemetry.L().Warn("ophandler: stale telemetry, issuing fast stop", zap.Uint16s("drones", stale))
		h.dispatchFastStop(stale)
	} else if pair, ok := proximityViolation(snapshot, h.cfg.ProximityThreshold); ok {
		telemetry.L().Warn("ophandler: proximity violation, issuing fast stop",
			zap.Uint16("drone1", pair[0]), zap.Uint16("drone2", pair[1]))
		h.dispatchFastStopAll(snapshot)
	} else if req, ok := h.interaction.NextRequest(); ok {
		h.dispatchRequest(ctx, req, snapshot, now)
	}

	if h.plan != nil && !h.plan.done() {
		h.plan.advance(h.cfg, h.drones, h.swarmState, now)
	}

	return h.interaction.Publish(protocol.StateNotification{
		Positions:  positionsOf(snapshot),
		States:     statesOf(snapshot),
		Ops:        opsOf(snapshot),
		SwarmState: h.swarmState,
	})
}

func (h *Handler) trackStaleness(snapshot map[uint16]fleet.DroneSnapshot, now time.Time) {
	for id, s := range snapshot {
		prev, seen := h.lastSnapshot[id]
		if !seen || prev != s {
			h.lastChanged[id] = now
		}
		h.lastSnapshot[id] = s
	}
}

func (h *Handler) staleDrones(now time.Time) []uint16 {
	var stale []uint16
	for id, t := range h.lastChanged {
		if now.Sub(t) > h.cfg.TelemetryStaleAfter {
			stale = append(stale, id)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return stale
}

func (h *Handler) dispatchRequest(ctx context.Context, req protocol.SwarmOperationRequest, snapshot map[uint16]fleet.DroneSnapshot, now time.Time) {
	switch req.Op {
	case protocol.SwarmOpTakeoff:
		h.handleTakeoff(snapshot)
	case protocol.SwarmOpLand:
		h.handleLand(snapshot)
	case protocol.SwarmOpFastStop:
		if h.swarmState == protocol.SwarmStateIdle || h.swarmState == protocol.SwarmStateStopping {
			telemetry.L().Warn("ophandler: fast-stop ignored, swarm already idle or stopping", zap.Uint8("state", uint8(h.swarmState)))
			return
		}
		h.dispatchFastStopAll(snapshot)
	case protocol.SwarmOpMove:
		h.handleMove(ctx, snapshot)
	}
}

// handleTakeoff is only honored from SwarmStateIdle or SwarmStateLanding, so
// a swarm caught mid-landing can be sent back up; a second TAKEOFF arriving
// while already TAKING_OFF (or otherwise airborne) is dropped. Targets are
// the current positions snapped onto the geometry graph and translated
// back to real coordinates, so the takeoff climbs straight up onto a node
// rather than wherever the drone happens to be hovering.
func (h *Handler) handleTakeoff(snapshot map[uint16]fleet.DroneSnapshot) {
	if h.swarmState != protocol.SwarmStateIdle && h.swarmState != protocol.SwarmStateLanding {
		telemetry.L().Info("ophandler: takeoff refused, swarm not idle or landing", zap.Uint8("state", uint8(h.swarmState)))
		return
	}
	positions := positionsOf(snapshot)
	nodes, err := h.geometry.SnapKeyed(positions)
	if err != nil {
		telemetry.L().Warn("ophandler: takeoff refused, cannot snap current positions", zap.Error(err))
		return
	}
	targets := h.geometry.TranslateKeyed(nodes)
	ops := make(map[uint16]protocol.DroneOp, len(snapshot))
	for id := range snapshot {
		ops[id] = protocol.DroneOpTakeOff
	}
	h.drones.SetTargets(targets)
	h.drones.SetOps(ops)
	h.plan = nil
}

// handleLand is honored from IDLE, TAKING_OFF, or HOVERING; it is refused
// mid-move, since landing in the middle of a move would strand drones at
// arbitrary in-flight positions instead of over a planned node.
func (h *Handler) handleLand(snapshot map[uint16]fleet.DroneSnapshot) {
	switch h.swarmState {
	case protocol.SwarmStateIdle, protocol.SwarmStateTakingOff, protocol.SwarmStateHovering:
	default:
		telemetry.L().Info("ophandler: land refused, swarm not idle, taking off, or hovering", zap.Uint8("state", uint8(h.swarmState)))
		return
	}
	ops := make(map[uint16]protocol.DroneOp, len(snapshot))
	for id := range snapshot {
		ops[id] = protocol.DroneOpLand
	}
	h.drones.SetOps(ops)
	h.plan = nil
}

func (h *Handler) dispatchFastStopAll(snapshot map[uint16]fleet.DroneSnapshot) {
	ids := make([]uint16, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	h.dispatchFastStop(ids)
}

func (h *Handler) dispatchFastStop(ids []uint16) {
	ops := make(map[uint16]protocol.DroneOp, len(ids))
	for _, id := range ids {
		ops[id] = protocol.DroneOpFastStop
	}
	h.drones.SetOps(ops)
	h.plan = nil
}

// handleMove is honored while hovering or already moving, so an operator
// can redirect a swarm mid-flight rather than waiting for it to settle
// first. When a plan is already in flight, the in-flight-step branch below
// picks up from where that plan has committed rather than raw telemetry.
func (h *Handler) handleMove(ctx context.Context, snapshot map[uint16]fleet.DroneSnapshot) {
	if h.swarmState != protocol.SwarmStateHovering && h.swarmState != protocol.SwarmStateMoving {
		telemetry.L().Info("ophandler: move refused, swarm not hovering or moving", zap.Uint8("state", uint8(h.swarmState)))
		return
	}
	targets, ok := h.interaction.Targets()
	if !ok {
		return
	}
	for id := range targets {
		if _, known := snapshot[id]; !known {
			telemetry.L().Warn("ophandler: move refused, target references unknown drone", zap.Uint16("drone", id))
			return
		}
	}

	targetNodes, err := h.geometry.SnapKeyed(targets)
	if err != nil {
		telemetry.L().Warn("ophandler: move refused, cannot snap targets", zap.Error(err))
		return
	}

	// A plan already executing toward exactly these targets is left alone:
	// replanning would discard in-flight progress for no behavioral gain.
	if h.plan != nil {
		if finalNodes, err := h.geometry.SnapKeyed(h.plan.finalTargets()); err == nil && nodeMapsEqual(finalNodes, targetNodes) {
			return
		}
	}

	// While a plan is already in flight toward an intermediate step, start
	// the replan from that step's targets rather than the drones' reported
	// positions, since the drones are already moving toward it.
	var positions map[uint16]geomtype.Position
	if h.plan != nil && h.plan.inFlight() {
		positions = h.plan.currentStep()
	} else {
		positions = positionsOf(snapshot)
	}

	startNodes, err := h.geometry.SnapKeyed(positions)
	if err != nil {
		telemetry.L().Warn("ophandler: move refused, cannot snap current positions", zap.Error(err))
		return
	}

	agents := make(map[mapf.AgentID]mapf.Endpoints, len(startNodes))
	order := make([]uint16, 0, len(startNodes))
	for id, start := range startNodes {
		target, ok := targetNodes[id]
		if !ok {
			continue
		}
		agents[mapf.AgentID(id)] = mapf.Endpoints{Start: start, Target: target}
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	task := mapf.NewTask(h.geometry.Graph(), agents)
	heuristic := func(a mapf.AgentID, n graph.NodeID) float64 {
		ep, ok := task.Endpoints(a)
		if !ok {
			return 0
		}
		return hypercubeDistance(n, ep.Target)
	}

	plan, err := h.solver.Solve(ctx, task, heuristic)
	if err != nil {
		telemetry.L().Warn("ophandler: move refused, solver failed", zap.Error(err))
		return
	}
	if plan.Empty() {
		telemetry.L().Warn("ophandler: move refused, no conflict-free plan found")
		return
	}

	steps := make([]map[uint16]geomtype.Position, plan.Len())
	for t, step := range plan.Steps {
		converted := make(map[uint16]geomtype.Position, len(step))
		for a, n := range step {
			pos, ok := h.geometry.Translate(n)
			if !ok {
				continue
			}
			converted[uint16(a)] = pos
		}
		steps[t] = converted
	}

	if n := len(steps); n > 0 {
		finalNodes := make(map[uint16]graph.NodeID, len(plan.Steps[n-1]))
		for a, node := range plan.Steps[n-1] {
			finalNodes[uint16(a)] = node
		}
		refined := h.geometry.Refine(order, targets, finalNodes)
		for id, pos := range refined {
			steps[n-1][id] = pos
		}
	}

	h.plan = newPlanExecution(steps)
}

func nodeMapsEqual(a, b map[uint16]graph.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for id, n := range a {
		if b[id] != n {
			return false
		}
	}
	return true
}

func hypercubeDistance(a, b graph.NodeID) float64 {
	ax, ay, az, ok1 := discretizer.HypercubeIndex(a)
	bx, by, bz, ok2 := discretizer.HypercubeIndex(b)
	if !ok1 || !ok2 {
		return 0
	}
	dx, dy, dz := float64(ax-bx), float64(ay-by), float64(az-bz)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// deriveSwarmState aggregates per-drone states into a single swarm state,
// giving priority to the most cautious state present so a single straggler
// can't make the fleet look further along than it is.
func deriveSwarmState(snapshot map[uint16]fleet.DroneSnapshot, prev protocol.SwarmState) protocol.SwarmState {
	if len(snapshot) == 0 {
		return prev
	}
	present := make(map[protocol.DroneState]bool)
	for _, s := range snapshot {
		present[s.State] = true
	}
	priority := []protocol.DroneState{
		protocol.DroneStateStopping,
		protocol.DroneStateLanding,
		protocol.DroneStateTakingOff,
		protocol.DroneStateMoving,
		protocol.DroneStateHovering,
		protocol.DroneStateIdle,
	}
	for _, s := range priority {
		if present[s] {
			return protocol.SwarmState(s)
		}
	}
	return prev
}

// proximityViolation reports the first pair of drones found closer together
// than threshold.
func proximityViolation(snapshot map[uint16]fleet.DroneSnapshot, threshold float64) ([2]uint16, bool) {
	ids := make([]uint16, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if snapshot[a].Position.EuclideanDistance(snapshot[b].Position) < threshold {
				return [2]uint16{a, b}, true
			}
		}
	}
	return [2]uint16{}, false
}

func positionsOf(snapshot map[uint16]fleet.DroneSnapshot) map[uint16]geomtype.Position {
	out := make(map[uint16]geomtype.Position, len(snapshot))
	for id, s := range snapshot {
		out[id] = s.Position
	}
	return out
}

func statesOf(snapshot map[uint16]fleet.DroneSnapshot) map[uint16]protocol.DroneState {
	out := make(map[uint16]protocol.DroneState, len(snapshot))
	for id, s := range snapshot {
		out[id] = s.State
	}
	return out
}

func opsOf(snapshot map[uint16]fleet.DroneSnapshot) map[uint16]protocol.DroneOp {
	out := make(map[uint16]protocol.DroneOp, len(snapshot))
	for id, s := range snapshot {
		out[id] = s.Op
	}
	return out
}
