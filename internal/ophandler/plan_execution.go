package ophandler

import (
	"time"

	"github.com/elektrokombinacija/swarmcore/internal/fleet"
	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
)

// planState is the state of an in-flight plan execution.
type planState int

const (
	planInitialize planState = iota
	planWaitForFirstHover
	planSendNextTargets
	planWaitForTarget
	planWaitForHover
	planDone
)

// planExecution drives a sequence of per-step target maps to completion,
// one step at a time, gated on the swarm actually hovering between steps.
type planExecution struct {
	steps       []map[uint16]geomtype.Position
	state       planState
	currentIdx  int
	lastIdx     int
	sentAt      time.Time
	enteredWait time.Time
}

func newPlanExecution(steps []map[uint16]geomtype.Position) *planExecution {
	return &planExecution{
		steps:      steps,
		state:      planInitialize,
		currentIdx: 0,
		lastIdx:    0,
	}
}

// currentStep returns the target map for the step in flight, or nil once
// the plan is done.
func (p *planExecution) currentStep() map[uint16]geomtype.Position {
	if p.currentIdx >= len(p.steps) {
		return nil
	}
	return p.steps[p.currentIdx]
}

// advance runs one tick of the plan state machine against the observed
// drone state, issuing targets/ops through drones as needed.
func (p *planExecution) advance(cfg Config, drones fleet.DroneEndpoint, swarmState protocol.SwarmState, now time.Time) {
	switch p.state {
	case planInitialize:
		p.enteredWait = now
		p.state = planWaitForFirstHover

	case planWaitForFirstHover:
		if swarmState == protocol.SwarmStateHovering && now.Sub(p.enteredWait) >= cfg.HoverDebounce {
			p.state = planSendNextTargets
		}

	case planSendNextTargets:
		if p.currentIdx >= len(p.steps) {
			p.state = planDone
			return
		}
		step := p.steps[p.currentIdx]
		drones.SetTargets(step)

		ops := make(map[uint16]protocol.DroneOp, len(step))
		for id, target := range step {
			if p.currentIdx == p.lastIdx {
				ops[id] = protocol.DroneOpMove
				continue
			}
			if target != p.steps[p.lastIdx][id] {
				ops[id] = protocol.DroneOpMove
			} else {
				ops[id] = protocol.DroneOpNone
			}
		}
		drones.SetOps(ops)

		p.sentAt = now
		p.state = planWaitForTarget

	case planWaitForTarget:
		snaps, err := drones.Snapshot()
		if err != nil {
			return
		}
		step := p.currentStep()
		if step == nil {
			p.state = planDone
			return
		}
		allReached := true
		for id, target := range step {
			snap, ok := snaps[id]
			if !ok || snap.Position.EuclideanDistance(target) > cfg.TargetTolerance {
				allReached = false
				break
			}
		}
		if allReached {
			p.state = planWaitForHover
			p.enteredWait = now
		}

	case planWaitForHover:
		if swarmState == protocol.SwarmStateHovering && now.Sub(p.sentAt) >= cfg.HoverDebounce {
			p.lastIdx = p.currentIdx
			p.currentIdx++
			if p.currentIdx >= len(p.steps) {
				p.state = planDone
			} else {
				p.state = planSendNextTargets
			}
		}

	case planDone:
	}
}

func (p *planExecution) done() bool {
	return p.state == planDone
}

// inFlight reports whether the plan has already committed to a step and is
// waiting for the drones to reach or settle on it, as opposed to being
// freshly constructed or idle between steps.
func (p *planExecution) inFlight() bool {
	return p.state == planWaitForTarget || p.state == planWaitForHover
}

// finalTargets returns the last step of the plan, the target the plan will
// settle on once fully executed.
func (p *planExecution) finalTargets() map[uint16]geomtype.Position {
	if len(p.steps) == 0 {
		return nil
	}
	return p.steps[len(p.steps)-1]
}
