// Package fleet defines the two endpoints the Operation Handler talks to:
// the drone endpoint (reports drone state, accepts operations) and the
// interaction endpoint (accepts operator requests, publishes state). Both
// are implemented over the framed TCP protocol in internal/protocol, with
// in-memory fakes for testing.
package fleet

import (
	"errors"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
)

// ErrDisconnected is returned by an endpoint method once its connection has
// been torn down; the Operation Handler treats this as a reason to refuse
// state-dependent operations.
var ErrDisconnected = errors.New("fleet: endpoint disconnected")

// DroneSnapshot is a single drone's last-known state.
type DroneSnapshot struct {
	Position geomtype.Position
	State    protocol.DroneState
	Op       protocol.DroneOp
}

// DroneEndpoint is the core's view of the drone fleet: current reported
// state, and the ability to push new per-drone targets and operations.
type DroneEndpoint interface {
	// Snapshot returns the last-known state of every known drone.
	Snapshot() (map[uint16]DroneSnapshot, error)
	// SetTargets pushes a new target position for each listed drone.
	SetTargets(targets map[uint16]geomtype.Position) error
	// SetOps issues a per-drone operation to each listed drone.
	SetOps(ops map[uint16]protocol.DroneOp) error
}

// InteractionEndpoint is the core's view of the operator: pending
// operation requests, and the ability to publish current fleet state.
type InteractionEndpoint interface {
	// NextRequest pops the next pending swarm-operation request, if any.
	NextRequest() (protocol.SwarmOperationRequest, bool)
	// Targets returns the operator's most recently requested target map.
	Targets() (map[uint16]geomtype.Position, bool)
	// Publish reports current fleet state to the operator.
	Publish(n protocol.StateNotification) error
}
