// Package protocol implements the length-delimited binary wire format
// shared by the drone endpoint and the interaction endpoint: a one-byte
// message type ID followed by a type-specific payload, all multi-byte
// integers in network byte order.
package protocol

import (
	"errors"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
)

// ErrMalformed wraps any parse failure caused by a truncated payload or an
// unrecognized type ID.
var ErrMalformed = errors.New("protocol: malformed message")

// MessageID identifies the wire message type.
type MessageID uint8

const (
	RegisterNotificationRequest  MessageID = 1
	RegisterNotificationResponse MessageID = 2
	StateNotificationMsg         MessageID = 3
	SetTargetsRequestMsg         MessageID = 4
	SetTargetsResponseMsg        MessageID = 5
	SwarmOperationRequestMsg     MessageID = 6
	SwarmOperationResponseMsg    MessageID = 7
	DroneOperationsRequestMsg    MessageID = 8
	DroneOperationsResponseMsg   MessageID = 9
)

// DroneOp is a per-drone operation directive.
type DroneOp uint8

const (
	DroneOpNone DroneOp = iota
	DroneOpTakeOff
	DroneOpLand
	DroneOpFastStop
	DroneOpMove
)

// SwarmOp is a fleet-wide operation request.
type SwarmOp uint8

const (
	SwarmOpTakeoff SwarmOp = iota
	SwarmOpLand
	SwarmOpMove
	SwarmOpFastStop
)

// DroneState is a single drone's reported flight state.
type DroneState uint8

const (
	DroneStateIdle DroneState = iota
	DroneStateTakingOff
	DroneStateHovering
	DroneStateMoving
	DroneStateLanding
	DroneStateStopping
)

// SwarmState is the fleet-wide aggregate flight state.
type SwarmState uint8

const (
	SwarmStateIdle SwarmState = iota
	SwarmStateTakingOff
	SwarmStateHovering
	SwarmStateMoving
	SwarmStateLanding
	SwarmStateStopping
)

// RegisterNotificationReq asks the peer to begin sending StateNotification
// messages every IntervalMS milliseconds.
type RegisterNotificationReq struct {
	IntervalMS uint16
}

// RegisterNotificationResp acknowledges a RegisterNotificationReq.
type RegisterNotificationResp struct{}

// StateNotification reports the current positions, targets, states, and
// per-drone operations of every known drone, plus the aggregate swarm
// state.
type StateNotification struct {
	Positions  map[uint16]geomtype.Position
	Targets    map[uint16]geomtype.Position
	States     map[uint16]DroneState
	Ops        map[uint16]DroneOp
	SwarmState SwarmState
}

// SetTargetsRequest sets the target position of each listed drone.
type SetTargetsRequest struct {
	Targets map[uint16]geomtype.Position
}

// SetTargetsResponse acknowledges a SetTargetsRequest.
type SetTargetsResponse struct{}

// SwarmOperationRequest requests a fleet-wide operation.
type SwarmOperationRequest struct {
	Op SwarmOp
}

// SwarmOperationResponse acknowledges a SwarmOperationRequest.
type SwarmOperationResponse struct{}

// DroneOperationsRequest issues a per-drone operation to each listed drone.
type DroneOperationsRequest struct {
	Ops map[uint16]DroneOp
}

// DroneOperationsResponse acknowledges a DroneOperationsRequest.
type DroneOperationsResponse struct{}
