package fleet

import (
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
	"github.com/elektrokombinacija/swarmcore/internal/telemetry"
)

// TCPDroneEndpoint implements DroneEndpoint over a single accepted drone
// connection, following StateNotifications with a receive loop and
// serializing outbound requests under a mutex so the tick loop and the
// receive loop never interleave writes.
type TCPDroneEndpoint struct {
	conn      net.Conn
	sessionID uuid.UUID

	mu        sync.Mutex
	snapshots map[uint16]DroneSnapshot
	connected bool
	stopCh    chan struct{}
}

// NewTCPDroneEndpoint registers on conn for state notifications every
// notifyIntervalMS milliseconds and
// starts the background receive loop. Each connection gets a random
// session ID so log lines from its receive loop can be correlated across
// reconnects without leaning on the ephemeral remote address.
func NewTCPDroneEndpoint(conn net.Conn, notifyIntervalMS uint16) (*TCPDroneEndpoint, error) {
	e := &TCPDroneEndpoint{
		conn:      conn,
		sessionID: uuid.New(),
		snapshots: make(map[uint16]DroneSnapshot),
		connected: true,
		stopCh:    make(chan struct{}),
	}

	if err := protocol.WriteFrame(conn, protocol.RegisterNotificationReq{IntervalMS: notifyIntervalMS}); err != nil {
		return nil, err
	}
	if _, err := protocol.ReadFrame(conn); err != nil {
		return nil, err
	}

	telemetry.L().Info("fleet: drone endpoint connected", zap.String("session", e.sessionID.String()))
	go e.receiveLoop()
	return e, nil
}

// SessionID identifies this connection for log correlation.
func (e *TCPDroneEndpoint) SessionID() uuid.UUID { return e.sessionID }

func (e *TCPDroneEndpoint) receiveLoop() {
	for {
		msg, err := protocol.ReadFrame(e.conn)
		if err != nil {
			if err != io.EOF {
				telemetry.L().Warn("fleet: drone endpoint receive error",
					zap.String("session", e.sessionID.String()), zap.Error(err))
			}
			e.mu.Lock()
			e.connected = false
			e.mu.Unlock()
			close(e.stopCh)
			return
		}

		notif, ok := msg.(protocol.StateNotification)
		if !ok {
			continue
		}

		e.mu.Lock()
		for id, pos := range notif.Positions {
			snap := e.snapshots[id]
			snap.Position = pos
			snap.State = notif.States[id]
			snap.Op = notif.Ops[id]
			e.snapshots[id] = snap
		}
		e.mu.Unlock()
	}
}

func (e *TCPDroneEndpoint) Snapshot() (map[uint16]DroneSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return nil, ErrDisconnected
	}
	out := make(map[uint16]DroneSnapshot, len(e.snapshots))
	for id, s := range e.snapshots {
		out[id] = s
	}
	return out, nil
}

func (e *TCPDroneEndpoint) SetTargets(targets map[uint16]geomtype.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return ErrDisconnected
	}
	return protocol.WriteFrame(e.conn, protocol.SetTargetsRequest{Targets: targets})
}

func (e *TCPDroneEndpoint) SetOps(ops map[uint16]protocol.DroneOp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return ErrDisconnected
	}
	return protocol.WriteFrame(e.conn, protocol.DroneOperationsRequest{Ops: ops})
}
