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

// TCPInteractionEndpoint implements InteractionEndpoint over a single
// accepted operator connection: a receive loop queues SwarmOperationRequest
// messages in FIFO order and keeps the target map of the latest
// SetTargetsRequest, and Publish pushes StateNotifications out.
type TCPInteractionEndpoint struct {
	conn      net.Conn
	sessionID uuid.UUID

	mu        sync.Mutex
	requests  []protocol.SwarmOperationRequest
	targets   map[uint16]geomtype.Position
	haveTgt   bool
	connected bool
}

// NewTCPInteractionEndpoint starts the background receive loop over conn.
func NewTCPInteractionEndpoint(conn net.Conn) *TCPInteractionEndpoint {
	e := &TCPInteractionEndpoint{
		conn:      conn,
		sessionID: uuid.New(),
		connected: true,
	}
	telemetry.L().Info("fleet: interaction endpoint connected", zap.String("session", e.sessionID.String()))
	go e.receiveLoop()
	return e
}

// SessionID identifies this connection for log correlation.
func (e *TCPInteractionEndpoint) SessionID() uuid.UUID { return e.sessionID }

func (e *TCPInteractionEndpoint) receiveLoop() {
	for {
		msg, err := protocol.ReadFrame(e.conn)
		if err != nil {
			if err != io.EOF {
				telemetry.L().Warn("fleet: interaction endpoint receive error",
					zap.String("session", e.sessionID.String()), zap.Error(err))
			}
			e.mu.Lock()
			e.connected = false
			e.mu.Unlock()
			return
		}

		switch m := msg.(type) {
		case protocol.SetTargetsRequest:
			e.mu.Lock()
			e.targets = m.Targets
			e.haveTgt = true
			e.mu.Unlock()
			protocol.WriteFrame(e.conn, protocol.SetTargetsResponse{})

		case protocol.SwarmOperationRequest:
			e.mu.Lock()
			e.requests = append(e.requests, m)
			e.mu.Unlock()
			protocol.WriteFrame(e.conn, protocol.SwarmOperationResponse{})

		case protocol.RegisterNotificationReq:
			protocol.WriteFrame(e.conn, protocol.RegisterNotificationResp{})
		}
	}
}

func (e *TCPInteractionEndpoint) NextRequest() (protocol.SwarmOperationRequest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return protocol.SwarmOperationRequest{}, false
	}
	req := e.requests[0]
	e.requests = e.requests[1:]
	return req, true
}

func (e *TCPInteractionEndpoint) Targets() (map[uint16]geomtype.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.haveTgt {
		return nil, false
	}
	out := make(map[uint16]geomtype.Position, len(e.targets))
	for k, v := range e.targets {
		out[k] = v
	}
	return out, true
}

func (e *TCPInteractionEndpoint) Publish(n protocol.StateNotification) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return ErrDisconnected
	}
	return protocol.WriteFrame(e.conn, n)
}
