package fleet

import (
	"sync"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
)

// MemoryDroneEndpoint is an in-memory DroneEndpoint fake for tests: state
// is set directly by the test and read back through SetTargets/SetOps
// calls recorded for assertions.
type MemoryDroneEndpoint struct {
	mu         sync.Mutex
	snapshots  map[uint16]DroneSnapshot
	connected  bool
	lastTarget map[uint16]geomtype.Position
	lastOps    map[uint16]protocol.DroneOp
}

// NewMemoryDroneEndpoint returns a connected fake seeded with the given
// per-drone state.
func NewMemoryDroneEndpoint(initial map[uint16]DroneSnapshot) *MemoryDroneEndpoint {
	snaps := make(map[uint16]DroneSnapshot, len(initial))
	for k, v := range initial {
		snaps[k] = v
	}
	return &MemoryDroneEndpoint{snapshots: snaps, connected: true}
}

// SetSnapshot updates a single drone's recorded state, as if a
// StateNotification had just arrived.
func (m *MemoryDroneEndpoint) SetSnapshot(id uint16, s DroneSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = s
}

// Disconnect marks the fake as disconnected; subsequent calls return
// ErrDisconnected.
func (m *MemoryDroneEndpoint) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *MemoryDroneEndpoint) Snapshot() (map[uint16]DroneSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrDisconnected
	}
	out := make(map[uint16]DroneSnapshot, len(m.snapshots))
	for k, v := range m.snapshots {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryDroneEndpoint) SetTargets(targets map[uint16]geomtype.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrDisconnected
	}
	m.lastTarget = targets
	return nil
}

func (m *MemoryDroneEndpoint) SetOps(ops map[uint16]protocol.DroneOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrDisconnected
	}
	m.lastOps = ops
	for id, op := range ops {
		snap := m.snapshots[id]
		snap.Op = op
		m.snapshots[id] = snap
	}
	return nil
}

// LastTargets returns the most recent SetTargets argument, for assertions.
func (m *MemoryDroneEndpoint) LastTargets() map[uint16]geomtype.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTarget
}

// LastOps returns the most recent SetOps argument, for assertions.
func (m *MemoryDroneEndpoint) LastOps() map[uint16]protocol.DroneOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOps
}

// MemoryInteractionEndpoint is an in-memory InteractionEndpoint fake: tests
// push requests and targets directly, and read back published
// notifications.
type MemoryInteractionEndpoint struct {
	mu        sync.Mutex
	requests  []protocol.SwarmOperationRequest
	targets   map[uint16]geomtype.Position
	haveTgt   bool
	published []protocol.StateNotification
}

// NewMemoryInteractionEndpoint returns an empty fake.
func NewMemoryInteractionEndpoint() *MemoryInteractionEndpoint {
	return &MemoryInteractionEndpoint{}
}

// PushRequest enqueues a swarm-operation request as if the operator had
// just sent it.
func (m *MemoryInteractionEndpoint) PushRequest(req protocol.SwarmOperationRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// SetTargets sets the operator's current target map, as if a
// SetTargetsRequest had just arrived.
func (m *MemoryInteractionEndpoint) SetTargets(targets map[uint16]geomtype.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = targets
	m.haveTgt = true
}

func (m *MemoryInteractionEndpoint) NextRequest() (protocol.SwarmOperationRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return protocol.SwarmOperationRequest{}, false
	}
	req := m.requests[0]
	m.requests = m.requests[1:]
	return req, true
}

func (m *MemoryInteractionEndpoint) Targets() (map[uint16]geomtype.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targets, m.haveTgt
}

func (m *MemoryInteractionEndpoint) Publish(n protocol.StateNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, n)
	return nil
}

// Published returns every notification passed to Publish so far.
func (m *MemoryInteractionEndpoint) Published() []protocol.StateNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.StateNotification(nil), m.published...)
}
