package fleet

import (
	"testing"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
)

func TestMemoryDroneEndpointSnapshotIsADefensiveCopy(t *testing.T) {
	e := NewMemoryDroneEndpoint(map[uint16]DroneSnapshot{
		0: {Position: geomtype.Position{X: 1}},
	})
	snap, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	snap[0] = DroneSnapshot{Position: geomtype.Position{X: 99}}

	snap2, _ := e.Snapshot()
	if snap2[0].Position.X != 1 {
		t.Fatalf("mutating a returned snapshot must not affect the endpoint's state")
	}
}

func TestMemoryDroneEndpointDisconnectedReturnsErr(t *testing.T) {
	e := NewMemoryDroneEndpoint(nil)
	e.Disconnect()

	if _, err := e.Snapshot(); err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected from Snapshot, got %v", err)
	}
	if err := e.SetTargets(map[uint16]geomtype.Position{0: {}}); err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected from SetTargets, got %v", err)
	}
	if err := e.SetOps(map[uint16]protocol.DroneOp{0: protocol.DroneOpLand}); err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected from SetOps, got %v", err)
	}
}

func TestMemoryDroneEndpointSetOpsUpdatesSnapshot(t *testing.T) {
	e := NewMemoryDroneEndpoint(map[uint16]DroneSnapshot{0: {}})
	if err := e.SetOps(map[uint16]protocol.DroneOp{0: protocol.DroneOpMove}); err != nil {
		t.Fatalf("SetOps: %v", err)
	}
	snap, _ := e.Snapshot()
	if snap[0].Op != protocol.DroneOpMove {
		t.Fatalf("expected SetOps to be reflected in Snapshot, got %v", snap[0].Op)
	}
	if e.LastOps()[0] != protocol.DroneOpMove {
		t.Fatalf("expected LastOps to record the issued op")
	}
}

func TestMemoryInteractionEndpointRequestFIFO(t *testing.T) {
	e := NewMemoryInteractionEndpoint()
	e.PushRequest(protocol.SwarmOperationRequest{Op: protocol.SwarmOpTakeoff})
	e.PushRequest(protocol.SwarmOperationRequest{Op: protocol.SwarmOpLand})

	first, ok := e.NextRequest()
	if !ok || first.Op != protocol.SwarmOpTakeoff {
		t.Fatalf("expected takeoff first, got %+v ok=%v", first, ok)
	}
	second, ok := e.NextRequest()
	if !ok || second.Op != protocol.SwarmOpLand {
		t.Fatalf("expected land second, got %+v ok=%v", second, ok)
	}
	if _, ok := e.NextRequest(); ok {
		t.Fatalf("expected no third request")
	}
}

func TestMemoryInteractionEndpointTargetsAndPublish(t *testing.T) {
	e := NewMemoryInteractionEndpoint()
	if _, ok := e.Targets(); ok {
		t.Fatalf("expected no targets before SetTargets is called")
	}

	want := map[uint16]geomtype.Position{0: {X: 1, Y: 2}}
	e.SetTargets(want)
	got, ok := e.Targets()
	if !ok || got[0] != want[0] {
		t.Fatalf("unexpected targets %+v ok=%v", got, ok)
	}

	notif := protocol.StateNotification{SwarmState: protocol.SwarmStateHovering}
	if err := e.Publish(notif); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	published := e.Published()
	if len(published) != 1 || published[0].SwarmState != protocol.SwarmStateHovering {
		t.Fatalf("expected the published notification to be recorded, got %+v", published)
	}
}
