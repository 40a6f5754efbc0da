package ophandler

import (
	"context"
	"testing"
	"time"

	"github.com/elektrokombinacija/swarmcore/internal/cbs"
	"github.com/elektrokombinacija/swarmcore/internal/discretizer"
	"github.com/elektrokombinacija/swarmcore/internal/fleet"
	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/protocol"
)

func testGeometry(t *testing.T) *discretizer.Discretizer {
	t.Helper()
	cfg := discretizer.Config{
		HeightOffset: 1.0,
		Height:       0.7,
		Step:         geomtype.Position{X: 0.6, Y: 0.6, Z: 0.6},
		Weight:       geomtype.Position{X: 1, Y: 1, Z: 1},
	}
	d, err := discretizer.New(cfg, map[uint16]geomtype.Position{
		0: {X: 0, Y: 0, Z: 1},
		1: {X: 4.2, Y: 4.2, Z: 1},
	})
	if err != nil {
		t.Fatalf("discretizer.New: %v", err)
	}
	return d
}

func TestHandlerTakeoffSetsTargetsAboveCurrentPosition(t *testing.T) {
	drones := fleet.NewMemoryDroneEndpoint(map[uint16]fleet.DroneSnapshot{
		0: {Position: geomtype.Position{X: 0, Y: 0, Z: 0}, State: protocol.DroneStateIdle},
		1: {Position: geomtype.Position{X: 4.2, Y: 4.2, Z: 0}, State: protocol.DroneStateIdle},
	})
	interaction := fleet.NewMemoryInteractionEndpoint()
	interaction.PushRequest(protocol.SwarmOperationRequest{Op: protocol.SwarmOpTakeoff})

	h := NewHandler(drones, interaction, testGeometry(t), cbs.NewSolver(), DefaultConfig())

	if err := h.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	targets := drones.LastTargets()
	if targets[0].Z != 1.0 || targets[0].X != 0 || targets[0].Y != 0 {
		t.Fatalf("expected drone 0 target above current position at z0=1.0, got %+v", targets[0])
	}
	if targets[1].Z != 1.0 || targets[1].X != 4.2 || targets[1].Y != 4.2 {
		t.Fatalf("expected drone 1 target above current position at z0=1.0, got %+v", targets[1])
	}

	ops := drones.LastOps()
	if ops[0] != protocol.DroneOpTakeOff || ops[1] != protocol.DroneOpTakeOff {
		t.Fatalf("expected TAKE_OFF issued to every drone, got %+v", ops)
	}
}

func TestHandlerDropsSecondTakeoffWhileTakingOff(t *testing.T) {
	drones := fleet.NewMemoryDroneEndpoint(map[uint16]fleet.DroneSnapshot{
		0: {Position: geomtype.Position{X: 0, Y: 0, Z: 0}, State: protocol.DroneStateTakingOff},
	})
	interaction := fleet.NewMemoryInteractionEndpoint()
	interaction.PushRequest(protocol.SwarmOperationRequest{Op: protocol.SwarmOpTakeoff})

	h := NewHandler(drones, interaction, testGeometry(t), cbs.NewSolver(), DefaultConfig())
	h.swarmState = protocol.SwarmStateTakingOff

	if err := h.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if drones.LastTargets() != nil || drones.LastOps() != nil {
		t.Fatalf("second takeoff while TAKING_OFF must be dropped, got targets=%v ops=%v",
			drones.LastTargets(), drones.LastOps())
	}
}

func TestHandlerProximityWatchdogFastStopsEveryDrone(t *testing.T) {
	drones := fleet.NewMemoryDroneEndpoint(map[uint16]fleet.DroneSnapshot{
		0: {Position: geomtype.Position{X: 0, Y: 0, Z: 1}, State: protocol.DroneStateMoving},
		1: {Position: geomtype.Position{X: 0.15, Y: 0, Z: 1}, State: protocol.DroneStateMoving},
		2: {Position: geomtype.Position{X: 5, Y: 5, Z: 1}, State: protocol.DroneStateMoving},
	})
	interaction := fleet.NewMemoryInteractionEndpoint()

	h := NewHandler(drones, interaction, testGeometry(t), cbs.NewSolver(), DefaultConfig())

	if err := h.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	ops := drones.LastOps()
	for _, id := range []uint16{0, 1, 2} {
		if ops[id] != protocol.DroneOpFastStop {
			t.Fatalf("expected FAST_STOP for drone %d, got %v", id, ops[id])
		}
	}
}

func TestHandlerAcceptsMoveWhileAlreadyMoving(t *testing.T) {
	drones := fleet.NewMemoryDroneEndpoint(map[uint16]fleet.DroneSnapshot{
		0: {Position: geomtype.Position{X: 0, Y: 0, Z: 1}, State: protocol.DroneStateMoving},
		1: {Position: geomtype.Position{X: 4.2, Y: 4.2, Z: 1}, State: protocol.DroneStateMoving},
	})
	interaction := fleet.NewMemoryInteractionEndpoint()
	interaction.SetTargets(map[uint16]geomtype.Position{
		0: {X: 0.6, Y: 0, Z: 1},
		1: {X: 3.6, Y: 4.2, Z: 1},
	})
	interaction.PushRequest(protocol.SwarmOperationRequest{Op: protocol.SwarmOpMove})

	h := NewHandler(drones, interaction, testGeometry(t), cbs.NewSolver(), DefaultConfig())
	h.swarmState = protocol.SwarmStateMoving

	if err := h.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if h.plan == nil {
		t.Fatal("expected a plan to be installed for a Move request while already MOVING")
	}
}

func TestHandlerNoProximityViolationWhenFarApart(t *testing.T) {
	drones := fleet.NewMemoryDroneEndpoint(map[uint16]fleet.DroneSnapshot{
		0: {Position: geomtype.Position{X: 0, Y: 0, Z: 1}, State: protocol.DroneStateHovering},
		1: {Position: geomtype.Position{X: 5, Y: 5, Z: 1}, State: protocol.DroneStateHovering},
	})
	interaction := fleet.NewMemoryInteractionEndpoint()

	h := NewHandler(drones, interaction, testGeometry(t), cbs.NewSolver(), DefaultConfig())

	if err := h.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if drones.LastOps() != nil {
		t.Fatalf("expected no fast stop when drones are far apart, got %v", drones.LastOps())
	}
}
