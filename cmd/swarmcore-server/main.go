// Command swarmcore-server runs the swarm coordination core: it accepts a
// drone-endpoint connection and an interaction-endpoint connection, builds
// the geometry hypercube from the fleet's reported initial positions, and
// drives the Operation Handler's tick loop until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/swarmcore/internal/cbs"
	"github.com/elektrokombinacija/swarmcore/internal/config"
	"github.com/elektrokombinacija/swarmcore/internal/discretizer"
	"github.com/elektrokombinacija/swarmcore/internal/fleet"
	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/ophandler"
	"github.com/elektrokombinacija/swarmcore/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a swarmcore YAML config file; defaults are used if omitted")
	initConfigPath := flag.String("init-config", "", "write an example config file to this path and exit")
	flag.Parse()

	if *initConfigPath != "" {
		if err := config.WriteExample(*initConfigPath, config.Default()); err != nil {
			fmt.Fprintf(os.Stderr, "swarmcore-server: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote example config to %s\n", *initConfigPath)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.FromYaml(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "swarmcore-server: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := telemetry.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drones, err := acceptDroneEndpoint(ctx, cfg.Server)
	if err != nil {
		log.Fatal("swarmcore-server: drone endpoint", zap.Error(err))
	}
	interaction, err := acceptInteractionEndpoint(ctx, cfg.Server)
	if err != nil {
		log.Fatal("swarmcore-server: interaction endpoint", zap.Error(err))
	}

	initial, err := waitForFleet(ctx, drones)
	if err != nil {
		log.Fatal("swarmcore-server: waiting for fleet", zap.Error(err))
	}

	geometry, err := discretizer.New(discretizer.Config{
		HeightOffset: cfg.Geometry.HeightOffset,
		Height:       cfg.Geometry.Height,
		Step:         cfg.Geometry.Step,
		Weight:       cfg.Geometry.Weight,
	}, initial)
	if err != nil {
		log.Fatal("swarmcore-server: building geometry", zap.Error(err))
	}

	solver := &cbs.Solver{MaxThreads: cfg.CBS.MaxThreads}
	handler := ophandler.NewHandler(drones, interaction, geometry, solver, ophandler.Config{
		ProximityThreshold:  cfg.OpHandler.ProximityThreshold,
		TargetTolerance:     cfg.OpHandler.TargetTolerance,
		HoverDebounce:       cfg.OpHandler.HoverDebounce(),
		TelemetryStaleAfter: cfg.OpHandler.TelemetryStaleAfter(),
	})

	log.Info("swarmcore-server: entering tick loop", zap.Duration("period", cfg.OpHandler.TickPeriod()))
	runTickLoop(ctx, handler, cfg.OpHandler.TickPeriod())
}

// runTickLoop drives the Operation Handler on a cooperative, single-thread
// loop: every tick sleeps roughly the configured period and never overlaps
// the next tick with a still-running one.
func runTickLoop(ctx context.Context, handler *ophandler.Handler, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			telemetry.L().Info("swarmcore-server: shutting down")
			return
		case now := <-ticker.C:
			if err := handler.Tick(ctx, now); err != nil {
				telemetry.L().Error("swarmcore-server: tick failed", zap.Error(err))
			}
		}
	}
}

func acceptDroneEndpoint(ctx context.Context, srv config.Server) (*fleet.TCPDroneEndpoint, error) {
	conn, err := acceptOne(ctx, srv.DroneListenAddr)
	if err != nil {
		return nil, err
	}
	return fleet.NewTCPDroneEndpoint(conn, srv.NotifyIntervalMS)
}

func acceptInteractionEndpoint(ctx context.Context, srv config.Server) (*fleet.TCPInteractionEndpoint, error) {
	conn, err := acceptOne(ctx, srv.InteractionListenAddr)
	if err != nil {
		return nil, err
	}
	return fleet.NewTCPInteractionEndpoint(conn), nil
}

// acceptOne listens on addr and accepts exactly one connection, since a
// single swarmcore-server instance serves one swarm with one drone
// endpoint and one interaction endpoint.
func acceptOne(ctx context.Context, addr string) (net.Conn, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer lis.Close()

	telemetry.L().Info("swarmcore-server: waiting for connection", zap.String("addr", addr))

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := lis.Accept()
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.conn, r.err
	}
}

// waitForFleet polls the drone endpoint until at least two drones have
// reported in, the minimum the geometry discretizer needs to establish a
// bounding rectangle.
func waitForFleet(ctx context.Context, drones *fleet.TCPDroneEndpoint) (map[uint16]geomtype.Position, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		snap, err := drones.Snapshot()
		if err == nil && len(snap) >= 2 {
			out := make(map[uint16]geomtype.Position, len(snap))
			for id, s := range snap {
				out[id] = s.Position
			}
			return out, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
