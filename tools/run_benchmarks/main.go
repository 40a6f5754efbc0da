// Command run_benchmarks loads swarm scenarios produced by gen_instances,
// solves each with the CBS solver, and records solve time and plan
// makespan to a CSV file.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/elektrokombinacija/swarmcore/internal/cbs"
	"github.com/elektrokombinacija/swarmcore/internal/discretizer"
	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
	"github.com/elektrokombinacija/swarmcore/internal/graph"
	"github.com/elektrokombinacija/swarmcore/internal/mapf"
)

// point3 mirrors gen_instances' Point3 so this tool reads its JSON without
// importing a sibling command package.
type point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type scenario struct {
	Name   string `json:"name"`
	Params struct {
		NumDrones int `json:"num_drones"`
	} `json:"params"`
	Starts  map[string]point3 `json:"starts"`
	Targets map[string]point3 `json:"targets"`
}

// Result records one scenario's solve outcome.
type Result struct {
	Timestamp string  `json:"timestamp"`
	GoVersion string  `json:"go_version"`
	OS        string  `json:"os"`
	Arch      string  `json:"arch"`
	Scenario  string  `json:"scenario"`
	NumDrones int     `json:"num_drones"`
	RuntimeMs float64 `json:"runtime_ms"`
	Success   bool    `json:"success"`
	Makespan  int     `json:"makespan"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// buildTask discretizes the scenario's bounding volume from its starting
// positions, snaps starts and targets onto the resulting hypercube, and
// assembles a mapf.Task plus a Euclidean-distance heuristic over it.
func buildTask(geomCfg discretizer.Config, s *scenario) (*mapf.Task, *discretizer.Discretizer, cbs.Heuristic, error) {
	starts := make(map[uint16]geomtype.Position, len(s.Starts))
	for id, p := range s.Starts {
		var droneID uint16
		if _, err := fmt.Sscanf(id, "%d", &droneID); err != nil {
			return nil, nil, nil, fmt.Errorf("run_benchmarks: bad drone id %q: %w", id, err)
		}
		starts[droneID] = geomtype.Position{X: p.X, Y: p.Y, Z: p.Z}
	}
	targets := make(map[uint16]geomtype.Position, len(s.Targets))
	for id, p := range s.Targets {
		var droneID uint16
		if _, err := fmt.Sscanf(id, "%d", &droneID); err != nil {
			return nil, nil, nil, fmt.Errorf("run_benchmarks: bad drone id %q: %w", id, err)
		}
		targets[droneID] = geomtype.Position{X: p.X, Y: p.Y, Z: p.Z}
	}

	geom, err := discretizer.New(geomCfg, starts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("run_benchmarks: building geometry: %w", err)
	}

	startNodes, err := geom.SnapKeyed(starts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("run_benchmarks: snapping starts: %w", err)
	}
	targetNodes, err := geom.SnapKeyed(targets)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("run_benchmarks: snapping targets: %w", err)
	}

	agents := make(map[mapf.AgentID]mapf.Endpoints, len(startNodes))
	targetPos := make(map[mapf.AgentID]geomtype.Position, len(targetNodes))
	for id, startNode := range startNodes {
		targetNode, ok := targetNodes[id]
		if !ok {
			continue
		}
		agents[mapf.AgentID(id)] = mapf.Endpoints{Start: startNode, Target: targetNode}
		pos, _ := geom.Translate(targetNode)
		targetPos[mapf.AgentID(id)] = pos
	}

	task := mapf.NewTask(geom.Graph(), agents)

	heuristic := func(agent mapf.AgentID, n graph.NodeID) float64 {
		pos, ok := geom.Translate(n)
		if !ok {
			return 0
		}
		goal, ok := targetPos[agent]
		if !ok {
			return 0
		}
		return pos.EuclideanDistance(goal)
	}

	return task, geom, heuristic, nil
}

func runScenario(s *scenario, timeout time.Duration) *Result {
	result := &Result{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Scenario:  s.Name,
		NumDrones: s.Params.NumDrones,
	}

	geomCfg := discretizer.Config{
		HeightOffset: 1.0,
		Height:       0.7,
		Step:         geomtype.Position{X: 0.6, Y: 0.6, Z: 0.6},
		Weight:       geomtype.Position{X: 1, Y: 1, Z: 1},
	}

	task, _, heuristic, err := buildTask(geomCfg, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run_benchmarks: %s: %v\n", s.Name, err)
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	solver := cbs.NewSolver()
	start := time.Now()
	plan, err := solver.Solve(ctx, task, heuristic)
	result.RuntimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		fmt.Fprintf(os.Stderr, "run_benchmarks: %s: solve failed: %v\n", s.Name, err)
		return result
	}

	result.Success = !plan.Empty()
	result.Makespan = plan.Len()
	return result
}

func writeCSV(results []*Result, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"timestamp", "go_version", "os", "arch", "scenario", "num_drones", "runtime_ms", "success", "makespan"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Timestamp, r.GoVersion, r.OS, r.Arch, r.Scenario,
			fmt.Sprintf("%d", r.NumDrones), fmt.Sprintf("%.3f", r.RuntimeMs),
			fmt.Sprintf("%t", r.Success), fmt.Sprintf("%d", r.Makespan),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(results []*Result) {
	fmt.Println("\n=== BENCHMARK SUMMARY ===")
	fmt.Printf("%-32s %8s %10s %10s %10s\n", "Scenario", "Drones", "RuntimeMs", "Success", "Makespan")
	sort.Slice(results, func(i, j int) bool { return results[i].Scenario < results[j].Scenario })
	for _, r := range results {
		fmt.Printf("%-32s %8d %10.2f %10t %10d\n", r.Scenario, r.NumDrones, r.RuntimeMs, r.Success, r.Makespan)
	}
}

func main() {
	inputDir := flag.String("input", "testdata", "directory containing scenario JSON files")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "output CSV file")
	timeout := flag.Duration("timeout", 2*time.Minute, "solve timeout per scenario")

	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "run_benchmarks: creating output directory: %v\n", err)
		os.Exit(1)
	}

	files, err := filepath.Glob(filepath.Join(*inputDir, "*.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "run_benchmarks: finding scenario files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no scenario files found in %s; run gen_instances first\n", *inputDir)
		os.Exit(1)
	}

	var results []*Result
	for _, f := range files {
		s, err := loadScenario(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run_benchmarks: loading %s: %v\n", f, err)
			continue
		}
		fmt.Printf("solving %s (%d drones)...\n", s.Name, s.Params.NumDrones)
		results = append(results, runScenario(s, *timeout))
	}

	if err := writeCSV(results, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "run_benchmarks: writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("results written to: %s\n", *outputFile)

	printSummary(results)
}
