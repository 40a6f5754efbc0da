// Command gen_instances generates deterministic swarm-planning scenarios
// for benchmarking the CBS solver: a set of drone starting positions
// scattered inside a bounding volume, plus a target position per drone,
// written out as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// ScenarioParams controls scenario generation.
type ScenarioParams struct {
	Seed       int64   `json:"seed"`
	NumDrones  int     `json:"num_drones"`
	WidthM     float64 `json:"width_m"`
	DepthM     float64 `json:"depth_m"`
	AltitudeM  float64 `json:"altitude_m"`
	MinSpacing float64 `json:"min_spacing"`
}

// Point3 is a plain x/y/z position, independent of internal/geomtype so
// this tool can be run without importing the core planning packages.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scenario is a complete swarm move instance: every drone's starting
// position and the target it should be routed to.
type Scenario struct {
	Name      string         `json:"name"`
	Params    ScenarioParams `json:"params"`
	Starts    map[int]Point3 `json:"starts"`
	Targets   map[int]Point3 `json:"targets"`
	Generated string         `json:"generated"`
}

// generateScenario scatters NumDrones starting positions and an equal
// number of target positions across the bounding volume, rejecting starts
// that fall within MinSpacing of an already-placed drone so the
// discretizer has a meaningful bounding rectangle to work with.
func generateScenario(params ScenarioParams, generated string) *Scenario {
	rng := rand.New(rand.NewSource(params.Seed))

	s := &Scenario{
		Name:      fmt.Sprintf("swarm_%d_%gx%g_%d", params.NumDrones, params.WidthM, params.DepthM, params.Seed),
		Params:    params,
		Starts:    make(map[int]Point3, params.NumDrones),
		Targets:   make(map[int]Point3, params.NumDrones),
		Generated: generated,
	}

	placed := make([]Point3, 0, params.NumDrones)
	place := func() Point3 {
		for attempts := 0; attempts < 200; attempts++ {
			p := Point3{
				X: rng.Float64() * params.WidthM,
				Y: rng.Float64() * params.DepthM,
				Z: params.AltitudeM,
			}
			ok := true
			for _, q := range placed {
				dx, dy := p.X-q.X, p.Y-q.Y
				if dx*dx+dy*dy < params.MinSpacing*params.MinSpacing {
					ok = false
					break
				}
			}
			if ok {
				placed = append(placed, p)
				return p
			}
		}
		return Point3{X: rng.Float64() * params.WidthM, Y: rng.Float64() * params.DepthM, Z: params.AltitudeM}
	}

	for i := 0; i < params.NumDrones; i++ {
		s.Starts[i] = place()
	}
	for i := 0; i < params.NumDrones; i++ {
		s.Targets[i] = place()
	}
	return s
}

func main() {
	seed := flag.Int64("seed", 42, "random seed for deterministic generation")
	numDrones := flag.Int("drones", 8, "number of drones")
	width := flag.Float64("width", 20, "bounding box width in meters")
	depth := flag.Float64("depth", 20, "bounding box depth in meters")
	altitude := flag.Float64("altitude", 2.0, "ground-layer altitude in meters")
	minSpacing := flag.Float64("spacing", 1.5, "minimum separation between placed points in meters")
	outputDir := flag.String("output", "testdata", "output directory")
	scalingMode := flag.Bool("scaling", false, "generate a scaling suite (4, 8, 16, 32, 64 drones)")

	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "gen_instances: creating output directory: %v\n", err)
		os.Exit(1)
	}

	generated := time.Now().UTC().Format(time.RFC3339)

	var scenarios []*Scenario
	if *scalingMode {
		for _, n := range []int{4, 8, 16, 32, 64} {
			scenarios = append(scenarios, generateScenario(ScenarioParams{
				Seed:       *seed,
				NumDrones:  n,
				WidthM:     *width,
				DepthM:     *depth,
				AltitudeM:  *altitude,
				MinSpacing: *minSpacing,
			}, generated))
		}
	} else {
		scenarios = append(scenarios, generateScenario(ScenarioParams{
			Seed:       *seed,
			NumDrones:  *numDrones,
			WidthM:     *width,
			DepthM:     *depth,
			AltitudeM:  *altitude,
			MinSpacing: *minSpacing,
		}, generated))
	}

	for _, s := range scenarios {
		filename := filepath.Join(*outputDir, s.Name+".json")
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "gen_instances: marshaling %s: %v\n", s.Name, err)
			continue
		}
		if err := os.WriteFile(filename, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "gen_instances: writing %s: %v\n", filename, err)
			continue
		}
		fmt.Printf("generated: %s (%d drones, %gx%g box)\n", filename, s.Params.NumDrones, s.Params.WidthM, s.Params.DepthM)
	}
}
