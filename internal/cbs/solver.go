package cbs

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/swarmcore/internal/mapf"
	"github.com/elektrokombinacija/swarmcore/internal/telemetry"
)

// DefaultMaxThreads bounds how many constraint-tree nodes are expanded
// concurrently per batch.
const DefaultMaxThreads = 24

// Solver runs Conflict-Based Search over a mapf.Task.
type Solver struct {
	MaxThreads int
}

// NewSolver returns a Solver with the default parallelism.
func NewSolver() *Solver {
	return &Solver{MaxThreads: DefaultMaxThreads}
}

// expansion is the outcome of expanding one constraint-tree node in a batch.
type expansion struct {
	candidate *node // non-nil if this node's solution is conflict-free
	children  []*node
}

// Solve runs CBS to completion and returns the resulting Plan. An empty
// Plan (Empty() == true) signals that no conflict-free solution exists
// under these constraints; there is no retry.
func (s *Solver) Solve(ctx context.Context, task *mapf.Task, h Heuristic) (*mapf.Plan, error) {
	if task.NumAgents() == 0 {
		return &mapf.Plan{}, nil
	}

	maxThreads := s.MaxThreads
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}

	root := newRoot(task, h)
	if !root.hasSolution() {
		return &mapf.Plan{}, nil
	}

	open := []*node{root}
	closed := make(map[string]bool)

	for len(open) > 0 {
		sort.Slice(open, func(i, j int) bool { return open[i].less(open[j]) })

		k := maxThreads
		if k > len(open) {
			k = len(open)
		}
		batch := open[:k]

		results := make([]expansion, k)
		g, gctx := errgroup.WithContext(ctx)
		for i, p := range batch {
			i, p := i, p
			g.Go(func() error {
				exp, err := expand(p, h)
				if err != nil {
					return err
				}
				results[i] = exp
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
					return nil
				}
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var best *node
		for _, r := range results {
			if r.candidate == nil {
				continue
			}
			if best == nil || r.candidate.soc < best.soc {
				best = r.candidate
			}
		}
		if best != nil {
			steps := best.solution()
			return &mapf.Plan{Steps: steps}, nil
		}

		remaining := open[k:]
		for _, p := range batch {
			closed[p.constraints.canonicalKey()] = true
		}
		for _, r := range results {
			for _, c := range r.children {
				if c == nil || !c.hasSolution() {
					continue
				}
				if closed[c.constraints.canonicalKey()] {
					continue
				}
				remaining = append(remaining, c)
			}
		}
		open = remaining
	}

	telemetry.L().Warn("cbs: open set exhausted without a conflict-free solution",
		zap.Int("agents", task.NumAgents()))
	return &mapf.Plan{}, nil
}

// expand computes p's first conflict; if none, p is itself the candidate
// solution. Otherwise it produces the two children obtained by forbidding
// each conflicting agent the disputed node at the disputed time, retaining
// only children that still have a solution.
func expand(p *node, h Heuristic) (expansion, error) {
	conflict, err := p.firstConflict()
	if err != nil {
		return expansion{}, err
	}
	if conflict == nil {
		return expansion{candidate: p}, nil
	}

	c1 := p.child(h, Constraint{Time: conflict.Time, Agent: conflict.Agent1, Node: conflict.Node1})
	c2 := p.child(h, Constraint{Time: conflict.Time, Agent: conflict.Agent2, Node: conflict.Node2})
	return expansion{children: []*node{c1, c2}}, nil
}
