// Package engine runs cost-model simulations. A run seeds every attribute
// from the scenario layers, then relaxes the calculated attributes to a
// fixed point: each pass recomputes them in registry order against the
// latest values in place, and the run stops once a full pass moves nothing
// by the threshold or more, or the iteration cap is hit.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

// Solver runs simulations against one model and scenario catalog. It holds
// no mutable state, so a single Solver is safe for concurrent Simulate
// calls; every run works on its own context.
type Solver struct {
	model   *model.Model
	catalog *scenario.Catalog
}

// New creates a solver for the given model and catalog.
func New(m *model.Model, cat *scenario.Catalog) *Solver {
	return &Solver{model: m, catalog: cat}
}

// Model returns the model this solver runs against.
func (s *Solver) Model() *model.Model { return s.model }

// Catalog returns the scenario catalog this solver resolves against.
func (s *Solver) Catalog() *scenario.Catalog { return s.catalog }

// Simulate resolves the scenario into a starting context and relaxes it.
// Exhausting the iteration cap is not an error: the outcome reports
// StatusExhausted and carries the values of the final pass.
func (s *Solver) Simulate(p Params) (*Outcome, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Scenario == "" {
		p.Scenario = scenario.BaseName
	}

	ctx, err := scenario.Resolve(s.model, s.catalog, p.Scenario, p.Overrides)
	if err != nil {
		return nil, fmt.Errorf("resolving scenario: %w", err)
	}

	start := time.Now()
	calc := s.model.Calculated()
	out := &Outcome{
		RunID:    uuid.NewString(),
		Scenario: p.Scenario,
		Status:   StatusExhausted,
		Params:   p,
	}

	for pass := 0; pass < p.MaxIterations; pass++ {
		snap := ctx.Clone()
		for _, a := range calc {
			ctx[a.Name] = a.Formula(ctx)
		}

		delta := 0.0
		for _, a := range calc {
			d := math.Abs(ctx[a.Name] - snap[a.Name])
			// A NaN delta must keep the pass from counting as converged.
			if math.IsNaN(d) || d > delta {
				delta = d
			}
		}
		out.Deltas = append(out.Deltas, delta)
		out.Iterations = pass + 1
		out.MaxDelta = delta

		if delta < p.Threshold {
			out.Status = StatusConverged
			break
		}
	}

	out.Context = ctx
	out.Elapsed = time.Since(start)

	slog.Debug("simulation finished",
		"run_id", out.RunID,
		"scenario", out.Scenario,
		"status", string(out.Status),
		"iterations", out.Iterations,
		"max_delta", fmt.Sprintf("%.6f", out.MaxDelta),
		"elapsed", out.Elapsed,
	)
	return out, nil
}

// Compare runs one simulation per named scenario and returns the outcomes
// in input order. All runs share p's tuning and manual overrides;
// p.Scenario is ignored. Runs execute concurrently, one goroutine each.
func (s *Solver) Compare(names []string, p Params) ([]*Outcome, error) {
	outs := make([]*Outcome, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			run := p
			run.Scenario = name
			outs[i], errs[i] = s.Simulate(run)
		}(i, name)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outs, nil
}
