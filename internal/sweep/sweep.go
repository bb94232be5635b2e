// Package sweep runs deterministic sensitivity series. One input attribute
// is perturbed around its resolved value by seeded simplex noise, and every
// step is a complete simulation run. The same seed and inputs always
// reproduce the same series.
package sweep

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/vinaykashyap1996/circonomit-sim/internal/engine"
	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

// Noise shaping for the perturbation series.
const (
	sweepOctaves     = 3
	sweepFrequency   = 0.35
	sweepPersistence = 0.5
)

// Config holds sweep parameters.
type Config struct {
	Block     model.BlockName // block of the swept attribute; inferred when empty
	Attribute string          // input attribute to perturb
	Steps     int             // number of runs
	Amplitude float64         // max absolute perturbation around the resolved value
	Seed      int64           // noise seed (0 = random)
}

// DefaultConfig returns a reasonable starting configuration. The caller
// still has to pick the attribute.
func DefaultConfig() Config {
	return Config{
		Steps:     20,
		Amplitude: 10,
		Seed:      0,
	}
}

// Point is one step of the series.
type Point struct {
	Step    int             `json:"step"`
	Input   float64         `json:"input"` // perturbed value fed into the run
	Outcome *engine.Outcome `json:"outcome"`
}

// Series is a complete sweep result.
type Series struct {
	Block     model.BlockName `json:"block"`
	Attribute string          `json:"attribute"`
	Center    float64         `json:"center"` // resolved value the noise perturbs around
	Seed      int64           `json:"seed"`   // effective seed, never 0
	Points    []Point         `json:"points"`
}

// Run executes the sweep: resolve the center value once, derive one
// perturbed input per step from the noise series, and simulate every step
// as an independent run. Steps execute concurrently, one goroutine each.
func Run(solver *engine.Solver, p engine.Params, cfg Config) (*Series, error) {
	m := solver.Model()

	attr, ok := m.Attribute(cfg.Attribute)
	if !ok {
		return nil, fmt.Errorf("sweep: unknown attribute %q", cfg.Attribute)
	}
	owner, _ := m.BlockOf(cfg.Attribute)
	if cfg.Block == "" {
		cfg.Block = owner
	} else if cfg.Block != owner {
		return nil, fmt.Errorf("sweep: attribute %q belongs to block %q, not %q", cfg.Attribute, owner, cfg.Block)
	}
	if attr.Kind != model.KindInput {
		return nil, fmt.Errorf("sweep: %q is calculated, only inputs can be swept", cfg.Attribute)
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("sweep: steps must be positive, got %d", cfg.Steps)
	}
	if math.IsNaN(cfg.Amplitude) || math.IsInf(cfg.Amplitude, 0) || cfg.Amplitude < 0 {
		return nil, fmt.Errorf("sweep: amplitude must be a finite non-negative number, got %v", cfg.Amplitude)
	}

	// The center reflects the scenario and manual overrides, not just the
	// declared baseline.
	resolved, err := scenario.Resolve(m, solver.Catalog(), p.Scenario, p.Overrides)
	if err != nil {
		return nil, err
	}
	center := resolved[cfg.Attribute]

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	noise := opensimplex.NewNormalized(seed)

	series := &Series{
		Block:     cfg.Block,
		Attribute: cfg.Attribute,
		Center:    center,
		Seed:      seed,
		Points:    make([]Point, cfg.Steps),
	}
	errs := make([]error, cfg.Steps)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Steps; i++ {
		// Normalized noise sits in [0,1]; spread it to [-1,1] so the
		// series wanders both sides of the center.
		n := octaveNoise(noise, float64(i), 0.5, sweepOctaves, sweepFrequency, sweepPersistence)
		value := center + (n*2-1)*cfg.Amplitude

		wg.Add(1)
		go func(i int, value float64) {
			defer wg.Done()
			run := p
			run.Overrides = withOverride(p.Overrides, cfg.Block, cfg.Attribute, value)
			out, err := solver.Simulate(run)
			if err != nil {
				errs[i] = err
				return
			}
			series.Points[i] = Point{Step: i, Input: value, Outcome: out}
		}(i, value)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	slog.Debug("sweep finished",
		"attribute", cfg.Attribute,
		"steps", cfg.Steps,
		"seed", seed,
		"center", fmt.Sprintf("%.3f", center),
	)
	return series, nil
}

// withOverride deep-copies the override set and pins one attribute to a
// fixed value. The shared base must not be mutated, the runs read it
// concurrently.
func withOverride(base scenario.Overrides, blk model.BlockName, attr string, v float64) scenario.Overrides {
	out := make(scenario.Overrides, len(base)+1)
	for b, attrs := range base {
		vals := make(map[string]float64, len(attrs))
		for k, val := range attrs {
			vals[k] = val
		}
		out[b] = vals
	}
	if out[blk] == nil {
		out[blk] = make(map[string]float64, 1)
	}
	out[blk][attr] = v
	return out
}

// octaveNoise layers multiple noise frequencies into a single value in
// [0,1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
