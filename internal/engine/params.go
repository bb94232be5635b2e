package engine

import (
	"fmt"
	"math"

	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

// Default solver tuning.
const (
	DefaultMaxIterations = 100
	DefaultThreshold     = 0.001
)

// Params bound one simulation run.
type Params struct {
	// Scenario names the catalog entry to run. Empty means Base.
	Scenario string `json:"scenario"`

	// Overrides are manual per-block input values applied on top of the
	// scenario. They win over every other source.
	Overrides scenario.Overrides `json:"overrides,omitempty"`

	// MaxIterations caps the number of relaxation passes. Zero means the
	// run performs no passes at all and reports exhaustion.
	MaxIterations int `json:"max_iterations"`

	// Threshold ends the run once a full pass moves no calculated
	// attribute by this much or more.
	Threshold float64 `json:"threshold"`
}

// DefaultParams returns the standard tuning: Base scenario, up to 100
// passes, converged when a pass stays under 0.001.
func DefaultParams() Params {
	return Params{
		Scenario:      scenario.BaseName,
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultThreshold,
	}
}

func (p Params) validate() error {
	if p.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative, got %d", p.MaxIterations)
	}
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) || p.Threshold < 0 {
		return fmt.Errorf("threshold must be a finite non-negative number, got %v", p.Threshold)
	}
	return nil
}
