package engine

import (
	"time"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

// Status reports how a run ended.
type Status string

const (
	// StatusConverged means a full pass moved every calculated attribute
	// by less than the threshold.
	StatusConverged Status = "converged"

	// StatusExhausted means the iteration cap was hit first. The outcome
	// still carries the best values reached; exhaustion is not an error.
	StatusExhausted Status = "exhausted"
)

// Outcome is the result of one simulation run.
type Outcome struct {
	RunID      string        `json:"run_id"`
	Scenario   string        `json:"scenario"`
	Status     Status        `json:"status"`
	Iterations int           `json:"iterations"` // passes actually executed
	MaxDelta   float64       `json:"max_delta"`  // delta of the final pass, 0 if none ran
	Deltas     []float64     `json:"deltas"`     // per-pass max absolute change
	Context    model.Context `json:"context"`    // every attribute, inputs included
	Params     Params        `json:"params"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Converged reports whether the run settled below the threshold.
func (o *Outcome) Converged() bool {
	return o.Status == StatusConverged
}

// Value returns one attribute's final value.
func (o *Outcome) Value(name string) float64 {
	return o.Context[name]
}
