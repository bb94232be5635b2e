package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

// Closed-form fixed point of the builtin model at Base inputs
// (materialCost 120, energyCost 60, transportCost 35), from solving the
// four coupled equations directly.
const (
	baseCO2       = 10.8 / 0.95                  // (0.1*60 + 0.04*120) / 0.95
	baseDisposal  = 96 + baseCO2                 // 0.8*120 + co2
	baseEcoFees   = (3.5 + 0.05*baseCO2) / 0.9   // (0.1*35 + 0.05*co2) / 0.9
	baseLogistics = 35 + baseEcoFees             // 35 + ecoFees
)

func newTestSolver() *Solver {
	return New(model.Default(), scenario.Builtin())
}

func TestSimulateBaseClosedForm(t *testing.T) {
	out, err := newTestSolver().Simulate(DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, StatusConverged, out.Status)
	assert.True(t, out.Converged())
	assert.Greater(t, out.Iterations, 0)
	assert.Less(t, out.Iterations, DefaultMaxIterations)
	assert.Less(t, out.MaxDelta, DefaultThreshold)

	// Inputs pass through untouched.
	assert.Equal(t, 120.0, out.Value(model.AttrMaterialCost))
	assert.Equal(t, 60.0, out.Value(model.AttrEnergyCost))
	assert.Equal(t, 35.0, out.Value(model.AttrTransportCost))

	// Calculated values land on the analytic fixed point within the
	// convergence threshold.
	assert.InDelta(t, baseCO2, out.Value(model.AttrCO2Cost), 1e-3)
	assert.InDelta(t, baseDisposal, out.Value(model.AttrDisposalCost), 1e-3)
	assert.InDelta(t, baseEcoFees, out.Value(model.AttrEcoFees), 1e-3)
	assert.InDelta(t, baseLogistics, out.Value(model.AttrLogisticsCost), 1e-3)
}

func TestSimulateTightThreshold(t *testing.T) {
	p := DefaultParams()
	p.Threshold = 1e-9
	out, err := newTestSolver().Simulate(p)
	require.NoError(t, err)

	require.Equal(t, StatusConverged, out.Status)
	assert.InDelta(t, baseCO2, out.Value(model.AttrCO2Cost), 1e-6)
	assert.InDelta(t, baseDisposal, out.Value(model.AttrDisposalCost), 1e-6)
	assert.InDelta(t, baseEcoFees, out.Value(model.AttrEcoFees), 1e-6)
	assert.InDelta(t, baseLogistics, out.Value(model.AttrLogisticsCost), 1e-6)
}

func TestConvergedValuesSatisfyFormulas(t *testing.T) {
	out, err := newTestSolver().Simulate(DefaultParams())
	require.NoError(t, err)
	require.True(t, out.Converged())

	ctx := out.Context
	m := ctx[model.AttrMaterialCost]
	e := ctx[model.AttrEnergyCost]
	tr := ctx[model.AttrTransportCost]

	assert.InDelta(t, m*0.8+ctx[model.AttrCO2Cost], ctx[model.AttrDisposalCost], DefaultThreshold)
	assert.InDelta(t, e*0.1+ctx[model.AttrDisposalCost]*0.05, ctx[model.AttrCO2Cost], DefaultThreshold)
	assert.InDelta(t, tr+ctx[model.AttrEcoFees], ctx[model.AttrLogisticsCost], DefaultThreshold)
	assert.InDelta(t, ctx[model.AttrLogisticsCost]*0.1+ctx[model.AttrCO2Cost]*0.05, ctx[model.AttrEcoFees], DefaultThreshold)
}

func TestSimulateScenarios(t *testing.T) {
	// LocalSourcing (materialCost 135, transportCost 18) has an exact
	// rational fixed point: co2 = (6+5.4)/0.95 = 12, disposal = 108+12.
	out, err := newTestSolver().Simulate(Params{
		Scenario:      "LocalSourcing",
		MaxIterations: DefaultMaxIterations,
		Threshold:     1e-9,
	})
	require.NoError(t, err)
	require.True(t, out.Converged())

	assert.Equal(t, 135.0, out.Value(model.AttrMaterialCost))
	assert.Equal(t, 18.0, out.Value(model.AttrTransportCost))
	assert.InDelta(t, 12.0, out.Value(model.AttrCO2Cost), 1e-6)
	assert.InDelta(t, 120.0, out.Value(model.AttrDisposalCost), 1e-6)
	assert.InDelta(t, 2.4/0.9, out.Value(model.AttrEcoFees), 1e-6)
	assert.InDelta(t, 18+2.4/0.9, out.Value(model.AttrLogisticsCost), 1e-6)

	shock, err := newTestSolver().Simulate(Params{
		Scenario:      "EnergyPriceShock",
		MaxIterations: DefaultMaxIterations,
		Threshold:     1e-9,
	})
	require.NoError(t, err)
	wantCO2 := (0.1*95 + 0.04*120) / 0.95
	assert.InDelta(t, wantCO2, shock.Value(model.AttrCO2Cost), 1e-6)
	assert.InDelta(t, 96+wantCO2, shock.Value(model.AttrDisposalCost), 1e-6)
}

func TestManualOverrideBeatsScenario(t *testing.T) {
	s := newTestSolver()

	p := DefaultParams()
	p.Scenario = "EnergyPriceShock"
	p.Overrides = scenario.Overrides{
		model.BlockProduction: {model.AttrEnergyCost: 60},
	}
	got, err := s.Simulate(p)
	require.NoError(t, err)

	base, err := s.Simulate(DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, base.Context, got.Context)
}

func TestSimulateDeterministic(t *testing.T) {
	s := newTestSolver()
	p := Params{
		Scenario:      "EnergyPriceShock",
		Overrides:     scenario.Overrides{model.BlockLogistics: {model.AttrTransportCost: 41}},
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultThreshold,
	}

	a, err := s.Simulate(p)
	require.NoError(t, err)
	b, err := s.Simulate(p)
	require.NoError(t, err)

	assert.Equal(t, a.Context, b.Context)
	assert.Equal(t, a.Deltas, b.Deltas)
	assert.Equal(t, a.Iterations, b.Iterations)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestDeltasShrinkEveryPass(t *testing.T) {
	out, err := newTestSolver().Simulate(DefaultParams())
	require.NoError(t, err)
	require.Greater(t, len(out.Deltas), 1)

	for i := 1; i < len(out.Deltas); i++ {
		assert.Less(t, out.Deltas[i], out.Deltas[i-1], "pass %d", i)
	}
	// Every pass but the last stayed at or above the threshold, the last
	// dropped below it.
	for i := 0; i < len(out.Deltas)-1; i++ {
		assert.GreaterOrEqual(t, out.Deltas[i], DefaultThreshold)
	}
	assert.Less(t, out.Deltas[len(out.Deltas)-1], DefaultThreshold)
	assert.Equal(t, out.Deltas[len(out.Deltas)-1], out.MaxDelta)
}

func TestZeroIterations(t *testing.T) {
	p := DefaultParams()
	p.MaxIterations = 0
	out, err := newTestSolver().Simulate(p)
	require.NoError(t, err)

	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, 0, out.Iterations)
	assert.Empty(t, out.Deltas)
	assert.Zero(t, out.MaxDelta)

	// Nothing ran, so calculated attributes still sit at zero.
	assert.Equal(t, 120.0, out.Value(model.AttrMaterialCost))
	assert.Zero(t, out.Value(model.AttrDisposalCost))
	assert.Zero(t, out.Value(model.AttrCO2Cost))
}

func TestExhaustionIsNotAnError(t *testing.T) {
	p := DefaultParams()
	p.MaxIterations = 2
	out, err := newTestSolver().Simulate(p)
	require.NoError(t, err)

	assert.Equal(t, StatusExhausted, out.Status)
	assert.False(t, out.Converged())
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, out.Deltas, 2)
	assert.GreaterOrEqual(t, out.MaxDelta, DefaultThreshold)

	// Best-effort values are still the result of two real passes.
	assert.Greater(t, out.Value(model.AttrDisposalCost), 0.0)
}

func TestUnknownScenarioRunsOnBase(t *testing.T) {
	s := newTestSolver()

	p := DefaultParams()
	p.Scenario = "NoSuchScenario"
	got, err := s.Simulate(p)
	require.NoError(t, err)

	base, err := s.Simulate(DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, base.Context, got.Context)
	assert.Equal(t, "NoSuchScenario", got.Scenario)
}

func TestInvalidParams(t *testing.T) {
	s := newTestSolver()

	p := DefaultParams()
	p.MaxIterations = -1
	_, err := s.Simulate(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.Threshold = math.NaN()
	_, err = s.Simulate(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.Threshold = math.Inf(1)
	_, err = s.Simulate(p)
	assert.Error(t, err)
}

func TestBadOverrideSurfacesValidationError(t *testing.T) {
	p := DefaultParams()
	p.Overrides = scenario.Overrides{
		model.BlockProduction: {"laborCost": 10},
	}
	_, err := newTestSolver().Simulate(p)
	require.Error(t, err)

	var verr *scenario.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestNaNFormulaNeverConverges(t *testing.T) {
	m, err := model.New([]model.BlockDef{{
		Name: "test",
		Attributes: []model.Attribute{
			{Name: "x", Kind: model.KindInput, Baseline: 1},
			{Name: "bad", Kind: model.KindCalculated, Formula: func(model.Context) float64 {
				return math.NaN()
			}},
		},
	}})
	require.NoError(t, err)

	p := Params{MaxIterations: 5, Threshold: 0.001}
	out, err := New(m, scenario.NewCatalog()).Simulate(p)
	require.NoError(t, err)

	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, 5, out.Iterations)
	assert.True(t, math.IsNaN(out.MaxDelta))
	assert.True(t, math.IsNaN(out.Value("bad")))
}

func TestOutcomeMetadata(t *testing.T) {
	p := DefaultParams()
	out, err := newTestSolver().Simulate(p)
	require.NoError(t, err)

	_, err = uuid.Parse(out.RunID)
	assert.NoError(t, err)
	assert.Equal(t, scenario.BaseName, out.Scenario)
	assert.Equal(t, p, out.Params)
	assert.GreaterOrEqual(t, out.Elapsed.Nanoseconds(), int64(0))
}

func TestCompare(t *testing.T) {
	s := newTestSolver()
	names := []string{"Base", "EnergyPriceShock", "LocalSourcing"}

	outs, err := s.Compare(names, DefaultParams())
	require.NoError(t, err)
	require.Len(t, outs, 3)

	for i, name := range names {
		assert.Equal(t, name, outs[i].Scenario)
		solo, err := s.Simulate(Params{
			Scenario:      name,
			MaxIterations: DefaultMaxIterations,
			Threshold:     DefaultThreshold,
		})
		require.NoError(t, err)
		assert.Equal(t, solo.Context, outs[i].Context, name)
	}
}

func TestCompareSurfacesRunErrors(t *testing.T) {
	p := DefaultParams()
	p.Overrides = scenario.Overrides{
		model.BlockProduction: {model.AttrCO2Cost: 1},
	}
	_, err := newTestSolver().Compare([]string{"Base", "LocalSourcing"}, p)
	require.Error(t, err)

	var verr *scenario.ValidationError
	assert.True(t, errors.As(err, &verr))
}
