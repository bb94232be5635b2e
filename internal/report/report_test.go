package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

func TestRowsOrderAndLabels(t *testing.T) {
	ctx := model.Context{
		model.AttrMaterialCost:  120,
		model.AttrEnergyCost:    60,
		model.AttrDisposalCost:  107.37,
		model.AttrCO2Cost:       11.37,
		model.AttrTransportCost: 35,
		model.AttrLogisticsCost: 39.52,
		model.AttrEcoFees:       4.52,
	}

	rows := Rows(ctx)
	require.Len(t, rows, 7)

	wantOrder := []string{
		model.AttrMaterialCost,
		model.AttrEnergyCost,
		model.AttrDisposalCost,
		model.AttrCO2Cost,
		model.AttrTransportCost,
		model.AttrLogisticsCost,
		model.AttrEcoFees,
	}
	for i, name := range wantOrder {
		assert.Equal(t, name, rows[i].Attribute)
		assert.Equal(t, ctx[name], rows[i].Value)
		assert.NotEmpty(t, rows[i].Label)
	}
	assert.Equal(t, "Material cost", rows[0].Label)
	assert.Equal(t, "Eco fees", rows[6].Label)
}

func TestRowsMissingAttributesReadZero(t *testing.T) {
	rows := Rows(model.Context{model.AttrMaterialCost: 120})
	require.Len(t, rows, 7)
	assert.Equal(t, 120.0, rows[0].Value)
	for _, r := range rows[1:] {
		assert.Zero(t, r.Value, r.Attribute)
	}
}

func TestRowsDoesNotMutateContext(t *testing.T) {
	ctx := model.Context{model.AttrMaterialCost: 120}
	Rows(ctx)
	assert.Equal(t, model.Context{model.AttrMaterialCost: 120}, ctx)
}

func TestModelRowsFollowsDeclarationOrder(t *testing.T) {
	m, err := model.New([]model.BlockDef{
		{
			Name: "alpha",
			Attributes: []model.Attribute{
				{Name: "a", Label: "Alpha A", Kind: model.KindInput, Baseline: 1},
				{Name: "b", Kind: model.KindCalculated, Formula: func(c model.Context) float64 { return c["a"] * 2 }},
			},
		},
		{
			Name: "beta",
			Attributes: []model.Attribute{
				{Name: "c", Label: "Beta C", Kind: model.KindInput, Baseline: 3},
			},
		},
	})
	require.NoError(t, err)

	rows := ModelRows(m, model.Context{"a": 1, "b": 2, "c": 3})
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rows[0].Attribute, rows[1].Attribute, rows[2].Attribute})
	assert.Equal(t, "Alpha A", rows[0].Label)
	// Attributes without a label fall back to their name.
	assert.Equal(t, "b", rows[1].Label)
	assert.Equal(t, "Beta C", rows[2].Label)
	assert.Equal(t, 2.0, rows[1].Value)
}

func TestModelRowsMatchesBuiltinPresentation(t *testing.T) {
	ctx := model.Default().NewBaselineContext()

	fixed := Rows(ctx)
	generic := ModelRows(model.Default(), ctx)
	assert.Equal(t, fixed, generic)
}
