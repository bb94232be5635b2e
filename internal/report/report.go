// Package report projects a simulation context into display rows for the
// CLI tables and the HTTP API.
package report

import (
	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

// Row is one attribute value ready for display.
type Row struct {
	Attribute string  `json:"attribute"`
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
}

// presentation is the fixed row order of the builtin cost model: inputs
// before calculated values inside each block, production before logistics.
var presentation = []struct {
	name  string
	label string
}{
	{model.AttrMaterialCost, "Material cost"},
	{model.AttrEnergyCost, "Energy cost"},
	{model.AttrDisposalCost, "Disposal cost"},
	{model.AttrCO2Cost, "CO2 cost"},
	{model.AttrTransportCost, "Transport cost"},
	{model.AttrLogisticsCost, "Logistics cost"},
	{model.AttrEcoFees, "Eco fees"},
}

// Rows projects a context of the builtin model into its seven display rows.
// Attributes missing from the context show as zero.
func Rows(ctx model.Context) []Row {
	out := make([]Row, len(presentation))
	for i, p := range presentation {
		out[i] = Row{Attribute: p.name, Label: p.label, Value: ctx[p.name]}
	}
	return out
}

// ModelRows projects a context through an arbitrary model, one row per
// attribute in declaration order, labels taken from the model itself.
func ModelRows(m *model.Model, ctx model.Context) []Row {
	var out []Row
	for _, blk := range m.Blocks() {
		for _, name := range m.AttributeNames(blk) {
			attr, ok := m.Attribute(name)
			if !ok {
				continue
			}
			label := attr.Label
			if label == "" {
				label = attr.Name
			}
			out = append(out, Row{Attribute: attr.Name, Label: label, Value: ctx[attr.Name]})
		}
	}
	return out
}
