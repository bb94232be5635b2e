// The built-in Production/Logistics cost model. CO2 cost feeds disposal cost
// and eco fees, disposal feeds back into CO2, and eco fees feed back into
// logistics cost, so the calculated attributes form two genuine cycles and
// only a relaxation pass can resolve them.
package model

// Attribute names of the built-in model.
const (
	AttrMaterialCost  = "materialCost"
	AttrEnergyCost    = "energyCost"
	AttrDisposalCost  = "disposalCost"
	AttrCO2Cost       = "co2Cost"
	AttrTransportCost = "transportCost"
	AttrLogisticsCost = "logisticsCost"
	AttrEcoFees       = "ecoFees"
)

// Default returns the built-in two-block model:
//
//	disposalCost  = materialCost*0.8 + co2Cost
//	co2Cost       = energyCost*0.1  + disposalCost*0.05
//	logisticsCost = transportCost   + ecoFees
//	ecoFees       = logisticsCost*0.1 + co2Cost*0.05
//
// with baselines materialCost=120, energyCost=60, transportCost=35.
func Default() *Model {
	m, err := New([]BlockDef{
		{
			Name: BlockProduction,
			Attributes: []Attribute{
				{Name: AttrMaterialCost, Label: "Material cost", Kind: KindInput, Baseline: 120},
				{Name: AttrEnergyCost, Label: "Energy cost", Kind: KindInput, Baseline: 60},
				{Name: AttrDisposalCost, Label: "Disposal cost", Kind: KindCalculated,
					Formula: func(ctx Context) float64 {
						return ctx[AttrMaterialCost]*0.8 + ctx[AttrCO2Cost]
					}},
				{Name: AttrCO2Cost, Label: "CO2 cost", Kind: KindCalculated,
					Formula: func(ctx Context) float64 {
						return ctx[AttrEnergyCost]*0.1 + ctx[AttrDisposalCost]*0.05
					}},
			},
		},
		{
			Name: BlockLogistics,
			Attributes: []Attribute{
				{Name: AttrTransportCost, Label: "Transport cost", Kind: KindInput, Baseline: 35},
				{Name: AttrLogisticsCost, Label: "Logistics cost", Kind: KindCalculated,
					Formula: func(ctx Context) float64 {
						return ctx[AttrTransportCost] + ctx[AttrEcoFees]
					}},
				{Name: AttrEcoFees, Label: "Eco fees", Kind: KindCalculated,
					Formula: func(ctx Context) float64 {
						return ctx[AttrLogisticsCost]*0.1 + ctx[AttrCO2Cost]*0.05
					}},
			},
		},
	})
	if err != nil {
		// The built-in declaration is static; failing to build it is a bug.
		panic(err)
	}
	return m
}
