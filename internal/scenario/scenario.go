// Package scenario holds the named what-if catalog and resolves the initial
// numeric state of a simulation run. Resolution layers four sources, highest
// wins: manual override > named scenario > Base scenario > declared baseline.
package scenario

import (
	"fmt"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

// BaseName is the scenario every resolution starts from. It is always
// present in the builtin catalog and cannot be replaced.
const BaseName = "Base"

// Overrides is a partial per-block override of input attribute values.
type Overrides map[model.BlockName]map[string]float64

// Scenario is a named bundle of input overrides representing one what-if
// case. Fields it does not mention fall back to Base and then to the
// declared baselines.
type Scenario struct {
	Name        string
	Description string
	Overrides   Overrides
}

// Catalog is the ordered, named set of scenarios known to the engine.
// Callers must treat returned scenarios as read-only.
type Catalog struct {
	ordered []*Scenario
	index   map[string]*Scenario
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]*Scenario)}
}

// Builtin returns the fixed scenario catalog shipped with the engine.
func Builtin() *Catalog {
	c := NewCatalog()
	c.put(&Scenario{
		Name:        BaseName,
		Description: "Current operating assumptions",
		Overrides: Overrides{
			model.BlockProduction: {
				model.AttrMaterialCost: 120,
				model.AttrEnergyCost:   60,
			},
			model.BlockLogistics: {
				model.AttrTransportCost: 35,
			},
		},
	})
	c.put(&Scenario{
		Name:        "EnergyPriceShock",
		Description: "Energy prices spike after a supply squeeze",
		Overrides: Overrides{
			model.BlockProduction: {
				model.AttrEnergyCost: 95,
			},
		},
	})
	c.put(&Scenario{
		Name:        "LocalSourcing",
		Description: "Shorter transport routes, pricier regional material",
		Overrides: Overrides{
			model.BlockProduction: {
				model.AttrMaterialCost: 135,
			},
			model.BlockLogistics: {
				model.AttrTransportCost: 18,
			},
		},
	})
	return c
}

// Get looks up a scenario by name.
func (c *Catalog) Get(name string) (*Scenario, bool) {
	s, ok := c.index[name]
	return s, ok
}

// Names returns all scenario names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.ordered))
	for i, s := range c.ordered {
		out[i] = s.Name
	}
	return out
}

// Scenarios returns the catalog entries in order.
func (c *Catalog) Scenarios() []*Scenario {
	out := make([]*Scenario, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Put adds a scenario or replaces an existing one of the same name, keeping
// its position. Base is reserved: it is the documented fallback source for
// every resolution and cannot be redefined.
func (c *Catalog) Put(s *Scenario) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.Name == BaseName {
		return fmt.Errorf("scenario name %q is reserved", BaseName)
	}
	c.put(s)
	return nil
}

func (c *Catalog) put(s *Scenario) {
	if prev, ok := c.index[s.Name]; ok {
		for i, existing := range c.ordered {
			if existing == prev {
				c.ordered[i] = s
				break
			}
		}
	} else {
		c.ordered = append(c.ordered, s)
	}
	c.index[s.Name] = s
}
