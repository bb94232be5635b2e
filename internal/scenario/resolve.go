package scenario

import (
	"log/slog"
	"math"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

// Resolve builds the starting context for one simulation run. Input values
// layer in precedence order: declared baselines, then the Base scenario,
// then the named scenario, then manual overrides. Calculated attributes
// start at zero regardless of source.
//
// An unknown scenario name is not an error: the run proceeds on Base values
// alone. A malformed override entry is an error and aborts resolution.
func Resolve(m *model.Model, cat *Catalog, scenarioName string, manual Overrides) (model.Context, error) {
	ctx := m.NewBaselineContext()

	if base, ok := cat.Get(BaseName); ok {
		if err := apply(m, ctx, base.Overrides, base.Name); err != nil {
			return nil, err
		}
	}
	if scenarioName != "" && scenarioName != BaseName {
		if sc, ok := cat.Get(scenarioName); ok {
			if err := apply(m, ctx, sc.Overrides, sc.Name); err != nil {
				return nil, err
			}
		} else {
			slog.Debug("scenario not in catalog, running on base values", "scenario", scenarioName)
		}
	}
	if err := apply(m, ctx, manual, "override"); err != nil {
		return nil, err
	}
	return ctx, nil
}

// apply writes one override layer into ctx, validating every entry against
// the model. Entries within a layer are disjoint by key, so map iteration
// order does not affect the result.
func apply(m *model.Model, ctx model.Context, ov Overrides, source string) error {
	for blk, attrs := range ov {
		for name, v := range attrs {
			attr, ok := m.Attribute(name)
			if !ok {
				return &ValidationError{Source: source, Block: string(blk), Attr: name, Reason: "unknown attribute"}
			}
			if owner, _ := m.BlockOf(name); owner != blk {
				return &ValidationError{Source: source, Block: string(blk), Attr: name, Reason: "attribute belongs to block " + string(owner)}
			}
			if attr.Kind != model.KindInput {
				return &ValidationError{Source: source, Block: string(blk), Attr: name, Reason: "calculated attributes cannot be overridden"}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ValidationError{Source: source, Block: string(blk), Attr: name, Reason: "value is not a finite number"}
			}
			ctx[name] = v
		}
	}
	return nil
}
