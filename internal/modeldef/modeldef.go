// Package modeldef loads cost-model definitions from HCL files, so the
// engine can run models other than the built-in one:
//
//	block "production" {
//	  input "materialCost" {
//	    label   = "Material cost"
//	    default = 120
//	  }
//	  calculated "disposalCost" {
//	    label   = "Disposal cost"
//	    formula = materialCost * 0.8 + co2Cost
//	  }
//	}
//
// Formula expressions live in a flat namespace: they may reference any
// attribute name declared anywhere in the file, including forward and
// cyclic references, but nothing else. References are checked at load
// time; evaluation happens per relaxation pass against the run's context.
package modeldef

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

type fileModel struct {
	Blocks []*fileBlock `hcl:"block,block"`
}

type fileBlock struct {
	Name       string            `hcl:"name,label"`
	Inputs     []*fileInput      `hcl:"input,block"`
	Calculated []*fileCalculated `hcl:"calculated,block"`
}

type fileInput struct {
	Name    string  `hcl:"name,label"`
	Label   string  `hcl:"label,optional"`
	Default float64 `hcl:"default,optional"`
}

type fileCalculated struct {
	Name    string         `hcl:"name,label"`
	Label   string         `hcl:"label,optional"`
	Formula hcl.Expression `hcl:"formula,optional"`
}

// Load reads one model definition file.
func Load(path string) (*model.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing model file %s: %w", path, diags)
	}
	return build(file.Body)
}

// LoadBytes parses an in-memory model definition. The filename only labels
// positions in diagnostics.
func LoadBytes(src []byte, filename string) (*model.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing model %s: %w", filename, diags)
	}
	return build(file.Body)
}

func build(body hcl.Body) (*model.Model, error) {
	var doc fileModel
	if diags := gohcl.DecodeBody(body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding model definition: %w", diags)
	}

	// Formulas may reference any declared attribute, forward or cyclic, so
	// collect the full name set before compiling anything.
	known := make(map[string]struct{})
	for _, b := range doc.Blocks {
		for _, in := range b.Inputs {
			known[in.Name] = struct{}{}
		}
		for _, c := range b.Calculated {
			known[c.Name] = struct{}{}
		}
	}

	defs := make([]model.BlockDef, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		attrs := make([]model.Attribute, 0, len(b.Inputs)+len(b.Calculated))
		for _, in := range b.Inputs {
			attrs = append(attrs, model.Attribute{
				Name:     in.Name,
				Label:    in.Label,
				Kind:     model.KindInput,
				Baseline: in.Default,
			})
		}
		for _, c := range b.Calculated {
			var f model.Formula
			if c.Formula != nil {
				var err error
				f, err = compileFormula(c.Formula, known, b.Name, c.Name)
				if err != nil {
					return nil, err
				}
			}
			attrs = append(attrs, model.Attribute{
				Name:    c.Name,
				Label:   c.Label,
				Kind:    model.KindCalculated,
				Formula: f,
			})
		}
		defs = append(defs, model.BlockDef{Name: model.BlockName(b.Name), Attributes: attrs})
	}

	return model.New(defs)
}

// compileFormula validates every variable reference in the expression
// against the declared attribute set and wraps the expression into a
// model.Formula. Evaluation failures at run time (division of zero by zero,
// a NaN operand) surface as NaN, which the solver treats as never
// converging.
func compileFormula(expr hcl.Expression, known map[string]struct{}, blk, attr string) (model.Formula, error) {
	for _, tr := range expr.Variables() {
		if len(tr) != 1 {
			return nil, &model.ConfigError{
				Block:  model.BlockName(blk),
				Attr:   attr,
				Reason: fmt.Sprintf("formula reference %q is not a plain attribute name", traversalKey(tr)),
			}
		}
		if _, ok := known[tr.RootName()]; !ok {
			return nil, &model.ConfigError{
				Block:  model.BlockName(blk),
				Attr:   attr,
				Reason: fmt.Sprintf("formula references undeclared attribute %q", tr.RootName()),
			}
		}
	}

	return func(ctx model.Context) float64 {
		vars := make(map[string]cty.Value, len(ctx))
		for name, v := range ctx {
			if math.IsNaN(v) {
				// cty numbers cannot hold NaN. Leaving the name out makes
				// any formula reading it fail, which is the NaN we want.
				continue
			}
			vars[name] = cty.NumberFloatVal(v)
		}
		val, diags := expr.Value(&hcl.EvalContext{Variables: vars})
		if diags.HasErrors() || val.IsNull() || !val.Type().Equals(cty.Number) {
			return math.NaN()
		}
		f, _ := val.AsBigFloat().Float64()
		return f
	}, nil
}

// traversalKey renders a traversal the way it was written, e.g. "a.b[0]".
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}
