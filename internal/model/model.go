// Package model defines the cost-model catalog: named blocks of attributes
// and the formulas that tie calculated attributes to each other. The catalog
// is built once and never mutated afterwards; solvers and resolvers receive
// it explicitly rather than reaching into shared state.
package model

import "math"

// Kind distinguishes user-supplied inputs from formula-derived values.
type Kind uint8

const (
	// KindInput attributes carry a baseline value that scenarios and manual
	// overrides may replace.
	KindInput Kind = iota
	// KindCalculated attributes carry a formula and are recomputed by the
	// solver on every relaxation pass.
	KindCalculated
)

// String returns the kind name used in errors and API payloads.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindCalculated:
		return "calculated"
	}
	return "unknown"
}

// BlockName identifies one domain grouping of attributes.
type BlockName string

// Blocks of the built-in model.
const (
	BlockProduction BlockName = "production"
	BlockLogistics  BlockName = "logistics"
)

// Context is the flat set of current attribute values during a simulation
// run. Keys are attribute names, which are unique across all blocks. A
// context belongs to exactly one run and is mutated in place while the
// solver iterates.
type Context map[string]float64

// Clone returns an independent copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Formula computes a calculated attribute from the current context. Formulas
// must be pure and may only read attribute names declared in the model. The
// arithmetic is deliberately unguarded: division by zero, negative inputs and
// non-finite intermediates propagate verbatim.
type Formula func(Context) float64

// Attribute is a single named numeric quantity, either a user-supplied input
// or a formula-derived value.
type Attribute struct {
	Name     string
	Label    string  // human-readable; falls back to Name when empty
	Kind     Kind
	Baseline float64 // inputs only; ignored for calculated attributes
	Formula  Formula // calculated only
}

// BlockDef declares one block and its attributes. Slice order is
// significant: it fixes both the recompute order inside the solver and the
// declaration-order projection of results.
type BlockDef struct {
	Name       BlockName
	Attributes []Attribute
}

// Model is the immutable catalog of blocks, attributes and formulas.
type Model struct {
	blocks     []BlockName
	attrsByBlk map[BlockName][]Attribute
	attrs      map[string]Attribute
	attrBlock  map[string]BlockName
	calculated []Attribute // recompute registry: declaration order across blocks
}

// New builds a Model from block declarations and validates it. Any defect in
// the declaration (duplicate names, a calculated attribute without a formula,
// an input carrying a formula, a non-finite baseline) is a *ConfigError and
// makes the whole model unusable.
func New(defs []BlockDef) (*Model, error) {
	m := &Model{
		attrsByBlk: make(map[BlockName][]Attribute, len(defs)),
		attrs:      make(map[string]Attribute),
		attrBlock:  make(map[string]BlockName),
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, &ConfigError{Reason: "block has no name"}
		}
		if _, dup := m.attrsByBlk[def.Name]; dup {
			return nil, &ConfigError{Block: def.Name, Reason: "duplicate block"}
		}

		attrs := make([]Attribute, 0, len(def.Attributes))
		for _, a := range def.Attributes {
			if a.Name == "" {
				return nil, &ConfigError{Block: def.Name, Reason: "attribute has no name"}
			}
			if _, dup := m.attrs[a.Name]; dup {
				return nil, &ConfigError{Block: def.Name, Attr: a.Name, Reason: "duplicate attribute name"}
			}
			if a.Label == "" {
				a.Label = a.Name
			}
			switch a.Kind {
			case KindInput:
				if a.Formula != nil {
					return nil, &ConfigError{Block: def.Name, Attr: a.Name, Reason: "input attribute carries a formula"}
				}
				if math.IsNaN(a.Baseline) || math.IsInf(a.Baseline, 0) {
					return nil, &ConfigError{Block: def.Name, Attr: a.Name, Reason: "baseline is not a finite number"}
				}
			case KindCalculated:
				if a.Formula == nil {
					return nil, &ConfigError{Block: def.Name, Attr: a.Name, Reason: "calculated attribute has no formula"}
				}
				a.Baseline = 0
			default:
				return nil, &ConfigError{Block: def.Name, Attr: a.Name, Reason: "unknown attribute kind"}
			}

			attrs = append(attrs, a)
			m.attrs[a.Name] = a
			m.attrBlock[a.Name] = def.Name
			if a.Kind == KindCalculated {
				m.calculated = append(m.calculated, a)
			}
		}

		m.blocks = append(m.blocks, def.Name)
		m.attrsByBlk[def.Name] = attrs
	}

	return m, nil
}

// Blocks returns the block names in declaration order.
func (m *Model) Blocks() []BlockName {
	out := make([]BlockName, len(m.blocks))
	copy(out, m.blocks)
	return out
}

// AttributeNames returns the attribute names of one block in declaration
// order, or nil for an unknown block.
func (m *Model) AttributeNames(blk BlockName) []string {
	attrs, ok := m.attrsByBlk[blk]
	if !ok {
		return nil
	}
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.Name
	}
	return out
}

// Attribute looks up an attribute by name across all blocks.
func (m *Model) Attribute(name string) (Attribute, bool) {
	a, ok := m.attrs[name]
	return a, ok
}

// BlockOf reports which block declares the named attribute.
func (m *Model) BlockOf(name string) (BlockName, bool) {
	blk, ok := m.attrBlock[name]
	return blk, ok
}

// Formula returns the formula of a calculated attribute. Asking for an
// unknown attribute, or for one that is not calculated, is a *ConfigError.
func (m *Model) Formula(blk BlockName, name string) (Formula, error) {
	owner, ok := m.attrBlock[name]
	if !ok || owner != blk {
		return nil, &ConfigError{Block: blk, Attr: name, Reason: "no such attribute"}
	}
	a := m.attrs[name]
	if a.Kind != KindCalculated || a.Formula == nil {
		return nil, &ConfigError{Block: blk, Attr: name, Reason: "attribute has no formula"}
	}
	return a.Formula, nil
}

// Calculated returns the recompute registry: every calculated attribute in
// declaration order across blocks. The solver walks this slice on every pass,
// so the order here is what makes runs reproducible.
func (m *Model) Calculated() []Attribute {
	out := make([]Attribute, len(m.calculated))
	copy(out, m.calculated)
	return out
}

// Inputs returns every input attribute in declaration order across blocks.
func (m *Model) Inputs() []Attribute {
	var out []Attribute
	for _, blk := range m.blocks {
		for _, a := range m.attrsByBlk[blk] {
			if a.Kind == KindInput {
				out = append(out, a)
			}
		}
	}
	return out
}

// NewBaselineContext creates a fresh context with an entry for every
// declared attribute: inputs at their baseline, calculated attributes at
// zero. Every run starts from a context produced here.
func (m *Model) NewBaselineContext() Context {
	ctx := make(Context, len(m.attrs))
	for name, a := range m.attrs {
		if a.Kind == KindInput {
			ctx[name] = a.Baseline
		} else {
			ctx[name] = 0
		}
	}
	return ctx
}
