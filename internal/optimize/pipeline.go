// Package optimize applies the fixed-order reactive-aware optimization
// passes to a validated, SSA-form function: purity inference, constant
// propagation, algebraic simplification, common subexpression
// elimination, single-use inlining, reactive-graph dead code elimination,
// and phi elimination.
package optimize

import (
	"fictc/internal/cfg"
	"fictc/internal/ir"
	"fictc/internal/reactive"
	"fictc/internal/shape"
)

// Options gates the subset of passes whose aggressiveness is
// configurable; internal/config decodes the on-disk equivalent and the
// pipeline orchestrator copies it in here.
type Options struct {
	CrossBlockConstProp bool
	MemoMacros          map[string]bool
}

// DefaultOptions returns the conservative defaults used when no
// configuration file is present.
func DefaultOptions() Options {
	return Options{
		CrossBlockConstProp: true,
		MemoMacros:          map[string]bool{"useMemo": true, "memo": true},
	}
}

// Context bundles a function with the analyses its optimizer passes
// read from, so a pass can consult reactive/shape information without
// every pass recomputing it.
type Context struct {
	Fn       *ir.Function
	Graph    *cfg.Graph
	Reactive *reactive.Analysis
	Shapes   *shape.Analysis
	Names    *ir.NameTable
	Opts     Options

	// Purity is populated by the purity-context pass and consulted by
	// every later pass.
	Purity map[string]bool // base name -> pure
}

// Pass is one optimization transformation in the fixed pipeline order.
type Pass interface {
	Name() string
	Description() string
	Apply(ctx *Context) bool
}

// Pipeline runs passes in a fixed order, exactly once each, per the
// reactive-aware optimizer's contract (no cross-pass fixpoint loop; each
// pass internally fixpoints where the spec calls for it).
type Pipeline struct {
	passes []Pass
}

// NewDefaultPipeline builds the seven-pass pipeline in its mandated
// order: purity, constant propagation, algebraic simplification, CSE,
// single-use inlining, reactive DCE, phi elimination.
func NewDefaultPipeline() *Pipeline {
	p := &Pipeline{}
	p.AddPass(&PurityPass{})
	p.AddPass(&ConstantPropagationPass{})
	p.AddPass(&AlgebraicSimplificationPass{})
	p.AddPass(&CSEPass{})
	p.AddPass(&InliningPass{})
	p.AddPass(&ReactiveDCEPass{})
	p.AddPass(&PhiEliminationPass{})
	return p
}

func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Run executes every pass once, in order, returning the names of passes
// that reported a change (for the caller's structured logging).
func (p *Pipeline) Run(ctx *Context) []string {
	var applied []string
	for _, pass := range p.passes {
		if pass.Apply(ctx) {
			applied = append(applied, pass.Name())
		}
	}
	return applied
}
