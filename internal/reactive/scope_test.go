package reactive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/directives"
	"fictc/internal/ir"
)

func numberLit(raw string) *ir.Literal { return &ir.Literal{LitKind: ir.LitNumber, Raw: raw} }

func assign(target string, value ir.Expr) *ir.Assign {
	return &ir.Assign{Target: target, DeclarationKind: ir.DeclConst, Value: value}
}

// A value derived from a parameter and returned directly is kept (it has
// an external effect via escaping through return) and its dependency on
// the ungoverned parameter name is recorded, even though no scope exists
// for that name.
func TestAnalyzeKeepsEscapingDerivedScopeAndRecordsDeps(t *testing.T) {
	fn := &ir.Function{
		Name:   "f",
		Params: []ir.Param{{Name: "x"}},
		Blocks: []*ir.BasicBlock{
			{
				ID: 0,
				Instructions: []ir.Instruction{
					assign("derived", &ir.Binary{Op: "+", Left: &ir.Identifier{Name: "x"}, Right: numberLit("1")}),
				},
				Terminator: &ir.Return{Value: &ir.Identifier{Name: "derived"}},
			},
		},
	}

	analysis, err := Analyze(fn, nil)
	require.NoError(t, err)
	require.Len(t, analysis.Scopes, 1)

	s := analysis.Scopes[0]
	require.Equal(t, []string{"derived"}, s.Bases)
	require.True(t, s.HasExternalEffect)
	require.True(t, s.Deps["x"])
	require.True(t, analysis.EscapingVar["derived"])
	require.Same(t, s, analysis.ScopeOf["derived"])
}

// A binding with no dependents, no external effect, and no memoization
// reason is pruned from the final scope list; a sibling binding that
// escapes through return is kept. Both are declared in the same block, so
// this also exercises mergeOverlapping's negative path: sharing a block
// alone, with no dependency or write/read conflict between them, must not
// merge the two into one scope.
func TestAnalyzePrunesUnreferencedPureBinding(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{
				ID: 0,
				Instructions: []ir.Instruction{
					assign("unused", numberLit("1")),
					assign("kept", numberLit("2")),
				},
				Terminator: &ir.Return{Value: &ir.Identifier{Name: "kept"}},
			},
		},
	}

	analysis, err := Analyze(fn, nil)
	require.NoError(t, err)
	require.Len(t, analysis.Scopes, 1)
	require.Equal(t, []string{"kept"}, analysis.Scopes[0].Bases)
}

// Property #5: two single-assignment bindings in separate blocks, each
// reading the other, form a dependency cycle that mergeOverlapping cannot
// fold away (they share no block, so the merge's sharesBlock precondition
// never fires) and checkCycles must reject with CYCLE_ERROR rather than
// looping forever or silently picking an arbitrary order.
func TestAnalyzeDetectsDependencyCycleAcrossBlocks(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{
				ID: 0,
				Instructions: []ir.Instruction{
					assign("a", &ir.Binary{Op: "+", Left: &ir.Identifier{Name: "b"}, Right: numberLit("1")}),
				},
				Terminator: &ir.Jump{Target: 1},
			},
			{
				ID: 1,
				Instructions: []ir.Instruction{
					assign("b", &ir.Binary{Op: "+", Left: &ir.Identifier{Name: "a"}, Right: numberLit("1")}),
				},
				Terminator: &ir.Return{},
			},
		},
	}

	_, err := Analyze(fn, nil)
	require.Error(t, err)
	var ce *directives.CompilerError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, directives.CycleError, ce.Kind)
}

// A scope spanning more than one block is memoized regardless of whether
// it has any dependency at all (markMemoize's span-based rule), and a
// single-block scope whose sole dependency is itself undeclared anywhere
// is not memoized purely for lacking a resolvable dependency scope.
func TestMarkMemoizeFlagsMultiBlockSpanRegardlessOfDeps(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{ID: 0, Instructions: []ir.Instruction{assign("total", numberLit("0"))}, Terminator: &ir.Jump{Target: 1}},
			{
				ID:         1,
				Instructions: []ir.Instruction{&ir.Phi{Target: "total", Sources: []ir.PhiSource{{Pred: 0, Name: "total"}}}},
				Terminator: &ir.Return{Value: &ir.Identifier{Name: "total"}},
			},
		},
	}

	analysis, err := Analyze(fn, nil)
	require.NoError(t, err)
	require.Len(t, analysis.Scopes, 1)
	require.True(t, analysis.Scopes[0].ShouldMemoize, "a scope spanning two blocks memoizes regardless of its dependency set")
}
