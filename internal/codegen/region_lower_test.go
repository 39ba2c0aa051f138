package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/ir"
	"fictc/internal/region"
	"fictc/internal/structurize"
)

// S4 — conditional lazy memo (spec scenario): a region with
// `const a=x+1; const b=y*2; const r = cond ? a : b;` where a is read
// only by the selector's cons arm and b only by its alt arm. The region
// must lower to `const __cond = ...; if(__cond){...; return {a,
// b:null}} else {...; return {a:null, b}}` rather than the general
// memo-returns-every-declaration shape, since neither branch's
// derivation should run on the path that never reads it.
func TestTryLowerLazyConditionalRegion(t *testing.T) {
	l := &lowerer{
		opts:    Options{Scope: ScopeModule},
		tracked: map[string]trackedKind{"x": trackedSignal, "y": trackedSignal, "cond": trackedSignal},
		helpers: newHelperSet(),
	}

	r := &region.Region{ID: 7, Declarations: []string{"a", "b"}, ShouldMemoize: true}

	insts := []*structurize.Node{
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "a", DeclarationKind: ir.DeclConst,
			Value: &ir.Binary{Op: "+", Left: &ir.Identifier{Name: "x"}, Right: &ir.Literal{LitKind: ir.LitNumber, Raw: "1"}},
		}},
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "b", DeclarationKind: ir.DeclConst,
			Value: &ir.Binary{Op: "*", Left: &ir.Identifier{Name: "y"}, Right: &ir.Literal{LitKind: ir.LitNumber, Raw: "2"}},
		}},
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "r", DeclarationKind: ir.DeclConst,
			Value: &ir.Conditional{
				Test: &ir.Identifier{Name: "cond"},
				Cons: &ir.Identifier{Name: "a"},
				Alt:  &ir.Identifier{Name: "b"},
			},
		}},
	}

	out := ast.PrintStatements(l.lowerRegionGroup(r, insts))

	require.Contains(t, out, "const __cond = cond()")
	require.Contains(t, out, "if (__cond)")
	require.Contains(t, out, "return { a, b: null }")
	require.Contains(t, out, "return { a: null, b }")
	require.Contains(t, out, "const a = (x() + 1)")
	require.Contains(t, out, "const b = (y() * 2)")
}

// When a region's declared bases aren't selected between by a ternary at
// all, lowering falls back to the general shape: every declaration comes
// back in one object, unconditionally.
func TestLowerRegionGroupFallsBackWithoutConditionalSelector(t *testing.T) {
	l := &lowerer{
		opts:    Options{Scope: ScopeModule},
		tracked: map[string]trackedKind{"x": trackedSignal},
		helpers: newHelperSet(),
	}

	r := &region.Region{ID: 3, Declarations: []string{"a"}, ShouldMemoize: true}
	insts := []*structurize.Node{
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "a", DeclarationKind: ir.DeclConst,
			Value: &ir.Binary{Op: "+", Left: &ir.Identifier{Name: "x"}, Right: &ir.Literal{LitKind: ir.LitNumber, Raw: "1"}},
		}},
	}

	out := ast.PrintStatements(l.lowerRegionGroup(r, insts))

	require.NotContains(t, out, "__cond")
	require.Contains(t, out, "memo(")
	require.Contains(t, out, "return { a }")
}

// A branch-exclusive pair one of whose branch names is read a second time
// outside the ternary can't defer either branch's computation (the
// second read needs a value regardless of which branch the selector
// test takes), so this must fall back to the general shape too.
func TestTryLowerLazyConditionalRegionRejectsExtraReads(t *testing.T) {
	l := &lowerer{
		opts:    Options{Scope: ScopeModule},
		tracked: map[string]trackedKind{"x": trackedSignal, "y": trackedSignal, "cond": trackedSignal},
		helpers: newHelperSet(),
	}

	r := &region.Region{ID: 9, Declarations: []string{"a", "b"}, ShouldMemoize: true}
	insts := []*structurize.Node{
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "a", DeclarationKind: ir.DeclConst,
			Value: &ir.Binary{Op: "+", Left: &ir.Identifier{Name: "x"}, Right: &ir.Literal{LitKind: ir.LitNumber, Raw: "1"}},
		}},
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "b", DeclarationKind: ir.DeclConst,
			Value: &ir.Binary{Op: "*", Left: &ir.Identifier{Name: "y"}, Right: &ir.Literal{LitKind: ir.LitNumber, Raw: "2"}},
		}},
		{Kind: structurize.KindInstruction, Inst: &ir.Expression{
			Value: &ir.Identifier{Name: "a"},
		}},
		{Kind: structurize.KindInstruction, Inst: &ir.Assign{
			Target: "r", DeclarationKind: ir.DeclConst,
			Value: &ir.Conditional{
				Test: &ir.Identifier{Name: "cond"},
				Cons: &ir.Identifier{Name: "a"},
				Alt:  &ir.Identifier{Name: "b"},
			},
		}},
	}

	out := ast.PrintStatements(l.lowerRegionGroup(r, insts))

	require.NotContains(t, out, "__cond")
	require.Contains(t, out, "return { a, b }")
}
