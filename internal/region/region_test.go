package region

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"fictc/internal/ir"
	"fictc/internal/reactive"
)

// regionShape is the subset of Region worth structurally diffing in a
// test: the tree's ID/containment shape, not the map-valued bookkeeping
// fields (Blocks, and Scope's own internals) that Build only threads
// through unchanged.
type regionShape struct {
	ID           int
	Declarations []string
	ShouldMemoize bool
	ParentID     int
	ChildIDs     []int
}

func shapeOf(r *Region) regionShape {
	parentID := -1
	if r.Parent != nil {
		parentID = r.Parent.ID
	}
	var childIDs []int
	for _, c := range r.Children {
		childIDs = append(childIDs, c.ID)
	}
	return regionShape{
		ID: r.ID, Declarations: r.Declarations, ShouldMemoize: r.ShouldMemoize,
		ParentID: parentID, ChildIDs: childIDs,
	}
}

func shapesOf(tree *Tree) []regionShape {
	out := make([]regionShape, len(tree.All))
	for i, r := range tree.All {
		out[i] = shapeOf(r)
	}
	return out
}

// Two disjoint-block scopes become siblings directly under the
// function-wide root region; neither encloses the other, so smallestEnclosing
// has nowhere narrower than root to place either.
func TestBuildPlacesDisjointScopesAsRootSiblings(t *testing.T) {
	fn := &ir.Function{Blocks: []*ir.BasicBlock{{ID: 0}, {ID: 1}}}
	scopeA := &reactive.Scope{ID: 1, Bases: []string{"a"}, Blocks: map[int]bool{0: true}, Declarations: map[string]bool{"a": true}, ShouldMemoize: true}
	scopeB := &reactive.Scope{ID: 2, Bases: []string{"b"}, Blocks: map[int]bool{1: true}, Declarations: map[string]bool{"b": true}, ShouldMemoize: true}

	tree := Build(fn, &reactive.Analysis{Scopes: []*reactive.Scope{scopeA, scopeB}}, nil)

	want := []regionShape{
		{ID: 0, ParentID: -1, ChildIDs: []int{1, 2}},
		{ID: 1, Declarations: []string{"a"}, ShouldMemoize: true, ParentID: 0},
		{ID: 2, Declarations: []string{"b"}, ShouldMemoize: true, ParentID: 0},
	}
	if diff := cmp.Diff(want, shapesOf(tree), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("region tree shape mismatch (-want +got):\n%s", diff)
	}
}

// A scope whose block set is a proper subset of another scope's nests
// under it: smallestEnclosing must pick the narrower superset, not root,
// once a real ancestor candidate exists.
func TestBuildNestsScopeUnderSmallestEnclosingSuperset(t *testing.T) {
	fn := &ir.Function{Blocks: []*ir.BasicBlock{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}}}
	outer := &reactive.Scope{ID: 1, Bases: []string{"outer"}, Blocks: map[int]bool{0: true, 1: true, 2: true}, Declarations: map[string]bool{"outer": true}}
	inner := &reactive.Scope{ID: 2, Bases: []string{"inner"}, Blocks: map[int]bool{1: true}, Declarations: map[string]bool{"inner": true}}

	tree := Build(fn, &reactive.Analysis{Scopes: []*reactive.Scope{outer, inner}}, nil)

	require.Len(t, tree.All, 3)
	var outerRegion, innerRegion *Region
	for _, r := range tree.All {
		switch {
		case len(r.Declarations) == 1 && r.Declarations[0] == "outer":
			outerRegion = r
		case len(r.Declarations) == 1 && r.Declarations[0] == "inner":
			innerRegion = r
		}
	}
	require.NotNil(t, outerRegion)
	require.NotNil(t, innerRegion)
	require.Same(t, outerRegion, innerRegion.Parent)
	require.Same(t, tree.Root, outerRegion.Parent)
	require.True(t, outerRegion.HasControlFlow, "a 3-block scope has control flow")
}

// A scope whose only instruction is a JSX-valued assignment is flagged
// HasJSX; one with no JSX anywhere in its blocks is not.
func TestBuildFlagsHasJSXFromScopeInstructions(t *testing.T) {
	jsxBlock := &ir.BasicBlock{ID: 0, Instructions: []ir.Instruction{
		&ir.Assign{Target: "view", DeclarationKind: ir.DeclConst, Value: &ir.JSXElement{Tag: "div"}},
	}}
	plainBlock := &ir.BasicBlock{ID: 1, Instructions: []ir.Instruction{
		&ir.Assign{Target: "n", DeclarationKind: ir.DeclConst, Value: &ir.Literal{LitKind: ir.LitNumber, Raw: "1"}},
	}}
	fn := &ir.Function{Blocks: []*ir.BasicBlock{jsxBlock, plainBlock}}

	jsxScope := &reactive.Scope{ID: 1, Bases: []string{"view"}, Blocks: map[int]bool{0: true}, Declarations: map[string]bool{"view": true}}
	plainScope := &reactive.Scope{ID: 2, Bases: []string{"n"}, Blocks: map[int]bool{1: true}, Declarations: map[string]bool{"n": true}}

	tree := Build(fn, &reactive.Analysis{Scopes: []*reactive.Scope{jsxScope, plainScope}}, nil)

	for _, r := range tree.All {
		if r == tree.Root {
			continue
		}
		if r.Declarations[0] == "view" {
			require.True(t, r.HasJSX)
		} else {
			require.False(t, r.HasJSX)
		}
	}
}
