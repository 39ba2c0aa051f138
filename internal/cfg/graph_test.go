package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/directives"
	"fictc/internal/ir"
)

func blk(id int, term ir.Terminator) *ir.BasicBlock {
	return &ir.BasicBlock{ID: id, Terminator: term}
}

// Diamond: 0 branches to 1 and 2, both join at 3. 3's dominance frontier
// is empty (it's dominated directly by 0); 1 and 2 each contribute 3 to
// their own frontier since neither dominates it alone.
func TestAnalyzeComputesDiamondDominatorsAndFrontiers(t *testing.T) {
	fn := &ir.Function{
		Name: "diamond",
		Blocks: []*ir.BasicBlock{
			blk(0, &ir.Branch{Cons: 1, Alt: 2}),
			blk(1, &ir.Jump{Target: 3}),
			blk(2, &ir.Jump{Target: 3}),
			blk(3, &ir.Return{}),
		},
	}

	g, err := Analyze(fn)
	require.NoError(t, err)

	require.Equal(t, 0, g.IDom[1])
	require.Equal(t, 0, g.IDom[2])
	require.Equal(t, 0, g.IDom[3], "3 is dominated by 0 directly, not by 1 or 2 alone")
	require.ElementsMatch(t, []int{3}, g.DomFrontier[1])
	require.ElementsMatch(t, []int{3}, g.DomFrontier[2])
	require.Empty(t, g.DomFrontier[3])
	require.Empty(t, g.LoopHeaders, "an acyclic diamond has no loop headers")
}

// A self-looping branch back to its own header is the minimal back edge:
// block 1 branches to itself (Cons) or exit (Alt), making 1 a loop header
// with a back edge (1,1).
func TestAnalyzeFindsBackEdgeAndLoopHeaderForWhileLoop(t *testing.T) {
	fn := &ir.Function{
		Name: "loop",
		Blocks: []*ir.BasicBlock{
			blk(0, &ir.Jump{Target: 1}),
			blk(1, &ir.Branch{Cons: 1, Alt: 2}),
			blk(2, &ir.Return{}),
		},
	}

	g, err := Analyze(fn)
	require.NoError(t, err)

	require.True(t, g.LoopHeaders[1])
	require.Contains(t, g.BackEdges, [2]int{1, 1})
	require.Equal(t, 0, g.IDom[1])
	require.Equal(t, 1, g.IDom[2])
}

// A block unreachable from entry still appears in RPO (property #1: every
// block id is accounted for exactly once), appended after the reachable
// prefix in ascending id order, and gets no dominator tree entry.
func TestAnalyzeAppendsUnreachableBlocksToRPOWithoutDominating(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			blk(0, &ir.Return{}),
			blk(1, &ir.Return{}), // unreachable from 0
		},
	}

	g, err := Analyze(fn)
	require.NoError(t, err)

	require.Equal(t, []int{0, 1}, g.RPO)
	_, hasIdom := g.IDom[1]
	require.False(t, hasIdom)
}

func TestAnalyzeRejectsDuplicateBlockIDs(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			blk(0, &ir.Return{}),
			blk(0, &ir.Return{}),
		},
	}

	_, err := Analyze(fn)
	require.Error(t, err)
	var ce *directives.CompilerError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, directives.ValidationError, ce.Kind)
}

func TestAnalyzeRejectsDanglingTerminatorTarget(t *testing.T) {
	fn := &ir.Function{
		Name:   "f",
		Blocks: []*ir.BasicBlock{blk(0, &ir.Jump{Target: 99})},
	}

	_, err := Analyze(fn)
	require.Error(t, err)
}

func TestAnalyzeRejectsEmptyFunction(t *testing.T) {
	_, err := Analyze(&ir.Function{Name: "empty"})
	require.Error(t, err)
}

// Dominates is reflexive and transitive through the idom chain: the
// entry block dominates everything reachable, and a block dominates
// itself even when nothing else does.
func TestDominatesIsReflexiveAndFollowsIdomChain(t *testing.T) {
	fn := &ir.Function{
		Name: "chain",
		Blocks: []*ir.BasicBlock{
			blk(0, &ir.Jump{Target: 1}),
			blk(1, &ir.Jump{Target: 2}),
			blk(2, &ir.Return{}),
		},
	}
	g, err := Analyze(fn)
	require.NoError(t, err)

	require.True(t, g.Dominates(0, 2))
	require.True(t, g.Dominates(1, 1))
	require.False(t, g.Dominates(2, 0))
}
