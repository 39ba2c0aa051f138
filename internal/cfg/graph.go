// Package cfg computes control-flow structure (predecessors, dominators,
// loop headers) for an internal/ir function and converts it to SSA form by
// inserting minimal phi nodes at dominance-frontier joins and renaming
// variable versions along a dominator-tree walk.
package cfg

import (
	"sort"

	"fictc/internal/directives"
	"fictc/internal/ir"
)

// Graph is the CFG analysis bundle for one function: predecessor/successor
// maps, a dominator tree, dominance frontiers, and the set of natural loop
// headers discovered via back edges found during depth-first traversal.
type Graph struct {
	Entry int
	Preds map[int][]int
	Succs map[int][]int

	// RPO lists block ids in reverse postorder from Entry; blocks
	// unreachable from Entry are appended after, in ascending id order.
	RPO []int

	IDom        map[int]int
	Children    map[int][]int
	DomFrontier map[int][]int

	LoopHeaders map[int]bool
	BackEdges   [][2]int // [from, to]
}

// Analyze derives the CFG bundle for fn. fn must already have passed
// ir.Validate; Analyze itself re-checks the precondition and fails with
// VALIDATION_ERROR if violated, since CFG construction is meaningless over
// a function with dangling terminator targets.
func Analyze(fn *ir.Function) (*Graph, error) {
	if err := ir.Validate(fn); err != nil {
		return nil, err
	}
	if len(fn.Blocks) == 0 {
		return nil, directives.Newf(directives.ValidationError, "function %q has no blocks", fn.Name)
	}

	g := &Graph{
		Entry:       fn.Blocks[0].ID,
		Preds:       make(map[int][]int),
		Succs:       make(map[int][]int),
		LoopHeaders: make(map[int]bool),
	}

	for _, blk := range fn.Blocks {
		g.Succs[blk.ID] = blk.Terminator.Targets()
	}
	for _, blk := range fn.Blocks {
		for _, succ := range g.Succs[blk.ID] {
			g.Preds[succ] = append(g.Preds[succ], blk.ID)
		}
	}
	for id := range g.Preds {
		sort.Ints(g.Preds[id])
	}

	g.computeRPOAndBackEdges(fn, g.Entry)
	g.computeDominators()
	g.computeDominanceFrontiers()

	return g, nil
}

// computeRPOAndBackEdges runs a DFS from entry, records reverse postorder,
// and classifies edges to an ancestor still on the DFS stack as back edges
// (their target is therefore a natural loop header).
func (g *Graph) computeRPOAndBackEdges(fn *ir.Function, entry int) {
	visited := make(map[int]bool)
	onStack := make(map[int]bool)
	var postorder []int

	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		onStack[id] = true
		for _, succ := range g.Succs[id] {
			if onStack[succ] {
				g.BackEdges = append(g.BackEdges, [2]int{id, succ})
				g.LoopHeaders[succ] = true
				continue
			}
			if !visited[succ] {
				visit(succ)
			}
		}
		onStack[id] = false
		postorder = append(postorder, id)
	}
	visit(entry)

	for i := len(postorder) - 1; i >= 0; i-- {
		g.RPO = append(g.RPO, postorder[i])
	}

	var unreached []int
	for _, blk := range fn.Blocks {
		if !visited[blk.ID] {
			unreached = append(unreached, blk.ID)
		}
	}
	sort.Ints(unreached)
	g.RPO = append(g.RPO, unreached...)
}

// computeDominators uses the iterative Cooper/Harvey/Kennedy algorithm,
// which converges to the same immediate-dominator tree as the classic
// Lengauer-Tarjan approach with a simpler fixed-point formulation suited to
// the function sizes the core compiles (rarely more than a few hundred
// blocks).
func (g *Graph) computeDominators() {
	rpoIndex := make(map[int]int, len(g.RPO))
	for i, id := range g.RPO {
		rpoIndex[id] = i
	}

	idom := make(map[int]int)
	idom[g.Entry] = g.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range g.RPO {
			if b == g.Entry {
				continue
			}
			var newIdom int
			set := false
			for _, p := range g.Preds[b] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !set {
					newIdom = p
					set = true
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if !set {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	g.IDom = idom
	g.Children = make(map[int][]int)
	for b, d := range idom {
		if b == g.Entry {
			continue
		}
		g.Children[d] = append(g.Children[d], b)
	}
	for d := range g.Children {
		sort.Ints(g.Children[d])
	}
}

func intersect(idom map[int]int, rpoIndex map[int]int, a, b int) int {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// computeDominanceFrontiers follows Cytron et al.: for each block b with
// at least two predecessors, walk up the dominator tree from each
// predecessor until reaching b's immediate dominator, adding b to the
// frontier of every block visited along the way.
func (g *Graph) computeDominanceFrontiers() {
	g.DomFrontier = make(map[int][]int)
	for b, preds := range g.Preds {
		if len(preds) < 2 {
			continue
		}
		if _, ok := g.IDom[b]; !ok {
			continue // unreachable block
		}
		for _, p := range preds {
			if _, ok := g.IDom[p]; !ok {
				continue
			}
			runner := p
			for runner != g.IDom[b] {
				g.DomFrontier[runner] = appendUnique(g.DomFrontier[runner], b)
				runner = g.IDom[runner]
			}
		}
	}
}

func appendUnique(list []int, v int) []int {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Dominates reports whether a dominates b (inclusive: a dominates itself).
func (g *Graph) Dominates(a, b int) bool {
	for {
		if a == b {
			return true
		}
		if b == g.Entry {
			return a == g.Entry
		}
		parent, ok := g.IDom[b]
		if !ok || parent == b {
			return false
		}
		b = parent
	}
}
