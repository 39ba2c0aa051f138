package optimize

import (
	"fmt"

	"fictc/internal/ir"
)

// PhiEliminationPass lowers remaining phi nodes into predecessor-appended
// parallel copies, the standard out-of-SSA translation: each predecessor
// gets an assignment of its phi source to the phi's target, with the
// parallel-copy set serialized (acyclic copies first, cycles broken by one
// temporary) so a copy never clobbers a value another copy in the same set
// still needs to read.
type PhiEliminationPass struct{}

func (p *PhiEliminationPass) Name() string { return "phi-elimination" }
func (p *PhiEliminationPass) Description() string {
	return "replaces phi nodes with predecessor-appended parallel copy sequences"
}

func (p *PhiEliminationPass) Apply(ctx *Context) bool {
	fn := ctx.Fn
	byID := make(map[int]*ir.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		byID[b.ID] = b
	}

	// predCopies[predBlockID] accumulates the (target, source) pairs that
	// must be appended to predBlockID's instruction stream, one set per
	// successor phi block, kept separate so each successor's copies
	// serialize independently (a predecessor with two phi-bearing
	// successors cannot happen for an if/else join but can for a switch).
	predCopies := make(map[int][]copyPair)
	changed := false

	for _, blk := range fn.Blocks {
		var phis []*ir.Phi
		var rest []ir.Instruction
		for _, inst := range blk.Instructions {
			if phi, ok := inst.(*ir.Phi); ok {
				phis = append(phis, phi)
			} else {
				rest = append(rest, inst)
			}
		}
		if len(phis) == 0 {
			continue
		}
		changed = true
		blk.Instructions = rest

		byPred := make(map[int][]copyPair)
		for _, phi := range phis {
			for _, src := range phi.Sources {
				byPred[src.Pred] = append(byPred[src.Pred], copyPair{dst: phi.Target, src: src.Name})
			}
		}
		for pred, pairs := range byPred {
			predCopies[pred] = append(predCopies[pred], serializeCopies(pairs, fn)...)
		}
	}

	for predID, pairs := range predCopies {
		blk, ok := byID[predID]
		if !ok {
			continue
		}
		insertBeforeTerminator(blk, pairs)
	}

	return changed
}

type copyPair struct {
	dst string
	src string
}

// serializeCopies orders a parallel-copy set so no copy overwrites a
// source another pending copy still needs, introducing one temporary per
// cycle it finds (classic Briggs-Torczon-style sequentialization, sized
// down for the small sets phi elimination ever produces).
func serializeCopies(pairs []copyPair, fn *ir.Function) []copyPair {
	pending := make([]copyPair, len(pairs))
	copy(pending, pairs)

	srcOf := make(map[string]string, len(pending))
	for _, p := range pending {
		srcOf[p.dst] = p.src
	}
	isDst := make(map[string]bool, len(pending))
	for _, p := range pending {
		isDst[p.dst] = true
	}

	var out []copyPair
	ready := func(i int) bool {
		// pending[i] overwrites its destination, so it is only safe to emit
		// once no other remaining pending copy still reads that destination.
		for j, q := range pending {
			if j != i && q.src == pending[i].dst {
				return false
			}
		}
		return true
	}

	guard := 0
	for len(pending) > 0 {
		guard++
		if guard > len(pairs)*len(pairs)+8 {
			break // defensive bound; a well-formed phi set never reaches this
		}
		progressed := false
		for i := 0; i < len(pending); i++ {
			if ready(i) {
				out = append(out, pending[i])
				pending = append(pending[:i], pending[i+1:]...)
				progressed = true
				break
			}
		}
		if progressed {
			continue
		}
		// Every remaining pair is part of a cycle: break it with one temp.
		victim := pending[0]
		temp := fmt.Sprintf("__phitmp%d", len(out))
		out = append(out, copyPair{dst: temp, src: victim.src})
		for i := range pending {
			if pending[i].src == victim.src {
				pending[i].src = temp
			}
		}
	}
	return out
}

func insertBeforeTerminator(blk *ir.BasicBlock, pairs []copyPair) {
	for _, p := range pairs {
		blk.Instructions = append(blk.Instructions, &ir.Assign{
			Target: p.dst,
			Value:  &ir.Identifier{Name: p.src},
		})
	}
}
