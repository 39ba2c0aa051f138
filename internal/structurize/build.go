package structurize

import (
	"fmt"

	"fictc/internal/cfg"
	"fictc/internal/directives"
	"fictc/internal/ir"
)

// sentinel error that triggers the whole-function state-machine fallback;
// never returned to callers of Structurize.
type irreducibleSignal struct{ reason string }

func (e *irreducibleSignal) Error() string { return e.reason }

// sentinel error for a terminator target that doesn't resolve to a known
// block; this is a malformed-input fault, not an irreducibility the
// state-machine fallback can paper over, so it surfaces as a fatal
// STRUCTURIZE_ERROR instead.
type missingTargetSignal struct{ reason string }

func (e *missingTargetSignal) Error() string { return e.reason }

type builder struct {
	fn     *ir.Function
	g      *cfg.Graph
	blocks map[int]*ir.BasicBlock
	labels map[int]string
}

// Structurize recovers a structured tree for fn using its CFG analysis
// bundle. Terminator-target validity is assumed (a precondition checked
// upstream by ir.Validate / cfg.Analyze); a missing target encountered
// mid-walk fails with STRUCTURIZE_ERROR. An irreducible region (a loop or
// branch shape this recovery does not recognize) degrades gracefully to
// a whole-function stateMachine node rather than failing the build.
func Structurize(fn *ir.Function, g *cfg.Graph) (root *Node, warning string, err error) {
	b := &builder{fn: fn, g: g, blocks: make(map[int]*ir.BasicBlock), labels: make(map[int]string)}
	for _, blk := range fn.Blocks {
		b.blocks[blk.ID] = blk
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch sig := r.(type) {
		case *irreducibleSignal:
			root = b.stateMachine()
			warning = directives.Warning(fmt.Sprintf("irreducible control flow in %q (%s); emitting state machine", fn.Name, sig.reason))
			err = nil
		case *missingTargetSignal:
			root, warning = nil, ""
			err = directives.Newf(directives.StructurizeError, "%s", sig.reason)
		default:
			panic(r)
		}
	}()

	seq, _ := b.sequence(g.Entry, -1)
	return seq, "", nil
}

func (b *builder) bail(reason string) {
	panic(&irreducibleSignal{reason: reason})
}

func (b *builder) bailMissing(reason string) {
	panic(&missingTargetSignal{reason: reason})
}

// sequence walks forward from start, stopping at limit or at the first
// re-merge point (a block with more than one predecessor, reached other
// than as the call's own start block). It returns the node and the block
// id execution falls out to (-1 if the sequence ended in a terminal
// instruction: return/throw/break/continue/unreachable).
func (b *builder) sequence(start, limit int) (*Node, int) {
	return b.sequenceFrom(start, limit, false)
}

// sequenceFrom is sequence's real implementation. skipOwnLoopHeader
// suppresses the do-while re-detection exactly when the caller (a
// buildDoWhile body-walk) has already committed to treating start as a
// plain block, preventing it from re-entering do-while detection on its
// own header and recursing forever.
func (b *builder) sequenceFrom(start, limit int, skipOwnLoopHeader bool) (*Node, int) {
	seq := &Node{Kind: KindSequence}
	cur := start
	first := true

	for {
		if cur == limit {
			return seq, cur
		}
		if !first {
			if preds := b.g.Preds[cur]; len(preds) > 1 {
				return seq, cur
			}
		}
		isStart := first
		first = false

		blk, ok := b.blocks[cur]
		if !ok {
			b.bailMissing(fmt.Sprintf("terminator target %d does not resolve to a block", cur))
		}

		if b.g.LoopHeaders[cur] && !(isStart && skipOwnLoopHeader) {
			if _, isBranch := blk.Terminator.(*ir.Branch); !isBranch {
				if testID, ok := b.findBackEdgeSource(cur); ok {
					node := b.buildDoWhile(cur, testID)
					seq.Children = append(seq.Children, node)
					next := b.doWhileExit(testID, cur)
					if next == -1 {
						return seq, -1
					}
					cur = next
					continue
				}
			}
		}

		for _, inst := range blk.Instructions {
			seq.Children = append(seq.Children, &Node{Kind: KindInstruction, BlockID: cur, Inst: inst})
		}

		switch term := blk.Terminator.(type) {
		case *ir.Jump:
			cur = term.Target
			continue
		case *ir.Return:
			seq.Children = append(seq.Children, &Node{Kind: KindReturn, Test: term.Value})
			return seq, -1
		case *ir.Throw:
			seq.Children = append(seq.Children, &Node{Kind: KindThrow, Test: term.Value})
			return seq, -1
		case *ir.Break:
			seq.Children = append(seq.Children, &Node{Kind: KindBreak, Target: b.labelFor(term.Target, term.Label)})
			return seq, -1
		case *ir.Continue:
			seq.Children = append(seq.Children, &Node{Kind: KindContinue, Target: b.labelFor(term.Target, term.Label)})
			return seq, -1
		case *ir.Unreachable:
			return seq, -1
		case *ir.Branch:
			node, next := b.buildBranch(cur, term)
			seq.Children = append(seq.Children, node)
			if next == -1 {
				return seq, -1
			}
			cur = next
			continue
		case *ir.Switch:
			node, next := b.buildSwitch(term)
			seq.Children = append(seq.Children, node)
			if next == -1 {
				return seq, -1
			}
			cur = next
			continue
		case *ir.Try:
			node := b.buildTry(term)
			seq.Children = append(seq.Children, node)
			cur = term.Exit
			continue
		case *ir.ForOf:
			node := b.buildForOf(cur, term)
			seq.Children = append(seq.Children, node)
			cur = term.Exit
			continue
		case *ir.ForIn:
			node := b.buildForIn(cur, term)
			seq.Children = append(seq.Children, node)
			cur = term.Exit
			continue
		default:
			b.bail(fmt.Sprintf("unrecognized terminator %T at block %d", term, cur))
		}
	}
}

func (b *builder) labelFor(target int, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if l, ok := b.labels[target]; ok {
		return l
	}
	l := fmt.Sprintf("L%d", target)
	b.labels[target] = l
	return l
}

func (b *builder) buildBranch(headerID int, term *ir.Branch) (*Node, int) {
	if b.g.LoopHeaders[headerID] {
		return b.buildWhile(headerID, term)
	}

	consSeq, consNext := b.sequence(term.Cons, -1)

	if term.Alt == consNext {
		return &Node{Kind: KindIf, Test: term.Test, Cons: consSeq}, consNext
	}

	altSeq, altNext := b.sequence(term.Alt, -1)
	join := consNext
	if join == -1 {
		join = altNext
	}
	return &Node{Kind: KindIf, Test: term.Test, Cons: consSeq, Alt: altSeq}, join
}

func (b *builder) buildWhile(headerID int, term *ir.Branch) (*Node, int) {
	bodySeq, _ := b.sequence(term.Cons, headerID)
	node := &Node{Kind: KindWhile, Test: term.Test, Body: bodySeq, Label: b.labelFor(headerID, "")}
	return node, term.Alt
}

// findBackEdgeSource locates the block whose terminator has a back edge
// into headerID, used when a loop header's own terminator is not a
// Branch (the loop condition lives in a later block, i.e. do-while).
func (b *builder) findBackEdgeSource(headerID int) (int, bool) {
	for _, e := range b.g.BackEdges {
		if e[1] == headerID {
			return e[0], true
		}
	}
	return 0, false
}

// buildDoWhile structures a do-while whose condition block testID has a
// back edge into the loop header bodyID.
func (b *builder) buildDoWhile(bodyID, testID int) *Node {
	bodySeq, _ := b.sequenceFrom(bodyID, testID, true)
	testBlk := b.blocks[testID]
	testTerm, ok := testBlk.Terminator.(*ir.Branch)
	if !ok {
		b.bail(fmt.Sprintf("do-while condition block %d has no branch terminator", testID))
	}
	return &Node{Kind: KindDoWhile, Test: testTerm.Test, Body: bodySeq, Label: b.labelFor(bodyID, "")}
}

// doWhileExit returns the block execution falls to once the do-while
// loop's condition test (at testID, looping back to bodyID) is false.
func (b *builder) doWhileExit(testID, bodyID int) int {
	testTerm := b.blocks[testID].Terminator.(*ir.Branch)
	if testTerm.Cons == bodyID {
		return testTerm.Alt
	}
	return testTerm.Cons
}

func (b *builder) buildSwitch(term *ir.Switch) (*Node, int) {
	node := &Node{Kind: KindSwitch, Disc: term.Disc}
	next := -1
	for _, c := range term.Cases {
		caseSeq, caseNext := b.sequence(c.Target, -1)
		node.Cases = append(node.Cases, SwitchCase{Test: c.Test, Body: caseSeq})
		if next == -1 {
			next = caseNext
		}
	}
	return node, next
}

func (b *builder) buildTry(term *ir.Try) *Node {
	node := &Node{Kind: KindTry, CatchParam: term.CatchParam}
	node.Body, _ = b.sequence(term.TryBlock, term.Exit)
	if term.CatchBlock >= 0 {
		node.Catch, _ = b.sequence(term.CatchBlock, term.Exit)
	}
	if term.FinallyBlock >= 0 {
		node.Finally, _ = b.sequence(term.FinallyBlock, term.Exit)
	}
	return node
}

func (b *builder) buildForOf(headerID int, term *ir.ForOf) *Node {
	bodySeq, _ := b.sequence(term.Body, headerID)
	return &Node{
		Kind: KindForOf, Test: term.Iter, Body: bodySeq,
		LoopVar: term.Var, VarKind: term.VarKind, Label: b.labelFor(headerID, ""),
	}
}

func (b *builder) buildForIn(headerID int, term *ir.ForIn) *Node {
	bodySeq, _ := b.sequence(term.Body, headerID)
	return &Node{
		Kind: KindForIn, Test: term.Obj, Body: bodySeq,
		LoopVar: term.Var, VarKind: term.VarKind, Label: b.labelFor(headerID, ""),
	}
}

// stateMachine builds the irreducible-CFG fallback: every block becomes
// one dispatch arm of a labeled `while(true) switch(state){...}` loop,
// jumps become state assignments plus `continue`, and terminal blocks
// keep their original terminal node.
func (b *builder) stateMachine() *Node {
	node := &Node{Kind: KindStateMachine, StateVar: "__state", Label: "state_loop"}
	for _, blk := range b.fn.Blocks {
		body := &Node{Kind: KindSequence}
		for _, inst := range blk.Instructions {
			body.Children = append(body.Children, &Node{Kind: KindInstruction, BlockID: blk.ID, Inst: inst})
		}
		body.Children = append(body.Children, b.stateMachineTerminator(blk.Terminator))
		node.States = append(node.States, StateCase{State: blk.ID, Body: body})
	}
	return node
}

func (b *builder) stateMachineTerminator(term ir.Terminator) *Node {
	switch t := term.(type) {
	case *ir.Return:
		return &Node{Kind: KindReturn, Test: t.Value}
	case *ir.Throw:
		return &Node{Kind: KindThrow, Test: t.Value}
	case *ir.Unreachable:
		return &Node{Kind: KindBreak, Target: "state_loop"}
	default:
		targets := term.Targets()
		if len(targets) == 0 {
			return &Node{Kind: KindBreak, Target: "state_loop"}
		}
		// Multi-target terminators inside an irreducible region keep
		// their raw form; codegen lowers each target to an explicit
		// `__state = N; continue state_loop` assignment itself.
		return &Node{Kind: KindRawTerminator, RawTerm: term}
	}
}
