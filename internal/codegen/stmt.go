package codegen

import (
	"fmt"

	"fictc/internal/ast"
	"fictc/internal/ir"
	"fictc/internal/region"
	"fictc/internal/structurize"
)

func (l *lowerer) isTrackedCall(name string) bool {
	switch l.tracked[name] {
	case trackedSignal, trackedMemo, trackedDerived:
		return true
	default:
		return false
	}
}

// lowerSequenceChildren converts a flat child list (a structurize Sequence
// or a loop/try body) into target statements, grouping any contiguous run
// of KindInstruction children whose blocks belong to the same memoized,
// single-block region into one useMemo wrapper (rule 5).
func (l *lowerer) lowerSequenceChildren(children []*structurize.Node) []ast.Stmt {
	var out []ast.Stmt
	var pendingRegion *region.Region
	var pendingInsts []*structurize.Node

	flush := func() {
		if len(pendingInsts) == 0 {
			return
		}
		if pendingRegion != nil {
			out = append(out, l.lowerRegionGroup(pendingRegion, pendingInsts)...)
		} else {
			for _, n := range pendingInsts {
				out = append(out, l.lowerInstructionNode(n))
			}
		}
		pendingInsts = nil
		pendingRegion = nil
	}

	for _, child := range children {
		if child.Kind == structurize.KindInstruction {
			r := l.blockRegion[child.BlockID]
			groupable := r != nil && r.ShouldMemoize && !r.HasControlFlow
			if groupable {
				if pendingRegion != nil && pendingRegion.ID == r.ID {
					pendingInsts = append(pendingInsts, child)
					continue
				}
				flush()
				pendingRegion = r
				pendingInsts = []*structurize.Node{child}
				continue
			}
			flush()
			out = append(out, l.lowerInstructionNode(child))
			continue
		}
		flush()
		out = append(out, l.lowerNode(child))
	}
	flush()
	return out
}

func (l *lowerer) lowerInstructionNode(n *structurize.Node) ast.Stmt {
	return l.lowerInstruction(n.Inst, n.BlockID)
}

func (l *lowerer) lowerInstruction(inst ir.Instruction, blockID int) ast.Stmt {
	switch i := inst.(type) {
	case *ir.Assign:
		return l.lowerAssign(i)
	case *ir.Expression:
		return l.lowerExpressionStmt(i)
	default:
		return &ast.ExprStmt{}
	}
}

func (l *lowerer) lowerAssign(a *ir.Assign) ast.Stmt {
	if a.DeclarationKind == ir.DeclNone {
		// Route a reassignment through the same rule-2 rewrite an explicit
		// AssignmentExpression gets, so writing a tracked name here also
		// calls its setter instead of clobbering the getter binding.
		rewritten := l.lowerExpr(&ir.AssignmentExpression{Op: "=", Target: &ir.Identifier{Name: a.Target}, Value: a.Value})
		return &ast.ExprStmt{Expr: rewritten}
	}
	value := l.lowerRuneInitOrExpr(a.Value)
	kind := declKind(a.DeclarationKind)
	return &ast.VarDecl{Kind: kind, Declarators: []ast.VarDeclarator{{Name: a.Target, Init: value}}}
}

// lowerRuneInitOrExpr rewrites a source-level rune call ($state/$derived)
// into the runtime initializer codegen actually emits (useSignal/
// createSignal, useMemo/memo), acquiring context in component scope; any
// other expression lowers normally.
func (l *lowerer) lowerRuneInitOrExpr(e ir.Expr) ast.Expr {
	call, ok := e.(*ir.Call)
	if !ok {
		return l.lowerExpr(e)
	}
	name := calleeIdentifierName(call.Callee)
	mapping, isRune := runeCallees[name]
	if !isRune {
		return l.lowerExpr(e)
	}

	target := mapping.module
	args := l.lowerExprList(call.Args)
	if l.opts.Scope == ScopeComponent {
		l.requireContext()
		target = mapping.component
		args = append([]ast.Expr{&ast.Identifier{Name: "__fictCtx"}}, args...)
	}
	return &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(target)}, Args: args}
}

func declKind(k ir.DeclarationKind) ast.DeclKind {
	switch k {
	case ir.DeclLet:
		return ast.DeclLet
	case ir.DeclVar:
		return ast.DeclVar
	default:
		return ast.DeclConst
	}
}

// lowerExpressionStmt implements rule 4: a statement-level expression
// referencing a tracked variable in component scope is wrapped in
// useEffect, unless it is itself entirely reactive-scope setup destined
// for the runInScope path (handled at the if/else level, not here).
func (l *lowerer) lowerExpressionStmt(e *ir.Expression) ast.Stmt {
	value := l.lowerExpr(e.Value)
	if l.opts.Scope != ScopeComponent || !l.exprReadsTracked(e.Value) {
		return &ast.ExprStmt{Expr: value}
	}
	l.requireContext()
	body := &ast.ArrowFunctionExpr{Body: &ast.BlockStmt{Body: []ast.Stmt{&ast.ExprStmt{Expr: value}}}}
	args := []ast.Expr{&ast.Identifier{Name: "__fictCtx"}, body}
	if slot := l.reserveSlot(false); slot != nil {
		args = append(args, slot)
	}
	return &ast.ExprStmt{Expr: &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperUseEffect)}, Args: args}}
}

func (l *lowerer) exprReadsTracked(e ir.Expr) bool {
	found := false
	var walk func(ir.Expr)
	walk = func(x ir.Expr) {
		if found || x == nil {
			return
		}
		if id, ok := x.(*ir.Identifier); ok {
			if l.isTrackedCall(id.Name) && !l.isShadowed(id.Name) {
				found = true
			}
			return
		}
		walkIRChildren(x, walk)
	}
	walk(e)
	return found
}

func walkIRChildren(e ir.Expr, walk func(ir.Expr)) {
	switch x := e.(type) {
	case *ir.Binary:
		walk(x.Left)
		walk(x.Right)
	case *ir.Logical:
		walk(x.Left)
		walk(x.Right)
	case *ir.Unary:
		walk(x.Value)
	case *ir.Conditional:
		walk(x.Test)
		walk(x.Cons)
		walk(x.Alt)
	case *ir.Call:
		walk(x.Callee)
		for _, a := range x.Args {
			walk(a)
		}
	case *ir.Member:
		walk(x.Object)
	case *ir.OptionalMember:
		walk(x.Object)
	case *ir.Array:
		for _, el := range x.Elements {
			walk(el)
		}
	case *ir.Object:
		for _, p := range x.Properties {
			walk(p.Value)
		}
	case *ir.JSXElement:
		for _, a := range x.Attributes {
			walk(a.Value)
		}
		for _, c := range x.Children {
			walk(c)
		}
	case *ir.OptionalCall:
		walk(x.Callee)
		for _, a := range x.Args {
			walk(a)
		}
	case *ir.TemplateLiteral:
		for _, e := range x.Exprs {
			walk(e)
		}
	case *ir.Sequence:
		for _, e := range x.Exprs {
			walk(e)
		}
	case *ir.New:
		walk(x.Callee)
		for _, a := range x.Args {
			walk(a)
		}
	case *ir.Await:
		walk(x.Value)
	case *ir.SpreadElement:
		walk(x.Value)
	case *ir.AssignmentExpression:
		walk(x.Target)
		walk(x.Value)
	case *ir.UpdateExpression:
		walk(x.Target)
	}
}

// lowerNode converts every non-instruction structurize node kind.
func (l *lowerer) lowerNode(n *structurize.Node) ast.Stmt {
	switch n.Kind {
	case structurize.KindSequence, structurize.KindBlock:
		return &ast.BlockStmt{Body: l.lowerSequenceChildren(n.Children)}
	case structurize.KindReturn:
		var v ast.Expr
		if n.Test != nil {
			v = l.lowerExpr(n.Test)
		}
		return &ast.ReturnStmt{Value: v}
	case structurize.KindThrow:
		return &ast.ThrowStmt{Value: l.lowerExpr(n.Test)}
	case structurize.KindBreak:
		return &ast.BreakStmt{Label: n.Target}
	case structurize.KindContinue:
		return &ast.ContinueStmt{Label: n.Target}
	case structurize.KindIf:
		return l.lowerIf(n)
	case structurize.KindWhile:
		return &ast.WhileStmt{Test: l.lowerExpr(n.Test), Body: l.bodyStmt(n.Body), Label: n.Label}
	case structurize.KindDoWhile:
		return &ast.DoWhileStmt{Body: l.bodyStmt(n.Body), Test: l.lowerExpr(n.Test), Label: n.Label}
	case structurize.KindForOf:
		return &ast.ForOfStmt{VarKind: declKind(n.VarKind), VarName: n.LoopVar, Iter: l.lowerExpr(n.Test), Body: l.bodyStmt(n.Body), Label: n.Label}
	case structurize.KindForIn:
		return &ast.ForInStmt{VarKind: declKind(n.VarKind), VarName: n.LoopVar, Obj: l.lowerExpr(n.Test), Body: l.bodyStmt(n.Body), Label: n.Label}
	case structurize.KindSwitch:
		return l.lowerSwitch(n)
	case structurize.KindTry:
		return l.lowerTry(n)
	case structurize.KindStateMachine:
		return l.lowerStateMachine(n)
	case structurize.KindRawTerminator:
		return l.lowerRawTerminator(n)
	default:
		return &ast.BlockStmt{}
	}
}

func (l *lowerer) bodyStmt(n *structurize.Node) ast.Stmt {
	if n == nil {
		return &ast.BlockStmt{}
	}
	return &ast.BlockStmt{Body: l.lowerSequenceChildren(n.Children)}
}

// lowerIf implements the runInScope special case: when every statement in
// a branch is reactive-scope setup (a signal/store/memo-creating call),
// that branch is emitted as a runInScope(flagFn, bodyFn) call instead of a
// plain if/else arm.
func (l *lowerer) lowerIf(n *structurize.Node) ast.Stmt {
	test := l.lowerExpr(n.Test)
	if l.isAllScopeSetup(n.Cons) && (n.Alt == nil || l.isAllScopeSetup(n.Alt)) {
		var stmts []ast.Stmt
		stmts = append(stmts, l.runInScopeCall(test, n.Cons))
		if n.Alt != nil {
			negated := &ast.UnaryExpr{Op: "!", Value: test}
			stmts = append(stmts, l.runInScopeCall(negated, n.Alt))
		}
		return &ast.BlockStmt{Body: stmts}
	}
	cons := l.bodyStmt(n.Cons)
	var alt ast.Stmt
	if n.Alt != nil {
		alt = l.bodyStmt(n.Alt)
	}
	return &ast.IfStmt{Test: test, Cons: cons, Alt: alt}
}

func (l *lowerer) runInScopeCall(flag ast.Expr, body *structurize.Node) ast.Stmt {
	flagFn := &ast.ArrowFunctionExpr{ExprBody: flag}
	bodyFn := &ast.ArrowFunctionExpr{Body: l.bodyStmt(body).(*ast.BlockStmt)}
	call := &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperRunInScope)}, Args: []ast.Expr{flagFn, bodyFn}}
	return &ast.ExprStmt{Expr: call}
}

func (l *lowerer) isAllScopeSetup(n *structurize.Node) bool {
	if n == nil || len(n.Children) == 0 {
		return false
	}
	for _, c := range n.Children {
		if c.Kind != structurize.KindInstruction {
			return false
		}
		a, ok := c.Inst.(*ir.Assign)
		if !ok {
			return false
		}
		call, ok := a.Value.(*ir.Call)
		if !ok {
			return false
		}
		name := calleeIdentifierName(call.Callee)
		if !signalCallees[name] && !storeCallees[name] && !memoCallees[name] {
			return false
		}
	}
	return true
}

func (l *lowerer) lowerSwitch(n *structurize.Node) ast.Stmt {
	out := &ast.SwitchStmt{Disc: l.lowerExpr(n.Disc)}
	for _, c := range n.Cases {
		var test ast.Expr
		if c.Test != nil {
			test = l.lowerExpr(c.Test)
		}
		body := l.lowerSequenceChildren(c.Body.Children)
		out.Cases = append(out.Cases, ast.SwitchCase{Test: test, Body: body})
	}
	return out
}

func (l *lowerer) lowerTry(n *structurize.Node) ast.Stmt {
	out := &ast.TryStmt{CatchParam: n.CatchParam}
	out.Block = l.bodyStmt(n.Body).(*ast.BlockStmt)
	if n.Catch != nil {
		out.CatchBlock = l.bodyStmt(n.Catch).(*ast.BlockStmt)
	}
	if n.Finally != nil {
		out.FinallyBlock = l.bodyStmt(n.Finally).(*ast.BlockStmt)
	}
	return out
}

// lowerStateMachine emits `while (true) { switch (__state) { ... } }`, the
// fallback structurize.Structurize hands back for irreducible control
// flow. Raw multi-target terminators become an explicit `__state = N;
// continue` per edge, the one spot codegen must interpret a Terminator
// directly rather than via a prior structurize rewrite.
func (l *lowerer) lowerStateMachine(n *structurize.Node) ast.Stmt {
	sw := &ast.SwitchStmt{Disc: &ast.Identifier{Name: n.StateVar}}
	for _, c := range n.States {
		test := &ast.Literal{Kind: ast.LitNumber, Raw: fmt.Sprintf("%d", c.State)}
		body := l.lowerSequenceChildren(c.Body.Children)
		sw.Cases = append(sw.Cases, ast.SwitchCase{Test: test, Body: body})
	}
	loop := &ast.WhileStmt{
		Test:  &ast.Literal{Kind: ast.LitBool, Raw: "true"},
		Body:  &ast.BlockStmt{Body: []ast.Stmt{sw}},
		Label: n.Label,
	}
	return loop
}

func (l *lowerer) lowerRawTerminator(n *structurize.Node) ast.Stmt {
	targets := n.RawTerm.Targets()
	var stmts []ast.Stmt
	if len(targets) > 0 {
		stmts = append(stmts, &ast.ExprStmt{Expr: &ast.AssignExpr{
			Op:     "=",
			Target: &ast.Identifier{Name: "__state"},
			Value:  &ast.Literal{Kind: ast.LitNumber, Raw: fmt.Sprintf("%d", targets[0])},
		}})
	}
	stmts = append(stmts, &ast.ContinueStmt{Label: "state_loop"})
	return &ast.BlockStmt{Body: stmts}
}
