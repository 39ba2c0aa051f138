package hir

import (
	"fictc/internal/ast"
	"fictc/internal/directives"
	"fictc/internal/ir"
)

func (b *Builder) buildIf(st *ast.IfStmt) error {
	test, err := b.convertExpr(st.Test)
	if err != nil {
		return err
	}

	consBlock := b.newBlock()
	var altBlock *ir.BasicBlock
	joinBlock := b.newBlock()

	branch := &ir.Branch{Test: test, Cons: consBlock.ID, Position: st.Position}
	entry := b.cur
	entry.Terminator = branch

	b.cur = consBlock
	if err := b.buildStatement(st.Cons); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: joinBlock.ID, Position: st.Position})

	if st.Alt != nil {
		altBlock = b.newBlock()
		branch.Alt = altBlock.ID
		b.cur = altBlock
		if err := b.buildStatement(st.Alt); err != nil {
			return err
		}
		b.terminateFallthrough(&ir.Jump{Target: joinBlock.ID, Position: st.Position})
	} else {
		branch.Alt = joinBlock.ID
	}

	b.cur = joinBlock
	return nil
}

func (b *Builder) pushLoop(continueTarget, breakTarget int, label string) {
	b.loopStack = append(b.loopStack, loopCtx{continueTarget: continueTarget, breakTarget: breakTarget, label: label})
}

func (b *Builder) popLoop() {
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
}

func (b *Builder) buildWhile(st *ast.WhileStmt) error {
	headerBlock := b.newBlock()
	entry := b.cur
	entry.Terminator = &ir.Jump{Target: headerBlock.ID, Position: st.Position}

	b.cur = headerBlock
	test, err := b.convertExpr(st.Test)
	if err != nil {
		return err
	}

	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()
	headerBlock.Terminator = &ir.Branch{Test: test, Cons: bodyBlock.ID, Alt: exitBlock.ID, Position: st.Position}

	b.pushLoop(headerBlock.ID, exitBlock.ID, st.Label)
	b.cur = bodyBlock
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: headerBlock.ID, Position: st.Position})
	b.popLoop()

	b.cur = exitBlock
	return nil
}

func (b *Builder) buildDoWhile(st *ast.DoWhileStmt) error {
	bodyBlock := b.newBlock()
	entry := b.cur
	entry.Terminator = &ir.Jump{Target: bodyBlock.ID, Position: st.Position}

	testBlock := b.newBlock()
	exitBlock := b.newBlock()

	b.pushLoop(testBlock.ID, exitBlock.ID, st.Label)
	b.cur = bodyBlock
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: testBlock.ID, Position: st.Position})
	b.popLoop()

	b.cur = testBlock
	test, err := b.convertExpr(st.Test)
	if err != nil {
		return err
	}
	testBlock.Terminator = &ir.Branch{Test: test, Cons: bodyBlock.ID, Alt: exitBlock.ID, Position: st.Position}

	b.cur = exitBlock
	return nil
}

func (b *Builder) buildFor(st *ast.ForStmt) error {
	switch init := st.Init.(type) {
	case *ast.VarDecl:
		if err := b.buildVarDecl(init); err != nil {
			return err
		}
	case ast.Expr:
		val, err := b.convertExpr(init)
		if err != nil {
			return err
		}
		b.emit(&ir.Expression{Value: val, Position: st.Position})
	}

	headerBlock := b.newBlock()
	b.cur.Terminator = &ir.Jump{Target: headerBlock.ID, Position: st.Position}

	b.cur = headerBlock
	var test ir.Expr
	if st.Test != nil {
		t, err := b.convertExpr(st.Test)
		if err != nil {
			return err
		}
		test = t
	} else {
		test = &ir.Literal{LitKind: ir.LitBool, Raw: "true"}
	}

	bodyBlock := b.newBlock()
	updateBlock := b.newBlock()
	exitBlock := b.newBlock()
	headerBlock.Terminator = &ir.Branch{Test: test, Cons: bodyBlock.ID, Alt: exitBlock.ID, Position: st.Position}

	b.pushLoop(updateBlock.ID, exitBlock.ID, st.Label)
	b.cur = bodyBlock
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: updateBlock.ID, Position: st.Position})
	b.popLoop()

	b.cur = updateBlock
	if st.Update != nil {
		val, err := b.convertExpr(st.Update)
		if err != nil {
			return err
		}
		b.emit(&ir.Expression{Value: val, Position: st.Position})
	}
	b.terminateFallthrough(&ir.Jump{Target: headerBlock.ID, Position: st.Position})

	b.cur = exitBlock
	return nil
}

func (b *Builder) buildForOf(st *ast.ForOfStmt) error {
	iter, err := b.convertExpr(st.Iter)
	if err != nil {
		return err
	}
	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()
	entry := b.cur
	entry.Terminator = &ir.ForOf{Var: st.VarName, VarKind: declKind(st.VarKind), Iter: iter, Body: bodyBlock.ID, Exit: exitBlock.ID, Position: st.Position}

	b.pushLoop(entry.ID, exitBlock.ID, st.Label)
	b.cur = bodyBlock
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: entry.ID, Position: st.Position})
	b.popLoop()

	b.cur = exitBlock
	return nil
}

func (b *Builder) buildForIn(st *ast.ForInStmt) error {
	obj, err := b.convertExpr(st.Obj)
	if err != nil {
		return err
	}
	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()
	entry := b.cur
	entry.Terminator = &ir.ForIn{Var: st.VarName, VarKind: declKind(st.VarKind), Obj: obj, Body: bodyBlock.ID, Exit: exitBlock.ID, Position: st.Position}

	b.pushLoop(entry.ID, exitBlock.ID, st.Label)
	b.cur = bodyBlock
	if err := b.buildStatement(st.Body); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: entry.ID, Position: st.Position})
	b.popLoop()

	b.cur = exitBlock
	return nil
}

func (b *Builder) buildBreak(st *ast.BreakStmt) error {
	for i := len(b.loopStack) - 1; i >= 0; i-- {
		l := b.loopStack[i]
		if st.Label == "" || st.Label == l.label {
			b.terminateFallthrough(&ir.Break{Target: l.breakTarget, Label: st.Label, Position: st.Position})
			return nil
		}
	}
	return directives.Newf(directives.BuildError, "break outside of loop (label %q)", st.Label).WithContext(directives.Context{Line: st.Position.Line})
}

func (b *Builder) buildContinue(st *ast.ContinueStmt) error {
	for i := len(b.loopStack) - 1; i >= 0; i-- {
		l := b.loopStack[i]
		if st.Label == "" || st.Label == l.label {
			b.terminateFallthrough(&ir.Continue{Target: l.continueTarget, Label: st.Label, Position: st.Position})
			return nil
		}
	}
	return directives.Newf(directives.BuildError, "continue outside of loop (label %q)", st.Label).WithContext(directives.Context{Line: st.Position.Line})
}

func (b *Builder) buildSwitch(st *ast.SwitchStmt) error {
	disc, err := b.convertExpr(st.Disc)
	if err != nil {
		return err
	}

	entry := b.cur
	exitBlock := b.newBlock()
	b.pushLoop(exitBlock.ID, exitBlock.ID, "") // break targets the switch exit

	sw := &ir.Switch{Disc: disc, Position: st.Position}
	for _, c := range st.Cases {
		caseBlock := b.newBlock()
		var test ir.Expr
		if c.Test != nil {
			t, err := b.convertExpr(c.Test)
			if err != nil {
				return err
			}
			test = t
		}
		sw.Cases = append(sw.Cases, ir.SwitchCase{Test: test, Target: caseBlock.ID})

		b.cur = caseBlock
		if err := b.buildStatements(c.Body); err != nil {
			return err
		}
		b.terminateFallthrough(&ir.Jump{Target: exitBlock.ID, Position: st.Position})
	}
	entry.Terminator = sw
	b.popLoop()

	b.cur = exitBlock
	return nil
}

func (b *Builder) buildTry(st *ast.TryStmt) error {
	tryBlock := b.newBlock()
	exitBlock := b.newBlock()
	entry := b.cur

	term := &ir.Try{TryBlock: tryBlock.ID, CatchBlock: -1, FinallyBlock: -1, Exit: exitBlock.ID, CatchParam: st.CatchParam, Position: st.Position}

	b.cur = tryBlock
	if err := b.buildStatements(st.Block.Body); err != nil {
		return err
	}
	b.terminateFallthrough(&ir.Jump{Target: exitBlock.ID, Position: st.Position})

	if st.CatchBlock != nil {
		catchBlock := b.newBlock()
		term.CatchBlock = catchBlock.ID
		b.cur = catchBlock
		if err := b.buildStatements(st.CatchBlock.Body); err != nil {
			return err
		}
		b.terminateFallthrough(&ir.Jump{Target: exitBlock.ID, Position: st.Position})
	}

	if st.FinallyBlock != nil {
		finallyBlock := b.newBlock()
		term.FinallyBlock = finallyBlock.ID
		b.cur = finallyBlock
		if err := b.buildStatements(st.FinallyBlock.Body); err != nil {
			return err
		}
		b.terminateFallthrough(&ir.Jump{Target: exitBlock.ID, Position: st.Position})
	}

	entry.Terminator = term
	b.cur = exitBlock
	return nil
}
