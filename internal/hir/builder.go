// Package hir builds internal/ir programs from internal/ast trees. It is
// seed/test infrastructure, not part of the compiler core: the core
// (internal/cfg through internal/optimize) consumes only the internal/ir
// result, never this package or internal/ast.
package hir

import (
	"fictc/internal/ast"
	"fictc/internal/directives"
	"fictc/internal/ir"
)

// Builder accumulates basic blocks for one function at a time, in the
// shape of the teacher's Builder: a current-block cursor plus counters,
// with no phi insertion (that is internal/cfg's job once this pre-SSA
// form has been validated).
type Builder struct {
	fn      *ir.Function
	blockID int
	cur     *ir.BasicBlock

	// loopStack tracks (continueTarget, breakTarget, label) for break/
	// continue resolution in nested loops.
	loopStack []loopCtx

	// lifted collects nested function declarations hoisted out of this
	// program's functions, shared across one Build() call.
	lifted *[]*ir.Function
}

type loopCtx struct {
	continueTarget int
	breakTarget    int
	label          string
}

// Build converts a parsed program into an ir.Program, lifting each
// top-level function declaration into its own ir.Function.
func Build(prog *ast.Program) (*ir.Program, error) {
	out := &ir.Program{}

	var directiveMode directives.Mode
	bodyStart := 0
	for i, stmt := range prog.Body {
		if ds, ok := stmt.(*ast.DirectiveStmt); ok {
			if mode, recognized := directives.RecognizeDirective(ds.Value); recognized {
				directiveMode = mode
				bodyStart = i + 1
				continue
			}
		}
		break
	}
	_ = directiveMode // surfaced to callers via Function.NoMemo below

	var lifted []*ir.Function
	for _, stmt := range prog.Body[bodyStart:] {
		fnDecl, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			out.Items = append(out.Items, ir.Item{Kind: ir.ItemStatement, Raw: stmt, Pos: stmt.Pos()})
			continue
		}
		fn, err := buildFunction(fnDecl, directiveMode == directives.ModeNoMemo, &lifted)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, fn)
	}
	out.Lifted = lifted

	return out, ir.ValidateProgram(out)
}

func buildFunction(decl *ast.FunctionDecl, programNoMemo bool, lifted *[]*ir.Function) (*ir.Function, error) {
	b := &Builder{lifted: lifted, fn: &ir.Function{
		Name:       decl.Name,
		IsAsync:    decl.IsAsync,
		IsExported: decl.IsExported,
		Pos:        decl.Pos(),
	}}
	for _, p := range decl.Params {
		b.fn.Params = append(b.fn.Params, ir.Param{Name: p, Pos: decl.Pos()})
	}

	b.cur = b.newBlock()

	noMemo := programNoMemo
	body := decl.Body.Body
	if len(body) > 0 {
		if ds, ok := body[0].(*ast.DirectiveStmt); ok {
			if mode, recognized := directives.RecognizeDirective(ds.Value); recognized {
				noMemo = noMemo || mode == directives.ModeNoMemo
				body = body[1:]
			}
		}
	}
	b.fn.NoMemo = noMemo

	if err := b.buildStatements(body); err != nil {
		return nil, err
	}
	b.terminateFallthrough(&ir.Return{Position: decl.Pos()})

	return b.fn, nil
}

func (b *Builder) newBlock() *ir.BasicBlock {
	blk := &ir.BasicBlock{ID: b.blockID}
	b.blockID++
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// terminateFallthrough assigns term to the current block only if it has no
// terminator yet (a statement sequence may already have exited via
// return/throw/break/continue).
func (b *Builder) terminateFallthrough(term ir.Terminator) {
	if b.cur.Terminator == nil {
		b.cur.Terminator = term
	}
}

func (b *Builder) emit(inst ir.Instruction) {
	if b.cur.Terminator != nil {
		return // unreachable code after a terminator; dropped at build time
	}
	b.cur.Instructions = append(b.cur.Instructions, inst)
}

func (b *Builder) buildStatements(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := b.buildStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildStatement(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.VarDecl:
		return b.buildVarDecl(st)
	case *ast.ExprStmt:
		val, err := b.convertExpr(st.Expr)
		if err != nil {
			return err
		}
		b.emit(&ir.Expression{Value: val, Position: st.Position})
		return nil
	case *ast.BlockStmt:
		return b.buildStatements(st.Body)
	case *ast.ReturnStmt:
		var val ir.Expr
		if st.Value != nil {
			v, err := b.convertExpr(st.Value)
			if err != nil {
				return err
			}
			val = v
		}
		b.terminateFallthrough(&ir.Return{Value: val, Position: st.Position})
		return nil
	case *ast.ThrowStmt:
		val, err := b.convertExpr(st.Value)
		if err != nil {
			return err
		}
		b.terminateFallthrough(&ir.Throw{Value: val, Position: st.Position})
		return nil
	case *ast.IfStmt:
		return b.buildIf(st)
	case *ast.WhileStmt:
		return b.buildWhile(st)
	case *ast.DoWhileStmt:
		return b.buildDoWhile(st)
	case *ast.ForStmt:
		return b.buildFor(st)
	case *ast.ForOfStmt:
		return b.buildForOf(st)
	case *ast.ForInStmt:
		return b.buildForIn(st)
	case *ast.BreakStmt:
		return b.buildBreak(st)
	case *ast.ContinueStmt:
		return b.buildContinue(st)
	case *ast.SwitchStmt:
		return b.buildSwitch(st)
	case *ast.TryStmt:
		return b.buildTry(st)
	case *ast.FunctionDecl:
		nested, err := buildFunction(st, b.fn.NoMemo, b.lifted)
		if err != nil {
			return err
		}
		b.emit(&ir.Assign{Target: st.Name, DeclarationKind: ir.DeclFunction, Value: &ir.Identifier{Name: "__fn_" + st.Name}, Position: st.Position})
		// The nested function's own blocks are hoisted as a lifted
		// function; callers resolve the binding by name.
		*b.lifted = append(*b.lifted, nested)
		return nil
	case *ast.DirectiveStmt:
		return nil // inline directive; no runtime effect
	default:
		return directives.Newf(directives.BuildError, "unsupported statement type %T", s)
	}
}

func declKind(k ast.DeclKind) ir.DeclarationKind {
	switch k {
	case ast.DeclConst:
		return ir.DeclConst
	case ast.DeclLet:
		return ir.DeclLet
	default:
		return ir.DeclVar
	}
}

func (b *Builder) buildVarDecl(decl *ast.VarDecl) error {
	kind := declKind(decl.Kind)
	for _, d := range decl.Declarators {
		if d.Init == nil {
			b.emit(&ir.Assign{Target: d.Name, DeclarationKind: kind, Value: &ir.Literal{LitKind: ir.LitUndefined, Raw: "undefined"}, Position: d.Position})
			continue
		}
		val, err := b.convertExpr(d.Init)
		if err != nil {
			return err
		}
		b.emit(&ir.Assign{Target: d.Name, DeclarationKind: kind, Value: val, Position: d.Position})
	}
	return nil
}
