package codegen

import (
	"fmt"
	"sort"

	"fictc/internal/ast"
	"fictc/internal/ir"
	"fictc/internal/region"
	"fictc/internal/structurize"
)

// lowerRegionGroup implements rule 5 (regions -> memo) for a contiguous,
// single-block, memoize-flagged run of instructions: the whole run becomes
// a useMemo/memo body returning an object of its declared bases, followed
// by a destructuring declarator. A declared base already classified as an
// accessor-producing name (trackedDerived, set from the same scope this
// region mirrors) is additionally re-exposed as a getter arrow per rule
// 5's "tracked outputs ... wrapped as getter arrows" clause; this keeps
// uses of that name elsewhere, already rewritten to a call by rule 1/8,
// working against the memoized value instead of the raw destructured one.
//
// Before falling back to that general shape, this first tries rule 6 (the
// lazy conditional memo): when the run selects between two of its own
// declared bases with a `cond ? a : b` whose branches are read nowhere
// else in the run, their defining statements move inside an if/else keyed
// on the test so the untaken branch's derivation is never evaluated.
func (l *lowerer) lowerRegionGroup(r *region.Region, insts []*structurize.Node) []ast.Stmt {
	if lazy := l.tryLowerLazyConditionalRegion(r, insts); lazy != nil {
		return lazy
	}

	var bodyStmts []ast.Stmt
	for _, n := range insts {
		bodyStmts = append(bodyStmts, l.lowerInstructionNode(n))
	}

	decls := append([]string(nil), r.Declarations...)
	sort.Strings(decls)
	if len(decls) > 0 {
		props := make([]ast.ObjectProperty, len(decls))
		for i, name := range decls {
			props[i] = ast.ObjectProperty{Key: name, Value: &ast.Identifier{Name: name}, Shorthand: true}
		}
		bodyStmts = append(bodyStmts, &ast.ReturnStmt{Value: &ast.ObjectExpr{Properties: props}})
	}

	return l.wrapRegionMemo(r, decls, bodyStmts)
}

// tryLowerLazyConditionalRegion detects rule 6's shape: an assignment in
// insts whose value is a ternary `cond ? a : b` where a and b both name
// other bases this same region declares, and each of those two names is
// read nowhere in the run except as that ternary's branch. When found,
// the two branch-exclusive definitions move into an if/else on the
// extracted test, each returning the pair with its own name live and the
// other nulled; the selector assignment itself, now redundant, is dropped,
// and every other instruction in the run stays a shared prefix.
// Returns nil when the shape isn't present, so the caller falls back to
// the general region lowering.
func (l *lowerer) tryLowerLazyConditionalRegion(r *region.Region, insts []*structurize.Node) []ast.Stmt {
	declSet := make(map[string]bool, len(r.Declarations))
	for _, d := range r.Declarations {
		declSet[d] = true
	}

	selectorIdx := -1
	var test ir.Expr
	var consName, altName string
	for i, n := range insts {
		a, ok := n.Inst.(*ir.Assign)
		if !ok {
			continue
		}
		cond, ok := a.Value.(*ir.Conditional)
		if !ok {
			continue
		}
		consID, ok1 := cond.Cons.(*ir.Identifier)
		altID, ok2 := cond.Alt.(*ir.Identifier)
		if !ok1 || !ok2 || consID.Name == altID.Name {
			continue
		}
		if !declSet[consID.Name] || !declSet[altID.Name] {
			continue
		}
		selectorIdx, test, consName, altName = i, cond.Test, consID.Name, altID.Name
		break
	}
	if selectorIdx < 0 {
		return nil
	}

	consIdx := indexOfAssignTarget(insts, consName)
	altIdx := indexOfAssignTarget(insts, altName)
	if consIdx < 0 || altIdx < 0 || consIdx == altIdx {
		return nil
	}
	// Each branch-exclusive base must be read only inside the selector's
	// own ternary; any other read means its value is needed regardless of
	// which branch runs, so computing it lazily would be unsound.
	if countIdentifierReads(insts, consName) != 1 || countIdentifierReads(insts, altName) != 1 {
		return nil
	}

	var shared []ast.Stmt
	var consStmt, altStmt ast.Stmt
	for i, n := range insts {
		switch i {
		case selectorIdx:
			continue
		case consIdx:
			consStmt = l.lowerInstructionNode(n)
		case altIdx:
			altStmt = l.lowerInstructionNode(n)
		default:
			shared = append(shared, l.lowerInstructionNode(n))
		}
	}

	condDecl := &ast.VarDecl{Kind: ast.DeclConst, Declarators: []ast.VarDeclarator{{Name: "__cond", Init: l.lowerExpr(test)}}}
	ifStmt := &ast.IfStmt{
		Test: &ast.Identifier{Name: "__cond"},
		Cons: &ast.BlockStmt{Body: []ast.Stmt{consStmt, &ast.ReturnStmt{Value: lazyBranchObject(consName, altName, true)}}},
		Alt:  &ast.BlockStmt{Body: []ast.Stmt{altStmt, &ast.ReturnStmt{Value: lazyBranchObject(consName, altName, false)}}},
	}

	body := append(append([]ast.Stmt{}, shared...), condDecl, ifStmt)
	return l.wrapRegionMemo(r, []string{consName, altName}, body)
}

func indexOfAssignTarget(insts []*structurize.Node, name string) int {
	for i, n := range insts {
		if a, ok := n.Inst.(*ir.Assign); ok && a.Target == name {
			return i
		}
	}
	return -1
}

// countIdentifierReads counts identifier-read occurrences of name across
// every instruction's expression in insts.
func countIdentifierReads(insts []*structurize.Node, name string) int {
	count := 0
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		if e == nil {
			return
		}
		if id, ok := e.(*ir.Identifier); ok {
			if id.Name == name {
				count++
			}
			return
		}
		walkIRChildren(e, walk)
	}
	for _, n := range insts {
		switch i := n.Inst.(type) {
		case *ir.Assign:
			walk(i.Value)
		case *ir.Expression:
			walk(i.Value)
		}
	}
	return count
}

// lazyBranchObject builds the `{consName, altName: null}` (or its mirror)
// return object, keeping both keys present in consName-then-altName order
// in every branch so the common destructuring site sees a stable shape.
func lazyBranchObject(consName, altName string, consActive bool) ast.Expr {
	return &ast.ObjectExpr{Properties: []ast.ObjectProperty{
		branchProp(consName, consActive),
		branchProp(altName, !consActive),
	}}
}

func branchProp(name string, present bool) ast.ObjectProperty {
	if present {
		return ast.ObjectProperty{Key: name, Value: &ast.Identifier{Name: name}, Shorthand: true}
	}
	return ast.ObjectProperty{Key: name, Value: &ast.Literal{Kind: ast.LitNull, Raw: "null"}}
}

// wrapRegionMemo builds the useMemo/memo call wrapping bodyStmts (which
// must end in a return of the object literal keyed by decls, when decls
// is non-empty), then the destructuring declarator for decls, re-exposing
// any trackedDerived name among them as a getter arrow the same way rule
// 1/8's rewrite already expects elsewhere-in-function reads to call.
func (l *lowerer) wrapRegionMemo(r *region.Region, decls []string, bodyStmts []ast.Stmt) []ast.Stmt {
	resultName := fmt.Sprintf("__region_%d", r.ID)

	l.requireContext()
	arrow := &ast.ArrowFunctionExpr{Body: &ast.BlockStmt{Body: bodyStmts}}
	helper := helperMemo
	args := []ast.Expr{arrow}
	if l.opts.Scope == ScopeComponent {
		helper = helperUseMemo
		args = []ast.Expr{&ast.Identifier{Name: "__fictCtx"}, arrow}
	}
	if slot := l.reserveSlot(false); slot != nil && l.opts.Scope == ScopeComponent {
		args = append(args, slot)
	}
	call := &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helper)}, Args: args}

	out := []ast.Stmt{&ast.VarDecl{
		Kind:        ast.DeclConst,
		Declarators: []ast.VarDeclarator{{Name: resultName, Init: call}},
	}}

	if len(decls) == 0 {
		return out
	}

	needsGetterWrap := false
	for _, name := range decls {
		if l.tracked[name] == trackedDerived {
			needsGetterWrap = true
			break
		}
	}

	if !needsGetterWrap {
		out = append(out, &ast.VarDecl{Kind: ast.DeclConst, Declarators: objectPatternDeclaratorsNamed(decls, resultName)})
		return out
	}

	rawName := resultName + "_v"
	out = append(out, &ast.VarDecl{Kind: ast.DeclConst, Declarators: objectPatternDeclaratorsNamed(decls, rawName)})
	for _, name := range decls {
		if l.tracked[name] != trackedDerived {
			continue
		}
		getter := &ast.ArrowFunctionExpr{ExprBody: &ast.MemberExpr{Object: &ast.Identifier{Name: rawName}, Property: name}}
		out = append(out, &ast.VarDecl{Kind: ast.DeclConst, Declarators: []ast.VarDeclarator{{Name: name, Init: getter}}})
	}
	return out
}

// objectPatternDeclaratorsNamed represents a destructuring declaration
// against source; internal/ast has no dedicated destructuring-pattern
// node, so the pattern is carried as literal `{a, b}` source text in the
// declarator's Name, which the final printer stage emits verbatim.
func objectPatternDeclaratorsNamed(names []string, source string) []ast.VarDeclarator {
	return []ast.VarDeclarator{{Name: destructurePattern(names), Init: &ast.Identifier{Name: source}}}
}

func destructurePattern(names []string) string {
	out := "{"
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	out += "}"
	return out
}
