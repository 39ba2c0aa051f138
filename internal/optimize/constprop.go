package optimize

import (
	"strconv"

	"fictc/internal/ir"
)

// ConstantPropagationPass evaluates literal arithmetic/logical/template
// expressions bottom-up and substitutes identifiers known, by a worklist
// fixpoint, to hold a single constant value (including phi nodes whose
// sources all agree).
type ConstantPropagationPass struct{}

func (p *ConstantPropagationPass) Name() string { return "constant-propagation" }
func (p *ConstantPropagationPass) Description() string {
	return "folds literal expressions and substitutes provably-constant identifiers"
}

type constVal struct {
	lit *ir.Literal
}

func (p *ConstantPropagationPass) Apply(ctx *Context) bool {
	fn := ctx.Fn
	consts := make(map[string]constVal)
	changed := false

	singleAssign := countAssignments(fn)
	inLoop := blocksInLoop(ctx)

	eligibleCrossBlock := func(base string, a *ir.Assign, blockID int) bool {
		if !ctx.Opts.CrossBlockConstProp {
			return false
		}
		if singleAssign[base] != 1 {
			return false
		}
		if !ir.IsGenerated(base) && a.DeclarationKind != ir.DeclConst {
			return false
		}
		if ctx.Reactive != nil {
			if _, tracked := ctx.Reactive.ScopeOf[base]; tracked {
				return false
			}
		}
		if inLoop[blockID] {
			return false
		}
		return true
	}

	fixpoint := true
	for fixpoint {
		fixpoint = false
		for _, blk := range fn.Blocks {
			for idx, inst := range blk.Instructions {
				switch i := inst.(type) {
				case *ir.Assign:
					folded := foldExpr(i.Value, consts)
					if folded != nil && !sameLiteral(folded, asLiteral(i.Value)) {
						i.Value = folded
						changed = true
						fixpoint = true
					}
					base := ir.BaseName(i.Target)
					if lit, ok := i.Value.(*ir.Literal); ok {
						if _, seen := consts[base]; !seen && eligibleCrossBlock(base, i, blk.ID) {
							consts[base] = constVal{lit: lit}
							fixpoint = true
						}
					} else {
						delete(consts, base)
					}
					_ = idx
				case *ir.Phi:
					if lit, ok := phiAgreement(i, consts); ok {
						base := ir.BaseName(i.Target)
						if _, seen := consts[base]; !seen {
							consts[base] = constVal{lit: lit}
							fixpoint = true
						}
					}
				case *ir.Expression:
					if folded := foldExpr(i.Value, consts); folded != nil {
						i.Value = folded
						changed = true
						fixpoint = true
					}
				}
			}
			substituteTerminator(blk.Terminator, consts)
		}
	}

	return changed
}

func asLiteral(e ir.Expr) *ir.Literal {
	l, _ := e.(*ir.Literal)
	return l
}

func sameLiteral(a, b *ir.Literal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.LitKind == b.LitKind && a.Raw == b.Raw
}

func countAssignments(fn *ir.Function) map[string]int {
	counts := make(map[string]int)
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if a, ok := inst.(*ir.Assign); ok {
				counts[ir.BaseName(a.Target)]++
			}
		}
	}
	return counts
}

// blocksInLoop marks every block id dominated by a loop header (the
// header's whole dominator subtree). Whether a block reaches back to the
// header is not checked, so blocks after the loop's exit that the header
// dominates are marked too.
func blocksInLoop(ctx *Context) map[int]bool {
	in := make(map[int]bool)
	if ctx.Graph == nil {
		return in
	}
	for header := range ctx.Graph.LoopHeaders {
		var mark func(id int)
		visited := map[int]bool{}
		mark = func(id int) {
			if visited[id] {
				return
			}
			visited[id] = true
			in[id] = true
			for _, child := range ctx.Graph.Children[id] {
				mark(child)
			}
		}
		mark(header)
	}
	return in
}

func phiAgreement(phi *ir.Phi, consts map[string]constVal) (*ir.Literal, bool) {
	if len(phi.Sources) == 0 {
		return nil, false
	}
	var first *ir.Literal
	for _, src := range phi.Sources {
		cv, ok := consts[ir.BaseName(src.Name)]
		if !ok {
			return nil, false
		}
		if first == nil {
			first = cv.lit
			continue
		}
		if !sameLiteral(first, cv.lit) {
			return nil, false
		}
	}
	return first, first != nil
}

func substituteTerminator(term ir.Terminator, consts map[string]constVal) {
	switch t := term.(type) {
	case *ir.Return:
		if folded := foldExpr(t.Value, consts); folded != nil {
			t.Value = folded
		}
	case *ir.Throw:
		if folded := foldExpr(t.Value, consts); folded != nil {
			t.Value = folded
		}
	case *ir.Branch:
		if folded := foldExpr(t.Test, consts); folded != nil {
			t.Test = folded
		}
	case *ir.Switch:
		if folded := foldExpr(t.Disc, consts); folded != nil {
			t.Disc = folded
		}
		for i := range t.Cases {
			if t.Cases[i].Test == nil {
				continue
			}
			if folded := foldExpr(t.Cases[i].Test, consts); folded != nil {
				t.Cases[i].Test = folded
			}
		}
	}
}

// foldExpr returns a replacement expression with constant identifiers
// substituted and literal arithmetic/logical operations evaluated, or nil
// if no simplification applies.
func foldExpr(e ir.Expr, consts map[string]constVal) ir.Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case *ir.Identifier:
		if cv, ok := consts[x.Name]; ok {
			return cv.lit
		}
		return nil
	case *ir.Unary:
		val := foldOrSelf(x.Value, consts)
		if lit, ok := val.(*ir.Literal); ok {
			if folded := evalUnary(x.Op, lit); folded != nil {
				return folded
			}
		}
		if val != x.Value {
			return &ir.Unary{Op: x.Op, Prefix: x.Prefix, Value: val, Position: x.Position}
		}
		return nil
	case *ir.Binary:
		left := foldOrSelf(x.Left, consts)
		right := foldOrSelf(x.Right, consts)
		if ll, ok := left.(*ir.Literal); ok {
			if rl, ok := right.(*ir.Literal); ok {
				if folded := evalBinary(x.Op, ll, rl); folded != nil {
					return folded
				}
			}
		}
		if left != x.Left || right != x.Right {
			return &ir.Binary{Op: x.Op, Left: left, Right: right, Position: x.Position}
		}
		return nil
	case *ir.Logical:
		left := foldOrSelf(x.Left, consts)
		if lit, ok := left.(*ir.Literal); ok {
			truthy := literalTruthy(lit)
			switch x.Op {
			case "&&":
				if !truthy {
					return lit
				}
				return foldOrSelf(x.Right, consts)
			case "||":
				if truthy {
					return lit
				}
				return foldOrSelf(x.Right, consts)
			case "??":
				if lit.LitKind != ir.LitNull && lit.LitKind != ir.LitUndefined {
					return lit
				}
				return foldOrSelf(x.Right, consts)
			}
		}
		right := foldOrSelf(x.Right, consts)
		if left != x.Left || right != x.Right {
			return &ir.Logical{Op: x.Op, Left: left, Right: right, Position: x.Position}
		}
		return nil
	case *ir.Conditional:
		test := foldOrSelf(x.Test, consts)
		if lit, ok := test.(*ir.Literal); ok {
			if literalTruthy(lit) {
				return foldOrSelf(x.Cons, consts)
			}
			return foldOrSelf(x.Alt, consts)
		}
		cons := foldOrSelf(x.Cons, consts)
		alt := foldOrSelf(x.Alt, consts)
		if test != x.Test || cons != x.Cons || alt != x.Alt {
			return &ir.Conditional{Test: test, Cons: cons, Alt: alt, Position: x.Position}
		}
		return nil
	case *ir.TemplateLiteral:
		any := false
		exprs := make([]ir.Expr, len(x.Exprs))
		for i, sub := range x.Exprs {
			exprs[i] = foldOrSelf(sub, consts)
			if exprs[i] != sub {
				any = true
			}
		}
		if any {
			return &ir.TemplateLiteral{Quasis: x.Quasis, Exprs: exprs, Position: x.Position}
		}
		return nil
	case *ir.Sequence:
		any := false
		exprs := make([]ir.Expr, len(x.Exprs))
		for i, sub := range x.Exprs {
			exprs[i] = foldOrSelf(sub, consts)
			if exprs[i] != sub {
				any = true
			}
		}
		if any {
			return &ir.Sequence{Exprs: exprs, Position: x.Position}
		}
		return nil
	default:
		return nil
	}
}

func foldOrSelf(e ir.Expr, consts map[string]constVal) ir.Expr {
	if folded := foldExpr(e, consts); folded != nil {
		return folded
	}
	return e
}

func literalTruthy(lit *ir.Literal) bool {
	switch lit.LitKind {
	case ir.LitNull, ir.LitUndefined:
		return false
	case ir.LitBool:
		return lit.Raw == "true"
	case ir.LitNumber:
		f, _ := strconv.ParseFloat(lit.Raw, 64)
		return f != 0
	case ir.LitString:
		return len(lit.Raw) > 2 // excludes the surrounding quotes of an empty string
	default:
		return true
	}
}

func evalUnary(op string, v *ir.Literal) *ir.Literal {
	switch op {
	case "!":
		if v.LitKind == ir.LitBool || v.LitKind == ir.LitNull || v.LitKind == ir.LitUndefined || v.LitKind == ir.LitNumber {
			return boolLit(!literalTruthy(v))
		}
	case "-":
		if v.LitKind == ir.LitNumber {
			f, err := strconv.ParseFloat(v.Raw, 64)
			if err == nil {
				return numLit(-f)
			}
		}
	case "+":
		if v.LitKind == ir.LitNumber {
			return v
		}
	}
	return nil
}

func evalBinary(op string, l, r *ir.Literal) *ir.Literal {
	if op == "===" || op == "!==" {
		eq := l.LitKind == r.LitKind && l.Raw == r.Raw
		if op == "!==" {
			eq = !eq
		}
		return boolLit(eq)
	}
	if l.LitKind != ir.LitNumber || r.LitKind != ir.LitNumber {
		return nil
	}
	lf, err1 := strconv.ParseFloat(l.Raw, 64)
	rf, err2 := strconv.ParseFloat(r.Raw, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	switch op {
	case "+":
		return numLit(lf + rf)
	case "-":
		return numLit(lf - rf)
	case "*":
		return numLit(lf * rf)
	case "/":
		if rf == 0 {
			return nil
		}
		return numLit(lf / rf)
	case "<":
		return boolLit(lf < rf)
	case "<=":
		return boolLit(lf <= rf)
	case ">":
		return boolLit(lf > rf)
	case ">=":
		return boolLit(lf >= rf)
	}
	return nil
}

func boolLit(v bool) *ir.Literal {
	if v {
		return &ir.Literal{LitKind: ir.LitBool, Raw: "true"}
	}
	return &ir.Literal{LitKind: ir.LitBool, Raw: "false"}
}

func numLit(f float64) *ir.Literal {
	return &ir.Literal{LitKind: ir.LitNumber, Raw: strconv.FormatFloat(f, 'g', -1, 64)}
}
