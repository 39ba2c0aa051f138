package optimize

import "fictc/internal/ir"

// AlgebraicSimplificationPass rewrites identity patterns that constant
// folding alone does not catch because one operand is a non-constant
// sub-expression: `true && x`, `false || x`, double negation, redundant
// unary plus, self-comparison, and a same-branch conditional collapsed to
// a comma that still evaluates its test once.
type AlgebraicSimplificationPass struct{}

func (p *AlgebraicSimplificationPass) Name() string { return "algebraic-simplification" }
func (p *AlgebraicSimplificationPass) Description() string {
	return "rewrites algebraic identities in non-reactive expressions"
}

func (p *AlgebraicSimplificationPass) Apply(ctx *Context) bool {
	changed := false
	rw := func(e ir.Expr) ir.Expr {
		out, did := simplify(e, ctx)
		if did {
			changed = true
		}
		return out
	}
	for _, blk := range ctx.Fn.Blocks {
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Assign:
				i.Value = rw(i.Value)
			case *ir.Expression:
				i.Value = rw(i.Value)
			}
		}
		switch t := blk.Terminator.(type) {
		case *ir.Return:
			if t.Value != nil {
				t.Value = rw(t.Value)
			}
		case *ir.Throw:
			t.Value = rw(t.Value)
		case *ir.Branch:
			t.Test = rw(t.Test)
		}
	}
	return changed
}

// simplify applies one rewrite rule bottom-up. It skips any sub-expression
// whose result is reactive-dependent, since reordering or dropping an
// evaluation of a reactive read would change when that read is observed.
func simplify(e ir.Expr, ctx *Context) (ir.Expr, bool) {
	if isReactiveExpr(e, ctx) {
		return e, false
	}
	switch x := e.(type) {
	case *ir.Unary:
		inner, did := simplify(x.Value, ctx)
		if did {
			x = &ir.Unary{Op: x.Op, Prefix: x.Prefix, Value: inner, Position: x.Position}
		}
		if x.Op == "!" {
			if u2, ok := x.Value.(*ir.Unary); ok && u2.Op == "!" {
				return boolCoerce(u2.Value), true
			}
		}
		if x.Op == "+" {
			return x.Value, true
		}
		return x, did
	case *ir.Logical:
		left, leftChanged := simplify(x.Left, ctx)
		right, rightChanged := simplify(x.Right, ctx)
		switch x.Op {
		case "&&":
			if isTrueLiteral(left) {
				return right, true
			}
		case "||":
			if isFalseLiteral(left) {
				return right, true
			}
		}
		if leftChanged || rightChanged {
			return &ir.Logical{Op: x.Op, Left: left, Right: right, Position: x.Position}, true
		}
		return x, false
	case *ir.Binary:
		left, leftChanged := simplify(x.Left, ctx)
		right, rightChanged := simplify(x.Right, ctx)
		if (x.Op == "===" || x.Op == "==") && identicalIdentifier(left, right) {
			return &ir.Literal{LitKind: ir.LitBool, Raw: "true"}, true
		}
		if (x.Op == "!==" || x.Op == "!=") && identicalIdentifier(left, right) {
			return &ir.Literal{LitKind: ir.LitBool, Raw: "false"}, true
		}
		if leftChanged || rightChanged {
			return &ir.Binary{Op: x.Op, Left: left, Right: right, Position: x.Position}, true
		}
		return x, false
	case *ir.Conditional:
		test, testChanged := simplify(x.Test, ctx)
		cons, consChanged := simplify(x.Cons, ctx)
		alt, altChanged := simplify(x.Alt, ctx)
		if identicalIdentifier(cons, alt) {
			return &ir.Sequence{Exprs: []ir.Expr{test, cons}, Position: x.Position}, true
		}
		if testChanged || consChanged || altChanged {
			return &ir.Conditional{Test: test, Cons: cons, Alt: alt, Position: x.Position}, true
		}
		return x, false
	default:
		return e, false
	}
}

func boolCoerce(e ir.Expr) ir.Expr {
	return &ir.Unary{Op: "!", Prefix: true, Value: &ir.Unary{Op: "!", Prefix: true, Value: e}}
}

func isTrueLiteral(e ir.Expr) bool {
	l, ok := e.(*ir.Literal)
	return ok && l.LitKind == ir.LitBool && l.Raw == "true"
}

func isFalseLiteral(e ir.Expr) bool {
	l, ok := e.(*ir.Literal)
	return ok && l.LitKind == ir.LitBool && l.Raw == "false"
}

// identicalIdentifier reports whether a and b are syntactically the same
// simple identifier; this is the only shape the collapse rules apply to,
// since two syntactically different but value-equal expressions cannot be
// proven equal without evaluating side effects twice.
func identicalIdentifier(a, b ir.Expr) bool {
	ai, ok := a.(*ir.Identifier)
	if !ok {
		return false
	}
	bi, ok := b.(*ir.Identifier)
	if !ok {
		return false
	}
	return ai.Name == bi.Name
}

// isReactiveExpr reports whether e reads any identifier tracked by
// reactive scope analysis, in which case algebraic rewrites that could
// change read timing or count are suppressed.
func isReactiveExpr(e ir.Expr, ctx *Context) bool {
	if ctx.Reactive == nil {
		return false
	}
	found := false
	var walk func(ir.Expr)
	walk = func(x ir.Expr) {
		if found || x == nil {
			return
		}
		switch v := x.(type) {
		case *ir.Identifier:
			if _, tracked := ctx.Reactive.ScopeOf[v.Name]; tracked {
				found = true
			}
		case *ir.Unary:
			walk(v.Value)
		case *ir.Binary:
			walk(v.Left)
			walk(v.Right)
		case *ir.Logical:
			walk(v.Left)
			walk(v.Right)
		case *ir.Conditional:
			walk(v.Test)
			walk(v.Cons)
			walk(v.Alt)
		case *ir.Member:
			walk(v.Object)
		case *ir.OptionalMember:
			walk(v.Object)
		case *ir.Call:
			walk(v.Callee)
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return found
}
