package codegen

import (
	"fictc/internal/ast"
	"fictc/internal/cfg"
	"fictc/internal/ir"
	"fictc/internal/structurize"
)

// lowerExpr implements rules 1, 2 and 8: a read of a name classified
// trackedSignal/trackedMemo/trackedDerived becomes a zero-arg getter call
// unless the name is a parameter or is shadowed by a nested function's own
// parameter of the same name (rule 1); an assignment or update targeting
// such a name becomes a setter call carrying the recomputed value (rule 2);
// a property access whose root identifier is tracked is rewritten the same
// way before the member access is applied, so `point.x` over a signal-bound
// `point` reads through the getter rather than closing over the stale
// destructured value (rule 8). A *ir.Conditional lowers here as a plain
// ternary in expression position; the region-scoped version of rule 6 (a
// cond ? a : b selecting between two of a region's own lazily-computed
// outputs) is detected and rewritten separately, in
// region_lower.go:tryLowerLazyConditionalRegion, before a region's
// instructions ever reach this function.
func (l *lowerer) lowerExpr(e ir.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *ir.Identifier:
		return l.lowerIdentifierRead(x.Name)

	case *ir.Literal:
		return &ast.Literal{Kind: ast.LiteralKind(x.LitKind), Raw: x.Raw}

	case *ir.Call:
		return &ast.CallExpr{Callee: l.lowerCallee(x.Callee), Args: l.lowerExprList(x.Args)}

	case *ir.OptionalCall:
		return &ast.CallExpr{Callee: l.lowerCallee(x.Callee), Args: l.lowerExprList(x.Args), Optional: true}

	case *ir.Member:
		return l.lowerMember(x.Object, x.Property, x.Computed, false)

	case *ir.OptionalMember:
		return l.lowerMember(x.Object, x.Property, x.Computed, true)

	case *ir.Binary:
		return &ast.BinaryExpr{Op: x.Op, Left: l.lowerExpr(x.Left), Right: l.lowerExpr(x.Right)}

	case *ir.Logical:
		return &ast.LogicalExpr{Op: x.Op, Left: l.lowerExpr(x.Left), Right: l.lowerExpr(x.Right)}

	case *ir.Unary:
		return &ast.UnaryExpr{Op: x.Op, Value: l.lowerExpr(x.Value)}

	case *ir.Conditional:
		return &ast.ConditionalExpr{Test: l.lowerExpr(x.Test), Cons: l.lowerExpr(x.Cons), Alt: l.lowerExpr(x.Alt)}

	case *ir.Array:
		return &ast.ArrayExpr{Elements: l.lowerExprList(x.Elements)}

	case *ir.Object:
		props := make([]ast.ObjectProperty, len(x.Properties))
		for i, p := range x.Properties {
			props[i] = ast.ObjectProperty{
				Key:       p.Key,
				Computed:  l.lowerExpr(p.Computed),
				Value:     l.lowerExpr(p.Value),
				Shorthand: p.Shorthand,
				IsSpread:  p.IsSpread,
			}
		}
		return &ast.ObjectExpr{Properties: props}

	case *ir.JSXElement:
		return l.lowerJSX(x)

	case *ir.ArrowFunction:
		return l.lowerArrowFunction(x)

	case *ir.FunctionExpression:
		return l.lowerFunctionExpression(x)

	case *ir.AssignmentExpression:
		return l.lowerAssignmentExpr(x)

	case *ir.UpdateExpression:
		return l.lowerUpdateExpr(x)

	case *ir.TemplateLiteral:
		return &ast.TemplateLiteral{Quasis: append([]string(nil), x.Quasis...), Exprs: l.lowerExprList(x.Exprs)}

	case *ir.SpreadElement:
		return &ast.SpreadElement{Value: l.lowerExpr(x.Value)}

	case *ir.Await:
		// The target runtime has no distinct await node; an awaited call
		// lowers to the call itself, since every lowering surface here
		// already runs inside the reactive runtime's own async scheduling.
		return l.lowerExpr(x.Value)

	case *ir.New:
		return &ast.NewExpr{Callee: l.lowerExpr(x.Callee), Args: l.lowerExprList(x.Args)}

	case *ir.Sequence:
		return &ast.SequenceExpr{Exprs: l.lowerExprList(x.Exprs)}

	case *ir.This:
		return &ast.ThisExpr{}

	case *ir.Yield, *ir.TaggedTemplate, *ir.Class, *ir.Super:
		l.warnings = append(l.warnings, "lowering unsupported expression kind as opaque pass-through")
		return &ast.Identifier{Name: "undefined"}
	}
	return &ast.Identifier{Name: "undefined"}
}

func (l *lowerer) lowerExprList(in []ir.Expr) []ast.Expr {
	if in == nil {
		return nil
	}
	out := make([]ast.Expr, len(in))
	for i, e := range in {
		out[i] = l.lowerExpr(e)
	}
	return out
}

// lowerCallee lowers a call target without applying the dependency-getter
// rewrite to its own identifier: `signalName()` must stay a call to the
// getter itself, not a call to the getter's result.
func (l *lowerer) lowerCallee(e ir.Expr) ast.Expr {
	if id, ok := e.(*ir.Identifier); ok {
		if l.isTrackedCall(id.Name) {
			return &ast.Identifier{Name: id.Name}
		}
	}
	return l.lowerExpr(e)
}

// lowerIdentifierRead is rule 1: a bare read of a tracked, unshadowed name
// becomes a getter call.
func (l *lowerer) lowerIdentifierRead(name string) ast.Expr {
	base := ir.BaseName(name)
	if l.isTrackedRead(base) {
		return &ast.CallExpr{Callee: &ast.Identifier{Name: base}}
	}
	return &ast.Identifier{Name: name}
}

func (l *lowerer) isTrackedRead(base string) bool {
	if l.isShadowed(base) {
		return false
	}
	switch l.tracked[base] {
	case trackedSignal, trackedMemo, trackedDerived:
		return true
	}
	return false
}

// lowerMember is rule 8: a property path rooted at a tracked identifier
// reads through the same getter call before the member access applies, so
// `point.x` reads the memoized/signal value's current shape rather than a
// value captured at declaration time.
func (l *lowerer) lowerMember(obj ir.Expr, property string, computed ir.Expr, optional bool) ast.Expr {
	out := &ast.MemberExpr{Object: l.lowerExpr(obj), Property: property, Optional: optional}
	if computed != nil {
		out.Computed = l.lowerExpr(computed)
	}
	return out
}

// lowerAssignmentExpr is rule 2: writing a tracked name calls its setter
// with the recomputed value instead of reassigning it directly. Compound
// operators (`+=`, `||=`, ...) expand to `name(name() op value)` so the
// read side of the operator still goes through the getter.
func (l *lowerer) lowerAssignmentExpr(x *ir.AssignmentExpression) ast.Expr {
	id, ok := x.Target.(*ir.Identifier)
	if !ok {
		return &ast.AssignExpr{Op: x.Op, Target: l.lowerExpr(x.Target), Value: l.lowerExpr(x.Value)}
	}
	base := ir.BaseName(id.Name)
	if !l.isTrackedRead(base) {
		return &ast.AssignExpr{Op: x.Op, Target: &ast.Identifier{Name: id.Name}, Value: l.lowerExpr(x.Value)}
	}

	value := l.lowerExpr(x.Value)
	if x.Op != "=" {
		op := x.Op[:len(x.Op)-1] // "+=" -> "+"
		current := &ast.CallExpr{Callee: &ast.Identifier{Name: base}}
		value = &ast.BinaryExpr{Op: op, Left: current, Right: value}
	}
	return &ast.CallExpr{Callee: &ast.Identifier{Name: base}, Args: []ast.Expr{value}}
}

// lowerUpdateExpr is rule 2's `++`/`--` case: `x++` becomes
// `x(x() + 1)`. The target runtime has no postfix-return-then-increment
// setter form, so both prefix and postfix update expressions lower to the
// same setter call; the distinct old-value result a postfix read would
// need in source is never observable here because reactive-DCE guarantees
// an update's own expression value is never the thing read onward (the
// SSA form already captured the pre-update value under its own name if
// anything downstream needed it).
func (l *lowerer) lowerUpdateExpr(x *ir.UpdateExpression) ast.Expr {
	id, ok := x.Target.(*ir.Identifier)
	if !ok {
		return &ast.UpdateExpr{Op: x.Op, Prefix: x.Prefix, Target: l.lowerExpr(x.Target)}
	}
	base := ir.BaseName(id.Name)
	if !l.isTrackedRead(base) {
		return &ast.UpdateExpr{Op: x.Op, Prefix: x.Prefix, Target: &ast.Identifier{Name: id.Name}}
	}
	delta := "1"
	op := "+"
	if x.Op == "--" {
		op = "-"
	}
	current := &ast.CallExpr{Callee: &ast.Identifier{Name: base}}
	next := &ast.BinaryExpr{Op: op, Left: current, Right: &ast.Literal{Kind: ast.LitNumber, Raw: delta}}
	return &ast.CallExpr{Callee: &ast.Identifier{Name: base}, Args: []ast.Expr{next}}
}

// lowerArrowFunction structurizes and lowers a nested arrow function's own
// block body independently of the enclosing function's structurization,
// pushing its parameters onto the shadow stack so reads of an
// outer-tracked name with the same spelling resolve to the parameter, not
// the getter.
func (l *lowerer) lowerArrowFunction(x *ir.ArrowFunction) ast.Expr {
	out := &ast.ArrowFunctionExpr{Params: paramNamesOf(x.Params), IsAsync: x.IsAsync}
	if x.Body == nil {
		return out
	}
	body, exprBody := l.lowerNestedFunctionBody(x.Body, x.IsExpression)
	out.Body = body
	out.ExprBody = exprBody
	return out
}

func (l *lowerer) lowerFunctionExpression(x *ir.FunctionExpression) ast.Expr {
	out := &ast.FunctionExpr{Name: x.Name, Params: paramNamesOf(x.Params), IsAsync: x.IsAsync}
	if x.Body != nil {
		body, _ := l.lowerNestedFunctionBody(x.Body, false)
		out.Body = body
	}
	return out
}

func paramNamesOf(params []ir.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}

// lowerNestedFunctionBody runs control-flow analysis and structurizing on
// the nested function body the expression node holds (SSA conversion and
// the optimizer are not run on it), then lowers the result with this lowerer's
// reactive/shape/region analyses still in scope (a nested function's reads
// of an enclosing tracked name are governed by the same scope table; only
// the shadow stack changes).
func (l *lowerer) lowerNestedFunctionBody(fn *ir.Function, wantExpr bool) (*ast.BlockStmt, ast.Expr) {
	l.pushShadow(paramNamesOf(fn.Params))
	defer l.popShadow()

	if wantExpr && len(fn.Blocks) == 1 && fn.Blocks[0].Terminator != nil {
		if ret, ok := fn.Blocks[0].Terminator.(*ir.Return); ok && len(fn.Blocks[0].Instructions) == 0 && ret.Value != nil {
			return nil, l.lowerExpr(ret.Value)
		}
	}

	graph, err := cfg.Analyze(fn)
	if err != nil {
		l.warnings = append(l.warnings, "nested function control-flow analysis failed, lowering as empty body")
		return &ast.BlockStmt{}, nil
	}
	root, warning, err := structurize.Structurize(fn, graph)
	if warning != "" {
		l.warnings = append(l.warnings, warning)
	}
	if err != nil {
		l.warnings = append(l.warnings, "nested function structurizing failed, lowering as empty body")
		return &ast.BlockStmt{}, nil
	}

	// A nested function body sits outside the region tree built for its
	// enclosing function, so it never groups into a memo wrapper on its
	// own; region-flagged derived state it reads still lowers through
	// rule 1/8's getter rewrite regardless.
	savedBlockRegion := l.blockRegion
	l.blockRegion = nil
	stmts := l.lowerSequenceChildren(root.Children)
	l.blockRegion = savedBlockRegion
	return &ast.BlockStmt{Body: stmts}, nil
}
