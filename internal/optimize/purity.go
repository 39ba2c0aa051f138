package optimize

import "fictc/internal/ir"

// pureCallees are the fixed small set of globals whose calls are always
// pure regardless of argument reactivity.
var pureCallees = map[string]bool{
	"String": true, "Number": true, "Boolean": true, "BigInt": true,
	"parseInt": true, "parseFloat": true,
	"Math.abs": true, "Math.min": true, "Math.max": true, "Math.round": true,
	"Math.floor": true, "Math.ceil": true, "Math.sqrt": true, "Math.pow": true,
}

// impureCallees are the reactivity creators and effect/render primitives;
// any identifier assigned from a call to one of these is impure.
var impureCallees = map[string]bool{
	"createSignal": true, "createStore": true, "createMemo": true,
	"createEffect": true, "useEffect": true, "useMemo": true,
	"createElement": true, "render": true, "effect": true, "memo": true,
}

// PurityPass computes, per assigned base name, whether its defining
// expression is pure: fixpoint over the program, since an identifier
// assigned from an expression that itself reads an impure identifier is
// impure by contagion.
type PurityPass struct{}

func (p *PurityPass) Name() string { return "purity-context" }
func (p *PurityPass) Description() string {
	return "computes a fixpoint purity classification over every assigned identifier"
}

func (p *PurityPass) Apply(ctx *Context) bool {
	purity := make(map[string]bool)

	changed := true
	for changed {
		changed = false
		for _, blk := range ctx.Fn.Blocks {
			for _, inst := range blk.Instructions {
				a, ok := inst.(*ir.Assign)
				if !ok {
					continue
				}
				base := ir.BaseName(a.Target)
				wasPure, seen := purity[base]
				nowPure := isPureExpr(a.Value, purity)
				if !seen || wasPure != nowPure {
					purity[base] = nowPure
					changed = true
				}
			}
		}
	}

	ctx.Purity = purity
	return len(purity) > 0
}

func isPureExpr(e ir.Expr, purity map[string]bool) bool {
	switch x := e.(type) {
	case nil:
		return true
	case *ir.Literal, *ir.Identifier, *ir.This:
		if id, ok := e.(*ir.Identifier); ok {
			if p, seen := purity[id.Name]; seen {
				return p
			}
		}
		return true
	case *ir.Call:
		name := calleeName(x.Callee)
		if impureCallees[name] {
			return false
		}
		if !pureCallees[name] {
			return false // unknown callee: conservatively impure
		}
		for _, a := range x.Args {
			if !isPureExpr(a, purity) {
				return false
			}
		}
		return true
	case *ir.OptionalCall:
		return false
	case *ir.Member:
		return isPureExpr(x.Object, purity) && isPureExpr(x.Computed, purity)
	case *ir.OptionalMember:
		return isPureExpr(x.Object, purity) && isPureExpr(x.Computed, purity)
	case *ir.Binary:
		return isPureExpr(x.Left, purity) && isPureExpr(x.Right, purity)
	case *ir.Logical:
		return isPureExpr(x.Left, purity) && isPureExpr(x.Right, purity)
	case *ir.Unary:
		return isPureExpr(x.Value, purity)
	case *ir.Conditional:
		return isPureExpr(x.Test, purity) && isPureExpr(x.Cons, purity) && isPureExpr(x.Alt, purity)
	case *ir.Array:
		for _, el := range x.Elements {
			if !isPureExpr(el, purity) {
				return false
			}
		}
		return true
	case *ir.Object:
		for _, prop := range x.Properties {
			if !isPureExpr(prop.Value, purity) {
				return false
			}
		}
		return true
	case *ir.TemplateLiteral:
		for _, ex := range x.Exprs {
			if !isPureExpr(ex, purity) {
				return false
			}
		}
		return true
	case *ir.Sequence:
		for _, ex := range x.Exprs {
			if !isPureExpr(ex, purity) {
				return false
			}
		}
		return true
	case *ir.New, *ir.Await, *ir.AssignmentExpression, *ir.UpdateExpression, *ir.JSXElement, *ir.Yield:
		return false
	default:
		return true
	}
}

func calleeName(e ir.Expr) string {
	switch x := e.(type) {
	case *ir.Identifier:
		return x.Name
	case *ir.Member:
		if x.Computed == nil {
			return calleeName(x.Object) + "." + x.Property
		}
	}
	return ""
}
