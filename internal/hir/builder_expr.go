package hir

import (
	"fictc/internal/ast"
	"fictc/internal/directives"
	"fictc/internal/ir"
)

func (b *Builder) convertExpr(e ast.Expr) (ir.Expr, error) {
	switch x := e.(type) {
	case *ast.Identifier:
		return &ir.Identifier{Name: x.Name, Position: x.Position}, nil
	case *ast.Literal:
		return &ir.Literal{LitKind: litKind(x.Kind), Raw: x.Raw, Position: x.Position}, nil
	case *ast.ThisExpr:
		return &ir.This{Position: x.Position}, nil
	case *ast.CallExpr:
		callee, err := b.convertExpr(x.Callee)
		if err != nil {
			return nil, err
		}
		args, err := b.convertExprList(x.Args)
		if err != nil {
			return nil, err
		}
		if x.Optional {
			return &ir.OptionalCall{Callee: callee, Args: args, Position: x.Position}, nil
		}
		return &ir.Call{Callee: callee, Args: args, Position: x.Position}, nil
	case *ast.MemberExpr:
		obj, err := b.convertExpr(x.Object)
		if err != nil {
			return nil, err
		}
		var computed ir.Expr
		if x.Computed != nil {
			c, err := b.convertExpr(x.Computed)
			if err != nil {
				return nil, err
			}
			computed = c
		}
		if x.Optional {
			return &ir.OptionalMember{Object: obj, Property: x.Property, Computed: computed, Position: x.Position}, nil
		}
		return &ir.Member{Object: obj, Property: x.Property, Computed: computed, Position: x.Position}, nil
	case *ast.BinaryExpr:
		left, err := b.convertExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.convertExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: x.Op, Left: left, Right: right, Position: x.Position}, nil
	case *ast.LogicalExpr:
		left, err := b.convertExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.convertExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return &ir.Logical{Op: x.Op, Left: left, Right: right, Position: x.Position}, nil
	case *ast.UnaryExpr:
		val, err := b.convertExpr(x.Value)
		if err != nil {
			return nil, err
		}
		if x.Op == "await" {
			return &ir.Await{Value: val, Position: x.Position}, nil
		}
		return &ir.Unary{Op: x.Op, Prefix: true, Value: val, Position: x.Position}, nil
	case *ast.UpdateExpr:
		target, err := b.convertExpr(x.Target)
		if err != nil {
			return nil, err
		}
		return &ir.UpdateExpression{Op: x.Op, Prefix: x.Prefix, Target: target, Position: x.Position}, nil
	case *ast.AssignExpr:
		target, err := b.convertExpr(x.Target)
		if err != nil {
			return nil, err
		}
		value, err := b.convertExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return &ir.AssignmentExpression{Op: x.Op, Target: target, Value: value, Position: x.Position}, nil
	case *ast.ConditionalExpr:
		test, err := b.convertExpr(x.Test)
		if err != nil {
			return nil, err
		}
		cons, err := b.convertExpr(x.Cons)
		if err != nil {
			return nil, err
		}
		alt, err := b.convertExpr(x.Alt)
		if err != nil {
			return nil, err
		}
		return &ir.Conditional{Test: test, Cons: cons, Alt: alt, Position: x.Position}, nil
	case *ast.ArrayExpr:
		elems, err := b.convertExprList(x.Elements)
		if err != nil {
			return nil, err
		}
		return &ir.Array{Elements: elems, Position: x.Position}, nil
	case *ast.ObjectExpr:
		return b.convertObjectExpr(x)
	case *ast.SpreadElement:
		val, err := b.convertExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return &ir.SpreadElement{Value: val, Position: x.Position}, nil
	case *ast.SequenceExpr:
		exprs, err := b.convertExprList(x.Exprs)
		if err != nil {
			return nil, err
		}
		return &ir.Sequence{Exprs: exprs, Position: x.Position}, nil
	case *ast.NewExpr:
		callee, err := b.convertExpr(x.Callee)
		if err != nil {
			return nil, err
		}
		args, err := b.convertExprList(x.Args)
		if err != nil {
			return nil, err
		}
		return &ir.New{Callee: callee, Args: args, Position: x.Position}, nil
	case *ast.TemplateLiteral:
		exprs, err := b.convertExprList(x.Exprs)
		if err != nil {
			return nil, err
		}
		return &ir.TemplateLiteral{Quasis: x.Quasis, Exprs: exprs, Position: x.Position}, nil
	case *ast.ArrowFunctionExpr:
		return b.convertArrow(x)
	case *ast.FunctionExpr:
		return b.convertFunctionExpr(x)
	case *ast.JSXElement:
		return b.convertJSXElement(x)
	case *ast.JSXExprChild:
		return b.convertExpr(x.Value)
	case *ast.JSXText:
		return &ir.Literal{LitKind: ir.LitString, Raw: "'" + x.Value + "'", Position: x.Position}, nil
	default:
		return nil, directives.Newf(directives.BuildError, "unsupported expression type %T", e)
	}
}

func (b *Builder) convertExprList(in []ast.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(in))
	for _, e := range in {
		v, err := b.convertExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *Builder) convertObjectExpr(x *ast.ObjectExpr) (ir.Expr, error) {
	obj := &ir.Object{Position: x.Position}
	for _, prop := range x.Properties {
		if prop.IsSpread {
			val, err := b.convertExpr(prop.Value)
			if err != nil {
				return nil, err
			}
			obj.Properties = append(obj.Properties, ir.ObjectProperty{IsSpread: true, Value: val})
			continue
		}
		var computed ir.Expr
		if prop.Computed != nil {
			c, err := b.convertExpr(prop.Computed)
			if err != nil {
				return nil, err
			}
			computed = c
		}
		val, err := b.convertExpr(prop.Value)
		if err != nil {
			return nil, err
		}
		obj.Properties = append(obj.Properties, ir.ObjectProperty{
			Key: prop.Key, Computed: computed, Value: val, Shorthand: prop.Shorthand,
		})
	}
	return obj, nil
}

func (b *Builder) convertArrow(x *ast.ArrowFunctionExpr) (ir.Expr, error) {
	nested := &ir.Function{IsArrow: true, IsAsync: x.IsAsync, Pos: x.Position}
	for _, p := range x.Params {
		nested.Params = append(nested.Params, ir.Param{Name: p, Pos: x.Position})
	}
	nb := &Builder{fn: nested, lifted: b.lifted}
	nb.cur = nb.newBlock()

	if x.ExprBody != nil {
		nested.ExprBody = true
		val, err := nb.convertExpr(x.ExprBody)
		if err != nil {
			return nil, err
		}
		nb.cur.Terminator = &ir.Return{Value: val, Position: x.Position}
	} else {
		if err := nb.buildStatements(x.Body.Body); err != nil {
			return nil, err
		}
		nb.terminateFallthrough(&ir.Return{Position: x.Position})
	}

	return &ir.ArrowFunction{Params: nested.Params, Body: nested, IsExpression: nested.ExprBody, IsAsync: x.IsAsync, Position: x.Position}, nil
}

func (b *Builder) convertFunctionExpr(x *ast.FunctionExpr) (ir.Expr, error) {
	nested := &ir.Function{Name: x.Name, IsAsync: x.IsAsync, Pos: x.Position}
	for _, p := range x.Params {
		nested.Params = append(nested.Params, ir.Param{Name: p, Pos: x.Position})
	}
	nb := &Builder{fn: nested, lifted: b.lifted}
	nb.cur = nb.newBlock()
	if err := nb.buildStatements(x.Body.Body); err != nil {
		return nil, err
	}
	nb.terminateFallthrough(&ir.Return{Position: x.Position})

	return &ir.FunctionExpression{Name: x.Name, Params: nested.Params, Body: nested, IsAsync: x.IsAsync, Position: x.Position}, nil
}

func litKind(k ast.LiteralKind) ir.LiteralKind {
	switch k {
	case ast.LitString:
		return ir.LitString
	case ast.LitNumber:
		return ir.LitNumber
	case ast.LitBool:
		return ir.LitBool
	case ast.LitNull:
		return ir.LitNull
	case ast.LitUndefined:
		return ir.LitUndefined
	case ast.LitBigInt:
		return ir.LitBigInt
	case ast.LitRegex:
		return ir.LitRegex
	default:
		return ir.LitUndefined
	}
}
