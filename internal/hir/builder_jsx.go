package hir

import (
	"fictc/internal/ast"
	"fictc/internal/ir"
)

func (b *Builder) convertJSXElement(x *ast.JSXElement) (ir.Expr, error) {
	el := &ir.JSXElement{Tag: x.Tag, IsComponent: x.IsComponent, Position: x.Position}

	for _, attr := range x.Attributes {
		var val ir.Expr
		if attr.Value != nil {
			v, err := b.convertExpr(attr.Value)
			if err != nil {
				return nil, err
			}
			val = v
		}
		el.Attributes = append(el.Attributes, ir.JSXAttribute{Name: attr.Name, Value: val, IsSpread: attr.IsSpread})
	}

	for _, child := range x.Children {
		if text, ok := child.(*ast.JSXText); ok {
			el.Children = append(el.Children, &ir.Literal{LitKind: ir.LitString, Raw: "'" + text.Value + "'", Position: text.Position})
			continue
		}
		c, err := b.convertExpr(child)
		if err != nil {
			return nil, err
		}
		el.Children = append(el.Children, c)
	}

	return el, nil
}
