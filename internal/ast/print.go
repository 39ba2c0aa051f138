package ast

import (
	"fmt"
	"strings"
)

// Printer renders a target AST back into JS-shaped source text, in the
// same accumulating-builder shape as the teacher's IR printer: one method
// per node kind, writing into a shared strings.Builder under an indent
// counter.
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer { return &Printer{} }

// PrintStatements renders a flat statement list (what codegen.Result.Body
// holds for one function) as a sequence of top-level lines.
func PrintStatements(stmts []Stmt) string {
	p := NewPrinter()
	for _, s := range stmts {
		p.printStmt(s)
	}
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printBlock(b *BlockStmt) {
	if b == nil {
		p.output.WriteString("{}")
		return
	}
	p.output.WriteString("{\n")
	p.indent++
	for _, s := range b.Body {
		p.printStmt(s)
	}
	p.indent--
	p.writeIndent()
	p.output.WriteString("}")
}

func (p *Printer) printStmt(s Stmt) {
	switch x := s.(type) {
	case *ExprStmt:
		p.writeLine("%s;", p.expr(x.Expr))
	case *DirectiveStmt:
		p.writeLine("%q;", x.Value)
	case *VarDecl:
		var parts []string
		for _, d := range x.Declarators {
			if d.Init == nil {
				parts = append(parts, d.Name)
			} else {
				parts = append(parts, fmt.Sprintf("%s = %s", d.Name, p.expr(d.Init)))
			}
		}
		p.writeLine("%s %s;", declKindWord(x.Kind), strings.Join(parts, ", "))
	case *BlockStmt:
		p.writeIndent()
		p.printBlock(x)
		p.output.WriteString("\n")
	case *IfStmt:
		p.writeIndent()
		p.output.WriteString(fmt.Sprintf("if (%s) ", p.expr(x.Test)))
		p.printInlineStmt(x.Cons)
		if x.Alt != nil {
			p.output.WriteString(" else ")
			p.printInlineStmt(x.Alt)
		}
		p.output.WriteString("\n")
	case *WhileStmt:
		p.writeIndent()
		p.output.WriteString(labelPrefix(x.Label) + fmt.Sprintf("while (%s) ", p.expr(x.Test)))
		p.printInlineStmt(x.Body)
		p.output.WriteString("\n")
	case *DoWhileStmt:
		p.writeIndent()
		p.output.WriteString(labelPrefix(x.Label) + "do ")
		p.printInlineStmt(x.Body)
		p.output.WriteString(fmt.Sprintf(" while (%s);\n", p.expr(x.Test)))
	case *ForOfStmt:
		p.writeIndent()
		p.output.WriteString(labelPrefix(x.Label) + fmt.Sprintf("for (%s %s of %s) ", declKindWord(x.VarKind), x.VarName, p.expr(x.Iter)))
		p.printInlineStmt(x.Body)
		p.output.WriteString("\n")
	case *ForInStmt:
		p.writeIndent()
		p.output.WriteString(labelPrefix(x.Label) + fmt.Sprintf("for (%s %s in %s) ", declKindWord(x.VarKind), x.VarName, p.expr(x.Obj)))
		p.printInlineStmt(x.Body)
		p.output.WriteString("\n")
	case *ForStmt:
		p.writeLine("%sfor (...) ...", labelPrefix(x.Label))
	case *ReturnStmt:
		if x.Value == nil {
			p.writeLine("return;")
		} else {
			p.writeLine("return %s;", p.expr(x.Value))
		}
	case *ThrowStmt:
		p.writeLine("throw %s;", p.expr(x.Value))
	case *BreakStmt:
		if x.Label != "" {
			p.writeLine("break %s;", x.Label)
		} else {
			p.writeLine("break;")
		}
	case *ContinueStmt:
		if x.Label != "" {
			p.writeLine("continue %s;", x.Label)
		} else {
			p.writeLine("continue;")
		}
	case *SwitchStmt:
		p.writeLine("switch (%s) {", p.expr(x.Disc))
		p.indent++
		for _, c := range x.Cases {
			if c.Test == nil {
				p.writeLine("default:")
			} else {
				p.writeLine("case %s:", p.expr(c.Test))
			}
			p.indent++
			for _, s := range c.Body {
				p.printStmt(s)
			}
			p.indent--
		}
		p.indent--
		p.writeLine("}")
	case *TryStmt:
		p.writeIndent()
		p.output.WriteString("try ")
		p.printBlock(x.Block)
		if x.CatchBlock != nil {
			p.output.WriteString(fmt.Sprintf(" catch (%s) ", x.CatchParam))
			p.printBlock(x.CatchBlock)
		}
		if x.FinallyBlock != nil {
			p.output.WriteString(" finally ")
			p.printBlock(x.FinallyBlock)
		}
		p.output.WriteString("\n")
	case *FunctionDecl:
		p.writeIndent()
		p.output.WriteString(fmt.Sprintf("function %s(%s) ", x.Name, strings.Join(x.Params, ", ")))
		p.printBlock(x.Body)
		p.output.WriteString("\n")
	default:
		p.writeLine("/* unknown statement */")
	}
}

func (p *Printer) printInlineStmt(s Stmt) {
	if b, ok := s.(*BlockStmt); ok {
		p.printBlock(b)
		return
	}
	p.output.WriteString("{\n")
	p.indent++
	p.printStmt(s)
	p.indent--
	p.writeIndent()
	p.output.WriteString("}")
}

func declKindWord(k DeclKind) string {
	switch k {
	case DeclLet:
		return "let"
	case DeclVar:
		return "var"
	default:
		return "const"
	}
}

func labelPrefix(label string) string {
	if label == "" {
		return ""
	}
	return label + ": "
}

// isFunctionLiteral reports whether e prints as a function/arrow literal,
// which needs wrapping parens when called immediately (an IIFE): `x => y`
// called bare would parse as `x => (y())`, not a call of the arrow itself.
func isFunctionLiteral(e Expr) bool {
	switch e.(type) {
	case *ArrowFunctionExpr, *FunctionExpr:
		return true
	default:
		return false
	}
}

// expr renders an expression inline; it never writes a trailing newline or
// indent, since it is always embedded in a statement's own formatting.
func (p *Printer) expr(e Expr) string {
	if e == nil {
		return ""
	}
	switch x := e.(type) {
	case *Identifier:
		return x.Name
	case *Literal:
		return x.Raw
	case *ThisExpr:
		return "this"
	case *CallExpr:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = p.expr(a)
		}
		op := "("
		if x.Optional {
			op = "?.("
		}
		callee := p.expr(x.Callee)
		if isFunctionLiteral(x.Callee) {
			callee = "(" + callee + ")"
		}
		return fmt.Sprintf("%s%s%s)", callee, op, strings.Join(args, ", "))
	case *NewExpr:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = p.expr(a)
		}
		return fmt.Sprintf("new %s(%s)", p.expr(x.Callee), strings.Join(args, ", "))
	case *MemberExpr:
		accessor := "."
		if x.Optional {
			accessor = "?."
		}
		if x.Computed != nil {
			return fmt.Sprintf("%s[%s]", p.expr(x.Object), p.expr(x.Computed))
		}
		return fmt.Sprintf("%s%s%s", p.expr(x.Object), accessor, x.Property)
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", p.expr(x.Left), x.Op, p.expr(x.Right))
	case *LogicalExpr:
		return fmt.Sprintf("(%s %s %s)", p.expr(x.Left), x.Op, p.expr(x.Right))
	case *UnaryExpr:
		if x.Op == "!" || x.Op == "-" || x.Op == "+" || x.Op == "~" || x.Op == "typeof" {
			return fmt.Sprintf("%s%s", x.Op, p.expr(x.Value))
		}
		return fmt.Sprintf("%s %s", x.Op, p.expr(x.Value))
	case *UpdateExpr:
		if x.Prefix {
			return fmt.Sprintf("%s%s", x.Op, p.expr(x.Target))
		}
		return fmt.Sprintf("%s%s", p.expr(x.Target), x.Op)
	case *AssignExpr:
		return fmt.Sprintf("%s %s %s", p.expr(x.Target), x.Op, p.expr(x.Value))
	case *ConditionalExpr:
		return fmt.Sprintf("(%s ? %s : %s)", p.expr(x.Test), p.expr(x.Cons), p.expr(x.Alt))
	case *ArrayExpr:
		els := make([]string, len(x.Elements))
		for i, el := range x.Elements {
			els[i] = p.expr(el)
		}
		return fmt.Sprintf("[%s]", strings.Join(els, ", "))
	case *ObjectExpr:
		var props []string
		for _, prop := range x.Properties {
			switch {
			case prop.IsSpread:
				props = append(props, "..."+p.expr(prop.Value))
			case prop.Shorthand:
				props = append(props, prop.Key)
			case prop.Computed != nil:
				props = append(props, fmt.Sprintf("[%s]: %s", p.expr(prop.Computed), p.expr(prop.Value)))
			default:
				props = append(props, fmt.Sprintf("%s: %s", prop.Key, p.expr(prop.Value)))
			}
		}
		return fmt.Sprintf("{ %s }", strings.Join(props, ", "))
	case *ArrowFunctionExpr:
		params := strings.Join(x.Params, ", ")
		if x.ExprBody != nil {
			return fmt.Sprintf("(%s) => %s", params, p.expr(x.ExprBody))
		}
		inner := NewPrinter()
		inner.indent = p.indent
		inner.printBlock(x.Body)
		return fmt.Sprintf("(%s) => %s", params, inner.output.String())
	case *FunctionExpr:
		inner := NewPrinter()
		inner.indent = p.indent
		inner.printBlock(x.Body)
		return fmt.Sprintf("function %s(%s) %s", x.Name, strings.Join(x.Params, ", "), inner.output.String())
	case *TemplateLiteral:
		var b strings.Builder
		b.WriteString("`")
		for i, q := range x.Quasis {
			b.WriteString(q)
			if i < len(x.Exprs) {
				b.WriteString("${" + p.expr(x.Exprs[i]) + "}")
			}
		}
		b.WriteString("`")
		return b.String()
	case *SpreadElement:
		return "..." + p.expr(x.Value)
	case *SequenceExpr:
		parts := make([]string, len(x.Exprs))
		for i, e := range x.Exprs {
			parts[i] = p.expr(e)
		}
		return strings.Join(parts, ", ")
	case *JSXElement:
		return p.jsxElement(x)
	case *JSXExprChild:
		return "{" + p.expr(x.Value) + "}"
	case *JSXText:
		return x.Value
	default:
		return "/* unknown expr */"
	}
}

func (p *Printer) jsxElement(x *JSXElement) string {
	var attrs []string
	for _, a := range x.Attributes {
		if a.IsSpread {
			attrs = append(attrs, "{..."+p.expr(a.Value)+"}")
			continue
		}
		if a.Value == nil {
			attrs = append(attrs, a.Name)
			continue
		}
		attrs = append(attrs, fmt.Sprintf("%s={%s}", a.Name, p.expr(a.Value)))
	}
	open := x.Tag
	if len(attrs) > 0 {
		open += " " + strings.Join(attrs, " ")
	}
	if len(x.Children) == 0 {
		return fmt.Sprintf("<%s />", open)
	}
	var children []string
	for _, c := range x.Children {
		children = append(children, p.expr(c))
	}
	return fmt.Sprintf("<%s>%s</%s>", open, strings.Join(children, ""), x.Tag)
}
