package fjs

import (
	"strings"
	"unicode"

	"fictc/internal/ast"
)

// parseJSXElement parses `<Tag attr=... >children</Tag>` or the
// self-closing form `<Tag attr=... />`. It is entered with the current
// token positioned at '<'.
func (p *Parser) parseJSXElement() ast.Expr {
	openTok := p.consume(LT, "expected '<' to start JSX element")
	tagTok := p.consume(IDENTIFIER, "expected JSX tag name")
	tag := tagTok.Lexeme
	isComponent := len(tag) > 0 && unicode.IsUpper(rune(tag[0]))

	el := &ast.JSXElement{Tag: tag, IsComponent: isComponent, Position: p.makePos(openTok)}

	for !p.check(GT) && !p.check(SLASH_GT) && !p.isAtEnd() {
		if p.match(LEFT_BRACE) {
			// {...spreadExpr}
			if p.match(SPREAD) {
				value := p.parseAssignExpr()
				el.Attributes = append(el.Attributes, ast.JSXAttribute{IsSpread: true, Value: value})
			}
			p.consume(RIGHT_BRACE, "expected '}' after spread attribute")
			continue
		}

		name := p.parseJSXAttributeName()
		if p.match(ASSIGN) {
			var value ast.Expr
			if p.match(LEFT_BRACE) {
				value = p.parseAssignExpr()
				p.consume(RIGHT_BRACE, "expected '}' closing JSX attribute expression")
			} else if p.check(STRING) {
				tok := p.advance()
				value = &ast.Literal{Kind: ast.LitString, Raw: tok.Lexeme, Position: p.makePos(tok)}
			}
			el.Attributes = append(el.Attributes, ast.JSXAttribute{Name: name, Value: value})
		} else {
			el.Attributes = append(el.Attributes, ast.JSXAttribute{Name: name, Value: nil})
		}
	}

	if p.match(SLASH_GT) {
		return el
	}
	p.consume(GT, "expected '>' closing JSX open tag")

	el.Children = p.parseJSXChildren()

	// closing tag: '<', '/', Ident, '>'
	p.consume(LT, "expected '<' starting JSX closing tag")
	p.match(SLASH)
	p.consume(IDENTIFIER, "expected closing tag name")
	p.consume(GT, "expected '>' closing JSX element")

	return el
}

func (p *Parser) parseJSXAttributeName() string {
	tok := p.consume(IDENTIFIER, "expected JSX attribute name")
	name := tok.Lexeme
	for p.check(MINUS) {
		p.advance()
		next := p.consume(IDENTIFIER, "expected identifier after '-' in attribute name")
		name += "-" + next.Lexeme
	}
	return name
}

// parseJSXChildren consumes raw text and {expr}/<Element> children until it
// sees the start of a closing tag ('<' followed by '/').
func (p *Parser) parseJSXChildren() []ast.Expr {
	var children []ast.Expr
	var textBuf strings.Builder
	textStart := p.peek()

	flushText := func() {
		text := textBuf.String()
		if strings.TrimSpace(text) != "" {
			children = append(children, &ast.JSXText{Value: text, Position: p.makePos(textStart)})
		}
		textBuf.Reset()
	}

	for !p.isAtEnd() {
		if p.check(LT) && p.peekAt(1).Type == SLASH {
			break
		}
		if p.check(LT) {
			flushText()
			children = append(children, p.parseJSXElement())
			textStart = p.peek()
			continue
		}
		if p.check(LEFT_BRACE) {
			flushText()
			tok := p.advance()
			value := p.parseExpr()
			p.consume(RIGHT_BRACE, "expected '}' closing JSX expression child")
			children = append(children, &ast.JSXExprChild{Value: value, Position: p.makePos(tok)})
			textStart = p.peek()
			continue
		}
		tok := p.advance()
		if textBuf.Len() > 0 {
			textBuf.WriteByte(' ')
		}
		textBuf.WriteString(tok.Lexeme)
	}
	flushText()
	return children
}
