package codegen

import (
	"strconv"
	"strings"

	"fictc/internal/ast"
	"fictc/internal/cfg"
	"fictc/internal/ir"
	"fictc/internal/structurize"
)

// lowerJSX implements rule 7. A component element, or an intrinsic element
// that spreads attributes onto itself (a static template has no splice
// position for an unknown prop set), lowers to a single createElement(tag,
// props, ...children) call. Every other intrinsic element lowers through
// lowerIntrinsicJSX: a static HTML template string plus an ordered list of
// node-path-addressed bindings, dispatched one call per binding kind.
func (l *lowerer) lowerJSX(x *ir.JSXElement) ast.Expr {
	if x.IsComponent || hasSpreadAttr(x.Attributes) {
		return l.lowerGenericCreateElement(x)
	}
	return l.lowerIntrinsicJSX(x)
}

func hasSpreadAttr(attrs []ir.JSXAttribute) bool {
	for _, a := range attrs {
		if a.IsSpread {
			return true
		}
	}
	return false
}

// lowerGenericCreateElement is rule 7's component form, also reused as the
// carve-out for a spread-carrying intrinsic element: the element becomes a
// single createElement(tag, props, ...children) call, tag being the
// component identifier or the intrinsic tag name literal.
func (l *lowerer) lowerGenericCreateElement(x *ir.JSXElement) ast.Expr {
	var tagExpr ast.Expr
	if x.IsComponent {
		tagExpr = &ast.Identifier{Name: x.Tag}
	} else {
		tagExpr = &ast.Literal{Kind: ast.LitString, Raw: strconv.Quote(x.Tag)}
	}

	props := l.lowerJSXAttributes(x.Attributes)
	args := []ast.Expr{tagExpr, props}
	for _, child := range x.Children {
		args = append(args, l.lowerJSXChild(child))
	}

	return &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperCreateElem)}, Args: args}
}

func (l *lowerer) lowerJSXAttributes(attrs []ir.JSXAttribute) ast.Expr {
	if len(attrs) == 0 {
		return &ast.Literal{Kind: ast.LitNull, Raw: "null"}
	}
	props := make([]ast.ObjectProperty, 0, len(attrs))
	for _, a := range attrs {
		if a.IsSpread {
			props = append(props, ast.ObjectProperty{IsSpread: true, Value: l.lowerExpr(a.Value)})
			continue
		}
		key := a.Name
		if mapped, ok := attrNameMapping[key]; ok {
			key = mapped
		}
		if a.Value == nil {
			props = append(props, ast.ObjectProperty{Key: key, Value: &ast.Literal{Kind: ast.LitBool, Raw: "true"}})
			continue
		}
		props = append(props, ast.ObjectProperty{Key: key, Value: l.lowerJSXPropValue(a.Value)})
	}
	return &ast.ObjectExpr{Properties: props}
}

// lowerJSXPropValue thunks a tracked-reading value so the runtime re-reads
// it on every update; a static value lowers in place.
func (l *lowerer) lowerJSXPropValue(e ir.Expr) ast.Expr {
	value := l.lowerExpr(e)
	if l.exprReadsTracked(e) {
		return &ast.ArrowFunctionExpr{ExprBody: value}
	}
	return value
}

func (l *lowerer) lowerJSXChild(e ir.Expr) ast.Expr {
	if !l.exprReadsTracked(e) {
		return l.lowerExpr(e)
	}
	thunk := &ast.ArrowFunctionExpr{ExprBody: l.lowerExpr(e)}
	return &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperInsert)}, Args: []ast.Expr{thunk}}
}

// jsxBindKind is the binding list's `type` discriminant from the emitted
// template format: attr, event, or child.
type jsxBindKind int

const (
	jsxBindAttr jsxBindKind = iota
	jsxBindEvent
	jsxBindChild
)

// jsxBinding is one entry of rule 7's ordered binding list: a node path
// from the template root, enough to name the bind-call target, and the
// source expression codegen still needs to lower at emission time.
type jsxBinding struct {
	kind      jsxBindKind
	path      []int
	name      string
	eventOpts []string
	value     ir.Expr
}

// jsxTemplateBuilder walks an intrinsic JSX subtree once, emitting its
// static HTML into html and collecting one binding per dynamic attribute,
// event, or child slot it crosses, each tagged with the child-index path
// from the subtree root down to the node the binding targets.
type jsxTemplateBuilder struct {
	html     strings.Builder
	bindings []jsxBinding
}

// lowerIntrinsicJSX extracts the static template and binding list for an
// intrinsic element, then emits it as an IIFE: a clone of the cached
// template, one bind-call statement per binding in path order, and a
// return of the cloned root. The IIFE is the adapter between this node
// needing several statements and lowerExpr's single-expression contract;
// template hoisting to module scope is left to the runtime's own
// template() cache rather than reproduced here.
func (l *lowerer) lowerIntrinsicJSX(root *ir.JSXElement) ast.Expr {
	tb := &jsxTemplateBuilder{}
	tb.writeElement(root, nil)

	id := l.nextTmpl
	l.nextTmpl++
	tmplName := "__tmpl" + strconv.Itoa(id)
	rootName := "__el" + strconv.Itoa(id)

	body := []ast.Stmt{
		&ast.VarDecl{Kind: ast.DeclConst, Declarators: []ast.VarDeclarator{{
			Name: tmplName,
			Init: &ast.CallExpr{
				Callee: &ast.Identifier{Name: l.helpers.use(helperTemplate)},
				Args:   []ast.Expr{&ast.Literal{Kind: ast.LitString, Raw: strconv.Quote(tb.html.String())}},
			},
		}}},
		&ast.VarDecl{Kind: ast.DeclConst, Declarators: []ast.VarDeclarator{{
			Name: rootName,
			Init: &ast.CallExpr{Callee: &ast.Identifier{Name: tmplName}},
		}}},
	}
	for _, b := range tb.bindings {
		body = append(body, l.lowerJSXBinding(rootName, b))
	}
	body = append(body, &ast.ReturnStmt{Value: &ast.Identifier{Name: rootName}})

	return &ast.CallExpr{Callee: &ast.ArrowFunctionExpr{Body: &ast.BlockStmt{Body: body}}}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// writeElement appends x's opening tag, its statically-inlinable
// attributes, its children (recursing into any intrinsic, non-spread
// child so a whole static subtree collapses into one template), and its
// closing tag (omitted for void elements) to tb.html; every attribute or
// child that can't be inlined becomes a binding keyed by path, the
// child-index path from the template root down to x itself.
func (tb *jsxTemplateBuilder) writeElement(x *ir.JSXElement, path []int) {
	tb.html.WriteByte('<')
	tb.html.WriteString(x.Tag)

	var dynamic []ir.JSXAttribute
	for _, a := range x.Attributes {
		if a.Name == "key" {
			continue
		}
		if isBindingOnlyAttr(a.Name) {
			dynamic = append(dynamic, a)
			continue
		}
		if text, ok := staticLiteralText(a.Value); ok {
			name := a.Name
			if mapped, ok := attrNameMapping[name]; ok {
				name = mapped
			}
			tb.html.WriteByte(' ')
			tb.html.WriteString(name)
			tb.html.WriteString(`="`)
			tb.html.WriteString(htmlEscapeAttr(text))
			tb.html.WriteByte('"')
			continue
		}
		if a.Value == nil {
			tb.html.WriteByte(' ')
			tb.html.WriteString(a.Name)
			continue
		}
		dynamic = append(dynamic, a)
	}
	tb.html.WriteByte('>')

	for _, a := range dynamic {
		tb.addAttrBinding(path, a)
	}

	idx := 0
	for _, child := range x.Children {
		childPath := append(append([]int{}, path...), idx)
		tb.writeChild(child, childPath)
		idx++
	}

	if !voidElements[x.Tag] {
		tb.html.WriteString("</")
		tb.html.WriteString(x.Tag)
		tb.html.WriteByte('>')
	}
}

// writeChild appends one DOM-level child to tb.html: static text inlines
// directly, a non-component non-spread nested intrinsic element recurses
// (extending the same static template), and everything else becomes a
// comment placeholder plus one child binding resolved at emission time.
func (tb *jsxTemplateBuilder) writeChild(child ir.Expr, path []int) {
	if lit, ok := child.(*ir.Literal); ok && lit.LitKind == ir.LitString {
		if text, ok := staticLiteralText(lit); ok {
			tb.html.WriteString(htmlEscapeText(text))
			return
		}
	}
	if el, ok := child.(*ir.JSXElement); ok && !el.IsComponent && !hasSpreadAttr(el.Attributes) {
		tb.writeElement(el, path)
		return
	}

	tb.html.WriteString("<!---->")
	tb.bindings = append(tb.bindings, jsxBinding{kind: jsxBindChild, path: path, value: child})
}

// isBindingOnlyAttr names the attribute kinds rule 7 always routes through
// a bind call, even when their value is a literal: events, ref, class(Name),
// style and the fixed DOM-property set (domProperties) are runtime-managed
// regardless of static-ness, unlike a plain
// attribute whose literal value can be inlined directly into the template.
func isBindingOnlyAttr(name string) bool {
	if _, _, ok := parseEventAttr(name); ok {
		return true
	}
	switch name {
	case "ref", "class", "className", "style":
		return true
	}
	return domProperties[name]
}

func (tb *jsxTemplateBuilder) addAttrBinding(path []int, a ir.JSXAttribute) {
	if ev, opts, ok := parseEventAttr(a.Name); ok {
		tb.bindings = append(tb.bindings, jsxBinding{kind: jsxBindEvent, path: path, name: ev, eventOpts: opts, value: a.Value})
		return
	}
	switch a.Name {
	case "ref":
		tb.bindings = append(tb.bindings, jsxBinding{kind: jsxBindAttr, path: path, name: "ref", value: a.Value})
		return
	case "class", "className":
		tb.bindings = append(tb.bindings, jsxBinding{kind: jsxBindAttr, path: path, name: "class", value: a.Value})
		return
	case "style":
		tb.bindings = append(tb.bindings, jsxBinding{kind: jsxBindAttr, path: path, name: "style", value: a.Value})
		return
	}

	value := a.Value
	if value == nil {
		value = &ir.Literal{LitKind: ir.LitBool, Raw: "true"}
	}
	name := a.Name
	if mapped, ok := attrNameMapping[name]; ok {
		name = mapped
	}
	tb.bindings = append(tb.bindings, jsxBinding{kind: jsxBindAttr, path: path, name: name, value: value})
}

// parseEventAttr recognizes an `on<Name>` attribute and splits off one
// trailing Capture/Passive/Once modifier, returning the lowercase DOM
// event name and the options list bindEvent's options object is built
// from.
func parseEventAttr(name string) (eventName string, opts []string, ok bool) {
	if len(name) < 3 || name[0] != 'o' || name[1] != 'n' {
		return "", nil, false
	}
	rest := name[2:]
	if rest[0] < 'A' || rest[0] > 'Z' {
		return "", nil, false
	}
	for _, mod := range []string{"Capture", "Passive", "Once"} {
		if strings.HasSuffix(rest, mod) && len(rest) > len(mod) {
			rest = rest[:len(rest)-len(mod)]
			opts = []string{strings.ToLower(mod)}
			break
		}
	}
	return strings.ToLower(rest), opts, true
}

func staticLiteralText(e ir.Expr) (string, bool) {
	lit, ok := e.(*ir.Literal)
	if !ok {
		return "", false
	}
	switch lit.LitKind {
	case ir.LitString:
		return unquoteJSLiteral(lit.Raw), true
	case ir.LitNumber, ir.LitBool:
		return lit.Raw, true
	}
	return "", false
}

func unquoteJSLiteral(raw string) string {
	if len(raw) >= 2 {
		q := raw[0]
		if (q == '\'' || q == '"') && raw[len(raw)-1] == q {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

func htmlEscapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func htmlEscapeAttr(s string) string {
	return strings.NewReplacer("&", "&amp;", `"`, "&quot;").Replace(s)
}

// pathExpr rebuilds the firstChild/nextSibling chain from rootName down to
// the node at path, independently per binding; intermediate nodes shared
// by several bindings under the same path prefix are recomputed rather
// than cached, trading a little redundant traversal for keeping each
// binding's emission self-contained.
func pathExpr(rootName string, path []int) ast.Expr {
	node := ast.Expr(&ast.Identifier{Name: rootName})
	for _, idx := range path {
		node = &ast.MemberExpr{Object: node, Property: "firstChild"}
		for i := 0; i < idx; i++ {
			node = &ast.MemberExpr{Object: node, Property: "nextSibling"}
		}
	}
	return node
}

func (l *lowerer) lowerJSXBinding(rootName string, b jsxBinding) ast.Stmt {
	node := pathExpr(rootName, b.path)
	switch b.kind {
	case jsxBindEvent:
		return l.lowerEventBinding(node, b)
	case jsxBindAttr:
		return l.lowerAttrBinding(node, b)
	default:
		return l.lowerChildBinding(node, b)
	}
}

func (l *lowerer) callBindStmt(helper string, args ...ast.Expr) ast.Stmt {
	return &ast.ExprStmt{Expr: &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helper)}, Args: args}}
}

func (l *lowerer) lowerAttrBinding(node ast.Expr, b jsxBinding) ast.Stmt {
	switch b.name {
	case "ref":
		return l.callBindStmt(helperBindRef, node, l.lowerExpr(b.value))
	case "class":
		return l.callBindStmt(helperBindClass, node, l.lowerJSXPropValue(b.value))
	case "style":
		return l.callBindStmt(helperBindStyle, node, l.lowerJSXPropValue(b.value))
	}
	nameLit := &ast.Literal{Kind: ast.LitString, Raw: strconv.Quote(b.name)}
	if domProperties[b.name] {
		return l.callBindStmt(helperBindProp, node, nameLit, l.lowerJSXPropValue(b.value))
	}
	return l.callBindStmt(helperBindAttr, node, nameLit, l.lowerJSXPropValue(b.value))
}

// lowerEventBinding is "bindEvent calls with an options object and
// onDestroy for the returned cleanup": bindEvent's own return value (the
// unsubscribe function) is passed straight to onDestroy.
func (l *lowerer) lowerEventBinding(node ast.Expr, b jsxBinding) ast.Stmt {
	bindCall := &ast.CallExpr{
		Callee: &ast.Identifier{Name: l.helpers.use(helperBindEvent)},
		Args: []ast.Expr{
			node,
			&ast.Literal{Kind: ast.LitString, Raw: strconv.Quote(b.name)},
			l.lowerExpr(b.value),
			eventOptionsExpr(b.eventOpts),
		},
	}
	return l.callBindStmt(helperOnDestroy, bindCall)
}

func eventOptionsExpr(opts []string) ast.Expr {
	if len(opts) == 0 {
		return &ast.Literal{Kind: ast.LitNull, Raw: "null"}
	}
	props := make([]ast.ObjectProperty, len(opts))
	for i, o := range opts {
		props[i] = ast.ObjectProperty{Key: o, Value: &ast.Literal{Kind: ast.LitBool, Raw: "true"}}
	}
	return &ast.ObjectExpr{Properties: props}
}

// insertChildStmt wraps thunk in insert(parent, ()=>value, marker,
// createElement): node is the comment placeholder itself, so the parent
// to insert into is its own parentNode and the marker to insert before is
// node again.
func (l *lowerer) insertChildStmt(node ast.Expr, thunk ast.Expr) ast.Stmt {
	parent := &ast.MemberExpr{Object: node, Property: "parentNode"}
	call := &ast.CallExpr{
		Callee: &ast.Identifier{Name: l.helpers.use(helperInsert)},
		Args:   []ast.Expr{parent, thunk, node, &ast.Identifier{Name: l.helpers.use(helperCreateElem)}},
	}
	return &ast.ExprStmt{Expr: call}
}

func isMapCall(call *ir.Call) bool {
	m, ok := call.Callee.(*ir.Member)
	return ok && m.Property == "map"
}

// lowerChildBinding dispatches a dynamic child slot: a conditional
// expression becomes a conditional(...) thunk, a `.map` call becomes a
// keyedList(...) thunk (rewriting its callback's item parameter to
// getter-call form), and anything else is inserted as a plain thunked
// value.
func (l *lowerer) lowerChildBinding(node ast.Expr, b jsxBinding) ast.Stmt {
	switch v := b.value.(type) {
	case *ir.Conditional:
		return l.lowerConditionalChildBinding(node, v)
	case *ir.Call:
		if isMapCall(v) {
			return l.lowerListChildBinding(node, v)
		}
	}
	thunk := &ast.ArrowFunctionExpr{ExprBody: l.lowerExpr(b.value)}
	return l.insertChildStmt(node, thunk)
}

func (l *lowerer) lowerConditionalChildBinding(node ast.Expr, cond *ir.Conditional) ast.Stmt {
	args := []ast.Expr{
		&ast.ArrowFunctionExpr{ExprBody: l.lowerExpr(cond.Test)},
		&ast.ArrowFunctionExpr{ExprBody: l.lowerExpr(cond.Cons)},
		&ast.Identifier{Name: l.helpers.use(helperCreateElem)},
	}
	if cond.Alt != nil {
		args = append(args, &ast.ArrowFunctionExpr{ExprBody: l.lowerExpr(cond.Alt)})
	}
	condCall := &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperConditional)}, Args: args}
	return l.insertChildStmt(node, &ast.ArrowFunctionExpr{ExprBody: condCall})
}

func (l *lowerer) lowerListChildBinding(node ast.Expr, call *ir.Call) ast.Stmt {
	m := call.Callee.(*ir.Member)
	arrayFn := &ast.ArrowFunctionExpr{ExprBody: l.lowerExpr(m.Object)}

	var callback ast.Expr
	if len(call.Args) == 1 {
		if arrow, ok := call.Args[0].(*ir.ArrowFunction); ok {
			callback = l.lowerListCallback(arrow)
		}
	}
	if callback == nil && len(call.Args) == 1 {
		callback = l.lowerExpr(call.Args[0])
	}

	keyedCall := &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperKeyedList)}, Args: []ast.Expr{arrayFn, callback}}
	return l.insertChildStmt(node, &ast.ArrowFunctionExpr{ExprBody: keyedCall})
}

// lowerListCallback lowers a keyedList iteration callback, rewriting
// reads of its first parameter to zero-argument accessor-call form
// (consistent with signal accessors) for the duration of lowering this
// one callback body; any further parameters (index, array) shadow
// normally and are left as plain identifiers.
func (l *lowerer) lowerListCallback(x *ir.ArrowFunction) ast.Expr {
	params := paramNamesOf(x.Params)
	out := &ast.ArrowFunctionExpr{Params: params, IsAsync: x.IsAsync}
	if x.Body == nil {
		return out
	}

	var accessor string
	rest := params
	if len(params) > 0 {
		accessor, rest = params[0], params[1:]
	}
	l.pushShadow(rest)
	defer l.popShadow()
	restoreAccessor := l.pushListItemAccessor(accessor)
	defer restoreAccessor()

	if x.IsExpression && len(x.Body.Blocks) == 1 && x.Body.Blocks[0].Terminator != nil {
		if ret, ok := x.Body.Blocks[0].Terminator.(*ir.Return); ok && len(x.Body.Blocks[0].Instructions) == 0 && ret.Value != nil {
			out.ExprBody = l.lowerExpr(ret.Value)
			return out
		}
	}

	graph, err := cfg.Analyze(x.Body)
	if err != nil {
		l.warnings = append(l.warnings, "list callback control-flow analysis failed, lowering as empty body")
		out.Body = &ast.BlockStmt{}
		return out
	}
	root, warning, err := structurize.Structurize(x.Body, graph)
	if warning != "" {
		l.warnings = append(l.warnings, warning)
	}
	if err != nil {
		l.warnings = append(l.warnings, "list callback structurizing failed, lowering as empty body")
		out.Body = &ast.BlockStmt{}
		return out
	}

	savedBlockRegion := l.blockRegion
	l.blockRegion = nil
	out.Body = &ast.BlockStmt{Body: l.lowerSequenceChildren(root.Children)}
	l.blockRegion = savedBlockRegion
	return out
}

// pushListItemAccessor marks name as a getter-producing binding for the
// duration of lowering one keyedList callback body; the returned restore
// func puts back whatever classification (if any) name had before.
func (l *lowerer) pushListItemAccessor(name string) func() {
	if name == "" {
		return func() {}
	}
	prev, had := l.tracked[name]
	l.tracked[name] = trackedMemo
	return func() {
		if had {
			l.tracked[name] = prev
		} else {
			delete(l.tracked, name)
		}
	}
}
