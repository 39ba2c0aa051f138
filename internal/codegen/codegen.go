// Package codegen lowers a validated, optimized, structurized function
// into the target AST (internal/ast): reactive identifier reads and
// writes become getter/setter calls, derived bindings become memoized
// accessors, effectful statements are wrapped in useEffect, and JSX
// becomes createElement/insert calls. It plays the role the teacher's
// internal/ir/printer.go plays for kanso source — one method per node
// kind, all writing into a shared lowering state — except the output is
// constructed AST nodes instead of printed text.
//
// JSX lowering (see jsx.go) follows the static-template-plus-path-addressed-
// bindings scheme: an intrinsic element extracts a cached template string
// and an ordered list of node-path bindings dispatched to bindEvent,
// bindRef, bindClass, bindStyle, bindProperty, or bindAttribute; a
// component element, or an intrinsic element that spreads attributes onto
// itself, lowers to a single createElement(tag, props, ...children) call
// instead, since a static template has no splice position for an unknown
// prop set.
package codegen

import (
	"fmt"
	"sort"

	"fictc/internal/ast"
	"fictc/internal/ir"
	"fictc/internal/reactive"
	"fictc/internal/region"
	"fictc/internal/shape"
	"fictc/internal/structurize"
)

// ScopeKind distinguishes component/hook scope (useMemo/useEffect need a
// context handle) from plain module scope (memo/effect are free functions).
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeComponent
)

// Options configures the lowering; zero value is the conservative default.
type Options struct {
	Scope ScopeKind
	// MemoMacros names the call targets the optimizer also treats as
	// memoization wrappers, so inlining/CSE and codegen's slot-suppression
	// heuristic agree on what counts as "already memoized."
	MemoMacros map[string]bool
}

// Result is one lowered function plus the bookkeeping the caller (usually
// internal/pipeline) needs to finish the module: the statement list, the
// helper names to import, and any non-fatal warnings (e.g. a region that
// fell back to unwrapped lowering).
type Result struct {
	Body     []ast.Stmt
	Helpers  []string
	Warnings []string
}

type trackedKind int

const (
	trackedNone trackedKind = iota
	trackedSignal
	trackedMemo
	trackedDerived
)

// lowerer holds one function's lowering state.
type lowerer struct {
	fn       *ir.Function
	reactive *reactive.Analysis
	shapes   *shape.Analysis
	regions  *region.Tree
	opts     Options

	tracked     map[string]trackedKind
	blockRegion map[int]*region.Region

	shadow   []map[string]bool // nested-function parameter shadow stack
	helpers  *HelperSet
	nextSlot int
	nextTmpl int
	warnings []string

	ctxInjected bool
}

// Lower converts fn, using its reactive/shape/region analyses, into target
// AST statements.
func Lower(fn *ir.Function, react *reactive.Analysis, shapes *shape.Analysis, regions *region.Tree, structured *structurize.Node, opts Options) (*Result, error) {
	l := &lowerer{
		fn: fn, reactive: react, shapes: shapes, regions: regions, opts: opts,
		helpers: newHelperSet(),
	}
	l.tracked = classifyTracked(fn, react, opts)
	l.blockRegion = buildBlockRegionMap(regions)
	l.pushShadow(paramNames(fn))

	var body []ast.Stmt
	if structured != nil {
		body = l.lowerSequenceChildren(structured.Children)
	}

	if l.ctxInjected {
		ctxDecl := &ast.VarDecl{
			Kind: ast.DeclConst,
			Declarators: []ast.VarDeclarator{{
				Name: "__fictCtx",
				Init: &ast.CallExpr{Callee: &ast.Identifier{Name: l.helpers.use(helperUseContext)}},
			}},
		}
		body = append([]ast.Stmt{ctxDecl}, body...)
	}

	return &Result{Body: body, Helpers: l.helpers.Names(), Warnings: l.warnings}, nil
}

func paramNames(fn *ir.Function) []string {
	names := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		names[i] = p.Name
	}
	return names
}

func (l *lowerer) pushShadow(names []string) {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	l.shadow = append(l.shadow, m)
}

func (l *lowerer) popShadow() {
	l.shadow = l.shadow[:len(l.shadow)-1]
}

func (l *lowerer) isShadowed(name string) bool {
	for i := len(l.shadow) - 1; i >= 0; i-- {
		if l.shadow[i][name] {
			return true
		}
	}
	return false
}

func (l *lowerer) reserveSlot(suppressed bool) ast.Expr {
	if suppressed {
		return nil
	}
	n := l.nextSlot
	l.nextSlot++
	return &ast.Literal{Kind: ast.LitNumber, Raw: fmt.Sprintf("%d", n)}
}

func (l *lowerer) requireContext() {
	if l.opts.Scope == ScopeComponent {
		l.ctxInjected = true
	}
}

// classifyTracked determines, per base name, how reads of it should lower:
// bound by a signal/memo call (getter call), by a store call (left bare),
// or by a derived-memoize reactive scope codegen will itself wrap.
func classifyTracked(fn *ir.Function, react *reactive.Analysis, opts Options) map[string]trackedKind {
	out := make(map[string]trackedKind)
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			a, ok := inst.(*ir.Assign)
			if !ok {
				continue
			}
			call, ok := a.Value.(*ir.Call)
			if !ok {
				continue
			}
			name := calleeIdentifierName(call.Callee)
			base := ir.BaseName(a.Target)
			switch {
			case signalCallees[name]:
				out[base] = trackedSignal
			case memoCallees[name] || (opts.MemoMacros != nil && opts.MemoMacros[name]):
				out[base] = trackedMemo
			case storeCallees[name]:
				out[base] = trackedNone
			}
		}
	}
	if react != nil {
		for _, s := range react.Scopes {
			if !s.ShouldMemoize {
				continue
			}
			for _, b := range s.Bases {
				if out[b] == trackedNone {
					out[b] = trackedDerived
				}
			}
		}
	}
	return out
}

func calleeIdentifierName(e ir.Expr) string {
	switch x := e.(type) {
	case *ir.Identifier:
		return x.Name
	case *ir.Member:
		return x.Property
	}
	return ""
}

// buildBlockRegionMap maps a block id to the smallest non-root region
// containing it, used to group a run of instructions into a single memo
// wrapper.
func buildBlockRegionMap(tree *region.Tree) map[int]*region.Region {
	out := make(map[int]*region.Region)
	if tree == nil {
		return out
	}
	var all []*region.Region
	for _, r := range tree.All {
		if r != tree.Root {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return len(all[i].Blocks) < len(all[j].Blocks) })
	for blk := range tree.Root.Blocks {
		for _, r := range all {
			if r.Blocks[blk] {
				out[blk] = r
				break
			}
		}
	}
	return out
}
