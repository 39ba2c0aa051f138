package optimize

import "fictc/internal/ir"

// InliningPass substitutes a compiler-generated const binding directly at
// its one use site when doing so is safe: the value is pure, not a memo
// wrapper, not reactive-dependent, and no impure instruction executes
// between the definition and the use.
type InliningPass struct{}

func (p *InliningPass) Name() string { return "single-use-inlining" }
func (p *InliningPass) Description() string {
	return "inlines compiler-generated single-use bindings at their use site"
}

func (p *InliningPass) Apply(ctx *Context) bool {
	uses := countUses(ctx.Fn)
	defs := collectGeneratedDefs(ctx.Fn)

	changed := false
	for name, def := range defs {
		if uses[name] != 1 {
			continue
		}
		if !isCacheableExpr(def.value, ctx) {
			continue
		}
		if isMemoCall(def.value, ctx) {
			continue
		}
		if usedInsidePhi(ctx.Fn, name) {
			continue
		}
		if usedInsideNestedFunction(ctx.Fn, name) {
			continue
		}
		if !noImpureBetween(ctx, def, name) {
			continue
		}
		if substituteUse(ctx.Fn, name, def.value) {
			removeDefinition(ctx.Fn, def)
			changed = true
		}
	}
	return changed
}

type defSite struct {
	blockID int
	index   int
	value   ir.Expr
}

func collectGeneratedDefs(fn *ir.Function) map[string]defSite {
	out := make(map[string]defSite)
	for _, blk := range fn.Blocks {
		for idx, inst := range blk.Instructions {
			a, ok := inst.(*ir.Assign)
			if !ok || a.DeclarationKind != ir.DeclConst || !ir.IsGenerated(a.Target) {
				continue
			}
			out[a.Target] = defSite{blockID: blk.ID, index: idx, value: a.Value}
		}
	}
	return out
}

func countUses(fn *ir.Function) map[string]int {
	counts := make(map[string]int)
	var walk func(e ir.Expr)
	walk = func(e ir.Expr) {
		if e == nil {
			return
		}
		if id, ok := e.(*ir.Identifier); ok {
			counts[id.Name]++
			return
		}
		forEachChild(e, walk)
	}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Assign:
				walk(i.Value)
			case *ir.Expression:
				walk(i.Value)
			case *ir.Phi:
				for _, s := range i.Sources {
					counts[s.Name]++
				}
			}
		}
		switch t := blk.Terminator.(type) {
		case *ir.Return:
			walk(t.Value)
		case *ir.Throw:
			walk(t.Value)
		case *ir.Branch:
			walk(t.Test)
		case *ir.Switch:
			walk(t.Disc)
			for _, c := range t.Cases {
				walk(c.Test)
			}
		}
	}
	return counts
}

func forEachChild(e ir.Expr, walk func(ir.Expr)) {
	switch x := e.(type) {
	case *ir.Binary:
		walk(x.Left)
		walk(x.Right)
	case *ir.Logical:
		walk(x.Left)
		walk(x.Right)
	case *ir.Unary:
		walk(x.Value)
	case *ir.Conditional:
		walk(x.Test)
		walk(x.Cons)
		walk(x.Alt)
	case *ir.Call:
		walk(x.Callee)
		for _, a := range x.Args {
			walk(a)
		}
	case *ir.OptionalCall:
		walk(x.Callee)
		for _, a := range x.Args {
			walk(a)
		}
	case *ir.Member:
		walk(x.Object)
		walk(x.Computed)
	case *ir.OptionalMember:
		walk(x.Object)
		walk(x.Computed)
	case *ir.Array:
		for _, el := range x.Elements {
			walk(el)
		}
	case *ir.Object:
		for _, prop := range x.Properties {
			walk(prop.Value)
		}
	case *ir.TemplateLiteral:
		for _, sub := range x.Exprs {
			walk(sub)
		}
	case *ir.Sequence:
		for _, sub := range x.Exprs {
			walk(sub)
		}
	case *ir.SpreadElement:
		walk(x.Value)
	case *ir.Await:
		walk(x.Value)
	case *ir.New:
		walk(x.Callee)
		for _, a := range x.Args {
			walk(a)
		}
	}
}

func isMemoCall(e ir.Expr, ctx *Context) bool {
	call, ok := e.(*ir.Call)
	if !ok {
		return false
	}
	return ctx.Opts.MemoMacros[calleeName(call.Callee)]
}

func usedInsidePhi(fn *ir.Function, name string) bool {
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			phi, ok := inst.(*ir.Phi)
			if !ok {
				continue
			}
			for _, s := range phi.Sources {
				if s.Name == name {
					return true
				}
			}
		}
	}
	return false
}

func usedInsideNestedFunction(fn *ir.Function, name string) bool {
	found := false
	var walk func(e ir.Expr)
	walk = func(e ir.Expr) {
		if found || e == nil {
			return
		}
		switch x := e.(type) {
		case *ir.ArrowFunction, *ir.FunctionExpression:
			containsIdentifier(x, name, &found)
			return
		}
		forEachChild(e, walk)
	}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if a, ok := inst.(*ir.Assign); ok {
				walk(a.Value)
			}
			if ex, ok := inst.(*ir.Expression); ok {
				walk(ex.Value)
			}
		}
	}
	return found
}

func containsIdentifier(e ir.Expr, name string, found *bool) {
	if *found || e == nil {
		return
	}
	if id, ok := e.(*ir.Identifier); ok && id.Name == name {
		*found = true
		return
	}
	forEachChild(e, func(child ir.Expr) { containsIdentifier(child, name, found) })
}

// noImpureBetween reports whether no impure instruction executes between
// def's position and name's single use, consulting purity classification
// for every instruction strictly between the two within the same block, or
// conservatively refusing inlining across a block boundary altogether.
func noImpureBetween(ctx *Context, def defSite, name string) bool {
	blk := blockByID(ctx.Fn, def.blockID)
	if blk == nil {
		return false
	}
	useIdx := findUseIndex(blk, name)
	if useIdx == -1 {
		return false // use is in a different block or a terminator; be conservative
	}
	for i := def.index + 1; i < useIdx; i++ {
		if !instructionIsPure(blk.Instructions[i], ctx) {
			return false
		}
	}
	return true
}

func blockByID(fn *ir.Function, id int) *ir.BasicBlock {
	for _, b := range fn.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func findUseIndex(blk *ir.BasicBlock, name string) int {
	for idx, inst := range blk.Instructions {
		used := false
		switch i := inst.(type) {
		case *ir.Assign:
			containsIdentifier(i.Value, name, &used)
		case *ir.Expression:
			containsIdentifier(i.Value, name, &used)
		}
		if used {
			return idx
		}
	}
	return -1
}

func instructionIsPure(inst ir.Instruction, ctx *Context) bool {
	a, ok := inst.(*ir.Assign)
	if !ok {
		return true
	}
	return exprIsPure(a.Value, ctx)
}

func substituteUse(fn *ir.Function, name string, value ir.Expr) bool {
	replaced := false
	var rewrite func(e ir.Expr) ir.Expr
	rewrite = func(e ir.Expr) ir.Expr {
		if e == nil {
			return nil
		}
		if id, ok := e.(*ir.Identifier); ok && id.Name == name {
			replaced = true
			return value
		}
		return e
	}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Assign:
				i.Value = rewriteExprTree(i.Value, rewrite)
			case *ir.Expression:
				i.Value = rewriteExprTree(i.Value, rewrite)
			}
		}
	}
	return replaced
}

// rewriteExprTree applies fn at every node, rebuilding Binary, Logical,
// Unary, Conditional, Call, Member and Array nodes around their rewritten
// children. It descends into fewer node kinds than forEachChild: a use
// nested in any other kind is left in place.
func rewriteExprTree(e ir.Expr, fn func(ir.Expr) ir.Expr) ir.Expr {
	if e == nil {
		return nil
	}
	if replaced := fn(e); replaced != e {
		return replaced
	}
	switch x := e.(type) {
	case *ir.Binary:
		return &ir.Binary{Op: x.Op, Left: rewriteExprTree(x.Left, fn), Right: rewriteExprTree(x.Right, fn), Position: x.Position}
	case *ir.Logical:
		return &ir.Logical{Op: x.Op, Left: rewriteExprTree(x.Left, fn), Right: rewriteExprTree(x.Right, fn), Position: x.Position}
	case *ir.Unary:
		return &ir.Unary{Op: x.Op, Prefix: x.Prefix, Value: rewriteExprTree(x.Value, fn), Position: x.Position}
	case *ir.Conditional:
		return &ir.Conditional{Test: rewriteExprTree(x.Test, fn), Cons: rewriteExprTree(x.Cons, fn), Alt: rewriteExprTree(x.Alt, fn), Position: x.Position}
	case *ir.Call:
		args := make([]ir.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = rewriteExprTree(a, fn)
		}
		return &ir.Call{Callee: rewriteExprTree(x.Callee, fn), Args: args, Pure: x.Pure, Position: x.Position}
	case *ir.Member:
		return &ir.Member{Object: rewriteExprTree(x.Object, fn), Property: x.Property, Computed: rewriteExprTree(x.Computed, fn), Position: x.Position}
	case *ir.Array:
		els := make([]ir.Expr, len(x.Elements))
		for i, el := range x.Elements {
			els[i] = rewriteExprTree(el, fn)
		}
		return &ir.Array{Elements: els, Position: x.Position}
	default:
		return e
	}
}

func removeDefinition(fn *ir.Function, def defSite) {
	blk := blockByID(fn, def.blockID)
	if blk == nil || def.index >= len(blk.Instructions) {
		return
	}
	blk.Instructions = append(blk.Instructions[:def.index], blk.Instructions[def.index+1:]...)
}
