package optimize

import "fictc/internal/ir"

// ReactiveDCEPass removes const/pure derived bindings that no root of the
// reactive graph (an effect, a JSX binding, a return, a throw, an impure
// expression statement, or an exported name) can reach.
type ReactiveDCEPass struct{}

func (p *ReactiveDCEPass) Name() string { return "reactive-dead-code-elimination" }
func (p *ReactiveDCEPass) Description() string {
	return "deletes derived bindings unreachable from any effect, binding, or exported root"
}

func (p *ReactiveDCEPass) Apply(ctx *Context) bool {
	fn := ctx.Fn
	deps := make(map[string]map[string]bool) // base -> bases it reads
	defBlockOf := make(map[string]int)
	var order []string

	record := func(base string, value ir.Expr, blockID int) {
		if deps[base] == nil {
			deps[base] = make(map[string]bool)
		}
		defBlockOf[base] = blockID
		order = append(order, base)
		collectIdentifierNames(value, deps[base])
	}

	roots := make(map[string]bool)
	markImpureStatement := false

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Assign:
				record(ir.BaseName(i.Target), i.Value, blk.ID)
				if !exprIsPure(i.Value, ctx) {
					roots[ir.BaseName(i.Target)] = true
				}
			case *ir.Expression:
				names := make(map[string]bool)
				collectIdentifierNames(i.Value, names)
				if !exprIsPure(i.Value, ctx) {
					markImpureStatement = true
					for n := range names {
						roots[n] = true
					}
				}
			}
		}
		switch t := blk.Terminator.(type) {
		case *ir.Return:
			markRoot(t.Value, roots)
		case *ir.Throw:
			markRoot(t.Value, roots)
		case *ir.Branch:
			markRoot(t.Test, roots)
		case *ir.Switch:
			markRoot(t.Disc, roots)
			for _, c := range t.Cases {
				markRoot(c.Test, roots)
			}
		}
	}
	_ = markImpureStatement

	for _, p := range fn.Params {
		roots[p.Name] = true
	}
	if fn.IsExported {
		for base := range deps {
			if !ir.IsGenerated(base) {
				roots[base] = true
			}
		}
	}

	reachable := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if reachable[name] {
			return
		}
		reachable[name] = true
		for dep := range deps[name] {
			visit(dep)
		}
	}
	for r := range roots {
		visit(r)
	}

	changed := false
	for _, blk := range fn.Blocks {
		kept := blk.Instructions[:0]
		for _, inst := range blk.Instructions {
			if a, ok := inst.(*ir.Assign); ok {
				base := ir.BaseName(a.Target)
				if !reachable[base] && exprIsPure(a.Value, ctx) {
					changed = true
					continue
				}
			}
			kept = append(kept, inst)
		}
		blk.Instructions = kept
	}
	return changed
}

func markRoot(e ir.Expr, roots map[string]bool) {
	if e == nil {
		return
	}
	collectIdentifierNames(e, roots)
}

func collectIdentifierNames(e ir.Expr, out map[string]bool) {
	if e == nil {
		return
	}
	if id, ok := e.(*ir.Identifier); ok {
		out[id.Name] = true
		return
	}
	forEachChild(e, func(child ir.Expr) { collectIdentifierNames(child, out) })
}
