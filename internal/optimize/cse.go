package optimize

import (
	"strings"

	"fictc/internal/ir"
)

// CSEPass eliminates redundant recomputation of an already-evaluated pure
// expression, both within a block and, where a strict-dominance
// straight-line path guarantees the earlier value is still valid, across
// blocks.
type CSEPass struct{}

func (p *CSEPass) Name() string { return "common-subexpression-elimination" }
func (p *CSEPass) Description() string {
	return "replaces re-evaluated pure expressions with the identifier already holding their value"
}

type cseEntry struct {
	blockID int
	name    string
}

func (p *CSEPass) Apply(ctx *Context) bool {
	changed := false
	available := make(map[string]cseEntry) // canonical hash -> defining (block, name)

	order := blockWalkOrder(ctx)
	for _, blk := range order {
		invalidateOnLoopEntry(ctx, blk.ID, available)
		for _, inst := range blk.Instructions {
			a, ok := inst.(*ir.Assign)
			if !ok {
				continue
			}
			if !isCacheableExpr(a.Value, ctx) {
				invalidate(available, a.Target)
				continue
			}
			key := canonicalKey(a.Value)
			if key == "" {
				invalidate(available, a.Target)
				continue
			}
			if entry, ok := available[key]; ok && reachableByDomination(ctx, entry.blockID, blk.ID) {
				a.Value = &ir.Identifier{Name: entry.name}
				changed = true
			}
			invalidate(available, a.Target)
			available[key] = cseEntry{blockID: blk.ID, name: a.Target}
		}
	}
	return changed
}

func blockWalkOrder(ctx *Context) []*ir.BasicBlock {
	byID := make(map[int]*ir.BasicBlock, len(ctx.Fn.Blocks))
	for _, b := range ctx.Fn.Blocks {
		byID[b.ID] = b
	}
	if ctx.Graph == nil || len(ctx.Graph.RPO) == 0 {
		return ctx.Fn.Blocks
	}
	out := make([]*ir.BasicBlock, 0, len(ctx.Graph.RPO))
	for _, id := range ctx.Graph.RPO {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// reachableByDomination approximates the "straight-line path" requirement
// by strict dominance: def's block must strictly dominate use's block, and
// use's block must not itself be a loop header reached on a back edge from
// before def (dominance already excludes that case, since a loop header
// dominates its own body but not vice versa).
func reachableByDomination(ctx *Context, defBlock, useBlock int) bool {
	if ctx.Graph == nil {
		return defBlock == useBlock
	}
	if defBlock == useBlock {
		return true
	}
	return ctx.Graph.Dominates(defBlock, useBlock)
}

func invalidateOnLoopEntry(ctx *Context, blockID int, available map[string]cseEntry) {
	if ctx.Graph != nil && ctx.Graph.LoopHeaders[blockID] {
		for k, e := range available {
			if !ctx.Graph.Dominates(e.blockID, blockID) {
				delete(available, k)
			}
		}
	}
}

func invalidate(available map[string]cseEntry, target string) {
	base := ir.BaseName(target)
	for k, e := range available {
		if ir.BaseName(e.name) == base {
			delete(available, k)
			continue
		}
		if strings.Contains(k, "#"+base+"#") || strings.HasPrefix(k, base+"#") || strings.HasSuffix(k, "#"+base) {
			delete(available, k)
		}
	}
}

func isCacheableExpr(e ir.Expr, ctx *Context) bool {
	if isReactiveExpr(e, ctx) {
		return false
	}
	switch e.(type) {
	case *ir.Binary, *ir.Unary, *ir.Logical, *ir.Member, *ir.Conditional, *ir.Literal, *ir.Identifier:
		return exprIsPure(e, ctx)
	default:
		return false
	}
}

func exprIsPure(e ir.Expr, ctx *Context) bool {
	if ctx.Purity == nil {
		return isPureExpr(e, map[string]bool{})
	}
	return isPureExpr(e, ctx.Purity)
}

// canonicalKey hashes an expression's structure plus its referenced
// identifier names so syntactically identical recomputations collide.
func canonicalKey(e ir.Expr) string {
	var sb strings.Builder
	if !writeKey(&sb, e) {
		return ""
	}
	return sb.String()
}

func writeKey(sb *strings.Builder, e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.Identifier:
		sb.WriteString("id#")
		sb.WriteString(x.Name)
		sb.WriteString("#")
	case *ir.Literal:
		sb.WriteString("lit#")
		sb.WriteString(x.Raw)
		sb.WriteString("#")
	case *ir.Binary:
		sb.WriteString("bin(")
		sb.WriteString(x.Op)
		sb.WriteString(",")
		if !writeKey(sb, x.Left) {
			return false
		}
		if !writeKey(sb, x.Right) {
			return false
		}
		sb.WriteString(")")
	case *ir.Logical:
		sb.WriteString("log(")
		sb.WriteString(x.Op)
		sb.WriteString(",")
		if !writeKey(sb, x.Left) {
			return false
		}
		if !writeKey(sb, x.Right) {
			return false
		}
		sb.WriteString(")")
	case *ir.Unary:
		sb.WriteString("un(")
		sb.WriteString(x.Op)
		sb.WriteString(",")
		if !writeKey(sb, x.Value) {
			return false
		}
		sb.WriteString(")")
	case *ir.Conditional:
		sb.WriteString("cond(")
		if !writeKey(sb, x.Test) || !writeKey(sb, x.Cons) || !writeKey(sb, x.Alt) {
			return false
		}
		sb.WriteString(")")
	case *ir.Member:
		sb.WriteString("mem(")
		if !writeKey(sb, x.Object) {
			return false
		}
		if x.Computed != nil {
			if !writeKey(sb, x.Computed) {
				return false
			}
		} else {
			sb.WriteString(x.Property)
		}
		sb.WriteString(")")
	default:
		return false
	}
	return true
}
