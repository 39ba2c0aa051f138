package cfg

import (
	"sort"

	"fictc/internal/ir"
)

// SSAResult bundles a function's post-SSA naming table. ssaMap (base to max
// version) is cfg's contribution to the data model's "ssaMap of base→max
// version" result; the NameTable itself already tracks the max version per
// base, so SSAResult simply exposes it for callers that want a plain map.
type SSAResult struct {
	Names  *ir.NameTable
	SSAMap map[string]int
}

// ToSSA converts fn to SSA form in place: minimal phi nodes are inserted at
// dominance-frontier joins for every mutated, non-generated base name, and
// every use is rewritten to be dominated by exactly one definition.
func ToSSA(fn *ir.Function, g *Graph) *SSAResult {
	nt := ir.NewNameTable()

	blockByID := make(map[int]*ir.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blockByID[b.ID] = b
	}

	defSites := collectDefSites(fn)
	insertPhis(fn, g, blockByID, defSites)
	renameVariables(fn, g, blockByID, nt)

	ssaMap := make(map[string]int)
	for base := range defSites {
		if v := nt.MaxVersion(base); v > 0 {
			ssaMap[base] = v
		}
	}

	return &SSAResult{Names: nt, SSAMap: ssaMap}
}

// collectDefSites returns, for every non-generated base name assigned
// anywhere in fn, the set of block ids containing such an assignment.
func collectDefSites(fn *ir.Function) map[string]map[int]bool {
	sites := make(map[string]map[int]bool)
	add := func(name string, blockID int) {
		if ir.IsGenerated(name) {
			return
		}
		if sites[name] == nil {
			sites[name] = make(map[int]bool)
		}
		sites[name][blockID] = true
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if a, ok := inst.(*ir.Assign); ok {
				add(a.Target, b.ID)
			}
		}
		switch term := b.Terminator.(type) {
		case *ir.ForOf:
			add(term.Var, b.ID)
		case *ir.ForIn:
			add(term.Var, b.ID)
		}
	}
	return sites
}

// insertPhis runs the classic Cytron et al. worklist: iteratively push
// phi insertions out to the dominance frontier until no block gains a new
// phi for a given variable.
func insertPhis(fn *ir.Function, g *Graph, blockByID map[int]*ir.BasicBlock, defSites map[string]map[int]bool) {
	names := make([]string, 0, len(defSites))
	for name := range defSites {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		hasPhi := make(map[int]bool)
		worklist := make([]int, 0, len(defSites[name]))
		for b := range defSites[name] {
			worklist = append(worklist, b)
		}
		sort.Ints(worklist)

		for len(worklist) > 0 {
			b := worklist[0]
			worklist = worklist[1:]
			for _, d := range g.DomFrontier[b] {
				if hasPhi[d] {
					continue
				}
				hasPhi[d] = true
				blk := blockByID[d]
				phi := &ir.Phi{Target: name}
				for _, pred := range g.Preds[d] {
					phi.Sources = append(phi.Sources, ir.PhiSource{Pred: pred, Name: name})
				}
				blk.Instructions = append([]ir.Instruction{phi}, blk.Instructions...)
				if !defSites[name][d] {
					defSites[name][d] = true
					worklist = append(worklist, d)
				}
			}
		}
	}
}

// renameVariables performs the dominator-tree-walk renaming pass: each
// base name gets a stack of currently-visible SSA names, pushed on
// definition and popped when the walk exits the defining block's dominator
// subtree.
func renameVariables(fn *ir.Function, g *Graph, blockByID map[int]*ir.BasicBlock, nt *ir.NameTable) {
	stacks := make(map[string][]string)

	top := func(name string) string {
		s := stacks[name]
		if len(s) == 0 {
			return name // used before any definition reaches here (param or free var)
		}
		return s[len(s)-1]
	}
	push := func(name, versioned string) {
		stacks[name] = append(stacks[name], versioned)
	}
	popN := func(name string, n int) {
		stacks[name] = stacks[name][:len(stacks[name])-n]
	}

	rename := func(e ir.Expr) ir.Expr {
		return rewriteIdentifiers(e, func(n string) string {
			if ir.IsGenerated(n) {
				return n
			}
			return top(n)
		})
	}

	var walk func(blockID int)
	walk = func(blockID int) {
		blk := blockByID[blockID]
		pushedCount := make(map[string]int)

		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Phi:
				if ir.IsGenerated(i.Target) {
					continue
				}
				versioned := nt.Version(i.Target)
				i.Target = versioned
				base := baseOf(versioned, i.Target)
				push(base, versioned)
				pushedCount[base]++
			}
		}
		// Second loop for non-phi instructions, since phi targets must all
		// be pushed before any same-block use (phis read the predecessor's
		// reaching definition, handled when filling successor phi sources
		// below, not via the current stack).
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Phi:
				// already renamed target above; sources filled via successors
			case *ir.Assign:
				i.Value = rename(i.Value)
				if ir.IsGenerated(i.Target) {
					continue
				}
				base := i.Target
				versioned := nt.Version(base)
				i.Target = versioned
				push(base, versioned)
				pushedCount[base]++
			case *ir.Expression:
				i.Value = rename(i.Value)
			}
		}

		switch term := blk.Terminator.(type) {
		case *ir.Return:
			if term.Value != nil {
				term.Value = rename(term.Value)
			}
		case *ir.Throw:
			term.Value = rename(term.Value)
		case *ir.Branch:
			term.Test = rename(term.Test)
		case *ir.Switch:
			term.Disc = rename(term.Disc)
			for i := range term.Cases {
				if term.Cases[i].Test != nil {
					term.Cases[i].Test = rename(term.Cases[i].Test)
				}
			}
		case *ir.ForOf:
			term.Iter = rename(term.Iter)
			if !ir.IsGenerated(term.Var) {
				base := term.Var
				versioned := nt.Version(base)
				term.Var = versioned
				push(base, versioned)
				pushedCount[base]++
			}
		case *ir.ForIn:
			term.Obj = rename(term.Obj)
			if !ir.IsGenerated(term.Var) {
				base := term.Var
				versioned := nt.Version(base)
				term.Var = versioned
				push(base, versioned)
				pushedCount[base]++
			}
		}

		// Fill phi sources in every successor for the reaching definition
		// established by this block.
		for _, succID := range g.Succs[blockID] {
			succ := blockByID[succID]
			for _, inst := range succ.Instructions {
				phi, ok := inst.(*ir.Phi)
				if !ok {
					continue
				}
				base := baseOf(phi.Target, phi.Target)
				for idx := range phi.Sources {
					if phi.Sources[idx].Pred == blockID {
						phi.Sources[idx].Name = top(base)
					}
				}
			}
		}

		for _, child := range g.Children[blockID] {
			walk(child)
		}

		for name, n := range pushedCount {
			popN(name, n)
		}
	}

	walk(g.Entry)
}

// baseOf returns the un-suffixed base name of a phi target, which already
// carries its SSA version once its own block has been renamed (e.g. a loop
// header whose phi sources are filled from the back edge); current is
// unused.
func baseOf(current, original string) string {
	return ir.BaseName(original)
}

// rewriteIdentifiers returns a structurally new-or-mutated expression tree
// with every Identifier's Name passed through rename. Mutation happens in
// place since each IR expression node is uniquely owned by the
// instruction that holds it.
func rewriteIdentifiers(e ir.Expr, rename func(string) string) ir.Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *ir.Identifier:
		x.Name = rename(x.Name)
		return x
	case *ir.Literal:
		return x
	case *ir.This, *ir.Super:
		return x
	case *ir.Call:
		x.Callee = rewriteIdentifiers(x.Callee, rename)
		for i := range x.Args {
			x.Args[i] = rewriteIdentifiers(x.Args[i], rename)
		}
		return x
	case *ir.OptionalCall:
		x.Callee = rewriteIdentifiers(x.Callee, rename)
		for i := range x.Args {
			x.Args[i] = rewriteIdentifiers(x.Args[i], rename)
		}
		return x
	case *ir.Member:
		x.Object = rewriteIdentifiers(x.Object, rename)
		if x.Computed != nil {
			x.Computed = rewriteIdentifiers(x.Computed, rename)
		}
		return x
	case *ir.OptionalMember:
		x.Object = rewriteIdentifiers(x.Object, rename)
		if x.Computed != nil {
			x.Computed = rewriteIdentifiers(x.Computed, rename)
		}
		return x
	case *ir.Binary:
		x.Left = rewriteIdentifiers(x.Left, rename)
		x.Right = rewriteIdentifiers(x.Right, rename)
		return x
	case *ir.Unary:
		x.Value = rewriteIdentifiers(x.Value, rename)
		return x
	case *ir.Logical:
		x.Left = rewriteIdentifiers(x.Left, rename)
		x.Right = rewriteIdentifiers(x.Right, rename)
		return x
	case *ir.Conditional:
		x.Test = rewriteIdentifiers(x.Test, rename)
		x.Cons = rewriteIdentifiers(x.Cons, rename)
		x.Alt = rewriteIdentifiers(x.Alt, rename)
		return x
	case *ir.Array:
		for i := range x.Elements {
			x.Elements[i] = rewriteIdentifiers(x.Elements[i], rename)
		}
		return x
	case *ir.Object:
		for i := range x.Properties {
			if x.Properties[i].Computed != nil {
				x.Properties[i].Computed = rewriteIdentifiers(x.Properties[i].Computed, rename)
			}
			x.Properties[i].Value = rewriteIdentifiers(x.Properties[i].Value, rename)
		}
		return x
	case *ir.JSXElement:
		for i := range x.Attributes {
			if x.Attributes[i].Value != nil {
				x.Attributes[i].Value = rewriteIdentifiers(x.Attributes[i].Value, rename)
			}
		}
		for i := range x.Children {
			x.Children[i] = rewriteIdentifiers(x.Children[i], rename)
		}
		return x
	case *ir.AssignmentExpression:
		x.Target = rewriteIdentifiers(x.Target, rename)
		x.Value = rewriteIdentifiers(x.Value, rename)
		return x
	case *ir.UpdateExpression:
		x.Target = rewriteIdentifiers(x.Target, rename)
		return x
	case *ir.TemplateLiteral:
		for i := range x.Exprs {
			x.Exprs[i] = rewriteIdentifiers(x.Exprs[i], rename)
		}
		return x
	case *ir.SpreadElement:
		x.Value = rewriteIdentifiers(x.Value, rename)
		return x
	case *ir.Await:
		x.Value = rewriteIdentifiers(x.Value, rename)
		return x
	case *ir.New:
		x.Callee = rewriteIdentifiers(x.Callee, rename)
		for i := range x.Args {
			x.Args[i] = rewriteIdentifiers(x.Args[i], rename)
		}
		return x
	case *ir.Sequence:
		for i := range x.Exprs {
			x.Exprs[i] = rewriteIdentifiers(x.Exprs[i], rename)
		}
		return x
	case *ir.Yield:
		if x.Value != nil {
			x.Value = rewriteIdentifiers(x.Value, rename)
		}
		return x
	case *ir.TaggedTemplate:
		x.Tag = rewriteIdentifiers(x.Tag, rename)
		return x
	default:
		// ArrowFunction/FunctionExpression/Class bodies are nested
		// functions with their own scope; reads of an outer tracked
		// variable inside them are resolved by internal/codegen's
		// shadowing stack, not by this pass.
		return e
	}
}
