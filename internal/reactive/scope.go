// Package reactive computes per-variable reactive scopes: their
// dependency paths, external-effect flags, and memoization eligibility.
package reactive

import (
	"fmt"
	"sort"
	"strings"

	"fictc/internal/cfg"
	"fictc/internal/directives"
	"fictc/internal/ir"
)

// Scope is the set of writes/declarations/dependencies attributable to one
// base variable (post-merge, possibly covering several original bases).
type Scope struct {
	ID           int
	Bases        []string // base names folded into this scope, sorted
	Blocks       map[int]bool
	Declarations map[string]bool // base names declared (const/let/var) here
	Writes       map[string]bool // base names written here
	Reads        map[string]bool // base names read in defining expressions
	Deps         map[string]bool // reads \ declarations, referencing other scopes

	HasExternalEffect bool
	ShouldMemoize     bool

	// OptionalOnly/Required classify each dependency path's base by
	// whether every occurrence begins with an optional segment.
	OptionalOnlyDeps map[string]bool
	RequiredDeps     map[string]bool

	Paths []ir.DependencyPath
}

// Analysis is the full result for one function.
type Analysis struct {
	Scopes      []*Scope
	ScopeOf     map[string]*Scope // base name -> owning scope (post-merge)
	EscapingVar map[string]bool
}

// Analyze computes reactive scopes for fn using its CFG analysis bundle.
func Analyze(fn *ir.Function, g *cfg.Graph) (*Analysis, error) {
	raw := collectRawScopes(fn)
	escaping := computeEscaping(fn)

	for base, s := range raw {
		for r := range s.Reads {
			if !s.Declarations[r] {
				s.Deps[r] = true
			}
		}
		if escaping[base] {
			s.HasExternalEffect = true
		}
	}

	merged := mergeOverlapping(raw, fn)
	markMemoize(merged)

	if err := checkCycles(merged); err != nil {
		return nil, err
	}

	pruned := prune(merged)

	scopeOf := make(map[string]*Scope)
	for _, s := range pruned {
		for _, b := range s.Bases {
			scopeOf[b] = s
		}
	}

	return &Analysis{Scopes: pruned, ScopeOf: scopeOf, EscapingVar: escaping}, nil
}

func collectRawScopes(fn *ir.Function) map[string]*Scope {
	scopes := make(map[string]*Scope)
	get := func(base string) *Scope {
		if s, ok := scopes[base]; ok {
			return s
		}
		s := &Scope{
			Bases:            []string{base},
			Blocks:           make(map[int]bool),
			Declarations:     make(map[string]bool),
			Writes:           make(map[string]bool),
			Reads:            make(map[string]bool),
			Deps:             make(map[string]bool),
			OptionalOnlyDeps: make(map[string]bool),
			RequiredDeps:     make(map[string]bool),
		}
		scopes[base] = s
		return s
	}

	recordReads := func(s *Scope, e ir.Expr) {
		collectReadsAndPaths(e, func(base string, path ir.DependencyPath, hasPath bool) {
			s.Reads[base] = true
			if hasPath {
				s.Paths = append(s.Paths, path)
				if path.HasOptional {
					s.OptionalOnlyDeps[base] = true
				} else {
					s.RequiredDeps[base] = true
				}
			}
		})
	}

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Assign:
				base := ir.BaseName(i.Target)
				s := get(base)
				s.Blocks[blk.ID] = true
				s.Writes[base] = true
				if i.DeclarationKind != ir.DeclNone {
					s.Declarations[base] = true
				}
				recordReads(s, i.Value)
			case *ir.Phi:
				base := ir.BaseName(i.Target)
				s := get(base)
				s.Blocks[blk.ID] = true
				s.Writes[base] = true
				for _, src := range i.Sources {
					s.Reads[ir.BaseName(src.Name)] = true
				}
			}
		}
	}
	return scopes
}

// collectReadsAndPaths walks e, invoking visit once per identifier base
// reached (including through member chains), reporting the full
// dependency path when the chain is a clean member/optional-member walk.
func collectReadsAndPaths(e ir.Expr, visit func(base string, path ir.DependencyPath, hasPath bool)) {
	if e == nil {
		return
	}
	if path, ok := ir.ExtractDependencyPath(e); ok {
		visit(path.Base, path, true)
		return
	}
	switch x := e.(type) {
	case *ir.Identifier:
		visit(x.Name, ir.DependencyPath{}, false)
	case *ir.Call:
		collectReadsAndPaths(x.Callee, visit)
		for _, a := range x.Args {
			collectReadsAndPaths(a, visit)
		}
	case *ir.OptionalCall:
		collectReadsAndPaths(x.Callee, visit)
		for _, a := range x.Args {
			collectReadsAndPaths(a, visit)
		}
	case *ir.Member:
		collectReadsAndPaths(x.Object, visit)
		if x.Computed != nil {
			collectReadsAndPaths(x.Computed, visit)
		}
	case *ir.OptionalMember:
		collectReadsAndPaths(x.Object, visit)
		if x.Computed != nil {
			collectReadsAndPaths(x.Computed, visit)
		}
	case *ir.Binary:
		collectReadsAndPaths(x.Left, visit)
		collectReadsAndPaths(x.Right, visit)
	case *ir.Logical:
		collectReadsAndPaths(x.Left, visit)
		collectReadsAndPaths(x.Right, visit)
	case *ir.Unary:
		collectReadsAndPaths(x.Value, visit)
	case *ir.Conditional:
		collectReadsAndPaths(x.Test, visit)
		collectReadsAndPaths(x.Cons, visit)
		collectReadsAndPaths(x.Alt, visit)
	case *ir.Array:
		for _, el := range x.Elements {
			collectReadsAndPaths(el, visit)
		}
	case *ir.Object:
		for _, p := range x.Properties {
			if p.Computed != nil {
				collectReadsAndPaths(p.Computed, visit)
			}
			collectReadsAndPaths(p.Value, visit)
		}
	case *ir.JSXElement:
		for _, a := range x.Attributes {
			if a.Value != nil {
				collectReadsAndPaths(a.Value, visit)
			}
		}
		for _, c := range x.Children {
			collectReadsAndPaths(c, visit)
		}
	case *ir.AssignmentExpression:
		collectReadsAndPaths(x.Target, visit)
		collectReadsAndPaths(x.Value, visit)
	case *ir.UpdateExpression:
		collectReadsAndPaths(x.Target, visit)
	case *ir.TemplateLiteral:
		for _, ex := range x.Exprs {
			collectReadsAndPaths(ex, visit)
		}
	case *ir.SpreadElement:
		collectReadsAndPaths(x.Value, visit)
	case *ir.Await:
		collectReadsAndPaths(x.Value, visit)
	case *ir.New:
		collectReadsAndPaths(x.Callee, visit)
		for _, a := range x.Args {
			collectReadsAndPaths(a, visit)
		}
	case *ir.Sequence:
		for _, ex := range x.Exprs {
			collectReadsAndPaths(ex, visit)
		}
	}
}

// computeEscaping marks every identifier base reachable from a Return
// terminator's value.
func computeEscaping(fn *ir.Function) map[string]bool {
	escaping := make(map[string]bool)
	for _, blk := range fn.Blocks {
		ret, ok := blk.Terminator.(*ir.Return)
		if !ok || ret.Value == nil {
			continue
		}
		collectReadsAndPaths(ret.Value, func(base string, _ ir.DependencyPath, _ bool) {
			escaping[base] = true
		})
	}
	return escaping
}

// mergeOverlapping union-finds scopes that share a block and have
// overlapping dependencies or write/read conflicts.
func mergeOverlapping(raw map[string]*Scope, fn *ir.Function) []*Scope {
	bases := make([]string, 0, len(raw))
	for b := range raw {
		bases = append(bases, b)
	}
	sort.Strings(bases)

	parent := make(map[string]string, len(bases))
	for _, b := range bases {
		parent[b] = b
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	overlaps := func(a, b *Scope) bool {
		sharesBlock := false
		for blk := range a.Blocks {
			if b.Blocks[blk] {
				sharesBlock = true
				break
			}
		}
		if !sharesBlock {
			return false
		}
		for d := range a.Deps {
			if b.Writes[d] || b.Declarations[d] {
				return true
			}
		}
		for d := range b.Deps {
			if a.Writes[d] || a.Declarations[d] {
				return true
			}
		}
		for r := range a.Reads {
			if b.Writes[r] {
				return true
			}
		}
		for r := range b.Reads {
			if a.Writes[r] {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(bases); i++ {
		for j := i + 1; j < len(bases); j++ {
			if overlaps(raw[bases[i]], raw[bases[j]]) {
				union(bases[i], bases[j])
			}
		}
	}

	groups := make(map[string][]string)
	for _, b := range bases {
		root := find(b)
		groups[root] = append(groups[root], b)
	}

	rootOrder := make([]string, 0, len(groups))
	for r := range groups {
		rootOrder = append(rootOrder, r)
	}
	sort.Strings(rootOrder)

	var merged []*Scope
	for id, root := range rootOrder {
		members := groups[root]
		sort.Strings(members)
		s := &Scope{
			ID:               id,
			Bases:            members,
			Blocks:           make(map[int]bool),
			Declarations:     make(map[string]bool),
			Writes:           make(map[string]bool),
			Reads:            make(map[string]bool),
			Deps:             make(map[string]bool),
			OptionalOnlyDeps: make(map[string]bool),
			RequiredDeps:     make(map[string]bool),
		}
		for _, m := range members {
			src := raw[m]
			for k := range src.Blocks {
				s.Blocks[k] = true
			}
			for k := range src.Declarations {
				s.Declarations[k] = true
			}
			for k := range src.Writes {
				s.Writes[k] = true
			}
			for k := range src.Reads {
				s.Reads[k] = true
			}
			for k := range src.OptionalOnlyDeps {
				s.OptionalOnlyDeps[k] = true
			}
			for k := range src.RequiredDeps {
				s.RequiredDeps[k] = true
			}
			s.Paths = append(s.Paths, src.Paths...)
			s.HasExternalEffect = s.HasExternalEffect || src.HasExternalEffect
		}
		// Internal dependencies (targeting a base now folded into this
		// same merged scope) are removed; only cross-scope deps remain.
		memberSet := make(map[string]bool, len(members))
		for _, m := range members {
			memberSet[m] = true
		}
		for _, m := range members {
			for d := range raw[m].Deps {
				if !memberSet[d] {
					s.Deps[d] = true
				}
			}
		}
		merged = append(merged, s)
	}
	return merged
}

// markMemoize applies the memoization heuristic: a scope memoizes if it
// has dependencies where at least one dependency scope itself has writes
// or transitive dependencies, or if the scope spans multiple blocks.
func markMemoize(scopes []*Scope) {
	byBase := make(map[string]*Scope)
	for _, s := range scopes {
		for _, b := range s.Bases {
			byBase[b] = s
		}
	}
	for _, s := range scopes {
		if len(s.Blocks) > 1 {
			s.ShouldMemoize = true
			continue
		}
		if len(s.Deps) == 0 {
			continue
		}
		for dep := range s.Deps {
			depScope, ok := byBase[dep]
			if !ok {
				continue
			}
			if len(depScope.Writes) > 0 || len(depScope.Deps) > 0 {
				s.ShouldMemoize = true
				break
			}
		}
	}
}

// checkCycles builds the derived-dependency graph over scopes that hold a
// single base declared in this function and DFS-detects cycles. How many
// times that base is assigned, and whether it is a state variable, is not
// checked.
func checkCycles(scopes []*Scope) error {
	byBase := make(map[string]*Scope)
	eligible := make(map[string]bool)
	for _, s := range scopes {
		for _, b := range s.Bases {
			byBase[b] = s
		}
		if len(s.Bases) == 1 && len(s.Writes) <= 1 && len(s.Declarations) > 0 {
			eligible[s.Bases[0]] = true
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var path []string

	var visit func(base string) error
	visit = func(base string) error {
		if !eligible[base] {
			return nil
		}
		switch color[base] {
		case black:
			return nil
		case gray:
			cycle := append(append([]string{}, path...), base)
			return directives.Newf(directives.CycleError, "cyclic reactive dependency: %s", strings.Join(cycle, " -> "))
		}
		color[base] = gray
		path = append(path, base)
		s := byBase[base]
		deps := make([]string, 0, len(s.Deps))
		for d := range s.Deps {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[base] = black
		return nil
	}

	var bases []string
	for b := range eligible {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	for _, b := range bases {
		if err := visit(b); err != nil {
			return err
		}
	}
	return nil
}

// prune keeps scopes that have external effects, are transitively
// depended upon by an escaping scope, or are flagged for memoization.
func prune(scopes []*Scope) []*Scope {
	byBase := make(map[string]*Scope)
	for _, s := range scopes {
		for _, b := range s.Bases {
			byBase[b] = s
		}
	}

	reachableFromEscaping := make(map[*Scope]bool)
	var mark func(s *Scope)
	mark = func(s *Scope) {
		if reachableFromEscaping[s] {
			return
		}
		reachableFromEscaping[s] = true
		for d := range s.Deps {
			if dep, ok := byBase[d]; ok {
				mark(dep)
			}
		}
	}
	for _, s := range scopes {
		if s.HasExternalEffect {
			mark(s)
		}
	}

	var kept []*Scope
	for id, s := range scopes {
		if s.HasExternalEffect || reachableFromEscaping[s] || s.ShouldMemoize {
			s.ID = id
			kept = append(kept, s)
		}
	}
	return kept
}

func (s *Scope) String() string {
	return fmt.Sprintf("scope#%d{bases:%v memoize:%v external:%v}", s.ID, s.Bases, s.ShouldMemoize, s.HasExternalEffect)
}
