// Package shape tracks, per identifier, the object-shape lattice used to
// decide whether a reactive read needs whole-object or property-level
// subscription.
package shape

import "fictc/internal/ir"

// Source classifies where a tracked identifier's value originates.
type Source int

const (
	SourceUnknown Source = iota
	SourceObjectLiteral
	SourceCall
	SourceParam
)

// Shape is the per-identifier lattice element.
type Shape struct {
	Base string

	KnownKeys     map[string]bool
	MutableKeys   map[string]bool
	PropertyReads map[string]bool
	DynamicAccess bool
	Escapes       bool
	IsSpread      bool
	Source        Source
}

func newShape(base string) *Shape {
	return &Shape{
		Base:          base,
		KnownKeys:     make(map[string]bool),
		MutableKeys:   make(map[string]bool),
		PropertyReads: make(map[string]bool),
		Source:        SourceUnknown,
	}
}

// Analysis holds shape lattices for every base name observed in a function.
type Analysis struct {
	Shapes map[string]*Shape
}

// Decision is the per-variable subscription strategy computed from a
// Shape once analysis is complete.
type Decision struct {
	WholeObject     bool
	PropertyLevel   bool
	SpreadWrapped   bool
}

// Analyze walks every instruction and terminator in fn, building the
// shape lattice described in the reactive codegen's object-tracking
// contract.
func Analyze(fn *ir.Function) *Analysis {
	a := &Analysis{Shapes: make(map[string]*Shape)}

	get := func(base string) *Shape {
		if s, ok := a.Shapes[base]; ok {
			return s
		}
		s := newShape(base)
		a.Shapes[base] = s
		return s
	}

	var walkExpr func(e ir.Expr, isEscapeContext bool)
	walkExpr = func(e ir.Expr, isEscapeContext bool) {
		if e == nil {
			return
		}
		switch x := e.(type) {
		case *ir.Identifier:
			if isEscapeContext {
				get(x.Name).Escapes = true
			}
		case *ir.Member:
			walkMemberRead(a, x.Object, x.Property, x.Computed)
			walkExpr(x.Object, false)
			if x.Computed != nil {
				walkExpr(x.Computed, false)
			}
		case *ir.OptionalMember:
			walkMemberRead(a, x.Object, x.Property, x.Computed)
			walkExpr(x.Object, false)
			if x.Computed != nil {
				walkExpr(x.Computed, false)
			}
		case *ir.Call:
			walkExpr(x.Callee, false)
			for _, arg := range x.Args {
				walkExpr(arg, true)
			}
		case *ir.OptionalCall:
			walkExpr(x.Callee, false)
			for _, arg := range x.Args {
				walkExpr(arg, true)
			}
		case *ir.New:
			walkExpr(x.Callee, false)
			for _, arg := range x.Args {
				walkExpr(arg, true)
			}
		case *ir.Binary:
			walkExpr(x.Left, false)
			walkExpr(x.Right, false)
		case *ir.Logical:
			walkExpr(x.Left, false)
			walkExpr(x.Right, false)
		case *ir.Unary:
			walkExpr(x.Value, false)
		case *ir.Conditional:
			walkExpr(x.Test, false)
			walkExpr(x.Cons, isEscapeContext)
			walkExpr(x.Alt, isEscapeContext)
		case *ir.Array:
			for _, el := range x.Elements {
				walkExpr(el, isEscapeContext)
			}
		case *ir.Object:
			for _, p := range x.Properties {
				if p.IsSpread {
					if id, ok := p.Value.(*ir.Identifier); ok {
						get(id.Name).IsSpread = true
					}
					walkExpr(p.Value, false)
					continue
				}
				if p.Computed != nil {
					walkExpr(p.Computed, false)
				}
				walkExpr(p.Value, false)
			}
		case *ir.JSXElement:
			for _, attr := range x.Attributes {
				if attr.IsSpread {
					if id, ok := attr.Value.(*ir.Identifier); ok {
						get(id.Name).IsSpread = true
					}
				}
				if attr.Value != nil {
					walkExpr(attr.Value, false)
				}
			}
			for _, c := range x.Children {
				walkExpr(c, true) // JSX children escape into the returned tree
			}
		case *ir.AssignmentExpression:
			if m, ok := x.Target.(*ir.Member); ok {
				if id, ok := m.Object.(*ir.Identifier); ok && m.Computed == nil {
					get(id.Name).MutableKeys[m.Property] = true
				}
			}
			walkExpr(x.Value, false)
		case *ir.TemplateLiteral:
			for _, ex := range x.Exprs {
				walkExpr(ex, false)
			}
		case *ir.SpreadElement:
			walkExpr(x.Value, false)
		case *ir.Sequence:
			for _, ex := range x.Exprs {
				walkExpr(ex, isEscapeContext)
			}
		case *ir.Await:
			walkExpr(x.Value, false)
		}
	}

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			switch i := inst.(type) {
			case *ir.Assign:
				base := ir.BaseName(i.Target)
				s := get(base)
				if obj, ok := i.Value.(*ir.Object); ok {
					s.Source = SourceObjectLiteral
					for _, p := range obj.Properties {
						if !p.IsSpread && p.Computed == nil {
							s.KnownKeys[p.Key] = true
						}
					}
				} else if _, ok := i.Value.(*ir.Call); ok {
					s.Source = SourceCall
				}
				walkExpr(i.Value, false)
			case *ir.Expression:
				walkExpr(i.Value, false)
			}
		}
		switch term := blk.Terminator.(type) {
		case *ir.Return:
			if term.Value != nil {
				walkExpr(term.Value, true)
			}
		case *ir.Throw:
			walkExpr(term.Value, false)
		case *ir.Branch:
			walkExpr(term.Test, false)
		case *ir.Switch:
			walkExpr(term.Disc, false)
		}
	}

	return a
}

func walkMemberRead(a *Analysis, object ir.Expr, property string, computed ir.Expr) {
	id, ok := object.(*ir.Identifier)
	if !ok {
		return
	}
	s := a.shapeOrNew(id.Name)
	if computed == nil {
		s.KnownKeys[property] = true
		s.PropertyReads[property] = true
		return
	}
	switch lit := computed.(type) {
	case *ir.Literal:
		if lit.LitKind == ir.LitString || lit.LitKind == ir.LitNumber {
			key := unquoteKey(lit.Raw)
			s.KnownKeys[key] = true
			s.PropertyReads[key] = true
			return
		}
	}
	s.DynamicAccess = true
}

func (a *Analysis) shapeOrNew(base string) *Shape {
	if s, ok := a.Shapes[base]; ok {
		return s
	}
	s := newShape(base)
	a.Shapes[base] = s
	return s
}

func unquoteKey(raw string) string {
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// Decide computes the subscription strategy for base given its shape.
// Whole-object subscription is required when access is dynamic or the
// source is unknown; property-level subscription applies when reads
// exist and the object is neither dynamically accessed nor escaping
// with mutation; spread-wrapping applies to a non-escaping spread source
// that has a nonempty read set.
func (a *Analysis) Decide(base string) Decision {
	s, ok := a.Shapes[base]
	if !ok {
		return Decision{WholeObject: true}
	}
	if s.DynamicAccess || s.Source == SourceUnknown {
		return Decision{WholeObject: true}
	}
	escapesWithMutation := s.Escapes && len(s.MutableKeys) > 0
	if len(s.PropertyReads) > 0 && !s.DynamicAccess && !escapesWithMutation {
		return Decision{PropertyLevel: true, SpreadWrapped: s.IsSpread && !s.Escapes && len(s.PropertyReads) > 0}
	}
	return Decision{WholeObject: true}
}
