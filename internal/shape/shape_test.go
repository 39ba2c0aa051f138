package shape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/ir"
)

func funcWithBody(instructions []ir.Instruction, ret ir.Expr) *ir.Function {
	return &ir.Function{
		Name:   "f",
		Blocks: []*ir.BasicBlock{{ID: 0, Instructions: instructions, Terminator: &ir.Return{Value: ret}}},
	}
}

// A plain member read of a single property on an object-literal-sourced
// base qualifies for property-level subscription, and the shape records
// the read key in PropertyReads (region.expandDependency relies on this).
func TestDecideGrantsPropertyLevelForSingleTrackedRead(t *testing.T) {
	fn := funcWithBody(
		[]ir.Instruction{
			&ir.Assign{Target: "user", DeclarationKind: ir.DeclConst, Value: &ir.Object{Properties: []ir.ObjectProperty{
				{Key: "name", Value: &ir.Literal{LitKind: ir.LitString, Raw: `"Ada"`}},
			}}},
		},
		&ir.Member{Object: &ir.Identifier{Name: "user"}, Property: "name"},
	)

	a := Analyze(fn)
	decision := a.Decide("user")

	require.True(t, decision.PropertyLevel)
	require.False(t, decision.WholeObject)
	shape := a.Shapes["user"]
	require.True(t, shape.PropertyReads["name"])
	require.Equal(t, SourceObjectLiteral, shape.Source)
}

// A computed member access with a non-literal key can read any property
// at runtime, so the base falls back to whole-object subscription
// (spec.md's documented conservative choice for this open question).
func TestDecideFallsBackToWholeObjectOnDynamicComputedAccess(t *testing.T) {
	fn := funcWithBody(
		[]ir.Instruction{
			&ir.Assign{Target: "config", DeclarationKind: ir.DeclConst, Value: &ir.Object{}},
		},
		&ir.Member{
			Object:   &ir.Identifier{Name: "config"},
			Computed: &ir.Identifier{Name: "key"},
		},
	)

	a := Analyze(fn)
	decision := a.Decide("config")

	require.True(t, decision.WholeObject)
	require.False(t, decision.PropertyLevel)
	require.True(t, a.Shapes["config"].DynamicAccess)
}

// A base that escapes whole into a returned JSX child (a bare identifier,
// not a narrower member read) while also being mutated through a property
// write forfeits property-level subscription even though it has a
// qualifying property read elsewhere: the escaping+mutating combination
// means a narrower subscription could miss a mutation visible at the
// escape site.
func TestDecideWithEscapeAndMutationStaysWholeObject(t *testing.T) {
	fn := funcWithBody(
		[]ir.Instruction{
			&ir.Assign{Target: "state", DeclarationKind: ir.DeclConst, Value: &ir.Object{Properties: []ir.ObjectProperty{
				{Key: "count", Value: &ir.Literal{LitKind: ir.LitNumber, Raw: "0"}},
			}}},
			&ir.Expression{Value: &ir.AssignmentExpression{
				Op:     "=",
				Target: &ir.Member{Object: &ir.Identifier{Name: "state"}, Property: "count"},
				Value:  &ir.Literal{LitKind: ir.LitNumber, Raw: "1"},
			}},
			&ir.Assign{Target: "display", DeclarationKind: ir.DeclConst,
				Value: &ir.Member{Object: &ir.Identifier{Name: "state"}, Property: "count"}},
		},
		&ir.JSXElement{Tag: "div", Children: []ir.Expr{&ir.Identifier{Name: "state"}}},
	)

	a := Analyze(fn)
	shape := a.Shapes["state"]
	require.True(t, shape.Escapes, "the bare identifier as a JSX child escapes whole")
	require.True(t, shape.MutableKeys["count"])
	require.True(t, shape.PropertyReads["count"], "state.count is still read elsewhere")

	decision := a.Decide("state")
	require.True(t, decision.WholeObject)
	require.False(t, decision.PropertyLevel)
}

// A base with a known source (here an object literal, standing in for a
// destructured props object) that is also spread into another object and
// read only through a single property, never escaping, decides
// SpreadWrapped: its value can be narrowed to the read property even
// though a spread consumed it elsewhere.
func TestDecideMarksSpreadWrappedForNonEscapingSpreadSource(t *testing.T) {
	fn := funcWithBody(
		[]ir.Instruction{
			&ir.Assign{Target: "props", DeclarationKind: ir.DeclConst, Value: &ir.Object{}},
			&ir.Assign{Target: "merged", DeclarationKind: ir.DeclConst, Value: &ir.Object{Properties: []ir.ObjectProperty{
				{IsSpread: true, Value: &ir.Identifier{Name: "props"}},
			}}},
		},
		&ir.Member{Object: &ir.Identifier{Name: "props"}, Property: "label"},
	)

	a := Analyze(fn)
	shape := a.Shapes["props"]
	require.True(t, shape.IsSpread)
	require.False(t, shape.Escapes)

	decision := a.Decide("props")
	require.True(t, decision.PropertyLevel)
	require.True(t, decision.SpreadWrapped)
}

// A base never observed by Analyze decides whole-object, the same
// conservative default region.expandDependency falls back to when shape
// information is entirely absent.
func TestDecideUnknownBaseDefaultsToWholeObject(t *testing.T) {
	a := Analyze(funcWithBody(nil, &ir.Literal{LitKind: ir.LitNumber, Raw: "1"}))
	decision := a.Decide("never_seen")
	require.True(t, decision.WholeObject)
	require.False(t, decision.PropertyLevel)
}
