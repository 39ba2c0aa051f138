package directives

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecognizeDirective(t *testing.T) {
	cases := []struct {
		literal    string
		wantMode   Mode
		wantOK     bool
	}{
		{`"use fict-compiler-disable"`, ModeDisabled, true},
		{`'use no memo'`, ModeNoMemo, true},
		{`"use fict-compiler"`, ModeEnabled, true},
		{`"use strict"`, ModeEnabled, false},
		{`"  use no memo  "`, ModeEnabled, false}, // inner whitespace isn't trimmed away, only the quoting
	}
	for _, c := range cases {
		mode, ok := RecognizeDirective(c.literal)
		require.Equal(t, c.wantOK, ok, "literal %q", c.literal)
		require.Equal(t, c.wantMode, mode, "literal %q", c.literal)
	}
}

func TestEffectiveModePrefersFunctionDirectiveWhenPresent(t *testing.T) {
	require.Equal(t, ModeNoMemo, EffectiveMode(ModeEnabled, ModeNoMemo, true))
	require.Equal(t, ModeDisabled, EffectiveMode(ModeDisabled, ModeEnabled, false), "no function directive: program mode wins")
}

func TestParseInlineSuppressionNextLineVariant(t *testing.T) {
	s, ok := ParseInlineSuppression("fict-ignore-next-line CYCLE_ERROR")
	require.True(t, ok)
	require.True(t, s.NextLineOnly)
	require.Equal(t, []string{"CYCLE_ERROR"}, s.Codes)
}

func TestParseInlineSuppressionSameLineWithNoCodesMeansAll(t *testing.T) {
	s, ok := ParseInlineSuppression("fict-ignore")
	require.True(t, ok)
	require.False(t, s.NextLineOnly)
	require.Nil(t, s.Codes)
}

func TestParseInlineSuppressionRejectsUnrelatedComment(t *testing.T) {
	_, ok := ParseInlineSuppression("a regular comment")
	require.False(t, ok)
}

// A fict-ignore-next-line comment must not be taken for a same-line
// fict-ignore by accident; order of the switch cases in
// ParseInlineSuppression matters since "fict-ignore" is itself a prefix of
// "fict-ignore-next-line".
func TestParseInlineSuppressionDoesNotConfuseThePrefixes(t *testing.T) {
	s, ok := ParseInlineSuppression("fict-ignore-next-line")
	require.True(t, ok)
	require.True(t, s.NextLineOnly)
}

func TestKindStringMatchesTaxonomy(t *testing.T) {
	require.Equal(t, "CYCLE_ERROR", CycleError.String())
	require.Equal(t, "STRUCTURIZE_ERROR", StructurizeError.String())
	require.Equal(t, "UNKNOWN_ERROR", Kind(99).String())
}

func TestCompilerErrorMessageIncludesLocationAndVariable(t *testing.T) {
	err := New(ScopeError, "signal read outside component").
		WithContext(Context{File: "app.fict", Line: 12, Variable: "count"})

	require.Equal(t, `SCOPE_ERROR: signal read outside component at app.fict:12 (variable "count")`, err.Error())
}

func TestCompilerErrorMessageFallsBackToBlockID(t *testing.T) {
	err := New(CycleError, "unresolved dependency cycle").WithContext(Context{BlockID: 4})
	require.Equal(t, "CYCLE_ERROR: unresolved dependency cycle in block 4", err.Error())
}

func TestWrapPreservesUnwrap(t *testing.T) {
	cause := New(BuildError, "missing block terminator")
	wrapped := Wrap(SSAError, "ssa construction failed", cause)

	require.Same(t, cause, wrapped.Unwrap())
}

func TestReporterSuppressesMatchingCode(t *testing.T) {
	r := NewReporter()
	r.Suppress("CYCLE_ERROR")

	r.Report(Diagnostic{Err: New(CycleError, "loop without exit")})
	r.Report(Diagnostic{Err: New(ScopeError, "read outside scope")})

	require.Len(t, r.Diagnostics(), 1)
	require.Equal(t, ScopeError, r.Diagnostics()[0].Err.Kind)
	require.True(t, r.HasErrors())
}

func TestReporterFormatIncludesNotesAndHelp(t *testing.T) {
	r := NewReporter()
	r.Report(Diagnostic{
		Err:         New(ValidationError, "duplicate block id"),
		SourceLine:  "if (x) { ... }",
		Notes:       []string{"block 3 appears twice"},
		Suggestions: []Suggestion{{Message: "rename the duplicate block", Replacement: "block_3b"}},
		HelpText:    "see the region builder's block numbering contract",
	})

	out := r.Format()
	require.Contains(t, out, "VALIDATION_ERROR")
	require.Contains(t, out, "duplicate block id")
	require.Contains(t, out, "if (x) { ... }")
	require.Contains(t, out, "block 3 appears twice")
	require.Contains(t, out, "rename the duplicate block")
	require.Contains(t, out, "block_3b")
	require.Contains(t, out, "region builder's block numbering contract")
}
