package directives

import "strings"

// Mode describes how strongly the compiler core should engage for a given
// program or function.
type Mode int

const (
	// ModeEnabled is the default: full region/memo emission.
	ModeEnabled Mode = iota
	// ModeDisabled means "use fict-compiler-disable": the core must not
	// transform this unit at all.
	ModeDisabled
	// ModeNoMemo means "use no memo": getter rewriting and plain
	// assignment still occur, but region/memo wrapping does not.
	ModeNoMemo
)

const (
	directiveCompiler        = "use fict-compiler"
	directiveCompilerDisable = "use fict-compiler-disable"
	directiveNoMemo          = "use no memo"
)

// RecognizeDirective inspects a single leading string-literal statement
// (as HIR builders surface them) and reports the mode it selects, if any.
func RecognizeDirective(literal string) (Mode, bool) {
	text := strings.Trim(strings.TrimSpace(literal), `'"`)
	switch text {
	case directiveCompilerDisable:
		return ModeDisabled, true
	case directiveNoMemo:
		return ModeNoMemo, true
	case directiveCompiler:
		return ModeEnabled, true
	default:
		return ModeEnabled, false
	}
}

// EffectiveMode combines a program-level mode with a function-level mode,
// the function-level directive taking precedence when present.
func EffectiveMode(program Mode, fn Mode, fnHasDirective bool) Mode {
	if fnHasDirective {
		return fn
	}
	return program
}

// InlineSuppression is a parsed fict-ignore / fict-ignore-next-line
// comment.
type InlineSuppression struct {
	// NextLineOnly is true for fict-ignore-next-line, false for a
	// same-line fict-ignore.
	NextLineOnly bool
	// Codes lists the error kind strings suppressed; empty means "all".
	Codes []string
}

const (
	prefixIgnore         = "fict-ignore"
	prefixIgnoreNextLine = "fict-ignore-next-line"
)

// ParseInlineSuppression recognizes a comment body (without leading //)
// as a suppression directive.
func ParseInlineSuppression(comment string) (InlineSuppression, bool) {
	text := strings.TrimSpace(comment)
	switch {
	case strings.HasPrefix(text, prefixIgnoreNextLine):
		rest := strings.TrimSpace(text[len(prefixIgnoreNextLine):])
		return InlineSuppression{NextLineOnly: true, Codes: splitCodes(rest)}, true
	case strings.HasPrefix(text, prefixIgnore):
		rest := strings.TrimSpace(text[len(prefixIgnore):])
		return InlineSuppression{NextLineOnly: false, Codes: splitCodes(rest)}, true
	default:
		return InlineSuppression{}, false
	}
}

func splitCodes(rest string) []string {
	if rest == "" {
		return nil
	}
	fields := strings.Fields(rest)
	return fields
}
