package directives

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Suggestion is one actionable fix offered alongside an error.
type Suggestion struct {
	Message     string
	Replacement string
}

// Diagnostic is a single reported problem, carrying enough source context
// to render a caret-style message.
type Diagnostic struct {
	Err         *CompilerError
	SourceLine  string
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

// Reporter accumulates diagnostics for a compilation run and formats them
// with terminal color, in the style of rustc's caret diagnostics.
type Reporter struct {
	diagnostics []Diagnostic
	suppressed  map[string]bool // suppression codes set by fict-ignore
}

func NewReporter() *Reporter {
	return &Reporter{suppressed: make(map[string]bool)}
}

// Suppress registers a diagnostic code (the Kind's string form) to be
// dropped silently, set by an inline fict-ignore / fict-ignore-next-line
// directive.
func (r *Reporter) Suppress(code string) {
	r.suppressed[code] = true
}

// Report records d unless its code has been suppressed on this reporter.
func (r *Reporter) Report(d Diagnostic) {
	if r.suppressed[d.Err.Kind.String()] {
		return
	}
	r.diagnostics = append(r.diagnostics, d)
}

func (r *Reporter) Diagnostics() []Diagnostic { return r.diagnostics }

func (r *Reporter) HasErrors() bool { return len(r.diagnostics) > 0 }

// Format renders all accumulated diagnostics as a single colored report.
func (r *Reporter) Format() string {
	var b strings.Builder
	for _, d := range r.diagnostics {
		b.WriteString(FormatDiagnostic(d))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatDiagnostic renders one diagnostic, caret-pointing at the offending
// column when source context is available.
func FormatDiagnostic(d Diagnostic) string {
	errLabel := color.New(color.FgRed, color.Bold).Sprint("error")
	codeLabel := color.New(color.FgHiBlack).Sprintf("[%s]", d.Err.Kind)

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s: %s\n", errLabel, codeLabel, d.Err.Message)

	if d.Err.Ctx.File != "" {
		loc := color.New(color.FgCyan).Sprintf("%s:%d", d.Err.Ctx.File, d.Err.Ctx.Line)
		fmt.Fprintf(&b, "  --> %s\n", loc)
	}

	if d.SourceLine != "" {
		fmt.Fprintf(&b, "   | %s\n", d.SourceLine)
	}

	for _, n := range d.Notes {
		fmt.Fprintf(&b, "%s: %s\n", color.New(color.FgBlue).Sprint("note"), n)
	}
	for _, s := range d.Suggestions {
		fmt.Fprintf(&b, "%s: %s\n", color.New(color.FgGreen).Sprint("help"), s.Message)
		if s.Replacement != "" {
			fmt.Fprintf(&b, "   %s\n", s.Replacement)
		}
	}
	if d.HelpText != "" {
		fmt.Fprintf(&b, "%s: %s\n", color.New(color.FgGreen).Sprint("help"), d.HelpText)
	}

	return b.String()
}

// Warning renders a non-fatal structurizer-fallback style message without
// the "error" label.
func Warning(message string) string {
	label := color.New(color.FgYellow, color.Bold).Sprint("warning")
	return fmt.Sprintf("%s: %s", label, message)
}
