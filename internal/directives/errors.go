// Package directives implements diagnostic reporting, the compiler error
// taxonomy, and source-level directive recognition ("use fict-compiler",
// "use no memo", inline ignore comments).
package directives

import "fmt"

// Kind is the fixed taxonomy of error kinds the pipeline can raise. It is a
// kind, not a name: callers switch on it, never string-match Error().
type Kind int

const (
	BuildError Kind = iota
	SSAError
	StructurizeError
	CodegenError
	ScopeError
	ValidationError
	CycleError
	DepthExceeded
)

func (k Kind) String() string {
	switch k {
	case BuildError:
		return "BUILD_ERROR"
	case SSAError:
		return "SSA_ERROR"
	case StructurizeError:
		return "STRUCTURIZE_ERROR"
	case CodegenError:
		return "CODEGEN_ERROR"
	case ScopeError:
		return "SCOPE_ERROR"
	case ValidationError:
		return "VALIDATION_ERROR"
	case CycleError:
		return "CYCLE_ERROR"
	case DepthExceeded:
		return "DEPTH_EXCEEDED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Context carries optional location/identity facts alongside an error.
type Context struct {
	File     string
	Line     int
	BlockID  int
	Variable string
}

// CompilerError is the one structured error type every pipeline stage
// returns. It is never swallowed; it is surfaced to the caller and the
// compiler refuses to emit output for the offending function.
type CompilerError struct {
	Kind    Kind
	Message string
	Ctx     Context
	Wrapped error
}

func (e *CompilerError) Error() string {
	loc := ""
	if e.Ctx.File != "" {
		loc = fmt.Sprintf(" at %s:%d", e.Ctx.File, e.Ctx.Line)
	} else if e.Ctx.BlockID != 0 {
		loc = fmt.Sprintf(" in block %d", e.Ctx.BlockID)
	}
	if e.Ctx.Variable != "" {
		loc += fmt.Sprintf(" (variable %q)", e.Ctx.Variable)
	}
	return fmt.Sprintf("%s: %s%s", e.Kind, e.Message, loc)
}

func (e *CompilerError) Unwrap() error { return e.Wrapped }

// New builds a CompilerError with no location context.
func New(kind Kind, message string) *CompilerError {
	return &CompilerError{Kind: kind, Message: message}
}

// Newf builds a CompilerError with a formatted message.
func Newf(kind Kind, format string, args ...any) *CompilerError {
	return &CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithContext attaches location/identity context and returns the receiver
// for chaining at the call site.
func (e *CompilerError) WithContext(ctx Context) *CompilerError {
	e.Ctx = ctx
	return e
}

// Wrap attaches an underlying cause, preserving %w-style unwrapping.
func Wrap(kind Kind, message string, cause error) *CompilerError {
	return &CompilerError{Kind: kind, Message: message, Wrapped: cause}
}
