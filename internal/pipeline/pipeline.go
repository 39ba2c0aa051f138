// Package pipeline wires the compiler's stages into one entry point per
// source file: parse, build HIR, validate, analyze control flow and SSA,
// analyze reactivity and object shape, structurize, group into regions,
// optimize, and lower to the target AST. It plays the role the teacher's
// internal/ir.BuildProgram/PrintProgram pair plays as the top-level
// entry point, generalized from a single build-then-print call into a
// multi-stage compile with per-stage structured logging.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"fictc/internal/ast"
	"fictc/internal/cfg"
	"fictc/internal/codegen"
	"fictc/internal/config"
	"fictc/internal/directives"
	"fictc/internal/fjs"
	"fictc/internal/hir"
	"fictc/internal/ir"
	"fictc/internal/optimize"
	"fictc/internal/reactive"
	"fictc/internal/region"
	"fictc/internal/shape"
	"fictc/internal/structurize"
)

// FunctionResult is one compiled function: its lowered body, the runtime
// helpers it references, and any non-fatal warnings raised while
// compiling it.
type FunctionResult struct {
	Name     string
	Skipped  bool // true for "use fict-compiler-disable"; Body is empty
	Body     *codegen.Result
	Warnings []string
}

// Result is a whole compiled file.
type Result struct {
	File      string
	Functions []FunctionResult
	Helpers   []string // union of every function's referenced helpers
}

// Compile runs every stage over source, named file for diagnostics, using
// opts to gate the optimizer and codegen. It never panics on malformed
// input: every stage failure comes back as a *directives.CompilerError.
func Compile(file, source string, opts config.Options, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("file", file))

	prog, err := fjs.Parse(file, source)
	if err != nil {
		return nil, directives.Wrap(directives.BuildError, "parsing source", err)
	}
	log.Debug("parsed", zap.Int("statements", len(prog.Body)))

	disabled := disabledFunctionNames(prog)

	irProg, err := hir.Build(prog)
	if err != nil {
		return nil, directives.Wrap(directives.BuildError, "building IR", err)
	}
	log.Debug("built HIR", zap.Int("functions", len(irProg.Functions)), zap.Int("lifted", len(irProg.Lifted)))

	optOpts := opts.OptimizeOptions()
	result := &Result{File: file}
	helperSeen := make(map[string]bool)

	for _, fn := range append(append([]*ir.Function(nil), irProg.Functions...), irProg.Lifted...) {
		flog := log.With(zap.String("function", fn.Name))

		if disabled[fn.Name] {
			flog.Info("skipping disabled function", zap.String("directive", "use fict-compiler-disable"))
			result.Functions = append(result.Functions, FunctionResult{Name: fn.Name, Skipped: true})
			continue
		}

		fr, err := compileFunction(fn, optOpts, opts.CodegenOptions(fn.Name), flog)
		if err != nil {
			return nil, err
		}
		for _, h := range fr.Body.Helpers {
			if !helperSeen[h] {
				helperSeen[h] = true
				result.Helpers = append(result.Helpers, h)
			}
		}
		result.Functions = append(result.Functions, *fr)
	}

	return result, nil
}

func compileFunction(fn *ir.Function, optOpts optimize.Options, cgOpts codegen.Options, log *zap.Logger) (*FunctionResult, error) {
	if err := ir.Validate(fn); err != nil {
		return nil, directives.Wrap(directives.ValidationError, fmt.Sprintf("validating %s", fn.Name), err).
			WithContext(directives.Context{File: fn.Pos.File, Line: fn.Pos.Line, Variable: fn.Name})
	}

	graph, err := cfg.Analyze(fn)
	if err != nil {
		return nil, directives.Wrap(directives.BuildError, fmt.Sprintf("analyzing control flow for %s", fn.Name), err)
	}
	ssa := cfg.ToSSA(fn, graph)
	log.Debug("converted to SSA", zap.Int("renamedBases", len(ssa.SSAMap)))

	reactiveAnalysis, err := reactive.Analyze(fn, graph)
	if err != nil {
		return nil, directives.Wrap(directives.CycleError, fmt.Sprintf("analyzing reactivity for %s", fn.Name), err)
	}
	log.Debug("analyzed reactive scopes", zap.Int("scopes", len(reactiveAnalysis.Scopes)))

	shapes := shape.Analyze(fn)

	structured, warning, err := structurize.Structurize(fn, graph)
	if err != nil {
		return nil, directives.Wrap(directives.StructurizeError, fmt.Sprintf("structurizing %s", fn.Name), err)
	}
	var warnings []string
	if warning != "" {
		log.Warn("structurize fallback", zap.String("detail", warning))
		warnings = append(warnings, directives.Warning(warning))
	}

	regions := region.Build(fn, reactiveAnalysis, shapes)
	log.Debug("built regions", zap.Int("regions", len(regions.All)))

	pipe := optimize.NewDefaultPipeline()
	ctx := &optimize.Context{Fn: fn, Graph: graph, Reactive: reactiveAnalysis, Shapes: shapes, Names: ssa.Names, Opts: optOpts}
	applied := pipe.Run(ctx)
	log.Info("optimized", zap.Strings("passesApplied", applied))

	if fn.NoMemo {
		// "use no memo": getter/setter rewriting still happens for actual
		// signals/stores (rule 1/2), but no derived binding is promoted to
		// a memoized accessor: clearing ShouldMemoize on both the
		// underlying reactive scopes (what codegen's trackedDerived
		// classification reads) and the regions built from them (what
		// region grouping reads) suppresses rule 5's memo wrapping
		// end-to-end.
		for _, s := range reactiveAnalysis.Scopes {
			s.ShouldMemoize = false
		}
		for _, r := range regions.All {
			r.ShouldMemoize = false
		}
	}

	lowered, err := codegen.Lower(fn, reactiveAnalysis, shapes, regions, structured, cgOpts)
	if err != nil {
		return nil, directives.Wrap(directives.CodegenError, fmt.Sprintf("lowering %s", fn.Name), err)
	}
	warnings = append(warnings, lowered.Warnings...)

	return &FunctionResult{Name: fn.Name, Body: lowered, Warnings: warnings}, nil
}

// disabledFunctionNames re-walks the parsed source for "use
// fict-compiler-disable" directives, at both program and function
// granularity, since internal/hir only threads the narrower NoMemo
// directive through to internal/ir.Function — a full disable means "the
// core must not transform this unit at all," which has no representation
// in internal/ir (there is nothing to build). A program-level disable
// marks every top-level function name; a function-level directive
// overrides it per EffectiveMode's precedence rule.
func disabledFunctionNames(prog *ast.Program) map[string]bool {
	programMode, _ := leadingDirectiveMode(prog.Body)
	out := make(map[string]bool)
	for _, stmt := range prog.Body {
		decl, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		fnMode, hasOwn := leadingDirectiveMode(decl.Body.Body)
		if directives.EffectiveMode(programMode, fnMode, hasOwn) == directives.ModeDisabled {
			out[decl.Name] = true
		}
	}
	return out
}

func leadingDirectiveMode(body []ast.Stmt) (directives.Mode, bool) {
	if len(body) == 0 {
		return directives.ModeEnabled, false
	}
	ds, ok := body[0].(*ast.DirectiveStmt)
	if !ok {
		return directives.ModeEnabled, false
	}
	return directives.RecognizeDirective(ds.Value)
}
