// Package config decodes the on-disk options that govern how aggressively
// the optimizer and codegen behave for a given project, mirroring the
// wider corpus's convention of a small yaml-tagged struct rather than a
// long flag list (the teacher itself reads no configuration file; this
// package has no teacher equivalent to generalize from).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fictc/internal/codegen"
	"fictc/internal/optimize"
)

// Options is the full set of knobs a project's `.fictc.yaml` can set. Zero
// value is meaningless; use Default() for the conservative baseline.
type Options struct {
	// CrossBlockConstProp enables constant propagation's cross-block
	// sharing of a single-assignment, compiler-generated-or-const,
	// non-reactive, non-loop binding.
	CrossBlockConstProp bool `yaml:"crossBlockConstProp"`

	// MemoMacros names the call targets the optimizer and codegen treat as
	// already-memoized wrappers. Default lists useMemo and memo; a file
	// that sets memoMacros replaces that list rather than adding to it.
	MemoMacros []string `yaml:"memoMacros"`

	// ComponentScope marks function names that should lower in component
	// scope (context-acquiring useMemo/useEffect) rather than module
	// scope (free-function memo/effect).
	ComponentScope []string `yaml:"componentScope"`
}

// Default returns the baseline used when no configuration file is present:
// cross-block constant propagation on, the two built-in memo macros, and
// no component-scope functions named (callers decide scope by other means,
// e.g. a naming convention, when no config file lists them explicitly).
func Default() Options {
	return Options{
		CrossBlockConstProp: true,
		MemoMacros:          []string{"useMemo", "memo"},
	}
}

// Load reads and decodes a YAML configuration file at path, falling back
// to Default() field-by-field for anything the file does not set (a field
// the file sets explicitly, even to its zero value, overrides the default).
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return opts, nil
}

// memoMacroSet turns the configured macro name list into the map shape
// both optimize.Options and codegen.Options expect.
func (o Options) memoMacroSet() map[string]bool {
	out := make(map[string]bool, len(o.MemoMacros))
	for _, name := range o.MemoMacros {
		out[name] = true
	}
	return out
}

// componentSet turns the configured component-scope function name list
// into a lookup set.
func (o Options) componentSet() map[string]bool {
	out := make(map[string]bool, len(o.ComponentScope))
	for _, name := range o.ComponentScope {
		out[name] = true
	}
	return out
}

// OptimizeOptions projects Options onto the optimizer's own Options shape.
func (o Options) OptimizeOptions() optimize.Options {
	return optimize.Options{
		CrossBlockConstProp: o.CrossBlockConstProp,
		MemoMacros:          o.memoMacroSet(),
	}
}

// CodegenOptions projects Options onto codegen's Options shape for a given
// function name, resolving ScopeComponent/ScopeModule from the configured
// component-scope name list.
func (o Options) CodegenOptions(fnName string) codegen.Options {
	scope := codegen.ScopeModule
	if o.componentSet()[fnName] {
		scope = codegen.ScopeComponent
	}
	return codegen.Options{Scope: scope, MemoMacros: o.memoMacroSet()}
}
