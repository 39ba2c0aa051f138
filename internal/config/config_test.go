package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/codegen"
)

func TestDefaultHasConservativeBaseline(t *testing.T) {
	opts := Default()
	require.True(t, opts.CrossBlockConstProp)
	require.ElementsMatch(t, []string{"useMemo", "memo"}, opts.MemoMacros)
	require.Empty(t, opts.ComponentScope)
}

func TestLoadOverridesOnlyFieldsPresentInFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fictc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("componentScope: [\"App\", \"Counter\"]\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)

	require.True(t, opts.CrossBlockConstProp, "unset fields fall back to Default()")
	require.ElementsMatch(t, []string{"useMemo", "memo"}, opts.MemoMacros)
	require.ElementsMatch(t, []string{"App", "Counter"}, opts.ComponentScope)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCodegenOptionsResolvesComponentScopeByName(t *testing.T) {
	opts := Options{ComponentScope: []string{"App"}}

	require.Equal(t, codegen.ScopeComponent, opts.CodegenOptions("App").Scope)
	require.Equal(t, codegen.ScopeModule, opts.CodegenOptions("helper").Scope)
}
