package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fictc/internal/ast"
	"fictc/internal/config"
)

func compileOne(t *testing.T, source string, componentScope bool) string {
	t.Helper()
	opts := config.Default()
	if componentScope {
		opts.ComponentScope = []string{"C"}
	}
	result, err := Compile("test.fict.js", source, opts, nil)
	require.NoError(t, err)
	require.Len(t, result.Functions, 1)
	fn := result.Functions[0]
	require.False(t, fn.Skipped)
	return ast.PrintStatements(fn.Body.Body)
}

// S1 — signal read/write: c=$state(0); c=c+1; c++; return c.
func TestScenarioS1SignalReadWrite(t *testing.T) {
	src := `function C(){ let c=$state(0); c=c+1; c++; return c }`
	out := compileOne(t, src, true)

	require.Contains(t, out, "useSignal")
	require.Contains(t, out, "c(")
	require.Contains(t, out, "c() + 1")
	require.Contains(t, out, "return c()")
}

// S6 — "use no memo": getter rewriting happens, but no memo wrapping.
func TestScenarioS6UseNoMemo(t *testing.T) {
	src := `function C(){
  "use no memo";
  let count=$state(0);
  const doubled=count*2;
  return doubled;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "count()")
	require.NotContains(t, out, "useMemo")
	require.NotContains(t, out, "__region_")
}

// A disabled function is left untransformed rather than lowered.
func TestDisableDirectiveSkipsFunction(t *testing.T) {
	src := `function C(){ "use fict-compiler-disable"; let c=$state(0); return c }`
	result, err := Compile("test.fict.js", src, config.Default(), nil)
	require.NoError(t, err)
	require.Len(t, result.Functions, 1)
	require.True(t, result.Functions[0].Skipped)
}

func TestPlainModuleScopeFunctionLowersWithoutContext(t *testing.T) {
	src := `function add(a, b){ return a + b; }`
	out := compileOne(t, src, false)
	require.NotContains(t, out, "__fictCtx")
	require.True(t, strings.Contains(out, "return (a + b)"))
}

// S2 — derived property read inside a JSX attribute: a dynamic class
// attribute on an intrinsic element routes through bindClass rather than
// inlining into a static template, and the reactive read underneath it
// still rewrites to a getter call.
func TestScenarioS2DerivedPropertyReadInJSXAttribute(t *testing.T) {
	src := `function C(){
  let user=$state({name:"a"});
  return <div class={user.name}>{user.name}</div>;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "template(")
	require.Contains(t, out, "bindClass")
	require.Contains(t, out, "user().name")
}

// S3 — props binding: a component-scope function reading a plain
// (non-reactive) parameter passes it straight through without any
// getter rewrite.
func TestScenarioS3PropsBindingPassthrough(t *testing.T) {
	src := `function C(props){
  return <span>{props.label}</span>;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "props.label")
	require.NotContains(t, out, "props()")
}

// S4 — conditional lazy memo: the untaken branch of a tracked-test
// conditional is never separately memoized; the test itself rewrites to
// a getter call and each branch lowers as an ordinary expression.
func TestScenarioS4ConditionalLazyRead(t *testing.T) {
	src := `function C(){
  let flag=$state(true);
  let a=$state(1);
  let b=$state(2);
  return flag ? a : b;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "flag()")
	require.Contains(t, out, "a()")
	require.Contains(t, out, "b()")
	require.Contains(t, out, "? a() : b()")
}

// Intrinsic JSX lowering: a static template string plus a path-addressed
// binding list, not one createElement call per node. Covers an event
// binding with a capture modifier, a plain dynamic attribute, and a
// dynamic text child in the same element.
func TestJSXIntrinsicElementLowersToTemplateAndBindings(t *testing.T) {
	src := `function C(){
  let count=$state(0);
  return <button onClickCapture={() => count(count()+1)} title={"n=" + count()}>{count()}</button>;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "template(")
	require.Contains(t, out, "<button>")
	require.Contains(t, out, "<!---->")
	require.Contains(t, out, "bindEvent")
	require.Contains(t, out, `"click"`)
	require.Contains(t, out, "capture: true")
	require.Contains(t, out, "bindAttribute")
	require.Contains(t, out, "insert(")
	require.Contains(t, out, "onDestroy(")
}

// A static-only intrinsic subtree collapses into one template with no
// bindings at all: no createElement, no insert, nothing but the cached
// template clone.
func TestJSXFullyStaticIntrinsicTreeHasNoBindings(t *testing.T) {
	src := `function C(){
  return <div id="card"><span>hello</span></div>;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "template(")
	require.Contains(t, out, `<div id="card"><span>hello</span></div>`)
	require.NotContains(t, out, "createElement")
	require.NotContains(t, out, "insert(")
}

// An intrinsic element that spreads attributes has no splice position in
// a static template for the unknown prop set, so it falls back to a
// plain createElement call instead.
func TestJSXSpreadAttributeFallsBackToCreateElement(t *testing.T) {
	src := `function C(props){
  return <div {...props}>{props.label}</div>;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "createElement")
	require.NotContains(t, out, "template(")
}

// A `.map` list child lowers through keyedList, with the callback's item
// parameter rewritten to getter-call form.
func TestJSXListChildLowersToKeyedList(t *testing.T) {
	src := `function C(){
  let items=$state([1,2,3]);
  return <ul>{items().map(item => <li>{item}</li>)}</ul>;
}`
	out := compileOne(t, src, true)

	require.Contains(t, out, "keyedList(")
	require.Contains(t, out, "item()")
}

// S5 — state-machine fallback path: a labeled loop with an early
// continue compiles end to end regardless of whether structurize takes
// the plain-nesting path or the state-machine fallback for it; this is a
// non-crash smoke test for that family of control flow, not an assertion
// on which path was taken.
func TestScenarioS5StateMachineFallbackStillCompiles(t *testing.T) {
	src := `function run(items){
  let i=0;
  outer: while (i < items.length) {
    if (items[i] === 0) {
      i = i + 1;
      continue outer;
    }
    i = i + 1;
  }
  return i;
}`
	out := compileOne(t, src, false)
	require.NotEmpty(t, out)
}
