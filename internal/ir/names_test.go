package ir

import "testing"

func TestBaseNameIdempotent(t *testing.T) {
	names := []string{"x", "x#1", "x#12", "__t0", "counter#3", "weird#name"}
	for _, n := range names {
		once := BaseName(n)
		twice := BaseName(once)
		if once != twice {
			t.Errorf("BaseName not idempotent for %q: once=%q twice=%q", n, once, twice)
		}
	}
}

func TestNameTableVersioning(t *testing.T) {
	nt := NewNameTable()
	v1 := nt.Version("x")
	v2 := nt.Version("x")
	if v1 == v2 {
		t.Fatalf("expected distinct versions, got %q and %q", v1, v2)
	}
	if BaseName(v1) != "x" || BaseName(v2) != "x" {
		t.Errorf("expected base name x, got %q and %q", BaseName(v1), BaseName(v2))
	}
	if nt.MaxVersion("x") != 2 {
		t.Errorf("expected max version 2, got %d", nt.MaxVersion("x"))
	}
}

func TestFreshTempIsGenerated(t *testing.T) {
	nt := NewNameTable()
	tmp := nt.FreshTemp("cond")
	if !nt.IsGenerated(tmp) {
		t.Errorf("expected %q to be generated", tmp)
	}
	if !IsGenerated("__anything") {
		t.Errorf("expected double-underscore-prefixed name to be generated by convention")
	}
}

func TestDependencyPathRoundTrip(t *testing.T) {
	// s.user.name
	expr := &Member{
		Object:   &Member{Object: &Identifier{Name: "s"}, Property: "user"},
		Property: "name",
	}
	path, ok := ExtractDependencyPath(expr)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if path.Base != "s" {
		t.Errorf("expected base s, got %q", path.Base)
	}
	rendered := path.String()
	if rendered != "s.user.name" {
		t.Errorf("expected s.user.name, got %q", rendered)
	}

	reparsed, ok := ExtractDependencyPath(expr)
	if !ok || !path.Equal(reparsed) {
		t.Errorf("expected round-tripped path to equal original")
	}
}

func TestDependencyPathOptionalChain(t *testing.T) {
	// s?.user.name
	expr := &Member{
		Object:   &OptionalMember{Object: &Identifier{Name: "s"}, Property: "user"},
		Property: "name",
	}
	path, ok := ExtractDependencyPath(expr)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if !path.HasOptional {
		t.Errorf("expected hasOptional true")
	}
	if path.String() != "s?.user.name" {
		t.Errorf("unexpected rendering: %q", path.String())
	}
}

func TestDependencyPathNonLiteralComputedFails(t *testing.T) {
	// s[i] where i is a variable, not a literal
	expr := &Member{
		Object:   &Identifier{Name: "s"},
		Computed: &Identifier{Name: "i"},
	}
	_, ok := ExtractDependencyPath(expr)
	if ok {
		t.Errorf("expected extraction to fail for non-literal computed key")
	}
}
