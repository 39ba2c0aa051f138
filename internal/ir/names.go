package ir

import (
	"strconv"
	"strings"
)

// ssaSeparator marks a compiler-versioned suffix. Only names produced by
// NameTable.Version carry it; a user identifier that happens to contain the
// same substring is left alone because it will not parse as trailing
// "separator + digits".
const ssaSeparator = "#"

// generatedPrefix marks a compiler-synthesized temporary never present in
// source.
const generatedPrefix = "__"

// NameTable tracks SSA versioning and generated-temporary allocation for a
// single function. It is owned by whichever pass constructs it (normally
// internal/cfg's SSA renamer) and is never a package-level global, per the
// resource-model requirement that the name registry be a parameter or local
// cache rather than shared mutable state.
type NameTable struct {
	maxVersion map[string]int
	generated  map[string]bool
	tempSeq    int
}

// NewNameTable returns an empty, ready-to-use table.
func NewNameTable() *NameTable {
	return &NameTable{
		maxVersion: make(map[string]int),
		generated:  make(map[string]bool),
	}
}

// Version returns the next SSA name for base, e.g. Version("x") -> "x#1",
// "x#2", ... Version numbers start at 1; an unversioned base name is
// implicitly version 0.
func (t *NameTable) Version(base string) string {
	t.maxVersion[base]++
	v := t.maxVersion[base]
	return base + ssaSeparator + strconv.Itoa(v)
}

// MaxVersion returns the highest version minted so far for base (0 if
// never versioned).
func (t *NameTable) MaxVersion(base string) int {
	return t.maxVersion[base]
}

// FreshTemp allocates a new compiler-generated temporary name, e.g.
// "__t0", "__t1", ...
func (t *NameTable) FreshTemp(hint string) string {
	name := generatedPrefix + hint + strconv.Itoa(t.tempSeq)
	t.tempSeq++
	t.generated[name] = true
	return name
}

// MarkGenerated records that name is compiler-synthesized, independent of
// whether it went through FreshTemp (e.g. region/memo slot bindings named
// by the lowerer directly).
func (t *NameTable) MarkGenerated(name string) {
	t.generated[name] = true
}

// IsGenerated reports whether name was synthesized by the compiler, either
// because it carries the reserved double-underscore prefix or because it
// was explicitly marked.
func (t *NameTable) IsGenerated(name string) bool {
	if IsGenerated(name) {
		return true
	}
	return t.generated[name]
}

// IsGenerated reports whether name carries the reserved double-underscore
// prefix, independent of any particular NameTable instance.
func IsGenerated(name string) bool {
	return strings.HasPrefix(name, generatedPrefix)
}

// BaseName strips a compiler-minted SSA suffix from name, returning name
// unchanged if it carries none. Applying BaseName twice is equivalent to
// applying it once (testable property 3: de-versioning idempotence).
func BaseName(name string) string {
	idx := strings.LastIndex(name, ssaSeparator)
	if idx < 0 {
		return name
	}
	suffix := name[idx+len(ssaSeparator):]
	if suffix == "" {
		return name
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:idx]
}

// IsVersioned reports whether name carries a recognizable SSA suffix.
func IsVersioned(name string) bool {
	return BaseName(name) != name
}

// ---- Dependency paths --------------------------------------------------

// PathSegment is one step of a member-access chain.
type PathSegment struct {
	Property string
	Optional bool
	Computed bool
}

// DependencyPath is the flattened form of a member-access chain rooted at
// a base identifier, e.g. `s.user?.name` -> {base: "s", segments:
// [{"user",false,false},{"name",true,false}], hasOptional:true}.
type DependencyPath struct {
	Base        string
	Segments    []PathSegment
	HasOptional bool
}

// String renders the path back to dotted/optional-chain source syntax.
// Round-tripping Extract then String must reproduce an equivalent path
// (testable property 4).
func (p DependencyPath) String() string {
	var b strings.Builder
	b.WriteString(p.Base)
	for _, seg := range p.Segments {
		if seg.Optional {
			b.WriteString("?.")
		} else {
			b.WriteByte('.')
		}
		b.WriteString(seg.Property)
	}
	return b.String()
}

// Equal reports whether two paths have the same base and segment sequence.
func (p DependencyPath) Equal(other DependencyPath) bool {
	if p.Base != other.Base || len(p.Segments) != len(other.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// ExtractDependencyPath walks a member-access chain rooted at a plain
// Identifier, building a DependencyPath. It fails (ok=false) when a
// Computed key is present but is not a literal string/number key, matching
// the open question in the design notes: the conservative fallback is to
// collect only the base as a dependency.
func ExtractDependencyPath(e Expr) (DependencyPath, bool) {
	var segments []PathSegment
	hasOptional := false

	cur := e
	for {
		switch n := cur.(type) {
		case *Identifier:
			// reverse segments, since we walked from leaf to root
			for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
				segments[i], segments[j] = segments[j], segments[i]
			}
			return DependencyPath{Base: n.Name, Segments: segments, HasOptional: hasOptional}, true
		case *Member:
			prop, ok := memberPropertyName(n.Property, n.Computed)
			if !ok {
				return DependencyPath{}, false
			}
			segments = append(segments, PathSegment{Property: prop, Optional: false, Computed: n.Computed != nil})
			cur = n.Object
		case *OptionalMember:
			prop, ok := memberPropertyName(n.Property, n.Computed)
			if !ok {
				return DependencyPath{}, false
			}
			segments = append(segments, PathSegment{Property: prop, Optional: true, Computed: n.Computed != nil})
			hasOptional = true
			cur = n.Object
		default:
			return DependencyPath{}, false
		}
	}
}

func memberPropertyName(staticName string, computed Expr) (string, bool) {
	if computed == nil {
		return staticName, true
	}
	lit, ok := computed.(*Literal)
	if !ok {
		return "", false
	}
	if lit.LitKind != LitString && lit.LitKind != LitNumber {
		return "", false
	}
	return strings.Trim(lit.Raw, `'"`), true
}
