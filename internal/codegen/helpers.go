package codegen

// helper names from the reactive runtime module; codegen references them by
// local identifier and tracks which ones a given lowering actually used so
// the final import declaration only binds what is needed.
const (
	helperUseContext  = "useContext"
	helperUseMemo     = "useMemo"
	helperUseEffect   = "useEffect"
	helperUseSignal   = "useSignal"
	helperCreateSignal = "createSignal"
	helperMemo        = "memo"
	helperEffect      = "effect"
	helperRunInScope  = "runInScope"
	helperCreateElem  = "createElement"
	helperInsert      = "insert"
	helperConditional = "conditional"
	helperKeyedList   = "keyedList"
	helperBindEvent   = "bindEvent"
	helperBindRef     = "bindRef"
	helperBindClass   = "bindClass"
	helperBindStyle   = "bindStyle"
	helperBindProp    = "bindProperty"
	helperBindAttr    = "bindAttribute"
	helperOnDestroy   = "onDestroy"
	helperTemplate    = "template"
)

// signalCallees mint a tracked accessor pair; reads of the bound name
// become zero-arg getter calls (rule 1) and writes become setter calls
// (rule 2). "$state" is the source-level rune spelling; runeCallees below
// maps it to the runtime call codegen actually emits.
var signalCallees = map[string]bool{
	"createSignal": true, "useSignal": true, "$state": true,
}

// storeCallees mint proxy-based reactivity; unlike signals, reads of the
// bound name are left as plain identifiers since path-level tracking is
// the runtime proxy's job, not codegen's.
var storeCallees = map[string]bool{
	"createStore": true, "useStore": true,
}

// memoCallees mint an already-accessor derived value; reads behave like
// signal reads (rule 1) but the binding itself is never re-wrapped.
// "$derived" is the source-level rune spelling.
var memoCallees = map[string]bool{
	"createMemo": true, "useMemo": true, "$derived": true,
}

// runeCallees maps a source-level rune call to the runtime initializer
// codegen emits in its place, keyed by codegen scope: component scope
// acquires a context handle as the call's first argument, module scope
// does not. A callee absent from this table (e.g. a plain "createSignal"
// call already spelled in runtime terms) is left untouched by this
// rewrite.
var runeCallees = map[string]struct{ component, module string }{
	"$state":   {component: helperUseSignal, module: helperCreateSignal},
	"$derived": {component: helperUseMemo, module: helperMemo},
}

// HelperSet accumulates the runtime helper identifiers a lowering
// referenced, in first-use order, for the final import declaration.
type HelperSet struct {
	seen  map[string]bool
	order []string
}

func newHelperSet() *HelperSet {
	return &HelperSet{seen: make(map[string]bool)}
}

func (h *HelperSet) use(name string) string {
	if !h.seen[name] {
		h.seen[name] = true
		h.order = append(h.order, name)
	}
	return name
}

// Names returns every helper referenced, in first-use order.
func (h *HelperSet) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// attrNameMapping is the fixed JSX-attribute-to-target-prop rename table
// (rule 7). Names absent from the table keep their original spelling and
// are routed to bindAttribute unless they appear in domProperties.
var attrNameMapping = map[string]string{
	"htmlFor":   "for",
	"className": "class",
}

// domProperties route through bindProperty rather than bindAttribute.
var domProperties = map[string]bool{
	"value": true, "checked": true, "selected": true, "disabled": true,
	"readOnly": true, "multiple": true, "muted": true,
}
