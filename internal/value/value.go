// Package value implements the producer-side node value tree (C1): an
// immutable, hashable description of an audio signal-processing graph.
package value

import "fmt"

// MaxChildren is the hard cap on a node's ordered child list.
const MaxChildren = 8

// Props is the dynamic, JSON-like property bag carried by a node value.
// Accepted leaf kinds are float64, string, bool, []byte, []Props-able
// values ([]any) and nested maps (map[string]any); see encode.go for the
// canonical serialization used by the hasher.
type Props map[string]any

// Thunk expands a composite node into a concrete subtree. It receives the
// composite's own props/children plus a RenderContext exposing engine
// timing, and returns the value it resolves to. Composite expansions are
// never memoized by the engine (see SPEC_FULL.md §3, Open Question c) —
// callers that want to avoid re-expansion must share the *Value itself.
type Thunk func(props Props, children []Ref, ctx RenderContext) Value

// RenderContext is threaded through composite expansion so a thunk can
// make sample-rate/block-size-aware decisions (e.g. picking filter
// coefficients).
type RenderContext struct {
	SampleRate float64
	BlockSize  int
}

// Ref is a reference to a specific output channel of a child value. The
// hash of a parent folds in each child's (hash, channel) pair so that
// otherwise-identical subtrees used through different channels hash
// differently (spec §3, "Output-channel annotation").
type Ref struct {
	Value   Value
	Channel uint16
}

// Value is an immutable node-value record. Construct with CreatePrimitive
// or CreateComposite; never assemble the struct literal directly outside
// this package so the memoized hash stays consistent with its contents.
type Value struct {
	kind     string
	thunk    Thunk
	props    Props
	children []Ref
	hash     uint32
	isHashed bool
}

// Kind returns the symbolic primitive name, or "" for a composite value.
func (v Value) Kind() string { return v.kind }

// IsComposite reports whether this value expands via a Thunk rather than
// naming a registered primitive.
func (v Value) IsComposite() bool { return v.thunk != nil }

// Thunk returns the composite's expansion function (nil for primitives).
func (v Value) Thunk() Thunk { return v.thunk }

// Props returns the node's property bag. Callers must not mutate it.
func (v Value) Props() Props { return v.props }

// Children returns the node's ordered child references.
func (v Value) Children() []Ref { return v.children }

// Hash returns the memoized content hash (spec C2). Panics if called on a
// zero Value that was never constructed via a factory — that indicates a
// programming error, not a runtime condition.
func (v Value) Hash() uint32 {
	if !v.isHashed {
		panic("value: Hash() called on an unconstructed Value")
	}
	return v.hash
}

// CreatePrimitive builds a primitive node value naming a registered engine
// kind. It rejects more than MaxChildren children (construction-time error,
// spec §7) and pre-computes the memoized hash.
func CreatePrimitive(kind string, props Props, children ...Ref) (Value, error) {
	if len(children) > MaxChildren {
		return Value{}, fmt.Errorf("value: %q has %d children, exceeds max of %d", kind, len(children), MaxChildren)
	}
	if kind == "" {
		return Value{}, fmt.Errorf("value: primitive kind must not be empty")
	}
	v := Value{
		kind:     kind,
		props:    clampProps(props),
		children: append([]Ref(nil), children...),
	}
	v.hash = hashValue(v)
	v.isHashed = true
	return v, nil
}

// CreateComposite wraps a user-provided expansion thunk. The returned
// value is not a graph node; the reconciler calls thunk during traversal
// and recursively processes the result. Its own hash (used only to give
// the composite reference a stable identity across renders, e.g. for
// memo-key comparisons — spec §4.2) folds in a pointer-identity seed for
// the thunk, the props, and the *unresolved* children's references.
func CreateComposite(thunk Thunk, props Props, children ...Ref) (Value, error) {
	if len(children) > MaxChildren {
		return Value{}, fmt.Errorf("value: composite has %d children, exceeds max of %d", len(children), MaxChildren)
	}
	if thunk == nil {
		return Value{}, fmt.Errorf("value: composite thunk must not be nil")
	}
	v := Value{
		thunk:    thunk,
		props:    clampProps(props),
		children: append([]Ref(nil), children...),
	}
	v.hash = hashValue(v)
	v.isHashed = true
	return v, nil
}

// Const builds the synthetic "const" primitive the reconciler substitutes
// for bare numeric children (spec §4.3 step 1).
func Const(n float64) Value {
	v, err := CreatePrimitive("const", Props{"value": n})
	if err != nil {
		// unreachable: "const" always has zero children.
		panic(err)
	}
	return v
}

// Out wraps a value as a Ref to its default (channel 0) output.
func Out(v Value) Ref { return Ref{Value: v, Channel: 0} }

// OutChannel wraps a value as a Ref to a specific output channel.
func OutChannel(v Value, channel uint16) Ref { return Ref{Value: v, Channel: channel} }

func clampProps(p Props) Props {
	if p == nil {
		return Props{}
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
