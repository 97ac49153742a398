package value

import "reflect"

// hashValue computes the 32-bit folded content hash for v (spec C2,
// hashNode). The seed folds in the kind/thunk identity, then either the
// stable "key" prop alone (so intentional identity overrides survive a
// prop rewrite) or the full canonical prop encoding, then each child's
// (hash, output channel) pair in order.
func hashValue(v Value) uint32 {
	var h uint32
	if v.thunk != nil {
		// A composite has no registered kind name; seed with a fixed
		// "composite" tag plus the thunk's function pointer instead, so
		// two composite calls with the same thunk and props collide the
		// way two primitives with the same kind+props do.
		h = foldNumber(hashString("composite"), uint32(reflect.ValueOf(v.thunk).Pointer()), 0)
	} else {
		h = hashString(v.kind)
	}

	if key, ok := stableKey(v.props); ok {
		h = foldString(h, key)
	} else {
		h = foldBytes(h, encodeProps(v.props))
	}

	for _, c := range v.children {
		h = foldNumber(h, c.Value.Hash(), c.Channel)
	}
	return fold32(h)
}

// stableKey returns the "key" prop, if present and a string (spec §4.2
// step 2).
func stableKey(p Props) (string, bool) {
	raw, ok := p["key"]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// hashString computes ((h<<5) - h) + codepoint for each rune, seeded at
// zero, matching spec §4.2 step 1 verbatim.
func hashString(s string) uint32 {
	return foldString(0, s)
}

func foldString(seed uint32, s string) uint32 {
	h := seed
	for _, r := range s {
		h = (h << 5) - h + uint32(r)
	}
	return h
}

func foldBytes(seed uint32, b []byte) uint32 {
	h := seed
	for _, c := range b {
		h = (h << 5) - h + uint32(c)
	}
	return h
}

// foldNumber folds a (childHash, channel) pair into the running seed,
// implementing hashNumber(child_hash, child_output_channel) from spec §4.2
// step 3.
func foldNumber(seed, childHash uint32, channel uint16) uint32 {
	h := (seed << 5) - seed + childHash
	h = (h << 5) - h + uint32(channel)
	return h
}

// fold32 folds a hash to its "folded positive" 32-bit representation —
// the spec treats hashes as non-negative; Go's uint32 is unsigned
// throughout so this is the identity, kept as a named step for parity
// with spec §3 ("32-bit, folded positive").
func fold32(h uint32) uint32 { return h }

// hashMemoInputs is identical to hashValue except it folds in the
// "memoKey" prop instead of "key", and is used only to compare composite
// expansion inputs across renders (spec §4.2, final paragraph) — e.g. a
// host that wants to skip re-expanding an unchanged composite can compare
// successive HashMemoInputs results itself; the engine never calls this.
func HashMemoInputs(kind string, props Props, childHashes []uint32, childChannels []uint16) uint32 {
	h := hashString(kind)
	if mk, ok := props["memoKey"]; ok {
		if s, ok := mk.(string); ok {
			h = foldString(h, s)
		} else {
			h = foldBytes(h, encodeProps(props))
		}
	} else {
		h = foldBytes(h, encodeProps(props))
	}
	for i, ch := range childHashes {
		var channel uint16
		if i < len(childChannels) {
			channel = childChannels[i]
		}
		h = foldNumber(h, ch, channel)
	}
	return fold32(h)
}

// Hash64 is a wider, collision-resistant identity (SPEC_FULL.md §3, Open
// Question b): it never replaces the committed 32-bit Hash() used as
// wire/graph-store identity. Nothing in this module calls it; the
// reconciler's bloom filter is keyed on the 32-bit Hash(). FNV-1a, 64-bit.
func Hash64(v Value) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	h := uint64(offset64)
	mix := func(b byte) { h = (h ^ uint64(b)) * prime64 }

	kind := v.kind
	if v.thunk != nil {
		kind = "composite"
	}
	for i := 0; i < len(kind); i++ {
		mix(kind[i])
	}
	enc := encodeProps(v.props)
	for _, b := range enc {
		mix(b)
	}
	for _, c := range v.children {
		ch := c.Value.Hash()
		for i := 0; i < 4; i++ {
			mix(byte(ch >> (8 * i)))
		}
		mix(byte(c.Channel))
		mix(byte(c.Channel >> 8))
	}
	return h
}
