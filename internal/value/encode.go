package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// encodeProps produces the canonical, deterministic byte serialization of
// a props bag used by the hasher (spec §4.2 step 2, Open Question (a)).
// Keys are sorted lexicographically; numbers are fixed 8-byte IEEE-754
// float64 little-endian; strings and byte buffers are length-prefixed;
// arrays and nested maps recurse. The encoding is for hashing only, not a
// wire format a consumer needs to parse back out — see
// internal/instruction for the wire tuples that cross C4.
func encodeProps(p Props) []byte {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 64)
	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(keys)))
	buf = append(buf, scratch[:4]...)
	for _, k := range keys {
		buf = appendString(buf, k)
		buf = appendDynamic(buf, p[k])
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(s)))
	buf = append(buf, scratch[:]...)
	return append(buf, s...)
}

func appendDynamic(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, 'n')
	case float64:
		var scratch [8]byte
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(x))
		buf = append(buf, 'f')
		return append(buf, scratch[:]...)
	case int:
		return appendDynamic(buf, float64(x))
	case string:
		buf = append(buf, 's')
		return appendString(buf, x)
	case bool:
		buf = append(buf, 'b')
		if x {
			return append(buf, 1)
		}
		return append(buf, 0)
	case []byte:
		buf = append(buf, 'B')
		var scratch [4]byte
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(x)))
		buf = append(buf, scratch[:]...)
		return append(buf, x...)
	case []any:
		buf = append(buf, 'a')
		var scratch [4]byte
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(x)))
		buf = append(buf, scratch[:]...)
		for _, e := range x {
			buf = appendDynamic(buf, e)
		}
		return buf
	case map[string]any:
		buf = append(buf, 'm')
		return append(buf, encodeProps(Props(x))...)
	default:
		// Unrecognized dynamic payload: fall back to a type-tagged
		// string form so the hash stays deterministic rather than
		// panicking on an unexpected producer value.
		buf = append(buf, 'u')
		return appendString(buf, fmt.Sprintf("%v", x))
	}
}
