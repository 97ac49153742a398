package reconcile

import "fmt"

// Handle is a stable node reference created with a reserved key (spec
// §4.3 "Refs"). Its Set method bypasses full tree traversal: it emits only
// SET_PROPERTY for the fields that changed, then a COMMIT_UPDATES, making
// high-frequency parameter automation (e.g. a UI knob) cheap compared to
// re-rendering the whole tree every frame.
type Handle struct {
	delegate Delegate
	hash     uint32
	key      string
	last     map[string]any
}

// NewHandle mounts a ref against hash, which must already be present in
// the delegate's node map (i.e. the node was created by a prior Render
// that included it). Calling Set before the node is mounted is a
// construction-time error (spec §7).
func NewHandle(d Delegate, hash uint32, key string) (*Handle, error) {
	if _, ok := d.GetNodeMap()[hash]; !ok {
		return nil, fmt.Errorf("reconcile: ref %q updated before mount (hash %d not found)", key, hash)
	}
	return &Handle{delegate: d, hash: hash, key: key, last: map[string]any{}}, nil
}

// Set writes changed fields only and commits immediately.
func (h *Handle) Set(fields map[string]any) error {
	if _, ok := h.delegate.GetNodeMap()[h.hash]; !ok {
		return fmt.Errorf("reconcile: ref %q updated before mount (hash %d not found)", h.key, h.hash)
	}
	for k, v := range fields {
		if prev, ok := h.last[k]; ok && shallowEqual(prev, v) {
			continue
		}
		h.delegate.SetProperty(h.hash, k, v)
		h.last[k] = v
	}
	return h.delegate.CommitUpdates()
}

// Hash returns the stable node hash this ref addresses.
func (h *Handle) Hash() uint32 { return h.hash }
