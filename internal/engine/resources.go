package engine

import "sync"

// resourceEntry is one interned buffer: the data plus a use count. The
// map itself holds one implicit reference, so an entry with UseCount()==1
// is unreferenced by any live node (spec C11 "prune() removes entries
// whose use count equals 1").
type resourceEntry struct {
	buffer []float32
	uses   int
}

// ResourceMap is the interned store of named immutable buffers (spec
// C11). update and prune run on the control thread; live nodes obtain a
// Handle by path and hold it for as long as they process with it.
type ResourceMap struct {
	mu      sync.Mutex
	entries map[string]*resourceEntry
}

// NewResourceMap returns an empty map.
func NewResourceMap() *ResourceMap {
	return &ResourceMap{entries: make(map[string]*resourceEntry)}
}

// Update installs (or atomically replaces) the buffer at path. A node
// already holding a Handle to the previous buffer keeps using it until it
// next calls Acquire for that path (spec §5 "Resource policy").
func (r *ResourceMap) Update(path string, buffer []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[path]; ok {
		e.buffer = buffer
		return
	}
	r.entries[path] = &resourceEntry{buffer: buffer, uses: 1}
}

// ResourceHandle is a refcounted reference a node holds while processing
// with a buffer (spec C11); the count lives in the map entry and is
// guarded by the map's mutex.
type ResourceHandle struct {
	path   string
	buffer []float32
	owner  *ResourceMap
}

// Buffer returns the immutable data this handle references.
func (h *ResourceHandle) Buffer() []float32 { return h.buffer }

// Acquire binds (or rebinds) a node's handle to path's current buffer,
// called from SET_PROPERTY application (spec §5: "Live nodes that depend
// on a path hold a handle taken at SET_PROPERTY time").
func (r *ResourceMap) Acquire(path string) (*ResourceHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[path]
	if !ok {
		return nil, false
	}
	e.uses++
	return &ResourceHandle{path: path, buffer: e.buffer, owner: r}, true
}

// Release drops this handle's reference. Called when a node is reclaimed
// (spec §4.8 point 3) or rebinds to a different path.
func (h *ResourceHandle) Release() {
	if h == nil || h.owner == nil {
		return
	}
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	if e, ok := h.owner.entries[h.path]; ok {
		e.uses--
	}
}

// Prune removes entries referenced only by the map itself (use count ==
// 1), returning the pruned paths.
func (r *ResourceMap) Prune() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pruned []string
	for path, e := range r.entries {
		if e.uses <= 1 {
			delete(r.entries, path)
			pruned = append(pruned, path)
		}
	}
	return pruned
}

// UseCount reports the live reference count for path (the map's own plus
// every outstanding handle), for tests and diagnostics.
func (r *ResourceMap) UseCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[path]; ok {
		return e.uses
	}
	return 0
}
