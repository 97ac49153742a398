// Package engine is the audio-thread runtime (spec C5-C11): a graph store
// owned exclusively by the audio thread, a scheduler/executor that walks it
// once per block, root activation with cross-fade, generational GC, and an
// event relay back to the control thread.
package engine

import "fmt"

// Edge is one ordered inbound connection: read channel `Channel` of the
// node at `Child`.
type Edge struct {
	Child   uint32
	Channel uint16
}

// nodeEntry is the store's bookkeeping for one live node: its runtime
// instance, inbound edges in append order, and GC/refcount state.
type nodeEntry struct {
	kind     string
	instance Node
	inbound  []Edge

	// refcount: number of parents (or root slots) currently pointing at
	// this node. A node with refcount 0 is eligible for DeleteNode.
	refcount int

	// unreachableGeneration counts consecutive GC sweeps during which this
	// node was not transitively reachable from the active/target root set
	// (spec §4.8).
	unreachableGeneration int
}

// Store is the graph store (spec C5): owned exclusively by the audio
// thread (spec §5 "The graph store is owned exclusively by the audio
// thread"), so unlike internal/reconcile's control-side bookkeeping it
// needs no mutex — every method here, including those the executor calls
// mid-block, runs serially on that one thread.
type Store struct {
	registry *Registry

	nodes map[uint32]*nodeEntry

	// outputs holds each node's pre-allocated output buffer planes,
	// blockSize wide per channel, sized at CreateNode time.
	outputs map[uint32][][]float32

	sampleRate float64
	blockSize  int
}

// NewStore builds an empty graph store bound to registry for CREATE_NODE
// kind lookups.
func NewStore(registry *Registry, sampleRate float64, blockSize int) *Store {
	return &Store{
		registry:   registry,
		nodes:      make(map[uint32]*nodeEntry),
		outputs:    make(map[uint32][][]float32),
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// Has reports whether hash is currently a live node.
func (s *Store) Has(hash uint32) bool {
	_, ok := s.nodes[hash]
	return ok
}

// CreateNode constructs and registers the implementation for kind at hash.
// Unknown kinds are reported, not fatal (spec §4.6 "record a pending-
// creation error event" / §6 "Unknown kinds ... are logged and suppress the
// node").
func (s *Store) CreateNode(hash uint32, kind string) error {
	if _, exists := s.nodes[hash]; exists {
		return &StoreError{Op: "CreateNode", Hash: hash, Reason: "duplicate hash"}
	}

	factory, ok := s.registry.Lookup(kind)
	if !ok {
		return &StoreError{Op: "CreateNode", Hash: hash, Reason: "unknown kind " + kind}
	}

	instance := factory(hash, s.sampleRate, s.blockSize)
	s.nodes[hash] = &nodeEntry{kind: kind, instance: instance}
	s.outputs[hash] = allocateOutputs(instance.NumOutputs(), s.blockSize)
	return nil
}

// DeleteNode marks hash for removal if its refcount is zero (spec §4.6).
// A nonzero refcount means some other live node (or the active/target root
// set) still depends on it; the delete is deferred until the GC sweep finds
// it truly unreferenced.
func (s *Store) DeleteNode(hash uint32) {
	entry, ok := s.nodes[hash]
	if !ok || entry.refcount > 0 {
		return
	}
	s.evict(hash)
}

// evict removes hash unconditionally.
func (s *Store) evict(hash uint32) {
	for _, e := range s.nodes[hash].inbound {
		if child, ok := s.nodes[e.Child]; ok {
			child.refcount--
		}
	}
	delete(s.nodes, hash)
	delete(s.outputs, hash)
}

// AppendChild appends (child, channel) to parent's ordered inbound list
// and bumps the child's refcount (spec §4.6).
func (s *Store) AppendChild(parent, child uint32, channel uint16) error {
	p, ok := s.nodes[parent]
	if !ok {
		return &StoreError{Op: "AppendChild", Hash: parent, Reason: "parent not found"}
	}
	c, ok := s.nodes[child]
	if !ok {
		return &StoreError{Op: "AppendChild", Hash: child, Reason: "child not found"}
	}
	p.inbound = append(p.inbound, Edge{Child: child, Channel: channel})
	c.refcount++
	return nil
}

// SetProperty forwards to the node's own SetProperty (spec C6).
func (s *Store) SetProperty(hash uint32, key string, value any) (Status, error) {
	entry, ok := s.nodes[hash]
	if !ok {
		return StatusInvalidValue, &StoreError{Op: "SetProperty", Hash: hash, Reason: "node not found"}
	}
	return entry.instance.SetProperty(key, value), nil
}

// RetainRoot increments a root slot's refcount so it is never collected
// while it remains in the active-or-target set, independent of any parent
// edge (root nodes have no inbound edge of their own).
func (s *Store) RetainRoot(hash uint32) {
	if e, ok := s.nodes[hash]; ok {
		e.refcount++
	}
}

// ReleaseRoot is the inverse of RetainRoot, called once a root settles out
// of the live evaluation set (spec §4.7).
func (s *Store) ReleaseRoot(hash uint32) {
	if e, ok := s.nodes[hash]; ok {
		e.refcount--
	}
}

// Reset drops every live node (spec §6 kind 7, supplemented RESET).
func (s *Store) Reset() {
	s.nodes = make(map[uint32]*nodeEntry)
	s.outputs = make(map[uint32][][]float32)
}

// Instance returns the live node implementation at hash.
func (s *Store) Instance(hash uint32) (Node, bool) {
	e, ok := s.nodes[hash]
	if !ok {
		return nil, false
	}
	return e.instance, true
}

// Inbound returns hash's ordered inbound edges.
func (s *Store) Inbound(hash uint32) []Edge {
	e, ok := s.nodes[hash]
	if !ok {
		return nil
	}
	return e.inbound
}

// OutputPlane returns hash's pre-allocated output buffer for channel.
func (s *Store) OutputPlane(hash uint32, channel uint16) []float32 {
	planes, ok := s.outputs[hash]
	if !ok || int(channel) >= len(planes) {
		return nil
	}
	return planes[channel]
}

func allocateOutputs(numOutputs, blockSize int) [][]float32 {
	planes := make([][]float32, numOutputs)
	for i := range planes {
		planes[i] = make([]float32, blockSize)
	}
	return planes
}

// StoreError is an instruction-time error (spec §7): recorded and surfaced
// as an `error` event rather than propagated, so the remainder of the
// batch continues.
type StoreError struct {
	Op     string
	Hash   uint32
	Reason string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("engine: %s(%d): %s", e.Op, e.Hash, e.Reason)
}
