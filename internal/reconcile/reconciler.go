// Package reconcile implements the graph reconciler (spec C3): it walks a
// forest of root values, diffs them against the previously committed
// graph, and emits a minimal instruction batch.
package reconcile

import (
	"encoding/binary"
	"log/slog"
	"reflect"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/elementary-rt/elementary/internal/value"
)

// RenderStats are counted by the render pass during traversal (not by the
// delegate) and returned alongside any error (spec §9, "Coroutine-free
// control").
type RenderStats struct {
	NodesAdded   int
	EdgesAdded   int
	PropsWritten int
	ElapsedTime  time.Duration
}

// Reconciler drives renderWithDelegate (spec §4.3) against a Delegate.
// It owns the bloom filter used as a fast "definitely new" pre-check
// before consulting the delegate's authoritative node map (SPEC_FULL.md
// §2, grounded on kernel/core/mesh/routing/gossip.go's seenFilter).
type Reconciler struct {
	delegate Delegate
	ctx      value.RenderContext
	log      *slog.Logger

	seen *bloom.BloomFilter

	// activeRoots is the root set of the last ACTIVATE_ROOTS this
	// reconciler emitted, used for the idempotence check (spec §4.3 step 3).
	activeRoots []uint32
}

// New builds a Reconciler bound to delegate, using ctx for composite
// expansion (sample rate / block size visible to thunks).
func New(delegate Delegate, ctx value.RenderContext, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		delegate: delegate,
		ctx:      ctx,
		log:      log,
		seen:     bloom.NewWithEstimates(100000, 0.01),
	}
}

// Render performs one render call: traverses roots in order, diffs each
// against the retained graph, and commits a single instruction batch
// (spec §4.3 algorithm, steps 1-4).
func (r *Reconciler) Render(roots []value.Value, fadeInMs, fadeOutMs float64) (RenderStats, error) {
	start := time.Now()
	pass := &renderPass{
		delegate: r.delegate,
		nodeMap:  r.delegate.GetNodeMap(),
		visited:  make(map[uint32]bool, len(roots)*8),
		seen:     r.seen,
		ctx:      r.ctx,
		log:      r.log,
	}

	rootHashes := make([]uint32, 0, len(roots))
	for _, root := range roots {
		h, err := pass.visit(root)
		if err != nil {
			return pass.stats, err
		}
		rootHashes = append(rootHashes, h)
	}

	if !sameRootSet(rootHashes, r.activeRoots) {
		r.delegate.ActivateRoots(rootHashes, fadeInMs, fadeOutMs)
		r.activeRoots = rootHashes
	}

	if err := r.delegate.CommitUpdates(); err != nil {
		return pass.stats, err
	}

	pass.stats.ElapsedTime = time.Since(start)
	return pass.stats, nil
}

// renderPass holds the per-call traversal state.
type renderPass struct {
	delegate Delegate
	nodeMap  map[uint32]*NodeRecord
	visited  map[uint32]bool
	seen     *bloom.BloomFilter
	ctx      value.RenderContext
	log      *slog.Logger
	stats    RenderStats
}

// visit resolves composites and diffs primitives, returning the live
// (primitive) hash the caller should wire edges to.
func (p *renderPass) visit(v value.Value) (uint32, error) {
	if v.IsComposite() {
		expanded := v.Thunk()(v.Props(), v.Children(), p.ctx)
		return p.visit(expanded)
	}

	h := v.Hash()
	if p.visited[h] {
		return h, nil
	}
	p.visited[h] = true

	rec, existed := p.lookup(h)
	if !existed {
		p.delegate.CreateNode(h, v.Kind())
		p.stats.NodesAdded++
		rec = &NodeRecord{Props: value.Props{}}
		p.nodeMap[h] = rec
	}

	// Children are always visited so their prop diffs are found, but edges
	// are only emitted for a newly created parent: an existing node already
	// has them.
	for _, childRef := range v.Children() {
		childHash, err := p.visit(childRef.Value)
		if err != nil {
			return 0, err
		}
		if !existed {
			p.delegate.AppendChild(h, childHash, childRef.Channel)
			p.stats.EdgesAdded++
		}
	}

	for k, w := range v.Props() {
		if existing, ok := rec.Props[k]; ok && shallowEqual(existing, w) {
			continue
		}
		p.delegate.SetProperty(h, k, w)
		rec.Props[k] = w
		p.stats.PropsWritten++
	}

	rec.Generation = 0
	return h, nil
}

// lookup consults the bloom filter before the authoritative map: a
// negative bloom test proves the hash is new without a map probe; a
// positive test falls through to the map, which is authoritative (the
// filter only ever produces false positives, never false negatives).
func (p *renderPass) lookup(h uint32) (*NodeRecord, bool) {
	key := hashKeyBytes(h)
	if !p.seen.Test(key) {
		p.seen.Add(key)
		return nil, false
	}
	rec, ok := p.nodeMap[h]
	if !ok {
		p.seen.Add(key)
	}
	return rec, ok
}

func hashKeyBytes(h uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], h)
	return b[:]
}

func shallowEqual(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af == bf
	}
	as, aok := a.([]byte)
	bs, bok := b.([]byte)
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	// Strings/bools compare fine with ==; arrays/maps fall back to a
	// deep comparison rather than risking a panic on uncomparable types.
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return reflect.DeepEqual(a, b)
}

func sameRootSet(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
