package reconcile

import (
	"log/slog"
	"math"

	"github.com/elementary-rt/elementary/internal/instruction"
	"github.com/elementary-rt/elementary/internal/value"
)

// NodeRecord is the reconciler's own bookkeeping for a previously
// committed node: the props it last saw (for shallow-diffing) and its
// generation counter (spec C5's "generation" field, mirrored producer-side
// so stepGarbageCollector can sweep without talking to the engine).
type NodeRecord struct {
	Props      value.Props
	Generation int
}

// Delegate is the interface the reconciler drives (spec §4.3). The
// default implementation (NewQueueDelegate) stages instructions into an
// instruction.Builder and ships committed batches to an instruction.Queue;
// a test delegate can instead record calls directly for assertions.
type Delegate interface {
	CreateNode(hash uint32, kind string)
	AppendChild(parentHash, childHash uint32, channel uint16)
	SetProperty(hash uint32, key string, v any)
	ActivateRoots(hashes []uint32, fadeInMs, fadeOutMs float64)
	CommitUpdates() error
	GetNodeMap() map[uint32]*NodeRecord
	DeleteNode(hash uint32)
}

// QueueDelegate is the production Delegate: it retains the previously
// committed graph map locally (control-thread owned, per spec §5) and
// ships each render's batch to an instruction.Queue for the engine to
// drain.
type QueueDelegate struct {
	queue *instruction.Queue
	log   *slog.Logger

	nodes       map[uint32]*NodeRecord
	activeRoots []uint32

	builder *instruction.Builder
}

func NewQueueDelegate(q *instruction.Queue, log *slog.Logger) *QueueDelegate {
	if log == nil {
		log = slog.Default()
	}
	return &QueueDelegate{
		queue:   q,
		log:     log,
		nodes:   make(map[uint32]*NodeRecord),
		builder: instruction.NewBuilder(),
	}
}

func (d *QueueDelegate) CreateNode(hash uint32, kind string) {
	d.nodes[hash] = &NodeRecord{Props: value.Props{}, Generation: 0}
	d.builder.CreateNode(hash, kind)
}

func (d *QueueDelegate) DeleteNode(hash uint32) {
	delete(d.nodes, hash)
	d.builder.DeleteNode(hash)
}

func (d *QueueDelegate) AppendChild(parentHash, childHash uint32, channel uint16) {
	d.builder.AppendChild(parentHash, childHash, channel)
}

func (d *QueueDelegate) SetProperty(hash uint32, key string, v any) {
	if rec, ok := d.nodes[hash]; ok {
		rec.Props[key] = v
	}
	if isUnsound(v) {
		d.log.Warn("property value is undefined/NaN/non-finite", "hash", hash, "key", key)
	}
	d.builder.SetProperty(hash, key, v)
}

func (d *QueueDelegate) ActivateRoots(hashes []uint32, fadeInMs, fadeOutMs float64) {
	d.activeRoots = append([]uint32(nil), hashes...)
	d.builder.ActivateRoots(hashes, fadeInMs, fadeOutMs)
}

func (d *QueueDelegate) CommitUpdates() error {
	batch := d.builder.Commit()
	return d.queue.Enqueue(batch)
}

func (d *QueueDelegate) GetNodeMap() map[uint32]*NodeRecord { return d.nodes }

// ActiveRoots returns the root hash set from the most recent
// ActivateRoots call (or the prior commit's, if roots did not change —
// spec §4.3 step 3 skips re-emitting identical root sets). The
// reconciler keeps its own record for the idempotence check and does not
// call this.
func (d *QueueDelegate) ActiveRoots() []uint32 { return d.activeRoots }

func isUnsound(v any) bool {
	f, ok := v.(float64)
	if !ok {
		return false
	}
	return math.IsNaN(f) || math.IsInf(f, 0)
}
