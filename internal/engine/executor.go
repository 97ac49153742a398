package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/elementary-rt/elementary/internal/instruction"
)

// Executor runs one process block at a time (spec C7): drain pending
// instruction batches, compute a topological schedule over the reachable
// subgraph, evaluate each node, mix roots through their gain fades, and
// drain emitted events. Owned exclusively by the audio thread.
type Executor struct {
	store      *Store
	activation *ActivationController
	queue      *instruction.Queue
	relay      *EventRelay
	resources  *ResourceMap
	log        *slog.Logger

	sampleTime int64
	blockSize  int
	sampleRate float64

	graphVersion   uint64 // bumped on any structural instruction (spec §4.6 step 2)
	cachedVersion  uint64
	cachedRootsKey string
	cachedSchedule []uint32

	// drainBuf is reused across Process calls so drain() never allocates
	// once warmed up: instruction.Queue.DrainAll grows a fresh slice per
	// call, which is fine for its other (non-audio-thread) callers but not
	// here, since drain() runs at the top of every block (spec I5/P7).
	drainBuf []instruction.Batch

	// buffers holds each scheduled node's output planes for the block
	// currently being evaluated, reused (and cleared in place) across
	// Process calls rather than reallocated — the planes themselves
	// already live in the store's pre-allocated arena (spec §4.2); this
	// map just caches which planes belong to which hash for the
	// duration of one schedule walk.
	buffers map[uint32][][]float32
}

// NewExecutor wires an executor around the given components. resources
// may be nil if the engine carries no shared resource map.
func NewExecutor(store *Store, queue *instruction.Queue, relay *EventRelay, resources *ResourceMap, sampleRate float64, blockSize int, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		store:      store,
		activation: NewActivationController(sampleRate),
		queue:      queue,
		relay:      relay,
		resources:  resources,
		log:        log,
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// Process runs one block: steps 1-6 of spec §4.6. outputs is one slice
// per root output slot, each numSamples wide; the executor sums every
// active/target root's contribution into it, scaled by its gain fade.
func (ex *Executor) Process(numSamples int, outputs [][]float32) {
	ex.drain()

	roots := ex.activation.ActiveHashes()
	schedule := ex.schedule(roots)

	if ex.buffers == nil {
		ex.buffers = make(map[uint32][][]float32, len(schedule))
	} else {
		for h := range ex.buffers {
			delete(ex.buffers, h)
		}
	}
	for _, h := range schedule {
		ex.evaluate(h, numSamples, ex.buffers)
	}

	ex.mix(roots, numSamples, outputs, ex.buffers)

	for _, h := range schedule {
		ex.drainNodeEvents(h)
	}

	ex.sampleTime += int64(numSamples)
}

// drain applies every batch currently queued (spec §4.6 step 1). It pops
// with TryDequeue into a buffer reused across calls rather than
// DrainAll, which allocates a fresh slice whenever at least one batch is
// pending (spec I5/P7: zero allocation in steady state).
func (ex *Executor) drain() {
	buf := ex.drainBuf[:0]
	for {
		b, ok := ex.queue.TryDequeue()
		if !ok {
			break
		}
		buf = append(buf, b)
	}
	ex.drainBuf = buf
	for _, batch := range buf {
		ex.applyBatch(batch)
	}
}

func (ex *Executor) applyBatch(batch instruction.Batch) {
	for _, instr := range batch.Instructions {
		switch instr.Kind {
		case instruction.CreateNode:
			if err := ex.store.CreateNode(instr.Hash, instr.NodeKind); err != nil {
				ex.log.Warn("create node failed", "hash", instr.Hash, "kind", instr.NodeKind, "err", err)
				ex.relay.Push("error", map[string]any{"op": "CreateNode", "hash": instr.Hash, "reason": err.Error()})
			}
			ex.graphVersion++
		case instruction.DeleteNode:
			ex.store.DeleteNode(instr.Hash)
			ex.graphVersion++
		case instruction.AppendChild:
			if err := ex.store.AppendChild(instr.ParentHash, instr.ChildHash, instr.Channel); err != nil {
				ex.log.Warn("append child failed", "parent", instr.ParentHash, "child", instr.ChildHash, "err", err)
				ex.relay.Push("error", map[string]any{"op": "AppendChild", "hash": instr.ParentHash, "reason": err.Error()})
			}
			ex.graphVersion++
		case instruction.SetProperty:
			status, err := ex.store.SetProperty(instr.Hash, instr.Key, instr.Value)
			if err != nil {
				ex.log.Warn("set property failed", "hash", instr.Hash, "key", instr.Key, "err", err)
				ex.relay.Push("error", map[string]any{"op": "SetProperty", "hash": instr.Hash, "reason": err.Error()})
			} else if status != StatusOK {
				ex.relay.Push("error", map[string]any{"op": "SetProperty", "hash": instr.Hash, "key": instr.Key, "status": status.String()})
			}
		case instruction.ActivateRoots:
			// Only retain hashes newly entering the active/target set: a
			// root already present from an earlier ACTIVATE_ROOTS keeps its
			// existing refcount rather than accumulating one per
			// instruction it survives. Advance releases each root exactly
			// once, when it finally settles out (see mix).
			existing := make(map[uint32]bool, len(instr.Roots))
			for _, h := range ex.activation.ActiveHashes() {
				existing[h] = true
			}
			for _, h := range instr.Roots {
				if !existing[h] {
					ex.store.RetainRoot(h)
				}
			}
			ex.activation.Activate(instr.Roots, instr.FadeInMs, instr.FadeOutMs)
		case instruction.Reset:
			ex.store.Reset()
			ex.activation = NewActivationController(ex.sampleRate)
			ex.graphVersion++
		case instruction.UpdateResourceMap:
			if ex.resources != nil {
				ex.resources.Update(instr.Path, instr.Buffer)
			}
		case instruction.CommitUpdates:
			// no-op: COMMIT_UPDATES only marks a batch boundary on the
			// producer side; the executor already applies each batch
			// atomically as a unit.
		}
	}
}

// schedule computes a post-order (children before parents) over the
// subgraph reachable from roots, caching the result keyed by the graph
// version and the root set itself (spec §4.6 step 2). Structural
// instructions bump graphVersion and invalidate the cache; a plain
// ACTIVATE_ROOTS with the same root set reuses it.
func (ex *Executor) schedule(roots []uint32) []uint32 {
	key := rootsKey(roots)
	if ex.cachedSchedule != nil && ex.cachedVersion == ex.graphVersion && ex.cachedRootsKey == key {
		return ex.cachedSchedule
	}

	visited := make(map[uint32]bool)
	var order []uint32
	var visit func(uint32)
	visit = func(h uint32) {
		if visited[h] {
			return
		}
		visited[h] = true
		for _, e := range ex.store.Inbound(h) {
			visit(e.Child)
		}
		order = append(order, h)
	}
	for _, r := range roots {
		visit(r)
	}

	ex.cachedSchedule = order
	ex.cachedVersion = ex.graphVersion
	ex.cachedRootsKey = key
	return order
}

func rootsKey(roots []uint32) string {
	var b strings.Builder
	for i, r := range roots {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", r)
	}
	return b.String()
}

// evaluate populates hash's inputData from its children's output planes
// and calls Process (spec §4.6 step 3).
func (ex *Executor) evaluate(hash uint32, numSamples int, buffers map[uint32][][]float32) {
	instance, ok := ex.store.Instance(hash)
	if !ok {
		return
	}
	inbound := ex.store.Inbound(hash)
	inputs := make([][]float32, len(inbound))
	for i, e := range inbound {
		inputs[i] = ex.store.OutputPlane(e.Child, e.Channel)
	}
	outputs := buffers[hash]
	if outputs == nil {
		outputs = allOutputPlanes(ex.store, hash)
		buffers[hash] = outputs
	}

	ctx := &ProcessContext{
		InputData:  inputs,
		NumInputs:  len(inputs),
		NumSamples: numSamples,
		OutputData: outputs,
		SampleTime: ex.sampleTime,
		SampleRate: ex.sampleRate,
	}
	instance.Process(ctx)
}

func allOutputPlanes(s *Store, hash uint32) [][]float32 {
	var planes [][]float32
	for ch := uint16(0); ; ch++ {
		p := s.OutputPlane(hash, ch)
		if p == nil {
			break
		}
		planes = append(planes, p)
	}
	return planes
}

// mix sums each root's output-0 contribution scaled by its gain fade into
// outputs (spec §4.6 step 4). roots is the combined active∪target set;
// settled, fully-faded-out roots are dropped from the controller (and
// released from the store) here rather than mid-schedule.
func (ex *Executor) mix(roots []uint32, numSamples int, outputs [][]float32, buffers map[uint32][][]float32) {
	for _, plane := range outputs {
		for i := range plane {
			plane[i] = 0
		}
	}

	gains, dropped := ex.activation.Advance(numSamples)
	for _, r := range roots {
		rootOut := buffers[r]
		if len(rootOut) == 0 {
			continue
		}
		gain := gains[r]
		for slot := range outputs {
			if slot >= len(rootOut) {
				continue
			}
			src := rootOut[slot]
			dst := outputs[slot]
			for i := range dst {
				dst[i] += src[i] * float32(gain[i])
			}
		}
	}

	for _, h := range dropped {
		ex.store.ReleaseRoot(h)
	}
}

// drainNodeEvents runs ProcessEvents for hash, forwarding every emitted
// pair to the relay (spec §4.6 step 5).
func (ex *Executor) drainNodeEvents(hash uint32) {
	instance, ok := ex.store.Instance(hash)
	if !ok {
		return
	}
	instance.ProcessEvents(func(topic string, payload any) {
		ex.relay.Push(topic, payload)
	})
}

// Sweep runs the engine-side garbage collector against the current
// active∪target root set (spec §4.8), typically invoked by the host once
// per render or on a timer rather than every block.
func (ex *Executor) Sweep(terminalGeneration int) []uint32 {
	return ex.store.Sweep(ex.activation.ActiveHashes(), terminalGeneration, ex.resources)
}
