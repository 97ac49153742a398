package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elementary-rt/elementary/internal/engine/nodes"
	"github.com/elementary-rt/elementary/internal/instruction"
)

func newTestExecutor(t *testing.T, sampleRate float64, blockSize int) (*Executor, *instruction.Queue, *Store) {
	t.Helper()
	reg := NewRegistry()
	nodes.RegisterBuiltins(reg, nil)
	store := NewStore(reg, sampleRate, blockSize)
	queue := instruction.NewQueue(16)
	relay := NewEventRelay(64, 1000)
	ex := NewExecutor(store, queue, relay, nil, sampleRate, blockSize, nil)
	return ex, queue, store
}

func TestExecutorBuildsConstAndMixesRoot(t *testing.T) {
	ex, queue, _ := newTestExecutor(t, 44100, 8)

	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const")
	bld.SetProperty(1, "value", 0.5)
	bld.ActivateRoots([]uint32{1}, 0, 0) // instant fade-in
	queue.Enqueue(bld.Commit())

	out := [][]float32{make([]float32, 8)}
	ex.Process(8, out)
	for i, v := range out[0] {
		assert.Equalf(t, float32(0.5), v, "sample %d", i)
	}
}

func TestExecutorAppliesInstantActivationOnFirstBlock(t *testing.T) {
	ex, queue, _ := newTestExecutor(t, 44100, 4)
	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const")
	bld.SetProperty(1, "value", 1.0)
	bld.ActivateRoots([]uint32{1}, 0, 0)
	queue.Enqueue(bld.Commit())

	out := [][]float32{make([]float32, 4)}
	ex.Process(4, out)
	assert.Equal(t, float32(1.0), out[0][0], "expected instant fade-in to reach full gain in block 1")
}

func TestExecutorChainsChildThroughParent(t *testing.T) {
	ex, queue, _ := newTestExecutor(t, 44100, 4)
	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const") // child: constant 2.0
	bld.SetProperty(1, "value", 2.0)
	bld.CreateNode(2, "mix") // parent scales channel 0 by gain
	bld.SetProperty(2, "gain", 3.0)
	bld.AppendChild(2, 1, 0)
	bld.ActivateRoots([]uint32{2}, 0, 0)
	queue.Enqueue(bld.Commit())

	out := [][]float32{make([]float32, 4)}
	ex.Process(4, out)
	for _, v := range out[0] {
		assert.Equal(t, float32(6.0), v, "expected 2.0*3.0=6.0 through the chain")
	}
}

func TestExecutorUnknownKindSurfacesErrorEvent(t *testing.T) {
	ex, queue, store := newTestExecutor(t, 44100, 4)
	bld := instruction.NewBuilder()
	bld.CreateNode(1, "not-a-real-kind")
	queue.Enqueue(bld.Commit())

	out := [][]float32{make([]float32, 4)}
	ex.Process(4, out)

	assert.False(t, store.Has(1), "unknown-kind create should not register a node")

	events, _ := ex.relay.Drain()
	found := false
	for _, e := range events {
		if e.Topic == "error" {
			found = true
		}
	}
	assert.True(t, found, "expected an error event for the unknown kind")
}

func TestExecutorDeactivatedRootFadesOutThenStopsContributing(t *testing.T) {
	ex, queue, store := newTestExecutor(t, 100, 4) // 100Hz sample rate, easy fade math
	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const")
	bld.SetProperty(1, "value", 1.0)
	bld.ActivateRoots([]uint32{1}, 0, 0)
	queue.Enqueue(bld.Commit())

	out := [][]float32{make([]float32, 4)}
	ex.Process(4, out) // settles in instantly

	bld2 := instruction.NewBuilder()
	bld2.ActivateRoots(nil, 0, 40) // fade out over 40ms = 4 samples at 100Hz
	queue.Enqueue(bld2.Commit())

	out2 := [][]float32{make([]float32, 4)}
	ex.Process(4, out2)
	assert.NotEqual(t, float32(0), out2[0][0])
	assert.Equal(t, float32(0), out2[0][3], "expected fade-out to ramp to 0 by the 4th sample")

	out3 := [][]float32{make([]float32, 4)}
	ex.Process(4, out3)
	for _, v := range out3[0] {
		assert.Equal(t, float32(0), v, "expected silence after root settled out and was released")
	}
	assert.False(t, store.Has(1), "expected root node released once its fade-out settled")
}

// BenchmarkExecutorProcessPropertyOnly exercises the steady-state path
// I5/P7 describe: a settled root receiving nothing but SET_PROPERTY
// updates, one per block, after the schedule has warmed up. Run with
// -benchmem to see the allocation profile of the drain/mix/event-relay
// path per block.
func BenchmarkExecutorProcessPropertyOnly(b *testing.B) {
	reg := NewRegistry()
	nodes.RegisterBuiltins(reg, nil)
	store := NewStore(reg, 44100, 128)
	queue := instruction.NewQueue(16)
	relay := NewEventRelay(64, 1000)
	ex := NewExecutor(store, queue, relay, nil, 44100, 128, nil)

	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const")
	bld.SetProperty(1, "value", 0.0)
	bld.ActivateRoots([]uint32{1}, 0, 0)
	queue.Enqueue(bld.Commit())
	out := [][]float32{make([]float32, 128)}
	ex.Process(128, out) // warm up: settle activation, cache the schedule

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		upd := instruction.NewBuilder()
		upd.SetProperty(1, "value", float64(i%2))
		queue.Enqueue(upd.Commit())
		ex.Process(128, out)
	}
}

func TestExecutorResetClearsGraphAndRoots(t *testing.T) {
	ex, queue, store := newTestExecutor(t, 44100, 4)
	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const")
	bld.ActivateRoots([]uint32{1}, 0, 0)
	queue.Enqueue(bld.Commit())
	ex.Process(4, [][]float32{make([]float32, 4)})

	bld2 := instruction.NewBuilder()
	bld2.Reset()
	queue.Enqueue(bld2.Commit())
	ex.Process(4, [][]float32{make([]float32, 4)})

	assert.False(t, store.Has(1), "expected RESET to clear the graph")
	assert.Empty(t, ex.activation.ActiveHashes(), "expected RESET to clear the active root set")
}
