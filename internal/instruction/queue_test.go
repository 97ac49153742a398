package instruction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		b := NewBuilder()
		b.CreateNode(uint32(i), "sin")
		require.NoError(t, q.Enqueue(b.Commit()))
	}
	for i := 0; i < 5; i++ {
		b, ok := q.TryDequeue()
		require.Truef(t, ok, "expected batch %d", i)
		assert.Equalf(t, uint32(i), b.Instructions[0].Hash, "batch %d out of order", i)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok, "expected empty queue")
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2) // rounds to 2, one usable slot (ring-full convention)
	_ = q.Enqueue(NewBuilder().Commit())
	for i := 0; i < 8; i++ {
		if err := q.Enqueue(NewBuilder().Commit()); err != nil {
			assert.NotZero(t, q.Dropped(), "expected dropped counter to increment on full queue")
			return
		}
	}
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	q := NewQueue(1024)
	const n = 2000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			b := NewBuilder()
			b.SetProperty(uint32(i), "v", float64(i))
			batch := b.Commit()
			for {
				if err := q.Enqueue(batch); err == nil {
					break
				}
			}
		}
	}()

	seen := 0
	for seen < n {
		if b, ok := q.TryDequeue(); ok {
			require.Equal(t, uint32(seen), b.Instructions[0].Hash)
			seen++
		}
	}
	wg.Wait()
}

// BenchmarkQueueDrainSteadyState mirrors Executor.drain()'s reusable-buffer
// pattern: TryDequeue looped into a buffer sized once and reused across
// iterations, rather than DrainAll's fresh slice per call. Run with
// -benchmem; the consumer side (the loop below) should warm up to zero
// allocations per op. Enqueue itself runs on the control thread, not the
// audio thread, so its own allocation is out of scope for I5.
func BenchmarkQueueDrainSteadyState(b *testing.B) {
	q := NewQueue(16)
	buf := make([]Batch, 0, 8)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = q.Enqueue(NewBuilder().Commit())
		buf = buf[:0]
		for {
			batch, ok := q.TryDequeue()
			if !ok {
				break
			}
			buf = append(buf, batch)
		}
	}
}
