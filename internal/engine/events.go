package engine

import (
	"sync/atomic"
	"time"

	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
)

// Event is one (topic, payload) pair a node surfaced via ProcessEvents
// (spec C10).
type Event struct {
	Topic   string
	Payload any
}

// EventRelay is the bounded SPSC ring nodes push onto from the audio
// thread; the relay drains it outside the callback (spec §4.9). It is
// the Go-heap analogue of internal/instruction.Queue, but tuned for the
// opposite overflow policy: instruction batches are rejected-on-full
// (losing an update is never acceptable silently), while events are
// best-effort telemetry, so a full ring drops the OLDEST pending event
// instead of the newest (spec §4.9 "Overflow policy: drop oldest").
//
// Push (producer) owns tail exclusively; Drain (consumer) owns head
// exclusively. Push always writes its slot unconditionally and advances
// tail, which is what gives the ring its drop-oldest behavior once it
// wraps; Drain computes an effective head that skips any slot Push may
// since have overwritten before reading.
type EventRelay struct {
	slots    []Event
	mask     uint32
	capacity uint32

	tail     atomic.Uint32 // producer-owned (Push)
	head     atomic.Uint32 // consumer-owned (Drain)
	overflow atomic.Bool

	// Per-topic throttling runs at Drain time, off the audio thread —
	// grounded on kernel/core/mesh/routing/gossip.go's limiter.NewTokenBucket
	// + store.NewMemoryStore + limiter.Allow(key) pattern, relocated here
	// (rather than into Push) so a noisy topic costs a map lookup on the
	// relay-draining goroutine, never the audio thread.
	limiterStore store.Store
	limiter      *limiter.TokenBucket
}

// NewEventRelay returns a relay bounded to capacity pending events
// (rounded up to the next power of two), with a per-topic rate of
// ratePerSecond (burst sized the same).
func NewEventRelay(capacity int, ratePerSecond int) *EventRelay {
	if capacity < 1 {
		capacity = 1
	}
	cap32 := nextPowerOfTwoEvents(uint32(capacity))
	r := &EventRelay{
		slots:    make([]Event, cap32),
		mask:     cap32 - 1,
		capacity: cap32,
	}
	r.limiterStore = store.NewMemoryStore(time.Minute)
	r.limiter, _ = limiter.NewTokenBucket(
		limiter.Config{
			Rate:     int64(ratePerSecond),
			Duration: time.Second,
			Burst:    int64(ratePerSecond),
		},
		r.limiterStore,
	)
	return r
}

// Push enqueues an event. Called from the audio thread once per node per
// block (spec C6); it never allocates, locks, or blocks (spec I5): the
// slot write is a plain struct copy into a preallocated slice, and tail
// is advanced with a single atomic store.
func (r *EventRelay) Push(topic string, payload any) {
	tail := r.tail.Load()
	r.slots[tail&r.mask] = Event{Topic: topic, Payload: payload}
	newTail := tail + 1
	if newTail-r.head.Load() > r.capacity {
		r.overflow.Store(true)
	}
	r.tail.Store(newTail)
}

// Drain returns every event pushed since the previous Drain (applying
// per-topic throttling here, off the audio thread), along with whether
// an overflow occurred since the previous drain (the "one-shot overflow
// flag" of spec §4.9).
func (r *EventRelay) Drain() (events []Event, overflowed bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head > r.capacity {
		head = tail - r.capacity
	}
	for i := head; i != tail; i++ {
		e := r.slots[i&r.mask]
		if r.limiter == nil || r.limiter.Allow(e.Topic) {
			events = append(events, e)
		}
	}
	r.head.Store(tail)
	overflowed = r.overflow.Swap(false)
	return events, overflowed
}

func nextPowerOfTwoEvents(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// NodeEventQueue is a small fixed-capacity ring a Node implementation can
// embed to buffer (topic, payload) pairs produced during Process for
// later readout from ProcessEvents (spec C6 "per-implementation
// lock-free readout queues for events"). Process and ProcessEvents run
// back-to-back within the same block on the same goroutine, so unlike
// EventRelay there is no cross-thread handoff here and no atomics are
// needed — just a plain array, which keeps both Push and Drain
// allocation-free.
type NodeEventQueue struct {
	events [4]Event
	n      int
}

// Push records an event, dropping the oldest entry if the queue is
// already full.
func (q *NodeEventQueue) Push(topic string, payload any) {
	if q.n == len(q.events) {
		copy(q.events[:], q.events[1:])
		q.n--
	}
	q.events[q.n] = Event{Topic: topic, Payload: payload}
	q.n++
}

// Drain invokes emit for each pending event in FIFO order and clears the
// queue.
func (q *NodeEventQueue) Drain(emit EmitFunc) {
	for i := 0; i < q.n; i++ {
		emit(q.events[i].Topic, q.events[i].Payload)
	}
	q.n = 0
}
