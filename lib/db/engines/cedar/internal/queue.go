package internal

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tkv-io/tkv/lib/db"
)

// --------------------------------------------------------------------------
// Event Queue (lock-free MPSC)
// --------------------------------------------------------------------------

// eventNode is a single element of the queue's linked list.
type eventNode struct {
	event db.Event
	next  atomic.Pointer[eventNode]
}

// EventQueue is a lock-free multi-producer single-consumer queue that
// decouples transaction outcomes from their observers: any number of
// committing goroutines Push concurrently without blocking on the
// consumer, and a single observer drains events through Recv.
//
// The queue is unbounded; ordering between concurrent producers is
// whichever CAS lands first, events from one producer stay in order.
type EventQueue struct {
	head     atomic.Pointer[eventNode]
	tail     atomic.Pointer[eventNode]
	out      chan db.Event
	closed   atomic.Bool
	consumer sync.WaitGroup

	mu   sync.Mutex
	cond *sync.Cond
}

// NewEventQueue creates the queue and starts its consumer goroutine.
func NewEventQueue() *EventQueue {
	sentinel := &eventNode{}

	q := &EventQueue{
		out: make(chan db.Event),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push appends an event. Returns false if the queue is already closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *EventQueue) Push(event db.Event) bool {
	if q.closed.Load() {
		return false
	}

	newNode := &eventNode{event: event}

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// The tail CAS may lose to a helping producer; the
				// tail still converges.
				q.tail.CompareAndSwap(tailNode, newNode)
				q.cond.Signal()
				return true
			}
		} else {
			// Another producer appended but has not advanced the
			// tail yet; help it along.
			q.tail.CompareAndSwap(tailNode, next)
		}

		runtime.Gosched()
	}
}

// consume moves events from the linked list to the output channel,
// freeing nodes as it goes.
func (q *EventQueue) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		delivered := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}

			delivered = true
			q.head.Store(next)
			q.out <- next.event
			next.event = db.Event{}
		}

		if !delivered && q.closed.Load() {
			return
		}

		if !delivered {
			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the receive side of the queue. The channel is closed
// once Close has been called and all pending events are delivered.
func (q *EventQueue) Recv() <-chan db.Event {
	return q.out
}

// Close stops the queue. Events already pushed are still delivered.
func (q *EventQueue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		q.mu.Lock()
		q.cond.Signal()
		q.mu.Unlock()
	}
}

// IsClosed reports whether Close has been called.
func (q *EventQueue) IsClosed() bool {
	return q.closed.Load()
}
