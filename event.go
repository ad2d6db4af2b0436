package async

import "sync"

// Schedule selects where arm places an event in its loop's queue.
type Schedule int

const (
	// Preempt inserts the event immediately before the loop's insert point,
	// so that events produced while handling an event run before unrelated
	// events that were already queued. Related work stays grouped, and
	// splitting work into finer-grained events does not lose priority to
	// coarser-grained work running concurrently.
	Preempt Schedule = iota

	// Yield inserts the event at the tail of the queue. Cross-goroutine
	// arms always use Yield, which keeps delivery FIFO per producer.
	Yield
)

// event is an intrusive node in an EventLoop's queue.
//
// Invariants:
//   - the event is armed iff next != nil
//   - fire runs only on the goroutine driving the owning loop
//   - arm and disarm are safe from any goroutine
//   - an armed event must be disarmed before it becomes unreachable
type event struct {
	loop *EventLoop
	next *event
	prev *event

	// mu serializes fire with disarm. The loop holds it for the duration of
	// fire; disarm round-trips it, so once disarm returns no fire is in
	// progress and none can start.
	mu sync.Mutex

	fire func()
}

// arm inserts the event into its loop's queue. Arming an already-armed
// event is a no-op.
func (e *event) arm(schedule Schedule) {
	l := e.loop
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.next != nil {
		return
	}
	queueWasEmpty := l.head.next == &l.head

	switch schedule {
	case Preempt:
		e.next = l.insertPoint
		e.prev = e.next.prev
		e.next.prev = e
		e.prev.next = e

	case Yield:
		e.prev = l.head.prev
		e.next = e.prev.next
		e.prev.next = e
		e.next.prev = e

		// The insert point trails the currently-firing event; when the
		// queue has drained past it, this event becomes the new boundary
		// so subsequent Preempts land before it.
		if l.insertPoint == &l.head {
			l.insertPoint = e
		}
	}

	if queueWasEmpty {
		l.parker.wake()
	}
}

// disarm unlinks the event from the queue if armed, then waits out any fire
// currently in progress. After disarm returns the event will not fire and
// may be discarded.
func (e *event) disarm() {
	l := e.loop
	if l == nil {
		return
	}

	l.mu.Lock()
	if e.next != nil {
		if l.insertPoint == e {
			l.insertPoint = e.next
		}
		e.next.prev = e.prev
		e.prev.next = e.next
		e.next = nil
		e.prev = nil
	}
	l.mu.Unlock()

	// Barrier: if fire() is running right now, block until it completes.
	e.mu.Lock()
	e.mu.Unlock() //nolint:staticcheck // SA2001: intentional fire barrier
}
