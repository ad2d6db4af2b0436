package async

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// parker is the park/unpark mechanism a loop sleeps on when its queue is
// empty. The Linux implementation is a futex on a word (0 = awake,
// 1 = parked); elsewhere a mutex+condvar pair is used. See park_linux.go
// and park_other.go.
type parker interface {
	// prepareToSleep announces an imminent sleep. Must be called with the
	// queue mutex held, before the sleep itself, so that a concurrent arm
	// observing an empty queue is guaranteed to see the sleeper.
	prepareToSleep()
	// sleep blocks until wake is called. Returns immediately if wake ran
	// after the last prepareToSleep.
	sleep()
	// wake unparks a prepared sleeper. Cheap when no sleeper is prepared.
	// Safe from any goroutine.
	wake()
}

var loopIDCounter atomic.Uint64

// EventLoop runs events in causally meaningful order on a single goroutine.
//
// The queue is a sentinel-headed circular doubly-linked list of intrusive
// events. insertPoint marks where Preempt-scheduled arms splice in:
// logically, just after the currently firing event.
type EventLoop struct {
	id uint64

	mu          sync.Mutex // queue mutex
	head        event      // sentinel; head.next == &head means empty
	insertPoint *event

	parker parker
}

// NewEventLoop creates an event loop. The loop is driven by whichever
// goroutine calls [Promise.Wait] or [Promise.Poll] on it.
func NewEventLoop() *EventLoop {
	l := &EventLoop{id: loopIDCounter.Add(1)}
	l.head.loop = l
	l.head.next = &l.head
	l.head.prev = &l.head
	l.head.fire = func() { panic("async: fired event queue sentinel") }
	l.insertPoint = &l.head
	l.parker = newParker()
	logger().Debug().Uint64("loop", l.id).Log("async: event loop created")
	return l
}

// runOne pops and fires the next queued event, returning true. If the
// queue is empty it returns false; when prepare is additionally set, the
// parker has been primed under the queue mutex so the caller may sleep.
func (l *EventLoop) runOne(prepare bool) bool {
	l.mu.Lock()
	e := l.head.next
	if e == &l.head {
		if prepare {
			l.parker.prepareToSleep()
		}
		l.mu.Unlock()
		return false
	}

	// Unlink the event.
	l.head.next = e.next
	e.next.prev = &l.head
	e.next = nil
	e.prev = nil

	// Events armed with Preempt during this fire land before everything
	// else that is already queued.
	l.insertPoint = l.head.next

	// Take the event mutex before releasing the queue, so a concurrent
	// disarm blocks until the fire completes.
	e.mu.Lock()
	l.mu.Unlock()
	defer e.mu.Unlock()
	e.fire()
	return true
}

// drain runs events until *fired becomes true. When block is set the
// calling goroutine parks whenever the queue is empty; otherwise drain
// returns as soon as the queue runs dry.
//
// The loop is installed as the goroutine's current loop for the duration,
// so combinators invoked from inside firing events bind to it.
func (l *EventLoop) drain(fired *bool, block bool) {
	restore := setCurrentLoop(l)
	defer restore()

	if block {
		// The futex parker parks the OS thread; pin the goroutine to it.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for !*fired {
		if l.runOne(block) {
			continue
		}
		if !block {
			return
		}
		l.parker.sleep()
	}
}
