package async

import (
	"sync"
	"sync/atomic"
)

// forkHub is the shared completion state behind a [ForkedPromise]: an event
// that drives the inner node to completion and then distributes readiness
// to every registered branch. The hub is reference-counted and outlives all
// of its branches.
type forkHub[T any] struct {
	ev     event
	refs   atomic.Int64
	armed  atomic.Bool
	inner  node[T]
	result ExceptionOr[T]

	// branchMu protects the intrusive branch list. Never held across user
	// code.
	branchMu sync.Mutex
	first    *forkBranch[T]
	// lastPtr addresses the list's tail link; nil marks the list closed
	// (the hub has fired and published its result).
	lastPtr **forkBranch[T]

	waiting  bool
	released bool
}

func newForkHub[T any](l *EventLoop, inner node[T]) *forkHub[T] {
	h := &forkHub[T]{inner: inner}
	h.refs.Store(1)
	h.lastPtr = &h.first
	h.ev.fire = h.fire
	if l != nil {
		h.ensureArmed(l)
	}
	return h
}

// ensureArmed binds the hub to a loop and arms it, once. Arming uses Yield
// so that distribution happens on a loop turn even when the inner node is
// already ready, keeping branch delivery deterministic and non-reentrant.
func (h *forkHub[T]) ensureArmed(l *EventLoop) {
	if h.armed.CompareAndSwap(false, true) {
		h.ev.loop = l
		h.ev.arm(Yield)
	}
}

func (h *forkHub[T]) fire() {
	if h.released {
		return
	}

	if !h.waiting {
		if !h.inner.onReady(&h.ev) {
			h.waiting = true
			return
		}
	}

	// The inner node is ready. Fetch its result, then drop it.
	h.inner.get(&h.result)
	inner := h.inner
	h.inner = nil
	releaseInto(&h.result, inner.release)

	h.branchMu.Lock()
	for b := h.first; b != nil; {
		next := b.next
		b.hubReady()
		b.prevPtr = nil
		b.next = nil
		b = next
	}
	h.first = nil
	// Close the list: branches created from here on are ready immediately.
	h.lastPtr = nil
	h.branchMu.Unlock()
}

func (h *forkHub[T]) ref() { h.refs.Add(1) }

func (h *forkHub[T]) unref() {
	if h.refs.Add(-1) != 0 {
		return
	}

	h.ev.mu.Lock()
	if h.released {
		h.ev.mu.Unlock()
		return
	}
	h.released = true
	h.ev.mu.Unlock()

	if h.armed.Load() {
		h.ev.disarm()
	}
	if h.inner != nil {
		inner := h.inner
		h.inner = nil
		releaseLogging(inner.release)
		if h.armed.Load() {
			h.ev.disarm()
		}
	}
}

// forkBranch is one subscriber of a hub. Branches hold a reference to the
// hub; the hub's result is shared, so branch get copies the value (pointer
// values end up shared between branches) and shares the exception.
type forkBranch[T any] struct {
	slot onReadySlot
	hub  *forkHub[T]

	next    *forkBranch[T]
	prevPtr **forkBranch[T]
}

func newForkBranch[T any](h *forkHub[T]) *forkBranch[T] {
	h.ref()
	b := &forkBranch[T]{hub: h}

	h.branchMu.Lock()
	if h.lastPtr == nil {
		// Hub already fired; result is published.
		b.slot.setReadyNow()
	} else {
		b.prevPtr = h.lastPtr
		*h.lastPtr = b
		h.lastPtr = &b.next
	}
	h.branchMu.Unlock()
	return b
}

// hubReady is called by the hub, with the branch list locked, once the
// result is published. Yield because distribution may happen on a
// different goroutine than the branch's consumer loop.
func (b *forkBranch[T]) hubReady() {
	b.slot.ready(Yield)
}

func (b *forkBranch[T]) onReady(e *event) bool {
	if h := b.hub; h != nil {
		h.ensureArmed(e.loop)
	}
	return b.slot.onReady(e)
}

func (b *forkBranch[T]) get(out *ExceptionOr[T]) {
	h := b.hub
	out.value = h.result.value
	out.ok = h.result.ok
	out.err = h.result.err

	b.hub = nil
	releaseInto(out, h.unref)
}

func (b *forkBranch[T]) safeLoop() *EventLoop { return nil }

func (b *forkBranch[T]) release() {
	h := b.hub
	if h == nil {
		return
	}
	b.hub = nil

	h.branchMu.Lock()
	if b.prevPtr != nil {
		*b.prevPtr = b.next
		if b.next == nil {
			h.lastPtr = b.prevPtr
		} else {
			b.next.prevPtr = b.prevPtr
		}
		b.prevPtr = nil
		b.next = nil
	}
	h.branchMu.Unlock()
	releaseLogging(h.unref)
}

// ForkedPromise is the hub handle produced by [Fork]. Each AddBranch yields
// an independent promise for the same result.
type ForkedPromise[T any] struct {
	b *forkedBase[T]
}

type forkedBase[T any] struct {
	hub *forkHub[T]
}

// Fork splits p into a hub from which any number of branches can be drawn.
// Every branch resolves to the same value (or the same exception). The hub
// evaluates p on the calling goroutine's current loop when there is one;
// otherwise it binds to the first loop that waits on a branch.
func Fork[T any](p Promise[T]) ForkedPromise[T] {
	l := currentLoop()
	dep := p.consume("Fork")
	if l != nil {
		dep = makeSafeForLoop(dep, l)
	}
	return ForkedPromise[T]{b: &forkedBase[T]{hub: newForkHub(l, dep)}}
}

// AddBranch returns a new promise for the forked result. Branches may be
// added before or after the underlying promise settles; late branches
// resolve immediately.
func (f ForkedPromise[T]) AddBranch() Promise[T] {
	if f.b == nil || f.b.hub == nil {
		panic("async: AddBranch on released ForkedPromise")
	}
	return newPromise[T](newForkBranch(f.b.hub))
}

// Release drops the hub handle. Outstanding branches keep the hub (and the
// evaluation of the inner promise) alive.
func (f ForkedPromise[T]) Release() {
	if f.b == nil || f.b.hub == nil {
		return
	}
	h := f.b.hub
	f.b.hub = nil
	releaseLogging(h.unref)
}
