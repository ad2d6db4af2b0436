package async

// Promise is the single-consumer owner of a node in the promise graph.
//
// A promise is consumed exactly once: by [Promise.Wait], by [Promise.Release],
// or by passing it to a combinator such as [Then] or [Fork]. Using a
// promise after it has been consumed panics, since it indicates the caller
// believes two parties own the same result; the one exception is Release,
// which is then a no-op.
//
// The zero Promise is invalid.
type Promise[T any] struct {
	b *promiseBase[T]
}

type promiseBase[T any] struct {
	node node[T]

	// waitEv is the readiness probe registered by Poll or Wait. It is
	// created lazily and reused, since a node accepts only one
	// continuation over its lifetime.
	waitEv    *event
	waitFired bool
}

func newPromise[T any](n node[T]) Promise[T] {
	return Promise[T]{b: &promiseBase[T]{node: n}}
}

// Resolved returns a promise that is already fulfilled with value.
func Resolved[T any](value T) Promise[T] {
	n := &immediateNode[T]{}
	n.result.setValue(value)
	return newPromise[T](n)
}

// Rejected returns a promise that is already broken with err.
func Rejected[T any](err error) Promise[T] {
	n := &immediateNode[T]{}
	n.result.setException(err)
	return newPromise[T](n)
}

// consume takes ownership of the underlying node, leaving the promise
// spent. op names the consuming operation for the panic message.
func (p Promise[T]) consume(op string) node[T] {
	b := p.b
	if b == nil || b.node == nil {
		panic("async: " + op + " on consumed or released promise")
	}
	if b.waitEv != nil {
		panic("async: " + op + " on promise with a wait in progress")
	}
	n := b.node
	b.node = nil
	return n
}

// register installs the readiness probe for waiting on l, creating it on
// first use. It returns a pointer to the fired flag.
func (b *promiseBase[T]) register(l *EventLoop) *bool {
	if b.waitEv == nil {
		b.node = makeSafeForLoop(b.node, l)
		ev := &event{loop: l}
		ev.fire = func() { b.waitFired = true }
		b.waitEv = ev
		if b.node.onReady(ev) {
			b.waitFired = true
		}
	} else if b.waitEv.loop != l {
		panic("async: Poll() and Wait() must use the same event loop")
	}
	return &b.waitFired
}

// Wait drives l until the promise is ready, then returns its value or
// error. The calling goroutine becomes the loop's driver for the duration;
// events queued on l (including ones unrelated to this promise) fire here.
// Wait consumes the promise.
func (p Promise[T]) Wait(l *EventLoop) (T, error) {
	b := p.b
	if b == nil || (b.node == nil && b.waitEv == nil) {
		panic("async: Wait on consumed or released promise")
	}

	fired := b.register(l)
	l.drain(fired, true)

	n := b.node
	b.node = nil
	b.waitEv = nil

	var result ExceptionOr[T]
	n.get(&result)
	releaseInto(&result, n.release)

	if result.err != nil {
		var zero T
		return zero, result.err
	}
	if !result.ok {
		panic("async: node returned neither value nor exception")
	}
	return result.value, nil
}

// Poll runs l's queue without blocking until the promise is ready or the
// queue is empty, and reports whether the promise is ready. Unlike Wait it
// does not consume the promise, so a true result may be followed by Wait
// to extract the value without re-entering the loop.
func (p Promise[T]) Poll(l *EventLoop) bool {
	b := p.b
	if b == nil || (b.node == nil && b.waitEv == nil) {
		panic("async: Poll on consumed or released promise")
	}

	fired := b.register(l)
	if !*fired {
		l.drain(fired, false)
	}
	return *fired
}

// Release tears down the promise without waiting for it: queued events are
// disarmed, dependencies dropped, and unsettled adapted operations
// cancelled. Releasing a consumed or already-released promise is a no-op.
func (p Promise[T]) Release() {
	b := p.b
	if b == nil {
		return
	}
	if b.waitEv != nil {
		b.waitEv.disarm()
		b.waitEv = nil
	}
	if b.node != nil {
		n := b.node
		b.node = nil
		releaseLogging(n.release)
	}
}

// IsSafeEventLoop reports whether the promise may be evaluated on l
// without a cross-thread adapter.
func (p Promise[T]) IsSafeEventLoop(l *EventLoop) bool {
	b := p.b
	if b == nil || b.node == nil {
		panic("async: IsSafeEventLoop on consumed or released promise")
	}
	pref := b.node.safeLoop()
	return pref == nil || pref == l
}
