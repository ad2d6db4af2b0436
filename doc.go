// Package async implements a promise graph evaluated by a cooperative,
// single-threaded event loop.
//
// The package is a foundation layer: it defines deferred computations
// (promises), the combinators that compose them (transform, fork, chain),
// and the event loop that drives them to completion. Higher-level concerns
// such as timers, I/O readiness, and RPC are expected to be built on top by
// adapting external completions into promises via [NewPromiseAndFulfiller]
// or [NewAdaptedPromise].
//
// # Event loops
//
// An [EventLoop] owns a queue of events and runs them one at a time on
// whichever goroutine calls [Promise.Wait]. Events are never preempted;
// each runs to completion before the next is popped. Multiple loops may
// exist in a process, each driven by its own goroutine. While a wait is in
// progress, the loop is registered as the calling goroutine's current loop,
// which is what combinators like [Then] bind to.
//
// Two scheduling disciplines govern where a newly armed event lands in the
// queue. Preempt inserts the event before the loop's insert point, so work
// armed while another event fires stays grouped with it and does not lose
// priority to unrelated queued events. Yield appends at the tail, which is
// also the only discipline used for cross-goroutine arms, keeping delivery
// in FIFO order per producer.
//
// # Promises
//
// A [Promise] is the single-consumer owner of a node in the graph. Building
// blocks:
//
//	p := async.Resolved(7)
//	q := async.Then(p, func(v int) (int, error) { return v * 2, nil })
//	v, err := q.Wait(loop)
//
// [Fork] fans a promise out to any number of branches, [ThenChain] flattens
// a promise-returning continuation, and [EagerlyEvaluate] forces evaluation
// to begin before anything waits. Dropping a pipeline early is explicit:
// [Promise.Release] tears down the node graph, disarming any queued events
// and cancelling adapted operations that have not settled.
//
// # Errors
//
// A promise settles with a value or with an error, never both. Errors
// created by this package are [Exception] values carrying an
// [ExceptionKind] and a stack trace. Callback panics are captured and
// delivered as [PanicError]. Errors raised while tearing down an
// already-settled pipeline are accumulated behind the primary result rather
// than escaping; see [ExceptionOr].
package async
