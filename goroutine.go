package async

import (
	"runtime"
	"sync"
)

// Go has no thread-local storage, so the "current loop" slot is a map keyed
// by goroutine ID, maintained only for goroutines that are inside a wait.
var currentLoops sync.Map // uint64 -> *EventLoop

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// currentLoop returns the loop being driven by this goroutine, or nil if
// the goroutine is not inside a wait.
func currentLoop() *EventLoop {
	if v, ok := currentLoops.Load(getGoroutineID()); ok {
		return v.(*EventLoop)
	}
	return nil
}

// setCurrentLoop installs l as this goroutine's current loop and returns a
// restore function. The previous value is reinstated even if the wait
// unwinds via panic, so the restore must run from a defer.
func setCurrentLoop(l *EventLoop) (restore func()) {
	gid := getGoroutineID()
	prev, hadPrev := currentLoops.Load(gid)
	currentLoops.Store(gid, l)
	return func() {
		if hadPrev {
			currentLoops.Store(gid, prev)
		} else {
			currentLoops.Delete(gid)
		}
	}
}

// CurrentEventLoop returns the event loop currently running on the calling
// goroutine, or nil if there is none. Combinators such as [Then] use this
// to bind continuations to the loop whose event is presently firing.
func CurrentEventLoop() *EventLoop {
	return currentLoop()
}
