//go:build linux

package async

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation constants (linux/futex.h). golang.org/x/sys/unix
// does not export these op codes, only the syscall number.
const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128
)

// futexParker parks directly on a futex word: 0 = awake, 1 = parked.
// prepareToSleep publishes intent under the queue mutex; wake is a single
// atomic swap on the fast path, with a FUTEX_WAKE only when a sleeper is
// actually prepared.
type futexParker struct {
	word uint32
}

func newParker() parker { return &futexParker{} }

func (p *futexParker) prepareToSleep() {
	atomic.StoreUint32(&p.word, 1)
}

func (p *futexParker) sleep() {
	for atomic.LoadUint32(&p.word) == 1 {
		_, _, _ = unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(&p.word)),
			uintptr(futexWait|futexPrivateFlag),
			1, 0, 0, 0,
		)
	}
}

func (p *futexParker) wake() {
	if atomic.SwapUint32(&p.word, 0) != 0 {
		// The word was 1, so a sleep is in progress (or imminent) on
		// another thread.
		_, _, _ = unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(&p.word)),
			uintptr(futexWake|futexPrivateFlag),
			1, 0, 0, 0,
		)
	}
}
