// Package-level configuration for structured logging.
//
// The logger is a package-level variable rather than per-loop
// configuration: logging is an infrastructure cross-cutting concern, all
// loops in a process share logging semantics, and the surface area stays
// small. The logiface facade is nil-safe, so an unconfigured logger costs a
// single atomic load per call site.

package async

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

var pkgLogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger configures the package's structured logger. Pass nil to disable
// logging (the default). Safe to call concurrently with running loops.
func SetLogger(l *logiface.Logger[logiface.Event]) {
	pkgLogger.Store(l)
}

func logger() *logiface.Logger[logiface.Event] {
	return pkgLogger.Load()
}
