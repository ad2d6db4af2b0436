package async

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
)

// ExceptionKind classifies an [Exception] so that callers can react to
// broad categories of failure without string matching.
type ExceptionKind int

const (
	// ExceptionFailed indicates a generic failed precondition or logic
	// error. It is the default kind for errors not created by this package.
	ExceptionFailed ExceptionKind = iota
	// ExceptionOverloaded indicates the operation was refused or abandoned
	// because some resource is exhausted.
	ExceptionOverloaded
	// ExceptionDisconnected indicates the operation depended on a peer or
	// channel that has gone away.
	ExceptionDisconnected
	// ExceptionUnimplemented indicates the requested operation is not
	// implemented by the callee.
	ExceptionUnimplemented
)

// String returns a human-readable representation of the kind.
func (k ExceptionKind) String() string {
	switch k {
	case ExceptionFailed:
		return "failed"
	case ExceptionOverloaded:
		return "overloaded"
	case ExceptionDisconnected:
		return "disconnected"
	case ExceptionUnimplemented:
		return "unimplemented"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Exception is the error type produced by this package. It carries a kind
// and a cause with a captured stack trace, and participates in the standard
// errors.Is / errors.As protocols via Unwrap.
type Exception struct {
	kind  ExceptionKind
	cause error
}

// NewException creates an Exception of the given kind, capturing the stack
// of the caller.
func NewException(kind ExceptionKind, msg string) error {
	return &Exception{kind: kind, cause: pkgerrors.New(msg)}
}

// NewExceptionf is like [NewException] with formatting.
func NewExceptionf(kind ExceptionKind, format string, args ...any) error {
	return &Exception{kind: kind, cause: pkgerrors.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *Exception) Error() string { return e.cause.Error() }

// Unwrap returns the underlying cause, which carries the stack trace.
func (e *Exception) Unwrap() error { return e.cause }

// Kind returns the exception's classification.
func (e *Exception) Kind() ExceptionKind { return e.kind }

// KindOf returns the [ExceptionKind] of err, unwrapping as necessary.
// Errors not created by this package classify as [ExceptionFailed].
func KindOf(err error) ExceptionKind {
	var e *Exception
	if pkgerrors.As(err, &e) {
		return e.kind
	}
	return ExceptionFailed
}

// PanicError wraps a value recovered from a panicking promise callback.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the panic value if it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// recoveredError converts a recover() result into an error with a stack
// captured at the recovery site.
func recoveredError(r any) error {
	return pkgerrors.WithStack(&PanicError{Value: r})
}

// ExceptionOr carries the settled result of a promise node: a value, an
// exception, or neither while the node is still pending. At most one of the
// two is meaningful to consumers; if both arise, the exception wins.
type ExceptionOr[T any] struct {
	value T
	ok    bool
	err   error
}

func (r *ExceptionOr[T]) setValue(v T) {
	r.value = v
	r.ok = true
}

func (r *ExceptionOr[T]) setException(err error) {
	r.err = err
}

// settled reports whether a value or exception has been stored.
func (r *ExceptionOr[T]) settled() bool { return r.ok || r.err != nil }

// addException records a secondary failure. The first exception stays the
// head of the chain; later ones are appended behind it and logged, so the
// primary failure mode is what consumers match against.
func (r *ExceptionOr[T]) addException(err error) {
	if err == nil {
		return
	}
	if r.err == nil {
		r.err = err
		return
	}
	r.err = multierror.Append(r.err, err)
	logger().Warning().Err(err).Log("async: discarding additional exception")
}
