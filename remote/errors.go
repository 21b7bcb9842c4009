package remote

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a remote failure for retry decisions.
type ErrorKind int

const (
	// KindFatal covers every failure that re-attempting cannot fix:
	// rejected writes, malformed requests, storage and configuration errors.
	KindFatal ErrorKind = iota

	// KindRateLimited signals the remote asked us to back off.
	KindRateLimited

	// KindTimeout signals the request did not complete in time.
	KindTimeout
)

// String returns the wire-style name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	default:
		return "fatal"
	}
}

// Retryable reports whether a failure of this kind may succeed on re-attempt.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindTimeout
}

// Error is the failure type every remote call surfaces. The Kind survives
// retry exhaustion unchanged so callers can tell "still rate limited after
// backoff" apart from "rejected outright".
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("remote: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a remote error for the given operation and kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Fatalf builds a fatal remote error from a format string.
func Fatalf(op, format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Errors that are not remote
// errors classify as fatal, matching the "any other failure" rule.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindFatal
}

// IsRetryable reports whether err is a transient remote failure.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
