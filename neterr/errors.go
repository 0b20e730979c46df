// Package neterr defines the error taxonomy shared by every netsock layer.
//
// Errors are values of type *Error tagged with a Kind. Callers branch on the
// kind with errors.Is against the package sentinels:
//
//	if errors.Is(err, neterr.ErrTimeout) {
//	    // connect or accept exceeded its deadline
//	}
//
// A timeout is a specialised connection failure, so errors.Is(err,
// neterr.ErrConnection) also holds for every timeout.
package neterr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies a netsock error.
type Kind uint8

const (
	// KindConnection is a generic transport failure (bind, connect, listen,
	// accept, option access).
	KindConnection Kind = iota + 1
	// KindTimeout is a time-bounded operation that exceeded its deadline.
	KindTimeout
	// KindUnknownHost is a name resolution failure or a rejected numeric literal.
	KindUnknownHost
	// KindIllegalState is a lifecycle precondition violation.
	KindIllegalState
	// KindInvalidArgument is an out-of-range argument or option value.
	KindInvalidArgument
	// KindIO is a hard failure while reading or writing a connected stream.
	KindIO
)

// String returns a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindTimeout:
		return "timed out"
	case KindUnknownHost:
		return "unknown host"
	case KindIllegalState:
		return "illegal state"
	case KindInvalidArgument:
		return "invalid argument"
	case KindIO:
		return "i/o error"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Sentinels for errors.Is matching. They compare by kind, not identity.
var (
	ErrConnection      = &Error{Kind: KindConnection}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrUnknownHost     = &Error{Kind: KindUnknownHost}
	ErrIllegalState    = &Error{Kind: KindIllegalState}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrIO              = &Error{Kind: KindIO}
)

// Error represents a netsock failure with additional context.
type Error struct {
	Kind Kind          // classification
	Op   string        // operation that caused the error
	Addr string        // address if relevant
	Code syscall.Errno // OS-style diagnostic, zero if none
	Err  error         // underlying error
}

// Error renders the operation, address and cause.
func (e *Error) Error() string {
	msg := "netsock"
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Addr != "" {
		msg += " " + e.Addr
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Code != 0 {
		msg += ": " + e.Code.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind. A timeout also matches ErrConnection.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		if code, ok := target.(syscall.Errno); ok {
			return e.Code != 0 && e.Code == code
		}
		return false
	}
	if t.Op != "" || t.Addr != "" || t.Err != nil || t.Code != 0 {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindConnection && e.Kind == KindTimeout
}

// Timeout implements net.Error.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// Temporary implements net.Error.
func (e *Error) Temporary() bool {
	return e.Kind == KindTimeout
}

// New creates an Error of the given kind.
func New(kind Kind, op, addr string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Addr: addr, Err: err}
	var code syscall.Errno
	if errors.As(err, &code) {
		e.Code = code
	}
	return e
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return New(kind, op, "", fmt.Errorf(format, args...))
}

// Connection wraps err as a connection error.
func Connection(op, addr string, err error) *Error {
	return New(KindConnection, op, addr, err)
}

// Timeout creates a timeout error.
func Timeout(op, addr string) *Error {
	return &Error{Kind: KindTimeout, Op: op, Addr: addr, Code: syscall.ETIMEDOUT}
}

// UnknownHost creates an unknown-host error for the given hostname.
func UnknownHost(op, host string, err error) *Error {
	return New(KindUnknownHost, op, host, err)
}

// IllegalState creates an illegal-state error with a reason.
func IllegalState(op, reason string) *Error {
	return New(KindIllegalState, op, "", errors.New(reason))
}

// InvalidArgument creates an invalid-argument error with a formatted reason.
func InvalidArgument(op, format string, args ...interface{}) *Error {
	return Newf(KindInvalidArgument, op, format, args...)
}

// IO wraps err as a stream I/O error.
func IO(op string, err error) *Error {
	return New(KindIO, op, "", err)
}

// KindOf returns the kind of err, or zero when err is not a netsock error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
