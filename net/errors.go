package net

import (
	"errors"
	"fmt"

	"github.com/opd-ai/netsock/neterr"
)

// Common errors for socket networking
var (
	// ErrConnectionClosed indicates the connection has been closed
	ErrConnectionClosed = errors.New("connection closed")

	// ErrListenerClosed indicates the listener has been closed
	ErrListenerClosed = errors.New("listener closed")

	// ErrTimeout indicates a deadline passed
	ErrTimeout = errors.New("i/o timeout")

	// ErrUnsupportedNetwork indicates a network other than tcp, tcp4 or tcp6
	ErrUnsupportedNetwork = errors.New("unsupported network")
)

// OpError represents an error with additional context. It satisfies
// net.Error.
type OpError struct {
	Op   string // operation that caused the error
	Net  string // network, if relevant
	Addr string // address, if relevant
	Err  error  // underlying error
}

// Error renders "op net addr: err".
func (e *OpError) Error() string {
	msg := e.Op
	if e.Net != "" {
		msg += " " + e.Net
	}
	if e.Addr != "" {
		msg += " " + e.Addr
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the operation ran past a deadline or timeout.
func (e *OpError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout) || errors.Is(e.Err, neterr.ErrTimeout)
}

// Temporary reports Timeout.
func (e *OpError) Temporary() bool {
	return e.Timeout()
}

func newOpError(op, network, addr string, err error) *OpError {
	return &OpError{
		Op:   op,
		Net:  network,
		Addr: addr,
		Err:  err,
	}
}
