package sio

import "syscall"

// Primitives is the fixed native socket API consumed by netsock.
// Every error returned outside a Result wraps a syscall.Errno.
type Primitives interface {
	// Socket creates a stream socket of the given family.
	Socket(family Family) (Handle, error)
	// Bind assigns a local address to h.
	Bind(h Handle, sa Sockaddr) error
	// Connect starts or completes a connection to sa.
	Connect(h Handle, sa Sockaddr) Result
	// Listen marks h as passive with the given backlog.
	Listen(h Handle, backlog int) error
	// Accept takes the next pending connection from a listening handle.
	Accept(h Handle) (Handle, Sockaddr, Result)
	// Send writes from p once and reports the number of bytes accepted.
	Send(h Handle, p []byte, flags SendFlags) Result
	// Recv reads into p once. KindClosed reports an orderly peer shutdown.
	Recv(h Handle, p []byte) Result
	// Shutdown disables one direction of a connection.
	Shutdown(h Handle, how ShutdownHow) error
	// Close releases h.
	Close(h Handle) error
	// SetNonblock toggles non-blocking mode.
	SetNonblock(h Handle, nonblocking bool) error
	// Poll waits up to timeoutMs milliseconds (negative waits forever) for
	// one of events. KindOK means ready, KindTimedOut means expired.
	Poll(h Handle, events Event, timeoutMs int) Result
	// SocketError reads and clears the pending socket error.
	SocketError(h Handle) (syscall.Errno, error)
	// Sockname returns the local address bound to h.
	Sockname(h Handle) (Sockaddr, error)
	// Available returns the number of bytes readable without blocking.
	Available(h Handle) (int, error)
	// GetOption reads an option. Boolean options are reported as 0 or 1.
	GetOption(h Handle, family Family, opt Option) (int, error)
	// SetOption writes an option. Boolean options take 0 or 1.
	SetOption(h Handle, family Family, opt Option, value int) error
}

var defaultPrimitives Primitives = platformPrimitives()

// Default returns the primitives of the running platform.
func Default() Primitives {
	return defaultPrimitives
}
