package net

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/opd-ai/netsock"
	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/sio"
)

// Conn implements net.Conn over a connected netsock.Socket.
// Reads go straight to the implementation; the socket's buffered Stream is
// not used, so the two must not be mixed.
type Conn struct {
	sock  *netsock.Socket
	clock sio.TimeProvider

	// Deadline management
	readDeadline  time.Time
	writeDeadline time.Time
	readTimed     bool
	writeTimed    bool
	deadlineMu    sync.Mutex

	closed bool
	mu     sync.RWMutex
}

// NewConn wraps a connected socket. Deadlines are measured on the clock of
// the socket's implementation registry.
func NewConn(sock *netsock.Socket) *Conn {
	cfg := sock.Options().Registry.Config()
	return &Conn{
		sock:  sock,
		clock: cfg.Clock(),
	}
}

// checkConnectionClosed verifies the connection is not closed.
func (c *Conn) checkConnectionClosed(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return newOpError(op, "tcp", c.remoteString(), ErrConnectionClosed)
	}
	return nil
}

// applyDeadline converts deadline into the remaining timeout and installs
// it through set. It reports whether a deadline is in force.
func (c *Conn) applyDeadline(deadline time.Time, timed *bool, set func(time.Duration) error) (bool, error) {
	if deadline.IsZero() {
		if *timed {
			if err := set(0); err != nil {
				return false, err
			}
			*timed = false
		}
		return false, nil
	}
	remaining := deadline.Sub(c.clock.Now())
	if remaining <= 0 {
		return true, ErrTimeout
	}
	if err := set(remaining); err != nil {
		return true, err
	}
	*timed = true
	return true, nil
}

// Read implements net.Conn.Read(). It returns io.EOF once the peer has
// closed its side. With a deadline set, a read that yields nothing before
// the deadline fails with a timeout error.
func (c *Conn) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := c.checkConnectionClosed("read"); err != nil {
		return 0, err
	}

	c.deadlineMu.Lock()
	timed, err := c.applyDeadline(c.readDeadline, &c.readTimed, c.sock.SetReceiveTimeout)
	c.deadlineMu.Unlock()
	if err != nil {
		return 0, newOpError("read", "tcp", c.remoteString(), err)
	}

	n, err := c.sock.Impl().Read(b)
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	if err != nil {
		return 0, newOpError("read", "tcp", c.remoteString(), err)
	}
	if n == 0 && timed {
		return 0, newOpError("read", "tcp", c.remoteString(), ErrTimeout)
	}
	return n, nil
}

// Write implements net.Conn.Write(). All of b is sent or an error is
// returned.
func (c *Conn) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := c.checkConnectionClosed("write"); err != nil {
		return 0, err
	}

	c.deadlineMu.Lock()
	timed, err := c.applyDeadline(c.writeDeadline, &c.writeTimed, c.sock.SetSendTimeout)
	c.deadlineMu.Unlock()
	if err != nil {
		return 0, newOpError("write", "tcp", c.remoteString(), err)
	}

	if err := c.sock.Impl().Write(b); err != nil {
		if timed && (errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)) {
			err = ErrTimeout
		}
		return 0, newOpError("write", "tcp", c.remoteString(), err)
	}
	return len(b), nil
}

// Close implements net.Conn.Close().
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.sock.Close()
}

// CloseRead shuts down the reading side of the connection.
func (c *Conn) CloseRead() error {
	if err := c.checkConnectionClosed("close"); err != nil {
		return err
	}
	return c.sock.ShutdownInput()
}

// CloseWrite shuts down the writing side of the connection.
func (c *Conn) CloseWrite() error {
	if err := c.checkConnectionClosed("close"); err != nil {
		return err
	}
	return c.sock.ShutdownOutput()
}

// LocalAddr implements net.Conn.LocalAddr().
func (c *Conn) LocalAddr() net.Addr {
	if ep := c.sock.LocalEndpoint(); ep != nil {
		return NewSockAddr(*ep)
	}
	return NewSockAddr(address.WildcardEndpoint(0))
}

// RemoteAddr implements net.Conn.RemoteAddr().
func (c *Conn) RemoteAddr() net.Addr {
	if ep := c.sock.RemoteEndpoint(); ep != nil {
		return NewSockAddr(*ep)
	}
	return NewSockAddr(address.WildcardEndpoint(0))
}

func (c *Conn) remoteString() string {
	return c.RemoteAddr().String()
}

// SetDeadline implements net.Conn.SetDeadline().
// It sets both read and write deadlines.
func (c *Conn) SetDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.readDeadline = t
	c.writeDeadline = t
	c.deadlineMu.Unlock()
	return nil
}

// SetReadDeadline implements net.Conn.SetReadDeadline().
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.readDeadline = t
	c.deadlineMu.Unlock()
	return nil
}

// SetWriteDeadline implements net.Conn.SetWriteDeadline().
func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.writeDeadline = t
	c.deadlineMu.Unlock()
	return nil
}

// Socket returns the underlying socket.
func (c *Conn) Socket() *netsock.Socket {
	return c.sock
}

var _ net.Conn = (*Conn)(nil)
