package net

import (
	"net"
	"sync"

	"github.com/opd-ai/netsock"
	"github.com/opd-ai/netsock/address"
)

// Listener implements net.Listener over a netsock.ServerSocket.
// Close does not interrupt an Accept blocked in another goroutine; use a
// receive timeout on the server socket to bound Accept.
type Listener struct {
	ss *netsock.ServerSocket

	closed bool
	mu     sync.RWMutex
}

// NewListener wraps a bound server socket.
func NewListener(ss *netsock.ServerSocket) *Listener {
	return &Listener{ss: ss}
}

// Accept implements net.Listener.Accept().
func (l *Listener) Accept() (net.Conn, error) {
	return l.AcceptConn()
}

// AcceptConn waits for and returns the next connection as a *Conn.
func (l *Listener) AcceptConn() (*Conn, error) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return nil, ErrListenerClosed
	}
	l.mu.RUnlock()

	sock, err := l.ss.Accept()
	if err != nil {
		return nil, newOpError("accept", "tcp", l.Addr().String(), err)
	}
	return NewConn(sock), nil
}

// Close implements net.Listener.Close().
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	return l.ss.Close()
}

// Addr implements net.Listener.Addr().
func (l *Listener) Addr() net.Addr {
	if ep := l.ss.LocalEndpoint(); ep != nil {
		return NewSockAddr(*ep)
	}
	return NewSockAddr(address.WildcardEndpoint(0))
}

// ServerSocket returns the underlying server socket.
func (l *Listener) ServerSocket() *netsock.ServerSocket {
	return l.ss
}

var _ net.Listener = (*Listener)(nil)
