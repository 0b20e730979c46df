package netsock

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/limits"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/sio"
)

// ServerSocket listens for and accepts stream connections.
type ServerSocket struct {
	impl   interfaces.SocketImpl
	opts   *Options
	log    *logrus.Entry
	family address.Family

	bound  bool
	closed bool
}

// NewServerSocket returns a created, unbound server socket. Its family is
// that of opts.LocalAddress, or the preferred family.
func NewServerSocket(opts *Options) (*ServerSocket, error) {
	opts = opts.Clone()
	ss := &ServerSocket{
		impl:   opts.Registry.NewServerImpl(),
		opts:   opts,
		log:    opts.logger(),
		family: opts.family(),
	}
	if err := ss.impl.Create(ss.family); err != nil {
		ss.impl.Close()
		return nil, err
	}
	return ss, nil
}

// Listen creates a server socket bound to port on opts.LocalAddress, or the
// wildcard address, and starts listening. A backlog of zero or less uses
// limits.DefaultBacklog.
func Listen(port uint16, backlog int, opts *Options) (*ServerSocket, error) {
	ss, err := NewServerSocket(opts)
	if err != nil {
		return nil, err
	}
	local := ss.opts.LocalAddress
	if local == nil {
		local = address.AnyFor(ss.family)
	}
	if err := ss.Bind(address.NewEndpoint(local, port), backlog); err != nil {
		return nil, err
	}
	return ss, nil
}

// Bind binds to ep and listens. On failure the socket is closed.
func (ss *ServerSocket) Bind(ep address.Endpoint, backlog int) error {
	if ss.closed {
		return neterr.IllegalState("bind", "socket is closed")
	}
	if ss.bound {
		return neterr.IllegalState("bind", "already bound")
	}
	if ep.IsUnresolved() {
		return neterr.UnknownHost("bind", ep.HostName(), nil)
	}
	if ep.Family() != ss.family {
		return neterr.InvalidArgument("bind", "%s endpoint on %s socket", ep.Family(), ss.family)
	}

	if err := ss.bindAndListen(ep, limits.Backlog(backlog)); err != nil {
		ss.log.WithFields(logrus.Fields{
			"function": "ServerSocket.Bind",
			"endpoint": ep.String(),
			"error":    err.Error(),
		}).Error("Failed to bind server socket")
		ss.Close()
		return err
	}
	ss.bound = true

	ss.log.WithFields(logrus.Fields{
		"function": "ServerSocket.Bind",
		"local":    ss.impl.LocalAddress().HostAddress(),
		"port":     ss.impl.LocalPort(),
		"backlog":  limits.Backlog(backlog),
	}).Info("Listening")
	return nil
}

func (ss *ServerSocket) bindAndListen(ep address.Endpoint, backlog int) error {
	if err := ss.impl.Bind(ep.Address(), ep.Port()); err != nil {
		return err
	}
	return ss.impl.Listen(backlog)
}

// Accept waits for a connection and returns it as a connected Socket owned
// by the caller. The wait is bounded only by ReceiveTimeout.
func (ss *ServerSocket) Accept() (*Socket, error) {
	if ss.closed {
		return nil, neterr.IllegalState("accept", "socket is closed")
	}
	if !ss.bound {
		return nil, neterr.IllegalState("accept", "socket is not bound")
	}

	peer := ss.opts.Registry.NewClientImpl()
	if err := ss.impl.Accept(peer); err != nil {
		peer.Close()
		return nil, err
	}

	s := newSocket(peer, ss.opts)
	s.created = true
	s.bound = true
	s.connected = true

	ss.log.WithFields(logrus.Fields{
		"function": "ServerSocket.Accept",
		"remote":   peer.RemoteAddress().HostAddress(),
		"port":     peer.RemotePort(),
	}).Debug("Accepted connection")
	return s, nil
}

// Close stops listening. It is idempotent and never fails.
func (ss *ServerSocket) Close() error {
	if ss.closed {
		return nil
	}
	ss.closed = true
	if err := ss.impl.Close(); err != nil {
		ss.log.WithFields(logrus.Fields{
			"function": "ServerSocket.Close",
			"error":    err.Error(),
		}).Warn("Error closing server socket implementation")
	}
	return nil
}

func (ss *ServerSocket) optionImpl(op string) (interfaces.SocketImpl, error) {
	if ss.closed {
		return nil, neterr.IllegalState(op, "socket is closed")
	}
	return ss.impl, nil
}

// ReuseAddress reports SO_REUSEADDR. Listen enables it.
func (ss *ServerSocket) ReuseAddress() (bool, error) {
	impl, err := ss.optionImpl("reuse address")
	if err != nil {
		return false, err
	}
	return impl.OptionBool(sio.OptReuseAddr)
}

// SetReuseAddress sets SO_REUSEADDR. It only affects a later Bind.
func (ss *ServerSocket) SetReuseAddress(on bool) error {
	impl, err := ss.optionImpl("reuse address")
	if err != nil {
		return err
	}
	return impl.SetOptionBool(sio.OptReuseAddr, on)
}

// ReceiveBufferSize is inherited by accepted sockets.
func (ss *ServerSocket) ReceiveBufferSize() (int, error) {
	impl, err := ss.optionImpl("receive buffer size")
	if err != nil {
		return 0, err
	}
	return impl.OptionInt(sio.OptReceiveBuffer)
}

// SetReceiveBufferSize sets SO_RCVBUF. The size must be positive.
func (ss *ServerSocket) SetReceiveBufferSize(size int) error {
	impl, err := ss.optionImpl("receive buffer size")
	if err != nil {
		return err
	}
	return setBufferOption(impl, "receive buffer size", sio.OptReceiveBuffer, size)
}

// ReceiveTimeout bounds Accept. Zero blocks.
func (ss *ServerSocket) ReceiveTimeout() (time.Duration, error) {
	impl, err := ss.optionImpl("receive timeout")
	if err != nil {
		return 0, err
	}
	return timeoutOption(impl, sio.OptReceiveTimeout)
}

// SetReceiveTimeout bounds each Accept. Zero blocks.
func (ss *ServerSocket) SetReceiveTimeout(d time.Duration) error {
	impl, err := ss.optionImpl("receive timeout")
	if err != nil {
		return err
	}
	return setTimeoutOption(impl, "receive timeout", sio.OptReceiveTimeout, d)
}

// LocalAddress returns the bound address, or nil unless bound.
func (ss *ServerSocket) LocalAddress() *address.NetworkAddress {
	if !ss.bound {
		return nil
	}
	return ss.impl.LocalAddress()
}

// LocalPort returns the listening port, or 0 unless bound.
func (ss *ServerSocket) LocalPort() uint16 {
	if !ss.bound {
		return 0
	}
	return ss.impl.LocalPort()
}

// LocalEndpoint returns the listening endpoint, or nil unless bound.
func (ss *ServerSocket) LocalEndpoint() *address.Endpoint {
	if !ss.bound {
		return nil
	}
	ep := address.NewEndpoint(ss.impl.LocalAddress(), ss.impl.LocalPort())
	return &ep
}

// IsBound reports whether the socket is listening.
func (ss *ServerSocket) IsBound() bool { return ss.bound }

// IsClosed reports whether Close has been called.
func (ss *ServerSocket) IsClosed() bool { return ss.closed }

// Impl returns the underlying implementation.
func (ss *ServerSocket) Impl() interfaces.SocketImpl { return ss.impl }

// Options returns a copy of the options the socket was created with.
func (ss *ServerSocket) Options() *Options { return ss.opts.Clone() }

// String describes the listening endpoint.
func (ss *ServerSocket) String() string {
	if !ss.bound {
		return "ServerSocket[unbound]"
	}
	return fmt.Sprintf("ServerSocket[addr=%v,localport=%d]", ss.impl.LocalAddress(), ss.impl.LocalPort())
}
