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
	"github.com/opd-ai/netsock/stream"
)

// Socket is a client or accepted stream socket. A Socket is not safe for
// concurrent use; distinct sockets are independent.
type Socket struct {
	impl   interfaces.SocketImpl
	opts   *Options
	log    *logrus.Entry
	stream *stream.Buffer

	created        bool
	bound          bool
	connected      bool
	closed         bool
	inputShutdown  bool
	outputShutdown bool
}

// NewSocket returns an unconnected socket whose implementation comes from
// opts.Registry. No native handle is allocated until it is needed.
func NewSocket(opts *Options) *Socket {
	opts = opts.Clone()
	return newSocket(opts.Registry.NewClientImpl(), opts)
}

// NewSocketWithImpl returns an unconnected socket over impl.
func NewSocketWithImpl(impl interfaces.SocketImpl, opts *Options) *Socket {
	return newSocket(impl, opts.Clone())
}

func newSocket(impl interfaces.SocketImpl, opts *Options) *Socket {
	return &Socket{
		impl: impl,
		opts: opts,
		log:  opts.logger(),
	}
}

// Dial resolves host and connects to port on the first address that
// accepts, trying addresses of the preferred family before the others.
// When opts names a local address or port it is bound before each attempt.
func Dial(host string, port uint16, opts *Options) (*Socket, error) {
	opts = opts.Clone()
	addrs, err := address.ResolveAll(host)
	if err != nil {
		return nil, err
	}

	preferred := opts.family()
	ordered := make([]*address.NetworkAddress, 0, len(addrs))
	for _, a := range addrs {
		if a.Family() == preferred {
			ordered = append(ordered, a)
		}
	}
	for _, a := range addrs {
		if a.Family() != preferred {
			ordered = append(ordered, a)
		}
	}

	var last error
	for _, a := range ordered {
		s, err := DialAddress(a, port, opts)
		if err == nil {
			return s, nil
		}
		opts.logger().WithFields(logrus.Fields{
			"function": "Dial",
			"host":     host,
			"address":  a.HostAddress(),
			"port":     port,
			"error":    err.Error(),
		}).Debug("Connect attempt failed")
		last = err
	}

	opts.logger().WithFields(logrus.Fields{
		"function":  "Dial",
		"host":      host,
		"port":      port,
		"attempted": len(ordered),
	}).Error("Failed to connect to any resolved address")
	return nil, neterr.Connection("dial", host, fmt.Errorf("cannot connect to %s: %w", host, last))
}

// DialAddress connects a new socket to addr and port.
func DialAddress(addr *address.NetworkAddress, port uint16, opts *Options) (*Socket, error) {
	opts = opts.Clone()
	s := NewSocket(opts)
	if opts.hasLocal() {
		if err := s.Bind(address.NewEndpoint(opts.LocalAddress, opts.LocalPort)); err != nil {
			s.Close()
			return nil, err
		}
	}
	if err := s.Connect(address.NewEndpoint(addr, port), opts.ConnectTimeout); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Socket) checkOpen(op string) error {
	if s.closed {
		return neterr.IllegalState(op, "socket is closed")
	}
	return nil
}

// create allocates the native handle once.
func (s *Socket) create(family address.Family) error {
	if s.created {
		return nil
	}
	if err := s.impl.Create(family); err != nil {
		return err
	}
	s.created = true
	s.log.WithFields(logrus.Fields{
		"function": "Socket.create",
		"family":   family.String(),
		"handle":   int(s.impl.Handle()),
	}).Debug("Socket created")
	return nil
}

// familyHint is the family used for implicit creation.
func (s *Socket) familyHint() address.Family {
	return s.opts.family()
}

// Bind binds the socket to a local endpoint.
func (s *Socket) Bind(ep address.Endpoint) error {
	if err := s.checkOpen("bind"); err != nil {
		return err
	}
	if s.bound {
		return neterr.IllegalState("bind", "already bound")
	}
	if ep.IsUnresolved() {
		return neterr.UnknownHost("bind", ep.HostName(), nil)
	}
	if err := s.create(ep.Family()); err != nil {
		return err
	}
	if err := s.impl.Bind(ep.Address(), ep.Port()); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Socket.Bind",
			"endpoint": ep.String(),
			"error":    err.Error(),
		}).Error("Failed to bind socket")
		return err
	}
	s.bound = true
	return nil
}

// Connect connects to ep. A zero timeout blocks until the connection
// completes or fails. An unbound socket is first bound to the wildcard
// address of the destination family. On failure the socket is closed.
func (s *Socket) Connect(ep address.Endpoint, timeout time.Duration) error {
	if err := s.checkOpen("connect"); err != nil {
		return err
	}
	if s.connected {
		return neterr.IllegalState("connect", "already connected")
	}
	if ep.IsUnresolved() {
		return neterr.UnknownHost("connect", ep.HostName(), nil)
	}
	if timeout < 0 {
		return neterr.InvalidArgument("connect", "negative timeout: %v", timeout)
	}

	err := s.connect(ep, timeout)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Socket.Connect",
			"endpoint": ep.String(),
			"timeout":  timeout.String(),
			"error":    err.Error(),
		}).Error("Failed to connect")
		s.Close()
		return err
	}

	s.connected = true
	s.log.WithFields(logrus.Fields{
		"function": "Socket.Connect",
		"endpoint": ep.String(),
		"local":    s.impl.LocalPort(),
	}).Debug("Socket connected")
	return nil
}

func (s *Socket) connect(ep address.Endpoint, timeout time.Duration) error {
	family := ep.Family()
	if err := s.create(family); err != nil {
		return err
	}
	if !s.bound {
		if err := s.impl.Bind(address.AnyFor(family), 0); err != nil {
			return err
		}
		s.bound = true
	}
	return s.impl.Connect(ep.Address(), ep.Port(), timeout)
}

// Close releases the socket. It is idempotent and never fails; errors from
// the implementation are logged.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.impl.Close(); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Socket.Close",
			"error":    err.Error(),
		}).Warn("Error closing socket implementation")
	}
	return nil
}

// ShutdownInput disables further reads. The socket must be connected;
// no handle is created otherwise.
func (s *Socket) ShutdownInput() error {
	if err := s.checkOpen("shutdown input"); err != nil {
		return err
	}
	if !s.connected {
		return neterr.IllegalState("shutdown input", "socket is not connected")
	}
	if s.inputShutdown {
		return neterr.IllegalState("shutdown input", "input already shut down")
	}
	if err := s.impl.ShutdownInput(); err != nil {
		return err
	}
	s.inputShutdown = true
	return nil
}

// ShutdownOutput disables further writes, sending EOF to the peer.
func (s *Socket) ShutdownOutput() error {
	if err := s.checkOpen("shutdown output"); err != nil {
		return err
	}
	if !s.connected {
		return neterr.IllegalState("shutdown output", "socket is not connected")
	}
	if s.outputShutdown {
		return neterr.IllegalState("shutdown output", "output already shut down")
	}
	if s.stream != nil {
		if err := s.stream.Flush(); err != nil {
			return err
		}
	}
	if err := s.impl.ShutdownOutput(); err != nil {
		return err
	}
	s.outputShutdown = true
	return nil
}

// SendUrgentData sends one byte of out-of-band data.
func (s *Socket) SendUrgentData(v int) error {
	if err := limits.ValidateUrgentByte("send urgent data", v); err != nil {
		return err
	}
	impl, err := s.optionImpl("send urgent data")
	if err != nil {
		return err
	}
	if !impl.SupportsUrgentData() {
		return neterr.IllegalState("send urgent data", "urgent data not supported")
	}
	return impl.SendUrgentData(byte(v))
}

// Stream returns the buffered byte stream over the connection.
func (s *Socket) Stream() (*stream.Buffer, error) {
	if err := s.checkOpen("stream"); err != nil {
		return nil, err
	}
	if !s.connected {
		return nil, neterr.IllegalState("stream", "socket is not connected")
	}
	if s.stream == nil {
		s.stream = stream.NewBuffer(s.impl)
	}
	return s.stream, nil
}

// Impl returns the underlying implementation.
func (s *Socket) Impl() interfaces.SocketImpl { return s.impl }

// Options returns a copy of the options the socket was created with.
func (s *Socket) Options() *Options { return s.opts.Clone() }

func (s *Socket) optionImpl(op string) (interfaces.SocketImpl, error) {
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	if err := s.create(s.familyHint()); err != nil {
		return nil, err
	}
	return s.impl, nil
}

// KeepAlive reports SO_KEEPALIVE.
func (s *Socket) KeepAlive() (bool, error) {
	impl, err := s.optionImpl("keep alive")
	if err != nil {
		return false, err
	}
	return impl.OptionBool(sio.OptKeepAlive)
}

// SetKeepAlive enables or disables SO_KEEPALIVE.
func (s *Socket) SetKeepAlive(on bool) error {
	impl, err := s.optionImpl("keep alive")
	if err != nil {
		return err
	}
	return impl.SetOptionBool(sio.OptKeepAlive, on)
}

// Linger reports whether SO_LINGER is enabled and its timeout in seconds.
func (s *Socket) Linger() (bool, int, error) {
	impl, err := s.optionImpl("linger")
	if err != nil {
		return false, 0, err
	}
	v, err := impl.OptionInt(sio.OptLinger)
	if err != nil {
		return false, 0, err
	}
	if v < 0 {
		return false, -1, nil
	}
	return true, v, nil
}

// SetLinger enables SO_LINGER with the given timeout, or disables it.
func (s *Socket) SetLinger(on bool, seconds int) error {
	if err := limits.ValidateLinger("linger", on, seconds); err != nil {
		return err
	}
	impl, err := s.optionImpl("linger")
	if err != nil {
		return err
	}
	if !on {
		return impl.SetOptionBool(sio.OptLinger, false)
	}
	return impl.SetOptionInt(sio.OptLinger, seconds)
}

// ReceiveBufferSize reports SO_RCVBUF.
func (s *Socket) ReceiveBufferSize() (int, error) {
	impl, err := s.optionImpl("receive buffer size")
	if err != nil {
		return 0, err
	}
	return impl.OptionInt(sio.OptReceiveBuffer)
}

// SetReceiveBufferSize sets SO_RCVBUF. The size must be positive.
func (s *Socket) SetReceiveBufferSize(size int) error {
	impl, err := s.optionImpl("receive buffer size")
	if err != nil {
		return err
	}
	return setBufferOption(impl, "receive buffer size", sio.OptReceiveBuffer, size)
}

// SendBufferSize reports SO_SNDBUF.
func (s *Socket) SendBufferSize() (int, error) {
	impl, err := s.optionImpl("send buffer size")
	if err != nil {
		return 0, err
	}
	return impl.OptionInt(sio.OptSendBuffer)
}

// SetSendBufferSize sets SO_SNDBUF. The size must be positive.
func (s *Socket) SetSendBufferSize(size int) error {
	impl, err := s.optionImpl("send buffer size")
	if err != nil {
		return err
	}
	return setBufferOption(impl, "send buffer size", sio.OptSendBuffer, size)
}

// ReceiveTimeout reports the read timeout. Zero means reads block.
func (s *Socket) ReceiveTimeout() (time.Duration, error) {
	impl, err := s.optionImpl("receive timeout")
	if err != nil {
		return 0, err
	}
	return timeoutOption(impl, sio.OptReceiveTimeout)
}

// SetReceiveTimeout bounds each read. Zero blocks.
func (s *Socket) SetReceiveTimeout(d time.Duration) error {
	impl, err := s.optionImpl("receive timeout")
	if err != nil {
		return err
	}
	return setTimeoutOption(impl, "receive timeout", sio.OptReceiveTimeout, d)
}

// SendTimeout reports the write timeout. Zero means writes block.
func (s *Socket) SendTimeout() (time.Duration, error) {
	impl, err := s.optionImpl("send timeout")
	if err != nil {
		return 0, err
	}
	return timeoutOption(impl, sio.OptSendTimeout)
}

// SetSendTimeout bounds each write. Zero blocks.
func (s *Socket) SetSendTimeout(d time.Duration) error {
	impl, err := s.optionImpl("send timeout")
	if err != nil {
		return err
	}
	return setTimeoutOption(impl, "send timeout", sio.OptSendTimeout, d)
}

// TCPNoDelay reports whether Nagle's algorithm is disabled.
func (s *Socket) TCPNoDelay() (bool, error) {
	impl, err := s.optionImpl("tcp no delay")
	if err != nil {
		return false, err
	}
	return impl.OptionBool(sio.OptNoDelay)
}

// SetTCPNoDelay sets TCP_NODELAY.
func (s *Socket) SetTCPNoDelay(on bool) error {
	impl, err := s.optionImpl("tcp no delay")
	if err != nil {
		return err
	}
	return impl.SetOptionBool(sio.OptNoDelay, on)
}

// ReuseAddress reports SO_REUSEADDR.
func (s *Socket) ReuseAddress() (bool, error) {
	impl, err := s.optionImpl("reuse address")
	if err != nil {
		return false, err
	}
	return impl.OptionBool(sio.OptReuseAddr)
}

// SetReuseAddress sets SO_REUSEADDR. It only affects a later Bind.
func (s *Socket) SetReuseAddress(on bool) error {
	impl, err := s.optionImpl("reuse address")
	if err != nil {
		return err
	}
	return impl.SetOptionBool(sio.OptReuseAddr, on)
}

// OOBInline reports whether urgent data is received inline.
func (s *Socket) OOBInline() (bool, error) {
	impl, err := s.optionImpl("oob inline")
	if err != nil {
		return false, err
	}
	return impl.OptionBool(sio.OptOOBInline)
}

// SetOOBInline sets SO_OOBINLINE.
func (s *Socket) SetOOBInline(on bool) error {
	impl, err := s.optionImpl("oob inline")
	if err != nil {
		return err
	}
	return impl.SetOptionBool(sio.OptOOBInline, on)
}

// TrafficClass reports IP_TOS or IPV6_TCLASS, depending on the family.
func (s *Socket) TrafficClass() (int, error) {
	impl, err := s.optionImpl("traffic class")
	if err != nil {
		return 0, err
	}
	return impl.OptionInt(sio.OptTrafficClass)
}

// SetTrafficClass sets IP_TOS or IPV6_TCLASS. The value must be in 0..255.
func (s *Socket) SetTrafficClass(tc int) error {
	if err := limits.ValidateTrafficClass("traffic class", tc); err != nil {
		return err
	}
	impl, err := s.optionImpl("traffic class")
	if err != nil {
		return err
	}
	return impl.SetOptionInt(sio.OptTrafficClass, tc)
}

// RemoteAddress returns the peer address, or nil unless connected.
func (s *Socket) RemoteAddress() *address.NetworkAddress {
	if !s.connected {
		return nil
	}
	return s.impl.RemoteAddress()
}

// RemotePort returns the peer port, or 0 unless connected.
func (s *Socket) RemotePort() uint16 {
	if !s.connected {
		return 0
	}
	return s.impl.RemotePort()
}

// LocalAddress returns the bound address, or nil unless bound.
func (s *Socket) LocalAddress() *address.NetworkAddress {
	if !s.bound {
		return nil
	}
	return s.impl.LocalAddress()
}

// LocalPort returns the bound port, or 0 unless bound.
func (s *Socket) LocalPort() uint16 {
	if !s.bound {
		return 0
	}
	return s.impl.LocalPort()
}

// LocalEndpoint returns the bound endpoint, or nil unless bound.
func (s *Socket) LocalEndpoint() *address.Endpoint {
	if !s.bound {
		return nil
	}
	ep := address.NewEndpoint(s.impl.LocalAddress(), s.impl.LocalPort())
	return &ep
}

// RemoteEndpoint returns the peer endpoint, or nil unless connected.
func (s *Socket) RemoteEndpoint() *address.Endpoint {
	if !s.connected {
		return nil
	}
	ep := address.NewEndpoint(s.impl.RemoteAddress(), s.impl.RemotePort())
	return &ep
}

// IsCreated reports whether a native handle has been created.
func (s *Socket) IsCreated() bool { return s.created }

// IsBound reports whether the socket has a local address.
func (s *Socket) IsBound() bool { return s.bound }

// IsConnected reports whether Connect succeeded or the socket was accepted.
func (s *Socket) IsConnected() bool { return s.connected }

// IsClosed reports whether Close has been called.
func (s *Socket) IsClosed() bool { return s.closed }

// IsInputShutdown reports whether ShutdownInput succeeded.
func (s *Socket) IsInputShutdown() bool { return s.inputShutdown }

// IsOutputShutdown reports whether ShutdownOutput succeeded.
func (s *Socket) IsOutputShutdown() bool { return s.outputShutdown }

// String describes the connection without any name lookup.
func (s *Socket) String() string {
	if !s.connected {
		return "Socket[unconnected]"
	}
	return fmt.Sprintf("Socket[addr=%v,port=%d,localport=%d]",
		s.impl.RemoteAddress(), s.impl.RemotePort(), s.impl.LocalPort())
}
