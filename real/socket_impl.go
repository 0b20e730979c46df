package real

import (
	"io"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/limits"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/sio"
)

// SocketImpl is the default client and peer implementation.
type SocketImpl struct {
	prim  sio.Primitives
	clock sio.TimeProvider

	family sio.Family
	handle sio.Handle

	remoteAddr *address.NetworkAddress
	remotePort uint16
	localAddr  *address.NetworkAddress
	localPort  uint16

	inputShutdown bool
}

// NewSocketImpl creates an uninitialised implementation. A nil config uses
// the platform primitives and the default clock.
func NewSocketImpl(cfg *interfaces.ImplConfig) *SocketImpl {
	s := &SocketImpl{
		prim:   cfg.PrimitivesOrDefault(),
		handle: sio.InvalidHandle,
	}
	if cfg != nil {
		s.clock = cfg.TimeProvider
	}
	return s
}

func (s *SocketImpl) now() time.Time {
	return sio.GetTimeProvider(s.clock).Now()
}

// Create allocates the native handle.
func (s *SocketImpl) Create(family sio.Family) error {
	if s.handle.Valid() {
		return neterr.IllegalState("create", "handle already created")
	}
	h, err := s.prim.Socket(family)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SocketImpl.Create",
			"family":   family.String(),
			"error":    err.Error(),
		}).Error("Failed to create socket")
		return neterr.Connection("create", "", err)
	}
	s.handle = h
	s.family = family

	logrus.WithFields(logrus.Fields{
		"function": "SocketImpl.Create",
		"family":   family.String(),
		"handle":   int(h),
	}).Debug("Socket created")
	return nil
}

// Bind binds the handle and records the local address reported by it.
func (s *SocketImpl) Bind(addr *address.NetworkAddress, port uint16) error {
	sa := addr.Sockaddr(port)
	if err := s.prim.Bind(s.handle, sa); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SocketImpl.Bind",
			"address":  sa.String(),
			"error":    err.Error(),
		}).Error("Failed to bind socket")
		return neterr.Connection("bind", sa.String(), err)
	}

	local, err := s.prim.Sockname(s.handle)
	if err != nil {
		return neterr.Connection("bind", sa.String(), err)
	}
	s.localPort = port
	if port == 0 {
		s.localPort = local.Port
	}
	s.localAddr = address.FromSockaddr(local)

	logrus.WithFields(logrus.Fields{
		"function":   "SocketImpl.Bind",
		"address":    sa.String(),
		"local_port": s.localPort,
	}).Debug("Socket bound")
	return nil
}

// Listen marks the handle as passive. A non-positive backlog uses the
// default.
func (s *SocketImpl) Listen(backlog int) error {
	backlog = limits.Backlog(backlog)
	if err := s.prim.Listen(s.handle, backlog); err != nil {
		return neterr.Connection("listen", s.localString(), err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "SocketImpl.Listen",
		"local":    s.localString(),
		"backlog":  backlog,
	}).Debug("Socket listening")
	return nil
}

// Connect connects to addr and port. A wildcard destination is replaced by
// this host's address of the same family.
func (s *SocketImpl) Connect(addr *address.NetworkAddress, port uint16, timeout time.Duration) error {
	if addr.IsAnyLocal() {
		addr = localTarget(addr.Family())
	}
	sa := addr.Sockaddr(port)

	var err error
	if timeout <= 0 {
		err = s.connectBlocking(sa)
	} else {
		err = s.connectTimeout(sa, timeout)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SocketImpl.Connect",
			"address":  sa.String(),
			"timeout":  timeout.String(),
			"error":    err.Error(),
		}).Error("Connect failed")
		return err
	}

	s.remoteAddr = addr
	s.remotePort = port
	if local, err := s.prim.Sockname(s.handle); err == nil {
		s.localAddr = address.FromSockaddr(local)
		s.localPort = local.Port
	}

	logrus.WithFields(logrus.Fields{
		"function": "SocketImpl.Connect",
		"address":  sa.String(),
	}).Debug("Connected")
	return nil
}

// ConnectHost resolves host and connects to the first address returned.
func (s *SocketImpl) ConnectHost(host string, port uint16, timeout time.Duration) error {
	addrs, err := address.ResolveAll(host)
	if err != nil {
		return err
	}
	return s.Connect(addrs[0], port, timeout)
}

func localTarget(family sio.Family) *address.NetworkAddress {
	addr := address.LocalHost(family == sio.IPv6)
	if addr.Family() != family {
		return address.LoopbackFor(family)
	}
	return addr
}

func (s *SocketImpl) connectBlocking(sa sio.Sockaddr) error {
	res := s.prim.Connect(s.handle, sa)
	switch res.Kind {
	case sio.KindOK:
		return nil
	case sio.KindInProgress, sio.KindInterrupted:
		// The call was cut short by a signal; the kernel keeps connecting.
		for {
			res = s.prim.Poll(s.handle, sio.EventWritable, -1)
			switch res.Kind {
			case sio.KindInterrupted:
				continue
			case sio.KindOK:
				return s.pendingError(sa)
			default:
				return neterr.Connection("connect", sa.String(), res.Err)
			}
		}
	default:
		return neterr.Connection("connect", sa.String(), res.Err)
	}
}

func (s *SocketImpl) connectTimeout(sa sio.Sockaddr, timeout time.Duration) error {
	if err := s.prim.SetNonblock(s.handle, true); err != nil {
		return neterr.Connection("connect", sa.String(), err)
	}
	defer s.restoreBlocking()

	res := s.prim.Connect(s.handle, sa)
	switch res.Kind {
	case sio.KindOK:
		return nil
	case sio.KindInProgress, sio.KindInterrupted:
	default:
		return neterr.Connection("connect", sa.String(), res.Err)
	}

	deadline := s.now().Add(timeout)
	for {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return neterr.Timeout("connect", sa.String())
		}

		res = s.prim.Poll(s.handle, sio.EventWritable, sio.Millis(remaining))
		switch res.Kind {
		case sio.KindInterrupted:
			continue
		case sio.KindTimedOut:
			return neterr.Timeout("connect", sa.String())
		case sio.KindOK:
			return s.pendingError(sa)
		default:
			return neterr.Connection("connect", sa.String(), res.Err)
		}
	}
}

func (s *SocketImpl) restoreBlocking() {
	if err := s.prim.SetNonblock(s.handle, false); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SocketImpl.restoreBlocking",
			"handle":   int(s.handle),
			"error":    err.Error(),
		}).Warn("Failed to restore blocking mode")
	}
}

func (s *SocketImpl) pendingError(sa sio.Sockaddr) error {
	code, err := s.prim.SocketError(s.handle)
	if err != nil {
		return neterr.Connection("connect", sa.String(), err)
	}
	switch code {
	case 0:
		return nil
	case syscall.ETIMEDOUT:
		return neterr.Timeout("connect", sa.String())
	default:
		return neterr.Connection("connect", sa.String(), code)
	}
}

// Accept waits for the next connection and hands it to peer. A receive
// timeout on the listening handle surfaces as a TimeoutError.
func (s *SocketImpl) Accept(peer interfaces.SocketImpl) error {
	h, remote, res := s.prim.Accept(s.handle)
	switch res.Kind {
	case sio.KindOK:
	case sio.KindWouldBlock:
		return neterr.Timeout("accept", s.localString())
	default:
		return neterr.Connection("accept", s.localString(), res.Err)
	}

	peer.SetHandle(h)
	peer.SetRemoteAddress(address.FromSockaddr(remote))
	peer.SetRemotePort(remote.Port)

	if local, err := s.prim.Sockname(h); err == nil {
		peer.SetLocalAddress(address.FromSockaddr(local))
		peer.SetLocalPort(local.Port)
	} else {
		peer.SetLocalAddress(s.localAddr)
		peer.SetLocalPort(s.localPort)
	}

	logrus.WithFields(logrus.Fields{
		"function": "SocketImpl.Accept",
		"local":    s.localString(),
		"remote":   remote.String(),
	}).Debug("Accepted connection")
	return nil
}

// Read reads once. It returns io.EOF once the peer has closed or input was
// shut down, and (0, nil) when the read would block.
func (s *SocketImpl) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.inputShutdown {
		return 0, io.EOF
	}

	res := s.prim.Recv(s.handle, p)
	switch res.Kind {
	case sio.KindOK:
		return res.N, nil
	case sio.KindClosed:
		s.inputShutdown = true
		return 0, io.EOF
	case sio.KindWouldBlock, sio.KindTimedOut:
		return 0, nil
	default:
		return 0, neterr.IO("read", res.Err)
	}
}

// Write sends all of p, retrying partial and interrupted sends.
func (s *SocketImpl) Write(p []byte) error {
	for len(p) > 0 {
		res := s.prim.Send(s.handle, p, 0)
		switch res.Kind {
		case sio.KindOK:
			p = p[res.N:]
		case sio.KindInterrupted:
		default:
			return neterr.IO("write", res.Err)
		}
	}
	return nil
}

// Available returns the readable byte count, 0 after input shutdown or
// when the count cannot be queried.
func (s *SocketImpl) Available() int {
	if s.inputShutdown {
		return 0
	}
	n, err := s.prim.Available(s.handle)
	if err != nil {
		return 0
	}
	return n
}

// Close releases the handle once.
func (s *SocketImpl) Close() error {
	if !s.handle.Valid() {
		return nil
	}
	h := s.handle
	s.handle = sio.InvalidHandle
	if err := s.prim.Close(h); err != nil {
		return neterr.Connection("close", s.localString(), err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "SocketImpl.Close",
		"handle":   int(h),
	}).Debug("Socket closed")
	return nil
}

// ShutdownInput disables reads. Later reads report end of stream.
func (s *SocketImpl) ShutdownInput() error {
	s.inputShutdown = true
	if err := s.prim.Shutdown(s.handle, sio.ShutdownRead); err != nil {
		return neterr.Connection("shutdown", s.localString(), err)
	}
	return nil
}

// ShutdownOutput sends FIN and disables writes.
func (s *SocketImpl) ShutdownOutput() error {
	if err := s.prim.Shutdown(s.handle, sio.ShutdownWrite); err != nil {
		return neterr.Connection("shutdown", s.localString(), err)
	}
	return nil
}

// SupportsUrgentData reports true; native sockets carry MSG_OOB.
func (s *SocketImpl) SupportsUrgentData() bool {
	return true
}

// SendUrgentData sends v as one out-of-band byte.
func (s *SocketImpl) SendUrgentData(v byte) error {
	res := s.prim.Send(s.handle, []byte{v}, sio.SendOOB)
	if res.Kind != sio.KindOK {
		return neterr.Connection("urgent", s.remoteString(), res.Err)
	}
	return nil
}

// OptionBool reads a boolean option. Linger is on when its timeout is not negative.
func (s *SocketImpl) OptionBool(opt sio.Option) (bool, error) {
	v, err := s.OptionInt(opt)
	if err != nil {
		return false, err
	}
	if opt == sio.OptLinger {
		return v >= 0, nil
	}
	return v != 0, nil
}

// SetOptionBool toggles a boolean option. For linger, false disables it and
// true enables it with a zero timeout.
func (s *SocketImpl) SetOptionBool(opt sio.Option, on bool) error {
	v := 0
	if on {
		v = 1
	}
	if opt == sio.OptLinger {
		v = -1
		if on {
			v = 0
		}
	}
	return s.SetOptionInt(opt, v)
}

// OptionInt reads opt for the socket family.
func (s *SocketImpl) OptionInt(opt sio.Option) (int, error) {
	v, err := s.prim.GetOption(s.handle, s.Family(), opt)
	if err != nil {
		return 0, neterr.Connection("getsockopt "+opt.String(), s.localString(), err)
	}
	return v, nil
}

// SetOptionInt writes opt for the socket family.
func (s *SocketImpl) SetOptionInt(opt sio.Option, value int) error {
	if err := s.prim.SetOption(s.handle, s.Family(), opt, value); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SocketImpl.SetOptionInt",
			"option":   opt.String(),
			"value":    value,
			"error":    err.Error(),
		}).Debug("Failed to set socket option")
		return neterr.Connection("setsockopt "+opt.String(), s.localString(), err)
	}
	return nil
}

// Family returns the created family. An accepted peer reports the family of
// its local address.
func (s *SocketImpl) Family() sio.Family {
	if s.family != 0 {
		return s.family
	}
	if s.localAddr != nil {
		return s.localAddr.Family()
	}
	return sio.IPv4
}

// Handle returns the native handle, or sio.InvalidHandle.
func (s *SocketImpl) Handle() sio.Handle { return s.handle }

// SetHandle replaces the native handle.
func (s *SocketImpl) SetHandle(h sio.Handle) { s.handle = h }

// RemotePort returns the peer port.
func (s *SocketImpl) RemotePort() uint16 { return s.remotePort }

// SetRemotePort records the peer port.
func (s *SocketImpl) SetRemotePort(port uint16) { s.remotePort = port }

// LocalPort returns the bound port.
func (s *SocketImpl) LocalPort() uint16 { return s.localPort }

// SetLocalPort records the bound port.
func (s *SocketImpl) SetLocalPort(port uint16) { s.localPort = port }

// RemoteAddress returns the peer address.
func (s *SocketImpl) RemoteAddress() *address.NetworkAddress {
	return s.remoteAddr
}

// SetRemoteAddress records the peer address.
func (s *SocketImpl) SetRemoteAddress(addr *address.NetworkAddress) {
	s.remoteAddr = addr
}

// LocalAddress returns the bound address.
func (s *SocketImpl) LocalAddress() *address.NetworkAddress {
	return s.localAddr
}

// SetLocalAddress records the bound address.
func (s *SocketImpl) SetLocalAddress(addr *address.NetworkAddress) {
	s.localAddr = addr
}

func (s *SocketImpl) localString() string {
	if s.localAddr == nil {
		return ""
	}
	return s.localAddr.Sockaddr(s.localPort).String()
}

func (s *SocketImpl) remoteString() string {
	if s.remoteAddr == nil {
		return ""
	}
	return s.remoteAddr.Sockaddr(s.remotePort).String()
}

var _ interfaces.SocketImpl = (*SocketImpl)(nil)
