//go:build linux || darwin

package sio

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// unixPrimitives implements Primitives directly on file descriptors.
type unixPrimitives struct{}

func platformPrimitives() Primitives {
	return unixPrimitives{}
}

func domainOf(family Family) (int, error) {
	switch family {
	case IPv4:
		return unix.AF_INET, nil
	case IPv6:
		return unix.AF_INET6, nil
	default:
		return 0, unix.EAFNOSUPPORT
	}
}

func toUnix(sa Sockaddr) (unix.Sockaddr, error) {
	switch len(sa.Addr) {
	case 4:
		s := &unix.SockaddrInet4{Port: int(sa.Port)}
		copy(s.Addr[:], sa.Addr)
		return s, nil
	case 16:
		s := &unix.SockaddrInet6{Port: int(sa.Port), ZoneId: sa.Zone}
		copy(s.Addr[:], sa.Addr)
		return s, nil
	default:
		return nil, unix.EAFNOSUPPORT
	}
}

func fromUnix(sa unix.Sockaddr) (Sockaddr, error) {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		addr := make([]byte, 4)
		copy(addr, s.Addr[:])
		return Sockaddr{Addr: addr, Port: uint16(s.Port)}, nil
	case *unix.SockaddrInet6:
		addr := make([]byte, 16)
		copy(addr, s.Addr[:])
		return Sockaddr{Addr: addr, Port: uint16(s.Port), Zone: s.ZoneId}, nil
	default:
		return Sockaddr{}, unix.EAFNOSUPPORT
	}
}

func (unixPrimitives) Socket(family Family) (Handle, error) {
	domain, err := domainOf(family)
	if err != nil {
		return InvalidHandle, wrap("socket", err)
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return InvalidHandle, wrap("socket", err)
	}
	unix.CloseOnExec(fd)
	return Handle(fd), nil
}

func (unixPrimitives) Bind(h Handle, sa Sockaddr) error {
	usa, err := toUnix(sa)
	if err != nil {
		return wrap("bind", err)
	}
	return wrap("bind", unix.Bind(int(h), usa))
}

func (unixPrimitives) Connect(h Handle, sa Sockaddr) Result {
	usa, err := toUnix(sa)
	if err != nil {
		return ResultOf(wrap("connect", err))
	}
	return ResultOf(wrap("connect", unix.Connect(int(h), usa)))
}

func (unixPrimitives) Listen(h Handle, backlog int) error {
	return wrap("listen", unix.Listen(int(h), backlog))
}

func (unixPrimitives) Accept(h Handle) (Handle, Sockaddr, Result) {
	for {
		fd, usa, err := unix.Accept(int(h))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return InvalidHandle, Sockaddr{}, ResultOf(wrap("accept", err))
		}
		unix.CloseOnExec(fd)
		sa, err := fromUnix(usa)
		if err != nil {
			unix.Close(fd)
			return InvalidHandle, Sockaddr{}, ResultOf(wrap("accept", err))
		}
		return Handle(fd), sa, OK(0)
	}
}

func (unixPrimitives) Send(h Handle, p []byte, flags SendFlags) Result {
	if flags&SendOOB != 0 {
		if err := unix.Sendto(int(h), p, unix.MSG_OOB, nil); err != nil {
			return ResultOf(wrap("send", err))
		}
		return OK(len(p))
	}
	for {
		n, err := unix.Write(int(h), p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ResultOf(wrap("send", err))
		}
		return OK(n)
	}
}

func (unixPrimitives) Recv(h Handle, p []byte) Result {
	for {
		n, err := unix.Read(int(h), p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ResultOf(wrap("recv", err))
		}
		if n == 0 && len(p) > 0 {
			return Result{Kind: KindClosed}
		}
		return OK(n)
	}
}

func (unixPrimitives) Shutdown(h Handle, how ShutdownHow) error {
	mode := unix.SHUT_RD
	if how == ShutdownWrite {
		mode = unix.SHUT_WR
	}
	return wrap("shutdown", unix.Shutdown(int(h), mode))
}

func (unixPrimitives) Close(h Handle) error {
	return wrap("close", unix.Close(int(h)))
}

func (unixPrimitives) SetNonblock(h Handle, nonblocking bool) error {
	return wrap("fcntl", unix.SetNonblock(int(h), nonblocking))
}

func (unixPrimitives) Poll(h Handle, events Event, timeoutMs int) Result {
	var mask int16
	if events&EventReadable != 0 {
		mask |= unix.POLLIN
	}
	if events&EventWritable != 0 {
		mask |= unix.POLLOUT
	}
	fds := []unix.PollFd{{Fd: int32(h), Events: mask}}
	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		return ResultOf(wrap("poll", err))
	}
	if n == 0 {
		return Result{Kind: KindTimedOut, Err: wrap("poll", unix.ETIMEDOUT)}
	}
	return OK(0)
}

func (unixPrimitives) SocketError(h Handle) (syscall.Errno, error) {
	v, err := unix.GetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return 0, wrap("getsockopt", err)
	}
	return syscall.Errno(v), nil
}

func (unixPrimitives) Sockname(h Handle) (Sockaddr, error) {
	usa, err := unix.Getsockname(int(h))
	if err != nil {
		return Sockaddr{}, wrap("getsockname", err)
	}
	sa, err := fromUnix(usa)
	return sa, wrap("getsockname", err)
}

func (unixPrimitives) Available(h Handle) (int, error) {
	n, err := unix.IoctlGetInt(int(h), availableRequest)
	return n, wrap("ioctl", err)
}

// optionLevel maps an Option to the native level and name.
func optionLevel(family Family, opt Option) (level, name int, err error) {
	switch opt {
	case OptReuseAddr:
		return unix.SOL_SOCKET, unix.SO_REUSEADDR, nil
	case OptReceiveBuffer:
		return unix.SOL_SOCKET, unix.SO_RCVBUF, nil
	case OptSendBuffer:
		return unix.SOL_SOCKET, unix.SO_SNDBUF, nil
	case OptReceiveTimeout:
		return unix.SOL_SOCKET, unix.SO_RCVTIMEO, nil
	case OptSendTimeout:
		return unix.SOL_SOCKET, unix.SO_SNDTIMEO, nil
	case OptKeepAlive:
		return unix.SOL_SOCKET, unix.SO_KEEPALIVE, nil
	case OptLinger:
		return unix.SOL_SOCKET, unix.SO_LINGER, nil
	case OptOOBInline:
		return unix.SOL_SOCKET, unix.SO_OOBINLINE, nil
	case OptNoDelay:
		return unix.IPPROTO_TCP, unix.TCP_NODELAY, nil
	case OptTrafficClass:
		if family == IPv6 {
			return unix.IPPROTO_IPV6, unix.IPV6_TCLASS, nil
		}
		return unix.IPPROTO_IP, unix.IP_TOS, nil
	default:
		return 0, 0, fmt.Errorf("unsupported option %s: %w", opt, unix.ENOPROTOOPT)
	}
}

func (unixPrimitives) GetOption(h Handle, family Family, opt Option) (int, error) {
	level, name, err := optionLevel(family, opt)
	if err != nil {
		return 0, wrap("getsockopt", err)
	}
	fd := int(h)

	switch opt {
	case OptReceiveTimeout, OptSendTimeout:
		tv, err := unix.GetsockoptTimeval(fd, level, name)
		if err != nil {
			return 0, wrap("getsockopt", err)
		}
		return int(time.Duration(tv.Nano()) / time.Millisecond), nil
	case OptLinger:
		l, err := unix.GetsockoptLinger(fd, level, name)
		if err != nil {
			return 0, wrap("getsockopt", err)
		}
		if l.Onoff == 0 {
			return -1, nil
		}
		return int(l.Linger), nil
	}

	v, err := unix.GetsockoptInt(fd, level, name)
	if err != nil {
		return 0, wrap("getsockopt", err)
	}
	switch opt {
	case OptReuseAddr, OptKeepAlive, OptOOBInline, OptNoDelay:
		if v != 0 {
			return 1, nil
		}
	}
	return v, nil
}

func (unixPrimitives) SetOption(h Handle, family Family, opt Option, value int) error {
	level, name, err := optionLevel(family, opt)
	if err != nil {
		return wrap("setsockopt", err)
	}
	fd := int(h)

	switch opt {
	case OptReceiveTimeout, OptSendTimeout:
		tv := unix.NsecToTimeval((time.Duration(value) * time.Millisecond).Nanoseconds())
		return wrap("setsockopt", unix.SetsockoptTimeval(fd, level, name, &tv))
	case OptLinger:
		l := unix.Linger{}
		if value >= 0 {
			l.Onoff = 1
			l.Linger = int32(value)
		}
		return wrap("setsockopt", unix.SetsockoptLinger(fd, level, name, &l))
	}
	return wrap("setsockopt", unix.SetsockoptInt(fd, level, name, value))
}
