package sio

import (
	"errors"
	"fmt"
	"net/netip"
	"syscall"
)

// Family is an IP address family.
type Family uint8

const (
	// IPv4 is the AF_INET family.
	IPv4 Family = 4
	// IPv6 is the AF_INET6 family.
	IPv6 Family = 6
)

// String returns a human-readable representation of the Family.
func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// AddrLen returns the raw address length of the family, 0 if unknown.
func (f Family) AddrLen() int {
	switch f {
	case IPv4:
		return 4
	case IPv6:
		return 16
	default:
		return 0
	}
}

// Handle is an opaque native socket descriptor.
type Handle int

// InvalidHandle marks a handle that was never created or is already closed.
const InvalidHandle Handle = -1

// Valid reports whether h refers to a live descriptor.
func (h Handle) Valid() bool {
	return h != InvalidHandle
}

// Sockaddr is a family-independent IP socket address.
type Sockaddr struct {
	// Addr holds 4 (IPv4) or 16 (IPv6) bytes in network order.
	Addr []byte
	Port uint16
	// Zone is the IPv6 scope id, zero for IPv4.
	Zone uint32
}

// Family reports the family implied by the address length.
func (sa Sockaddr) Family() Family {
	if len(sa.Addr) == 16 {
		return IPv6
	}
	return IPv4
}

// String renders the address as host:port.
func (sa Sockaddr) String() string {
	ip, ok := netip.AddrFromSlice(sa.Addr)
	if !ok {
		return fmt.Sprintf("<invalid>:%d", sa.Port)
	}
	return netip.AddrPortFrom(ip, sa.Port).String()
}

// ShutdownHow selects which half of a connection to shut down.
type ShutdownHow uint8

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
)

// Event is a readiness condition for Poll.
type Event uint8

const (
	EventReadable Event = 1 << iota
	EventWritable
)

// SendFlags modifies a Send call.
type SendFlags uint8

const (
	// SendOOB sends the payload as out-of-band (urgent) data.
	SendOOB SendFlags = 1 << iota
)

// Option identifies a socket option independent of the platform constant.
type Option uint8

const (
	OptReuseAddr      Option = iota + 1 // bool
	OptReceiveBuffer                    // int, bytes
	OptSendBuffer                       // int, bytes
	OptReceiveTimeout                   // int, milliseconds
	OptSendTimeout                      // int, milliseconds
	OptKeepAlive                        // bool
	OptLinger                           // int seconds, negative when disabled
	OptOOBInline                        // bool
	OptNoDelay                          // bool
	OptTrafficClass                     // int, 0-255
)

// String returns the conventional name of the option.
func (o Option) String() string {
	switch o {
	case OptReuseAddr:
		return "SO_REUSEADDR"
	case OptReceiveBuffer:
		return "SO_RCVBUF"
	case OptSendBuffer:
		return "SO_SNDBUF"
	case OptReceiveTimeout:
		return "SO_RCVTIMEO"
	case OptSendTimeout:
		return "SO_SNDTIMEO"
	case OptKeepAlive:
		return "SO_KEEPALIVE"
	case OptLinger:
		return "SO_LINGER"
	case OptOOBInline:
		return "SO_OOBINLINE"
	case OptNoDelay:
		return "TCP_NODELAY"
	case OptTrafficClass:
		return "IP_TOS"
	default:
		return fmt.Sprintf("Option(%d)", uint8(o))
	}
}

// Kind tags the outcome of a primitive operation.
type Kind uint8

const (
	KindOK Kind = iota
	KindWouldBlock
	KindInProgress
	KindInterrupted
	KindTimedOut
	// KindClosed reports an orderly shutdown by the peer.
	KindClosed
	KindFatal
)

// String returns a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindWouldBlock:
		return "would block"
	case KindInProgress:
		return "in progress"
	case KindInterrupted:
		return "interrupted"
	case KindTimedOut:
		return "timed out"
	case KindClosed:
		return "closed"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Result is the tagged outcome of connect, accept, send, recv and poll.
type Result struct {
	Kind Kind
	// N is the byte count for send and recv.
	N int
	// Err is the underlying error for every kind except KindOK and KindClosed.
	Err error
}

// Code returns the OS error code carried by the result, zero if none.
func (r Result) Code() syscall.Errno {
	var errno syscall.Errno
	if errors.As(r.Err, &errno) {
		return errno
	}
	return 0
}

// OK builds a successful result carrying n bytes.
func OK(n int) Result {
	return Result{Kind: KindOK, N: n}
}

// ResultOf classifies err into a Result.
func ResultOf(err error) Result {
	return Result{Kind: Classify(err), Err: err}
}
