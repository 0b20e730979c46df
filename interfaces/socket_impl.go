package interfaces

import (
	"time"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/sio"
)

// SocketImpl performs the native operations behind a Socket or ServerSocket.
type SocketImpl interface {
	// Create allocates a stream handle of the given family.
	Create(family sio.Family) error

	// Bind binds to addr and port. Port 0 selects an ephemeral port, which is
	// then reported by LocalPort.
	Bind(addr *address.NetworkAddress, port uint16) error

	// Listen marks the handle as passive.
	Listen(backlog int) error

	// Connect connects to addr and port. A zero timeout blocks without bound.
	Connect(addr *address.NetworkAddress, port uint16, timeout time.Duration) error

	// ConnectHost resolves host and connects to the first address returned.
	ConnectHost(host string, port uint16, timeout time.Duration) error

	// Accept waits for a connection and hands its handle and addresses to peer.
	Accept(peer SocketImpl) error

	// Read reads at most len(p) bytes. Zero bytes with a nil error means the
	// read would have blocked.
	Read(p []byte) (int, error)

	// Write sends all of p.
	Write(p []byte) error

	// Available returns the number of bytes readable without blocking.
	Available() int

	// Close releases the handle. Closing twice is a no-op.
	Close() error

	// ShutdownInput disables the receive direction.
	ShutdownInput() error

	// ShutdownOutput disables the send direction.
	ShutdownOutput() error

	// SupportsUrgentData reports whether SendUrgentData is implemented.
	SupportsUrgentData() bool

	// SendUrgentData sends one out-of-band byte.
	SendUrgentData(v byte) error

	OptionBool(opt sio.Option) (bool, error)
	SetOptionBool(opt sio.Option, on bool) error
	OptionInt(opt sio.Option) (int, error)
	SetOptionInt(opt sio.Option, value int) error

	// Family returns the family passed to Create.
	Family() sio.Family

	Handle() sio.Handle
	SetHandle(h sio.Handle)
	RemoteAddress() *address.NetworkAddress
	SetRemoteAddress(addr *address.NetworkAddress)
	RemotePort() uint16
	SetRemotePort(port uint16)
	LocalAddress() *address.NetworkAddress
	SetLocalAddress(addr *address.NetworkAddress)
	LocalPort() uint16
	SetLocalPort(port uint16)
}

// ImplFactory creates uninitialised implementations.
type ImplFactory interface {
	CreateSocketImpl() SocketImpl
}

// ImplFactoryFunc adapts a function to ImplFactory.
type ImplFactoryFunc func() SocketImpl

// CreateSocketImpl calls f.
func (f ImplFactoryFunc) CreateSocketImpl() SocketImpl {
	return f()
}

// ImplConfig holds the collaborators of a SocketImpl.
type ImplConfig struct {
	// Primitives performs the native calls. Nil selects sio.Default().
	Primitives sio.Primitives

	// TimeProvider bounds connect deadlines. Nil selects the sio default.
	TimeProvider sio.TimeProvider

	// UseSimulation marks Primitives as an in-memory simulation.
	UseSimulation bool
}

// Validate checks the configuration for consistency.
func (c *ImplConfig) Validate() error {
	if c == nil {
		return neterr.InvalidArgument("ImplConfig.Validate", "nil config")
	}
	if c.UseSimulation && c.Primitives == nil {
		return neterr.InvalidArgument("ImplConfig.Validate", "simulation requires primitives")
	}
	return nil
}

// PrimitivesOrDefault returns the configured primitives or the platform ones.
func (c *ImplConfig) PrimitivesOrDefault() sio.Primitives {
	if c == nil || c.Primitives == nil {
		return sio.Default()
	}
	return c.Primitives
}

// Clock returns the configured time provider or the sio default.
func (c *ImplConfig) Clock() sio.TimeProvider {
	if c == nil {
		return sio.GetTimeProvider(nil)
	}
	return sio.GetTimeProvider(c.TimeProvider)
}
