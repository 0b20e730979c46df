package netsock

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/factory"
	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/limits"
	"github.com/opd-ai/netsock/sio"
)

// Options configures sockets created by this package.
type Options struct {
	// PreferIPv6 selects IPv6 addresses first when LocalAddress is unset.
	PreferIPv6 bool
	// LocalAddress and LocalPort, when set, are bound before connecting.
	LocalAddress *address.NetworkAddress
	LocalPort    uint16
	// ConnectTimeout bounds Dial and DialAddress. Zero blocks.
	ConnectTimeout time.Duration
	Registry       *factory.Registry
	Logger         *logrus.Entry
}

// NewOptions returns the default options.
func NewOptions() *Options {
	return &Options{
		Registry: factory.Default,
	}
}

// Clone returns a copy of o with the registry defaulted. A nil o yields
// NewOptions.
func (o *Options) Clone() *Options {
	if o == nil {
		return NewOptions()
	}
	c := *o
	if c.Registry == nil {
		c.Registry = factory.Default
	}
	return &c
}

func (o *Options) logger() *logrus.Entry {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// family is the family of the local address, or the preferred one.
func (o *Options) family() address.Family {
	if o.LocalAddress != nil {
		return o.LocalAddress.Family()
	}
	return address.PreferredFamily(o.PreferIPv6)
}

func (o *Options) hasLocal() bool {
	return o.LocalAddress != nil || o.LocalPort != 0
}

// SetSocketImplFactory installs the client implementation factory on
// factory.Default. A second call fails with an IllegalState error.
func SetSocketImplFactory(f interfaces.ImplFactory) error {
	return factory.Default.SetClientFactory(f)
}

// SetServerSocketImplFactory installs the server implementation factory on
// factory.Default. A second call fails with an IllegalState error.
func SetServerSocketImplFactory(f interfaces.ImplFactory) error {
	return factory.Default.SetServerFactory(f)
}

// Option access shared by Socket and ServerSocket.

func timeoutOption(impl interfaces.SocketImpl, opt sio.Option) (time.Duration, error) {
	ms, err := impl.OptionInt(opt)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func setBufferOption(impl interfaces.SocketImpl, op string, opt sio.Option, size int) error {
	if err := limits.ValidateBufferSize(op, size); err != nil {
		return err
	}
	return impl.SetOptionInt(opt, size)
}

func setTimeoutOption(impl interfaces.SocketImpl, op string, opt sio.Option, d time.Duration) error {
	if err := limits.ValidateTimeout(op, d); err != nil {
		return err
	}
	return impl.SetOptionInt(opt, sio.Millis(d))
}
