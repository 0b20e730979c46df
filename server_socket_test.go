package netsock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/factory"
	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/real"
	simnet "github.com/opd-ai/netsock/testing"
)

func TestListenEnablesReuseAddress(t *testing.T) {
	opts, _ := simOptions(t)
	srv := listen(t, opts)

	on, err := srv.ReuseAddress()
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, srv.IsBound())
	assert.True(t, srv.LocalAddress().IsAnyLocal())
	require.NotNil(t, srv.LocalEndpoint())
	assert.Equal(t, srv.LocalPort(), srv.LocalEndpoint().Port())
}

func TestAcceptRequiresBind(t *testing.T) {
	opts, _ := simOptions(t)
	srv, err := NewServerSocket(opts)
	require.NoError(t, err)
	defer srv.Close()

	assert.False(t, srv.IsBound())
	assert.Nil(t, srv.LocalAddress())
	assert.Zero(t, srv.LocalPort())
	assert.Equal(t, "ServerSocket[unbound]", srv.String())

	_, err = srv.Accept()
	assert.ErrorIs(t, err, neterr.ErrIllegalState)
}

func TestAcceptWouldBlockClosesPending(t *testing.T) {
	opts, n := simOptions(t)
	srv := listen(t, opts)
	before := n.OpenHandles()

	_, err := srv.Accept()
	assert.ErrorIs(t, err, neterr.ErrTimeout)
	assert.Equal(t, before, n.OpenHandles())
}

func TestServerBindStates(t *testing.T) {
	opts, _ := simOptions(t)
	srv := listen(t, opts)

	err := srv.Bind(address.WildcardEndpoint(0), 0)
	assert.ErrorIs(t, err, neterr.ErrIllegalState)

	other, err := NewServerSocket(opts)
	require.NoError(t, err)
	defer other.Close()
	assert.ErrorIs(t, other.Bind(address.UnresolvedEndpoint("x.example", 1), 0), neterr.ErrUnknownHost)
	assert.ErrorIs(t, other.Bind(address.NewEndpoint(address.IPv6Any, 0), 0), neterr.ErrInvalidArgument)
	assert.False(t, other.IsClosed())
}

func TestListenAddressInUse(t *testing.T) {
	opts, n := simOptions(t)
	srv := listen(t, opts)
	before := n.OpenHandles()

	_, err := Listen(srv.LocalPort(), 0, opts)
	assert.ErrorIs(t, err, neterr.ErrConnection)
	assert.Equal(t, before, n.OpenHandles(), "failed listener must be closed")
}

func TestListenIPv6(t *testing.T) {
	opts, _ := simOptions(t)
	opts.PreferIPv6 = true
	srv := listen(t, opts)
	assert.Equal(t, address.IPv6, srv.LocalAddress().Family())

	client, err := DialAddress(address.IPv6Loopback, srv.LocalPort(), opts)
	require.NoError(t, err)
	defer client.Close()

	peer, err := srv.Accept()
	require.NoError(t, err)
	defer peer.Close()
	assert.True(t, peer.RemoteAddress().Equal(address.IPv6Loopback))
}

func TestServerSocketClose(t *testing.T) {
	opts, n := simOptions(t)
	srv, err := Listen(0, 5, opts)
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())
	assert.True(t, srv.IsClosed())
	assert.Zero(t, n.OpenHandles())

	_, err = srv.Accept()
	assert.ErrorIs(t, err, neterr.ErrIllegalState)
	_, err = srv.ReuseAddress()
	assert.ErrorIs(t, err, neterr.ErrIllegalState)
}

func TestServerSocketOptions(t *testing.T) {
	opts, _ := simOptions(t)
	srv := listen(t, opts)

	require.NoError(t, srv.SetReceiveBufferSize(2048))
	size, err := srv.ReceiveBufferSize()
	require.NoError(t, err)
	assert.Equal(t, 2048, size)
	assert.ErrorIs(t, srv.SetReceiveBufferSize(0), neterr.ErrInvalidArgument)

	require.NoError(t, srv.SetReceiveTimeout(0))
	d, err := srv.ReceiveTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	require.NoError(t, srv.SetReuseAddress(false))
	on, err := srv.ReuseAddress()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestAcceptedSocketsAreIndependent(t *testing.T) {
	opts, _ := simOptions(t)
	srv := listen(t, opts)

	a, err := DialAddress(address.IPv4Loopback, srv.LocalPort(), opts)
	require.NoError(t, err)
	defer a.Close()
	b, err := DialAddress(address.IPv4Loopback, srv.LocalPort(), opts)
	require.NoError(t, err)
	defer b.Close()

	pa, err := srv.Accept()
	require.NoError(t, err)
	pb, err := srv.Accept()
	require.NoError(t, err)
	assert.NotEqual(t, pa.Impl().Handle(), pb.Impl().Handle())

	pa.Close()
	assert.False(t, pb.IsClosed())
	assert.Equal(t, b.LocalPort(), pb.RemotePort())
}

func TestRegistryFactoriesAreWriteOnce(t *testing.T) {
	n := simnet.NewNetwork(nil)
	reg := factory.NewSimulationRegistry(n)
	cfg := reg.Config()

	created := 0
	client := interfaces.ImplFactoryFunc(func() interfaces.SocketImpl {
		created++
		return real.NewSocketImpl(&cfg)
	})
	require.NoError(t, reg.SetClientFactory(client))
	assert.ErrorIs(t, reg.SetClientFactory(client), neterr.ErrIllegalState)

	opts := NewOptions()
	opts.Registry = reg
	srv := listen(t, opts)
	s, err := DialAddress(address.IPv4Loopback, srv.LocalPort(), opts)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, created)

	_, err = srv.Accept()
	require.NoError(t, err)
	assert.Equal(t, 2, created, "accepted peers use the client factory")
}

func TestProcessFactoryInstallOnce(t *testing.T) {
	client := interfaces.ImplFactoryFunc(func() interfaces.SocketImpl { return real.NewSocketImpl(nil) })
	server := interfaces.ImplFactoryFunc(func() interfaces.SocketImpl { return real.NewServerSocketImpl(nil) })

	require.NoError(t, SetSocketImplFactory(client))
	assert.ErrorIs(t, SetSocketImplFactory(client), neterr.ErrIllegalState)
	require.NoError(t, SetServerSocketImplFactory(server))
	assert.ErrorIs(t, SetServerSocketImplFactory(server), neterr.ErrIllegalState)
	assert.True(t, factory.Default.HasClientFactory())
	assert.True(t, factory.Default.HasServerFactory())
}
