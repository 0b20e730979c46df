package real

import (
	"context"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/sio"
	simnet "github.com/opd-ai/netsock/testing"
)

type failingResolver struct{}

func (failingResolver) LookupIP(context.Context, string) ([][]byte, error) {
	return nil, errors.New("offline")
}

func (failingResolver) LookupAddr(context.Context, []byte) ([]string, error) {
	return nil, errors.New("offline")
}

type fixture struct {
	net    *simnet.Network
	clock  *simnet.ManualClock
	cfg    *interfaces.ImplConfig
	server *ServerSocketImpl
	port   uint16
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := simnet.NewManualClock(time.Unix(1000, 0))
	n := simnet.NewNetwork(clock)
	cfg := &interfaces.ImplConfig{Primitives: n, TimeProvider: clock, UseSimulation: true}
	require.NoError(t, cfg.Validate())

	server := NewServerSocketImpl(cfg)
	require.NoError(t, server.Create(sio.IPv4))
	require.NoError(t, server.Bind(address.IPv4Loopback, 0))
	require.NoError(t, server.Listen(0))

	return &fixture{net: n, clock: clock, cfg: cfg, server: server, port: server.LocalPort()}
}

func (f *fixture) client(t *testing.T) *SocketImpl {
	t.Helper()
	c := NewSocketImpl(f.cfg)
	require.NoError(t, c.Create(sio.IPv4))
	return c
}

func (f *fixture) dest() sio.Sockaddr {
	return simnet.Addr("127.0.0.1", f.port)
}

func (f *fixture) connected(t *testing.T) (*SocketImpl, *SocketImpl) {
	t.Helper()
	c := f.client(t)
	require.NoError(t, c.Connect(address.IPv4Loopback, f.port, 0))
	peer := NewSocketImpl(f.cfg)
	require.NoError(t, f.server.Accept(peer))
	return c, peer
}

func countOps(log []simnet.CallRecord, op simnet.Op) int {
	n := 0
	for _, rec := range log {
		if rec.Op == op {
			n++
		}
	}
	return n
}

func TestServerCreateEnablesReuse(t *testing.T) {
	f := newFixture(t)
	on, err := f.server.OptionBool(sio.OptReuseAddr)
	require.NoError(t, err)
	assert.True(t, on)
	assert.NotZero(t, f.port)
	assert.True(t, f.server.LocalAddress().Equal(address.IPv4Loopback))

	c := f.client(t)
	on, err = c.OptionBool(sio.OptReuseAddr)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestCreateTwiceIsIllegal(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	assert.ErrorIs(t, c.Create(sio.IPv4), neterr.ErrIllegalState)
}

func TestCreateFailure(t *testing.T) {
	f := newFixture(t)
	f.net.InjectError(simnet.OpSocket, syscall.EMFILE)
	c := NewSocketImpl(f.cfg)
	err := c.Create(sio.IPv4)
	assert.ErrorIs(t, err, neterr.ErrConnection)
	assert.ErrorIs(t, err, syscall.EMFILE)
	assert.False(t, c.Handle().Valid())
}

func TestConnectImmediateWithTimeout(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	require.NoError(t, c.Connect(address.IPv4Loopback, f.port, time.Second))
	assert.True(t, c.RemoteAddress().Equal(address.IPv4Loopback))
	assert.Equal(t, f.port, c.RemotePort())
	assert.NotZero(t, c.LocalPort())
	assert.False(t, f.net.IsNonblocking(c.Handle()))

	log := f.net.GetCallLog()
	for _, rec := range log {
		if rec.Op == simnet.OpConnect {
			assert.True(t, rec.Nonblocking, "connect must run non-blocking")
		}
	}
}

func TestConnectPaths(t *testing.T) {
	tests := []struct {
		name    string
		script  simnet.ConnectScript
		timeout time.Duration
		wantErr error
		code    syscall.Errno
	}{
		{
			name:   "in progress then ready",
			script: simnet.ConnectScript{Initial: sio.Result{Kind: sio.KindInProgress, Err: syscall.EINPROGRESS}},
		},
		{
			name: "interrupted polls then ready",
			script: simnet.ConnectScript{
				Initial: sio.Result{Kind: sio.KindInProgress, Err: syscall.EINPROGRESS},
				Polls: []sio.Result{
					{Kind: sio.KindInterrupted, Err: syscall.EINTR},
					{Kind: sio.KindInterrupted, Err: syscall.EINTR},
				},
				PollElapsed: 10 * time.Millisecond,
			},
		},
		{
			name: "poll expiry",
			script: simnet.ConnectScript{
				Initial: sio.Result{Kind: sio.KindInProgress, Err: syscall.EINPROGRESS},
				Polls:   []sio.Result{{Kind: sio.KindTimedOut}},
			},
			wantErr: neterr.ErrTimeout,
			code:    syscall.ETIMEDOUT,
		},
		{
			name: "deadline consumed by interrupts",
			script: simnet.ConnectScript{
				Initial:     sio.Result{Kind: sio.KindInProgress, Err: syscall.EINPROGRESS},
				Polls:       []sio.Result{{Kind: sio.KindInterrupted, Err: syscall.EINTR}},
				PollElapsed: time.Second,
			},
			wantErr: neterr.ErrTimeout,
		},
		{
			name: "pending refusal",
			script: simnet.ConnectScript{
				Initial:      sio.Result{Kind: sio.KindInProgress, Err: syscall.EINPROGRESS},
				PendingError: syscall.ECONNREFUSED,
			},
			wantErr: neterr.ErrConnection,
			code:    syscall.ECONNREFUSED,
		},
		{
			name: "pending timeout",
			script: simnet.ConnectScript{
				Initial:      sio.Result{Kind: sio.KindInProgress, Err: syscall.EINPROGRESS},
				PendingError: syscall.ETIMEDOUT,
			},
			wantErr: neterr.ErrTimeout,
		},
		{
			name:    "immediate failure",
			script:  simnet.ConnectScript{Initial: sio.Result{Kind: sio.KindFatal, Err: syscall.ENETUNREACH}},
			wantErr: neterr.ErrConnection,
			code:    syscall.ENETUNREACH,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.net.ScriptConnect(f.dest(), tt.script)
			c := f.client(t)

			err := c.Connect(address.IPv4Loopback, f.port, time.Second)
			assert.False(t, f.net.IsNonblocking(c.Handle()), "blocking mode restored")

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, f.port, c.RemotePort())
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == neterr.ErrConnection {
				assert.NotErrorIs(t, err, neterr.ErrTimeout)
			}
			if tt.code != 0 {
				assert.ErrorIs(t, err, tt.code)
			}
			assert.Nil(t, c.RemoteAddress())
		})
	}
}

func TestConnectBlocking(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	require.NoError(t, c.Connect(address.IPv4Loopback, f.port, 0))
	assert.Zero(t, countOps(f.net.GetCallLog(), simnet.OpSetNonblock))
}

func TestConnectBlockingInterrupted(t *testing.T) {
	f := newFixture(t)
	f.net.ScriptConnect(f.dest(), simnet.ConnectScript{
		Initial: sio.Result{Kind: sio.KindInterrupted, Err: syscall.EINTR},
		Polls:   []sio.Result{{Kind: sio.KindInterrupted, Err: syscall.EINTR}},
	})
	c := f.client(t)
	require.NoError(t, c.Connect(address.IPv4Loopback, f.port, 0))
	assert.Equal(t, 2, countOps(f.net.GetCallLog(), simnet.OpPoll))
}

func TestConnectBlockingRefused(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	err := c.Connect(address.IPv4Loopback, f.port+1, 0)
	assert.ErrorIs(t, err, neterr.ErrConnection)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestConnectAnyLocalTargetsLocalHost(t *testing.T) {
	address.SetDefaultResolver(failingResolver{})
	t.Cleanup(func() { address.SetDefaultResolver(nil) })

	f := newFixture(t)
	c := f.client(t)
	require.NoError(t, c.Connect(address.IPv4Any, f.port, 0))
	assert.True(t, c.RemoteAddress().Equal(address.IPv4Loopback))
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)

	assert.True(t, peer.Handle().Valid())
	assert.True(t, peer.RemoteAddress().Equal(address.IPv4Loopback))
	assert.Equal(t, c.LocalPort(), peer.RemotePort())
	assert.Equal(t, f.port, peer.LocalPort())
	assert.Equal(t, sio.IPv4, peer.Family())
}

func TestAcceptWouldBlockIsTimeout(t *testing.T) {
	f := newFixture(t)
	err := f.server.Accept(NewSocketImpl(f.cfg))
	assert.ErrorIs(t, err, neterr.ErrTimeout)
}

func TestAcceptFailure(t *testing.T) {
	f := newFixture(t)
	f.net.InjectError(simnet.OpAccept, syscall.ECONNABORTED)
	err := f.server.Accept(NewSocketImpl(f.cfg))
	assert.ErrorIs(t, err, neterr.ErrConnection)
	assert.NotErrorIs(t, err, neterr.ErrTimeout)
}

func TestReadWrite(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)

	require.NoError(t, c.Write([]byte("hello")))
	assert.Equal(t, 5, peer.Available())

	buf := make([]byte, 16)
	n, err := peer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = peer.Read(buf[:0])
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = peer.Read(buf)
	assert.NoError(t, err, "would-block is not an error")
	assert.Zero(t, n)
}

func TestReadEOFIsLatched(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)
	require.NoError(t, c.Close())

	buf := make([]byte, 4)
	_, err := peer.Read(buf)
	assert.Equal(t, io.EOF, err)

	f.net.ClearCallLog()
	_, err = peer.Read(buf)
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, countOps(f.net.GetCallLog(), simnet.OpRecv))
	assert.Zero(t, peer.Available())
}

func TestReadFailureIsIO(t *testing.T) {
	f := newFixture(t)
	_, peer := f.connected(t)
	f.net.InjectError(simnet.OpRecv, syscall.ECONNRESET)

	_, err := peer.Read(make([]byte, 4))
	assert.ErrorIs(t, err, neterr.ErrIO)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
}

func TestWriteRetriesPartialSends(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)
	f.net.SetMaxSend(3)
	f.net.ClearCallLog()

	require.NoError(t, c.Write([]byte("0123456789")))
	assert.Equal(t, 4, countOps(f.net.GetCallLog(), simnet.OpSend))

	buf := make([]byte, 16)
	n, err := peer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(buf[:n]))
}

func TestWriteFailureIsIO(t *testing.T) {
	f := newFixture(t)
	c, _ := f.connected(t)
	require.NoError(t, c.ShutdownOutput())
	err := c.Write([]byte("x"))
	assert.ErrorIs(t, err, neterr.ErrIO)
}

func TestShutdownInput(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)
	require.NoError(t, c.Write([]byte("abc")))

	require.NoError(t, peer.ShutdownInput())
	assert.Zero(t, peer.Available())
	_, err := peer.Read(make([]byte, 4))
	assert.Equal(t, io.EOF, err)
}

func TestAvailableFailureIsZero(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)
	require.NoError(t, c.Write([]byte("abc")))
	f.net.InjectError(simnet.OpAvailable, syscall.EBADF)
	assert.Zero(t, peer.Available())
	assert.Equal(t, 3, peer.Available())
}

func TestSendUrgentData(t *testing.T) {
	f := newFixture(t)
	c, peer := f.connected(t)
	assert.True(t, c.SupportsUrgentData())
	require.NoError(t, c.SendUrgentData(0x2A))
	assert.Equal(t, []byte{0x2A}, f.net.UrgentData(peer.Handle()))
}

func TestOptions(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	require.NoError(t, c.SetOptionBool(sio.OptKeepAlive, true))
	on, err := c.OptionBool(sio.OptKeepAlive)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = c.OptionBool(sio.OptLinger)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, c.SetOptionInt(sio.OptLinger, 7))
	v, err := c.OptionInt(sio.OptLinger)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	require.NoError(t, c.SetOptionBool(sio.OptLinger, false))
	on, err = c.OptionBool(sio.OptLinger)
	require.NoError(t, err)
	assert.False(t, on)

	err = c.SetOptionInt(sio.Option(0), 1)
	assert.ErrorIs(t, err, neterr.ErrConnection)
	_, err = c.OptionInt(sio.Option(0))
	assert.ErrorIs(t, err, neterr.ErrConnection)
}

func TestBindFailure(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	err := c.Bind(address.IPv4Loopback, f.port)
	assert.ErrorIs(t, err, neterr.ErrConnection)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	open := f.net.OpenHandles()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, open-1, f.net.OpenHandles())
	assert.Equal(t, sio.InvalidHandle, c.Handle())
}
