//go:build linux || darwin

package sio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopbackListener(t *testing.T, p Primitives) (Handle, Sockaddr) {
	t.Helper()

	h, err := p.Socket(IPv4)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close(h) })

	require.NoError(t, p.SetOption(h, IPv4, OptReuseAddr, 1))
	require.NoError(t, p.Bind(h, Sockaddr{Addr: []byte{127, 0, 0, 1}}))
	require.NoError(t, p.Listen(h, 8))

	sa, err := p.Sockname(h)
	require.NoError(t, err)
	require.NotZero(t, sa.Port)
	return h, sa
}

func TestUnixLoopbackExchange(t *testing.T) {
	p := Default()
	ln, sa := loopbackListener(t, p)

	client, err := p.Socket(IPv4)
	require.NoError(t, err)
	defer p.Close(client)

	res := p.Connect(client, sa)
	require.Equal(t, KindOK, res.Kind, "connect: %v", res.Err)

	peer, peerAddr, res := p.Accept(ln)
	require.Equal(t, KindOK, res.Kind, "accept: %v", res.Err)
	defer p.Close(peer)
	assert.Equal(t, []byte{127, 0, 0, 1}, peerAddr.Addr)

	res = p.Send(client, []byte("ping"), 0)
	require.Equal(t, KindOK, res.Kind)
	assert.Equal(t, 4, res.N)

	res = p.Poll(peer, EventReadable, 1000)
	require.Equal(t, KindOK, res.Kind)

	n, err := p.Available(peer)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 16)
	res = p.Recv(peer, buf)
	require.Equal(t, KindOK, res.Kind)
	assert.Equal(t, "ping", string(buf[:res.N]))

	require.NoError(t, p.Shutdown(client, ShutdownWrite))
	res = p.Recv(peer, buf)
	assert.Equal(t, KindClosed, res.Kind)
}

func TestUnixNonblockingRecvWouldBlock(t *testing.T) {
	p := Default()
	ln, sa := loopbackListener(t, p)

	client, err := p.Socket(IPv4)
	require.NoError(t, err)
	defer p.Close(client)
	require.Equal(t, KindOK, p.Connect(client, sa).Kind)

	peer, _, res := p.Accept(ln)
	require.Equal(t, KindOK, res.Kind)
	defer p.Close(peer)

	require.NoError(t, p.SetNonblock(peer, true))
	res = p.Recv(peer, make([]byte, 8))
	assert.Equal(t, KindWouldBlock, res.Kind)

	res = p.Poll(peer, EventReadable, 1)
	assert.Equal(t, KindTimedOut, res.Kind)
}

func TestUnixOptions(t *testing.T) {
	p := Default()
	h, err := p.Socket(IPv4)
	require.NoError(t, err)
	defer p.Close(h)

	require.NoError(t, p.SetOption(h, IPv4, OptKeepAlive, 1))
	v, err := p.GetOption(h, IPv4, OptKeepAlive)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, p.SetOption(h, IPv4, OptNoDelay, 1))
	v, err = p.GetOption(h, IPv4, OptNoDelay)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, p.SetOption(h, IPv4, OptReceiveTimeout, 2000))
	v, err = p.GetOption(h, IPv4, OptReceiveTimeout)
	require.NoError(t, err)
	assert.Equal(t, 2000, v)

	require.NoError(t, p.SetOption(h, IPv4, OptLinger, 5))
	v, err = p.GetOption(h, IPv4, OptLinger)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	require.NoError(t, p.SetOption(h, IPv4, OptLinger, -1))
	v, err = p.GetOption(h, IPv4, OptLinger)
	require.NoError(t, err)
	assert.Equal(t, -1, v)

	_, err = p.GetOption(h, IPv4, Option(99))
	assert.Error(t, err)
}

func TestUnixSocketErrorClean(t *testing.T) {
	p := Default()
	h, err := p.Socket(IPv4)
	require.NoError(t, err)
	defer p.Close(h)

	code, err := p.SocketError(h)
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestUnixRejectsBadFamily(t *testing.T) {
	_, err := Default().Socket(Family(3))
	assert.Error(t, err)
}
