package net

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/neterr"
)

func TestUnsupportedNetwork(t *testing.T) {
	c, err := Dial("udp", "127.0.0.1:53")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
	assert.True(t, c == nil, "failed Dial must return a nil net.Conn")

	c, err = DialTimeout("udp", "127.0.0.1:53", time.Second)
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
	assert.True(t, c == nil, "failed DialTimeout must return a nil net.Conn")

	l, err := Listen("unix", "/tmp/sock")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
	assert.True(t, l == nil, "failed Listen must return a nil net.Listener")
}

func TestDialBadAddress(t *testing.T) {
	opts, _ := simOptions()
	tests := []string{"127.0.0.1", "127.0.0.1:http", "127.0.0.1:70000"}
	for _, addr := range tests {
		t.Run(addr, func(t *testing.T) {
			_, err := DialOptions("tcp", addr, opts)
			var opErr *OpError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, "dial", opErr.Op)
			assert.Equal(t, addr, opErr.Addr)
		})
	}
}

func TestDialFamilyFilter(t *testing.T) {
	opts, _ := simOptions()

	_, err := DialOptions("tcp6", "127.0.0.1:80", opts)
	assert.ErrorIs(t, err, neterr.ErrUnknownHost)

	_, err = ListenOptions("tcp4", "[::1]:0", opts)
	assert.ErrorIs(t, err, neterr.ErrUnknownHost)
}

func TestDialRefused(t *testing.T) {
	opts, n := simOptions()
	_, err := DialOptions("tcp4", "127.0.0.1:9", opts)
	assert.ErrorIs(t, err, neterr.ErrConnection)
	assert.Zero(t, n.OpenHandles())
}

func TestListenFamilies(t *testing.T) {
	opts, _ := simOptions()

	ln, err := ListenOptions("tcp6", ":0", opts)
	require.NoError(t, err)
	defer ln.Close()
	assert.Equal(t, address.IPv6, ln.ServerSocket().LocalAddress().Family())
	assert.Contains(t, ln.Addr().String(), "[::]:")

	port := strconv.Itoa(int(ln.ServerSocket().LocalPort()))
	conn, err := DialOptions("tcp6", net.JoinHostPort("::1", port), opts)
	require.NoError(t, err)
	defer conn.Close()
	peer, err := ln.Accept()
	require.NoError(t, err)
	defer peer.Close()
	assert.Equal(t, conn.LocalAddr().String(), peer.RemoteAddr().String())

	ln4, err := ListenOptions("tcp", ":0", opts)
	require.NoError(t, err)
	defer ln4.Close()
	assert.Equal(t, address.IPv4, ln4.ServerSocket().LocalAddress().Family())
}

func TestListenerClose(t *testing.T) {
	opts, n := simOptions()
	ln, err := ListenOptions("tcp", "127.0.0.1:0", opts)
	require.NoError(t, err)

	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())
	assert.Zero(t, n.OpenHandles())

	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)
}

func TestListenerAcceptWouldBlock(t *testing.T) {
	opts, _ := simOptions()
	ln, err := ListenOptions("tcp", "127.0.0.1:0", opts)
	require.NoError(t, err)
	defer ln.Close()

	_, err = ln.Accept()
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.True(t, opErr.Timeout())
}
