package net

import (
	"net"
	"strconv"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/limits"
	"github.com/opd-ai/netsock/neterr"
)

// SockAddr implements net.Addr for socket endpoints.
type SockAddr struct {
	endpoint address.Endpoint
}

// NewSockAddr wraps ep.
func NewSockAddr(ep address.Endpoint) *SockAddr {
	return &SockAddr{endpoint: ep}
}

// ResolveSockAddr resolves a "host:port" string. An empty host resolves to
// the wildcard address of the network's family.
func ResolveSockAddr(network, hostport string) (*SockAddr, error) {
	family, err := networkFamily(network)
	if err != nil {
		return nil, newOpError("resolve", network, hostport, err)
	}
	host, port, err := splitHostPort(hostport)
	if err != nil {
		return nil, newOpError("resolve", network, hostport, err)
	}
	if host == "" {
		if family == 0 {
			family = address.IPv4
		}
		return NewSockAddr(address.NewEndpoint(address.AnyFor(family), port)), nil
	}

	addrs, err := resolveFor(network, host)
	if err != nil {
		return nil, newOpError("resolve", network, hostport, err)
	}
	return NewSockAddr(address.NewEndpoint(addrs[0], port)), nil
}

// Network returns "tcp".
func (a *SockAddr) Network() string {
	return "tcp"
}

// String returns the numeric "host:port" form.
func (a *SockAddr) String() string {
	host := a.endpoint.HostName()
	if addr := a.endpoint.Address(); addr != nil {
		host = addr.HostAddress()
	}
	return net.JoinHostPort(host, strconv.Itoa(int(a.endpoint.Port())))
}

// Endpoint returns the wrapped endpoint.
func (a *SockAddr) Endpoint() address.Endpoint {
	return a.endpoint
}

// TCPAddr converts a to a *net.TCPAddr. It returns nil for an unresolved
// endpoint.
func (a *SockAddr) TCPAddr() *net.TCPAddr {
	addr := a.endpoint.Address()
	if addr == nil {
		return nil
	}
	return &net.TCPAddr{IP: addr.IP(), Port: int(a.endpoint.Port())}
}

func splitHostPort(hostport string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, neterr.InvalidArgument("parse port", "invalid port %q", portStr)
	}
	if err := limits.ValidatePort("parse port", port); err != nil {
		return "", 0, err
	}
	return host, uint16(port), nil
}
