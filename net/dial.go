package net

import (
	"net"
	"time"

	"github.com/opd-ai/netsock"
	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/neterr"
)

// Dial connects to the address on the named network. Known networks are
// "tcp", "tcp4" (IPv4-only) and "tcp6" (IPv6-only).
func Dial(network, hostport string) (net.Conn, error) {
	c, err := DialOptions(network, hostport, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DialTimeout acts like Dial but bounds each connect attempt by timeout.
// If timeout is 0, no timeout is applied.
func DialTimeout(network, hostport string, timeout time.Duration) (net.Conn, error) {
	opts := netsock.NewOptions()
	opts.ConnectTimeout = timeout
	c, err := DialOptions(network, hostport, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DialOptions connects using opts, which selects the implementation
// registry, local binding and connect timeout. A nil opts uses the
// defaults.
func DialOptions(network, hostport string, opts *netsock.Options) (*Conn, error) {
	family, err := networkFamily(network)
	if err != nil {
		return nil, newOpError("dial", network, hostport, err)
	}
	host, port, err := splitHostPort(hostport)
	if err != nil {
		return nil, newOpError("dial", network, hostport, err)
	}
	if opts == nil {
		opts = netsock.NewOptions()
	}

	var sock *netsock.Socket
	if family == 0 {
		sock, err = netsock.Dial(host, port, opts)
	} else {
		sock, err = dialFamily(network, host, port, opts)
	}
	if err != nil {
		return nil, newOpError("dial", network, hostport, err)
	}
	return NewConn(sock), nil
}

func dialFamily(network, host string, port uint16, opts *netsock.Options) (*netsock.Socket, error) {
	addrs, err := resolveFor(network, host)
	if err != nil {
		return nil, err
	}
	var last error
	for _, a := range addrs {
		sock, err := netsock.DialAddress(a, port, opts)
		if err == nil {
			return sock, nil
		}
		last = err
	}
	return nil, last
}

// Listen announces on the local network address. An empty host listens on
// the wildcard address; "tcp" uses IPv4 unless the host is IPv6.
func Listen(network, hostport string) (net.Listener, error) {
	l, err := ListenOptions(network, hostport, nil)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListenOptions acts like Listen using opts for the implementation
// registry and logger.
func ListenOptions(network, hostport string, opts *netsock.Options) (*Listener, error) {
	family, err := networkFamily(network)
	if err != nil {
		return nil, newOpError("listen", network, hostport, err)
	}
	host, port, err := splitHostPort(hostport)
	if err != nil {
		return nil, newOpError("listen", network, hostport, err)
	}

	o := opts.Clone()
	o.LocalAddress = nil
	switch {
	case host != "":
		addrs, err := resolveFor(network, host)
		if err != nil {
			return nil, newOpError("listen", network, hostport, err)
		}
		local, err := address.SelectPreferred(addrs, address.PreferredFamily(o.PreferIPv6))
		if err != nil {
			return nil, newOpError("listen", network, hostport, err)
		}
		o.LocalAddress = local
	case family != 0:
		o.PreferIPv6 = family == address.IPv6
	}

	ss, err := netsock.Listen(port, 0, o)
	if err != nil {
		return nil, newOpError("listen", network, hostport, err)
	}
	return NewListener(ss), nil
}

// networkFamily maps a network name to its family, 0 meaning either.
func networkFamily(network string) (address.Family, error) {
	switch network {
	case "tcp":
		return 0, nil
	case "tcp4":
		return address.IPv4, nil
	case "tcp6":
		return address.IPv6, nil
	default:
		return 0, ErrUnsupportedNetwork
	}
}

// resolveFor resolves host, keeping only addresses the network accepts.
func resolveFor(network, host string) ([]*address.NetworkAddress, error) {
	family, err := networkFamily(network)
	if err != nil {
		return nil, err
	}
	addrs, err := address.ResolveAll(host)
	if err != nil {
		return nil, err
	}
	if family == 0 {
		return addrs, nil
	}
	kept := addrs[:0:0]
	for _, a := range addrs {
		if a.Family() == family {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return nil, neterr.UnknownHost("resolve", host, nil)
	}
	return kept, nil
}
