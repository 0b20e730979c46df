package sio

import (
	"context"
	"net"
	"net/netip"
)

// Resolver performs forward and reverse name resolution.
type Resolver interface {
	// LookupIP returns the addresses of host, each as 4 or 16 raw bytes.
	LookupIP(ctx context.Context, host string) ([][]byte, error)
	// LookupAddr returns the names mapped to the raw address.
	LookupAddr(ctx context.Context, addr []byte) ([]string, error)
}

// NetResolver implements Resolver on a net.Resolver (nil means
// net.DefaultResolver).
type NetResolver struct {
	Resolver *net.Resolver
}

func (r NetResolver) resolver() *net.Resolver {
	if r.Resolver != nil {
		return r.Resolver
	}
	return net.DefaultResolver
}

// LookupIP resolves host. IPv4 results may be reported in IPv4-mapped form.
func (r NetResolver) LookupIP(ctx context.Context, host string) ([][]byte, error) {
	addrs, err := r.resolver().LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.AsSlice())
	}
	return out, nil
}

// LookupAddr performs a reverse lookup of addr.
func (r NetResolver) LookupAddr(ctx context.Context, addr []byte) ([]string, error) {
	ip, ok := netip.AddrFromSlice(addr)
	if !ok {
		return nil, &net.AddrError{Err: "invalid address length", Addr: string(addr)}
	}
	return r.resolver().LookupAddr(ctx, ip.String())
}

var defaultResolver Resolver = NetResolver{}

// DefaultResolver returns the process resolver.
func DefaultResolver() Resolver {
	return defaultResolver
}
