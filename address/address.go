// Package address implements the IPv4/IPv6 address model of netsock.
//
// A NetworkAddress is the immutable identity of an IP endpoint: its family
// and its raw network-order bytes. Host names and numeric renderings are
// resolved lazily and cached. The well-known addresses (IPv4Any,
// IPv4Loopback, IPv4Broadcast, IPv6Any, IPv6Loopback) are created once and
// shared by pointer; compare addresses with Equal, not ==.
//
// Name resolution (ResolveAll, ByName, LocalHost) goes through an
// sio.Resolver. CachingResolver adds an LRU in front of any Resolver.
package address

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/sio"
)

// Family is an IP address family.
type Family = sio.Family

const (
	IPv4 = sio.IPv4
	IPv6 = sio.IPv6
)

// NameFlags selects the rendering performed by NameInfo.
type NameFlags uint8

const (
	// NameRequired fails with UnknownHost unless a reverse name exists.
	NameRequired NameFlags = 1 << iota
	// NumericHost renders the numeric form without any lookup.
	NumericHost
)

// NetworkAddress is an IPv4 or IPv6 address.
type NetworkAddress struct {
	family Family
	raw    [16]byte

	mu       sync.Mutex
	hostname string
	hostaddr string
}

// Well-known addresses. They are never mutated.
var (
	IPv4Any       = newAddress(IPv4, []byte{0, 0, 0, 0}, "")
	IPv4Broadcast = newAddress(IPv4, []byte{255, 255, 255, 255}, "")
	IPv4Loopback  = newAddress(IPv4, []byte{127, 0, 0, 1}, "localhost")
	IPv6Any       = newAddress(IPv6, make([]byte, 16), "")
	IPv6Loopback  = newAddress(IPv6, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, "localhost")
)

func newAddress(family Family, raw []byte, hostname string) *NetworkAddress {
	a := &NetworkAddress{family: family, hostname: hostname}
	copy(a.raw[:], raw)
	return a
}

// Of returns the address for 4 or 16 raw network-order bytes. An
// IPv4-mapped IPv6 address is returned as IPv4.
func Of(raw []byte, hostname string) (*NetworkAddress, error) {
	switch len(raw) {
	case 4:
		return newAddress(IPv4, raw, hostname), nil
	case 16:
		if isIPv4Mapped(raw) {
			return newAddress(IPv4, raw[12:], hostname), nil
		}
		return newAddress(IPv6, raw, hostname), nil
	default:
		return nil, neterr.InvalidArgument("address.Of", "incorrect address size: %d", len(raw))
	}
}

// FromSockaddr returns the address part of sa, keeping its family.
func FromSockaddr(sa sio.Sockaddr) *NetworkAddress {
	if len(sa.Addr) == 16 {
		return newAddress(IPv6, sa.Addr, "")
	}
	return newAddress(IPv4, sa.Addr, "")
}

// AnyFor returns the wildcard address of family.
func AnyFor(family Family) *NetworkAddress {
	if family == IPv6 {
		return IPv6Any
	}
	return IPv4Any
}

// LoopbackFor returns the loopback address of family.
func LoopbackFor(family Family) *NetworkAddress {
	if family == IPv6 {
		return IPv6Loopback
	}
	return IPv4Loopback
}

func isIPv4Mapped(raw []byte) bool {
	if len(raw) != 16 {
		return false
	}
	for i := 0; i < 10; i++ {
		if raw[i] != 0 {
			return false
		}
	}
	return raw[10] == 0xFF && raw[11] == 0xFF
}

// Family returns the address family.
func (a *NetworkAddress) Family() Family {
	return a.family
}

// Raw returns a copy of the network-order address bytes (4 or 16).
func (a *NetworkAddress) Raw() []byte {
	n := a.family.AddrLen()
	out := make([]byte, n)
	copy(out, a.raw[:n])
	return out
}

// NetIP returns the address as a netip.Addr.
func (a *NetworkAddress) NetIP() netip.Addr {
	if a.family == IPv4 {
		return netip.AddrFrom4([4]byte(a.raw[:4]))
	}
	return netip.AddrFrom16(a.raw)
}

// IP returns the address as a net.IP.
func (a *NetworkAddress) IP() net.IP {
	return net.IP(a.Raw())
}

// Sockaddr pairs the address with port.
func (a *NetworkAddress) Sockaddr(port uint16) sio.Sockaddr {
	return sio.Sockaddr{Addr: a.Raw(), Port: port}
}

// Equal reports whether a and other have the same family and bytes.
func (a *NetworkAddress) Equal(other *NetworkAddress) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.family == other.family && a.raw == other.raw
}

// IsMulticast reports whether a is a multicast address.
func (a *NetworkAddress) IsMulticast() bool {
	if a.family == IPv4 {
		return a.raw[0]&0xF0 == 0xE0
	}
	return a.raw[0] == 0xFF
}

// IsAnyLocal reports whether a is the wildcard address.
func (a *NetworkAddress) IsAnyLocal() bool {
	for _, b := range a.raw[:a.family.AddrLen()] {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsLoopback reports whether a is a loopback address (127/8 or ::1).
func (a *NetworkAddress) IsLoopback() bool {
	if a.family == IPv4 {
		return a.raw[0] == 127
	}
	for _, b := range a.raw[:15] {
		if b != 0 {
			return false
		}
	}
	return a.raw[15] == 0x01
}

// IsLinkLocal reports whether a is link-local (169.254/16 or fe80::/10).
func (a *NetworkAddress) IsLinkLocal() bool {
	if a.family == IPv4 {
		return a.raw[0] == 169 && a.raw[1] == 254
	}
	return a.raw[0] == 0xFE && a.raw[1]&0xC0 == 0x80
}

// IsSiteLocal reports whether a is site-local (10/8, 172.16/12,
// 192.168/16 or fec0::/10).
func (a *NetworkAddress) IsSiteLocal() bool {
	if a.family == IPv4 {
		return a.raw[0] == 10 ||
			(a.raw[0] == 172 && a.raw[1]&0xF0 == 16) ||
			(a.raw[0] == 192 && a.raw[1] == 168)
	}
	return a.raw[0] == 0xFE && a.raw[1]&0xC0 == 0xC0
}

// NameInfo renders a through the default resolver. Without flags it tries
// a reverse lookup and falls back to the numeric form.
func (a *NetworkAddress) NameInfo(flags NameFlags) (string, error) {
	return a.NameInfoWith(DefaultResolver(), flags)
}

// NameInfoWith is NameInfo on an explicit resolver.
func (a *NetworkAddress) NameInfoWith(r sio.Resolver, flags NameFlags) (string, error) {
	numeric := a.NetIP().String()
	if flags&NumericHost != 0 {
		return numeric, nil
	}

	names, err := r.LookupAddr(context.Background(), a.Raw())
	if err == nil && len(names) > 0 && names[0] != "" {
		return strings.TrimSuffix(names[0], "."), nil
	}
	if flags&NameRequired != 0 {
		return "", neterr.UnknownHost("nameinfo", numeric, err)
	}
	return numeric, nil
}

// HostName returns the host name of a, resolving and caching it on first
// use. When no reverse name exists the numeric form is cached instead.
func (a *NetworkAddress) HostName() string {
	a.mu.Lock()
	name := a.hostname
	a.mu.Unlock()
	if name != "" {
		return name
	}

	name, err := a.NameInfo(NameRequired)
	if err != nil {
		name = a.NetIP().String()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hostname == "" {
		a.hostname = name
	}
	return a.hostname
}

// HostAddress returns the numeric form of a, such as "127.0.0.1".
func (a *NetworkAddress) HostAddress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hostaddr == "" {
		a.hostaddr = a.NetIP().String()
	}
	return a.hostaddr
}

// String renders "hostname/numeric". The host name part is empty unless it
// is already known; String never performs a lookup.
func (a *NetworkAddress) String() string {
	if a == nil {
		return "<nil>"
	}
	a.mu.Lock()
	name := a.hostname
	a.mu.Unlock()
	return name + "/" + a.HostAddress()
}
