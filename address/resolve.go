package address

import (
	"context"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"

	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/sio"
)

// Resolver performs forward and reverse name resolution.
type Resolver = sio.Resolver

var (
	resolverMu      sync.RWMutex
	defaultResolver Resolver = sio.DefaultResolver()
)

// SetDefaultResolver replaces the resolver used by ResolveAll, ByName,
// LocalHost and NameInfo. A nil resolver restores the system resolver.
func SetDefaultResolver(r Resolver) {
	if r == nil {
		r = sio.DefaultResolver()
	}
	resolverMu.Lock()
	defaultResolver = r
	resolverMu.Unlock()
}

// DefaultResolver returns the package resolver.
func DefaultResolver() Resolver {
	resolverMu.RLock()
	defer resolverMu.RUnlock()
	return defaultResolver
}

// nodeName reports the machine node name. Tests replace it.
var nodeName = os.Hostname

// ResolveAll returns every address of hostname using the default resolver.
func ResolveAll(hostname string) ([]*NetworkAddress, error) {
	return ResolveAllWith(context.Background(), DefaultResolver(), hostname)
}

// ResolveAllWith returns every address of hostname.
//
// The empty name yields both loopback addresses, IPv6 first. A numeric
// literal yields one address without a lookup; legacy numeric forms such as
// "127.1" or "0x7f.0.0.1" are rejected with UnknownHost. Names are IDNA
// normalised before resolution and IPv4-mapped results are reported as IPv4.
func ResolveAllWith(ctx context.Context, r Resolver, hostname string) ([]*NetworkAddress, error) {
	if hostname == "" {
		return []*NetworkAddress{IPv6Loopback, IPv4Loopback}, nil
	}

	if addr, ok, err := parseLiteral(hostname); ok {
		if err != nil {
			return nil, err
		}
		return []*NetworkAddress{addr}, nil
	}

	name := normalizeName(hostname)
	raws, err := r.LookupIP(ctx, name)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ResolveAll",
			"host":     hostname,
			"error":    err.Error(),
		}).Debug("Name resolution failed")
		return nil, neterr.UnknownHost("lookup", hostname, err)
	}

	addrs := make([]*NetworkAddress, 0, len(raws))
	for _, raw := range raws {
		a, err := Of(raw, hostname)
		if err != nil {
			continue
		}
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, neterr.UnknownHost("lookup", hostname, nil)
	}

	logrus.WithFields(logrus.Fields{
		"function": "ResolveAll",
		"host":     hostname,
		"count":    len(addrs),
	}).Debug("Resolved host")
	return addrs, nil
}

// SelectPreferred returns the first address of family, or failing that the
// first address of any family.
func SelectPreferred(addrs []*NetworkAddress, family Family) (*NetworkAddress, error) {
	for _, a := range addrs {
		if a.Family() == family {
			return a, nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0], nil
	}
	return nil, neterr.UnknownHost("select", "", nil)
}

// PreferredFamily maps a preference flag to a family.
func PreferredFamily(preferIPv6 bool) Family {
	if preferIPv6 {
		return IPv6
	}
	return IPv4
}

// ByName resolves hostname and selects one address of the preferred family.
func ByName(hostname string, preferIPv6 bool) (*NetworkAddress, error) {
	addrs, err := ResolveAll(hostname)
	if err != nil {
		return nil, err
	}
	return SelectPreferred(addrs, PreferredFamily(preferIPv6))
}

// LocalHost returns an address of this machine, falling back to the
// preferred loopback when the node name does not resolve.
func LocalHost(preferIPv6 bool) *NetworkAddress {
	family := PreferredFamily(preferIPv6)

	name, err := nodeName()
	if err == nil && name != "" {
		if addr, err := ByName(name, preferIPv6); err == nil {
			return addr
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "LocalHost",
		"node":     name,
	}).Debug("Node name unresolved, using loopback")
	return LoopbackFor(family)
}

// IsNumeric reports whether s is a canonical IPv4 or IPv6 literal.
func IsNumeric(s string) bool {
	addr, ok, err := parseLiteral(s)
	return ok && err == nil && addr != nil
}

// ParseNumeric parses a canonical numeric literal. The empty string is the
// IPv6 loopback.
func ParseNumeric(s string) (*NetworkAddress, error) {
	if s == "" {
		return IPv6Loopback, nil
	}
	addr, ok, err := parseLiteral(s)
	if !ok || err != nil {
		return nil, neterr.InvalidArgument("address.ParseNumeric", "not a numeric address: %q", s)
	}
	return addr, nil
}

// parseLiteral reports ok when s has numeric syntax. err is set for legacy
// IPv4 forms that low-level parsers accept but are not canonical.
func parseLiteral(s string) (*NetworkAddress, bool, error) {
	if strings.Contains(s, ":") {
		// TODO: carry the zone into Sockaddr.Zone once endpoints keep scope ids.
		ip, err := netip.ParseAddr(s)
		if err != nil {
			return nil, false, nil
		}
		addr, err := Of(ip.WithZone("").AsSlice(), "")
		return addr, true, err
	}

	if !isLegacyIPv4(s) {
		return nil, false, nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil || !ip.Is4() {
		return nil, true, neterr.UnknownHost("parse", s, nil)
	}
	addr, err := Of(ip.AsSlice(), "")
	return addr, true, err
}

// isLegacyIPv4 reports whether s parses under inet_aton rules: one to four
// dot-separated parts in decimal, octal or hex, the last part filling the
// remaining bytes.
func isLegacyIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return false
	}
	for i, p := range parts {
		v, ok := parseLegacyPart(p)
		if !ok {
			return false
		}
		if i < len(parts)-1 {
			if v > 0xFF {
				return false
			}
			continue
		}
		if v > uint64(0xFFFFFFFF)>>(8*uint(len(parts)-1)) {
			return false
		}
	}
	return true
}

func parseLegacyPart(p string) (uint64, bool) {
	if p == "" {
		return 0, false
	}
	base := 10
	digits := p
	switch {
	case len(p) > 1 && (p[1] == 'x' || p[1] == 'X') && p[0] == '0':
		base, digits = 16, p[2:]
		if digits == "" {
			return 0, true
		}
	case len(p) > 1 && p[0] == '0':
		base, digits = 8, p[1:]
	}
	for _, c := range digits {
		if c == '+' || c == '-' || c == '_' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeName maps an internationalised host name to its ASCII form.
// Names the lookup profile rejects are passed through unchanged.
func normalizeName(name string) string {
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "normalizeName",
			"host":     name,
			"error":    err.Error(),
		}).Debug("IDNA normalisation failed, using name as given")
		return name
	}
	return ascii
}
