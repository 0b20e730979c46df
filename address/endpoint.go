package address

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// Endpoint pairs an optional address with a port. An endpoint whose
// resolution failed keeps the host name as a label instead of an address.
type Endpoint struct {
	addr  *NetworkAddress
	label string
	port  uint16
}

// WildcardEndpoint returns the IPv4 wildcard endpoint on port.
func WildcardEndpoint(port uint16) Endpoint {
	return Endpoint{addr: IPv4Any, port: port}
}

// NewEndpoint returns an endpoint on addr. A nil addr is the IPv4 wildcard.
func NewEndpoint(addr *NetworkAddress, port uint16) Endpoint {
	if addr == nil {
		addr = IPv4Any
	}
	return Endpoint{addr: addr, port: port}
}

// ResolveEndpoint resolves host eagerly. When resolution fails the endpoint
// is returned unresolved, carrying host as its label.
func ResolveEndpoint(host string, port uint16, preferIPv6 bool) Endpoint {
	addr, err := ByName(host, preferIPv6)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ResolveEndpoint",
			"host":     host,
			"port":     port,
			"error":    err.Error(),
		}).Debug("Endpoint left unresolved")
		return Endpoint{label: host, port: port}
	}
	return Endpoint{addr: addr, port: port}
}

// UnresolvedEndpoint returns an endpoint carrying only a host label.
func UnresolvedEndpoint(host string, port uint16) Endpoint {
	return Endpoint{label: host, port: port}
}

// Address returns the resolved address, nil if unresolved.
func (e Endpoint) Address() *NetworkAddress {
	return e.addr
}

// Port returns the port.
func (e Endpoint) Port() uint16 {
	return e.port
}

// IsUnresolved reports whether the endpoint has no address.
func (e Endpoint) IsUnresolved() bool {
	return e.addr == nil
}

// HostName returns the address host name, or the label when unresolved.
func (e Endpoint) HostName() string {
	if e.addr != nil {
		return e.addr.HostName()
	}
	return e.label
}

// Family returns the address family, IPv4 when unresolved.
func (e Endpoint) Family() Family {
	if e.addr != nil {
		return e.addr.Family()
	}
	return IPv4
}

// String renders "host:port", using the label when unresolved.
func (e Endpoint) String() string {
	host := e.label
	if e.addr != nil {
		host = e.addr.String()
	}
	return host + "(" + strconv.Itoa(int(e.port)) + ")"
}
