package netutil

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Address is a parsed IPv4/IPv6 endpoint. Host-to-address resolution is
// synchronous, performed at construction time: there is no async DNS
// resolver here, so ResolveAddress simply defers to the standard library's
// resolver on the calling goroutine.
type Address struct {
	addr netip.AddrPort
}

// NewAddress builds an Address directly from an IP and port, without doing
// any name resolution.
func NewAddress(ip netip.Addr, port uint16) Address {
	return Address{addr: netip.AddrPortFrom(ip, port)}
}

// ResolveAddress parses hostOrIP:port, resolving hostOrIP synchronously if
// it isn't already a literal IPv4/IPv6 address.
func ResolveAddress(network, hostport string) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Address{}, fmt.Errorf("netutil: split host port %q: %w", hostport, err)
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		port, err := parsePort(portStr)
		if err != nil {
			return Address{}, err
		}
		return Address{addr: netip.AddrPortFrom(ip, port)}, nil
	}

	ips, err := net.DefaultResolver.LookupIP(context.Background(), resolverNetwork(network), host)
	if err != nil {
		return Address{}, fmt.Errorf("netutil: resolve host %q: %w", host, err)
	}
	if len(ips) == 0 {
		return Address{}, fmt.Errorf("netutil: host %q has no addresses", host)
	}
	ip, ok := netip.AddrFromSlice(ips[0])
	if !ok {
		return Address{}, fmt.Errorf("netutil: invalid resolved address for %q", host)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return Address{}, err
	}
	return Address{addr: netip.AddrPortFrom(ip.Unmap(), port)}, nil
}

func resolverNetwork(network string) string {
	switch network {
	case "tcp4", "udp4":
		return "ip4"
	case "tcp6", "udp6":
		return "ip6"
	default:
		return "ip"
	}
}

func parsePort(s string) (uint16, error) {
	var port uint16
	_, err := fmt.Sscanf(s, "%d", &port)
	if err != nil {
		return 0, fmt.Errorf("netutil: invalid port %q: %w", s, err)
	}
	return port, nil
}

// IP returns the parsed IP.
func (a Address) IP() netip.Addr { return a.addr.Addr() }

// Port returns the parsed port.
func (a Address) Port() uint16 { return a.addr.Port() }

// IsIPv6 reports whether the address family is IPv6.
func (a Address) IsIPv6() bool { return a.addr.Addr().Is6() && !a.addr.Addr().Is4In6() }

// String renders the address as host:port.
func (a Address) String() string { return a.addr.String() }

// SockAddr returns the net.Addr representation used by net.Listen-style
// APIs and for peer/local tuple comparisons (self-connect detection).
func (a Address) SockAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: a.addr.Addr().AsSlice(), Port: int(a.addr.Port())}
}

// Equal reports whether two addresses denote the same IP and port, used by
// the connector to detect the loopback self-connect race.
func (a Address) Equal(other Address) bool {
	return a.addr == other.addr
}

func addrFrom4(b [4]byte) netip.Addr   { return netip.AddrFrom4(b) }
func addrFrom16(b [16]byte) netip.Addr { return netip.AddrFrom16(b) }
