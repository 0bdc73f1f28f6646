package transport

import (
	"fmt"
	"net/netip"
)

// Endpoint is an IPv4 address and port pair. It is comparable, so it
// can key maps and be ordered by Compare.
type Endpoint struct {
	IP   netip.Addr
	Port uint16
}

// ParseEndpoint parses "host:port".
func ParseEndpoint(s string) (Endpoint, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: %w", s, err)
	}
	return Endpoint{IP: ap.Addr(), Port: ap.Port()}, nil
}

// MakeEndpoint builds an Endpoint from an address string and port.
func MakeEndpoint(ip string, port uint16) (Endpoint, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse address %q: %w", ip, err)
	}
	return Endpoint{IP: addr, Port: port}, nil
}

func (e Endpoint) String() string {
	return netip.AddrPortFrom(e.IP, e.Port).String()
}

// Compare orders endpoints by address, then port.
func (e Endpoint) Compare(other Endpoint) int {
	if c := e.IP.Compare(other.IP); c != 0 {
		return c
	}
	switch {
	case e.Port < other.Port:
		return -1
	case e.Port > other.Port:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the endpoint carries a usable address.
func (e Endpoint) IsValid() bool {
	return e.IP.IsValid()
}
