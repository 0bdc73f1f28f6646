package transport

import (
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
)

// MaxDatagram bounds the size of a single received datagram.
// Anything larger is truncated by the kernel and dropped by the
// framing layer.
const MaxDatagram = 65535

// UDPSocket is a datagram socket bound to a local endpoint, with
// optional multicast group membership.
type UDPSocket struct {
	conn  *net.UDPConn
	pconn *ipv4.PacketConn
	group netip.Addr
}

type UDPOption func(*UDPSocket)

// WithMulticastGroup joins the given IPv4 group after binding.
func WithMulticastGroup(group netip.Addr) UDPOption {
	return func(s *UDPSocket) { s.group = group }
}

// OpenUDP binds a datagram socket to local.
func OpenUDP(local Endpoint, opts ...UDPOption) (*UDPSocket, error) {
	s := &UDPSocket{}
	for _, opt := range opts {
		opt(s)
	}

	laddr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(local.IP, local.Port))
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("udp bind %s: %w", local, err)
	}
	s.conn = conn

	if s.group.IsValid() {
		s.pconn = ipv4.NewPacketConn(conn)
		group := &net.UDPAddr{IP: s.group.AsSlice()}
		if err := s.pconn.JoinGroup(nil, group); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("udp join group %s: %w", s.group, err)
		}
	}
	return s, nil
}

// ReceiveDatagram blocks for one complete datagram and returns a copy
// of its payload plus the sender's endpoint.
func (s *UDPSocket) ReceiveDatagram() ([]byte, Endpoint, error) {
	buf := make([]byte, MaxDatagram)
	n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return nil, Endpoint{}, fmt.Errorf("udp receive: %w", err)
	}
	sender := Endpoint{IP: addr.Addr().Unmap(), Port: addr.Port()}
	return buf[:n], sender, nil
}

// SendDatagram transmits one datagram to the given endpoint.
func (s *UDPSocket) SendDatagram(b []byte, to Endpoint) error {
	addr := netip.AddrPortFrom(to.IP, to.Port)
	if _, err := s.conn.WriteToUDPAddrPort(b, addr); err != nil {
		return fmt.Errorf("udp send to %s: %w", to, err)
	}
	return nil
}

// LocalEndpoint reports the bound address.
func (s *UDPSocket) LocalEndpoint() Endpoint {
	if addr, ok := s.conn.LocalAddr().(*net.UDPAddr); ok {
		return Endpoint{IP: addr.AddrPort().Addr().Unmap(), Port: uint16(addr.Port)}
	}
	return Endpoint{}
}

// Close leaves the multicast group, if joined, and closes the socket.
// A blocked ReceiveDatagram fails immediately.
func (s *UDPSocket) Close() error {
	if s.pconn != nil {
		group := &net.UDPAddr{IP: s.group.AsSlice()}
		_ = s.pconn.LeaveGroup(nil, group)
	}
	return s.conn.Close()
}
