package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
)

// UDPSender writes datagrams to a fixed destination. Multicast destinations
// get TTL 1 so traffic stays on the local segment.
type UDPSender struct {
	name string
	addr string

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewUDPSender returns a sender for addr ("host:port"). The socket is opened
// on the first Send.
func NewUDPSender(name, addr string) *UDPSender {
	return &UDPSender{name: name, addr: addr}
}

// Name implements Sender.
func (s *UDPSender) Name() string { return s.name }

// Send writes one datagram. A failed write closes the socket so the next
// Send reopens it.
func (s *UDPSender) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.open()
		if err != nil {
			return err
		}
		s.conn = conn
	}

	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
	}
	if _, err := s.conn.Write(payload); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("udp send %s: %w", s.addr, err)
	}
	return nil
}

func (s *UDPSender) open() (*net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp4", s.addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", s.addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.addr, err)
	}
	if raddr.IP.IsMulticast() {
		if err := ipv4.NewPacketConn(conn).SetMulticastTTL(1); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set multicast ttl on %s: %w", s.addr, err)
		}
	}
	return conn, nil
}

// Close releases the socket if open.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
