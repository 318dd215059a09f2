package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

const tcpDialTimeout = 5 * time.Second

// TCPSender keeps one outbound connection, dialing lazily and redialing on
// the next Send after a failure. TAK servers in TCP mode are fed this way.
type TCPSender struct {
	name string
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPSender returns a sender for addr ("host:port"). The connection is
// established on the first Send.
func NewTCPSender(name, addr string) *TCPSender {
	return &TCPSender{name: name, addr: addr}
}

// Name implements Sender.
func (s *TCPSender) Name() string { return s.name }

// Send writes the whole payload. Any write error drops the connection; the
// next Send dials again.
func (s *TCPSender) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		d := net.Dialer{Timeout: tcpDialTimeout}
		conn, err := d.DialContext(ctx, "tcp", s.addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", s.addr, err)
		}
		s.conn = conn
	}

	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
	} else {
		s.conn.SetWriteDeadline(time.Now().Add(tcpDialTimeout))
	}
	if _, err := s.conn.Write(payload); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("tcp send %s: %w", s.addr, err)
	}
	return nil
}

// Close drops the connection if one is open.
func (s *TCPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
