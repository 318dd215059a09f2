package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/signalsfoundry/dragonsim/internal/logging"
)

// Topics published on the pub socket.
const (
	TopicRID = "DroneID"
	TopicFPV = "AUX_ADV_IND"
)

// PubSocket is a line-framed publish socket. Subscribers connect over TCP
// and receive every published payload as "<topic> <payload>\n". A failed
// write drops that subscriber; publishing to zero subscribers is a no-op.
type PubSocket struct {
	name string
	log  logging.Logger
	ln   net.Listener

	mu     sync.Mutex
	subs   map[net.Conn]struct{}
	closed bool
}

// ListenPubSocket binds addr and starts accepting subscribers.
func ListenPubSocket(name, addr string, log logging.Logger) (*PubSocket, error) {
	if log == nil {
		log = logging.Noop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen pub socket %s: %w", addr, err)
	}
	p := &PubSocket{
		name: name,
		log:  log,
		ln:   ln,
		subs: make(map[net.Conn]struct{}),
	}
	go p.acceptLoop()
	return p, nil
}

func (p *PubSocket) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.subs[conn] = struct{}{}
		n := len(p.subs)
		p.mu.Unlock()

		p.log.Info(context.Background(), "pub socket subscriber connected",
			logging.String("socket", p.name),
			logging.String("remote", conn.RemoteAddr().String()),
			logging.Int("subscribers", n),
		)
	}
}

// Addr returns the bound listener address.
func (p *PubSocket) Addr() net.Addr { return p.ln.Addr() }

// SubscriberCount returns the number of connected subscribers.
func (p *PubSocket) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Publish frames payload under topic and writes it to every subscriber.
// Subscribers whose write fails are dropped.
func (p *PubSocket) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame := make([]byte, 0, len(topic)+len(payload)+2)
	frame = append(frame, topic...)
	frame = append(frame, ' ')
	frame = append(frame, payload...)
	frame = append(frame, '\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.subs {
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetWriteDeadline(deadline)
		}
		if _, err := conn.Write(frame); err != nil {
			conn.Close()
			delete(p.subs, conn)
			p.log.Warn(ctx, "pub socket subscriber dropped",
				logging.String("socket", p.name),
				logging.String("remote", conn.RemoteAddr().String()),
				logging.Err(err),
			)
		}
	}
	return nil
}

// Sender returns a Sender that publishes every payload under one topic.
func (p *PubSocket) Sender(name, topic string) Sender {
	return &pubTopicSender{name: name, topic: topic, sock: p}
}

// Close stops accepting and disconnects all subscribers.
func (p *PubSocket) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]net.Conn, 0, len(p.subs))
	for conn := range p.subs {
		conns = append(conns, conn)
	}
	p.subs = make(map[net.Conn]struct{})
	p.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	return p.ln.Close()
}

type pubTopicSender struct {
	name  string
	topic string
	sock  *PubSocket
}

func (s *pubTopicSender) Name() string { return s.name }

func (s *pubTopicSender) Send(ctx context.Context, payload []byte) error {
	return s.sock.Publish(ctx, s.topic, payload)
}

// Close is a no-op; the owning PubSocket is closed separately so that two
// topic senders over one socket do not race to tear it down.
func (s *pubTopicSender) Close() error { return nil }
