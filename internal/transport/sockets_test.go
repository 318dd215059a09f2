package transport

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/dragonsim/internal/logging"
)

func TestUDPSenderDeliversDatagrams(t *testing.T) {
	recv, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer recv.Close()

	s := NewUDPSender("cot", recv.LocalAddr().String())
	defer s.Close()

	payload := []byte("<event version=\"2.0\"/>")
	if err := s.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	recv.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, _, err := recv.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("received %q, want %q", buf[:n], payload)
	}
}

func TestTCPSenderLazyDialAndSend(t *testing.T) {
	ln, accepted := startTCPServer(t)
	s := NewTCPSender("tak", ln.Addr().String())
	defer s.Close()

	if err := s.Send(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn := waitAccept(t, accepted)
	defer conn.Close()
	got := readN(t, conn, 5)
	if got != "hello" {
		t.Fatalf("server read %q, want \"hello\"", got)
	}
}

func TestTCPSenderRedialsAfterFailure(t *testing.T) {
	ln, accepted := startTCPServer(t)
	s := NewTCPSender("tak", ln.Addr().String())
	defer s.Close()

	if err := s.Send(context.Background(), []byte("first")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	first := waitAccept(t, accepted)
	readN(t, first, 5)
	first.Close()

	// The peer is gone; writes keep landing in the socket buffer until the
	// reset arrives, so hammer until one fails.
	sawError := false
	for i := 0; i < 50; i++ {
		if err := s.Send(context.Background(), []byte("probe")); err != nil {
			sawError = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !sawError {
		t.Fatal("no send failed after peer closed the connection")
	}

	if err := s.Send(context.Background(), []byte("again")); err != nil {
		t.Fatalf("Send after redial: %v", err)
	}
	second := waitAccept(t, accepted)
	defer second.Close()
	if got := readN(t, second, 5); got != "again" {
		t.Fatalf("server read %q after redial, want \"again\"", got)
	}
}

func TestPubSocketFansOutFrames(t *testing.T) {
	p, err := ListenPubSocket("zmq", "127.0.0.1:0", logging.Noop())
	if err != nil {
		t.Fatalf("ListenPubSocket: %v", err)
	}
	defer p.Close()

	sub1, err := net.Dial("tcp", p.Addr().String())
	if err != nil {
		t.Fatalf("dial subscriber: %v", err)
	}
	defer sub1.Close()
	waitSubscribers(t, p, 1)

	if err := p.Publish(context.Background(), TopicRID, []byte(`{"index":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if line := readLine(t, sub1); line != "DroneID {\"index\":1}\n" {
		t.Fatalf("subscriber read %q", line)
	}

	sub2, err := net.Dial("tcp", p.Addr().String())
	if err != nil {
		t.Fatalf("dial second subscriber: %v", err)
	}
	defer sub2.Close()
	waitSubscribers(t, p, 2)

	if err := p.Publish(context.Background(), TopicFPV, []byte(`{"rssi":-42}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for _, sub := range []net.Conn{sub1, sub2} {
		if line := readLine(t, sub); !strings.HasPrefix(line, "AUX_ADV_IND ") {
			t.Fatalf("subscriber read %q, want AUX_ADV_IND frame", line)
		}
	}
}

func TestPubSocketDropsDeadSubscribers(t *testing.T) {
	p, err := ListenPubSocket("zmq", "127.0.0.1:0", logging.Noop())
	if err != nil {
		t.Fatalf("ListenPubSocket: %v", err)
	}
	defer p.Close()

	sub, err := net.Dial("tcp", p.Addr().String())
	if err != nil {
		t.Fatalf("dial subscriber: %v", err)
	}
	waitSubscribers(t, p, 1)
	sub.Close()

	deadline := time.Now().Add(2 * time.Second)
	for p.SubscriberCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("dead subscriber never dropped")
		}
		if err := p.Publish(context.Background(), TopicRID, []byte("{}")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPubSocketTopicSender(t *testing.T) {
	p, err := ListenPubSocket("zmq", "127.0.0.1:0", logging.Noop())
	if err != nil {
		t.Fatalf("ListenPubSocket: %v", err)
	}
	defer p.Close()

	sub, err := net.Dial("tcp", p.Addr().String())
	if err != nil {
		t.Fatalf("dial subscriber: %v", err)
	}
	defer sub.Close()
	waitSubscribers(t, p, 1)

	s := p.Sender("zmq-rid", TopicRID)
	if s.Name() != "zmq-rid" {
		t.Fatalf("Name = %q, want \"zmq-rid\"", s.Name())
	}
	if err := s.Send(context.Background(), []byte(`[1,2,3]`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if line := readLine(t, sub); line != "DroneID [1,2,3]\n" {
		t.Fatalf("subscriber read %q", line)
	}
}

func startTCPServer(t *testing.T) (net.Listener, chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()
	return ln, accepted
}

func waitAccept(t *testing.T, accepted chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn := <-accepted:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func readN(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := conn.Read(buf[read:])
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		read += m
	}
	return string(buf)
}

func readLine(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return line
}

func waitSubscribers(t *testing.T, p *PubSocket, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", p.SubscriberCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
