package tests

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/dragonsim/core"
	"github.com/signalsfoundry/dragonsim/internal/broadcast"
	"github.com/signalsfoundry/dragonsim/internal/logging"
	"github.com/signalsfoundry/dragonsim/internal/observability"
	"github.com/signalsfoundry/dragonsim/internal/sysmon"
	"github.com/signalsfoundry/dragonsim/internal/transport"
	"github.com/signalsfoundry/dragonsim/registry"
	"github.com/signalsfoundry/dragonsim/timectrl"
	"github.com/signalsfoundry/dragonsim/wire"
)

// broadcastTestEnv wires a real generator and agent to real sockets: a UDP
// listener standing in for the multicast group, a TCP listener standing in
// for a TAK server, an embedded NATS broker, and a pub socket subscriber.
type broadcastTestEnv struct {
	reg   *registry.Registry
	agent *broadcast.Agent

	udp     *datagramCapture
	tak     *streamCapture
	natsSub *nats.Subscription
	pubSub  net.Conn
}

func newBroadcastTestEnv(t *testing.T, scenario broadcast.Scenario) *broadcastTestEnv {
	t.Helper()
	log := logging.Noop()

	udp := startDatagramCapture(t)
	tak := startStreamCapture(t)

	natsURL := startNATSServer(t)
	broker, err := transport.ConnectNATS(natsURL, log)
	if err != nil {
		t.Fatalf("ConnectNATS: %v", err)
	}
	nc, err := nats.Connect(natsURL)
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	t.Cleanup(nc.Close)
	natsSub, err := nc.SubscribeSync("wardragon.>")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush subscription: %v", err)
	}

	pub, err := transport.ListenPubSocket("pubsock", "127.0.0.1:0", log)
	if err != nil {
		t.Fatalf("ListenPubSocket: %v", err)
	}
	pubSub, err := net.Dial("tcp", pub.Addr().String())
	if err != nil {
		t.Fatalf("dial pub socket: %v", err)
	}
	t.Cleanup(func() { pubSub.Close() })
	deadline := time.Now().Add(2 * time.Second)
	for pub.SubscriberCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("pub socket subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now().UTC()
	reg := registry.New([]string{"e2e-alpha", "e2e-bravo", "e2e-charlie"}, nil)
	gen := core.NewGenerator(core.GeneratorConfig{Start: start}, reg, sysmon.NewSyntheticMonitor(start))

	disp := transport.NewDispatcher(log)
	disp.Register(transport.NewUDPSender(broadcast.SenderCoT, udp.addr()))
	disp.Register(transport.NewUDPSender(broadcast.SenderStatus, udp.addr()))
	disp.Register(transport.NewTCPSender(broadcast.SenderTAK, tak.addr()))

	collector, err := observability.NewBroadcastCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewBroadcastCollector: %v", err)
	}

	agent, err := broadcast.New(broadcast.Config{
		Scenario:   scenario,
		Interval:   time.Second,
		MessageGap: -1,
	}, broadcast.Deps{
		Source:     gen,
		Identities: reg,
		Dispatcher: disp,
		Broker:     broker,
		PubSocket:  pub,
		Metrics:    collector,
		Log:        log,
	})
	if err != nil {
		t.Fatalf("broadcast.New: %v", err)
	}

	return &broadcastTestEnv{reg: reg, agent: agent, udp: udp, tak: tak, natsSub: natsSub, pubSub: pubSub}
}

// run drives ticks accelerated clock ticks through the agent and closes the
// transports so every buffered publish is flushed before assertions run.
func (env *broadcastTestEnv) run(t *testing.T, ticks int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tc := timectrl.NewTimeController(time.Now().UTC(), time.Second, timectrl.Accelerated)
	env.agent.Run(ctx, tc, time.Duration(ticks)*time.Second)
	if err := env.agent.Close(); err != nil {
		t.Fatalf("agent close: %v", err)
	}
}

func TestEndToEndEverythingScenario(t *testing.T) {
	env := newBroadcastTestEnv(t, broadcast.ScenarioEverything)
	env.run(t, 3)

	// 3 ticks, each one drone + pilot + home + status CoT plus one FPV
	// JSON frame, all on the shared UDP port.
	grams := env.udp.waitFor(t, 15)
	var drones, pilots, homes, statuses, fpv int
	for _, gram := range grams {
		ev, err := wire.ParseEvent(gram)
		if err != nil {
			if !bytes.Contains(gram, []byte("FPV Detection")) && !bytes.Contains(gram, []byte("AUX_ADV_IND")) {
				t.Fatalf("unrecognized datagram %q", gram)
			}
			fpv++
			continue
		}
		switch {
		case strings.HasPrefix(ev.UID, "pilot-"):
			pilots++
		case strings.HasPrefix(ev.UID, "home-"):
			homes++
		case strings.HasPrefix(ev.UID, "wardragon-"):
			statuses++
		default:
			drones++
		}
	}
	if drones != 3 || pilots != 3 || homes != 3 || statuses != 3 || fpv != 3 {
		t.Fatalf("datagram mix drone=%d pilot=%d home=%d status=%d fpv=%d, want 3 of each",
			drones, pilots, homes, statuses, fpv)
	}

	// The TAK stream carries the same drone events over TCP. The drone
	// message advances the serial pool, so tick one broadcasts the second
	// serial.
	takBody := env.tak.waitForEvents(t, 3)
	if !strings.Contains(takBody, "e2e-bravo") {
		t.Fatalf("tak stream missing tick-one drone uid: %q", takBody)
	}

	// Broker publishes: per tick a sighting, a status, and a system frame.
	subjects := map[string]int{}
	for i := 0; i < 9; i++ {
		msg, err := env.natsSub.NextMsg(2 * time.Second)
		if err != nil {
			t.Fatalf("nats message %d: %v", i, err)
		}
		switch {
		case strings.HasPrefix(msg.Subject, "wardragon.drones."):
			subjects["drones"]++
			if !bytes.Contains(msg.Data, []byte(`"mac"`)) {
				t.Fatalf("sighting payload missing mac: %s", msg.Data)
			}
		case msg.Subject == "wardragon.status":
			subjects["status"]++
		case msg.Subject == "wardragon.system":
			subjects["system"]++
		default:
			t.Fatalf("unexpected subject %q", msg.Subject)
		}
	}
	if subjects["drones"] != 3 || subjects["status"] != 3 || subjects["system"] != 3 {
		t.Fatalf("broker mix = %v, want 3 of each", subjects)
	}

	// Pub socket: one mirrored FPV frame and one Remote ID frame per tick.
	var rid, aux int
	reader := bufio.NewReader(env.pubSub)
	for i := 0; i < 6; i++ {
		env.pubSub.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("pub socket frame %d: %v", i, err)
		}
		switch {
		case strings.HasPrefix(line, transport.TopicRID+" "):
			rid++
		case strings.HasPrefix(line, transport.TopicFPV+" "):
			aux++
		default:
			t.Fatalf("unexpected pub frame %q", line)
		}
	}
	if rid != 3 || aux != 3 {
		t.Fatalf("pub socket mix rid=%d aux=%d, want 3 of each", rid, aux)
	}
}

func TestEndToEndCompleteScenarioOrdersTrackSet(t *testing.T) {
	env := newBroadcastTestEnv(t, broadcast.ScenarioComplete)
	env.run(t, 2)

	grams := env.udp.waitFor(t, 8)

	// Drone, pilot and home leave the same socket in sequence, so their
	// relative arrival order is stable on loopback.
	var trackUIDs []string
	statuses := 0
	for _, gram := range grams {
		ev, err := wire.ParseEvent(gram)
		if err != nil {
			t.Fatalf("parse datagram: %v", err)
		}
		if strings.HasPrefix(ev.UID, "wardragon-") {
			statuses++
			continue
		}
		trackUIDs = append(trackUIDs, ev.UID)
	}
	if statuses != 2 {
		t.Fatalf("status events = %d, want 2", statuses)
	}
	want := []string{"e2e-bravo", "pilot-e2e-bravo", "home-e2e-bravo"}
	if len(trackUIDs) != 6 {
		t.Fatalf("track events = %d, want 6", len(trackUIDs))
	}
	for i, uid := range trackUIDs[:3] {
		if uid != want[i] {
			t.Fatalf("track order[%d] = %q, want %q", i, uid, want[i])
		}
	}
}

// datagramCapture records every UDP datagram sent to it.
type datagramCapture struct {
	conn net.PacketConn

	mu    sync.Mutex
	grams [][]byte
}

func startDatagramCapture(t *testing.T) *datagramCapture {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	c := &datagramCapture{conn: conn}
	go c.loop()
	t.Cleanup(func() { conn.Close() })
	return c
}

func (c *datagramCapture) addr() string { return c.conn.LocalAddr().String() }

func (c *datagramCapture) loop() {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := c.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		gram := make([]byte, n)
		copy(gram, buf[:n])
		c.mu.Lock()
		c.grams = append(c.grams, gram)
		c.mu.Unlock()
	}
}

func (c *datagramCapture) waitFor(t *testing.T, want int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.grams)
		c.mu.Unlock()
		if got >= want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d datagrams, want %d", got, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.grams))
	copy(out, c.grams)
	return out
}

// streamCapture accepts TCP connections and accumulates everything written
// to them.
type streamCapture struct {
	ln net.Listener

	mu  sync.Mutex
	buf bytes.Buffer
}

func startStreamCapture(t *testing.T) *streamCapture {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	s := &streamCapture{ln: ln}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *streamCapture) addr() string { return s.ln.Addr().String() }

func (s *streamCapture) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			buf := make([]byte, 32*1024)
			for {
				n, err := c.Read(buf)
				if n > 0 {
					s.mu.Lock()
					s.buf.Write(buf[:n])
					s.mu.Unlock()
				}
				if err != nil {
					return
				}
			}
		}(conn)
	}
}

func (s *streamCapture) waitForEvents(t *testing.T, want int) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		s.mu.Lock()
		body := s.buf.String()
		s.mu.Unlock()
		if strings.Count(body, "<event") >= want {
			return body
		}
		if time.Now().After(deadline) {
			t.Fatalf("tak stream has %d events, want %d: %q", strings.Count(body, "<event"), want, body)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startNATSServer(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("new nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("nats server not ready for connections")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}
