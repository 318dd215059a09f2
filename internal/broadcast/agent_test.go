package broadcast

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/dragonsim/internal/observability"
	"github.com/signalsfoundry/dragonsim/internal/transport"
	"github.com/signalsfoundry/dragonsim/model"
	"github.com/signalsfoundry/dragonsim/timectrl"
)

// stubSource returns a fixed recognizable payload per format so tests can
// assert on sequence and routing without parsing real encodings.
type stubSource struct {
	failDrone  bool
	failFPV    bool
	failStatus bool
	fpvReady   bool
}

func (s *stubSource) DroneCoT(time.Time) ([]byte, error) {
	if s.failDrone {
		return nil, errors.New("drone encode failed")
	}
	return []byte("drone-cot"), nil
}

func (s *stubSource) PilotCoT(time.Time) ([]byte, error) { return []byte("pilot-cot"), nil }
func (s *stubSource) HomeCoT(time.Time) ([]byte, error)  { return []byte("home-cot"), nil }
func (s *stubSource) ESP32(time.Time) ([]byte, error)    { return []byte("rid-json"), nil }

func (s *stubSource) StatusCoT(time.Time) ([]byte, error) {
	if s.failStatus {
		return nil, errors.New("status source down")
	}
	return []byte("status-cot"), nil
}

func (s *stubSource) FPVDetection(time.Time) ([]byte, error) {
	if s.failFPV {
		return nil, errors.New("fpv encode failed")
	}
	s.fpvReady = true
	return []byte("fpv-detection"), nil
}

func (s *stubSource) FPVUpdate(time.Time) ([]byte, bool, error) {
	if !s.fpvReady {
		return nil, false, nil
	}
	return []byte("fpv-update"), true, nil
}

func (s *stubSource) BrokerSighting(time.Time) ([]byte, error) { return []byte("broker-drone"), nil }
func (s *stubSource) BrokerStatus(time.Time) ([]byte, error)   { return []byte("broker-status"), nil }
func (s *stubSource) BrokerSystem(time.Time) ([]byte, error)   { return []byte("broker-system"), nil }

type stubIdentities struct{}

func (stubIdentities) CurrentDrone() model.Identity {
	return model.Identity{UID: "3NZDJ1Y0010ABC", MAC: "AA:BB:CC:DD:EE:FF", Make: "DJI"}
}

func (stubIdentities) FPVSignal() float64 { return 1234 }

type captureSender struct {
	name    string
	sent    []string
	sendErr error
	closed  bool
}

func (c *captureSender) Name() string { return c.name }

func (c *captureSender) Send(_ context.Context, payload []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, string(payload))
	return nil
}

func (c *captureSender) Close() error {
	c.closed = true
	return nil
}

type frame struct {
	topic   string
	payload string
}

type capturePublisher struct {
	frames []frame
	pubErr error
	closed bool
}

func (c *capturePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	if c.pubErr != nil {
		return c.pubErr
	}
	c.frames = append(c.frames, frame{topic, string(payload)})
	return nil
}

func (c *capturePublisher) Close() error {
	c.closed = true
	return nil
}

type harness struct {
	agent  *Agent
	src    *stubSource
	cot    *captureSender
	status *captureSender
}

func newHarness(t *testing.T, cfg Config, mutate func(*Deps)) *harness {
	t.Helper()

	h := &harness{
		src:    &stubSource{},
		cot:    &captureSender{name: SenderCoT},
		status: &captureSender{name: SenderStatus},
	}
	disp := transport.NewDispatcher(nil)
	disp.Register(h.cot)
	disp.Register(h.status)

	deps := Deps{
		Source:     h.src,
		Identities: stubIdentities{},
		Dispatcher: disp,
	}
	if mutate != nil {
		mutate(&deps)
	}

	if cfg.MessageGap == 0 {
		cfg.MessageGap = -1
	}
	agent, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.agent = agent
	return h
}

func wantSent(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s got %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s got %v, want %v", label, got, want)
		}
	}
}

func TestCompleteScenarioSequence(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioComplete}, nil)

	h.agent.Tick(context.Background(), time.Now())

	wantSent(t, "cot sender", h.cot.sent, []string{"drone-cot", "pilot-cot", "home-cot"})
	wantSent(t, "status sender", h.status.sent, []string{"status-cot"})
}

func TestFPVScenarioDetectionThenUpdates(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioFPV}, nil)

	for i := 0; i < 3; i++ {
		h.agent.Tick(context.Background(), time.Now())
	}

	wantSent(t, "cot sender", h.cot.sent, []string{"fpv-detection", "fpv-update", "fpv-update"})
	if len(h.status.sent) != 0 {
		t.Fatalf("status sender got %v, want nothing", h.status.sent)
	}
}

func TestFPVScenarioSendsNothingWithoutLock(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioFPV}, nil)
	h.src.failFPV = true

	// The first-tick detection fails, so later ticks have no lock to
	// update and must stay silent rather than emit a malformed payload.
	for i := 0; i < 3; i++ {
		h.agent.Tick(context.Background(), time.Now())
	}

	if len(h.cot.sent) != 0 {
		t.Fatalf("cot sender got %v, want nothing", h.cot.sent)
	}
}

func TestMixedScenarioSequence(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioMixed}, nil)

	h.agent.Tick(context.Background(), time.Now())
	h.agent.Tick(context.Background(), time.Now())

	wantSent(t, "cot sender", h.cot.sent,
		[]string{"drone-cot", "fpv-detection", "drone-cot", "fpv-update"})
	wantSent(t, "status sender", h.status.sent, []string{"status-cot", "status-cot"})
}

func TestFlightScenarioSequence(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioFlight}, nil)

	h.agent.Tick(context.Background(), time.Now())

	wantSent(t, "cot sender", h.cot.sent, []string{"drone-cot"})
	wantSent(t, "status sender", h.status.sent, []string{"status-cot"})
}

func TestEverythingScenarioDrivesAllOutputs(t *testing.T) {
	tak := &captureSender{name: SenderTAK}
	broker := &capturePublisher{}
	pub := &capturePublisher{}
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewBroadcastCollector(reg)
	if err != nil {
		t.Fatalf("NewBroadcastCollector: %v", err)
	}

	h := newHarness(t, Config{Scenario: ScenarioEverything, BaseTopic: "wardragon"}, func(d *Deps) {
		d.Dispatcher.Register(tak)
		d.Broker = broker
		d.PubSocket = pub
		d.Metrics = metrics
	})

	h.agent.Tick(context.Background(), time.Now())

	wantSent(t, "cot sender", h.cot.sent,
		[]string{"drone-cot", "pilot-cot", "home-cot", "fpv-detection"})
	wantSent(t, "status sender", h.status.sent, []string{"status-cot"})
	wantSent(t, "tak sender", tak.sent, []string{"drone-cot"})

	wantFrames := []frame{
		{"wardragon/drones/3NZDJ1Y0010ABC", "broker-drone"},
		{"wardragon/status", "broker-status"},
		{"wardragon/system", "broker-system"},
	}
	if len(broker.frames) != len(wantFrames) {
		t.Fatalf("broker frames = %v, want %v", broker.frames, wantFrames)
	}
	for i, f := range wantFrames {
		if broker.frames[i] != f {
			t.Fatalf("broker frame %d = %v, want %v", i, broker.frames[i], f)
		}
	}

	wantPub := []frame{
		{transport.TopicFPV, "fpv-detection"},
		{transport.TopicRID, "rid-json"},
	}
	if len(pub.frames) != len(wantPub) {
		t.Fatalf("pub socket frames = %v, want %v", pub.frames, wantPub)
	}
	for i, f := range wantPub {
		if pub.frames[i] != f {
			t.Fatalf("pub socket frame %d = %v, want %v", i, pub.frames[i], f)
		}
	}

	if got := testutil.ToFloat64(metrics.FPVSignal); got != 1234 {
		t.Fatalf("fpv signal gauge = %v, want 1234", got)
	}
	if got := testutil.ToFloat64(metrics.MessagesSent.WithLabelValues("drone", "nats")); got != 1 {
		t.Fatalf("drone/nats counter = %v, want 1", got)
	}
}

func TestSendFailureContinuesSequence(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewBroadcastCollector(reg)
	if err != nil {
		t.Fatalf("NewBroadcastCollector: %v", err)
	}

	h := newHarness(t, Config{Scenario: ScenarioComplete}, func(d *Deps) {
		d.Metrics = metrics
	})
	h.cot.sendErr = fmt.Errorf("network unreachable")

	h.agent.Tick(context.Background(), time.Now())

	// drone, pilot, and home all fail on the cot sender; the status send
	// still goes out.
	wantSent(t, "status sender", h.status.sent, []string{"status-cot"})
	if got := testutil.ToFloat64(metrics.SendErrors.WithLabelValues(SenderCoT)); got != 3 {
		t.Fatalf("cot send errors = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.MessagesSent.WithLabelValues("status", SenderStatus)); got != 1 {
		t.Fatalf("status counter = %v, want 1", got)
	}
}

func TestEncodeFailureSkipsMessage(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioComplete}, nil)
	h.src.failDrone = true

	h.agent.Tick(context.Background(), time.Now())

	wantSent(t, "cot sender", h.cot.sent, []string{"pilot-cot", "home-cot"})
	wantSent(t, "status sender", h.status.sent, []string{"status-cot"})
}

func TestEverythingSkipsTAKWhenDroneEncodeFails(t *testing.T) {
	tak := &captureSender{name: SenderTAK}
	h := newHarness(t, Config{Scenario: ScenarioEverything}, func(d *Deps) {
		d.Dispatcher.Register(tak)
	})
	h.src.failDrone = true

	h.agent.Tick(context.Background(), time.Now())

	if len(tak.sent) != 0 {
		t.Fatalf("tak sender got %v, want nothing", tak.sent)
	}
}

func TestNewRequiresCoTAndStatusSenders(t *testing.T) {
	src := &stubSource{}
	disp := transport.NewDispatcher(nil)
	disp.Register(&captureSender{name: SenderCoT})

	_, err := New(Config{}, Deps{Source: src, Identities: stubIdentities{}, Dispatcher: disp})
	if err == nil {
		t.Fatal("expected error for missing status sender")
	}
}

func TestNewRejectsUnknownScenario(t *testing.T) {
	src := &stubSource{}
	disp := transport.NewDispatcher(nil)
	disp.Register(&captureSender{name: SenderCoT})
	disp.Register(&captureSender{name: SenderStatus})

	_, err := New(Config{Scenario: "warp"}, Deps{Source: src, Identities: stubIdentities{}, Dispatcher: disp})
	if err == nil {
		t.Fatal("expected error for unknown scenario")
	}
}

func TestRunDrivesTicksFromController(t *testing.T) {
	h := newHarness(t, Config{Scenario: ScenarioFlight}, nil)

	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	tc := timectrl.NewTimeController(start, time.Second, timectrl.Accelerated)

	h.agent.Run(context.Background(), tc, 3*time.Second)

	wantSent(t, "cot sender", h.cot.sent, []string{"drone-cot", "drone-cot", "drone-cot"})
}

func TestCloseClosesTransports(t *testing.T) {
	broker := &capturePublisher{}
	pub := &capturePublisher{}
	h := newHarness(t, Config{}, func(d *Deps) {
		d.Broker = broker
		d.PubSocket = pub
	})

	if err := h.agent.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !h.cot.closed || !h.status.closed {
		t.Fatal("dispatcher senders not closed")
	}
	if !broker.closed || !pub.closed {
		t.Fatal("broker or pub socket not closed")
	}
}
