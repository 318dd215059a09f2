// Package broadcast drives the periodic message sequences of a simulated
// detection session. Each controller tick the agent renders the scenario's
// payloads and hands them to the transports. Delivery is best effort: an
// encode or send failure skips that message and the sequence continues.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/dragonsim/internal/logging"
	"github.com/signalsfoundry/dragonsim/internal/observability"
	"github.com/signalsfoundry/dragonsim/internal/transport"
	"github.com/signalsfoundry/dragonsim/model"
	"github.com/signalsfoundry/dragonsim/timectrl"
)

const tracerName = "github.com/signalsfoundry/dragonsim/internal/broadcast"

// Sender names the command wires into the dispatcher. The cot sender
// carries drone, pilot, home, and FPV messages; the status sender carries
// ground-station health; the tak sender feeds a CoT server directly.
const (
	SenderCoT    = "cot"
	SenderStatus = "status"
	SenderTAK    = "tak"
)

// MessageSource produces the payloads a scenario sends. *core.Generator
// implements it.
type MessageSource interface {
	DroneCoT(t time.Time) ([]byte, error)
	PilotCoT(t time.Time) ([]byte, error)
	HomeCoT(t time.Time) ([]byte, error)
	StatusCoT(t time.Time) ([]byte, error)
	ESP32(t time.Time) ([]byte, error)
	FPVDetection(t time.Time) ([]byte, error)
	FPVUpdate(t time.Time) (payload []byte, ok bool, err error)
	BrokerSighting(t time.Time) ([]byte, error)
	BrokerStatus(t time.Time) ([]byte, error)
	BrokerSystem(t time.Time) ([]byte, error)
}

// IdentitySource reports session identity state the agent needs for broker
// topics and gauges. *registry.Registry implements it.
type IdentitySource interface {
	CurrentDrone() model.Identity
	FPVSignal() float64
}

// TopicPublisher pushes topic-framed payloads to subscribers. Both
// *transport.PubSocket and *transport.NATSPublisher implement it.
type TopicPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Deps are the collaborators an Agent drives. Source, Identities, and
// Dispatcher are required; the rest are optional.
type Deps struct {
	Source     MessageSource
	Identities IdentitySource
	Dispatcher *transport.Dispatcher
	// Broker receives drones/status/system publishes in the everything
	// scenario.
	Broker TopicPublisher
	// PubSocket receives the Remote ID and FPV topic frames.
	PubSocket TopicPublisher
	Metrics   *observability.BroadcastCollector
	Log       logging.Logger
}

// Agent owns one broadcast session: it runs the configured scenario once
// per tick and closes the transports when the session ends. Tick is driven
// from a single controller goroutine, so the agent keeps no locks of its
// own.
type Agent struct {
	cfg     Config
	src     MessageSource
	ids     IdentitySource
	disp    *transport.Dispatcher
	broker  TopicPublisher
	pub     TopicPublisher
	metrics *observability.BroadcastCollector
	log     logging.Logger
	tracer  trace.Tracer

	ticks int
}

// New builds an Agent over its collaborators. The dispatcher must already
// carry the cot and status senders so a misconfigured command fails at
// startup instead of logging unknown-sender errors every tick.
func New(cfg Config, deps Deps) (*Agent, error) {
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil || deps.Identities == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("broadcast: source, identities, and dispatcher are required")
	}
	names := deps.Dispatcher.Names()
	for _, want := range []string{SenderCoT, SenderStatus} {
		if !slices.Contains(names, want) {
			return nil, fmt.Errorf("broadcast: dispatcher has no %q sender", want)
		}
	}

	log := deps.Log
	if log == nil {
		log = logging.Noop()
	}
	return &Agent{
		cfg:     cfg,
		src:     deps.Source,
		ids:     deps.Identities,
		disp:    deps.Dispatcher,
		broker:  deps.Broker,
		pub:     deps.PubSocket,
		metrics: deps.Metrics,
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Run registers the agent on the controller and blocks until the controller
// stops: the duration elapses or ctx is cancelled. Call before any other
// listener registration has started the controller.
func (a *Agent) Run(ctx context.Context, tc *timectrl.TimeController, duration time.Duration) {
	tc.AddListener(func(simTime time.Time) { a.Tick(ctx, simTime) })
	<-tc.Start(ctx, duration)
}

// Close releases the transports the agent drives.
func (a *Agent) Close() error {
	var errs []error
	if err := a.disp.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close broker: %w", err))
		}
	}
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pub socket: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Tick runs one scenario sequence at simulation time t.
func (a *Agent) Tick(ctx context.Context, t time.Time) {
	a.ticks++
	ctx, span := a.tracer.Start(ctx, "broadcast.tick", trace.WithAttributes(
		attribute.String("scenario", string(a.cfg.Scenario)),
		attribute.Int("tick", a.ticks),
	))
	defer span.End()

	started := time.Now()
	defer func() { a.metrics.ObserveTick(time.Since(started)) }()

	switch a.cfg.Scenario {
	case ScenarioComplete:
		a.runTrackSet(ctx, t, a.cfg.MessageGap)
	case ScenarioFPV:
		a.sendFPV(ctx, t)
	case ScenarioMixed:
		a.runMixed(ctx, t)
	case ScenarioFlight:
		a.runFlight(ctx, t)
	case ScenarioEverything:
		a.runEverything(ctx, t)
	}

	a.publishRID(ctx, t)
}

// runTrackSet sends the drone, pilot, and home tracks then the status
// event, pausing gap between messages. It returns the drone payload so the
// everything sequence can reuse it for the TAK feed.
func (a *Agent) runTrackSet(ctx context.Context, t time.Time, gap time.Duration) []byte {
	drone := a.encode(ctx, "drone", func() ([]byte, error) { return a.src.DroneCoT(t) })
	if drone != nil {
		a.send(ctx, SenderCoT, "drone", drone)
	}
	a.pause(ctx, gap)
	if p := a.encode(ctx, "pilot", func() ([]byte, error) { return a.src.PilotCoT(t) }); p != nil {
		a.send(ctx, SenderCoT, "pilot", p)
	}
	a.pause(ctx, gap)
	if p := a.encode(ctx, "home", func() ([]byte, error) { return a.src.HomeCoT(t) }); p != nil {
		a.send(ctx, SenderCoT, "home", p)
	}
	a.pause(ctx, gap)
	a.sendStatus(ctx, t)
	return drone
}

func (a *Agent) runMixed(ctx context.Context, t time.Time) {
	if p := a.encode(ctx, "drone", func() ([]byte, error) { return a.src.DroneCoT(t) }); p != nil {
		a.send(ctx, SenderCoT, "drone", p)
	}
	a.pause(ctx, a.cfg.MessageGap)
	a.sendFPV(ctx, t)
	a.pause(ctx, a.cfg.MessageGap)
	a.sendStatus(ctx, t)
}

func (a *Agent) runFlight(ctx context.Context, t time.Time) {
	if p := a.encode(ctx, "drone", func() ([]byte, error) { return a.src.DroneCoT(t) }); p != nil {
		a.send(ctx, SenderCoT, "drone", p)
	}
	a.pause(ctx, a.cfg.MessageGap/2)
	a.sendStatus(ctx, t)
}

func (a *Agent) runEverything(ctx context.Context, t time.Time) {
	gap := a.cfg.MessageGap / 2
	drone := a.runTrackSet(ctx, t, gap)
	a.pause(ctx, gap)
	a.sendFPV(ctx, t)
	a.publishBroker(ctx, t)
	if drone != nil && a.hasSender(SenderTAK) {
		a.send(ctx, SenderTAK, "drone", drone)
	}
}

// sendFPV sends a detection on the first tick and updates after. An update
// before any detection exists is "no message", not an error.
func (a *Agent) sendFPV(ctx context.Context, t time.Time) {
	var payload []byte
	if a.ticks <= 1 {
		payload = a.encode(ctx, "fpv", func() ([]byte, error) { return a.src.FPVDetection(t) })
	} else {
		p, ok, err := a.src.FPVUpdate(t)
		if err != nil {
			a.skip(ctx, "fpv", err)
			return
		}
		if !ok {
			return
		}
		payload = p
	}
	if payload == nil {
		return
	}

	a.send(ctx, SenderCoT, "fpv", payload)
	if a.pub != nil {
		a.publish(ctx, a.pub, "pubsock", transport.TopicFPV, "fpv", payload)
	}
	a.metrics.SetFPVSignal(a.ids.FPVSignal())
}

func (a *Agent) sendStatus(ctx context.Context, t time.Time) {
	if p := a.encode(ctx, "status", func() ([]byte, error) { return a.src.StatusCoT(t) }); p != nil {
		a.send(ctx, SenderStatus, "status", p)
	}
}

// publishRID mirrors the drone feed onto the pub socket's Remote ID topic
// in the sniffer JSON form. It runs every tick regardless of scenario so a
// pub-socket subscriber sees a continuous feed.
func (a *Agent) publishRID(ctx context.Context, t time.Time) {
	if a.pub == nil {
		return
	}
	if p := a.encode(ctx, "rid", func() ([]byte, error) { return a.src.ESP32(t) }); p != nil {
		a.publish(ctx, a.pub, "pubsock", transport.TopicRID, "rid", p)
	}
}

// publishBroker pushes the drone sighting, kit status, and system summary
// to the broker under the configured base topic.
func (a *Agent) publishBroker(ctx context.Context, t time.Time) {
	if a.broker == nil {
		return
	}
	uid := a.ids.CurrentDrone().UID
	if p := a.encode(ctx, "drone", func() ([]byte, error) { return a.src.BrokerSighting(t) }); p != nil {
		a.publish(ctx, a.broker, "nats", a.cfg.BaseTopic+"/drones/"+uid, "drone", p)
	}
	if p := a.encode(ctx, "status", func() ([]byte, error) { return a.src.BrokerStatus(t) }); p != nil {
		a.publish(ctx, a.broker, "nats", a.cfg.BaseTopic+"/status", "status", p)
	}
	if p := a.encode(ctx, "system", func() ([]byte, error) { return a.src.BrokerSystem(t) }); p != nil {
		a.publish(ctx, a.broker, "nats", a.cfg.BaseTopic+"/system", "system", p)
	}
}

func (a *Agent) send(ctx context.Context, sender, format string, payload []byte) {
	if err := a.disp.Send(ctx, sender, payload); err != nil {
		a.metrics.RecordSendError(sender)
		trace.SpanFromContext(ctx).RecordError(err)
		a.log.Warn(ctx, "send failed",
			logging.String("transport", sender),
			logging.String("format", format),
			logging.Err(err))
		return
	}
	a.metrics.RecordMessage(format, sender)
}

func (a *Agent) publish(ctx context.Context, dst TopicPublisher, transportName, topic, format string, payload []byte) {
	if err := dst.Publish(ctx, topic, payload); err != nil {
		a.metrics.RecordSendError(transportName)
		trace.SpanFromContext(ctx).RecordError(err)
		a.log.Warn(ctx, "publish failed",
			logging.String("transport", transportName),
			logging.String("topic", topic),
			logging.Err(err))
		return
	}
	a.metrics.RecordMessage(format, transportName)
}

// encode runs one encoder, logging and skipping on failure.
func (a *Agent) encode(ctx context.Context, format string, f func() ([]byte, error)) []byte {
	payload, err := f()
	if err != nil {
		a.skip(ctx, format, err)
		return nil
	}
	return payload
}

func (a *Agent) skip(ctx context.Context, format string, err error) {
	a.log.Warn(ctx, "encode failed, skipping message",
		logging.String("format", format),
		logging.Err(err))
}

// pause sleeps d inside a tick, returning early on cancel. The gaps keep
// the on-wire pacing consumers expect between messages of one sequence.
func (a *Agent) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (a *Agent) hasSender(name string) bool {
	return slices.Contains(a.disp.Names(), name)
}
