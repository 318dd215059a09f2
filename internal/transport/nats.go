package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/signalsfoundry/dragonsim/internal/logging"
)

// NATSPublisher publishes payloads to a NATS broker. Topics keep the
// MQTT-style slash layout at the call site and are mapped to NATS subjects
// by replacing slashes with dots.
type NATSPublisher struct {
	nc  *nats.Conn
	log logging.Logger
}

// ConnectNATS dials url and keeps reconnecting forever on connection loss.
func ConnectNATS(url string, log logging.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = logging.Noop()
	}

	nc, err := nats.Connect(url,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn(context.Background(), "nats error", logging.Err(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", logging.Err(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(context.Background(), "nats reconnected",
				logging.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, log: log}, nil
}

// Publish sends payload to the subject derived from topic. Each message
// carries a Nats-Msg-Id header so brokers with dedup windows can drop
// replays.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := nats.NewMsg(SubjectForTopic(topic))
	msg.Data = payload
	msg.Header.Set("Nats-Msg-Id", uuid.NewString())
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

// Sender returns a Sender bound to one topic.
func (p *NATSPublisher) Sender(name, topic string) Sender {
	return &natsTopicSender{name: name, topic: topic, pub: p}
}

// Flush waits for buffered publishes to reach the server.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	return p.nc.FlushWithContext(ctx)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

// SubjectForTopic maps an MQTT-style topic to a NATS subject:
// "wardragon/drones/x" becomes "wardragon.drones.x".
func SubjectForTopic(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

type natsTopicSender struct {
	name  string
	topic string
	pub   *NATSPublisher
}

func (s *natsTopicSender) Name() string { return s.name }

func (s *natsTopicSender) Send(ctx context.Context, payload []byte) error {
	return s.pub.Publish(ctx, s.topic, payload)
}

// Close is a no-op; the owning publisher is closed separately since several
// topic senders can share one connection.
func (s *natsTopicSender) Close() error { return nil }
