// Package transport carries encoded telemetry to consumers: UDP sockets
// (unicast and multicast), TCP links, a line-framed publish socket, and a
// NATS broker.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/dragonsim/internal/logging"
)

// Sender delivers one payload to one destination.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
	Name() string
}

// SendError records one failed delivery during a Broadcast.
type SendError struct {
	Sender string
	Err    error
}

func (e SendError) Error() string { return fmt.Sprintf("%s: %v", e.Sender, e.Err) }

func (e SendError) Unwrap() error { return e.Err }

// Dispatcher fans payloads out to named senders. Delivery is best effort:
// Broadcast logs failures and reports them to the caller instead of
// aborting the fan-out.
type Dispatcher struct {
	mu      sync.Mutex
	senders map[string]Sender
	order   []string
	log     logging.Logger
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Noop()
	}
	return &Dispatcher{
		senders: make(map[string]Sender),
		log:     log,
	}
}

// Register adds a sender under its name, replacing any previous sender with
// the same name.
func (d *Dispatcher) Register(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := s.Name()
	if _, ok := d.senders[name]; !ok {
		d.order = append(d.order, name)
	}
	d.senders[name] = s
}

// Names returns the registered sender names in registration order.
func (d *Dispatcher) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Send delivers payload through one named sender.
func (d *Dispatcher) Send(ctx context.Context, name string, payload []byte) error {
	d.mu.Lock()
	s, ok := d.senders[name]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown sender %q", name)
	}
	return s.Send(ctx, payload)
}

// Broadcast delivers payload through the named senders, or through every
// registered sender when names is empty. Failures are logged and returned;
// the fan-out always visits every sender.
func (d *Dispatcher) Broadcast(ctx context.Context, payload []byte, names ...string) []SendError {
	if len(names) == 0 {
		names = d.Names()
	}

	var failed []SendError
	for _, name := range names {
		if err := d.Send(ctx, name, payload); err != nil {
			failed = append(failed, SendError{Sender: name, Err: err})
			d.log.Warn(ctx, "send failed",
				logging.String("sender", name),
				logging.Err(err),
			)
		}
	}
	return failed
}

// Close closes every registered sender and clears the dispatcher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	senders := make([]Sender, 0, len(d.order))
	for _, name := range d.order {
		senders = append(senders, d.senders[name])
	}
	d.senders = make(map[string]Sender)
	d.order = nil
	d.mu.Unlock()

	var errs []error
	for _, s := range senders {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
