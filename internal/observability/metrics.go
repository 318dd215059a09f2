package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BroadcastCollector bundles Prometheus metrics for the broadcast pipeline
// and exposes a ready-made /metrics handler.
type BroadcastCollector struct {
	gatherer prometheus.Gatherer

	MessagesSent *prometheus.CounterVec
	SendErrors   *prometheus.CounterVec
	TickDuration prometheus.Histogram

	FleetAircraft prometheus.Gauge
	FPVSignal     prometheus.Gauge
}

// NewBroadcastCollector registers broadcast Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewBroadcastCollector(reg prometheus.Registerer) (*BroadcastCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_messages_total",
		Help: "Total number of telemetry messages sent, labeled by payload format and transport.",
	}, []string{"format", "transport"})
	messages, err := registerCounterVec(reg, messages, "broadcast_messages_total")
	if err != nil {
		return nil, err
	}

	sendErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_send_errors_total",
		Help: "Total number of failed sends, labeled by transport.",
	}, []string{"transport"})
	sendErrors, err = registerCounterVec(reg, sendErrors, "broadcast_send_errors_total")
	if err != nil {
		return nil, err
	}

	tickDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broadcast_tick_duration_seconds",
		Help:    "Wall time spent generating and sending one broadcast tick.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}), "broadcast_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	fleet, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adsb_fleet_aircraft",
		Help: "Current number of simulated ADS-B aircraft.",
	}), "adsb_fleet_aircraft")
	if err != nil {
		return nil, err
	}
	fpvSignal, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fpv_signal_strength",
		Help: "Signal strength of the tracked FPV detection.",
	}), "fpv_signal_strength")
	if err != nil {
		return nil, err
	}

	return &BroadcastCollector{
		gatherer:      gatherer,
		MessagesSent:  messages,
		SendErrors:    sendErrors,
		TickDuration:  tickDuration,
		FleetAircraft: fleet,
		FPVSignal:     fpvSignal,
	}, nil
}

// RecordMessage counts one sent payload.
func (c *BroadcastCollector) RecordMessage(format, transport string) {
	if c == nil || c.MessagesSent == nil {
		return
	}
	c.MessagesSent.WithLabelValues(format, transport).Inc()
}

// RecordSendError counts one failed send.
func (c *BroadcastCollector) RecordSendError(transport string) {
	if c == nil || c.SendErrors == nil {
		return
	}
	c.SendErrors.WithLabelValues(transport).Inc()
}

// ObserveTick records the wall time of one broadcast tick.
func (c *BroadcastCollector) ObserveTick(d time.Duration) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// SetFleetSize records the current ADS-B fleet size.
func (c *BroadcastCollector) SetFleetSize(n int) {
	if c == nil || c.FleetAircraft == nil {
		return
	}
	c.FleetAircraft.Set(float64(n))
}

// SetFPVSignal records the latest FPV signal strength.
func (c *BroadcastCollector) SetFPVSignal(v float64) {
	if c == nil || c.FPVSignal == nil {
		return
	}
	c.FPVSignal.Set(v)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *BroadcastCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
