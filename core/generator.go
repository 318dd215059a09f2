package core

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
	"github.com/signalsfoundry/dragonsim/registry"
	"github.com/signalsfoundry/dragonsim/wire"
)

// StatusSource supplies ground-station system stats for status events.
type StatusSource interface {
	Stats() (model.SystemStats, error)
}

// Registration-lookup pools. The CoT and generic feeds report authorities
// upper-case; the ESP32 feed reports lookup backends lower-case. The generic
// feed also models failed lookups, so its pools include Unknown.
var (
	ridMakes  = []string{"DJI", "Autel", "Skydio", "Parrot"}
	ridModels = []string{"Mavic 3", "Mini 4 Pro", "Air 3", "EVO II", "X2"}

	cotRIDSources   = []string{"FAA", "EASA", "CAA"}
	esp32RIDSources = []string{"faa", "dronedb", "caa"}

	genericRIDMakes    = []string{"DJI", "Autel", "Skydio", "Parrot", "Unknown"}
	genericRIDModels   = []string{"Mavic 3", "Mini 4 Pro", "Air 3", "EVO II", "X2", "Unknown"}
	genericRIDSources  = []string{"FAA", "EASA", "CAA", "Unknown"}
	genericRIDTracking = []string{"Active", "Lost", "Unknown"}
	genericRIDStatus   = []string{"Valid", "Expired", "Unknown"}
)

// genericMAC is the fixed address generic Remote ID receivers report for
// every frame.
const genericMAC = "8e:3b:93:22:33:fa"

// defaultBrokerDevice names the kit in broker status messages when the
// profile does not set one.
const defaultBrokerDevice = "wardragon_test"

// GeneratorConfig shapes a Generator. Zero values fall back to defaults.
type GeneratorConfig struct {
	// Area is the flight area. Zero: DefaultArea.
	Area Area
	// TimeScale overrides the drone pattern's phase rate. Zero: 0.1.
	TimeScale float64
	// Start anchors runtime counters. Zero: time.Now().
	Start time.Time
	// Device names this kit in broker status messages. Zero:
	// "wardragon_test".
	Device string
}

// Generator turns wall-clock time into ready-to-send payloads. It owns no
// transport: callers hand the bytes to a dispatcher. All per-message
// randomness (enrichment draws, jitter) happens here so the trajectory
// models and encoders stay deterministic.
type Generator struct {
	area   Area
	reg    *registry.Registry
	status StatusSource
	start  time.Time
	device string

	drone *FigureEight
	pilot *PilotDrift
	home  *HomeDrift
}

// NewGenerator wires trajectories for the configured area to the registry
// and status source.
func NewGenerator(cfg GeneratorConfig, reg *registry.Registry, status StatusSource) *Generator {
	if cfg.Area == (Area{}) {
		cfg.Area = DefaultArea
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	if cfg.Device == "" {
		cfg.Device = defaultBrokerDevice
	}

	drone := NewFigureEight(cfg.Area)
	if cfg.TimeScale > 0 {
		drone.TimeScale = cfg.TimeScale
	}

	return &Generator{
		area:   cfg.Area,
		reg:    reg,
		status: status,
		start:  cfg.Start,
		device: cfg.Device,
		drone:  drone,
		pilot:  NewPilotDrift(cfg.Area),
		home:   NewHomeDrift(cfg.Area),
	}
}

// DroneCoT advances to the next drone in the pool and renders its track
// event at t.
func (g *Generator) DroneCoT(t time.Time) ([]byte, error) {
	id := g.reg.NextDrone()
	kin := g.drone.At(t)

	return wire.EncodeDroneCoT(t, wire.DroneTelemetry{
		UID:        id.UID,
		MAC:        id.MAC,
		RSSI:       g.droneRSSI(t),
		Kinematics: kin,
		Index:      1 + rand.Intn(100),
		RuntimeSec: g.runtimeSec(t),
		Enrichment: g.drawEnrichment(t, cotRIDSources),
	})
}

// PilotCoT renders the pilot marker for the current drone at t.
func (g *Generator) PilotCoT(t time.Time) ([]byte, error) {
	id := g.reg.CurrentDrone()
	return wire.EncodePilotCoT(t, wire.OperatorPoint{
		UID:        id.PilotUID(),
		DroneUID:   id.UID,
		Kinematics: g.pilot.At(t),
	})
}

// HomeCoT renders the home/takeoff marker for the current drone at t.
func (g *Generator) HomeCoT(t time.Time) ([]byte, error) {
	id := g.reg.CurrentDrone()
	return wire.EncodeHomeCoT(t, wire.OperatorPoint{
		UID:        id.HomeUID(),
		DroneUID:   id.UID,
		Kinematics: g.home.At(t),
	})
}

// StatusCoT renders a ground-station health event with stats from the
// status source. The station jitters around the area center rather than
// following a pattern.
func (g *Generator) StatusCoT(t time.Time) ([]byte, error) {
	if g.status == nil {
		return nil, fmt.Errorf("status source not configured")
	}
	stats, err := g.status.Stats()
	if err != nil {
		return nil, fmt.Errorf("collect status: %w", err)
	}

	centerLat, centerLon := g.area.Center()
	uid := fmt.Sprintf("wardragon-%d", 100+rand.Intn(3))

	return wire.EncodeStatusCoT(t, wire.StatusReport{
		UID: uid,
		Kinematics: model.Kinematics{
			Lat:    centerLat + jitter(0.0001),
			Lon:    centerLon + jitter(0.0001),
			AltHAE: 50 + jitter(5),
			Speed:  round2(rand.Float64() * 25),
			Course: wrapCourse(round1(rand.Float64() * 360)),
		},
		Stats:      stats,
		ObservedAt: unixSeconds(t),
	})
}

// ESP32 advances to the next drone and renders the sniffer-format frame for
// the same figure-eight state the CoT feed reports.
func (g *Generator) ESP32(t time.Time) ([]byte, error) {
	id := g.reg.NextDrone()
	centerLat, centerLon := g.area.Center()

	return wire.EncodeESP32(t, wire.ESP32Telemetry{
		UID:        id.UID,
		MAC:        id.MAC,
		RSSI:       g.droneRSSI(t),
		Kinematics: g.drone.At(t),
		CenterLat:  centerLat,
		CenterLon:  centerLon,
		Enrichment: g.drawEnrichment(t, esp32RIDSources),
	})
}

// Generic renders the three-element receiver array with an indented body.
// The generic feed models an anonymous passing drone: random position in
// the area, throwaway serial, fixed receiver MAC.
func (g *Generator) Generic(t time.Time) ([]byte, error) {
	return wire.EncodeGeneric(t, g.genericTelemetry(t))
}

// GenericCompact is Generic on a single line, for datagram transports.
func (g *Generator) GenericCompact(t time.Time) ([]byte, error) {
	return wire.EncodeGenericCompact(t, g.genericTelemetry(t))
}

func (g *Generator) genericTelemetry(t time.Time) wire.GenericTelemetry {
	return wire.GenericTelemetry{
		ID:   fmt.Sprintf("%d%c291", 10000000+rand.Intn(90000000), 'A'+rune(rand.Intn(26))),
		MAC:  genericMAC,
		RSSI: -90 + rand.Intn(51),
		Kinematics: model.Kinematics{
			Lat:       g.area.LatMin + rand.Float64()*(g.area.LatMax-g.area.LatMin),
			Lon:       g.area.LonMin + rand.Float64()*(g.area.LonMax-g.area.LonMin),
			AltHAE:    50 + rand.Float64()*350,
			HeightAGL: 20 + rand.Float64()*180,
			Speed:     rand.Float64() * 30,
			VSpeed:    -5 + rand.Float64()*10,
		},
		Enrichment: model.Enrichment{
			FreqHz:     drawFreqHz(),
			SeenBy:     drawSeenBy(),
			ObservedAt: unixSeconds(t),
			RIDTime:    t,
			RID: model.RIDLookup{
				Tracking:      choice(genericRIDTracking),
				Status:        choice(genericRIDStatus),
				Make:          choice(genericRIDMakes),
				Model:         choice(genericRIDModels),
				Source:        choice(genericRIDSources),
				LookupSuccess: rand.Intn(2) == 0,
			},
		},
	}
}

// FPVDetection renders the lock announcement, creating the lock on first
// call and re-announcing the same lock afterwards.
func (g *Generator) FPVDetection(t time.Time) ([]byte, error) {
	return wire.EncodeFPVDetection(t, g.reg.EnsureFPVDetection())
}

// FPVUpdate perturbs the lock and renders the update. ok is false when no
// detection exists yet; that is "no message", not an error.
func (g *Generator) FPVUpdate(t time.Time) (payload []byte, ok bool, err error) {
	upd, ok := g.reg.FPVUpdate()
	if !ok {
		return nil, false, nil
	}
	payload, err = wire.EncodeFPVUpdate(t, upd)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// HasFPVDetection reports whether a lock already exists.
func (g *Generator) HasFPVDetection() bool {
	return g.reg.HasFPVDetection()
}

// BrokerSighting renders the current drone's position as a broker message.
// It reuses the issued identity, so repeated sightings of one drone carry a
// stable mac and manufacturer, and samples the same figure-eight state the
// CoT feed reports at t.
func (g *Generator) BrokerSighting(t time.Time) ([]byte, error) {
	id := g.reg.CurrentDrone()
	return wire.EncodeBrokerSighting(t, wire.BrokerSighting{
		MAC:          id.MAC,
		Manufacturer: id.Make,
		RSSI:         g.droneRSSI(t),
		Kinematics:   g.drone.At(t),
	})
}

// BrokerStatus renders the kit-online announcement.
func (g *Generator) BrokerStatus(t time.Time) ([]byte, error) {
	return wire.EncodeBrokerStatus(t, g.device)
}

// BrokerSystem renders the kit health summary with stats from the status
// source and the registry's issued-identity count.
func (g *Generator) BrokerSystem(t time.Time) ([]byte, error) {
	if g.status == nil {
		return nil, fmt.Errorf("status source not configured")
	}
	stats, err := g.status.Stats()
	if err != nil {
		return nil, fmt.Errorf("collect status: %w", err)
	}
	return wire.EncodeBrokerSystem(t, wire.BrokerSystem{
		Stats:         stats,
		DronesTracked: g.reg.IssuedCount(),
	})
}

// droneRSSI models signal strength breathing with the pattern phase.
func (g *Generator) droneRSSI(t time.Time) int {
	return -60 + int(10*math.Sin(g.drone.Phase(t)))
}

func (g *Generator) runtimeSec(t time.Time) int {
	return int(t.Sub(g.start).Seconds())
}

func (g *Generator) drawEnrichment(t time.Time, sources []string) model.Enrichment {
	return model.Enrichment{
		FreqHz:     drawFreqHz(),
		SeenBy:     drawSeenBy(),
		ObservedAt: unixSeconds(t),
		RIDTime:    t,
		RID: model.RIDLookup{
			Make:   choice(ridMakes),
			Model:  choice(ridModels),
			Source: choice(sources),
		},
	}
}

// drawFreqHz picks an observation frequency in the 5.8 GHz FPV band.
func drawFreqHz() float64 {
	return round2(5725e6 + rand.Float64()*(5875e6-5725e6))
}

// drawSeenBy picks the reporting collector kit.
func drawSeenBy() string {
	return fmt.Sprintf("wardragon-%d", 100+rand.Intn(100))
}

func choice(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

func jitter(amp float64) float64 {
	return (rand.Float64()*2 - 1) * amp
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
