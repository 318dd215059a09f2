package core

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
	"github.com/signalsfoundry/dragonsim/wire"
)

// fleetMessages is the fixed cumulative-message counter reported in every
// snapshot; readsb consumers only check that the field is present.
const fleetMessages = 123456

// FleetConfig sizes and places the simulated ADS-B fleet.
type FleetConfig struct {
	// Count is the number of aircraft. Default: 5.
	Count int
	// CenterLat/CenterLon anchor every pattern. Default: 37.24, -115.81.
	CenterLat float64
	CenterLon float64
}

// ApplyDefaults fills zero fields with the standard fleet parameters.
func (c FleetConfig) ApplyDefaults() FleetConfig {
	if c.Count <= 0 {
		c.Count = 5
	}
	if c.CenterLat == 0 && c.CenterLon == 0 {
		c.CenterLat = 37.24
		c.CenterLon = -115.81
	}
	return c
}

// Fleet owns a fixed set of synthetic aircraft and evaluates the whole
// set on demand. Records are created once and never mutate afterwards, so
// SnapshotAt is safe to call concurrently from the broadcast loop and the
// HTTP responder without locking.
type Fleet struct {
	centerLat float64
	centerLon float64
	records   []model.AircraftRecord
}

// NewFleet creates the fleet records: round-robin pattern assignment,
// lane separation growing with index, altitudes stacked 3000 ft apart,
// and a random phase so aircraft never overlap. Hex IDs are unique.
func NewFleet(cfg FleetConfig) *Fleet {
	cfg = cfg.ApplyDefaults()

	f := &Fleet{
		centerLat: cfg.CenterLat,
		centerLon: cfg.CenterLon,
		records:   make([]model.AircraftRecord, 0, cfg.Count),
	}

	seen := make(map[string]bool, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		hex := randomHex()
		for seen[hex] {
			hex = randomHex()
		}
		seen[hex] = true

		f.records = append(f.records, model.AircraftRecord{
			Hex:          hex,
			Flight:       fmt.Sprintf("TEST%02d", i+1),
			Pattern:      model.Pattern(i % 3),
			LaneDeg:      0.04 + float64(i)*0.03,
			AngularSpeed: 0.05 + 0.02 + rand.Float64()*0.03,
			AltitudeFt:   10000 + i*3000,
			Phase:        rand.Float64() * 2 * math.Pi,
		})
	}
	return f
}

// Size returns the fixed number of aircraft in the fleet.
func (f *Fleet) Size() int {
	return len(f.records)
}

// SnapshotAt evaluates every aircraft at t and returns the full fleet. It
// is a pure function of the stored records and t.
func (f *Fleet) SnapshotAt(t time.Time) model.FleetSnapshot {
	now := unixSeconds(t)

	aircraft := make([]model.AircraftState, 0, len(f.records))
	for _, rec := range f.records {
		moveT := now*rec.AngularSpeed + rec.Phase
		latOff, lonOff := patternOffsets(rec.Pattern, rec.LaneDeg, moveT)

		// Track from a small look-ahead on the same pattern.
		const dt = 0.01
		nextLat, nextLon := patternOffsets(rec.Pattern, rec.LaneDeg, moveT+dt)
		track := courseDegrees(nextLon-lonOff, nextLat-latOff)

		aircraft = append(aircraft, model.AircraftState{
			Hex:      rec.Hex,
			Flight:   rec.Flight,
			AltBaro:  rec.AltitudeFt,
			GS:       200 + rec.LaneDeg*1000,
			Track:    track,
			Lat:      f.centerLat + latOff,
			Lon:      f.centerLon + lonOff,
			Seen:     0.1,
			RSSI:     -18.5,
			Category: "A1",
		})
	}

	return model.FleetSnapshot{
		Now:      now,
		Messages: fleetMessages,
		Aircraft: aircraft,
	}
}

// SnapshotJSON evaluates the fleet at t and encodes it as an aircraft.json
// body.
func (f *Fleet) SnapshotJSON(t time.Time) ([]byte, error) {
	return wire.EncodeAircraftSnapshot(f.SnapshotAt(t))
}

// patternOffsets returns the lat/lon offsets (degrees) from the fleet
// center for one pattern at phase moveT.
func patternOffsets(p model.Pattern, lane, moveT float64) (latOff, lonOff float64) {
	switch p {
	case model.PatternFigureEight:
		return lane * math.Sin(moveT), (lane * 1.5) * math.Sin(2*moveT) / 2
	case model.PatternEllipse:
		return (lane * 0.7) * math.Sin(moveT), (lane * 1.8) * math.Cos(moveT)
	default: // PatternCircle
		return lane * math.Sin(moveT), lane * math.Cos(moveT)
	}
}

func randomHex() string {
	return fmt.Sprintf("%06X", 0x100000+rand.Intn(0xFFFFFF-0x100000+1))
}
