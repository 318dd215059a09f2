package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// Profile is the resolved simulation profile: the flight area, the identity
// pools, the drone pattern rate, and the ADS-B fleet shape.
type Profile struct {
	Area      Area
	TimeScale float64
	Serials   []string
	CAAIDs    []string
	Fleet     FleetConfig
}

// internal JSON shapes; unexported so the file format can evolve.
type profileJSON struct {
	LatRange  []float64  `json:"lat_range"`
	LonRange  []float64  `json:"lon_range"`
	TimeScale float64    `json:"time_scale"`
	Serials   []string   `json:"serials"`
	CAAIDs    []string   `json:"caa_ids"`
	Fleet     *fleetJSON `json:"fleet"`
}

type fleetJSON struct {
	Count     int     `json:"count"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
}

// DefaultProfile is the profile used when no file is given: the default
// flight area with the built-in identity pools and fleet shape.
func DefaultProfile() Profile {
	return Profile{Area: DefaultArea}
}

// LoadProfile reads a JSON profile from r. Missing fields fall back to
// defaults; it fails only on JSON or structural errors (a range that is not
// a [min, max] pair). Identity pool contents are not re-validated here, the
// registry owns those semantics.
func LoadProfile(r io.Reader) (Profile, error) {
	var payload profileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return Profile{}, fmt.Errorf("LoadProfile: decode failed: %w", err)
	}

	p := DefaultProfile()

	if payload.LatRange != nil {
		min, max, err := rangePair("lat_range", payload.LatRange)
		if err != nil {
			return Profile{}, err
		}
		p.Area.LatMin, p.Area.LatMax = min, max
	}
	if payload.LonRange != nil {
		min, max, err := rangePair("lon_range", payload.LonRange)
		if err != nil {
			return Profile{}, err
		}
		p.Area.LonMin, p.Area.LonMax = min, max
	}
	if payload.TimeScale < 0 {
		return Profile{}, fmt.Errorf("LoadProfile: time_scale must be positive, got %v", payload.TimeScale)
	}
	p.TimeScale = payload.TimeScale
	p.Serials = payload.Serials
	p.CAAIDs = payload.CAAIDs

	if payload.Fleet != nil {
		p.Fleet = FleetConfig{
			Count:     payload.Fleet.Count,
			CenterLat: payload.Fleet.CenterLat,
			CenterLon: payload.Fleet.CenterLon,
		}
	}

	return p, nil
}

func rangePair(name string, vals []float64) (min, max float64, err error) {
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("LoadProfile: %s must be [min, max], got %d values", name, len(vals))
	}
	if vals[0] >= vals[1] {
		return 0, 0, fmt.Errorf("LoadProfile: %s min %v is not below max %v", name, vals[0], vals[1])
	}
	return vals[0], vals[1], nil
}
