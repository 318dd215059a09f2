package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
)

// TrajectoryModel yields the kinematic state of an entity at a point in
// wall-clock time. Implementations are pure functions of t: the same t
// always produces the same state, and positions are continuous in t.
type TrajectoryModel interface {
	At(t time.Time) model.Kinematics
}

// FigureEight flies a horizontal figure-eight: latitude follows sin(τ),
// longitude sin(2τ), with τ = wall-clock seconds scaled by TimeScale.
// Altitude and speed oscillate sinusoidally at slower rates. Course comes
// from the closed-form derivatives of the path, not a finite-difference
// look-ahead, so there is no seam artifact where the pattern wraps.
type FigureEight struct {
	CenterLat, CenterLon float64
	RadiusLat, RadiusLon float64
	// TimeScale converts wall-clock seconds into pattern phase.
	TimeScale float64
	// BaseAlt and AltAmp shape the altitude oscillation (metres HAE).
	BaseAlt, AltAmp float64
	// GroundOffset is subtracted from altitude to report height AGL.
	GroundOffset float64
	// BaseSpeed and SpeedAmp shape horizontal speed (m/s).
	BaseSpeed, SpeedAmp float64
	// VSpeedAmp scales vertical speed, phase-locked to the altitude wave.
	VSpeedAmp float64
}

// NewFigureEight builds the standard drone path for an area: radii one
// third of the area spans, 300±50 m altitude, 15±5 m/s speed.
func NewFigureEight(area Area) *FigureEight {
	lat, lon := area.Center()
	rLat, rLon := area.Radii()
	return &FigureEight{
		CenterLat:    lat,
		CenterLon:    lon,
		RadiusLat:    rLat,
		RadiusLon:    rLon,
		TimeScale:    0.1,
		BaseAlt:      300,
		AltAmp:       50,
		GroundOffset: 100,
		BaseSpeed:    15,
		SpeedAmp:     5,
		VSpeedAmp:    2.5,
	}
}

// Phase returns the pattern phase for t.
func (f *FigureEight) Phase(t time.Time) float64 {
	return unixSeconds(t) * f.TimeScale
}

func (f *FigureEight) At(t time.Time) model.Kinematics {
	tau := f.Phase(t)

	alt := f.BaseAlt + f.AltAmp*math.Sin(0.5*tau)

	// Closed-form velocity components (up to the shared dτ/dt factor,
	// which cancels in the course angle).
	dLon := f.RadiusLon * math.Cos(2*tau)
	dLat := f.RadiusLat * math.Cos(tau)

	return model.Kinematics{
		Lat:       f.CenterLat + f.RadiusLat*math.Sin(tau),
		Lon:       f.CenterLon + f.RadiusLon*math.Sin(2*tau),
		AltHAE:    alt,
		HeightAGL: alt - f.GroundOffset,
		Speed:     f.BaseSpeed + f.SpeedAmp*math.Cos(tau),
		VSpeed:    f.VSpeedAmp * math.Cos(0.5*tau),
		Course:    courseDegrees(dLon, dLat),
	}
}

// PilotDrift walks a small oval around the area center, the realistic
// wander of someone tracking a drone on foot (~200 m excursions). The
// pilot never coincides with the drone: the two paths use different time
// scales and the pilot's longitude follows cos, the drone's sin.
type PilotDrift struct {
	CenterLat, CenterLon float64
	TimeScale            float64
	LatAmp, LonAmp       float64
	BaseAlt, AltAmp      float64
}

// NewPilotDrift builds the standard pilot wander for an area.
func NewPilotDrift(area Area) *PilotDrift {
	lat, lon := area.Center()
	return &PilotDrift{
		CenterLat: lat,
		CenterLon: lon,
		TimeScale: 0.02,
		LatAmp:    0.002,
		LonAmp:    0.002,
		BaseAlt:   50,
		AltAmp:    2,
	}
}

func (p *PilotDrift) At(t time.Time) model.Kinematics {
	tau := unixSeconds(t) * p.TimeScale
	return model.Kinematics{
		Lat:    p.CenterLat + p.LatAmp*math.Sin(tau),
		Lon:    p.CenterLon + p.LonAmp*math.Cos(0.7*tau),
		AltHAE: p.BaseAlt + p.AltAmp*math.Sin(0.3*tau),
	}
}

// HomeDrift is the near-static home/takeoff point: ~100 m of drift on a
// very slow clock, representing a base station that occasionally moves.
type HomeDrift struct {
	CenterLat, CenterLon float64
	TimeScale            float64
	Amp                  float64
	BaseAlt, AltAmp      float64
}

// NewHomeDrift builds the standard home-point drift for an area.
func NewHomeDrift(area Area) *HomeDrift {
	lat, lon := area.Center()
	return &HomeDrift{
		CenterLat: lat,
		CenterLon: lon,
		TimeScale: 0.01,
		Amp:       0.001,
		BaseAlt:   100,
		AltAmp:    5,
	}
}

func (h *HomeDrift) At(t time.Time) model.Kinematics {
	tau := unixSeconds(t) * h.TimeScale
	return model.Kinematics{
		Lat:    h.CenterLat + h.Amp*math.Sin(tau),
		Lon:    h.CenterLon + h.Amp*math.Cos(tau),
		AltHAE: h.BaseAlt + h.AltAmp*math.Sin(0.5*tau),
	}
}
