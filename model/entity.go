package model

import (
	"fmt"
	"math"
)

// Class identifies the kind of synthetic entity being simulated.
type Class int

const (
	ClassDrone Class = iota
	ClassPilot
	ClassHome
	ClassStatus
	ClassAircraft
	ClassFPV
)

func (c Class) String() string {
	switch c {
	case ClassDrone:
		return "drone"
	case ClassPilot:
		return "pilot"
	case ClassHome:
		return "home"
	case ClassStatus:
		return "status"
	case ClassAircraft:
		return "aircraft"
	case ClassFPV:
		return "fpv"
	default:
		return "unknown"
	}
}

// Kinematics is the instantaneous kinematic state of a positioned entity.
// Angles are degrees, distances metres, speeds metres per second.
type Kinematics struct {
	Lat float64
	Lon float64
	// AltHAE is the altitude above the ellipsoid.
	AltHAE float64
	// HeightAGL is the height above ground level.
	HeightAGL float64
	Speed  float64
	VSpeed float64
	// Course is the direction of travel, clockwise from true north, in [0, 360).
	Course float64
}

// Validate rejects non-finite values and out-of-range coordinates. Encoders
// call this before emitting so a bad trajectory never reaches the wire.
func (k Kinematics) Validate() error {
	fields := map[string]float64{
		"lat":    k.Lat,
		"lon":    k.Lon,
		"alt":    k.AltHAE,
		"agl":    k.HeightAGL,
		"speed":  k.Speed,
		"vspeed": k.VSpeed,
		"course": k.Course,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("kinematics: %s is not finite", name)
		}
	}
	if k.Lat < -90 || k.Lat > 90 {
		return fmt.Errorf("kinematics: lat %v out of range [-90, 90]", k.Lat)
	}
	if k.Lon < -180 || k.Lon > 180 {
		return fmt.Errorf("kinematics: lon %v out of range [-180, 180]", k.Lon)
	}
	if k.Course < 0 || k.Course >= 360 {
		return fmt.Errorf("kinematics: course %v out of range [0, 360)", k.Course)
	}
	return nil
}
