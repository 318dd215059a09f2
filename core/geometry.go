package core

import (
	"math"
	"time"
)

// Area is the rectangular flight area a simulation operates in, in degrees.
type Area struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// DefaultArea is the flight area used when no profile overrides it.
var DefaultArea = Area{LatMin: 37.2, LatMax: 37.3, LonMin: -115.8, LonMax: -115.7}

// Center returns the midpoint of the area.
func (a Area) Center() (lat, lon float64) {
	return (a.LatMin + a.LatMax) / 2, (a.LonMin + a.LonMax) / 2
}

// Radii returns the pattern radii for the area: one third of each span,
// so a figure-eight stays well inside the bounds.
func (a Area) Radii() (rLat, rLon float64) {
	return (a.LatMax - a.LatMin) / 3, (a.LonMax - a.LonMin) / 3
}

// wrapCourse normalizes an angle in degrees into [0, 360).
func wrapCourse(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// courseDegrees converts motion deltas (dLon east, dLat north) into a
// course clockwise from true north in [0, 360).
func courseDegrees(dLon, dLat float64) float64 {
	return wrapCourse(math.Atan2(dLon, dLat) * 180 / math.Pi)
}

// unixSeconds is wall-clock time as fractional seconds, the time base for
// every parametric path. Deriving phase from absolute time (rather than a
// tick counter) keeps paths continuous across repeated calls.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
