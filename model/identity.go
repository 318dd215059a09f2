package model

import "strings"

// Identity is the immutable per-session identifier set for a simulated drone.
// A consumer correlates repeated messages to one track by UID, so an Identity
// must stay stable for the duration of a broadcast session.
type Identity struct {
	// UID is the serial/UID string, e.g. "3NZDJ1Y0010ABC".
	UID string
	// MAC is a MAC-like hardware address, "AA:BB:CC:DD:EE:FF" form.
	MAC string

	// Classification metadata reported by registry lookups.
	Make   string
	Model  string
	Source string

	// CAAReg is the civil-aviation-authority registration, e.g. "789ABC".
	CAAReg string
}

// BaseID returns the UID with any "drone-" prefix stripped. Dependent
// pilot/home identifiers derive from this base.
func (id Identity) BaseID() string {
	return strings.TrimPrefix(id.UID, "drone-")
}

// PilotUID returns the UID of the pilot entity owned by this drone.
func (id Identity) PilotUID() string {
	return "pilot-" + id.BaseID()
}

// HomeUID returns the UID of the home-point entity owned by this drone.
func (id Identity) HomeUID() string {
	return "home-" + id.BaseID()
}

// DefaultSerials are realistic serial numbers matching actual drone formats:
// a 20-char ESP32 hex serial, a DJI-style serial, and a generic numeric one.
var DefaultSerials = []string{
	"112624150A90E3AE1EC0",
	"3NZDJ1Y0010ABC",
	"1869600XXYYZZ",
}

// DefaultCAARegistrations are sample CAA registration IDs.
var DefaultCAARegistrations = []string{"123456", "789ABC", "XYZ999"}
