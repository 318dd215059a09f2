package model

import "time"

// RIDLookup is the simulated result of a remote-ID registry lookup
// (make/model/authority plus whether the lookup succeeded).
type RIDLookup struct {
	Tracking      string
	Status        string
	Make          string
	Model         string
	Source        string
	LookupSuccess bool
}

// Enrichment carries the simulated backend fields attached to an outgoing
// message. These are independent random draws per message, not physically
// coupled to the trajectory.
type Enrichment struct {
	// FreqHz is the observation frequency in Hz (5.8 GHz FPV band).
	FreqHz float64
	// SeenBy is the collector kit ID, e.g. "wardragon-142".
	SeenBy string
	// ObservedAt is the unix observation timestamp in seconds.
	ObservedAt float64
	// RIDTime is the ISO8601 remote-ID timestamp.
	RIDTime time.Time
	RID     RIDLookup
}
