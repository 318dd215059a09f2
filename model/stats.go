package model

// SystemStats is one sample of host health for a status message.
// Memory and disk figures are megabytes, matching the wardragon monitor
// output the status CoT remarks reproduce.
type SystemStats struct {
	CPUPercent        float64
	MemoryTotalMB     float64
	MemoryAvailableMB float64
	DiskTotalMB       float64
	DiskUsedMB        float64
	TemperatureC      float64
	PlutoTempC        float64
	ZynqTempC         float64
	UptimeSec         int64
}

// FleetSnapshot is a full-fleet evaluation at one instant, ready for
// ADS-B encoding.
type FleetSnapshot struct {
	// Now is unix time in seconds at evaluation.
	Now float64
	// Messages mirrors the readsb cumulative message counter.
	Messages int
	Aircraft []AircraftState
}
