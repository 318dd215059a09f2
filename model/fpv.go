package model

// FPVDetection is the session-scoped lock state for a simulated FPV video
// emitter. Frequency and source are immutable once the lock exists; only
// the signal strength drifts between messages.
type FPVDetection struct {
	// Frequency is the locked video channel in MHz.
	Frequency int
	// Bandwidth is the video bandwidth label, "20MHz" or "40MHz".
	Bandwidth string
	// SourceInst and SourceNode form DetectionSource,
	// "<2-digit instance>-<4-hex node>", e.g. "01-97e8".
	SourceInst      string
	SourceNode      string
	DetectionSource string
	// SignalStrength is the raw ADC value (not dBm).
	SignalStrength float64
	// LockSeconds counts elapsed lock time; hardware updates every ~10 s.
	LockSeconds int
	// EstimatedDistance is derived from SignalStrength, in metres.
	EstimatedDistance float64
}

// FPVUpdate is one signal-strength update for an existing detection. A
// receiver correlates it to the detection by DetectionSource.
type FPVUpdate struct {
	DetectionSource   string
	Frequency         int
	SignalStrength    float64
	EstimatedDistance float64
}
