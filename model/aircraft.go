package model

// Pattern selects the closed path a simulated aircraft flies.
type Pattern int

const (
	PatternCircle Pattern = iota
	PatternFigureEight
	PatternEllipse
)

func (p Pattern) String() string {
	switch p {
	case PatternCircle:
		return "circle"
	case PatternFigureEight:
		return "figure-eight"
	case PatternEllipse:
		return "ellipse"
	default:
		return "unknown"
	}
}

// AircraftRecord is the persistent per-aircraft state of the ADS-B fleet.
// Records are created once at fleet startup and never mutate, so concurrent
// snapshot reads need no locking.
type AircraftRecord struct {
	// Hex is the 24-bit ICAO address as six upper-case hex digits.
	Hex    string
	Flight string
	Pattern Pattern
	// LaneDeg is the radial lane offset in degrees; lanes keep aircraft
	// visually separated on a shared pattern.
	LaneDeg float64
	// AngularSpeed scales wall-clock seconds into pattern phase.
	AngularSpeed float64
	// AltitudeFt is the assigned barometric cruise altitude in feet.
	AltitudeFt int
	// Phase is a random start offset so aircraft never overlap.
	Phase float64
}

// AircraftState is one aircraft's evaluated position at a point in time,
// ready for ADS-B encoding.
type AircraftState struct {
	Hex      string
	Flight   string
	AltBaro  int
	GS       float64
	Track    float64
	Lat      float64
	Lon      float64
	Seen     float64
	RSSI     float64
	Category string
}
