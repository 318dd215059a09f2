// Package wire encodes telemetry into the formats consumed by drone-detection
// tooling: Cursor-on-Target XML, ESP32 and generic Remote ID JSON, FPV
// receiver JSON, and a readsb-style aircraft snapshot. Encoders are pure
// functions of their inputs and never emit NaN or Inf.
package wire

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
)

const (
	// TimestampLayout renders UTC with microsecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000000Z"
	// TimestampLayoutSeconds drops sub-second precision, used by the
	// generic Remote ID feed.
	TimestampLayoutSeconds = "2006-01-02T15:04:05Z"
)

// StaleAfter is how long an event stays valid after its start time.
const StaleAfter = 10 * time.Minute

var (
	ErrNotFinite    = errors.New("wire: value is not finite")
	ErrMissingField = errors.New("wire: missing required field")
)

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s", ErrNotFinite, name)
	}
	return nil
}

func kinematicsFinite(k model.Kinematics) error {
	for name, v := range map[string]float64{
		"lat":    k.Lat,
		"lon":    k.Lon,
		"hae":    k.AltHAE,
		"agl":    k.HeightAGL,
		"speed":  k.Speed,
		"vspeed": k.VSpeed,
		"course": k.Course,
	} {
		if err := checkFinite(name, v); err != nil {
			return err
		}
	}
	return nil
}

// floatString renders v in decimal with the fewest digits that round-trip.
func floatString(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
