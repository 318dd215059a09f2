package wire

import (
	"encoding/json"
	"fmt"

	"github.com/signalsfoundry/dragonsim/model"
)

type adsbAircraft struct {
	Hex      string  `json:"hex"`
	Flight   string  `json:"flight"`
	AltBaro  int     `json:"alt_baro"`
	GS       float64 `json:"gs"`
	Track    float64 `json:"track"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Seen     float64 `json:"seen"`
	RSSI     float64 `json:"rssi"`
	Category string  `json:"category"`
}

type adsbSnapshot struct {
	Now      float64        `json:"now"`
	Messages int            `json:"messages"`
	Aircraft []adsbAircraft `json:"aircraft"`
}

// EncodeAircraftSnapshot renders the readsb-style aircraft.json body.
// Positions are rounded to 6 decimals and track to 1, the precision the
// upstream feed reports.
func EncodeAircraftSnapshot(snap model.FleetSnapshot) ([]byte, error) {
	if err := checkFinite("now", snap.Now); err != nil {
		return nil, err
	}

	aircraft := make([]adsbAircraft, 0, len(snap.Aircraft))
	for _, ac := range snap.Aircraft {
		if ac.Hex == "" {
			return nil, fmt.Errorf("%w: hex", ErrMissingField)
		}
		for name, v := range map[string]float64{
			"lat":   ac.Lat,
			"lon":   ac.Lon,
			"gs":    ac.GS,
			"track": ac.Track,
		} {
			if err := checkFinite(name, v); err != nil {
				return nil, err
			}
		}
		aircraft = append(aircraft, adsbAircraft{
			Hex:      ac.Hex,
			Flight:   ac.Flight,
			AltBaro:  ac.AltBaro,
			GS:       ac.GS,
			Track:    round1(ac.Track),
			Lat:      round6(ac.Lat),
			Lon:      round6(ac.Lon),
			Seen:     ac.Seen,
			RSSI:     ac.RSSI,
			Category: ac.Category,
		})
	}

	return json.Marshal(adsbSnapshot{
		Now:      snap.Now,
		Messages: snap.Messages,
		Aircraft: aircraft,
	})
}
