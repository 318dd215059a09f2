package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
)

const (
	serialIDType     = "Serial Number (ANSI/CTA-2063-A)"
	multirotorUAType = "Helicopter (or Multirotor)"
)

// ESP32Telemetry is the input for the single-object format an ESP32 Remote ID
// sniffer emits. Center is the operator/home location reported in the System
// Message.
type ESP32Telemetry struct {
	UID        string
	MAC        string
	RSSI       int
	Kinematics model.Kinematics
	CenterLat  float64
	CenterLon  float64
	Enrichment model.Enrichment
}

// GenericTelemetry is the input for the three-element array format produced
// by generic Remote ID receivers.
type GenericTelemetry struct {
	ID         string
	MAC        string
	RSSI       int
	Kinematics model.Kinematics
	Enrichment model.Enrichment
}

type esp32BasicID struct {
	ID     string `json:"id"`
	IDType string `json:"id_type"`
	UAType int    `json:"ua_type"`
	MAC    string `json:"MAC"`
	RSSI   int    `json:"RSSI"`
}

type esp32Location struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Speed           float64 `json:"speed"`
	VertSpeed       float64 `json:"vert_speed"`
	GeodeticAlt     float64 `json:"geodetic_altitude"`
	HeightAGL       float64 `json:"height_agl"`
	Status          int     `json:"status"`
	OpStatus        string  `json:"op_status"`
	HeightType      string  `json:"height_type"`
	EWDirSegment    string  `json:"ew_dir_segment"`
	SpeedMultiplier string  `json:"speed_multiplier"`
	Direction       float64 `json:"direction"`
	AltPressure     int     `json:"alt_pressure"`
	HorizAcc        int     `json:"horiz_acc"`
	VertAcc         int     `json:"vert_acc"`
	BaroAcc         int     `json:"baro_acc"`
	SpeedAcc        int     `json:"speed_acc"`
}

type esp32SelfID struct {
	DescriptionType int    `json:"description_type"`
	Description     string `json:"description"`
}

type esp32System struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	OperatorLat    float64 `json:"operator_lat"`
	OperatorLon    float64 `json:"operator_lon"`
	OperatorID     string  `json:"operator_id"`
	HomeLat        float64 `json:"home_lat"`
	HomeLon        float64 `json:"home_lon"`
	OperatorAltGeo int     `json:"operator_alt_geo"`
	Classification int     `json:"classification"`
	Timestamp      int64   `json:"timestamp"`
}

type esp32OperatorID struct {
	ProtocolVersion string `json:"protocol_version"`
	OperatorIDType  string `json:"operator_id_type"`
	OperatorID      string `json:"operator_id"`
}

type esp32RID struct {
	Make   string `json:"make"`
	Model  string `json:"model"`
	Source string `json:"source"`
}

type esp32Message struct {
	Index        int             `json:"index"`
	Runtime      int64           `json:"runtime"`
	BasicID      esp32BasicID    `json:"Basic ID"`
	Location     esp32Location   `json:"Location/Vector Message"`
	SelfID       esp32SelfID     `json:"Self-ID Message"`
	System       esp32System     `json:"System Message"`
	OperatorID   esp32OperatorID `json:"Operator ID Message"`
	Freq         float64         `json:"freq"`
	SeenBy       string          `json:"seen_by"`
	ObservedAt   float64         `json:"observed_at"`
	RIDTimestamp string          `json:"rid_timestamp"`
	RID          esp32RID        `json:"rid"`
}

// EncodeESP32 renders the indented single-object sniffer format.
func EncodeESP32(now time.Time, e ESP32Telemetry) ([]byte, error) {
	if e.UID == "" {
		return nil, fmt.Errorf("%w: uid", ErrMissingField)
	}
	if e.MAC == "" {
		return nil, fmt.Errorf("%w: mac", ErrMissingField)
	}
	if err := kinematicsFinite(e.Kinematics); err != nil {
		return nil, err
	}
	if err := checkFinite("center_lat", e.CenterLat); err != nil {
		return nil, err
	}
	if err := checkFinite("center_lon", e.CenterLon); err != nil {
		return nil, err
	}

	k := e.Kinematics
	unix := unixSeconds(now)

	msg := esp32Message{
		Index:   10,
		Runtime: int64(math.Round(unix)),
		BasicID: esp32BasicID{
			ID:     e.UID,
			IDType: serialIDType,
			UAType: 0,
			MAC:    e.MAC,
			RSSI:   e.RSSI,
		},
		Location: esp32Location{
			Latitude:        round6(k.Lat),
			Longitude:       round6(k.Lon),
			Speed:           round1(k.Speed),
			VertSpeed:       round2(k.VSpeed),
			GeodeticAlt:     round1(k.AltHAE),
			HeightAGL:       round1(k.HeightAGL),
			Status:          2,
			OpStatus:        "Ground",
			HeightType:      "Above Takeoff",
			EWDirSegment:    "East",
			SpeedMultiplier: "0.25",
			Direction:       round1(k.Course),
			AltPressure:     100,
			HorizAcc:        10,
			VertAcc:         4,
			BaroAcc:         6,
			SpeedAcc:        3,
		},
		SelfID: esp32SelfID{
			DescriptionType: 0,
			Description:     "DJI " + e.UID,
		},
		System: esp32System{
			Latitude:       e.CenterLat,
			Longitude:      e.CenterLon,
			OperatorLat:    e.CenterLat,
			OperatorLon:    e.CenterLon,
			OperatorID:     "NotMe",
			HomeLat:        e.CenterLat,
			HomeLon:        e.CenterLon,
			OperatorAltGeo: 20,
			Classification: 1,
			Timestamp:      int64(math.Round(unix * 1000)),
		},
		OperatorID: esp32OperatorID{
			ProtocolVersion: "F3411.22",
			OperatorIDType:  "Operator ID",
			OperatorID:      "NotMe",
		},
		Freq:         e.Enrichment.FreqHz,
		SeenBy:       e.Enrichment.SeenBy,
		ObservedAt:   e.Enrichment.ObservedAt,
		RIDTimestamp: now.UTC().Format(TimestampLayout),
		RID: esp32RID{
			Make:   e.Enrichment.RID.Make,
			Model:  e.Enrichment.RID.Model,
			Source: e.Enrichment.RID.Source,
		},
	}
	return json.MarshalIndent(msg, "", "    ")
}

type genericBasicID struct {
	ProtocolVersion string `json:"protocol_version"`
	IDType          string `json:"id_type"`
	UAType          string `json:"ua_type"`
	ID              string `json:"id"`
	MAC             string `json:"MAC"`
	RSSI            int    `json:"rssi"`
}

type genericLocation struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	GeodeticAlt float64 `json:"geodetic_altitude"`
	HeightAGL   float64 `json:"height_agl"`
	Speed       float64 `json:"speed"`
	VertSpeed   float64 `json:"vert_speed"`
	Timestamp   string  `json:"timestamp"`
}

type genericRID struct {
	Tracking      string `json:"tracking"`
	Status        string `json:"status"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	Source        string `json:"source"`
	LookupSuccess bool   `json:"lookup_success"`
}

type genericBasicIDElement struct {
	BasicID genericBasicID `json:"Basic ID"`
}

type genericLocationElement struct {
	Location genericLocation `json:"Location/Vector Message"`
}

type genericEnrichmentElement struct {
	Freq         float64    `json:"freq"`
	SeenBy       string     `json:"seen_by"`
	ObservedAt   float64    `json:"observed_at"`
	RIDTimestamp string     `json:"rid_timestamp"`
	RID          genericRID `json:"rid"`
}

// EncodeGeneric renders the three-element array format with indentation, the
// form published on the status feed.
func EncodeGeneric(now time.Time, g GenericTelemetry) ([]byte, error) {
	msg, err := genericElements(now, g)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(msg, "", "    ")
}

// EncodeGenericCompact renders the same array on a single line for datagram
// transports.
func EncodeGenericCompact(now time.Time, g GenericTelemetry) ([]byte, error) {
	msg, err := genericElements(now, g)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func genericElements(now time.Time, g GenericTelemetry) ([]any, error) {
	if g.ID == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	if g.MAC == "" {
		return nil, fmt.Errorf("%w: mac", ErrMissingField)
	}
	if err := kinematicsFinite(g.Kinematics); err != nil {
		return nil, err
	}

	k := g.Kinematics
	ts := now.UTC().Format(TimestampLayoutSeconds)

	return []any{
		genericBasicIDElement{BasicID: genericBasicID{
			ProtocolVersion: "F3411.19",
			IDType:          serialIDType,
			UAType:          multirotorUAType,
			ID:              g.ID,
			MAC:             g.MAC,
			RSSI:            g.RSSI,
		}},
		genericLocationElement{Location: genericLocation{
			Latitude:    round6(k.Lat),
			Longitude:   round6(k.Lon),
			GeodeticAlt: round2(k.AltHAE),
			HeightAGL:   round2(k.HeightAGL),
			Speed:       round1(k.Speed),
			VertSpeed:   round1(k.VSpeed),
			Timestamp:   ts,
		}},
		genericEnrichmentElement{
			Freq:         g.Enrichment.FreqHz,
			SeenBy:       g.Enrichment.SeenBy,
			ObservedAt:   g.Enrichment.ObservedAt,
			RIDTimestamp: now.UTC().Format(TimestampLayoutSeconds),
			RID: genericRID{
				Tracking:      g.Enrichment.RID.Tracking,
				Status:        g.Enrichment.RID.Status,
				Make:          g.Enrichment.RID.Make,
				Model:         g.Enrichment.RID.Model,
				Source:        g.Enrichment.RID.Source,
				LookupSuccess: g.Enrichment.RID.LookupSuccess,
			},
		},
	}, nil
}
