package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
)

// BrokerTimestampLayout is the broker feed's timestamp form: ISO 8601 with
// microseconds and a numeric offset, +00:00 for UTC.
const BrokerTimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// brokerUAType: every simulated airframe reports as a rotorcraft.
const brokerUAType = "Helicopter"

// BrokerSighting is the input for a per-drone broker message. The identity
// fields come from the registry so repeated sightings of one drone carry the
// same mac and manufacturer.
type BrokerSighting struct {
	MAC          string
	Manufacturer string
	RSSI         int
	Kinematics   model.Kinematics
}

// BrokerSystem is the input for a kit health summary.
type BrokerSystem struct {
	Stats         model.SystemStats
	DronesTracked int
}

type brokerSightingBody struct {
	MAC          string  `json:"mac"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Altitude     float64 `json:"altitude"`
	RSSI         int     `json:"rssi"`
	Timestamp    string  `json:"timestamp"`
	Manufacturer string  `json:"manufacturer"`
	UAType       string  `json:"uaType"`
}

type brokerStatusBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Device    string `json:"device"`
}

type brokerSystemBody struct {
	Timestamp     string  `json:"timestamp"`
	CPUUsage      float64 `json:"cpuUsage"`
	MemoryUsed    float64 `json:"memoryUsed"`
	DronesTracked int     `json:"dronesTracked"`
	Uptime        string  `json:"uptime"`
}

// EncodeBrokerSighting renders one drone position for the broker's
// drones/<uid> topic. Coordinates carry the same precision the CoT point
// attributes do, so the two feeds agree to the digit.
func EncodeBrokerSighting(now time.Time, s BrokerSighting) ([]byte, error) {
	if s.MAC == "" {
		return nil, fmt.Errorf("%w: mac", ErrMissingField)
	}
	if err := kinematicsFinite(s.Kinematics); err != nil {
		return nil, err
	}

	return json.Marshal(brokerSightingBody{
		MAC:          s.MAC,
		Latitude:     round6(s.Kinematics.Lat),
		Longitude:    round6(s.Kinematics.Lon),
		Altitude:     round1(s.Kinematics.AltHAE),
		RSSI:         s.RSSI,
		Timestamp:    now.UTC().Format(BrokerTimestampLayout),
		Manufacturer: s.Manufacturer,
		UAType:       brokerUAType,
	})
}

// EncodeBrokerStatus renders the kit-online message for the broker's status
// topic. Publishers mark it retained where the broker supports that, so a
// late subscriber learns the kit is up without waiting a tick.
func EncodeBrokerStatus(now time.Time, device string) ([]byte, error) {
	if device == "" {
		return nil, fmt.Errorf("%w: device", ErrMissingField)
	}
	return json.Marshal(brokerStatusBody{
		Status:    "online",
		Timestamp: now.UTC().Format(BrokerTimestampLayout),
		Device:    device,
	})
}

// EncodeBrokerSystem renders the kit health summary for the broker's system
// topic. memoryUsed is a percentage derived from the stats sample.
func EncodeBrokerSystem(now time.Time, sys BrokerSystem) ([]byte, error) {
	st := sys.Stats
	for name, v := range map[string]float64{
		"cpu":              st.CPUPercent,
		"memory_total":     st.MemoryTotalMB,
		"memory_available": st.MemoryAvailableMB,
	} {
		if err := checkFinite(name, v); err != nil {
			return nil, err
		}
	}
	if st.MemoryTotalMB <= 0 {
		return nil, fmt.Errorf("%w: memory total", ErrMissingField)
	}

	used := (st.MemoryTotalMB - st.MemoryAvailableMB) / st.MemoryTotalMB * 100
	return json.Marshal(brokerSystemBody{
		Timestamp:     now.UTC().Format(BrokerTimestampLayout),
		CPUUsage:      round1(st.CPUPercent),
		MemoryUsed:    round1(used),
		DronesTracked: sys.DronesTracked,
		Uptime:        formatUptime(st.UptimeSec),
	})
}

// formatUptime renders seconds as "1h 23m", the form the broker dashboard
// displays verbatim.
func formatUptime(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%dh %dm", sec/3600, sec%3600/60)
}
