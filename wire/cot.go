package wire

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
)

// Event type designators on the TAK side. Drones show up as unknown air
// tracks, pilot and home points as map markers, ground stations as friendly
// equipment.
const (
	droneEventType    = "a-u-A-M-H-R"
	operatorEventType = "b-m-p-s-m"
	statusEventType   = "a-f-G-E-S"
)

const civilianIconPath = "com.atakmap.android.maps.public/Civilian/"

const droneEventTemplate = `<?xml version='1.0' encoding='UTF-8'?>
<event version="2.0" uid="%s" type="` + droneEventType + `" time="%s" start="%s" stale="%s" how="m-g">
    <point lat="%.6f" lon="%.6f" hae="%.1f" ce="35.0" le="999999"/>
    <detail>
        <contact callsign="%s"/>
        <precisionlocation geopointsrc="gps" altsrc="gps"/>
        <track course="%.1f" speed="%.1f"/>
        <remarks>%s</remarks>
        <color argb="-256"/>
    </detail>
</event>`

const operatorEventTemplate = `<?xml version='1.0' encoding='UTF-8'?>
<event version="2.0" uid="%s" type="` + operatorEventType + `" time="%s" start="%s" stale="%s" how="m-g">
    <point lat="%.6f" lon="%.6f" hae="%.1f" ce="35.0" le="999999"/>
    <detail>
        <contact callsign="%s"/>
        <precisionlocation geopointsrc="gps" altsrc="gps"/>
        <usericon iconsetpath="%s"/>
        <remarks>%s location for drone %s</remarks>
    </detail>
</event>`

const statusEventTemplate = `<?xml version='1.0' encoding='UTF-8'?>
<event version="2.0" uid="%s" type="` + statusEventType + `" time="%s" start="%s" stale="%s" how="m-g">
    <point lat="%.6f" lon="%.6f" hae="%.1f" ce="35.0" le="999999"/>
    <detail>
        <contact endpoint="" phone="" callsign="%s"/>
        <precisionlocation geopointsrc="gps" altsrc="gps"/>
        <remarks>%s</remarks>
        <color argb="-256"/>
        <track course="%.1f" speed="%.2f"/>
    </detail>
</event>`

const droneRemarksFormat = "MAC: %s, RSSI: %ddBm; " +
	"ID Type: Serial Number (ANSI/CTA-2063-A); " +
	"UA Type: Helicopter or Multirotor (2); " +
	"Operator ID: TestOperator; " +
	"Speed: %.1f m/s; Vert Speed: %.1f m/s; " +
	"Altitude: %.1f m; AGL: %.1f m; Direction: %.1f°; " +
	"Index: %d; Runtime: %ds; Freq: %s Hz; " +
	"Seen By: %s; Observed At: %s; RID Time: %s; RID: %s %s (%s)"

const statusRemarksFormat = "CPU Usage: %.1f%%, Memory Total: %.2f MB, " +
	"Memory Available: %.2f MB, Disk Total: %.2f MB, Disk Used: %.2f MB, " +
	"Temperature: %.1f°C, Uptime: %d seconds, " +
	"Pluto Temp: %.1f°C, Zynq Temp: %.1f°C; " +
	"Seen By: %s; Observed At: %s"

// DroneTelemetry is the input for a drone position event.
type DroneTelemetry struct {
	UID        string
	MAC        string
	RSSI       int
	Kinematics model.Kinematics
	Index      int
	RuntimeSec int
	Enrichment model.Enrichment
}

// OperatorPoint is the input for a pilot or home position event. DroneUID is
// the drone the point belongs to; only position fields of Kinematics are
// emitted.
type OperatorPoint struct {
	UID        string
	DroneUID   string
	Kinematics model.Kinematics
}

// StatusReport is the input for a ground-station health event.
type StatusReport struct {
	UID        string
	Kinematics model.Kinematics
	Stats      model.SystemStats
	ObservedAt float64
}

// EncodeDroneCoT renders a drone track event with the full remarks block the
// detection pipeline parses for enrichment fields.
func EncodeDroneCoT(now time.Time, d DroneTelemetry) ([]byte, error) {
	if d.UID == "" {
		return nil, fmt.Errorf("%w: uid", ErrMissingField)
	}
	if d.MAC == "" {
		return nil, fmt.Errorf("%w: mac", ErrMissingField)
	}
	if d.Enrichment.RIDTime.IsZero() {
		return nil, fmt.Errorf("%w: rid time", ErrMissingField)
	}
	if err := kinematicsFinite(d.Kinematics); err != nil {
		return nil, err
	}
	if err := checkFinite("freq", d.Enrichment.FreqHz); err != nil {
		return nil, err
	}
	if err := checkFinite("observed_at", d.Enrichment.ObservedAt); err != nil {
		return nil, err
	}

	timeStr := now.UTC().Format(TimestampLayout)
	staleStr := now.Add(StaleAfter).UTC().Format(TimestampLayout)
	k := d.Kinematics

	remarks := fmt.Sprintf(droneRemarksFormat,
		d.MAC, d.RSSI,
		k.Speed, k.VSpeed, k.AltHAE, k.HeightAGL, k.Course,
		d.Index, d.RuntimeSec,
		floatString(d.Enrichment.FreqHz),
		d.Enrichment.SeenBy,
		floatString(d.Enrichment.ObservedAt),
		d.Enrichment.RIDTime.UTC().Format(TimestampLayout),
		d.Enrichment.RID.Make, d.Enrichment.RID.Model, d.Enrichment.RID.Source,
	)

	doc := fmt.Sprintf(droneEventTemplate,
		d.UID, timeStr, timeStr, staleStr,
		k.Lat, k.Lon, k.AltHAE,
		d.UID, k.Course, k.Speed, remarks,
	)
	return []byte(doc), nil
}

// EncodePilotCoT renders the pilot marker for the drone the point tracks.
func EncodePilotCoT(now time.Time, p OperatorPoint) ([]byte, error) {
	return encodeOperatorCoT(now, p, "Person.png", "Pilot")
}

// EncodeHomeCoT renders the home/takeoff marker for the drone the point
// tracks.
func EncodeHomeCoT(now time.Time, p OperatorPoint) ([]byte, error) {
	return encodeOperatorCoT(now, p, "House.png", "Home")
}

func encodeOperatorCoT(now time.Time, p OperatorPoint, icon, label string) ([]byte, error) {
	if p.UID == "" {
		return nil, fmt.Errorf("%w: uid", ErrMissingField)
	}
	if p.DroneUID == "" {
		return nil, fmt.Errorf("%w: drone uid", ErrMissingField)
	}
	if err := kinematicsFinite(p.Kinematics); err != nil {
		return nil, err
	}

	timeStr := now.UTC().Format(TimestampLayout)
	staleStr := now.Add(StaleAfter).UTC().Format(TimestampLayout)
	k := p.Kinematics

	doc := fmt.Sprintf(operatorEventTemplate,
		p.UID, timeStr, timeStr, staleStr,
		k.Lat, k.Lon, k.AltHAE,
		p.UID, civilianIconPath+icon, label, p.DroneUID,
	)
	return []byte(doc), nil
}

// EncodeStatusCoT renders a ground-station health event. The remarks block
// carries the system stats in the key: value form the status parser splits on.
func EncodeStatusCoT(now time.Time, s StatusReport) ([]byte, error) {
	if s.UID == "" {
		return nil, fmt.Errorf("%w: uid", ErrMissingField)
	}
	if err := kinematicsFinite(s.Kinematics); err != nil {
		return nil, err
	}
	for name, v := range map[string]float64{
		"cpu":              s.Stats.CPUPercent,
		"memory_total":     s.Stats.MemoryTotalMB,
		"memory_available": s.Stats.MemoryAvailableMB,
		"disk_total":       s.Stats.DiskTotalMB,
		"disk_used":        s.Stats.DiskUsedMB,
		"temperature":      s.Stats.TemperatureC,
		"pluto_temp":       s.Stats.PlutoTempC,
		"zynq_temp":        s.Stats.ZynqTempC,
		"observed_at":      s.ObservedAt,
	} {
		if err := checkFinite(name, v); err != nil {
			return nil, err
		}
	}

	timeStr := now.UTC().Format(TimestampLayout)
	staleStr := now.Add(StaleAfter).UTC().Format(TimestampLayout)
	k := s.Kinematics

	remarks := fmt.Sprintf(statusRemarksFormat,
		s.Stats.CPUPercent,
		s.Stats.MemoryTotalMB, s.Stats.MemoryAvailableMB,
		s.Stats.DiskTotalMB, s.Stats.DiskUsedMB,
		s.Stats.TemperatureC, s.Stats.UptimeSec,
		s.Stats.PlutoTempC, s.Stats.ZynqTempC,
		s.UID, floatString(s.ObservedAt),
	)

	doc := fmt.Sprintf(statusEventTemplate,
		s.UID, timeStr, timeStr, staleStr,
		k.Lat, k.Lon, k.AltHAE,
		s.UID, remarks, k.Course, k.Speed,
	)
	return []byte(doc), nil
}

// Event is a parsed Cursor-on-Target event.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	How     string   `xml:"how,attr"`
	Point   Point    `xml:"point"`
	Detail  Detail   `xml:"detail"`
}

// Point is the position element of an event.
type Point struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
	HAE float64 `xml:"hae,attr"`
	CE  string  `xml:"ce,attr"`
	LE  string  `xml:"le,attr"`
}

// Detail holds the optional sub-elements; pointers stay nil when the source
// event omits them.
type Detail struct {
	Contact           *Contact           `xml:"contact"`
	PrecisionLocation *PrecisionLocation `xml:"precisionlocation"`
	Track             *Track             `xml:"track"`
	UserIcon          *UserIcon          `xml:"usericon"`
	Color             *Color             `xml:"color"`
	Remarks           string             `xml:"remarks"`
}

type Contact struct {
	Callsign string `xml:"callsign,attr"`
	Endpoint string `xml:"endpoint,attr"`
	Phone    string `xml:"phone,attr"`
}

type PrecisionLocation struct {
	GeoPointSrc string `xml:"geopointsrc,attr"`
	AltSrc      string `xml:"altsrc,attr"`
}

type Track struct {
	Course float64 `xml:"course,attr"`
	Speed  float64 `xml:"speed,attr"`
}

type UserIcon struct {
	IconSetPath string `xml:"iconsetpath,attr"`
}

type Color struct {
	ARGB string `xml:"argb,attr"`
}

// ParseEvent decodes a single event document.
func ParseEvent(raw []byte) (Event, error) {
	var ev Event
	if err := xml.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("parse cot event: %w", err)
	}
	return ev, nil
}
