package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/signalsfoundry/dragonsim/model"
)

// Fixed values the FPV receiver hardware stamps on every lock update: the BLE
// advertising access address (0x8e89bed6) and the OpenDroneID header bytes.
const (
	fpvAccessAddress = 2391391958
	fpvAdvData       = "020116faff0d01"
)

type fpvDetectionBody struct {
	Timestamp         string  `json:"timestamp"`
	Manufacturer      string  `json:"manufacturer"`
	DeviceType        string  `json:"device_type"`
	Frequency         int     `json:"frequency"`
	Bandwidth         string  `json:"bandwidth"`
	SignalStrength    float64 `json:"signal_strength"`
	DetectionSource   string  `json:"detection_source"`
	Status            string  `json:"status"`
	EstimatedDistance float64 `json:"estimated_distance"`
}

type fpvDetectionElement struct {
	Detection fpvDetectionBody `json:"FPV Detection"`
}

type fpvAuxAdvInd struct {
	RSSI float64 `json:"rssi"`
	AA   int64   `json:"aa"`
	Time string  `json:"time"`
}

type fpvAext struct {
	AdvA string `json:"AdvA"`
}

type fpvLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type fpvUpdateMessage struct {
	AuxAdvInd fpvAuxAdvInd `json:"AUX_ADV_IND"`
	Aext      fpvAext      `json:"aext"`
	AdvData   string       `json:"AdvData"`
	Location  fpvLocation  `json:"location"`
	Distance  float64      `json:"distance"`
	Frequency int          `json:"frequency"`
}

// EncodeFPVDetection renders the initial lock announcement, a one-element
// array in the receiver's detection_messages form.
func EncodeFPVDetection(now time.Time, det model.FPVDetection) ([]byte, error) {
	if det.DetectionSource == "" {
		return nil, fmt.Errorf("%w: detection source", ErrMissingField)
	}
	if err := checkFinite("signal_strength", det.SignalStrength); err != nil {
		return nil, err
	}
	if err := checkFinite("estimated_distance", det.EstimatedDistance); err != nil {
		return nil, err
	}

	msg := []fpvDetectionElement{{Detection: fpvDetectionBody{
		Timestamp:         now.UTC().Format(TimestampLayout),
		Manufacturer:      det.SourceInst,
		DeviceType:        fmt.Sprintf("FPV%dMHz", det.Frequency),
		Frequency:         det.Frequency,
		Bandwidth:         det.Bandwidth,
		SignalStrength:    det.SignalStrength,
		DetectionSource:   det.DetectionSource,
		Status:            "NEW CONTACT LOCK",
		EstimatedDistance: det.EstimatedDistance,
	}}}
	return json.Marshal(msg)
}

// EncodeFPVUpdate renders an ongoing lock update in the receiver's
// AUX_ADV_IND form. The detector has no position fix, so location is zero.
func EncodeFPVUpdate(now time.Time, upd model.FPVUpdate) ([]byte, error) {
	if upd.DetectionSource == "" {
		return nil, fmt.Errorf("%w: detection source", ErrMissingField)
	}
	if err := checkFinite("signal_strength", upd.SignalStrength); err != nil {
		return nil, err
	}
	if err := checkFinite("estimated_distance", upd.EstimatedDistance); err != nil {
		return nil, err
	}

	msg := fpvUpdateMessage{
		AuxAdvInd: fpvAuxAdvInd{
			RSSI: upd.SignalStrength,
			AA:   fpvAccessAddress,
			Time: now.UTC().Format(TimestampLayout),
		},
		Aext:      fpvAext{AdvA: upd.DetectionSource + " random"},
		AdvData:   fpvAdvData,
		Location:  fpvLocation{Lat: 0, Lon: 0},
		Distance:  upd.EstimatedDistance,
		Frequency: upd.Frequency,
	}
	return json.Marshal(msg)
}
