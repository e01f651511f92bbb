package syncer

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/iot-dashboard/agent/internal/models"
)

// rawRecord mirrors the telemetry endpoint's JSON. The backend is loose about
// field names (temperature vs temp, humidity vs hum) and about whether it
// sends a single object or a one-element array, so every field is optional.
type rawRecord struct {
	Temperature *float64        `json:"temperature"`
	Temp        *float64        `json:"temp"`
	Humidity    *float64        `json:"humidity"`
	Hum         *float64        `json:"hum"`
	Light       *float64        `json:"light"`
	CB1         *float64        `json:"cb1"`
	CB2         *float64        `json:"cb2"`
	CB3         *float64        `json:"cb3"`
	Time        json.RawMessage `json:"time"`
}

// decodeSample turns a telemetry response body into a sample. ok is false when
// the body carries no usable record ("no data this cycle"). Missing numeric
// fields default to 0; a missing time defaults to now.
func decodeSample(body []byte, now time.Time) (models.TelemetrySample, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return models.TelemetrySample{}, false
	}

	// Arrays use their first element; the backend sends both shapes.
	if body[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(body, &records); err != nil || len(records) == 0 {
			return models.TelemetrySample{}, false
		}
		body = bytes.TrimSpace(records[0])
		if len(body) == 0 || bytes.Equal(body, []byte("null")) {
			return models.TelemetrySample{}, false
		}
	}

	var rec rawRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return models.TelemetrySample{}, false
	}

	return models.TelemetrySample{
		Temperature: pick(rec.Temperature, rec.Temp),
		Humidity:    pick(rec.Humidity, rec.Hum),
		Light:       pick(rec.Light, nil),
		CB1:         pick(rec.CB1, nil),
		CB2:         pick(rec.CB2, nil),
		CB3:         pick(rec.CB3, nil),
		Time:        decodeTime(rec.Time, now),
	}, true
}

func pick(primary, alias *float64) float64 {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return 0
}

// decodeTime accepts an RFC3339-ish string or an epoch number (seconds or
// milliseconds). String timestamps are kept verbatim so duplicate detection
// sees exactly what the backend sent.
func decodeTime(raw json.RawMessage, now time.Time) string {
	if len(raw) == 0 {
		return now.Format(time.RFC3339)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return now.Format(time.RFC3339)
		}
		return s
	}
	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		sec := int64(epoch)
		if epoch > 1e12 { // milliseconds
			return time.UnixMilli(sec).UTC().Format(time.RFC3339)
		}
		return time.Unix(sec, 0).UTC().Format(time.RFC3339)
	}
	return now.Format(time.RFC3339)
}
