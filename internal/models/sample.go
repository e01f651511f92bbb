// Package models contains domain types for the IoT dashboard agent.
package models

import "time"

// TelemetrySample is one polled reading from the sensor backend.
// Time is kept as the raw string the backend sent (normally RFC3339) so that
// duplicate detection compares timestamps exactly as received.
type TelemetrySample struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	CB1         float64 `json:"cb1"`
	CB2         float64 `json:"cb2"`
	CB3         float64 `json:"cb3"`
	Time        string  `json:"time"`
}

// timeLayouts are the formats accepted when interpreting a sample timestamp.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp parses the sample's time string. ok is false when the string
// matches none of the accepted layouts.
func (s TelemetrySample) Timestamp() (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s.Time); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValuesEqual reports whether every numeric channel matches the other sample.
// The timestamp is deliberately not part of the comparison.
func (s TelemetrySample) ValuesEqual(o TelemetrySample) bool {
	return s.Temperature == o.Temperature &&
		s.Humidity == o.Humidity &&
		s.Light == o.Light &&
		s.CB1 == o.CB1 &&
		s.CB2 == o.CB2 &&
		s.CB3 == o.CB3
}

// Notification is the ephemeral event broadcast after a sample is appended to
// the history buffer. Snapshot is a copy; listeners may read it freely but the
// engine never hands out its internal slice.
type Notification struct {
	NewSample TelemetrySample   `json:"newSample"`
	Snapshot  []TelemetrySample `json:"snapshot"`
}
