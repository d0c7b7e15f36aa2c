// Package vo2trend extracts VO2 Max estimates from a batch of activity
// payloads and arranges them into a time-ordered series for charting.
package vo2trend

import "time"

const (
	// MesgNumVO2Max is the global message number of the physiological metrics
	// record that carries the VO2 Max estimate.
	MesgNumVO2Max uint16 = 140

	// FieldVO2MaxRaw is the field number holding the raw VO2 Max value.
	FieldVO2MaxRaw uint8 = 7
)

// Category is an activity type label. Values outside the fixed set are kept as-is.
type Category string

const (
	CategoryRunning      Category = "running"
	CategoryTrailRunning Category = "trail_running"
	CategoryWalking      Category = "walking"
	CategoryCycling      Category = "cycling"
)

// Color is the display color assigned to a category group.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

var categoryColors = map[Category]Color{
	CategoryRunning:      ColorBlue,
	CategoryTrailRunning: ColorGreen,
	CategoryWalking:      ColorOrange,
	CategoryCycling:      ColorRed,
}

// Known reports whether c belongs to the fixed category set.
func (c Category) Known() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color returns the display color for c, gray for anything outside the fixed set.
func (c Category) Color() Color {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return ColorGray
}

// Activity is one downloaded fitness activity.
type Activity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Category  Category  `json:"category"`
	StartTime time.Time `json:"start_time,omitzero"` // zero when unknown
	Payload   []byte    `json:"-"`

	// Metric is the derived VO2 Max; zero or negative means absent.
	Metric      float64 `json:"vo2_max"`
	MetricFound bool    `json:"vo2_max_found"`
}

// HasMetric reports whether the activity carries a chartable VO2 Max value.
func (a Activity) HasMetric() bool {
	return a.Metric > 0
}

// Label identifies the activity in diagnostics, preferring its source path.
func (a Activity) Label() string {
	if a.Path != "" {
		return a.Path
	}
	return a.Name
}

// TypedRecord is one decoded data message: its global message number and
// the valid fields keyed by field number.
type TypedRecord struct {
	Type   uint16
	Fields map[uint8]any
}

// DecodeFunc decodes a bare binary stream into typed records plus non-fatal
// decode warnings. It returns an error when the stream cannot be decoded at all.
type DecodeFunc func(stream []byte) (records []TypedRecord, warnings []string, err error)
