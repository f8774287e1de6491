// ABOUTME: Activity model for Strava workout records.
// ABOUTME: Typed optional fields plus the raw JSON payload for prompts and files.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SportType tags an activity with one of the sports the formatter set knows.
type SportType string

const (
	SportRun     SportType = "Run"
	SportRide    SportType = "Ride"
	SportSwim    SportType = "Swim"
	SportGeneric SportType = "Generic"
)

// Activity is one workout record as returned by the Strava activities API.
// Every numeric field is optional; upstream omits whatever the recording
// device did not capture, so consumers must tolerate nil everywhere.
type Activity struct {
	ID                   *int64     `json:"id,omitempty"`
	Name                 string     `json:"name,omitempty"`
	SportTypeRaw         string     `json:"sport_type,omitempty"`
	Type                 string     `json:"type,omitempty"`
	Distance             *float64   `json:"distance,omitempty"`
	MovingTime           *float64   `json:"moving_time,omitempty"`
	ElapsedTime          *float64   `json:"elapsed_time,omitempty"`
	AverageSpeed         *float64   `json:"average_speed,omitempty"`
	MaxSpeed             *float64   `json:"max_speed,omitempty"`
	AverageHeartrate     *float64   `json:"average_heartrate,omitempty"`
	MaxHeartrate         *float64   `json:"max_heartrate,omitempty"`
	TotalElevationGain   *float64   `json:"total_elevation_gain,omitempty"`
	AverageWatts         *float64   `json:"average_watts,omitempty"`
	WeightedAverageWatts *float64   `json:"weighted_average_watts,omitempty"`
	DeviceWatts          bool       `json:"device_watts,omitempty"`
	AverageCadence       *float64   `json:"average_cadence,omitempty"`
	AverageTemp          *float64   `json:"average_temp,omitempty"`
	SufferScore          *float64   `json:"suffer_score,omitempty"`
	Calories             *float64   `json:"calories,omitempty"`
	Trainer              bool       `json:"trainer,omitempty"`
	StartLatlng          []float64  `json:"start_latlng,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes the typed fields and keeps the verbatim payload so
// files and prompts carry exactly what the API returned.
func (a *Activity) UnmarshalJSON(data []byte) error {
	type alias Activity
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*a = Activity(tmp)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the verbatim JSON payload the activity was decoded from.
// For activities built in code it falls back to marshaling the struct.
func (a *Activity) Raw() json.RawMessage {
	if a.raw != nil {
		return a.raw
	}
	data, err := json.Marshal(a)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// IndentedJSON renders the raw payload with two-space indentation for
// embedding into an LLM prompt.
func (a *Activity) IndentedJSON() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, a.Raw(), "", "  "); err != nil {
		return string(a.Raw())
	}
	return buf.String()
}

// IDString returns the activity id as a string, or "unknown" when absent.
func (a *Activity) IDString() string {
	if a.ID == nil {
		return "unknown"
	}
	return strconv.FormatInt(*a.ID, 10)
}

// Sport resolves sport_type, falling back to the legacy type field, mapped
// onto the closed formatter set.
func (a *Activity) Sport() SportType {
	tag := a.SportTypeRaw
	if tag == "" {
		tag = a.Type
	}
	switch tag {
	case "Run", "TrailRun", "VirtualRun":
		return SportRun
	case "Ride", "VirtualRide", "GravelRide", "MountainBikeRide", "EBikeRide":
		return SportRide
	case "Swim":
		return SportSwim
	default:
		return SportGeneric
	}
}

// SportLabel is the human-readable sport tag used in tool logs and headers.
func (a *Activity) SportLabel() string {
	if a.SportTypeRaw != "" {
		return a.SportTypeRaw
	}
	if a.Type != "" {
		return a.Type
	}
	return "未知类型"
}
