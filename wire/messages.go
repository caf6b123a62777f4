package wire

import (
	"encoding/json"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/heatmap"
)

// DefaultCoordinate is used for an add_point axis the client left out.
const DefaultCoordinate = 0.5

// Status is the latest link reading, broadcast as signal_update. It drives
// the live badge only and never touches the sample store.
type Status struct {
	SSID      string
	BSSID     string
	Strength  heatmap.Strength
	Timestamp time.Time
}

type statusJSON struct {
	Timestamp *string          `json:"timestamp"`
	SSID      *string          `json:"ssid"`
	BSSID     *string          `json:"bssid"`
	Signal    heatmap.Strength `json:"signal_pct"`
}

// MarshalJSON encodes missing fields as null.
func (s Status) MarshalJSON() ([]byte, error) {
	w := statusJSON{
		SSID:   nonEmpty(s.SSID),
		BSSID:  nonEmpty(s.BSSID),
		Signal: s.Strength,
	}
	if !s.Timestamp.IsZero() {
		ts := s.Timestamp.UTC().Format(time.RFC3339Nano)
		w.Timestamp = &ts
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the signal_update payload.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp json.RawMessage `json:"timestamp"`
		SSID      json.RawMessage `json:"ssid"`
		BSSID     json.RawMessage `json:"bssid"`
		Signal    json.RawMessage `json:"signal_pct"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Status{
		SSID:      text(raw.SSID),
		BSSID:     text(raw.BSSID),
		Strength:  strength(raw.Signal),
		Timestamp: timestamp(raw.Timestamp),
	}
	return nil
}

// DecodeStatus decodes a signal_update payload, reporting ok=false for
// anything that is not a JSON object.
func DecodeStatus(data json.RawMessage) (Status, bool) {
	var s Status
	if !isObject(data) || json.Unmarshal(data, &s) != nil {
		return Status{}, false
	}
	return s, true
}

// AddPoint asks the server to record a sample at a normalized position.
// The server attaches the current strength and time.
type AddPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// DecodeAddPoint decodes an add_point payload. A missing x or y defaults to
// DefaultCoordinate; a present one must be a finite number or numeric
// string.
func DecodeAddPoint(data json.RawMessage) (AddPoint, bool) {
	var raw struct {
		X     json.RawMessage `json:"x"`
		Y     json.RawMessage `json:"y"`
		Label json.RawMessage `json:"label"`
	}
	if !isObject(data) || json.Unmarshal(data, &raw) != nil {
		return AddPoint{}, false
	}

	p := AddPoint{X: DefaultCoordinate, Y: DefaultCoordinate, Label: text(raw.Label)}
	for _, axis := range []struct {
		raw json.RawMessage
		dst *float64
	}{{raw.X, &p.X}, {raw.Y, &p.Y}} {
		if len(axis.raw) == 0 {
			continue
		}
		v, ok := numberOrString(axis.raw)
		if !ok {
			return AddPoint{}, false
		}
		*axis.dst = v
	}
	return p, true
}

// Sample builds the sample the server records for p.
func (p AddPoint) Sample(strength heatmap.Strength, at time.Time) heatmap.Sample {
	return heatmap.Sample{
		Position:  heatmap.Pt(p.X, p.Y),
		Strength:  strength,
		Label:     norm.NFC.String(p.Label),
		Timestamp: at,
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
