package wire

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/heatmap"
)

// looseSample accepts any JSON type per field so each one can be checked
// on its own.
type looseSample struct {
	X      json.RawMessage `json:"x"`
	Y      json.RawMessage `json:"y"`
	Signal json.RawMessage `json:"signal"`
	TS     json.RawMessage `json:"ts"`
	Label  json.RawMessage `json:"label"`
}

// DecodeSnapshot decodes an all_points payload. It reports ok=false when
// the payload is not a JSON array; array elements that are not objects with
// finite numeric x and y are skipped.
func DecodeSnapshot(data json.RawMessage) (samples []heatmap.Sample, ok bool) {
	var elems []json.RawMessage
	if !isArray(data) || json.Unmarshal(data, &elems) != nil {
		return nil, false
	}

	samples = make([]heatmap.Sample, 0, len(elems))
	for _, e := range elems {
		if s, ok := DecodeSample(e); ok {
			samples = append(samples, s)
		}
	}
	return samples, true
}

// DecodeSample decodes one sample object, as carried by point_added. x and
// y must be finite JSON numbers. A non-numeric signal is treated as
// unknown, an unparsable ts as absent and a non-string label as empty.
func DecodeSample(data json.RawMessage) (heatmap.Sample, bool) {
	var ls looseSample
	if !isObject(data) || json.Unmarshal(data, &ls) != nil {
		return heatmap.Sample{}, false
	}

	x, okX := number(ls.X)
	y, okY := number(ls.Y)
	if !okX || !okY {
		return heatmap.Sample{}, false
	}

	s := heatmap.Sample{
		Position:  heatmap.Pt(x, y),
		Strength:  strength(ls.Signal),
		Label:     text(ls.Label),
		Timestamp: timestamp(ls.TS),
	}
	return s, true
}

// number parses a finite JSON number.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !isNumberStart(raw[0]) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// numberOrString parses a finite JSON number or a string holding one.
func numberOrString(raw json.RawMessage) (float64, bool) {
	if v, ok := number(raw); ok {
		return v, true
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func strength(raw json.RawMessage) heatmap.Strength {
	if v, ok := number(raw); ok {
		return heatmap.StrengthOf(v)
	}
	return heatmap.Unknown
}

// text returns the NFC form of a JSON string, or "" for anything else.
func text(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return norm.NFC.String(s)
}

func timestamp(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func isNumberStart(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9')
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
