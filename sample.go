package heatmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrNonFinitePosition is returned for samples whose position has a NaN or
// infinite component.
var ErrNonFinitePosition = errors.New("heatmap: non-finite sample position")

// Strength is an optional signal-quality reading in [0, 100].
// The zero value is an unknown strength, which is distinct from 0.
type Strength struct {
	value float64
	known bool
}

// Unknown is the unknown strength.
var Unknown = Strength{}

// StrengthOf returns a known strength. The value is stored as given and
// clamped only when it is used for rendering.
func StrengthOf(v float64) Strength {
	return Strength{value: v, known: true}
}

// Value returns the raw reading and whether it is known.
func (s Strength) Value() (float64, bool) {
	return s.value, s.known
}

// Known reports whether the strength was measured.
func (s Strength) Known() bool { return s.known }

// Effective returns the strength used by rendering: FallbackStrength when
// unknown or NaN, otherwise the reading clamped to [0, 100].
func (s Strength) Effective() float64 {
	if !s.known || math.IsNaN(s.value) {
		return FallbackStrength
	}
	return math.Max(0, math.Min(100, s.value))
}

// Percent returns Effective scaled to [0, 1].
func (s Strength) Percent() float64 {
	return s.Effective() / 100
}

// String returns "NN%" or "N/A".
func (s Strength) String() string {
	if !s.known {
		return "N/A"
	}
	return strconv.FormatFloat(s.value, 'f', -1, 64) + "%"
}

// MarshalJSON encodes an unknown strength as null.
func (s Strength) MarshalJSON() ([]byte, error) {
	if !s.known || math.IsNaN(s.value) || math.IsInf(s.value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a number or null.
func (s *Strength) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Unknown
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("heatmap: strength: %w", err)
	}
	*s = StrengthOf(v)
	return nil
}

// Sample is one measurement contributed to the heatmap.
type Sample struct {
	// Position is normalized to the output surface, each component
	// nominally in [0, 1].
	Position Point

	// Strength is the signal reading; the zero value means unknown.
	Strength Strength

	// Label is a free-form annotation. Rendering ignores it.
	Label string

	// Timestamp is when the sample was recorded; the zero value means absent.
	Timestamp time.Time
}

// Validate reports ErrNonFinitePosition if the position is not finite.
func (s Sample) Validate() error {
	if !s.Position.IsFinite() {
		return fmt.Errorf("%w: (%v, %v)", ErrNonFinitePosition, s.Position.X, s.Position.Y)
	}
	return nil
}

// sampleJSON is the wire shape shared with browser clients.
type sampleJSON struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Signal Strength   `json:"signal"`
	TS     *time.Time `json:"ts,omitempty"`
	Label  string     `json:"label"`
}

// MarshalJSON encodes the sample as {"x","y","signal","ts","label"}.
func (s Sample) MarshalJSON() ([]byte, error) {
	w := sampleJSON{
		X:      s.Position.X,
		Y:      s.Position.Y,
		Signal: s.Strength,
		Label:  s.Label,
	}
	if !s.Timestamp.IsZero() {
		ts := s.Timestamp
		w.TS = &ts
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire shape. It does not check that the
// position is present or finite; see package wire for tolerant decoding.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var w sampleJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Sample{
		Position: Pt(w.X, w.Y),
		Strength: w.Signal,
		Label:    w.Label,
	}
	if w.TS != nil {
		s.Timestamp = *w.TS
	}
	return nil
}
