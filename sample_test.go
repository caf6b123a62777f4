package heatmap

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestStrengthEffective(t *testing.T) {
	tests := []struct {
		name string
		s    Strength
		want float64
	}{
		{"unknown", Unknown, 30},
		{"zero is known", StrengthOf(0), 0},
		{"in range", StrengthOf(73), 73},
		{"above range", StrengthOf(150), 100},
		{"below range", StrengthOf(-10), 0},
		{"NaN", StrengthOf(math.NaN()), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Effective(); got != tt.want {
				t.Errorf("Effective() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrengthValue(t *testing.T) {
	if _, ok := Unknown.Value(); ok {
		t.Error("Unknown.Value() reported known")
	}
	v, ok := StrengthOf(150).Value()
	if !ok || v != 150 {
		t.Errorf("Value() = %v, %v; want raw 150, true", v, ok)
	}
	if Unknown.Known() || !StrengthOf(0).Known() {
		t.Error("Known() mismatch")
	}
}

func TestStrengthString(t *testing.T) {
	tests := []struct {
		s    Strength
		want string
	}{
		{Unknown, "N/A"},
		{StrengthOf(73), "73%"},
		{StrengthOf(0), "0%"},
		{StrengthOf(12.5), "12.5%"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestStrengthJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Strength
	}{
		{`null`, Unknown},
		{`73`, StrengthOf(73)},
		{`0`, StrengthOf(0)},
		{`-4.5`, StrengthOf(-4.5)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s Strength
			if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if s != tt.want {
				t.Errorf("got %+v, want %+v", s, tt.want)
			}
		})
	}

	var s Strength
	if err := json.Unmarshal([]byte(`"strong"`), &s); err == nil {
		t.Error("expected error for string strength")
	}

	b, err := json.Marshal(Unknown)
	if err != nil || string(b) != "null" {
		t.Errorf("Marshal(Unknown) = %s, %v; want null", b, err)
	}
}

func TestSampleValidate(t *testing.T) {
	if err := (Sample{Position: Pt(2, -1)}).Validate(); err != nil {
		t.Errorf("off-surface position rejected: %v", err)
	}
	err := (Sample{Position: Pt(math.NaN(), 0.5)}).Validate()
	if !errors.Is(err, ErrNonFinitePosition) {
		t.Errorf("Validate() = %v, want ErrNonFinitePosition", err)
	}
}

func TestSampleJSON(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	s := Sample{Position: Pt(0.25, 0.75), Strength: StrengthOf(64), Label: "desk", Timestamp: ts}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"x":0.25,"y":0.75,"signal":64,"ts":"2026-03-04T05:06:07Z","label":"desk"}`
	if string(b) != want {
		t.Errorf("Marshal = %s\nwant     %s", b, want)
	}

	b, err = json.Marshal(Sample{Position: Pt(0.5, 0.5)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"x":0.5,"y":0.5,"signal":null,"label":""}`; string(b) != want {
		t.Errorf("Marshal without ts = %s, want %s", b, want)
	}
}

func TestSampleUnmarshalMissingSignal(t *testing.T) {
	var s Sample
	if err := json.Unmarshal([]byte(`{"x":0.1,"y":0.2}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Strength.Known() {
		t.Error("missing signal should decode as unknown")
	}
	if s.Position != Pt(0.1, 0.2) || !s.Timestamp.IsZero() {
		t.Errorf("decoded %+v", s)
	}
}
