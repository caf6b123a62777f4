// Package wire defines the realtime messages exchanged between a heatmap
// server and its viewers.
//
// Every message is a JSON envelope {"event": name, "data": payload} sent
// as one websocket text frame. Decoding is tolerant: malformed payloads are
// reported with ok=false and never mutate anything.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names.
const (
	// EventSignalUpdate carries a Status (server to viewer).
	EventSignalUpdate = "signal_update"
	// EventAllPoints carries the full sample list (server to viewer).
	EventAllPoints = "all_points"
	// EventPointAdded carries one accepted sample (server to submitter).
	EventPointAdded = "point_added"
	// EventAddPoint carries an AddPoint request (viewer to server).
	EventAddPoint = "add_point"
)

// ErrNoEvent is returned for envelopes without an event name.
var ErrNoEvent = errors.New("wire: envelope has no event")

// Envelope is the outer frame of every message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps data in an envelope for event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Decode parses an envelope. The payload is left raw for the event
// specific decoders.
func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrNoEvent
	}
	return env, nil
}
