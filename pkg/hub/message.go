// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
//
// The locomotion server publishes one Event per generated frame and one
// when a run finishes; every connected websocket client receives them as
// JSON text frames.
package hub

import "encoding/json"

// EventType names what an Event reports.
type EventType string

const (
	// EventStarted is sent when a run begins.
	EventStarted EventType = "started"
	// EventProgress is sent after every generated frame.
	EventProgress EventType = "progress"
	// EventDone is sent when a run produced an animation.
	EventDone EventType = "done"
	// EventFailed is sent when a run stopped without an animation.
	EventFailed EventType = "failed"
)

// Event is the JSON envelope sent to clients.
type Event struct {
	Type  EventType       `json:"type"`
	RunID string          `json:"run_id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// NewEvent builds an event, encoding data as its payload.
func NewEvent(t EventType, runID string, data any) (Event, error) {
	ev := Event{Type: t, RunID: runID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return ev, err
		}
		ev.Data = raw
	}
	return ev, nil
}

// Message is an encoded frame queued for one client.
type Message struct {
	Data []byte
}
