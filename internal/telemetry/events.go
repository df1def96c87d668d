// Package telemetry defines the typed events twinotterd publishes on its
// WebSocket stream. Every event embeds Event, so clients can switch on Type
// before decoding the rest.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventState     EventType = "state"
	EventLog       EventType = "log"
	EventLoaded    EventType = "flight_loaded"
	EventExtracted EventType = "segment_extracted"
	EventDerived   EventType = "variable_derived"
)

// Event is the envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time in the format used by all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// New stamps an envelope of the given type.
func New(t EventType, component string) Event {
	return Event{Type: t, TS: NowTS(), Component: component}
}

// Heartbeat is sent periodically so clients can detect connectivity.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Requests      int64  `json:"requests"`
}

// StateTransition is emitted when the daemon moves between states.
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

// LogLine carries a human-readable message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

// FlightLoaded reports a completed load of a core file.
type FlightLoaded struct {
	Event
	File         string `json:"file"`
	FlightNumber int    `json:"flight_number"`
	Revision     int    `json:"revision"`
	Rows         int    `json:"rows"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
}

// SegmentExtracted reports rows cut from a flight by segment kind.
type SegmentExtracted struct {
	Event
	File        string `json:"file"`
	SegmentKind string `json:"kind"`
	Index       *int   `json:"index,omitempty"`
	Rows        int    `json:"rows"`
}

// VariableDerived reports a served variable and how it was resolved.
type VariableDerived struct {
	Event
	Name       string `json:"name"`
	Resolution string `json:"resolution"`
	Units      string `json:"units,omitempty"`
	Rows       int    `json:"rows"`
}

// Kind returns the event type; it is promoted to every embedding event.
func (e Event) Kind() EventType { return e.Type }
