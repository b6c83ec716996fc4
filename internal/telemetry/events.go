// Package telemetry defines the typed events that flow over the WebSocket
// connection between antposd and its clients.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat     EventType = "heartbeat"
	EventState         EventType = "state"
	EventLog           EventType = "log"
	EventDatasetLoaded EventType = "dataset_loaded"
	EventReloadFailed  EventType = "reload_failed"
)

// Component is stamped on every event the daemon emits.
const Component = "antposd"

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func envelope(t EventType) Event {
	return Event{Type: t, TS: NowTS(), Component: Component}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Generation    uint64 `json:"generation"`
}

func NewHeartbeat(state string, uptime time.Duration, generation uint64) Heartbeat {
	return Heartbeat{Event: envelope(EventHeartbeat), State: state, UptimeSeconds: int64(uptime.Seconds()), Generation: generation}
}

// StateTransition is emitted whenever the daemon moves between operating
// states (e.g. LOADING -> READY).
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

func NewStateTransition(from, to string) StateTransition {
	return StateTransition{Event: envelope(EventState), From: from, To: to}
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func NewLogLine(level, msg string, attrs map[string]string) LogLine {
	return LogLine{Event: envelope(EventLog), Level: level, Message: msg, Attrs: attrs}
}

// DatasetLoaded announces that a registry generation is now being served.
type DatasetLoaded struct {
	Event
	Generation uint64  `json:"generation"`
	Origin     string  `json:"origin"`
	Stations   int     `json:"stations"`
	Antennas   int     `json:"antennas"`
	DurationMS float64 `json:"duration_ms"`
}

func NewDatasetLoaded(generation uint64, origin string, stations, antennas int, took time.Duration) DatasetLoaded {
	return DatasetLoaded{
		Event:      envelope(EventDatasetLoaded),
		Generation: generation,
		Origin:     origin,
		Stations:   stations,
		Antennas:   antennas,
		DurationMS: float64(took.Microseconds()) / 1000,
	}
}

// ReloadFailed reports a reload that was rejected. The previous generation
// keeps serving.
type ReloadFailed struct {
	Event
	Generation uint64 `json:"generation"`
	Error      string `json:"error"`
}

func NewReloadFailed(generation uint64, err error) ReloadFailed {
	return ReloadFailed{Event: envelope(EventReloadFailed), Generation: generation, Error: err.Error()}
}
