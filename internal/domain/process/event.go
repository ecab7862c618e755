package process

import "time"

// EventType names a process lifecycle occurrence published onto the bus
// under the "events:<type>" topic family (e.g. "events:crashed",
// "events:health.warning").
type EventType string

// Event type constants, matching the bus topic suffixes they are published
// under.
const (
	EventRegistered EventType = "registered"
	EventStarted    EventType = "started"
	EventStopped    EventType = "stopped"
	EventCrashed    EventType = "crashed"
	EventRestarted  EventType = "restarted"
	EventHealthWarn EventType = "health.warning"
	EventHealthOK   EventType = "health.ok"
)

// Event is the payload published to subscribers of a process's topic.
type Event struct {
	Type      EventType
	ProcessID string
	Name      string
	Status    Status
	PID       int
	ExitCode  int
	Message   string
	Timestamp time.Time
}

// NewEvent builds an Event stamped with the current time.
//
// Params:
//   - t: the event type.
//   - descriptor: the process the event concerns.
//   - rs: the runtime state to snapshot PID/status/exit code from.
//
// Returns:
//   - Event: a ready-to-publish event value.
func NewEvent(t EventType, descriptor Descriptor, rs *RuntimeState) Event {
	ev := Event{
		Type:      t,
		ProcessID: descriptor.ID,
		Name:      descriptor.Metadata.Name,
		Timestamp: time.Now(),
	}
	if rs != nil {
		ev.Status = rs.Status
		ev.PID = rs.PID
		ev.ExitCode = rs.LastExitCode
		ev.Message = rs.LastError
	}
	return ev
}
