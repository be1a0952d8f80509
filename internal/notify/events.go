package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of engine event.
type EventType string

const (
	// EventPortStarted fires when a watched port transitions inactive to
	// active between two scans.
	EventPortStarted EventType = "port.started"
	// EventPortStopped fires when a watched port transitions active to
	// inactive between two scans.
	EventPortStopped EventType = "port.stopped"
	// EventSnapshotUpdated fires after every committed refresh.
	EventSnapshotUpdated EventType = "snapshot.updated"
	// EventKillResult fires when a termination request resolves.
	EventKillResult EventType = "kill.result"
	// EventNotice is a generic user-facing notification.
	EventNotice EventType = "notice"
)

// Event is one engine occurrence published on the bus. Unused fields stay
// zero; which fields are meaningful depends on the type.
type Event struct {
	EventType     EventType
	Time          time.Time
	CorrelationID string

	Port        uint16
	PID         int32
	ProcessName string
	RecordCount int
	Success     bool

	Title   string
	Message string
}

// NewEvent builds an event of the given type, stamped now.
func NewEvent(eventType EventType) Event {
	return Event{
		EventType:     eventType,
		Time:          time.Now(),
		CorrelationID: uuid.New().String(),
	}
}

// Type returns the event type.
func (e Event) Type() EventType {
	return e.EventType
}

// String returns a human-readable description of the event.
func (e Event) String() string {
	switch e.EventType {
	case EventPortStarted:
		return fmt.Sprintf("port %d started (%s)", e.Port, e.ProcessName)
	case EventPortStopped:
		return fmt.Sprintf("port %d stopped", e.Port)
	case EventSnapshotUpdated:
		return fmt.Sprintf("snapshot updated: %d listeners", e.RecordCount)
	case EventKillResult:
		return fmt.Sprintf("kill pid %d on port %d: success=%t", e.PID, e.Port, e.Success)
	case EventNotice:
		return fmt.Sprintf("%s: %s", e.Title, e.Message)
	default:
		return string(e.EventType)
	}
}
