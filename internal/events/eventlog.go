// Package events provides the event-sourcing spine of the simulation core.
// Every decision the core takes (phase changes, spawns, bursts, rate
// updates) lands here as an immutable record.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a simulation event.
type EventType string

const (
	EventTypePhaseChanged      EventType = "PHASE_CHANGED"
	EventTypePhaseForced       EventType = "PHASE_FORCED"
	EventTypeRunStarted        EventType = "RUN_STARTED"
	EventTypeRunEnded          EventType = "RUN_ENDED"
	EventTypeSourceSpawned     EventType = "SOURCE_SPAWNED"
	EventTypeSourcesCleared    EventType = "SOURCES_CLEARED"
	EventTypeBurstStarted      EventType = "BURST_STARTED"
	EventTypeBurstEnded        EventType = "BURST_ENDED"
	EventTypeRateChanged       EventType = "RATE_CHANGED"
	EventTypeRubberBandUpdated EventType = "RUBBER_BAND_UPDATED"
	EventTypeImpulseRequested  EventType = "IMPULSE_REQUESTED"
	EventTypeParticleBlocked   EventType = "PARTICLE_BLOCKED"
	EventTypeParticleEscaped   EventType = "PARTICLE_ESCAPED"
)

// Event represents an immutable record of a core decision or inbound signal.
type Event struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type"`
	Origin     string      `json:"origin"`    // Which component or collaborator produced it
	TargetID   string      `json:"target_id"` // Affected source/phase (optional)
	Payload    interface{} `json:"payload"`   // Event-specific data
	RunID      string      `json:"run_id"`
	RunSeconds float64     `json:"run_seconds"` // Elapsed run time when emitted
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event Event) error
}

// EventLog is the in-memory append-only log of simulation events.
// Durability is delegated to the optional persister.
type EventLog struct {
	mu        sync.RWMutex
	events    []Event
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]Event, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (el *EventLog) Append(event Event) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, event)

	if el.persister != nil {
		// Write through to persistent storage off the tick path.
		go func(e Event) {
			_ = el.persister.Append(e)
		}(event)
	}
}

// GetByRun returns all events belonging to a specific run.
func (el *EventLog) GetByRun(runID string) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.RunID == runID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of a given type.
func (el *EventLog) GetByType(t EventType) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history of events for state reconstruction.
func (el *EventLog) Replay() []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.events
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}

// GenerateRunID creates a unique run identifier.
func GenerateRunID() string {
	return "RUN-" + uuid.NewString()[:8]
}
