// Package storage provides the persistence layer for the simulation core.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// RunEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type RunEvent struct {
	ID         string                 `json:"id" db:"id"`
	RunID      string                 `json:"run_id" db:"run_id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	EventType  string                 `json:"event_type" db:"event_type"`
	Origin     string                 `json:"origin" db:"origin"`
	TargetID   string                 `json:"target_id" db:"target_id"`
	Payload    map[string]interface{} `json:"payload" db:"payload"`
	RunSeconds float64                `json:"run_seconds" db:"run_seconds"`
}

// EventRepository defines the interface for event persistence.
// The core uses this interface; the implementation is in infra.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event RunEvent) error

	// GetByRunID retrieves all events for a specific run (for replay).
	GetByRunID(ctx context.Context, runID string) ([]RunEvent, error)

	// GetByEventType retrieves all events of a specific type within a run.
	GetByEventType(ctx context.Context, runID string, eventType string) ([]RunEvent, error)

	// GetByOrigin retrieves all events produced by a component or collaborator.
	GetByOrigin(ctx context.Context, runID string, origin string) ([]RunEvent, error)
}

// RunSnapshot represents the current state of a run for quick reads.
type RunSnapshot struct {
	RunID           string    `json:"run_id" db:"run_id"`
	Phase           string    `json:"phase" db:"phase"`
	ElapsedSeconds  float64   `json:"elapsed_seconds" db:"elapsed_seconds"`
	EmissionRate    float64   `json:"emission_rate" db:"emission_rate"`
	Multiplier      float64   `json:"multiplier" db:"multiplier"`
	RubberBand      float64   `json:"rubber_band" db:"rubber_band"`
	ActiveSources   int       `json:"active_sources" db:"active_sources"`
	PressurePercent float64   `json:"pressure_percent" db:"pressure_percent"`
	BurstActive     bool      `json:"burst_active" db:"burst_active"`
	BurstsTriggered int       `json:"bursts_triggered" db:"bursts_triggered"`
	LastUpdated     time.Time `json:"last_updated" db:"last_updated"`
}

// SnapshotRepository defines the interface for run state snapshots.
type SnapshotRepository interface {
	// Upsert updates or inserts a run snapshot.
	Upsert(ctx context.Context, snapshot RunSnapshot) error

	// GetByRunID retrieves a specific run's snapshot.
	GetByRunID(ctx context.Context, runID string) (*RunSnapshot, error)

	// List retrieves all run snapshots, most recent first.
	List(ctx context.Context) ([]RunSnapshot, error)
}
