// Package storage - reconstructor.go
// Rebuilds run state from the event log: state = f(events).
package storage

import (
	"context"
	"fmt"
)

// Reconstructor rebuilds a run snapshot from the event ledger.
// This is used for:
// 1. Recovering the snapshot table after corruption or cache loss
// 2. Auditing a finished run tick by tick
// 3. Debugging pacing complaints against the recorded history
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// TimelineEntry is a simplified event for the run timeline view.
type TimelineEntry struct {
	Timestamp  string  `json:"timestamp"`
	RunSeconds float64 `json:"run_seconds"`
	EventType  string  `json:"event_type"`
	Summary    string  `json:"summary"` // Human-readable description
	Impact     string  `json:"impact"`  // "ESCALATION", "RELIEF", "NEUTRAL"
}

// RebuildRunSnapshot replays a run's events in order and folds them into
// a snapshot equivalent to what the live session would have persisted.
func (r *Reconstructor) RebuildRunSnapshot(ctx context.Context, runID string) (*RunSnapshot, error) {
	events, err := r.eventRepo.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for run: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events recorded for run %s", runID)
	}

	snap := RunSnapshot{
		RunID:      runID,
		Phase:      "Menu",
		Multiplier: 1,
		RubberBand: 1,
	}

	for _, e := range events {
		r.applyEvent(&snap, e)
	}
	return &snap, nil
}

// GenerateTimeline creates the human-readable history for a run.
func (r *Reconstructor) GenerateTimeline(ctx context.Context, runID string) ([]TimelineEntry, error) {
	events, err := r.eventRepo.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	var timeline []TimelineEntry
	for _, e := range events {
		timeline = append(timeline, TimelineEntry{
			Timestamp:  e.Timestamp.Format("15:04:05"),
			RunSeconds: e.RunSeconds,
			EventType:  e.EventType,
			Summary:    r.summarizeEvent(e),
			Impact:     r.determineImpact(e),
		})
	}
	return timeline, nil
}

// applyEvent folds one ledger entry into the snapshot.
func (r *Reconstructor) applyEvent(snap *RunSnapshot, event RunEvent) {
	if event.RunSeconds > snap.ElapsedSeconds {
		snap.ElapsedSeconds = event.RunSeconds
	}
	snap.LastUpdated = event.Timestamp

	switch event.EventType {
	case "RUN_STARTED":
		snap.Phase = "Running"
		snap.ActiveSources = 0
		if rate, ok := payloadFloat(event, "base_rate"); ok {
			snap.EmissionRate = rate
		}
	case "RATE_CHANGED":
		if rate, ok := payloadFloat(event, "rate"); ok {
			snap.EmissionRate = rate
		}
		if mult, ok := payloadFloat(event, "multiplier"); ok {
			snap.Multiplier = mult
		}
		if rb, ok := payloadFloat(event, "rubber_band"); ok {
			snap.RubberBand = rb
		}
	case "SOURCE_SPAWNED":
		snap.ActiveSources++
	case "SOURCES_CLEARED":
		snap.ActiveSources = 0
	case "BURST_STARTED":
		snap.BurstActive = true
		snap.BurstsTriggered++
		snap.PressurePercent = 0
	case "BURST_ENDED":
		snap.BurstActive = false
	case "RUN_ENDED":
		snap.Phase = "Stopped"
		snap.BurstActive = false
		snap.ActiveSources = 0
	}
}

func payloadFloat(event RunEvent, key string) (float64, bool) {
	if event.Payload == nil {
		return 0, false
	}
	v, ok := event.Payload[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// summarizeEvent creates a human-readable summary.
func (r *Reconstructor) summarizeEvent(event RunEvent) string {
	switch event.EventType {
	case "RUN_STARTED":
		return "The leak opened and the clock started."
	case "SOURCE_SPAWNED":
		return "A new emission point broke through at " + event.TargetID + "."
	case "BURST_STARTED":
		return "Accumulated pressure released as a burst."
	case "BURST_ENDED":
		return "The burst subsided; rates reverted."
	case "RATE_CHANGED":
		return "The escalation curve adjusted the emission rate."
	case "RUBBER_BAND_UPDATED":
		return "Player performance re-tuned the difficulty correction."
	case "RUN_ENDED":
		return "The run ended. The leak always wins."
	default:
		return "Something happened on the seabed."
	}
}

// determineImpact classifies the event impact on the player.
func (r *Reconstructor) determineImpact(event RunEvent) string {
	switch event.EventType {
	case "SOURCE_SPAWNED", "BURST_STARTED", "RATE_CHANGED":
		return "ESCALATION"
	case "BURST_ENDED":
		return "RELIEF"
	default:
		return "NEUTRAL"
	}
}
