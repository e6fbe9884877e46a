package storage

import (
	"context"
	"testing"
	"time"
)

// memoryEventRepo is an in-memory EventRepository for reconstruction tests.
type memoryEventRepo struct {
	events []RunEvent
}

func (r *memoryEventRepo) Append(ctx context.Context, event RunEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *memoryEventRepo) GetByRunID(ctx context.Context, runID string) ([]RunEvent, error) {
	var out []RunEvent
	for _, e := range r.events {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) GetByEventType(ctx context.Context, runID string, eventType string) ([]RunEvent, error) {
	var out []RunEvent
	for _, e := range r.events {
		if e.RunID == runID && e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) GetByOrigin(ctx context.Context, runID string, origin string) ([]RunEvent, error) {
	var out []RunEvent
	for _, e := range r.events {
		if e.RunID == runID && e.Origin == origin {
			out = append(out, e)
		}
	}
	return out, nil
}

func seedRunLedger(repo *memoryEventRepo) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ledger := []RunEvent{
		{ID: "1", RunID: "RUN-A", Timestamp: t0, EventType: "RUN_STARTED",
			Payload: map[string]interface{}{"base_rate": 5.0}},
		{ID: "2", RunID: "RUN-A", Timestamp: t0, EventType: "SOURCE_SPAWNED", TargetID: "SRC-001"},
		{ID: "3", RunID: "RUN-A", Timestamp: t0.Add(30 * time.Second), EventType: "RATE_CHANGED",
			RunSeconds: 30,
			Payload: map[string]interface{}{
				"rate": 8.5, "multiplier": 1.2, "rubber_band": 0.9,
			}},
		{ID: "4", RunID: "RUN-A", Timestamp: t0.Add(60 * time.Second), EventType: "BURST_STARTED",
			RunSeconds: 60},
		{ID: "5", RunID: "RUN-A", Timestamp: t0.Add(65 * time.Second), EventType: "BURST_ENDED",
			RunSeconds: 65},
		{ID: "6", RunID: "RUN-A", Timestamp: t0.Add(120 * time.Second), EventType: "SOURCE_SPAWNED",
			TargetID: "SRC-002", RunSeconds: 120},
	}
	repo.events = append(repo.events, ledger...)
}

func TestRebuildRunSnapshot(t *testing.T) {
	repo := &memoryEventRepo{}
	seedRunLedger(repo)
	r := NewReconstructor(repo)

	snap, err := r.RebuildRunSnapshot(context.Background(), "RUN-A")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if snap.Phase != "Running" {
		t.Errorf("Expected phase Running for an unfinished run, got %s", snap.Phase)
	}
	if snap.ActiveSources != 2 {
		t.Errorf("Expected 2 active sources, got %d", snap.ActiveSources)
	}
	if snap.EmissionRate != 8.5 {
		t.Errorf("Expected last rate 8.5, got %v", snap.EmissionRate)
	}
	if snap.RubberBand != 0.9 {
		t.Errorf("Expected rubber band 0.9, got %v", snap.RubberBand)
	}
	if snap.BurstsTriggered != 1 {
		t.Errorf("Expected 1 burst, got %d", snap.BurstsTriggered)
	}
	if snap.BurstActive {
		t.Errorf("Expected no active burst after BURST_ENDED")
	}
	if snap.ElapsedSeconds != 120 {
		t.Errorf("Expected elapsed 120s, got %v", snap.ElapsedSeconds)
	}
}

func TestRebuildFinishedRun(t *testing.T) {
	repo := &memoryEventRepo{}
	seedRunLedger(repo)
	repo.events = append(repo.events, RunEvent{
		ID: "7", RunID: "RUN-A", EventType: "RUN_ENDED", RunSeconds: 300,
		Timestamp: time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC),
	})
	r := NewReconstructor(repo)

	snap, err := r.RebuildRunSnapshot(context.Background(), "RUN-A")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if snap.Phase != "Stopped" {
		t.Errorf("Expected phase Stopped, got %s", snap.Phase)
	}
	if snap.ActiveSources != 0 {
		t.Errorf("Expected sources cleared at run end, got %d", snap.ActiveSources)
	}
	if snap.ElapsedSeconds != 300 {
		t.Errorf("Expected elapsed 300s, got %v", snap.ElapsedSeconds)
	}
}

func TestRebuildUnknownRun(t *testing.T) {
	r := NewReconstructor(&memoryEventRepo{})

	if _, err := r.RebuildRunSnapshot(context.Background(), "RUN-MISSING"); err == nil {
		t.Errorf("Expected an error for a run with no events")
	}
}

func TestGenerateTimeline(t *testing.T) {
	repo := &memoryEventRepo{}
	seedRunLedger(repo)
	r := NewReconstructor(repo)

	timeline, err := r.GenerateTimeline(context.Background(), "RUN-A")
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}

	if len(timeline) != len(repo.events) {
		t.Fatalf("Expected %d entries, got %d", len(repo.events), len(timeline))
	}

	// Spawns and bursts escalate; a burst ending is relief.
	impacts := map[string]string{
		"SOURCE_SPAWNED": "ESCALATION",
		"BURST_STARTED":  "ESCALATION",
		"BURST_ENDED":    "RELIEF",
		"RUN_STARTED":    "NEUTRAL",
	}
	for _, entry := range timeline {
		if want, ok := impacts[entry.EventType]; ok && entry.Impact != want {
			t.Errorf("Expected impact %s for %s, got %s", want, entry.EventType, entry.Impact)
		}
		if entry.Summary == "" {
			t.Errorf("Expected a summary for %s", entry.EventType)
		}
	}
}
