package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event RunEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.RunID, event.Timestamp, event.EventType, event.Origin,
		event.TargetID, string(payloadBytes), event.RunSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]RunEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.RunID, &e.Timestamp, &e.EventType, &e.Origin,
			&e.TargetID, &payloadStr, &e.RunSeconds,
		)
		if err != nil {
			return nil, err
		}
		if payloadStr != "" {
			_ = json.Unmarshal([]byte(payloadStr), &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByRunID(ctx context.Context, runID string) ([]RunEvent, error) {
	query := `SELECT id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds FROM events WHERE run_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, runID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, runID string, eventType string) ([]RunEvent, error) {
	query := `SELECT id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds FROM events WHERE run_id = ? AND event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, runID, eventType)
}

func (r *SQLiteEventRepository) GetByOrigin(ctx context.Context, runID string, origin string) ([]RunEvent, error) {
	query := `SELECT id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds FROM events WHERE run_id = ? AND origin = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, runID, origin)
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Upsert(ctx context.Context, snapshot RunSnapshot) error {
	query := `
		INSERT INTO runs (run_id, phase, elapsed_seconds, emission_rate, multiplier, rubber_band, active_sources, pressure_percent, burst_active, bursts_triggered, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			phase=excluded.phase,
			elapsed_seconds=excluded.elapsed_seconds,
			emission_rate=excluded.emission_rate,
			multiplier=excluded.multiplier,
			rubber_band=excluded.rubber_band,
			active_sources=excluded.active_sources,
			pressure_percent=excluded.pressure_percent,
			burst_active=excluded.burst_active,
			bursts_triggered=excluded.bursts_triggered,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		snapshot.RunID, snapshot.Phase, snapshot.ElapsedSeconds, snapshot.EmissionRate,
		snapshot.Multiplier, snapshot.RubberBand, snapshot.ActiveSources,
		snapshot.PressurePercent, snapshot.BurstActive, snapshot.BurstsTriggered, time.Now(),
	)
	return err
}

func (r *SQLiteSnapshotRepository) GetByRunID(ctx context.Context, runID string) (*RunSnapshot, error) {
	query := `SELECT run_id, phase, elapsed_seconds, emission_rate, multiplier, rubber_band, active_sources, pressure_percent, burst_active, bursts_triggered, last_updated FROM runs WHERE run_id = ?`
	var s RunSnapshot
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&s.RunID, &s.Phase, &s.ElapsedSeconds, &s.EmissionRate, &s.Multiplier,
		&s.RubberBand, &s.ActiveSources, &s.PressurePercent, &s.BurstActive,
		&s.BurstsTriggered, &s.LastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSnapshotRepository) List(ctx context.Context) ([]RunSnapshot, error) {
	query := `SELECT run_id, phase, elapsed_seconds, emission_rate, multiplier, rubber_band, active_sources, pressure_percent, burst_active, bursts_triggered, last_updated FROM runs ORDER BY last_updated DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []RunSnapshot
	for rows.Next() {
		var s RunSnapshot
		if err := rows.Scan(&s.RunID, &s.Phase, &s.ElapsedSeconds, &s.EmissionRate,
			&s.Multiplier, &s.RubberBand, &s.ActiveSources, &s.PressurePercent,
			&s.BurstActive, &s.BurstsTriggered, &s.LastUpdated); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
