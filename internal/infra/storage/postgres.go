// Package storage - postgres.go
// PostgreSQL implementation of EventRepository, for deployments where the
// ledger outlives a single machine. Uses database/sql only; the caller
// supplies a connected pool.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Append inserts a new event into the immutable ledger.
func (r *PostgresEventRepository) Append(ctx context.Context, event RunEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.RunID, event.Timestamp, event.EventType, event.Origin,
		event.TargetID, payloadJSON, event.RunSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]RunEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var payloadRaw []byte
		err := rows.Scan(
			&e.ID, &e.RunID, &e.Timestamp, &e.EventType, &e.Origin,
			&e.TargetID, &payloadRaw, &e.RunSeconds,
		)
		if err != nil {
			return nil, err
		}
		if len(payloadRaw) > 0 {
			_ = json.Unmarshal(payloadRaw, &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByRunID retrieves all events for a specific run in order.
func (r *PostgresEventRepository) GetByRunID(ctx context.Context, runID string) ([]RunEvent, error) {
	query := `SELECT id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds FROM events WHERE run_id = $1 ORDER BY timestamp ASC`
	return r.getMany(ctx, query, runID)
}

// GetByEventType retrieves a run's events of one type.
func (r *PostgresEventRepository) GetByEventType(ctx context.Context, runID string, eventType string) ([]RunEvent, error) {
	query := `SELECT id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds FROM events WHERE run_id = $1 AND event_type = $2 ORDER BY timestamp ASC`
	return r.getMany(ctx, query, runID, eventType)
}

// GetByOrigin retrieves a run's events from one producer.
func (r *PostgresEventRepository) GetByOrigin(ctx context.Context, runID string, origin string) ([]RunEvent, error) {
	query := `SELECT id, run_id, timestamp, event_type, origin, target_id, payload, run_seconds FROM events WHERE run_id = $1 AND origin = $2 ORDER BY timestamp ASC`
	return r.getMany(ctx, query, runID, origin)
}
