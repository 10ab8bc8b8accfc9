// Package flightlog records flight events. The production writer persists
// to PostgreSQL; without a configured DSN an in-memory recorder is used so
// the log_flight_event tool behaves identically in tests and demos.
package flightlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one logged flight event.
type Event struct {
	PilotID   string         `json:"pilot_id"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
	LoggedAt  time.Time      `json:"logged_at"`
}

// Writer persists flight events.
type Writer interface {
	Log(ctx context.Context, ev Event) error
	Close()
}

// MemoryWriter keeps events in memory.
type MemoryWriter struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryWriter returns an empty in-memory recorder.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

// Log appends the event.
func (w *MemoryWriter) Log(_ context.Context, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

// Events returns a snapshot of logged events.
func (w *MemoryWriter) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Event, len(w.events))
	copy(out, w.events)
	return out
}

// Close is a no-op.
func (w *MemoryWriter) Close() {}

// PostgresWriter persists events to PostgreSQL.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a pool from a DSN and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresWriter, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	w := &PostgresWriter{pool: pool}
	if err := w.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return w, nil
}

func (w *PostgresWriter) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS flight_events (
		id          BIGSERIAL PRIMARY KEY,
		pilot_id    TEXT NOT NULL,
		event_type  TEXT NOT NULL,
		data        JSONB NOT NULL DEFAULT '{}',
		logged_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_flight_events_pilot ON flight_events(pilot_id, logged_at);
	`
	if _, err := w.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create flight_events schema: %w", err)
	}
	return nil
}

// Log inserts the event.
func (w *PostgresWriter) Log(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = w.pool.Exec(ctx, `
		INSERT INTO flight_events (pilot_id, event_type, data, logged_at)
		VALUES ($1, $2, $3, $4)`,
		ev.PilotID, ev.EventType, data, ev.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("insert flight event: %w", err)
	}
	return nil
}

// Close releases the pool.
func (w *PostgresWriter) Close() {
	w.pool.Close()
}
