package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the postgres driver for database/sql.
	_ "github.com/lib/pq"
)

// PostgresStore persists audit events to a single append-only table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and ensures the audit table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an existing pool; used by integration tests.
func NewPostgresStoreFromDB(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS audit_events (
    id          UUID PRIMARY KEY,
    action      TEXT NOT NULL,
    record_id   TEXT NOT NULL DEFAULT '',
    session_id  TEXT NOT NULL DEFAULT '',
    request_id  TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
INSERT INTO audit_events (id, action, record_id, session_id, request_id, detail, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, string(event.Action), event.RecordID, event.SessionID,
		event.RequestID, event.Detail, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Event, error) {
	const query = `
SELECT id, action, record_id, session_id, request_id, detail, occurred_at
FROM audit_events ORDER BY occurred_at, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var action string
		var occurredAt time.Time
		if err := rows.Scan(&event.ID, &action, &event.RecordID, &event.SessionID,
			&event.RequestID, &event.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		event.Timestamp = occurredAt
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// Health checks the database connection.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
