package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carebridge/audittrail/pkg/audit"
)

// PostgresStore persists signed entries in Postgres. The lib/pq driver is
// registered by the binary that opens the connection (see cmd/audittrail),
// so this store works against any database/sql-compatible Postgres handle.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle and ensures the schema.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		details JSONB,
		ip_address TEXT,
		signature TEXT NOT NULL,
		previous_hash TEXT,
		sequence_number BIGINT NOT NULL UNIQUE
	)`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("store: migrate postgres: %w", err)
	}
	return nil
}

// Append inserts one signed entry. The unique sequence constraint rejects
// forks at the database layer as a second line of defense behind the
// sequence allocator.
func (s *PostgresStore) Append(ctx context.Context, e audit.SignedEntry) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("store: entry %s: %w", e.ID, err)
	}
	query := `INSERT INTO audit_logs (
		id, timestamp, user_id, action, resource, details, ip_address,
		signature, previous_hash, sequence_number
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.Timestamp, e.UserID, e.Action, e.Resource, details,
		nullable(e.IPAddress), e.Signature, nullable(e.PreviousHash), e.SequenceNumber)
	if err != nil {
		return fmt.Errorf("store: insert entry %s: %w", e.ID, err)
	}
	return nil
}

// List returns all entries ordered by sequence number.
func (s *PostgresStore) List(ctx context.Context) ([]audit.SignedEntry, error) {
	query := `SELECT id, timestamp, user_id, action, resource, details,
		ip_address, signature, previous_hash, sequence_number
		FROM audit_logs ORDER BY sequence_number ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// ListRecent returns the limit highest-sequence entries.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]audit.SignedEntry, error) {
	query := `SELECT id, timestamp, user_id, action, resource, details,
		ip_address, signature, previous_hash, sequence_number
		FROM audit_logs ORDER BY sequence_number DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
