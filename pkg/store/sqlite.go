package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/carebridge/audittrail/pkg/audit"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists signed entries in a local SQLite database. Suited to
// single-node deployments and offline audit bundles.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLiteStore opens (creating if needed) a SQLite trail at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		details JSON,
		ip_address TEXT,
		signature TEXT NOT NULL,
		previous_hash TEXT,
		sequence_number INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_logs_sequence
		ON audit_logs(sequence_number);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("store: migrate sqlite: %w", err)
	}
	return nil
}

// Append inserts one signed entry. The unique sequence index makes a
// duplicate sequence number a hard failure rather than a silent fork.
func (s *SQLiteStore) Append(ctx context.Context, e audit.SignedEntry) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("store: entry %s: %w", e.ID, err)
	}
	query := `INSERT INTO audit_logs (
		id, timestamp, user_id, action, resource, details, ip_address,
		signature, previous_hash, sequence_number
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.Timestamp, e.UserID, e.Action, e.Resource, details,
		nullable(e.IPAddress), e.Signature, nullable(e.PreviousHash), e.SequenceNumber)
	if err != nil {
		return fmt.Errorf("store: insert entry %s: %w", e.ID, err)
	}
	return nil
}

// List returns all entries ordered by sequence number.
func (s *SQLiteStore) List(ctx context.Context) ([]audit.SignedEntry, error) {
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

// ListRecent returns the limit highest-sequence entries, for windowed
// verification.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]audit.SignedEntry, error) {
	query := `SELECT id, timestamp, user_id, action, resource, details,
		ip_address, signature, previous_hash, sequence_number
		FROM audit_logs ORDER BY sequence_number DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanEntries decodes rows shared by the SQL-backed stores.
func scanEntries(rows *sql.Rows) ([]audit.SignedEntry, error) {
	var entries []audit.SignedEntry
	for rows.Next() {
		var (
			e        audit.SignedEntry
			details  sql.NullString
			ip       sql.NullString
			prevHash sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Action,
			&e.Resource, &details, &ip, &e.Signature, &prevHash,
			&e.SequenceNumber); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		if details.Valid && details.String != "" {
			var v any
			if err := json.Unmarshal([]byte(details.String), &v); err != nil {
				return nil, fmt.Errorf("store: decode details for entry %s: %w", e.ID, err)
			}
			e.Details = v
		}
		e.IPAddress = ip.String
		e.PreviousHash = prevHash.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate entries: %w", err)
	}
	if entries == nil {
		entries = []audit.SignedEntry{}
	}
	return entries, nil
}

func marshalDetails(details any) (any, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
