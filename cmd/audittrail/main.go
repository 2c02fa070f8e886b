// Command audittrail records and verifies tamper-evident audit trails.
//
// Subcommands:
//
//	record - sign and append one entry to the configured trail
//	verify - re-validate signatures and chain linkage of a trail
//	report - render the compliance integrity report for a trail
//
// Configuration (signing key, store selection) comes from the environment;
// see pkg/config.
package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/carebridge/audittrail/pkg/config"
	"github.com/carebridge/audittrail/pkg/store"

	_ "github.com/lib/pq" // Postgres driver
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "record":
		return runRecordCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "report":
		return runReportCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `usage: audittrail <command> [flags]

commands:
  record   sign and append one audit entry
  verify   verify signatures and chain linkage (exit 1 on violation)
  report   render the integrity report

environment:
  AUDIT_SIGNING_KEY   HMAC key (base64 or raw), required
  AUDIT_TRAIL_PATH    JSONL trail path (default audit_trail.jsonl)
  AUDIT_SQLITE_PATH   use a SQLite trail instead of JSONL
  AUDIT_DATABASE_URL  use a Postgres trail instead of JSONL`)
}

// trailStore is the read/write surface the subcommands need.
type trailStore interface {
	store.Store
	io.Closer
}

type fileStoreCloser struct{ *store.FileStore }

func (fileStoreCloser) Close() error { return nil }

// openStore selects the persistence backend from configuration: Postgres if
// AUDIT_DATABASE_URL is set, else SQLite if AUDIT_SQLITE_PATH is set, else
// the JSONL trail.
func openStore(cfg *config.Config) (trailStore, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store.NewPostgresStore(db)
	case cfg.SQLitePath != "":
		return store.OpenSQLiteStore(cfg.SQLitePath)
	default:
		fs, err := store.NewFileStore(cfg.TrailPath)
		if err != nil {
			return nil, err
		}
		return fileStoreCloser{fs}, nil
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
