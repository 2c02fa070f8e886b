// Package store implements the append path and persistence adapters for the
// tamper-evident audit trail: a single-writer Recorder that owns sequence
// issuance and head-signature bookkeeping, plus file, SQLite and Postgres
// backed stores that persist signed entries and read them back for audits.
//
// Stores persist and read only. They never recompute signatures; detecting a
// mutated row is pkg/audit's job at verification time.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/audittrail/pkg/audit"
	"github.com/carebridge/audittrail/pkg/sequence"
)

// ErrEntryNotFound is returned when a lookup misses.
var ErrEntryNotFound = errors.New("store: entry not found")

// Store persists signed entries and reads them back in bulk for
// verification. Implementations must be safe for concurrent readers.
type Store interface {
	Append(ctx context.Context, e audit.SignedEntry) error
	List(ctx context.Context) ([]audit.SignedEntry, error)
}

// EntryHandler is notified after an entry is durably recorded.
type EntryHandler func(e audit.SignedEntry)

// Recorder is the append path for one stream. It fills in entry identity,
// signs, persists, and advances the chain head. The invariant bookkeeping
// (strictly increasing sequence numbers, previous_hash equal to the last
// committed signature) lives here, guarded by the sequence allocator.
type Recorder struct {
	signer   *audit.Signer
	store    Store
	alloc    sequence.Allocator
	stream   string
	clock    func() time.Time
	log      *slog.Logger
	handlers []EntryHandler
	metrics  *recorderMetrics
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithAllocator replaces the default in-process allocator, e.g. with the
// Redis-backed one for multi-process writers sharing a stream.
func WithAllocator(a sequence.Allocator) RecorderOption {
	return func(r *Recorder) { r.alloc = a }
}

// WithStream names the stream this recorder appends to.
func WithStream(stream string) RecorderOption {
	return func(r *Recorder) { r.stream = stream }
}

// WithClock overrides timestamp assignment for tests.
func WithClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) { r.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.log = log }
}

// WithHandler registers a handler called after each durable append.
func WithHandler(h EntryHandler) RecorderOption {
	return func(r *Recorder) { r.handlers = append(r.handlers, h) }
}

// NewRecorder creates the writer for a stream.
func NewRecorder(signer *audit.Signer, store Store, opts ...RecorderOption) (*Recorder, error) {
	if signer == nil {
		return nil, fmt.Errorf("store: recorder requires a signer")
	}
	if store == nil {
		return nil, fmt.Errorf("store: recorder requires a store")
	}
	r := &Recorder{
		signer: signer,
		store:  store,
		alloc:  sequence.NewLocalAllocator(),
		stream: "default",
		clock:  time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics = newRecorderMetrics()
	return r, nil
}

// Record signs and persists one entry. Blank id and timestamp are assigned
// here (UUID, UTC RFC 3339); everything else is recorded as given. On any
// failure the reserved slot is aborted, so a failed append never consumes a
// sequence number or leaves an unsigned hole in the chain.
func (r *Recorder) Record(ctx context.Context, e audit.Entry) (audit.SignedEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp == "" {
		e.Timestamp = r.clock().UTC().Format(time.RFC3339Nano)
	}

	slot, err := r.alloc.Acquire(ctx, r.stream)
	if err != nil {
		r.metrics.recordFailure(ctx)
		return audit.SignedEntry{}, fmt.Errorf("record: acquire slot: %w", err)
	}

	signed, err := r.signer.SignEntry(e, slot.PreviousHash, slot.Sequence)
	if err != nil {
		_ = r.alloc.Abort(ctx, r.stream)
		r.metrics.recordFailure(ctx)
		return audit.SignedEntry{}, fmt.Errorf("record: %w", err)
	}

	if err := r.store.Append(ctx, signed); err != nil {
		_ = r.alloc.Abort(ctx, r.stream)
		r.metrics.recordFailure(ctx)
		return audit.SignedEntry{}, fmt.Errorf("record: persist entry %s: %w", signed.ID, err)
	}

	if err := r.alloc.Commit(ctx, r.stream, signed.Signature); err != nil {
		// The entry is durable but the head did not advance; the next
		// append would fork the chain. Surface loudly.
		r.metrics.recordFailure(ctx)
		return audit.SignedEntry{}, fmt.Errorf("record: commit slot for entry %s: %w", signed.ID, err)
	}

	r.metrics.recorded(ctx)
	r.log.Debug("audit entry recorded",
		"stream", r.stream,
		"entry_id", signed.ID,
		"sequence", signed.SequenceNumber,
		"action", signed.Action,
	)
	for _, h := range r.handlers {
		h(signed)
	}
	return signed, nil
}

// Stream returns the stream name this recorder appends to.
func (r *Recorder) Stream() string {
	return r.stream
}
