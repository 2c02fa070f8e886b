package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carebridge/audittrail/pkg/audit"
	"github.com/carebridge/audittrail/pkg/config"
	"github.com/carebridge/audittrail/pkg/sequence"
	"github.com/carebridge/audittrail/pkg/store"
)

// runRecordCmd implements `audittrail record`.
//
// Exit codes:
//
//	0 = entry recorded
//	2 = runtime error
func runRecordCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("record", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		userID   string
		action   string
		resource string
		details  string
		ip       string
	)
	cmd.StringVar(&userID, "user", "", "acting user id (REQUIRED)")
	cmd.StringVar(&action, "action", "", "action performed (REQUIRED)")
	cmd.StringVar(&resource, "resource", "", "resource acted on (REQUIRED)")
	cmd.StringVar(&details, "details", "", "structured details as JSON")
	cmd.StringVar(&ip, "ip", "", "client IP address")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if userID == "" || action == "" || resource == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -user, -action and -resource are required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	key, err := cfg.Key()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	signer, err := audit.NewSigner(key)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	entry := audit.Entry{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IPAddress: ip,
	}
	if details != "" {
		var v any
		if err := json.Unmarshal([]byte(details), &v); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: -details is not valid JSON: %v\n", err)
			return 2
		}
		entry.Details = v
	}

	st, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alloc, err := buildAllocator(ctx, cfg, st)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	recorder, err := store.NewRecorder(signer, st,
		store.WithStream(cfg.Stream),
		store.WithAllocator(alloc),
		store.WithLogger(newLogger(stderr, cfg.LogLevel)),
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	signed, err := recorder.Record(ctx, entry)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "recorded entry %s (sequence %d, signature %s)\n",
		signed.ID, signed.SequenceNumber, signed.Signature)
	return 0
}

// buildAllocator picks the sequence allocator: Redis when configured (for
// multi-process writers sharing a stream), otherwise an in-process allocator
// primed at the persisted chain tail.
func buildAllocator(ctx context.Context, cfg *config.Config, st store.Store) (sequence.Allocator, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return sequence.NewRedisAllocator(client, 10*time.Second), nil
	}

	alloc := sequence.NewLocalAllocator()
	entries, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trail tail: %w", err)
	}
	if len(entries) > 0 {
		tail := entries[0]
		for _, e := range entries[1:] {
			if e.SequenceNumber > tail.SequenceNumber {
				tail = e
			}
		}
		alloc.Prime(cfg.Stream, tail.SequenceNumber+1, tail.Signature)
	}
	return alloc, nil
}
