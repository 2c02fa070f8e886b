// Package sequence owns append-slot issuance for audit streams.
//
// Invariant: no two entries of one stream may ever be minted with the same
// sequence number. The allocator is the single place that enforces this:
// a writer acquires a slot (next sequence number plus the signature of the
// last committed entry), signs, persists, then commits the new signature.
package sequence

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrSlotHeld is returned when a stream's append slot is already
	// reserved by another writer.
	ErrSlotHeld = errors.New("sequence: append slot already held")

	// ErrNoSlot is returned when Commit or Abort is called for a stream
	// with no acquired slot.
	ErrNoSlot = errors.New("sequence: no acquired slot for stream")
)

// Slot is a reserved position at the head of a stream.
type Slot struct {
	Sequence     uint64
	PreviousHash string
}

// Allocator serializes appends to a stream. Acquire blocks or fails until
// the slot is exclusively held; Commit advances the head signature and
// releases the slot; Abort releases it without advancing.
type Allocator interface {
	Acquire(ctx context.Context, stream string) (Slot, error)
	Commit(ctx context.Context, stream, signature string) error
	Abort(ctx context.Context, stream string) error
}

// LocalAllocator serializes appends within one process. This is the default
// deployment model: a single logical writer per stream.
type LocalAllocator struct {
	mu      sync.Mutex
	streams map[string]*localStream
}

type localStream struct {
	slot sync.Mutex // held between Acquire and Commit/Abort
	held bool       // guarded by the allocator mutex
	next uint64
	head string
}

// NewLocalAllocator creates an in-process allocator. Sequence numbers start
// at zero for each stream.
func NewLocalAllocator() *LocalAllocator {
	return &LocalAllocator{streams: make(map[string]*localStream)}
}

func (a *LocalAllocator) stream(name string) *localStream {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.streams[name]
	if !ok {
		s = &localStream{}
		a.streams[name] = s
	}
	return s
}

// Prime positions a stream at an existing chain tail, so a fresh process can
// resume appending to a previously persisted trail. Must be called before
// the first Acquire for that stream.
func (a *LocalAllocator) Prime(stream string, nextSequence uint64, headSignature string) {
	s := a.stream(stream)
	s.slot.Lock()
	defer s.slot.Unlock()
	s.next = nextSequence
	s.head = headSignature
}

// Acquire reserves the next append slot, blocking until any in-flight append
// to the same stream commits or aborts.
func (a *LocalAllocator) Acquire(ctx context.Context, stream string) (Slot, error) {
	s := a.stream(stream)
	s.slot.Lock()
	if err := ctx.Err(); err != nil {
		s.slot.Unlock()
		return Slot{}, err
	}
	a.mu.Lock()
	s.held = true
	a.mu.Unlock()
	return Slot{Sequence: s.next, PreviousHash: s.head}, nil
}

// release hands back the stream if its slot is held, or reports ErrNoSlot.
// The caller still owns the slot mutex and must unlock it.
func (a *LocalAllocator) release(stream string) (*localStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.streams[stream]
	if !ok || !s.held {
		return nil, ErrNoSlot
	}
	s.held = false
	return s, nil
}

// Commit records the signature of the appended entry as the new stream head
// and releases the slot.
func (a *LocalAllocator) Commit(_ context.Context, stream, signature string) error {
	s, err := a.release(stream)
	if err != nil {
		return err
	}
	s.next++
	s.head = signature
	s.slot.Unlock()
	return nil
}

// Abort releases the slot without advancing the stream.
func (a *LocalAllocator) Abort(_ context.Context, stream string) error {
	s, err := a.release(stream)
	if err != nil {
		return err
	}
	s.slot.Unlock()
	return nil
}
