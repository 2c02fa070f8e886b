package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisAllocator coordinates sequence issuance across processes that share
// one stream. Each append holds a short-lived per-stream lock in Redis while
// the writer signs and persists, so the sequence counter and head signature
// advance atomically with respect to other writers.
//
// This is the explicit multi-writer decision for this module: either run a
// single writer per stream with LocalAllocator, or point every writer at
// the same Redis and use this allocator. There is no leaderless mode.
type RedisAllocator struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration

	mu      sync.Mutex
	pending map[string]pendingSlot
}

type pendingSlot struct {
	sequence uint64
	token    string
}

const (
	lockKeyFmt = "audit:lock:%s"
	seqKeyFmt  = "audit:seq:%s"
	headKeyFmt = "audit:head:%s"
)

// unlockScript releases the stream lock only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// NewRedisAllocator creates an allocator on an existing Redis client. The
// lock TTL bounds how long a crashed writer can stall a stream.
func NewRedisAllocator(client redis.UniversalClient, lockTTL time.Duration) *RedisAllocator {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &RedisAllocator{
		client:  client,
		ttl:     lockTTL,
		retry:   25 * time.Millisecond,
		pending: make(map[string]pendingSlot),
	}
}

// Acquire takes the stream lock, then reads the next sequence number and
// current head signature. Blocks (polling) until the lock is free or the
// context is done.
func (a *RedisAllocator) Acquire(ctx context.Context, stream string) (Slot, error) {
	token := uuid.New().String()
	lockKey := fmt.Sprintf(lockKeyFmt, stream)

	for {
		ok, err := a.client.SetNX(ctx, lockKey, token, a.ttl).Result()
		if err != nil {
			return Slot{}, fmt.Errorf("sequence: acquire lock for %q: %w", stream, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return Slot{}, fmt.Errorf("%w: %s", ErrSlotHeld, ctx.Err())
		case <-time.After(a.retry):
		}
	}

	seq, err := a.client.Get(ctx, fmt.Sprintf(seqKeyFmt, stream)).Uint64()
	if err != nil && err != redis.Nil {
		a.release(ctx, stream, token)
		return Slot{}, fmt.Errorf("sequence: read counter for %q: %w", stream, err)
	}
	head, err := a.client.Get(ctx, fmt.Sprintf(headKeyFmt, stream)).Result()
	if err != nil && err != redis.Nil {
		a.release(ctx, stream, token)
		return Slot{}, fmt.Errorf("sequence: read head for %q: %w", stream, err)
	}

	a.mu.Lock()
	a.pending[stream] = pendingSlot{sequence: seq, token: token}
	a.mu.Unlock()

	return Slot{Sequence: seq, PreviousHash: head}, nil
}

// Commit advances the counter and head signature, then releases the lock.
func (a *RedisAllocator) Commit(ctx context.Context, stream, signature string) error {
	a.mu.Lock()
	slot, ok := a.pending[stream]
	delete(a.pending, stream)
	a.mu.Unlock()
	if !ok {
		return ErrNoSlot
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(seqKeyFmt, stream), slot.sequence+1, 0)
	pipe.Set(ctx, fmt.Sprintf(headKeyFmt, stream), signature, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sequence: commit %q: %w", stream, err)
	}
	return a.release(ctx, stream, slot.token)
}

// Abort releases the lock without advancing the stream.
func (a *RedisAllocator) Abort(ctx context.Context, stream string) error {
	a.mu.Lock()
	slot, ok := a.pending[stream]
	delete(a.pending, stream)
	a.mu.Unlock()
	if !ok {
		return ErrNoSlot
	}
	return a.release(ctx, stream, slot.token)
}

func (a *RedisAllocator) release(ctx context.Context, stream, token string) error {
	lockKey := fmt.Sprintf(lockKeyFmt, stream)
	if err := unlockScript.Run(ctx, a.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("sequence: release lock for %q: %w", stream, err)
	}
	return nil
}
