package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/redis/go-redis/v9"
)

const (
	guardKeyPrefix = "rcv:idempotency:"
	pendingValue   = "pending"
)

// guardEntry is a claimed idempotency key.
type guardEntry struct {
	paymentID uuid.UUID
	expiresAt time.Time
}

// MemorySubmissionGuard implements allocation.SubmissionGuard with an
// in-process map. Claims are not shared between instances.
type MemorySubmissionGuard struct {
	mu        sync.Mutex
	entries   map[string]guardEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemorySubmissionGuard creates a guard and starts its expiry sweeper.
func NewMemorySubmissionGuard() *MemorySubmissionGuard {
	g := &MemorySubmissionGuard{
		entries:  make(map[string]guardEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	g.wg.Add(1)
	go g.cleanupLoop()
	return g
}

func guardKey(tenantID uuid.UUID, key string) string {
	return guardKeyPrefix + tenantID.String() + ":" + key
}

// Acquire claims key for ttl.
func (g *MemorySubmissionGuard) Acquire(_ context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := guardKey(tenantID, key)
	now := g.now()
	if e, ok := g.entries[k]; ok && now.Before(e.expiresAt) {
		return false, e.paymentID, nil
	}
	g.entries[k] = guardEntry{expiresAt: now.Add(ttl)}
	return true, uuid.Nil, nil
}

// Complete binds key to paymentID and restarts its TTL.
func (g *MemorySubmissionGuard) Complete(_ context.Context, tenantID uuid.UUID, key string, paymentID uuid.UUID, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries[guardKey(tenantID, key)] = guardEntry{paymentID: paymentID, expiresAt: g.now().Add(ttl)}
	return nil
}

// Release drops a claim that was never bound to a payment.
func (g *MemorySubmissionGuard) Release(_ context.Context, tenantID uuid.UUID, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := guardKey(tenantID, key)
	if e, ok := g.entries[k]; ok && e.paymentID == uuid.Nil {
		delete(g.entries, k)
	}
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (g *MemorySubmissionGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

func (g *MemorySubmissionGuard) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

func (g *MemorySubmissionGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, e := range g.entries {
		if !now.Before(e.expiresAt) {
			delete(g.entries, k)
		}
	}
}

// Size returns the number of live claims.
func (g *MemorySubmissionGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// releaseScript deletes the key only while it is still pending, so a late
// Release cannot drop a key another request already bound.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSubmissionGuard implements allocation.SubmissionGuard on Redis so
// every instance sees the same claims.
type RedisSubmissionGuard struct {
	client redis.UniversalClient
}

// NewRedisSubmissionGuard creates a guard on client.
func NewRedisSubmissionGuard(client redis.UniversalClient) *RedisSubmissionGuard {
	return &RedisSubmissionGuard{client: client}
}

// Acquire claims key with SETNX. A losing caller gets the payment ID stored
// under the key, or uuid.Nil while the winner is still running.
func (g *RedisSubmissionGuard) Acquire(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, uuid.UUID, error) {
	k := guardKey(tenantID, key)
	ok, err := g.client.SetNX(ctx, k, pendingValue, ttl).Result()
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return true, uuid.Nil, nil
	}

	val, err := g.client.Get(ctx, k).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; try once more.
		ok, err = g.client.SetNX(ctx, k, pendingValue, ttl).Result()
		if err != nil {
			return false, uuid.Nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		return ok, uuid.Nil, nil
	}
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == pendingValue {
		return false, uuid.Nil, nil
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("corrupt idempotency key %s: %w", k, err)
	}
	return false, id, nil
}

// Complete binds key to paymentID.
func (g *RedisSubmissionGuard) Complete(ctx context.Context, tenantID uuid.UUID, key string, paymentID uuid.UUID, ttl time.Duration) error {
	if err := g.client.Set(ctx, guardKey(tenantID, key), paymentID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to bind idempotency key: %w", err)
	}
	return nil
}

// Release drops a pending claim.
func (g *RedisSubmissionGuard) Release(ctx context.Context, tenantID uuid.UUID, key string) error {
	if err := releaseScript.Run(ctx, g.client, []string{guardKey(tenantID, key)}, pendingValue).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var (
	_ allocation.SubmissionGuard = (*MemorySubmissionGuard)(nil)
	_ allocation.SubmissionGuard = (*RedisSubmissionGuard)(nil)
)
