package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/redis/go-redis/v9"
)

const settingsKeyPrefix = "rcv:settings:"

// MemoryConfigStores keeps every tenant's settings in process memory.
type MemoryConfigStores struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]map[string]string
}

// NewMemoryConfigStores creates an empty provider.
func NewMemoryConfigStores() *MemoryConfigStores {
	return &MemoryConfigStores{tenants: make(map[uuid.UUID]map[string]string)}
}

// ForTenant returns the store of tenantID.
func (p *MemoryConfigStores) ForTenant(tenantID uuid.UUID) settings.ConfigStore {
	return memoryConfigStore{provider: p, tenantID: tenantID}
}

type memoryConfigStore struct {
	provider *MemoryConfigStores
	tenantID uuid.UUID
}

func (s memoryConfigStore) Get(_ context.Context, key string) (string, bool, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	v, ok := s.provider.tenants[s.tenantID][key]
	return v, ok, nil
}

func (s memoryConfigStore) Set(_ context.Context, key, value string) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	values, ok := s.provider.tenants[s.tenantID]
	if !ok {
		values = make(map[string]string)
		s.provider.tenants[s.tenantID] = values
	}
	values[key] = value
	return nil
}

// RedisConfigStores keeps each tenant's settings in one Redis hash.
type RedisConfigStores struct {
	client redis.UniversalClient
}

// NewRedisConfigStores creates a provider on client.
func NewRedisConfigStores(client redis.UniversalClient) *RedisConfigStores {
	return &RedisConfigStores{client: client}
}

// ForTenant returns the store of tenantID.
func (p *RedisConfigStores) ForTenant(tenantID uuid.UUID) settings.ConfigStore {
	return redisConfigStore{client: p.client, hash: settingsKeyPrefix + tenantID.String()}
}

type redisConfigStore struct {
	client redis.UniversalClient
	hash   string
}

func (s redisConfigStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.hash, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return v, true, nil
}

func (s redisConfigStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.hash, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

var (
	_ settings.StoreProvider = (*MemoryConfigStores)(nil)
	_ settings.StoreProvider = (*RedisConfigStores)(nil)
)
