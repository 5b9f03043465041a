package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/amirphl/mailpiece/utils"
	"github.com/redis/go-redis/v9"
)

const (
	canvasSessionKeyPrefix = "canvas-session:"
	audienceCountKeyPrefix = "audience-count:"
)

// CanvasSessionStore keeps opaque canvas payloads for a limited time
type CanvasSessionStore interface {
	Put(ctx context.Context, id string, payload []byte, ttl time.Duration) error
	// Get returns nil, nil when the session is missing or expired
	Get(ctx context.Context, id string) ([]byte, error)
}

// AudienceCountCache memoizes provider counts keyed by filter hash
type AudienceCountCache interface {
	Get(ctx context.Context, filtersHash string) (int64, bool, error)
	Set(ctx context.Context, filtersHash string, count int64, ttl time.Duration) error
}

// RedisCanvasSessionStore stores canvas sessions as plain redis strings
type RedisCanvasSessionStore struct {
	rc     *redis.Client
	prefix string
}

// NewRedisCanvasSessionStore creates a redis backed canvas session store
func NewRedisCanvasSessionStore(rc *redis.Client, prefix string) *RedisCanvasSessionStore {
	return &RedisCanvasSessionStore{rc: rc, prefix: prefix}
}

func (s *RedisCanvasSessionStore) key(id string) string {
	return s.prefix + canvasSessionKeyPrefix + id
}

// Put stores the payload under id with the given TTL
func (s *RedisCanvasSessionStore) Put(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	if err := s.rc.Set(ctx, s.key(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store canvas session: %w", err)
	}
	return nil
}

// Get loads the payload stored under id
func (s *RedisCanvasSessionStore) Get(ctx context.Context, id string) ([]byte, error) {
	payload, err := s.rc.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load canvas session: %w", err)
	}
	return payload, nil
}

// RedisAudienceCountCache caches counts in redis. A nil client turns every call into a miss.
type RedisAudienceCountCache struct {
	rc     *redis.Client
	prefix string
}

// NewRedisAudienceCountCache creates a redis backed count cache
func NewRedisAudienceCountCache(rc *redis.Client, prefix string) *RedisAudienceCountCache {
	return &RedisAudienceCountCache{rc: rc, prefix: prefix}
}

// Get returns the cached count for the hash
func (c *RedisAudienceCountCache) Get(ctx context.Context, filtersHash string) (int64, bool, error) {
	if c == nil || c.rc == nil {
		return 0, false, nil
	}
	raw, err := c.rc.Get(ctx, c.prefix+audienceCountKeyPrefix+filtersHash).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return count, true, nil
}

// Set caches the count for the hash
func (c *RedisAudienceCountCache) Set(ctx context.Context, filtersHash string, count int64, ttl time.Duration) error {
	if c == nil || c.rc == nil {
		return nil
	}
	return c.rc.Set(ctx, c.prefix+audienceCountKeyPrefix+filtersHash, strconv.FormatInt(count, 10), ttl).Err()
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryTTLMap backs the in-process stores used when redis is disabled
type memoryTTLMap struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemoryTTLMap() *memoryTTLMap {
	return &memoryTTLMap{entries: make(map[string]memoryEntry)}
}

func (m *memoryTTLMap) put(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpired()
	m.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: utils.UTCNowAdd(ttl),
	}
}

func (m *memoryTTLMap) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if utils.IsExpired(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return append([]byte(nil), entry.value...), true
}

func (m *memoryTTLMap) evictExpired() {
	for key, entry := range m.entries {
		if utils.IsExpired(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}

// MemoryCanvasSessionStore is an in-process store used when redis is disabled
type MemoryCanvasSessionStore struct {
	entries *memoryTTLMap
}

// NewMemoryCanvasSessionStore creates an empty in-process store
func NewMemoryCanvasSessionStore() *MemoryCanvasSessionStore {
	return &MemoryCanvasSessionStore{entries: newMemoryTTLMap()}
}

// Put stores a copy of the payload
func (s *MemoryCanvasSessionStore) Put(_ context.Context, id string, payload []byte, ttl time.Duration) error {
	s.entries.put(id, payload, ttl)
	return nil
}

// Get returns a copy of the payload if it has not expired
func (s *MemoryCanvasSessionStore) Get(_ context.Context, id string) ([]byte, error) {
	payload, ok := s.entries.get(id)
	if !ok {
		return nil, nil
	}
	return payload, nil
}

// MemoryAudienceCountCache caches counts in process memory when redis is disabled
type MemoryAudienceCountCache struct {
	entries *memoryTTLMap
}

// NewMemoryAudienceCountCache creates an empty in-process count cache
func NewMemoryAudienceCountCache() *MemoryAudienceCountCache {
	return &MemoryAudienceCountCache{entries: newMemoryTTLMap()}
}

func (c *MemoryAudienceCountCache) Get(_ context.Context, filtersHash string) (int64, bool, error) {
	raw, ok := c.entries.get(filtersHash)
	if !ok {
		return 0, false, nil
	}
	count, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return count, true, nil
}

func (c *MemoryAudienceCountCache) Set(_ context.Context, filtersHash string, count int64, ttl time.Duration) error {
	c.entries.put(filtersHash, []byte(strconv.FormatInt(count, 10)), ttl)
	return nil
}
