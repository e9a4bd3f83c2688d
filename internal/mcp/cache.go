package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "coach:tool:"

// ResultCacheConfig configures tool result caching.
type ResultCacheConfig struct {
	// MaxEntries bounds the in-memory cache.
	MaxEntries int
	// TTL is how long a cached result stays valid.
	TTL time.Duration
	// RedisURL, when set, adds a shared tier behind the memory cache so
	// multiple coach processes can reuse each other's results.
	RedisURL string
}

type cachedResult struct {
	ToolName     string          `json:"tool_name"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
	LastAccessed time.Time       `json:"last_accessed"`
}

// CacheStats tracks cache performance.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// ResultCache caches tool results keyed by a content hash of the tool name
// and its parameters. What-if scoring is deterministic for a given rule set
// version, so identical questions never pay for a second evaluation.
type ResultCache struct {
	maxEntries int
	ttl        time.Duration
	redis      *redis.Client
	log        *logrus.Logger

	mu      sync.Mutex
	entries map[string]*cachedResult

	statsMu sync.Mutex
	stats   CacheStats
}

// NewResultCache creates a result cache. Redis is optional; when the URL is
// empty the cache is memory-only.
func NewResultCache(cfg ResultCacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}

	cache := &ResultCache{
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		entries:    make(map[string]*cachedResult),
		log:        logger,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		cache.redis = redis.NewClient(opts)
	}

	return cache, nil
}

// cacheKey hashes the tool name and parameters into a stable key. Parameters
// are marshaled through encoding/json, which sorts map keys, so equal inputs
// always collide.
func cacheKey(toolName string, params any) string {
	paramBytes, _ := json.Marshal(params)
	hash := sha256.Sum256(append([]byte(toolName+"::"), paramBytes...))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached result into out. It reports whether a live entry
// was found.
func (rc *ResultCache) Get(ctx context.Context, toolName string, params any, out any) bool {
	key := cacheKey(toolName, params)
	now := time.Now()

	rc.mu.Lock()
	if entry, ok := rc.entries[key]; ok {
		if now.Before(entry.ExpiresAt) {
			entry.LastAccessed = now
			raw := entry.Result
			rc.mu.Unlock()
			if err := json.Unmarshal(raw, out); err != nil {
				rc.recordMiss()
				return false
			}
			rc.recordHit()
			return true
		}
		delete(rc.entries, key)
	}
	rc.mu.Unlock()

	if rc.redis != nil {
		data, err := rc.redis.Get(ctx, redisKeyPrefix+key).Bytes()
		if err == nil {
			var entry cachedResult
			if json.Unmarshal(data, &entry) == nil && now.Before(entry.ExpiresAt) {
				if err := json.Unmarshal(entry.Result, out); err == nil {
					entry.LastAccessed = now
					rc.mu.Lock()
					rc.entries[key] = &entry
					rc.mu.Unlock()
					rc.recordHit()
					return true
				}
			}
			rc.redis.Del(ctx, redisKeyPrefix+key)
		}
	}

	rc.recordMiss()
	return false
}

// Set stores a tool result under the hash of its parameters.
func (rc *ResultCache) Set(ctx context.Context, toolName string, params any, result any) error {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := cacheKey(toolName, params)
	now := time.Now()
	entry := &cachedResult{
		ToolName:     toolName,
		Result:       resultBytes,
		CreatedAt:    now,
		ExpiresAt:    now.Add(rc.ttl),
		LastAccessed: now,
	}

	rc.mu.Lock()
	rc.evictIfNeeded()
	rc.entries[key] = entry
	rc.mu.Unlock()

	if rc.redis != nil {
		entryBytes, err := json.Marshal(entry)
		if err == nil {
			if err := rc.redis.Set(ctx, redisKeyPrefix+key, entryBytes, rc.ttl).Err(); err != nil {
				rc.log.WithError(err).Warn("Failed to store result in Redis cache")
			}
		}
	}

	return nil
}

// Stats returns cache performance counters.
func (rc *ResultCache) Stats() CacheStats {
	rc.statsMu.Lock()
	defer rc.statsMu.Unlock()
	return rc.stats
}

// Close releases the Redis connection if one exists.
func (rc *ResultCache) Close() error {
	if rc.redis != nil {
		return rc.redis.Close()
	}
	return nil
}

// evictIfNeeded drops the least recently accessed entry when the memory
// cache is full. Callers hold rc.mu.
func (rc *ResultCache) evictIfNeeded() {
	if len(rc.entries) < rc.maxEntries {
		return
	}

	var oldestKey string
	var oldestTime time.Time
	for key, entry := range rc.entries {
		if oldestKey == "" || entry.LastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessed
		}
	}

	if oldestKey != "" {
		delete(rc.entries, oldestKey)
		rc.statsMu.Lock()
		rc.stats.Evictions++
		rc.statsMu.Unlock()
	}
}

func (rc *ResultCache) recordHit() {
	rc.statsMu.Lock()
	rc.stats.Hits++
	rc.statsMu.Unlock()
}

func (rc *ResultCache) recordMiss() {
	rc.statsMu.Lock()
	rc.stats.Misses++
	rc.statsMu.Unlock()
}
