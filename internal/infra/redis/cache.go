package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

const (
	// DefaultTTL keeps a snapshot for at most one typical feed burst
	DefaultTTL = 30 * time.Second

	// KeyPrefix is the prefix for every key this package writes
	KeyPrefix = "zapfeed:"

	snapshotKey = KeyPrefix + "directory:snapshot"
)

// DirectoryCache is a Redis-backed directory snapshot cache
type DirectoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

var _ directory.Cache = (*DirectoryCache)(nil)

// NewDirectoryCache creates a snapshot cache; a non-positive ttl uses DefaultTTL
func NewDirectoryCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *DirectoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DirectoryCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "cache"),
	}
}

// cachedSnapshot wraps the snapshot with the time it was stored
type cachedSnapshot struct {
	Snapshot *directory.Snapshot `json:"snapshot"`
	StoredAt time.Time           `json:"stored_at"`
}

// Get returns the cached snapshot, nil on a miss
func (c *DirectoryCache) Get(ctx context.Context) (*directory.Snapshot, error) {
	val, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "key", snapshotKey)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", snapshotKey, "error", err)
		return nil, fmt.Errorf("failed to get cached directory: %w", err)
	}

	var cached cachedSnapshot
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached directory: %w", err)
	}
	if cached.Snapshot == nil {
		return nil, nil
	}

	c.logger.Debug("cache hit", "key", snapshotKey, "age_ms", time.Since(cached.StoredAt).Milliseconds())
	return cached.Snapshot, nil
}

// Set stores the snapshot with the configured TTL. Admin keys are never
// written; readers that need to spend list the wallets again.
func (c *DirectoryCache) Set(ctx context.Context, snap *directory.Snapshot) error {
	data, err := json.Marshal(cachedSnapshot{Snapshot: withoutAdminKeys(snap), StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal directory: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", snapshotKey, "error", err)
		return fmt.Errorf("failed to set cached directory: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot, used after writes that change balances
func (c *DirectoryCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, snapshotKey).Err()
}

func withoutAdminKeys(snap *directory.Snapshot) *directory.Snapshot {
	if snap == nil {
		return nil
	}
	out := *snap
	out.Wallets = make(map[string][]wallet.Wallet, len(snap.Wallets))
	for userID, wallets := range snap.Wallets {
		stripped := make([]wallet.Wallet, len(wallets))
		for i, w := range wallets {
			w.AdminKey = ""
			stripped[i] = w
		}
		out.Wallets[userID] = stripped
	}
	return &out
}
