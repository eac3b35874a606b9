// internal/pkg/session/blacklist.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRevokeTTL applies when a credential carries no expiry.
const DefaultRevokeTTL = 24 * time.Hour

// Blacklist remembers credentials the marketplace rejected so they are not
// sent upstream again.
type Blacklist interface {
	Revoke(ctx context.Context, c Credential) error
	IsRevoked(ctx context.Context, c Credential) (bool, error)
}

type RedisBlacklist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client, now: time.Now}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, c Credential) error {
	if err := b.client.Set(ctx, blacklistKey(c), "1", revokeTTL(c, b.now())).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, c Credential) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(c)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// MemoryBlacklist is used when Redis is not configured.
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{revoked: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, c Credential) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.revoked[c.Key()] = now.Add(revokeTTL(c, now))
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, c Credential) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.revoked[c.Key()]
	if !ok {
		return false, nil
	}
	if !b.now().Before(until) {
		delete(b.revoked, c.Key())
		return false, nil
	}
	return true, nil
}

// Sweep drops lapsed entries that were never looked up again.
func (b *MemoryBlacklist) Sweep(context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for key, until := range b.revoked {
		if !now.Before(until) {
			delete(b.revoked, key)
			removed++
		}
	}
	return removed
}

func blacklistKey(c Credential) string {
	return "blacklist:" + c.Key()
}

func revokeTTL(c Credential, now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return DefaultRevokeTTL
	}
	if ttl := c.ExpiresAt.Sub(now); ttl > 0 {
		return ttl
	}
	return time.Minute
}
