// internal/pkg/session/invalidator.go
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier tells the connected clients of a session that it ended.
type Notifier interface {
	SessionExpired(sessionKey, loginURL string)
}

// Invalidator ends a session after the marketplace rejected its credential.
// Each credential is invalidated at most once.
type Invalidator struct {
	blacklist Blacklist
	notifier  Notifier
	loginURL  string
	logger    *zap.Logger

	now  func() time.Time
	mu   sync.Mutex
	done map[string]time.Time // session key -> when the credential lapses
}

func NewInvalidator(blacklist Blacklist, notifier Notifier, loginURL string, logger *zap.Logger) *Invalidator {
	return &Invalidator{
		blacklist: blacklist,
		notifier:  notifier,
		loginURL:  loginURL,
		logger:    logger,
		now:       time.Now,
		done:      make(map[string]time.Time),
	}
}

func (i *Invalidator) LoginURL() string {
	return i.loginURL
}

// Invalidate revokes c and notifies its clients. It reports whether this
// call did the work.
func (i *Invalidator) Invalidate(ctx context.Context, c Credential, cause error) bool {
	if !c.Authenticated() {
		return false
	}

	key := c.Key()
	i.mu.Lock()
	if _, ok := i.done[key]; ok {
		i.mu.Unlock()
		return false
	}
	now := i.now()
	i.done[key] = now.Add(revokeTTL(c, now))
	i.mu.Unlock()

	i.logger.Info("session invalidated",
		zap.String("identity_id", c.IdentityID),
		zap.Error(cause),
	)

	if err := i.blacklist.Revoke(ctx, c); err != nil {
		i.logger.Warn("failed to revoke credential", zap.Error(err))
	}
	if i.notifier != nil {
		i.notifier.SessionExpired(key, i.loginURL)
	}
	return true
}

// Revoked reports whether c was invalidated earlier, here or by another
// instance sharing the blacklist.
func (i *Invalidator) Revoked(ctx context.Context, c Credential) bool {
	if !c.Authenticated() {
		return false
	}
	revoked, err := i.blacklist.IsRevoked(ctx, c)
	if err != nil {
		i.logger.Warn("blacklist lookup failed", zap.Error(err))
		return false
	}
	return revoked
}

// Sweep forgets invalidated credentials that have lapsed since; the token
// can no longer authenticate, so there is nothing left to guard. A
// blacklist kept in memory is swept along.
func (i *Invalidator) Sweep(ctx context.Context) int {
	now := i.now()
	removed := 0

	i.mu.Lock()
	for key, until := range i.done {
		if !now.Before(until) {
			delete(i.done, key)
			removed++
		}
	}
	i.mu.Unlock()

	if sw, ok := i.blacklist.(interface{ Sweep(context.Context) int }); ok {
		removed += sw.Sweep(ctx)
	}
	return removed
}
