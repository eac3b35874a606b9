package favorites

import (
	"context"
	"sync"
	"time"

	"listing-service/internal/pkg/session"

	"go.uber.org/zap"
)

// DefaultIdleTTL bounds how long the overlay of a credential without an
// expiry is kept after its last use.
const DefaultIdleTTL = time.Hour

type entry struct {
	overlay *Overlay
	until   time.Time
}

// Registry hands out one Overlay per session so all views of a session
// share the same set.
type Registry struct {
	backend   Backend
	logger    *zap.Logger
	onAuth    func(session.Credential, error)
	anonymous *Overlay
	opts      []Option
	now       func() time.Time

	mu       sync.Mutex
	overlays map[string]*entry
}

func NewRegistry(backend Backend, logger *zap.Logger, onAuth func(session.Credential, error), opts ...Option) *Registry {
	if onAuth == nil {
		onAuth = func(session.Credential, error) {}
	}
	return &Registry{
		backend:   backend,
		logger:    logger,
		onAuth:    onAuth,
		anonymous: NewOverlay(backend, session.Credential{}, logger),
		opts:      opts,
		now:       time.Now,
		overlays:  make(map[string]*entry),
	}
}

// For returns the overlay of cred. Anonymous callers share one empty
// overlay.
func (r *Registry) For(cred session.Credential) *Overlay {
	if !cred.Authenticated() {
		return r.anonymous
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := cred.Key()
	e, ok := r.overlays[key]
	if !ok {
		opts := append([]Option{WithAuthFailure(func(err error) { r.onAuth(cred, err) })}, r.opts...)
		e = &entry{overlay: NewOverlay(r.backend, cred, r.logger.With(zap.String("identity_id", cred.IdentityID)), opts...)}
		r.overlays[key] = e
	}
	e.until = r.retainUntil(cred)
	return e.overlay
}

// retainUntil is the credential's own expiry, or an idle deadline for
// tokens that never expire.
func (r *Registry) retainUntil(cred session.Credential) time.Time {
	if !cred.ExpiresAt.IsZero() {
		return cred.ExpiresAt
	}
	return r.now().Add(DefaultIdleTTL)
}

// Drop forgets the overlay of an ended session.
func (r *Registry) Drop(sessionKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overlays, sessionKey)
}

// Sweep forgets overlays whose credential lapsed or sat idle. Views still
// holding one keep using it until they close.
func (r *Registry) Sweep(context.Context) int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, e := range r.overlays {
		if !now.Before(e.until) {
			delete(r.overlays, key)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.overlays)
}
