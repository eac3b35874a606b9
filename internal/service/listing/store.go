package listing

import (
	"context"
	"strconv"
	"sync"
	"time"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"
)

// Key identifies one listing request.
type Key struct {
	Page    int
	PerPage int
	Query   search.CanonicalQuery
}

// String is the structural serialization used as cache key.
func (k Key) String() string {
	v := k.Query.Values()
	v.Set(search.ParamPage, strconv.Itoa(k.Page))
	v.Set(search.ParamPerPage, strconv.Itoa(k.PerPage))
	return v.Encode()
}

// Entry is a cached page with its soft expiry.
type Entry struct {
	Page      *domain.Page `json:"page"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Store caches listing pages by key string.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry)
	// Sweep drops expired entries and returns how many were removed.
	Sweep(ctx context.Context) int
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]Entry), now: now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.ExpiresAt) {
		return Entry{}, false
	}
	return e, true
}

func (s *MemoryStore) Set(_ context.Context, key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

func (s *MemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TieredStore reads through a local store into a shared one and backfills
// the local store on shared hits.
type TieredStore struct {
	local  Store
	shared Store
}

func NewTieredStore(local, shared Store) *TieredStore {
	return &TieredStore{local: local, shared: shared}
}

func (s *TieredStore) Get(ctx context.Context, key string) (Entry, bool) {
	if e, ok := s.local.Get(ctx, key); ok {
		return e, true
	}
	e, ok := s.shared.Get(ctx, key)
	if ok {
		s.local.Set(ctx, key, e)
	}
	return e, ok
}

func (s *TieredStore) Set(ctx context.Context, key string, e Entry) {
	s.local.Set(ctx, key, e)
	s.shared.Set(ctx, key, e)
}

func (s *TieredStore) Sweep(ctx context.Context) int {
	return s.local.Sweep(ctx) + s.shared.Sweep(ctx)
}
