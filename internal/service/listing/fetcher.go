package listing

import (
	"context"
	"sync/atomic"
	"time"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL     = 2 * time.Minute
	DefaultTimeout = 10 * time.Second
)

// Source performs the actual listing request.
type Source interface {
	FetchListings(ctx context.Context, page, perPage int, q search.CanonicalQuery) (*domain.Page, error)
}

// Stats counts fetcher activity since start.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Shared   int64 `json:"shared"`
	Failures int64 `json:"failures"`
}

// Fetcher returns listing pages with caching and in-flight de-duplication.
// Concurrent calls for an equal key share one request. Failures are not
// cached and not retried here.
type Fetcher struct {
	source  Source
	store   Store
	group   singleflight.Group
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	hits, misses, shared, failures atomic.Int64
}

type FetcherOption func(*Fetcher)

func WithTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = timeout }
}

func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

func NewFetcher(source Source, store Store, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:  source,
		store:   store,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Peek returns a fresh cached page without touching the network.
func (f *Fetcher) Peek(ctx context.Context, key Key) (*domain.Page, bool) {
	e, ok := f.store.Get(ctx, key.String())
	if !ok || !f.now().Before(e.ExpiresAt) {
		return nil, false
	}
	return e.Page, true
}

// Fetch returns the page for key. The shared request runs detached from
// ctx, so a caller giving up does not fail the others waiting on it.
func (f *Fetcher) Fetch(ctx context.Context, key Key) (*domain.Page, error) {
	if page, ok := f.Peek(ctx, key); ok {
		f.hits.Add(1)
		return page, nil
	}
	f.misses.Add(1)

	k := key.String()
	ch := f.group.DoChan(k, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		page, err := f.source.FetchListings(rctx, key.Page, key.PerPage, key.Query)
		if err != nil {
			f.failures.Add(1)
			return nil, err
		}
		f.store.Set(rctx, k, Entry{Page: page, ExpiresAt: f.now().Add(f.ttl)})
		return page, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			f.shared.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Page), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sweep drops expired cache entries.
func (f *Fetcher) Sweep(ctx context.Context) int {
	removed := f.store.Sweep(ctx)
	if removed > 0 {
		f.logger.Debug("listing cache swept", zap.Int("removed", removed))
	}
	return removed
}

func (f *Fetcher) Stats() Stats {
	return Stats{
		Hits:     f.hits.Load(),
		Misses:   f.misses.Load(),
		Shared:   f.shared.Load(),
		Failures: f.failures.Load(),
	}
}
