package urlsync

import (
	"sync"
	"time"

	"listing-service/internal/domain/search"
	"listing-service/internal/pkg/debounce"

	"go.uber.org/zap"
)

const writeKey = "url:replace"

// DefaultDelay is the quiet period before the address bar is rewritten.
const DefaultDelay = 700 * time.Millisecond

// URLWriter replaces the current address-bar entry. It never pushes history.
type URLWriter interface {
	ReplaceURL(rawQuery string)
}

// QueryLoader receives queries hydrated from the address bar.
type QueryLoader interface {
	LoadFromQuery(q search.CanonicalQuery)
}

// Synchronizer keeps the address bar equal to the current query and page.
type Synchronizer struct {
	writer    URLWriter
	debouncer *debounce.Debouncer
	delay     time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	current string
}

func NewSynchronizer(writer URLWriter, debouncer *debounce.Debouncer, delay time.Duration, logger *zap.Logger) *Synchronizer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Synchronizer{
		writer:    writer,
		debouncer: debouncer,
		delay:     delay,
		logger:    logger,
	}
}

// Schedule replaces the address bar with q at page once the debounce window
// closes. A newer Schedule supersedes a pending one.
func (s *Synchronizer) Schedule(q search.CanonicalQuery, page int) {
	raw := Encode(q, page)
	s.debouncer.Schedule(writeKey, s.delay, func() { s.write(raw) })
}

// Flush performs a pending write immediately.
func (s *Synchronizer) Flush() bool {
	return s.debouncer.Flush(writeKey)
}

// Cancel drops a pending write.
func (s *Synchronizer) Cancel() {
	s.debouncer.Cancel(writeKey)
}

// Hydrate loads an externally supplied address-bar query into loader. The
// hydrated URL becomes current, so it is not written back.
func (s *Synchronizer) Hydrate(raw string, loader QueryLoader) Decoded {
	d, err := Decode(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed address-bar query", zap.String("query", raw), zap.Error(err))
	}

	s.debouncer.Cancel(writeKey)
	loader.LoadFromQuery(d.Query)

	s.mu.Lock()
	s.current = Encode(d.Query, d.Page)
	s.mu.Unlock()
	return d
}

// Current returns the last query string written or hydrated.
func (s *Synchronizer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Synchronizer) write(raw string) {
	s.mu.Lock()
	if raw == s.current {
		s.mu.Unlock()
		return
	}
	s.current = raw
	s.mu.Unlock()

	s.writer.ReplaceURL(raw)
	s.logger.Debug("address bar replaced", zap.String("query", raw))
}
