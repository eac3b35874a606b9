package listing

import (
	"context"
	"sync"

	domain "listing-service/internal/domain/listing"

	"go.uber.org/zap"
)

// Status is the lifecycle of the page currently requested by a view.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is what a view renders. Data is nil unless it belongs to Key.
type State struct {
	Key    Key          `json:"-"`
	Status Status       `json:"status"`
	Data   *domain.Page `json:"data"`
	Err    string       `json:"error,omitempty"`
}

// PageFetcher is the part of Fetcher a Loader needs.
type PageFetcher interface {
	Peek(ctx context.Context, key Key) (*domain.Page, bool)
	Fetch(ctx context.Context, key Key) (*domain.Page, error)
}

// Loader tracks the one key a view currently wants. Every request carries
// a sequence tag and its result is committed only while that tag is current,
// so a superseded response can never overwrite a newer one.
type Loader struct {
	fetcher  PageFetcher
	base     context.Context
	onChange func(State)
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	keyStr string
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

func NewLoader(ctx context.Context, fetcher PageFetcher, logger *zap.Logger, onChange func(State)) *Loader {
	if onChange == nil {
		onChange = func(State) {}
	}
	return &Loader{
		fetcher:  fetcher,
		base:     ctx,
		onChange: onChange,
		logger:   logger,
		state:    State{Status: StatusIdle},
	}
}

// Load requests key. Requesting the key that is already loading or loaded
// is a no-op; any other key moves the loader back to loading and clears the
// previous page.
func (l *Loader) Load(key Key) {
	ks := key.String()
	if !l.wants(ks) {
		return
	}

	// the cache may sit behind the network; never consult it under l.mu
	page, hit := l.fetcher.Peek(l.base, key)

	l.mu.Lock()
	if l.closed || l.holds(ks) {
		l.mu.Unlock()
		return
	}
	st := l.startLocked(key, ks, page, hit)
	l.mu.Unlock()

	l.onChange(st)
}

// Retry re-requests the current key after a failure.
func (l *Loader) Retry() bool {
	l.mu.Lock()
	if l.closed || l.state.Status != StatusFailed {
		l.mu.Unlock()
		return false
	}
	key, ks := l.state.Key, l.keyStr
	l.mu.Unlock()

	page, hit := l.fetcher.Peek(l.base, key)

	l.mu.Lock()
	if l.closed || l.keyStr != ks || l.state.Status != StatusFailed {
		l.mu.Unlock()
		return false
	}
	st := l.startLocked(key, ks, page, hit)
	l.mu.Unlock()

	l.onChange(st)
	return true
}

// wants reports whether ks would change what the loader holds.
func (l *Loader) wants(ks string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && !l.holds(ks)
}

func (l *Loader) holds(ks string) bool {
	return ks == l.keyStr && (l.state.Status == StatusLoading || l.state.Status == StatusSucceeded)
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Close abandons the in-flight request. Later results are dropped.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *Loader) startLocked(key Key, ks string, cached *domain.Page, hit bool) State {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
	l.keyStr = ks

	if hit {
		l.state = State{Key: key, Status: StatusSucceeded, Data: cached}
		return l.state
	}

	l.state = State{Key: key, Status: StatusLoading}

	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	go l.run(ctx, key, l.seq)

	return l.state
}

func (l *Loader) run(ctx context.Context, key Key, seq uint64) {
	page, err := l.fetcher.Fetch(ctx, key)

	l.mu.Lock()
	if l.closed || seq != l.seq {
		l.mu.Unlock()
		l.logger.Debug("discarding superseded listing result", zap.String("key", key.String()))
		return
	}
	if err != nil {
		l.state = State{Key: key, Status: StatusFailed, Err: err.Error()}
	} else {
		l.state = State{Key: key, Status: StatusSucceeded, Data: page}
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	st := l.state
	l.mu.Unlock()

	l.onChange(st)
}
