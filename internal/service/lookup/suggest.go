package lookup

import (
	"context"
	"strings"
	"sync"
	"time"

	"listing-service/internal/pkg/debounce"
)

const (
	DefaultSuggestDelay = 300 * time.Millisecond
	// MinSuggestLength is the shortest text worth asking suggestions for.
	MinSuggestLength = 2
)

const suggestKey = "suggest"

// SuggestSource returns suggestions for free text.
type SuggestSource interface {
	Suggest(ctx context.Context, q string) ([]string, error)
}

type SuggestResult struct {
	Query       string
	Suggestions []string
	Err         error
}

// Suggester fetches suggestions while the user types. Keystrokes are
// debounced, and a newer keystroke cancels both the pending and the
// in-flight request of the previous one.
type Suggester struct {
	source    SuggestSource
	debouncer *debounce.Debouncer
	delay     time.Duration
	base      context.Context
	onResult  func(SuggestResult)

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

func NewSuggester(ctx context.Context, source SuggestSource, debouncer *debounce.Debouncer, delay time.Duration, onResult func(SuggestResult)) *Suggester {
	if delay <= 0 {
		delay = DefaultSuggestDelay
	}
	return &Suggester{
		source:    source,
		debouncer: debouncer,
		delay:     delay,
		base:      ctx,
		onResult:  onResult,
	}
}

// Type records the current text. Text shorter than MinSuggestLength
// delivers an empty result without a request.
func (s *Suggester) Type(q string) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	if len([]rune(q)) < MinSuggestLength {
		s.debouncer.Cancel(suggestKey)
		s.onResult(SuggestResult{Query: q, Suggestions: []string{}})
		return
	}

	s.debouncer.Schedule(suggestKey, s.delay, func() { s.fetch(seq, q) })
}

func (s *Suggester) fetch(seq uint64, q string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	suggestions, err := s.source.Suggest(ctx, q)

	s.mu.Lock()
	current := !s.closed && seq == s.seq
	s.mu.Unlock()
	if !current {
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	s.onResult(SuggestResult{Query: q, Suggestions: suggestions, Err: err})
}

// Close cancels pending and in-flight work. Results arriving later are
// dropped.
func (s *Suggester) Close() {
	s.debouncer.Cancel(suggestKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}
