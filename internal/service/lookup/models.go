package lookup

import (
	"context"
	"sync"

	domain "listing-service/internal/domain/listing"
)

// ModelSource lists the models of a brand.
type ModelSource interface {
	Models(ctx context.Context, brandID int64) ([]domain.Model, error)
}

// ModelResult is delivered once per completed Select.
type ModelResult struct {
	BrandID int64
	Models  []domain.Model
	Err     error
}

// ModelLookup loads the models of the selected brand for one view. Selecting
// another brand cancels the previous lookup and its result is never
// delivered.
type ModelLookup struct {
	source   ModelSource
	base     context.Context
	onResult func(ModelResult)

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

func NewModelLookup(ctx context.Context, source ModelSource, onResult func(ModelResult)) *ModelLookup {
	return &ModelLookup{source: source, base: ctx, onResult: onResult}
}

// Select starts loading the models of brandID. A zero id clears the
// selection and delivers an empty result immediately.
func (l *ModelLookup) Select(brandID int64) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
	seq := l.seq

	if brandID <= 0 {
		l.mu.Unlock()
		l.onResult(ModelResult{})
		return
	}

	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.mu.Unlock()

	go func() {
		defer cancel()
		models, err := l.source.Models(ctx, brandID)

		l.mu.Lock()
		current := !l.closed && seq == l.seq
		l.mu.Unlock()
		if !current {
			return
		}
		l.onResult(ModelResult{BrandID: brandID, Models: models, Err: err})
	}()
}

func (l *ModelLookup) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.cancel != nil {
		l.cancel()
	}
}
