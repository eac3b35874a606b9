package lookup

import (
	"context"
	"strconv"
	"sync"
	"time"

	domain "listing-service/internal/domain/listing"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultCatalogTTL = 30 * time.Minute

// Source is the marketplace brand, model and suggestion API.
type Source interface {
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	ListModels(ctx context.Context, brandID int64) ([]domain.Model, error)
	Suggest(ctx context.Context, q string) ([]string, error)
}

type cached[T any] struct {
	items     []T
	expiresAt time.Time
}

// Catalog caches brands and per-brand models. They change rarely and are
// requested by every view, so one process-wide copy is kept.
type Catalog struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	brands cached[domain.Brand]
	models map[int64]cached[domain.Model]
}

func NewCatalog(source Source, ttl time.Duration, logger *zap.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &Catalog{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
		models: make(map[int64]cached[domain.Model]),
	}
}

func (c *Catalog) Brands(ctx context.Context) ([]domain.Brand, error) {
	c.mu.RLock()
	b := c.brands
	c.mu.RUnlock()
	if b.items != nil && c.now().Before(b.expiresAt) {
		return b.items, nil
	}

	v, err, _ := c.group.Do("brands", func() (interface{}, error) {
		brands, err := c.source.ListBrands(ctx)
		if err != nil {
			return nil, err
		}
		if brands == nil {
			brands = []domain.Brand{}
		}
		c.mu.Lock()
		c.brands = cached[domain.Brand]{items: brands, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return brands, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Brand), nil
}

func (c *Catalog) Models(ctx context.Context, brandID int64) ([]domain.Model, error) {
	c.mu.RLock()
	m, ok := c.models[brandID]
	c.mu.RUnlock()
	if ok && c.now().Before(m.expiresAt) {
		return m.items, nil
	}

	v, err, _ := c.group.Do("models:"+strconv.FormatInt(brandID, 10), func() (interface{}, error) {
		models, err := c.source.ListModels(ctx, brandID)
		if err != nil {
			return nil, err
		}
		if models == nil {
			models = []domain.Model{}
		}
		c.mu.Lock()
		c.models[brandID] = cached[domain.Model]{items: models, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Model), nil
}

func (c *Catalog) Suggest(ctx context.Context, q string) ([]string, error) {
	return c.source.Suggest(ctx, q)
}

// Sweep drops expired model lists.
func (c *Catalog) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, m := range c.models {
		if !now.Before(m.expiresAt) {
			delete(c.models, id)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("model cache swept", zap.Int("removed", removed))
	}
	return removed
}
