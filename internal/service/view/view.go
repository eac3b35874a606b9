package view

import (
	"context"
	"sync"
	"time"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"
	"listing-service/internal/pkg/debounce"
	"listing-service/internal/service/favorites"
	"listing-service/internal/service/filter"
	"listing-service/internal/service/listing"
	"listing-service/internal/service/lookup"
	"listing-service/internal/service/pagination"
	"listing-service/internal/service/urlsync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	DefaultPerPage    = 12
	DefaultQueryDelay = 300 * time.Millisecond

	recomputeKey = "query:recompute"
)

// Sink receives everything a view wants to show.
type Sink interface {
	urlsync.URLWriter
	Render(Snapshot)
	Models(lookup.ModelResult)
	Suggestions(lookup.SuggestResult)
	Toast(message string)
}

// Snapshot is the rendered state of a view.
type Snapshot struct {
	ID            string                `json:"id"`
	Filters       search.FilterState    `json:"filters"`
	Query         search.CanonicalQuery `json:"query"`
	URL           string                `json:"url"`
	Page          int                   `json:"page"`
	Status        listing.Status        `json:"status"`
	Rows          []domain.Row          `json:"rows"`
	Pagination    *domain.Pagination    `json:"pagination,omitempty"`
	Error         string                `json:"error,omitempty"`
	Authenticated bool                  `json:"authenticated"`
}

type Config struct {
	PerPage      int
	QueryDelay   time.Duration
	URLDelay     time.Duration
	SuggestDelay time.Duration
	Now          func() time.Time
}

type Deps struct {
	Fetcher     listing.PageFetcher
	Favorites   *favorites.Overlay
	Models      lookup.ModelSource
	Suggestions lookup.SuggestSource
	Logger      *zap.Logger
}

// View is one listing screen: a filter form, the result list and its
// pagination. Form edits settle for QueryDelay before the query is
// recomputed; only a changed query resets the page and fetches.
type View struct {
	id     string
	cfg    Config
	sink   Sink
	logger *zap.Logger

	store     *filter.Store
	debouncer *debounce.Debouncer
	sync      *urlsync.Synchronizer
	pager     *pagination.Controller
	loader    *listing.Loader
	favorites *favorites.Overlay
	models    *lookup.ModelLookup
	suggester *lookup.Suggester

	cancel context.CancelFunc
	unsubs []func()

	mu       sync.Mutex
	query    search.CanonicalQuery
	queryKey string
	queryGen uint64 // bumped on every query change
	brandID  *int64
	closed   bool
}

func New(ctx context.Context, deps Deps, sink Sink, cfg Config) *View {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.QueryDelay <= 0 {
		cfg.QueryDelay = DefaultQueryDelay
	}

	ctx, cancel := context.WithCancel(ctx)
	id := ulid.Make().String()
	logger := deps.Logger.With(zap.String("view_id", id))

	var storeOpts []filter.Option
	if cfg.Now != nil {
		storeOpts = append(storeOpts, filter.WithClock(cfg.Now))
	}

	v := &View{
		id:        id,
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		store:     filter.NewStore(storeOpts...),
		debouncer: debounce.New(),
		pager:     pagination.NewController(),
		favorites: deps.Favorites,
		cancel:    cancel,
		query:     search.CanonicalQuery{Published: true},
	}
	v.sync = urlsync.NewSynchronizer(sink, v.debouncer, cfg.URLDelay, logger)
	v.loader = listing.NewLoader(ctx, deps.Fetcher, logger, v.onListing)
	v.models = lookup.NewModelLookup(ctx, deps.Models, sink.Models)
	v.suggester = lookup.NewSuggester(ctx, deps.Suggestions, v.debouncer, cfg.SuggestDelay, sink.Suggestions)

	v.unsubs = append(v.unsubs,
		v.store.Subscribe(v.onFilters),
		v.favorites.Subscribe(v.render),
	)

	if v.favorites.Authenticated() {
		go func() {
			if err := v.favorites.Load(ctx); err != nil {
				v.logger.Warn("favorites unavailable", zap.Error(err))
			}
		}()
	}
	return v
}

func (v *View) ID() string {
	return v.id
}

func (v *View) Filters() *filter.Store {
	return v.store
}

// SetField edits one form field.
func (v *View) SetField(field filter.Field, value string) bool {
	return v.store.SetField(field, value)
}

// ToggleOption flips one value of a multi-select field.
func (v *View) ToggleOption(field filter.Field, value string) bool {
	return v.store.Toggle(field, value)
}

func (v *View) ResetFilters() {
	v.store.Reset()
}

// Search applies pending form edits immediately.
func (v *View) Search() {
	if !v.debouncer.Flush(recomputeKey) {
		v.recompute()
	}
}

// Navigate adopts an address-bar query changed outside the view, such as
// back/forward navigation or an opened link. Nothing is written back.
func (v *View) Navigate(raw string) {
	// must be current before hydration schedules its recompute
	d, _ := urlsync.Decode(raw)
	q := filter.Normalize(filter.Denormalize(d.Query))
	key := q.Key()

	v.mu.Lock()
	v.query = q
	v.queryKey = key
	v.queryGen++
	v.mu.Unlock()
	v.pager.Restore(key, d.Page)

	v.sync.Hydrate(raw, v.store)
	v.debouncer.Cancel(recomputeKey)
	v.load()
}

func (v *View) NextPage() {
	if v.pager.Next() {
		v.pageChanged()
	}
}

func (v *View) PrevPage() {
	if v.pager.Prev() {
		v.pageChanged()
	}
}

func (v *View) GoToPage(n int) {
	if v.pager.GoTo(n) {
		v.pageChanged()
	}
}

// Retry re-requests the current page after a failure.
func (v *View) Retry() bool {
	return v.loader.Retry()
}

// ToggleFavorite flips a car in the favorites overlay. The listing is
// re-rendered, never refetched.
func (v *View) ToggleFavorite(ctx context.Context, carID int64) (bool, error) {
	fav, err := v.favorites.Toggle(ctx, carID)
	if err != nil {
		v.sink.Toast("Could not update favorites")
	}
	return fav, err
}

func (v *View) Suggest(text string) {
	v.suggester.Type(text)
}

// Snapshot returns the current rendered state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()

	st := v.loader.State()
	snap := Snapshot{
		ID:            v.id,
		Filters:       v.store.Snapshot(),
		Query:         q,
		URL:           v.sync.Current(),
		Page:          v.pager.Current(),
		Status:        st.Status,
		Rows:          []domain.Row{},
		Error:         st.Err,
		Authenticated: v.favorites.Authenticated(),
	}
	if st.Data != nil {
		snap.Rows = v.favorites.Merge(st.Data.Items)
		p := st.Data.Pagination
		snap.Pagination = &p
	}
	return snap
}

// Close releases the view. Pending work is dropped.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	for _, unsub := range v.unsubs {
		unsub()
	}
	v.debouncer.Stop()
	v.suggester.Close()
	v.models.Close()
	v.loader.Close()
	v.cancel()
}

func (v *View) onFilters(st search.FilterState) {
	v.mu.Lock()
	brandChanged := !sameID(v.brandID, st.BrandID)
	if brandChanged {
		v.brandID = copyID(st.BrandID)
	}
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}

	if brandChanged {
		var id int64
		if st.BrandID != nil {
			id = *st.BrandID
		}
		v.models.Select(id)
	}

	v.debouncer.Schedule(recomputeKey, v.cfg.QueryDelay, v.recompute)
	v.render()
}

func (v *View) recompute() {
	q := filter.Normalize(v.store.Snapshot())
	key := q.Key()

	v.mu.Lock()
	if v.closed || key == v.queryKey {
		v.mu.Unlock()
		return
	}
	v.query = q
	v.queryKey = key
	v.queryGen++
	v.mu.Unlock()

	v.pager.ResetForQuery(key)
	v.commit()
}

func (v *View) pageChanged() {
	v.commit()
}

// commit loads the current query and page and schedules the matching URL.
// Both use one read of the state. A query or page change racing with it
// makes it run again, so its last URL write is never older than the state.
func (v *View) commit() {
	for {
		q, gen, page := v.current()

		v.loader.Load(listing.Key{Page: page, PerPage: v.cfg.PerPage, Query: q})
		v.sync.Schedule(q, page)

		v.mu.Lock()
		closed, settled := v.closed, gen == v.queryGen
		v.mu.Unlock()
		if closed || (settled && page == v.pager.Current()) {
			return
		}
	}
}

func (v *View) load() {
	q, _, page := v.current()
	v.loader.Load(listing.Key{Page: page, PerPage: v.cfg.PerPage, Query: q})
}

func (v *View) current() (search.CanonicalQuery, uint64, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query, v.queryGen, v.pager.Current()
}

func (v *View) onListing(st listing.State) {
	switch st.Status {
	case listing.StatusSucceeded:
		if st.Data != nil && v.pager.SetTotal(st.Data.Pagination.TotalPages) {
			// a deferred GoTo or a shrunken result moved the page
			v.pageChanged()
			return
		}
	case listing.StatusFailed:
		v.logger.Warn("listing fetch failed", zap.String("key", st.Key.String()), zap.String("error", st.Err))
		v.sink.Toast("Could not load listings")
	}
	v.render()
}

func (v *View) render() {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	v.sink.Render(v.Snapshot())
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
