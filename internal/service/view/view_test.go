package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"
	"listing-service/internal/pkg/session"
	"listing-service/internal/service/favorites"
	"listing-service/internal/service/filter"
	"listing-service/internal/service/listing"
	"listing-service/internal/service/lookup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetch struct {
	page    int
	perPage int
	query   search.CanonicalQuery
}

type fakeMarket struct {
	mu         sync.Mutex
	fetches    []fetch
	totalPages int
	fail       bool

	favoriteCalls atomic.Int32
}

func (m *fakeMarket) FetchListings(_ context.Context, page, perPage int, q search.CanonicalQuery) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, fetch{page: page, perPage: perPage, query: q})
	if m.fail {
		return nil, errors.New("connection refused")
	}
	return &domain.Page{
		Items: []domain.Car{
			{ID: int64(page*100 + 1), Name: "Axio"},
			{ID: int64(page*100 + 2), Name: "Fielder"},
		},
		Pagination: domain.Pagination{Page: page, PerPage: perPage, TotalPages: m.totalPages, TotalCount: int64(m.totalPages * perPage)},
	}, nil
}

func (m *fakeMarket) all() []fetch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fetch(nil), m.fetches...)
}

func (m *fakeMarket) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *fakeMarket) ListFavoriteIDs(context.Context, session.Credential) ([]int64, error) {
	m.favoriteCalls.Add(1)
	return []int64{102}, nil
}

func (m *fakeMarket) AddFavorite(context.Context, session.Credential, int64) error {
	m.favoriteCalls.Add(1)
	return nil
}

func (m *fakeMarket) RemoveFavorite(context.Context, session.Credential, int64) error {
	m.favoriteCalls.Add(1)
	return nil
}

func (m *fakeMarket) Models(_ context.Context, brandID int64) ([]domain.Model, error) {
	return []domain.Model{{ID: 1, BrandID: brandID, Name: "Prado"}}, nil
}

func (m *fakeMarket) Suggest(_ context.Context, q string) ([]string, error) {
	return []string{q}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	urls   []string
	snaps  []Snapshot
	models []lookup.ModelResult
	toasts []string
}

func (s *recordingSink) ReplaceURL(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, raw)
}

func (s *recordingSink) Render(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *recordingSink) Models(r lookup.ModelResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append(s.models, r)
}

func (s *recordingSink) Suggestions(lookup.SuggestResult) {}

func (s *recordingSink) Toast(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, message)
}

func (s *recordingSink) lastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.urls) == 0 {
		return ""
	}
	return s.urls[len(s.urls)-1]
}

func (s *recordingSink) urlCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func (s *recordingSink) toastCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.toasts)
}

func (s *recordingSink) modelResults() []lookup.ModelResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]lookup.ModelResult(nil), s.models...)
}

type harness struct {
	view   *View
	market *fakeMarket
	sink   *recordingSink
}

func newHarness(t *testing.T, cred session.Credential, queryDelay time.Duration) *harness {
	t.Helper()
	return newHarnessWith(t, cred, queryDelay, nil)
}

func newHarnessWith(t *testing.T, cred session.Credential, queryDelay time.Duration, wrap func(listing.PageFetcher) listing.PageFetcher) *harness {
	t.Helper()
	market := &fakeMarket{totalPages: 5}
	sink := &recordingSink{}
	logger := zap.NewNop()

	var fetcher listing.PageFetcher = listing.NewFetcher(market, listing.NewMemoryStore(nil), logger)
	if wrap != nil {
		fetcher = wrap(fetcher)
	}
	overlay := favorites.NewOverlay(market, cred, logger)

	v := New(context.Background(), Deps{
		Fetcher:     fetcher,
		Favorites:   overlay,
		Models:      market,
		Suggestions: market,
		Logger:      logger,
	}, sink, Config{
		PerPage:    12,
		QueryDelay: queryDelay,
		URLDelay:   15 * time.Millisecond,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(v.Close)
	return &harness{view: v, market: market, sink: sink}
}

func (h *harness) waitFetches(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.market.all()) == n }, time.Second, time.Millisecond)
}

func (h *harness) waitStatus(t *testing.T, status listing.Status) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return h.view.Snapshot().Status == status }, time.Second, time.Millisecond)
	return h.view.Snapshot()
}

func TestView_AuctionYearRangeFetchesOnce(t *testing.T) {
	h := newHarness(t, session.Credential{}, 20*time.Millisecond)
	h.view.Navigate("")
	h.waitStatus(t, listing.StatusSucceeded)
	require.Len(t, h.market.all(), 1)

	h.view.ToggleOption(filter.FieldListingType, "auction")
	h.view.SetField(filter.FieldMinYear, "2018")
	h.view.SetField(filter.FieldMaxYear, "2022")

	h.waitFetches(t, 2)
	require.Eventually(t, func() bool {
		return h.sink.lastURL() == "listing_type=auction&max_yom=2022&min_yom=2018&page=1&published=true"
	}, time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	fetches := h.market.all()
	require.Len(t, fetches, 2)
	assert.Equal(t, 1, fetches[1].page)
	assert.Equal(t, 4, fetches[1].query.Len())
	assert.Equal(t, "auction", fetches[1].query.ListingType)
	assert.Equal(t, 1, h.sink.urlCount())
}

func TestView_QueryChangeResetsPage(t *testing.T) {
	h := newHarness(t, session.Credential{}, 10*time.Millisecond)
	h.view.Navigate("page=3&search=prado")
	snap := h.waitStatus(t, listing.StatusSucceeded)
	assert.Equal(t, 3, snap.Page)
	assert.Equal(t, 0, h.sink.urlCount(), "hydrated address must not be written back")

	h.view.SetField(filter.FieldCurrency, "usd")
	h.view.SetField(filter.FieldCurrency, "kes")
	h.view.SetField(filter.FieldCondition, "new")

	h.waitFetches(t, 2)
	snap = h.waitStatus(t, listing.StatusSucceeded)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 1, h.market.all()[1].page)
	assert.Equal(t, "KES", h.market.all()[1].query.Currency)
}

func TestView_SearchAppliesPendingEdits(t *testing.T) {
	h := newHarness(t, session.Credential{}, time.Hour)
	h.view.Navigate("")
	h.waitFetches(t, 1)

	h.view.SetField(filter.FieldTextQuery, "vitz")
	h.view.Search()
	h.waitFetches(t, 2)
	assert.Equal(t, "vitz", h.market.all()[1].query.Search)

	h.view.Search()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.market.all(), 2)
}

func TestView_PageNavigation(t *testing.T) {
	h := newHarness(t, session.Credential{}, 10*time.Millisecond)
	h.market.totalPages = 2
	h.view.Navigate("")
	h.waitStatus(t, listing.StatusSucceeded)

	h.view.PrevPage()
	h.view.NextPage()
	h.waitFetches(t, 2)
	require.Eventually(t, func() bool { return h.sink.lastURL() == "page=2&published=true" }, time.Second, time.Millisecond)

	h.waitStatus(t, listing.StatusSucceeded)
	h.view.NextPage()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.market.all(), 2)

	h.view.GoToPage(1)
	snap := h.waitStatus(t, listing.StatusSucceeded)
	assert.Equal(t, 1, snap.Page)
	assert.Len(t, h.market.all(), 2, "page 1 is served from cache")
}

func TestView_RestoredPageBeyondTotalIsClamped(t *testing.T) {
	h := newHarness(t, session.Credential{}, 10*time.Millisecond)
	h.market.totalPages = 2
	h.view.Navigate("page=9")

	h.waitFetches(t, 2)
	snap := h.waitStatus(t, listing.StatusSucceeded)
	assert.Equal(t, 2, snap.Page)
	assert.Equal(t, 2, h.market.all()[1].page)
}

func TestView_FavoriteToggleDoesNotRefetch(t *testing.T) {
	h := newHarness(t, session.Credential{Token: "t", IdentityID: "1"}, 10*time.Millisecond)
	h.view.Navigate("")
	h.waitStatus(t, listing.StatusSucceeded)
	require.Eventually(t, func() bool {
		rows := h.view.Snapshot().Rows
		return len(rows) == 2 && rows[1].Favorited
	}, time.Second, time.Millisecond)

	fav, err := h.view.ToggleFavorite(context.Background(), 101)
	require.NoError(t, err)
	assert.True(t, fav)

	snap := h.view.Snapshot()
	assert.True(t, snap.Rows[0].Favorited)
	assert.True(t, snap.Authenticated)
	assert.Len(t, h.market.all(), 1)
}

func TestView_AnonymousHasNoFavorites(t *testing.T) {
	h := newHarness(t, session.Credential{}, 10*time.Millisecond)
	h.view.Navigate("")
	snap := h.waitStatus(t, listing.StatusSucceeded)

	require.Len(t, snap.Rows, 2)
	for _, r := range snap.Rows {
		assert.False(t, r.Favorited)
	}
	assert.False(t, snap.Authenticated)

	_, err := h.view.ToggleFavorite(context.Background(), 101)
	assert.Error(t, err)
	assert.Equal(t, int32(0), h.market.favoriteCalls.Load())
}

func TestView_FailureAndRetry(t *testing.T) {
	h := newHarness(t, session.Credential{}, 10*time.Millisecond)
	h.market.setFail(true)
	h.view.Navigate("")

	snap := h.waitStatus(t, listing.StatusFailed)
	assert.Equal(t, "connection refused", snap.Error)
	assert.Empty(t, snap.Rows)
	assert.Equal(t, 1, h.sink.toastCount())

	h.market.setFail(false)
	assert.True(t, h.view.Retry())
	snap = h.waitStatus(t, listing.StatusSucceeded)
	assert.Len(t, snap.Rows, 2)
}

func TestView_BrandChangeLoadsModels(t *testing.T) {
	h := newHarness(t, session.Credential{}, 10*time.Millisecond)
	h.view.Navigate("")

	h.view.SetField(filter.FieldBrandID, "4")
	require.Eventually(t, func() bool {
		for _, r := range h.sink.modelResults() {
			if r.BrandID == 4 && len(r.Models) == 1 {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

// peekHook runs fn once, from inside the cache lookup of the first page 2
// request, to interleave an edit with a page change.
type peekHook struct {
	listing.PageFetcher
	once sync.Once
	fn   atomic.Pointer[func()]
}

func (p *peekHook) Peek(ctx context.Context, key listing.Key) (*domain.Page, bool) {
	if fn := p.fn.Load(); fn != nil && key.Page == 2 {
		p.once.Do(*fn)
	}
	return p.PageFetcher.Peek(ctx, key)
}

func TestView_SearchDuringPageChangeKeepsNewestURL(t *testing.T) {
	hook := &peekHook{}
	h := newHarnessWith(t, session.Credential{}, time.Hour, func(f listing.PageFetcher) listing.PageFetcher {
		hook.PageFetcher = f
		return hook
	})
	h.view.Navigate("search=vitz")
	h.waitStatus(t, listing.StatusSucceeded)

	search := func() {
		h.view.SetField(filter.FieldTextQuery, "prado")
		h.view.Search()
	}
	hook.fn.Store(&search)
	h.view.NextPage()

	require.Eventually(t, func() bool {
		snap := h.view.Snapshot()
		return snap.Status == listing.StatusSucceeded && snap.Query.Search == "prado"
	}, time.Second, time.Millisecond)
	snap := h.view.Snapshot()
	assert.Equal(t, 1, snap.Page)
	key := h.view.loader.State().Key
	assert.Equal(t, "prado", key.Query.Search)
	assert.Equal(t, 1, key.Page)

	require.Eventually(t, func() bool { return strings.Contains(h.sink.lastURL(), "search=prado") }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	last := h.sink.lastURL()
	assert.Contains(t, last, "search=prado")
	assert.Contains(t, last, "page=1")
	assert.NotContains(t, last, "vitz")
}
