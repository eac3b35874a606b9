package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"
	"listing-service/internal/middleware"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/pkg/jwt"
	"listing-service/internal/pkg/session"
	"listing-service/internal/service/favorites"
	service "listing-service/internal/service/listing"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMarket struct {
	mu      sync.Mutex
	keys    []service.Key
	err     error
	favIDs  []int64
	favErr  error
	favCall int
}

func (m *fakeMarket) FetchListings(_ context.Context, page, perPage int, q search.CanonicalQuery) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, service.Key{Page: page, PerPage: perPage, Query: q})
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Page{
		Items:      []domain.Car{{ID: 1, Name: "Vitz"}, {ID: 2, Name: "Demio"}},
		Pagination: domain.Pagination{Page: page, PerPage: perPage, TotalPages: 4, TotalCount: 40},
	}, nil
}

func (m *fakeMarket) ListFavoriteIDs(context.Context, session.Credential) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favCall++
	return m.favIDs, m.favErr
}

func (m *fakeMarket) AddFavorite(context.Context, session.Credential, int64) error    { return nil }
func (m *fakeMarket) RemoveFavorite(context.Context, session.Credential, int64) error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setup(t *testing.T, market *fakeMarket) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	fetcher := service.NewFetcher(market, service.NewMemoryStore(nil), logger)
	h := NewListingHandler(fetcher, favorites.NewRegistry(market, logger, nil), 12, logger)
	auth := middleware.NewAuthMiddleware(jwt.NewVerifier(nil, "", ""), nil, logger)

	r := gin.New()
	r.GET("/listings", auth.OptionalAuth(), h.ListListings)
	r.POST("/filters/normalize", h.NormalizeFilters)
	return r
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	claims := &jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(t *testing.T, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestListListings_Anonymous(t *testing.T) {
	market := &fakeMarket{}
	r := setup(t, market)

	req := httptest.NewRequest(http.MethodGet, "/listings?search=+vitz+&page=2&page_size=9&unknown=1", nil)
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body domain.ListResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "vitz", body.Query.Search)
	assert.Equal(t, "page=2&published=true&search=vitz", body.URL)
	assert.Equal(t, 4, body.Pagination.TotalPages)
	require.Len(t, body.Rows, 2)
	assert.False(t, body.Rows[0].Favorited)

	require.Len(t, market.keys, 1)
	assert.Equal(t, 12, market.keys[0].PerPage)
	assert.Equal(t, 0, market.favCall)
}

func TestListListings_EquivalentQueriesShareCache(t *testing.T) {
	market := &fakeMarket{}
	r := setup(t, market)

	for _, target := range []string{
		"/listings?listing_type=sale,auction",
		"/listings?listing_type=auction,sale&page=1",
	} {
		w, _ := do(t, r, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Len(t, market.keys, 1)
}

func TestListListings_PerPageIsCapped(t *testing.T) {
	market := &fakeMarket{}
	r := setup(t, market)

	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/listings?per_page=500", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MaxPerPage, market.keys[0].PerPage)
}

func TestListListings_MergesFavorites(t *testing.T) {
	market := &fakeMarket{favIDs: []int64{2}}
	r := setup(t, market)

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", bearer(t, "user-7"))
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body domain.ListResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.False(t, body.Rows[0].Favorited)
	assert.True(t, body.Rows[1].Favorited)
}

func TestListListings_FavoritesFailureStillServesListings(t *testing.T) {
	market := &fakeMarket{favErr: xerrors.NewUpstreamError(http.StatusInternalServerError, "down")}
	r := setup(t, market)

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", bearer(t, "user-7"))
	w, _ := do(t, r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListListings_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"server error", xerrors.NewUpstreamError(http.StatusInternalServerError, "down"), http.StatusBadGateway},
		{"unreachable", xerrors.Wrap(xerrors.ErrTransport, "GET /cars"), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setup(t, &fakeMarket{err: tt.err})
			w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/listings", nil))
			assert.Equal(t, tt.want, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestNormalizeFilters(t *testing.T) {
	r := setup(t, &fakeMarket{})

	body := []byte(`{"text_query":"  prado ","search_by":"model","listing_types":["sale","auction","bogus"],"budget_bucket":"","price_range":{"min":-5,"max":3000000},"brand_id":0,"model_id":9}`)
	req := httptest.NewRequest(http.MethodPost, "/filters/normalize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp domain.NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "prado", resp.Query.Search)
	assert.Nil(t, resp.Query.MinPrice)
	require.NotNil(t, resp.Query.MaxPrice)
	assert.Equal(t, int64(3000000), *resp.Query.MaxPrice)
	assert.Nil(t, resp.Query.BrandID)
	assert.Nil(t, resp.Query.ModelID)
	assert.Contains(t, resp.URL, "page=1")
}

func TestNormalizeFilters_RejectsMalformedJSON(t *testing.T) {
	r := setup(t, &fakeMarket{})

	req := httptest.NewRequest(http.MethodPost, "/filters/normalize", bytes.NewReader([]byte(`{"brand_id":"x"`)))
	req.Header.Set("Content-Type", "application/json")
	w, _ := do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
