package savedsearch

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/middleware"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/pkg/jwt"
	service "listing-service/internal/service/savedsearch"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]domain.SavedSearch
}

func (r *memoryRepo) Upsert(_ context.Context, s *domain.SavedSearch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.rows {
		if existing.IdentityID == s.IdentityID && existing.Query == s.Query {
			existing.Name = s.Name
			r.rows[id] = existing
			*s = existing
			return nil
		}
	}
	s.CreatedAt = time.Now()
	r.rows[s.ID] = *s
	return nil
}

func (r *memoryRepo) ListByIdentity(_ context.Context, identityID string) ([]domain.SavedSearch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SavedSearch
	for _, s := range r.rows {
		if s.IdentityID == identityID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRepo) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	rows, _ := r.ListByIdentity(ctx, identityID)
	return len(rows), nil
}

func (r *memoryRepo) Delete(_ context.Context, identityID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.IdentityID != identityID {
		return xerrors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

var (
	signingKeyOnce sync.Once
	signingKey     *rsa.PrivateKey
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	signingKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		signingKey = key
	})
	return signingKey
}

func setup(t *testing.T, svc *service.Service) *gin.Engine {
	t.Helper()
	return setupWithVerifier(t, svc, jwt.NewVerifier(&testKey(t).PublicKey, "", ""))
}

func setupWithVerifier(t *testing.T, svc *service.Service, verifier *jwt.Verifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	h := NewSavedSearchHandler(svc, logger)
	auth := middleware.NewAuthMiddleware(verifier, nil, logger)

	r := gin.New()
	g := r.Group("/saved-searches", auth.VerifiedAuth())
	g.GET("", h.ListSavedSearches)
	g.POST("", h.CreateSavedSearch)
	g.DELETE("/:id", h.DeleteSavedSearch)
	return r
}

func testClaims(subject string) *jwt.Claims {
	return &jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, testClaims(subject)).SignedString(testKey(t))
	require.NoError(t, err)
	return "Bearer " + s
}

// unsignedBearer claims subject without any signature.
func unsignedBearer(t *testing.T, subject string) string {
	t.Helper()
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, testClaims(subject)).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return "Bearer " + s
}

func call(t *testing.T, r *gin.Engine, method, target, subject string, body interface{}) (int, json.RawMessage) {
	t.Helper()
	return send(t, r, method, target, bearer(t, subject), body)
}

func send(t *testing.T, r *gin.Engine, method, target, authorization string, body interface{}) (int, json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorization)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env.Data
}

func TestSavedSearches_DisabledWithoutDatabase(t *testing.T) {
	r := setup(t, nil)
	code, _ := call(t, r, http.MethodGet, "/saved-searches", "u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSavedSearches_Lifecycle(t *testing.T) {
	r := setup(t, service.NewService(&memoryRepo{rows: map[string]domain.SavedSearch{}}, zap.NewNop()))

	code, data := call(t, r, http.MethodPost, "/saved-searches", "u1", domain.SavedSearchCreateRequest{
		Name:  "Cheap auctions",
		Query: "listing_type=auction&page=3",
	})
	require.Equal(t, http.StatusCreated, code)
	var saved domain.SavedSearch
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "listing_type=auction&published=true", saved.Query)

	// the same search under another spelling renames the entry
	code, _ = call(t, r, http.MethodPost, "/saved-searches", "u1", domain.SavedSearchCreateRequest{
		Name:  "Auctions",
		Query: "?published=true&listing_type=auction",
	})
	require.Equal(t, http.StatusCreated, code)

	code, data = call(t, r, http.MethodGet, "/saved-searches", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	var list []domain.SavedSearch
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Auctions", list[0].Name)

	code, _ = call(t, r, http.MethodDelete, "/saved-searches/"+saved.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, r, http.MethodDelete, "/saved-searches/"+saved.ID, "u1", nil)
	assert.Equal(t, http.StatusOK, code)

	code, data = call(t, r, http.MethodGet, "/saved-searches", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(data))
}

func TestSavedSearches_NameRequired(t *testing.T) {
	r := setup(t, service.NewService(&memoryRepo{rows: map[string]domain.SavedSearch{}}, zap.NewNop()))
	code, _ := call(t, r, http.MethodPost, "/saved-searches", "u1", map[string]string{"query": "search=x"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSavedSearches_ForgedIdentityRejected(t *testing.T) {
	svc := service.NewService(&memoryRepo{rows: map[string]domain.SavedSearch{}}, zap.NewNop())
	r := setup(t, svc)

	code, _ := call(t, r, http.MethodPost, "/saved-searches", "victim", domain.SavedSearchCreateRequest{
		Name:  "mine",
		Query: "listing_type=auction",
	})
	require.Equal(t, http.StatusCreated, code)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	wrongKey, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, testClaims("victim")).SignedString(otherKey)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
	}{
		{"unsigned", unsignedBearer(t, "victim")},
		{"foreign key", "Bearer " + wrongKey},
		{"garbage signature", unsignedBearer(t, "victim") + "garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := send(t, r, http.MethodGet, "/saved-searches", tt.authorization, nil)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.NotContains(t, string(data), "mine")

			code, _ = send(t, r, http.MethodDelete, "/saved-searches/any", tt.authorization, nil)
			assert.Equal(t, http.StatusUnauthorized, code)
		})
	}
}

func TestSavedSearches_UnverifyingVerifierRejectsEveryToken(t *testing.T) {
	svc := service.NewService(&memoryRepo{rows: map[string]domain.SavedSearch{}}, zap.NewNop())
	r := setupWithVerifier(t, svc, jwt.NewVerifier(nil, "", ""))

	for _, authorization := range []string{bearer(t, "u1"), unsignedBearer(t, "u1")} {
		code, _ := send(t, r, http.MethodGet, "/saved-searches", authorization, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
}
