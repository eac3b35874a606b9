// internal/handlers/listing/listing_handler.go
package listing

import (
	"net/http"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"
	"listing-service/internal/middleware"
	"listing-service/internal/pkg/response"
	"listing-service/internal/service/favorites"
	"listing-service/internal/service/filter"
	service "listing-service/internal/service/listing"
	"listing-service/internal/service/urlsync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxPerPage bounds the per_page a caller may ask for.
const MaxPerPage = 100

type ListingHandler struct {
	fetcher   service.PageFetcher
	favorites *favorites.Registry
	perPage   int
	logger    *zap.Logger
}

func NewListingHandler(fetcher service.PageFetcher, favorites *favorites.Registry, perPage int, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		fetcher:   fetcher,
		favorites: favorites,
		perPage:   perPage,
		logger:    logger,
	}
}

// ListListings returns one page for an address-bar query string. The query
// is normalized the same way the filter form is, so equivalent addresses
// share a cache entry.
func (h *ListingHandler) ListListings(c *gin.Context) {
	d, err := urlsync.DecodeValues(c.Request.URL.Query())
	if err != nil {
		h.logger.Debug("ignoring malformed listing query", zap.Error(err))
	}
	q := filter.Normalize(filter.Denormalize(d.Query))

	perPage := h.perPage
	if d.PerPage > 0 {
		perPage = min(d.PerPage, MaxPerPage)
	}

	ctx := c.Request.Context()
	page, err := h.fetcher.Fetch(ctx, service.Key{Page: d.Page, PerPage: perPage, Query: q})
	if err != nil {
		h.logger.Warn("listing fetch failed", zap.Error(err))
		response.FromError(c, "failed to load listings", err)
		return
	}

	overlay := h.favorites.For(middleware.GetCredential(c))
	if err := overlay.Load(ctx); err != nil {
		// listings are still served, without favorite flags
		h.logger.Warn("favorites unavailable", zap.Error(err))
	}

	response.Success(c, http.StatusOK, "listings retrieved", domain.ListResponse{
		Query:      q,
		URL:        urlsync.Encode(q, d.Page),
		Rows:       overlay.Merge(page.Items),
		Pagination: page.Pagination,
	})
}

// NormalizeFilters turns a filter form into its canonical query and the
// address-bar query string for page 1.
func (h *ListingHandler) NormalizeFilters(c *gin.Context) {
	var st search.FilterState
	if err := c.ShouldBindJSON(&st); err != nil {
		response.ValidationError(c, "invalid filter state", err)
		return
	}

	q := filter.Normalize(st)
	response.Success(c, http.StatusOK, "filters normalized", domain.NormalizeResponse{
		Query: q,
		URL:   urlsync.Encode(q, 1),
	})
}
