// internal/handlers/lookup/lookup_handler.go
package lookup

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"listing-service/internal/pkg/response"
	service "listing-service/internal/service/lookup"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LookupHandler struct {
	catalog *service.Catalog
	logger  *zap.Logger
}

func NewLookupHandler(catalog *service.Catalog, logger *zap.Logger) *LookupHandler {
	return &LookupHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListBrands returns every brand
func (h *LookupHandler) ListBrands(c *gin.Context) {
	brands, err := h.catalog.Brands(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load brands", err)
		return
	}

	response.Success(c, http.StatusOK, "brands retrieved", brands)
}

// ListModels returns the models of one brand
func (h *LookupHandler) ListModels(c *gin.Context) {
	brandID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || brandID <= 0 {
		response.ValidationError(c, "invalid brand ID", err)
		return
	}

	models, err := h.catalog.Models(c.Request.Context(), brandID)
	if err != nil {
		response.FromError(c, "failed to load models", err)
		return
	}

	response.Success(c, http.StatusOK, "models retrieved", models)
}

// Suggest returns search suggestions. Input shorter than the minimum
// length returns nothing without asking the marketplace.
func (h *LookupHandler) Suggest(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(q) < service.MinSuggestLength {
		response.Success(c, http.StatusOK, "suggestions retrieved", []string{})
		return
	}

	suggestions, err := h.catalog.Suggest(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, "failed to load suggestions", err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	response.Success(c, http.StatusOK, "suggestions retrieved", suggestions)
}
