// internal/handlers/savedsearch/saved_search_handler.go
package savedsearch

import (
	"net/http"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/middleware"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/pkg/response"
	service "listing-service/internal/service/savedsearch"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SavedSearchHandler serves saved searches. A nil service means no database
// is configured and every endpoint answers 503.
type SavedSearchHandler struct {
	service *service.Service
	logger  *zap.Logger
}

func NewSavedSearchHandler(service *service.Service, logger *zap.Logger) *SavedSearchHandler {
	return &SavedSearchHandler{
		service: service,
		logger:  logger,
	}
}

// ListSavedSearches returns the caller's saved searches, newest first
func (h *SavedSearchHandler) ListSavedSearches(c *gin.Context) {
	if h.service == nil {
		response.FromError(c, "saved searches are not available", xerrors.ErrDisabled)
		return
	}

	cred := middleware.MustGetCredential(c)
	searches, err := h.service.List(c.Request.Context(), cred.IdentityID)
	if err != nil {
		h.logger.Error("failed to list saved searches", zap.String("identity_id", cred.IdentityID), zap.Error(err))
		response.FromError(c, "failed to list saved searches", err)
		return
	}

	response.Success(c, http.StatusOK, "saved searches retrieved", searches)
}

// CreateSavedSearch saves an address-bar query under a name
func (h *SavedSearchHandler) CreateSavedSearch(c *gin.Context) {
	if h.service == nil {
		response.FromError(c, "saved searches are not available", xerrors.ErrDisabled)
		return
	}

	var req domain.SavedSearchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	cred := middleware.MustGetCredential(c)
	saved, err := h.service.Save(c.Request.Context(), cred.IdentityID, &req)
	if err != nil {
		response.FromError(c, "failed to save search", err)
		return
	}

	response.Success(c, http.StatusCreated, "search saved", saved)
}

// DeleteSavedSearch removes one of the caller's saved searches
func (h *SavedSearchHandler) DeleteSavedSearch(c *gin.Context) {
	if h.service == nil {
		response.FromError(c, "saved searches are not available", xerrors.ErrDisabled)
		return
	}

	id := c.Param("id")
	if id == "" {
		response.ValidationError(c, "saved search ID is required", nil)
		return
	}

	cred := middleware.MustGetCredential(c)
	if err := h.service.Delete(c.Request.Context(), cred.IdentityID, id); err != nil {
		response.FromError(c, "failed to delete saved search", err)
		return
	}

	response.Success(c, http.StatusOK, "saved search deleted", nil)
}
