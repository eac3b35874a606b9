// internal/handlers/favorites/favorites_handler.go
package favorites

import (
	"net/http"
	"strconv"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/middleware"
	"listing-service/internal/pkg/response"
	service "listing-service/internal/service/favorites"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FavoritesHandler serves the favorites of the authenticated session. It
// goes through the same overlay as the session's websocket views, so a
// change made here re-renders them.
type FavoritesHandler struct {
	registry *service.Registry
	logger   *zap.Logger
}

func NewFavoritesHandler(registry *service.Registry, logger *zap.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		registry: registry,
		logger:   logger,
	}
}

// ListFavorites returns the favorited car ids
func (h *FavoritesHandler) ListFavorites(c *gin.Context) {
	overlay := h.registry.For(middleware.MustGetCredential(c))
	if err := overlay.Load(c.Request.Context()); err != nil {
		response.FromError(c, "failed to load favorites", err)
		return
	}

	response.Success(c, http.StatusOK, "favorites retrieved", gin.H{"car_ids": overlay.IDs()})
}

// AddFavorite favorites a car. Adding a favorited car succeeds.
func (h *FavoritesHandler) AddFavorite(c *gin.Context) {
	h.set(c, true)
}

// RemoveFavorite unfavorites a car. Removing a car that is not a favorite
// succeeds.
func (h *FavoritesHandler) RemoveFavorite(c *gin.Context) {
	h.set(c, false)
}

func (h *FavoritesHandler) set(c *gin.Context, on bool) {
	carID, err := strconv.ParseInt(c.Param("car_id"), 10, 64)
	if err != nil || carID <= 0 {
		response.ValidationError(c, "invalid car ID", err)
		return
	}

	ctx := c.Request.Context()
	overlay := h.registry.For(middleware.MustGetCredential(c))
	if err := overlay.Load(ctx); err != nil {
		response.FromError(c, "failed to load favorites", err)
		return
	}
	if err := overlay.Set(ctx, carID, on); err != nil {
		response.FromError(c, "failed to update favorite", err)
		return
	}

	response.Success(c, http.StatusOK, "favorite updated", domain.FavoriteToggleResponse{
		CarID:     carID,
		Favorited: on,
	})
}
