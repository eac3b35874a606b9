// internal/app/router.go
package app

import (
	"net/http"
	"time"

	favoritesHandler "listing-service/internal/handlers/favorites"
	listingHandler "listing-service/internal/handlers/listing"
	lookupHandler "listing-service/internal/handlers/lookup"
	savedSearchHandler "listing-service/internal/handlers/savedsearch"
	wsHandler "listing-service/internal/handlers/websocket"
	"listing-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	ListingHandler     *listingHandler.ListingHandler
	FavoritesHandler   *favoritesHandler.FavoritesHandler
	LookupHandler      *lookupHandler.LookupHandler
	SavedSearchHandler *savedSearchHandler.SavedSearchHandler
	WSHandler          *wsHandler.WebSocketHandler
	AuthMiddleware     *middleware.AuthMiddleware
	RateLimiter        *middleware.RateLimiter

	SuggestLimit  int64
	SuggestWindow time.Duration
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)
	api.GET("/ws/stats", h.WSHandler.GetStats)

	// ==================== Listings ====================
	api.GET("/listings", h.AuthMiddleware.OptionalAuth(), h.ListingHandler.ListListings)
	api.POST("/filters/normalize", h.ListingHandler.NormalizeFilters)

	// ==================== Catalog ====================
	api.GET("/brands", h.LookupHandler.ListBrands)
	api.GET("/brands/:id/models", h.LookupHandler.ListModels)
	api.GET("/suggestions",
		h.AuthMiddleware.OptionalAuth(),
		h.RateLimiter.Limit("suggest", h.SuggestLimit, h.SuggestWindow),
		h.LookupHandler.Suggest,
	)

	// ==================== Favorites ====================
	favorites := api.Group("/favorites")
	favorites.Use(h.AuthMiddleware.Auth())
	{
		favorites.GET("", h.FavoritesHandler.ListFavorites)
		favorites.POST("/:car_id", h.FavoritesHandler.AddFavorite)
		favorites.DELETE("/:car_id", h.FavoritesHandler.RemoveFavorite)
	}

	// ==================== Saved Searches ====================
	saved := api.Group("/saved-searches")
	saved.Use(h.AuthMiddleware.VerifiedAuth())
	{
		saved.GET("", h.SavedSearchHandler.ListSavedSearches)
		saved.POST("", h.SavedSearchHandler.CreateSavedSearch)
		saved.DELETE("/:id", h.SavedSearchHandler.DeleteSavedSearch)
	}

	logger.Info("routes registered", zap.Int("count", len(r.Routes())))
}
