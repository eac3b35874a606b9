// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"slices"
	"time"

	"listing-service/internal/middleware"
	"listing-service/internal/pkg/response"
	"listing-service/internal/pkg/session"
	"listing-service/internal/service/favorites"
	"listing-service/internal/service/listing"
	"listing-service/internal/service/lookup"
	"listing-service/internal/service/view"
	ws "listing-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ViewDeps is what every connection's view is built from.
type ViewDeps struct {
	Fetcher     listing.PageFetcher
	Favorites   *favorites.Registry
	Models      lookup.ModelSource
	Suggestions lookup.SuggestSource
	Config      view.Config
}

type WebSocketHandler struct {
	hub      *ws.Hub
	auth     *middleware.AuthMiddleware
	deps     ViewDeps
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from origins, or from any origin when
// origins is empty or contains "*".
func NewWebSocketHandler(hub *ws.Hub, auth *middleware.AuthMiddleware, deps ViewDeps, origins []string, logger *zap.Logger) *WebSocketHandler {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")
	return &WebSocketHandler{
		hub:  hub,
		auth: auth,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(origins, origin)
			},
		},
		logger: logger,
	}
}

// HandleConnection opens a listing view over a websocket. Anonymous
// visitors are accepted; a supplied token must be valid. The url query
// parameter seeds the view with the page's current address-bar query.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	var cred session.Credential
	if token := middleware.ExtractToken(c); token != "" {
		var err error
		cred, err = h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.logger.Warn("websocket authentication failed",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			response.Error(c, http.StatusUnauthorized, "authentication failed", err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	logger := h.logger.With(zap.String("identity_id", cred.IdentityID))
	client := ws.NewClient(h.hub, conn, cred, logger)
	v := view.New(client.Context(), view.Deps{
		Fetcher:     h.deps.Fetcher,
		Favorites:   h.deps.Favorites.For(cred),
		Models:      h.deps.Models,
		Suggestions: h.deps.Suggestions,
		Logger:      logger,
	}, client, h.deps.Config)
	client.Attach(v)

	if !h.hub.Register(client) {
		client.Close()
		conn.Close()
		return
	}

	v.Navigate(c.Query("url"))

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns websocket connection statistics
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
		"events":            h.hub.Events(),
		"timestamp":         time.Now(),
	})
}
