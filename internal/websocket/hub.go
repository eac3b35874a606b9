// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "listing-service/internal/domain/websocket"

	"go.uber.org/zap"
)

// SessionDropper forgets per-session state once a session ends.
type SessionDropper interface {
	Drop(sessionKey string)
}

type Hub struct {
	// Registered clients by session key. Anonymous clients share "".
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	sessions SessionDropper
	logger   *zap.Logger
}

// BroadcastMessage targets the clients of SessionKeys, or every client when
// SessionKeys is nil.
type BroadcastMessage struct {
	SessionKeys []string
	Message     *wstypes.WSMessage
}

func NewHub(sessions SessionDropper, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		done:            make(chan struct{}),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		sessions:        sessions,
		logger:          logger,
	}
}

// RegisterHandler routes the handler's events to it. Conflicting
// registrations are logged and ignored.
func (h *Hub) RegisterHandler(handler MessageHandler) {
	if err := h.handlerRegistry.Register(handler); err != nil {
		h.logger.Error("handler not registered", zap.Error(err))
	}
}

// Events lists the client events the hub can route.
func (h *Hub) Events() []wstypes.EventType {
	return h.handlerRegistry.Events()
}

// HandleClientMessage processes a message from a client using registered
// handlers. It reports whether a handler claimed the event.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.Lookup(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes it.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// SessionExpired tells every client of the session to sign in again and
// drops the session's shared state.
func (h *Hub) SessionExpired(sessionKey, loginURL string) {
	if sessionKey == "" {
		return
	}
	if h.sessions != nil {
		h.sessions.Drop(sessionKey)
	}

	msg := wstypes.NewMessage(wstypes.EventTypeSessionExpired, wstypes.SessionEventData{
		Reason:   "unauthorized",
		Message:  "Your session has expired. Please sign in again.",
		LoginURL: loginURL,
	})
	select {
	case h.broadcast <- &BroadcastMessage{SessionKeys: []string{sessionKey}, Message: msg}:
	default:
		h.logger.Warn("broadcast queue full, delivering session expiry inline")
		h.BroadcastMessage(&BroadcastMessage{SessionKeys: []string{sessionKey}, Message: msg})
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := client.SessionKey()
	if h.clients[key] == nil {
		h.clients[key] = make(map[*Client]bool)
	}
	h.clients[key][client] = true

	h.logger.Info("client connected",
		zap.String("identity_id", client.cred.IdentityID),
		zap.String("view_id", client.ViewID()),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, wstypes.ConnectedData{
		ViewID:        client.ViewID(),
		Authenticated: client.cred.Authenticated(),
		IdentityID:    client.cred.IdentityID,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := client.SessionKey()
	if clients, ok := h.clients[key]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, key)
			}

			h.logger.Info("client disconnected",
				zap.String("identity_id", client.cred.IdentityID),
				zap.String("view_id", client.ViewID()),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.SessionKeys == nil {
		for _, clients := range h.clients {
			for client := range clients {
				client.SendMessage(msg.Message)
			}
		}
		return
	}

	for _, key := range msg.SessionKeys {
		for client := range h.clients[key] {
			client.SendMessage(msg.Message)
		}
	}
}

// ConnectedClients returns the number of clients of a session.
func (h *Hub) ConnectedClients(sessionKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionKey])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
