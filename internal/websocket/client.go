// internal/websocket/client.go
package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	wstypes "listing-service/internal/domain/websocket"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/pkg/session"
	"listing-service/internal/service/lookup"
	"listing-service/internal/service/view"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one browser connection driving one listing view. It is the
// view's sink: every render, URL replace and toast is pushed as a message.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	cred   session.Credential
	logger *zap.Logger

	mu     sync.Mutex
	view   *view.View
	closed bool

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn, cred session.Credential, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		cred:   cred,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Attach binds the view the client drives. It must be called before the
// client is registered.
func (c *Client) Attach(v *view.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

func (c *Client) View() *view.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Client) ViewID() string {
	if v := c.View(); v != nil {
		return v.ID()
	}
	return ""
}

func (c *Client) Credential() session.Credential {
	return c.cred
}

// SessionKey groups the clients of one credential.
func (c *Client) SessionKey() string {
	return c.cred.Key()
}

// Context is cancelled when the client closes.
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) ReplaceURL(rawQuery string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeURLReplace, wstypes.URLReplaceData{URL: rawQuery}))
}

func (c *Client) Render(snap view.Snapshot) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeViewState, snap))
}

func (c *Client) Models(r lookup.ModelResult) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeBrandModels, r))
}

func (c *Client) Suggestions(r lookup.SuggestResult) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeSuggestions, r))
}

func (c *Client) Toast(message string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeToast, wstypes.ToastData{Message: message}))
}

// ReadPump handles incoming messages from client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		if c.ctx.Err() != nil {
			return
		}

		c.handleMessage(message)
	}
}

// WritePump handles outgoing messages to client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from client
func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.SendError("invalid_message", "Failed to parse message", err.Error())
		return
	}

	handled, err := c.hub.HandleClientMessage(c.ctx, c, msg)
	if err != nil {
		c.SendError(errorCode(err), "Failed to process message", err.Error())
		return
	}
	if handled {
		return
	}

	switch msg.Type {
	case wstypes.EventTypePing:
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypePong, nil))
	default:
		c.SendError("unsupported_event", "Unsupported event", string(msg.Type))
	}
}

// SendMessage queues a message. A client that cannot keep up is closed.
func (c *Client) SendMessage(msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		c.logger.Error("failed to marshal message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping client", zap.String("type", string(msg.Type)))
		c.cancel()
	}
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message, details string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
		Details: details,
	}))
}

// Close stops the client and its view. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	v := c.view
	c.mu.Unlock()

	c.cancel()
	if v != nil {
		v.Close()
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, xerrors.ErrInvalidInput):
		return "invalid_request"
	case xerrors.IsAuth(err):
		return "unauthorized"
	default:
		return "handler_error"
	}
}
