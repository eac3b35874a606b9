// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents the listing view events exchanged over a connection
type EventType string

const (
	// Connection events
	EventTypePing      EventType = "ping"
	EventTypePong      EventType = "pong"
	EventTypeConnected EventType = "connected"
	EventTypeError     EventType = "error"

	// Filter form events (client -> server)
	EventTypeFilterSet    EventType = "filter:set"
	EventTypeFilterToggle EventType = "filter:toggle"
	EventTypeFilterReset  EventType = "filter:reset"
	EventTypeSearch       EventType = "search"

	// Pagination events (client -> server)
	EventTypePageNext EventType = "page:next"
	EventTypePagePrev EventType = "page:prev"
	EventTypePageGoTo EventType = "page:goto"

	EventTypeURLChanged     EventType = "url:changed"
	EventTypeFavoriteToggle EventType = "favorite:toggle"
	EventTypeListingRetry   EventType = "listing:retry"
	EventTypeSuggest        EventType = "suggest"

	// View events (server -> client)
	EventTypeViewState        EventType = "view:state"
	EventTypeURLReplace       EventType = "url:replace"
	EventTypeSuggestions      EventType = "suggestions"
	EventTypeBrandModels      EventType = "brand:models"
	EventTypeToast            EventType = "toast"
	EventTypeFavoritesChanged EventType = "favorites:changed"

	// Session events
	EventTypeSessionExpired EventType = "session:expired"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	ID        string          `json:"id,omitempty"`
}

// FilterSetRequest edits one form field. An empty value clears it.
type FilterSetRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// FilterToggleRequest flips one option of a multi-select field.
type FilterToggleRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type PageGoToRequest struct {
	Page int `json:"page"`
}

// URLChangedRequest carries the address-bar query after back/forward
// navigation or an opened link.
type URLChangedRequest struct {
	URL string `json:"url"`
}

type FavoriteToggleRequest struct {
	CarID int64 `json:"car_id"`
}

type SuggestRequest struct {
	Query string `json:"query"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type URLReplaceData struct {
	URL string `json:"url"`
}

type ToastData struct {
	Message string `json:"message"`
}

type FavoriteChangeData struct {
	CarID     int64 `json:"car_id"`
	Favorited bool  `json:"favorited"`
}

// SessionEventData tells a client its credential is no longer accepted.
type SessionEventData struct {
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	LoginURL string `json:"login_url"`
}

type ConnectedData struct {
	ViewID        string `json:"view_id"`
	Authenticated bool   `json:"authenticated"`
	IdentityID    string `json:"identity_id,omitempty"`
}

// NewMessage builds a message. Data that cannot be encoded is dropped.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	msg := &WSMessage{
		Type:      eventType,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			msg.Data = raw
		}
	}
	return msg
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals the message payload into target.
func (m *WSMessage) Decode(target interface{}) error {
	if len(m.Data) == 0 {
		return json.Unmarshal([]byte("{}"), target)
	}
	return json.Unmarshal(m.Data, target)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
