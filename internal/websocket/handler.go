// internal/websocket/handler.go
package websocket

import (
	"context"
	"fmt"
	"sort"

	wstypes "listing-service/internal/domain/websocket"
)

// MessageHandler serves a set of client events.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// HandlerRegistry routes each event type to exactly one handler. It is
// filled before the hub runs and read-only afterwards.
type HandlerRegistry struct {
	routes map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{routes: make(map[wstypes.EventType]MessageHandler)}
}

// Register routes the handler's events to it. An event already owned by
// another handler is a wiring mistake; nothing is registered in that case.
func (r *HandlerRegistry) Register(handler MessageHandler) error {
	events := handler.SupportedEvents()
	for _, ev := range events {
		if owner, taken := r.routes[ev]; taken && owner != handler {
			return fmt.Errorf("event %q already has a handler", ev)
		}
	}
	for _, ev := range events {
		r.routes[ev] = handler
	}
	return nil
}

func (r *HandlerRegistry) Lookup(ev wstypes.EventType) (MessageHandler, bool) {
	handler, ok := r.routes[ev]
	return handler, ok
}

// Events lists the routed event types in name order.
func (r *HandlerRegistry) Events() []wstypes.EventType {
	events := make([]wstypes.EventType, 0, len(r.routes))
	for ev := range r.routes {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}
