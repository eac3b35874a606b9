// internal/websocket/handler/view.go
package handlers

import (
	"context"
	"fmt"

	wstypes "listing-service/internal/domain/websocket"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/service/filter"
	ws "listing-service/internal/websocket"

	"go.uber.org/zap"
)

// ViewHandler drives a client's listing view from its messages.
type ViewHandler struct {
	logger *zap.Logger
}

func NewViewHandler(logger *zap.Logger) *ViewHandler {
	return &ViewHandler{logger: logger}
}

// SupportedEvents returns events this handler supports
func (h *ViewHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeFilterSet,
		wstypes.EventTypeFilterToggle,
		wstypes.EventTypeFilterReset,
		wstypes.EventTypeSearch,
		wstypes.EventTypePageNext,
		wstypes.EventTypePagePrev,
		wstypes.EventTypePageGoTo,
		wstypes.EventTypeURLChanged,
		wstypes.EventTypeFavoriteToggle,
		wstypes.EventTypeListingRetry,
		wstypes.EventTypeSuggest,
	}
}

// HandleMessage processes view messages. Filter input that does not fit a
// field is ignored, not reported.
func (h *ViewHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	v := client.View()
	if v == nil {
		return fmt.Errorf("no view attached: %w", xerrors.ErrBadRequest)
	}

	switch msg.Type {
	case wstypes.EventTypeFilterSet:
		var req wstypes.FilterSetRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		v.SetField(filter.Field(req.Field), req.Value)

	case wstypes.EventTypeFilterToggle:
		var req wstypes.FilterToggleRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		v.ToggleOption(filter.Field(req.Field), req.Value)

	case wstypes.EventTypeFilterReset:
		v.ResetFilters()

	case wstypes.EventTypeSearch:
		v.Search()

	case wstypes.EventTypePageNext:
		v.NextPage()

	case wstypes.EventTypePagePrev:
		v.PrevPage()

	case wstypes.EventTypePageGoTo:
		var req wstypes.PageGoToRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		v.GoToPage(req.Page)

	case wstypes.EventTypeURLChanged:
		var req wstypes.URLChangedRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		v.Navigate(req.URL)

	case wstypes.EventTypeFavoriteToggle:
		return h.handleFavoriteToggle(ctx, client, msg)

	case wstypes.EventTypeListingRetry:
		v.Retry()

	case wstypes.EventTypeSuggest:
		var req wstypes.SuggestRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		v.Suggest(req.Query)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
	return nil
}

// handleFavoriteToggle flips a car and confirms the outcome to the caller.
// Other views of the session re-render through the shared overlay.
func (h *ViewHandler) handleFavoriteToggle(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.FavoriteToggleRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	if req.CarID <= 0 {
		return fmt.Errorf("car_id must be positive: %w", xerrors.ErrInvalidInput)
	}

	// runs off the read loop so other events are not held up by the remote call
	go func() {
		favorited, err := client.View().ToggleFavorite(ctx, req.CarID)
		if err != nil {
			h.logger.Warn("favorite toggle failed",
				zap.Int64("car_id", req.CarID),
				zap.String("identity_id", client.Credential().IdentityID),
				zap.Error(err),
			)
			return
		}
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeFavoritesChanged, wstypes.FavoriteChangeData{
			CarID:     req.CarID,
			Favorited: favorited,
		}))
	}()
	return nil
}

func decode(msg *wstypes.WSMessage, target interface{}) error {
	if err := msg.Decode(target); err != nil {
		return fmt.Errorf("%w: %s payload: %v", xerrors.ErrInvalidInput, msg.Type, err)
	}
	return nil
}
