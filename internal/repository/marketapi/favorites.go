package marketapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"listing-service/internal/pkg/session"

	"go.uber.org/zap"
)

type favoritesData struct {
	CarIDs []int64 `json:"car_ids"`
}

func (c *Client) ListFavoriteIDs(ctx context.Context, cred session.Credential) ([]int64, error) {
	var data favoritesData
	err := c.do(ctx, request{method: http.MethodGet, path: "/favorites", cred: cred}, &data)
	if errors.Is(err, errNoData) {
		c.logger.Warn("favorites response missing car ids", zap.Error(err))
		return []int64{}, nil
	}
	if err != nil {
		return nil, err
	}
	if data.CarIDs == nil {
		return []int64{}, nil
	}
	return data.CarIDs, nil
}

func (c *Client) AddFavorite(ctx context.Context, cred session.Credential, carID int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/favorites",
		body:   map[string]int64{"car_id": carID},
		cred:   cred,
	}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, cred session.Credential, carID int64) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/favorites/" + strconv.FormatInt(carID, 10),
		cred:   cred,
	}, nil)
}
