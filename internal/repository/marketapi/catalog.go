package marketapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	domain "listing-service/internal/domain/listing"

	"go.uber.org/zap"
)

type brandsData struct {
	Brands []domain.Brand `json:"brands"`
}

type modelsData struct {
	Models []domain.Model `json:"models"`
}

type suggestionsData struct {
	Suggestions []string `json:"suggestions"`
}

func (c *Client) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	var data brandsData
	if err := c.do(ctx, request{method: http.MethodGet, path: "/brands"}, &data); err != nil {
		if !errors.Is(err, errNoData) {
			return nil, err
		}
		c.logger.Warn("brands response missing data", zap.Error(err))
	}
	if data.Brands == nil {
		return []domain.Brand{}, nil
	}
	return data.Brands, nil
}

func (c *Client) ListModels(ctx context.Context, brandID int64) ([]domain.Model, error) {
	var data modelsData
	path := "/brands/" + strconv.FormatInt(brandID, 10) + "/models"
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &data); err != nil {
		if !errors.Is(err, errNoData) {
			return nil, err
		}
		c.logger.Warn("models response missing data", zap.Int64("brand_id", brandID), zap.Error(err))
	}
	if data.Models == nil {
		return []domain.Model{}, nil
	}
	for i := range data.Models {
		if data.Models[i].BrandID == 0 {
			data.Models[i].BrandID = brandID
		}
	}
	return data.Models, nil
}

func (c *Client) Suggest(ctx context.Context, q string) ([]string, error) {
	var data suggestionsData
	query := url.Values{"q": {q}}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/cars/suggestions", query: query}, &data); err != nil {
		if !errors.Is(err, errNoData) {
			return nil, err
		}
		c.logger.Warn("suggestions response missing data", zap.Error(err))
	}
	if data.Suggestions == nil {
		return []string{}, nil
	}
	return data.Suggestions, nil
}
