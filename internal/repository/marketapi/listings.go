package marketapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	domain "listing-service/internal/domain/listing"
	"listing-service/internal/domain/search"

	"go.uber.org/zap"
)

type carsData struct {
	Cars       []domain.Car       `json:"cars"`
	Pagination *domain.Pagination `json:"pagination"`
}

// FetchListings requests one page of cars. An answer without cars is an
// empty page, not an error.
func (c *Client) FetchListings(ctx context.Context, page, perPage int, q search.CanonicalQuery) (*domain.Page, error) {
	query := q.Values()
	query.Set(search.ParamPage, strconv.Itoa(page))
	query.Set(search.ParamPerPage, strconv.Itoa(perPage))

	var data carsData
	err := c.do(ctx, request{method: http.MethodGet, path: "/cars", query: query}, &data)
	if err != nil && !errors.Is(err, errNoData) {
		return nil, err
	}
	if err != nil || data.Cars == nil {
		c.logger.Warn("listing response missing cars", zap.String("query", query.Encode()), zap.Error(err))
		return &domain.Page{
			Items:      []domain.Car{},
			Pagination: domain.Pagination{Page: page, PerPage: perPage, TotalPages: 1},
		}, nil
	}

	p := domain.Page{Items: data.Cars}
	if data.Pagination != nil {
		p.Pagination = *data.Pagination
	} else {
		c.logger.Warn("listing response missing pagination", zap.String("query", query.Encode()))
		p.Pagination = domain.Pagination{Page: page, PerPage: perPage, TotalPages: page, TotalCount: int64(len(data.Cars))}
	}
	if p.Pagination.Page == 0 {
		p.Pagination.Page = page
	}
	if p.Pagination.PerPage == 0 {
		p.Pagination.PerPage = perPage
	}
	return &p, nil
}
