package listing

import "listing-service/internal/domain/search"

// Row is a Car as rendered: the favorites overlay is merged at render time.
type Row struct {
	Car
	Favorited bool `json:"favorited"`
}

// ListResponse is returned by the stateless listing endpoint.
type ListResponse struct {
	Query      search.CanonicalQuery `json:"query"`
	URL        string                `json:"url"`
	Rows       []Row                 `json:"rows"`
	Pagination Pagination            `json:"pagination"`
}

// NormalizeResponse is returned when a FilterState is normalized on demand.
type NormalizeResponse struct {
	Query search.CanonicalQuery `json:"query"`
	URL   string                `json:"url"`
}

// SavedSearchCreateRequest creates a saved search from an address-bar query.
type SavedSearchCreateRequest struct {
	Name  string `json:"name" binding:"required,max=120"`
	Query string `json:"query"`
}

// FavoriteToggleResponse reports the membership after a toggle.
type FavoriteToggleResponse struct {
	CarID     int64 `json:"car_id"`
	Favorited bool  `json:"favorited"`
}
