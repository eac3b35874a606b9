package listing

import "time"

// Car is one listing row as returned by the marketplace API.
type Car struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	BrandID      int64      `json:"brand_id"`
	Brand        string     `json:"brand"`
	ModelID      int64      `json:"model_id"`
	Model        string     `json:"model"`
	YOM          int        `json:"yom"`
	Price        int64      `json:"price"`
	Currency     string     `json:"currency"`
	ListingType  string     `json:"listing_type"`
	Location     string     `json:"location"`
	Mileage      *int64     `json:"mileage,omitempty"`
	Registration string     `json:"registration,omitempty"`
	Transmission string     `json:"transmission,omitempty"`
	Propulsion   string     `json:"propulsion,omitempty"`
	FuelType     string     `json:"fuel_type,omitempty"`
	Condition    string     `json:"condition,omitempty"`
	CarType      string     `json:"car_type,omitempty"`
	CoverImage   *string    `json:"cover_image,omitempty"`
	Images       []string   `json:"images,omitempty"`
	Published    bool       `json:"published"`
	AuctionEndAt *time.Time `json:"auction_end_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Pagination is the paging metadata of a ListingPage.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalCount int64 `json:"total_count"`
}

// Page is one fetched page of cars. Pages are never mutated after they are
// received; a new page or query produces a new Page.
type Page struct {
	Items      []Car      `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Brand is a car make.
type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Model belongs to exactly one brand.
type Model struct {
	ID      int64  `json:"id"`
	BrandID int64  `json:"brand_id"`
	Name    string `json:"name"`
}

// SavedSearch is a named canonical query kept for a user.
type SavedSearch struct {
	ID         string    `json:"id" db:"id"`
	IdentityID string    `json:"identity_id" db:"identity_id"`
	Name       string    `json:"name" db:"name"`
	Query      string    `json:"query" db:"query"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
