package search

import (
	"net/url"
	"strconv"
	"strings"
)

// Range is an optional numeric interval. Bounds are not checked against each
// other.
type Range struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// FilterState holds the raw values of the search/listing filter form.
type FilterState struct {
	TextQuery    string        `json:"text_query,omitempty"`
	SearchBy     SearchBy      `json:"search_by,omitempty"`
	ListingTypes []ListingType `json:"listing_types,omitempty"`
	PriceRange   Range         `json:"price_range"`
	YearRange    Range         `json:"year_range"`
	BudgetBucket BudgetBucket  `json:"budget_bucket,omitempty"`
	Location     Location      `json:"location,omitempty"`
	Currency     Currency      `json:"currency,omitempty"`
	BrandID      *int64        `json:"brand_id,omitempty"`
	ModelID      *int64        `json:"model_id,omitempty"`
	Transmission Transmission  `json:"transmission,omitempty"`
	Propulsion   Propulsion    `json:"propulsion,omitempty"`
	FuelTypes    []FuelType    `json:"fuel_types,omitempty"`
	Condition    Condition     `json:"condition,omitempty"`
	CarType      CarType       `json:"car_type,omitempty"`
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	c := s
	c.ListingTypes = append([]ListingType(nil), s.ListingTypes...)
	c.FuelTypes = append([]FuelType(nil), s.FuelTypes...)
	c.PriceRange = Range{Min: copyInt(s.PriceRange.Min), Max: copyInt(s.PriceRange.Max)}
	c.YearRange = Range{Min: copyInt(s.YearRange.Min), Max: copyInt(s.YearRange.Max)}
	c.BrandID = copyInt(s.BrandID)
	c.ModelID = copyInt(s.ModelID)
	if len(c.ListingTypes) == 0 {
		c.ListingTypes = nil
	}
	if len(c.FuelTypes) == 0 {
		c.FuelTypes = nil
	}
	return c
}

// Backend parameter names. They double as address-bar parameter names.
const (
	ParamPublished    = "published"
	ParamSearch       = "search"
	ParamSearchBy     = "search_by"
	ParamListingType  = "listing_type"
	ParamMinPrice     = "min_price"
	ParamMaxPrice     = "max_price"
	ParamMinYOM       = "min_yom"
	ParamMaxYOM       = "max_yom"
	ParamLocation     = "location"
	ParamCurrency     = "currency"
	ParamBrandID      = "brand_id"
	ParamModelID      = "model_id"
	ParamTransmission = "transmission"
	ParamPropulsion   = "propulsion"
	ParamFuelType     = "fuel_type"
	ParamCondition    = "condition"
	ParamCarType      = "car_type"
	ParamPage         = "page"
	ParamPerPage      = "per_page"
)

// CanonicalQuery is the normalized, backend-facing form of a FilterState.
// Zero values mean "absent"; Published is always true for public listings.
type CanonicalQuery struct {
	Published    bool   `json:"published"`
	Search       string `json:"search,omitempty"`
	SearchBy     string `json:"search_by,omitempty"`
	ListingType  string `json:"listing_type,omitempty"`
	MinPrice     *int64 `json:"min_price,omitempty"`
	MaxPrice     *int64 `json:"max_price,omitempty"`
	MinYOM       *int64 `json:"min_yom,omitempty"`
	MaxYOM       *int64 `json:"max_yom,omitempty"`
	Location     string `json:"location,omitempty"`
	Currency     string `json:"currency,omitempty"`
	BrandID      *int64 `json:"brand_id,omitempty"`
	ModelID      *int64 `json:"model_id,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Propulsion   string `json:"propulsion,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"`
	Condition    string `json:"condition,omitempty"`
	CarType      string `json:"car_type,omitempty"`
}

// Values encodes the query with one entry per present field.
func (q CanonicalQuery) Values() url.Values {
	v := url.Values{}
	if q.Published {
		v.Set(ParamPublished, "true")
	}
	setString(v, ParamSearch, q.Search)
	setString(v, ParamSearchBy, q.SearchBy)
	setString(v, ParamListingType, q.ListingType)
	setInt(v, ParamMinPrice, q.MinPrice)
	setInt(v, ParamMaxPrice, q.MaxPrice)
	setInt(v, ParamMinYOM, q.MinYOM)
	setInt(v, ParamMaxYOM, q.MaxYOM)
	setString(v, ParamLocation, q.Location)
	setString(v, ParamCurrency, q.Currency)
	setInt(v, ParamBrandID, q.BrandID)
	setInt(v, ParamModelID, q.ModelID)
	setString(v, ParamTransmission, q.Transmission)
	setString(v, ParamPropulsion, q.Propulsion)
	setString(v, ParamFuelType, q.FuelType)
	setString(v, ParamCondition, q.Condition)
	setString(v, ParamCarType, q.CarType)
	return v
}

// Key is the structural identity of the query. Equal queries have equal keys.
func (q CanonicalQuery) Key() string {
	// url.Values.Encode sorts by parameter name
	return q.Values().Encode()
}

func (q CanonicalQuery) Equal(other CanonicalQuery) bool {
	return q.Key() == other.Key()
}

// Len counts the present fields, including published.
func (q CanonicalQuery) Len() int {
	return len(q.Values())
}

func setString(v url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value *int64) {
	if value != nil {
		v.Set(key, strconv.FormatInt(*value, 10))
	}
}
