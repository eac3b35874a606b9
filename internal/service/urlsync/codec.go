package urlsync

import (
	"net/url"
	"strconv"
	"strings"

	"listing-service/internal/domain/search"

	"github.com/gorilla/schema"
)

// addressQuery mirrors the address-bar parameters. Every field is decoded as
// text so a malformed number drops only that parameter.
type addressQuery struct {
	Search       string `schema:"search"`
	SearchBy     string `schema:"search_by"`
	ListingType  string `schema:"listing_type"`
	MinPrice     string `schema:"min_price"`
	MaxPrice     string `schema:"max_price"`
	MinYOM       string `schema:"min_yom"`
	MaxYOM       string `schema:"max_yom"`
	Location     string `schema:"location"`
	Currency     string `schema:"currency"`
	BrandID      string `schema:"brand_id"`
	ModelID      string `schema:"model_id"`
	Transmission string `schema:"transmission"`
	Propulsion   string `schema:"propulsion"`
	FuelType     string `schema:"fuel_type"`
	Condition    string `schema:"condition"`
	CarType      string `schema:"car_type"`
	Page         string `schema:"page"`
	PerPage      string `schema:"per_page"`
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// Encode renders the address-bar query string for q at page.
func Encode(q search.CanonicalQuery, page int) string {
	v := q.Values()
	if page < 1 {
		page = 1
	}
	v.Set(search.ParamPage, strconv.Itoa(page))
	return v.Encode()
}

// Decoded is an address-bar query split into its parts.
type Decoded struct {
	Query   search.CanonicalQuery
	Page    int
	PerPage int
}

// Decode parses an address-bar query string. Malformed numbers are treated
// as absent, a missing or invalid page is 1 and a missing per_page is 0.
// The result is always a public query.
func Decode(raw string) (Decoded, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Decoded{Query: search.CanonicalQuery{Published: true}, Page: 1}, err
	}
	return DecodeValues(values)
}

// DecodeValues is Decode for already parsed parameters.
func DecodeValues(values url.Values) (Decoded, error) {
	var a addressQuery
	if err := decoder.Decode(&a, values); err != nil {
		return Decoded{Query: search.CanonicalQuery{Published: true}, Page: 1}, err
	}

	q := search.CanonicalQuery{
		Published:    true,
		Search:       strings.TrimSpace(a.Search),
		SearchBy:     strings.TrimSpace(a.SearchBy),
		ListingType:  strings.TrimSpace(a.ListingType),
		MinPrice:     number(a.MinPrice),
		MaxPrice:     number(a.MaxPrice),
		MinYOM:       number(a.MinYOM),
		MaxYOM:       number(a.MaxYOM),
		Location:     strings.TrimSpace(a.Location),
		Currency:     strings.TrimSpace(a.Currency),
		BrandID:      number(a.BrandID),
		ModelID:      number(a.ModelID),
		Transmission: strings.TrimSpace(a.Transmission),
		Propulsion:   strings.TrimSpace(a.Propulsion),
		FuelType:     strings.TrimSpace(a.FuelType),
		Condition:    strings.TrimSpace(a.Condition),
		CarType:      strings.TrimSpace(a.CarType),
	}

	d := Decoded{Query: q, Page: 1}
	if p := number(a.Page); p != nil && *p >= 1 {
		d.Page = int(*p)
	}
	if pp := number(a.PerPage); pp != nil && *pp >= 1 {
		d.PerPage = int(*pp)
	}
	return d, nil
}

func number(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
