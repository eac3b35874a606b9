package filter

import (
	"strings"

	"listing-service/internal/domain/search"
)

// MinYear is the oldest year of manufacture the filters accept.
const MinYear = 1900

// Normalize converts raw filter state into its canonical backend query.
// It never fails: values that cannot be expressed are left out.
func Normalize(s search.FilterState) search.CanonicalQuery {
	q := search.CanonicalQuery{Published: true}

	q.Search = strings.TrimSpace(s.TextQuery)
	if q.Search != "" && s.SearchBy.Valid() {
		q.SearchBy = string(s.SearchBy)
	}

	q.ListingType = joinSet(s.ListingTypes, search.ListingTypeValues)
	q.FuelType = joinSet(s.FuelTypes, search.FuelTypeValues)

	// a selected bucket replaces both bounds, open brackets included
	if bracket, ok := s.BudgetBucket.Resolve(); ok {
		q.MinPrice, q.MaxPrice = bracket.Min, bracket.Max
	} else {
		q.MinPrice = nonNegative(s.PriceRange.Min)
		q.MaxPrice = nonNegative(s.PriceRange.Max)
	}

	q.MinYOM = year(s.YearRange.Min)
	q.MaxYOM = year(s.YearRange.Max)

	q.Location = search.LocationCodes[s.Location]
	if s.Currency.Valid() {
		q.Currency = string(s.Currency)
	}

	if id := positive(s.BrandID); id != nil {
		q.BrandID = id
		q.ModelID = positive(s.ModelID)
	}

	if s.Transmission.Valid() {
		q.Transmission = string(s.Transmission)
	}
	if s.Propulsion.Valid() {
		q.Propulsion = string(s.Propulsion)
	}
	if s.Condition.Valid() {
		q.Condition = string(s.Condition)
	}
	if s.CarType.Valid() {
		q.CarType = string(s.CarType)
	}

	return q
}

func joinSet[T ~string](set []T, declared []T) string {
	sorted := search.SortSet(set, declared)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}

func splitSet[T ~string](raw string, declared []T) []T {
	if raw == "" {
		return nil
	}
	var out []T
	for _, p := range strings.Split(raw, ",") {
		out = append(out, T(strings.TrimSpace(p)))
	}
	return search.SortSet(out, declared)
}

func nonNegative(p *int64) *int64 {
	if p == nil || *p < 0 {
		return nil
	}
	v := *p
	return &v
}

func positive(p *int64) *int64 {
	if p == nil || *p <= 0 {
		return nil
	}
	v := *p
	return &v
}

func year(p *int64) *int64 {
	if p == nil || *p < MinYear {
		return nil
	}
	v := *p
	return &v
}
