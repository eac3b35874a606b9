package filter

import (
	"testing"

	"listing-service/internal/domain/search"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_EmptyStateCollapses(t *testing.T) {
	q := Normalize(search.FilterState{})
	assert.Equal(t, search.CanonicalQuery{Published: true}, q)
	assert.Equal(t, "published=true", q.Key())
}

func TestNormalize_BucketOverridesManualRange(t *testing.T) {
	s := newStore()
	s.SetField(FieldMinPrice, "100")
	s.SetField(FieldMaxPrice, "200")
	s.SetField(FieldBudget, "500K - 1M")

	q := Normalize(s.Snapshot())
	assert.Equal(t, ptr(500_000), q.MinPrice)
	assert.Equal(t, ptr(1_000_000), q.MaxPrice)
}

func TestNormalize_OpenBracketClearsOppositeBound(t *testing.T) {
	q := Normalize(search.FilterState{
		PriceRange:   search.Range{Min: ptr(100), Max: ptr(200)},
		BudgetBucket: search.BudgetAbove10M,
	})
	assert.Equal(t, ptr(10_000_000), q.MinPrice)
	assert.Nil(t, q.MaxPrice)
}

func TestNormalize_AuctionScenario(t *testing.T) {
	s := newStore()
	s.Toggle(FieldListingType, "auction")
	s.SetField(FieldMinYear, "2018")
	s.SetField(FieldMaxYear, "2022")

	q := Normalize(s.Snapshot())
	assert.Equal(t, search.CanonicalQuery{
		Published:   true,
		ListingType: "auction",
		MinYOM:      ptr(2018),
		MaxYOM:      ptr(2022),
	}, q)
	assert.Equal(t, 4, q.Len())
}

func TestNormalize_Location(t *testing.T) {
	tests := []struct {
		label search.Location
		want  string
	}{
		{search.LocationKenya, "Kenya"},
		{search.LocationInternational, "International"},
		{search.LocationBoth, ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			q := Normalize(search.FilterState{Location: tt.label})
			assert.Equal(t, tt.want, q.Location)
			_, present := q.Values()[search.ParamLocation]
			assert.Equal(t, tt.want != "", present)
		})
	}
}

func TestNormalize_DropsEmptyAndSentinelValues(t *testing.T) {
	q := Normalize(search.FilterState{
		TextQuery:    "   ",
		SearchBy:     search.SearchByName,
		ListingTypes: []search.ListingType{},
		Location:     search.LocationBoth,
		Currency:     "EUR",
		ModelID:      ptr(7),
		BudgetBucket: "Free",
		YearRange:    search.Range{Min: ptr(0)},
	})
	assert.Equal(t, search.CanonicalQuery{Published: true}, q)

	for key, values := range q.Values() {
		for _, v := range values {
			assert.NotEmpty(t, v, key)
		}
	}
}

func TestNormalize_SetsEncodedInDeclaredOrder(t *testing.T) {
	a := Normalize(search.FilterState{
		ListingTypes: []search.ListingType{search.ListingAuction, search.ListingSale},
		FuelTypes:    []search.FuelType{search.FuelElectric, search.FuelPetrol, search.FuelPetrol},
	})
	b := Normalize(search.FilterState{
		ListingTypes: []search.ListingType{search.ListingSale, search.ListingAuction},
		FuelTypes:    []search.FuelType{search.FuelPetrol, search.FuelElectric},
	})

	assert.Equal(t, "sale,auction", a.ListingType)
	assert.Equal(t, "petrol,electric", a.FuelType)
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))
}

func TestNormalize_Deterministic(t *testing.T) {
	st := search.FilterState{
		TextQuery:    "Harrier",
		SearchBy:     search.SearchByModel,
		ListingTypes: []search.ListingType{search.ListingHire},
		Currency:     search.CurrencyKES,
		BrandID:      ptr(4),
		ModelID:      ptr(11),
		Transmission: search.TransmissionAutomatic,
	}
	assert.Equal(t, Normalize(st), Normalize(st))
	assert.Equal(t, Normalize(st).Key(), Normalize(st.Clone()).Key())
}

func TestNormalize_RoundTripIsIdempotent(t *testing.T) {
	states := []search.FilterState{
		{},
		{TextQuery: "probox", SearchBy: search.SearchByName},
		{SearchBy: search.SearchByYear},
		{PriceRange: search.Range{Min: ptr(100), Max: ptr(200)}, BudgetBucket: search.Budget2MTo3M},
		{PriceRange: search.Range{Min: ptr(750_000)}},
		{BudgetBucket: search.BudgetBelow500K},
		{YearRange: search.Range{Min: ptr(2010), Max: ptr(2015)}},
		{Location: search.LocationInternational, Currency: search.CurrencyUSD},
		{Location: search.LocationBoth},
		{BrandID: ptr(2), ModelID: ptr(8)},
		{ModelID: ptr(8)},
		{
			ListingTypes: []search.ListingType{search.ListingAuction, search.ListingHire},
			FuelTypes:    []search.FuelType{search.FuelHybrid},
			Propulsion:   search.Propulsion4WD,
			Condition:    search.ConditionForeignUsed,
			CarType:      search.CarTypeSUV,
		},
	}

	for _, st := range states {
		q := Normalize(st)
		again := Normalize(Denormalize(q))
		assert.Equal(t, q, again, q.Key())
	}
}
