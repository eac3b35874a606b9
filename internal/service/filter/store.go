package filter

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"listing-service/internal/domain/search"
)

// Field names an editable filter input.
type Field string

const (
	FieldTextQuery    Field = "text_query"
	FieldSearchBy     Field = "search_by"
	FieldListingType  Field = "listing_type"
	FieldMinPrice     Field = "min_price"
	FieldMaxPrice     Field = "max_price"
	FieldMinYear      Field = "min_yom"
	FieldMaxYear      Field = "max_yom"
	FieldBudget       Field = "budget_bucket"
	FieldLocation     Field = "location"
	FieldCurrency     Field = "currency"
	FieldBrandID      Field = "brand_id"
	FieldModelID      Field = "model_id"
	FieldTransmission Field = "transmission"
	FieldPropulsion   Field = "propulsion"
	FieldFuelType     Field = "fuel_type"
	FieldCondition    Field = "condition"
	FieldCarType      Field = "car_type"
)

// Store holds the filter form of one listing view.
//
// Setters never fail. Input that does not fit a field (non-numeric text in a
// numeric field, a year outside [MinYear, current year], an unknown option)
// leaves the field unchanged. An empty value clears the field.
type Store struct {
	mu     sync.Mutex
	state  search.FilterState
	subs   map[int]func(search.FilterState)
	nextID int
	now    func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used for the current-year bound.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		subs: make(map[int]func(search.FilterState)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() search.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to receive the state after every change.
func (s *Store) Subscribe(fn func(search.FilterState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetField assigns a form value. It reports whether the state changed.
func (s *Store) SetField(field Field, value string) bool {
	value = strings.TrimSpace(value)

	s.mu.Lock()
	next := s.state.Clone()
	if !s.apply(&next, field, value) || sameState(s.state, next) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// Toggle flips membership of value in a multi-select field.
func (s *Store) Toggle(field Field, value string) bool {
	value = strings.TrimSpace(value)

	s.mu.Lock()
	next := s.state.Clone()
	switch field {
	case FieldListingType:
		v := search.ListingType(value)
		if !v.Valid() {
			s.mu.Unlock()
			return false
		}
		next.ListingTypes = toggle(next.ListingTypes, v, search.ListingTypeValues)
	case FieldFuelType:
		v := search.FuelType(value)
		if !v.Valid() {
			s.mu.Unlock()
			return false
		}
		next.FuelTypes = toggle(next.FuelTypes, v, search.FuelTypeValues)
	default:
		s.mu.Unlock()
		return false
	}
	s.state = next
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// Reset restores every field to its default and notifies subscribers once.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = search.FilterState{}
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(subs, snap)
}

// LoadFromQuery replaces the state with the best-effort inverse of q.
// Values the form cannot represent are left at their defaults.
func (s *Store) LoadFromQuery(q search.CanonicalQuery) {
	next := Denormalize(q)

	s.mu.Lock()
	s.state = next
	snap, subs := s.publishLocked()
	s.mu.Unlock()

	notify(subs, snap)
}

// Denormalize maps a canonical query back to form state. A price pair that
// exactly matches a budget bracket comes back as that bucket.
func Denormalize(q search.CanonicalQuery) search.FilterState {
	var st search.FilterState

	st.TextQuery = strings.TrimSpace(q.Search)
	if sb := search.SearchBy(q.SearchBy); st.TextQuery != "" && sb.Valid() {
		st.SearchBy = sb
	}

	st.ListingTypes = splitSet(q.ListingType, search.ListingTypeValues)
	st.FuelTypes = splitSet(q.FuelType, search.FuelTypeValues)

	minPrice, maxPrice := nonNegative(q.MinPrice), nonNegative(q.MaxPrice)
	if bucket, ok := search.BucketFor(minPrice, maxPrice); ok {
		st.BudgetBucket = bucket
	} else {
		st.PriceRange = search.Range{Min: minPrice, Max: maxPrice}
	}

	st.YearRange = search.Range{Min: year(q.MinYOM), Max: year(q.MaxYOM)}

	if loc, ok := search.LocationFromCode(q.Location); ok {
		st.Location = loc
	}
	if c := search.Currency(q.Currency); c.Valid() {
		st.Currency = c
	}

	if id := positive(q.BrandID); id != nil {
		st.BrandID = id
		st.ModelID = positive(q.ModelID)
	}

	if v := search.Transmission(q.Transmission); v.Valid() {
		st.Transmission = v
	}
	if v := search.Propulsion(q.Propulsion); v.Valid() {
		st.Propulsion = v
	}
	if v := search.Condition(q.Condition); v.Valid() {
		st.Condition = v
	}
	if v := search.CarType(q.CarType); v.Valid() {
		st.CarType = v
	}

	return st
}

// apply writes value into st. It returns false when the input is rejected.
func (s *Store) apply(st *search.FilterState, field Field, value string) bool {
	switch field {
	case FieldTextQuery:
		st.TextQuery = value

	case FieldSearchBy:
		v := search.SearchBy(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.SearchBy = v

	case FieldListingType:
		set, ok := parseSet(value, search.ListingTypeValues)
		if !ok {
			return false
		}
		st.ListingTypes = set

	case FieldFuelType:
		set, ok := parseSet(value, search.FuelTypeValues)
		if !ok {
			return false
		}
		st.FuelTypes = set

	case FieldMinPrice, FieldMaxPrice:
		n, ok := parseAmount(value)
		if !ok {
			return false
		}
		if field == FieldMinPrice {
			st.PriceRange.Min = n
		} else {
			st.PriceRange.Max = n
		}
		// manual price entry takes over from a selected bucket
		st.BudgetBucket = ""

	case FieldMinYear, FieldMaxYear:
		n, ok := s.parseYear(value)
		if !ok {
			return false
		}
		if field == FieldMinYear {
			st.YearRange.Min = n
		} else {
			st.YearRange.Max = n
		}

	case FieldBudget:
		v := search.BudgetBucket(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.BudgetBucket = v

	case FieldLocation:
		v := search.Location(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.Location = v

	case FieldCurrency:
		v := search.Currency(strings.ToUpper(value))
		if value != "" && !v.Valid() {
			return false
		}
		st.Currency = v

	case FieldBrandID:
		id, ok := parseID(value)
		if !ok {
			return false
		}
		if !sameInt(st.BrandID, id) {
			st.ModelID = nil
		}
		st.BrandID = id

	case FieldModelID:
		id, ok := parseID(value)
		if !ok || (id != nil && st.BrandID == nil) {
			return false
		}
		st.ModelID = id

	case FieldTransmission:
		v := search.Transmission(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.Transmission = v

	case FieldPropulsion:
		v := search.Propulsion(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.Propulsion = v

	case FieldCondition:
		v := search.Condition(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.Condition = v

	case FieldCarType:
		v := search.CarType(value)
		if value != "" && !v.Valid() {
			return false
		}
		st.CarType = v

	default:
		return false
	}
	return true
}

func (s *Store) publishLocked() (search.FilterState, []func(search.FilterState)) {
	subs := make([]func(search.FilterState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.state.Clone(), subs
}

func notify(subs []func(search.FilterState), st search.FilterState) {
	for _, fn := range subs {
		fn(st.Clone())
	}
}

func (s *Store) parseYear(value string) (*int64, bool) {
	n, ok := parseAmount(value)
	if !ok || n == nil {
		return n, ok
	}
	if *n < MinYear || *n > int64(s.now().Year()) {
		return nil, false
	}
	return n, true
}

// parseAmount accepts digits only. Empty input clears the bound.
func parseAmount(value string) (*int64, bool) {
	if value == "" {
		return nil, true
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return nil, false
		}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}

func parseID(value string) (*int64, bool) {
	n, ok := parseAmount(value)
	if !ok {
		return nil, false
	}
	if n != nil && *n == 0 {
		return nil, false
	}
	return n, true
}

func parseSet[T interface {
	~string
	Valid() bool
}](value string, declared []T) ([]T, bool) {
	if value == "" {
		return nil, true
	}
	var out []T
	for _, p := range strings.Split(value, ",") {
		v := T(strings.TrimSpace(p))
		if !v.Valid() {
			return nil, false
		}
		out = append(out, v)
	}
	return search.SortSet(out, declared), true
}

func toggle[T ~string](set []T, v T, declared []T) []T {
	out := make([]T, 0, len(set)+1)
	found := false
	for _, x := range set {
		if x == v {
			found = true
			continue
		}
		out = append(out, x)
	}
	if !found {
		out = append(out, v)
	}
	return search.SortSet(out, declared)
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameState(a, b search.FilterState) bool {
	if a.TextQuery != b.TextQuery || a.SearchBy != b.SearchBy ||
		a.BudgetBucket != b.BudgetBucket || a.Location != b.Location ||
		a.Currency != b.Currency || a.Transmission != b.Transmission ||
		a.Propulsion != b.Propulsion || a.Condition != b.Condition ||
		a.CarType != b.CarType {
		return false
	}
	if !sameInt(a.PriceRange.Min, b.PriceRange.Min) || !sameInt(a.PriceRange.Max, b.PriceRange.Max) ||
		!sameInt(a.YearRange.Min, b.YearRange.Min) || !sameInt(a.YearRange.Max, b.YearRange.Max) ||
		!sameInt(a.BrandID, b.BrandID) || !sameInt(a.ModelID, b.ModelID) {
		return false
	}
	return sameSet(a.ListingTypes, b.ListingTypes) && sameSet(a.FuelTypes, b.FuelTypes)
}

func sameSet[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
