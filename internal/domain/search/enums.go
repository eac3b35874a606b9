package search

// SearchBy selects the car attribute a free-text query targets.
type SearchBy string

type ListingType string
type Location string
type Currency string
type Transmission string
type Propulsion string
type FuelType string
type Condition string
type CarType string

const (
	SearchByName         SearchBy = "name"
	SearchByModel        SearchBy = "model"
	SearchByYear         SearchBy = "year"
	SearchByRegistration SearchBy = "registration"

	ListingSale    ListingType = "sale"
	ListingHire    ListingType = "hire"
	ListingAuction ListingType = "auction"

	// Location values are the labels shown in the filter form.
	LocationKenya         Location = "Available in Kenya"
	LocationInternational Location = "Available Internationally"
	LocationBoth          Location = "Both"

	CurrencyKES Currency = "KES"
	CurrencyUSD Currency = "USD"

	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"

	Propulsion2WD Propulsion = "2WD"
	Propulsion4WD Propulsion = "4WD"
	PropulsionAWD Propulsion = "AWD"

	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"

	ConditionNew         Condition = "new"
	ConditionForeignUsed Condition = "foreign_used"
	ConditionLocallyUsed Condition = "locally_used"

	CarTypeSedan       CarType = "sedan"
	CarTypeSUV         CarType = "suv"
	CarTypeHatchback   CarType = "hatchback"
	CarTypePickup      CarType = "pickup"
	CarTypeVan         CarType = "van"
	CarTypeWagon       CarType = "wagon"
	CarTypeCoupe       CarType = "coupe"
	CarTypeConvertible CarType = "convertible"
	CarTypeBus         CarType = "bus"
	CarTypeTruck       CarType = "truck"
)

// Declared orders. Multi-select sets are encoded in this order so that equal
// sets always produce equal queries.
var (
	SearchByValues     = []SearchBy{SearchByName, SearchByModel, SearchByYear, SearchByRegistration}
	ListingTypeValues  = []ListingType{ListingSale, ListingHire, ListingAuction}
	LocationValues     = []Location{LocationKenya, LocationInternational, LocationBoth}
	CurrencyValues     = []Currency{CurrencyKES, CurrencyUSD}
	TransmissionValues = []Transmission{TransmissionAutomatic, TransmissionManual}
	PropulsionValues   = []Propulsion{Propulsion2WD, Propulsion4WD, PropulsionAWD}
	FuelTypeValues     = []FuelType{FuelPetrol, FuelDiesel, FuelHybrid, FuelElectric}
	ConditionValues    = []Condition{ConditionNew, ConditionForeignUsed, ConditionLocallyUsed}
	CarTypeValues      = []CarType{
		CarTypeSedan, CarTypeSUV, CarTypeHatchback, CarTypePickup, CarTypeVan,
		CarTypeWagon, CarTypeCoupe, CarTypeConvertible, CarTypeBus, CarTypeTruck,
	}
)

// LocationCodes maps form labels to backend codes. Both is deliberately
// absent: it means no location constraint.
var LocationCodes = map[Location]string{
	LocationKenya:         "Kenya",
	LocationInternational: "International",
}

func oneOf[T ~string](v T, values []T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func (v SearchBy) Valid() bool     { return oneOf(v, SearchByValues) }
func (v ListingType) Valid() bool  { return oneOf(v, ListingTypeValues) }
func (v Location) Valid() bool     { return oneOf(v, LocationValues) }
func (v Currency) Valid() bool     { return oneOf(v, CurrencyValues) }
func (v Transmission) Valid() bool { return oneOf(v, TransmissionValues) }
func (v Propulsion) Valid() bool   { return oneOf(v, PropulsionValues) }
func (v FuelType) Valid() bool     { return oneOf(v, FuelTypeValues) }
func (v Condition) Valid() bool    { return oneOf(v, ConditionValues) }
func (v CarType) Valid() bool      { return oneOf(v, CarTypeValues) }

// LocationFromCode is the inverse of LocationCodes.
func LocationFromCode(code string) (Location, bool) {
	for label, c := range LocationCodes {
		if c == code {
			return label, true
		}
	}
	return "", false
}

// SortSet returns the members of set in declared order, dropping unknown
// values and duplicates.
func SortSet[T ~string](set []T, declared []T) []T {
	if len(set) == 0 {
		return nil
	}
	seen := make(map[T]bool, len(set))
	for _, v := range set {
		seen[v] = true
	}
	out := make([]T, 0, len(set))
	for _, v := range declared {
		if seen[v] {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
