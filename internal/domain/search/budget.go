package search

// BudgetBucket is a named KES price bracket offered by the filter form.
type BudgetBucket string

const (
	BudgetBelow500K BudgetBucket = "Below 500K"
	Budget500KTo1M  BudgetBucket = "500K - 1M"
	Budget1MTo2M    BudgetBucket = "1M - 2M"
	Budget2MTo3M    BudgetBucket = "2M - 3M"
	Budget3MTo5M    BudgetBucket = "3M - 5M"
	Budget5MTo10M   BudgetBucket = "5M - 10M"
	BudgetAbove10M  BudgetBucket = "Above 10M"
)

// Bracket is the price range a bucket resolves to. A nil bound is open.
type Bracket struct {
	Min *int64
	Max *int64
}

func i64(v int64) *int64 { return &v }

var budgetBrackets = map[BudgetBucket]Bracket{
	BudgetBelow500K: {Max: i64(500_000)},
	Budget500KTo1M:  {Min: i64(500_000), Max: i64(1_000_000)},
	Budget1MTo2M:    {Min: i64(1_000_000), Max: i64(2_000_000)},
	Budget2MTo3M:    {Min: i64(2_000_000), Max: i64(3_000_000)},
	Budget3MTo5M:    {Min: i64(3_000_000), Max: i64(5_000_000)},
	Budget5MTo10M:   {Min: i64(5_000_000), Max: i64(10_000_000)},
	BudgetAbove10M:  {Min: i64(10_000_000)},
}

// BudgetBuckets lists the buckets in display order.
var BudgetBuckets = []BudgetBucket{
	BudgetBelow500K, Budget500KTo1M, Budget1MTo2M, Budget2MTo3M,
	Budget3MTo5M, Budget5MTo10M, BudgetAbove10M,
}

func (b BudgetBucket) Valid() bool {
	_, ok := budgetBrackets[b]
	return ok
}

// Resolve returns the bracket for b.
func (b BudgetBucket) Resolve() (Bracket, bool) {
	br, ok := budgetBrackets[b]
	if !ok {
		return Bracket{}, false
	}
	return Bracket{Min: copyInt(br.Min), Max: copyInt(br.Max)}, true
}

// BucketFor finds the bucket whose bracket is exactly [min, max].
func BucketFor(min, max *int64) (BudgetBucket, bool) {
	for _, b := range BudgetBuckets {
		br := budgetBrackets[b]
		if equalInt(br.Min, min) && equalInt(br.Max, max) {
			return b, true
		}
	}
	return "", false
}

func equalInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
