package analytics

import "picpulse/internal/dataset"

// BuildFilterOptions lists the distinct filter values and the transaction date span.
func BuildFilterOptions(t *dataset.Tables) FilterOptions {
	categories := make(map[string]bool)
	types := make(map[string]bool)
	hoods := make(map[string]bool)
	for tx := range t.Transactions.All() {
		if tx.Category != "" {
			categories[tx.Category] = true
		}
		if tx.CouponType != "" {
			types[tx.CouponType] = true
		}
		if tx.Neighborhood != "" {
			hoods[tx.Neighborhood] = true
		}
	}

	first, last := t.DateRange()
	return FilterOptions{
		Categories:    sortedKeys(categories),
		CouponTypes:   sortedKeys(types),
		Neighborhoods: sortedKeys(hoods),
		MinDate:       first,
		MaxDate:       last,
	}
}
