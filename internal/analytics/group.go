package analytics

import (
	"cmp"
	"slices"
)

// order is the sort direction of a reduced metric.
type order int

const (
	descending order = iota
	ascending
)

type entry struct {
	label string
	value float64
}

// sortedSeries orders groups by value, breaking ties by label ascending, and
// keeps at most limit entries when limit > 0.
func sortedSeries(groups map[string]float64, dir order, limit int) ([]string, []float64) {
	entries := make([]entry, 0, len(groups))
	for l, v := range groups {
		entries = append(entries, entry{l, v})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		c := cmp.Compare(a.value, b.value)
		if dir == descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	labels := make([]string, len(entries))
	values := make([]float64, len(entries))
	for i, e := range entries {
		labels[i], values[i] = e.label, e.value
	}
	return labels, values
}

// pairKey is a (row, col) group.
type pairKey struct {
	row, col string
}

// buildPivot lays out pair counts on the given axes, zero-filling gaps.
func buildPivot(counts map[pairKey]float64, rows, cols []string) [][]float64 {
	cells := make([][]float64, len(rows))
	for i, r := range rows {
		cells[i] = make([]float64, len(cols))
		for j, c := range cols {
			cells[i][j] = counts[pairKey{r, c}]
		}
	}
	return cells
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
