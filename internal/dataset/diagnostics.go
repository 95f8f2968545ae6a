package dataset

import (
	"sort"

	"github.com/ttacon/libphonenumber"
)

// PhoneRegion is the default region used to validate phone keys.
const PhoneRegion = "BR"

// Diagnostics records what happened to one table during load and normalization.
// Unparseable values never fail a load; they are counted here instead.
type Diagnostics struct {
	Table         string         `json:"table"`
	Path          string         `json:"path"`
	RowsRead      int            `json:"rows_read"`
	RowsSkipped   int            `json:"rows_skipped"`
	RowsKept      int            `json:"rows_kept"`
	CoercedRows   int            `json:"coerced_rows"`
	Coercions     map[string]int `json:"coercions"`
	InvalidPhones int            `json:"invalid_phones"`
	MissingCols   []string       `json:"missing_columns,omitempty"`
}

func newDiagnostics(name string, raw *RawTable) Diagnostics {
	return Diagnostics{
		Table:       name,
		Path:        raw.Path,
		RowsRead:    raw.RowsRead,
		RowsSkipped: raw.SkippedRows,
		Coercions:   make(map[string]int),
	}
}

// TotalCoercions sums the per-column coercion counts.
func (d Diagnostics) TotalCoercions() int {
	total := 0
	for _, n := range d.Coercions {
		total += n
	}
	return total
}

// CoercedColumns returns the columns with at least one coercion, sorted.
func (d Diagnostics) CoercedColumns() []string {
	cols := make([]string, 0, len(d.Coercions))
	for c, n := range d.Coercions {
		if n > 0 {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

// rowTracker counts coercions for the row being normalized.
type rowTracker struct {
	diag    *Diagnostics
	coerced bool
}

// coerce records a value that was present but could not be parsed.
func (t *rowTracker) coerce(column, raw string) {
	if isMissingToken(raw) {
		return
	}
	t.diag.Coercions[column]++
	t.coerced = true
}

func (t *rowTracker) finish() {
	t.diag.RowsKept++
	if t.coerced {
		t.diag.CoercedRows++
	}
	t.coerced = false
}

// phoneValidator checks keys against the numbering plan, caching per key.
type phoneValidator struct {
	region string
	seen   map[string]bool
}

func newPhoneValidator(region string) *phoneValidator {
	return &phoneValidator{region: region, seen: make(map[string]bool)}
}

// Valid reports whether a digits-only key parses as a valid number in the region.
func (v *phoneValidator) Valid(key string) bool {
	if ok, cached := v.seen[key]; cached {
		return ok
	}
	ok := false
	if num, err := libphonenumber.Parse(key, v.region); err == nil {
		ok = libphonenumber.IsValidNumber(num)
	}
	v.seen[key] = ok
	return ok
}
