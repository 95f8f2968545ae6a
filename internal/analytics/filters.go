package analytics

import (
	"errors"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"picpulse/internal/dataset"
)

// All is the filter value that disables a dimension.
const All = "all"

// Filters are optional equality predicates plus an inclusive date range.
// Empty or "all" leaves a dimension unfiltered.
type Filters struct {
	Category     string
	CouponType   string
	Neighborhood string
	Start        *time.Time
	End          *time.Time
}

// ErrInvertedRange is returned by Validate when End is before Start.
var ErrInvertedRange = errors.New("fim must not be before inicio")

// Validate checks the date range. Either bound may be open.
func (f Filters) Validate() error {
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return ErrInvertedRange
	}
	return nil
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// IsZero reports whether no dimension is filtered.
func (f Filters) IsZero() bool {
	return !active(f.Category) && !active(f.CouponType) && !active(f.Neighborhood) &&
		f.Start == nil && f.End == nil
}

// bounds returns the inclusive day-granular date window.
func (f Filters) bounds() (lo, hi time.Time, hasLo, hasHi bool) {
	if f.Start != nil {
		lo, hasLo = now.With(*f.Start).BeginningOfDay(), true
	}
	if f.End != nil {
		hi, hasHi = now.With(*f.End).EndOfDay(), true
	}
	return lo, hi, hasLo, hasHi
}

// inRange reports whether d is inside the date window. A missing date only
// passes when no window is set.
func (f Filters) inRange(d *time.Time) bool {
	lo, hi, hasLo, hasHi := f.bounds()
	if !hasLo && !hasHi {
		return true
	}
	if d == nil {
		return false
	}
	if hasLo && d.Before(lo) {
		return false
	}
	if hasHi && d.After(hi) {
		return false
	}
	return true
}

// MatchTransaction applies every predicate to a transaction.
func (f Filters) MatchTransaction(tx dataset.Transaction) bool {
	if active(f.Category) && tx.Category != strings.TrimSpace(f.Category) {
		return false
	}
	if active(f.CouponType) && tx.CouponType != strings.TrimSpace(f.CouponType) {
		return false
	}
	if active(f.Neighborhood) && tx.Neighborhood != strings.TrimSpace(f.Neighborhood) {
		return false
	}
	return f.inRange(tx.Date)
}

// MatchCapture applies the date window to a value capture. Captures carry no
// category, coupon type or neighborhood, so those predicates do not apply.
func (f Filters) MatchCapture(vc dataset.ValueCapture) bool {
	return f.inRange(vc.CaptureDate)
}

// transactions yields the transactions matching f.
func transactions(t *dataset.Tables, f Filters) []dataset.Transaction {
	var out []dataset.Transaction
	for tx := range t.Transactions.All() {
		if f.MatchTransaction(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func captures(t *dataset.Tables, f Filters) []dataset.ValueCapture {
	var out []dataset.ValueCapture
	for vc := range t.Captures.All() {
		if f.MatchCapture(vc) {
			out = append(out, vc)
		}
	}
	return out
}
