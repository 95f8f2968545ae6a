package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CanonicalDateLayout is the day-first layout normalized dates are written back in.
const CanonicalDateLayout = "02/01/2006"

// CanonicalTimeLayout is the layout normalized times of day are written back in.
const CanonicalTimeLayout = "15:04"

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

var weekdayNames = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda",
	time.Tuesday:   "Terça",
	time.Wednesday: "Quarta",
	time.Thursday:  "Quinta",
	time.Friday:    "Sexta",
	time.Saturday:  "Sábado",
}

// WeekdayOrder lists the localized day names from Monday to Sunday.
var WeekdayOrder = []string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo"}

// thousandsOnly matches dot-grouped integers. A leading zero group is always a decimal.
var thousandsOnly = regexp.MustCompile(`^-?[1-9]\d{0,2}(\.\d{3})+$`)

// truthyAppFlags are the has-app values that count as "installed".
var truthyAppFlags = map[string]bool{
	"true": true,
	"1":    true,
	"1.0":  true,
	"sim":  true,
	"yes":  true,
}

// NormalizePhone strips everything but digits. ok is false for missing input.
func NormalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if isMissingToken(raw) {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// ParseDayFirstDate parses a day-first date. It returns nil when the value is
// missing or unparseable.
func ParseDayFirstDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if isMissingToken(raw) {
		return nil
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// PadTime zero-pads a colon-less time of day to HHMM.
func PadTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, ":") {
		return raw
	}
	if len(raw) < 4 {
		return strings.Repeat("0", 4-len(raw)) + raw
	}
	return raw
}

// parseClock returns hour and minute from "HH:MM[:SS]" or zero-padded "HHMM".
func parseClock(raw string) (int, int, bool) {
	s := PadTime(raw)
	if s == "" || isMissingToken(s) {
		return 0, 0, false
	}

	var hs, ms string
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) < 2 {
			return 0, 0, false
		}
		hs, ms = parts[0], parts[1]
	} else {
		if len(s) != 4 {
			return 0, 0, false
		}
		hs, ms = s[:2], s[2:]
	}

	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(ms))
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// CombineDateTime joins a parsed date with a time of day. It returns nil when
// either side is missing or the time cannot be read.
func CombineDateTime(date *time.Time, rawTime string) *time.Time {
	if date == nil {
		return nil
	}
	h, m, ok := parseClock(rawTime)
	if !ok {
		return nil
	}
	dt := time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, time.UTC)
	return &dt
}

// HourOf extracts the hour from "HH:MM" or zero-padded "HHMM".
func HourOf(rawTime string) *int {
	h, _, ok := parseClock(rawTime)
	if !ok {
		return nil
	}
	return &h
}

// CanonicalTime renders a time of day as HH:MM, or returns raw unchanged when it
// cannot be read.
func CanonicalTime(raw string) string {
	h, m, ok := parseClock(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format(CanonicalTimeLayout)
}

// ParseAge coerces an age to a number. Non-numeric input gives nil.
func ParseAge(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if isMissingToken(raw) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// AgeFromBirthDate returns the completed years between birth and ref.
func AgeFromBirthDate(birth, ref time.Time) *float64 {
	if birth.After(ref) {
		return nil
	}
	years := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		years--
	}
	v := float64(years)
	return &v
}

// AgeBracketOf buckets an age into the seven fixed brackets. Buckets are closed
// on the upper edge and 0 falls into "<=17".
func AgeBracketOf(age *float64) (AgeBracket, bool) {
	if age == nil || *age < ageEdges[0] || *age > ageEdges[len(ageEdges)-1] {
		return "", false
	}
	for i := 1; i < len(ageEdges); i++ {
		if *age <= ageEdges[i] {
			return AgeBrackets[i-1], true
		}
	}
	return "", false
}

// WeekdayOf returns the Portuguese weekday name of a date.
func WeekdayOf(date *time.Time) string {
	if date == nil {
		return ""
	}
	return weekdayNames[date.Weekday()]
}

// ParseMoney reads a monetary value written with either decimal convention.
//
// When both '.' and ',' appear, the last one is the decimal separator. A lone
// ',' is decimal. A lone '.' is decimal unless the value only has thousands
// groups ("1.234.567"). Currency symbols and spaces are ignored.
func ParseMoney(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if isMissingToken(s) {
		return nil
	}

	s = strings.NewReplacer("R$", "", "$", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return nil
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return nil
		}
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if thousandsOnly.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// HasAppInstalled reports whether a has-app flag reads as true.
func HasAppInstalled(raw string) bool {
	return truthyAppFlags[strings.ToLower(strings.TrimSpace(raw))]
}

// FormatNumber renders a float without trailing zeros for canonical output.
func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatDate renders a date in the canonical day-first layout.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(CanonicalDateLayout)
}

func isMissingToken(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "nat", "null", "none", "<na>":
		return true
	}
	return false
}
