package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StatementLayouts is the ordered list tried after the abbreviated-month form.
// Day-first layouts come before month-first ones, so "03-10-2025" is 3 October.
var StatementLayouts = []string{
	"2-1-2006",
	"1-2-2006",
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"Jan-2-2006",
	"Jan 2, 2006",
}

// centuryPivot is the last two-digit year mapped into the 2000s.
const centuryPivot = 25

// Date parses a statement date. It first tries the "Apr-01-14" form (month
// abbreviation, day, two-digit year), then StatementLayouts in order. The
// boolean is false when nothing matched; callers must drop such rows rather
// than substitute today's date.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := shortYearDate(s); ok {
		return t, true
	}
	return DateWithLayouts(s, StatementLayouts...)
}

// DateWithLayouts tries each layout in order and returns the first match.
func DateWithLayouts(s string, layouts ...string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func shortYearDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 3 || len(parts[2]) != 2 {
		return time.Time{}, false
	}
	mon, err := time.Parse("Jan", parts[0])
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	yy, err := strconv.Atoi(parts[2])
	if err != nil || yy < 0 {
		return time.Time{}, false
	}
	year := 1900 + yy
	if yy <= centuryPivot {
		year = 2000 + yy
	}
	t := time.Date(year, mon.Month(), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; reject "Feb-30-20" instead of rolling it over.
	if t.Day() != day || t.Month() != mon.Month() {
		return time.Time{}, false
	}
	return t, true
}

var (
	yearsRe     = regexp.MustCompile(`(\d+)\s*year`)
	monthsRe    = regexp.MustCompile(`(\d+)\s*month`)
	monthYearRe = regexp.MustCompile(`\b(0?[1-9]|1[0-2])\s*/\s*(\d{4})\b`)
)

// DurationMonths converts free text like "8 years and 9 months" into a month
// count. Returns nil when no positive duration is found.
func DurationMonths(s string) *int {
	lower := strings.ToLower(s)
	total := 0
	if m := yearsRe.FindStringSubmatch(lower); m != nil {
		y, _ := strconv.Atoi(m[1])
		total += y * 12
	}
	if m := monthsRe.FindStringSubmatch(lower); m != nil {
		mo, _ := strconv.Atoi(m[1])
		total += mo
	}
	if total <= 0 {
		return nil
	}
	return &total
}

// MonthYear extracts an "MM/YYYY" pair from text like "STUDENT LOAN (09/2010)".
func MonthYear(s string) (month, year int, ok bool) {
	m := monthYearRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(m[1])
	year, _ = strconv.Atoi(m[2])
	return month, year, true
}

// MonthsBetween returns the absolute number of whole months between a and b,
// where b is the later date in the usual case. A partial trailing month is not
// counted.
func MonthsBetween(a, b time.Time) int {
	total := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		total--
	}
	if total < 0 {
		return -total
	}
	return total
}

// DaysBetween returns the whole days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}
