package pattern

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	dayMonthYear = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2}|\d{4})$`)
	isoDate      = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	monthYear    = regexp.MustCompile(`^(\d{1,2})[./-](\d{2}|\d{4})$`)
)

// ParseDate parses the day-first and month-only date forms used on
// certificates: DD/MM/YYYY, DD-MM-YY, DD.MM.YYYY, YYYY-MM-DD, MM/YYYY and
// MM/YY. Month-only dates resolve to the first day of the month. Two-digit
// years below 50 are 20YY, others 19YY.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if m := monthYear.FindStringSubmatch(s); m != nil {
		return monthDate(m[2], m[1])
	}

	var short string
	switch m := dayMonthYear.FindStringSubmatch(s); {
	case m != nil:
		s = m[1] + "/" + m[2] + "/" + m[3]
		if len(m[3]) == 2 {
			short = m[3]
		}
	case isoDate.MatchString(s):
	default:
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	year := t.Year()
	if short != "" {
		year = fullYear(short)
	}
	d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if d.Day() != t.Day() {
		return time.Time{}, false
	}
	return d, true
}

// monthDate resolves MM/YYYY and MM/YY to the first of the month.
func monthDate(year, month string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if len(year) == 2 {
		y = fullYear(year)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
}

func fullYear(yy string) int {
	y, _ := strconv.Atoi(yy)
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}
