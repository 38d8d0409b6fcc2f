package pattern

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/raftspec"
)

// ExtractFunc turns the submatches of a rule's pattern into a value. The
// second return value is false when the submatches do not hold a usable
// value.
type ExtractFunc func(groups []string) (raftspec.Value, bool)

// Rule is one way of finding a field in text.
type Rule struct {
	Name       string
	Field      string
	Pattern    *regexp.Regexp
	Extract    ExtractFunc
	Confidence raftspec.Confidence

	// Label makes this a grid label rule: Label matches a header cell and
	// Pattern is applied to the value cell below it.
	Label *regexp.Regexp

	// Plausible overrides the registry's range check when set.
	Plausible func(raftspec.Value) bool
}

// Case is a case normalization for text values.
type Case string

// Text cases.
const (
	CaseNone  Case = ""
	CaseUpper Case = "upper"
	CaseLower Case = "lower"
	CaseTitle Case = "title"
)

func group(groups []string, i int) string {
	if i < 0 || i >= len(groups) {
		return ""
	}
	return strings.TrimSpace(groups[i])
}

// parseNumber accepts a decimal comma as well as a decimal point.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return f, err == nil
}

// Number extracts a plain number from a group.
func Number(g int) ExtractFunc {
	return func(groups []string) (raftspec.Value, bool) {
		f, ok := parseNumber(group(groups, g))
		if !ok {
			return raftspec.Value{}, false
		}
		return raftspec.NumberValue(f), true
	}
}

// Text extracts a group as text with whitespace collapsed.
func Text(g int, c Case) ExtractFunc {
	return func(groups []string) (raftspec.Value, bool) {
		s := strings.Join(strings.Fields(group(groups, g)), " ")
		if s == "" {
			return raftspec.Value{}, false
		}
		return raftspec.TextValue(applyCase(s, c)), true
	}
}

func applyCase(s string, c Case) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseLower:
		return strings.ToLower(s)
	case CaseTitle:
		words := strings.Fields(strings.ToLower(s))
		for i, w := range words {
			r, size := utf8.DecodeRuneInString(w)
			words[i] = string(unicode.ToUpper(r)) + w[size:]
		}
		return strings.Join(words, " ")
	}
	return s
}

// Date extracts a date from a group using ParseDate.
func Date(g int) ExtractFunc {
	return func(groups []string) (raftspec.Value, bool) {
		t, ok := ParseDate(group(groups, g))
		if !ok {
			return raftspec.Value{}, false
		}
		return raftspec.DateValue(t), true
	}
}

// unitOf resolves the unit from a group, falling back to fixed.
func unitOf(groups []string, unitGroup int, fixed raftspec.Unit) (raftspec.Unit, bool) {
	if unitGroup > 0 {
		if u, ok := raftspec.ParseUnit(group(groups, unitGroup)); ok {
			return u, true
		}
	}
	if fixed != "" {
		return fixed, true
	}
	return "", false
}

// Quantity extracts a number from group g tagged with the unit spelled in
// unitGroup, or with fixed when unitGroup is zero or unrecognized.
func Quantity(g, unitGroup int, fixed raftspec.Unit) ExtractFunc {
	return func(groups []string) (raftspec.Value, bool) {
		f, ok := parseNumber(group(groups, g))
		if !ok {
			return raftspec.Value{}, false
		}
		u, ok := unitOf(groups, unitGroup, fixed)
		if !ok {
			return raftspec.Value{}, false
		}
		return raftspec.QuantityValue(raftspec.Quantity{Value: f, Unit: u}), true
	}
}

// Product extracts "count × amount unit" as a single quantity, e.g.
// "2 x 160g" as 320 g. An empty count group counts as one.
func Product(countGroup, g, unitGroup int, fixed raftspec.Unit) ExtractFunc {
	amount := Quantity(g, unitGroup, fixed)
	return func(groups []string) (raftspec.Value, bool) {
		v, ok := amount(groups)
		if !ok {
			return raftspec.Value{}, false
		}
		count := 1.0
		if s := group(groups, countGroup); s != "" {
			n, ok := parseNumber(s)
			if !ok || n <= 0 {
				return raftspec.Value{}, false
			}
			count = n
		}
		v.Quantity.Value *= count
		return v, true
	}
}

// Flag extracts true whenever the pattern matches.
func Flag() ExtractFunc {
	return func([]string) (raftspec.Value, bool) {
		return raftspec.FlagValue(true), true
	}
}

var templateRef = regexp.MustCompile(`\{(\d)\}`)

// Template formats groups into text: "OTS{1}" with group 1 "65" gives
// "OTS65". Matches with an empty referenced group are dropped.
func Template(format string) ExtractFunc {
	return func(groups []string) (raftspec.Value, bool) {
		ok := true
		s := templateRef.ReplaceAllStringFunc(format, func(ref string) string {
			i, _ := strconv.Atoi(ref[1 : len(ref)-1])
			g := group(groups, i)
			if g == "" {
				ok = false
			}
			return strings.ToUpper(g)
		})
		if !ok {
			return raftspec.Value{}, false
		}
		return raftspec.TextValue(s), true
	}
}

// Validity extracts a component expiry as text: group g names the component
// and dateGroup holds its expiry, e.g. "HRU" and "03/2027" give
// "HRU 2027-03". Components matching exclude are dropped so that labels such
// as "VALIDADE" next to a date are not taken for components.
func Validity(g, dateGroup int, exclude *regexp.Regexp) ExtractFunc {
	return func(groups []string) (raftspec.Value, bool) {
		component := strings.ToUpper(strings.Join(strings.Fields(group(groups, g)), " "))
		if component == "" || (exclude != nil && exclude.MatchString(component)) {
			return raftspec.Value{}, false
		}
		t, ok := ParseDate(group(groups, dateGroup))
		if !ok {
			return raftspec.Value{}, false
		}
		return raftspec.TextValue(component + " " + t.Format("2006-01")), true
	}
}
