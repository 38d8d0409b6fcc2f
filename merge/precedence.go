package merge

import "strings"

// Precedence ranks sources per field family, most authoritative first. A
// source is a sheet name for spreadsheet values or "text" for pages of a
// PDF or free-text manual.
type Precedence map[string][]string

// Rank returns the position of source in the family's ranking. Sheet names
// compare case-insensitively; unlisted sources rank after every listed one.
func (p Precedence) Rank(family, source string) int {
	order := p[family]
	for i, s := range order {
		if strings.EqualFold(s, source) {
			return i
		}
	}
	return len(order)
}
