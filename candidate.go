package raftspec

import (
	"fmt"
	"strings"
)

// Confidence ranks how a candidate was found. Higher is better.
type Confidence int

// Confidence levels, lowest first.
const (
	ConfidenceNone Confidence = iota
	ConfidenceProximity
	ConfidencePositional
	ConfidenceKeyword
)

var confidenceNames = [...]string{"none", "proximity", "positional", "keyword"}

// String returns the name of the confidence level.
func (c Confidence) String() string {
	if c < 0 || int(c) >= len(confidenceNames) {
		return "none"
	}
	return confidenceNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseConfidence returns the confidence level for a name.
func ParseConfidence(s string) (Confidence, error) {
	for i, name := range confidenceNames {
		if name == strings.ToLower(s) {
			return Confidence(i), nil
		}
	}
	return ConfidenceNone, Errorf(EINVALID, "unknown confidence %q", s)
}

// TextSource is the source name of candidates found in running text.
const TextSource = "text"

// Location identifies where a candidate was found. Line is the text line or
// grid row, Col the byte column or grid column, both 1-based. Block is the
// position of the block within its extraction pass.
type Location struct {
	Document string `json:"document"`
	Block    int    `json:"block"`
	Page     int    `json:"page,omitempty"`
	Sheet    string `json:"sheet,omitempty"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// Less reports whether l comes before o in reading order.
func (l Location) Less(o Location) bool {
	if l.Block != o.Block {
		return l.Block < o.Block
	}
	if l.Line != o.Line {
		return l.Line < o.Line
	}
	return l.Col < o.Col
}

// Source returns the sheet name for grid locations and TextSource otherwise.
// Merge precedence is configured in terms of sources.
func (l Location) Source() string {
	if l.Sheet != "" {
		return l.Sheet
	}
	return TextSource
}

// String formats the location for humans, e.g. "cert.xlsx!QUADRO R12C3" or
// "manual.pdf p4 L12".
func (l Location) String() string {
	if l.Sheet != "" {
		return fmt.Sprintf("%s!%s R%dC%d", l.Document, l.Sheet, l.Line, l.Col)
	}
	return fmt.Sprintf("%s p%d L%d", l.Document, l.Page, l.Line)
}

// Key addresses a field in a record. Anchor is empty for document-wide
// fields and holds the anchor label (e.g. "6P") for capacity-indexed fields.
type Key struct {
	Field  string
	Anchor string
}

// String returns "field" or "anchor/field".
func (k Key) String() string {
	if k.Anchor == "" {
		return k.Field
	}
	return k.Anchor + "/" + k.Field
}

// Match is one rule firing on a piece of text. Start and End are byte
// offsets of the value (the first group, or the whole match when the rule
// has no groups) in the text that was scanned.
type Match struct {
	Field      string
	Rule       string
	Value      Value
	Confidence Confidence
	Start      int
	End        int
	Text       string
}

// Matcher applies extraction rules to text.
type Matcher interface {
	// Match returns every plausible match of the rules for the given fields,
	// or of all rules when no field is given, ordered by offset.
	Match(text string, fields ...string) []Match

	// MatchLabeled returns matches of grid label rules whose label pattern
	// matches label and whose value pattern matches value.
	MatchLabeled(label, value string) []Match

	// Schema returns the field metadata the rules were registered against.
	Schema() *Schema
}

// FieldCandidate is a possible value for a field together with where and
// how it was found. Candidates are never mutated after creation.
type FieldCandidate struct {
	Key        Key
	Value      Value
	Location   Location
	Confidence Confidence
	Rule       string
	Text       string
}

// Unit returns the unit of a quantity candidate, or "".
func (c *FieldCandidate) Unit() Unit {
	if c.Value.Kind != KindQuantity {
		return ""
	}
	return c.Value.Quantity.Unit
}

// Better reports whether c should be selected over o: higher confidence
// first, then earliest location.
func (c *FieldCandidate) Better(o *FieldCandidate) bool {
	if c.Confidence != o.Confidence {
		return c.Confidence > o.Confidence
	}
	return c.Location.Less(o.Location)
}
