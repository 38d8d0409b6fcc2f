package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/raftspec"
)

// parseRFC3339 parses an RFC3339 formatted timestamp string.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
// SQLite requires a LIMIT before OFFSET, so an offset alone uses LIMIT -1.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	} else if offset > 0 {
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}

// storedValue is the column form of a raftspec.Value. It is also the JSON
// form used inside conflict rows.
type storedValue struct {
	Kind   string  `json:"kind"`
	Number float64 `json:"number,omitempty"`
	Text   string  `json:"text,omitempty"`
	Date   string  `json:"date,omitempty"`
	Unit   string  `json:"unit,omitempty"`
	Flag   bool    `json:"flag,omitempty"`
}

func encodeValue(v raftspec.Value) storedValue {
	s := storedValue{Kind: v.Kind.String()}
	switch v.Kind {
	case raftspec.KindNumber:
		s.Number = v.Number
	case raftspec.KindText:
		s.Text = v.Text
	case raftspec.KindDate:
		s.Date = v.Date.Format(raftspec.DateLayout)
	case raftspec.KindQuantity:
		s.Number = v.Quantity.Value
		s.Unit = string(v.Quantity.Unit)
	case raftspec.KindFlag:
		s.Flag = v.Flag
	}
	return s
}

func (s storedValue) decode() (raftspec.Value, error) {
	kind, err := raftspec.ParseKind(s.Kind)
	if err != nil {
		return raftspec.Value{}, err
	}
	switch kind {
	case raftspec.KindNumber:
		return raftspec.NumberValue(s.Number), nil
	case raftspec.KindText:
		return raftspec.TextValue(s.Text), nil
	case raftspec.KindDate:
		t, err := time.Parse(raftspec.DateLayout, s.Date)
		if err != nil {
			return raftspec.Value{}, fmt.Errorf("failed to parse date: %w", err)
		}
		return raftspec.DateValue(t), nil
	case raftspec.KindQuantity:
		return raftspec.QuantityValue(raftspec.Quantity{Value: s.Number, Unit: raftspec.Unit(s.Unit)}), nil
	case raftspec.KindFlag:
		return raftspec.FlagValue(s.Flag), nil
	}
	return raftspec.Value{}, nil
}

// storedCandidate is the JSON form of a conflicting candidate.
type storedCandidate struct {
	Field      string            `json:"field"`
	Anchor     string            `json:"anchor,omitempty"`
	Value      storedValue       `json:"value"`
	Location   raftspec.Location `json:"location"`
	Confidence string            `json:"confidence"`
	Rule       string            `json:"rule,omitempty"`
	Text       string            `json:"text,omitempty"`
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
