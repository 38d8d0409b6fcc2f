package raftspec

import (
	"encoding/json"
	"strconv"
	"time"
)

// DateLayout is the ISO 8601 layout dates are serialized with.
const DateLayout = "2006-01-02"

// Kind identifies which member of a Value is set.
type Kind int

// Value kinds.
const (
	KindNone Kind = iota
	KindNumber
	KindText
	KindDate
	KindQuantity
	KindFlag
)

var kindNames = [...]string{"none", "number", "text", "date", "quantity", "flag"}

// String returns the storage name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "none"
	}
	return kindNames[k]
}

// ParseKind returns the kind for a storage name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindNone, Errorf(EINVALID, "unknown value kind %q", s)
}

// Value is a typed extracted value: a number, a string, a date, a
// unit-tagged quantity or a flag.
type Value struct {
	Kind     Kind
	Number   float64
	Text     string
	Date     time.Time
	Quantity Quantity
	Flag     bool
}

// NumberValue returns a number value.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// TextValue returns a string value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// DateValue returns a date value truncated to the calendar day in UTC.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{Kind: KindDate, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// QuantityValue returns a unit-tagged value.
func QuantityValue(q Quantity) Value { return Value{Kind: KindQuantity, Quantity: q} }

// FlagValue returns a boolean value.
func FlagValue(b bool) Value { return Value{Kind: KindFlag, Flag: b} }

// IsZero reports whether no member is set.
func (v Value) IsZero() bool { return v.Kind == KindNone }

// Equal reports whether v and o hold the same kind and the same value.
// Quantities are compared as written; unit-aware comparison lives in the
// unit package.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number == o.Number
	case KindText:
		return v.Text == o.Text
	case KindDate:
		return v.Date.Equal(o.Date)
	case KindQuantity:
		return v.Quantity == o.Quantity
	case KindFlag:
		return v.Flag == o.Flag
	}
	return true
}

// String returns a human readable form of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindDate:
		return v.Date.Format(DateLayout)
	case KindQuantity:
		return v.Quantity.String()
	case KindFlag:
		return strconv.FormatBool(v.Flag)
	}
	return ""
}

// MarshalJSON encodes dates as ISO 8601 strings and quantities as
// {value, unit} objects.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindText:
		return json.Marshal(v.Text)
	case KindDate:
		return json.Marshal(v.Date.Format(DateLayout))
	case KindQuantity:
		return json.Marshal(v.Quantity)
	case KindFlag:
		return json.Marshal(v.Flag)
	}
	return []byte("null"), nil
}
