package pattern

import "github.com/fwojciec/raftspec"

// Range is an inclusive [Min, Max] interval of plausible values.
type Range struct {
	Min float64 `koanf:"min" yaml:"min"`
	Max float64 `koanf:"max" yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges holds plausibility ranges keyed by unit ("psi"), by field
// ("capacity") or by field and unit ("packed_weight:kg").
type Ranges map[string]Range

// Lookup returns the most specific range for a field and unit: field:unit,
// then unit, then field.
func (rs Ranges) Lookup(field string, u raftspec.Unit) (Range, bool) {
	if u != "" {
		if r, ok := rs[field+":"+string(u)]; ok {
			return r, true
		}
		if r, ok := rs[string(u)]; ok {
			return r, true
		}
	}
	r, ok := rs[field]
	return r, ok
}

// Plausible reports whether a numeric or quantity value lies within the
// range configured for it. Values of other kinds, and values with no
// configured range, are always plausible.
func (rs Ranges) Plausible(field string, v raftspec.Value) bool {
	var n float64
	var u raftspec.Unit
	switch v.Kind {
	case raftspec.KindNumber:
		n = v.Number
	case raftspec.KindQuantity:
		n, u = v.Quantity.Value, v.Quantity.Unit
	default:
		return true
	}
	r, ok := rs.Lookup(field, u)
	if !ok {
		return true
	}
	return r.Contains(n)
}
