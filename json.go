package raftspec

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Dataset is the output of a batch: the final records and the identifier
// corrections made while deduplicating them.
type Dataset struct {
	Records     []*CanonicalRecord
	Corrections []*Correction
}

// Encoder renders records as JSON with fields in first-appearance order.
// Quantities are rounded to Decimals places; a negative value keeps full
// precision.
type Encoder struct {
	Decimals int
}

// MarshalJSON encodes the record at full precision.
func (r *CanonicalRecord) MarshalJSON() ([]byte, error) {
	return Encoder{Decimals: -1}.Record(r)
}

// Dataset encodes a dataset as {"records": [...], "corrections": [...]}.
func (e Encoder) Dataset(d *Dataset) ([]byte, error) {
	records := make([]json.RawMessage, len(d.Records))
	for i, r := range d.Records {
		b, err := e.Record(r)
		if err != nil {
			return nil, err
		}
		records[i] = b
	}
	corrections := d.Corrections
	if corrections == nil {
		corrections = []*Correction{}
	}
	o := newObject()
	o.Set("records", records)
	o.Set("corrections", corrections)
	return json.Marshal(o)
}

// Record encodes one record. Document-wide fields go under "fields" and
// capacity-indexed fields under "capacities", keyed by anchor label.
func (e Encoder) Record(r *CanonicalRecord) ([]byte, error) {
	o := newObject()
	o.Set("primary_identifier", r.PrimaryIdentifier)
	o.Set("document", r.Document)
	o.Set("incomplete", r.Incomplete)
	if len(r.Missing) > 0 {
		o.Set("missing", r.Missing)
	}

	fields := newObject()
	capacities := newObject()
	for _, f := range r.Fields {
		target := fields
		if f.Key.Anchor != "" {
			v, ok := capacities.Get(f.Key.Anchor)
			if !ok {
				v = newObject()
				capacities.Set(f.Key.Anchor, v)
			}
			target = v.(*object)
		}
		target.Set(f.Key.Field, e.field(f))
	}
	o.Set("fields", fields)
	if capacities.Len() > 0 {
		o.Set("capacities", capacities)
	}

	conflicts := make([]*object, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		conflicts = append(conflicts, e.conflict(c))
	}
	o.Set("conflicts", conflicts)
	return json.Marshal(o)
}

func (e Encoder) field(f *CanonicalField) any {
	if !f.Multi {
		return e.value(f.Value())
	}
	values := make([]Value, len(f.Values))
	for i, v := range f.Values {
		values[i] = e.value(v)
	}
	return values
}

func (e Encoder) conflict(c *Conflict) *object {
	o := newObject()
	o.Set("field", c.Key.Field)
	if c.Key.Anchor != "" {
		o.Set("capacity", c.Key.Anchor)
	}
	o.Set("adopted", e.value(c.Adopted))
	candidates := make([]*object, len(c.Candidates))
	for i, cand := range c.Candidates {
		co := newObject()
		co.Set("value", e.value(cand.Value))
		co.Set("confidence", cand.Confidence)
		co.Set("source", cand.Location.String())
		candidates[i] = co
	}
	o.Set("candidates", candidates)
	return o
}

func (e Encoder) value(v Value) Value {
	if v.Kind == KindQuantity && e.Decimals >= 0 {
		v.Quantity = v.Quantity.Round(e.Decimals)
	}
	return v
}

// object is a JSON object whose keys keep insertion order.
type object = orderedmap.OrderedMap[string, any]

func newObject() *object { return orderedmap.New[string, any]() }
