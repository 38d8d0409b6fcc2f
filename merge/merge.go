// Package merge combines the partial records of one document into a single
// canonical record.
package merge

import (
	"strings"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/unit"
)

// Ensure Merger implements raftspec.RecordMerger at compile time.
var _ raftspec.RecordMerger = (*Merger)(nil)

// DefaultTolerance is the relative difference under which two quantities
// are considered the same reading.
const DefaultTolerance = 0.005

// Merger merges partial records.
type Merger struct {
	schema      *raftspec.Schema
	precedence  Precedence
	identifiers []string
	tolerance   float64
}

// Option configures a Merger.
type Option func(*Merger)

// WithPrecedence sets the source ranking used to break confidence ties.
func WithPrecedence(p Precedence) Option {
	return func(m *Merger) {
		m.precedence = p
	}
}

// WithIdentifierFields sets the fields, in order of preference, that supply
// the record's primary identifier.
func WithIdentifierFields(fields ...string) Option {
	return func(m *Merger) {
		m.identifiers = fields
	}
}

// WithTolerance sets the relative tolerance for comparing quantities.
func WithTolerance(t float64) Option {
	return func(m *Merger) {
		m.tolerance = t
	}
}

// NewMerger returns a merger for records extracted with schema.
func NewMerger(schema *raftspec.Schema, opts ...Option) *Merger {
	m := &Merger{
		schema:      schema,
		identifiers: []string{raftspec.FieldCertificateNumber, raftspec.FieldSerialNumber},
		tolerance:   DefaultTolerance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// entry collects the candidates for one key across records.
type entry struct {
	key    raftspec.Key
	best   []*raftspec.FieldCandidate
	values []*raftspec.FieldCandidate
}

// Merge combines records into one canonical record. For each key the best
// candidate of every record is considered:
//
//   - candidates that agree once quantities are in canonical units are
//     adopted as one value;
//   - otherwise the highest confidence wins, then the source ranked first
//     for the field's family;
//   - candidates still tied are recorded as a conflict and the first in
//     record order is adopted.
//
// A field absent from one record is taken from another. Quantities are
// stored in the field's declared unit, or the reference unit of their
// dimension. A quantity that cannot be converted fails with ECONVERSION.
func (m *Merger) Merge(records []*raftspec.PartialRecord) (*raftspec.CanonicalRecord, error) {
	if len(records) == 0 {
		return nil, raftspec.Errorf(raftspec.EINVALID, "no partial records to merge")
	}

	var entries []*entry
	byKey := make(map[raftspec.Key]*entry)
	for i, r := range records {
		if r == nil {
			return nil, raftspec.Errorf(raftspec.EINVALID, "partial record %d is nil", i)
		}
		for _, s := range r.Selections {
			if s.Best == nil {
				continue
			}
			e := byKey[s.Key]
			if e == nil {
				e = &entry{key: s.Key}
				byKey[s.Key] = e
				entries = append(entries, e)
			}
			best, err := m.normalize(s.Best)
			if err != nil {
				return nil, err
			}
			e.best = append(e.best, best)
			values := s.Values
			if len(values) == 0 {
				values = []*raftspec.FieldCandidate{s.Best}
			}
			for _, v := range values {
				c, err := m.normalize(v)
				if err != nil {
					return nil, err
				}
				e.values = append(e.values, c)
			}
		}
	}

	out := &raftspec.CanonicalRecord{Document: records[0].Document}
	for _, e := range entries {
		spec, _ := m.schema.Lookup(e.key.Field)
		if spec.Multi {
			out.Fields = append(out.Fields, m.union(e.key, e.values))
			continue
		}
		field, conflict := m.resolve(spec, e.key, e.best)
		out.Fields = append(out.Fields, field)
		if conflict != nil {
			out.Conflicts = append(out.Conflicts, conflict)
		}
	}

	for _, name := range m.identifiers {
		if v, ok := out.Value(name); ok && v.Kind == raftspec.KindText {
			out.PrimaryIdentifier = v.Text
			break
		}
	}
	for _, name := range m.schema.Required() {
		if out.Field(raftspec.Key{Field: name}) == nil {
			out.Incomplete = true
			out.Missing = append(out.Missing, name)
		}
	}
	return out, nil
}

// normalize returns a copy of c with a quantity value in canonical units.
func (m *Merger) normalize(c *raftspec.FieldCandidate) (*raftspec.FieldCandidate, error) {
	if c.Value.Kind != raftspec.KindQuantity {
		return c, nil
	}
	target := unit.Reference(c.Value.Quantity.Unit.Dimension())
	if spec, ok := m.schema.Lookup(c.Key.Field); ok && spec.Unit != "" {
		target = spec.Unit
	}
	q, err := unit.Convert(c.Value.Quantity, target)
	if err != nil {
		return nil, raftspec.Errorf(raftspec.ECONVERSION, "%s at %s: %s", c.Key, c.Location, raftspec.ErrorMessage(err))
	}
	n := *c
	n.Value = raftspec.QuantityValue(q)
	return &n, nil
}

// same reports whether two values are the same reading: quantities within
// tolerance, text ignoring case and surrounding space.
func (m *Merger) same(a, b raftspec.Value) bool {
	switch {
	case a.Kind == raftspec.KindQuantity && b.Kind == raftspec.KindQuantity:
		eq, err := unit.Equal(a.Quantity, b.Quantity, m.tolerance)
		return err == nil && eq
	case a.Kind == raftspec.KindText && b.Kind == raftspec.KindText:
		return strings.EqualFold(strings.TrimSpace(a.Text), strings.TrimSpace(b.Text))
	}
	return a.Equal(b)
}

func (m *Merger) agree(candidates []*raftspec.FieldCandidate) bool {
	for _, c := range candidates[1:] {
		if !m.same(candidates[0].Value, c.Value) {
			return false
		}
	}
	return true
}

func (m *Merger) resolve(spec raftspec.FieldSpec, key raftspec.Key, candidates []*raftspec.FieldCandidate) (*raftspec.CanonicalField, *raftspec.Conflict) {
	if m.agree(candidates) {
		return field(key, false, candidates[0], top(candidates)), nil
	}

	// Highest confidence first.
	var best []*raftspec.FieldCandidate
	for _, c := range candidates {
		switch {
		case len(best) == 0 || c.Confidence > best[0].Confidence:
			best = []*raftspec.FieldCandidate{c}
		case c.Confidence == best[0].Confidence:
			best = append(best, c)
		}
	}
	if m.agree(best) {
		return field(key, false, best[0], best[0].Confidence), nil
	}

	// Then the most authoritative source.
	var ranked []*raftspec.FieldCandidate
	rank := -1
	for _, c := range best {
		r := m.precedence.Rank(spec.Family, c.Location.Source())
		switch {
		case rank < 0 || r < rank:
			ranked, rank = []*raftspec.FieldCandidate{c}, r
		case r == rank:
			ranked = append(ranked, c)
		}
	}
	f := field(key, false, ranked[0], ranked[0].Confidence)
	if m.agree(ranked) {
		return f, nil
	}
	return f, &raftspec.Conflict{Key: key, Adopted: ranked[0].Value, Candidates: ranked}
}

// union keeps every distinct value of a multi-valued field in order of
// first appearance.
func (m *Merger) union(key raftspec.Key, candidates []*raftspec.FieldCandidate) *raftspec.CanonicalField {
	f := field(key, true, candidates[0], top(candidates))
	f.Values = nil
	for _, c := range candidates {
		seen := false
		for _, v := range f.Values {
			if m.same(v, c.Value) {
				seen = true
				break
			}
		}
		if !seen {
			f.Values = append(f.Values, c.Value)
		}
	}
	return f
}

func field(key raftspec.Key, multi bool, c *raftspec.FieldCandidate, conf raftspec.Confidence) *raftspec.CanonicalField {
	return &raftspec.CanonicalField{
		Key:        key,
		Values:     []raftspec.Value{c.Value},
		Multi:      multi,
		Source:     c.Location,
		Confidence: conf,
	}
}

func top(candidates []*raftspec.FieldCandidate) raftspec.Confidence {
	var conf raftspec.Confidence
	for _, c := range candidates {
		conf = max(conf, c.Confidence)
	}
	return conf
}
