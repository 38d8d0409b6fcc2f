package merge_test

import (
	"testing"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *raftspec.Schema {
	t.Helper()
	s, err := raftspec.NewSchema(
		raftspec.FieldSpec{Name: raftspec.FieldCertificateNumber, Family: raftspec.FamilyAdministrative, Required: true},
		raftspec.FieldSpec{Name: raftspec.FieldSerialNumber, Family: raftspec.FamilyAdministrative, Required: true},
		raftspec.FieldSpec{Name: raftspec.FieldCapacity, Family: raftspec.FamilyTechnical, Anchor: true},
		raftspec.FieldSpec{Name: raftspec.FieldCO2Charge, Family: raftspec.FamilyTechnical, Indexed: true, Unit: raftspec.UnitGram},
		raftspec.FieldSpec{Name: raftspec.FieldWorkingPressure, Family: raftspec.FamilyTechnical, Unit: raftspec.UnitPSI},
		raftspec.FieldSpec{Name: raftspec.FieldWeakLink, Family: raftspec.FamilyTechnical, Multi: true, Unit: raftspec.UnitKN},
	)
	require.NoError(t, err)
	return s
}

var testPrecedence = merge.Precedence{
	raftspec.FamilyAdministrative: {"CERTIFICADO", "QUADRO", raftspec.TextSource},
	raftspec.FamilyTechnical:      {raftspec.TextSource, "CERTIFICADO", "QUADRO"},
}

func candidate(field string, v raftspec.Value, sheet string, conf raftspec.Confidence) *raftspec.FieldCandidate {
	return &raftspec.FieldCandidate{
		Key:        raftspec.Key{Field: field},
		Value:      v,
		Location:   raftspec.Location{Document: "cert.xlsx", Sheet: sheet, Line: 1, Col: 1},
		Confidence: conf,
	}
}

func partial(candidates ...*raftspec.FieldCandidate) *raftspec.PartialRecord {
	r := &raftspec.PartialRecord{Document: "cert.xlsx"}
	for _, c := range candidates {
		if s := r.Get(c.Key); s != nil {
			s.Values = append(s.Values, c)
			continue
		}
		r.Selections = append(r.Selections, &raftspec.Selection{Key: c.Key, Best: c, Values: []*raftspec.FieldCandidate{c}})
	}
	return r
}

func psi(v float64) raftspec.Value {
	return raftspec.QuantityValue(raftspec.Quantity{Value: v, Unit: raftspec.UnitPSI})
}

func TestPrecedence_Rank(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, testPrecedence.Rank(raftspec.FamilyAdministrative, "certificado"))
	assert.Equal(t, 2, testPrecedence.Rank(raftspec.FamilyAdministrative, raftspec.TextSource))
	assert.Equal(t, 3, testPrecedence.Rank(raftspec.FamilyAdministrative, "NOTES"))
	assert.Equal(t, 0, testPrecedence.Rank("unknown", "NOTES"))
}

func TestMerger_Merge(t *testing.T) {
	t.Parallel()

	t.Run("backfills a field missing from one record", func(t *testing.T) {
		t.Parallel()

		// Given: the certificate sheet lacks the serial number the quadro sheet has
		cert := partial(candidate(raftspec.FieldCertificateNumber, raftspec.TextValue("AZ25-028"), "CERTIFICADO", raftspec.ConfidenceKeyword))
		cert.Incomplete = true
		cert.Missing = []string{raftspec.FieldSerialNumber}
		quadro := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("12345"), "QUADRO", raftspec.ConfidencePositional))
		quadro.Incomplete = true
		quadro.Missing = []string{raftspec.FieldCertificateNumber}

		// When
		got, err := merge.NewMerger(testSchema(t), merge.WithPrecedence(testPrecedence)).Merge([]*raftspec.PartialRecord{cert, quadro})
		require.NoError(t, err)

		// Then: the record is complete and carries no conflict
		assert.False(t, got.Incomplete)
		assert.Empty(t, got.Missing)
		assert.Empty(t, got.Conflicts)
		serial, ok := got.Value(raftspec.FieldSerialNumber)
		require.True(t, ok)
		assert.Equal(t, raftspec.TextValue("12345"), serial)
		assert.Equal(t, "AZ25-028", got.PrimaryIdentifier)
		assert.Equal(t, "cert.xlsx", got.Document)
	})

	t.Run("treats equal quantities in different units as agreement", func(t *testing.T) {
		t.Parallel()

		a := partial(candidate(raftspec.FieldWorkingPressure, psi(2), raftspec.TextSource, raftspec.ConfidenceKeyword))
		b := partial(candidate(raftspec.FieldWorkingPressure, raftspec.QuantityValue(raftspec.Quantity{Value: 1406.14, Unit: raftspec.UnitMMWG}), "QUADRO", raftspec.ConfidenceKeyword))

		got, err := merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{a, b})
		require.NoError(t, err)

		assert.Empty(t, got.Conflicts)
		v, ok := got.Value(raftspec.FieldWorkingPressure)
		require.True(t, ok)
		assert.Equal(t, psi(2), v)
	})

	t.Run("stores quantities in the declared unit", func(t *testing.T) {
		t.Parallel()

		c := candidate(raftspec.FieldCO2Charge, raftspec.QuantityValue(raftspec.Quantity{Value: 0.32, Unit: raftspec.UnitKilogram}), raftspec.TextSource, raftspec.ConfidenceProximity)
		c.Key.Anchor = "6P"

		got, err := merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{partial(c)})
		require.NoError(t, err)

		f := got.Field(raftspec.Key{Field: raftspec.FieldCO2Charge, Anchor: "6P"})
		require.NotNil(t, f)
		assert.Equal(t, raftspec.UnitGram, f.Value().Quantity.Unit)
		assert.InDelta(t, 320, f.Value().Quantity.Value, 1e-9)
		assert.Equal(t, []string{"6P"}, got.Anchors())
	})

	t.Run("prefers higher confidence", func(t *testing.T) {
		t.Parallel()

		a := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("111"), "CERTIFICADO", raftspec.ConfidenceProximity))
		b := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("222"), raftspec.TextSource, raftspec.ConfidenceKeyword))

		got, err := merge.NewMerger(testSchema(t), merge.WithPrecedence(testPrecedence)).Merge([]*raftspec.PartialRecord{a, b})
		require.NoError(t, err)

		v, _ := got.Value(raftspec.FieldSerialNumber)
		assert.Equal(t, raftspec.TextValue("222"), v)
		assert.Empty(t, got.Conflicts)
	})

	t.Run("breaks confidence ties by source precedence", func(t *testing.T) {
		t.Parallel()

		a := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("111"), raftspec.TextSource, raftspec.ConfidenceKeyword))
		b := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("222"), "CERTIFICADO", raftspec.ConfidenceKeyword))

		got, err := merge.NewMerger(testSchema(t), merge.WithPrecedence(testPrecedence)).Merge([]*raftspec.PartialRecord{a, b})
		require.NoError(t, err)

		v, _ := got.Value(raftspec.FieldSerialNumber)
		assert.Equal(t, raftspec.TextValue("222"), v)
		assert.Equal(t, "CERTIFICADO", got.Field(raftspec.Key{Field: raftspec.FieldSerialNumber}).Source.Sheet)
		assert.Empty(t, got.Conflicts)
	})

	t.Run("records unresolved ties as conflicts and adopts the first", func(t *testing.T) {
		t.Parallel()

		a := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("111"), "NOTES", raftspec.ConfidenceKeyword))
		b := partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("222"), "OTHER", raftspec.ConfidenceKeyword))

		got, err := merge.NewMerger(testSchema(t), merge.WithPrecedence(testPrecedence)).Merge([]*raftspec.PartialRecord{a, b})
		require.NoError(t, err)

		v, _ := got.Value(raftspec.FieldSerialNumber)
		assert.Equal(t, raftspec.TextValue("111"), v)
		require.Len(t, got.Conflicts, 1)
		assert.Equal(t, raftspec.Key{Field: raftspec.FieldSerialNumber}, got.Conflicts[0].Key)
		assert.Equal(t, raftspec.TextValue("111"), got.Conflicts[0].Adopted)
		assert.Len(t, got.Conflicts[0].Candidates, 2)
	})

	t.Run("merges the same partials the same way every time", func(t *testing.T) {
		t.Parallel()

		// Given: conflicting partials across several fields
		partials := func() []*raftspec.PartialRecord {
			charge := candidate(raftspec.FieldCO2Charge, raftspec.QuantityValue(raftspec.Quantity{Value: 320, Unit: raftspec.UnitGram}), "NOTES", raftspec.ConfidenceProximity)
			charge.Key.Anchor = "6P"
			other := candidate(raftspec.FieldCO2Charge, raftspec.QuantityValue(raftspec.Quantity{Value: 0.35, Unit: raftspec.UnitKilogram}), "OTHER", raftspec.ConfidenceProximity)
			other.Key.Anchor = "6P"
			return []*raftspec.PartialRecord{
				partial(
					candidate(raftspec.FieldSerialNumber, raftspec.TextValue("111"), "NOTES", raftspec.ConfidenceKeyword),
					candidate(raftspec.FieldWorkingPressure, psi(2), "NOTES", raftspec.ConfidenceKeyword),
					charge,
				),
				partial(
					candidate(raftspec.FieldSerialNumber, raftspec.TextValue("222"), "OTHER", raftspec.ConfidenceKeyword),
					candidate(raftspec.FieldWorkingPressure, psi(3), "OTHER", raftspec.ConfidenceKeyword),
					other,
				),
			}
		}
		m := merge.NewMerger(testSchema(t), merge.WithPrecedence(testPrecedence))

		// When
		first, err := m.Merge(partials())
		require.NoError(t, err)
		second, err := m.Merge(partials())
		require.NoError(t, err)

		// Then
		require.Len(t, first.Conflicts, 3)
		assert.Equal(t, first.Fields, second.Fields)
		assert.Equal(t, first.Conflicts, second.Conflicts)
		assert.Equal(t, first, second)
	})

	t.Run("compares text ignoring case", func(t *testing.T) {
		t.Parallel()

		a := partial(candidate(raftspec.FieldCertificateNumber, raftspec.TextValue("AZ25-028"), "NOTES", raftspec.ConfidenceKeyword))
		b := partial(candidate(raftspec.FieldCertificateNumber, raftspec.TextValue("az25-028 "), "OTHER", raftspec.ConfidenceKeyword))

		got, err := merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{a, b})
		require.NoError(t, err)
		assert.Empty(t, got.Conflicts)
		assert.Equal(t, "AZ25-028", got.PrimaryIdentifier)
	})

	t.Run("unions multi-valued fields", func(t *testing.T) {
		t.Parallel()

		kn := func(v float64) raftspec.Value {
			return raftspec.QuantityValue(raftspec.Quantity{Value: v, Unit: raftspec.UnitKN})
		}
		a := partial(
			candidate(raftspec.FieldWeakLink, kn(2.2), raftspec.TextSource, raftspec.ConfidenceKeyword),
			candidate(raftspec.FieldWeakLink, kn(3.5), raftspec.TextSource, raftspec.ConfidenceKeyword),
		)
		b := partial(candidate(raftspec.FieldWeakLink, kn(2.2), "QUADRO", raftspec.ConfidencePositional))

		got, err := merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{a, b})
		require.NoError(t, err)

		f := got.Field(raftspec.Key{Field: raftspec.FieldWeakLink})
		require.NotNil(t, f)
		assert.True(t, f.Multi)
		assert.Equal(t, []raftspec.Value{kn(2.2), kn(3.5)}, f.Values)
		assert.Empty(t, got.Conflicts)
	})

	t.Run("falls back to serial number as identifier", func(t *testing.T) {
		t.Parallel()

		got, err := merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{
			partial(candidate(raftspec.FieldSerialNumber, raftspec.TextValue("12345"), "QUADRO", raftspec.ConfidencePositional)),
		})
		require.NoError(t, err)

		assert.Equal(t, "12345", got.PrimaryIdentifier)
		assert.True(t, got.Incomplete)
		assert.Equal(t, []string{raftspec.FieldCertificateNumber}, got.Missing)
	})

	t.Run("fails on quantities of the wrong dimension", func(t *testing.T) {
		t.Parallel()

		_, err := merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{
			partial(candidate(raftspec.FieldWorkingPressure, raftspec.QuantityValue(raftspec.Quantity{Value: 3, Unit: raftspec.UnitKN}), raftspec.TextSource, raftspec.ConfidenceKeyword)),
		})
		assert.Equal(t, raftspec.ECONVERSION, raftspec.ErrorCode(err))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := merge.NewMerger(testSchema(t)).Merge(nil)
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))

		_, err = merge.NewMerger(testSchema(t)).Merge([]*raftspec.PartialRecord{nil})
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})
}
