package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(identifier, document string) *raftspec.CanonicalRecord {
	src := raftspec.Location{Document: document, Sheet: "CERTIFICADO", Line: 2, Col: 1}
	return &raftspec.CanonicalRecord{
		PrimaryIdentifier: identifier,
		Document:          document,
		Fields: []*raftspec.CanonicalField{
			{
				Key:        raftspec.Key{Field: raftspec.FieldCertificateNumber},
				Values:     []raftspec.Value{raftspec.TextValue(identifier)},
				Source:     src,
				Confidence: raftspec.ConfidenceKeyword,
			},
			{
				Key:        raftspec.Key{Field: raftspec.FieldInspectionDate},
				Values:     []raftspec.Value{raftspec.DateValue(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))},
				Source:     src,
				Confidence: raftspec.ConfidencePositional,
			},
			{
				Key:        raftspec.Key{Field: raftspec.FieldCO2Charge, Anchor: "6P"},
				Values:     []raftspec.Value{raftspec.QuantityValue(raftspec.Quantity{Value: 320, Unit: raftspec.UnitGram})},
				Source:     raftspec.Location{Document: document, Page: 4, Line: 12, Col: 5},
				Confidence: raftspec.ConfidenceProximity,
			},
			{
				Key: raftspec.Key{Field: raftspec.FieldTorque},
				Values: []raftspec.Value{
					raftspec.QuantityValue(raftspec.Quantity{Value: 12, Unit: raftspec.UnitNm}),
					raftspec.QuantityValue(raftspec.Quantity{Value: 20, Unit: raftspec.UnitNm}),
				},
				Multi:      true,
				Source:     src,
				Confidence: raftspec.ConfidenceKeyword,
			},
			{
				Key:        raftspec.Key{Field: raftspec.FieldDavitLaunch},
				Values:     []raftspec.Value{raftspec.FlagValue(true)},
				Source:     src,
				Confidence: raftspec.ConfidenceKeyword,
			},
			{
				Key:        raftspec.Key{Field: raftspec.FieldCapacity},
				Values:     []raftspec.Value{raftspec.NumberValue(6)},
				Source:     src,
				Confidence: raftspec.ConfidencePositional,
			},
		},
		Conflicts: []*raftspec.Conflict{{
			Key:     raftspec.Key{Field: raftspec.FieldSerialNumber},
			Adopted: raftspec.TextValue("111"),
			Candidates: []*raftspec.FieldCandidate{
				{Key: raftspec.Key{Field: raftspec.FieldSerialNumber}, Value: raftspec.TextValue("111"), Location: src, Confidence: raftspec.ConfidenceKeyword, Rule: "serial-labelled"},
				{Key: raftspec.Key{Field: raftspec.FieldSerialNumber}, Value: raftspec.TextValue("222"), Location: src, Confidence: raftspec.ConfidenceKeyword, Rule: "serial-labelled"},
			},
		}},
		Incomplete: true,
		Missing:    []string{raftspec.FieldSerialNumber},
	}
}

func TestRecordService_CreateRecord(t *testing.T) {
	t.Parallel()

	t.Run("stores record with generated ID and timestamp", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRecordService(setupTestDB(t))
		record := testRecord("AZ25-028", "a.xlsx")

		err := svc.CreateRecord(context.Background(), record)
		require.NoError(t, err)

		assert.NotEmpty(t, record.ID)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("returns error for invalid record", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRecordService(setupTestDB(t))

		err := svc.CreateRecord(context.Background(), &raftspec.CanonicalRecord{})
		require.Error(t, err)
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})
}

func TestRecordService_FindRecordByID(t *testing.T) {
	t.Parallel()

	t.Run("round-trips fields and conflicts", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRecordService(setupTestDB(t))
		ctx := context.Background()
		record := testRecord("AZ25-028", "a.xlsx")
		require.NoError(t, svc.CreateRecord(ctx, record))

		got, err := svc.FindRecordByID(ctx, record.ID)
		require.NoError(t, err)

		assert.Equal(t, record, got)
	})

	t.Run("returns ENOTFOUND for missing record", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRecordService(setupTestDB(t))

		_, err := svc.FindRecordByID(context.Background(), "missing")
		assert.Equal(t, raftspec.ENOTFOUND, raftspec.ErrorCode(err))
	})
}

func TestRecordService_FindRecords(t *testing.T) {
	t.Parallel()

	svc := sqlite.NewRecordService(setupTestDB(t))
	ctx := context.Background()
	for _, r := range []*raftspec.CanonicalRecord{
		testRecord("AZ25-028", "a.xlsx"),
		testRecord("AZ25-029", "b.xlsx"),
		testRecord("AZ25-030", "c.pdf"),
	} {
		require.NoError(t, svc.CreateRecord(ctx, r))
	}

	t.Run("returns all records in creation order", func(t *testing.T) {
		t.Parallel()

		got, err := svc.FindRecords(ctx, raftspec.RecordFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "a.xlsx", got[0].Document)
		assert.Equal(t, "c.pdf", got[2].Document)
		assert.Len(t, got[1].Fields, 6)
	})

	t.Run("filters by identifier", func(t *testing.T) {
		t.Parallel()

		id := "AZ25-029"
		got, err := svc.FindRecords(ctx, raftspec.RecordFilter{PrimaryIdentifier: &id})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b.xlsx", got[0].Document)
	})

	t.Run("filters by document", func(t *testing.T) {
		t.Parallel()

		doc := "c.pdf"
		got, err := svc.FindRecords(ctx, raftspec.RecordFilter{Document: &doc})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "AZ25-030", got[0].PrimaryIdentifier)
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()

		got, err := svc.FindRecords(ctx, raftspec.RecordFilter{Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b.xlsx", got[0].Document)

		got, err = svc.FindRecords(ctx, raftspec.RecordFilter{Offset: 2})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c.pdf", got[0].Document)
	})
}

func TestRecordService_Corrections(t *testing.T) {
	t.Parallel()

	t.Run("stores and lists corrections in order", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRecordService(setupTestDB(t))
		ctx := context.Background()

		first := &raftspec.Correction{Document: "b.xlsx", Original: "AZ25-028", Corrected: "AZ25-029"}
		second := &raftspec.Correction{Document: "c.xlsx", Original: "AZ25-028", Corrected: "AZ25-030"}
		require.NoError(t, svc.CreateCorrection(ctx, first))
		require.NoError(t, svc.CreateCorrection(ctx, second))
		assert.NotEmpty(t, first.ID)

		got, err := svc.FindCorrections(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*raftspec.Correction{first, second}, got)
	})

	t.Run("rejects incomplete correction", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRecordService(setupTestDB(t))

		err := svc.CreateCorrection(context.Background(), &raftspec.Correction{Document: "b.xlsx"})
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})
}
