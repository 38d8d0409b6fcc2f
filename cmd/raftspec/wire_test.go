package main_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fwojciec/raftspec"
	main "github.com/fwojciec/raftspec/cmd/raftspec"
	"github.com/fwojciec/raftspec/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewPipeline(t *testing.T) {
	t.Parallel()

	t.Run("wires the default configuration", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Default()
		require.NoError(t, err)

		p, err := main.NewPipeline(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)

		assert.Contains(t, p.Readers, ".pdf")
		assert.Contains(t, p.Readers, ".xlsx")
		assert.Contains(t, p.Readers, ".xlsm")
		assert.NotNil(t, p.Extractor)
		assert.NotNil(t, p.Merger)
		assert.NotNil(t, p.Deduplicator)
	})

	t.Run("extracts a certificate workbook", func(t *testing.T) {
		t.Parallel()

		// Given: a certificate sheet with a header row above its values
		f := excelize.NewFile()
		defer func() { _ = f.Close() }()
		require.NoError(t, f.SetSheetName("Sheet1", "CERTIFICADO"))
		require.NoError(t, f.SetCellValue("CERTIFICADO", "A1", "CERTIFICADO AZ25-028"))
		for cell, v := range map[string]any{
			"A3": "MARCA/MODELO", "B3": "CAPACIDADE", "C3": "Nº SÉRIE", "D3": "CO2 (kg)", "E3": "N2 (kg)",
			"A4": "VIKING 25DKS", "B4": 6, "C4": "ABC123", "D4": 4.5, "E4": 0.15,
		} {
			require.NoError(t, f.SetCellValue("CERTIFICADO", cell, v))
		}
		path := filepath.Join(t.TempDir(), "cert.xlsx")
		require.NoError(t, f.SaveAs(path))

		cfg, err := config.Default()
		require.NoError(t, err)
		p, err := main.NewPipeline(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)

		// When
		result, err := p.Run(context.Background(), []string{path})

		// Then
		require.NoError(t, err)
		require.Empty(t, result.Failures)
		require.Len(t, result.Records, 1)
		record := result.Records[0]

		serial, ok := record.Value(raftspec.FieldSerialNumber)
		require.True(t, ok)
		assert.Equal(t, raftspec.TextValue("ABC123"), serial)

		co2 := record.Field(raftspec.Key{Field: raftspec.FieldCO2Charge, Anchor: "6P"})
		require.NotNil(t, co2)
		assert.Equal(t, raftspec.UnitGram, co2.Value().Quantity.Unit)
		assert.InDelta(t, 4500, co2.Value().Quantity.Value, 1e-9)
	})
}
