package raftspec_test

import (
	"testing"
	"time"

	"github.com/fwojciec/raftspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextBlock(t *testing.T) {
	t.Parallel()

	b := raftspec.NewTextBlock("manual.pdf", 4, "LIFERAFT   6\tPERSON\r\nCO2 2 x 160g\r\n\n\n")

	assert.Equal(t, "manual.pdf", b.Document)
	assert.Equal(t, 4, b.Page)
	assert.Equal(t, []string{"LIFERAFT 6 PERSON", "CO2 2 x 160g"}, b.Lines)
	assert.False(t, b.IsGrid())
	assert.Equal(t, "manual.pdf p4", b.Label())
}

func TestRawBlock_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block *raftspec.RawBlock
		valid bool
	}{
		{
			name:  "text block",
			block: raftspec.NewTextBlock("manual.pdf", 1, "WEAK LINK 10 kN"),
			valid: true,
		},
		{
			name:  "grid block",
			block: &raftspec.RawBlock{Document: "cert.xlsx", Sheet: "QUADRO", Grid: [][]raftspec.Cell{{raftspec.NumberCell(6)}}},
			valid: true,
		},
		{
			name:  "missing document",
			block: &raftspec.RawBlock{Lines: []string{"x"}},
		},
		{
			name:  "blank text",
			block: raftspec.NewTextBlock("manual.pdf", 1, "  \n \t"),
		},
		{
			name:  "empty grid",
			block: &raftspec.RawBlock{Document: "cert.xlsx", Sheet: "QUADRO", Grid: [][]raftspec.Cell{{raftspec.TextCell("  ")}}},
		},
		{
			name:  "grid without sheet",
			block: &raftspec.RawBlock{Document: "cert.xlsx", Grid: [][]raftspec.Cell{{raftspec.NumberCell(6)}}},
		},
		{
			name:  "both text and grid",
			block: &raftspec.RawBlock{Document: "cert.xlsx", Sheet: "QUADRO", Lines: []string{"x"}, Grid: [][]raftspec.Cell{{raftspec.NumberCell(6)}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.block.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
		})
	}
}

func TestRawBlock_TextLines(t *testing.T) {
	t.Parallel()

	t.Run("text lines keep page and line", func(t *testing.T) {
		t.Parallel()

		b := raftspec.NewTextBlock("manual.pdf", 3, "A\nB")
		lines := b.TextLines(2)

		require.Len(t, lines, 2)
		assert.Equal(t, "B", lines[1].Text)
		assert.Equal(t, raftspec.Location{Document: "manual.pdf", Block: 2, Page: 3, Line: 2}, lines[1].Location)
		assert.Nil(t, lines[1].Spans)
	})

	t.Run("grid rows skip empty cells and record spans", func(t *testing.T) {
		t.Parallel()

		b := &raftspec.RawBlock{
			Document: "cert.xlsx",
			Sheet:    "CERTIFICADO",
			Grid: [][]raftspec.Cell{
				{raftspec.TextCell("SERIAL No."), {}, raftspec.DateCell(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))},
			},
		}
		lines := b.TextLines(0)

		require.Len(t, lines, 1)
		assert.Equal(t, "SERIAL No. | 2025-03-14", lines[0].Text)
		assert.Equal(t, []raftspec.Span{{Col: 1, Start: 0, End: 10}, {Col: 3, Start: 13, End: 23}}, lines[0].Spans)
		assert.Equal(t, "CERTIFICADO", lines[0].Location.Sheet)
	})
}

func TestPassage_Locate(t *testing.T) {
	t.Parallel()

	t.Run("maps offsets to text columns", func(t *testing.T) {
		t.Parallel()

		b := raftspec.NewTextBlock("manual.pdf", 1, "LIFERAFT 6 PERSON\nCO2 2 x 160g")
		p := raftspec.NewPassage(b.TextLines(0))

		assert.Equal(t, "LIFERAFT 6 PERSON\nCO2 2 x 160g", p.Text)
		loc := p.Locate(22) // "2" on the second line
		assert.Equal(t, 2, loc.Line)
		assert.Equal(t, 5, loc.Col)
	})

	t.Run("maps offsets to grid columns", func(t *testing.T) {
		t.Parallel()

		b := &raftspec.RawBlock{
			Document: "cert.xlsx",
			Sheet:    "QUADRO",
			Grid: [][]raftspec.Cell{
				{raftspec.TextCell("CO2"), {}, raftspec.TextCell("320 g")},
			},
		}
		p := raftspec.NewPassage(b.TextLines(0))

		assert.Equal(t, 1, p.Locate(1).Col)
		assert.Equal(t, 3, p.Locate(6).Col)
	})

	t.Run("empty passage", func(t *testing.T) {
		t.Parallel()

		p := raftspec.NewPassage(nil)

		assert.Equal(t, raftspec.Location{}, p.Locate(0))
	})
}

func TestLocation(t *testing.T) {
	t.Parallel()

	grid := raftspec.Location{Document: "cert.xlsx", Sheet: "QUADRO", Line: 12, Col: 3}
	text := raftspec.Location{Document: "manual.pdf", Page: 4, Line: 12, Col: 1}

	assert.Equal(t, "cert.xlsx!QUADRO R12C3", grid.String())
	assert.Equal(t, "manual.pdf p4 L12", text.String())
	assert.Equal(t, "QUADRO", grid.Source())
	assert.Equal(t, raftspec.TextSource, text.Source())
	assert.True(t, raftspec.Location{Block: 0, Line: 5}.Less(raftspec.Location{Block: 1, Line: 1}))
	assert.True(t, raftspec.Location{Line: 2, Col: 9}.Less(raftspec.Location{Line: 3, Col: 1}))
}
