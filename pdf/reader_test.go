package pdf_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/raftspec"
	rpdf "github.com/fwojciec/raftspec/pdf"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRow(t *testing.T) {
	t.Parallel()

	t.Run("joins adjacent runs without space", func(t *testing.T) {
		t.Parallel()

		got := rpdf.JoinRow([]pdf.Text{
			{S: "P", X: 10, W: 6, FontSize: 10},
			{S: "SI", X: 16, W: 10, FontSize: 10},
		})
		assert.Equal(t, "PSI", got)
	})

	t.Run("separates runs with a gap", func(t *testing.T) {
		t.Parallel()

		got := rpdf.JoinRow([]pdf.Text{
			{S: "6", X: 10, W: 6, FontSize: 10},
			{S: "PERSON", X: 20, W: 40, FontSize: 10},
		})
		assert.Equal(t, "6 PERSON", got)
	})

	t.Run("returns empty for no runs", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, rpdf.JoinRow(nil))
	})
}

func TestReader_ReadBlocks(t *testing.T) {
	t.Parallel()

	t.Run("rejects files that are not PDFs", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "manual.pdf")
		require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

		_, err := rpdf.NewReader().ReadBlocks(context.Background(), path)
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})

	t.Run("fails on missing file", func(t *testing.T) {
		t.Parallel()

		_, err := rpdf.NewReader().ReadBlocks(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
		assert.Error(t, err)
	})
}
