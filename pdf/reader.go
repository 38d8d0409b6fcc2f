// Package pdf reads the text layer of PDF manuals into raw blocks, one per
// page. Scanned pages without a text layer yield no block.
package pdf

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fwojciec/raftspec"
	"github.com/ledongthuc/pdf"
)

// Ensure Reader implements raftspec.BlockReader at compile time.
var _ raftspec.BlockReader = (*Reader)(nil)

// Reader reads PDF files.
type Reader struct{}

// NewReader returns a PDF reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadBlocks returns one text block per page with text, numbered from 1.
// Malformed content streams fail with EINVALID.
func (r *Reader) ReadBlocks(ctx context.Context, path string) (blocks []*raftspec.RawBlock, err error) {
	// The pdf package panics on some malformed streams.
	defer func() {
		if p := recover(); p != nil {
			blocks, err = nil, raftspec.Errorf(raftspec.EINVALID, "read %s: %v", filepath.Base(path), p)
		}
	}()

	f, doc, err := pdf.Open(path)
	if err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "open %s: %s", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(path)
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			return nil, raftspec.Errorf(raftspec.EINVALID, "%s page %d: %s", name, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, raftspec.NewTextBlock(name, i, text))
	}
	return blocks, nil
}

// pageText renders a page row by row, falling back to the plain text
// stream when rows cannot be recovered.
func pageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		return page.GetPlainText(nil)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, JoinRow(row.Content))
	}
	return strings.Join(lines, "\n"), nil
}

// JoinRow joins the text runs of one row left to right, inserting a space
// where the gap between runs is wider than a fraction of the font size.
func JoinRow(texts []pdf.Text) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			if t.X-(prev.X+prev.W) > 0.2*max(t.FontSize, 1) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
	}
	return sb.String()
}
