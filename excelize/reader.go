// Package excelize reads certificate workbooks into raw blocks, one grid
// per sheet.
package excelize

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/raftspec"
	"github.com/xuri/excelize/v2"
)

// Ensure Reader implements raftspec.BlockReader at compile time.
var _ raftspec.BlockReader = (*Reader)(nil)

// Reader reads XLSX workbooks.
type Reader struct{}

// NewReader returns a workbook reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadBlocks returns one grid block per non-empty sheet in workbook order.
// Numeric cells with a date format become date cells; text that merely
// looks numeric stays text.
func (r *Reader) ReadBlocks(ctx context.Context, path string) ([]*raftspec.RawBlock, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "open %s: %s", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(path)
	var blocks []*raftspec.RawBlock
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, raftspec.Errorf(raftspec.EINVALID, "%s!%s: %s", name, sheet, err)
		}
		grid := make([][]raftspec.Cell, len(rows))
		empty := true
		for i, row := range rows {
			grid[i] = make([]raftspec.Cell, len(row))
			for j, raw := range row {
				grid[i][j] = cell(f, sheet, i, j, raw)
				if !grid[i][j].IsEmpty() {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		blocks = append(blocks, &raftspec.RawBlock{Document: name, Sheet: sheet, Grid: grid})
	}
	return blocks, nil
}

func cell(f *excelize.File, sheet string, row, col int, raw string) raftspec.Cell {
	if strings.TrimSpace(raw) == "" {
		return raftspec.Cell{}
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raftspec.TextCell(raw)
	}
	typ, _ := f.GetCellType(sheet, ref)
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return raftspec.TextCell(raw)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return raftspec.DateCell(t.UTC())
		}
		return raftspec.TextCell(raw)
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raftspec.TextCell(raw)
	}
	if isDateFormat(f, sheet, ref) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return raftspec.DateCell(t)
		}
	}
	return raftspec.NumberCell(n)
}

// isDateFormat reports whether the cell's number format shows a date.
func isDateFormat(f *excelize.File, sheet, ref string) bool {
	id, err := f.GetCellStyle(sheet, ref)
	if err != nil {
		return false
	}
	style, err := f.GetStyle(id)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return customDate(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 22, n >= 27 && n <= 36, n >= 45 && n <= 47, n >= 50 && n <= 58:
		return true
	}
	return false
}

// customDate reports whether a custom number format has day or year
// placeholders outside quoted literals.
func customDate(format string) bool {
	quoted := false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			quoted = !quoted
		case !quoted && (r == 'd' || r == 'y'):
			return true
		}
	}
	return false
}
