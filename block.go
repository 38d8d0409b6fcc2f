package raftspec

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CellKind identifies the scalar type held by a grid cell.
type CellKind int

// Cell kinds.
const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is a nullable scalar from a spreadsheet grid.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

// TextCell returns a text cell, or an empty cell for blank text.
func TextCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// DateCell returns a date cell.
func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Date: t} }

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell the way extraction rules see it: numbers in
// shortest form, dates as ISO 8601.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.Format(DateLayout)
	}
	return ""
}

// RawBlock is one page of text or one sheet of cells produced by a document
// reader. Text blocks set Page and Lines; grid blocks set Sheet and Grid.
// Blocks are read-only once built.
type RawBlock struct {
	Document string
	Page     int
	Lines    []string
	Sheet    string
	Grid     [][]Cell
}

// NewTextBlock splits page text into lines. Carriage returns are dropped,
// tabs and runs of spaces collapse to a single space and trailing blank
// lines are removed.
func NewTextBlock(document string, page int, text string) *RawBlock {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return &RawBlock{Document: document, Page: page, Lines: lines}
}

// IsGrid reports whether the block holds cells rather than text lines.
func (b *RawBlock) IsGrid() bool { return b.Grid != nil }

// Label names the block for error messages.
func (b *RawBlock) Label() string {
	if b.IsGrid() {
		return b.Document + "!" + b.Sheet
	}
	return b.Document + " p" + strconv.Itoa(b.Page)
}

// Validate returns an error if the block is malformed or empty.
func (b *RawBlock) Validate() error {
	if b.Document == "" {
		return Errorf(EINVALID, "raw block: document name required")
	}
	if b.Lines != nil && b.Grid != nil {
		return Errorf(EINVALID, "raw block %s: both text and grid set", b.Document)
	}
	if b.IsGrid() {
		if b.Sheet == "" {
			return Errorf(EINVALID, "raw block %s: sheet name required", b.Document)
		}
		for _, row := range b.Grid {
			for _, c := range row {
				if !c.IsEmpty() {
					return nil
				}
			}
		}
		return Errorf(EINVALID, "raw block %s: empty grid", b.Label())
	}
	for _, line := range b.Lines {
		if strings.TrimSpace(line) != "" {
			return nil
		}
	}
	return Errorf(EINVALID, "raw block %s: no text", b.Label())
}

// Span records which grid column produced a byte range of a rendered row.
type Span struct {
	Col   int
	Start int
	End   int
}

// Line is one text line, or one grid row rendered as text, with provenance.
type Line struct {
	Text     string
	Location Location
	Spans    []Span
}

// gridSeparator joins non-empty cells of a rendered grid row.
const gridSeparator = " | "

// TextLines renders the block as lines. Grid rows keep their non-empty
// cells joined by " | " so the same rules apply to text and grids, and each
// cell's byte range is kept in Spans. index is the block's position in its
// pass and becomes Location.Block.
func (b *RawBlock) TextLines(index int) []Line {
	if !b.IsGrid() {
		lines := make([]Line, len(b.Lines))
		for i, text := range b.Lines {
			lines[i] = Line{
				Text:     text,
				Location: Location{Document: b.Document, Block: index, Page: b.Page, Line: i + 1},
			}
		}
		return lines
	}

	lines := make([]Line, len(b.Grid))
	for r, row := range b.Grid {
		var sb strings.Builder
		var spans []Span
		for c, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString(gridSeparator)
			}
			start := sb.Len()
			sb.WriteString(cell.String())
			spans = append(spans, Span{Col: c + 1, Start: start, End: sb.Len()})
		}
		lines[r] = Line{
			Text:     sb.String(),
			Location: Location{Document: b.Document, Block: index, Sheet: b.Sheet, Line: r + 1},
			Spans:    spans,
		}
	}
	return lines
}

// Passage is a run of lines joined by newlines so multi-line rules can match
// across them, while match offsets still map back to a source location.
type Passage struct {
	Text   string
	lines  []Line
	starts []int
}

// NewPassage joins lines into a passage.
func NewPassage(lines []Line) *Passage {
	var sb strings.Builder
	starts := make([]int, len(lines))
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		starts[i] = sb.Len()
		sb.WriteString(line.Text)
	}
	return &Passage{Text: sb.String(), lines: lines, starts: starts}
}

// Lines returns the lines the passage was built from.
func (p *Passage) Lines() []Line { return p.lines }

// LineIndex returns the index of the line containing the byte offset.
func (p *Passage) LineIndex(offset int) int {
	i := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > offset })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Locate maps a byte offset in Text to a source location. For text lines
// Col is the 1-based byte column; for grid rows it is the 1-based column of
// the cell containing the offset.
func (p *Passage) Locate(offset int) Location {
	if len(p.lines) == 0 {
		return Location{}
	}
	i := p.LineIndex(offset)
	line := p.lines[i]
	within := offset - p.starts[i]
	loc := line.Location
	if line.Spans == nil {
		loc.Col = within + 1
		return loc
	}
	for _, s := range line.Spans {
		if within < s.End || s == line.Spans[len(line.Spans)-1] {
			loc.Col = s.Col
			break
		}
	}
	return loc
}

// BlockReader reads a document into raw blocks.
type BlockReader interface {
	// ReadBlocks returns one block per page or sheet. Pages or sheets
	// without content are skipped.
	ReadBlocks(ctx context.Context, path string) ([]*RawBlock, error)
}
