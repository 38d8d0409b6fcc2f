// Package extract drives one extraction pass over a document's raw blocks.
package extract

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/window"
)

// Ensure Engine implements raftspec.RecordExtractor at compile time.
var _ raftspec.RecordExtractor = (*Engine)(nil)

// labelReach is how many rows below a header cell are searched for its
// value cell.
const labelReach = 2

// Engine turns raw blocks into a partial record.
type Engine struct {
	matcher raftspec.Matcher
	context *window.Extractor
	window  window.Window
}

// NewEngine returns an engine applying m's rules and gathering
// anchor-indexed fields within w.
func NewEngine(m raftspec.Matcher, w window.Window) *Engine {
	return &Engine{
		matcher: m,
		context: window.NewExtractor(m),
		window:  w,
	}
}

// Extract runs one pass:
//
//  1. rules for document-wide fields run over every block, and grid header
//     rules over every header cell;
//  2. each anchor match opens a context window that gathers the indexed
//     fields, keyed by the anchor's label; with no anchor in the pass the
//     indexed fields are matched document-wide instead;
//  3. indexed values read under grid headers belong to the nearest anchor
//     before them in the same sheet, or are document-wide when the sheet
//     has none;
//  4. for each key the candidate with the highest confidence wins, the
//     earliest location breaking ties.
//
// Missing required fields mark the record incomplete. Extract fails only for
// empty or malformed input.
func (e *Engine) Extract(blocks []*raftspec.RawBlock) (*raftspec.PartialRecord, error) {
	if len(blocks) == 0 {
		return nil, raftspec.Errorf(raftspec.EINVALID, "no raw blocks to extract from")
	}
	for i, b := range blocks {
		if b == nil {
			return nil, raftspec.Errorf(raftspec.EINVALID, "raw block %d is nil", i)
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if b.Document != blocks[0].Document {
			return nil, raftspec.Errorf(raftspec.EINVALID, "pass mixes documents %q and %q", blocks[0].Document, b.Document)
		}
	}

	schema := e.matcher.Schema()
	anchorSpec, hasAnchor := schema.Anchor()

	views := make([][]raftspec.Line, len(blocks))
	var candidates, anchors, headed []*raftspec.FieldCandidate
	for i, b := range blocks {
		views[i] = b.TextLines(i)
		found := e.direct(views[i], schema.Direct())
		if b.IsGrid() {
			for _, c := range e.labeled(b, i) {
				if spec, _ := schema.Lookup(c.Key.Field); spec.Indexed {
					headed = append(headed, c)
					continue
				}
				found = append(found, c)
			}
		}
		for _, c := range found {
			if hasAnchor && c.Key.Field == anchorSpec.Name {
				anchors = append(anchors, c)
			}
		}
		candidates = append(candidates, found...)
	}

	if indexed := schema.Indexed(); len(indexed) > 0 {
		if len(anchors) == 0 {
			for _, lines := range views {
				candidates = append(candidates, e.direct(lines, indexed)...)
			}
		}
		byBlock := make([][]*raftspec.FieldCandidate, len(blocks))
		seen := make(map[string]bool)
		for _, a := range anchors {
			id := a.Location.String() + "#" + strconv.Itoa(a.Location.Col) + "#" + window.Label(a.Value)
			if seen[id] {
				continue
			}
			seen[id] = true
			byBlock[a.Location.Block] = append(byBlock[a.Location.Block], a)
		}
		for i, group := range byBlock {
			if len(group) == 0 {
				continue
			}
			found, err := e.context.ExtractAround(views[i], group, e.window)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, found...)
		}
		for _, c := range headed {
			candidates = append(candidates, assign(c, byBlock[c.Location.Block]))
		}
	}

	record := &raftspec.PartialRecord{
		Document:    blocks[0].Document,
		Fingerprint: Fingerprint(blocks),
		Selections:  selectBest(schema, candidates),
		Candidates:  candidates,
	}
	for _, name := range schema.Required() {
		if record.Get(raftspec.Key{Field: name}) == nil {
			record.Incomplete = true
			record.Missing = append(record.Missing, name)
		}
	}
	return record, nil
}

// direct matches fields over a whole block.
func (e *Engine) direct(lines []raftspec.Line, fields []string) []*raftspec.FieldCandidate {
	if len(fields) == 0 {
		return nil
	}
	passage := raftspec.NewPassage(lines)
	var candidates []*raftspec.FieldCandidate
	for _, m := range e.matcher.Match(passage.Text, fields...) {
		candidates = append(candidates, &raftspec.FieldCandidate{
			Key:        raftspec.Key{Field: m.Field},
			Value:      m.Value,
			Location:   passage.Locate(m.Start),
			Confidence: m.Confidence,
			Rule:       m.Rule,
			Text:       m.Text,
		})
	}
	return candidates
}

// labeled applies grid header rules: each non-empty cell is tried as a
// header for the nearest non-empty cell below it.
func (e *Engine) labeled(b *raftspec.RawBlock, index int) []*raftspec.FieldCandidate {
	schema := e.matcher.Schema()
	var candidates []*raftspec.FieldCandidate
	for r, row := range b.Grid {
		for c, header := range row {
			if header.Kind != raftspec.CellText {
				continue
			}
			vr, value, ok := below(b.Grid, r, c)
			if !ok {
				continue
			}
			for _, m := range e.matcher.MatchLabeled(header.Text, value.String()) {
				if _, ok := schema.Lookup(m.Field); !ok {
					continue
				}
				candidates = append(candidates, &raftspec.FieldCandidate{
					Key:   raftspec.Key{Field: m.Field},
					Value: m.Value,
					Location: raftspec.Location{
						Document: b.Document,
						Block:    index,
						Sheet:    b.Sheet,
						Line:     vr + 1,
						Col:      c + 1,
					},
					Confidence: m.Confidence,
					Rule:       m.Rule,
					Text:       m.Text,
				})
			}
		}
	}
	return candidates
}

// assign keys a value read under a grid header by the nearest anchor at or
// before it, or by the block's first anchor when the value comes first.
func assign(c *raftspec.FieldCandidate, anchors []*raftspec.FieldCandidate) *raftspec.FieldCandidate {
	if len(anchors) == 0 {
		return c
	}
	var owner, first *raftspec.FieldCandidate
	for _, a := range anchors {
		if first == nil || a.Location.Less(first.Location) {
			first = a
		}
		if c.Location.Less(a.Location) {
			continue
		}
		if owner == nil || owner.Location.Less(a.Location) {
			owner = a
		}
	}
	if owner == nil {
		owner = first
	}
	n := *c
	n.Key.Anchor = window.Label(owner.Value)
	return &n
}

func below(grid [][]raftspec.Cell, r, c int) (int, raftspec.Cell, bool) {
	for vr := r + 1; vr <= r+labelReach && vr < len(grid); vr++ {
		if c < len(grid[vr]) && !grid[vr][c].IsEmpty() {
			return vr, grid[vr][c], true
		}
	}
	return 0, raftspec.Cell{}, false
}

// selectBest groups candidates by key in order of first appearance and picks
// the best of each group. Multi-valued fields also keep each distinct value,
// represented by its best candidate.
func selectBest(schema *raftspec.Schema, candidates []*raftspec.FieldCandidate) []*raftspec.Selection {
	var selections []*raftspec.Selection
	byKey := make(map[raftspec.Key]*raftspec.Selection)
	for _, c := range candidates {
		s := byKey[c.Key]
		if s == nil {
			s = &raftspec.Selection{Key: c.Key, Best: c}
			byKey[c.Key] = s
			selections = append(selections, s)
		} else if c.Better(s.Best) {
			s.Best = c
		}

		spec, _ := schema.Lookup(c.Key.Field)
		if !spec.Multi {
			continue
		}
		i := indexOf(s.Values, c.Value)
		switch {
		case i < 0:
			s.Values = append(s.Values, c)
		case c.Better(s.Values[i]):
			s.Values[i] = c
		}
	}
	for _, s := range selections {
		if s.Values == nil {
			s.Values = []*raftspec.FieldCandidate{s.Best}
		}
	}
	return selections
}

func indexOf(values []*raftspec.FieldCandidate, v raftspec.Value) int {
	for i, c := range values {
		if c.Value.Equal(v) {
			return i
		}
	}
	return -1
}

// Fingerprint hashes the content of a pass so repeated passes over unchanged
// input can be recognized.
func Fingerprint(blocks []*raftspec.RawBlock) string {
	h := xxhash.New()
	for _, b := range blocks {
		_, _ = h.WriteString(b.Document)
		_, _ = h.WriteString("\x00" + b.Sheet + "\x00" + strconv.Itoa(b.Page) + "\x00")
		for _, line := range b.Lines {
			_, _ = h.WriteString(line)
			_, _ = h.WriteString("\n")
		}
		for _, row := range b.Grid {
			for _, cell := range row {
				_, _ = h.WriteString(cell.String())
				_, _ = h.WriteString("\x1f")
			}
			_, _ = h.WriteString("\n")
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
