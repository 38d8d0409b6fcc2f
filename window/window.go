// Package window gathers values that belong to an anchor match, such as the
// CO2 charge and packed weight listed near a "6 PERSON" capacity marker.
package window

import (
	"slices"
	"sort"
	"strconv"

	"github.com/fwojciec/raftspec"
)

// Window is the number of lines around an anchor line that are searched.
type Window struct {
	Before int `koanf:"before"`
	After  int `koanf:"after"`
}

// Validate returns an error for negative sizes.
func (w Window) Validate() error {
	if w.Before < 0 || w.After < 0 {
		return raftspec.Errorf(raftspec.EINVALID, "window sizes must not be negative (before=%d after=%d)", w.Before, w.After)
	}
	return nil
}

// Label names the anchor a value belongs to: "6P" for a capacity of 6,
// the text itself for text anchors.
func Label(v raftspec.Value) string {
	if v.Kind == raftspec.KindNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64) + "P"
	}
	return v.String()
}

// Extractor finds anchor-indexed values in the lines around an anchor.
type Extractor struct {
	matcher raftspec.Matcher
}

// NewExtractor returns an extractor applying m's rules.
func NewExtractor(m raftspec.Matcher) *Extractor {
	return &Extractor{matcher: m}
}

// ExtractWithContext returns candidates for the indexed fields found in the
// window around anchor, keyed by the anchor's label.
//
// A line belongs to the nearest anchor above it, and lines above the first
// anchor of the block belong to that anchor, so anchors with overlapping
// windows never share a line. Lines holding another anchor are skipped.
// When several anchors share the anchor line (a table header such as
// "6P | 12P"), the anchor line is split between them and on other lines only
// values in the anchor's column slot are kept.
//
// Values on the anchor line keep their rule confidence; values aligned in
// the anchor's grid column are at most positional; everything else is
// proximity.
//
// The neighbouring anchors are found by matching the lines around anchor.
// Callers that already know every anchor of the block use ExtractAround.
func (e *Extractor) ExtractWithContext(lines []raftspec.Line, anchor *raftspec.FieldCandidate, w Window) ([]*raftspec.FieldCandidate, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	at, err := lineOf(lines, anchor)
	if err != nil {
		return nil, err
	}

	// Only the nearest anchor on each side decides which lines are owned.
	field := anchor.Key.Field
	hi := min(len(lines)-1, at+w.After)
	var others []int
	for j := at - 1; j >= 0; j-- {
		if len(e.matcher.Match(lines[j].Text, field)) > 0 {
			others = append(others, j)
			break
		}
	}
	for j := at + 1; j <= hi; j++ {
		if len(e.matcher.Match(lines[j].Text, field)) > 0 {
			others = append(others, j)
			break
		}
	}
	return e.gather(lines, anchor, at, others, w), nil
}

// ExtractAround runs ExtractWithContext for every anchor of one block and
// returns the candidates in anchor order. The lines holding anchors are
// taken from anchors instead of being searched for.
func (e *Extractor) ExtractAround(lines []raftspec.Line, anchors []*raftspec.FieldCandidate, w Window) ([]*raftspec.FieldCandidate, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	type position struct{ block, line int }
	index := make(map[position]int, len(lines))
	for i, line := range lines {
		index[position{line.Location.Block, line.Location.Line}] = i
	}
	positions := make([]int, len(anchors))
	var rows []int
	for i, a := range anchors {
		at, ok := index[position{a.Location.Block, a.Location.Line}]
		if !ok {
			return nil, raftspec.Errorf(raftspec.EINVALID, "anchor at %s is outside the given lines", a.Location)
		}
		positions[i] = at
		rows = append(rows, at)
	}
	sort.Ints(rows)
	rows = slices.Compact(rows)

	var candidates []*raftspec.FieldCandidate
	for i, a := range anchors {
		at := positions[i]
		k := sort.SearchInts(rows, at)
		var others []int
		if k > 0 {
			others = append(others, rows[k-1])
		}
		if k+1 < len(rows) {
			others = append(others, rows[k+1])
		}
		candidates = append(candidates, e.gather(lines, a, at, others, w)...)
	}
	return candidates, nil
}

func lineOf(lines []raftspec.Line, anchor *raftspec.FieldCandidate) (int, error) {
	for i, line := range lines {
		if line.Location.Block == anchor.Location.Block && line.Location.Line == anchor.Location.Line {
			return i, nil
		}
	}
	return -1, raftspec.Errorf(raftspec.EINVALID, "anchor at %s is outside the given lines", anchor.Location)
}

// gather collects the indexed values of the lines at index at owns, given
// the other anchor lines that can claim lines of the window.
func (e *Extractor) gather(lines []raftspec.Line, anchor *raftspec.FieldCandidate, at int, others []int, w Window) []*raftspec.FieldCandidate {
	fields := e.matcher.Schema().Indexed()
	if len(fields) == 0 {
		return nil
	}
	field := anchor.Key.Field
	lo, hi := max(0, at-w.Before), min(len(lines)-1, at+w.After)

	// Split the anchor line between the anchors sharing it.
	starts := distinctStarts(e.matcher.Match(lines[at].Text, field))
	slot, slots := 0, len(starts)
	for i, s := range starts {
		if col(lines[at], s) == anchor.Location.Col {
			slot = i
			break
		}
	}
	if slots == 0 {
		slots = 1
	}

	var owned []raftspec.Line
	for j := lo; j <= hi; j++ {
		if j == at || owns(at, j, others) {
			owned = append(owned, lines[j])
		}
	}

	label := Label(anchor.Value)
	passage := raftspec.NewPassage(owned)
	matches := e.matcher.Match(passage.Text, fields...)

	// Distinct value offsets per line and field, for column slotting.
	type lineField struct {
		line  int
		field string
	}
	offsets := make(map[lineField][]int)
	for _, m := range matches {
		k := lineField{passage.LineIndex(m.Start), m.Field}
		if o := offsets[k]; len(o) == 0 || o[len(o)-1] != m.Start {
			offsets[k] = append(o, m.Start)
		}
	}

	var candidates []*raftspec.FieldCandidate
	for _, m := range matches {
		li := passage.LineIndex(m.Start)
		line := passage.Lines()[li]
		loc := passage.Locate(m.Start)
		conf := m.Confidence

		if line.Location.Line == anchor.Location.Line {
			if slots > 1 {
				within := m.Start - lineStart(passage, li)
				if within < segmentStart(starts, slot) || (slot+1 < len(starts) && within >= starts[slot+1]) {
					continue
				}
			}
		} else {
			if slots > 1 {
				if line.Spans != nil {
					if loc.Col != anchor.Location.Col {
						continue
					}
				} else {
					o := offsets[lineField{li, m.Field}]
					if len(o) != slots || o[slot] != m.Start {
						continue
					}
				}
			}
			if line.Spans != nil && loc.Col == anchor.Location.Col {
				conf = min(conf, raftspec.ConfidencePositional)
			} else {
				conf = min(conf, raftspec.ConfidenceProximity)
			}
		}

		candidates = append(candidates, &raftspec.FieldCandidate{
			Key:        raftspec.Key{Field: m.Field, Anchor: label},
			Value:      m.Value,
			Location:   loc,
			Confidence: conf,
			Rule:       m.Rule,
			Text:       m.Text,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Location.Less(candidates[j].Location)
	})
	return candidates
}

// owns reports whether line j belongs to the anchor on line at. A line
// belongs to the nearest anchor above it; lines above the first anchor
// belong to that first anchor.
func owns(at, j int, others []int) bool {
	for _, k := range others {
		if j > at && k > at && k <= j {
			return false
		}
		if j < at && k < at {
			return false
		}
	}
	return true
}

func distinctStarts(matches []raftspec.Match) []int {
	var starts []int
	for _, m := range matches {
		if len(starts) == 0 || starts[len(starts)-1] != m.Start {
			starts = append(starts, m.Start)
		}
	}
	return starts
}

// segmentStart is where the anchor line's segment for slot begins. Text
// before the first anchor belongs to the first anchor.
func segmentStart(starts []int, slot int) int {
	if slot == 0 {
		return 0
	}
	return starts[slot]
}

func col(line raftspec.Line, offset int) int {
	return raftspec.NewPassage([]raftspec.Line{line}).Locate(offset).Col
}

func lineStart(p *raftspec.Passage, i int) int {
	start := 0
	for _, line := range p.Lines()[:i] {
		start += len(line.Text) + 1
	}
	return start
}
