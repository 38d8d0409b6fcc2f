package dedupe

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fwojciec/raftspec"
)

// DefaultPattern matches identifiers of the form <prefix><year>-<sequence>,
// e.g. "AZ25-028".
const DefaultPattern = `^(?P<prefix>[A-Z]+)(?P<year>\d{2})-(?P<seq>\d+)$`

// DefaultWidth is the number of sequence digits.
const DefaultWidth = 3

// Format describes identifiers whose sequence part can be incremented.
type Format struct {
	re    *regexp.Regexp
	seq   int
	width int
}

// NewFormat compiles pattern, which must have a named group "seq" holding
// the sequence digits. width bounds the sequence: successors beyond
// 10^width-1 are exhausted.
func NewFormat(pattern string, width int) (*Format, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "identifier pattern: %s", err)
	}
	seq := re.SubexpIndex("seq")
	if seq < 0 {
		return nil, raftspec.Errorf(raftspec.EINVALID, "identifier pattern %q has no seq group", pattern)
	}
	if width < 1 || width > 9 {
		return nil, raftspec.Errorf(raftspec.EINVALID, "identifier width must be between 1 and 9, got %d", width)
	}
	return &Format{re: re, seq: seq, width: width}, nil
}

// Width returns the sequence width.
func (f *Format) Width() int { return f.width }

// split returns the text before and after the sequence and the sequence
// value.
func (f *Format) split(id string) (before, after string, seq int, err error) {
	m := f.re.FindStringSubmatchIndex(id)
	if m == nil || m[2*f.seq] < 0 {
		return "", "", 0, raftspec.Errorf(raftspec.EINVALID, "identifier %q does not match %s", id, f.re)
	}
	start, end := m[2*f.seq], m[2*f.seq+1]
	seq, err = strconv.Atoi(id[start:end])
	if err != nil {
		return "", "", 0, raftspec.Errorf(raftspec.EINVALID, "identifier %q: sequence %q is not a number", id, id[start:end])
	}
	return id[:start], id[end:], seq, nil
}

// successor returns the identifier with the sequence set to seq, zero
// padded to the format's width.
func (f *Format) successor(before, after string, seq int) string {
	s := strconv.Itoa(seq)
	if pad := f.width - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return before + s + after
}

// limit is the largest sequence value that fits the width.
func (f *Format) limit() int {
	n := 1
	for range f.width {
		n *= 10
	}
	return n - 1
}
