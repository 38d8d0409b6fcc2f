package mock

import "github.com/fwojciec/raftspec"

var _ raftspec.Matcher = (*Matcher)(nil)

// Matcher is a mock implementation of raftspec.Matcher.
type Matcher struct {
	MatchFn        func(text string, fields ...string) []raftspec.Match
	MatchLabeledFn func(label, value string) []raftspec.Match
	SchemaFn       func() *raftspec.Schema
}

func (m *Matcher) Match(text string, fields ...string) []raftspec.Match {
	return m.MatchFn(text, fields...)
}

func (m *Matcher) MatchLabeled(label, value string) []raftspec.Match {
	return m.MatchLabeledFn(label, value)
}

func (m *Matcher) Schema() *raftspec.Schema {
	return m.SchemaFn()
}
