// Package pattern holds the rule registry that finds field values in text.
//
// Rules are data: a field name, a regular expression, a function that turns
// submatches into a typed value, and a confidence. Plausibility ranges
// reject values outside a physically sane interval, such as a part number
// read as a pressure. The default rule table ships embedded as YAML.
package pattern

import (
	"sort"
	"strings"

	"github.com/fwojciec/raftspec"
)

// Ensure Registry implements raftspec.Matcher at compile time.
var _ raftspec.Matcher = (*Registry)(nil)

// Registry maps field names to ordered lists of rules.
type Registry struct {
	schema *raftspec.Schema
	ranges Ranges
	rules  map[string][]*Rule
}

// NewRegistry creates an empty registry for the fields of schema. Values
// outside ranges are dropped; a nil ranges accepts everything.
func NewRegistry(schema *raftspec.Schema, ranges Ranges) *Registry {
	return &Registry{
		schema: schema,
		ranges: ranges,
		rules:  make(map[string][]*Rule),
	}
}

// Schema returns the field metadata of the registry.
func (r *Registry) Schema() *raftspec.Schema {
	return r.schema
}

// Register appends a rule for a field. Rules of one field are tried in
// registration order.
func (r *Registry) Register(field string, rule *Rule) error {
	if _, ok := r.schema.Lookup(field); !ok {
		return raftspec.Errorf(raftspec.EINVALID, "rule %q: unknown field %q", rule.Name, field)
	}
	if rule.Pattern == nil {
		return raftspec.Errorf(raftspec.EINVALID, "rule %q: pattern required", rule.Name)
	}
	if rule.Extract == nil {
		return raftspec.Errorf(raftspec.EINVALID, "rule %q: extractor required", rule.Name)
	}
	if rule.Confidence == raftspec.ConfidenceNone {
		return raftspec.Errorf(raftspec.EINVALID, "rule %q: confidence required", rule.Name)
	}
	rule.Field = field
	r.rules[field] = append(r.rules[field], rule)
	return nil
}

// Rules returns the rules registered for a field.
func (r *Registry) Rules(field string) []*Rule {
	return r.rules[field]
}

// Match applies the rules of the given fields, or of every field, to text.
// Every rule that fires contributes a match, so one span may yield several
// candidates. Matches are ordered by offset, then by field and rule order.
// Grid label rules are skipped.
func (r *Registry) Match(text string, fields ...string) []raftspec.Match {
	if len(fields) == 0 {
		for _, spec := range r.schema.Fields() {
			fields = append(fields, spec.Name)
		}
	}

	var matches []raftspec.Match
	for _, field := range fields {
		for _, rule := range r.rules[field] {
			if rule.Label != nil {
				continue
			}
			for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
				m, ok := r.apply(rule, text, loc)
				if !ok {
					continue
				}
				matches = append(matches, m)
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})
	return matches
}

// MatchLabeled applies grid label rules: for every rule whose label pattern
// matches label, its value pattern is applied to value. The label's groups
// follow the value pattern's groups, so a header such as "CO2 (kg)" can
// supply the unit. Offsets refer to value.
func (r *Registry) MatchLabeled(label, value string) []raftspec.Match {
	var matches []raftspec.Match
	for _, spec := range r.schema.Fields() {
		for _, rule := range r.rules[spec.Name] {
			if rule.Label == nil {
				continue
			}
			header := rule.Label.FindStringSubmatch(label)
			if header == nil {
				continue
			}
			loc := rule.Pattern.FindStringSubmatchIndex(value)
			if loc == nil {
				continue
			}
			if m, ok := r.apply(rule, value, loc, header[1:]...); ok {
				matches = append(matches, m)
			}
		}
	}
	return matches
}

func (r *Registry) apply(rule *Rule, text string, loc []int, extra ...string) (raftspec.Match, bool) {
	groups := make([]string, len(loc)/2, len(loc)/2+len(extra))
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	groups = append(groups, extra...)
	v, ok := rule.Extract(groups)
	if !ok {
		return raftspec.Match{}, false
	}
	if rule.Plausible != nil {
		if !rule.Plausible(v) {
			return raftspec.Match{}, false
		}
	} else if !r.ranges.Plausible(rule.Field, v) {
		return raftspec.Match{}, false
	}
	// Matches are located at their first group, the value.
	start, end := loc[0], loc[1]
	if len(loc) > 3 && loc[2] >= 0 {
		start, end = loc[2], loc[3]
	}
	return raftspec.Match{
		Field:      rule.Field,
		Rule:       rule.Name,
		Value:      v,
		Confidence: rule.Confidence,
		Start:      start,
		End:        end,
		Text:       strings.TrimSpace(groups[0]),
	}, true
}
