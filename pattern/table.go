package pattern

import (
	_ "embed"
	"encoding/json"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/fwojciec/raftspec"
	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed rules.yaml
var defaultTable []byte

//go:embed rules.schema.json
var tableSchema string

// Table is the declarative form of a registry: field metadata, rules and
// the macros rule patterns may reference as {{name}}.
type Table struct {
	Macros map[string]string `yaml:"macros"`
	Fields []FieldEntry      `yaml:"fields"`
	Rules  []RuleEntry       `yaml:"rules"`
}

// FieldEntry declares a field.
type FieldEntry struct {
	Name     string `yaml:"name"`
	Family   string `yaml:"family"`
	Required bool   `yaml:"required"`
	Multi    bool   `yaml:"multi"`
	Anchor   bool   `yaml:"anchor"`
	Indexed  bool   `yaml:"indexed"`
	Unit     string `yaml:"unit"`
}

// RuleEntry declares a rule.
type RuleEntry struct {
	Name       string       `yaml:"name"`
	Field      string       `yaml:"field"`
	Pattern    string       `yaml:"pattern"`
	Label      string       `yaml:"label"`
	Confidence string       `yaml:"confidence"`
	Extract    ExtractEntry `yaml:"extract"`
}

// ExtractEntry selects and parameterizes an extractor.
type ExtractEntry struct {
	Kind       string `yaml:"kind"`
	Group      int    `yaml:"group"`
	UnitGroup  int    `yaml:"unit_group"`
	CountGroup int    `yaml:"count_group"`
	Unit       string `yaml:"unit"`
	Case       string `yaml:"case"`
	Format     string `yaml:"format"`
	DateGroup  int    `yaml:"date_group"`
	Exclude    string `yaml:"exclude"`
}

// DefaultTable returns the embedded rule table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// LoadTable reads a rule table from a YAML file.
func LoadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(b)
}

// ParseTable decodes a YAML rule table after validating it against the
// table's JSON schema.
func ParseTable(b []byte) (*Table, error) {
	if err := validateTable(b); err != nil {
		return nil, err
	}
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "rule table: %s", err)
	}
	return &t, nil
}

func validateTable(b []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", strings.NewReader(tableSchema)); err != nil {
		return err
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return err
	}
	j, err := yaml.YAMLToJSON(b)
	if err != nil {
		return raftspec.Errorf(raftspec.EINVALID, "rule table: %s", err)
	}
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		return raftspec.Errorf(raftspec.EINVALID, "rule table: %s", err)
	}
	if err := schema.Validate(v); err != nil {
		return raftspec.Errorf(raftspec.EINVALID, "rule table: %s", err)
	}
	return nil
}

// Schema builds the field schema declared by the table.
func (t *Table) Schema() (*raftspec.Schema, error) {
	s, _ := raftspec.NewSchema()
	for _, f := range t.Fields {
		spec := raftspec.FieldSpec{
			Name:     f.Name,
			Family:   f.Family,
			Required: f.Required,
			Multi:    f.Multi,
			Anchor:   f.Anchor,
			Indexed:  f.Indexed,
			Unit:     raftspec.Unit(f.Unit),
		}
		if err := s.Add(spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Registry compiles the table into a registry that drops values outside
// ranges.
func (t *Table) Registry(ranges Ranges) (*Registry, error) {
	schema, err := t.Schema()
	if err != nil {
		return nil, err
	}
	r := NewRegistry(schema, ranges)
	for _, e := range t.Rules {
		rule, err := t.compile(e)
		if err != nil {
			return nil, err
		}
		if err := r.Register(e.Field, rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var macroRef = regexp.MustCompile(`\{\{(\w+)\}\}`)

func (t *Table) expand(name, pattern string) (string, error) {
	var missing string
	s := macroRef.ReplaceAllStringFunc(pattern, func(ref string) string {
		key := ref[2 : len(ref)-2]
		m, ok := t.Macros[key]
		if !ok {
			missing = key
			return ref
		}
		return "(?:" + m + ")"
	})
	if missing != "" {
		return "", raftspec.Errorf(raftspec.EINVALID, "rule %q: unknown macro %q", name, missing)
	}
	return s, nil
}

func (t *Table) regexp(name, pattern string) (*regexp.Regexp, error) {
	s, err := t.expand(name, pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: %s", name, err)
	}
	return re, nil
}

func (t *Table) compile(e RuleEntry) (*Rule, error) {
	pattern, err := t.regexp(e.Name, e.Pattern)
	if err != nil {
		return nil, err
	}
	rule := &Rule{Name: e.Name, Pattern: pattern}
	if e.Label != "" {
		if rule.Label, err = t.regexp(e.Name, e.Label); err != nil {
			return nil, err
		}
	}
	if rule.Confidence, err = raftspec.ParseConfidence(e.Confidence); err != nil {
		return nil, err
	}

	x := e.Extract
	g := x.Group
	if g == 0 {
		g = 1
	}
	// Label groups are numbered after the value pattern's groups.
	n := pattern.NumSubexp()
	if rule.Label != nil {
		n += rule.Label.NumSubexp()
	}
	for _, i := range referenced(x, g) {
		if i > n {
			return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: group %d out of range", e.Name, i)
		}
	}
	fixed := raftspec.Unit(x.Unit)
	if fixed != "" && fixed.Dimension() == "" {
		return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: unknown unit %q", e.Name, x.Unit)
	}

	switch x.Kind {
	case "number":
		rule.Extract = Number(g)
	case "text":
		rule.Extract = Text(g, Case(x.Case))
	case "date":
		rule.Extract = Date(g)
	case "quantity":
		if x.UnitGroup == 0 && fixed == "" {
			return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: quantity needs unit or unit_group", e.Name)
		}
		rule.Extract = Quantity(g, x.UnitGroup, fixed)
	case "product":
		if x.UnitGroup == 0 && fixed == "" {
			return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: product needs unit or unit_group", e.Name)
		}
		rule.Extract = Product(x.CountGroup, g, x.UnitGroup, fixed)
	case "flag":
		rule.Extract = Flag()
	case "template":
		if x.Format == "" {
			return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: template needs format", e.Name)
		}
		rule.Extract = Template(x.Format)
	case "validity":
		if x.DateGroup == 0 {
			return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: validity needs date_group", e.Name)
		}
		var exclude *regexp.Regexp
		if x.Exclude != "" {
			if exclude, err = t.regexp(e.Name, x.Exclude); err != nil {
				return nil, err
			}
		}
		rule.Extract = Validity(g, x.DateGroup, exclude)
	default:
		return nil, raftspec.Errorf(raftspec.EINVALID, "rule %q: unknown extractor %q", e.Name, x.Kind)
	}
	return rule, nil
}

// referenced returns the groups an extractor reads. Flags read none and
// templates read the groups their format refers to.
func referenced(x ExtractEntry, g int) []int {
	switch x.Kind {
	case "flag":
		return nil
	case "template":
		var refs []int
		for _, m := range templateRef.FindAllStringSubmatch(x.Format, -1) {
			i, _ := strconv.Atoi(m[1])
			refs = append(refs, i)
		}
		return refs
	case "validity":
		return []int{g, x.DateGroup}
	}
	return []int{g, x.UnitGroup, x.CountGroup}
}

// Default compiles the embedded rule table.
func Default(ranges Ranges) (*Registry, error) {
	t, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	return t.Registry(ranges)
}
