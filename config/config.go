// Package config loads extraction settings from built-in defaults, an
// optional YAML file and RAFTSPEC_* environment variables, in that order.
package config

import (
	_ "embed"
	"os"
	"strings"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/merge"
	"github.com/fwojciec/raftspec/pattern"
	"github.com/fwojciec/raftspec/window"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix prefixes environment overrides: RAFTSPEC_WINDOW_BEFORE sets
// window.before.
const EnvPrefix = "RAFTSPEC_"

// Config holds the extraction settings.
type Config struct {
	Window       window.Window    `koanf:"window"`
	Plausibility pattern.Ranges   `koanf:"plausibility"`
	Precedence   merge.Precedence `koanf:"precedence"`
	Identifier   Identifier       `koanf:"identifier"`
	Merge        Merge            `koanf:"merge"`
	Output       Output           `koanf:"output"`

	// Rules is a rule table file replacing the built-in rules.
	Rules string `koanf:"rules"`

	// Database is the sqlite path records are stored in. Empty disables
	// storage.
	Database string `koanf:"database"`
}

// Identifier configures primary identifiers and their reallocation.
type Identifier struct {
	Pattern string   `koanf:"pattern"`
	Width   int      `koanf:"width"`
	Fields  []string `koanf:"fields"`
}

// Merge configures record merging.
type Merge struct {
	Tolerance float64 `koanf:"tolerance"`
}

// Output configures JSON output.
type Output struct {
	Decimals int `koanf:"decimals"`
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	return Load("")
}

// Load reads the configuration. path may be empty to use only defaults and
// the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, raftspec.Errorf(raftspec.EINTERNAL, "built-in config: %s", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
			return nil, raftspec.Errorf(raftspec.EINVALID, "config %s: %s", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "config environment: %s", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, raftspec.Errorf(raftspec.EINVALID, "config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps RAFTSPEC_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	for key, r := range c.Plausibility {
		if r.Min > r.Max {
			return raftspec.Errorf(raftspec.EINVALID, "plausibility %s: min %g above max %g", key, r.Min, r.Max)
		}
	}
	if len(c.Precedence) == 0 {
		return raftspec.Errorf(raftspec.EINVALID, "precedence: at least one field family must rank its sources")
	}
	if c.Identifier.Pattern == "" {
		return raftspec.Errorf(raftspec.EINVALID, "identifier pattern required")
	}
	if c.Identifier.Width < 1 {
		return raftspec.Errorf(raftspec.EINVALID, "identifier width must be positive, got %d", c.Identifier.Width)
	}
	if len(c.Identifier.Fields) == 0 {
		return raftspec.Errorf(raftspec.EINVALID, "identifier fields required")
	}
	if c.Merge.Tolerance < 0 {
		return raftspec.Errorf(raftspec.EINVALID, "merge tolerance must not be negative, got %g", c.Merge.Tolerance)
	}
	if c.Output.Decimals < 0 {
		return raftspec.Errorf(raftspec.EINVALID, "output decimals must not be negative, got %d", c.Output.Decimals)
	}
	return nil
}
