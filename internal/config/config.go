// Package config holds the server settings: built-in defaults, an optional
// YAML file and the client's initializationOptions, applied in that order.
package config

import (
	"bytes"
	"encoding/json"
	"time"

	"semtok/internal/grammar"
	"semtok/internal/legend"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// MemoryStore selects the in-process snapshot store. Any other Store value
// is the path of a SQLite database.
const MemoryStore = "memory"

var ErrInvalid = errors.Base("invalid configuration")

type Language struct {
	Name string `yaml:"name" json:"name"`
	// Grammar is the bundled grammar to parse with. Defaults to Name.
	Grammar   string   `yaml:"grammar,omitempty" json:"grammar,omitempty"`
	Globs     []string `yaml:"globs" json:"globs"`
	QueryFile string   `yaml:"query_file,omitempty" json:"query_file,omitempty"`
	Query     string   `yaml:"query,omitempty" json:"query,omitempty"`
}

type Config struct {
	Types         []string   `yaml:"types" json:"types"`
	Modifiers     []string   `yaml:"modifiers" json:"modifiers"`
	Languages     []Language `yaml:"languages" json:"languages"`
	Strict        bool       `yaml:"strict" json:"strict"`
	Store         string     `yaml:"store" json:"store"`
	PruneInterval string     `yaml:"prune_interval" json:"prune_interval"`
	SnapshotTTL   string     `yaml:"snapshot_ttl" json:"snapshot_ttl"`
	Parsers       int        `yaml:"parsers" json:"parsers"`
}

// Default returns the built-in configuration. Type 0 doubles as the fallback
// for names missing from the legend.
func Default() Config {
	cfg := Config{
		Types: []string{
			"variable", "comment", "string", "number", "regexp", "keyword",
			"operator", "function", "method", "class", "type", "namespace",
			"property", "parameter",
		},
		Modifiers:     []string{"declaration", "readonly", "static", "deprecated"},
		Store:         MemoryStore,
		PruneInterval: "10m",
		SnapshotTTL:   "1h",
		Parsers:       4,
	}
	for _, name := range grammar.Names() {
		b, _ := grammar.Lookup(name)
		cfg.Languages = append(cfg.Languages, Language{
			Name:  b.Name,
			Globs: append([]string(nil), b.Globs...),
		})
	}
	return cfg
}

// LoadFile reads a YAML file from fs over the defaults. Keys missing from
// the file keep their default value; unknown keys are an error.
func LoadFile(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, errors.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Overlay applies v, usually the initializationOptions of an initialize
// request, on top of cfg. Only fields present in v are overwritten.
func Overlay(cfg Config, v any) (Config, error) {
	if v == nil {
		return cfg, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, errors.Errorf("failed to marshal source: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Errorf("failed to unmarshal into Config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first problem found in cfg.
func (c Config) Validate() error {
	if len(c.Types) == 0 {
		return errors.WithDetails(ErrInvalid, "field", "types", "reason", "empty")
	}
	if _, err := c.Legend(); err != nil {
		return errors.WrapWith(err, ErrInvalid)
	}
	if c.Parsers < 1 {
		return errors.WithDetails(ErrInvalid, "field", "parsers", "value", c.Parsers)
	}
	if c.Store == "" {
		return errors.WithDetails(ErrInvalid, "field", "store", "reason", "empty")
	}
	if _, _, err := c.Durations(); err != nil {
		return errors.WrapWith(err, ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Languages))
	for _, l := range c.Languages {
		if l.Name == "" {
			return errors.WithDetails(ErrInvalid, "field", "languages", "reason", "missing name")
		}
		if seen[l.Name] {
			return errors.WithDetails(ErrInvalid, "field", "languages", "reason", "duplicate", "language", l.Name)
		}
		seen[l.Name] = true
		if _, ok := grammar.Lookup(l.GrammarName()); !ok {
			return errors.WithDetails(ErrInvalid, "field", "languages", "reason", "unknown grammar", "grammar", l.GrammarName())
		}
	}
	return nil
}

// Legend builds the token legend from Types and Modifiers.
func (c Config) Legend() (*legend.Legend, error) {
	return legend.New(c.Types, c.Modifiers)
}

// Durations parses PruneInterval and SnapshotTTL. A zero prune interval
// disables pruning.
func (c Config) Durations() (prune, ttl time.Duration, err error) {
	if prune, err = time.ParseDuration(c.PruneInterval); err != nil {
		return 0, 0, errors.Errorf("prune_interval: %w", err)
	}
	if ttl, err = time.ParseDuration(c.SnapshotTTL); err != nil {
		return 0, 0, errors.Errorf("snapshot_ttl: %w", err)
	}
	return prune, ttl, nil
}

func (l Language) GrammarName() string {
	if l.Grammar != "" {
		return l.Grammar
	}
	return l.Name
}
