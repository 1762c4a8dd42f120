// Package config loads, validates, and writes the .fsdlint.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fsdlint/internal/layers"
)

// DefaultFileName is the config file looked up in the working directory
// when --config is not given.
const DefaultFileName = ".fsdlint.yaml"

// Config holds all fsdlint configuration.
type Config struct {
	// Root is the source tree to lint.
	Root string `yaml:"root" validate:"required"`

	// Layers lists the hierarchy from the most foundational layer
	// upward. Position determines rank.
	Layers []LayerConfig `yaml:"layers" validate:"required,min=1,dive"`

	// Segments are the directory names recognized inside a slice.
	Segments []string `yaml:"segments"`

	// PublicAPI controls how public entry files are recognized.
	PublicAPI PublicAPIConfig `yaml:"public_api"`

	// Aliases maps import prefixes to root-relative directories,
	// e.g. "@/" -> "".
	Aliases map[string]string `yaml:"aliases"`

	// Exclude lists glob patterns and directory names skipped while
	// scanning.
	Exclude []string `yaml:"exclude"`

	Rules   RulesConfig   `yaml:"rules"`
	Scanner ScannerConfig `yaml:"scanner"`
	Output  OutputConfig  `yaml:"output"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// LayerConfig declares one layer of the hierarchy.
type LayerConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Slices bool   `yaml:"slices"`
}

// PublicAPIConfig controls entry-file recognition.
type PublicAPIConfig struct {
	// Entry is the file stem that marks a slice's public API.
	Entry string `yaml:"entry" validate:"required"`
	// CrossRefDir names the directory holding sanctioned cross-slice
	// reference files.
	CrossRefDir string `yaml:"cross_ref_dir"`
}

// RulesConfig toggles the rule families and their severities.
type RulesConfig struct {
	LayerOrder   RuleConfig       `yaml:"layer_order"`
	CrossSlice   RuleConfig       `yaml:"cross_slice"`
	DeepImport   DeepImportConfig `yaml:"deep_import"`
	Unclassified RuleConfig       `yaml:"unclassified_module"`
}

// RuleConfig enables a rule family and sets its severity.
type RuleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Severity string `yaml:"severity" validate:"required,oneof=error warning"`
}

// DeepImportConfig extends RuleConfig with public-API options for
// layers without slices.
type DeepImportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Severity string `yaml:"severity" validate:"required,oneof=error warning"`
	// CheckSlicelessSegments also enforces segment index files in
	// layers without slices, e.g. shared/ui.
	CheckSlicelessSegments bool `yaml:"check_sliceless_segments"`
}

// ScannerConfig tunes the project graph builder.
type ScannerConfig struct {
	// Workers caps concurrent parse workers. Zero means one per CPU,
	// capped at 20.
	Workers int `yaml:"workers" validate:"min=0,max=128"`
	// ParseTimeout bounds a single file parse.
	ParseTimeout string `yaml:"parse_timeout"`
	// MaxFileBytes skips import extraction for larger files. The file
	// is still classified as a module.
	MaxFileBytes int64 `yaml:"max_file_bytes" validate:"min=0"`
}

// OutputConfig sets report defaults, overridable per run via flags.
type OutputConfig struct {
	Format            string `yaml:"format" validate:"required,oneof=text json"`
	SeverityThreshold string `yaml:"severity_threshold" validate:"required,oneof=error warning"`
}

// HistoryConfig controls the optional run history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls debug logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Root: "./src",

		Layers: []LayerConfig{
			{Name: "shared", Slices: false},
			{Name: "entities", Slices: true},
			{Name: "features", Slices: true},
			{Name: "widgets", Slices: true},
			{Name: "views", Slices: true},
			{Name: "app", Slices: false},
		},

		Segments: []string{"ui", "model", "api", "lib", "config"},

		PublicAPI: PublicAPIConfig{
			Entry:       "index",
			CrossRefDir: "@x",
		},

		Aliases: map[string]string{
			"@/": "",
		},

		Exclude: []string{
			"**/*.test.*",
			"**/*.spec.*",
			"**/*.stories.*",
			"**/*.d.ts",
			"__tests__",
			"__mocks__",
			"node_modules",
			"dist",
			"build",
			".next",
			"coverage",
		},

		Rules: RulesConfig{
			LayerOrder:   RuleConfig{Enabled: true, Severity: "error"},
			CrossSlice:   RuleConfig{Enabled: true, Severity: "error"},
			DeepImport:   DeepImportConfig{Enabled: true, Severity: "warning"},
			Unclassified: RuleConfig{Enabled: true, Severity: "warning"},
		},

		Scanner: ScannerConfig{
			Workers:      0,
			ParseTimeout: "5s",
			MaxFileBytes: 2 * 1024 * 1024,
		},

		Output: OutputConfig{
			Format:            "text",
			SeverityThreshold: "error",
		},

		History: HistoryConfig{
			Enabled: false,
			Path:    ".fsdlint/history.db",
		},

		Logging: LoggingConfig{
			Debug: false,
			Dir:   ".fsdlint/logs",
		},
	}
}

// Load reads configuration from a YAML file, merging it over the
// defaults. An empty path falls back to DefaultFileName; a missing
// default file yields the defaults, but an explicitly given path must
// exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyEnvOverrides()
			if verr := cfg.Validate(); verr != nil {
				return nil, verr
			}
			return cfg, nil
		}
		return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("cannot read %s: %v", path, err)}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("cannot parse %s: %v", path, err)}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("FSDLINT_ROOT"); root != "" {
		c.Root = root
	}
	if format := os.Getenv("FSDLINT_FORMAT"); format != "" {
		c.Output.Format = format
	}
	if db := os.Getenv("FSDLINT_HISTORY_DB"); db != "" {
		c.History.Path = db
	}
	if workers := os.Getenv("FSDLINT_WORKERS"); workers != "" {
		if v, err := strconv.Atoi(workers); err == nil && v > 0 {
			c.Scanner.Workers = v
		}
	}
	if debug := os.Getenv("FSDLINT_DEBUG"); debug == "1" || debug == "true" {
		c.Logging.Debug = true
	}
}

// WriteDefault writes a fresh default config file. It refuses to
// overwrite an existing one.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# fsdlint configuration.\n# Layer order runs from the most foundational layer to the topmost one.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LayerDefinitions maps the configured layers into the model's shape.
func (c *Config) LayerDefinitions() []layers.Definition {
	defs := make([]layers.Definition, len(c.Layers))
	for i, l := range c.Layers {
		defs[i] = layers.Definition{Name: l.Name, HasSlices: l.Slices}
	}
	return defs
}

// GetParseTimeout returns the per-file parse timeout as a duration.
func (c *Config) GetParseTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scanner.ParseTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
