package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig is returned when a configuration file fails schema or
// semantic validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration options for invokecheck.
type Config struct {
	// Invocation rules to verify
	Rules []Rule `koanf:"rules" toml:"rules"`

	// Worker pool settings
	Workers WorkersConfig `koanf:"workers" toml:"workers"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// WorkersConfig controls parallelism.
type WorkersConfig struct {
	Max int `koanf:"max" toml:"max"` // 0 means 2 x NumCPU
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults and no rules.
func DefaultConfig() *Config {
	return &Config{
		Exclude: ExcludeConfig{
			Patterns: []string{
				"module-info.class",
				"package-info.class",
			},
			Dirs: []string{
				".git",
				".invokecheck",
				".gradle",
				".idea",
				"node_modules",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".invokecheck/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file. The document is checked against the
// embedded schema before it is unmarshalled over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := validateRaw(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configNames are the file names searched by Find, in order.
var configNames = []string{
	"invokecheck.toml",
	"invokecheck.yaml",
	"invokecheck.yml",
	"invokecheck.json",
	".invokecheck.toml",
	".invokecheck.yaml",
	".invokecheck.yml",
	".invokecheck.json",
}

// Find returns the first config file found in dir or dir/.invokecheck, or
// an empty string.
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".invokecheck")} {
		for _, name := range configNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults. A config file that exists but fails to load is reported.
func LoadOrDefault() (*Config, error) {
	path := Find(".")
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Validate reports every semantic problem in the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers.Max < 0 {
		errs = append(errs, fmt.Errorf("workers.max %d is negative", c.Workers.Max))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl %d is negative", c.Cache.TTL))
	}
	switch c.Output.Format {
	case "", "text", "json", "markdown", "toon", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
	}
	for i, r := range c.Rules {
		if _, err := r.Compile(); err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", i, r.Label(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ShouldExclude checks if a path should be excluded from scanning.
func (c *Config) ShouldExclude(path string) bool {
	path = filepath.ToSlash(path)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, "/"+dir+"/") || strings.HasPrefix(path, dir+"/") {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
