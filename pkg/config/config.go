package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for spec generation
type Config struct {
	// Metadata is the path to the resource metadata document (the host
	// framework's introspection dump).
	Metadata string `yaml:"metadata"`
	// Output is the path the generated OpenAPI document is written to.
	Output string `yaml:"output"`
	// Format is "json" or "yaml"; defaults to the output file extension.
	Format string `yaml:"format"`

	Info    Info     `yaml:"info"`
	Servers []Server `yaml:"servers"`

	// IncludeResources and ExcludeResources are regex patterns over
	// resource type names. Include wins first, then exclude is applied.
	IncludeResources []string `yaml:"includeResources"`
	ExcludeResources []string `yaml:"excludeResources"`

	// BaseURL is prepended to links rendered by the controller layer.
	BaseURL string `yaml:"baseURL"`
}

// Info carries the OpenAPI info object fields.
type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// Server is one OpenAPI server entry.
type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.Metadata) {
		abs, _ := filepath.Abs(cfg.Metadata)
		cfg.Metadata = abs
	}
	if cfg.Output != "" && !filepath.IsAbs(cfg.Output) {
		abs, _ := filepath.Abs(cfg.Output)
		cfg.Output = abs
	}
	return &cfg, nil
}

// ApplyDefaults fills derived fields and rejects incomplete configs.
func (c *Config) ApplyDefaults() error {
	if c.Metadata == "" {
		return errors.New("config.metadata is required")
	}
	if c.Info.Title == "" {
		return errors.New("config.info.title is required")
	}
	if c.Info.Version == "" {
		c.Info.Version = "0.0.1"
	}
	if c.Format == "" {
		switch filepath.Ext(c.Output) {
		case ".yaml", ".yml":
			c.Format = "yaml"
		default:
			c.Format = "json"
		}
	}
	if c.Format != "json" && c.Format != "yaml" {
		return fmt.Errorf("config.format must be json or yaml, got %q", c.Format)
	}
	return nil
}

// ResourceFilter decides which resources a generated document covers.
type ResourceFilter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// CompileResourceFilter compiles the include/exclude patterns of the config.
func (c *Config) CompileResourceFilter() (*ResourceFilter, error) {
	inc, err := compilePatterns(c.IncludeResources, "includeResources")
	if err != nil {
		return nil, err
	}
	exc, err := compilePatterns(c.ExcludeResources, "excludeResources")
	if err != nil {
		return nil, err
	}
	return &ResourceFilter{include: inc, exclude: exc}, nil
}

// Allow reports whether the resource type passes the filter.
func (f *ResourceFilter) Allow(typeName string) bool {
	if f == nil {
		return true
	}
	if len(f.include) > 0 {
		matched := false
		for _, r := range f.include {
			if r.MatchString(typeName) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, r := range f.exclude {
		if r.MatchString(typeName) {
			return false
		}
	}
	return true
}

func compilePatterns(patterns []string, field string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", field, p, err)
		}
		out = append(out, r)
	}
	return out, nil
}
