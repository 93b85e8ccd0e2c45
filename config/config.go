// Package config provides configuration loading and management for semequip.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semequip/export"
	"github.com/c360studio/semequip/shape"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// Config represents the complete semequip configuration
type Config struct {
	Mapping   MappingConfig   `yaml:"mapping"`
	Shape     ShapeConfig     `yaml:"shape"`
	Equipment EquipmentConfig `yaml:"equipment"`
	Output    OutputConfig    `yaml:"output"`
	NATS      NATSConfig      `yaml:"nats"`
}

// MappingConfig locates the mapping tables
type MappingConfig struct {
	// ClassTable maps requirementsClassId values to shape URLs
	ClassTable string `yaml:"class_table"`
	// PropertyTable maps propertyRequirementId values to predicate IRIs
	PropertyTable string `yaml:"property_table"`
	// SourcePrefix is stripped from table subjects to get the EqHub ID
	SourcePrefix string `yaml:"source_prefix"`
	// Watch reloads the tables when either file changes (serve only)
	Watch bool `yaml:"watch"`
	// Debounce delays a reload until edits settle
	Debounce time.Duration `yaml:"debounce"`
}

// ShapeConfig configures shape retrieval
type ShapeConfig struct {
	// RewriteFrom is replaced by RewriteTo in fetched shape text (empty = no rewrite)
	RewriteFrom string `yaml:"rewrite_from"`
	RewriteTo   string `yaml:"rewrite_to"`
	// DisableRewrite uses fetched shapes as published; a later layer can set
	// it back to false
	DisableRewrite *bool `yaml:"disable_rewrite,omitempty"`
	// Timeout bounds a single shape fetch
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxContentSize int64         `yaml:"max_content_size"`
	RequireHTTPS   bool          `yaml:"require_https"`
	BlockPrivate   bool          `yaml:"block_private"`
}

// EquipmentConfig configures the output graph
type EquipmentConfig struct {
	// BaseIRI prefixes eqhubProductId to form the equipment IRI
	BaseIRI string `yaml:"base_iri"`
}

// OutputConfig configures serialization
type OutputConfig struct {
	// Format is turtle, ntriples or jsonld
	Format string `yaml:"format"`
	// Dir receives one file per equipment graph in serve mode (empty = off)
	Dir string `yaml:"dir"`
}

// NATSConfig configures the NATS connection used by serve
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
	// PublishGraph also publishes each equipment graph for graph ingestion
	PublishGraph bool `yaml:"publish_graph"`
	// RecordRuns keeps the latest run per equipment item in NATS KV
	RecordRuns bool `yaml:"record_runs"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mapping: MappingConfig{
			ClassTable:    filepath.Join("Mapping", "classMapping.ttl"),
			PropertyTable: filepath.Join("Mapping", "propertyMapping.ttl"),
			SourcePrefix:  eqhub.IDPrefix,
			Debounce:      500 * time.Millisecond,
		},
		Shape: ShapeConfig{
			RewriteFrom:    eqhub.PublishedBase,
			RewriteTo:      eqhub.DraftBase,
			Timeout:        shape.DefaultTimeout,
			UserAgent:      shape.DefaultUserAgent,
			MaxContentSize: shape.DefaultMaxContentSize,
		},
		Equipment: EquipmentConfig{
			BaseIRI: eqhub.EquipmentNamespace,
		},
		Output: OutputConfig{
			Format: string(export.FormatTurtle),
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Mapping.ClassTable == "" {
		return fmt.Errorf("mapping.class_table is required")
	}
	if c.Mapping.PropertyTable == "" {
		return fmt.Errorf("mapping.property_table is required")
	}
	if c.Mapping.Debounce < 0 {
		return fmt.Errorf("mapping.debounce must not be negative")
	}
	if c.Shape.Timeout < 0 {
		return fmt.Errorf("shape.timeout must not be negative")
	}
	if c.Shape.MaxContentSize < 0 {
		return fmt.Errorf("shape.max_content_size must not be negative")
	}
	if c.Equipment.BaseIRI == "" {
		return fmt.Errorf("equipment.base_iri is required")
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

// Rewrite returns the shape rewrite rule, the identity when disabled.
func (c *Config) Rewrite() shape.Rewrite {
	if c.Shape.DisableRewrite != nil && *c.Shape.DisableRewrite {
		return shape.Rewrite{}
	}
	return shape.Rewrite{From: c.Shape.RewriteFrom, To: c.Shape.RewriteTo}
}

// FetchConfig returns the shape fetcher settings.
func (c *Config) FetchConfig() shape.FetchConfig {
	return shape.FetchConfig{
		Timeout:        c.Shape.Timeout,
		UserAgent:      c.Shape.UserAgent,
		MaxContentSize: c.Shape.MaxContentSize,
		Policy: shape.URLPolicy{
			RequireHTTPS: c.Shape.RequireHTTPS,
			BlockPrivate: c.Shape.BlockPrivate,
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Fields absent from the
// file are left zero so the result can be merged onto another config.
// Relative table paths are resolved against the file's directory.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	dir := filepath.Dir(path)
	config.Mapping.ClassTable = resolvePath(dir, config.Mapping.ClassTable)
	config.Mapping.PropertyTable = resolvePath(dir, config.Mapping.PropertyTable)
	config.Output.Dir = resolvePath(dir, config.Output.Dir)

	return &config, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Mapping
	if other.Mapping.ClassTable != "" {
		c.Mapping.ClassTable = other.Mapping.ClassTable
	}
	if other.Mapping.PropertyTable != "" {
		c.Mapping.PropertyTable = other.Mapping.PropertyTable
	}
	if other.Mapping.SourcePrefix != "" {
		c.Mapping.SourcePrefix = other.Mapping.SourcePrefix
	}
	if other.Mapping.Watch {
		c.Mapping.Watch = true
	}
	if other.Mapping.Debounce != 0 {
		c.Mapping.Debounce = other.Mapping.Debounce
	}

	// Shape
	if other.Shape.RewriteFrom != "" {
		c.Shape.RewriteFrom = other.Shape.RewriteFrom
		c.Shape.RewriteTo = other.Shape.RewriteTo
	}
	if other.Shape.DisableRewrite != nil {
		disabled := *other.Shape.DisableRewrite
		c.Shape.DisableRewrite = &disabled
	}
	if other.Shape.Timeout != 0 {
		c.Shape.Timeout = other.Shape.Timeout
	}
	if other.Shape.UserAgent != "" {
		c.Shape.UserAgent = other.Shape.UserAgent
	}
	if other.Shape.MaxContentSize != 0 {
		c.Shape.MaxContentSize = other.Shape.MaxContentSize
	}
	if other.Shape.RequireHTTPS {
		c.Shape.RequireHTTPS = true
	}
	if other.Shape.BlockPrivate {
		c.Shape.BlockPrivate = true
	}

	// Equipment
	if other.Equipment.BaseIRI != "" {
		c.Equipment.BaseIRI = other.Equipment.BaseIRI
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.PublishGraph {
		c.NATS.PublishGraph = true
	}
	if other.NATS.RecordRuns {
		c.NATS.RecordRuns = true
	}
}
