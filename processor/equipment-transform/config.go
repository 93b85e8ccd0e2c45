package equipmenttransform

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/c360studio/semstreams/component"

	"github.com/c360studio/semequip/export"
	"github.com/c360studio/semequip/shape"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// equipmentTransformSchema defines the configuration schema.
var equipmentTransformSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the equipment-transform processor.
type Config struct {
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	ClassTable    string `json:"class_table" schema:"type:string,description:Class mapping table (Turtle or N-Triples),category:basic"`
	PropertyTable string `json:"property_table" schema:"type:string,description:Property mapping table (Turtle or N-Triples),category:basic"`
	SourcePrefix  string `json:"source_prefix,omitempty" schema:"type:string,description:Prefix stripped from mapping table subjects,category:advanced"`
	WatchTables   bool   `json:"watch_tables,omitempty" schema:"type:bool,description:Reload mapping tables when they change,category:advanced,default:false"`

	RewriteFrom    string `json:"rewrite_from,omitempty" schema:"type:string,description:Base URI replaced in fetched shapes,category:advanced,default:https://posccaesar.org"`
	RewriteTo      string `json:"rewrite_to,omitempty" schema:"type:string,description:Replacement base URI for fetched shapes,category:advanced,default:https://draft.posccaesar.org"`
	DisableRewrite bool   `json:"disable_rewrite,omitempty" schema:"type:bool,description:Use fetched shapes without base URI rewrite,category:advanced,default:false"`
	FetchTimeout   string `json:"fetch_timeout,omitempty" schema:"type:string,description:Shape fetch timeout,category:advanced,default:30s"`

	UserAgent      string `json:"user_agent,omitempty" schema:"type:string,description:User-Agent sent with shape requests,category:advanced"`
	MaxContentSize int64  `json:"max_content_size,omitempty" schema:"type:int,description:Largest accepted shape document in bytes,category:advanced,default:10485760"`
	RequireHTTPS   bool   `json:"require_https,omitempty" schema:"type:bool,description:Only fetch shapes over HTTPS,category:advanced,default:false"`
	BlockPrivate   bool   `json:"block_private,omitempty" schema:"type:bool,description:Refuse shape URLs resolving to private networks,category:advanced,default:false"`

	Format       string `json:"format" schema:"type:string,description:RDF serialization format (turtle/ntriples/jsonld),category:basic,default:turtle"`
	BaseIRI      string `json:"base_iri" schema:"type:string,description:Base IRI for equipment subjects,category:basic,default:https://example.org/equipment/"`
	PublishGraph bool   `json:"publish_graph,omitempty" schema:"type:bool,description:Also publish equipment entities for graph ingestion,category:basic,default:false"`
	RecordRuns   bool   `json:"record_runs,omitempty" schema:"type:bool,description:Keep the latest run per equipment item in NATS KV,category:advanced,default:false"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ClassTable == "" {
		return fmt.Errorf("class_table is required")
	}
	if c.PropertyTable == "" {
		return fmt.Errorf("property_table is required")
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w (valid: turtle, ntriples, jsonld)", err)
	}
	if c.FetchTimeout != "" {
		d, err := time.ParseDuration(c.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("fetch_timeout must be positive")
		}
	}
	if c.MaxContentSize < 0 {
		return fmt.Errorf("max_content_size must not be negative")
	}
	return nil
}

// GetFormat returns the configured export.Format.
func (c *Config) GetFormat() export.Format {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return export.FormatTurtle
	}
	return f
}

// GetBaseIRI returns the configured base IRI with a default fallback.
func (c *Config) GetBaseIRI() string {
	if c.BaseIRI != "" {
		return c.BaseIRI
	}
	return eqhub.EquipmentNamespace
}

// GetRewrite returns the shape rewrite rule. DisableRewrite yields the identity.
func (c *Config) GetRewrite() shape.Rewrite {
	if c.DisableRewrite {
		return shape.Rewrite{}
	}
	return shape.Rewrite{From: c.RewriteFrom, To: c.RewriteTo}
}

// GetFetchConfig returns the HTTP fetcher settings, URL policy included.
func (c *Config) GetFetchConfig() shape.FetchConfig {
	return shape.FetchConfig{
		Timeout:        c.GetFetchTimeout(),
		UserAgent:      c.UserAgent,
		MaxContentSize: c.MaxContentSize,
		Policy: shape.URLPolicy{
			RequireHTTPS: c.RequireHTTPS,
			BlockPrivate: c.BlockPrivate,
		},
	}
}

// GetFetchTimeout returns the shape fetch timeout with a default fallback.
func (c *Config) GetFetchTimeout() time.Duration {
	if d, err := time.ParseDuration(c.FetchTimeout); err == nil && d > 0 {
		return d
	}
	return shape.DefaultTimeout
}

// outputPrefix returns the output subject without its trailing wildcard.
func (c *Config) outputPrefix() string {
	subject := "equipment.rdf.>"
	if c.Ports != nil && len(c.Ports.Outputs) > 0 {
		subject = c.Ports.Outputs[0].Subject
	}
	return strings.TrimSuffix(strings.TrimSuffix(subject, ">"), ".")
}

// DefaultConfig returns the default configuration for equipment-transform.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "equipment_in",
					Type:        "jetstream",
					Subject:     "equipment.ingest.>",
					StreamName:  "EQUIPMENT",
					Required:    true,
					Description: "Raw EqHub equipment JSON documents",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "rdf_out",
					Type:        "jetstream",
					Subject:     "equipment.rdf.>",
					StreamName:  "EQUIPMENT",
					Required:    true,
					Description: "Shape-conformant equipment graphs, one subject per equipment ID",
				},
			},
		},
		SourcePrefix: eqhub.IDPrefix,
		RewriteFrom:  eqhub.PublishedBase,
		RewriteTo:    eqhub.DraftBase,
		FetchTimeout: "30s",
		Format:       string(export.FormatTurtle),
		BaseIRI:      eqhub.EquipmentNamespace,
	}
}
