package equipmentfiles

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// equipmentFilesSchema defines the configuration schema.
var equipmentFilesSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the equipment-files output component.
type Config struct {
	Ports  *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	OutDir string                `json:"out_dir" schema:"type:string,description:Directory equipment graphs are written to,category:basic"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Ports == nil {
		return fmt.Errorf("ports configuration required")
	}
	if len(c.Ports.Inputs) == 0 {
		return fmt.Errorf("at least one input port required")
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir is required")
	}
	return nil
}

// DefaultConfig returns the default configuration for equipment-files.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "rdf_in",
					Type:        "jetstream",
					Subject:     "equipment.rdf.>",
					StreamName:  "EQUIPMENT",
					Required:    true,
					Description: "Serialized equipment graphs to write to disk",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "files_written",
					Type:        "nats",
					Subject:     "equipment.files.written",
					Required:    false,
					Description: "Notification when an equipment graph is written",
				},
			},
		},
	}
}
