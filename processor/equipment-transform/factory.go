package equipmenttransform

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the equipment-transform processor with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     NewComponent,
		Schema:      equipmentTransformSchema,
		Type:        "processor",
		Protocol:    "rdf",
		Domain:      "equipment",
		Description: "Projects EqHub equipment JSON into SHACL shape-conformant RDF",
		Version:     "1.0.0",
	})
}
