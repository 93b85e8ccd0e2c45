package equipmentfiles

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the equipment-files output component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     NewComponent,
		Schema:      equipmentFilesSchema,
		Type:        "output",
		Protocol:    "file",
		Domain:      "equipment",
		Description: "Writes serialized equipment graphs to files",
		Version:     "1.0.0",
	})
}
