package equipmentfiles

import (
	"encoding/json"
	"errors"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "equipment",
		Category:    "file_written",
		Version:     "v1",
		Description: "Notification that an equipment graph was written to disk",
		Factory:     func() any { return &FileWrittenPayload{} },
	})
	if err != nil {
		panic("failed to register FileWrittenPayload: " + err.Error())
	}
}

// FileWrittenType is the message type for file written notifications.
var FileWrittenType = message.Type{Domain: "equipment", Category: "file_written", Version: "v1"}

// FileWrittenPayload is published after a graph file is written.
type FileWrittenPayload struct {
	EquipmentID string `json:"equipment_id"`
	RunID       string `json:"run_id,omitempty"`
	Path        string `json:"path"`
	Bytes       int    `json:"bytes"`
}

// Schema returns the message type for Payload interface.
func (p *FileWrittenPayload) Schema() message.Type { return FileWrittenType }

// Validate validates the payload for Payload interface.
func (p *FileWrittenPayload) Validate() error {
	if p.EquipmentID == "" {
		return errors.New("equipment_id is required")
	}
	if p.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *FileWrittenPayload) MarshalJSON() ([]byte, error) {
	type Alias FileWrittenPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *FileWrittenPayload) UnmarshalJSON(data []byte) error {
	type Alias FileWrittenPayload
	return json.Unmarshal(data, (*Alias)(p))
}
