package equipmenttransform

import (
	"encoding/json"
	"errors"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "equipment",
		Category:    "rdf",
		Version:     "v1",
		Description: "Serialized shape-conformant graph of one equipment item",
		Factory:     func() any { return &Payload{} },
	})
	if err != nil {
		panic("failed to register Payload: " + err.Error())
	}
}

// EquipmentRDFType is the message type for equipment RDF payloads.
var EquipmentRDFType = message.Type{Domain: "equipment", Category: "rdf", Version: "v1"}

// Payload carries the transform result for one equipment document.
type Payload struct {
	RunID        string `json:"run_id"`
	EquipmentID  string `json:"equipment_id"`
	EquipmentIRI string `json:"equipment_iri"`
	ClassID      string `json:"class_id"`
	ShapeType    string `json:"shape_type"`
	Format       string `json:"format"`  // turtle, ntriples, jsonld
	Content      string `json:"content"` // serialized RDF
	TripleCount  int    `json:"triple_count"`
	Skipped      int    `json:"skipped_properties"`
}

// Schema returns the message type for Payload interface.
func (p *Payload) Schema() message.Type { return EquipmentRDFType }

// Validate validates the payload for Payload interface.
func (p *Payload) Validate() error {
	if p.EquipmentID == "" {
		return errors.New("equipment_id is required")
	}
	if p.Format == "" {
		return errors.New("format is required")
	}
	if p.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *Payload) MarshalJSON() ([]byte, error) {
	type Alias Payload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type Alias Payload
	return json.Unmarshal(data, (*Alias)(p))
}
