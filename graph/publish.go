// Package graph publishes transformed equipment to the semstreams knowledge
// graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/cayleygraph/quad"

	"github.com/c360studio/semequip/rdfgraph"
)

// GraphIngestSubject is the subject the graph processor ingests entities from.
const GraphIngestSubject = "graph.ingest.entity"

// TripleSource tags triples produced by equipment transforms.
const TripleSource = "semequip.transform"

// StreamPublisher publishes to a JetStream subject. *natsclient.Client
// satisfies it.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// EquipmentEntityID generates a consistent entity ID for an equipment item.
// Format: semequip.local.equipment.item.equipment.<id>
func EquipmentEntityID(equipmentID string) string {
	return fmt.Sprintf("semequip.local.equipment.item.equipment.%s", equipmentID)
}

// EntityFromGraph converts the triples about subject into an entity. IRI
// objects become their IRI text and literals their lexical value.
func EntityFromGraph(equipmentID string, subject quad.IRI, g *rdfgraph.Graph, now time.Time) *EntityPayload {
	entityID := EquipmentEntityID(equipmentID)
	triples := make([]message.Triple, 0, g.Len())
	for _, t := range g.WithSubject(subject) {
		pred, ok := t.Predicate.(quad.IRI)
		if !ok {
			continue
		}
		triples = append(triples, message.Triple{
			Subject:    entityID,
			Predicate:  string(pred),
			Object:     objectValue(t.Object),
			Source:     TripleSource,
			Timestamp:  now,
			Confidence: 1.0,
		})
	}
	return &EntityPayload{EntityID_: entityID, TripleData: triples, UpdatedAt: now}
}

func objectValue(v quad.Value) any {
	switch o := v.(type) {
	case quad.IRI:
		return string(o)
	case quad.String:
		return string(o)
	case quad.LangString:
		return string(o.Value)
	case quad.TypedString:
		return string(o.Value)
	default:
		return v.String()
	}
}

// PublishEquipment publishes an equipment entity for graph ingestion.
func PublishEquipment(ctx context.Context, pub StreamPublisher, entity *EntityPayload) error {
	if pub == nil {
		return nil // Skip publishing if no NATS client (graceful degradation)
	}
	if err := entity.Validate(); err != nil {
		return fmt.Errorf("invalid equipment entity: %w", err)
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal equipment entity: %w", err)
	}

	if err := pub.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
		return fmt.Errorf("publish equipment entity: %w", err)
	}
	return nil
}
