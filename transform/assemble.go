package transform

import (
	"github.com/cayleygraph/quad"

	"github.com/c360studio/semequip/equipment"
	errs "github.com/c360studio/semequip/errors"
	"github.com/c360studio/semequip/rdfgraph"
	"github.com/c360studio/semequip/shape"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// EquipmentIRI returns the subject IRI for an equipment identifier.
func EquipmentIRI(base, equipmentID string) quad.IRI {
	if base == "" {
		base = eqhub.EquipmentNamespace
	}
	return quad.IRI(base + equipmentID)
}

// Assemble builds the output graph for one equipment item: its rdf:type
// triple, one triple per shape constraint and one per projected property,
// all on the same subject. The graph is not modified after return.
func Assemble(base, equipmentID string, s *shape.Shape, assertions []equipment.Assertion) (*rdfgraph.Graph, error) {
	if equipmentID == "" {
		return nil, errs.MissingField("transform.Assemble", "eqhubProductId")
	}
	if s == nil || s.Type == nil {
		return nil, errs.New(errs.KindMalformedShape, "transform.Assemble", "shape has no type node")
	}

	subject := EquipmentIRI(base, equipmentID)
	g := rdfgraph.New()
	g.Assert(subject, quad.IRI(eqhub.RDFType), s.Type)

	for _, c := range s.Constraints {
		g.Assert(subject, c.Path, c.Value)
	}
	for _, a := range assertions {
		g.Assert(subject, a.Predicate, a.Object)
	}
	return g, nil
}
