package shape

import (
	"strings"

	"github.com/cayleygraph/quad"

	errs "github.com/c360studio/semequip/errors"
	"github.com/c360studio/semequip/rdfgraph"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// Constraint is a (path, value) pair a shape requires on every conforming
// instance.
type Constraint struct {
	Path  quad.Value
	Value quad.Value
}

// Shape is what a transform needs from a shape document.
type Shape struct {
	// Type is the node typed imf:BlockType; instances are typed with it.
	Type quad.Value

	// Constraints are discovered in document order. Nothing downstream may
	// depend on that order: equivalent documents can list them differently.
	Constraints []Constraint

	// Graph is the parsed shape document.
	Graph *rdfgraph.Graph
}

var (
	rdfType       = quad.IRI(eqhub.RDFType)
	blockType     = quad.IRI(eqhub.ClassBlockType)
	shaclPath     = quad.IRI(eqhub.SHACLPath)
	shaclHasValue = quad.IRI(eqhub.SHACLHasValue)
)

// Extract parses a shape document and reads its BlockType node and fixed
// value constraints.
func Extract(text string, syntax rdfgraph.Syntax) (*Shape, error) {
	g, err := rdfgraph.ParseString(text, syntax)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "shape.Extract", "parse shape document")
	}
	return FromGraph(g)
}

// FromGraph reads the BlockType node and constraints of a parsed shape.
//
// The first subject typed imf:BlockType is the shape's type node; a graph
// without one is malformed. A constraint is any node reached through a
// relation whose IRI ends in "property" that carries both sh:path and
// sh:hasValue; nodes missing either are skipped.
func FromGraph(g *rdfgraph.Graph) (*Shape, error) {
	typed := g.WithPredicateObject(rdfType, blockType)
	if len(typed) == 0 {
		return nil, errs.New(errs.KindMalformedShape, "shape.FromGraph",
			"no subject is typed %s", eqhub.ClassBlockType)
	}

	s := &Shape{Type: typed[0].Subject, Graph: g}
	for _, t := range g.Triples() {
		pred, ok := t.Predicate.(quad.IRI)
		if !ok || !strings.HasSuffix(string(pred), eqhub.PropertyRelationSuffix) {
			continue
		}
		if !rdfgraph.IsNode(t.Object) {
			continue
		}

		path, hasPath := g.FirstObject(t.Object, shaclPath)
		value, hasValue := g.FirstObject(t.Object, shaclHasValue)
		if !hasPath || !hasValue {
			continue
		}
		s.Constraints = append(s.Constraints, Constraint{Path: path, Value: value})
	}
	return s, nil
}
