// Package export serializes equipment graphs to Turtle, N-Triples and JSON-LD.
package export

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	krdf "github.com/knakk/rdf"

	"github.com/c360studio/semequip/rdfgraph"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// ParseFormat accepts a format name, a known alias or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Serialize writes g to w in the given format. Output is deterministic:
// triples are written in lexical order of their N-Triples terms.
func Serialize(w io.Writer, g *rdfgraph.Graph, format Format) error {
	triples := sortedTriples(g)
	switch format {
	case FormatTurtle, "":
		return writeTurtle(w, triples)
	case FormatNTriples:
		return writeNTriples(w, triples)
	case FormatJSONLD:
		jw := NewJSONLDWriter()
		jw.SetContext(eqhub.Prefixes())
		for _, t := range triples {
			jw.AddTriple(t.Subject, t.Predicate, t.Object)
		}
		_, err := io.WriteString(w, jw.String())
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// SerializeToString returns g serialized in the given format.
func SerializeToString(g *rdfgraph.Graph, format Format) (string, error) {
	var sb strings.Builder
	if err := Serialize(&sb, g, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func sortedTriples(g *rdfgraph.Graph) []quad.Quad {
	triples := g.Triples()
	sort.Slice(triples, func(i, j int) bool {
		a, b := triples[i], triples[j]
		if as, bs := a.Subject.String(), b.Subject.String(); as != bs {
			return as < bs
		}
		if ap, bp := a.Predicate.String(), b.Predicate.String(); ap != bp {
			return ap < bp
		}
		return a.Object.String() < b.Object.String()
	})
	return triples
}

func writeNTriples(w io.Writer, triples []quad.Quad) error {
	qw := nquads.NewWriter(w)
	for _, t := range triples {
		if err := qw.WriteQuad(t); err != nil {
			return fmt.Errorf("write n-triples: %w", err)
		}
	}
	return qw.Close()
}

func writeTurtle(w io.Writer, triples []quad.Quad) error {
	enc := krdf.NewTripleEncoder(w, krdf.Turtle)
	enc.Namespaces = turtleNamespaces(triples)

	for _, t := range triples {
		kt, err := toTriple(t)
		if err != nil {
			return fmt.Errorf("write turtle: %w", err)
		}
		if err := enc.Encode(kt); err != nil {
			return fmt.Errorf("write turtle: %w", err)
		}
	}
	return enc.Close()
}

// pnLocal matches local names that can follow a prefix without escaping.
var pnLocal = regexp.MustCompile(`^([A-Za-z0-9_:]([A-Za-z0-9_.:-]*[A-Za-z0-9_:-])?)?$`)

// turtleNamespaces returns the namespace to prefix map for the encoder,
// leaving out any namespace under which some IRI in triples has a local
// part that is not a plain prefixed name ("eq:v1." or "eq:a/b"). Those IRIs
// are then written in full.
func turtleNamespaces(triples []quad.Quad) map[string]string {
	ns := make(map[string]string)
	for prefix, iri := range eqhub.Prefixes() {
		ns[iri] = prefix
	}

	check := func(v quad.Value) {
		var iri string
		switch val := v.(type) {
		case quad.IRI:
			iri = string(val)
		case quad.TypedString:
			iri = string(val.Type)
		default:
			return
		}
		for base := range ns {
			if strings.HasPrefix(iri, base) && !pnLocal.MatchString(iri[len(base):]) {
				delete(ns, base)
			}
		}
	}
	for _, t := range triples {
		check(t.Subject)
		check(t.Predicate)
		check(t.Object)
	}
	return ns
}

func toTriple(t quad.Quad) (krdf.Triple, error) {
	s, err := rdfgraph.ToTerm(t.Subject)
	if err != nil {
		return krdf.Triple{}, err
	}
	p, err := rdfgraph.ToTerm(t.Predicate)
	if err != nil {
		return krdf.Triple{}, err
	}
	o, err := rdfgraph.ToTerm(t.Object)
	if err != nil {
		return krdf.Triple{}, err
	}

	subj, ok := s.(krdf.Subject)
	if !ok {
		return krdf.Triple{}, fmt.Errorf("%s cannot be a subject", t.Subject)
	}
	pred, ok := p.(krdf.Predicate)
	if !ok {
		return krdf.Triple{}, fmt.Errorf("%s cannot be a predicate", t.Predicate)
	}
	obj, ok := o.(krdf.Object)
	if !ok {
		return krdf.Triple{}, fmt.Errorf("%s cannot be an object", t.Object)
	}
	return krdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}
