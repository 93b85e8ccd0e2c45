package export

import (
	"encoding/json"
	"sort"

	"github.com/cayleygraph/quad"

	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats returns the registered formats in name order.
func Formats() []Format {
	out := make([]Format, 0, len(FormatRegistry))
	for f := range FormatRegistry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Graph   []*JSONLDNode  `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph. Properties are keyed by
// full predicate IRI.
type JSONLDNode struct {
	ID         string
	Type       []string
	Properties map[string][]any
}

// MarshalJSON flattens the node into a single JSON object.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// JSONLDWriter writes RDF in flattened JSON-LD form: one node object per
// subject, in the order subjects are first seen.
type JSONLDWriter struct {
	doc   JSONLDDocument
	nodes map[string]*JSONLDNode
}

// NewJSONLDWriter creates a new JSON-LD writer.
func NewJSONLDWriter() *JSONLDWriter {
	return &JSONLDWriter{
		doc: JSONLDDocument{
			Context: make(map[string]any),
			Graph:   make([]*JSONLDNode, 0),
		},
		nodes: make(map[string]*JSONLDNode),
	}
}

// SetContext sets the @context with prefixes.
func (w *JSONLDWriter) SetContext(prefixes map[string]string) {
	for k, v := range prefixes {
		w.doc.Context[k] = v
	}
}

// AddTriple adds one triple. rdf:type triples with an IRI object become
// @type entries.
func (w *JSONLDWriter) AddTriple(s, p, o quad.Value) {
	id := nodeID(s)
	node, ok := w.nodes[id]
	if !ok {
		node = &JSONLDNode{ID: id, Properties: make(map[string][]any)}
		w.nodes[id] = node
		w.doc.Graph = append(w.doc.Graph, node)
	}

	pred := nodeID(p)
	if iri, ok := o.(quad.IRI); ok && pred == eqhub.RDFType {
		node.Type = append(node.Type, string(iri))
		return
	}
	node.Properties[pred] = append(node.Properties[pred], objectJSONLD(o))
}

// String returns the JSON-LD output.
func (w *JSONLDWriter) String() string {
	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data) + "\n"
}

func nodeID(v quad.Value) string {
	switch t := v.(type) {
	case quad.IRI:
		return string(t)
	case quad.BNode:
		return "_:" + string(t)
	default:
		return v.String()
	}
}

func objectJSONLD(v quad.Value) any {
	switch t := v.(type) {
	case quad.IRI, quad.BNode:
		return map[string]string{"@id": nodeID(t)}
	case quad.String:
		return map[string]string{"@value": string(t)}
	case quad.LangString:
		return map[string]string{"@value": string(t.Value), "@language": t.Lang}
	case quad.TypedString:
		return map[string]string{"@value": string(t.Value), "@type": string(t.Type)}
	default:
		return map[string]string{"@value": v.String()}
	}
}
