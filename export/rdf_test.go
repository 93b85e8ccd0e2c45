package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"

	"github.com/c360studio/semequip/export"
	"github.com/c360studio/semequip/rdfgraph"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

const (
	pumpIRI = quad.IRI(eqhub.EquipmentNamespace + "12345")
	hasTemp = quad.IRI("https://example.org/ex#hasTemp")
)

func sampleGraph() *rdfgraph.Graph {
	g := rdfgraph.New()
	g.Assert(pumpIRI, quad.IRI(eqhub.RDFType), quad.IRI("https://draft.posccaesar.org/imf/shapes/CentrifugalPump"))
	g.Assert(pumpIRI, quad.IRI(eqhub.IMFNamespace+"hasAspect"), quad.IRI(eqhub.IMFNamespace+"functionAspect"))
	g.Assert(pumpIRI, hasTemp, quad.String("42"))
	g.Assert(pumpIRI, quad.IRI("https://example.org/ex#note"), quad.String("installed 2019"))
	g.Assert(pumpIRI, quad.IRI(eqhub.RDFSNamespace+"label"), quad.LangString{Value: "pumpe", Lang: "nb"})
	g.Assert(quad.BNode("b0"), quad.IRI("https://example.org/ex#weight"), quad.TypedString{Value: "12.5", Type: quad.IRI(eqhub.XSDNamespace + "decimal")})
	return g
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Format
		wantErr bool
	}{
		{"", export.FormatTurtle, false},
		{"Turtle", export.FormatTurtle, false},
		{".ttl", export.FormatTurtle, false},
		{"nt", export.FormatNTriples, false},
		{"n-triples", export.FormatNTriples, false},
		{"json-ld", export.FormatJSONLD, false},
		{"rdfxml", "", true},
	}

	for _, tt := range tests {
		got, err := export.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	syntaxes := map[export.Format]rdfgraph.Syntax{
		export.FormatTurtle:   rdfgraph.Turtle,
		export.FormatNTriples: rdfgraph.NTriples,
	}

	for format, syntax := range syntaxes {
		t.Run(string(format), func(t *testing.T) {
			g := sampleGraph()
			out, err := export.SerializeToString(g, format)
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}

			back, err := rdfgraph.ParseString(out, syntax)
			if err != nil {
				t.Fatalf("output does not parse: %v\n%s", err, out)
			}
			if back.Len() != g.Len() {
				t.Fatalf("round trip has %d triples, want %d\n%s", back.Len(), g.Len(), out)
			}
			if !back.Contains(pumpIRI, hasTemp, quad.String("42")) {
				t.Errorf("round trip lost the temperature triple\n%s", out)
			}
		})
	}
}

func TestSerializeTurtleUnsafeLocalNames(t *testing.T) {
	odd := []quad.IRI{
		quad.IRI(eqhub.EquipmentNamespace + "v1."),
		quad.IRI(eqhub.EquipmentNamespace + "site/7"),
	}

	g := rdfgraph.New()
	g.Assert(odd[0], quad.IRI(eqhub.RDFType), quad.IRI(eqhub.IMFNamespace+"Block"))
	g.Assert(odd[1], quad.IRI(eqhub.RDFType), quad.IRI(eqhub.IMFNamespace+"Block"))
	g.Assert(pumpIRI, hasTemp, quad.String("42"))

	out, err := export.SerializeToString(g, export.FormatTurtle)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if strings.Contains(out, "eq:v1.") {
		t.Errorf("local name ending in '.' written as prefixed name:\n%s", out)
	}

	back, err := rdfgraph.ParseString(out, rdfgraph.Turtle)
	if err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, out)
	}
	for _, iri := range odd {
		if !back.Contains(iri, quad.IRI(eqhub.RDFType), quad.IRI(eqhub.IMFNamespace+"Block")) {
			t.Errorf("round trip lost %s\n%s", iri, out)
		}
	}
	if !back.Contains(pumpIRI, hasTemp, quad.String("42")) {
		t.Errorf("round trip lost the temperature triple\n%s", out)
	}
}

func TestSerializeDeterministic(t *testing.T) {
	for _, format := range export.Formats() {
		first, err := export.SerializeToString(sampleGraph(), format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		second, _ := export.SerializeToString(sampleGraph(), format)
		if first != second {
			t.Errorf("%s output differs between runs", format)
		}
	}
}

func TestSerializeNTriplesLines(t *testing.T) {
	out, err := export.SerializeToString(sampleGraph(), export.FormatNTriples)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), out)
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, " .") {
			t.Errorf("line should end with ' .': %s", line)
		}
	}
	if !strings.Contains(out, `<https://example.org/equipment/12345> <https://example.org/ex#hasTemp> "42" .`) {
		t.Errorf("missing temperature triple:\n%s", out)
	}
}

func TestSerializeJSONLD(t *testing.T) {
	out, err := export.SerializeToString(sampleGraph(), export.FormatJSONLD)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var doc struct {
		Context map[string]string            `json:"@context"`
		Graph   []map[string]json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc.Context["imf"] != eqhub.IMFNamespace {
		t.Errorf("context should declare imf prefix, got %v", doc.Context)
	}
	if len(doc.Graph) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(doc.Graph))
	}

	var pump map[string]json.RawMessage
	for _, node := range doc.Graph {
		if string(node["@id"]) == `"`+string(pumpIRI)+`"` {
			pump = node
		}
	}
	if pump == nil {
		t.Fatal("equipment node not found")
	}

	var types []string
	if err := json.Unmarshal(pump["@type"], &types); err != nil || len(types) != 1 {
		t.Errorf("expected one @type, got %s", pump["@type"])
	}

	var temps []map[string]string
	if err := json.Unmarshal(pump[string(hasTemp)], &temps); err != nil {
		t.Fatalf("temperature property: %v", err)
	}
	if len(temps) != 1 || temps[0]["@value"] != "42" {
		t.Errorf("unexpected temperature values: %v", temps)
	}
}

func TestSerializeUnsupportedFormat(t *testing.T) {
	if _, err := export.SerializeToString(sampleGraph(), export.Format("rdfxml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatRegistry(t *testing.T) {
	for _, format := range export.Formats() {
		info, ok := export.GetFormatInfo(format)
		if !ok {
			t.Fatalf("format %s not registered", format)
		}
		if info.MIMEType == "" || !strings.HasPrefix(info.Extension, ".") {
			t.Errorf("format %s has incomplete metadata: %+v", format, info)
		}
	}
	if len(export.Formats()) != 3 {
		t.Errorf("expected 3 formats, got %d", len(export.Formats()))
	}
}
