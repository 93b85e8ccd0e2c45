package rdfgraph

import (
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTurtle = `
@prefix ex: <https://example.org/> .

ex:a ex:p ex:b ;
    ex:label "hello" .
ex:a ex:p ex:b .
`

func TestParseTurtle(t *testing.T) {
	g, err := ParseString(sampleTurtle, Turtle)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.True(t, g.Contains(quad.IRI("https://example.org/a"), quad.IRI("https://example.org/p"), quad.IRI("https://example.org/b")))
	assert.True(t, g.Contains(quad.IRI("https://example.org/a"), quad.IRI("https://example.org/label"), quad.String("hello")))
}

func TestParseTurtleBlankNodes(t *testing.T) {
	g, err := ParseString(`
@prefix ex: <https://example.org/> .
ex:s ex:has [ ex:v "1" ] .
`, Turtle)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	obj, ok := g.FirstObject(quad.IRI("https://example.org/s"), quad.IRI("https://example.org/has"))
	require.True(t, ok)
	assert.True(t, IsNode(obj))

	v, ok := g.FirstObject(obj, quad.IRI("https://example.org/v"))
	require.True(t, ok)
	assert.Equal(t, quad.String("1"), v)
}

func TestParseTurtleNumberEndsLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  quad.Value
	}{
		{
			name:  "integer before bracket",
			input: "<urn:s> <urn:p> [ <urn:min> 1\n ] .\n",
			want:  quad.TypedString{Value: "1", Type: "http://www.w3.org/2001/XMLSchema#integer"},
		},
		{
			name:  "decimal before dot",
			input: "<urn:s> <urn:min> 1.5\n.\n",
			want:  quad.TypedString{Value: "1.5", Type: "http://www.w3.org/2001/XMLSchema#decimal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseString(tt.input, Turtle)
			require.NoError(t, err)

			var found bool
			for _, q := range g.Triples() {
				if q.Predicate == quad.IRI("urn:min") {
					assert.Equal(t, tt.want, q.Object)
					found = true
				}
			}
			assert.True(t, found, "numeric triple missing")
		})
	}
}

func TestPadLineEndsKeepsLiterals(t *testing.T) {
	input := "# it's a comment\n" +
		"<urn:s#x> <urn:p> \"\"\"line one\nline two\"\"\" ;\n" +
		"  <urn:q> \"single\" .\n"

	padded := padLineEnds(input)
	assert.Contains(t, padded, "\"\"\"line one\nline two\"\"\" ;")
	assert.Equal(t, strings.Count(input, "\n"), strings.Count(padded, "\n"))

	g, err := ParseString(input, Turtle)
	require.NoError(t, err)
	assert.True(t, g.Contains(quad.IRI("urn:s#x"), quad.IRI("urn:p"), quad.String("line one\nline two")))
	assert.True(t, g.Contains(quad.IRI("urn:s#x"), quad.IRI("urn:q"), quad.String("single")))
}

func TestParseNTriples(t *testing.T) {
	g, err := ParseString(`<urn:a> <urn:p> <urn:b> .
<urn:a> <urn:p> "x" .
`, NTriples)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.True(t, g.Contains(quad.IRI("urn:a"), quad.IRI("urn:p"), quad.IRI("urn:b")))
	assert.True(t, g.Contains(quad.IRI("urn:a"), quad.IRI("urn:p"), quad.String("x")))
}

func TestParseMalformedTurtle(t *testing.T) {
	_, err := ParseString(`@prefix ex: <https://example.org/> . ex:a ex:p`, Turtle)
	assert.Error(t, err)
}

func TestParseUnsupportedSyntax(t *testing.T) {
	_, err := ParseString("", Syntax("rdfxml"))
	assert.Error(t, err)
}

func TestSyntaxForPath(t *testing.T) {
	assert.Equal(t, Turtle, SyntaxForPath("Mapping/classMapping.ttl"))
	assert.Equal(t, NTriples, SyntaxForPath("table.NT"))
	assert.Equal(t, Turtle, SyntaxForPath("noext"))
}

func TestTermRoundTrip(t *testing.T) {
	values := []quad.Value{
		quad.IRI("https://example.org/a"),
		quad.BNode("b1"),
		quad.String("plain"),
		quad.LangString{Value: "hei", Lang: "no"},
		quad.TypedString{Value: "42", Type: "http://www.w3.org/2001/XMLSchema#integer"},
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			term, err := ToTerm(v)
			require.NoError(t, err)
			assert.Equal(t, v, FromTerm(term))
		})
	}
}
