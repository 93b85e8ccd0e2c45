package rdfgraph

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	krdf "github.com/knakk/rdf"

	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// Syntax is an RDF document syntax accepted by Parse.
type Syntax string

const (
	// Turtle is the Terse RDF Triple Language.
	Turtle Syntax = "turtle"

	// NTriples is the line-based N-Triples syntax.
	NTriples Syntax = "ntriples"
)

// SyntaxForPath picks a syntax from a file extension. Unknown extensions
// are read as Turtle, which is a superset of N-Triples.
func SyntaxForPath(path string) Syntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt", ".nq":
		return NTriples
	default:
		return Turtle
	}
}

// ParseString parses an RDF document held in memory.
func ParseString(text string, syntax Syntax) (*Graph, error) {
	return Parse(strings.NewReader(text), syntax)
}

// Parse reads an RDF document into a new graph.
func Parse(r io.Reader, syntax Syntax) (*Graph, error) {
	switch syntax {
	case Turtle, "":
		return parseTurtle(r)
	case NTriples:
		return parseNTriples(r)
	default:
		return nil, fmt.Errorf("unsupported syntax: %s", syntax)
	}
}

func parseTurtle(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read turtle: %w", err)
	}

	g := New()
	dec := krdf.NewTripleDecoder(strings.NewReader(padLineEnds(string(data))), krdf.Turtle)
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode turtle: %w", err)
		}
		g.Assert(FromTerm(t.Subj), FromTerm(t.Pred), FromTerm(t.Obj))
	}
}

// padLineEnds puts a space before every line break that is not inside a
// string literal. The knakk/rdf lexer rejects a numeric literal followed
// directly by a line break ("sh:minCount 1\n ]"). Line numbers in decode
// errors are unchanged.
func padLineEnds(text string) string {
	const (
		inCode = iota
		inIRI
		inComment
		inString
		inLongString
	)

	var b strings.Builder
	b.Grow(len(text) + strings.Count(text, "\n"))

	state := inCode
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case inCode:
			switch c {
			case '\\':
				if i+1 < len(text) {
					b.WriteByte(c)
					i++
					c = text[i]
				}
			case '<':
				state = inIRI
			case '#':
				state = inComment
			case '"', '\'':
				quote = c
				if run := quoteRun(text, i, c); run >= 3 {
					b.WriteString(text[i : i+3])
					i += 2
					state = inLongString
					continue
				}
				state = inString
			case '\n', '\r':
				b.WriteByte(' ')
			}
		case inIRI:
			if c == '>' {
				state = inCode
			}
		case inComment:
			if c == '\n' || c == '\r' {
				b.WriteByte(' ')
				state = inCode
			}
		case inString:
			if c == '\\' && i+1 < len(text) {
				b.WriteByte(c)
				i++
				c = text[i]
			} else if c == quote {
				state = inCode
			}
		case inLongString:
			if c == '\\' && i+1 < len(text) {
				b.WriteByte(c)
				i++
				c = text[i]
			} else if c == quote {
				// The last three quotes of a run close the literal.
				if run := quoteRun(text, i, c); run >= 3 {
					b.WriteString(text[i : i+run])
					i += run - 1
					state = inCode
					continue
				}
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// quoteRun counts consecutive q bytes starting at text[i].
func quoteRun(text string, i int, q byte) int {
	n := 0
	for i+n < len(text) && text[i+n] == q {
		n++
	}
	return n
}

func parseNTriples(r io.Reader) (*Graph, error) {
	g := New()
	qr := nquads.NewReader(r, true)
	for {
		q, err := qr.ReadQuad()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode n-triples: %w", err)
		}
		g.Assert(q.Subject, q.Predicate, q.Object)
	}
}

// FromTerm converts a knakk/rdf term into a quad value.
func FromTerm(t krdf.Term) quad.Value {
	switch v := t.(type) {
	case krdf.IRI:
		return quad.IRI(v.String())
	case krdf.Blank:
		return quad.BNode(strings.TrimPrefix(v.String(), "_:"))
	case krdf.Literal:
		if lang := v.Lang(); lang != "" {
			return quad.LangString{Value: quad.String(v.String()), Lang: lang}
		}
		dt := v.DataType.String()
		if dt == "" || dt == eqhub.XSDNamespace+"string" {
			return quad.String(v.String())
		}
		return quad.TypedString{Value: quad.String(v.String()), Type: quad.IRI(dt)}
	default:
		return nil
	}
}

// ToTerm converts a quad value into a knakk/rdf term for encoding.
func ToTerm(v quad.Value) (krdf.Term, error) {
	switch val := v.(type) {
	case quad.IRI:
		return krdf.NewIRI(string(val))
	case quad.BNode:
		return krdf.NewBlank(string(val))
	case quad.String:
		return krdf.NewLiteral(string(val))
	case quad.LangString:
		return krdf.NewLangLiteral(string(val.Value), val.Lang)
	case quad.TypedString:
		dt, err := krdf.NewIRI(string(val.Type))
		if err != nil {
			return nil, err
		}
		return krdf.NewTypedLiteral(string(val.Value), dt), nil
	default:
		return nil, fmt.Errorf("unsupported term type %T", v)
	}
}

// IsNode reports whether v is an IRI or blank node, i.e. something that can
// be the subject of further triples.
func IsNode(v quad.Value) bool {
	switch v.(type) {
	case quad.IRI, quad.BNode:
		return true
	default:
		return false
	}
}
