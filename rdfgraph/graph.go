// Package rdfgraph provides a small in-memory triple set over cayley quad
// terms, with Turtle and N-Triples parsing.
//
// Triples keep the order in which they were first asserted; re-asserting an
// existing triple is a no-op. Lookups scan the set linearly, which suits the
// shape and equipment graphs this module handles (tens to hundreds of
// triples).
package rdfgraph

import (
	"github.com/cayleygraph/quad"
)

type tripleKey struct {
	s, p, o string
}

// Graph is an ordered set of triples. The zero value is not usable; call New.
type Graph struct {
	triples []quad.Quad
	seen    map[tripleKey]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{seen: make(map[tripleKey]struct{})}
}

func keyOf(s, p, o quad.Value) tripleKey {
	return tripleKey{s: s.String(), p: p.String(), o: o.String()}
}

// Assert adds the triple (s, p, o) and reports whether it was new.
// Triples with a nil term are never added.
func (g *Graph) Assert(s, p, o quad.Value) bool {
	if s == nil || p == nil || o == nil {
		return false
	}
	k := keyOf(s, p, o)
	if _, ok := g.seen[k]; ok {
		return false
	}
	g.seen[k] = struct{}{}
	g.triples = append(g.triples, quad.Quad{Subject: s, Predicate: p, Object: o})
	return true
}

// Contains reports whether the graph holds (s, p, o).
func (g *Graph) Contains(s, p, o quad.Value) bool {
	if s == nil || p == nil || o == nil {
		return false
	}
	_, ok := g.seen[keyOf(s, p, o)]
	return ok
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns a copy of the triples in assertion order.
func (g *Graph) Triples() []quad.Quad {
	out := make([]quad.Quad, len(g.triples))
	copy(out, g.triples)
	return out
}

// WithPredicateObject returns triples matching predicate and object.
func (g *Graph) WithPredicateObject(p, o quad.Value) []quad.Quad {
	var out []quad.Quad
	for _, t := range g.triples {
		if sameTerm(t.Predicate, p) && sameTerm(t.Object, o) {
			out = append(out, t)
		}
	}
	return out
}

// WithSubjectPredicate returns triples matching subject and predicate.
func (g *Graph) WithSubjectPredicate(s, p quad.Value) []quad.Quad {
	var out []quad.Quad
	for _, t := range g.triples {
		if sameTerm(t.Subject, s) && sameTerm(t.Predicate, p) {
			out = append(out, t)
		}
	}
	return out
}

// WithSubject returns triples whose subject is s.
func (g *Graph) WithSubject(s quad.Value) []quad.Quad {
	var out []quad.Quad
	for _, t := range g.triples {
		if sameTerm(t.Subject, s) {
			out = append(out, t)
		}
	}
	return out
}

// FirstObject returns the object of the first (s, p, ?) triple.
func (g *Graph) FirstObject(s, p quad.Value) (quad.Value, bool) {
	for _, t := range g.triples {
		if sameTerm(t.Subject, s) && sameTerm(t.Predicate, p) {
			return t.Object, true
		}
	}
	return nil, false
}

// Equal reports whether both graphs hold the same set of triples,
// regardless of order.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for k := range g.seen {
		if _, ok := other.seen[k]; !ok {
			return false
		}
	}
	return true
}

func sameTerm(a, b quad.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
