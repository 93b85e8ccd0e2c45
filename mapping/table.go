// Package mapping loads the EqHub mapping tables that translate class and
// property identifiers found in equipment JSON into canonical IRIs.
//
// A mapping table is a triples document. Every triple whose subject,
// predicate and object are all IRIs contributes one Entry: the subject with
// the EqHub ID prefix stripped becomes the Source key, the object becomes the
// Target. Literal and blank-node triples are ignored.
package mapping

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/cayleygraph/quad"

	errs "github.com/c360studio/semequip/errors"
	"github.com/c360studio/semequip/rdfgraph"
)

// Entry maps one EqHub identifier to its canonical IRI.
type Entry struct {
	Source string
	Target string
}

// Table is an immutable, loaded mapping table.
type Table struct {
	name       string
	entries    []Entry
	index      map[string]int
	duplicates int
}

// Load reads the mapping table at path. The syntax is chosen from the file
// extension. prefix is stripped from each subject IRI when it matches
// exactly at the start.
func Load(path, prefix string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindLoad, err, "mapping.Load", "open "+path)
	}
	defer f.Close()

	t, err := Parse(f, rdfgraph.SyntaxForPath(path), prefix)
	if err != nil {
		return nil, errs.Wrap(errs.KindLoad, err, "mapping.Load", "parse "+path)
	}
	t.name = path
	return t, nil
}

// Parse builds a table from a triples document.
func Parse(r io.Reader, syntax rdfgraph.Syntax, prefix string) (*Table, error) {
	g, err := rdfgraph.Parse(r, syntax)
	if err != nil {
		return nil, err
	}
	return FromGraph(g, prefix), nil
}

// FromGraph builds a table from an already parsed graph. When a Source
// appears more than once the first occurrence wins.
func FromGraph(g *rdfgraph.Graph, prefix string) *Table {
	t := &Table{index: make(map[string]int)}
	for _, q := range g.Triples() {
		subj, ok := q.Subject.(quad.IRI)
		if !ok {
			continue
		}
		if _, ok := q.Predicate.(quad.IRI); !ok {
			continue
		}
		obj, ok := q.Object.(quad.IRI)
		if !ok || !isAbsolute(string(obj)) {
			continue
		}

		source := strings.TrimPrefix(string(subj), prefix)
		if _, exists := t.index[source]; exists {
			t.duplicates++
			continue
		}
		t.index[source] = len(t.entries)
		t.entries = append(t.entries, Entry{Source: source, Target: string(obj)})
	}
	return t
}

func isAbsolute(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs()
}

// Lookup returns the entry whose Source equals id exactly.
func (t *Table) Lookup(id string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.index[id]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of the entries in document order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Duplicates returns how many triples were dropped because their Source
// was already mapped.
func (t *Table) Duplicates() int {
	if t == nil {
		return 0
	}
	return t.duplicates
}

// Name returns the path the table was loaded from, if any.
func (t *Table) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return fmt.Sprintf("mapping.Table{name=%q entries=%d}", t.Name(), t.Len())
}
