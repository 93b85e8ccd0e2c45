package equipment

import (
	"log/slog"

	"github.com/cayleygraph/quad"

	"github.com/c360studio/semequip/mapping"
)

// Assertion is a projected property: a predicate and literal object waiting
// for the equipment subject.
type Assertion struct {
	PropertyID string
	Predicate  quad.IRI
	Object     quad.Value
}

// Projector maps property values through a property table.
type Projector struct {
	table  *mapping.Table
	logger *slog.Logger
}

// NewProjector creates a projector over table.
func NewProjector(table *mapping.Table, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{table: table, logger: logger}
}

// Project returns one assertion per property whose identifier is in the
// table, in input order. Properties without an identifier or without a
// mapping are skipped; skipping one never affects another.
func (p *Projector) Project(properties []PropertyValue) []Assertion {
	out := make([]Assertion, 0, len(properties))
	for _, pv := range properties {
		if pv.PropertyID == "" {
			p.logger.Debug("Skipping property without identifier")
			continue
		}
		entry, ok := p.table.Lookup(pv.PropertyID)
		if !ok {
			p.logger.Debug("Skipping unmapped property", "property_id", pv.PropertyID)
			continue
		}
		out = append(out, Assertion{
			PropertyID: pv.PropertyID,
			Predicate:  quad.IRI(entry.Target),
			Object:     quad.String(pv.Value),
		})
	}
	return out
}

// Project is shorthand for NewProjector(table, nil).Project(properties).
func Project(properties []PropertyValue, table *mapping.Table) []Assertion {
	return NewProjector(table, nil).Project(properties)
}
