// Package shape locates, retrieves and introspects the SHACL shape that an
// equipment class must conform to.
package shape

import (
	"context"
	"log/slog"
	"strings"

	errs "github.com/c360studio/semequip/errors"
	"github.com/c360studio/semequip/mapping"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

// Rewrite replaces every occurrence of From with To in a fetched shape
// document. It redirects shapes published under one base URI to another
// deployment environment. An empty From disables the rewrite.
type Rewrite struct {
	From string `yaml:"rewrite_from" json:"rewrite_from"`
	To   string `yaml:"rewrite_to" json:"rewrite_to"`
}

// DraftRewrite points published POSC Caesar shapes at the draft environment.
var DraftRewrite = Rewrite{From: eqhub.PublishedBase, To: eqhub.DraftBase}

// Apply returns text with the rewrite applied.
func (r Rewrite) Apply(text string) string {
	if r.From == "" || r.From == r.To {
		return text
	}
	return strings.ReplaceAll(text, r.From, r.To)
}

// Resolver turns class identifiers into shape document text.
type Resolver struct {
	fetcher Fetcher
	rewrite Rewrite
	logger  *slog.Logger
}

// NewResolver creates a resolver that fetches with f and applies rw.
func NewResolver(f Fetcher, rw Rewrite, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetcher: f, rewrite: rw, logger: logger}
}

// Locate returns the shape URL mapped to classID without fetching it.
func Locate(classes *mapping.Table, classID string) (string, error) {
	if classID == "" {
		return "", errs.MissingField("shape.Locate", "requirementsClassId")
	}
	entry, ok := classes.Lookup(classID)
	if !ok {
		return "", errs.Unmapped("shape.Locate", "class", classID)
	}
	return entry.Target, nil
}

// FetchShape resolves classID through classes, retrieves the mapped shape
// document and returns its rewritten text. Lookup failures are reported
// before any retrieval is attempted.
func (r *Resolver) FetchShape(ctx context.Context, classes *mapping.Table, classID string) (string, error) {
	url, err := Locate(classes, classID)
	if err != nil {
		return "", err
	}

	r.logger.Debug("Fetching shape", "class_id", classID, "shape_url", url)

	doc, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", errs.Wrap(errs.KindRetrieval, err, "shape.FetchShape", "retrieve "+url)
	}

	return r.rewrite.Apply(doc.Body), nil
}
