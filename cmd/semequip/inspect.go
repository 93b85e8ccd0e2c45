package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/semequip/config"
	"github.com/c360studio/semequip/mapping"
	"github.com/c360studio/semequip/rdfgraph"
	"github.com/c360studio/semequip/shape"
)

func shapeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shape <class-id>",
		Short: "Fetch a class shape and print its type node and constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			return runShape(cmd.Context(), cfg, nil, args[0], cmd.OutOrStdout(), logger)
		},
	}
}

func mappingsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "mappings <class|property>",
		Short:     "Print the entries of a loaded mapping table",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"class", "property"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			return runMappings(cfg, args[0], cmd.OutOrStdout(), logger)
		},
	}
}

// runShape prints the shape resolved for classID. A nil fetcher uses the
// HTTP fetcher.
func runShape(ctx context.Context, cfg *config.Config, fetcher shape.Fetcher, classID string, out io.Writer, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	table, err := mapping.Load(cfg.Mapping.ClassTable, cfg.Mapping.SourcePrefix)
	if err != nil {
		return err
	}
	if fetcher == nil {
		fetcher = shape.NewHTTPFetcher(cfg.FetchConfig())
	}

	url, err := shape.Locate(table, classID)
	if err != nil {
		return err
	}
	text, err := shape.NewResolver(fetcher, cfg.Rewrite(), logger).FetchShape(ctx, table, classID)
	if err != nil {
		return err
	}
	s, err := shape.Extract(text, rdfgraph.Turtle)
	if err != nil {
		return fmt.Errorf("class %s: %w", classID, err)
	}

	fmt.Fprintf(out, "class:       %s\n", classID)
	fmt.Fprintf(out, "shape:       %s\n", url)
	fmt.Fprintf(out, "type:        %s\n", s.Type)
	fmt.Fprintf(out, "constraints: %d\n", len(s.Constraints))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range s.Constraints {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Path, c.Value)
	}
	return tw.Flush()
}

// runMappings prints every entry of the class or property table.
func runMappings(cfg *config.Config, which string, out io.Writer, logger *slog.Logger) error {
	var path string
	switch which {
	case "class", "classes":
		path = cfg.Mapping.ClassTable
	case "property", "properties":
		path = cfg.Mapping.PropertyTable
	default:
		return fmt.Errorf("unknown table %q (want class or property)", which)
	}

	table, err := mapping.Load(path, cfg.Mapping.SourcePrefix)
	if err != nil {
		return err
	}
	if d := table.Duplicates(); d > 0 {
		logger.Warn("Mapping table has duplicate sources, first entry kept",
			"table", table.Name(),
			"duplicates", d)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range table.Entries() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Source, e.Target)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d entries\n", table.Len())
	return nil
}
