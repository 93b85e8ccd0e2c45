package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/c360studio/semequip/config"
	"github.com/c360studio/semequip/export"
	"github.com/c360studio/semequip/mapping"
	"github.com/c360studio/semequip/shape"
	"github.com/c360studio/semequip/transform"
)

type transformOptions struct {
	outDir  string
	format  string
	baseIRI string
}

func transformCmd(flags *globalFlags) *cobra.Command {
	opts := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform <file|glob>...",
		Short: "Transform equipment JSON documents to RDF",
		Long: `Transform reads each equipment document and prints its graph.

Arguments may be files or doublestar globs such as "TestData/**/*.json".
With --out-dir every input is written next to its name with the format's
extension appended (pump.json -> pump.json.ttl).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			if opts.format != "" {
				cfg.Output.Format = opts.format
			}
			if opts.baseIRI != "" {
				cfg.Equipment.BaseIRI = opts.baseIRI
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			t, err := newTransformer(cfg, nil, logger)
			if err != nil {
				return err
			}
			return runTransform(cmd.Context(), t, args, opts.outDir, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Write one output file per input into this directory")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format (turtle, ntriples, jsonld)")
	cmd.Flags().StringVar(&opts.baseIRI, "base-iri", "", "Base IRI for equipment subjects")

	return cmd
}

// newTransformer wires the mapping store, shape resolver and transformer
// from cfg. A nil fetcher uses the HTTP fetcher.
func newTransformer(cfg *config.Config, fetcher shape.Fetcher, logger *slog.Logger) (*transform.Transformer, error) {
	store, err := mapping.NewStore(mapping.StoreConfig{
		ClassTable:    cfg.Mapping.ClassTable,
		PropertyTable: cfg.Mapping.PropertyTable,
		SourcePrefix:  cfg.Mapping.SourcePrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("load mapping tables: %w", err)
	}

	if fetcher == nil {
		fetcher = shape.NewHTTPFetcher(cfg.FetchConfig())
	}

	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	return transform.New(store, shape.NewResolver(fetcher, cfg.Rewrite(), logger), transform.Config{
		BaseIRI: cfg.Equipment.BaseIRI,
		Format:  format,
	}, transform.WithLogger(logger)), nil
}

// expandInputs resolves file arguments and globs into a sorted, de-duplicated
// list of paths. A literal path that matches nothing is kept so the read
// error names it.
func expandInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// outputPath returns where the graph for input is written in outDir.
func outputPath(outDir, input string, format export.Format) string {
	ext := ".ttl"
	if info, ok := export.GetFormatInfo(format); ok {
		ext = info.Extension
	}
	return filepath.Join(outDir, filepath.Base(input)+ext)
}

// checkOutputNames rejects inputs that would be written to the same file
// in the output directory.
func checkOutputNames(inputs []string) error {
	owner := make(map[string]string, len(inputs))
	for _, input := range inputs {
		base := filepath.Base(input)
		if prev, ok := owner[base]; ok {
			return fmt.Errorf("inputs %s and %s would both be written as %s", prev, input, base)
		}
		owner[base] = input
	}
	return nil
}

// runTransform transforms every input. Failures are logged per input and
// the run continues; the returned error reports how many failed.
func runTransform(ctx context.Context, t *transform.Transformer, args []string, outDir string, stdout io.Writer, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}

	if outDir != "" {
		if err := checkOutputNames(inputs); err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	failed := 0
	for _, input := range inputs {
		if err := transformFile(ctx, t, input, outDir, stdout, logger); err != nil {
			failed++
			logger.Error("Transform failed", "input", input, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(inputs))
	}
	return nil
}

func transformFile(ctx context.Context, t *transform.Transformer, input, outDir string, stdout io.Writer, logger *slog.Logger) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	res, err := t.Transform(ctx, data)
	if err != nil {
		return err
	}

	if outDir == "" {
		_, err := io.WriteString(stdout, res.Content)
		return err
	}

	path := outputPath(outDir, input, res.Format)
	if err := os.WriteFile(path, []byte(res.Content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("Wrote equipment graph",
		"input", input,
		"output", path,
		"equipment_id", res.EquipmentID,
		"triples", res.Graph.Len(),
		"skipped", res.Skipped)
	return nil
}
