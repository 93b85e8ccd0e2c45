// Package main provides the semequip binary entry point.
// Semequip projects EqHub equipment JSON into RDF graphs shaped by the
// SHACL BlockType of each equipment class.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semequip/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semequip"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "EqHub equipment to RDF transformer",
		Long: `Semequip turns EqHub equipment JSON into RDF graphs that conform to the
SHACL BlockType shape of the equipment's class.

Class and property identifiers are resolved through two mapping tables
(Turtle or N-Triples). The class shape is fetched over HTTP, its base URI
rewritten, and the mapped property values projected onto the equipment IRI.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		transformCmd(flags),
		shapeCmd(flags),
		mappingsCmd(flags),
		serveCmd(flags),
		configCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// newLogger builds the stderr text logger and installs it as the default.
func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// setup resolves the logger and layered configuration for a command.
func (f *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	logger := newLogger(f.logLevel)
	cfg, err := config.NewLoader(logger).Load(f.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}
