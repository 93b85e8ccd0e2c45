package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semequip/config"
)

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialise configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := flags.setup()
				if err != nil {
					return err
				}
				return writeConfig(cmd.OutOrStdout(), cfg)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create the user config file with defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := newLogger(flags.logLevel)
				return initUserConfig(config.NewLoader(logger), cmd.OutOrStdout(), logger)
			},
		},
	)

	return cmd
}

func writeConfig(out io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func initUserConfig(l *config.Loader, out io.Writer, logger *slog.Logger) error {
	if err := l.EnsureUserConfig(); err != nil {
		return fmt.Errorf("create user config: %w", err)
	}
	logger.Debug("User config ready", "path", l.UserConfigPath())
	fmt.Fprintln(out, l.UserConfigPath())
	return nil
}
