package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-beagle/gst-element/internal/config"
)

// commandContext carries persistent flags shared by subcommands.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string
}

// loadConfig loads defaults, the optional config file and GSTELEMENT_*
// overrides, then applies --log-level.
func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(*c.configFlag)
	if err != nil {
		return nil, err
	}

	if *c.logLevelFlag != "" {
		level, err := config.ParseLogLevel(*c.logLevelFlag)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = level
	}

	if err := config.SetupLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := &commandContext{configFlag: &configFlag, logLevelFlag: &logLevelFlag}

	rootCmd := &cobra.Command{
		Use:           AppName,
		Short:         "Element lifecycle state machine with fault injection",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newStatesCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newJournalCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
