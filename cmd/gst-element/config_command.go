package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/open-beagle/gst-element/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init PATH",
		Short: "Write the default configuration (.yaml or .toml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DefaultConfig().SaveToFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration and list warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			result := config.NewConfigValidator(nil).Check(cfg)
			out := cmd.OutOrStdout()

			rows := make([]table.Row, 0, len(result.Errors)+len(result.Warnings))
			for _, e := range result.Errors {
				rows = append(rows, table.Row{"error", e.Code, e.Field, e.Message})
			}
			for _, w := range result.Warnings {
				rows = append(rows, table.Row{"warning", w.Code, w.Field, w.Message})
			}
			if len(rows) > 0 {
				printTable(out, "Validation", table.Row{"Level", "Code", "Field", "Message"}, rows)
			}

			if !result.Valid {
				return fmt.Errorf("configuration has %d errors", len(result.Errors))
			}
			fmt.Fprintf(out, "%s\n", cfg)
			return nil
		},
	})

	return cmd
}
