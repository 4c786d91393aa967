package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/open-beagle/gst-element/internal/gstreamer"
	"github.com/open-beagle/gst-element/internal/journal"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	var element string
	var limit int
	var path string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded element messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Journal.Path
			}

			store, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []journal.Entry
			if element != "" {
				entries, err = store.ByElement(cmd.Context(), element, limit)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries")
				return nil
			}

			rows := make([]table.Row, 0, len(entries))
			for _, e := range entries {
				detail := e.OldState.String() + " -> " + e.NewState.String()
				if e.Type == gstreamer.MessageError && e.Error != nil {
					detail = e.Error.Message
				}
				rows = append(rows, table.Row{
					e.ID,
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					string(e.Type),
					e.Source,
					detail,
				})
			}
			printTable(out, "Journal", table.Row{"ID", "Time", "Type", "Element", "Detail"}, rows, 1)
			return nil
		},
	}

	cmd.Flags().StringVar(&element, "element", "", "Only show messages from this element")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&path, "db", "", "Journal database path (defaults to journal.path from config)")
	return cmd
}
