package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/open-beagle/gst-element/internal/gstreamer"
)

func newStatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List state codes and state-error fault codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			rows := make([]table.Row, 0, 6)
			for code := int(gstreamer.StateVoidPending); code <= int(gstreamer.StatePlaying)+1; code++ {
				name, err := gstreamer.StateName(code)
				if err != nil {
					return err
				}
				rows = append(rows, table.Row{code, name})
			}
			printTable(out, "States", table.Row{"Code", "Name"}, rows, 1)

			rows = rows[:0]
			for f := gstreamer.FaultNone; f <= gstreamer.FaultReadyNull; f++ {
				transition := "-"
				if t, ok := f.Transition(); ok {
					transition = t.String()
				}
				rows = append(rows, table.Row{int(f), f.String(), transition})
			}
			printTable(out, "Faults", table.Row{"state-error", "Nick", "Fails"}, rows, 1)
			return nil
		},
	}
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [TYPE]",
		Short: "List element types, or show the properties of one type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			registry := gstreamer.DefaultRegistry()

			if len(args) == 0 {
				types := registry.Types()
				rows := make([]table.Row, 0, len(types))
				for _, t := range types {
					rows = append(rows, table.Row{t.Name, t.Klass, t.Description})
				}
				printTable(out, "Element types", table.Row{"Type", "Klass", "Description"}, rows)
				return nil
			}

			t, ok := registry.Lookup(args[0])
			if !ok {
				return fmt.Errorf("element type '%s': %w", args[0], gstreamer.ErrNotFound)
			}

			fmt.Fprintf(out, "%s (%s)\n%s\n", t.LongName, t.Klass, t.Description)
			rows := make([]table.Row, 0, len(t.Properties))
			for _, p := range t.Properties {
				access := "readable"
				if p.Writable {
					access = "readable, writable"
				}
				def := "-"
				if p.Default != nil {
					def = fmt.Sprint(p.Default)
				}
				rows = append(rows, table.Row{p.Name, p.Kind.String(), def, access, p.Blurb})
			}
			printTable(out, t.Name, table.Row{"Property", "Type", "Default", "Flags", "Description"}, rows)
			return nil
		},
	}
}
