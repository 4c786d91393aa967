package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/open-beagle/gst-element/internal/gstreamer"
	"github.com/open-beagle/gst-element/internal/harness"
)

type runOptions struct {
	targets    []string
	stateError string
	properties []string
	quiet      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run TYPE [NAME]",
		Short: "Create an element and drive it through state changes",
		Example: `  gst-element run fakesink --to READY --to PLAYING
  gst-element run fakesink sink0 --state-error paused-playing --to PLAYING`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.loadConfig(); err != nil {
				return err
			}

			alias := ""
			if len(args) == 2 {
				alias = args[1]
			}
			return runElement(cmd, args[0], alias, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.targets, "to", nil, "Target state, repeatable (NULL, READY, PAUSED, PLAYING)")
	cmd.Flags().StringVar(&opts.stateError, "state-error", "", "Fault to inject, by code or nick (e.g. 3, paused-playing)")
	cmd.Flags().StringArrayVar(&opts.properties, "set", nil, "Property assignment NAME=VALUE, repeatable")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print captured log output")
	return cmd
}

func runElement(cmd *cobra.Command, typeName, alias string, opts runOptions) error {
	out := cmd.OutOrStdout()

	element, err := gstreamer.NewElement(typeName, alias)
	if err != nil {
		return err
	}

	for _, assignment := range opts.properties {
		name, value, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("invalid property assignment %q, expected NAME=VALUE", assignment)
		}
		if err := element.SetProperty(name, value); err != nil {
			return err
		}
	}
	if opts.stateError != "" {
		if err := element.SetProperty(gstreamer.PropStateError, opts.stateError); err != nil {
			return err
		}
	}

	var events []table.Row
	element.ConnectStateChange(func(e *gstreamer.Element, oldState, newState gstreamer.State) {
		events = append(events, table.Row{"state-change", oldState.String() + " -> " + newState.String(), ""})
	})
	element.ConnectError(func(e, source *gstreamer.Element, gerr *gstreamer.GError, debug string) {
		events = append(events, table.Row{"error", gerr.Message, debug})
	})

	var captured []string
	failed := 0
	rows := make([]table.Row, 0, len(opts.targets))
	for _, name := range opts.targets {
		target, err := gstreamer.ParseState(name)
		if err != nil {
			return err
		}

		output, runErr := harness.RunSilent(element.SetState, target)
		if output != "" {
			captured = append(captured, strings.TrimRight(output, "\n"))
		}

		result := "ok"
		if runErr != nil {
			failed++
			result = runErr.Error()
		}
		rows = append(rows, table.Row{target.String(), element.State().String(), result})
	}

	fmt.Fprintf(out, "%s\n", element)
	if len(rows) > 0 {
		printTable(out, "Transitions", table.Row{"Target", "State", "Result"}, rows)
	}
	if len(events) > 0 {
		printTable(out, "Signals", table.Row{"Signal", "Detail", "Debug"}, events)
	}
	if !opts.quiet && len(captured) > 0 {
		fmt.Fprintln(out, strings.Join(captured, "\n"))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d state changes failed", failed, len(rows))
	}
	return nil
}
