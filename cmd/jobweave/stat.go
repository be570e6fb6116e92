package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <workflow-id>",
		Short: "Print a workflow's command-group count and remaining (non-terminal) task count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			wf, err := a.st.GetWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			remaining, err := a.st.NonTerminalTaskIDs(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"field", "value"})
			t.AppendRow(table.Row{"workflow", wf.ID})
			t.AppendRow(table.Row{"directory", wf.Directory})
			t.AppendRow(table.Row{"command groups", len(wf.CommandGroups)})
			t.AppendRow(table.Row{"variables", len(wf.Variables)})
			t.AppendRow(table.Row{"tasks remaining", len(remaining)})
			t.Render()
			return nil
		},
	}
}

func newShowStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-stats <command-group-id> <variable-name>",
		Short: "Print the resolved per-task values recorded for a variable of a command group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("command group id: %w", err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			values, err := a.st.VariableValues(cmd.Context(), groupID, args[1])
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"task", args[1]})
			for i, v := range values {
				t.AppendRow(table.Row{i, v})
			}
			t.Render()
			return nil
		},
	}
}
