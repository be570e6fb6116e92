package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newWriteCmdCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-cmd <jobscript-id> <task-index>",
		Short: "Resolve a task's concrete shell command and print it (runtime operation invoked from an emitted jobscript)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			submissionID, groupIndex, err := parseJobscriptID(args[0])
			if err != nil {
				return err
			}
			taskIndex, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("task index: %w", err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			workflowID, err := a.st.GetSubmissionWorkflowID(cmd.Context(), submissionID)
			if err != nil {
				return err
			}

			line, err := a.ctrl.WriteCmd(cmd.Context(), workflowID, groupIndex, taskIndex)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), line)
			return nil
		},
	}
	return cmd
}

// parseJobscriptID splits the "<submission-id>:<command-group-index>"
// id an emitted jobscript carries (internal/submission.SubmitWorkflow
// builds it as fmt.Sprintf("%s:%d", submissionID, groupIndex)).
func parseJobscriptID(id string) (submissionID string, groupIndex int, err error) {
	idx := strings.LastIndex(id, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed jobscript id %q: want <submission-id>:<group-index>", id)
	}
	submissionID, groupPart := id[:idx], id[idx+1:]
	n, err := strconv.Atoi(groupPart)
	if err != nil {
		return "", 0, fmt.Errorf("malformed jobscript id %q: %w", id, err)
	}
	return submissionID, n, nil
}
