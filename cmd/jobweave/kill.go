package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/store"
)

func newKillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <workflow-id|submission-id>",
		Short: "Mark every non-terminal task of a workflow failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			workflowID := args[0]
			if wfID, err := a.st.GetSubmissionWorkflowID(cmd.Context(), args[0]); err == nil {
				workflowID = wfID
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			return a.ctrl.Kill(cmd.Context(), workflowID)
		},
	}
}
