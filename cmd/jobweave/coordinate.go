package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/coordinator"
)

// newCoordinateCommand wires internal/coordinator into the CLI
// surface: a foreground process that re-submits a workflow's
// iterations on a cron schedule, persisting its watermark in the
// store so a restart catches up on missed ticks (spec.md §3
// Iteration) instead of either replaying a burst of stale ticks or
// silently dropping them.
func newCoordinateCommand() *cobra.Command {
	var schedule string
	var catchupWindow time.Duration

	cmd := &cobra.Command{
		Use:   "coordinate <workflow-id>",
		Short: "Periodically re-submit a workflow's iterations on a cron schedule until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			coord, err := coordinator.New(coordinator.Config{
				WorkflowID:     workflowID,
				Schedule:       schedule,
				WatermarkStore: a.st,
				CatchupWindow:  catchupWindow,
				Dispatch: func(ctx context.Context, workflowID string) error {
					submissionID, err := a.ctrl.SubmitWorkflow(ctx, workflowID, nil)
					if err != nil {
						return err
					}
					a.log.Infof("coordinator re-submitted workflow %s as %s", workflowID, submissionID)
					return nil
				},
			})
			if err != nil {
				return fmt.Errorf("construct coordinator: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := coord.Init(ctx); err != nil {
				return fmt.Errorf("catch up missed ticks: %w", err)
			}
			coord.Start(ctx)
			defer coord.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "coordinating %s on schedule %q (ctrl-c to stop)\n", workflowID, schedule)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "standard 5-field cron expression for re-submission (required)")
	cmd.Flags().DurationVar(&catchupWindow, "catchup-window", time.Hour, "how far back missed ticks are replayed on startup")
	_ = cmd.MarkFlagRequired("schedule")

	return cmd
}
