package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/bridge"
	"github.com/jobweave/jobweave/internal/channel"
	"github.com/jobweave/jobweave/internal/store"
	"github.com/jobweave/jobweave/internal/submission"
)

// run builds the root command, registers every subcommand and
// executes against args, returning a process exit code. Kept separate
// from main so tests can drive it without calling os.Exit.
func run(args []string) int {
	root := &cobra.Command{
		Use:           "jobweave",
		Short:         "Submits and tracks multi-stage command-group workflows against a batch scheduler.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addPersistentFlags(root)

	root.AddCommand(
		newMakeCommand(),
		newSubmitCommand(),
		newWriteCmdCommand(),
		newKillCommand(),
		newCleanCommand(),
		newStatCommand(),
		newShowStatsCommand(),
		newArchiveCommand(),
		newCoordinateCommand(),
	)

	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	if !quiet {
		fmt.Fprintln(os.Stderr, "jobweave:", err)
	}
	return exitCode(err)
}

// exitCode classifies an error into the exit codes spec.md §6 assigns
// to the make/write-cmd operations: 2 for a declaration/resolution
// validation failure, 3 for a store or dispatch failure, 1 for
// anything else (bad CLI usage, file I/O).
func exitCode(err error) int {
	switch {
	case errors.Is(err, submission.ErrValidation),
		errors.Is(err, channel.ErrRangeCountMismatch),
		errors.Is(err, channel.ErrRangeOutOfBounds):
		return 2
	case errors.Is(err, store.ErrSchemaMissing),
		errors.Is(err, store.ErrLockTimeout),
		errors.Is(err, store.ErrConstraintViolation),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, bridge.ErrDispatchFailed):
		return 3
	default:
		return 1
	}
}
