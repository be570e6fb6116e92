package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/channel"
	"github.com/jobweave/jobweave/internal/declaration"
)

func newSubmitCommand() *cobra.Command {
	var rangesFlag string
	cmd := &cobra.Command{
		Use:   "submit [flags] <workflow-id|decl-file>",
		Short: "Schedule a workflow's command groups into channels and dispatch them to the scheduler bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ranges, err := parseRanges(rangesFlag)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			workflowID, err := resolveWorkflowIDOrDecl(cmd, a, args[0])
			if err != nil {
				return err
			}

			submissionID, err := a.ctrl.SubmitWorkflow(cmd.Context(), workflowID, ranges)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), submissionID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&rangesFlag, "ranges", "t", "", "comma-separated start:end:step task ranges, one per channel (default: every task)")
	return cmd
}

// resolveWorkflowIDOrDecl lets submit take either an already-made
// workflow id or a declaration file directly (spec.md §6.2 "submit
// [-t range...] [decl-file]"): a readable YAML file is made (which is
// idempotent under its working directory) before being submitted.
func resolveWorkflowIDOrDecl(cmd *cobra.Command, a *app, arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}
	doc, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read declaration: %w", err)
	}
	decl, err := declaration.Parse(doc)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve declaration path: %w", err)
	}
	return a.ctrl.MakeWorkflow(cmd.Context(), decl, filepath.Dir(abs))
}

// parseRanges parses a comma-separated list of "start:end:step" task
// ranges into channel.Range values. An empty string yields nil (the
// "select every task" sentinel channel.Schedule recognizes). end and
// step may be omitted ("start::" or "start"); a bare "-1" end means
// "to the end of the channel" (channel.Range's own sentinel).
func parseRanges(s string) ([]channel.Range, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]channel.Range, 0, len(parts))
	for _, p := range parts {
		r, err := parseRange(p)
		if err != nil {
			return nil, fmt.Errorf("invalid task range %q: %w", p, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRange(s string) (channel.Range, error) {
	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return channel.Range{}, fmt.Errorf("expected start[:end[:step]]")
	}
	r := channel.Range{End: -1, Step: 1}
	var err error
	if fields[0] != "" {
		if r.Start, err = strconv.Atoi(fields[0]); err != nil {
			return channel.Range{}, fmt.Errorf("start: %w", err)
		}
	}
	if len(fields) > 1 && fields[1] != "" {
		if r.End, err = strconv.Atoi(fields[1]); err != nil {
			return channel.Range{}, fmt.Errorf("end: %w", err)
		}
	}
	if len(fields) > 2 && fields[2] != "" {
		if r.Step, err = strconv.Atoi(fields[2]); err != nil {
			return channel.Range{}, fmt.Errorf("step: %w", err)
		}
	}
	return r, nil
}
