package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/declaration"
)

func newMakeCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "make <decl-file>",
		Short: "Validate a workflow declaration and persist it, returning its workflow id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			declPath := args[0]
			doc, err := os.ReadFile(declPath)
			if err != nil {
				return fmt.Errorf("read declaration: %w", err)
			}
			decl, err := declaration.Parse(doc)
			if err != nil {
				return err
			}

			workingDir := dir
			if workingDir == "" {
				abs, err := filepath.Abs(declPath)
				if err != nil {
					return fmt.Errorf("resolve declaration path: %w", err)
				}
				workingDir = filepath.Dir(abs)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := a.ctrl.MakeWorkflow(cmd.Context(), decl, workingDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "workflow working directory (default: the declaration file's directory)")
	return cmd
}
