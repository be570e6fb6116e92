package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newCleanCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clean [working-directory]",
		Short: "Remove generated artifacts (emitted jobscripts, value files, per-task subdirectories) from a workflow directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			if !force && !quiet {
				ok, err := confirm(cmd, fmt.Sprintf("remove generated artifacts under %s/.jobweave? [y/N] ", dir))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			return a.ctrl.Clean(dir)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
