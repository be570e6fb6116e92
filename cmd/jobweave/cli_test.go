package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testDecl = `
profile: test
command_groups:
  - commands:
      - "echo <<greeting>>"
    exec_order: 0
    sub_order: 0
variables:
  greeting:
    data: ["hello", "world"]
`

// testRunCommand mirrors the teacher's cmd_test.go helper: it wraps
// cmd under a throwaway root so persistent flags resolve, captures
// stdout and returns it alongside the error cobra.Execute produced.
func testRunCommand(t *testing.T, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "root"}
	addPersistentFlags(root)
	root.AddCommand(cmd)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func setupTestDataDir(t *testing.T) {
	t.Helper()
	t.Setenv("JOBWEAVE_DATA_DIR", t.TempDir())
}

func writeDecl(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDecl), 0o644))
	return path
}

func TestMakeSubmitWriteCmdStatKillClean(t *testing.T) {
	setupTestDataDir(t)
	declPath := writeDecl(t)

	out, err := testRunCommand(t, newMakeCommand(), []string{"make", declPath})
	require.NoError(t, err)
	workflowID := strings.TrimSpace(out)
	require.NotEmpty(t, workflowID)

	// make is idempotent under the same working directory.
	out2, err := testRunCommand(t, newMakeCommand(), []string{"make", declPath})
	require.NoError(t, err)
	require.Equal(t, workflowID, strings.TrimSpace(out2))

	out, err = testRunCommand(t, newSubmitCommand(), []string{"submit", workflowID})
	require.NoError(t, err)
	submissionID := strings.TrimSpace(out)
	require.NotEmpty(t, submissionID)

	out, err = testRunCommand(t, newStatCommand(), []string{"stat", workflowID})
	require.NoError(t, err)
	require.Contains(t, out, workflowID)
	require.Contains(t, out, "command groups")

	out, err = testRunCommand(t, newWriteCmdCommand(), []string{"write-cmd", submissionID + ":0", "0"})
	require.NoError(t, err)
	require.Equal(t, "echo hello\n", out)

	out, err = testRunCommand(t, newWriteCmdCommand(), []string{"write-cmd", submissionID + ":0", "1"})
	require.NoError(t, err)
	require.Equal(t, "echo world\n", out)

	_, err = testRunCommand(t, newKillCommand(), []string{"kill", workflowID})
	require.NoError(t, err)

	_, err = testRunCommand(t, newCleanCommand(), []string{"clean", "--force", filepath.Dir(declPath)})
	require.NoError(t, err)
}

func TestMakeCommand_InvalidDeclarationExitsValidation(t *testing.T) {
	setupTestDataDir(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
command_groups:
  - commands: ["echo <<missing>>"]
`), 0o644))

	_, err := testRunCommand(t, newMakeCommand(), []string{"make", path})
	require.Error(t, err)
	require.Equal(t, 2, exitCode(err))
}

func TestWriteCmdCommand_RejectsMalformedJobscriptID(t *testing.T) {
	setupTestDataDir(t)
	_, err := testRunCommand(t, newWriteCmdCommand(), []string{"write-cmd", "not-a-valid-id", "0"})
	require.Error(t, err)
}

func TestParseRanges(t *testing.T) {
	ranges, err := parseRanges("0:5:1,2::")
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	require.Equal(t, 0, ranges[0].Start)
	require.Equal(t, 5, ranges[0].End)
	require.Equal(t, 1, ranges[0].Step)
	require.Equal(t, 2, ranges[1].Start)
	require.Equal(t, -1, ranges[1].End)
	require.Equal(t, 1, ranges[1].Step)

	ranges, err = parseRanges("")
	require.NoError(t, err)
	require.Nil(t, ranges)
}

func TestCoordinateCommand_RequiresSchedule(t *testing.T) {
	setupTestDataDir(t)
	_, err := testRunCommand(t, newCoordinateCommand(), []string{"coordinate", "some-workflow"})
	require.Error(t, err)
}

func TestParseJobscriptID(t *testing.T) {
	sub, group, err := parseJobscriptID("abc-123:4")
	require.NoError(t, err)
	require.Equal(t, "abc-123", sub)
	require.Equal(t, 4, group)

	_, _, err = parseJobscriptID("no-colon")
	require.Error(t, err)
}
