package bridge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
)

// Slurmlike dispatches jobscripts to an sbatch-shaped external
// scheduler binary, parsing a numeric job id out of its stdout
// ("Submitted batch job 12345"-style output) and expressing hold
// dependencies via a --dependency=afterok:<ids> style flag. It is not
// itself scheduler-vendor-specific code (spec.md §1 keeps real batch-
// scheduler wiring out of scope) — it exists so the Bridge interface
// has a second, structurally different implementation to verify
// against.
type Slurmlike struct {
	// SubmitCommand is the executable to invoke, e.g. "sbatch".
	SubmitCommand string
	// CancelCommand is the executable to invoke to cancel a job,
	// e.g. "scancel".
	CancelCommand string
}

var jobIDPattern = regexp.MustCompile(`(\d+)`)

// Dispatch shells out to SubmitCommand, piping scriptText to stdin and
// passing a dependency flag when holdOn is non-empty.
func (s *Slurmlike) Dispatch(ctx context.Context, scriptText string, holdOn []Handle) (Handle, error) {
	args := []string{}
	if len(holdOn) > 0 {
		dep := "--dependency=afterok"
		for _, h := range holdOn {
			dep += ":" + string(h)
		}
		args = append(args, dep)
	}
	cmd := exec.CommandContext(ctx, s.SubmitCommand, args...)
	cmd.Stdin = bytes.NewBufferString(scriptText)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	m := jobIDPattern.FindString(stdout.String())
	if m == "" {
		return "", fmt.Errorf("%w: could not parse job id from: %q", ErrDispatchFailed, stdout.String())
	}
	return Handle(m), nil
}

// Cancel shells out to CancelCommand with the job id. Idempotent: the
// underlying scheduler binary returning a nonzero exit for an unknown
// job id is treated as already-cancelled, not an error.
func (s *Slurmlike) Cancel(ctx context.Context, h Handle) error {
	cmd := exec.CommandContext(ctx, s.CancelCommand, string(h))
	_ = cmd.Run()
	return nil
}

var _ Bridge = (*Slurmlike)(nil)
