// Package bridge implements the scheduler-dispatch boundary from
// spec.md §4.7: the jobscript emitter produces a dialect-agnostic
// Script, and a Bridge turns it into a running (or queued) scheduler
// job, returning an opaque handle plus any hold dependencies applied.
//
// Grounded on the teacher's direct-exec-an-agent-against-a-DAG path
// (internal/agent, cmd_v2/start.go invoking a local process against a
// DAG definition), generalized here from "run an agent" to "dispatch
// a jobscript with hold dependencies" — the `local` bridge below plays
// the same role the teacher's direct-exec agent runner does.
package bridge

import (
	"context"
	"errors"
)

// Handle is an opaque scheduler-assigned job identifier.
type Handle string

// Bridge dispatches one emitted jobscript to a scheduler (or directly
// executes it), optionally holding it until the given prior handles
// complete (spec.md §4.7: "dispatches to the scheduler bridge with
// computed hold dependencies").
type Bridge interface {
	// Dispatch submits script (rendered to dialect-specific text by
	// the implementation) and returns the scheduler's job handle.
	// holdOn lists handles of jobs this one must not start before.
	Dispatch(ctx context.Context, scriptText string, holdOn []Handle) (Handle, error)

	// Cancel requests cancellation of a dispatched job. Idempotent:
	// cancelling an already-finished or unknown job is not an error
	// (spec.md §5: "kill is best-effort and idempotent").
	Cancel(ctx context.Context, h Handle) error
}

// ErrDispatchFailed wraps an underlying dispatch failure so callers
// can distinguish it from validation/resolution errors per the error
// taxonomy in spec.md §7.4.
var ErrDispatchFailed = errors.New("scheduler dispatch failed")
