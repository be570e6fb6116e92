package bridge

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestLocal_DispatchRunsScript(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell")
	}
	l := NewLocal("")
	h, err := l.Dispatch(context.Background(), "true", nil)
	if err != nil {
		t.Fatal(err)
	}
	if h == "" {
		t.Fatal("expected non-empty handle")
	}
}

func TestLocal_DispatchWaitsForHoldDependency(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell")
	}
	l := NewLocal("")
	first, err := l.Dispatch(context.Background(), "sleep 0.05", nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = l.Dispatch(context.Background(), "true", []Handle{first})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("second dispatch did not wait for hold dependency")
	}
}

func TestLocal_CancelUnknownHandleIsNoOp(t *testing.T) {
	l := NewLocal("")
	if err := l.Cancel(context.Background(), Handle("does-not-exist")); err != nil {
		t.Fatalf("expected nil error for unknown handle, got %v", err)
	}
}

func TestSlurmlike_ParsesJobIDFromDependencyFlag(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/echo as a stand-in scheduler binary")
	}
	// `echo` stands in for sbatch: Dispatch invokes it with a
	// --dependency=afterok:<handle> flag (since holdOn is non-empty),
	// echo writes that flag straight to stdout, and the job-id regexp
	// extracts the numeric handle from it — a real sbatch would emit
	// the analogous "Submitted batch job <id>" line.
	s := &Slurmlike{SubmitCommand: "echo", CancelCommand: "true"}
	h, err := s.Dispatch(context.Background(), "#!/bin/sh\ntrue\n", []Handle{"999"})
	if err != nil {
		t.Fatal(err)
	}
	if h != "999" {
		t.Fatalf("handle = %q, want 999", h)
	}
}

func TestSlurmlike_DispatchFailureWrapsErrDispatchFailed(t *testing.T) {
	s := &Slurmlike{SubmitCommand: "/does/not/exist", CancelCommand: "true"}
	_, err := s.Dispatch(context.Background(), "true", nil)
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("err = %v, want one wrapping ErrDispatchFailed", err)
	}
}
