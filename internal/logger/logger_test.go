package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		require.Contains(t, out, want)
	}
}

func TestLogger_QuietSuppressesDefaultStdout(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithQuiet())
	l.Info("only to buffer")
	require.Contains(t, buf.String(), "only to buffer")
}

func TestLogger_DebugHiddenWithoutWithDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithQuiet())
	l.Debug("hidden")
	require.False(t, strings.Contains(buf.String(), "hidden"))
}

func TestLogger_Formatted(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithQuiet(), WithDebug())
	l.Infof("task %d of %d", 3, 10)
	require.Contains(t, buf.String(), "task 3 of 10")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithQuiet()).With("workflow_id", "42")
	l.Info("submitted")
	require.Contains(t, buf.String(), "workflow_id=42")
}
