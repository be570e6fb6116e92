// Package jobscript implements the emitter from spec.md §4.6: given a
// (command_group, task_indices, variable_files) triple it produces an
// abstract, scheduler-dialect-agnostic job description — a header
// (options/modules/array spec/directory), a body that binds variable
// files to per-task reads, and a trailing call into the command-file
// writer operation. A bridge (internal/bridge) later turns this into
// dialect-specific submission text.
//
// Grounded on the teacher's header/body assembly idiom in
// cmd/logger.go's functional-options construction style, generalized
// here to a builder over a scheduler-agnostic Script value.
package jobscript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobweave/jobweave/internal/cmdgroup"
	"github.com/jobweave/jobweave/internal/fileutil"
)

// Script is the abstract job description a bridge translates into
// dialect-specific submission text.
type Script struct {
	// Header
	Directory string
	Options   map[string]string
	Modules   []string
	ArraySpec ArraySpec

	// Body
	VariableFiles map[string]string // variable name -> value-file path
	WriteCmdArgs  []string          // args passed to the write-cmd invocation per task

	// SubdirWidth is the zero-padded width for per-task subdirectory
	// names (spec.md §4.6: ceil(log10(N+1))).
	SubdirWidth int
	// SubmitBuckets, if non-empty, is the even distribution of task
	// indices across submit subdirectories (spec.md §4.6 round-half-
	// to-even / unambiguous integer division).
	SubmitBuckets [][]int
}

// ArraySpec describes the task-index range a scheduler array directive
// should cover.
type ArraySpec struct {
	Indices []int
}

// Build assembles a Script for one command group's selected task
// indices, given the variable value files materialized for it by
// internal/resolver.
func Build(g *cmdgroup.CommandGroup, taskIndices []int, variableFiles map[string]string, submitSubdirCount int) (*Script, error) {
	if len(taskIndices) == 0 {
		return nil, fmt.Errorf("jobscript: command group %d has zero task indices", g.Index)
	}

	s := &Script{
		Directory:     g.Directory,
		Options:       g.Options,
		Modules:       append([]string(nil), g.Modules...),
		ArraySpec:     ArraySpec{Indices: append([]int(nil), taskIndices...)},
		VariableFiles: variableFiles,
		SubdirWidth:   fileutil.PadWidth(len(taskIndices)),
	}

	if submitSubdirCount > 0 {
		sizes := fileutil.DistributeEven(len(taskIndices), submitSubdirCount)
		buckets := make([][]int, submitSubdirCount)
		pos := 0
		for i, size := range sizes {
			buckets[i] = append([]int(nil), taskIndices[pos:pos+size]...)
			pos += size
		}
		s.SubmitBuckets = buckets
	}

	return s, nil
}

// TaskSubdir returns the zero-padded subdirectory name for task index
// idx within a group whose total task count determined s.SubdirWidth.
func (s *Script) TaskSubdir(idx int) string {
	return fileutil.ZeroPad(idx, s.SubdirWidth)
}

// RenderHeader renders the scheduler-agnostic header lines (module
// loads, directory, sorted options) a bridge can prepend its own
// dialect-specific directive syntax to.
func (s *Script) RenderHeader() []string {
	var lines []string
	if s.Directory != "" {
		lines = append(lines, "cd "+s.Directory)
	}
	for _, m := range s.Modules {
		lines = append(lines, "module load "+m)
	}
	keys := make([]string, 0, len(s.Options))
	for k := range s.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("# option %s=%s", k, s.Options[k]))
	}
	return lines
}

// RenderBody renders the per-task loop that binds variable files to
// file descriptors and invokes write-cmd, in either array-task form
// (parallelVariables=true, indexed by a scheduler-provided task id) or
// a `while read` loop form (parallelVariables=false).
func (s *Script) RenderBody(jobscriptID string, parallelVariables bool) []string {
	var lines []string

	names := make([]string, 0, len(s.VariableFiles))
	for name := range s.VariableFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	if parallelVariables {
		lines = append(lines, "idx=${TASK_INDEX}")
		for i, name := range names {
			lines = append(lines, fmt.Sprintf("exec %d<%s", 3+i, s.VariableFiles[name]))
			lines = append(lines, fmt.Sprintf("%s=$(sed -n \"$((idx+1))p\" <&%d)", name, 3+i))
		}
		lines = append(lines, fmt.Sprintf("write-cmd %s \"$idx\"", jobscriptID))
		return lines
	}

	lines = append(lines, "idx=0")
	if len(names) > 0 {
		for i, name := range names {
			lines = append(lines, fmt.Sprintf("exec %d<%s", 3+i, s.VariableFiles[name]))
		}
		reads := make([]string, len(names))
		for i, name := range names {
			reads[i] = fmt.Sprintf("read -r %s <&%d", name, 3+i)
		}
		lines = append(lines, fmt.Sprintf("while %s; do", strings.Join(reads, " && ")))
	} else {
		lines = append(lines, fmt.Sprintf("while [ \"$idx\" -lt %d ]; do", len(s.ArraySpec.Indices)))
	}
	lines = append(lines, fmt.Sprintf("  write-cmd %s \"$idx\"", jobscriptID))
	lines = append(lines, "  idx=$((idx+1))")
	lines = append(lines, "done")
	return lines
}
