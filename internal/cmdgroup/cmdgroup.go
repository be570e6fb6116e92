// Package cmdgroup implements the pure, I/O-free command-group model
// from spec.md §4.3: templated commands, channel placement
// (exec_order/sub_order), and the three-level option-inheritance rule
// (profile default, group override, call-site override).
package cmdgroup

import (
	"dario.cat/mergo"

	"github.com/jobweave/jobweave/internal/variable"
)

// CommandGroup is one ordered collection of shell command templates
// submitted as a single jobscript (spec.md §3).
type CommandGroup struct {
	Index int

	ExecOrder int
	SubOrder  int

	Commands []string

	Directory string
	Options   map[string]string
	Modules   []string
	JobArray  bool

	ParallelVariables bool

	ProfileName  string
	ProfileOrder int
}

// ReferencedVariables returns the set of <<name>> references across
// every command template, in first-appearance order, via the same
// lexer variable.ExtractReferences uses for variable templates
// (spec.md §4.3: "exposes referenced_variables() via the same lexer
// as §4.1").
func (g *CommandGroup) ReferencedVariables() []string {
	var out []string
	seen := make(map[string]bool)
	for _, cmd := range g.Commands {
		for _, ref := range variable.ExtractReferences(cmd) {
			if !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	return out
}

// Defaults holds profile-level defaults for options, directory,
// modules and job_array (spec.md §4.3's "profile-level default").
type Defaults struct {
	Directory string
	Options   map[string]string
	Modules   []string
	JobArray  bool
}

// CallSiteOverride holds an explicit override supplied at submit time
// (spec.md §4.3's "explicit call-site override"), the highest
// precedence level.
type CallSiteOverride struct {
	Directory *string
	Options   map[string]string
	Modules   []string
	JobArray  *bool
}

// ApplyInheritance resolves the three-level precedence
// (profile default < command-group override < call-site override)
// into the CommandGroup's effective fields. For job_array the group
// level does not override the profile default: the two are OR'd, so a
// group cannot turn off a true default; only a non-nil call-site
// override replaces the result. mergo performs the map
// merges with override semantics (later argument wins), the same
// dependency the teacher's go.mod carries for struct/option merging.
func ApplyInheritance(g *CommandGroup, defaults Defaults, override *CallSiteOverride) error {
	effectiveOptions := map[string]string{}
	if err := mergo.Merge(&effectiveOptions, defaults.Options); err != nil {
		return err
	}
	if err := mergo.Merge(&effectiveOptions, g.Options, mergo.WithOverride); err != nil {
		return err
	}

	directory := defaults.Directory
	if g.Directory != "" {
		directory = g.Directory
	}
	modules := defaults.Modules
	if len(g.Modules) > 0 {
		modules = g.Modules
	}
	jobArray := defaults.JobArray || g.JobArray

	if override != nil {
		if err := mergo.Merge(&effectiveOptions, override.Options, mergo.WithOverride); err != nil {
			return err
		}
		if override.Directory != nil {
			directory = *override.Directory
		}
		if len(override.Modules) > 0 {
			modules = override.Modules
		}
		if override.JobArray != nil {
			jobArray = *override.JobArray
		}
	}

	g.Options = effectiveOptions
	g.Directory = directory
	g.Modules = modules
	g.JobArray = jobArray
	return nil
}
