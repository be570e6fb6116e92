// Package declaration mirrors the keys of the input workflow spec
// from spec.md §6 as a decodable Go struct, so unit tests and `make`
// can round-trip a declaration without requiring the external
// authoring CLI. Decoded with github.com/goccy/go-yaml, a teacher
// dependency, the same way the teacher decodes its own DAG YAML in
// internal/digraph.
package declaration

import (
	"fmt"

	yaml "github.com/goccy/go-yaml"

	"github.com/jobweave/jobweave/internal/cmdgroup"
	"github.com/jobweave/jobweave/internal/variable"
)

// Declaration is the top-level document (spec.md §6: "keys `profile`,
// `command_groups[]`, `variables{}`, plus optional top-level
// `options`, `directory`, `modules`, `job_array`, `profile_order`,
// `profile_name`").
type Declaration struct {
	Profile string `yaml:"profile"`

	Directory    string            `yaml:"directory,omitempty"`
	Options      map[string]string `yaml:"options,omitempty"`
	Modules      []string          `yaml:"modules,omitempty"`
	JobArray     bool              `yaml:"job_array,omitempty"`
	ProfileOrder int               `yaml:"profile_order,omitempty"`
	ProfileName  string            `yaml:"profile_name,omitempty"`

	CommandGroups []CommandGroupDecl  `yaml:"command_groups"`
	Variables     map[string]Variable `yaml:"variables"`
}

// CommandGroupDecl is one entry of command_groups[] (spec.md §6).
type CommandGroupDecl struct {
	Commands  []string          `yaml:"commands"`
	ExecOrder *int              `yaml:"exec_order,omitempty"`
	SubOrder  *int              `yaml:"sub_order,omitempty"`
	Options   map[string]string `yaml:"options,omitempty"`
	Directory string            `yaml:"directory,omitempty"`
	Modules   []string          `yaml:"modules,omitempty"`
	JobArray  *bool             `yaml:"job_array,omitempty"`
	Parallel  struct {
		Variables bool `yaml:"variables,omitempty"`
	} `yaml:"parallel,omitempty"`
}

// Variable is one entry of variables{} (spec.md §6: "`value`
// (template), and exactly one of `data` (list) or `file_regex`
// (`pattern`, `group`, `type`, `subset`), or neither").
type Variable struct {
	Value     string     `yaml:"value,omitempty"`
	Data      []string   `yaml:"data,omitempty"`
	FileRegex *FileRegex `yaml:"file_regex,omitempty"`
}

// FileRegex mirrors variable.FileRegex's decl-facing shape.
type FileRegex struct {
	Pattern string `yaml:"pattern"`
	Group   int    `yaml:"group"`
	Type    string `yaml:"type"`
	Subset  string `yaml:"subset,omitempty"`
}

// Parse decodes a YAML document into a Declaration.
func Parse(doc []byte) (*Declaration, error) {
	var d Declaration
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("parse declaration: %w", err)
	}
	return &d, nil
}

// Marshal encodes a Declaration back to YAML, for round-trip tests.
func Marshal(d *Declaration) ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal declaration: %w", err)
	}
	return out, nil
}

var valueTypes = map[string]variable.ValueType{
	"string": variable.ValueTypeString,
	"int":    variable.ValueTypeInt,
	"float":  variable.ValueTypeFloat,
	"bool":   variable.ValueTypeBool,
}

// ResolveVariables converts the declaration's variables{} map into the
// internal/variable domain type, ready for variable.Validate.
func (d *Declaration) ResolveVariables() (map[string]*variable.Variable, error) {
	out := make(map[string]*variable.Variable, len(d.Variables))
	for name, v := range d.Variables {
		vv := &variable.Variable{
			Name:     name,
			Template: v.Value,
		}
		switch {
		case v.FileRegex != nil:
			vt, ok := valueTypes[v.FileRegex.Type]
			if !ok {
				return nil, fmt.Errorf("variable %q: unknown file_regex type %q", name, v.FileRegex.Type)
			}
			vv.Variant = variable.VariantFileRegex
			vv.Regex = variable.FileRegex{
				Pattern: v.FileRegex.Pattern,
				Group:   v.FileRegex.Group,
				Type:    vt,
				Subset:  v.FileRegex.Subset,
			}
		default:
			vv.Variant = variable.VariantData
			vv.Data = v.Data
		}
		out[name] = vv
	}
	return out, nil
}

// ResolveCommandGroups converts the declaration's command_groups[] into
// cmdgroup.CommandGroup values, applying the declaration's top-level
// defaults where a group entry omits a field (spec.md §4.3's
// profile-level default).
func (d *Declaration) ResolveCommandGroups() ([]*cmdgroup.CommandGroup, error) {
	defaults := cmdgroup.Defaults{
		Directory: d.Directory,
		Options:   d.Options,
		Modules:   d.Modules,
		JobArray:  d.JobArray,
	}

	out := make([]*cmdgroup.CommandGroup, len(d.CommandGroups))
	for i, gd := range d.CommandGroups {
		g := &cmdgroup.CommandGroup{
			Index:             i,
			Commands:          gd.Commands,
			Directory:         gd.Directory,
			Options:           gd.Options,
			Modules:           gd.Modules,
			ParallelVariables: gd.Parallel.Variables,
			ProfileName:       d.ProfileName,
			ProfileOrder:      d.ProfileOrder,
		}
		if gd.ExecOrder != nil {
			g.ExecOrder = *gd.ExecOrder
		}
		if gd.SubOrder != nil {
			g.SubOrder = *gd.SubOrder
		}
		if gd.JobArray != nil {
			g.JobArray = *gd.JobArray
		}
		if err := cmdgroup.ApplyInheritance(g, defaults, nil); err != nil {
			return nil, fmt.Errorf("command group %d: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}
