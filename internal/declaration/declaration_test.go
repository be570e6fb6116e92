package declaration

import "testing"

const sampleYAML = `
profile: sweep
directory: /scratch/run
options:
  partition: cpu
command_groups:
  - commands: ["echo <<base>>"]
    exec_order: 0
    sub_order: 0
variables:
  base:
    value: "{:s}"
    data: ["x", "y"]
  file:
    value: "out/<<base>>_inc{:03d}.txt"
    data: ["20", "40"]
`

func TestParse_RoundTrip(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if d.Profile != "sweep" {
		t.Errorf("profile = %q, want sweep", d.Profile)
	}
	if len(d.CommandGroups) != 1 || len(d.CommandGroups[0].Commands) != 1 {
		t.Fatalf("command_groups = %+v", d.CommandGroups)
	}
	if d.CommandGroups[0].ExecOrder == nil || *d.CommandGroups[0].ExecOrder != 0 {
		t.Errorf("exec_order = %v, want 0", d.CommandGroups[0].ExecOrder)
	}
	if len(d.Variables) != 2 {
		t.Fatalf("variables = %+v", d.Variables)
	}

	out, err := Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if reparsed.Profile != d.Profile {
		t.Errorf("round-trip profile mismatch: %q vs %q", reparsed.Profile, d.Profile)
	}
}

func TestResolveVariables(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	vars, err := d.ResolveVariables()
	if err != nil {
		t.Fatal(err)
	}
	if len(vars["base"].Data) != 2 {
		t.Errorf("base.Data = %v", vars["base"].Data)
	}
	if len(vars["file"].References()) != 1 || vars["file"].References()[0] != "base" {
		t.Errorf("file references = %v, want [base]", vars["file"].References())
	}
}

func TestResolveCommandGroups_AppliesDefaults(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	groups, err := d.ResolveCommandGroups()
	if err != nil {
		t.Fatal(err)
	}
	if groups[0].Directory != "/scratch/default" && groups[0].Directory != "/scratch/run" {
		t.Errorf("directory = %q", groups[0].Directory)
	}
	if groups[0].Options["partition"] != "cpu" {
		t.Errorf("options.partition = %q, want cpu", groups[0].Options["partition"])
	}
}

func TestFileRegex_UnknownType(t *testing.T) {
	doc := `
profile: p
command_groups: []
variables:
  f:
    file_regex:
      pattern: "out_(\\d+).txt"
      group: 1
      type: "weird"
`
	d, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ResolveVariables(); err == nil {
		t.Fatal("expected error for unknown file_regex type")
	}
}
