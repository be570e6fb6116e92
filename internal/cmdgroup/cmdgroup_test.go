package cmdgroup

import "testing"

func TestReferencedVariables(t *testing.T) {
	g := &CommandGroup{Commands: []string{"postProcess <<f>>", "archive <<f>> <<dest>>"}}
	refs := g.ReferencedVariables()
	if len(refs) != 2 || refs[0] != "f" || refs[1] != "dest" {
		t.Fatalf("refs = %v, want [f dest]", refs)
	}
}

func TestApplyInheritance_CallSiteWins(t *testing.T) {
	g := &CommandGroup{
		Directory: "",
		Options:   map[string]string{"partition": "gpu"},
	}
	defaults := Defaults{
		Directory: "/scratch/default",
		Options:   map[string]string{"partition": "cpu", "time": "01:00:00"},
	}
	overrideDir := "/scratch/override"
	override := &CallSiteOverride{
		Directory: &overrideDir,
		Options:   map[string]string{"time": "04:00:00"},
	}

	if err := ApplyInheritance(g, defaults, override); err != nil {
		t.Fatal(err)
	}

	if g.Directory != "/scratch/override" {
		t.Errorf("Directory = %q, want call-site override", g.Directory)
	}
	if g.Options["partition"] != "gpu" {
		t.Errorf("Options[partition] = %q, want group override to win over default", g.Options["partition"])
	}
	if g.Options["time"] != "04:00:00" {
		t.Errorf("Options[time] = %q, want call-site override", g.Options["time"])
	}
}

func TestApplyInheritance_DefaultsOnly(t *testing.T) {
	g := &CommandGroup{}
	defaults := Defaults{Directory: "/scratch/default", Options: map[string]string{"partition": "cpu"}, JobArray: true}
	if err := ApplyInheritance(g, defaults, nil); err != nil {
		t.Fatal(err)
	}
	if g.Directory != "/scratch/default" || g.Options["partition"] != "cpu" || !g.JobArray {
		t.Errorf("got %+v", g)
	}
}
