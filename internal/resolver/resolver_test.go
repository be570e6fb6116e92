package resolver

import (
	"context"
	"testing"

	"github.com/jobweave/jobweave/internal/variable"
)

type noopScanner struct{}

func (noopScanner) Scan(_ string, _ *variable.FileRegex) ([]string, error) {
	return nil, nil
}

// S1 — single base variable, five values.
func TestResolve_S1_BaseVariable(t *testing.T) {
	vars := map[string]*variable.Variable{
		"f": {Name: "f", Variant: variable.VariantData, Template: "{:s}", Data: []string{"a", "b", "c", "d", "e"}},
	}
	r := New(vars, noopScanner{})
	res, err := r.ResolveReachable(context.Background(), []string{"f"}, "/work")
	if err != nil {
		t.Fatal(err)
	}
	got := res["f"]
	want := []string{"a", "b", "c", "d", "e"}
	if len(got.Values) != len(want) {
		t.Fatalf("got %v, want %v", got.Values, want)
	}
	for i := range want {
		if got.Values[i] != want[i] {
			t.Errorf("Values[%d] = %q, want %q", i, got.Values[i], want[i])
		}
	}
}

// S2 — compound variable referencing base, with its own data feeding
// a zero-padded positional specifier.
func TestResolve_S2_CompoundVariable(t *testing.T) {
	vars := map[string]*variable.Variable{
		"base": {Name: "base", Variant: variable.VariantData, Template: "{:s}", Data: []string{"x", "y"}},
		"file": {Name: "file", Variant: variable.VariantData, Template: "out/<<base>>_inc{:03d}.txt", Data: []string{"20", "40"}},
	}
	r := New(vars, noopScanner{})
	res, err := r.ResolveReachable(context.Background(), []string{"file"}, "/work")
	if err != nil {
		t.Fatal(err)
	}

	fileVals := res["file"].Values
	wantFile := []string{"out/x_inc020.txt", "out/x_inc040.txt", "out/y_inc020.txt", "out/y_inc040.txt"}
	if len(fileVals) != len(wantFile) {
		t.Fatalf("file = %v, want %v", fileVals, wantFile)
	}
	for i := range wantFile {
		if fileVals[i] != wantFile[i] {
			t.Errorf("file[%d] = %q, want %q", i, fileVals[i], wantFile[i])
		}
	}

	baseCol := res["file"].Columns["base"]
	wantBase := []string{"x", "x", "y", "y"}
	for i := range wantBase {
		if baseCol[i] != wantBase[i] {
			t.Errorf("base column[%d] = %q, want %q", i, baseCol[i], wantBase[i])
		}
	}
}

func TestResolve_Deferred(t *testing.T) {
	vars := map[string]*variable.Variable{
		"scanned": {Name: "scanned", Variant: variable.VariantFileRegex, Template: "{:s}", Regex: variable.FileRegex{Pattern: `out_(\d+)\.txt`, Group: 1}},
	}
	r := New(vars, deferringScanner{})
	res, err := r.ResolveReachable(context.Background(), []string{"scanned"}, "/not/yet/populated")
	if err != nil {
		t.Fatal(err)
	}
	if !res["scanned"].Deferred {
		t.Error("expected variable to be marked Deferred")
	}
}

type deferringScanner struct{}

func (deferringScanner) Scan(_ string, _ *variable.FileRegex) ([]string, error) {
	return nil, ErrDeferred
}
