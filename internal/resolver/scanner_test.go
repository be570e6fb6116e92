package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobweave/jobweave/internal/variable"
)

func TestFilesystemScanner_Deferred(t *testing.T) {
	s := FilesystemScanner{}
	_, err := s.Scan(filepath.Join(t.TempDir(), "does-not-exist"), &variable.FileRegex{Pattern: `.*`})
	if !errors.Is(err, ErrDeferred) {
		t.Fatalf("got %v, want ErrDeferred", err)
	}
}

func TestFilesystemScanner_ScansAndCastsGroup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run_001.out", "run_002.out", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	s := FilesystemScanner{}
	values, err := s.Scan(dir, &variable.FileRegex{
		Pattern: `run_(\d+)\.out`,
		Group:   1,
		Type:    variable.ValueTypeInt,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001", "002"}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("values[%d] = %q, want %q", i, values[i], want[i])
		}
	}
}

func TestFilesystemScanner_SubsetFilter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a_1.dat", "b_1.dat"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	s := FilesystemScanner{}
	values, err := s.Scan(dir, &variable.FileRegex{
		Pattern: `(a|b)_(\d+)\.dat`,
		Group:   1,
		Subset:  "a_*",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 || values[0] != "a" {
		t.Errorf("values = %v, want [a]", values)
	}
}
