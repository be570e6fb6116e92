package variable

import (
	"errors"
	"testing"
)

func TestExtractReferences_Order(t *testing.T) {
	refs := ExtractReferences("out/<<base>>_inc<<offset>>_<<base>>.txt")
	if len(refs) != 2 || refs[0] != "base" || refs[1] != "offset" {
		t.Fatalf("refs = %v, want [base offset] (dedup, first-appearance order)", refs)
	}
}

func TestStripReferences(t *testing.T) {
	got := StripReferences("out/<<base>>_inc{:03d}.txt")
	if got != "out/_inc{:03d}.txt" {
		t.Errorf("got %q", got)
	}
}

func TestVariable_IsBase(t *testing.T) {
	base := &Variable{Name: "f", Template: "{:s}", Variant: VariantData, Data: []string{"a"}}
	if !base.IsBase() {
		t.Error("expected base variable")
	}
	compound := &Variable{Name: "file", Template: "out/<<base>>_inc{:03d}.txt", Variant: VariantData}
	if compound.IsBase() {
		t.Error("expected compound variable")
	}
}

func TestValidate_UndefinedReference(t *testing.T) {
	vars := map[string]*Variable{
		"file": {Name: "file", Template: "<<missing>>", Variant: VariantData},
	}
	err := Validate(vars)
	if !errors.Is(err, ErrUndefinedReference) {
		t.Fatalf("got %v, want ErrUndefinedReference", err)
	}
}

func TestValidate_Cycle(t *testing.T) {
	vars := map[string]*Variable{
		"a": {Name: "a", Template: "<<b>>"},
		"b": {Name: "b", Template: "<<a>>"},
	}
	err := Validate(vars)
	if !errors.Is(err, ErrCyclicReference) {
		t.Fatalf("got %v, want ErrCyclicReference", err)
	}
}

func TestValidate_ZeroLengthBase(t *testing.T) {
	vars := map[string]*Variable{
		"f": {Name: "f", Template: "{:s}", Variant: VariantData, Data: nil},
	}
	err := Validate(vars)
	if !errors.Is(err, ErrZeroLengthBase) {
		t.Fatalf("got %v, want ErrZeroLengthBase", err)
	}
}

func TestValidate_NoFormatSpecifier(t *testing.T) {
	vars := map[string]*Variable{
		"f": {Name: "f", Template: "literal text", Variant: VariantData, Data: []string{"a", "b"}},
	}
	err := Validate(vars)
	if !errors.Is(err, ErrNoFormatSpecifier) {
		t.Fatalf("got %v, want ErrNoFormatSpecifier", err)
	}
}

func TestValidate_CompoundVariable_OK(t *testing.T) {
	vars := map[string]*Variable{
		"base": {Name: "base", Template: "{:s}", Variant: VariantData, Data: []string{"x", "y"}},
		"file": {Name: "file", Template: "out/<<base>>_inc{:03d}.txt", Variant: VariantData},
	}
	if err := Validate(vars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
