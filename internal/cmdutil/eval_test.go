package cmdutil

import "testing"

func TestEvalString_Env(t *testing.T) {
	t.Setenv("JW_TEST_VAR", "test_value")
	got, err := EvalString("$JW_TEST_VAR")
	if err != nil {
		t.Fatal(err)
	}
	if got != "test_value" {
		t.Errorf("got %q, want test_value", got)
	}
}

func TestEvalString_Command(t *testing.T) {
	got, err := EvalString("`echo hello`")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
}

func TestEvalString_Mixed(t *testing.T) {
	t.Setenv("JW_TEST_VAR", "test_value")
	got, err := EvalString("$JW_TEST_VAR and `echo command`")
	if err != nil {
		t.Fatal(err)
	}
	if got != "test_value and command" {
		t.Errorf("got %q", got)
	}
}

func TestEvalString_InvalidCommand(t *testing.T) {
	_, err := EvalString("`invalid_command_that_does_not_exist`")
	if err == nil {
		t.Fatal("expected error")
	}
}

type nested struct {
	NestedField   string
	unexported    string
}

type testStruct struct {
	SimpleField  string
	EnvField     string
	EmptyField   string
	unexported   string
	NestedStruct nested
}

func TestEvalStringFields(t *testing.T) {
	t.Setenv("JW_NESTED_VAR", "nested_value")
	s := &testStruct{
		SimpleField: "hello",
		EnvField:    "$JW_NESTED_VAR",
		unexported:  "should not change",
		NestedStruct: nested{
			NestedField: "$JW_NESTED_VAR",
			unexported:  "should not change",
		},
	}
	if err := EvalStringFields(s); err != nil {
		t.Fatal(err)
	}
	if s.SimpleField != "hello" {
		t.Errorf("SimpleField = %q", s.SimpleField)
	}
	if s.EnvField != "nested_value" {
		t.Errorf("EnvField = %q", s.EnvField)
	}
	if s.unexported != "should not change" {
		t.Errorf("unexported mutated: %q", s.unexported)
	}
	if s.NestedStruct.NestedField != "nested_value" {
		t.Errorf("NestedStruct.NestedField = %q", s.NestedStruct.NestedField)
	}
}
