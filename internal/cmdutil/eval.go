// Package cmdutil evaluates the shell-like `$VAR` and `` `cmd` ``
// tokens that may appear inside scheduler-option strings (module
// lists, directory overrides, job_array flags carried as strings)
// before they reach the jobscript emitter. This is distinct from the
// <<name>> variable template language in internal/variable: cmdutil
// expands OS environment and literal subshell output, the same way
// the teacher's internal/cmdutil package expands fields of a parsed
// step before execution.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// EvalString expands $VAR/${VAR} references from the OS environment
// and `cmd`/$(cmd) command substitutions, using mvdan.cc/sh/v3's
// native Go POSIX shell parser and interpreter — the teacher's go.mod
// dependency for exactly this concern — rather than forking a real
// shell for every option string.
func EvalString(s string) (string, error) {
	word, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Document(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", s, err)
	}

	runner, err := interp.New(
		interp.StdIO(nil, io.Discard, io.Discard),
		interp.Env(expand.ListEnviron(os.Environ()...)),
	)
	if err != nil {
		return "", fmt.Errorf("construct shell runner: %w", err)
	}

	cfg := &expand.Config{
		Env: expand.ListEnviron(os.Environ()...),
		CmdSubst: func(w io.Writer, cs *syntax.CmdSubst) error {
			sub := runner.Subshell()
			sub.Stdout = w
			for _, stmt := range cs.Stmts {
				if err := sub.Run(context.Background(), stmt); err != nil {
					return err
				}
			}
			return nil
		},
	}

	out, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", s, err)
	}
	return strings.TrimSpace(out), nil
}

// EvalStringFields walks v (which must be a pointer to a struct) and
// replaces every exported string field, recursively through nested
// structs, with its evaluated form via EvalString. Unexported fields
// are left untouched.
func EvalStringFields(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("EvalStringFields: expected pointer to struct, got %T", v)
	}
	return evalStruct(rv.Elem())
}

func evalStruct(rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			if field.String() == "" {
				continue
			}
			expanded, err := EvalString(field.String())
			if err != nil {
				return err
			}
			field.SetString(expanded)
		case reflect.Struct:
			if err := evalStruct(field); err != nil {
				return err
			}
		}
	}
	return nil
}
