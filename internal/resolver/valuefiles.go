package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteValueFiles materializes one plain-text value file per variable
// in resolved, each line being one row's value (spec.md §4.2 Phase B:
// "writes one plain-text value file per variable per command group").
// Files are named "<variable>.values" inside dir.
func WriteValueFiles(dir string, resolved map[string]*Resolved) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create value-file directory: %w", err)
	}
	paths := make(map[string]string, len(resolved))
	for name, res := range resolved {
		if res.Deferred {
			return nil, fmt.Errorf("variable %q is still deferred: cannot materialize value file", name)
		}
		path := filepath.Join(dir, name+".values")
		content := strings.Join(res.Values, "\n")
		if len(res.Values) > 0 {
			content += "\n"
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("write value file for %q: %w", name, err)
		}
		paths[name] = path
	}
	return paths, nil
}

// Combine builds the value matrix for a command group that directly
// references several variables in its command templates (spec.md
// §4.2 Phase B: "one column per referenced variable, rows = product
// length"). Each distinct name contributes one dimension to the
// product, the same way a single compound variable's direct
// references do; a name already bound through another name's
// companion columns is NOT re-multiplied — callers should pass only
// the variables that are not already reachable as a companion column
// of another name in the list.
func Combine(resolved map[string]*Resolved, names []string) (*Resolved, error) {
	if len(names) == 0 {
		return &Resolved{Columns: map[string][]string{}}, nil
	}
	dims := make([][]string, len(names))
	for i, name := range names {
		res, ok := resolved[name]
		if !ok {
			return nil, fmt.Errorf("variable %q not resolved", name)
		}
		if len(res.Values) == 0 {
			return nil, fmt.Errorf("variable %q has zero resolved values", name)
		}
		dims[i] = res.Values
	}

	total := 1
	for _, d := range dims {
		total *= len(d)
	}

	columns := make(map[string][]string)
	for _, name := range names {
		for col := range resolved[name].Columns {
			if _, ok := columns[col]; !ok {
				columns[col] = make([]string, total)
			}
		}
	}

	idx := make([]int, len(dims))
	for row := 0; row < total; row++ {
		for d, name := range names {
			for col, vals := range resolved[name].Columns {
				columns[col][row] = vals[idx[d]]
			}
		}
		for d := len(dims) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(dims[d]) {
				break
			}
			idx[d] = 0
		}
	}

	return &Resolved{Columns: columns}, nil
}
