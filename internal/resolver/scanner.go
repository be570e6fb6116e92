package resolver

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jobweave/jobweave/internal/variable"
)

// FilesystemScanner discovers FileRegex base values by scanning a
// working directory's immediate entries (spec.md §3: "base values are
// discovered at runtime by scanning the working directory").
type FilesystemScanner struct{}

func (FilesystemScanner) Scan(dir string, rx *variable.FileRegex) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDeferred
		}
		return nil, fmt.Errorf("%w: %v", ErrBadPattern, err)
	}

	re, err := regexp.Compile(rx.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPattern, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var values []string
	for _, name := range names {
		if rx.Subset != "" {
			ok, err := doublestar.Match(rx.Subset, name)
			if err != nil {
				return nil, fmt.Errorf("%w: subset pattern: %v", ErrBadPattern, err)
			}
			if !ok {
				continue
			}
		}
		m := re.FindStringSubmatch(name)
		if m == nil || rx.Group >= len(m) {
			continue
		}
		raw := m[rx.Group]
		if err := checkType(raw, rx.Type); err != nil {
			return nil, fmt.Errorf("%w: file %q: %v", ErrCastFailure, name, err)
		}
		values = append(values, raw)
	}
	return values, nil
}

func checkType(raw string, t variable.ValueType) error {
	switch t {
	case variable.ValueTypeInt:
		_, err := strconv.Atoi(raw)
		return err
	case variable.ValueTypeFloat:
		_, err := strconv.ParseFloat(raw, 64)
		return err
	case variable.ValueTypeBool:
		_, err := strconv.ParseBool(raw)
		return err
	default:
		return nil
	}
}
