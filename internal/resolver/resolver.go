// Package resolver implements the two-phase variable resolution from
// spec.md §4.2: Phase A walks the variable DAG in dependency order at
// submit time and computes Cartesian-product value vectors for every
// variable reachable from a command group's templates; Phase B
// performs the identical computation at runtime once any deferred
// file-regex variables can actually be scanned, and materializes one
// value file per variable.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jobweave/jobweave/internal/variable"
)

// Sentinel errors from spec.md §7.2 (resolution errors).
var (
	// ErrDeferred is returned (internally) when a file-regex variable's
	// working directory does not exist yet; ResolveReachable propagates it by
	// setting Resolved.Deferred instead of failing.
	ErrDeferred = errors.New("file-regex variable deferred: working directory not yet populated")

	ErrEmptyScan   = errors.New("file-regex scan matched zero files")
	ErrCastFailure = errors.New("file-regex captured group failed type cast")
	ErrBadPattern  = errors.New("file-regex pattern is unreadable")
)

// Scanner discovers the base values of a FileRegex variable by
// scanning a working directory. Returns ErrDeferred (wrapped) if the
// directory does not exist at all, distinguishing "not ready yet"
// (submit time, non-fatal) from "ready but empty" (fatal, spec.md S4).
type Scanner interface {
	Scan(dir string, rx *variable.FileRegex) ([]string, error)
}

// Resolved is the outcome of resolving one variable: its final value
// vector (the companion column), plus the bound values of every
// dimension (named references and, for variables that mix a
// reference with their own literal data, an implicit "self" column)
// so that callers can read out companion columns row-wise — e.g.
// scenario S2's requirement that the `base` column bound to a
// compound `file` variable reads ["x","x","y","y"].
type Resolved struct {
	Name     string
	Values   []string
	Columns  map[string][]string
	Deferred bool
}

// Resolver walks a variable set's dependency DAG.
type Resolver struct {
	vars    map[string]*variable.Variable
	scanner Scanner
}

func New(vars map[string]*variable.Variable, scanner Scanner) *Resolver {
	return &Resolver{vars: vars, scanner: scanner}
}

// ResolveReachable resolves every variable transitively reachable from
// roots (typically the <<name>> references of one command group's
// templates). dir is the working directory Phase-B file-regex scans
// run against; at submit time (Phase A) callers pass a directory that
// may not exist yet, which is exactly how a file-regex variable
// becomes Deferred.
func (r *Resolver) ResolveReachable(_ context.Context, roots []string, dir string) (map[string]*Resolved, error) {
	memo := make(map[string]*Resolved)
	visiting := make(map[string]bool)
	for _, root := range roots {
		if _, err := r.resolve(root, dir, visiting, memo); err != nil {
			return nil, err
		}
	}
	return memo, nil
}

func (r *Resolver) resolve(name string, dir string, visiting map[string]bool, memo map[string]*Resolved) (*Resolved, error) {
	if res, ok := memo[name]; ok {
		return res, nil
	}
	if visiting[name] {
		return nil, fmt.Errorf("%w: %s", variable.ErrCyclicReference, name)
	}
	v, ok := r.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", variable.ErrUndefinedReference, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	refs := v.References()
	refResolved := make([]*Resolved, len(refs))
	for i, ref := range refs {
		rr, err := r.resolve(ref, dir, visiting, memo)
		if err != nil {
			return nil, err
		}
		refResolved[i] = rr
	}

	ownValues, deferred, err := r.ownValues(v, dir)
	if err != nil {
		return nil, err
	}

	for _, rr := range refResolved {
		if rr.Deferred {
			deferred = true
		}
	}

	if deferred {
		res := &Resolved{Name: name, Deferred: true}
		memo[name] = res
		return res, nil
	}

	res, err := r.product(v, refs, refResolved, ownValues)
	if err != nil {
		return nil, err
	}
	memo[name] = res
	return res, nil
}

// ownValues returns a variable's own raw base values (pre-format), or
// (nil, true, nil) if it's a file-regex variable whose directory is
// not yet populated.
func (r *Resolver) ownValues(v *variable.Variable, dir string) ([]string, bool, error) {
	switch v.Variant {
	case variable.VariantData:
		return v.Data, false, nil
	case variable.VariantFileRegex:
		values, err := r.scanner.Scan(dir, &v.Regex)
		if err != nil {
			if errors.Is(err, ErrDeferred) {
				return nil, true, nil
			}
			return nil, false, err
		}
		return values, false, nil
	default:
		return nil, false, nil
	}
}

// product computes the Cartesian product across a variable's
// dimensions: its named references (first-appearance order) plus, if
// it carries its own base values, one implicit trailing "self"
// dimension bound to the variable's own positional format specifier
// (spec.md §4.2; scenario S2 models exactly this — `file` both
// references `base` and carries its own [20,40] data).
func (r *Resolver) product(v *variable.Variable, refs []string, refResolved []*Resolved, ownValues []string) (*Resolved, error) {
	hasOwn := len(ownValues) > 0 && len(refs) > 0
	// A pure base variable (no references) is the special case of the
	// product with a single dimension: its own values, formatted
	// one-to-one with no substitution pass.
	if len(refs) == 0 {
		if len(ownValues) == 0 {
			return nil, fmt.Errorf("%w: variable %q", variable.ErrZeroLengthBase, v.Name)
		}
		literal := variable.StripReferences(v.EffectiveTemplate())
		values := make([]string, len(ownValues))
		for i, raw := range ownValues {
			formatted, err := formatSlot(literal, raw)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", v.Name, err)
			}
			values[i] = formatted
		}
		return &Resolved{
			Name:    v.Name,
			Values:  values,
			Columns: map[string][]string{v.Name: values},
		}, nil
	}

	dims := make([][]string, 0, len(refs)+1)
	dimNames := make([]string, 0, len(refs)+1)
	for i, ref := range refs {
		dims = append(dims, refResolved[i].Values)
		dimNames = append(dimNames, ref)
	}
	if hasOwn {
		dims = append(dims, ownValues)
		dimNames = append(dimNames, "")
	}
	for _, d := range dims {
		if len(d) == 0 {
			return nil, fmt.Errorf("%w: variable %q has an empty dimension", variable.ErrZeroLengthBase, v.Name)
		}
	}

	total := 1
	for _, d := range dims {
		total *= len(d)
	}

	values := make([]string, total)
	columns := make(map[string][]string, len(refs)+1)
	for _, ref := range refs {
		columns[ref] = make([]string, total)
	}
	columns[v.Name] = values

	idx := make([]int, len(dims))
	for row := 0; row < total; row++ {
		bindings := make(map[string]string, len(refs))
		var ownRaw string
		for d, name := range dimNames {
			val := dims[d][idx[d]]
			if name == "" {
				ownRaw = val
			} else {
				bindings[name] = val
				columns[name][row] = val
				// propagate the referenced variable's own companion
				// columns too, so a chain a->b->c exposes c's column
				// at a's resolution level.
				for col, vals := range refResolved[indexOf(refs, name)].Columns {
					if _, exists := columns[col]; !exists {
						columns[col] = make([]string, total)
					}
					columns[col][row] = vals[idx[d]]
				}
			}
		}

		substituted := v.EffectiveTemplate()
		for name, val := range bindings {
			substituted = strings.ReplaceAll(substituted, "<<"+name+">>", val)
		}
		if hasOwn {
			strippedCurrent := variable.StripReferences(substituted)
			formatted, err := formatSlot(strippedCurrent, ownRaw)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", v.Name, err)
			}
			values[row] = formatted
		} else {
			values[row] = variable.StripReferences(substituted)
		}

		// odometer increment (last dimension fastest), mirroring a
		// standard Cartesian-product enumeration.
		for d := len(dims) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(dims[d]) {
				break
			}
			idx[d] = 0
		}
	}

	return &Resolved{Name: v.Name, Values: values, Columns: columns}, nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// formatSlot applies a single {}/{:spec} positional placeholder found
// in literal to raw, returning literal with the placeholder replaced.
// Supported specs: {} / {:s} (string), {:d} (integer),
// {:0Nd} (zero-padded integer width N), {:.Nf} (fixed-point float).
func formatSlot(literal, raw string) (string, error) {
	start := strings.Index(literal, "{")
	if start < 0 {
		return literal, nil
	}
	end := strings.Index(literal[start:], "}")
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated format specifier in %q", variable.ErrNoFormatSpecifier, literal)
	}
	end += start
	spec := literal[start+1 : end]
	formatted, err := applySpec(spec, raw)
	if err != nil {
		return "", err
	}
	return literal[:start] + formatted + literal[end+1:], nil
}

func applySpec(spec, raw string) (string, error) {
	spec = strings.TrimPrefix(spec, ":")
	switch {
	case spec == "" || spec == "s":
		return raw, nil
	case spec == "d":
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", ErrCastFailure, raw)
		}
		return strconv.Itoa(n), nil
	case strings.HasSuffix(spec, "d") && strings.HasPrefix(spec, "0"):
		width, err := strconv.Atoi(strings.TrimSuffix(spec[1:], "d"))
		if err != nil {
			return "", fmt.Errorf("%w: bad width in spec %q", ErrCastFailure, spec)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", ErrCastFailure, raw)
		}
		return fmt.Sprintf("%0*d", width, n), nil
	case strings.HasPrefix(spec, ".") && strings.HasSuffix(spec, "f"):
		prec, err := strconv.Atoi(strings.TrimSuffix(spec[1:], "f"))
		if err != nil {
			return "", fmt.Errorf("%w: bad precision in spec %q", ErrCastFailure, spec)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a float", ErrCastFailure, raw)
		}
		return strconv.FormatFloat(f, 'f', prec, 64), nil
	default:
		return raw, nil
	}
}
