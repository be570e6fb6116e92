// Package variable implements the typed variable model from spec.md
// §3/§4.1: the two variants (literal data, file-regex) a variable can
// take, dependency extraction from <<name>> templates, and the
// construction-time invariants (no cycles, no undefined references,
// at least one format specifier when base values exist).
package variable

import (
	"errors"
	"fmt"
	"strings"
)

// Variant discriminates a Variable's kind. Using a closed enum instead
// of reflection/interface{} keeps the file-regex type cast (§4.1) a
// plain switch, per SPEC_FULL.md DESIGN NOTES "Dynamic typing → tagged
// variants".
type Variant int

const (
	VariantData Variant = iota
	VariantFileRegex
)

func (v Variant) String() string {
	switch v {
	case VariantData:
		return "data"
	case VariantFileRegex:
		return "file_regex"
	default:
		return "unknown"
	}
}

// ValueType is the type tag a FileRegex variable casts its captured
// group into.
type ValueType int

const (
	ValueTypeString ValueType = iota
	ValueTypeInt
	ValueTypeFloat
	ValueTypeBool
)

// FileRegex holds the scan parameters for a file-regex variable
// (spec.md §3).
type FileRegex struct {
	Pattern string
	Group   int
	Type    ValueType
	// Subset, if non-empty, is a doublestar glob restricting which
	// matched filenames are considered (internal/resolver applies it).
	Subset string
}

// Variable is one entry in a Workflow's name → definition map.
type Variable struct {
	Name string

	Variant Variant

	// Template is the `value` format template (default "{:s}"). It
	// may embed other <<name>> references and positional format
	// specifiers.
	Template string

	// Data holds the literal base values for VariantData.
	Data []string

	// Regex holds the scan parameters for VariantFileRegex.
	Regex FileRegex
}

const defaultTemplate = "{:s}"

// EffectiveTemplate returns Template, or the default "{:s}" if unset.
func (v *Variable) EffectiveTemplate() string {
	if v.Template == "" {
		return defaultTemplate
	}
	return v.Template
}

// References returns the set of other variable names this variable's
// template references via <<name>> tokens, in first-appearance order
// (spec.md §4.2 requires a canonical, first-appearance order for the
// Cartesian product).
func (v *Variable) References() []string {
	return ExtractReferences(v.EffectiveTemplate())
}

// IsBase reports whether this variable's template references no other
// variable (spec.md §4.1 classify: base if references() is empty).
func (v *Variable) IsBase() bool {
	return len(v.References()) == 0
}

// ExtractReferences scans tmpl for non-overlapping <<name>> tokens and
// returns the referenced names in first-appearance order, without
// duplicates.
func ExtractReferences(tmpl string) []string {
	var out []string
	seen := make(map[string]bool)
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "<<")
		if start < 0 {
			break
		}
		start += i
		end := strings.Index(tmpl[start+2:], ">>")
		if end < 0 {
			break
		}
		end += start + 2
		name := tmpl[start+2 : end]
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		i = end + 2
	}
	return out
}

// StripReferences removes all <<name>> tokens from tmpl, leaving only
// literal text and positional format specifiers. A base variable's
// template contains no <<name>> by definition, so this is a no-op for
// base variables and is used to recover the literal format string a
// compound template wraps around its substituted references.
func StripReferences(tmpl string) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "<<")
		if start < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		start += i
		b.WriteString(tmpl[i:start])
		end := strings.Index(tmpl[start+2:], ">>")
		if end < 0 {
			b.WriteString(tmpl[start:])
			break
		}
		end += start + 2
		i = end + 2
	}
	return b.String()
}

// Errors returned by Validate and by the resolver when classification
// surfaces a declaration error (spec.md §7.1).
var (
	ErrCyclicReference    = errors.New("cyclic variable reference")
	ErrUndefinedReference = errors.New("undefined variable reference")
	ErrNoFormatSpecifier  = errors.New("template has no positional format specifier")
	ErrZeroLengthBase     = errors.New("base variable has zero values")
)

// Validate checks the construction-time invariants from spec.md §4.1
// across an entire variable set: every reference is defined, the
// reference graph is acyclic, and format templates with base values
// carry at least one positional specifier.
func Validate(vars map[string]*Variable) error {
	for name, v := range vars {
		for _, ref := range v.References() {
			if _, ok := vars[ref]; !ok {
				return fmt.Errorf("%w: variable %q references undefined %q", ErrUndefinedReference, name, ref)
			}
		}
	}
	if cyc := findCycle(vars); cyc != nil {
		return fmt.Errorf("%w: %s", ErrCyclicReference, strings.Join(cyc, " -> "))
	}
	for name, v := range vars {
		hasBaseValues := v.Variant == VariantData && len(v.Data) > 0
		if hasBaseValues {
			literal := StripReferences(v.EffectiveTemplate())
			if !hasPositionalSpecifier(literal) {
				return fmt.Errorf("%w: variable %q", ErrNoFormatSpecifier, name)
			}
		}
		if v.Variant == VariantData && len(v.References()) == 0 && len(v.Data) == 0 {
			return fmt.Errorf("%w: variable %q", ErrZeroLengthBase, name)
		}
	}
	return nil
}

// hasPositionalSpecifier reports whether s contains a Python-style
// "{}"/"{:...}" or printf-style "%v"/"%s"/... placeholder. jobweave's
// templates are format-agnostic at the literal-string level: any
// brace pair or percent-verb counts, since the resolver itself decides
// how to substitute (spec.md §4.1 only requires "at least one
// positional specifier").
func hasPositionalSpecifier(s string) bool {
	return strings.Contains(s, "{") && strings.Contains(s, "}") || strings.Contains(s, "%")
}

func findCycle(vars map[string]*Variable) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(vars))
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		color[name] = gray
		path = append(path, name)
		v, ok := vars[name]
		if ok {
			for _, ref := range v.References() {
				switch color[ref] {
				case gray:
					path = append(path, ref)
					return append([]string(nil), path...)
				case white:
					if cyc := visit(ref); cyc != nil {
						return cyc
					}
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for name := range vars {
		if color[name] == white {
			if cyc := visit(name); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}
