// Package fileutil holds small filesystem helpers shared by the
// jobscript emitter and the workflow store: safe filenames and the
// zero-padding width computation the emitter uses for task and
// variable subdirectory names (spec.md §4.6 — the historical bug
// being truncation to a width narrower than the true task count).
package fileutil

import (
	"regexp"
	"strconv"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SafeName replaces characters that are unsafe in a filesystem path
// component with repl.
func SafeName(name, repl string) string {
	if name == "" {
		return name
	}
	return unsafeChars.ReplaceAllString(name, repl)
}

// PadWidth returns ceil(log10(n+1)), and at least 1 (so PadWidth(0) is
// 1), the zero-padded width spec.md §4.6
// requires: the narrowest width that does not truncate any of n items,
// computed by integer comparison (never float log10, and never
// derived from n-1, which undercounts at exact powers of ten: 10 items
// need width 2, not the 1 digit that suffices for index 9 alone).
func PadWidth(n int) int {
	width := 1
	threshold := 10
	for threshold <= n {
		width++
		threshold *= 10
	}
	return width
}

// ZeroPad formats i using width digits, matching PadWidth(n) for the
// total count n the index is drawn from.
func ZeroPad(i, width int) string {
	s := strconv.Itoa(i)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// DistributeEven splits n items into buckets buckets as evenly as
// possible using integer division with the remainder spread across
// the first buckets, so no item is duplicated or dropped and no
// floating-point rounding is involved (spec.md §4.6).
func DistributeEven(n, buckets int) []int {
	if buckets <= 0 {
		return nil
	}
	sizes := make([]int, buckets)
	base := n / buckets
	rem := n % buckets
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}
