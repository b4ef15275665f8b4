// Package abiver compares dotted-numeric version strings such as the
// targetAbi markers found in Jellyfin plugin manifests. Comparison is
// component-wise on integers, never lexicographic, so "10.10" sorts
// above "10.9".
package abiver

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse splits a dotted-numeric version string into its integer
// components. An empty string or a non-numeric component is an error.
func Parse(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}
	parts := strings.Split(s, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q in %q", p, s)
		}
		nums[i] = n
	}
	return nums, nil
}

// Compare returns -1, 0 or 1 depending on whether a sorts below, equal
// to or above b. Tuples of different lengths are padded with zeros, so
// "10.9" and "10.9.0.0" compare equal.
func Compare(a, b string) (int, error) {
	av, err := Parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := Parse(b)
	if err != nil {
		return 0, err
	}
	n := len(av)
	if len(bv) > n {
		n = len(bv)
	}
	for i := 0; i < n; i++ {
		x, y := 0, 0
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			if x < y {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

// Less reports whether a sorts strictly below b. An unparsable marker
// sorts below anything parsable; two unparsable markers compare equal,
// so neither is less than the other.
func Less(a, b string) bool {
	c, err := Compare(a, b)
	if err == nil {
		return c < 0
	}
	_, aErr := Parse(a)
	_, bErr := Parse(b)
	if aErr != nil && bErr != nil {
		return false
	}
	return aErr != nil
}
