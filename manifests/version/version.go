package version

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// part is one dot-separated component: a leading number
// and whatever trails it ("3rc1" is {3, "rc1"}).
type part struct {
	num    uint64
	suffix string
}

func parse(v string) []part {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")

	if v == "" {
		return nil
	}

	fields := strings.Split(v, ".")
	parts := make([]part, 0, len(fields))

	for _, f := range fields {
		end := strings.IndexFunc(f, func(r rune) bool {
			return !unicode.IsDigit(r)
		})
		if end < 0 {
			end = len(f)
		}

		// Overflowing numbers saturate; they still sort above
		// every representable value.
		num, err := strconv.ParseUint(f[:end], 10, 64)
		if err != nil && end > 0 {
			num = ^uint64(0)
		}

		parts = append(parts, part{num: num, suffix: f[end:]})
	}

	// Trailing zero parts carry no ordering information.
	for len(parts) > 0 {
		last := parts[len(parts)-1]
		if last.num != 0 || last.suffix != "" {
			break
		}

		parts = parts[:len(parts)-1]
	}

	return parts
}

// Compare returns -1, 0, or +1 as a is lower than, equal
// to, or greater than b.
func Compare(a string, b string) int {
	pa, pb := parse(a), parse(b)

	for i := range max(len(pa), len(pb)) {
		var x, y part

		if i < len(pa) {
			x = pa[i]
		}

		if i < len(pb) {
			y = pb[i]
		}

		if x.num != y.num {
			if x.num < y.num {
				return -1
			}

			return 1
		}

		if c := compareSuffix(x.suffix, y.suffix); c != 0 {
			return c
		}
	}

	return 0
}

// compareSuffix orders the non-numeric tail of a part. A
// bare number sorts above the same number with a suffix,
// so "1.0" > "1.0-beta". Suffixes compare
// case-insensitively.
func compareSuffix(a string, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}

	return strings.Compare(
		strings.ToLower(a), strings.ToLower(b),
	)
}

// SortDescending sorts versions greatest first in place.
func SortDescending(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		return Compare(b, a)
	})
}
