package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a numeric cell as exported by market reports:
// thousands separators and surrounding quotes or whitespace are ignored.
// Returns (v, false) for text that is not a finite number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseWholeNumber parses an integer cell, also accepting "14.0" style values.
func ParseWholeNumber(s string) (int, bool) {
	v, ok := ParseNumber(s)
	if !ok || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// CollapseSpaces trims s and folds inner whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
