package dirtree

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`[-+]?[0-9]+`)

// StripDigitsKey is the sibling sort key: the name with every run of digits
// (and an optional sign before it) removed. Names that differ only in their
// numbers compare equal, so "file10" and "file2" keep their lexicographic
// order rather than a numeric one.
func StripDigitsKey(name string) string {
	return digitRun.ReplaceAllString(name, "")
}

// SortSiblings orders names lexicographically, then stable-sorts them by
// StripDigitsKey.
func SortSiblings(names []string) {
	sort.Strings(names)
	keys := make(map[string]string, len(names))
	for _, n := range names {
		keys[n] = StripDigitsKey(n)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return keys[names[i]] < keys[names[j]]
	})
}

// CompareIndex compares two dotted indexes component-wise as integers, so
// "2.9" sorts before "2.10" and a parent before its children.
func CompareIndex(a, b string) int {
	return slices.Compare(parseIndex(a), parseIndex(b))
}

func parseIndex(index string) []int {
	parts := strings.Split(index, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i], _ = strconv.Atoi(p)
	}
	return out
}

// parentIndex drops the last component of a dotted index.
func parentIndex(index string) string {
	i := strings.LastIndexByte(index, '.')
	if i < 0 {
		return ""
	}
	return index[:i]
}
