// Package strmatch applies a regular expression to one string or a list of
// strings, either keeping whole matching strings or extracting the matched
// text.
package strmatch

import (
	"fmt"
	"regexp"
)

// Result is the outcome for one input string. Value is empty and Matched is
// false when the pattern was not found.
type Result struct {
	Value   string `json:"value"`
	Matched bool   `json:"matched"`
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return re, nil
}

// Search returns s when pattern is found anywhere in it.
func Search(pattern, s string) (Result, error) {
	re, err := compile(pattern)
	if err != nil {
		return Result{}, err
	}
	return search(re, s), nil
}

// Extract returns the leftmost text matched by pattern in s.
func Extract(pattern, s string) (Result, error) {
	re, err := compile(pattern)
	if err != nil {
		return Result{}, err
	}
	return extract(re, s), nil
}

// SearchAll applies Search to every string. With trim, non-matches are
// dropped; otherwise the result has one entry per input in order.
func SearchAll(pattern string, ss []string, trim bool) ([]Result, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	return apply(re, ss, trim, search), nil
}

// ExtractAll applies Extract to every string, trimming like SearchAll.
func ExtractAll(pattern string, ss []string, trim bool) ([]Result, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	return apply(re, ss, trim, extract), nil
}

// Values returns the values of the matched results.
func Values(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Matched {
			out = append(out, r.Value)
		}
	}
	return out
}

func search(re *regexp.Regexp, s string) Result {
	if re.MatchString(s) {
		return Result{Value: s, Matched: true}
	}
	return Result{}
}

func extract(re *regexp.Regexp, s string) Result {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return Result{}
	}
	return Result{Value: s[loc[0]:loc[1]], Matched: true}
}

func apply(re *regexp.Regexp, ss []string, trim bool, fn func(*regexp.Regexp, string) Result) []Result {
	out := make([]Result, 0, len(ss))
	for _, s := range ss {
		r := fn(re, s)
		if trim && !r.Matched {
			continue
		}
		out = append(out, r)
	}
	return out
}
