// Package pathfilter matches paths against exclude patterns.
package pathfilter

import (
	"path"
	"regexp"
	"strings"

	"github.com/hnoss/searchtools/internal/types"
)

// PathFilter decides which directories are excluded from a walk.
//
// A pattern without a slash matches the last path component only, so
// "node_modules" excludes that directory at any depth. A pattern with a
// slash matches the whole slash-separated relative path. Glob syntax:
// "**" matches anything, "*" anything but a slash, "?" one non-slash char.
type PathFilter struct {
	patterns []pattern
}

type pattern struct {
	raw      string
	re       *regexp.Regexp
	baseOnly bool
}

// New creates a new PathFilter with the given configuration.
func New(config *types.PathFilterConfig) *PathFilter {
	pf := &PathFilter{}
	if config == nil {
		return pf
	}
	for _, p := range config.IgnoredPatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		normalized := strings.TrimSuffix(strings.ReplaceAll(p, "\\", "/"), "/")
		re, err := globToRegexp(normalized)
		if err != nil {
			continue
		}
		pf.patterns = append(pf.patterns, pattern{
			raw:      p,
			re:       re,
			baseOnly: !strings.Contains(normalized, "/"),
		})
	}
	return pf
}

// FromNames builds a filter from plain exclude names.
func FromNames(names []string) *PathFilter {
	return New(&types.PathFilterConfig{IgnoredPatterns: names})
}

// globToRegexp converts a glob pattern to an anchored regex.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	// Escape all regex special chars first
	regexPattern := regexp.QuoteMeta(glob)

	// Convert glob patterns (unescape the escaped versions)
	regexPattern = strings.ReplaceAll(regexPattern, `\*\*`, ".*")
	regexPattern = strings.ReplaceAll(regexPattern, `\*`, "[^/]*")
	regexPattern = strings.ReplaceAll(regexPattern, `\?`, "[^/]")

	return regexp.Compile("^" + regexPattern + "$")
}

// Empty reports whether the filter has no patterns.
func (pf *PathFilter) Empty() bool {
	return len(pf.patterns) == 0
}

// IsExcluded checks if a root-relative path matches any exclude pattern.
func (pf *PathFilter) IsExcluded(relPath string) bool {
	normalized := strings.Trim(strings.ReplaceAll(relPath, "\\", "/"), "/")
	if normalized == "" || normalized == "." {
		return false
	}
	base := path.Base(normalized)

	for _, p := range pf.patterns {
		if p.baseOnly {
			if p.re.MatchString(base) {
				return true
			}
			continue
		}
		if p.re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// IsAllowed is the negation of IsExcluded.
func (pf *PathFilter) IsAllowed(relPath string) bool {
	return !pf.IsExcluded(relPath)
}

// FilterPaths filters a slice of paths to only include allowed ones.
func (pf *PathFilter) FilterPaths(paths []string) []string {
	var allowed []string
	for _, p := range paths {
		if pf.IsAllowed(p) {
			allowed = append(allowed, p)
		}
	}
	return allowed
}

// Patterns returns the configured patterns as given.
func (pf *PathFilter) Patterns() []string {
	out := make([]string, 0, len(pf.patterns))
	for _, p := range pf.patterns {
		out = append(out, p.raw)
	}
	return out
}
