// Package types defines the parameter and result structures shared by the
// services, the CLI and the MCP server.
package types

import "time"

type (
	// BuildParams contains parameters for building a flat-file database.
	BuildParams struct {
		Dir string `json:"dir"`
		// Regex takes precedence over Extension when both are set.
		Regex       string   `json:"regex,omitempty"`
		Extension   string   `json:"extension,omitempty"`
		OutFile     string   `json:"outFile,omitempty"`
		MaxFiles    int      `json:"maxFiles,omitempty"`
		ExcludeDirs []string `json:"excludeDirs,omitempty"`
		// PruneExcluded makes ExcludeDirs prune the walk. When false the
		// exclude list is accepted and ignored.
		PruneExcluded bool `json:"pruneExcluded,omitempty"`
	}

	// BuildResult contains the result of a database build.
	BuildResult struct {
		Paths   []string      `json:"paths,omitempty"`
		OutFile string        `json:"outFile,omitempty"`
		Scanned int           `json:"scanned"`
		Found   int           `json:"found"`
		Elapsed time.Duration `json:"elapsed"`
	}

	// SearchParams contains parameters for searching a flat-file database.
	SearchParams struct {
		DBFile        string   `json:"dbFile"`
		OutFile       string   `json:"outFile,omitempty"`
		SearchTerms   []string `json:"searchTerms,omitempty"`
		IncludeTerms  []string `json:"includeTerms,omitempty"`
		ExcludeTerms  []string `json:"excludeTerms,omitempty"`
		CaseSensitive bool     `json:"caseSensitive,omitempty"`
	}

	// SearchResult contains the lines kept by a database search.
	SearchResult struct {
		Lines   []string      `json:"lines,omitempty"`
		OutFile string        `json:"outFile,omitempty"`
		Scanned int           `json:"scanned"`
		Found   int           `json:"found"`
		Elapsed time.Duration `json:"elapsed"`
	}
)

type (
	// ExpandParams contains parameters for expanding zip archives listed in
	// a flat-file database.
	ExpandParams struct {
		DBFile  string `json:"dbFile"`
		OutFile string `json:"outFile,omitempty"`
	}

	// ExpandResult contains the expanded database.
	ExpandResult struct {
		Lines    []string `json:"lines,omitempty"`
		OutFile  string   `json:"outFile,omitempty"`
		Archives int      `json:"archives"`
		Members  int      `json:"members"`
		Skipped  []string `json:"skipped,omitempty"`
	}
)
