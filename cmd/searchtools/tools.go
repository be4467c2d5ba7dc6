package main

import (
	"github.com/hnoss/searchtools/internal/strmatch"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultResultLimit = 1000

type (
	// BuildInput contains parameters for building a flat-file database.
	BuildInput struct {
		Dir         string   `json:"dir" jsonschema:"Directory to scan, relative to the server root"`
		Extension   string   `json:"extension,omitempty" jsonschema:"File name suffix to match, e.g. .bam"`
		Regex       string   `json:"regex,omitempty" jsonschema:"Regex matched at the start of file names; overrides extension"`
		OutFile     string   `json:"outFile,omitempty" jsonschema:"Write the database here instead of returning paths (.gz compresses)"`
		MaxFiles    int      `json:"maxFiles,omitempty" jsonschema:"Stop after this many matches"`
		ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"Directory names or globs to exclude (only with prune=true)"`
		Prune       bool     `json:"prune,omitempty" jsonschema:"Prune excluded directories from the walk (default: false)"`
		Limit       int      `json:"limit,omitempty" jsonschema:"Maximum paths returned (default: 1000)"`
	}

	// BuildOutput contains the result of a build.
	BuildOutput struct {
		Paths     []string `json:"paths,omitempty"`
		OutFile   string   `json:"outFile,omitempty"`
		Scanned   int      `json:"scanned"`
		Found     int      `json:"found"`
		Truncated bool     `json:"truncated,omitempty"`
	}

	// SearchInput contains parameters for searching a flat-file database.
	SearchInput struct {
		DBFile        string   `json:"dbFile" jsonschema:"Database file, relative to the server root"`
		SearchTerms   []string `json:"searchTerms,omitempty" jsonschema:"Every term must appear in a line"`
		IncludeTerms  []string `json:"includeTerms,omitempty" jsonschema:"At least one term must appear in a line"`
		ExcludeTerms  []string `json:"excludeTerms,omitempty" jsonschema:"No term may appear in a line"`
		CaseSensitive bool     `json:"caseSensitive,omitempty" jsonschema:"Case sensitive matching (default: false)"`
		OutFile       string   `json:"outFile,omitempty" jsonschema:"Write matching lines here instead of returning them"`
		Limit         int      `json:"limit,omitempty" jsonschema:"Maximum lines returned (default: 1000)"`
	}

	// SearchOutput contains search results.
	SearchOutput struct {
		Lines     []string `json:"lines,omitempty"`
		OutFile   string   `json:"outFile,omitempty"`
		Scanned   int      `json:"scanned"`
		Found     int      `json:"found"`
		Truncated bool     `json:"truncated,omitempty"`
	}

	// ExpandInput contains parameters for expanding zip archives in a database.
	ExpandInput struct {
		DBFile  string `json:"dbFile" jsonschema:"Database file, relative to the server root"`
		OutFile string `json:"outFile,omitempty" jsonschema:"Write the expanded database here instead of returning lines"`
		Limit   int    `json:"limit,omitempty" jsonschema:"Maximum lines returned (default: 1000)"`
	}

	// ExpandOutput contains the expanded database.
	ExpandOutput struct {
		Lines     []string `json:"lines,omitempty"`
		OutFile   string   `json:"outFile,omitempty"`
		Archives  int      `json:"archives"`
		Members   int      `json:"members"`
		Skipped   []string `json:"skipped,omitempty"`
		Truncated bool     `json:"truncated,omitempty"`
	}

	// TreeInput contains parameters for indexing directory trees.
	TreeInput struct {
		Dirs       []string `json:"dirs" jsonschema:"Root directories, relative to the server root"`
		OutFile    string   `json:"outFile,omitempty" jsonschema:"Write CSV here instead of returning rows"`
		StartIndex int      `json:"startIndex,omitempty" jsonschema:"Index of the first root (default: 1)"`
		Limit      int      `json:"limit,omitempty" jsonschema:"Maximum rows returned (default: 1000)"`
	}

	// TreeOutput contains indexed tree rows.
	TreeOutput struct {
		Rows      []types.TreeRow `json:"rows,omitempty"`
		OutFile   string          `json:"outFile,omitempty"`
		Entries   int             `json:"entries"`
		Truncated bool            `json:"truncated,omitempty"`
	}

	// SubdirsInput contains parameters for listing subdirectories.
	SubdirsInput struct {
		Dirs            []string `json:"dirs" jsonschema:"Parent directories, relative to the server root"`
		IncludeFiles    bool     `json:"includeFiles,omitempty" jsonschema:"Include files as well as directories"`
		CollapseOrphans bool     `json:"collapseOrphans,omitempty" jsonschema:"Follow directories containing a single directory"`
	}

	// SubdirsOutput contains subdirectory paths relative to the server root.
	SubdirsOutput struct {
		Paths []string `json:"paths"`
	}

	// ExtensionsInput contains parameters for extension discovery.
	ExtensionsInput struct {
		Dir     string `json:"dir" jsonschema:"Directory to scan, relative to the server root"`
		MaxIdle int    `json:"maxIdle,omitempty" jsonschema:"Stop after this many files without a new extension"`
	}

	// ExtensionsOutput lists discovered extensions; "" means no extension.
	ExtensionsOutput struct {
		Extensions []string `json:"extensions"`
	}

	// MatchInput contains parameters for regex matching.
	MatchInput struct {
		Pattern       string   `json:"pattern" jsonschema:"Regular expression (RE2 syntax)"`
		Inputs        []string `json:"inputs" jsonschema:"Strings to test"`
		Extract       bool     `json:"extract,omitempty" jsonschema:"Return the matched text instead of the whole input"`
		KeepUnmatched bool     `json:"keepUnmatched,omitempty" jsonschema:"Return an entry for every input, matched or not"`
	}

	// MatchOutput contains match results.
	MatchOutput struct {
		Results []strmatch.Result `json:"results"`
	}

	// LocateInput contains parameters for a locate lookup.
	LocateInput struct {
		File     string `json:"file" jsonschema:"File name or pattern passed to locate"`
		Database string `json:"database" jsonschema:"Locate database, relative to the server root"`
	}

	// LocateOutput contains located paths.
	LocateOutput struct {
		Paths []string `json:"paths"`
		Found bool     `json:"found"`
	}

	// SuctionInput contains parameters for flattening a directory.
	SuctionInput struct {
		Dir            string   `json:"dir" jsonschema:"Directory to flatten, relative to the server root"`
		ExcludeDirs    []string `json:"excludeDirs,omitempty" jsonschema:"Directory names or globs to leave untouched"`
		DeleteExcluded bool     `json:"deleteExcluded,omitempty" jsonschema:"Remove excluded top-level directories after moving"`
		DryRun         bool     `json:"dryRun,omitempty" jsonschema:"Report the plan without changing anything"`
		Confirm        string   `json:"confirm,omitempty" jsonschema:"Must be set to 'yes' unless dryRun is true"`
	}
)

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_db",
		Description: "Build a flat-file database: walk a directory and collect paths of files matching an extension or a start-anchored regex. Returns paths or writes them to outFile.",
	}, handleBuild)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_db",
		Description: "Filter a flat-file database line by line: all searchTerms, at least one includeTerm, no excludeTerm. Plain substring matching, case-insensitive by default.",
	}, handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "expand_zips",
		Description: "Copy a flat-file database, adding an <archive>/<member> line for every file inside each listed .zip archive. The source database is not modified.",
	}, handleExpand)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dir_tree",
		Description: "Index directory trees with dotted hierarchical indexes (1, 1.1, 1.1.1). Subdirectories are numbered before files. Returns fileIndex/fileName/path/type rows or writes CSV.",
	}, handleTree)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_subdirs",
		Description: "List the immediate subdirectories of one or more directories in natural order, optionally collapsing single-child directory chains.",
	}, handleSubdirs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extensions",
		Description: "List the distinct file extensions found under a directory.",
	}, handleExtensions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "match",
		Description: "Apply a regular expression to a list of strings, returning matching inputs or the matched text.",
	}, handleMatch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "locate",
		Description: "Look up a file in an mlocate database with the locate tool.",
	}, handleLocate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suction",
		Description: "Flatten a directory: move every nested file into it and remove its subdirectories. Destructive; requires confirm='yes' unless dryRun=true.",
	}, handleSuction)
}
