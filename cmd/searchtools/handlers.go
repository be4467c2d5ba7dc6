package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hnoss/searchtools/internal/extensions"
	"github.com/hnoss/searchtools/internal/locate"
	"github.com/hnoss/searchtools/internal/strmatch"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// resolveOptional resolves path inside the root, keeping "" as "".
func resolveOptional(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	return fileSystem.ResolvePath(path)
}

func resolveAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		full, err := fileSystem.ResolvePath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, full)
	}
	return out, nil
}

func resultLimit(limit int) int {
	if limit <= 0 {
		return defaultResultLimit
	}
	return limit
}

func truncate[T any](items []T, limit int) ([]T, bool) {
	limit = resultLimit(limit)
	if len(items) > limit {
		return items[:limit], true
	}
	return items, false
}

func handleBuild(ctx context.Context, req *mcp.CallToolRequest, input BuildInput) (*mcp.CallToolResult, BuildOutput, error) {
	if input.Extension == "" && input.Regex == "" {
		return &mcp.CallToolResult{IsError: true}, BuildOutput{}, fmt.Errorf("one of extension or regex is required")
	}

	dir, err := fileSystem.ResolvePath(input.Dir)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, BuildOutput{}, err
	}
	outFile, err := resolveOptional(input.OutFile)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, BuildOutput{}, err
	}

	maxFiles := input.MaxFiles
	if maxFiles <= 0 {
		maxFiles = cfg.FlatDB.MaxFiles
	}

	result, err := flatDB.Build(ctx, types.BuildParams{
		Dir:           dir,
		Regex:         input.Regex,
		Extension:     input.Extension,
		OutFile:       outFile,
		MaxFiles:      maxFiles,
		ExcludeDirs:   input.ExcludeDirs,
		PruneExcluded: input.Prune || cfg.FlatDB.PruneExcluded,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, BuildOutput{}, err
	}

	paths, truncated := truncate(result.Paths, input.Limit)
	return nil, BuildOutput{
		Paths:     paths,
		OutFile:   result.OutFile,
		Scanned:   result.Scanned,
		Found:     result.Found,
		Truncated: truncated,
	}, nil
}

func handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	dbFile, err := fileSystem.ResolvePath(input.DBFile)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{}, err
	}
	outFile, err := resolveOptional(input.OutFile)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{}, err
	}

	result, err := flatDB.Search(ctx, types.SearchParams{
		DBFile:        dbFile,
		OutFile:       outFile,
		SearchTerms:   input.SearchTerms,
		IncludeTerms:  input.IncludeTerms,
		ExcludeTerms:  input.ExcludeTerms,
		CaseSensitive: input.CaseSensitive || cfg.FlatDB.CaseSensitive,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{}, err
	}

	lines, truncated := truncate(result.Lines, input.Limit)
	return nil, SearchOutput{
		Lines:     lines,
		OutFile:   result.OutFile,
		Scanned:   result.Scanned,
		Found:     result.Found,
		Truncated: truncated,
	}, nil
}

func handleExpand(ctx context.Context, req *mcp.CallToolRequest, input ExpandInput) (*mcp.CallToolResult, ExpandOutput, error) {
	dbFile, err := fileSystem.ResolvePath(input.DBFile)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ExpandOutput{}, err
	}
	outFile, err := resolveOptional(input.OutFile)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ExpandOutput{}, err
	}

	result, err := flatDB.ExpandZips(ctx, types.ExpandParams{DBFile: dbFile, OutFile: outFile})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ExpandOutput{}, err
	}

	lines, truncated := truncate(result.Lines, input.Limit)
	return nil, ExpandOutput{
		Lines:     lines,
		OutFile:   result.OutFile,
		Archives:  result.Archives,
		Members:   result.Members,
		Skipped:   result.Skipped,
		Truncated: truncated,
	}, nil
}

func handleTree(ctx context.Context, req *mcp.CallToolRequest, input TreeInput) (*mcp.CallToolResult, TreeOutput, error) {
	if len(input.Dirs) == 0 {
		return &mcp.CallToolResult{IsError: true}, TreeOutput{}, fmt.Errorf("at least one directory is required")
	}
	dirs, err := resolveAll(input.Dirs)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, TreeOutput{}, err
	}
	outFile, err := resolveOptional(input.OutFile)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, TreeOutput{}, err
	}

	start := input.StartIndex
	if start == 0 {
		start = 1
	}

	result, err := indexer.Run(ctx, types.TreeParams{Dirs: dirs, OutFile: outFile, StartIndex: start})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, TreeOutput{}, err
	}

	rows, truncated := truncate(result.Rows, input.Limit)
	return nil, TreeOutput{
		Rows:      rows,
		OutFile:   result.OutFile,
		Entries:   result.Entries,
		Truncated: truncated,
	}, nil
}

func handleSubdirs(ctx context.Context, req *mcp.CallToolRequest, input SubdirsInput) (*mcp.CallToolResult, SubdirsOutput, error) {
	dirs := input.Dirs
	if len(dirs) == 0 {
		dirs = []string{""}
	}
	resolved, err := resolveAll(dirs)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SubdirsOutput{}, err
	}

	paths, err := fileSystem.ListSubDirs(types.SubDirParams{
		Dirs:            resolved,
		Absolute:        true,
		IncludeFiles:    input.IncludeFiles,
		CollapseOrphans: input.CollapseOrphans,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SubdirsOutput{}, err
	}

	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(fileSystem.RootPath(), p)
		if err != nil {
			r = p
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return nil, SubdirsOutput{Paths: rel}, nil
}

func handleExtensions(ctx context.Context, req *mcp.CallToolRequest, input ExtensionsInput) (*mcp.CallToolResult, ExtensionsOutput, error) {
	dir, err := fileSystem.ResolvePath(input.Dir)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ExtensionsOutput{}, err
	}

	maxIdle := input.MaxIdle
	if maxIdle <= 0 {
		maxIdle = cfg.ExtensionMaxIdle
	}

	exts, err := extensions.Discover(ctx, dir, maxIdle, log)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ExtensionsOutput{}, err
	}
	if exts == nil {
		exts = []string{}
	}
	return nil, ExtensionsOutput{Extensions: exts}, nil
}

func handleMatch(ctx context.Context, req *mcp.CallToolRequest, input MatchInput) (*mcp.CallToolResult, MatchOutput, error) {
	apply := strmatch.SearchAll
	if input.Extract {
		apply = strmatch.ExtractAll
	}

	results, err := apply(input.Pattern, input.Inputs, !input.KeepUnmatched)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, MatchOutput{}, err
	}
	if results == nil {
		results = []strmatch.Result{}
	}
	return nil, MatchOutput{Results: results}, nil
}

func handleLocate(ctx context.Context, req *mcp.CallToolRequest, input LocateInput) (*mcp.CallToolResult, LocateOutput, error) {
	db, err := fileSystem.ResolvePath(input.Database)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LocateOutput{}, err
	}

	paths, err := locator.Lookup(ctx, input.File, db)
	if errors.Is(err, locate.ErrNotFound) {
		return nil, LocateOutput{Paths: []string{}, Found: false}, nil
	}
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LocateOutput{}, err
	}
	return nil, LocateOutput{Paths: paths, Found: true}, nil
}

func handleSuction(ctx context.Context, req *mcp.CallToolRequest, input SuctionInput) (*mcp.CallToolResult, types.SuctionResult, error) {
	if !input.DryRun && input.Confirm != "yes" {
		return &mcp.CallToolResult{IsError: true}, types.SuctionResult{},
			fmt.Errorf("suction not confirmed: set confirm='yes' to proceed or dryRun=true to preview")
	}

	dir, err := fileSystem.ResolvePath(input.Dir)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, types.SuctionResult{}, err
	}
	if dir == fileSystem.RootPath() {
		return &mcp.CallToolResult{IsError: true}, types.SuctionResult{},
			fmt.Errorf("refusing to flatten the server root; pass a subdirectory")
	}

	result, err := fileSystem.Suction(types.SuctionParams{
		Dir:            dir,
		ExcludeDirs:    input.ExcludeDirs,
		DeleteExcluded: input.DeleteExcluded,
		DryRun:         input.DryRun,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, types.SuctionResult{}, err
	}
	return nil, result, nil
}
