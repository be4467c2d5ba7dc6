package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hnoss/searchtools/internal/dirtree"
	"github.com/hnoss/searchtools/internal/filesystem"
	"github.com/hnoss/searchtools/internal/flatdb"
	"github.com/hnoss/searchtools/internal/locate"
	"github.com/hnoss/searchtools/internal/pathfilter"
	"github.com/hnoss/searchtools/internal/progress"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var (
	fileSystem *filesystem.Service
	flatDB     *flatdb.Service
	indexer    *dirtree.Indexer
	locator    *locate.Locator
)

func newServeCmd() *cobra.Command {
	var ignore []string

	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Run an MCP server over stdio",
		Long: `serve exposes the search and directory tools to MCP clients over
stdio. Every path a client passes is resolved inside [root] (default:
the current directory); paths escaping it are rejected.`,
		Example: `searchtools serve ~/data`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, args, ignore)
		},
	}
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "names or globs hidden from directory listings")
	return cmd
}

func runServer(cmd *cobra.Command, args []string, ignore []string) error {
	var rootPath string
	if len(args) > 0 {
		rootPath = args[0]
	} else {
		var err error
		rootPath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	// stdout carries the protocol; progress lines would corrupt it.
	if asyncReporter != nil {
		asyncReporter.Close()
		asyncReporter = nil
	}
	reporter = progress.Discard

	pf := pathfilter.New(&types.PathFilterConfig{IgnoredPatterns: ignore})
	fileSystem = filesystem.New(rootPath, pf, log)
	flatDB = newFlatDB()
	indexer = dirtree.New(log)
	locator = newLocator()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "searchtools",
		Version: version,
	}, nil)

	registerTools(server)

	log.LogInfo(fmt.Sprintf("Serving %s over stdio", fileSystem.RootPath()))
	if !pf.Empty() {
		log.LogInfo(fmt.Sprintf("Hiding entries matching %s", strings.Join(pf.Patterns(), ", ")))
	}
	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}

	return nil
}
