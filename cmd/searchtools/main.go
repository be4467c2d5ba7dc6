// Package main implements the searchtools command line and MCP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/hnoss/searchtools/internal/config"
	"github.com/hnoss/searchtools/internal/logger"
	"github.com/hnoss/searchtools/internal/progress"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	log      *logger.ConsoleLogger
	reporter progress.Reporter

	asyncReporter *progress.AsyncReporter

	configPath string
	logLevel   string
	quiet      bool
)

func main() {
	cmd := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchtools",
		Short: "Flat-file path databases, directory trees and freyja helpers",
		Long: `searchtools builds and searches flat-file path databases, indexes
directory trees with dotted hierarchical indexes, flattens and lists
directories, wraps updatedb/locate, and reshapes freyja lineage output.

It can also run as a Model Context Protocol (MCP) server over stdio.`,
		Example: `searchtools build /data --ext .bam -o bams.txt
searchtools search bams.txt --term run42 --exclude tmp
searchtools tree /data -o tree.csv`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/searchtools/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress progress and informational output")

	cmd.AddCommand(
		newBuildCmd(),
		newSearchCmd(),
		newExpandCmd(),
		newTreeCmd(),
		newSuctionCmd(),
		newSubdirsCmd(),
		newExtsCmd(),
		newMatchCmd(false),
		newMatchCmd(true),
		newLocateCmd(),
		newFreyjaCmd(),
		newServeCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setup loads configuration and builds the shared logger and progress sink.
func setup(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	var err error
	cfg, err = config.LoadConfig(path)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if quiet {
		level = "warn"
	}
	log = logger.NewConsoleLogger(cmd.ErrOrStderr(), level)

	reporter = progress.Discard
	if cfg.Progress && !quiet {
		asyncReporter = progress.Async(logger.NewProgressPrinter(cmd.ErrOrStderr()), 64)
		reporter = asyncReporter
	}

	log.LogDebug(fmt.Sprintf("Loaded config from %s", path))
	return nil
}

func teardown(*cobra.Command, []string) error {
	if asyncReporter != nil {
		asyncReporter.Close()
		if n := asyncReporter.Dropped(); n > 0 {
			log.LogTrace(fmt.Sprintf("dropped %d progress events", n))
		}
	}
	return nil
}
