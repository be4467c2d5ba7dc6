package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hnoss/searchtools/internal/config"
	"github.com/hnoss/searchtools/internal/dirtree"
	"github.com/hnoss/searchtools/internal/extensions"
	"github.com/hnoss/searchtools/internal/filesystem"
	"github.com/hnoss/searchtools/internal/flatdb"
	"github.com/hnoss/searchtools/internal/locate"
	"github.com/hnoss/searchtools/internal/strmatch"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/spf13/cobra"
)

func newFlatDB() *flatdb.Service {
	svc := flatdb.New(log, reporter)
	svc.SetProgressEvery(cfg.FlatDB.ProgressEvery)
	return svc
}

func newLocator() *locate.Locator {
	return locate.New(nil, locate.Options{
		UpdatedbPath:  cfg.Locate.UpdatedbPath,
		LocatePath:    cfg.Locate.LocatePath,
		BuildTimeout:  cfg.Locate.BuildTimeout,
		LookupTimeout: cfg.Locate.LookupTimeout,
	}, log)
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func newBuildCmd() *cobra.Command {
	var (
		params types.BuildParams
		prune  bool
	)

	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Build a flat-file database of matching file paths",
		Long: `Walk <dir> and record every file whose name ends with --ext, or
matches --regex at its start. Paths are printed, or written one per
line to --out (gzip-compressed when it ends in .gz).

--exclude names are ignored unless --prune is set (or flatdb.prune_excluded
in the config).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Dir = args[0]
			if params.Regex == "" && params.Extension == "" {
				return fmt.Errorf("one of --ext or --regex is required")
			}
			if params.MaxFiles <= 0 {
				params.MaxFiles = cfg.FlatDB.MaxFiles
			}
			params.PruneExcluded = cfg.FlatDB.PruneExcluded
			if cmd.Flags().Changed("prune") {
				params.PruneExcluded = prune
			}

			result, err := newFlatDB().Build(cmd.Context(), params)
			if err != nil {
				return err
			}
			if result.OutFile == "" {
				printLines(cmd.OutOrStdout(), result.Paths)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&params.Extension, "ext", "e", "", "file name suffix to match, e.g. .bam")
	f.StringVarP(&params.Regex, "regex", "r", "", "regex matched at the start of file names (overrides --ext)")
	f.StringVarP(&params.OutFile, "out", "o", "", "output database file")
	f.IntVar(&params.MaxFiles, "max-files", 0, "stop after this many matches (default from config)")
	f.StringSliceVarP(&params.ExcludeDirs, "exclude", "x", nil, "directory names or globs to exclude")
	f.BoolVar(&prune, "prune", false, "prune excluded directories from the walk")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		params        types.SearchParams
		caseSensitive bool
	)

	cmd := &cobra.Command{
		Use:   "search <db>",
		Short: "Filter a flat-file database by substring terms",
		Long: `Keep the lines of <db> that contain every --term, at least one
--include (when given) and no --exclude. Matching is case-insensitive
unless --case-sensitive is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.DBFile = args[0]
			params.CaseSensitive = cfg.FlatDB.CaseSensitive
			if cmd.Flags().Changed("case-sensitive") {
				params.CaseSensitive = caseSensitive
			}

			result, err := newFlatDB().Search(cmd.Context(), params)
			if err != nil {
				return err
			}
			if result.OutFile == "" {
				printLines(cmd.OutOrStdout(), result.Lines)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&params.SearchTerms, "term", "t", nil, "term every line must contain (repeatable)")
	f.StringArrayVarP(&params.IncludeTerms, "include", "i", nil, "terms of which a line must contain at least one (repeatable)")
	f.StringArrayVarP(&params.ExcludeTerms, "exclude", "x", nil, "term a line must not contain (repeatable)")
	f.BoolVarP(&caseSensitive, "case-sensitive", "c", false, "match case exactly")
	f.StringVarP(&params.OutFile, "out", "o", "", "write matching lines to this file")
	return cmd
}

func newExpandCmd() *cobra.Command {
	var params types.ExpandParams

	cmd := &cobra.Command{
		Use:   "expand <db>",
		Short: "List the members of zip archives named in a database",
		Long: `Copy <db>, following every line that ends in .zip with one
"<archive>/<member>" line per file inside the archive. <db> itself is
never modified; the result is printed or written to --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.DBFile = args[0]
			result, err := newFlatDB().ExpandZips(cmd.Context(), params)
			if err != nil {
				return err
			}
			if result.OutFile == "" {
				printLines(cmd.OutOrStdout(), result.Lines)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.OutFile, "out", "o", "", "write the expanded database to this file")
	return cmd
}

func newTreeCmd() *cobra.Command {
	var params types.TreeParams

	cmd := &cobra.Command{
		Use:   "tree <dir>...",
		Short: "Index directory trees with dotted hierarchical indexes",
		Long: `Assign every entry below each <dir> an index such as 1.2.3 and emit
fileIndex,fileName,path,type rows as CSV, to stdout or --out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Dirs = args
			result, err := dirtree.New(log).Run(cmd.Context(), params)
			if err != nil {
				return err
			}
			if result.OutFile != "" {
				log.LogInfo(fmt.Sprintf("Wrote %d entries from %d roots to %s", result.Entries, result.Roots, result.OutFile))
				return nil
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			w.Write(dirtree.Header)
			for _, r := range result.Rows {
				w.Write([]string{r.Index, r.Name, r.Path, r.Type})
			}
			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().StringVarP(&params.OutFile, "out", "o", "", "output CSV file")
	cmd.Flags().IntVarP(&params.StartIndex, "start", "s", 1, "index of the first root")
	return cmd
}

func newSuctionCmd() *cobra.Command {
	var (
		params types.SuctionParams
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "suction <dir>",
		Short: "Move every nested file into <dir> and remove its subdirectories",
		Long: `Flatten <dir>: every file below it is moved into <dir> itself (name
clashes get a .~N~ suffix) and then its immediate subdirectories are
removed. Directories named by --exclude are left alone. This cannot be
undone; use --dry-run to preview.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Dir = args[0]
			if !params.DryRun && !yes {
				return fmt.Errorf("suction is destructive: pass --yes to proceed or --dry-run to preview")
			}

			result, err := filesystem.New(params.Dir, nil, log).Suction(params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "moved"
			if result.DryRun {
				verb = "would move"
			}
			for _, m := range result.Moved {
				fmt.Fprintf(out, "%s %s -> %s\n", verb, m.From, m.To)
			}
			for _, d := range result.Removed {
				if result.DryRun {
					fmt.Fprintf(out, "would remove %s\n", d)
				} else {
					fmt.Fprintf(out, "removed %s\n", d)
				}
			}
			for _, s := range result.Skipped {
				log.LogWarn(fmt.Sprintf("skipped %s", s))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&params.ExcludeDirs, "exclude", "x", nil, "directory names or globs to leave untouched")
	f.BoolVar(&params.DeleteExcluded, "delete-excluded", false, "remove excluded top-level directories after moving")
	f.BoolVarP(&params.DryRun, "dry-run", "n", false, "print the plan without changing anything")
	f.BoolVarP(&yes, "yes", "y", false, "confirm the destructive run")
	return cmd
}

func newSubdirsCmd() *cobra.Command {
	var params types.SubDirParams
	var relative bool

	cmd := &cobra.Command{
		Use:   "subdirs <dir>...",
		Short: "List the immediate subdirectories of each <dir>",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Dirs = args
			params.Absolute = !relative
			paths, err := filesystem.New(".", nil, log).ListSubDirs(params)
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), paths)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&relative, "names", false, "print base names instead of paths")
	f.BoolVarP(&params.IncludeFiles, "files", "f", false, "include files")
	f.BoolVar(&params.CollapseOrphans, "collapse", false, "follow directories that only contain one directory")
	return cmd
}

func newExtsCmd() *cobra.Command {
	var maxIdle int

	cmd := &cobra.Command{
		Use:   "exts <dir>",
		Short: "List the file extensions found under <dir>",
		Long: `Walk <dir> and print each distinct extension once. The walk stops
early after --max-idle files in a row without a new extension.
Files without an extension are reported as "(none)".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxIdle <= 0 {
				maxIdle = cfg.ExtensionMaxIdle
			}
			exts, err := extensions.Discover(cmd.Context(), args[0], maxIdle, log)
			if err != nil {
				return err
			}
			for _, ext := range exts {
				if ext == "" {
					ext = "(none)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), ext)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxIdle, "max-idle", 0, "files without a new extension before stopping (default from config)")
	return cmd
}

func newMatchCmd(extract bool) *cobra.Command {
	var keep bool
	use, short := "match", "Print the inputs that contain <pattern>"
	if extract {
		use, short = "extract", "Print the text <pattern> matches in each input"
	}

	cmd := &cobra.Command{
		Use:   use + " <pattern> [input]...",
		Short: short,
		Long: short + `. Inputs are read from stdin, one per line, when none
are given. With --keep, non-matching inputs produce an empty line.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args[1:]
			if len(inputs) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				inputs = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
			}

			apply := strmatch.SearchAll
			if extract {
				apply = strmatch.ExtractAll
			}
			results, err := apply(args[0], inputs, !keep)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r.Value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&keep, "keep", "k", false, "keep a line for inputs that do not match")
	return cmd
}

func newLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Build and query locate databases with updatedb/locate",
	}

	var exclude []string
	build := &cobra.Command{
		Use:   "build <dir> <db>",
		Short: "Index <dir> into the locate database <db>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newLocator().Build(cmd.Context(), args[0], args[1], exclude)
		},
	}
	build.Flags().StringSliceVarP(&exclude, "prune", "x", nil, "paths to prune from the index")

	find := &cobra.Command{
		Use:   "find <file> <db>",
		Short: "Look up <file> in the locate database <db>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := newLocator().Lookup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), paths)
			return nil
		},
	}

	cmd.AddCommand(build, find)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the searchtools config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
