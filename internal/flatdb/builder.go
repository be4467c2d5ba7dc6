// Package flatdb builds and searches flat-file path databases: plain
// newline-delimited lists of file paths scanned linearly.
package flatdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hnoss/searchtools/internal/filelock"
	"github.com/hnoss/searchtools/internal/logger"
	"github.com/hnoss/searchtools/internal/pathfilter"
	"github.com/hnoss/searchtools/internal/progress"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/skarademir/naturalsort"
)

// DefaultMaxFiles is the match cap used when BuildParams.MaxFiles is zero.
const DefaultMaxFiles = 100000000

var (
	// ErrDirectoryNotFound is returned when the build root does not exist.
	ErrDirectoryNotFound = errors.New("directory not found")
	// ErrFileNotFound is returned when the database to search does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrSameFile is returned when an output path names the source database.
	ErrSameFile = errors.New("output file is the source database")
)

// Service builds and searches flat-file databases.
type Service struct {
	log           logger.Logger
	reporter      progress.Reporter
	progressEvery int
}

// New creates a new Service. A nil logger or reporter discards output.
func New(log logger.Logger, reporter progress.Reporter) *Service {
	if reporter == nil {
		reporter = progress.Discard
	}
	return &Service{
		log:           logger.OrNop(log),
		reporter:      reporter,
		progressEvery: progress.DefaultEvery,
	}
}

// SetProgressEvery sets how many entries pass between progress events.
func (s *Service) SetProgressEvery(n int) {
	if n > 0 {
		s.progressEvery = n
	}
}

// nameMatcher builds the file name filter. A regex must match at the start
// of the name; an extension is a plain suffix test.
func nameMatcher(regex, extension string) (func(string) bool, error) {
	if regex != "" {
		re, err := regexp.Compile("^(?:" + regex + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.MatchString, nil
	}
	return func(name string) bool {
		return strings.HasSuffix(name, extension)
	}, nil
}

// Build walks params.Dir and records every file whose name passes the filter.
func (s *Service) Build(ctx context.Context, params types.BuildParams) (types.BuildResult, error) {
	dir := params.Dir
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.BuildResult{}, fmt.Errorf("%w: %s. Cannot generate database", ErrDirectoryNotFound, dir)
		}
		return types.BuildResult{}, fmt.Errorf("failed to access directory: %s - %w", dir, err)
	}
	if !info.IsDir() {
		return types.BuildResult{}, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	match, err := nameMatcher(params.Regex, params.Extension)
	if err != nil {
		return types.BuildResult{}, err
	}

	maxFiles := params.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	var prune *pathfilter.PathFilter
	if params.PruneExcluded && len(params.ExcludeDirs) > 0 {
		prune = pathfilter.FromNames(params.ExcludeDirs)
	}

	tracker := progress.NewTracker("build", s.reporter, s.progressEvery)
	s.log.LogInfo(fmt.Sprintf("Populating database from %s (run %s)", dir, tracker.RunID()))

	var paths []string
	emit := func(p string) error {
		paths = append(paths, p)
		return nil
	}

	run := func() error {
		return walkFiles(ctx, dir, prune, s.log, func(path, name string) (bool, error) {
			if tracker.Found() >= maxFiles {
				return true, nil
			}
			matched := match(name)
			if matched {
				if err := emit(path); err != nil {
					return true, err
				}
			}
			tracker.Tick(matched)
			return false, nil
		})
	}

	if params.OutFile != "" {
		err = filelock.WithLock(params.OutFile, func() error {
			out, err := createOutput(params.OutFile)
			if err != nil {
				return err
			}
			emit = func(p string) error {
				_, err := out.WriteString(p + "\n")
				return err
			}
			walkErr := run()
			if closeErr := out.Close(); walkErr == nil && closeErr != nil {
				walkErr = fmt.Errorf("failed to write output file: %s - %w", params.OutFile, closeErr)
			}
			return walkErr
		})
	} else {
		err = run()
	}

	final := tracker.Finish()
	if err != nil {
		return types.BuildResult{}, err
	}

	s.log.LogInfo(fmt.Sprintf("Parsed %d files and found %d files (%.2fs)", final.Scanned, final.Found, final.Elapsed.Seconds()))

	return types.BuildResult{
		Paths:   paths,
		OutFile: params.OutFile,
		Scanned: final.Scanned,
		Found:   final.Found,
		Elapsed: final.Elapsed,
	}, nil
}

type walkFrame struct {
	path string
	rel  string
}

// walkFiles visits files depth-first, pre-order. Within a directory files
// come first in natural order; subdirectories are then visited in reverse
// lexicographic order. visit returns stop=true to end the walk early.
// Unreadable subdirectories are logged and skipped.
func walkFiles(ctx context.Context, root string, prune *pathfilter.PathFilter, log logger.Logger, visit func(path, name string) (bool, error)) error {
	stack := []walkFrame{{path: root}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(frame.path)
		if err != nil {
			if frame.rel == "" {
				return fmt.Errorf("failed to read directory: %s - %w", frame.path, err)
			}
			log.LogWarn(fmt.Sprintf("skipping %s: %v", frame.path, err))
			continue
		}

		var files, dirs []string
		for _, entry := range entries {
			switch entryKind(frame.path, entry) {
			case kindDir:
				dirs = append(dirs, entry.Name())
			case kindFile:
				files = append(files, entry.Name())
			}
		}

		sort.Sort(naturalsort.NaturalSort(files))
		for _, name := range files {
			stop, err := visit(filepath.Join(frame.path, name), name)
			if err != nil || stop {
				return err
			}
		}

		sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
		for i := len(dirs) - 1; i >= 0; i-- {
			rel := dirs[i]
			if frame.rel != "" {
				rel = frame.rel + "/" + dirs[i]
			}
			if prune != nil && prune.IsExcluded(rel) {
				continue
			}
			stack = append(stack, walkFrame{path: filepath.Join(frame.path, dirs[i]), rel: rel})
		}
	}

	return nil
}

type kind int

const (
	kindFile kind = iota
	kindDir
	kindLinkedDir
)

// entryKind classifies an entry. Symlinks to directories are neither
// descended into nor reported as files.
func entryKind(parent string, entry fs.DirEntry) kind {
	if entry.IsDir() {
		return kindDir
	}
	if entry.Type()&fs.ModeSymlink != 0 {
		if info, err := os.Stat(filepath.Join(parent, entry.Name())); err == nil && info.IsDir() {
			return kindLinkedDir
		}
	}
	return kindFile
}
