// Package extensions discovers which file extensions occur under a
// directory.
package extensions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hnoss/searchtools/internal/logger"
)

// DefaultMaxIdle is the number of files examined without a new extension
// after which discovery stops.
const DefaultMaxIdle = 100000

// ErrDirectoryNotFound is returned when the directory to scan does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")

// Ext returns the extension of a base name including its leading dot, or ""
// when there is none. Leading dots do not start an extension, so ".bashrc"
// has none and "archive.tar.gz" has ".gz".
func Ext(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	if strings.Trim(name[:i], ".") == "" {
		return ""
	}
	return name[i:]
}

// Discover walks dir and returns the sorted set of extensions seen, "" for
// extensionless files. The walk ends early once more than maxIdle files in a
// row have produced no new extension. maxIdle <= 0 uses DefaultMaxIdle.
func Discover(ctx context.Context, dir string, maxIdle int, log logger.Logger) ([]string, error) {
	log = logger.OrNop(log)
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("failed to access directory: %s - %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	seen := make(map[string]struct{})
	idle := 0

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.LogWarn(fmt.Sprintf("skipping %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		idle++
		ext := Ext(d.Name())
		if _, ok := seen[ext]; !ok {
			seen[ext] = struct{}{}
			idle = 0
			log.LogDebug(fmt.Sprintf("Added %q", ext))
		}
		if idle > maxIdle {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %s - %w", dir, err)
	}

	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts, nil
}
