// Package filesystem provides the directory utilities: flattening a tree
// into its root (suction) and listing subdirectories.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hnoss/searchtools/internal/logger"
	"github.com/hnoss/searchtools/internal/pathfilter"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/skarademir/naturalsort"
)

// Service provides file system operations below a root directory.
type Service struct {
	rootPath   string
	pathFilter *pathfilter.PathFilter
	log        logger.Logger
}

// New creates a new Service. pf hides matching entries from listings.
func New(rootPath string, pf *pathfilter.PathFilter, log logger.Logger) *Service {
	absPath, _ := filepath.Abs(rootPath)
	if pf == nil {
		pf = pathfilter.New(nil)
	}
	return &Service{
		rootPath:   absPath,
		pathFilter: pf,
		log:        logger.OrNop(log),
	}
}

// RootPath returns the root path.
func (s *Service) RootPath() string {
	return s.rootPath
}

// ResolvePath resolves a relative path within the root and validates it.
func (s *Service) ResolvePath(relativePath string) (string, error) {
	relativePath = strings.TrimSpace(relativePath)
	normalizedPath := strings.TrimPrefix(relativePath, "/")

	fullPath := filepath.Join(s.rootPath, normalizedPath)
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}

	// Security check: ensure path is within root
	relPath, err := filepath.Rel(s.rootPath, absPath)
	if err != nil {
		return "", err
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed: %s", relativePath)
	}

	return absPath, nil
}

func statDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("directory not found: %s", path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied: %s", path)
		}
		return fmt.Errorf("failed to access directory: %s - %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// Suction moves every file below params.Dir into params.Dir itself, then
// removes the immediate child directories. Subtrees whose name matches
// params.ExcludeDirs are neither searched nor removed, unless DeleteExcluded
// is set, in which case they are still skipped for moves but removed
// afterwards. A moved file never overwrites an existing one: it is renamed
// "name.~N~" with the lowest free N.
func (s *Service) Suction(params types.SuctionParams) (types.SuctionResult, error) {
	dir := params.Dir
	if err := statDir(dir); err != nil {
		return types.SuctionResult{}, err
	}

	exclude := pathfilter.FromNames(params.ExcludeDirs)
	result := types.SuctionResult{Dir: dir, DryRun: params.DryRun}

	top, err := os.ReadDir(dir)
	if err != nil {
		return types.SuctionResult{}, fmt.Errorf("failed to list directory: %s - %w", dir, err)
	}
	taken := make(map[string]bool, len(top))
	for _, e := range top {
		taken[e.Name()] = true
	}

	// Collect every file before moving any, so moved files are not revisited.
	var sources []string
	stack := []string{}
	for i := len(top) - 1; i >= 0; i-- {
		if top[i].IsDir() && !exclude.IsExcluded(top[i].Name()) {
			stack = append(stack, top[i].Name())
		}
	}
	for len(stack) > 0 {
		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		full := filepath.Join(dir, filepath.FromSlash(rel))
		entries, err := os.ReadDir(full)
		if err != nil {
			s.log.LogWarn(fmt.Sprintf("skipping %s: %v", full, err))
			result.Skipped = append(result.Skipped, full)
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				sources = append(sources, filepath.Join(full, e.Name()))
			}
		}
		for i := len(entries) - 1; i >= 0; i-- {
			childRel := rel + "/" + entries[i].Name()
			if entries[i].IsDir() && !exclude.IsExcluded(childRel) {
				stack = append(stack, childRel)
			}
		}
	}

	for _, src := range sources {
		name := freeName(filepath.Base(src), taken)
		dst := filepath.Join(dir, name)
		if !params.DryRun {
			if err := moveFile(src, dst); err != nil {
				s.log.LogWarn(fmt.Sprintf("failed to move %s: %v", src, err))
				result.Skipped = append(result.Skipped, src)
				continue
			}
		}
		taken[name] = true
		result.Moved = append(result.Moved, types.Move{From: src, To: dst})
	}

	for _, e := range top {
		if !e.IsDir() {
			continue
		}
		if exclude.IsExcluded(e.Name()) && !params.DeleteExcluded {
			continue
		}
		target := filepath.Join(dir, e.Name())
		if !params.DryRun {
			if err := os.RemoveAll(target); err != nil {
				s.log.LogWarn(fmt.Sprintf("failed to remove %s: %v", target, err))
				result.Skipped = append(result.Skipped, target)
				continue
			}
		}
		result.Removed = append(result.Removed, target)
	}

	s.log.LogInfo(fmt.Sprintf("Moved %d files and removed %d directories in %s", len(result.Moved), len(result.Removed), dir))
	return result, nil
}

// freeName returns name, or the first "name.~N~" not in taken.
func freeName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 1; ; n++ {
		candidate := name + ".~" + strconv.Itoa(n) + "~"
		if !taken[candidate] {
			return candidate
		}
	}
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("target file already exists: %s", dst)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || errors.Is(err, fs.ErrNotExist) {
		return err
	}

	info, statErr := os.Lstat(src)
	if statErr != nil || !info.Mode().IsRegular() {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// ListSubDirs lists the immediate subdirectories of every directory in
// params.Dirs, in input order and natural order within each directory.
func (s *Service) ListSubDirs(params types.SubDirParams) ([]string, error) {
	var out []string

	for _, dir := range params.Dirs {
		if err := statDir(dir); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list directory: %s - %w", dir, err)
		}

		var names []string
		for _, e := range entries {
			if !e.IsDir() && !params.IncludeFiles {
				continue
			}
			names = append(names, e.Name())
		}
		if !s.pathFilter.Empty() {
			names = s.pathFilter.FilterPaths(names)
		}
		sort.Sort(naturalsort.NaturalSort(names))

		for _, name := range names {
			path := filepath.Join(dir, name)
			if params.CollapseOrphans {
				path = s.collapseOrphan(path)
			}
			if params.Absolute {
				out = append(out, path)
			} else {
				out = append(out, filepath.Base(path))
			}
		}
	}

	return out, nil
}

// collapseOrphan follows a chain of directories that each hold exactly one
// entry, itself a directory, and returns the last one.
func (s *Service) collapseOrphan(path string) string {
	for {
		entries, err := os.ReadDir(path)
		if err != nil || len(entries) != 1 || !entries[0].IsDir() {
			return path
		}
		path = filepath.Join(path, entries[0].Name())
	}
}
