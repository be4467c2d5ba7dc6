// Package dirtree assigns dotted hierarchical indexes ("1.2.3") to every
// entry below one or more roots and emits them as a table or CSV file.
package dirtree

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/hnoss/searchtools/internal/extensions"
	"github.com/hnoss/searchtools/internal/filelock"
	"github.com/hnoss/searchtools/internal/logger"
	"github.com/hnoss/searchtools/internal/types"
)

// FolderType is the type of entries without an extension.
const FolderType = "Folder"

// Header is the CSV column order.
var Header = []string{"fileIndex", "fileName", "path", "type"}

// ErrDirectoryNotFound is returned when a root does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")

// Indexer builds directory tree tables.
type Indexer struct {
	log logger.Logger
}

// New creates an Indexer. A nil logger discards output.
func New(log logger.Logger) *Indexer {
	return &Indexer{log: logger.OrNop(log)}
}

// EntryType classifies a name: FolderType without an extension, otherwise
// the lowercased extension without its dot.
func EntryType(name string) string {
	ext := extensions.Ext(name)
	if ext == "" {
		return FolderType
	}
	return strings.ToLower(ext[1:])
}

// Run indexes every root in params.Dirs. Root i gets index StartIndex+i.
// Without an OutFile the rows of all roots are returned together; with one,
// each root is written as soon as it is indexed, the first root truncating
// the file and writing the header.
func (ix *Indexer) Run(ctx context.Context, params types.TreeParams) (types.TreeResult, error) {
	result := types.TreeResult{OutFile: params.OutFile}

	for i, root := range params.Dirs {
		ix.log.LogInfo(root)
		rows, err := ix.Index(ctx, root, params.StartIndex+i)
		if err != nil {
			return types.TreeResult{}, err
		}
		result.Roots++
		result.Entries += len(rows)

		if params.OutFile == "" {
			result.Rows = append(result.Rows, rows...)
			continue
		}
		if err := WriteCSV(params.OutFile, rows, i > 0); err != nil {
			return types.TreeResult{}, err
		}
	}

	return result, nil
}

type frame struct {
	dir   string
	index string
}

type entry struct {
	index string
	name  string
}

// Index builds the rows for one root, sorted by CompareIndex.
func (ix *Indexer) Index(ctx context.Context, root string, index int) ([]types.TreeRow, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
		}
		return nil, fmt.Errorf("failed to access directory: %s - %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, root)
	}

	rootIndex := strconv.Itoa(index)
	entries := []entry{{index: rootIndex, name: filepath.Base(root)}}
	stack := []frame{{dir: root, index: rootIndex}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := os.ReadDir(f.dir)
		if err != nil {
			if f.dir == root {
				return nil, fmt.Errorf("failed to read directory: %s - %w", root, err)
			}
			ix.log.LogWarn(fmt.Sprintf("skipping %s: %v", f.dir, err))
			continue
		}

		var dirs, files []string
		for _, c := range children {
			if c.IsDir() {
				dirs = append(dirs, c.Name())
			} else {
				files = append(files, c.Name())
			}
		}
		SortSiblings(dirs)
		SortSiblings(files)

		pos := 0
		for _, name := range dirs {
			pos++
			idx := f.index + "." + strconv.Itoa(pos)
			entries = append(entries, entry{index: idx, name: name})
			stack = append(stack, frame{dir: filepath.Join(f.dir, name), index: idx})
		}
		for _, name := range files {
			pos++
			entries = append(entries, entry{index: f.index + "." + strconv.Itoa(pos), name: name})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return CompareIndex(entries[i].index, entries[j].index) < 0
	})

	return resolve(root, entries)
}

// resolve fills in paths from each row's parent. entries must be sorted so
// that every parent precedes its children.
func resolve(root string, entries []entry) ([]types.TreeRow, error) {
	paths := make(map[string]string, len(entries))
	rows := make([]types.TreeRow, 0, len(entries))

	for i, e := range entries {
		path := root
		if i > 0 {
			parent, ok := paths[parentIndex(e.index)]
			if !ok {
				return nil, fmt.Errorf("no parent row for index %s", e.index)
			}
			path = filepath.Join(parent, e.name)
		}
		paths[e.index] = path
		rows = append(rows, types.TreeRow{
			Index: e.index,
			Name:  e.name,
			Path:  path,
			Type:  EntryType(e.name),
		})
	}
	return rows, nil
}

// WriteCSV writes rows to path. With appendRows the rows are added to the
// end of the file without a header; otherwise the file is truncated and the
// header written first.
func WriteCSV(path string, rows []types.TreeRow, appendRows bool) error {
	return filelock.WithLock(path, func() error {
		flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendRows {
			flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %s - %w", path, err)
		}

		w := csv.NewWriter(f)
		if !appendRows {
			w.Write(Header)
		}
		for _, r := range rows {
			w.Write([]string{r.Index, r.Name, r.Path, r.Type})
		}
		w.Flush()

		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("failed to write output file: %s - %w", path, err)
		}
		return f.Close()
	})
}

// ReadCSV loads a tree CSV written by WriteCSV.
func ReadCSV(path string) ([]types.TreeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tree file: %s - %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse tree file: %s - %w", path, err)
	}

	var rows []types.TreeRow
	for i, rec := range records {
		if i == 0 && slices.Equal(rec, Header) {
			continue
		}
		if len(rec) != len(Header) {
			return nil, fmt.Errorf("tree file %s line %d: expected %d columns, got %d", path, i+1, len(Header), len(rec))
		}
		rows = append(rows, types.TreeRow{Index: rec[0], Name: rec[1], Path: rec[2], Type: rec[3]})
	}
	return rows, nil
}

