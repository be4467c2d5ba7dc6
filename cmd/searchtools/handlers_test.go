package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hnoss/searchtools/internal/config"
	"github.com/hnoss/searchtools/internal/dirtree"
	"github.com/hnoss/searchtools/internal/filesystem"
	"github.com/hnoss/searchtools/internal/flatdb"
	"github.com/hnoss/searchtools/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveRoot points the tool globals at a fresh temp directory.
func serveRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	cfg = config.DefaultConfig()
	log = logger.NewConsoleLogger(io.Discard, "error")
	fileSystem = filesystem.New(root, nil, log)
	flatDB = flatdb.New(log, nil)
	indexer = dirtree.New(log)
	return root
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestHandleBuild(t *testing.T) {
	root := serveRoot(t)
	for _, name := range []string{"a.bam", "b.bam", "c.txt", "sub/d.bam"} {
		touch(t, filepath.Join(root, "data", name))
	}

	t.Run("requires a filter", func(t *testing.T) {
		res, _, err := handleBuild(context.Background(), nil, BuildInput{Dir: "data"})
		require.Error(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		res, _, err := handleBuild(context.Background(), nil, BuildInput{Dir: "../..", Extension: ".bam"})
		require.Error(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("truncates to limit", func(t *testing.T) {
		_, out, err := handleBuild(context.Background(), nil, BuildInput{Dir: "data", Extension: ".bam", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, out.Found)
		assert.Len(t, out.Paths, 2)
		assert.True(t, out.Truncated)
	})

	t.Run("writes database then searches it", func(t *testing.T) {
		_, out, err := handleBuild(context.Background(), nil, BuildInput{Dir: "data", Extension: ".bam", OutFile: "bams.txt"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "bams.txt"), out.OutFile)
		assert.Empty(t, out.Paths)

		_, found, err := handleSearch(context.Background(), nil, SearchInput{DBFile: "bams.txt", SearchTerms: []string{"SUB"}})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "data", "sub", "d.bam")}, found.Lines)
	})
}

func TestHandleSearchSameOutput(t *testing.T) {
	root := serveRoot(t)
	db := filepath.Join(root, "db.txt")
	require.NoError(t, os.WriteFile(db, []byte("/data/a.bam\n"), 0o644))

	res, _, err := handleSearch(context.Background(), nil, SearchInput{DBFile: "db.txt", OutFile: "./db.txt"})
	require.ErrorIs(t, err, flatdb.ErrSameFile)
	assert.True(t, res.IsError)

	data, err := os.ReadFile(db)
	require.NoError(t, err)
	assert.Equal(t, "/data/a.bam\n", string(data))
}

func TestHandleExpand(t *testing.T) {
	root := serveRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "db.txt"), []byte("/data/a.bam\n/data/b.bam\n"), 0o644))

	_, out, err := handleExpand(context.Background(), nil, ExpandInput{DBFile: "db.txt", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/a.bam"}, out.Lines)
	assert.True(t, out.Truncated)
	assert.Zero(t, out.Archives)
}

func TestHandleTree(t *testing.T) {
	root := serveRoot(t)
	touch(t, filepath.Join(root, "x", "y.txt"))

	_, out, err := handleTree(context.Background(), nil, TreeInput{Dirs: []string{"x"}})
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "1", out.Rows[0].Index)
	assert.Equal(t, "1.1", out.Rows[1].Index)
	assert.Equal(t, "txt", out.Rows[1].Type)

	res, _, err := handleTree(context.Background(), nil, TreeInput{})
	require.Error(t, err)
	assert.True(t, res.IsError)
}

func TestHandleSubdirs(t *testing.T) {
	root := serveRoot(t)
	touch(t, filepath.Join(root, "runs", "run10", "a.txt"))
	touch(t, filepath.Join(root, "runs", "run2", "a.txt"))
	touch(t, filepath.Join(root, "runs", "solo", "only", "a.txt"))

	_, out, err := handleSubdirs(context.Background(), nil, SubdirsInput{Dirs: []string{"runs"}, CollapseOrphans: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/run2", "runs/run10", "runs/solo/only"}, out.Paths)
}

func TestHandleMatch(t *testing.T) {
	serveRoot(t)

	_, out, err := handleMatch(context.Background(), nil, MatchInput{
		Pattern: `S\d+`,
		Inputs:  []string{"run_S12.bam", "none.bam"},
		Extract: true,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "S12", out.Results[0].Value)

	res, _, err := handleMatch(context.Background(), nil, MatchInput{Pattern: "(", Inputs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, res.IsError)
}

func TestHandleSuction(t *testing.T) {
	root := serveRoot(t)
	touch(t, filepath.Join(root, "flat", "nested", "a.txt"))

	t.Run("requires confirmation", func(t *testing.T) {
		res, _, err := handleSuction(context.Background(), nil, SuctionInput{Dir: "flat"})
		require.Error(t, err)
		assert.True(t, res.IsError)
		assert.FileExists(t, filepath.Join(root, "flat", "nested", "a.txt"))
	})

	t.Run("refuses the root", func(t *testing.T) {
		res, _, err := handleSuction(context.Background(), nil, SuctionInput{Dir: "", Confirm: "yes"})
		require.Error(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("dry run leaves the tree", func(t *testing.T) {
		_, out, err := handleSuction(context.Background(), nil, SuctionInput{Dir: "flat", DryRun: true})
		require.NoError(t, err)
		assert.True(t, out.DryRun)
		assert.Len(t, out.Moved, 1)
		assert.FileExists(t, filepath.Join(root, "flat", "nested", "a.txt"))
	})

	t.Run("confirmed", func(t *testing.T) {
		_, out, err := handleSuction(context.Background(), nil, SuctionInput{Dir: "flat", Confirm: "yes"})
		require.NoError(t, err)
		assert.Len(t, out.Moved, 1)
		assert.FileExists(t, filepath.Join(root, "flat", "a.txt"))
		assert.NoDirExists(t, filepath.Join(root, "flat", "nested"))
	})
}

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"build", "search", "expand", "tree", "suction", "subdirs", "exts", "match", "extract", "locate", "freyja", "serve", "config"} {
		assert.Contains(t, names, want)
	}
}
