package filesystem

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/hnoss/searchtools/internal/pathfilter"
	"github.com/hnoss/searchtools/internal/types"
)

func setupTestRoot(t *testing.T, rels ...string) (string, *Service) {
	t.Helper()
	tmpDir := t.TempDir()
	for _, rel := range rels {
		full := filepath.Join(tmpDir, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(full, 0o755); err != nil {
				t.Fatalf("MkdirAll: %v", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(rel), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return tmpDir, New(tmpDir, nil, nil)
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func suctionTree(t *testing.T) (string, *Service) {
	return setupTestRoot(t,
		"top.txt",
		"a/one.txt",
		"a/deep/two.txt",
		"b/one.txt",
		"b/top.txt",
		"skip/keep.txt",
		"a/skip/hidden.txt",
		"empty/",
	)
}

func TestService_Suction(t *testing.T) {
	t.Run("moves files up and removes directories", func(t *testing.T) {
		tmpDir, svc := suctionTree(t)

		result, err := svc.Suction(types.SuctionParams{Dir: tmpDir, ExcludeDirs: []string{"skip"}})
		if err != nil {
			t.Fatalf("Suction() error = %v", err)
		}

		want := []string{"one.txt", "one.txt.~1~", "skip/", "top.txt", "top.txt.~1~", "two.txt"}
		if got := listNames(t, tmpDir); !reflect.DeepEqual(got, want) {
			t.Errorf("root = %v, want %v", got, want)
		}
		if _, err := os.Stat(filepath.Join(tmpDir, "skip", "keep.txt")); err != nil {
			t.Errorf("excluded file should stay in place: %v", err)
		}
		if len(result.Moved) != 4 {
			t.Errorf("Moved = %d entries, want 4", len(result.Moved))
		}
		if len(result.Removed) != 3 {
			t.Errorf("Removed = %v, want a, b and empty", result.Removed)
		}
	})

	t.Run("collisions never overwrite", func(t *testing.T) {
		tmpDir, svc := suctionTree(t)

		if _, err := svc.Suction(types.SuctionParams{Dir: tmpDir, ExcludeDirs: []string{"skip"}}); err != nil {
			t.Fatalf("Suction() error = %v", err)
		}

		checks := map[string]string{
			"top.txt":     "top.txt",
			"top.txt.~1~": "b/top.txt",
			"one.txt":     "a/one.txt",
			"one.txt.~1~": "b/one.txt",
		}
		for name, content := range checks {
			data, err := os.ReadFile(filepath.Join(tmpDir, name))
			if err != nil {
				t.Fatalf("ReadFile(%s): %v", name, err)
			}
			if string(data) != content {
				t.Errorf("%s content = %q, want %q", name, data, content)
			}
		}
	})

	t.Run("delete excluded restores blanket removal", func(t *testing.T) {
		tmpDir, svc := suctionTree(t)

		_, err := svc.Suction(types.SuctionParams{Dir: tmpDir, ExcludeDirs: []string{"skip"}, DeleteExcluded: true})
		if err != nil {
			t.Fatalf("Suction() error = %v", err)
		}
		for _, name := range listNames(t, tmpDir) {
			if strings.HasSuffix(name, "/") {
				t.Errorf("directory %s should have been removed", name)
			}
		}
	})

	t.Run("dry run leaves the tree untouched", func(t *testing.T) {
		tmpDir, svc := suctionTree(t)
		before := listNames(t, tmpDir)

		result, err := svc.Suction(types.SuctionParams{Dir: tmpDir, ExcludeDirs: []string{"skip"}, DryRun: true})
		if err != nil {
			t.Fatalf("Suction() error = %v", err)
		}
		if got := listNames(t, tmpDir); !reflect.DeepEqual(got, before) {
			t.Errorf("root changed during dry run: %v", got)
		}
		if !result.DryRun || len(result.Moved) != 4 {
			t.Errorf("result = %+v, want 4 planned moves", result)
		}
		if got := filepath.Base(result.Moved[3].To); got != "top.txt.~1~" {
			t.Errorf("planned target = %s, want top.txt.~1~", got)
		}
	})

	t.Run("no exclusions empties every subdirectory", func(t *testing.T) {
		tmpDir, svc := suctionTree(t)

		if _, err := svc.Suction(types.SuctionParams{Dir: tmpDir}); err != nil {
			t.Fatalf("Suction() error = %v", err)
		}
		want := []string{"hidden.txt", "keep.txt", "one.txt", "one.txt.~1~", "top.txt", "top.txt.~1~", "two.txt"}
		if got := listNames(t, tmpDir); !reflect.DeepEqual(got, want) {
			t.Errorf("root = %v, want %v", got, want)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, svc := setupTestRoot(t)
		_, err := svc.Suction(types.SuctionParams{Dir: filepath.Join(t.TempDir(), "missing")})
		if err == nil || !strings.Contains(err.Error(), "directory not found") {
			t.Errorf("Suction() error = %v, want directory not found", err)
		}
	})
}

func TestFreeName(t *testing.T) {
	taken := map[string]bool{"a.txt": true, "a.txt.~1~": true}
	if got := freeName("a.txt", taken); got != "a.txt.~2~" {
		t.Errorf("freeName() = %s, want a.txt.~2~", got)
	}
	if got := freeName("b.txt", taken); got != "b.txt" {
		t.Errorf("freeName() = %s, want b.txt", got)
	}
}

func TestService_ListSubDirs(t *testing.T) {
	tmpDir, svc := setupTestRoot(t,
		"run10/",
		"run2/",
		"run1/",
		"notes.txt",
		"nested/only/deepest/a.txt",
		"nested/only/deepest/b.txt",
	)

	t.Run("directories in natural order", func(t *testing.T) {
		got, err := svc.ListSubDirs(types.SubDirParams{Dirs: []string{tmpDir}})
		if err != nil {
			t.Fatalf("ListSubDirs() error = %v", err)
		}
		want := []string{"nested", "run1", "run2", "run10"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ListSubDirs() = %v, want %v", got, want)
		}
	})

	t.Run("absolute paths and files", func(t *testing.T) {
		got, err := svc.ListSubDirs(types.SubDirParams{Dirs: []string{tmpDir}, Absolute: true, IncludeFiles: true})
		if err != nil {
			t.Fatalf("ListSubDirs() error = %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("ListSubDirs() = %v, want 5 entries", got)
		}
		if got[1] != filepath.Join(tmpDir, "notes.txt") {
			t.Errorf("got[1] = %s, want notes.txt path", got[1])
		}
	})

	t.Run("collapse orphan chains", func(t *testing.T) {
		got, err := svc.ListSubDirs(types.SubDirParams{Dirs: []string{tmpDir}, Absolute: true, CollapseOrphans: true})
		if err != nil {
			t.Fatalf("ListSubDirs() error = %v", err)
		}
		if got[0] != filepath.Join(tmpDir, "nested", "only", "deepest") {
			t.Errorf("got[0] = %s, want the deepest directory", got[0])
		}
	})

	t.Run("several roots concatenate in input order", func(t *testing.T) {
		got, err := svc.ListSubDirs(types.SubDirParams{Dirs: []string{
			filepath.Join(tmpDir, "nested"),
			filepath.Join(tmpDir, "nested", "only"),
		}})
		if err != nil {
			t.Fatalf("ListSubDirs() error = %v", err)
		}
		if want := []string{"only", "deepest"}; !reflect.DeepEqual(got, want) {
			t.Errorf("ListSubDirs() = %v, want %v", got, want)
		}
	})

	t.Run("ignored patterns", func(t *testing.T) {
		filtered := New(tmpDir, pathfilter.FromNames([]string{"run*"}), nil)
		got, err := filtered.ListSubDirs(types.SubDirParams{Dirs: []string{tmpDir}})
		if err != nil {
			t.Fatalf("ListSubDirs() error = %v", err)
		}
		if want := []string{"nested"}; !reflect.DeepEqual(got, want) {
			t.Errorf("ListSubDirs() = %v, want %v", got, want)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := svc.ListSubDirs(types.SubDirParams{Dirs: []string{filepath.Join(tmpDir, "nope")}})
		if err == nil {
			t.Error("ListSubDirs() should fail for a missing directory")
		}
	})
}

func TestService_PathTraversal(t *testing.T) {
	_, svc := setupTestRoot(t)

	tests := []string{
		"../outside",
		"folder/../../outside",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := svc.ResolvePath(path)
			if err == nil {
				t.Fatal("ResolvePath() should fail for path traversal")
			}
			if !strings.Contains(err.Error(), "path traversal not allowed") {
				t.Errorf("Error should mention path traversal: %v", err)
			}
		})
	}

	t.Run("inside root", func(t *testing.T) {
		got, err := svc.ResolvePath("/data/..folder")
		if err != nil {
			t.Fatalf("ResolvePath() error = %v", err)
		}
		if got != filepath.Join(svc.RootPath(), "data", "..folder") {
			t.Errorf("ResolvePath() = %s", got)
		}
	})
}

func TestService_UnicodeSuction(t *testing.T) {
	tmpDir, svc := setupTestRoot(t, "日本語/ノート.md", "📁/🎉.md")

	if _, err := svc.Suction(types.SuctionParams{Dir: tmpDir}); err != nil {
		t.Fatalf("Suction() error = %v", err)
	}
	want := []string{"ノート.md", "🎉.md"}
	sort.Strings(want)
	if got := listNames(t, tmpDir); !reflect.DeepEqual(got, want) {
		t.Errorf("root = %v, want %v", got, want)
	}
}
