package pathfilter

import (
	"strings"
	"testing"

	"github.com/hnoss/searchtools/internal/types"
)

func TestPathFilter_EmptyAllowsEverything(t *testing.T) {
	filter := New(nil)

	tests := []string{
		"notes/test.md",
		"node_modules/pkg/index.js",
		".git/config",
	}

	if !filter.Empty() {
		t.Fatal("Empty() = false, want true")
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if filter.IsExcluded(path) {
				t.Errorf("IsExcluded(%q) = true, want false", path)
			}
		})
	}
}

func TestPathFilter_BareNamesMatchAnyDepth(t *testing.T) {
	filter := FromNames([]string{"node_modules", ".git"})

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules", true},
		{"web/node_modules", true},
		{"a/b/c/.git", true},
		{"node_modules_old", false},
		{"src", false},
		{"git", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := filter.IsExcluded(tt.path); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathFilter_RegexSpecialCharacters(t *testing.T) {
	filter := FromNames([]string{
		"(archive)",
		"[trash]",
		"C++",
		"backup.2024",
		"price$100",
	})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"parentheses", "notes/(archive)", true},
		{"no parentheses", "notes/archive", false},
		{"brackets", "[trash]", true},
		{"no brackets", "trash", false},
		{"plus signs", "langs/C++", true},
		{"dots are literal", "backup_2024", false},
		{"dots", "backup.2024", true},
		{"dollar", "price$100", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.IsExcluded(tt.path); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathFilter_Globs(t *testing.T) {
	t.Run("asterisk glob matches base name", func(t *testing.T) {
		filter := FromNames([]string{"temp*"})

		tests := []struct {
			path string
			want bool
		}{
			{"temp", true},
			{"x/temp1", true},
			{"temporary", true},
			{"atemp", false},
		}

		for _, tt := range tests {
			if got := filter.IsExcluded(tt.path); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	})

	t.Run("slash pattern matches relative path", func(t *testing.T) {
		filter := New(&types.PathFilterConfig{
			IgnoredPatterns: []string{"archive/**"},
		})

		tests := []struct {
			path string
			want bool
		}{
			{"archive/old", true},
			{"archive/2024/jan", true},
			{"other/archive/note", false},
			{"archive", false},
		}

		for _, tt := range tests {
			if got := filter.IsExcluded(tt.path); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	})

	t.Run("question mark matches one char", func(t *testing.T) {
		filter := FromNames([]string{"run?"})

		if !filter.IsExcluded("run1") {
			t.Error("IsExcluded(\"run1\") = false, want true")
		}
		if filter.IsExcluded("run10") {
			t.Error("IsExcluded(\"run10\") = true, want false")
		}
	})
}

func TestPathFilter_FilterPaths(t *testing.T) {
	t.Run("filters array correctly", func(t *testing.T) {
		filter := FromNames([]string{".git", "node_modules"})
		paths := []string{
			"notes",
			".git",
			"archive",
			"web/node_modules",
		}

		got := filter.FilterPaths(paths)
		want := []string{"notes", "archive"}

		if len(got) != len(want) {
			t.Fatalf("FilterPaths() returned %d items, want %d", len(got), len(want))
		}
		for i, path := range got {
			if path != want[i] {
				t.Errorf("FilterPaths()[%d] = %q, want %q", i, path, want[i])
			}
		}
	})

	t.Run("handles empty array", func(t *testing.T) {
		filter := FromNames([]string{"x"})
		got := filter.FilterPaths([]string{})
		if len(got) != 0 {
			t.Errorf("FilterPaths([]) = %v, want empty", got)
		}
	})
}

func TestPathFilter_EdgeCases(t *testing.T) {
	filter := FromNames([]string{"  ", "", "skip/"})

	t.Run("blank patterns dropped", func(t *testing.T) {
		if got := filter.Patterns(); len(got) != 1 || got[0] != "skip/" {
			t.Errorf("Patterns() = %v, want [skip/]", got)
		}
	})

	t.Run("trailing slash pattern matches directory", func(t *testing.T) {
		if !filter.IsExcluded("a/skip") {
			t.Error("IsExcluded(\"a/skip\") = false, want true")
		}
	})

	t.Run("empty and dot path never excluded", func(t *testing.T) {
		if filter.IsExcluded("") || filter.IsExcluded(".") {
			t.Error("root path should never be excluded")
		}
	})

	t.Run("backslash separators", func(t *testing.T) {
		if !filter.IsExcluded("folder\\skip") {
			t.Error("IsExcluded(\"folder\\\\skip\") = false, want true")
		}
	})

	t.Run("very long paths", func(t *testing.T) {
		var longPath strings.Builder
		for range 100 {
			longPath.WriteString("a/")
		}
		longPath.WriteString("skip")

		if !filter.IsExcluded(longPath.String()) {
			t.Error("IsExcluded(longPath) = false, want true")
		}
	})

	t.Run("unicode characters", func(t *testing.T) {
		uf := FromNames([]string{"日本語"})
		if !uf.IsExcluded("notes/日本語") {
			t.Error("IsExcluded(unicode) = false, want true")
		}
	})
}
