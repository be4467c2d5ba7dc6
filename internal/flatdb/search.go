package flatdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hnoss/searchtools/internal/filelock"
	"github.com/hnoss/searchtools/internal/progress"
	"github.com/hnoss/searchtools/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Query is a compiled set of search terms.
//
// A line is kept when it contains every search term, at least one include
// term (if any are given) and none of the exclude terms. Matching is plain
// substring containment.
type Query struct {
	search        []string
	include       []string
	exclude       []string
	caseSensitive bool
	lower         cases.Caser
}

// NewQuery builds a Query. Without caseSensitive, terms and lines are
// lowercased before comparison. Full case folding is not applied, so "ß"
// and "ss" stay distinct.
func NewQuery(search, include, exclude []string, caseSensitive bool) *Query {
	q := &Query{caseSensitive: caseSensitive}
	if !caseSensitive {
		q.lower = cases.Lower(language.Und)
	}
	q.search = q.normalizeAll(search)
	q.include = q.normalizeAll(include)
	q.exclude = q.normalizeAll(exclude)
	return q
}

func (q *Query) normalize(s string) string {
	if q.caseSensitive {
		return s
	}
	return q.lower.String(s)
}

func (q *Query) normalizeAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, q.normalize(t))
	}
	return out
}

// Match reports whether line satisfies the query.
func (q *Query) Match(line string) bool {
	check := q.normalize(line)

	for _, term := range q.search {
		if !strings.Contains(check, term) {
			return false
		}
	}

	if len(q.include) > 0 {
		found := false
		for _, term := range q.include {
			if strings.Contains(check, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, term := range q.exclude {
		if strings.Contains(check, term) {
			return false
		}
	}

	return true
}

// Search scans params.DBFile line by line and keeps the lines matching the
// query. Lines are written verbatim to params.OutFile when set, otherwise
// returned without their trailing newline.
func (s *Service) Search(ctx context.Context, params types.SearchParams) (types.SearchResult, error) {
	dbInfo, err := os.Stat(params.DBFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.SearchResult{}, fmt.Errorf("%w: %s. Cannot search database", ErrFileNotFound, params.DBFile)
		}
		return types.SearchResult{}, fmt.Errorf("failed to access database: %s - %w", params.DBFile, err)
	}
	if params.OutFile != "" {
		if outInfo, err := os.Stat(params.OutFile); err == nil && os.SameFile(dbInfo, outInfo) {
			return types.SearchResult{}, fmt.Errorf("%w: %s", ErrSameFile, params.OutFile)
		}
	}

	query := NewQuery(params.SearchTerms, params.IncludeTerms, params.ExcludeTerms, params.CaseSensitive)

	in, err := openInput(params.DBFile)
	if err != nil {
		return types.SearchResult{}, err
	}
	defer in.Close()

	tracker := progress.NewTracker("search", s.reporter, s.progressEvery)
	s.log.LogInfo(fmt.Sprintf("Searching %s (run %s)", params.DBFile, tracker.RunID()))

	var lines []string
	keep := func(line string) error {
		lines = append(lines, trimNewline(line))
		return nil
	}

	scan := func() error {
		return eachLine(in.Reader, func(line string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matched := query.Match(trimNewline(line))
			if matched {
				if err := keep(line); err != nil {
					return err
				}
			}
			tracker.Tick(matched)
			return nil
		})
	}

	if params.OutFile != "" {
		err = filelock.WithLock(params.OutFile, func() error {
			out, err := createOutput(params.OutFile)
			if err != nil {
				return err
			}
			keep = func(line string) error {
				_, err := out.WriteString(line)
				return err
			}
			scanErr := scan()
			if closeErr := out.Close(); scanErr == nil && closeErr != nil {
				scanErr = fmt.Errorf("failed to write output file: %s - %w", params.OutFile, closeErr)
			}
			return scanErr
		})
	} else {
		err = scan()
	}

	final := tracker.Finish()
	if err != nil {
		return types.SearchResult{}, err
	}

	s.log.LogInfo(fmt.Sprintf("Parsed %d files and found %d files (%.2fs)", final.Scanned, final.Found, final.Elapsed.Seconds()))

	return types.SearchResult{
		Lines:   lines,
		OutFile: params.OutFile,
		Scanned: final.Scanned,
		Found:   final.Found,
		Elapsed: final.Elapsed,
	}, nil
}
