package flatdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hnoss/searchtools/internal/filelock"
	"github.com/hnoss/searchtools/internal/types"
	"github.com/klauspost/compress/zip"
)

// IsZip reports whether a database line names a zip archive.
func IsZip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zip")
}

// zipMembers lists the entry names of a zip archive in archive order.
func zipMembers(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

// ExpandZips copies a database, following every line that names a zip
// archive with one "<archive>/<member>" line per file inside it. Archives
// that cannot be opened are kept, logged and reported in Skipped. The
// source database is never modified.
func (s *Service) ExpandZips(ctx context.Context, params types.ExpandParams) (types.ExpandResult, error) {
	dbInfo, err := os.Stat(params.DBFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ExpandResult{}, fmt.Errorf("%w: %s. Cannot expand database", ErrFileNotFound, params.DBFile)
		}
		return types.ExpandResult{}, fmt.Errorf("failed to access database: %s - %w", params.DBFile, err)
	}
	if params.OutFile != "" {
		if outInfo, err := os.Stat(params.OutFile); err == nil && os.SameFile(dbInfo, outInfo) {
			return types.ExpandResult{}, fmt.Errorf("%w: %s", ErrSameFile, params.OutFile)
		}
	}

	in, err := openInput(params.DBFile)
	if err != nil {
		return types.ExpandResult{}, err
	}
	defer in.Close()

	result := types.ExpandResult{OutFile: params.OutFile}
	emit := func(line string) error {
		result.Lines = append(result.Lines, line)
		return nil
	}

	expand := func() error {
		return eachLine(in.Reader, func(raw string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			line := trimNewline(raw)
			if err := emit(line); err != nil {
				return err
			}
			if !IsZip(line) {
				return nil
			}

			members, err := zipMembers(line)
			if err != nil {
				s.log.LogWarn(fmt.Sprintf("skipping archive %s: %v", line, err))
				result.Skipped = append(result.Skipped, line)
				return nil
			}
			result.Archives++
			for _, m := range members {
				if err := emit(line + "/" + m); err != nil {
					return err
				}
				result.Members++
			}
			return nil
		})
	}

	if params.OutFile != "" {
		err = filelock.WithLock(params.OutFile, func() error {
			out, err := createOutput(params.OutFile)
			if err != nil {
				return err
			}
			emit = func(line string) error {
				_, err := out.WriteString(line + "\n")
				return err
			}
			expandErr := expand()
			if closeErr := out.Close(); expandErr == nil && closeErr != nil {
				expandErr = fmt.Errorf("failed to write output file: %s - %w", params.OutFile, closeErr)
			}
			return expandErr
		})
	} else {
		err = expand()
	}
	if err != nil {
		return types.ExpandResult{}, err
	}

	s.log.LogInfo(fmt.Sprintf("Expanded %d archives into %d members", result.Archives, result.Members))
	return result, nil
}
