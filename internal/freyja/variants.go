package freyja

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hnoss/searchtools/internal/filelock"
)

// MutationKey columns identify a mutation.
var MutationKey = []string{"POS", "REF", "ALT"}

// Records is a generic header plus rows table read from TSV or CSV.
type Records struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column, or -1.
func (r *Records) Index(col string) int {
	for i, c := range r.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

func (r *Records) keyIndexes(what string) ([]int, error) {
	idx := make([]int, len(MutationKey))
	var missing []string
	for i, col := range MutationKey {
		idx[i] = r.Index(col)
		if idx[i] < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w in %s: %s", ErrMissingColumns, what, strings.Join(missing, ", "))
	}
	return idx, nil
}

// ReadRecords loads a headed TSV (or CSV, by extension).
func ReadRecords(path string) (*Records, error) {
	records, err := readTSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Records{}, nil
	}
	return &Records{Columns: records[0], Rows: records[1:]}, nil
}

// ReadVariants concatenates freyja variants files, prefixing each row with
// a "file" column holding the source base name. Columns are taken from the
// first file; rows from later files are aligned by column name.
func ReadVariants(files []string) (*Records, error) {
	out := &Records{}
	for _, file := range files {
		recs, err := ReadRecords(file)
		if err != nil {
			return nil, err
		}
		if out.Columns == nil {
			out.Columns = append([]string{"file"}, recs.Columns...)
		}
		base := filepath.Base(file)
		for _, row := range recs.Rows {
			aligned := make([]string, len(out.Columns))
			aligned[0] = base
			for i, col := range recs.Columns {
				if j := out.Index(col); j > 0 && i < len(row) {
					aligned[j] = row[i]
				}
			}
			out.Rows = append(out.Rows, aligned)
		}
	}
	return out, nil
}

// FindMutations returns the variant rows whose POS, REF and ALT match a row
// of mutations, in mutation order. The result keeps the variant columns.
func FindMutations(variants, mutations *Records) (*Records, error) {
	vIdx, err := variants.keyIndexes("variants input")
	if err != nil {
		return nil, err
	}
	mIdx, err := mutations.keyIndexes("mutations input")
	if err != nil {
		return nil, err
	}

	key := func(row []string, idx []int) string {
		parts := make([]string, len(idx))
		for i, j := range idx {
			if j < len(row) {
				parts[i] = strings.TrimSpace(row[j])
			}
		}
		return strings.Join(parts, "\x00")
	}

	byKey := make(map[string][][]string)
	for _, row := range variants.Rows {
		k := key(row, vIdx)
		byKey[k] = append(byKey[k], row)
	}

	found := &Records{Columns: variants.Columns}
	for _, m := range mutations.Rows {
		found.Rows = append(found.Rows, byKey[key(m, mIdx)]...)
	}
	return found, nil
}

// WriteRecords writes r as TSV, or CSV when path ends in .csv.
func WriteRecords(r *Records, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		w.Comma = '\t'
	}
	w.Write(r.Columns)
	w.WriteAll(r.Rows)
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return filelock.AtomicWrite(path, buf.Bytes())
}
