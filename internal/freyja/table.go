package freyja

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/hnoss/searchtools/internal/filelock"
)

// Row is one sample of a wide table. Values line up with Table.Columns;
// NaN marks a lineage absent from the sample.
type Row struct {
	File     string
	Resid    float64
	Coverage float64
	Values   []float64
}

// Table is a wide lineage table: one row per sample, one column per lineage.
type Table struct {
	Columns []string
	Rows    []Row
}

// Sigfig rounds v to three decimal places.
func Sigfig(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	return r
}

type rowKey struct {
	file     string
	resid    float64
	coverage float64
}

// Pivot turns samples into a wide table keyed by (file, resid, coverage),
// using the summarized abundances when summarized is set and the raw
// lineage abundances otherwise. Values, resid and coverage are rounded with
// Sigfig. When a lineage repeats within a key the first value wins.
func Pivot(samples []Sample, summarized bool) *Table {
	cells := make(map[rowKey]map[string]float64)
	var keys []rowKey
	lineages := make(map[string]struct{})

	for _, s := range samples {
		key := rowKey{file: s.File, resid: Sigfig(s.Resid), coverage: Sigfig(s.Coverage)}
		row, ok := cells[key]
		if !ok {
			row = make(map[string]float64)
			cells[key] = row
			keys = append(keys, key)
		}
		entries := s.Lineages
		if summarized {
			entries = s.Summarized
		}
		for _, a := range entries {
			if _, seen := row[a.Lineage]; !seen {
				row[a.Lineage] = Sigfig(a.Value)
			}
			lineages[a.Lineage] = struct{}{}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.file != b.file {
			return a.file < b.file
		}
		if a.resid != b.resid {
			return a.resid < b.resid
		}
		return a.coverage < b.coverage
	})

	t := &Table{}
	for l := range lineages {
		t.Columns = append(t.Columns, l)
	}
	sort.Strings(t.Columns)

	for _, key := range keys {
		row := Row{File: key.file, Resid: key.resid, Coverage: key.coverage, Values: make([]float64, len(t.Columns))}
		for i, col := range t.Columns {
			v, ok := cells[key][col]
			if !ok {
				v = math.NaN()
			}
			row.Values[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		r.Values = append([]float64(nil), r.Values...)
		out.Rows = append(out.Rows, r)
	}
	return out
}

// Column returns the index of a column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Filter blanks (sets to NaN) values below cutoff. With removeEmpty, columns
// left without any value are dropped.
func (t *Table) Filter(cutoff float64, removeEmpty bool) *Table {
	out := t.Clone()
	for _, r := range out.Rows {
		for i, v := range r.Values {
			if v < cutoff {
				r.Values[i] = math.NaN()
			}
		}
	}
	if !removeEmpty {
		return out
	}

	var keep []int
	for i := range out.Columns {
		for _, r := range out.Rows {
			if !math.IsNaN(r.Values[i]) {
				keep = append(keep, i)
				break
			}
		}
	}
	return out.selectColumns(keep)
}

func (t *Table) selectColumns(idx []int) *Table {
	out := &Table{}
	for _, i := range idx {
		out.Columns = append(out.Columns, t.Columns[i])
	}
	for _, r := range t.Rows {
		values := make([]float64, len(idx))
		for j, i := range idx {
			values[j] = r.Values[i]
		}
		r.Values = values
		out.Rows = append(out.Rows, r)
	}
	return out
}

// rowSum adds the non-NaN values of a row.
func rowSum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

// Normalize scales every row so its values sum to max. Each share is rounded
// with Sigfig before scaling.
func (t *Table) Normalize(max float64) *Table {
	out := t.Clone()
	for _, r := range out.Rows {
		sum := rowSum(r.Values)
		for i, v := range r.Values {
			r.Values[i] = Sigfig(v/sum) * max
		}
	}
	return out
}

// CodeMissingAsOther appends a column holding target minus the row sum, the
// share not attributed to any lineage.
func (t *Table) CodeMissingAsOther(target float64, col string) *Table {
	out := t.Clone()
	out.Columns = append(out.Columns, col)
	for i := range out.Rows {
		r := &out.Rows[i]
		r.Values = append(r.Values, target-rowSum(r.Values))
	}
	return out
}

// Get returns the value at a file and column, NaN when absent.
func (t *Table) Get(file, col string) float64 {
	i := t.Column(col)
	if i < 0 {
		return math.NaN()
	}
	for _, r := range t.Rows {
		if r.File == file {
			return r.Values[i]
		}
	}
	return math.NaN()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes t with columns file, resid, coverage, then the lineages.
// Missing values are written empty.
func WriteCSV(t *Table, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write(append([]string{"file", ResidCol, CoverageCol}, t.Columns...))
	for _, r := range t.Rows {
		rec := []string{r.File, formatValue(r.Resid), formatValue(r.Coverage)}
		for _, v := range r.Values {
			rec = append(rec, formatValue(v))
		}
		w.Write(rec)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}

	if err := filelock.AtomicWrite(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write table: %s - %w", path, err)
	}
	return nil
}
