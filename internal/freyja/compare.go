package freyja

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pair holds one lineage's abundance in the same sample across two runs.
type Pair struct {
	File    string  `json:"file"`
	Lineage string  `json:"lineage"`
	Run1    float64 `json:"run1"`
	Run2    float64 `json:"run2"`
}

// Comparison is the result of Compare. R and P are NaN when fewer than two
// pairs remain or either run has no variance.
type Comparison struct {
	Pairs []Pair
	R     float64
	// P is the two-sided p-value of R against no correlation.
	P float64
}

// Compare aligns two tables on file and lineage, keeps the pairs where at
// least one run has a positive value (missing values count as zero), sorts
// them by file then lineage and computes the Pearson correlation.
func Compare(a, b *Table) Comparison {
	lineages := unionSorted(a.Columns, b.Columns)
	files := unionSorted(fileNames(a), fileNames(b))

	var pairs []Pair
	for _, file := range files {
		for _, lineage := range lineages {
			x, y := a.Get(file, lineage), b.Get(file, lineage)
			if nanSum(x, y) <= 0 {
				continue
			}
			pairs = append(pairs, Pair{File: file, Lineage: lineage, Run1: zeroNaN(x), Run2: zeroNaN(y)})
		}
	}

	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i], ys[i] = p.Run1, p.Run2
	}
	r := Pearson(xs, ys)
	return Comparison{Pairs: pairs, R: r, P: PValue(r, len(pairs))}
}

// Pearson returns the sample correlation coefficient of x and y.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// PValue returns the two-sided p-value for a correlation r over n pairs,
// using Student's t distribution with n-2 degrees of freedom.
func PValue(r float64, n int) float64 {
	switch {
	case math.IsNaN(r) || n < 2:
		return math.NaN()
	case n == 2:
		return 1
	case math.Abs(r) >= 1:
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

// WritePairs writes pairs as CSV with a file,lineage,run1,run2 header.
func WritePairs(w io.Writer, pairs []Pair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"file", "lineage", "run1", "run2"}); err != nil {
		return err
	}
	for _, p := range pairs {
		rec := []string{
			p.File,
			p.Lineage,
			strconv.FormatFloat(p.Run1, 'g', -1, 64),
			strconv.FormatFloat(p.Run2, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fileNames(t *Table) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.File)
	}
	return out
}

func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func nanSum(vs ...float64) float64 {
	return rowSum(vs)
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
