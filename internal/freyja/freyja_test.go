package freyja

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hnoss/searchtools/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleDemix = "\t/runs/s1.bam\n" +
	"summarized\t[('Omicron', 0.9123), ('Delta', 0.05)]\n" +
	"lineages\tBA.1 BA.2 AY.4\n" +
	"abundances\t0.60004 0.3123 0.05\n" +
	"resid\t3.14159\n" +
	"coverage\t98.7654\n"

const aggregated = "\tsummarized\tlineages\tabundances\tresid\tcoverage\n" +
	"s2.freyja.tsv\t[('Omicron', 0.8)]\tBA.1 BA.5\t0.5 0.3\t2.0\t95.0\n" +
	"s3.freyja.tsv\t[('Delta', 1.0)]\tAY.4\t1.0\t1.0\t90.0\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSummarized(t *testing.T) {
	got, err := ParseSummarized("[('Omicron', 0.93), (\"Other\", 1e-3)]")
	require.NoError(t, err)
	assert.Equal(t, []Abundance{{"Omicron", 0.93}, {"Other", 0.001}}, got)

	empty, err := ParseSummarized("[]")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseSummarized("Omicron 0.9")
	assert.Error(t, err)
}

func TestParseLineages(t *testing.T) {
	got, err := ParseLineages("BA.1 BA.2", "0.7 0.3")
	require.NoError(t, err)
	assert.Equal(t, []Abundance{{"BA.1", 0.7}, {"BA.2", 0.3}}, got)

	_, err = ParseLineages("BA.1 BA.2", "0.7")
	assert.ErrorContains(t, err, "does not match")
}

func TestReadSamples(t *testing.T) {
	dir := t.TempDir()
	single := writeFile(t, dir, "s1.freyja.tsv", singleDemix)
	agg := writeFile(t, dir, "agg.tsv", aggregated)

	samples, err := ReadSamples([]string{single, agg})
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, "s1.freyja", samples[0].File)
	assert.Len(t, samples[0].Lineages, 3)
	assert.InDelta(t, 3.14159, samples[0].Resid, 1e-9)
	assert.Equal(t, "s2.freyja.tsv", samples[1].File)
	assert.Equal(t, []Abundance{{"Delta", 1.0}}, samples[2].Summarized)

	t.Run("missing columns", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.tsv", "\ts\nlineages\tBA.1\n")
		_, err := ReadSamples([]string{bad})
		assert.ErrorIs(t, err, ErrMissingColumns)
	})
}

func TestPivot(t *testing.T) {
	samples := []Sample{
		{File: "b", Resid: 1.23456, Coverage: 90, Lineages: []Abundance{{"BA.2", 0.4}, {"BA.1", 0.60004}}},
		{File: "a", Resid: 2, Coverage: 95, Lineages: []Abundance{{"BA.1", 0.1}, {"BA.1", 0.9}}},
	}

	table := Pivot(samples, false)
	assert.Equal(t, []string{"BA.1", "BA.2"}, table.Columns)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "a", table.Rows[0].File)
	assert.Equal(t, 0.1, table.Rows[0].Values[0], "first value wins")
	assert.True(t, math.IsNaN(table.Rows[0].Values[1]))

	assert.Equal(t, 1.235, table.Rows[1].Resid)
	assert.Equal(t, 0.6, table.Rows[1].Values[0])

	summarized := Pivot([]Sample{{File: "a", Summarized: []Abundance{{"Omicron", 0.5}}}}, true)
	assert.Equal(t, []string{"Omicron"}, summarized.Columns)
}

func sampleTable() *Table {
	nan := math.NaN()
	return &Table{
		Columns: []string{"A", "B", "C"},
		Rows: []Row{
			{File: "s1", Values: []float64{0.5, 0.01, nan}},
			{File: "s2", Values: []float64{0.2, 0.02, 0.03}},
		},
	}
}

func TestTable_Filter(t *testing.T) {
	filtered := sampleTable().Filter(0.05, true)
	assert.Equal(t, []string{"A"}, filtered.Columns)
	assert.Equal(t, []float64{0.5}, filtered.Rows[0].Values)

	kept := sampleTable().Filter(0.05, false)
	assert.Len(t, kept.Columns, 3)
	assert.True(t, math.IsNaN(kept.Rows[1].Values[2]))

	original := sampleTable()
	original.Filter(0.05, true)
	assert.Equal(t, 0.01, original.Rows[0].Values[1], "Filter must not modify its receiver")
}

func TestTable_Normalize(t *testing.T) {
	table := &Table{Columns: []string{"A", "B"}, Rows: []Row{{File: "s", Values: []float64{1, 3}}}}
	got := table.Normalize(100)
	assert.Equal(t, []float64{25, 75}, got.Rows[0].Values)
}

func TestTable_CodeMissingAsOther(t *testing.T) {
	got := sampleTable().CodeMissingAsOther(1, "Other")
	assert.Equal(t, "Other", got.Columns[3])
	assert.InDelta(t, 0.49, got.Rows[0].Values[3], 1e-9)
	assert.InDelta(t, 0.75, got.Rows[1].Values[3], 1e-9)
}

func TestCompare(t *testing.T) {
	nan := math.NaN()
	a := &Table{Columns: []string{"A", "B"}, Rows: []Row{
		{File: "s1", Values: []float64{0.1, 0.9}},
		{File: "s2", Values: []float64{0.5, nan}},
	}}
	b := &Table{Columns: []string{"B", "C"}, Rows: []Row{
		{File: "s1", Values: []float64{0.8, 0.2}},
		{File: "s3", Values: []float64{0, 0}},
	}}

	cmp := Compare(a, b)
	assert.Equal(t, []Pair{
		{File: "s1", Lineage: "A", Run1: 0.1, Run2: 0},
		{File: "s1", Lineage: "B", Run1: 0.9, Run2: 0.8},
		{File: "s1", Lineage: "C", Run1: 0, Run2: 0.2},
		{File: "s2", Lineage: "A", Run1: 0.5, Run2: 0},
	}, cmp.Pairs)
	assert.False(t, math.IsNaN(cmp.R))
	assert.InDelta(t, PValue(cmp.R, 4), cmp.P, 1e-12)
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.InDelta(t, 0.7745966692, Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5}), 1e-9)
	assert.True(t, math.IsNaN(Pearson([]float64{1}, []float64{1})))
	assert.True(t, math.IsNaN(Pearson([]float64{1, 1}, []float64{2, 3})))
}

func TestPValue(t *testing.T) {
	r := Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})
	assert.InDelta(t, 0.1240270627, PValue(r, 5), 1e-6)
	assert.Equal(t, 0.0, PValue(1, 4))
	assert.Equal(t, 1.0, PValue(0.3, 2))
	assert.True(t, math.IsNaN(PValue(math.NaN(), 10)))
	assert.True(t, math.IsNaN(PValue(0.5, 1)))
}

func TestWritePairs(t *testing.T) {
	var buf strings.Builder
	err := WritePairs(&buf, []Pair{
		{File: "s1", Lineage: "B.1.1.7", Run1: 0.25, Run2: 0},
		{File: `run "a", lane 2`, Lineage: "BA.2", Run1: 1, Run2: 0.125},
	})
	require.NoError(t, err)

	assert.Equal(t, "file,lineage,run1,run2\n"+
		"s1,B.1.1.7,0.25,0\n"+
		"\"run \"\"a\"\", lane 2\",BA.2,1,0.125\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.csv")
	require.NoError(t, WriteCSV(sampleTable(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "file,resid,coverage,A,B,C", lines[0])
	assert.Equal(t, "s1,0,0,0.5,0.01,", lines[1])
}

func TestFindMutations(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "s1.variants.tsv", "REGION\tPOS\tREF\tALT\tALT_FREQ\nMN908947.3\t23403\tA\tG\t0.99\nMN908947.3\t241\tC\tT\t1.0\n")
	v2 := writeFile(t, dir, "s2.variants.tsv", "REGION\tPOS\tREF\tALT\tALT_FREQ\nMN908947.3\t241\tC\tT\t0.5\n")
	muts := writeFile(t, dir, "targets.csv", "POS,REF,ALT,name\n241,C,T,C241T\n23403,A,G,D614G\n")

	variants, err := ReadVariants([]string{v1, v2})
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "REGION", "POS", "REF", "ALT", "ALT_FREQ"}, variants.Columns)
	require.Len(t, variants.Rows, 3)

	mutations, err := ReadRecords(muts)
	require.NoError(t, err)

	found, err := FindMutations(variants, mutations)
	require.NoError(t, err)
	assert.Equal(t, variants.Columns, found.Columns)
	require.Len(t, found.Rows, 3)
	assert.Equal(t, "241", found.Rows[0][2])
	assert.Equal(t, "s2.variants.tsv", found.Rows[1][0])
	assert.Equal(t, "23403", found.Rows[2][2])

	t.Run("missing columns", func(t *testing.T) {
		_, err := FindMutations(variants, &Records{Columns: []string{"POS", "REF"}})
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.ErrorContains(t, err, "ALT")
	})
}

func TestClient_Demix(t *testing.T) {
	dir := t.TempDir()
	rec := &command.Recorder{Respond: func(call command.Call) ([]byte, error) {
		if call.Args[0] == "variants" {
			depths := call.Args[4]
			content := "MN908947.3\t1\tA\t10\nother\t1\tC\t3\nMN908947.3\t2\tT\t7\n"
			return nil, os.WriteFile(depths, []byte(content), 0o644)
		}
		return nil, nil
	}}
	client := NewClient(rec, Options{Path: "/opt/freyja"}, nil)

	out, err := client.Demix(context.Background(), "/runs/s1.bam", dir, "ref.fa", "MN908947.3")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "s1.freyja.tsv"), out.Output)
	require.Len(t, rec.Calls, 2)
	assert.Equal(t, "/opt/freyja", rec.Calls[0].Name)
	assert.Equal(t, []string{"variants", "/runs/s1.bam", "--variants", out.Variants, "--depths", out.Depths, "--ref", "ref.fa"}, rec.Calls[0].Args)
	assert.Equal(t, []string{"demix", out.Variants, out.Depths, "--output", out.Output}, rec.Calls[1].Args)

	depths, err := os.ReadFile(out.Depths)
	require.NoError(t, err)
	assert.Equal(t, "MN908947.3\t1\tA\t10\nMN908947.3\t2\tT\t7\n", string(depths))
}

func TestClient_Failures(t *testing.T) {
	rec := &command.Recorder{Respond: func(command.Call) ([]byte, error) {
		return nil, &command.ExitError{Name: "freyja", ExitCode: 2}
	}}
	client := NewClient(rec, Options{}, nil)

	_, err := client.DemixAll(context.Background(), []string{"a.bam", "b.bam"}, t.TempDir(), "ref.fa", "")
	assert.ErrorIs(t, err, command.ErrToolFailure)
	assert.Len(t, rec.Calls, 1, "stops at the first failure")
}

func TestClient_Plot(t *testing.T) {
	rec := &command.Recorder{}
	client := NewClient(rec, Options{}, nil)

	plots, err := client.Plot(context.Background(), "agg.tsv", filepath.Join("out", "plot.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("out", "summ-plot.pdf"), filepath.Join("out", "lineage-plot.pdf")}, plots)
	assert.Equal(t, []string{"plot", "agg.tsv", "--lineages", "--output", plots[1]}, rec.Calls[1].Args)

	require.NoError(t, client.Aggregate(context.Background(), "out/", "agg.tsv"))
	assert.Equal(t, []string{"aggregate", "out/", "--output", "agg.tsv", "--ext", "freyja.tsv"}, rec.Calls[2].Args)
}
