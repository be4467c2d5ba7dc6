package freyja

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Column names used by freyja demix and aggregate output.
const (
	SummarizedCol = "summarized"
	LineagesCol   = "lineages"
	AbundancesCol = "abundances"
	ResidCol      = "resid"
	CoverageCol   = "coverage"
)

// ErrMissingColumns is returned when an input lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// Abundance is the estimated share of one lineage in a sample.
type Abundance struct {
	Lineage string  `json:"lineage"`
	Value   float64 `json:"value"`
}

// Sample is one demixed sample.
type Sample struct {
	File       string      `json:"file"`
	Summarized []Abundance `json:"summarized"`
	Lineages   []Abundance `json:"lineages"`
	Resid      float64     `json:"resid"`
	Coverage   float64     `json:"coverage"`
}

// tuplePattern matches one ('name', value) entry of the summarized column.
var tuplePattern = regexp.MustCompile(`\(\s*['"]([^'"]*)['"]\s*,\s*([-+0-9.eE]+|nan|inf)\s*\)`)

// ParseSummarized parses a summarized column such as
// "[('Omicron', 0.93), ('Delta', 0.05)]".
func ParseSummarized(s string) ([]Abundance, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("invalid summarized value: %q", s)
	}

	var out []Abundance
	for _, m := range tuplePattern.FindAllStringSubmatch(trimmed, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid abundance %q for %s: %w", m[2], m[1], err)
		}
		out = append(out, Abundance{Lineage: m[1], Value: v})
	}
	return out, nil
}

// ParseLineages pairs the space-separated lineages and abundances columns.
func ParseLineages(lineages, abundances string) ([]Abundance, error) {
	names := strings.Fields(lineages)
	values := strings.Fields(abundances)
	if len(names) != len(values) {
		return nil, fmt.Errorf("lineage count %d does not match abundance count %d", len(names), len(values))
	}

	out := make([]Abundance, 0, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(values[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid abundance %q for %s: %w", values[i], name, err)
		}
		out = append(out, Abundance{Lineage: name, Value: v})
	}
	return out, nil
}

// ReadSamples loads demix output files. A file with two columns is a single
// demix result (key/value rows) and yields one sample named after the file;
// anything wider is an aggregate with one sample per row.
func ReadSamples(files []string) ([]Sample, error) {
	var samples []Sample
	for _, file := range files {
		records, err := readTSV(file)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}

		var got []Sample
		if len(records[0]) == 2 {
			s, err := parseSingle(file, records)
			if err != nil {
				return nil, err
			}
			got = []Sample{s}
		} else {
			got, err = parseAggregated(file, records)
			if err != nil {
				return nil, err
			}
		}
		samples = append(samples, got...)
	}
	return samples, nil
}

func parseSingle(file string, records [][]string) (Sample, error) {
	fields := make(map[string]string, len(records))
	for _, rec := range records[1:] {
		if len(rec) == 2 {
			fields[rec[0]] = rec[1]
		}
	}
	return buildSample(file, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)), fields)
}

func parseAggregated(file string, records [][]string) ([]Sample, error) {
	header := records[0]
	var samples []Sample
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%s line %d: expected %d columns, got %d", file, i+2, len(header), len(rec))
		}
		fields := make(map[string]string, len(header))
		for j := 1; j < len(header); j++ {
			fields[header[j]] = rec[j]
		}
		s, err := buildSample(file, rec[0], fields)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func buildSample(file, name string, fields map[string]string) (Sample, error) {
	var missing []string
	for _, col := range []string{SummarizedCol, LineagesCol, AbundancesCol, ResidCol, CoverageCol} {
		if _, ok := fields[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Sample{}, fmt.Errorf("%w in %s: %s", ErrMissingColumns, file, strings.Join(missing, ", "))
	}

	s := Sample{File: name}
	var err error
	if s.Summarized, err = ParseSummarized(fields[SummarizedCol]); err != nil {
		return Sample{}, fmt.Errorf("%s (%s): %w", file, name, err)
	}
	if s.Lineages, err = ParseLineages(fields[LineagesCol], fields[AbundancesCol]); err != nil {
		return Sample{}, fmt.Errorf("%s (%s): %w", file, name, err)
	}
	if s.Resid, err = strconv.ParseFloat(strings.TrimSpace(fields[ResidCol]), 64); err != nil {
		return Sample{}, fmt.Errorf("%s (%s): invalid resid: %w", file, name, err)
	}
	if s.Coverage, err = strconv.ParseFloat(strings.TrimSpace(fields[CoverageCol]), 64); err != nil {
		return Sample{}, fmt.Errorf("%s (%s): invalid coverage: %w", file, name, err)
	}
	return s, nil
}

// readTSV reads a tab- or comma-separated file, chosen by extension.
func readTSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}
