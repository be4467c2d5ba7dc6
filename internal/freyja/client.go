// Package freyja drives the freyja lineage deconvolution tool and reshapes
// its tabular output for comparison between runs.
package freyja

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hnoss/searchtools/internal/command"
	"github.com/hnoss/searchtools/internal/filelock"
	"github.com/hnoss/searchtools/internal/logger"
)

const (
	DefaultPath    = "freyja"
	DefaultTimeout = 2 * time.Hour
)

// Options configures a Client.
type Options struct {
	Path    string
	Timeout time.Duration
}

// Client runs freyja subcommands through a command.Runner.
type Client struct {
	runner command.Runner
	opts   Options
	log    logger.Logger
}

// NewClient creates a Client. A nil runner uses command.ExecRunner.
func NewClient(runner command.Runner, opts Options, log logger.Logger) *Client {
	if runner == nil {
		runner = command.ExecRunner{}
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{runner: runner, opts: opts, log: logger.OrNop(log)}
}

func (c *Client) run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	c.log.LogDebug(fmt.Sprintf("%s %s", c.opts.Path, strings.Join(args, " ")))
	if _, err := c.runner.Run(ctx, c.opts.Path, args...); err != nil {
		return fmt.Errorf("freyja %s failed: %w", args[0], err)
	}
	return nil
}

// DemixOutput holds the files produced for one BAM file.
type DemixOutput struct {
	BAM      string `json:"bam"`
	Variants string `json:"variants"`
	Depths   string `json:"depths"`
	Output   string `json:"output"`
}

// OutputsFor names the files Demix writes for bam inside outDir.
func OutputsFor(bam, outDir string) DemixOutput {
	stem := strings.TrimSuffix(filepath.Base(bam), filepath.Ext(bam))
	out := func(ext string) string { return filepath.Join(outDir, stem+ext) }
	return DemixOutput{
		BAM:      bam,
		Variants: out(".variants.tsv"),
		Depths:   out(".depths.tsv"),
		Output:   out(".freyja.tsv"),
	}
}

// Demix calls variants on bam, keeps only the depth rows of refName (when
// set) and then demixes. ref is the reference FASTA.
func (c *Client) Demix(ctx context.Context, bam, outDir, ref, refName string) (DemixOutput, error) {
	out := OutputsFor(bam, outDir)
	c.log.LogInfo(fmt.Sprintf("Demixing %s", bam))

	if err := c.run(ctx, "variants", bam, "--variants", out.Variants, "--depths", out.Depths, "--ref", ref); err != nil {
		return DemixOutput{}, err
	}
	if refName != "" {
		if err := FilterDepths(out.Depths, refName); err != nil {
			return DemixOutput{}, err
		}
	}
	if err := c.run(ctx, "demix", out.Variants, out.Depths, "--output", out.Output); err != nil {
		return DemixOutput{}, err
	}
	return out, nil
}

// DemixAll runs Demix for every BAM file in order, stopping at the first
// failure.
func (c *Client) DemixAll(ctx context.Context, bams []string, outDir, ref, refName string) ([]DemixOutput, error) {
	outs := make([]DemixOutput, 0, len(bams))
	for _, bam := range bams {
		out, err := c.Demix(ctx, bam, outDir, ref, refName)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Aggregate merges the demix outputs in dir into one TSV.
func (c *Client) Aggregate(ctx context.Context, dir, output string) error {
	return c.run(ctx, "aggregate", dir, "--output", output, "--ext", "freyja.tsv")
}

// Plot renders a summary plot and a lineage plot of an aggregated file. The
// plots are written next to output with "summ-" and "lineage-" prefixes.
func (c *Client) Plot(ctx context.Context, aggregated, output string) ([]string, error) {
	dir, base := filepath.Split(output)
	summary := filepath.Join(dir, "summ-"+base)
	lineage := filepath.Join(dir, "lineage-"+base)

	if err := c.run(ctx, "plot", aggregated, "--output", summary); err != nil {
		return nil, err
	}
	if err := c.run(ctx, "plot", aggregated, "--lineages", "--output", lineage); err != nil {
		return nil, err
	}
	return []string{summary, lineage}, nil
}

// Dash builds the HTML dashboard for an aggregated file.
func (c *Client) Dash(ctx context.Context, aggregated, metadata, output string) error {
	return c.run(ctx, "dash", aggregated, metadata, "--output", output)
}

// FilterDepths rewrites a depths TSV (ref, pos, nt, count; no header) keeping
// only rows whose reference is refName.
func FilterDepths(path, refName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read depths file: %s - %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse depths file: %s - %w", path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	for _, rec := range records {
		if len(rec) > 0 && rec[0] == refName {
			w.Write(rec)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return filelock.AtomicWrite(path, buf.Bytes())
}
