package main

import (
	"fmt"
	"math"
	"os"

	"github.com/hnoss/searchtools/internal/freyja"
	"github.com/spf13/cobra"
)

func newFreyjaClient() *freyja.Client {
	return freyja.NewClient(nil, freyja.Options{
		Path:    cfg.Freyja.Path,
		Timeout: cfg.Freyja.Timeout,
	}, log)
}

func newFreyjaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freyja",
		Short: "Run freyja and reshape its lineage output",
	}
	cmd.AddCommand(
		newFreyjaDemixCmd(),
		newFreyjaAggregateCmd(),
		newFreyjaPlotCmd(),
		newFreyjaPivotCmd(),
		newFreyjaCompareCmd(),
		newFreyjaMutationsCmd(),
	)
	return cmd
}

func newFreyjaDemixCmd() *cobra.Command {
	var outDir, ref, refName string

	cmd := &cobra.Command{
		Use:   "demix <bam>...",
		Short: "Call variants and demix each BAM file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			outs, err := newFreyjaClient().DemixAll(cmd.Context(), args, outDir, ref, refName)
			for _, o := range outs {
				fmt.Fprintln(cmd.OutOrStdout(), o.Output)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outDir, "out-dir", "o", ".", "directory for variants, depths and demix files")
	f.StringVar(&ref, "ref", "", "reference FASTA")
	f.StringVar(&refName, "refname", "", "keep only depth rows for this reference name")
	cmd.MarkFlagRequired("ref")
	return cmd
}

func newFreyjaAggregateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "aggregate <dir>",
		Short: "Merge the demix files in <dir> into one TSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newFreyjaClient().Aggregate(cmd.Context(), args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "aggregated.tsv", "aggregated output file")
	return cmd
}

func newFreyjaPlotCmd() *cobra.Command {
	var output, metadata, dash string

	cmd := &cobra.Command{
		Use:   "plot <aggregated>",
		Short: "Plot an aggregated file, optionally building the dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newFreyjaClient()
			plots, err := client.Plot(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), plots)

			if dash == "" {
				return nil
			}
			if metadata == "" {
				return fmt.Errorf("--metadata is required with --dash")
			}
			if err := client.Dash(cmd.Context(), args[0], metadata, dash); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dash)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "out", "o", "freyja.pdf", "plot file name; summ- and lineage- prefixes are added")
	f.StringVar(&dash, "dash", "", "also write the HTML dashboard to this file")
	f.StringVar(&metadata, "metadata", "", "sample metadata CSV for the dashboard")
	return cmd
}

type tableOptions struct {
	summarized bool
	cutoff     float64
	keepEmpty  bool
	normalize  float64
	other      string
}

func (o *tableOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.summarized, "summarized", false, "use summarized lineages instead of raw lineages")
	f.Float64Var(&o.cutoff, "cutoff", math.NaN(), "blank abundances below this value (default from config)")
	f.BoolVar(&o.keepEmpty, "keep-empty", false, "keep lineages left without any value")
	f.Float64Var(&o.normalize, "normalize", 0, "scale each sample to sum to this value")
	f.StringVar(&o.other, "other", "", "add a column with the unattributed share under this name")
}

func (o *tableOptions) load(files []string) (*freyja.Table, error) {
	samples, err := freyja.ReadSamples(files)
	if err != nil {
		return nil, err
	}

	cutoff := o.cutoff
	if math.IsNaN(cutoff) {
		cutoff = cfg.Freyja.Cutoff
	}

	table := freyja.Pivot(samples, o.summarized).Filter(cutoff, !o.keepEmpty)
	if o.normalize > 0 {
		table = table.Normalize(o.normalize)
	}
	if o.other != "" {
		target := 1.0
		if o.normalize > 0 {
			target = o.normalize
		}
		table = table.CodeMissingAsOther(target, o.other)
	}
	return table, nil
}

func newFreyjaPivotCmd() *cobra.Command {
	var (
		opts   tableOptions
		output string
	)

	cmd := &cobra.Command{
		Use:   "pivot <file>...",
		Short: "Combine demix or aggregated files into a wide lineage table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.load(args)
			if err != nil {
				return err
			}
			if err := freyja.WriteCSV(table, output); err != nil {
				return err
			}
			log.LogInfo(fmt.Sprintf("Wrote %d samples and %d lineages to %s", len(table.Rows), len(table.Columns), output))
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "lineages.csv", "output CSV")
	return cmd
}

func newFreyjaCompareCmd() *cobra.Command {
	var opts tableOptions

	cmd := &cobra.Command{
		Use:   "compare <run1-file> <run2-file>",
		Short: "Compare lineage abundances between two runs",
		Long: `Pivot both runs, pair up abundances by sample and lineage and print
the pairs as CSV followed by the Pearson correlation and its p-value.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(args[:1])
			if err != nil {
				return err
			}
			b, err := opts.load(args[1:])
			if err != nil {
				return err
			}

			cmp := freyja.Compare(a, b)
			if err := freyja.WritePairs(cmd.OutOrStdout(), cmp.Pairs); err != nil {
				return fmt.Errorf("failed to write pairs: %w", err)
			}
			log.LogInfo(fmt.Sprintf("Pearson correlation: %.4f, p = %.4g (%d pairs)", cmp.R, cmp.P, len(cmp.Pairs)))
			return nil
		},
	}

	opts.register(cmd)
	return cmd
}

func newFreyjaMutationsCmd() *cobra.Command {
	var mutationsFile, output string

	cmd := &cobra.Command{
		Use:   "mutations <variants>...",
		Short: "Find target mutations (POS, REF, ALT) in variants files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := freyja.ReadVariants(args)
			if err != nil {
				return err
			}
			targets, err := freyja.ReadRecords(mutationsFile)
			if err != nil {
				return err
			}
			found, err := freyja.FindMutations(variants, targets)
			if err != nil {
				return err
			}
			if err := freyja.WriteRecords(found, output); err != nil {
				return err
			}
			log.LogInfo(fmt.Sprintf("Found %d matching variants", len(found.Rows)))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&mutationsFile, "mutations", "m", "", "TSV or CSV with POS, REF and ALT columns")
	f.StringVarP(&output, "out", "o", "mutations.tsv", "output file")
	cmd.MarkFlagRequired("mutations")
	return cmd
}
