package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/David-Botos/data-refinery/pkg/compare"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/report"
)

var (
	compareMapping     map[string]string
	compareThreshold   float64
	compareSignificant float64
	compareJobs        bool
	compareFormat      string
)

var compareCmd = &cobra.Command{
	Use:   "compare <first> <second>",
	Short: "Match the headers of two datasets and report how their numeric totals changed",
	Long: `compare pairs the columns of two datasets, for example two reporting periods,
by header similarity, sums every numeric column of both, and reports the change
between them. Changes at or above --significant percent are listed separately.
Arguments are local CSV or Excel files, or job ids with --jobs.`,
	Example: `  refinery compare q1.csv q2.csv
  refinery compare q1.csv q2.csv --map revenue=total_revenue --map units=qty
  refinery compare --jobs 9f1c... 4be2... --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(compareFormat)
		if err != nil {
			return err
		}
		left, right, err := loadPair(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		opts := compare.DefaultOptions()
		opts.MatchThreshold = compareThreshold
		opts.SignificantChangePct = compareSignificant
		var mapping map[string]string
		if len(compareMapping) > 0 {
			mapping = compareMapping
		}

		res, err := compare.NewComparer(opts, logger.Named("compare")).Compare(left, right, mapping)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if format == report.FormatText {
			return writeComparison(out, res, opts.SignificantChangePct)
		}
		return report.Encode(out, res, format)
	},
}

// loadPair reads both datasets from disk or, with --jobs, from the snapshots
// of two completed jobs
func loadPair(ctx context.Context, first, second string) (*model.Dataset, *model.Dataset, error) {
	if !compareJobs {
		left, _, err := readLocalFile(first)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := readLocalFile(second)
		if err != nil {
			return nil, nil, err
		}
		return left, right, nil
	}

	s, closeStore, err := openStore(ctx, cfg.StoreDriver, cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	defer closeStore()
	left, err := s.LoadSnapshot(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	right, err := s.LoadSnapshot(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func writeComparison(w io.Writer, res *compare.Result, significantPct float64) error {
	significant := make(map[string]bool, len(res.Significant))
	for _, d := range res.Significant {
		significant[d.Column] = true
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tMATCHED TO\tSIMILARITY")
	for _, m := range res.Mapping {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\n", m.Column, m.MatchedTo, m.Similarity)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "COLUMN\tFIRST\tSECOND\tCHANGE\t")
	for _, d := range res.Deltas {
		change := "n/a"
		if d.ChangePct != nil {
			change = fmt.Sprintf("%+.2f%%", *d.ChangePct)
		}
		mark := ""
		if significant[d.Column] {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\t%s\n", d.Column, d.Period1, d.Period2, change, mark)
	}
	fmt.Fprintf(tw, "\n%d of %d columns changed by %g%% or more\n", len(res.Significant), len(res.Deltas), significantPct)
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(compareCmd)
	defaults := compare.DefaultOptions()
	compareCmd.Flags().StringToStringVar(&compareMapping, "map", nil, "confirmed column pair first=second; replaces the fuzzy matches (repeatable)")
	compareCmd.Flags().Float64Var(&compareThreshold, "threshold", defaults.MatchThreshold, "minimum header similarity (0-100) for a fuzzy match")
	compareCmd.Flags().Float64Var(&compareSignificant, "significant", defaults.SignificantChangePct, "absolute percent change reported as significant")
	compareCmd.Flags().BoolVar(&compareJobs, "jobs", false, "arguments are job ids whose snapshots are compared")
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "text", "output format: text, json or yaml")
}
