package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/quality"
	"github.com/David-Botos/data-refinery/pkg/report"
	"github.com/David-Botos/data-refinery/pkg/review"
	"github.com/David-Botos/data-refinery/pkg/store"
)

var (
	reviewFormat string
	reviewColumn string
	reviewRows   []int
	reviewValues []string
	reviewRow    int
	reviewAction string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and resolve what a completed job left for a person to decide",
	Long: `review works on the stored snapshot of a completed job. missing and outliers
list what is left to decide; fill and resolve change the snapshot, append an
audit entry for every change and recompute the quality score.`,
}

var reviewMissingCmd = &cobra.Command{
	Use:   "missing <job>",
	Short: "List the columns that still hold missing values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(reviewFormat)
		if err != nil {
			return err
		}
		return withJobSnapshot(cmd.Context(), args[0], func(s *store.SQLStore, job *store.JobRecord, ds *model.Dataset) error {
			fields := review.MissingFields(ds)
			out := cmd.OutOrStdout()
			if format != report.FormatText {
				return report.Encode(out, fields, format)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tMISSING\tPERCENT")
			for _, f := range fields {
				fmt.Fprintf(tw, "%s\t%d\t%.2f%%\n", f.Column, f.Count, f.Percentage)
			}
			return tw.Flush()
		})
	},
}

var reviewOutliersCmd = &cobra.Command{
	Use:   "outliers <job>",
	Short: "List the outliers flagged while the job was cleaned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(reviewFormat)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, closeStore, err := openStore(ctx, cfg.StoreDriver, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer closeStore()

		entries, err := s.Entries(ctx, args[0])
		if err != nil {
			return err
		}
		outliers := review.Outliers(entries)
		out := cmd.OutOrStdout()
		if format != report.FormatText {
			return report.Encode(out, outliers, format)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROW\tCOLUMN\tVALUE\tEXPECTED")
		for _, o := range outliers {
			row := "-"
			if o.Row != nil {
				row = fmt.Sprint(*o.Row)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row, o.Column, o.Value, o.ExpectedRange)
		}
		return tw.Flush()
	},
}

var reviewFillCmd = &cobra.Command{
	Use:     "fill <job>",
	Short:   "Fill cells of one column by hand",
	Example: `  refinery review fill 9f1c... --column email --row 3 --value ann@example.com --row 7 --value bo@example.com`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(reviewRows) != len(reviewValues) {
			return fmt.Errorf("%w: %d rows, %d values", review.ErrLengthMismatch, len(reviewRows), len(reviewValues))
		}
		return revise(cmd, args[0], func(r *review.Reviewer) (string, error) {
			ds := r.Dataset()
			i := ds.ColumnIndex(reviewColumn)
			if i < 0 {
				return "", fmt.Errorf("%w: %s", review.ErrColumnNotFound, reviewColumn)
			}
			column := ds.Column(i)
			values := make([]interface{}, len(reviewValues))
			for n, raw := range reviewValues {
				values[n] = review.ParseCell(raw, column)
			}
			filled, err := r.Fill(reviewColumn, reviewRows, values)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("filled %d cells of %s", filled, reviewColumn), nil
		})
	},
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <job>",
	Short: "Keep or remove the row of a flagged outlier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, err := review.ParseDecision(reviewAction)
		if err != nil {
			return err
		}
		return revise(cmd, args[0], func(r *review.Reviewer) (string, error) {
			if err := r.ResolveOutlier(reviewRow, decision); err != nil {
				return "", err
			}
			if decision == review.Keep {
				return fmt.Sprintf("kept row %d", reviewRow), nil
			}
			return fmt.Sprintf("removed row %d", reviewRow), nil
		})
	},
}

// withJobSnapshot opens the store and hands fn the job and its snapshot
func withJobSnapshot(ctx context.Context, jobID string, fn func(*store.SQLStore, *store.JobRecord, *model.Dataset) error) error {
	s, closeStore, err := openStore(ctx, cfg.StoreDriver, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer closeStore()

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	ds, err := s.LoadSnapshot(ctx, jobID)
	if err != nil {
		return err
	}
	return fn(s, job, ds)
}

// revise applies one review step to a job's snapshot and saves the result
// as a revision when it changed anything
func revise(cmd *cobra.Command, jobID string, apply func(*review.Reviewer) (string, error)) error {
	ctx := cmd.Context()
	return withJobSnapshot(ctx, jobID, func(s *store.SQLStore, job *store.JobRecord, ds *model.Dataset) error {
		sink := audit.NewCollector()
		r, err := review.NewReviewer(jobID, ds, sink, logger.Named("review"))
		if err != nil {
			return err
		}
		msg, err := apply(r)
		if err != nil {
			return err
		}

		score := job.QualityScore.Float64
		if r.Changes() > 0 {
			score = quality.Evaluate(r.Dataset(), int(job.OriginalRows.Int64)).Score
			err := s.SaveRevision(ctx, store.Revision{
				JobID:        jobID,
				Dataset:      r.Dataset(),
				QualityScore: score,
				Entries:      sink.Entries(),
			})
			if err != nil {
				return err
			}
		}
		logger.Debug("Review step applied",
			zap.String("job_id", jobID),
			zap.Int("log_entries", r.Changes()),
			zap.Float64("quality_score", score))
		fmt.Fprintf(cmd.OutOrStdout(), "%s; quality score %.1f\n", msg, score)
		return nil
	})
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewMissingCmd, reviewOutliersCmd, reviewFillCmd, reviewResolveCmd)

	for _, c := range []*cobra.Command{reviewMissingCmd, reviewOutliersCmd} {
		c.Flags().StringVarP(&reviewFormat, "format", "f", "text", "output format: text, json or yaml")
	}

	reviewFillCmd.Flags().StringVar(&reviewColumn, "column", "", "column to fill")
	reviewFillCmd.Flags().IntSliceVar(&reviewRows, "row", nil, "row index to fill (repeatable, paired with --value)")
	reviewFillCmd.Flags().StringArrayVar(&reviewValues, "value", nil, "value for the matching --row (repeatable)")
	_ = reviewFillCmd.MarkFlagRequired("column")
	_ = reviewFillCmd.MarkFlagRequired("row")

	reviewResolveCmd.Flags().IntVar(&reviewRow, "row", -1, "row index of the outlier")
	reviewResolveCmd.Flags().StringVar(&reviewAction, "action", "", "keep or remove")
	_ = reviewResolveCmd.MarkFlagRequired("row")
	_ = reviewResolveCmd.MarkFlagRequired("action")
}
