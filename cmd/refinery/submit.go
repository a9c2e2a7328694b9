package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/David-Botos/data-refinery/pkg/jobs"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/objectstore"
)

var (
	submitUpload string
	submitSource string
	submitSchema string
	submitTable  string
)

var submitCmd = &cobra.Command{
	Use:   "submit [key]",
	Short: "Enqueue a cleaning job for an uploaded object or a warehouse table",
	Example: `  refinery submit uploads/customers.csv
  refinery submit uploads/customers.csv --upload ./customers.csv
  refinery submit --source snowflake --schema PUBLIC --table CUSTOMERS`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var job jobs.CleaningJob
		switch {
		case submitTable != "":
			if len(args) > 0 {
				return errors.New("give either an object key or --table, not both")
			}
			job = jobs.NewTableJob(submitSource, submitSchema, submitTable)
		case len(args) == 1:
			job = jobs.NewCleaningJob(args[0])
		default:
			return errors.New("an object key or --table is required")
		}
		job = job.WithMaxRetries(cfg.RetryAttempts)

		if submitUpload != "" {
			if job.IsTable() {
				return errors.New("--upload applies to object keys only")
			}
			if err := uploadFile(cmd, job.FileKey, submitUpload); err != nil {
				return err
			}
		}

		s, closeStore, err := openStore(ctx, cfg.StoreDriver, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := s.CreateJob(ctx, job.Record()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), job.ID)
		return nil
	},
}

func uploadFile(cmd *cobra.Command, key, path string) error {
	if cfg.ObjectStore == nil {
		return errors.New("object store is not configured (set OBJECTSTORE_ENDPOINT)")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	ms, err := objectstore.NewMinioStore(cfg.ObjectStore, logger.Named("objectstore"))
	if err != nil {
		return err
	}
	if err := ms.EnsureBucket(cmd.Context()); err != nil {
		return err
	}
	contentType := objectstore.ContentType(objectstore.FileType(key))
	return ms.Put(cmd.Context(), key, f, info.Size(), contentType)
}

var (
	listStatus string
	listLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, closeStore, err := openStore(ctx, cfg.StoreDriver, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer closeStore()

		records, err := s.ListJobs(ctx, model.JobStatus(listStatus), listLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSOURCE\tINPUT\tSTATUS\tATTEMPTS\tQUALITY\tROWS\tERROR")
		for _, r := range records {
			quality, rows := "-", "-"
			if r.QualityScore.Valid {
				quality = fmt.Sprintf("%.1f", r.QualityScore.Float64)
			}
			if r.OriginalRows.Valid {
				rows = fmt.Sprintf("%d -> %d", r.OriginalRows.Int64, r.CleanedRows.Int64)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.ID, r.Source, r.FileKey, r.Status, r.Attempts, quality, rows, r.Error.String)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(submitCmd, jobsCmd)
	submitCmd.Flags().StringVar(&submitUpload, "upload", "", "local file to upload under the key before enqueueing")
	submitCmd.Flags().StringVar(&submitSource, "source", "postgres", "warehouse of --table: postgres or snowflake")
	submitCmd.Flags().StringVar(&submitSchema, "schema", "", "schema of --table")
	submitCmd.Flags().StringVar(&submitTable, "table", "", "warehouse table to clean instead of an object")

	jobsCmd.Flags().StringVar(&listStatus, "status", "", "only jobs in this status: pending, processing, completed or failed")
	jobsCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum jobs to list")
}
