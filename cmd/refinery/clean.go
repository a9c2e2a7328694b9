package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/connector"
	"github.com/David-Botos/data-refinery/pkg/engine/structural"
	"github.com/David-Botos/data-refinery/pkg/htype"
	"github.com/David-Botos/data-refinery/pkg/jobs"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
	"github.com/David-Botos/data-refinery/pkg/report"
)

var (
	cleanOutPath    string
	cleanSQLitePath string
	cleanFormat     string
	cleanPreview    int
	cleanAuditLog   string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean a local CSV or Excel file and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(cleanFormat)
		if err != nil {
			return err
		}
		ds, file, err := readLocalFile(args[0])
		if err != nil {
			return err
		}
		job := jobs.NewCleaningJob(args[0])
		return refine(cmd.Context(), job, ds, file, format, cmd.OutOrStdout())
	},
}

// refine runs the pipeline on ds, persists the result when --sqlite is set
// and writes the report and the cleaned CSV
func refine(ctx context.Context, job jobs.CleaningJob, ds *model.Dataset, file *structural.FileSource, format report.Format, out io.Writer) error {
	runner, err := newRunner()
	if err != nil {
		return err
	}

	sink := audit.NewCollector()
	res, err := runner.Run(job.ID, ds, sink, file)
	if err != nil {
		return fmt.Errorf("failed to clean %s: %w", job.Name(), err)
	}

	if cleanSQLitePath != "" {
		if err := persist(ctx, job, res, sink); err != nil {
			return err
		}
	}

	if cleanOutPath != "" {
		f, err := os.Create(cleanOutPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cleanOutPath, err)
		}
		if err := report.WriteCSV(f, res.Dataset); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", cleanOutPath, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("Cleaned dataset written",
			zap.String("path", cleanOutPath),
			zap.Int("rows", res.CleanedRowCount))
	}

	if cleanAuditLog != "" {
		if err := writeAuditLog(cleanAuditLog, sink.Entries()); err != nil {
			return err
		}
	}

	return report.Write(out, report.Build(res, sink.Entries(), cleanPreview), format)
}

func writeAuditLog(path string, entries []model.CleaningLogEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := audit.NewNDJSONExporter(f).Export(entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func persist(ctx context.Context, job jobs.CleaningJob, res *pipeline.Result, sink *audit.Collector) error {
	s, closeStore, err := openStore(ctx, config.DriverSQLite, cleanSQLitePath)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := s.CreateJob(ctx, job.Record()); err != nil {
		return err
	}
	return s.SaveResult(ctx, res, sink.Entries())
}

var detectFormat string

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Report the detected HTYPE of every column without cleaning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(detectFormat)
		if err != nil {
			return err
		}
		ds, _, err := readLocalFile(args[0])
		if err != nil {
			return err
		}
		rep, _, err := htype.NewDetector(logger.Named("htype")).Report(ds)
		if err != nil {
			return err
		}
		return report.WriteDetection(cmd.OutOrStdout(), rep, ds.Columns(), format)
	},
}

var (
	tableSource string
	tableSchema string
	tableName   string
	tableLimit  int
	tableFormat string
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Clean a Postgres or Snowflake table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(tableFormat)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		conn, err := connector.NewConnectorFactory(cfg, logger).Create(ctx, tableSource)
		if err != nil {
			return err
		}
		defer conn.Close()

		ds, err := conn.LoadTable(ctx, tableSchema, tableName, tableLimit)
		if err != nil {
			return err
		}
		job := jobs.NewTableJob(tableSource, tableSchema, tableName).WithLimit(tableLimit)
		return refine(ctx, job, ds, nil, format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd, detectCmd, tableCmd)

	for _, c := range []*cobra.Command{cleanCmd, tableCmd} {
		c.Flags().StringVarP(&cleanOutPath, "out", "o", "", "write the cleaned dataset as CSV to this path")
		c.Flags().StringVar(&cleanSQLitePath, "sqlite", "", "persist the job, audit log, flags and snapshot to this SQLite file")
		c.Flags().IntVar(&cleanPreview, "preview", 5, "number of cleaned rows to include in the report")
		c.Flags().StringVar(&cleanAuditLog, "audit-log", "", "write every cleaning log entry as NDJSON to this path")
	}
	cleanCmd.Flags().StringVarP(&cleanFormat, "format", "f", "text", "report format: text, json or yaml")
	tableCmd.Flags().StringVarP(&tableFormat, "format", "f", "text", "report format: text, json or yaml")
	detectCmd.Flags().StringVarP(&detectFormat, "format", "f", "text", "report format: text, json or yaml")

	tableCmd.Flags().StringVar(&tableSource, "source", "postgres", "warehouse: postgres or snowflake")
	tableCmd.Flags().StringVar(&tableSchema, "schema", "", "schema of the table")
	tableCmd.Flags().StringVar(&tableName, "table", "", "table name")
	tableCmd.Flags().IntVar(&tableLimit, "limit", 0, "maximum rows to read (0 = all)")
	_ = tableCmd.MarkFlagRequired("schema")
	_ = tableCmd.MarkFlagRequired("table")
}
