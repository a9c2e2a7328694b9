package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/jobs"
	"github.com/David-Botos/data-refinery/pkg/report"
)

var (
	workerOnce    bool
	workerCount   int
	workerMetrics string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the worker pool against the configured job store",
	Long: `worker claims pending jobs from the result store, loads their input from the
object store or a warehouse, cleans it and saves the result. It runs until
interrupted, or with --once until no pending job is left.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(workerMetrics)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, closeStore, err := openStore(ctx, cfg.StoreDriver, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer closeStore()

		sources, closeSources, err := openSources(ctx)
		if err != nil {
			return err
		}
		defer closeSources()

		runner, err := newRunner()
		if err != nil {
			return err
		}

		mcfg := jobs.ManagerConfigFromConfig(cfg)
		if workerCount > 0 {
			mcfg.WorkerCount = workerCount
		}
		manager, err := jobs.NewManager(mcfg, s, sources, runner, logger.Named("jobs"))
		if err != nil {
			return err
		}

		var summary jobs.Summary
		if workerOnce {
			summary, err = manager.Drain(ctx)
		} else {
			summary, err = manager.Run(ctx)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker pool stopped", zap.Error(err))
		}

		out := cmd.OutOrStdout()
		if format == report.FormatText {
			fmt.Fprint(out, manager.Metrics().GenerateMetricsReport())
		} else if werr := report.Encode(out, summary, format); werr != nil {
			return werr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "exit once no pending job is left")
	workerCmd.Flags().IntVar(&workerCount, "workers", 0, "number of workers (overrides WORKER_POOL_SIZE)")
	workerCmd.Flags().StringVar(&workerMetrics, "metrics", "text", "format of the final metrics: text, json or yaml")
}
