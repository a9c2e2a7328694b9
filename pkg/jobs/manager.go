// Package jobs runs cleaning jobs from the result store on a pool of
// workers. Jobs are claimed from the store, so several worker processes can
// share one Postgres store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
	"github.com/David-Botos/data-refinery/pkg/store"
)

// ErrAborted is returned when accumulated errors stop the pool
var ErrAborted = errors.New("worker pool aborted after repeated errors")

// ManagerConfig sizes and paces the worker pool
type ManagerConfig struct {
	WorkerCount    int
	MaxRetries     int
	ClaimBatchSize int
	PollInterval   time.Duration
	JobTimeout     time.Duration

	// VerifySnapshots reads each saved snapshot back after the job
	VerifySnapshots bool

	// ErrorThresholds overrides the error handler's tolerated counts
	ErrorThresholds map[ErrorCategory]int
}

// ManagerConfigFromConfig reads the worker settings of cfg
func ManagerConfigFromConfig(cfg *config.Config) ManagerConfig {
	return ManagerConfig{
		WorkerCount:    cfg.WorkerPoolSize,
		MaxRetries:     cfg.RetryAttempts,
		ClaimBatchSize: cfg.ClaimBatchSize,
		PollInterval:   cfg.PollInterval,
		JobTimeout:     cfg.JobTimeout,

		VerifySnapshots: cfg.VerifySnapshots,
		ErrorThresholds: errorThresholds(cfg.ErrorThresholds),
	}
}

// errorThresholds keeps the configured categories, skipping negative values
func errorThresholds(c config.ErrorThresholdConfig) map[ErrorCategory]int {
	thresholds := make(map[ErrorCategory]int)
	for category, n := range map[ErrorCategory]int{
		ErrorCategoryInput:           c.Input,
		ErrorCategoryStorage:         c.Storage,
		ErrorCategoryConnectionLevel: c.Connection,
		ErrorCategorySystemLevel:     c.System,
		ErrorCategoryCritical:        c.Critical,
	} {
		if n >= 0 {
			thresholds[category] = n
		}
	}
	return thresholds
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.WorkerCount <= 0 {
		c.WorkerCount = calculateWorkerCount()
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.ClaimBatchSize < c.WorkerCount {
		c.ClaimBatchSize = c.WorkerCount
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	return c
}

// Manager claims pending jobs from the store and feeds them to workers
type Manager struct {
	cfg          ManagerConfig
	store        store.ResultStore
	errorHandler *ErrorHandler
	metrics      *Metrics
	logger       *zap.Logger
	workers      []*Worker
}

// NewManager creates a worker pool over a store and its input sources
func NewManager(
	cfg ManagerConfig,
	resultStore store.ResultStore,
	sources Sources,
	runner *pipeline.Runner,
	logger *zap.Logger,
) (*Manager, error) {
	if resultStore == nil {
		return nil, errors.New("result store is required")
	}
	if runner == nil {
		return nil, errors.New("pipeline runner is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	cfg = cfg.withDefaults()

	var verifier *Verifier
	if cfg.VerifySnapshots {
		reader, ok := resultStore.(SnapshotReader)
		if !ok {
			return nil, errors.New("snapshot verification needs a store that reads snapshots back")
		}
		verifier = NewVerifier(reader, logger.Named("verifier"))
	}

	errorHandler := NewErrorHandler(logger.Named("errors"))
	for category, n := range cfg.ErrorThresholds {
		errorHandler.WithThreshold(category, n)
	}

	m := &Manager{
		cfg:          cfg,
		store:        resultStore,
		errorHandler: errorHandler,
		metrics:      NewMetrics(logger.Named("metrics")),
		logger:       logger,
	}
	m.workers = make([]*Worker, cfg.WorkerCount)
	for i := range m.workers {
		m.workers[i] = NewWorker(i, sources, runner, resultStore, m.errorHandler, logger).
			WithJobTimeout(cfg.JobTimeout).
			WithVerifier(verifier)
	}
	return m, nil
}

// Metrics returns the pool's metrics
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Errors returns the pool's error handler
func (m *Manager) Errors() *ErrorHandler {
	return m.errorHandler
}

// Summary returns the metrics digest with the error handler's counts and
// samples
func (m *Manager) Summary() Summary {
	s := m.metrics.Summary()
	s.ErrorCounts = m.errorHandler.GetErrorSummary()
	if samples := m.errorHandler.GetErrorSamples(); len(samples) > 0 {
		s.ErrorSamples = make(map[ErrorCategory][]string, len(samples))
		for category, records := range samples {
			for _, r := range records {
				s.ErrorSamples[category] = append(s.ErrorSamples[category], r.String())
			}
		}
	}
	s.ErrorThresholdExceeded = m.errorHandler.IsErrorThresholdExceeded()
	return s
}

// Workers returns the pool's workers
func (m *Manager) Workers() []*Worker {
	return m.workers
}

// Submit enqueues a job in the store
func (m *Manager) Submit(ctx context.Context, job CleaningJob) error {
	if err := m.store.CreateJob(ctx, job.Record()); err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	return nil
}

// Run processes jobs until ctx is cancelled or the error handler aborts
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	return m.run(ctx, false)
}

// Drain processes jobs until no pending job is left
func (m *Manager) Drain(ctx context.Context) (Summary, error) {
	return m.run(ctx, true)
}

func (m *Manager) run(ctx context.Context, untilIdle bool) (Summary, error) {
	m.logger.Info("Starting worker pool",
		zap.Int("workers", m.cfg.WorkerCount),
		zap.Int("claimBatchSize", m.cfg.ClaimBatchSize),
		zap.Duration("pollInterval", m.cfg.PollInterval),
		zap.Bool("untilIdle", untilIdle))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// The job buffer holds a full claim so dispatch never blocks
	jobQueue := make(chan CleaningJob, m.cfg.ClaimBatchSize)
	resultQueue := make(chan Result, m.cfg.WorkerCount)

	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Start(workerCtx, jobQueue, resultQueue)
		}(w)
	}
	go func() {
		wg.Wait()
		close(resultQueue)
	}()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	inFlight := 0
	warned := false
	var runErr error
loop:
	for {
		if ctx.Err() == nil {
			claimed, err := m.claim(ctx, m.cfg.ClaimBatchSize-inFlight)
			if err != nil {
				m.logger.Error("Failed to claim jobs", zap.Error(err))
			}
			for _, job := range claimed {
				jobQueue <- job
				inFlight++
			}
		}
		if untilIdle && inFlight == 0 {
			break
		}

		select {
		case <-ctx.Done():
			break loop
		case result, ok := <-resultQueue:
			if !ok {
				break loop
			}
			inFlight--
			m.metrics.RecordResult(result)
			if m.errorHandler.ShouldAbort() {
				runErr = ErrAborted
				cancelWorkers()
				break loop
			}
			if !warned && m.errorHandler.IsErrorThresholdExceeded() {
				warned = true
				m.logger.Warn("Error threshold exceeded, pool keeps running",
					zap.Any("errors", m.errorHandler.GetErrorSummary()))
			}
		case <-ticker.C:
		}
	}

	close(jobQueue)
	for result := range resultQueue {
		m.metrics.RecordResult(result)
	}
	m.requeueUnstarted(jobQueue)

	m.metrics.Complete()
	if runErr != nil {
		return m.Summary(), runErr
	}
	if untilIdle {
		// Cancellation cuts a drain short
		return m.Summary(), ctx.Err()
	}
	return m.Summary(), nil
}

func (m *Manager) claim(ctx context.Context, limit int) ([]CleaningJob, error) {
	if limit <= 0 {
		return nil, nil
	}
	records, err := m.store.ClaimPendingJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	jobs := make([]CleaningJob, len(records))
	for i, rec := range records {
		jobs[i] = JobFromRecord(rec, m.cfg.MaxRetries)
	}
	return jobs, nil
}

// requeueUnstarted returns claimed jobs that no worker picked up to pending
func (m *Manager) requeueUnstarted(jobQueue <-chan CleaningJob) {
	ctx := context.Background()
	for job := range jobQueue {
		if err := m.store.Requeue(ctx, job.ID, "worker pool stopped before the job started"); err != nil {
			m.logger.Error("Failed to requeue unstarted job",
				zap.String("job_id", job.ID),
				zap.Error(err))
			continue
		}
		m.logger.Info("Requeued unstarted job", zap.String("job_id", job.ID))
	}
}

// calculateWorkerCount uses three quarters of the CPUs, between 1 and 8
func calculateWorkerCount() int {
	workers := int(math.Ceil(float64(runtime.NumCPU()) * 0.75))
	if workers > 8 {
		workers = 8
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
