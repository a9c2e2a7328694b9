package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/engine/structural"
	"github.com/David-Botos/data-refinery/pkg/loader"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/objectstore"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
	"github.com/David-Botos/data-refinery/pkg/store"
)

// WorkerState represents the current state of a worker
type WorkerState string

const (
	WorkerStateIdle      WorkerState = "idle"
	WorkerStateWorking   WorkerState = "working"
	WorkerStateCompleted WorkerState = "completed"
	WorkerStateError     WorkerState = "error"
)

// TableLoader reads a warehouse table into a dataset
type TableLoader interface {
	LoadTable(ctx context.Context, schema, table string, limit int) (*model.Dataset, error)
}

// Sources are where workers read job inputs from. Either may be empty when
// the deployment only serves one kind of job.
type Sources struct {
	Objects objectstore.Store
	Tables  map[string]TableLoader
}

// Worker runs cleaning jobs one at a time
type Worker struct {
	ID           int
	sources      Sources
	runner       *pipeline.Runner
	store        store.ResultStore
	errorHandler *ErrorHandler
	logger       *zap.Logger
	jobTimeout   time.Duration
	verifier     *Verifier
	state        WorkerState
	currentJob   *CleaningJob
	lastResult   *Result
	stateLock    sync.RWMutex
}

// NewWorker creates a new worker
func NewWorker(
	id int,
	sources Sources,
	runner *pipeline.Runner,
	resultStore store.ResultStore,
	errorHandler *ErrorHandler,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		ID:           id,
		sources:      sources,
		runner:       runner,
		store:        resultStore,
		errorHandler: errorHandler,
		logger:       logger.With(zap.Int("workerID", id)),
		state:        WorkerStateIdle,
	}
}

// WithJobTimeout bounds how long a single job may run
func (w *Worker) WithJobTimeout(timeout time.Duration) *Worker {
	w.jobTimeout = timeout
	return w
}

// WithVerifier reads every saved snapshot back and compares it with the
// cleaned dataset
func (w *Worker) WithVerifier(v *Verifier) *Worker {
	w.verifier = v
	return w
}

// GetState returns the current state of the worker
func (w *Worker) GetState() WorkerState {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.state
}

func (w *Worker) setState(state WorkerState) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	prevState := w.state
	w.state = state
	if prevState != state {
		w.logger.Debug("Worker state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)))
	}
}

// GetCurrentJob returns the job currently being processed
func (w *Worker) GetCurrentJob() *CleaningJob {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.currentJob
}

// LastResult returns the result of the most recent job
func (w *Worker) LastResult() *Result {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.lastResult
}

func (w *Worker) setCurrentJob(job *CleaningJob) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	w.currentJob = job
}

func (w *Worker) finishJob(result *Result) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	w.currentJob = nil
	w.lastResult = result
}

// Start processes jobs until the channel closes or ctx is cancelled
func (w *Worker) Start(ctx context.Context, jobs <-chan CleaningJob, results chan<- Result) {
	w.logger.Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping due to context cancellation")
			w.setState(WorkerStateCompleted)
			return

		case job, ok := <-jobs:
			if !ok {
				w.logger.Info("Worker stopping due to closed job channel")
				w.setState(WorkerStateCompleted)
				return
			}

			result := w.ProcessJob(ctx, job)

			select {
			case results <- result:
			case <-ctx.Done():
				w.logger.Warn("Context cancelled while sending result",
					zap.String("job_id", job.ID))
				w.setState(WorkerStateCompleted)
				return
			}
		}
	}
}

// ProcessJob loads the job input, runs the pipeline with a fresh audit
// collector and stores the outcome. Failures are requeued or marked failed
// in the store before ProcessJob returns.
func (w *Worker) ProcessJob(ctx context.Context, job CleaningJob) Result {
	w.setCurrentJob(&job)
	w.setState(WorkerStateWorking)

	result := NewResult(job, w.ID)
	w.logger.Info("Starting cleaning job",
		zap.String("job_id", job.ID),
		zap.String("source", job.Source),
		zap.String("input", job.Name()),
		zap.Int("retryCount", job.RetryCount))

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	if err := w.clean(jobCtx, job, result); err != nil {
		w.handleFailure(ctx, job, result, err)
		result.Complete(false)
		w.setState(WorkerStateError)
		w.logger.Warn("Cleaning job failed",
			zap.String("job_id", job.ID),
			zap.Bool("requeued", result.Requeued),
			zap.String("error", result.ErrorMessage()),
			zap.Duration("duration", time.Since(result.StartTime)))
	} else {
		result.Complete(true)
		w.setState(WorkerStateIdle)
		w.logger.Info("Cleaning job completed",
			zap.String("job_id", job.ID),
			zap.Int("rowsIn", result.RowsIn()),
			zap.Int("rowsOut", result.RowsOut()),
			zap.Float64("qualityScore", result.Pipeline.QualityScore),
			zap.Duration("duration", result.Duration))
	}

	w.finishJob(result)
	return *result
}

func (w *Worker) clean(ctx context.Context, job CleaningJob, result *Result) error {
	// Claimed jobs can wait in the queue; restamp the start and clear the
	// error of an earlier attempt
	if err := w.store.MarkProcessing(ctx, job.ID); err != nil {
		return err
	}

	ds, file, err := w.load(ctx, job)
	if err != nil {
		return err
	}
	if file != nil {
		result.BytesRead = int64(len(file.Bytes))
	}

	sink := audit.NewCollector()
	res, err := w.runner.Run(job.ID, ds, sink, file)
	if err != nil {
		return fmt.Errorf("failed to run pipeline: %w", err)
	}
	result.Pipeline = res
	result.LogEntries = sink.Len()
	result.Flags = len(res.Flags.All())

	if err := w.store.SaveResult(ctx, res, sink.Entries()); err != nil {
		return err
	}

	if w.verifier != nil {
		report, err := w.verifier.Verify(ctx, job.ID, res.Dataset)
		switch {
		case err != nil:
			result.AddWarning(fmt.Sprintf("snapshot verification failed: %v", err))
		case !report.Passed():
			result.AddWarning("snapshot differs from the cleaned dataset")
			for _, d := range report.SampleDiscrepancies {
				record := NewErrorRecord(fmt.Errorf("row %d: %s", d.Row, d.Discrepancy), ErrorCategoryWarning).
					WithJob(job).
					WithColumn(d.ColumnName, d.StoredValue)
				result.AddError(record)
				w.errorHandler.RecordError(record)
			}
		}
		result.Verified = report
	}
	return nil
}

// load reads the job input. Uploads also return the raw file for the
// structural checks that need it.
func (w *Worker) load(ctx context.Context, job CleaningJob) (*model.Dataset, *structural.FileSource, error) {
	if job.IsTable() {
		tables, ok := w.sources.Tables[job.Source]
		if !ok || tables == nil {
			return nil, nil, fmt.Errorf("no connector for source %q", job.Source)
		}
		ds, err := tables.LoadTable(ctx, job.Schema, job.Table, job.Limit)
		if err != nil {
			return nil, nil, err
		}
		return ds, nil, nil
	}

	if w.sources.Objects == nil {
		return nil, nil, errors.New("no object store configured for uploads")
	}
	data, info, err := objectstore.ReadAll(ctx, w.sources.Objects, job.FileKey)
	if err != nil {
		return nil, nil, err
	}
	fileType := job.FileType
	if fileType == "" {
		fileType = objectstore.FileType(job.FileKey)
	}
	ds, err := loader.Load(data, fileType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", job.FileKey, err)
	}

	w.logger.Debug("Loaded upload",
		zap.String("key", info.Key),
		zap.Int64("size", info.Size),
		zap.Int("rows", ds.NumRows()),
		zap.Int("columns", ds.NumCols()))
	return ds, &structural.FileSource{Bytes: data, Type: loader.NormalizeType(fileType)}, nil
}

// handleFailure records the error and moves the job to pending or failed.
// A job interrupted by shutdown goes back to pending without using a retry.
func (w *Worker) handleFailure(ctx context.Context, job CleaningJob, result *Result, err error) {
	storeCtx := context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		record := NewErrorRecord(err, ErrorCategoryWarning).WithJob(job)
		result.AddError(record)
		w.errorHandler.RecordError(record)
		w.requeue(storeCtx, job, result, "interrupted: "+record.Message)
		return
	}

	record := NewErrorRecord(err, w.errorHandler.CategorizeError(err)).
		WithJob(job).
		WithRetry(job.RetryCount, job.MaxRetries)
	result.AddError(record)

	action := w.errorHandler.HandleError(record)
	if action == ActionRetry && w.errorHandler.ShouldRetry(record) && job.IsRetryable() {
		w.requeue(storeCtx, job, result, record.Message)
		return
	}
	if markErr := w.store.MarkFailed(storeCtx, job.ID, record.Message); markErr != nil {
		w.logger.Error("Failed to mark job failed",
			zap.String("job_id", job.ID),
			zap.Error(markErr))
	}
}

func (w *Worker) requeue(ctx context.Context, job CleaningJob, result *Result, reason string) {
	if err := w.store.Requeue(ctx, job.ID, reason); err != nil {
		w.logger.Error("Failed to requeue job",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return
	}
	result.Requeued = true
}
