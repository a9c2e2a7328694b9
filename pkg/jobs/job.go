package jobs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/objectstore"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
	"github.com/David-Botos/data-refinery/pkg/store"
)

// DefaultMaxRetries bounds how often a job is attempted
const DefaultMaxRetries = 3

// CleaningJob is one unit of work: an uploaded file or a warehouse table
// to run through the pipeline
type CleaningJob struct {
	ID         string    // Unique job identifier
	Source     string    // upload, postgres or snowflake
	FileKey    string    // Object key of an upload
	FileType   string    // csv, txt, xlsx, xls
	Schema     string    // Warehouse schema of a table job
	Table      string    // Warehouse table of a table job
	Limit      int       // Row limit of a table job, 0 reads everything
	CreatedAt  time.Time // Job creation timestamp
	RetryCount int       // Number of retries attempted
	MaxRetries int       // Maximum allowed retries
}

// NewCleaningJob creates a job for an uploaded object. The file type comes
// from the key's extension.
func NewCleaningJob(fileKey string) CleaningJob {
	return CleaningJob{
		ID:         uuid.New().String(),
		Source:     model.SourceUpload,
		FileKey:    fileKey,
		FileType:   objectstore.FileType(fileKey),
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewTableJob creates a job for a warehouse table
func NewTableJob(source, schema, table string) CleaningJob {
	return CleaningJob{
		ID:         uuid.New().String(),
		Source:     strings.ToLower(source),
		Schema:     schema,
		Table:      table,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
}

// WithMaxRetries sets the maximum retry count and returns the modified job
func (j CleaningJob) WithMaxRetries(maxRetries int) CleaningJob {
	j.MaxRetries = maxRetries
	return j
}

// WithLimit caps the rows read from a warehouse table
func (j CleaningJob) WithLimit(limit int) CleaningJob {
	j.Limit = limit
	return j
}

// IsTable reports whether the job reads a warehouse table
func (j CleaningJob) IsTable() bool {
	return j.Source != model.SourceUpload
}

// IsRetryable checks if the job can be retried
func (j CleaningJob) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry increments the retry count and returns the modified job
func (j CleaningJob) Retry() CleaningJob {
	j.RetryCount++
	return j
}

// Name returns the object key or the qualified table name
func (j CleaningJob) Name() string {
	if j.IsTable() {
		return fmt.Sprintf("%s.%s", j.Schema, j.Table)
	}
	return j.FileKey
}

// Record converts the job to its stored form. Table jobs keep the
// qualified table name in the key column.
func (j CleaningJob) Record() store.JobRecord {
	return store.JobRecord{
		ID:        j.ID,
		Source:    j.Source,
		FileKey:   j.Name(),
		FileType:  j.FileType,
		Status:    model.JobPending,
		CreatedAt: j.CreatedAt,
	}
}

// JobFromRecord rebuilds a job from its stored form. Attempts already made
// count as retries, so the claim that started this run is not one.
func JobFromRecord(rec store.JobRecord, maxRetries int) CleaningJob {
	job := CleaningJob{
		ID:         rec.ID,
		Source:     rec.Source,
		FileType:   rec.FileType,
		CreatedAt:  rec.CreatedAt,
		MaxRetries: maxRetries,
	}
	if rec.Attempts > 0 {
		job.RetryCount = rec.Attempts - 1
	}
	if job.IsTable() {
		job.Schema, job.Table = splitQualified(rec.FileKey)
	} else {
		job.FileKey = rec.FileKey
	}
	return job
}

func splitQualified(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// Result represents the outcome of one job run
type Result struct {
	JobID      string
	Source     string
	Name       string
	Success    bool
	Requeued   bool
	Pipeline   *pipeline.Result
	LogEntries int
	Flags      int
	BytesRead  int64
	Verified   *VerificationReport
	Errors     []ErrorRecord
	Warnings   []string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	RetryCount int
	WorkerID   int
}

// NewResult initializes a result for a job
func NewResult(job CleaningJob, workerID int) *Result {
	return &Result{
		JobID:      job.ID,
		Source:     job.Source,
		Name:       job.Name(),
		StartTime:  time.Now(),
		RetryCount: job.RetryCount,
		WorkerID:   workerID,
		Errors:     make([]ErrorRecord, 0),
		Warnings:   make([]string, 0),
	}
}

// Complete marks the run as complete and calculates duration
func (r *Result) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// AddError adds an error to the result
func (r *Result) AddError(err ErrorRecord) {
	r.Errors = append(r.Errors, err)
	r.Success = false
}

// AddWarning adds a warning to the result
func (r *Result) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// HasErrors checks if any errors occurred
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorMessage returns the message stored with a failed job
func (r *Result) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[len(r.Errors)-1].Message
}

// RowsIn returns the row count before cleaning
func (r *Result) RowsIn() int {
	if r.Pipeline == nil {
		return 0
	}
	return r.Pipeline.OriginalRowCount
}

// RowsOut returns the row count after cleaning
func (r *Result) RowsOut() int {
	if r.Pipeline == nil {
		return 0
	}
	return r.Pipeline.CleanedRowCount
}
