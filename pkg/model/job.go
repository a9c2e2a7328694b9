package model

// JobStatus is the lifecycle state of a cleaning job
type JobStatus string

// Job states. A job moves pending -> processing -> completed or failed; a
// retryable failure moves it back to pending.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job sources
const (
	SourceUpload    = "upload"
	SourcePostgres  = "postgres"
	SourceSnowflake = "snowflake"
)

// Terminal reports whether no further transitions are expected
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}
