package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/connector"
	"github.com/David-Botos/data-refinery/pkg/loader"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/objectstore"
)

// Action defines the recommended action after an error
type Action int

const (
	// ActionContinue indicates the job result stands despite the error
	ActionContinue Action = iota
	// ActionRetry indicates the job should be requeued
	ActionRetry
	// ActionFail indicates the job should be marked failed
	ActionFail
	// ActionAbort indicates the worker pool should stop
	ActionAbort
)

// String returns the action name
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionRetry:
		return "retry"
	case ActionFail:
		return "fail"
	case ActionAbort:
		return "abort"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ErrorCategory defines categories of job errors, by increasing severity
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryWarning
	ErrorCategoryDataConversion
	ErrorCategoryValidation
	ErrorCategoryInput
	ErrorCategoryStorage
	ErrorCategoryConnectionLevel
	ErrorCategorySystemLevel
	ErrorCategoryCritical
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryWarning:
		return "Warning"
	case ErrorCategoryDataConversion:
		return "DataConversion"
	case ErrorCategoryValidation:
		return "Validation"
	case ErrorCategoryInput:
		return "Input"
	case ErrorCategoryStorage:
		return "Storage"
	case ErrorCategoryConnectionLevel:
		return "ConnectionLevel"
	case ErrorCategorySystemLevel:
		return "SystemLevel"
	case ErrorCategoryCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// MarshalText lets categories key JSON maps by name
func (ec ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(ec.String()), nil
}

// ErrorRecord represents a single error raised while running a job
type ErrorRecord struct {
	Category    ErrorCategory
	JobID       string
	Source      string
	Key         string
	ColumnName  string
	SourceValue interface{}
	Error       error
	Message     string // Derived from Error but stored for serialization
	Timestamp   time.Time
	RetryCount  int
	Recoverable bool
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:    category,
		Error:       err,
		Timestamp:   time.Now(),
		Recoverable: isRecoverable(category),
	}
	if err != nil {
		record.Message = err.Error()
	}
	return record
}

// WithJob adds job information to the error record
func (r ErrorRecord) WithJob(job CleaningJob) ErrorRecord {
	r.JobID = job.ID
	r.Source = job.Source
	r.Key = job.Name()
	return r
}

// WithColumn adds column information to the error record
func (r ErrorRecord) WithColumn(columnName string, sourceValue interface{}) ErrorRecord {
	r.ColumnName = columnName
	r.SourceValue = sourceValue
	return r
}

// WithRetry sets retry information
func (r ErrorRecord) WithRetry(retryCount, maxRetries int) ErrorRecord {
	r.RetryCount = retryCount
	r.Recoverable = isRecoverable(r.Category) && retryCount < maxRetries
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.JobID != "" {
		sb.WriteString(fmt.Sprintf("Job: %s ", r.JobID))
	}
	if r.Key != "" {
		sb.WriteString(fmt.Sprintf("Input: %s ", r.Key))
	}
	if r.ColumnName != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", r.ColumnName))
		if r.SourceValue != nil {
			sb.WriteString(fmt.Sprintf("Value: %v ", r.SourceValue))
		}
	}

	if r.Error != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Error.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	if r.RetryCount > 0 {
		sb.WriteString(fmt.Sprintf(" (Retry: %d)", r.RetryCount))
	}
	return sb.String()
}

// isRecoverable reports whether errors of a category are transient
func isRecoverable(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryStorage, ErrorCategoryConnectionLevel:
		return true
	default:
		return false
	}
}

// ErrorHandler classifies job errors, keeps counts and samples per
// category and decides what the worker does next
type ErrorHandler struct {
	logger          *zap.Logger
	errorThresholds map[ErrorCategory]int
	errorCounts     map[ErrorCategory]int
	sampleErrors    map[ErrorCategory][]ErrorRecord
	sourceErrors    map[string]int
	mu              sync.Mutex
	maxSamples      int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger: logger,
		errorThresholds: map[ErrorCategory]int{
			ErrorCategoryWarning:         1000,
			ErrorCategoryDataConversion:  500,
			ErrorCategoryValidation:      100,
			ErrorCategoryInput:           100,
			ErrorCategoryStorage:         10,
			ErrorCategoryConnectionLevel: 10,
			ErrorCategorySystemLevel:     3,
			ErrorCategoryCritical:        0,
		},
		errorCounts:  make(map[ErrorCategory]int),
		sampleErrors: make(map[ErrorCategory][]ErrorRecord),
		sourceErrors: make(map[string]int),
		maxSamples:   5,
	}
}

// WithThreshold overrides the tolerated error count of a category
func (eh *ErrorHandler) WithThreshold(category ErrorCategory, threshold int) *ErrorHandler {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.errorThresholds[category] = threshold
	return eh
}

// CategorizeError determines the category of an error. Known sentinels are
// matched first, then the message.
func (eh *ErrorHandler) CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var category ErrorCategory
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, loader.ErrUnsupportedType),
		errors.Is(err, model.ErrEmptyDataset),
		errors.Is(err, objectstore.ErrNotFound):
		category = ErrorCategoryInput

	case errors.Is(err, connector.ErrSchemaNotAllowed):
		category = ErrorCategoryValidation

	case errors.Is(err, context.DeadlineExceeded):
		category = ErrorCategoryConnectionLevel

	case errors.Is(err, context.Canceled):
		category = ErrorCategorySystemLevel

	case strings.Contains(msg, "connection") ||
		strings.Contains(msg, "refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "eof"):
		category = ErrorCategoryConnectionLevel

	case strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "serialization"):
		category = ErrorCategoryStorage

	case strings.Contains(msg, "convert") ||
		strings.Contains(msg, "parse") ||
		strings.Contains(msg, "unmarshal"):
		category = ErrorCategoryDataConversion

	case strings.Contains(msg, "validate") ||
		strings.Contains(msg, "constraint") ||
		strings.Contains(msg, "invalid"):
		category = ErrorCategoryValidation

	case strings.Contains(msg, "permission") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "disk") ||
		strings.Contains(msg, "memory"):
		category = ErrorCategorySystemLevel

	case strings.Contains(msg, "fatal") ||
		strings.Contains(msg, "panic"):
		category = ErrorCategoryCritical

	default:
		category = ErrorCategoryInput
	}

	eh.logger.Debug("Categorized error",
		zap.String("error", err.Error()),
		zap.String("category", category.String()))
	return category
}

// HandleError records an error and determines the action
func (eh *ErrorHandler) HandleError(record ErrorRecord) Action {
	eh.RecordError(record)

	switch record.Category {
	case ErrorCategoryNone, ErrorCategoryWarning:
		return ActionContinue

	case ErrorCategoryStorage, ErrorCategoryConnectionLevel:
		if record.Recoverable {
			eh.logger.Warn("Retrying after transient error",
				zap.String("job_id", record.JobID),
				zap.Int("retry", record.RetryCount+1),
				zap.String("error", record.Message))
			return ActionRetry
		}
		return ActionFail

	case ErrorCategoryCritical:
		eh.logger.Error("Critical error while cleaning",
			zap.String("category", record.Category.String()),
			zap.String("error", record.Message))
		return ActionAbort

	default:
		return ActionFail
	}
}

// ShouldRetry reports whether the job behind record may be requeued
func (eh *ErrorHandler) ShouldRetry(record ErrorRecord) bool {
	return record.Recoverable
}

// ShouldAbort reports whether accumulated errors warrant stopping the pool
func (eh *ErrorHandler) ShouldAbort() bool {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	if eh.errorCounts[ErrorCategoryCritical] > eh.errorThresholds[ErrorCategoryCritical] {
		eh.logger.Error("Aborting due to critical errors",
			zap.Int("criticalErrors", eh.errorCounts[ErrorCategoryCritical]))
		return true
	}
	for _, category := range []ErrorCategory{ErrorCategorySystemLevel, ErrorCategoryConnectionLevel} {
		if count := eh.errorCounts[category]; count >= eh.errorThresholds[category] {
			eh.logger.Error("Aborting due to error threshold",
				zap.String("category", category.String()),
				zap.Int("errorCount", count),
				zap.Int("threshold", eh.errorThresholds[category]))
			return true
		}
	}
	return false
}

// RecordError saves an error occurrence
func (eh *ErrorHandler) RecordError(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++

	samples := eh.sampleErrors[record.Category]
	if len(samples) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(samples, record)
	}
	if record.Source != "" {
		eh.sourceErrors[record.Source]++
	}

	logLevel := zap.InfoLevel
	switch record.Category {
	case ErrorCategoryWarning, ErrorCategoryStorage, ErrorCategoryConnectionLevel:
		logLevel = zap.WarnLevel
	case ErrorCategorySystemLevel, ErrorCategoryCritical:
		logLevel = zap.ErrorLevel
	}
	eh.logger.Log(logLevel, "Job error",
		zap.String("category", record.Category.String()),
		zap.String("job_id", record.JobID),
		zap.String("input", record.Key),
		zap.String("error", record.Message),
		zap.Bool("recoverable", record.Recoverable),
		zap.Int("retryCount", record.RetryCount))
}

// GetErrorSummary returns the error count per category
func (eh *ErrorHandler) GetErrorSummary() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	summary := make(map[ErrorCategory]int, len(eh.errorCounts))
	for category, count := range eh.errorCounts {
		summary[category] = count
	}
	return summary
}

// GetErrorSamples returns sample errors for each category
func (eh *ErrorHandler) GetErrorSamples() map[ErrorCategory][]ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make(map[ErrorCategory][]ErrorRecord, len(eh.sampleErrors))
	for category, records := range eh.sampleErrors {
		samples[category] = append([]ErrorRecord(nil), records...)
	}
	return samples
}

// GetSourceErrorCounts returns error counts by job source
func (eh *ErrorHandler) GetSourceErrorCounts() map[string]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	counts := make(map[string]int, len(eh.sourceErrors))
	for source, count := range eh.sourceErrors {
		counts[source] = count
	}
	return counts
}

// IsErrorThresholdExceeded checks if any error category has exceeded its threshold
func (eh *ErrorHandler) IsErrorThresholdExceeded() bool {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	for category, count := range eh.errorCounts {
		if threshold, ok := eh.errorThresholds[category]; ok && count > threshold {
			return true
		}
	}
	return false
}
