package jobs

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SourceMetrics tracks metrics for one job source
type SourceMetrics struct {
	Source     string `json:"source"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Requeued   int    `json:"requeued"`
	RowsIn     int64  `json:"rows_in"`
	RowsOut    int64  `json:"rows_out"`
	BytesRead  int64  `json:"bytes_read"`
	LogEntries int    `json:"log_entries"`
}

// Total returns the number of job runs of the source
func (sm *SourceMetrics) Total() int {
	return sm.Completed + sm.Failed + sm.Requeued
}

// ThroughputSample represents a point-in-time throughput measurement
type ThroughputSample struct {
	Timestamp     time.Time
	RowsPerSecond float64
	JobsCompleted int
	MemoryUsageMB float64
}

// Metrics tracks job runs of a worker pool
type Metrics struct {
	mu                sync.Mutex
	logger            *zap.Logger
	StartTime         time.Time
	EndTime           time.Time
	Sources           map[string]*SourceMetrics
	Completed         int
	Failed            int
	Requeued          int
	TotalRowsIn       int64
	TotalRowsOut      int64
	TotalBytesRead    int64
	TotalLogEntries   int
	TotalFlags        int
	Verified          int
	Unverified        int
	qualitySum        float64
	PeakMemoryUsage   int64
	ErrorCounts       map[ErrorCategory]int
	WorkerUtilization map[int]time.Duration
	ThroughputSamples []ThroughputSample
	sampleInterval    time.Duration
	lastSampleTime    time.Time
}

// NewMetrics creates a new Metrics instance
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	return &Metrics{
		logger:            logger,
		StartTime:         now,
		Sources:           make(map[string]*SourceMetrics),
		ErrorCounts:       make(map[ErrorCategory]int),
		WorkerUtilization: make(map[int]time.Duration),
		ThroughputSamples: make([]ThroughputSample, 0),
		sampleInterval:    30 * time.Second,
		lastSampleTime:    now,
	}
}

// RecordResult records the outcome of a job run
func (m *Metrics) RecordResult(result Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.Sources[result.Source]
	if !ok {
		sm = &SourceMetrics{Source: result.Source}
		m.Sources[result.Source] = sm
	}

	switch {
	case result.Success:
		m.Completed++
		sm.Completed++
		m.TotalRowsIn += int64(result.RowsIn())
		m.TotalRowsOut += int64(result.RowsOut())
		m.TotalLogEntries += result.LogEntries
		m.TotalFlags += result.Flags
		m.qualitySum += result.Pipeline.QualityScore
		sm.RowsIn += int64(result.RowsIn())
		sm.RowsOut += int64(result.RowsOut())
		sm.LogEntries += result.LogEntries
		if result.Verified != nil {
			if result.Verified.Passed() {
				m.Verified++
			} else {
				m.Unverified++
			}
		}
	case result.Requeued:
		m.Requeued++
		sm.Requeued++
	default:
		m.Failed++
		sm.Failed++
	}
	for _, err := range result.Errors {
		m.ErrorCounts[err.Category]++
	}
	m.TotalBytesRead += result.BytesRead
	sm.BytesRead += result.BytesRead
	m.WorkerUtilization[result.WorkerID] += result.Duration

	if now := time.Now(); now.Sub(m.lastSampleTime) >= m.sampleInterval {
		m.takeThroughputSample()
		m.lastSampleTime = now
	}
}

// takeThroughputSample must be called with mu held
func (m *Metrics) takeThroughputSample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	if alloc := int64(memStats.Alloc); alloc > m.PeakMemoryUsage {
		m.PeakMemoryUsage = alloc
	}

	m.ThroughputSamples = append(m.ThroughputSamples, ThroughputSample{
		Timestamp:     time.Now(),
		RowsPerSecond: m.throughput(),
		JobsCompleted: m.Completed,
		MemoryUsageMB: float64(memStats.Alloc) / 1024 / 1024,
	})
}

// Complete marks the end of the run
func (m *Metrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	m.takeThroughputSample()
	m.logger.Info("Worker pool finished",
		zap.Int("completed", m.Completed),
		zap.Int("failed", m.Failed),
		zap.Int("requeued", m.Requeued),
		zap.Int64("rowsIn", m.TotalRowsIn),
		zap.Int64("rowsOut", m.TotalRowsOut),
		zap.Duration("duration", m.duration()))
}

// Duration returns the elapsed run time
func (m *Metrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration()
}

func (m *Metrics) duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// CalculateThroughput returns input rows cleaned per second
func (m *Metrics) CalculateThroughput() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throughput()
}

func (m *Metrics) throughput() float64 {
	secs := m.duration().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(m.TotalRowsIn) / secs
}

// AverageQuality returns the mean quality score of completed jobs
func (m *Metrics) AverageQuality() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.averageQuality()
}

func (m *Metrics) averageQuality() float64 {
	if m.Completed == 0 {
		return 0
	}
	return m.qualitySum / float64(m.Completed)
}

// GetWorkerEfficiency returns the share of the run each worker spent on jobs
func (m *Metrics) GetWorkerEfficiency() map[int]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workerEfficiency()
}

func (m *Metrics) workerEfficiency() map[int]float64 {
	total := m.duration()
	efficiency := make(map[int]float64, len(m.WorkerUtilization))
	for id, busy := range m.WorkerUtilization {
		if total > 0 {
			efficiency[id] = float64(busy) / float64(total)
		}
	}
	return efficiency
}

// GetErrorDistribution returns the percentage of errors per category
func (m *Metrics) GetErrorDistribution() map[ErrorCategory]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorDistribution()
}

func (m *Metrics) errorDistribution() map[ErrorCategory]float64 {
	total := 0
	for _, count := range m.ErrorCounts {
		total += count
	}
	dist := make(map[ErrorCategory]float64, len(m.ErrorCounts))
	for category, count := range m.ErrorCounts {
		dist[category] = percentage(float64(count), float64(total))
	}
	return dist
}

// Summary is a point-in-time digest of the metrics
type Summary struct {
	Completed         int                       `json:"completed" yaml:"completed"`
	Failed            int                       `json:"failed" yaml:"failed"`
	Requeued          int                       `json:"requeued" yaml:"requeued"`
	RowsIn            int64                     `json:"rows_in" yaml:"rows_in"`
	RowsOut           int64                     `json:"rows_out" yaml:"rows_out"`
	BytesRead         int64                     `json:"bytes_read" yaml:"bytes_read"`
	LogEntries        int                       `json:"log_entries" yaml:"log_entries"`
	Flags             int                       `json:"flags" yaml:"flags"`
	Verified          int                       `json:"verified,omitempty" yaml:"verified,omitempty"`
	Unverified        int                       `json:"unverified,omitempty" yaml:"unverified,omitempty"`
	AverageQuality    float64                   `json:"average_quality" yaml:"average_quality"`
	Throughput        float64                   `json:"throughput_rows_per_sec" yaml:"throughput_rows_per_sec"`
	Duration          string                    `json:"duration" yaml:"duration"`
	ErrorDistribution map[ErrorCategory]float64 `json:"error_distribution,omitempty" yaml:"-"`

	// Filled by the manager from its error handler
	ErrorCounts            map[ErrorCategory]int      `json:"error_counts,omitempty" yaml:"-"`
	ErrorSamples           map[ErrorCategory][]string `json:"error_samples,omitempty" yaml:"-"`
	ErrorThresholdExceeded bool                       `json:"error_threshold_exceeded,omitempty" yaml:"error_threshold_exceeded,omitempty"`
}

// Summary returns the current digest
func (m *Metrics) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Summary{
		Completed:         m.Completed,
		Failed:            m.Failed,
		Requeued:          m.Requeued,
		RowsIn:            m.TotalRowsIn,
		RowsOut:           m.TotalRowsOut,
		BytesRead:         m.TotalBytesRead,
		LogEntries:        m.TotalLogEntries,
		Flags:             m.TotalFlags,
		Verified:          m.Verified,
		Unverified:        m.Unverified,
		AverageQuality:    m.averageQuality(),
		Throughput:        m.throughput(),
		Duration:          formatDuration(m.duration()),
		ErrorDistribution: m.errorDistribution(),
	}
}

// ToJSON serializes the summary to JSON
func (m *Metrics) ToJSON() ([]byte, error) {
	return json.Marshal(m.Summary())
}

// GenerateMetricsReport creates a plain-text metrics report
func (m *Metrics) GenerateMetricsReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.Completed + m.Failed + m.Requeued
	var sb strings.Builder
	fmt.Fprintf(&sb, `
Cleaning Metrics Report
=======================
Duration:                %s
Start Time:              %s

Jobs Summary
------------
Total Runs:              %d
Completed:               %d (%.1f%%)
Failed:                  %d (%.1f%%)
Requeued:                %d (%.1f%%)

Data Summary
------------
Rows In:                 %d
Rows Out:                %d
Data Read:               %s
Audit Entries:           %d
Pending Flags:           %d
Average Quality:         %.1f
Average Throughput:      %.2f rows/sec
Peak Memory Usage:       %s
`,
		formatDuration(m.duration()),
		m.StartTime.Format(time.RFC3339),
		total,
		m.Completed, percentage(float64(m.Completed), float64(total)),
		m.Failed, percentage(float64(m.Failed), float64(total)),
		m.Requeued, percentage(float64(m.Requeued), float64(total)),
		m.TotalRowsIn,
		m.TotalRowsOut,
		formatBytes(m.TotalBytesRead),
		m.TotalLogEntries,
		m.TotalFlags,
		m.averageQuality(),
		m.throughput(),
		formatBytes(m.PeakMemoryUsage),
	)
	if m.Verified+m.Unverified > 0 {
		fmt.Fprintf(&sb, "Snapshots Verified:      %d of %d\n", m.Verified, m.Verified+m.Unverified)
	}

	sources := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	sb.WriteString("\nSource Details\n--------------\n")
	for _, name := range sources {
		sm := m.Sources[name]
		fmt.Fprintf(&sb, "- %s: %d runs, %.1f%% completed, %d rows in, %d rows out\n",
			name, sm.Total(), percentage(float64(sm.Completed), float64(sm.Total())), sm.RowsIn, sm.RowsOut)
	}

	if len(m.ErrorCounts) > 0 {
		sb.WriteString("\nError Distribution\n------------------\n")
		dist := m.errorDistribution()
		categories := make([]ErrorCategory, 0, len(dist))
		for category := range dist {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			fmt.Fprintf(&sb, "- %s: %d (%.1f%%)\n", category, m.ErrorCounts[category], dist[category])
		}
	}

	efficiency := m.workerEfficiency()
	if len(efficiency) > 0 {
		sb.WriteString("\nWorker Efficiency\n-----------------\n")
		ids := make([]int, 0, len(efficiency))
		for id := range efficiency {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(&sb, "- Worker %d: %.1f%% active time\n", id, efficiency[id]*100)
		}
	}
	return sb.String()
}

// percentage safely calculates a percentage, avoiding division by zero
func percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total * 100
}

// formatBytes formats bytes to a human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
