package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/store"
)

// SnapshotReader reads back what SaveResult wrote
type SnapshotReader interface {
	GetJob(ctx context.Context, id string) (*store.JobRecord, error)
	Columns(ctx context.Context, jobID string) ([]store.ColumnProfile, error)
	LoadSnapshot(ctx context.Context, jobID string) (*model.Dataset, error)
}

// RowDiscrepancy is a cell whose stored value differs from the cleaned one
type RowDiscrepancy struct {
	Row           int         `json:"row"`
	ColumnName    string      `json:"column"`
	ExpectedValue interface{} `json:"expected"`
	StoredValue   interface{} `json:"stored"`
	Discrepancy   string      `json:"discrepancy"`
}

// StructureDiscrepancy is a column whose stored shape differs from its profile
type StructureDiscrepancy struct {
	ColumnName    string `json:"column"`
	ExpectedDtype string `json:"expected_dtype,omitempty"`
	ActualDtype   string `json:"actual_dtype,omitempty"`
	IsMissing     bool   `json:"is_missing,omitempty"`
}

// IntegrityIssue describes a stored column that no longer matches its profile
type IntegrityIssue struct {
	IssueType    string `json:"issue_type"`
	Description  string `json:"description"`
	ColumnName   string `json:"column"`
	AffectedRows int64  `json:"affected_rows"`
}

// VerificationReport contains the results of a snapshot verification
type VerificationReport struct {
	JobID                  string                 `json:"job_id"`
	Table                  string                 `json:"table"`
	VerificationTime       time.Time              `json:"verification_time"`
	RowCountMatches        bool                   `json:"row_count_matches"`
	ExpectedRowCount       int64                  `json:"expected_row_count"`
	SnapshotRowCount       int64                  `json:"snapshot_row_count"`
	StructureMatches       bool                   `json:"structure_matches"`
	StructureDiscrepancies []StructureDiscrepancy `json:"structure_discrepancies,omitempty"`
	SampleVerified         bool                   `json:"sample_verified"`
	SampleSize             int                    `json:"sample_size"`
	SampleDiscrepancies    []RowDiscrepancy       `json:"sample_discrepancies,omitempty"`
	IntegrityVerified      bool                   `json:"integrity_verified"`
	IntegrityIssues        []IntegrityIssue       `json:"integrity_issues,omitempty"`
	Duration               time.Duration          `json:"duration_ns"`
}

// Passed reports whether every check that ran succeeded
func (r *VerificationReport) Passed() bool {
	return r.RowCountMatches && r.StructureMatches && r.IntegrityVerified &&
		len(r.SampleDiscrepancies) == 0
}

// Verifier checks a stored snapshot against the job's profile and, when
// available, the in-memory cleaned dataset
type Verifier struct {
	store   SnapshotReader
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(reader SnapshotReader, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		store:   reader,
		logger:  logger,
		timeout: time.Minute,
	}
}

// WithTimeout sets a custom timeout for verification
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	v.timeout = timeout
	return v
}

// Verify reads the snapshot of a completed job back and compares it with
// the stored column profiles. expected may be nil; when set, a sample of
// its rows is compared cell by cell.
func (v *Verifier) Verify(ctx context.Context, jobID string, expected *model.Dataset) (*VerificationReport, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	job, err := v.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	profiles, err := v.store.Columns(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to read column profiles: %w", err)
	}
	snapshot, err := v.store.LoadSnapshot(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	report := &VerificationReport{
		JobID:            jobID,
		Table:            job.SnapshotTable.String,
		VerificationTime: start,
		ExpectedRowCount: job.CleanedRows.Int64,
		SnapshotRowCount: int64(snapshot.NumRows()),
	}

	// 1. Row count
	report.RowCountMatches = report.ExpectedRowCount == report.SnapshotRowCount
	if expected != nil && expected.NumRows() != snapshot.NumRows() {
		report.RowCountMatches = false
	}

	// 2. Structure
	report.StructureDiscrepancies = v.compareStructure(profiles, snapshot)
	report.StructureMatches = len(report.StructureDiscrepancies) == 0

	// 3. Sample rows, only when the shapes agree
	if expected != nil && report.RowCountMatches && report.StructureMatches {
		report.SampleSize = calculateSampleSize(int64(snapshot.NumRows()))
		report.SampleDiscrepancies = compareRows(expected, snapshot, report.SampleSize)
		report.SampleVerified = true
	}

	// 4. Null counts against the profile
	report.IntegrityIssues = checkNullCounts(profiles, snapshot)
	report.IntegrityVerified = len(report.IntegrityIssues) == 0

	report.Duration = time.Since(start)

	if report.Passed() {
		v.logger.Info("Snapshot verified",
			zap.String("job_id", jobID),
			zap.String("table", report.Table),
			zap.Int64("rows", report.SnapshotRowCount),
			zap.Int("sample_size", report.SampleSize))
	} else {
		v.logger.Warn("Snapshot verification found discrepancies",
			zap.String("job_id", jobID),
			zap.String("table", report.Table),
			zap.Bool("row_count_matches", report.RowCountMatches),
			zap.Int("structure_discrepancies", len(report.StructureDiscrepancies)),
			zap.Int("sample_discrepancies", len(report.SampleDiscrepancies)),
			zap.Int("integrity_issues", len(report.IntegrityIssues)))
	}
	return report, nil
}

func (v *Verifier) compareStructure(profiles []store.ColumnProfile, snapshot *model.Dataset) []StructureDiscrepancy {
	var out []StructureDiscrepancy
	present := make(map[string]bool, snapshot.NumCols())
	for _, name := range snapshot.Columns() {
		present[name] = true
	}

	for _, p := range profiles {
		if !present[p.Name] {
			out = append(out, StructureDiscrepancy{ColumnName: p.Name, ExpectedDtype: p.Dtype, IsMissing: true})
			continue
		}
		values, _ := snapshot.ColumnByName(p.Name)
		if allNull(values) {
			continue
		}
		if actual := model.InferDtype(values); actual != p.Dtype {
			out = append(out, StructureDiscrepancy{ColumnName: p.Name, ExpectedDtype: p.Dtype, ActualDtype: actual})
		}
	}
	if len(profiles) != snapshot.NumCols() {
		v.logger.Debug("Column count differs",
			zap.Int("profiles", len(profiles)),
			zap.Int("snapshot", snapshot.NumCols()))
	}
	return out
}

func checkNullCounts(profiles []store.ColumnProfile, snapshot *model.Dataset) []IntegrityIssue {
	var issues []IntegrityIssue
	for _, p := range profiles {
		values, ok := snapshot.ColumnByName(p.Name)
		if !ok {
			continue
		}
		nulls := 0
		for _, val := range values {
			if model.IsNull(val) {
				nulls++
			}
		}
		if nulls != p.NullCount {
			issues = append(issues, IntegrityIssue{
				IssueType:    "null_count",
				Description:  fmt.Sprintf("profile records %d nulls, snapshot holds %d", p.NullCount, nulls),
				ColumnName:   p.Name,
				AffectedRows: int64(abs(nulls - p.NullCount)),
			})
		}
	}
	return issues
}

func compareRows(expected, snapshot *model.Dataset, sampleSize int) []RowDiscrepancy {
	var out []RowDiscrepancy
	stored := make([][]interface{}, expected.NumCols())
	for j, name := range expected.Columns() {
		stored[j], _ = snapshot.ColumnByName(name)
	}
	for i := 0; i < sampleSize && i < expected.NumRows(); i++ {
		for j, name := range expected.Columns() {
			want := expected.Cell(i, j)
			got := stored[j]
			if got == nil {
				continue
			}
			if !valuesEqual(want, got[i]) {
				out = append(out, RowDiscrepancy{
					Row:           i,
					ColumnName:    name,
					ExpectedValue: want,
					StoredValue:   got[i],
					Discrepancy:   "Value mismatch",
				})
			}
		}
	}
	return out
}

// valuesEqual compares a cleaned cell with its stored form. Empty strings
// are read back as nulls and DATE columns come back as timestamps.
func valuesEqual(want, got interface{}) bool {
	if s, ok := want.(string); ok && s == "" {
		want = nil
	}
	if model.Equal(want, got) {
		return true
	}
	ws, ok1 := want.(string)
	gs, ok2 := got.(string)
	if !ok1 || !ok2 {
		return false
	}
	wd, err := time.Parse("2006-01-02", ws)
	if err != nil {
		return false
	}
	gt, err := time.Parse(time.RFC3339, gs)
	return err == nil && wd.Equal(gt)
}

func calculateSampleSize(rowCount int64) int {
	switch {
	case rowCount <= 0:
		return 0
	case rowCount < 100:
		return int(rowCount) // Sample all rows for small snapshots
	case rowCount < 10000:
		return 100
	default:
		return 500
	}
}

func allNull(values []interface{}) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
