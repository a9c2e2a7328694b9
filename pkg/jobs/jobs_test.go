package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/connector"
	"github.com/David-Botos/data-refinery/pkg/loader"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/objectstore"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
	"github.com/David-Botos/data-refinery/pkg/store"
)

const peopleCSV = "name,email,age\nalice,alice@example.com,34\nbob,bob@example.com,41\n,,\ncarol,carol@example.com,29\n"

type fixture struct {
	store   *store.SQLStore
	objects *objectstore.MemoryStore
	runner  *pipeline.Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st, err := store.OpenSQLite(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	runner, err := pipeline.NewRunner(pipeline.DefaultOptions(), logger)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return &fixture{store: st, objects: objectstore.NewMemoryStore(), runner: runner}
}

func (f *fixture) upload(t *testing.T, key, body string) {
	t.Helper()
	err := f.objects.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), objectstore.ContentType(objectstore.FileType(key)))
	if err != nil {
		t.Fatalf("Put(%s): %v", key, err)
	}
}

func (f *fixture) manager(t *testing.T, tables map[string]TableLoader, maxRetries int) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		WorkerCount:    2,
		MaxRetries:     maxRetries,
		ClaimBatchSize: 4,
		PollInterval:   10 * time.Millisecond,
		JobTimeout:     time.Minute,
	}, f.store, Sources{Objects: f.objects, Tables: tables}, f.runner, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// claimOne submits job and claims it the way the manager does
func (f *fixture) claimOne(t *testing.T, m *Manager, job CleaningJob) CleaningJob {
	t.Helper()
	ctx := context.Background()
	if err := m.Submit(ctx, job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	claimed, err := m.claim(ctx, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim = %v, %v", claimed, err)
	}
	return claimed[0]
}

type flakyTables struct {
	calls int32
	err   error
}

func (f *flakyTables) LoadTable(ctx context.Context, schema, table string, limit int) (*model.Dataset, error) {
	atomic.AddInt32(&f.calls, 1)
	return nil, f.err
}

func TestCategorizeError(t *testing.T) {
	eh := NewErrorHandler(zaptest.NewLogger(t))
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{nil, ErrorCategoryNone},
		{fmt.Errorf("failed to load x.pdf: %w", loader.ErrUnsupportedType), ErrorCategoryInput},
		{fmt.Errorf("wrap: %w", objectstore.ErrNotFound), ErrorCategoryInput},
		{fmt.Errorf("wrap: %w", connector.ErrSchemaNotAllowed), ErrorCategoryValidation},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), ErrorCategoryConnectionLevel},
		{errors.New("dial tcp: connection refused"), ErrorCategoryConnectionLevel},
		{errors.New("database is locked"), ErrorCategoryStorage},
		{errors.New("cannot parse '2024-13-45' as timestamp"), ErrorCategoryDataConversion},
		{errors.New("fatal: out of file handles"), ErrorCategoryCritical},
	}
	for _, tt := range tests {
		if got := eh.CategorizeError(tt.err); got != tt.want {
			t.Errorf("CategorizeError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestHandleErrorActions(t *testing.T) {
	eh := NewErrorHandler(zaptest.NewLogger(t))
	job := NewCleaningJob("uploads/a.csv")

	transient := NewErrorRecord(errors.New("connection reset"), ErrorCategoryConnectionLevel).WithJob(job).WithRetry(0, 3)
	if got := eh.HandleError(transient); got != ActionRetry {
		t.Errorf("transient first attempt = %s, want retry", got)
	}
	exhausted := transient.WithRetry(3, 3)
	if got := eh.HandleError(exhausted); got != ActionFail {
		t.Errorf("transient after retries = %s, want fail", got)
	}
	bad := NewErrorRecord(loader.ErrUnsupportedType, ErrorCategoryInput).WithJob(job)
	if got := eh.HandleError(bad); got != ActionFail || eh.ShouldRetry(bad) {
		t.Errorf("bad input = %s, want fail without retry", got)
	}
	if got := eh.HandleError(NewErrorRecord(errors.New("panic"), ErrorCategoryCritical)); got != ActionAbort {
		t.Errorf("critical = %s, want abort", got)
	}
	if !eh.ShouldAbort() {
		t.Error("a critical error must abort the pool")
	}

	summary := eh.GetErrorSummary()
	if summary[ErrorCategoryConnectionLevel] != 2 || summary[ErrorCategoryInput] != 1 {
		t.Errorf("summary = %v", summary)
	}
	if eh.GetSourceErrorCounts()[model.SourceUpload] != 3 {
		t.Errorf("source counts = %v", eh.GetSourceErrorCounts())
	}
	if s := exhausted.String(); !strings.Contains(s, "[ConnectionLevel]") || !strings.Contains(s, "Input: uploads/a.csv") {
		t.Errorf("String() = %s", s)
	}
}

func TestJobRecordRoundTrip(t *testing.T) {
	job := NewTableJob("Snowflake", "PUBLIC", "ORDERS")
	rec := job.Record()
	if rec.FileKey != "PUBLIC.ORDERS" || rec.Source != model.SourceSnowflake || rec.Status != model.JobPending {
		t.Fatalf("record = %+v", rec)
	}
	rec.Attempts = 2
	back := JobFromRecord(rec, 3)
	if back.Schema != "PUBLIC" || back.Table != "ORDERS" || back.RetryCount != 1 || !back.IsRetryable() {
		t.Errorf("job = %+v", back)
	}

	upload := NewCleaningJob("uploads/2024/sales.XLSX")
	if upload.FileType != "xlsx" || upload.IsTable() || upload.Name() != "uploads/2024/sales.XLSX" {
		t.Errorf("upload = %+v", upload)
	}
	if upload.Retry().Retry().Retry().IsRetryable() {
		t.Error("job must stop retrying at MaxRetries")
	}
}

func TestWorkerProcessesUpload(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "uploads/people.csv", peopleCSV)
	m := f.manager(t, nil, 3)
	job := f.claimOne(t, m, NewCleaningJob("uploads/people.csv"))

	w := m.Workers()[0]
	result := w.ProcessJob(context.Background(), job)
	if !result.Success || result.HasErrors() {
		t.Fatalf("result = %+v", result)
	}
	if result.RowsIn() != 4 || result.RowsOut() != 3 || result.BytesRead != int64(len(peopleCSV)) {
		t.Errorf("rows %d -> %d, bytes %d", result.RowsIn(), result.RowsOut(), result.BytesRead)
	}
	if w.GetState() != WorkerStateIdle || w.GetCurrentJob() != nil || w.LastResult().JobID != job.ID {
		t.Errorf("worker state = %s", w.GetState())
	}

	rec, err := f.store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != model.JobCompleted || rec.CleanedRows.Int64 != 3 {
		t.Errorf("stored job = %+v", rec)
	}
	entries, _ := f.store.Entries(context.Background(), job.ID)
	if len(entries) != result.LogEntries || len(entries) == 0 {
		t.Errorf("stored %d entries, result says %d", len(entries), result.LogEntries)
	}
}

func TestWorkerFailsBadInput(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "uploads/report.pdf", "%PDF-1.4")
	m := f.manager(t, nil, 3)
	job := f.claimOne(t, m, NewCleaningJob("uploads/report.pdf"))

	w := m.Workers()[0]
	result := w.ProcessJob(context.Background(), job)
	if result.Success || result.Requeued {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0].Category != ErrorCategoryInput {
		t.Errorf("category = %s", result.Errors[0].Category)
	}
	if w.GetState() != WorkerStateError {
		t.Errorf("worker state = %s", w.GetState())
	}

	rec, _ := f.store.GetJob(context.Background(), job.ID)
	if rec.Status != model.JobFailed || !strings.Contains(rec.Error.String, "unsupported file type") {
		t.Errorf("stored job = %+v", rec)
	}
}

func TestWorkerRequeuesTransientError(t *testing.T) {
	f := newFixture(t)
	tables := &flakyTables{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}
	m := f.manager(t, map[string]TableLoader{model.SourcePostgres: tables}, 3)
	job := f.claimOne(t, m, NewTableJob(model.SourcePostgres, "public", "orders"))

	result := m.Workers()[0].ProcessJob(context.Background(), job)
	if result.Success || !result.Requeued {
		t.Fatalf("result = %+v", result)
	}
	rec, _ := f.store.GetJob(context.Background(), job.ID)
	if rec.Status != model.JobPending || rec.Attempts != 1 {
		t.Errorf("stored job = %+v", rec)
	}
}

func TestManagerDrain(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "uploads/a.csv", peopleCSV)
	f.upload(t, "uploads/b.csv", peopleCSV)
	tables := &flakyTables{err: errors.New("connection refused")}
	m := f.manager(t, map[string]TableLoader{model.SourcePostgres: tables}, 2)

	ctx := context.Background()
	for _, job := range []CleaningJob{
		NewCleaningJob("uploads/a.csv"),
		NewCleaningJob("uploads/b.csv"),
		NewCleaningJob("uploads/missing.csv"),
		NewTableJob(model.SourcePostgres, "public", "orders"),
	} {
		if err := m.Submit(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := m.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	// The table job is tried three times: two requeues, then failed
	if summary.Completed != 2 || summary.Failed != 2 || summary.Requeued != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if atomic.LoadInt32(&tables.calls) != 3 {
		t.Errorf("table loaded %d times, want 3", tables.calls)
	}
	if summary.RowsIn != 8 || summary.RowsOut != 6 {
		t.Errorf("rows %d -> %d", summary.RowsIn, summary.RowsOut)
	}

	pending, err := f.store.ListJobs(ctx, model.JobPending, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending jobs left: %+v", pending)
	}
	failed, _ := f.store.ListJobs(ctx, model.JobFailed, 10)
	if len(failed) != 2 {
		t.Errorf("failed jobs = %d, want 2", len(failed))
	}
	for _, w := range m.Workers() {
		if w.GetState() != WorkerStateCompleted {
			t.Errorf("worker %d state = %s", w.ID, w.GetState())
		}
	}

	report := m.Metrics().GenerateMetricsReport()
	if !strings.Contains(report, "Completed:               2") || !strings.Contains(report, "- upload:") {
		t.Errorf("report = %s", report)
	}
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, nil, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestMetricsJSON(t *testing.T) {
	m := NewMetrics(zaptest.NewLogger(t))
	m.RecordResult(Result{Source: model.SourceUpload, Success: true, Pipeline: &pipeline.Result{
		OriginalRowCount: 10, CleanedRowCount: 9, QualityScore: 90,
	}, Duration: time.Second})
	m.RecordResult(Result{Source: model.SourceUpload, Errors: []ErrorRecord{
		NewErrorRecord(errors.New("bad"), ErrorCategoryInput),
	}})
	m.Complete()

	data, err := m.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"Input":100`) || !strings.Contains(string(data), `"average_quality":90`) {
		t.Errorf("json = %s", data)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatBytes(1536); got != "1.50 KB" {
		t.Errorf("formatBytes = %s", got)
	}
	if got := formatDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("formatDuration = %s", got)
	}
}

func TestErrorThresholdOverride(t *testing.T) {
	eh := NewErrorHandler(zaptest.NewLogger(t)).WithThreshold(ErrorCategoryInput, 1)
	for i := 0; i < 2; i++ {
		eh.RecordError(NewErrorRecord(loader.ErrUnsupportedType, ErrorCategoryInput))
	}
	if !eh.IsErrorThresholdExceeded() {
		t.Error("two input errors exceed a threshold of one")
	}
	if eh.ShouldAbort() {
		t.Error("input errors never abort the pool")
	}

	eh.WithThreshold(ErrorCategoryConnectionLevel, 1)
	eh.RecordError(NewErrorRecord(errors.New("connection reset"), ErrorCategoryConnectionLevel))
	if !eh.ShouldAbort() {
		t.Error("one connection error reaches a threshold of one")
	}
	samples := eh.GetErrorSamples()
	if len(samples[ErrorCategoryInput]) != 2 || len(samples[ErrorCategoryConnectionLevel]) != 1 {
		t.Errorf("samples = %v", samples)
	}
}

func TestManagerConfigErrorThresholds(t *testing.T) {
	cfg := &config.Config{
		ClaimBatchSize: 4,
		ErrorThresholds: config.ErrorThresholdConfig{
			Input: -1, Storage: -1, Connection: 1, System: -1, Critical: 0,
		},
	}
	got := ManagerConfigFromConfig(cfg).ErrorThresholds
	want := map[ErrorCategory]int{ErrorCategoryConnectionLevel: 1, ErrorCategoryCritical: 0}
	if len(got) != len(want) {
		t.Fatalf("thresholds = %v, want %v", got, want)
	}
	for category, n := range want {
		if got[category] != n {
			t.Errorf("threshold %s = %d, want %d", category, got[category], n)
		}
	}
}

func TestManagerAbortsAtConfiguredThreshold(t *testing.T) {
	f := newFixture(t)
	tables := &flakyTables{err: errors.New("dial tcp: connection refused")}
	m, err := NewManager(ManagerConfig{
		WorkerCount:     1,
		MaxRetries:      3,
		PollInterval:    10 * time.Millisecond,
		ErrorThresholds: map[ErrorCategory]int{ErrorCategoryConnectionLevel: 1},
	}, f.store, Sources{Tables: map[string]TableLoader{model.SourcePostgres: tables}}, f.runner, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := m.Submit(ctx, NewTableJob(model.SourcePostgres, "public", "orders")); err != nil {
		t.Fatal(err)
	}

	summary, err := m.Drain(ctx)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Drain error = %v, want ErrAborted", err)
	}
	if summary.ErrorCounts[ErrorCategoryConnectionLevel] != 1 {
		t.Errorf("error counts = %v", summary.ErrorCounts)
	}
	samples := summary.ErrorSamples[ErrorCategoryConnectionLevel]
	if len(samples) != 1 || !strings.Contains(samples[0], "connection refused") {
		t.Errorf("samples = %v", samples)
	}
	if atomic.LoadInt32(&tables.calls) != 1 {
		t.Errorf("table loaded %d times, want 1", tables.calls)
	}
}

// alteredSnapshots reads snapshots back from the store and changes one cell
type alteredSnapshots struct {
	*store.SQLStore
	column string
	value  interface{}
}

func (a alteredSnapshots) LoadSnapshot(ctx context.Context, jobID string) (*model.Dataset, error) {
	ds, err := a.SQLStore.LoadSnapshot(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ds.SetCell(0, ds.ColumnIndex(a.column), a.value)
	return ds, nil
}

func TestWorkerRecordsSnapshotMismatchByColumn(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "uploads/people.csv", peopleCSV)
	m := f.manager(t, nil, 3)
	job := f.claimOne(t, m, NewCleaningJob("uploads/people.csv"))

	reader := alteredSnapshots{SQLStore: f.store, column: "name", value: "mallory"}
	w := m.Workers()[0].WithVerifier(NewVerifier(reader, zaptest.NewLogger(t)))
	result := w.ProcessJob(context.Background(), job)
	if !result.Success || len(result.Warnings) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %+v", result.Errors)
	}
	record := result.Errors[0]
	if record.Category != ErrorCategoryWarning || record.ColumnName != "name" || record.SourceValue != "mallory" {
		t.Errorf("record = %+v", record)
	}
	if s := record.String(); !strings.Contains(s, "Column: name") || !strings.Contains(s, "Value: mallory") {
		t.Errorf("String() = %s", s)
	}
	if m.Errors().GetErrorSummary()[ErrorCategoryWarning] != 1 {
		t.Errorf("handler summary = %v", m.Errors().GetErrorSummary())
	}
}

// statusTables records the job's stored state when the worker loads it
type statusTables struct {
	store *store.SQLStore
	jobID string
	seen  *store.JobRecord
}

func (s *statusTables) LoadTable(ctx context.Context, schema, table string, limit int) (*model.Dataset, error) {
	rec, err := s.store.GetJob(ctx, s.jobID)
	if err != nil {
		return nil, err
	}
	s.seen = rec
	return loader.Load([]byte(peopleCSV), "csv")
}

func TestWorkerClearsEarlierAttemptError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tables := &statusTables{store: f.store}
	m := f.manager(t, map[string]TableLoader{model.SourcePostgres: tables}, 3)

	job := f.claimOne(t, m, NewTableJob(model.SourcePostgres, "public", "people"))
	if err := f.store.Requeue(ctx, job.ID, "interrupted: shutdown"); err != nil {
		t.Fatal(err)
	}
	claimed, err := m.claim(ctx, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim = %v, %v", claimed, err)
	}
	tables.jobID = job.ID

	result := m.Workers()[0].ProcessJob(ctx, claimed[0])
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if tables.seen == nil || tables.seen.Status != model.JobProcessing || tables.seen.Error.Valid {
		t.Errorf("job while loading = %+v", tables.seen)
	}
}
