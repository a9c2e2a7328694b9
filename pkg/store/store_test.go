package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createJob(t *testing.T, s *SQLStore, id string, createdAt time.Time) {
	t.Helper()
	err := s.CreateJob(context.Background(), JobRecord{
		ID:        id,
		Source:    model.SourceUpload,
		FileKey:   "uploads/" + id + ".csv",
		FileType:  "csv",
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("CreateJob(%s): %v", id, err)
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createJob(t, s, "job-1", time.Now().UTC())

	job, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != model.JobPending || job.FileKey != "uploads/job-1.csv" || job.Attempts != 0 {
		t.Errorf("job = %+v", job)
	}
	if job.QualityScore.Valid || job.SnapshotTable.Valid {
		t.Errorf("new job already has results: %+v", job)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob(missing) err = %v, want ErrJobNotFound", err)
	}
}

func TestClaimPendingJobsOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	createJob(t, s, "c", base.Add(2*time.Minute))
	createJob(t, s, "a", base)
	createJob(t, s, "b", base.Add(time.Minute))

	claimed, err := s.ClaimPendingJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ClaimPendingJobs: %v", err)
	}
	if len(claimed) != 2 || claimed[0].ID != "a" || claimed[1].ID != "b" {
		t.Fatalf("claimed = %+v", claimed)
	}
	for _, job := range claimed {
		stored, err := s.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != model.JobProcessing || stored.Attempts != 1 {
			t.Errorf("%s = %s after %d attempts", job.ID, stored.Status, stored.Attempts)
		}
	}

	rest, err := s.ClaimPendingJobs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].ID != "c" {
		t.Errorf("second claim = %+v", rest)
	}
}

func TestRequeueAndFail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createJob(t, s, "job-1", time.Now().UTC())

	if _, err := s.ClaimPendingJobs(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Requeue(ctx, "job-1", "connection reset"); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	job, _ := s.GetJob(ctx, "job-1")
	if job.Status != model.JobPending || job.Error.String != "connection reset" {
		t.Errorf("after requeue = %+v", job)
	}

	claimed, _ := s.ClaimPendingJobs(ctx, 1)
	if len(claimed) != 1 || claimed[0].Attempts != 2 {
		t.Fatalf("reclaimed = %+v", claimed)
	}
	if err := s.MarkFailed(ctx, "job-1", "bad file"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	job, _ = s.GetJob(ctx, "job-1")
	if job.Status != model.JobFailed || !job.Status.Terminal() || job.Error.String != "bad file" {
		t.Errorf("after fail = %+v", job)
	}

	if err := s.MarkFailed(ctx, "missing", "x"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("MarkFailed(missing) err = %v", err)
	}
}

func TestSaveResultRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createJob(t, s, "5f0c-41aa", time.Now().UTC())

	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	ds, err := model.FromColumns(
		[]string{"id", "score", "active", "seen_at", "name"},
		[][]interface{}{
			{int64(1), int64(2)},
			{2.5, nil},
			{true, false},
			{when, nil},
			{"Alice", "Bob"},
		})
	if err != nil {
		t.Fatal(err)
	}
	res := &pipeline.Result{
		JobID:            "5f0c-41aa",
		Dataset:          ds,
		ColumnMetadata:   model.BuildColumnMetadata(ds),
		QualityScore:     87.5,
		HtypeMap:         model.HtypeMap{"name": {HtypeCode: "HTYPE-001", FormulaSet: "NAME"}},
		OriginalRowCount: 3,
		CleanedRowCount:  2,
		Flags: pipeline.Flags{
			Numeric: []model.PendingFlag{{
				FormulaID:       "NUM-05",
				FlagType:        "outlier",
				Description:     "score has outliers",
				AffectedColumns: []string{"score"},
				AffectedRows:    []int{0},
				AffectedCount:   1,
				Details:         map[string]interface{}{"upper": 2.0},
			}},
		},
	}
	entries := []model.CleaningLogEntry{
		model.NewLogEntry(res.JobID, "GLOBAL-05", "empty_row_removed", "row was empty", model.AtRow(2)),
		model.NewLogEntry(res.JobID, "NAME-01", "name_normalized", "title case",
			model.AtRow(1), model.InColumn("name"), model.WithValues("bob", "Bob")),
	}

	if err := s.SaveResult(ctx, res, entries); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	job, _ := s.GetJob(ctx, res.JobID)
	if job.Status != model.JobCompleted || job.QualityScore.Float64 != 87.5 ||
		job.OriginalRows.Int64 != 3 || job.CleanedRows.Int64 != 2 {
		t.Errorf("job = %+v", job)
	}
	if job.SnapshotTable.String != "snapshot_5f0c41aa" {
		t.Errorf("snapshot table = %q", job.SnapshotTable.String)
	}

	stored, err := s.Entries(ctx, res.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[1].FormulaID != "NAME-01" || *stored[1].NewValue != "Bob" || stored[0].ColumnName != nil {
		t.Errorf("entries = %+v", stored)
	}

	flags, err := s.Flags(ctx, res.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(flags) != 1 || flags[0].Stage != "numeric" || flags[0].AffectedColumns[0] != "score" ||
		flags[0].AffectedRows[0] != 0 || flags[0].Details["upper"] != 2.0 {
		t.Errorf("flags = %+v", flags)
	}

	cols, err := s.Columns(ctx, res.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 5 || cols[4].HtypeCode != "HTYPE-001" || cols[3].Dtype != "datetime64" {
		t.Errorf("columns = %+v", cols)
	}

	snap, err := s.LoadSnapshot(ctx, res.JobID)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.NumRows() != 2 || snap.NumCols() != 5 {
		t.Fatalf("snapshot is %dx%d", snap.NumRows(), snap.NumCols())
	}
	for i := 0; i < ds.NumRows(); i++ {
		for j := 0; j < ds.NumCols(); j++ {
			if !model.Equal(snap.Cell(i, j), ds.Cell(i, j)) {
				t.Errorf("cell (%d, %s) = %#v, want %#v", i, ds.ColumnName(j), snap.Cell(i, j), ds.Cell(i, j))
			}
		}
	}

	// Saving again replaces the earlier result
	if err := s.SaveResult(ctx, res, entries[:1]); err != nil {
		t.Fatalf("second SaveResult: %v", err)
	}
	stored, _ = s.Entries(ctx, res.JobID)
	if len(stored) != 1 {
		t.Errorf("entries after resave = %d, want 1", len(stored))
	}
}

func TestSaveResultRollsBackForUnknownJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ds := model.NewDataset([]string{"a"}, [][]interface{}{{"x"}})
	res := &pipeline.Result{JobID: "ghost", Dataset: ds, ColumnMetadata: model.BuildColumnMetadata(ds)}

	err := s.SaveResult(ctx, res, []model.CleaningLogEntry{
		model.NewLogEntry("ghost", "GLOBAL-01", "trimmed", "whitespace"),
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
	entries, err := s.Entries(ctx, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries were written: %+v", entries)
	}
}

func TestSaveResultFromPipeline(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createJob(t, s, "job-e2e", time.Now().UTC())

	ds, err := model.FromColumns(
		[]string{"First Name", "email", "age"},
		[][]interface{}{
			{"alice", "Bob", nil, "carol"},
			{"alice@example.com", "bob@example.com", nil, "carol@example.com"},
			{"34", "41", nil, "29"},
		})
	if err != nil {
		t.Fatal(err)
	}
	runner, err := pipeline.NewRunner(pipeline.DefaultOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	sink := audit.NewCollector()
	res, err := runner.Run("job-e2e", ds, sink, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := s.SaveResult(ctx, res, sink.Entries()); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	stored, _ := s.Entries(ctx, "job-e2e")
	if len(stored) != sink.Len() {
		t.Errorf("stored %d entries, collected %d", len(stored), sink.Len())
	}
	flags, _ := s.Flags(ctx, "job-e2e")
	if len(flags) != len(res.Flags.All()) {
		t.Errorf("stored %d flags, raised %d", len(flags), len(res.Flags.All()))
	}
	snap, err := s.LoadSnapshot(ctx, "job-e2e")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.NumRows() != res.Dataset.NumRows() {
		t.Errorf("snapshot rows = %d, want %d", snap.NumRows(), res.Dataset.NumRows())
	}
}

func TestSaveRevisionAppendsAndReplacesSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createJob(t, s, "job-rev", time.Now().UTC())

	ds := model.NewDataset([]string{"name", "score"}, [][]interface{}{
		{"Ann", int64(10)},
		{nil, int64(12)},
		{"Cy", int64(900)},
	})
	res := &pipeline.Result{
		JobID:            "job-rev",
		Dataset:          ds,
		ColumnMetadata:   model.BuildColumnMetadata(ds),
		QualityScore:     80,
		HtypeMap:         model.HtypeMap{"name": {HtypeCode: "HTYPE-001", FormulaSet: "NAME"}},
		OriginalRowCount: 3,
		CleanedRowCount:  3,
	}
	first := []model.CleaningLogEntry{model.NewLogEntry("job-rev", "CLEAN-07", "flag_outlier", "outside IQR range [1, 20]",
		model.AtRow(2), model.InColumn("score"), model.Pending())}
	if err := s.SaveResult(ctx, res, first); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	revised := model.NewDataset([]string{"name", "score"}, [][]interface{}{
		{"Ann", int64(10)},
		{"Bo", int64(12)},
	})
	err := s.SaveRevision(ctx, Revision{
		JobID:        "job-rev",
		Dataset:      revised,
		QualityScore: 100,
		Entries: []model.CleaningLogEntry{
			model.NewLogEntry("job-rev", "REVIEW-01", "fill_missing", "Manual fill by user",
				model.AtRow(1), model.InColumn("name"), model.WithValues(nil, "Bo")),
			model.NewLogEntry("job-rev", "REVIEW-02", "remove_outlier", "User chose to remove outlier at row 2",
				model.AtRow(2)),
		},
	})
	if err != nil {
		t.Fatalf("SaveRevision: %v", err)
	}

	job, _ := s.GetJob(ctx, "job-rev")
	if job.CleanedRows.Int64 != 2 || job.QualityScore.Float64 != 100 || job.OriginalRows.Int64 != 3 {
		t.Errorf("job = %+v", job)
	}
	entries, _ := s.Entries(ctx, "job-rev")
	if len(entries) != 3 || entries[2].Action != "remove_outlier" {
		t.Errorf("entries = %+v", entries)
	}
	cols, _ := s.Columns(ctx, "job-rev")
	if len(cols) != 2 || cols[0].HtypeCode != "HTYPE-001" || cols[0].NullCount != 0 {
		t.Errorf("columns = %+v", cols)
	}
	snap, err := s.LoadSnapshot(ctx, "job-rev")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.NumRows() != 2 || snap.Cell(1, 0) != "Bo" {
		t.Errorf("snapshot rows = %d, name[1] = %v", snap.NumRows(), snap.Cell(1, 0))
	}
}

func TestSaveRevisionNeedsCompletedJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createJob(t, s, "job-pending", time.Now().UTC())
	ds := model.NewDataset([]string{"a"}, [][]interface{}{{"x"}})

	if err := s.SaveRevision(ctx, Revision{JobID: "job-pending", Dataset: ds}); err == nil {
		t.Error("a pending job has no snapshot to revise")
	}
	if err := s.SaveRevision(ctx, Revision{JobID: "ghost", Dataset: ds}); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}
