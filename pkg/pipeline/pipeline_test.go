package pipeline

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(DefaultOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestRunEndToEnd(t *testing.T) {
	ds, err := model.FromColumns(
		[]string{"First Name", "emial"},
		[][]interface{}{
			{"Alice", "Bob", nil, "Carol"},
			{"alice@example.com", "bob@example.com", nil, "carol@example.com"},
		},
	)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	sink := audit.NewCollector()

	res, err := newRunner(t).Run("job-1", ds, sink, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.Dataset.HasColumn("first_name") || !res.Dataset.HasColumn("email") {
		t.Fatalf("columns = %v", res.Dataset.Columns())
	}
	if res.HtypeMap["email"].FormulaSet != "EMAIL" {
		t.Errorf("email classified as %+v", res.HtypeMap["email"])
	}
	if tag, ok := res.PIITags["email"]; !ok || tag.Level != "medium" {
		t.Errorf("email tag = %+v, %v", tag, ok)
	}
	if res.OriginalRowCount != 4 || res.CleanedRowCount != 3 || res.Dataset.NumRows() != 3 {
		t.Errorf("rows = %d -> %d (dataset %d), want 4 -> 3",
			res.OriginalRowCount, res.CleanedRowCount, res.Dataset.NumRows())
	}
	if len(sink.ByFormula("GLOBAL-05")) != 1 {
		t.Errorf("GLOBAL-05 entries = %d, want 1", len(sink.ByFormula("GLOBAL-05")))
	}
	if res.QualityScore != res.Quality.Score || res.QualityScore <= 0 || res.QualityScore > 100 {
		t.Errorf("quality = %v, breakdown %+v", res.QualityScore, res.Quality)
	}
	if res.Quality.Uniqueness != 75 {
		t.Errorf("uniqueness = %v, want 75", res.Quality.Uniqueness)
	}
	for _, col := range res.Dataset.Columns() {
		if _, ok := res.ColumnMetadata[col]; !ok {
			t.Errorf("no metadata for %q", col)
		}
	}
	if ds.NumRows() != 4 || ds.Columns()[0] != "First Name" {
		t.Errorf("input dataset was mutated: %v", ds.Columns())
	}
}

func TestPromotedHeaderRowIsClassifiedPerColumn(t *testing.T) {
	ds := model.NewDataset(
		[]string{"1", "2", "3", "4"},
		[][]interface{}{
			{"Email", "Email", "Region", "Notes"},
			{"a@x.com", "B@Y.COM", "North", "first"},
			{"c@x.com", "d@y.com", "South", "second"},
		})
	res, err := newRunner(t).Run("job-1", ds, audit.NewCollector(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	cols := res.Dataset.Columns()
	if !res.Dataset.HasColumn("email") || !res.Dataset.HasColumn("email_1") {
		t.Fatalf("columns = %v", cols)
	}
	if len(res.HtypeMap) != len(cols) {
		t.Fatalf("htype map has %d entries for %d columns", len(res.HtypeMap), len(cols))
	}
	if res.HtypeMap["email_1"].FormulaSet != "EMAIL" {
		t.Errorf("email_1 classified as %+v", res.HtypeMap["email_1"])
	}
}

func TestRunNilDataset(t *testing.T) {
	_, err := newRunner(t).Run("job-1", nil, audit.NewCollector(), nil)
	if !errors.Is(err, model.ErrEmptyDataset) {
		t.Fatalf("err = %v, want ErrEmptyDataset", err)
	}
}

func TestFlagsAllKeepsStageOrder(t *testing.T) {
	f := Flags{
		Global:   []model.PendingFlag{{FormulaID: "GLOBAL-16"}},
		Category: []model.PendingFlag{{FormulaID: "CAT-04"}},
		Phases:   []model.PendingFlag{{FormulaID: "CLEAN-07"}},
	}
	all := f.All()
	if len(all) != 3 || all[0].FormulaID != "GLOBAL-16" || all[2].FormulaID != "CLEAN-07" {
		t.Errorf("All = %+v", all)
	}
}

func TestNewRunnerRejectsBadCleanerOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Cleaner.DateSampleSize = 0
	if _, err := NewRunner(opts, nil); err == nil {
		t.Error("expected an error for a zero date sample size")
	}
}
