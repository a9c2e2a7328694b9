package review

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func people(t *testing.T) *model.Dataset {
	t.Helper()
	ds, err := model.FromColumns([]string{"name", "age", "city"}, [][]interface{}{
		{"Ann", "Bo", "Cy", "Di"},
		{int64(30), nil, int64(41), int64(400)},
		{nil, nil, "Oslo", "Rome"},
	})
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return ds
}

func TestMissingFields(t *testing.T) {
	got := MissingFields(people(t))
	want := []MissingField{
		{Column: "age", Count: 1, Percentage: 25},
		{Column: "city", Count: 2, Percentage: 50},
	}
	if len(got) != len(want) {
		t.Fatalf("MissingFields = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got := MissingFields(nil); len(got) != 0 {
		t.Errorf("nil dataset = %+v", got)
	}
}

func TestFillWritesAuditEntries(t *testing.T) {
	ds := people(t)
	sink := audit.NewCollector()
	r, err := NewReviewer("job-1", ds, sink, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	n, err := r.Fill("city", []int{0, 1, 9}, []interface{}{"Lima", "Kyiv", "Nowhere"})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if n != 2 {
		t.Errorf("filled = %d, want 2 (row 9 is outside the dataset)", n)
	}
	if got := r.Dataset().Cell(1, 2); got != "Kyiv" {
		t.Errorf("city[1] = %v", got)
	}
	if ds.Cell(1, 2) != nil {
		t.Errorf("input dataset was mutated")
	}

	entries := sink.ByFormula(ManualFillID)
	if len(entries) != 2 || r.Changes() != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[0]
	if e.Action != "fill_missing" || !e.WasAutoApplied || *e.RowIndex != 0 || *e.ColumnName != "city" ||
		e.OriginalValue != nil || *e.NewValue != "Lima" {
		t.Errorf("entry = %+v", e)
	}

	if _, err := r.Fill("country", []int{0}, []interface{}{"PE"}); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("unknown column err = %v", err)
	}
	if _, err := r.Fill("city", []int{0, 1}, []interface{}{"x"}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("length mismatch err = %v", err)
	}
}

func TestResolveOutlier(t *testing.T) {
	sink := audit.NewCollector()
	r, _ := NewReviewer("job-1", people(t), sink, nil)

	if err := r.ResolveOutlier(3, Keep); err != nil {
		t.Fatalf("keep: %v", err)
	}
	if r.Dataset().NumRows() != 4 || sink.Len() != 0 {
		t.Fatalf("keeping an outlier changed the dataset or the log")
	}

	if err := r.ResolveOutlier(3, Remove); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if r.Dataset().NumRows() != 3 {
		t.Errorf("rows = %d, want 3", r.Dataset().NumRows())
	}
	entries := sink.ByFormula(OutlierDecisionID)
	if len(entries) != 1 || entries[0].Action != "remove_outlier" || *entries[0].RowIndex != 3 {
		t.Fatalf("entries = %+v", entries)
	}

	if err := r.ResolveOutlier(3, Remove); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
	if err := r.ResolveOutlier(0, Decision("drop")); !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("invalid decision err = %v", err)
	}
}

func TestOutliersFromLog(t *testing.T) {
	entries := []model.CleaningLogEntry{
		model.NewLogEntry("job-1", "CLEAN-07", "flag_outlier", "Value 400 is outside IQR range [7.5, 63.5]",
			model.AtRow(3), model.InColumn("age"), model.WithOriginalValue(int64(400)), model.Pending()),
		model.NewLogEntry("job-1", "CLEAN-06", "fill_missing", "Filled with median", model.AtRow(1)),
	}
	got := Outliers(entries)
	if len(got) != 1 {
		t.Fatalf("Outliers = %+v", got)
	}
	o := got[0]
	if *o.Row != 3 || o.Column != "age" || o.Value != "400" || o.ExpectedRange != "[7.5, 63.5]" {
		t.Errorf("outlier = %+v", o)
	}
}

func TestParseDecision(t *testing.T) {
	if d, err := ParseDecision(" Remove "); err != nil || d != Remove {
		t.Errorf("ParseDecision = %v, %v", d, err)
	}
	if _, err := ParseDecision("maybe"); !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("err = %v", err)
	}
}

func TestParseCell(t *testing.T) {
	when := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		raw    string
		column []interface{}
		want   interface{}
	}{
		{"42", []interface{}{int64(1), nil}, int64(42)},
		{"4.5", []interface{}{1.5}, 4.5},
		{"true", []interface{}{false}, true},
		{"2024-03-01", []interface{}{when}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"abc", []interface{}{int64(1)}, "abc"},
		{"Oslo", []interface{}{"Rome"}, "Oslo"},
		{"  ", []interface{}{"Rome"}, nil},
	}
	for _, tt := range tests {
		if got := ParseCell(tt.raw, tt.column); !model.Equal(got, tt.want) {
			t.Errorf("ParseCell(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}
}
