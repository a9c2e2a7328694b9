package cleaner

import (
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func newCleaner(t *testing.T, opts Options) *DataCleaner {
	t.Helper()
	c, err := NewDataCleaner(opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewDataCleaner: %v", err)
	}
	return c
}

func mustDataset(t *testing.T, cols []string, values ...[]interface{}) *model.Dataset {
	t.Helper()
	ds, err := model.FromColumns(cols, values)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return ds
}

func columnValues(t *testing.T, ds *model.Dataset, name string) []interface{} {
	t.Helper()
	values, ok := ds.ColumnByName(name)
	if !ok {
		t.Fatalf("column %q missing from %v", name, ds.Columns())
	}
	return values
}

func assertValues(t *testing.T, name string, got, want []interface{}) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d values, want %d: %v", name, len(got), len(want), got)
	}
	for i := range want {
		if !model.Equal(got[i], want[i]) {
			t.Errorf("%s row %d = %#v, want %#v", name, i, got[i], want[i])
		}
	}
}

func TestRunAllPhases(t *testing.T) {
	ds := mustDataset(t,
		[]string{"First Name", "signup", "Age", "score", "notes"},
		[]interface{}{"Ann", "Bob", "Cid", "Ann", nil, "Dee", "Bob"},
		[]interface{}{"2024-01-15", "2024-02-03", "March 5, 2024", "2024-01-15", "2024-04-20", "not a date", "2024-06-01"},
		[]interface{}{25, 40, 70, 25, 15, nil, 33},
		[]interface{}{10.0, 12.0, 11.0, 10.0, 13.0, 500.0, 12.0},
		[]interface{}{nil, nil, nil, nil, "x", nil, nil},
	)
	htypes := model.HtypeMap{"Age": {HtypeCode: "HTYPE-007", FormulaSet: "AGE"}}
	sink := audit.NewCollector()

	out, err := newCleaner(t, DefaultOptions()).Run("job-1", ds, sink, htypes)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := Summary{
		DuplicatesRemoved: 1,
		ColumnsRenamed:    2,
		ColumnsDropped:    1,
		DatesConverted:    1,
		AgesBucketed:      1,
		MissingFilled:     2,
		OutliersFlagged:   1,
		RowCountOriginal:  7,
		RowCountCleaned:   6,
	}
	got := out.Summary
	got.RulesApplied = nil
	if !reflect.DeepEqual(got, want) {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
	if len(out.Summary.RulesApplied) != 7 {
		t.Errorf("rules applied = %v, want all seven phases", out.Summary.RulesApplied)
	}

	wantCols := []string{"first_name", "signup", "age", "score"}
	if cols := out.Dataset.Columns(); len(cols) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", cols, wantCols)
	}
	assertValues(t, "first_name", columnValues(t, out.Dataset, "first_name"),
		[]interface{}{"Ann", "Bob", "Cid", "Bob", "Dee", "Bob"})
	assertValues(t, "signup", columnValues(t, out.Dataset, "signup"),
		[]interface{}{"2024-01", "2024-02", "2024-03", "2024-04", "not a date", "2024-06"})
	assertValues(t, "age", columnValues(t, out.Dataset, "age"),
		[]interface{}{"19-35", "36-60", "60+", "0-18", "19-35", "19-35"})

	dup := sink.ByFormula("CLEAN-01")
	if len(dup) != 1 || dup[0].RowIndex == nil || *dup[0].RowIndex != 3 {
		t.Errorf("CLEAN-01 entries = %+v, want one at row 3", dup)
	}

	if len(out.Flags) != 1 {
		t.Fatalf("flags = %+v, want one outlier flag", out.Flags)
	}
	flag := out.Flags[0]
	if flag.FormulaID != "CLEAN-07" || flag.FlagType != "outlier" {
		t.Errorf("flag = %+v", flag)
	}
	if len(flag.AffectedRows) != 1 || flag.AffectedRows[0] != 4 {
		t.Errorf("outlier rows = %v, want [4]", flag.AffectedRows)
	}
	if flag.Details["lower_bound"] != 9.0 || flag.Details["upper_bound"] != 15.0 {
		t.Errorf("fences = %v..%v, want 9..15", flag.Details["lower_bound"], flag.Details["upper_bound"])
	}
	for _, e := range sink.ByFormula("CLEAN-07") {
		if e.WasAutoApplied {
			t.Errorf("outlier entry %q should wait for review", e.Action)
		}
	}
}

func TestRunLeavesInputUntouched(t *testing.T) {
	ds := mustDataset(t, []string{"Name"}, []interface{}{"a", "a", nil})
	if _, err := newCleaner(t, DefaultOptions()).Run("job-1", ds, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ds.NumRows() != 3 || ds.Columns()[0] != "Name" {
		t.Errorf("input mutated: %v rows, columns %v", ds.NumRows(), ds.Columns())
	}
}

func TestDisabledPhases(t *testing.T) {
	opts := DefaultOptions()
	opts.FillMissing = false
	opts.RemoveDuplicates = false
	ds := mustDataset(t, []string{"city"},
		[]interface{}{"Oslo", "Oslo", nil, "Rome", "Oslo"})

	out, err := newCleaner(t, opts).Run("job-1", ds, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertValues(t, "city", columnValues(t, out.Dataset, "city"),
		[]interface{}{"Oslo", "Oslo", nil, "Rome", "Oslo"})
	if out.Summary.MissingFilled != 0 || out.Summary.DuplicatesRemoved != 0 {
		t.Errorf("summary = %+v", out.Summary)
	}
}

func TestBucketAgesOnlyForAgeColumns(t *testing.T) {
	ds := mustDataset(t, []string{"age", "rating"},
		[]interface{}{20, 30, 40, 50},
		[]interface{}{20, 30, 40, 50})
	htypes := model.HtypeMap{
		"age":    {FormulaSet: "AGE"},
		"rating": {FormulaSet: "SCORE"},
	}
	out, err := newCleaner(t, DefaultOptions()).Run("job-1", ds, nil, htypes)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertValues(t, "age", columnValues(t, out.Dataset, "age"),
		[]interface{}{"19-35", "19-35", "36-60", "36-60"})
	assertValues(t, "rating", columnValues(t, out.Dataset, "rating"),
		[]interface{}{int64(20), int64(30), int64(40), int64(50)})
}

func TestNewDataCleanerValidation(t *testing.T) {
	if _, err := NewDataCleaner(DefaultOptions(), nil); err == nil {
		t.Error("expected an error for a nil logger")
	}
	opts := DefaultOptions()
	opts.EmptyColumnRatio = 1.5
	if _, err := NewDataCleaner(opts, zaptest.NewLogger(t)); err == nil {
		t.Error("expected an error for an empty column ratio above 1")
	}
	if _, err := newCleaner(t, DefaultOptions()).Run("job-1", nil, nil, nil); err == nil {
		t.Error("expected an error for a nil dataset")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"  First Name ": "first_name",
		"Amount ($)":    "amount_",
		"Zip-Code":      "zipcode",
		"already_ok":    "already_ok",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBucketAge(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{int64(0), "0-18"},
		{18.0, "0-18"},
		{int64(19), "19-35"},
		{int64(60), "36-60"},
		{60.5, "60+"},
		{int64(120), "60+"},
		{int64(121), int64(121)},
		{-1.0, -1.0},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := BucketAge(tt.in); !model.Equal(got, tt.want) {
			t.Errorf("BucketAge(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFillValue(t *testing.T) {
	v, method, ok := FillValue([]interface{}{int64(1), int64(2), nil, 4.0})
	if !ok || method != "mean" || !model.Equal(v, 2.3333) {
		t.Errorf("numeric fill = %v %s %v, want 2.3333 mean", v, method, ok)
	}
	v, method, ok = FillValue([]interface{}{"b", "a", "b", "a", nil})
	if !ok || method != "mode" || v != "a" {
		t.Errorf("tied mode = %v %s %v, want a", v, method, ok)
	}
	if _, _, ok := FillValue([]interface{}{nil, nil}); ok {
		t.Error("an all-null column has no fill value")
	}
}

func TestIQRFences(t *testing.T) {
	if _, _, ok := IQRFences([]float64{1, 2, 3}, 1.5); ok {
		t.Error("fewer than four values must not produce fences")
	}
	lower, upper, ok := IQRFences([]float64{10, 12, 11, 13, 500, 12}, 1.5)
	if !ok || lower != 9 || upper != 15 {
		t.Errorf("fences = %v %v %v, want 9 15", lower, upper, ok)
	}
}
