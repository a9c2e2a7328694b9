package formula

import (
	"strings"
	"testing"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func TestFlagIsDualWritten(t *testing.T) {
	sink := audit.NewCollector()
	rec := NewRecorder("job-1", sink)
	rec.Flag(model.PendingFlag{
		FormulaID:       "GLOBAL-01",
		FlagType:        "empty_column",
		Description:     "mostly null",
		AffectedColumns: []string{"notes"},
		SuggestedAction: "remove_column",
	})

	if len(rec.Flags()) != 1 {
		t.Fatalf("flags = %d, want 1", len(rec.Flags()))
	}
	entries := sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.WasAutoApplied {
		t.Errorf("flag entry must not be auto-applied")
	}
	if e.Action != "pending_review_empty_column" {
		t.Errorf("action = %q", e.Action)
	}
	if e.ColumnName == nil || *e.ColumnName != "notes" {
		t.Errorf("column = %v, want notes", e.ColumnName)
	}
}

func TestFlagTruncatesAffectedRows(t *testing.T) {
	rec := NewRecorder("job", nil)
	rows := make([]int, 120)
	for i := range rows {
		rows[i] = i
	}
	rec.Flag(model.PendingFlag{FormulaID: "X-01", FlagType: "x", AffectedRows: rows})
	f := rec.Flags()[0]
	if len(f.AffectedRows) != MaxFlaggedRows || f.AffectedCount != 120 {
		t.Fatalf("rows = %d count = %d", len(f.AffectedRows), f.AffectedCount)
	}
}

func TestTransformLogsChangesAndCaps(t *testing.T) {
	rows := make([][]interface{}, 150)
	for i := range rows {
		rows[i] = []interface{}{"  padded  "}
	}
	rows[0] = []interface{}{nil}
	ds := model.NewDataset([]string{"name"}, rows)
	sink := audit.NewCollector()
	rec := NewRecorder("job", sink)
	col := &Column{Rec: rec, Data: ds, Name: "name"}

	res := col.TransformStrings("FNAME-02", "Extra whitespace removal", func(s string) (interface{}, bool) {
		return CollapseSpaces(s), true
	})
	if res.Changes != 149 {
		t.Fatalf("changes = %d, want 149", res.Changes)
	}
	if sink.Len() != MaxLoggedRows {
		t.Fatalf("logged = %d, want %d", sink.Len(), MaxLoggedRows)
	}
	if ds.Cell(1, 0) != "padded" || ds.Cell(0, 0) != nil {
		t.Fatalf("unexpected cells %v %v", ds.Cell(0, 0), ds.Cell(1, 0))
	}
	if got := rec.Applied(); len(got) != 1 || got[0] != "FNAME-02" {
		t.Fatalf("applied = %v", got)
	}
}

func TestLogTruncatesLongValues(t *testing.T) {
	sink := audit.NewCollector()
	rec := NewRecorder("job", sink)
	long := strings.Repeat("x", 500)
	rec.Log("T-01", "a", "r", model.WithValues(long, "y"))
	if got := len(*sink.Entries()[0].OriginalValue); got != MaxValueLength {
		t.Fatalf("original length = %d", got)
	}
}

func TestRunBatteryRecoversPanics(t *testing.T) {
	ds := model.NewDataset([]string{"a"}, [][]interface{}{{"x"}})
	htypes := model.HtypeMap{"a": {HtypeCode: "HTYPE-999", FormulaSet: "T"}}
	battery := Battery{"T": {
		{ID: "T-01", Policy: Auto, Apply: func(c *Column) Result { panic("boom") }},
		{ID: "T-02", Policy: Auto, Apply: func(c *Column) Result {
			return c.TransformStrings("T-02", "upper", func(s string) (interface{}, bool) { return strings.ToUpper(s), true })
		}},
	}}
	sum := RunBattery(NewRecorder("job", nil), ds, htypes, battery)
	if sum.TotalChanges != 1 || ds.Cell(0, 0) != "X" {
		t.Fatalf("summary = %+v cell = %v", sum, ds.Cell(0, 0))
	}
	if len(sum.ColumnsProcessed) != 1 {
		t.Fatalf("columns processed = %v", sum.ColumnsProcessed)
	}
}

func TestWordsToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"twenty five", 25, true},
		{"twenty-five", 25, true},
		{"one hundred and twenty", 120, true},
		{"tweny", 20, true},
		{"three thousand two hundred", 3200, true},
		{"banana", 0, false},
	}
	for _, tt := range tests {
		got, ok := WordsToNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("WordsToNumber(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNameCase(t *testing.T) {
	tests := map[string]string{
		"john o'brien":     "John O'Brien",
		"MARY-JANE watson": "Mary-Jane Watson",
		"ronald mcdonald":  "Ronald McDonald",
		"douglas macarthur": "Douglas MacArthur",
	}
	for in, want := range tests {
		if got := NameCase(in); got != want {
			t.Errorf("NameCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate("2024-01-15"); !ok {
		t.Error("ISO date should parse")
	}
	if _, ok := ParseDate("12345"); ok {
		t.Error("bare number should not parse as a date")
	}
	d, ok := ParseDateDayFirst("03/04/2024")
	if !ok || d.Month() != 4 || d.Day() != 3 {
		t.Errorf("day-first parse = %v, %v", d, ok)
	}
	m, ok := ParseDate("03/04/2024")
	if !ok || m.Month() != 3 {
		t.Errorf("month-first parse = %v, %v", m, ok)
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	if q := Quantile(xs, 0.25); q != 1.75 {
		t.Errorf("Q1 = %v, want 1.75", q)
	}
	if m := Median(xs); m != 2.5 {
		t.Errorf("median = %v, want 2.5", m)
	}
}
