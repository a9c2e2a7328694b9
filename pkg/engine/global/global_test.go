package global

import (
	"fmt"
	"regexp"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func runGlobal(t *testing.T, ds *model.Dataset) (*Output, *audit.Collector) {
	t.Helper()
	return runGlobalWith(t, DefaultOptions(), ds)
}

func runGlobalWith(t *testing.T, opts Options, ds *model.Dataset) (*Output, *audit.Collector) {
	t.Helper()
	sink := audit.NewCollector()
	out, err := NewEngine(opts, zaptest.NewLogger(t)).Run("job-1", ds, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out, sink
}

func TestNameNormalizationAndPII(t *testing.T) {
	ds, _ := model.FromColumns(
		[]string{"First Name", "emial"},
		[][]interface{}{{"Alice", "Bob"}, {"a@x.com", "b@x.com"}},
	)
	out, _ := runGlobal(t, ds)

	cols := out.Dataset.Columns()
	if cols[0] != "first_name" || cols[1] != "email" {
		t.Fatalf("columns = %v", cols)
	}
	if tag, ok := out.Summary.PIITags["email"]; !ok || tag.Level != "medium" {
		t.Fatalf("email tag = %+v, %v", tag, ok)
	}
	if out.Summary.ColumnsRenamed["emial"] != "email" {
		t.Errorf("renamed = %v", out.Summary.ColumnsRenamed)
	}
}

func TestAllNullRowRemovedAndLoggedOnce(t *testing.T) {
	ds := model.NewDataset([]string{"a", "b", "c", "d", "e"}, [][]interface{}{
		{"1", "2", "3", "4", "5"},
		{nil, nil, nil, nil, nil},
		{"6", "7", "8", "9", "10"},
	})
	out, sink := runGlobal(t, ds)

	if out.Dataset.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", out.Dataset.NumRows())
	}
	entries := sink.ByFormula("GLOBAL-05")
	if len(entries) != 1 {
		t.Fatalf("GLOBAL-05 entries = %d, want 1", len(entries))
	}
	if !entries[0].WasAutoApplied || entries[0].RowIndex == nil || *entries[0].RowIndex != 1 {
		t.Errorf("entry = %+v", entries[0])
	}
	for row := 0; row < out.Dataset.NumRows(); row++ {
		allNull := true
		for _, v := range out.Dataset.Row(row) {
			if v != nil {
				allNull = false
			}
		}
		if allNull {
			t.Errorf("row %d is still all null", row)
		}
	}
}

func TestCellLevelRules(t *testing.T) {
	ds := model.NewDataset([]string{"\ufeffnote", "id"}, [][]interface{}{
		{"cafÃ©", "'00123"},
		{"   ", "'twas"},
		{"plain", "x"},
	})
	out, sink := runGlobal(t, ds)

	if out.Dataset.ColumnName(0) != "note" {
		t.Errorf("BOM not removed from header: %q", out.Dataset.ColumnName(0))
	}
	if got := out.Dataset.Cell(0, 0); got != "café" {
		t.Errorf("encoding fix = %q", got)
	}
	if got := out.Dataset.Cell(0, 1); got != "00123" {
		t.Errorf("apostrophe strip = %q", got)
	}
	if got := out.Dataset.Cell(1, 1); got != "'twas" {
		t.Errorf("lowercase apostrophe text should be kept, got %q", got)
	}
	if out.Dataset.Cell(1, 0) != nil {
		t.Errorf("whitespace cell should be null")
	}
	for _, id := range []string{"GLOBAL-11", "GLOBAL-14", "GLOBAL-15"} {
		if len(sink.ByFormula(id)) != 1 {
			t.Errorf("%s entries = %d, want 1", id, len(sink.ByFormula(id)))
		}
	}
}

func TestSummaryAndRepeatedHeaderRows(t *testing.T) {
	ds := model.NewDataset([]string{"item", "qty"}, [][]interface{}{
		{"apple", int64(3)},
		{"item", "qty"},
		{"pear", int64(4)},
		{"Grand Total", int64(7)},
	})
	out, _ := runGlobal(t, ds)
	if out.Summary.SummaryRowsRemoved != 1 || out.Summary.RepeatedHeaderRowsRemoved != 1 {
		t.Fatalf("summary = %+v", out.Summary)
	}
	if out.Dataset.NumRows() != 2 {
		t.Fatalf("rows = %d", out.Dataset.NumRows())
	}
}

func TestDuplicateHeadersDisambiguated(t *testing.T) {
	ds := model.NewDataset([]string{"Amount", "amount", "AMOUNT "}, [][]interface{}{{1, 2, 3}, {4, 5, 6}})
	out, sink := runGlobal(t, ds)

	want := []string{"amount", "amount_1", "amount_2"}
	for i, w := range want {
		if out.Dataset.ColumnName(i) != w {
			t.Fatalf("columns = %v, want %v", out.Dataset.Columns(), want)
		}
	}
	var flagged int
	for _, f := range out.Flags {
		if f.FormulaID == "GLOBAL-04" {
			flagged++
		}
	}
	if flagged != 1 || len(sink.ByFormula("GLOBAL-04")) != 1 {
		t.Fatalf("GLOBAL-04 flags = %d, entries = %d", flagged, len(sink.ByFormula("GLOBAL-04")))
	}
}

func TestNormalizeColumnNameShape(t *testing.T) {
	re := regexp.MustCompile(`^[a-z0-9_]+$`)
	inputs := []string{" Total  Amount ", "Fule-Type", "__weird__name__", "Qty (units)", "Date of Birth!"}
	for _, in := range inputs {
		got := NormalizeColumnName(in)
		if !re.MatchString(got) {
			t.Errorf("%q -> %q does not match snake_case", in, got)
		}
		if got[0] == '_' || got[len(got)-1] == '_' || regexp.MustCompile(`__`).MatchString(got) {
			t.Errorf("%q -> %q has stray underscores", in, got)
		}
	}
	if got := NormalizeColumnName("Fule-Type"); got != "fuel_type" {
		t.Errorf("spell correction = %q", got)
	}
}

func TestPIITokenAwareness(t *testing.T) {
	if tag, ok := MatchPII("city"); !ok || tag.Level != "low" {
		t.Errorf("city = %+v %v, want low", tag, ok)
	}
	if tag, _ := MatchPII("ethnicity"); tag.Level == "low" {
		t.Errorf("ethnicity matched through city")
	}
	if _, ok := MatchPII("velocity"); ok {
		t.Errorf("velocity should not be tagged")
	}
	if tag, ok := MatchPII("customer_email"); !ok || tag.Level != "medium" {
		t.Errorf("customer_email = %+v %v", tag, ok)
	}
}

func TestMixedTypeFlag(t *testing.T) {
	ds, _ := model.FromColumns([]string{"score"}, [][]interface{}{{int64(100), int64(200), int64(300), "N/A"}})
	out, sink := runGlobal(t, ds)

	info := out.Summary.TypeInference["score"]
	if info.DominantType != "integer" || info.MismatchPct != 25 {
		t.Fatalf("type info = %+v", info)
	}
	if len(sink.ByFormula("GLOBAL-09")) != 1 {
		t.Errorf("GLOBAL-09 mismatch not logged")
	}
	found := false
	for _, f := range out.Flags {
		if f.FormulaID == "GLOBAL-16" {
			found = true
		}
	}
	if !found {
		t.Fatalf("GLOBAL-16 flag missing: %+v", out.Flags)
	}
}

func TestMergedCellForwardFill(t *testing.T) {
	ds, _ := model.FromColumns([]string{"region", "v"}, [][]interface{}{
		{"North", nil, nil, "South", nil, nil},
		{1, 2, 3, 4, 5, 6},
	})
	out, _ := runGlobal(t, ds)
	want := []interface{}{"North", "North", "North", "South", "South", "South"}
	got := out.Dataset.Column(0)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("region = %v", got)
		}
	}
}

func TestIdempotentSecondPass(t *testing.T) {
	ds := model.NewDataset([]string{"First Name", "Amount", "Amount", "notes"}, [][]interface{}{
		{" Alice ", int64(1), int64(2), "''5"},
		{nil, nil, nil, nil},
		{"Bob", int64(3), "   ", nil},
		{"Total", int64(4), int64(5), nil},
	})
	first, _ := runGlobal(t, ds)
	second, sink := runGlobal(t, first.Dataset)

	informational := map[string]bool{"GLOBAL-09": true, "GLOBAL-10": true}
	for _, e := range sink.Entries() {
		if e.WasAutoApplied && !informational[e.FormulaID] {
			t.Errorf("second pass fired %s (%s)", e.FormulaID, e.Action)
		}
	}
	if first.Dataset.NumRows() != second.Dataset.NumRows() {
		t.Errorf("row count changed on second pass")
	}
	if got := first.Dataset.Cell(0, 3); got != "5" {
		t.Errorf("notes = %q, want every leading apostrophe stripped", got)
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	ds := model.NewDataset([]string{"A B"}, [][]interface{}{{"  "}})
	runGlobal(t, ds)
	if ds.ColumnName(0) != "A B" || ds.Cell(0, 0) != "  " {
		t.Fatalf("input dataset was mutated")
	}
}

func TestDuplicateHeadersSkipTakenSuffix(t *testing.T) {
	ds := model.NewDataset([]string{"name", "name", "name_1"}, [][]interface{}{{"a", "b", "c"}})
	out, _ := runGlobal(t, ds)

	want := []string{"name", "name_2", "name_1"}
	seen := map[string]bool{}
	for i, col := range out.Dataset.Columns() {
		if seen[col] {
			t.Errorf("column %q appears twice in %v", col, out.Dataset.Columns())
		}
		seen[col] = true
		if col != want[i] {
			t.Errorf("columns = %v, want %v", out.Dataset.Columns(), want)
		}
	}
}

func TestUniqueNames(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
		dups int
	}{
		{[]string{"a", "b"}, []string{"a", "b"}, 0},
		{[]string{"a", "a", "a"}, []string{"a", "a_1", "a_2"}, 1},
		{[]string{"a", "a", "a_1", "a_1"}, []string{"a", "a_2", "a_1", "a_1_1"}, 2},
		{[]string{"x_1", "x", "x", "x_2"}, []string{"x_1", "x", "x_3", "x_2"}, 1},
	}
	for _, tt := range tests {
		got, dups := UniqueNames(tt.in)
		if fmt.Sprint(got) != fmt.Sprint(tt.want) || len(dups) != tt.dups {
			t.Errorf("UniqueNames(%v) = %v (%d repeated), want %v (%d)", tt.in, got, len(dups), tt.want, tt.dups)
		}
	}
	if got, _ := NormalizeHeaders([]string{"Email", "EMAIL ", "Region", "!!"}); fmt.Sprint(got) != "[email email_1 region !!]" {
		t.Errorf("NormalizeHeaders = %v", got)
	}
}

func TestStripLeadingApostrophe(t *testing.T) {
	tests := []struct {
		in, want string
		changed  bool
	}{
		{"'00123", "00123", true},
		{"''5", "5", true},
		{"'''ABC", "ABC", true},
		{"'twas", "'twas", false},
		{"''", "''", false},
		{"plain", "plain", false},
	}
	for _, tt := range tests {
		got, changed := StripLeadingApostrophe(tt.in)
		if got != tt.want || changed != tt.changed {
			t.Errorf("StripLeadingApostrophe(%q) = %q, %v, want %q, %v", tt.in, got, changed, tt.want, tt.changed)
		}
		if again, changed := StripLeadingApostrophe(got); changed || again != got {
			t.Errorf("StripLeadingApostrophe(%q) changed its own output to %q", got, again)
		}
	}
}

func TestEmptyAndConstantColumnsFlagged(t *testing.T) {
	ds, _ := model.FromColumns([]string{"id", "city", "blank", "country"}, [][]interface{}{
		{int64(1), int64(2), int64(3)},
		{"Lyon", "Oslo", "Kyiv"},
		{nil, nil, nil},
		{"US", "US", "US"},
	})
	out, sink := runGlobal(t, ds)

	tests := []struct {
		formulaID, column, flagType, action string
	}{
		{"GLOBAL-01", "blank", "empty_column", "remove_column"},
		{"GLOBAL-02", "country", "constant_column", "review_constant_column"},
	}
	for _, tt := range tests {
		t.Run(tt.formulaID, func(t *testing.T) {
			var found *model.PendingFlag
			for i := range out.Flags {
				if out.Flags[i].FormulaID == tt.formulaID {
					found = &out.Flags[i]
				}
			}
			if found == nil {
				t.Fatalf("no %s flag in %+v", tt.formulaID, out.Flags)
			}
			if found.FlagType != tt.flagType || found.SuggestedAction != tt.action ||
				len(found.AffectedColumns) != 1 || found.AffectedColumns[0] != tt.column {
				t.Errorf("flag = %+v", *found)
			}
			entries := sink.ByFormula(tt.formulaID)
			if len(entries) != 1 || entries[0].WasAutoApplied || entries[0].Action != "pending_review_"+tt.flagType {
				t.Fatalf("entries = %+v", entries)
			}
			if entries[0].ColumnName == nil || *entries[0].ColumnName != tt.column {
				t.Errorf("entry column = %v, want %s", entries[0].ColumnName, tt.column)
			}
			// Ask-first rules leave the column in place
			if !out.Dataset.HasColumn(tt.column) {
				t.Errorf("column %s was removed", tt.column)
			}
		})
	}
	if fmt.Sprint(out.Summary.ColumnsRemoved) != "[blank]" || fmt.Sprint(out.Summary.ConstantColumns) != "[country]" {
		t.Errorf("summary = %v / %v", out.Summary.ColumnsRemoved, out.Summary.ConstantColumns)
	}
}

// sparseTable builds ncols x nrows distinct integers where row sparse keeps
// only its first keep cells
func sparseTable(ncols, nrows, sparse, keep int) *model.Dataset {
	cols := make([]string, ncols)
	for c := range cols {
		cols[c] = fmt.Sprintf("c%d", c)
	}
	rows := make([][]interface{}, nrows)
	for r := range rows {
		rows[r] = make([]interface{}, ncols)
		for c := 0; c < ncols; c++ {
			if r == sparse && c >= keep {
				continue
			}
			rows[r][c] = int64(r*100 + c)
		}
	}
	return model.NewDataset(cols, rows)
}

func TestMalformedRows(t *testing.T) {
	loose := DefaultOptions()
	loose.MalformedRowNullRate = 0.5

	narrowGate := loose
	narrowGate.MalformedRowMinColumns = 3

	tests := []struct {
		name     string
		opts     Options
		ds       *model.Dataset
		wantRows []int
	}{
		{"one value in a wide row", DefaultOptions(), sparseTable(6, 6, 2, 1), []int{2}},
		{"two values in a wide row", DefaultOptions(), sparseTable(6, 6, 2, 2), nil},
		{"three values stay over the cap", loose, sparseTable(6, 6, 4, 3), nil},
		{"narrow table below the column gate", loose, sparseTable(3, 6, 1, 1), nil},
		{"narrow table with a lowered gate", narrowGate, sparseTable(3, 6, 1, 1), []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, sink := runGlobalWith(t, tt.opts, tt.ds)
			entries := sink.ByFormula("GLOBAL-06")

			if tt.wantRows == nil {
				if len(entries) != 0 || out.Summary.MalformedRows != 0 {
					t.Fatalf("unexpected GLOBAL-06 entries %+v", entries)
				}
				return
			}
			if len(entries) != 1 || entries[0].WasAutoApplied || entries[0].Action != "pending_review_malformed_rows" {
				t.Fatalf("entries = %+v", entries)
			}
			var flag *model.PendingFlag
			for i := range out.Flags {
				if out.Flags[i].FormulaID == "GLOBAL-06" {
					flag = &out.Flags[i]
				}
			}
			if flag == nil || fmt.Sprint(flag.AffectedRows) != fmt.Sprint(tt.wantRows) ||
				flag.SuggestedAction != "review_or_drop_malformed_rows" {
				t.Fatalf("flag = %+v", flag)
			}
			if out.Summary.MalformedRows != len(tt.wantRows) || out.Dataset.NumRows() != tt.ds.NumRows() {
				t.Errorf("summary = %d malformed, rows %d", out.Summary.MalformedRows, out.Dataset.NumRows())
			}
		})
	}
}
