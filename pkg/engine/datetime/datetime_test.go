package datetime

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var refDate = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func runDateTime(t *testing.T, ds *model.Dataset, htypes model.HtypeMap) (*Output, *audit.Collector) {
	t.Helper()
	sink := audit.NewCollector()
	out, err := NewEngine(Options{ReferenceDate: refDate}, zaptest.NewLogger(t)).Run("job-1", ds, sink, htypes)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out, sink
}

func single(t *testing.T, col, set string, values ...interface{}) (*Output, *audit.Collector) {
	t.Helper()
	ds, err := model.FromColumns([]string{col}, [][]interface{}{values})
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return runDateTime(t, ds, model.HtypeMap{col: {FormulaSet: set}})
}

func values(t *testing.T, out *Output, col string) []interface{} {
	t.Helper()
	v, ok := out.Dataset.ColumnByName(col)
	if !ok {
		t.Fatalf("column %q missing from %v", col, out.Dataset.Columns())
	}
	return v
}

func flagRows(out *Output) map[string][]int {
	rows := map[string][]int{}
	for _, f := range out.Flags {
		rows[f.FlagType] = f.AffectedRows
	}
	return rows
}

func sameRows(got []int, want ...int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestDateColumn(t *testing.T) {
	out, sink := single(t, "order_date", "DATE",
		"15/03/2024",
		"03/04/2024",
		"N/A",
		45000,
		"yesterday",
		"2023",
		"March 5th, 2024",
		"32/13/2024",
		"2030-01-01",
	)

	got := values(t, out, "order_date")
	want := []interface{}{
		day(2024, 3, 15), day(2024, 4, 3), nil, day(2023, 3, 15), day(2024, 6, 14),
		day(2023, 1, 1), day(2024, 3, 5), nil, day(2030, 1, 1),
	}
	for i := range want {
		if !model.Equal(got[i], want[i]) {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}

	weekdays := values(t, out, "order_date_weekday")
	if weekdays[0] != "Friday" || weekdays[5] != "Sunday" || weekdays[2] != nil {
		t.Errorf("weekdays = %v", weekdays)
	}
	if out.Dataset.ColumnName(1) != "order_date_weekday" {
		t.Errorf("columns = %v", out.Dataset.Columns())
	}

	rows := flagRows(out)
	if !sameRows(rows["invalid_date"], 7) {
		t.Errorf("invalid_date rows = %v", rows["invalid_date"])
	}
	if !sameRows(rows["ambiguous_date_format"], 1) {
		t.Errorf("ambiguous rows = %v", rows["ambiguous_date_format"])
	}
	if !sameRows(rows["future_date"], 8) {
		t.Errorf("future rows = %v", rows["future_date"])
	}
	if _, ok := rows["invalid_dob"]; ok {
		t.Error("DOB check ran on a non-birth column")
	}

	for _, id := range []string{"DATE-01", "DATE-07", "DATE-08", "DATE-09", "DATE-10", "DATE-14"} {
		if len(sink.ByFormula(id)) == 0 {
			t.Errorf("%s did not log", id)
		}
	}
	for _, e := range sink.ByFormula("DATE-03") {
		if e.WasAutoApplied || e.Action != "pending_review_invalid_date" {
			t.Errorf("DATE-03 entry = %+v", e)
		}
	}
}

func TestBirthDateSanity(t *testing.T) {
	out, _ := single(t, "date_of_birth", "DATE", "1990-05-05", "1901-05-05", "2025-01-01")

	rows := flagRows(out)
	if !sameRows(rows["invalid_dob"], 1, 2) {
		t.Errorf("invalid_dob rows = %v", rows["invalid_dob"])
	}
	if !sameRows(rows["future_date"], 2) {
		t.Errorf("future rows = %v", rows["future_date"])
	}
}

func TestTimeColumn(t *testing.T) {
	out, _ := single(t, "start_time", "TIME", "3:00 PM", "9:5", "10:30:00+05:30", "25:00", "12:15 am")

	got := values(t, out, "start_time")
	want := []interface{}{"15:00", "09:05", "10:30:00", "25:00", "00:15"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
	if tz := values(t, out, "start_time_timezone"); tz[2] != "+05:30" || tz[0] != nil {
		t.Errorf("timezone column = %v", tz)
	}
	buckets := values(t, out, "start_time_bucket")
	wantBuckets := []interface{}{"Afternoon", "Morning", "Morning", nil, "Night"}
	for i := range wantBuckets {
		if buckets[i] != wantBuckets[i] {
			t.Errorf("bucket %d = %v, want %v", i, buckets[i], wantBuckets[i])
		}
	}
	if !sameRows(flagRows(out)["invalid_time"], 3) {
		t.Errorf("flags = %+v", out.Flags)
	}
}

func TestTimestampColumn(t *testing.T) {
	out, sink := single(t, "created_at", "DTM",
		"2024-01-05 14:30:00", "2024-02-01T09:15:00", "2024-01-05 14:30:00", "garbage")

	got := values(t, out, "created_at")
	if !model.Equal(got[1], time.Date(2024, 2, 1, 9, 15, 0, 0, time.UTC)) || got[3] != nil {
		t.Errorf("created_at = %v", got)
	}
	cols := out.Dataset.Columns()
	if cols[1] != "created_at_date" || cols[2] != "created_at_time" {
		t.Fatalf("columns = %v", cols)
	}
	if clock := values(t, out, "created_at_time"); clock[0] != "14:30:00" {
		t.Errorf("time part = %v", clock)
	}
	if iso := sink.ByFormula("DTM-03"); len(iso) != 1 || *iso[0].NewValue != "2024-02-01 09:15:00" {
		t.Errorf("DTM-03 entries = %+v", iso)
	}
	if !sameRows(flagRows(out)["duplicate_timestamps"], 0, 2) {
		t.Errorf("flags = %+v", out.Flags)
	}
}

func TestDuplicateTimestampsScopedToEntity(t *testing.T) {
	ds, _ := model.FromColumns([]string{"customer_id", "seen_at"}, [][]interface{}{
		{"C1", "C2", "C1"},
		{"2024-01-05 14:30:00", "2024-01-05 14:30:00", "2024-01-05 14:30:00"},
	})
	out, _ := runDateTime(t, ds, model.HtypeMap{
		"customer_id": {FormulaSet: "UID"},
		"seen_at":     {FormulaSet: "DTM"},
	})
	if !sameRows(flagRows(out)["duplicate_timestamps"], 0, 2) {
		t.Errorf("flags = %+v", out.Flags)
	}
}

func TestDurationColumn(t *testing.T) {
	out, _ := single(t, "call_length", "DUR", "2h 30m", "90 min", "two weeks", "45", "1:30", "-3")

	got := values(t, out, "call_length")
	want := []interface{}{0.1042, 0.0625, 14.0, "45", 0.0625, "-3"}
	for i := range want {
		if !model.Equal(got[i], want[i]) {
			t.Errorf("row %d = %v (%T), want %v", i, got[i], got[i], want[i])
		}
	}
	rows := flagRows(out)
	if !sameRows(rows["negative_duration"], 5) {
		t.Errorf("negative rows = %v", rows["negative_duration"])
	}
	if !sameRows(rows["ambiguous_duration_unit"], 3, 5) {
		t.Errorf("unitless rows = %v", rows["ambiguous_duration_unit"])
	}
}

func TestDurationUnitFromName(t *testing.T) {
	out, _ := single(t, "wait_hours", "DUR", 2, 1.5)

	got := values(t, out, "wait_hours")
	if !model.Equal(got[0], 0.0833) || !model.Equal(got[1], 0.0625) {
		t.Errorf("wait_hours = %v", got)
	}
	if units := values(t, out, "wait_hours_original_unit"); units[0] != "hours" {
		t.Errorf("unit column = %v", units)
	}
	if _, ok := flagRows(out)["ambiguous_duration_unit"]; ok {
		t.Error("named unit should not be flagged as ambiguous")
	}
}

func TestFiscalColumn(t *testing.T) {
	out, _ := single(t, "fiscal_period", "FISC", "FY24", "q3 fy2023", "2023/24", "sem 1", "autumn 2023", nil)

	got := values(t, out, "fiscal_period")
	want := []interface{}{"FY2024", "Q3 FY2023", "AY 2023-24", "Semester 1", "Fall 2023", nil}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
	keys := values(t, out, "fiscal_period_sort_key")
	wantKeys := []interface{}{int64(20240), int64(20233), int64(20230), nil, nil, nil}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Errorf("sort key %d = %v, want %v", i, keys[i], wantKeys[i])
		}
	}
	if !sameRows(flagRows(out)["missing_fiscal_period"], 5) {
		t.Errorf("flags = %+v", out.Flags)
	}
}

func TestParseHelpers(t *testing.T) {
	if got, ok := ExcelSerial(45000.5); !ok || !got.Equal(time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ExcelSerial = %v, %v", got, ok)
	}
	if _, ok := ExcelSerial(int64(100)); ok {
		t.Error("small numbers are not serials")
	}
	if got, ok := Relative("3 weeks ago", refDate); !ok || !got.Equal(day(2024, 5, 25)) {
		t.Errorf("Relative = %v, %v", got, ok)
	}
	if DayFirst([]interface{}{"03/15/2024", "04/20/2024", "25/01/2024"}) {
		t.Error("month-first majority not detected")
	}
	if c, ok := ParseClock("7pm"); !ok || c.String() != "19:00" {
		t.Errorf("ParseClock = %v, %v", c, ok)
	}
	days, unitless, ok := ParseDuration("1 day 12 hours")
	if !ok || unitless || math.Abs(days-1.5) > 1e-9 {
		t.Errorf("ParseDuration = %v, %v, %v", days, unitless, ok)
	}
	if _, unitless, _ := ParseDuration("12"); !unitless {
		t.Error("bare number should be unitless")
	}
	if start, end, ok := AcademicYear("AY 2099-00"); !ok || start != 2099 || end != 2100 {
		t.Errorf("AcademicYear = %d, %d, %v", start, end, ok)
	}
	if UnitFromName("session_mins") != "minutes" || UnitFromName("duration") != "" {
		t.Error("UnitFromName")
	}
}
