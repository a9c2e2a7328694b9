package htype

import (
	"fmt"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/model"
)

func strs(vals ...string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func TestRegistryComplete(t *testing.T) {
	if len(registry) != 47 {
		t.Fatalf("registry has %d types, want 47", len(registry))
	}
	for i := 1; i <= 47; i++ {
		code := fmt.Sprintf("HTYPE-%03d", i)
		if _, ok := Lookup(code); !ok {
			t.Errorf("%s missing from registry", code)
		}
	}
}

func TestDetectColumn(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))
	tests := []struct {
		col    string
		values []interface{}
		want   string
		conf   float64
	}{
		{"email", strs("john@example.com", "jane@test.org"), "HTYPE-010", 1.0},
		{"First Name", strs("Alice", "Bob"), "HTYPE-002", 1.0},
		{"product_name", strs("Widget"), "HTYPE-024", 1.0},
		{"national_id", strs("123456789012"), "HTYPE-029", 1.0},
		{"contact_info", strs("+1 (555) 123-4567"), "HTYPE-009", 0.85},
		{"is_verified", strs("yes", "no"), "HTYPE-018", 0.85},
		{"info", strs("male", "female", "male", "female", "other"), "HTYPE-008", 0.72},
		{"medical_info", strs("A+", "B+", "O-", "AB+", "A-", "O+"), "HTYPE-030", 0.72},
		{"col1", strs("15/01/2024", "20/02/2024", "01/03/2024"), "HTYPE-004", 0.7},
		{"col", strs("09:30 AM", "02:45 PM", "11:00 AM"), "HTYPE-005", 0.7},
		{"col", strs("2024-01-15 09:30:00", "2024-01-16 10:00:00"), "HTYPE-006", 0.7},
		{"user_info", strs("john@example.com", "jane@test.org", "bob@company.net"), "HTYPE-010", 0.8},
		{"vals", []interface{}{int64(1), int64(2), int64(3), int64(4), int64(5)}, "HTYPE-021", 0.5},
		{"data", []interface{}{1500.25, 2300.5, 4100.75}, "HTYPE-015", 0.35},
		{"x", strs("lorem", "ipsum", "dolor"), "HTYPE-022", 0.2},
	}
	for _, tt := range tests {
		got := d.DetectColumn(tt.col, tt.values)
		if got.HtypeCode != tt.want {
			t.Errorf("%s: code = %s (%s), want %s", tt.col, got.HtypeCode, got.MatchReason, tt.want)
			continue
		}
		if diff := got.Confidence - tt.conf; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: confidence = %v, want %v", tt.col, got.Confidence, tt.conf)
		}
	}
}

func TestLowCardinalityText(t *testing.T) {
	var values []interface{}
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			values = append(values, "open")
		} else {
			values = append(values, "closed")
		}
	}
	d := NewDetector(nil)
	if got := d.DetectColumn("values", values); got.HtypeCode != "HTYPE-019" {
		t.Errorf("values: %s, want HTYPE-019", got.HtypeCode)
	}
	if got := d.DetectColumn("ticket_state_x", values); got.HtypeCode != "HTYPE-012" {
		// "state" is a CITY keyword, so the name match wins
		t.Errorf("ticket_state_x: %s, want HTYPE-012", got.HtypeCode)
	}
}

func TestExactNameBeatsValuePattern(t *testing.T) {
	var values []interface{}
	for i := 0; i < 150; i++ {
		values = append(values, fmt.Sprintf("user%d@example.com", i))
	}
	got := NewDetector(nil).DetectColumn("email", values)
	if got.HtypeCode != "HTYPE-010" || got.Confidence != 1.0 {
		t.Fatalf("got %+v", got)
	}
	if !got.IsPII || got.SensitivityLevel != model.SensitivityMedium {
		t.Errorf("email should be medium-sensitivity PII: %+v", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Date-Of.Birth (UTC) "); got != "date_of_birth_utc" {
		t.Errorf("NormalizeName = %q", got)
	}
}

func TestReport(t *testing.T) {
	ds, _ := model.FromColumns(
		[]string{"name", "passport_no", "notes"},
		[][]interface{}{strs("Alice", "Bob"), strs("AB1", "CD2"), strs("x", "y")},
	)
	report, m, err := NewDetector(zaptest.NewLogger(t)).Report(ds)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.ColumnCount != 3 || len(m) != 3 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.PIIColumns) != 2 || report.PIIColumns[0] != "name" {
		t.Errorf("pii = %v", report.PIIColumns)
	}
	if len(report.HighSensitivityColumns) != 1 || report.HighSensitivityColumns[0] != "passport_no" {
		t.Errorf("high = %v", report.HighSensitivityColumns)
	}
	if report.ConfidenceStats.Min != 1.0 || report.ConfidenceStats.LowConfidenceCount != 0 {
		t.Errorf("stats = %+v", report.ConfidenceStats)
	}
	if report.ColumnsByFormulaSet["TEXT"] != 1 {
		t.Errorf("by formula set = %v", report.ColumnsByFormulaSet)
	}
}
