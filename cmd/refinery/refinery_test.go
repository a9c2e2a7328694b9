package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/compare"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/review"
	"github.com/David-Botos/data-refinery/pkg/store"
)

const peopleCSV = "name,email,age\nalice,alice@example.com,34\nbob,bob@example.com,41\n,,\ncarol,carol@example.com,29\n"

// runCmd executes the root command with args and returns its output
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// executeCmd runs the root command and returns its output and error
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset bound variables that persist across invocations
	cleanOutPath, cleanSQLitePath, cleanFormat, cleanPreview, cleanAuditLog = "", "", "text", 5, ""
	detectFormat = "text"
	submitUpload, submitSource, submitSchema, submitTable = "", "postgres", "", ""
	listStatus, listLimit = "", 50
	compareMapping, compareThreshold, compareSignificant, compareJobs, compareFormat = map[string]string{}, 75, 20, false, "text"
	reviewFormat, reviewColumn, reviewRows, reviewValues, reviewRow, reviewAction = "text", "", nil, nil, -1, ""
	tablesSchemas = nil
	for _, name := range []string{"log-level", "log-format"} {
		if fl := rootCmd.PersistentFlags().Lookup(name); fl != nil {
			fl.Changed = false
		}
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--log-level", "error", "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLICleanWritesCSVAndStore(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "people.csv", peopleCSV)
	outPath := filepath.Join(dir, "clean.csv")
	dbPath := filepath.Join(dir, "refinery.db")
	logPath := filepath.Join(dir, "audit.ndjson")

	out := runCmd(t, "clean", input, "--out", outPath, "--sqlite", dbPath, "--audit-log", logPath, "--format", "json")

	var doc struct {
		JobID           string `json:"job_id"`
		CleanedRowCount int    `json:"cleaned_row_count"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid json report: %v\n%s", err, out)
	}
	if doc.JobID == "" || doc.CleanedRowCount != 3 {
		t.Errorf("report = %+v", doc)
	}

	cleaned, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(cleaned)), "\n"); len(lines) != 4 {
		t.Errorf("cleaned csv has %d lines:\n%s", len(lines), cleaned)
	}

	s, err := store.OpenSQLite(context.Background(), dbPath, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	job, err := s.GetJob(context.Background(), doc.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != model.JobCompleted || job.CleanedRows.Int64 != 3 {
		t.Errorf("job = %+v", job)
	}
	entries, err := s.Entries(context.Background(), doc.JobID)
	if err != nil {
		t.Fatal(err)
	}
	auditLog, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(auditLog), "\n"); n != len(entries) || n == 0 {
		t.Errorf("audit log has %d lines, store has %d entries", n, len(entries))
	}

	snapshot, err := s.LoadSnapshot(context.Background(), doc.JobID)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snapshot.NumRows() != 3 {
		t.Errorf("snapshot rows = %d", snapshot.NumRows())
	}
}

func TestCLIDetect(t *testing.T) {
	input := writeFile(t, t.TempDir(), "people.csv", peopleCSV)
	out := runCmd(t, "detect", input)
	if !strings.HasPrefix(out, "COLUMN") || !strings.Contains(out, "email") {
		t.Errorf("detect output:\n%s", out)
	}
}

func TestCLISubmitAndList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "jobs.db"))

	id := strings.TrimSpace(runCmd(t, "submit", "uploads/people.csv"))
	if id == "" {
		t.Fatal("submit printed no job id")
	}

	out := runCmd(t, "jobs", "--status", "pending")
	if !strings.Contains(out, id) || !strings.Contains(out, "uploads/people.csv") {
		t.Errorf("jobs output:\n%s", out)
	}
}

func TestApplyConfigFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "refinery.yaml", "worker_pool_size: 3\nlog_level: debug\npostgres_schemas:\n  - public\n  - sales\n")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("WORKER_POOL_SIZE", "")
	os.Unsetenv("WORKER_POOL_SIZE")
	os.Unsetenv("POSTGRES_SCHEMAS")
	t.Cleanup(func() {
		os.Unsetenv("WORKER_POOL_SIZE")
		os.Unsetenv("POSTGRES_SCHEMAS")
	})

	if err := applyConfigFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("WORKER_POOL_SIZE"); got != "3" {
		t.Errorf("WORKER_POOL_SIZE = %q", got)
	}
	if got := os.Getenv("LOG_LEVEL"); got != "warn" {
		t.Errorf("LOG_LEVEL = %q, the environment must win", got)
	}
	if got := os.Getenv("POSTGRES_SCHEMAS"); got != "public,sales" {
		t.Errorf("POSTGRES_SCHEMAS = %q", got)
	}
}

func TestCLICompare(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "q1.csv", "region,sales,visits\nnorth,100,10\nsouth,200,10\n")
	second := writeFile(t, dir, "q2.csv", "Region,Sales,visit\nnorth,150,9\nsouth,300,10\n")

	var res compare.Result
	out := runCmd(t, "compare", first, second, "--format", "json")
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(res.Mapping) != 3 || res.Mapping[2].MatchedTo != "visit" {
		t.Errorf("mapping = %+v", res.Mapping)
	}
	if len(res.Significant) != 1 || res.Significant[0].Column != "sales" || *res.Significant[0].ChangePct != 50 {
		t.Errorf("significant = %+v", res.Significant)
	}

	// A confirmed mapping replaces the fuzzy matches
	out = runCmd(t, "compare", first, second, "--map", "visits=visit", "--significant", "5")
	if !strings.Contains(out, "visits") || strings.Contains(out, "sales") {
		t.Errorf("text output:\n%s", out)
	}
	if !strings.Contains(out, "-5.00%") || !strings.Contains(out, "1 of 1 columns") {
		t.Errorf("text output:\n%s", out)
	}
}

const ordersCSV = "name,email,units\nalice,alice@example.com,10\nbob,,11\ncarol,carol@example.com,12\ndave,dave@example.com,13\nerin,erin@example.com,1000\n"

func TestCLIReviewFillAndResolve(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "refinery.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("RULE_FILL_MISSING", "false")
	input := writeFile(t, dir, "orders.csv", ordersCSV)

	var doc struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(runCmd(t, "clean", input, "--sqlite", dbPath, "--format", "json")), &doc); err != nil {
		t.Fatal(err)
	}

	var missing []review.MissingField
	if err := json.Unmarshal([]byte(runCmd(t, "review", "missing", doc.JobID, "--format", "json")), &missing); err != nil {
		t.Fatal(err)
	}
	if len(missing) != 1 || missing[0].Column != "email" || missing[0].Count != 1 || missing[0].Percentage != 20 {
		t.Fatalf("missing = %+v", missing)
	}

	var outliers []review.Outlier
	if err := json.Unmarshal([]byte(runCmd(t, "review", "outliers", doc.JobID, "--format", "json")), &outliers); err != nil {
		t.Fatal(err)
	}
	if len(outliers) != 1 || outliers[0].Column != "units" || outliers[0].Row == nil || *outliers[0].Row != 4 {
		t.Fatalf("outliers = %+v", outliers)
	}

	out := runCmd(t, "review", "fill", doc.JobID, "--column", "email", "--row", "1", "--value", "bob@example.com")
	if !strings.HasPrefix(out, "filled 1 cells of email") {
		t.Errorf("fill output = %q", out)
	}
	out = runCmd(t, "review", "resolve", doc.JobID, "--row", "4", "--action", "keep")
	if !strings.HasPrefix(out, "kept row 4") {
		t.Errorf("keep output = %q", out)
	}
	out = runCmd(t, "review", "resolve", doc.JobID, "--row", "4", "--action", "remove")
	if !strings.HasPrefix(out, "removed row 4") {
		t.Errorf("remove output = %q", out)
	}
	if out := runCmd(t, "review", "missing", doc.JobID); strings.Contains(out, "email") {
		t.Errorf("email still reported missing:\n%s", out)
	}

	s, err := store.OpenSQLite(context.Background(), dbPath, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	snapshot, err := s.LoadSnapshot(context.Background(), doc.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.NumRows() != 4 || snapshot.Cell(1, snapshot.ColumnIndex("email")) != "bob@example.com" {
		t.Errorf("snapshot rows = %d, email = %v", snapshot.NumRows(), snapshot.Cell(1, snapshot.ColumnIndex("email")))
	}
	entries, err := s.Entries(context.Background(), doc.JobID)
	if err != nil {
		t.Fatal(err)
	}
	actions := map[string]int{}
	for _, e := range entries {
		if e.FormulaID == review.ManualFillID || e.FormulaID == review.OutlierDecisionID {
			actions[e.Action]++
		}
	}
	if actions["fill_missing"] != 1 || actions["remove_outlier"] != 1 || len(actions) != 2 {
		t.Errorf("review entries = %v", actions)
	}
}

func TestCLIReviewRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "refinery.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	input := writeFile(t, dir, "orders.csv", ordersCSV)

	var doc struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(runCmd(t, "clean", input, "--sqlite", dbPath, "--format", "json")), &doc); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad decision", []string{"review", "resolve", doc.JobID, "--row", "0", "--action", "maybe"}, "keep or remove"},
		{"row out of range", []string{"review", "resolve", doc.JobID, "--row", "99", "--action", "remove"}, "out of range"},
		{"unknown column", []string{"review", "fill", doc.JobID, "--column", "nope", "--row", "0", "--value", "x"}, "column not found"},
		{"unpaired values", []string{"review", "fill", doc.JobID, "--column", "email", "--row", "0", "--row", "1", "--value", "x"}, "same length"},
		{"unknown job", []string{"review", "missing", "no-such-job"}, "job not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCmd(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCLITablesNeedsSchema(t *testing.T) {
	t.Setenv("POSTGRES_DB", "")
	if _, err := executeCmd(t, "tables", "oracle"); err == nil || !strings.Contains(err.Error(), "unknown source") {
		t.Errorf("unknown source err = %v", err)
	}
	if _, err := executeCmd(t, "tables", "postgres"); err == nil || !strings.Contains(err.Error(), "no schema given") {
		t.Errorf("missing schema err = %v", err)
	}
	if _, err := executeCmd(t, "tables", "postgres", "--schema", "public"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("unconfigured source err = %v", err)
	}
}
