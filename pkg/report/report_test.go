package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/htype"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
)

func runPipeline(t *testing.T) (*pipeline.Result, []model.CleaningLogEntry) {
	t.Helper()
	ds, err := model.FromColumns(
		[]string{"First Name", "email"},
		[][]interface{}{
			{"alice", "Bob", nil},
			{"alice@example.com", "bob@example.com", nil},
		})
	if err != nil {
		t.Fatal(err)
	}
	runner, err := pipeline.NewRunner(pipeline.DefaultOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	sink := audit.NewCollector()
	res, err := runner.Run("job-1", ds, sink, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, sink.Entries()
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatText, "JSON": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected an error for xml")
	}
}

func TestBuild(t *testing.T) {
	res, entries := runPipeline(t)
	doc := Build(res, entries, 1)

	if len(doc.Preview) != 1 || len(doc.Preview[0]) != len(doc.Columns) {
		t.Errorf("preview = %v", doc.Preview)
	}
	total := 0
	for _, n := range doc.AuditCounts {
		total += n
	}
	if total != len(entries) {
		t.Errorf("audit counts sum to %d, want %d", total, len(entries))
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	res, entries := runPipeline(t)
	doc := Build(res, entries, 5)

	var buf bytes.Buffer
	if err := Write(&buf, doc, FormatJSON); err != nil {
		t.Fatalf("Write json: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["job_id"] != "job-1" || decoded["quality_score"] == nil || decoded["columns"] == nil {
		t.Errorf("json keys = %v", decoded)
	}

	buf.Reset()
	if err := Write(&buf, doc, FormatYAML); err != nil {
		t.Fatalf("Write yaml: %v", err)
	}
	decoded = nil
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if decoded["job_id"] != "job-1" || decoded["htype_map"] == nil {
		t.Errorf("yaml keys = %v", decoded)
	}
}

func TestWriteText(t *testing.T) {
	res, entries := runPipeline(t)
	var buf bytes.Buffer
	if err := Write(&buf, Build(res, entries, 0), FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Job", "job-1", "Rows", "3 -> 2", "COLUMN", "email", "FORMULA"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	ds := model.NewDataset([]string{"name", "score", "note"}, [][]interface{}{
		{"Ann", 1.5, nil},
		{"Bo, Jr.", int64(2), "x"},
	})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		t.Fatal(err)
	}
	want := "name,score,note\nAnn,1.5,\n\"Bo, Jr.\",2,x\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestWriteDetection(t *testing.T) {
	ds := model.NewDataset([]string{"email", "notes"}, [][]interface{}{
		{"ann@example.com", "called back"},
		{"bo@example.org", "left voicemail"},
	})
	rep, _, err := htype.NewDetector(zaptest.NewLogger(t)).Report(ds)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteDetection(&buf, rep, ds.Columns(), FormatText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[1], "email") || !strings.HasPrefix(lines[2], "notes") {
		t.Errorf("rows out of column order:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "2 columns") {
		t.Errorf("missing summary line:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteDetection(&buf, rep, ds.Columns(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"detections"`) {
		t.Errorf("json = %s", buf.String())
	}
}
