// Package report renders pipeline results for people and tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/David-Botos/data-refinery/pkg/htype"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
)

// Format is an output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json, yaml or yml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Document is the rendered form of a run
type Document struct {
	pipeline.Result `yaml:",inline"`
	Columns         []string       `json:"columns" yaml:"columns"`
	AuditCounts     map[string]int `json:"audit_counts" yaml:"audit_counts"`
	Preview         [][]string     `json:"preview,omitempty" yaml:"preview,omitempty"`
}

// Build assembles a document from a result and its audit entries. The
// first previewRows cleaned rows are included as text.
func Build(res *pipeline.Result, entries []model.CleaningLogEntry, previewRows int) Document {
	doc := Document{
		Result:      *res,
		AuditCounts: make(map[string]int),
	}
	for _, e := range entries {
		doc.AuditCounts[e.FormulaID]++
	}
	if res.Dataset == nil {
		return doc
	}

	doc.Columns = res.Dataset.Columns()
	n := res.Dataset.NumRows()
	if previewRows < n {
		n = previewRows
	}
	for i := 0; i < n; i++ {
		row := res.Dataset.Row(i)
		out := make([]string, len(row))
		for j, v := range row {
			out[j] = model.Stringify(v)
		}
		doc.Preview = append(doc.Preview, out)
	}
	return doc
}

// Write renders doc to w
func Write(w io.Writer, doc Document, format Format) error {
	if format == FormatText || format == "" {
		return writeText(w, doc)
	}
	return Encode(w, doc, format)
}

// WriteDetection renders an HTYPE report. cols fixes the row order of the
// text table.
func WriteDetection(w io.Writer, rep htype.Report, cols []string, format Format) error {
	if format != FormatText && format != "" {
		return Encode(w, rep, format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tHTYPE\tNAME\tSET\tCONFIDENCE\tPII\tREASON")
	for _, col := range cols {
		m := rep.Detections[col]
		pii := ""
		if m.IsPII {
			pii = m.SensitivityLevel
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			col, m.HtypeCode, m.HtypeName, m.FormulaSet, m.Confidence, pii, m.MatchReason)
	}
	fmt.Fprintf(tw, "\n%d columns, mean confidence %.2f, %d below threshold\n",
		rep.ColumnCount, rep.ConfidenceStats.Mean, rep.ConfidenceStats.LowConfidenceCount)
	return tw.Flush()
}

// Encode writes v as JSON or YAML
func Encode(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, doc Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Job\t%s\n", doc.JobID)
	fmt.Fprintf(tw, "Rows\t%d -> %d\n", doc.OriginalRowCount, doc.CleanedRowCount)
	fmt.Fprintf(tw, "Columns\t%d\n", len(doc.Columns))
	fmt.Fprintf(tw, "Quality\t%.1f (completeness %.1f, uniqueness %.1f, consistency %.1f, integrity %.1f)\n",
		doc.QualityScore, doc.Quality.Completeness, doc.Quality.Uniqueness, doc.Quality.Consistency, doc.Quality.Integrity)
	fmt.Fprintf(tw, "Duration\t%s\n", doc.Duration)

	fmt.Fprintln(tw, "\nCOLUMN\tDTYPE\tHTYPE\tCONFIDENCE\tNULLS\tPII")
	for _, col := range doc.Columns {
		meta := doc.ColumnMetadata[col]
		match := doc.HtypeMap[col]
		pii := ""
		if tag, ok := doc.PIITags[col]; ok {
			pii = tag.Level
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
			col, meta.Dtype, match.HtypeCode, match.Confidence, meta.NullCount, pii)
	}

	fmt.Fprintln(tw, "\nSTAGE\tFLAG\tTYPE\tAFFECTED\tDESCRIPTION")
	flagged := false
	for _, stage := range doc.Flags.Stages() {
		for _, f := range stage.Flags {
			flagged = true
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", stage.Stage, f.FormulaID, f.FlagType, f.AffectedCount, f.Description)
		}
	}
	if !flagged {
		fmt.Fprintln(tw, "-\t-\t-\t0\tnothing to review")
	}

	if len(doc.AuditCounts) > 0 {
		ids := make([]string, 0, len(doc.AuditCounts))
		for id := range doc.AuditCounts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintln(tw, "\nFORMULA\tENTRIES")
		for _, id := range ids {
			fmt.Fprintf(tw, "%s\t%d\n", id, doc.AuditCounts[id])
		}
	}
	return tw.Flush()
}

// WriteCSV writes a dataset as CSV with a header row. Nulls are written as
// empty fields.
func WriteCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns()); err != nil {
		return err
	}
	record := make([]string, ds.NumCols())
	for i := 0; i < ds.NumRows(); i++ {
		for j := range record {
			record[j] = model.Stringify(ds.Cell(i, j))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
