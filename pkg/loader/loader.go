// Package loader turns uploaded file bytes into datasets.
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// ErrUnsupportedType is returned for file types the loader cannot read
var ErrUnsupportedType = errors.New("unsupported file type")

// naTokens are read as null, matching common spreadsheet/pandas conventions
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// NormalizeType lowercases a declared file type and strips a leading dot
func NormalizeType(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
}

// Load reads csv, txt, xlsx or xls bytes into a dataset
func Load(data []byte, fileType string) (*model.Dataset, error) {
	switch NormalizeType(fileType) {
	case "csv", "txt":
		return ReadCSV(bytes.NewReader(data))
	case "xlsx", "xls", "xlsm":
		return ReadXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
	}
}

// ReadCSV reads delimited text with a header row. The delimiter is sniffed
// from the header line (comma, semicolon, tab or pipe).
func ReadCSV(r io.Reader) (*model.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if !utf8.Valid(raw) {
		raw = latin1ToUTF8(raw)
	}
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = sniffDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to parse csv: %w", model.ErrEmptyDataset)
	}
	return FromRecords(records[0], records[1:]), nil
}

// FromRecords builds a typed dataset from a header and string rows.
// Empty header cells become "Unnamed: N". Each column is typed as int64
// when every non-null value is an integer, float64 when every value is
// numeric, and string otherwise.
func FromRecords(header []string, records [][]string) *model.Dataset {
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	columns := make([]string, width)
	for i := range columns {
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			columns[i] = header[i]
		} else {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	kinds := make([]cellKind, width)
	for c := 0; c < width; c++ {
		kinds[c] = columnKind(records, c)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		row := make([]interface{}, width)
		for c := 0; c < width; c++ {
			if c >= len(rec) {
				continue
			}
			row[c] = convert(rec[c], kinds[c])
		}
		rows = append(rows, row)
	}
	return model.NewDataset(columns, rows)
}

type cellKind int

const (
	kindString cellKind = iota
	kindInt
	kindFloat
)

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

func columnKind(records [][]string, c int) cellKind {
	kind := kindInt
	seen := false
	for _, rec := range records {
		if c >= len(rec) || isNA(rec[c]) {
			continue
		}
		seen = true
		s := strings.TrimSpace(rec[c])
		if kind == kindInt {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = kindFloat
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return kindString
		}
	}
	if !seen {
		return kindString
	}
	return kind
}

func convert(s string, kind cellKind) interface{} {
	if isNA(s) {
		return nil
	}
	switch kind {
	case kindInt:
		n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}
	return s
}

func sniffDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func latin1ToUTF8(raw []byte) []byte {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return []byte(b.String())
}
