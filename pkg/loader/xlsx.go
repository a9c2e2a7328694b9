package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// Sheet is the header of one workbook sheet, or the error that kept it
// from loading
type Sheet struct {
	Name    string
	Columns []string
	Err     error
}

// ReadXLSX reads the first sheet of a workbook
func ReadXLSX(data []byte) (*model.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("failed to open workbook: %w", model.ErrEmptyDataset)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheets[0], model.ErrEmptyDataset)
	}
	return FromRecords(rows[0], rows[1:]), nil
}

// ReadSheets returns the header row of every sheet in a workbook. A sheet
// that cannot be read is returned with Err set rather than failing the
// whole call.
func ReadSheets(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var out []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			out = append(out, Sheet{Name: name, Err: err})
			continue
		}
		var header []string
		if len(rows) > 0 {
			header = rows[0]
		}
		cols := make([]string, len(header))
		for i, h := range header {
			if strings.TrimSpace(h) == "" {
				cols[i] = fmt.Sprintf("Unnamed: %d", i)
				continue
			}
			cols[i] = h
		}
		out = append(out, Sheet{Name: name, Columns: cols})
	}
	return out, nil
}
