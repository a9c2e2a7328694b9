package htype

import (
	"math"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// ConfidenceStats summarizes detection confidence across columns
type ConfidenceStats struct {
	Min                float64 `json:"min" yaml:"min"`
	Max                float64 `json:"max" yaml:"max"`
	Mean               float64 `json:"mean" yaml:"mean"`
	LowConfidenceCount int     `json:"low_confidence_count" yaml:"low_confidence_count"`
}

// Report is the detection report stored alongside a cleaned dataset
type Report struct {
	ColumnCount            int                         `json:"column_count" yaml:"column_count"`
	Detections             map[string]model.HtypeMatch `json:"detections" yaml:"detections"`
	HtypeMap               map[string]string           `json:"htype_map" yaml:"htype_map"`
	ColumnsByHtype         map[string][]string         `json:"columns_by_htype" yaml:"columns_by_htype"`
	ColumnsByFormulaSet    map[string]int              `json:"columns_by_formula_set" yaml:"columns_by_formula_set"`
	PIIColumns             []string                    `json:"pii_columns" yaml:"pii_columns"`
	HighSensitivityColumns []string                    `json:"high_sensitivity_columns" yaml:"high_sensitivity_columns"`
	ConfidenceStats        ConfidenceStats             `json:"confidence_stats" yaml:"confidence_stats"`
}

// BuildReport summarizes a detection map. cols fixes the column order of
// the list fields.
func BuildReport(cols []string, m Map) Report {
	r := Report{
		ColumnCount:            len(cols),
		Detections:             make(map[string]model.HtypeMatch, len(m)),
		HtypeMap:               m.Codes(),
		ColumnsByHtype:         make(map[string][]string),
		ColumnsByFormulaSet:    make(map[string]int),
		PIIColumns:             []string{},
		HighSensitivityColumns: []string{},
	}

	sum := 0.0
	n := 0
	r.ConfidenceStats.Min = math.Inf(1)
	for _, col := range cols {
		match, ok := m[col]
		if !ok {
			continue
		}
		r.Detections[col] = match
		r.ColumnsByHtype[match.HtypeCode] = append(r.ColumnsByHtype[match.HtypeCode], col)
		r.ColumnsByFormulaSet[match.FormulaSet]++
		if match.IsPII {
			r.PIIColumns = append(r.PIIColumns, col)
		}
		if match.SensitivityLevel == model.SensitivityHigh {
			r.HighSensitivityColumns = append(r.HighSensitivityColumns, col)
		}
		if match.Confidence < 0.5 {
			r.ConfidenceStats.LowConfidenceCount++
		}
		r.ConfidenceStats.Min = math.Min(r.ConfidenceStats.Min, match.Confidence)
		r.ConfidenceStats.Max = math.Max(r.ConfidenceStats.Max, match.Confidence)
		sum += match.Confidence
		n++
	}
	if n == 0 {
		r.ConfidenceStats.Min = 0
		return r
	}
	r.ConfidenceStats.Mean = sum / float64(n)
	return r
}

// Report detects every column of ds and summarizes the result
func (d *Detector) Report(ds *model.Dataset) (Report, Map, error) {
	m, err := d.Detect(ds)
	if err != nil {
		return Report{}, nil, err
	}
	return BuildReport(ds.Columns(), m), m, nil
}
