package model

// Sensitivity levels attached to semantic column types
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// HtypeMatch is the classification of one column. It is derived fresh on
// every run and never mutated after construction.
type HtypeMatch struct {
	HtypeCode        string  `json:"htype_code" yaml:"htype_code"`
	HtypeName        string  `json:"htype_name" yaml:"htype_name"`
	FormulaSet       string  `json:"formula_set" yaml:"formula_set"`
	Confidence       float64 `json:"confidence" yaml:"confidence"`
	MatchReason      string  `json:"match_reason" yaml:"match_reason"`
	IsPII            bool    `json:"is_pii" yaml:"is_pii"`
	SensitivityLevel string  `json:"sensitivity_level" yaml:"sensitivity_level"`
}

// HtypeMap maps column names to their classification
type HtypeMap map[string]HtypeMatch

// Codes returns the column name to HTYPE code projection
func (m HtypeMap) Codes() map[string]string {
	out := make(map[string]string, len(m))
	for col, match := range m {
		out[col] = match.HtypeCode
	}
	return out
}

// ColumnsWithSet returns the columns assigned to a formula set, ordered as cols
func (m HtypeMap) ColumnsWithSet(cols []string, formulaSet string) []string {
	var out []string
	for _, c := range cols {
		if match, ok := m[c]; ok && match.FormulaSet == formulaSet {
			out = append(out, c)
		}
	}
	return out
}
