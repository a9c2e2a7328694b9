// Package quality computes the composite 0-100 quality score of a cleaned
// dataset.
package quality

import (
	"math"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Dimension weights of the composite score
const (
	CompletenessWeight = 0.40
	UniquenessWeight   = 0.30
	ConsistencyWeight  = 0.20
	IntegrityWeight    = 0.10
)

// numericShare is the share of parseable numbers that makes a column
// consistently numeric
const numericShare = 0.95

// Breakdown holds the four dimension scores and their weighted composite,
// each on a 0-100 scale
type Breakdown struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Uniqueness   float64 `json:"uniqueness" yaml:"uniqueness"`
	Consistency  float64 `json:"consistency" yaml:"consistency"`
	Integrity    float64 `json:"integrity" yaml:"integrity"`
	Score        float64 `json:"score" yaml:"score"`
}

// Score returns the composite quality score of ds
func Score(ds *model.Dataset, originalRows int) float64 {
	return Evaluate(ds, originalRows).Score
}

// Evaluate scores ds against the row count it had before cleaning. A nil
// or empty dataset scores 0 on every dimension.
func Evaluate(ds *model.Dataset, originalRows int) Breakdown {
	if ds == nil || ds.NumRows() == 0 || ds.NumCols() == 0 {
		return Breakdown{}
	}
	rows, cols := ds.NumRows(), ds.NumCols()
	total := float64(rows * cols)

	nulls, consistent := 0, 0
	for i := 0; i < cols; i++ {
		values := ds.Column(i)
		nulls += len(values) - len(model.NonNull(values))
		if Consistent(values) {
			consistent++
		}
	}
	nullRate := float64(nulls) / total

	b := Breakdown{
		Completeness: (total - float64(nulls)) / total * 100,
		Uniqueness:   100,
		Consistency:  float64(consistent) / float64(cols) * 100,
		Integrity:    math.Max(0, (1-nullRate)*100),
	}
	if originalRows > 0 {
		b.Uniqueness = math.Min(100, float64(rows)/float64(originalRows)*100)
	}
	score := b.Completeness*CompletenessWeight +
		b.Uniqueness*UniquenessWeight +
		b.Consistency*ConsistencyWeight +
		b.Integrity*IntegrityWeight
	b.Score = formula.Round(math.Min(math.Max(score, 0), 100), 2)

	b.Completeness = formula.Round(b.Completeness, 2)
	b.Uniqueness = formula.Round(b.Uniqueness, 2)
	b.Consistency = formula.Round(b.Consistency, 2)
	b.Integrity = formula.Round(b.Integrity, 2)
	return b
}

// Column kinds for the consistency dimension
const (
	KindEmpty   = "empty"
	KindNumeric = "numeric"
	KindText    = "text"
)

// Kind classifies a column's non-null values: numeric when at least 95%
// parse as numbers, text otherwise.
func Kind(values []interface{}) string {
	present := model.NonNull(values)
	if len(present) == 0 {
		return KindEmpty
	}
	if float64(len(formula.Numbers(present))) >= float64(len(present))*numericShare {
		return KindNumeric
	}
	return KindText
}

// Consistent reports whether a column reads as one type. A column that is
// not numeric is read as text, so strings mixed with the odd number still
// count as consistent.
func Consistent(values []interface{}) bool {
	switch Kind(values) {
	case KindEmpty, KindNumeric, KindText:
		return true
	default:
		return false
	}
}
