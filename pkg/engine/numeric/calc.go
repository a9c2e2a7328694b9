package numeric

import (
	"fmt"
	"math"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

const (
	// minDerivationRows is the number of numeric target values needed
	// before a derivation is searched for
	minDerivationRows = 5
	// derivationConfidence is the share of rows a derivation must explain
	derivationConfidence = 0.9
	// maxDerivationSources caps the candidate columns considered
	maxDerivationSources = 25
	calcTolerance        = 0.01
)

// Derivation describes how a calculated column is computed from two others
type Derivation struct {
	Op         string    `json:"op"`
	Sources    [2]string `json:"sources"`
	Confidence float64   `json:"confidence"`
}

var derivationOps = []struct {
	name   string
	symbol string
	apply  func(a, b float64) (float64, bool)
}{
	{"multiply", "*", func(a, b float64) (float64, bool) { return a * b, true }},
	{"add", "+", func(a, b float64) (float64, bool) { return a + b, true }},
	{"subtract", "-", func(a, b float64) (float64, bool) { return a - b, true }},
	{"divide", "/", func(a, b float64) (float64, bool) { return a / b, b != 0 }},
}

// Apply evaluates the derivation for one row's source values
func (d Derivation) Apply(a, b float64) (float64, bool) {
	for _, op := range derivationOps {
		if op.name == d.Op {
			return op.apply(a, b)
		}
	}
	return 0, false
}

func (d Derivation) String() string {
	symbol := "?"
	for _, op := range derivationOps {
		if op.name == d.Op {
			symbol = op.symbol
		}
	}
	return fmt.Sprintf("%s %s %s", d.Sources[0], symbol, d.Sources[1])
}

func matches(got, want float64) bool {
	return math.Abs(got-want) <= math.Max(calcTolerance, 1e-9*math.Abs(want))
}

// numericColumn returns the numeric values of a column, nil where a row is
// not a number
func numericColumn(ds *model.Dataset, idx int) ([]*float64, int) {
	out := make([]*float64, ds.NumRows())
	count := 0
	for row := range out {
		if f, ok := cellNumber(ds.Cell(row, idx)); ok {
			f := f
			out[row] = &f
			count++
		}
	}
	return out, count
}

// DiscoverDerivation searches the other numeric columns of ds for a pair
// whose product, sum, difference or quotient reproduces target in at least
// 90% of the rows where target is numeric
func DiscoverDerivation(ds *model.Dataset, target string) (Derivation, bool) {
	targetIdx := ds.ColumnIndex(target)
	if targetIdx < 0 {
		return Derivation{}, false
	}
	want, n := numericColumn(ds, targetIdx)
	if n < minDerivationRows {
		return Derivation{}, false
	}
	var names []string
	var cols [][]*float64
	for idx, name := range ds.Columns() {
		if idx == targetIdx || len(names) == maxDerivationSources {
			continue
		}
		values, count := numericColumn(ds, idx)
		if count >= minDerivationRows {
			names = append(names, name)
			cols = append(cols, values)
		}
	}

	var best Derivation
	for i := range cols {
		for j := range cols {
			if i == j {
				continue
			}
			for _, op := range derivationOps {
				commutative := op.name == "multiply" || op.name == "add"
				if commutative && j < i {
					continue
				}
				hits := 0
				for row, w := range want {
					a, b := cols[i][row], cols[j][row]
					if w == nil || a == nil || b == nil {
						continue
					}
					if got, ok := op.apply(*a, *b); ok && matches(got, *w) {
						hits++
					}
				}
				if rate := float64(hits) / float64(n); rate > best.Confidence {
					best = Derivation{Op: op.name, Sources: [2]string{names[i], names[j]}, Confidence: rate}
				}
			}
		}
	}
	return best, best.Confidence >= derivationConfidence
}

func (r *run) discoverDerivation(c *formula.Column) formula.Result {
	d, ok := DiscoverDerivation(c.Data, c.Name)
	if !ok {
		return c.Result("CALC-01", formula.Auto)
	}
	r.derivations[c.Name] = d
	return c.Note("CALC-01", "formula_discovered",
		fmt.Sprintf("CALC-01: '%s' = %s (%.1f%% of rows)", c.Name, d, d.Confidence*100), d.String())
}

// sources returns the two source values of a row
func sources(c *formula.Column, d Derivation, row int) (float64, float64, bool) {
	a, okA := cellNumber(c.Data.Cell(row, c.Data.ColumnIndex(d.Sources[0])))
	b, okB := cellNumber(c.Data.Cell(row, c.Data.ColumnIndex(d.Sources[1])))
	return a, b, okA && okB
}

func (r *run) verifyDerivation(c *formula.Column) formula.Result {
	d, ok := r.derivations[c.Name]
	if !ok || !c.Data.HasColumn(d.Sources[0]) || !c.Data.HasColumn(d.Sources[1]) {
		return c.Result("CALC-02", formula.AskFirst)
	}
	var rows []int
	for row, v := range c.Values() {
		want, ok := cellNumber(v)
		if !ok {
			continue
		}
		a, b, ok := sources(c, d, row)
		if !ok {
			continue
		}
		if got, ok := d.Apply(a, b); !ok || !matches(got, want) {
			rows = append(rows, row)
		}
	}
	return c.Flag("CALC-02", "calculation_mismatch",
		fmt.Sprintf("Rows where '%s' does not equal %s", c.Name, d),
		"Recalculate or verify mismatched rows", rows,
		map[string]interface{}{"formula": d.Op, "source_columns": d.Sources[:]})
}

// fillDerived computes null cells from the discovered derivation
func (r *run) fillDerived(c *formula.Column) formula.Result {
	res := c.Result("CALC-03", formula.Auto)
	d, ok := r.derivations[c.Name]
	if !ok || !c.Data.HasColumn(d.Sources[0]) || !c.Data.HasColumn(d.Sources[1]) {
		return res
	}
	idx := c.Index()
	for row := 0; row < c.Data.NumRows(); row++ {
		if !model.IsNull(c.Data.Cell(row, idx)) {
			continue
		}
		a, b, ok := sources(c, d, row)
		if !ok {
			continue
		}
		value, ok := d.Apply(a, b)
		if !ok {
			continue
		}
		value = formula.Round(value, 2)
		c.Data.SetCell(row, idx, value)
		if res.Changes < formula.MaxLoggedRows {
			c.Rec.Log("CALC-03", "Null filled from formula", "CALC-03: computed as "+d.String(),
				model.AtRow(row), model.InColumn(c.Name), model.WithValues(nil, value))
		}
		res.Changes++
	}
	if res.Changes > 0 {
		c.Rec.MarkApplied("CALC-03")
	}
	return res
}
