package numeric

import (
	"math"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

func quantityWords(c *formula.Column) formula.Result {
	return c.TransformStrings("QTY-01", "Word number converted", func(s string) (interface{}, bool) {
		if numericLookingRe.MatchString(strings.TrimSpace(s)) {
			return s, false
		}
		n, corrected, ok := spelledNumber(s)
		return n, ok && !corrected
	})
}

func quantityTypos(c *formula.Column) formula.Result {
	return c.TransformStrings("QTY-02", "Misspelled number word corrected", func(s string) (interface{}, bool) {
		n, corrected, ok := spelledNumber(s)
		return n, ok && corrected
	})
}

func approximateQuantities(c *formula.Column) formula.Result {
	return c.TransformStrings("QTY-03", "Approximate value extracted", func(s string) (interface{}, bool) {
		f, ok := Approximate(s)
		if !ok {
			return s, false
		}
		return formula.NumberCell(f), true
	})
}

func quantityUnits(c *formula.Column) formula.Result {
	units := make([]interface{}, c.Data.NumRows())
	res := c.TransformRows("QTY-09", "Unit separated from quantity", func(row int, v interface{}) (interface{}, bool) {
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		f, unit, ok := SplitUnit(s)
		if !ok {
			return v, false
		}
		units[row] = unit
		return formula.NumberCell(f), true
	})
	if res.Changes > 0 {
		c.SetDerived("QTY-09", c.Name+"_unit", units)
	}
	return res
}

// integerQuantities stores whole and near-whole quantities as integers and
// flags the genuine decimals
func integerQuantities(c *formula.Column) formula.Result {
	idx := c.Index()
	for row, v := range c.Values() {
		f, ok := cellNumber(v)
		if !ok {
			continue
		}
		_, isString := v.(string)
		switch {
		case math.Abs(f-math.Round(f)) < 0.001:
			if _, isInt := v.(int64); !isInt {
				c.Data.SetCell(row, idx, int64(math.Round(f)))
			}
		case isString:
			c.Data.SetCell(row, idx, f)
		}
	}
	return c.FlagWhere("QTY-04", "decimal_quantity", "Decimal values in a whole-number column",
		"Round or verify fractional quantities", func(v interface{}) bool {
			_, isFloat := v.(float64)
			return isFloat
		})
}

func negativeQuantities(c *formula.Column) formula.Result {
	return c.FlagWhere("QTY-05", "negative_quantity", "Negative quantities detected",
		"Verify negative quantities", func(v interface{}) bool {
			f, ok := cellNumber(v)
			return ok && f < 0
		})
}

func quantityOutliers(c *formula.Column) formula.Result {
	rows := deviants(c.Values(), formula.Mean, 3)
	return c.Flag("QTY-06", "quantity_outlier", "Values more than 3 standard deviations from the mean",
		"Verify outlier quantities", rows, map[string]interface{}{"sample_values": c.Sample(rows, 5)})
}

func zeroQuantities(c *formula.Column) formula.Result {
	rows, _ := rareZeros(c.Values())
	return c.Flag("QTY-07", "zero_quantity", "Unexpected zero quantities",
		"Verify whether zeros should be null", rows, nil)
}
