package numeric

import (
	"fmt"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

var (
	nonNegativeNameWords = []string{"revenue", "sales", "price", "cost", "fee", "amount", "total"}
	signedNameWords      = []string{"profit", "loss", "adjustment", "change", "difference", "net", "balance"}
)

// stripCurrency records the currency of every row that carried one before
// the symbol is stripped
func (r *run) stripCurrency(c *formula.Column) formula.Result {
	found := make([]string, c.Data.NumRows())
	res := c.TransformRows("AMT-01", "Currency symbol removed", func(row int, v interface{}) (interface{}, bool) {
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		code, _, ok := ExtractCurrency(s)
		if !ok {
			return v, false
		}
		f, ok := ParseNumber(s)
		if !ok {
			return v, false
		}
		found[row] = code
		return f, true
	})
	r.currencies[c.Name] = found
	return res
}

func thousandSeparators(c *formula.Column) formula.Result {
	return c.TransformStrings("AMT-02", "Thousand separators removed", func(s string) (interface{}, bool) {
		if !strings.Contains(s, ",") || IsEuropean(s) || RemoveThousands(s) == s {
			return s, false
		}
		f, ok := ParseNumber(s)
		return f, ok
	})
}

func europeanNotation(c *formula.Column) formula.Result {
	return c.TransformStrings("AMT-03", "European notation converted", func(s string) (interface{}, bool) {
		if !IsEuropean(strings.TrimSpace(s)) {
			return s, false
		}
		f, ok := ParseNumber(s)
		return f, ok
	})
}

func amountWords(c *formula.Column) formula.Result {
	return c.TransformStrings("AMT-13", "Word amount converted to number", func(s string) (interface{}, bool) {
		if numericLookingRe.MatchString(strings.TrimSpace(s)) {
			return s, false
		}
		n, _, ok := spelledNumber(currencyWordRe.ReplaceAllString(strings.TrimSpace(s), ""))
		return float64(n), ok
	})
}

func scientificNotation(c *formula.Column) formula.Result {
	return c.TransformStrings("AMT-12", "Scientific notation expanded", func(s string) (interface{}, bool) {
		if !scientificRe.MatchString(strings.TrimSpace(s)) {
			return s, false
		}
		f, ok := ParseNumber(s)
		return f, ok
	})
}

func amountCoercion(c *formula.Column) formula.Result {
	return c.TransformStrings("AMT-08", "String converted to number", func(s string) (interface{}, bool) {
		f, ok := ParseNumber(s)
		return f, ok
	})
}

func amountDecimals(c *formula.Column) formula.Result {
	return c.Transform("AMT-04", "Rounded to 2 decimals", func(v interface{}) (interface{}, bool) {
		f, ok := v.(float64)
		if !ok {
			return v, false
		}
		rounded := formula.Round(f, 2)
		return rounded, rounded != f
	})
}

func (r *run) mixedCurrencies(c *formula.Column) formula.Result {
	found := r.currencies[c.Name]
	var rows []int
	var codes []string
	for i, code := range found {
		if code == "" {
			continue
		}
		rows = append(rows, i)
		if !containsString(codes, code) {
			codes = append(codes, code)
		}
	}
	if len(codes) < 2 {
		return c.Result("AMT-09", formula.AskFirst)
	}
	return c.Flag("AMT-09", "mixed_currencies",
		fmt.Sprintf("Column mixes %d currencies: %s", len(codes), strings.Join(codes, ", ")),
		"Convert amounts to a single currency or add a currency column", rows,
		map[string]interface{}{"currencies_detected": codes})
}

func negativeAmounts(c *formula.Column) formula.Result {
	lower := strings.ToLower(c.Name)
	if !formula.ContainsAny(lower, nonNegativeNameWords...) || formula.ContainsAny(lower, signedNameWords...) {
		return c.Result("AMT-05", formula.AskFirst)
	}
	return c.FlagWhere("AMT-05", "negative_amount", "Negative values in a column expected to be non-negative",
		"Verify whether negative values are refunds or errors", func(v interface{}) bool {
			f, ok := cellNumber(v)
			return ok && f < 0
		})
}

func amountOutliers(c *formula.Column) formula.Result {
	rows := deviants(c.Values(), formula.Median, 3)
	return c.Flag("AMT-06", "amount_outlier", "Values more than 3 standard deviations from the median",
		"Verify outlier amounts", rows, map[string]interface{}{"sample_values": c.Sample(rows, 5)})
}

func zeroAmounts(c *formula.Column) formula.Result {
	rows, share := rareZeros(c.Values())
	return c.Flag("AMT-07", "zero_amount", "Zero values may indicate missing data",
		"Verify whether zeros should be null", rows,
		map[string]interface{}{"zero_percentage": fmt.Sprintf("%.1f%%", share*100)})
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
