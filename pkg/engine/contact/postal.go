package contact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var postalPatterns = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"CA": regexp.MustCompile(`(?i)^[A-Z]\d[A-Z]\s?\d[A-Z]\d$`),
	"GB": regexp.MustCompile(`(?i)^[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}$`),
	"NP": regexp.MustCompile(`^\d{5}$`),
	"IN": regexp.MustCompile(`^\d{6}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
	"AU": regexp.MustCompile(`^\d{4}$`),
	"FR": regexp.MustCompile(`^\d{5}$`),
}

var (
	genericPostalRe = regexp.MustCompile(`^[\dA-Za-z\s-]{3,10}$`)
	letterRe        = regexp.MustCompile(`[A-Za-z]`)
)

// alphanumericPostal lists countries whose postal codes contain letters
var alphanumericPostal = formula.NewSet("GB", "CA", "NL", "IE")

// ValidPostalCode checks s against the country's pattern, or a generic
// 3-10 character alphanumeric shape when the country is unknown
func ValidPostalCode(s, country string) bool {
	s = strings.TrimSpace(s)
	if re, ok := postalPatterns[strings.ToUpper(country)]; ok {
		return re.MatchString(s)
	}
	return genericPostalRe.MatchString(s)
}

// rowCountry resolves the ISO-2 country of a row from the dataset's
// country column, if there is one
func rowCountry(c *formula.Column, countryCol string, row int) string {
	if countryCol == "" {
		return ""
	}
	v := c.Data.Cell(row, c.Data.ColumnIndex(countryCol))
	if model.IsNull(v) {
		return ""
	}
	iso2, _ := NormalizeCountry(model.Stringify(v))
	return iso2
}

func postalLeadingZeros(c *formula.Column) formula.Result {
	return c.Transform("POST-01", "Leading zeros preserved", func(v interface{}) (interface{}, bool) {
		if _, ok := v.(string); ok {
			return v, false
		}
		n, ok := formula.ToFloat(v)
		if !ok {
			return v, false
		}
		return fmt.Sprintf("%05d", int64(n)), true
	})
}

func zipPlusFour(c *formula.Column) formula.Result {
	return c.TransformStrings("POST-03", "US ZIP+4 hyphen added", func(s string) (interface{}, bool) {
		digits := nonDigitRe.ReplaceAllString(s, "")
		if len(digits) != 9 || letterRe.MatchString(s) {
			return s, false
		}
		formatted := digits[:5] + "-" + digits[5:]
		return formatted, formatted != s
	})
}

func postalFormat(c *formula.Column) formula.Result {
	countryCol, _ := related(c, "CNTRY")
	var rows []int
	for i, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		if !ValidPostalCode(model.Stringify(v), rowCountry(c, countryCol, i)) {
			rows = append(rows, i)
		}
	}
	return c.Flag("POST-02", "invalid_postal_code", "Invalid postal code format detected",
		"Verify postal code format", rows, map[string]interface{}{"sample_values": c.Sample(rows, 5)})
}

func postalLetters(c *formula.Column) formula.Result {
	countryCol, _ := related(c, "CNTRY")
	var rows []int
	for i, v := range c.Values() {
		if model.IsNull(v) || !letterRe.MatchString(model.Stringify(v)) {
			continue
		}
		if !alphanumericPostal.Has(rowCountry(c, countryCol, i)) {
			rows = append(rows, i)
		}
	}
	return c.Flag("POST-04", "non_numeric_postal_code", "Unexpected alphabetic characters in postal code",
		"Verify postal code format", rows, nil)
}

// postalConsistency flags postal codes that appear with more than one city,
// or with more than one country when the dataset has no city column
func postalConsistency(c *formula.Column) formula.Result {
	other, ok := related(c, "CITY")
	if !ok {
		if other, ok = related(c, "CNTRY"); !ok {
			return c.Result("POST-05", formula.AskFirst)
		}
	}
	otherIdx := c.Data.ColumnIndex(other)
	values := c.Values()
	places := make(map[string]map[string]struct{})
	for i, v := range values {
		place := c.Data.Cell(i, otherIdx)
		if model.IsNull(v) || model.IsNull(place) {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(model.Stringify(v)))
		if places[code] == nil {
			places[code] = make(map[string]struct{})
		}
		places[code][placeKey(model.Stringify(place))] = struct{}{}
	}
	var rows []int
	var codes []string
	for i, v := range values {
		if model.IsNull(v) {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(model.Stringify(v)))
		if len(places[code]) > 1 {
			rows = append(rows, i)
			if !containsString(codes, code) {
				codes = append(codes, code)
			}
		}
	}
	return c.Flag("POST-05", "postal_code_conflict",
		fmt.Sprintf("%d postal codes map to more than one value of '%s'", len(codes), other),
		"Verify postal codes against city and country", rows,
		map[string]interface{}{"compared_column": other, "postal_codes": codes})
}
