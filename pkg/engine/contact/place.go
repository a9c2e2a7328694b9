package contact

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var cityAbbreviationMap = map[string]string{
	"ktm": "Kathmandu",
	"nyc": "New York City",
	"la":  "Los Angeles",
	"sf":  "San Francisco",
	"dc":  "Washington D.C.",
	"phx": "Phoenix",
	"chi": "Chicago",
	"bkk": "Bangkok",
	"hk":  "Hong Kong",
	"sg":  "Singapore",
	"ldn": "London",
	"mum": "Mumbai",
	"del": "Delhi",
	"blr": "Bangalore",
	"hyd": "Hyderabad",
}

// Country is one entry of the ISO 3166 table
type Country struct {
	ISO2 string
	ISO3 string
	Name string
}

var countries = []Country{
	{"AF", "AFG", "Afghanistan"},
	{"AL", "ALB", "Albania"},
	{"DZ", "DZA", "Algeria"},
	{"AU", "AUS", "Australia"},
	{"AT", "AUT", "Austria"},
	{"BD", "BGD", "Bangladesh"},
	{"BE", "BEL", "Belgium"},
	{"BR", "BRA", "Brazil"},
	{"CA", "CAN", "Canada"},
	{"CN", "CHN", "China"},
	{"CO", "COL", "Colombia"},
	{"DK", "DNK", "Denmark"},
	{"EG", "EGY", "Egypt"},
	{"FI", "FIN", "Finland"},
	{"FR", "FRA", "France"},
	{"DE", "DEU", "Germany"},
	{"GR", "GRC", "Greece"},
	{"HK", "HKG", "Hong Kong"},
	{"IN", "IND", "India"},
	{"ID", "IDN", "Indonesia"},
	{"IR", "IRN", "Iran"},
	{"IQ", "IRQ", "Iraq"},
	{"IE", "IRL", "Ireland"},
	{"IL", "ISR", "Israel"},
	{"IT", "ITA", "Italy"},
	{"JP", "JPN", "Japan"},
	{"KE", "KEN", "Kenya"},
	{"KR", "KOR", "South Korea"},
	{"MY", "MYS", "Malaysia"},
	{"MX", "MEX", "Mexico"},
	{"NL", "NLD", "Netherlands"},
	{"NZ", "NZL", "New Zealand"},
	{"NG", "NGA", "Nigeria"},
	{"NO", "NOR", "Norway"},
	{"PK", "PAK", "Pakistan"},
	{"PH", "PHL", "Philippines"},
	{"PL", "POL", "Poland"},
	{"PT", "PRT", "Portugal"},
	{"RU", "RUS", "Russia"},
	{"SA", "SAU", "Saudi Arabia"},
	{"SG", "SGP", "Singapore"},
	{"ZA", "ZAF", "South Africa"},
	{"ES", "ESP", "Spain"},
	{"SE", "SWE", "Sweden"},
	{"CH", "CHE", "Switzerland"},
	{"TW", "TWN", "Taiwan"},
	{"TH", "THA", "Thailand"},
	{"TR", "TUR", "Turkey"},
	{"AE", "ARE", "United Arab Emirates"},
	{"GB", "GBR", "United Kingdom"},
	{"US", "USA", "United States"},
	{"VN", "VNM", "Vietnam"},
	{"NP", "NPL", "Nepal"},
}

var countryVariants = map[string]string{
	"usa": "US", "u.s.a.": "US", "u.s.": "US", "america": "US",
	"united states": "US", "united states of america": "US",
	"uk": "GB", "u.k.": "GB", "britain": "GB", "great britain": "GB",
	"england": "GB", "united kingdom": "GB",
	"uae": "AE", "u.a.e.": "AE", "emirates": "AE",
	"korea": "KR", "south korea": "KR", "rok": "KR",
	"russia": "RU", "russian federation": "RU",
	"china": "CN", "prc": "CN", "peoples republic of china": "CN",
	"holland": "NL", "the netherlands": "NL",
	"deutschland": "DE",
}

// LookupCountry finds a country by ISO-2 code
func LookupCountry(iso2 string) (Country, bool) {
	iso2 = strings.ToUpper(iso2)
	for _, ct := range countries {
		if ct.ISO2 == iso2 {
			return ct, true
		}
	}
	return Country{}, false
}

// NormalizeCountry resolves a name, variant, ISO-2 or ISO-3 code to ISO-2
func NormalizeCountry(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	upper := strings.ToUpper(trimmed)
	if iso2, ok := countryVariants[lower]; ok {
		return iso2, true
	}
	for _, ct := range countries {
		if upper == ct.ISO2 || upper == ct.ISO3 || lower == strings.ToLower(ct.Name) {
			return ct.ISO2, true
		}
	}
	return "", false
}

// FuzzyCountry matches s against the country names within maxDist edits
func FuzzyCountry(s string, maxDist int) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, ct := range countries {
		if formula.Distance(lower, strings.ToLower(ct.Name)) <= maxDist {
			return ct.ISO2, true
		}
	}
	return "", false
}

// PlaceTitle upper-cases the first letter of every run of letters, so
// "washington d.c." becomes "Washington D.C."
func PlaceTitle(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) {
			if prevLetter {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = r == '\''
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeTitleCase(id string) func(c *formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		return c.TransformStrings(id, "Title case applied", func(s string) (interface{}, bool) {
			titled := PlaceTitle(s)
			return titled, titled != s
		})
	}
}

func cityAbbreviations(c *formula.Column) formula.Result {
	return c.Transform("CITY-03", "City abbreviation expanded", func(v interface{}) (interface{}, bool) {
		full, ok := cityAbbreviationMap[strings.ToLower(strings.TrimSpace(model.Stringify(v)))]
		return full, ok
	})
}

// placeKey folds case, spacing and punctuation so spelling variants of
// one place compare equal
func placeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cityVariants(c *formula.Column) formula.Result {
	spellings := make(map[string][]string)
	for _, v := range c.Values() {
		if s, ok := v.(string); ok {
			k := placeKey(s)
			spellings[k] = append(spellings[k], s)
		}
	}
	canonical := make(map[string]string, len(spellings))
	for k, values := range spellings {
		canonical[k], _ = formula.MostFrequent(values)
	}
	return c.TransformStrings("CITY-05", "City variant normalized", func(s string) (interface{}, bool) {
		want, ok := canonical[placeKey(s)]
		return want, ok && want != s
	})
}

func citySpelling(c *formula.Column) formula.Result {
	counts := make(map[string]int)
	for _, v := range c.Values() {
		if !model.IsNull(v) {
			counts[strings.ToLower(model.Stringify(v))]++
		}
	}
	var common []string
	for city, n := range counts {
		if n > 1 {
			common = append(common, city)
		}
	}
	sort.Strings(common)

	suggestions := make(map[string]string)
	for city, n := range counts {
		if n != 1 {
			continue
		}
		if match, _, ok := formula.ClosestMatch(city, common, 2); ok {
			suggestions[city] = PlaceTitle(match)
		}
	}
	rows := c.Rows(func(v interface{}) bool {
		_, ok := suggestions[strings.ToLower(model.Stringify(v))]
		return ok
	})
	if len(rows) == 0 {
		return c.Result("CITY-02", formula.AskFirst)
	}
	return c.Flag("CITY-02", "city_spelling", "Possible city name spelling errors", "Verify city names",
		rows, map[string]interface{}{"sample_values": c.Sample(rows, 5), "suggestions": suggestions})
}

func cityCountryConsistency(c *formula.Column) formula.Result {
	countryCol, ok := related(c, "CNTRY")
	if !ok {
		return c.Result("CITY-04", formula.AskFirst)
	}
	countryIdx := c.Data.ColumnIndex(countryCol)
	values := c.Values()
	seen := make(map[string]map[string]struct{})
	for i, v := range values {
		country := c.Data.Cell(i, countryIdx)
		if model.IsNull(v) || model.IsNull(country) {
			continue
		}
		city := placeKey(model.Stringify(v))
		code, ok := NormalizeCountry(model.Stringify(country))
		if !ok {
			code = placeKey(model.Stringify(country))
		}
		if seen[city] == nil {
			seen[city] = make(map[string]struct{})
		}
		seen[city][code] = struct{}{}
	}
	var rows []int
	var conflicting []string
	for i, v := range values {
		if model.IsNull(v) {
			continue
		}
		if len(seen[placeKey(model.Stringify(v))]) > 1 {
			rows = append(rows, i)
			if s := model.Stringify(v); !containsString(conflicting, s) {
				conflicting = append(conflicting, s)
			}
		}
	}
	return c.Flag("CITY-04", "city_country_mismatch",
		fmt.Sprintf("%d cities appear under more than one country", len(conflicting)),
		"Verify city and country pairs", rows,
		map[string]interface{}{"country_column": countryCol, "cities": conflicting})
}

func cityFromAddress(c *formula.Column) formula.Result {
	addrCol, ok := related(c, "ADDR")
	if !ok {
		return c.Result("CITY-06", formula.AskFirst)
	}
	addrIdx := c.Data.ColumnIndex(addrCol)
	var rows []int
	for i, v := range c.Values() {
		blank := model.IsNull(v) || strings.TrimSpace(model.Stringify(v)) == ""
		if blank && !model.IsNull(c.Data.Cell(i, addrIdx)) {
			rows = append(rows, i)
		}
	}
	return c.Flag("CITY-06", "city_extractable", "City could potentially be extracted from address",
		"Consider extracting city from address column", rows,
		map[string]interface{}{"address_column": addrCol})
}

func countryAbbreviations(c *formula.Column) formula.Result {
	return c.Transform("CNTRY-03", "Country abbreviation mapped", func(v interface{}) (interface{}, bool) {
		iso2, ok := countryVariants[strings.ToLower(strings.TrimSpace(model.Stringify(v)))]
		if !ok {
			return v, false
		}
		ct, ok := LookupCountry(iso2)
		return ct.Name, ok
	})
}

func countryNames(c *formula.Column) formula.Result {
	return c.Transform("CNTRY-01", "Country normalized (name)", func(v interface{}) (interface{}, bool) {
		iso2, ok := NormalizeCountry(model.Stringify(v))
		if !ok {
			return v, false
		}
		ct, ok := LookupCountry(iso2)
		return ct.Name, ok && ct.Name != model.Stringify(v)
	})
}

func countrySpelling(c *formula.Column) formula.Result {
	var suggestions []map[string]string
	rows := c.Rows(func(v interface{}) bool {
		s := model.Stringify(v)
		if _, ok := NormalizeCountry(s); ok {
			return false
		}
		iso2, ok := FuzzyCountry(s, 2)
		if !ok {
			return false
		}
		if len(suggestions) < 10 {
			ct, _ := LookupCountry(iso2)
			suggestions = append(suggestions, map[string]string{"original": s, "suggested": ct.Name})
		}
		return true
	})
	return c.Flag("CNTRY-02", "country_spelling", "Possible country spelling errors",
		"Confirm country corrections", rows, map[string]interface{}{"suggestions": suggestions})
}

func invalidCountries(c *formula.Column) formula.Result {
	return c.FlagWhere("CNTRY-05", "invalid_country", "Invalid/unrecognized country values",
		"Correct or remove invalid countries", func(v interface{}) bool {
			s := model.Stringify(v)
			if _, ok := NormalizeCountry(s); ok {
				return false
			}
			_, ok := FuzzyCountry(s, 2)
			return !ok
		})
}

func dominantCountry(c *formula.Column) formula.Result {
	var present []string
	for _, v := range c.Values() {
		if !model.IsNull(v) {
			present = append(present, model.Stringify(v))
		}
	}
	nulls := c.NullRows()
	if len(present) == 0 || len(nulls) == 0 {
		return c.Result("CNTRY-06", formula.AskFirst)
	}
	top, n := formula.MostFrequent(present)
	pct := float64(n) / float64(len(present)) * 100
	if pct < 80 {
		return c.Result("CNTRY-06", formula.AskFirst)
	}
	return c.Flag("CNTRY-06", "dominant_country_fill",
		fmt.Sprintf("%.1f%% of records are '%s', consider filling missing", pct, top),
		fmt.Sprintf("Suggest filling %d missing values with '%s'", len(nulls), top), nulls,
		map[string]interface{}{"dominant_country": top, "percentage": formula.Round(pct, 1)})
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
