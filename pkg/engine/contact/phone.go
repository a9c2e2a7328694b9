package contact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var (
	phoneSeparatorRe = regexp.MustCompile(`(?i)\s*/\s*|\s*,\s*|\s*;\s*|\s*&\s*|\s+or\s+|\s*\n\s*`)
	phoneExtensionRe = regexp.MustCompile(`(?i)\s*(?:ext\.?|extension|x|#)\s*(\d+)\s*$`)
	nonDigitRe       = regexp.MustCompile(`\D`)
)

var phonePlaceholderSet = formula.NewSet(
	"0000000000", "1234567890", "9999999999", "1111111111",
	"0000000", "1111111", "9999999", "1234567",
	"00000000000", "11111111111", "99999999999",
	"n/a", "na", "none", "null", "unknown", "-", "--", ".",
)

// phoneSpec describes the national numbering plan of one country
type phoneSpec struct {
	country        string
	code           string
	lengths        []int
	mobilePrefixes []string
}

// phoneSpecs is checked in order when detecting a country from a number;
// Canada shares +1 with the US and is never detected on its own.
var phoneSpecs = []phoneSpec{
	{country: "US", code: "1", lengths: []int{10}},
	{country: "UK", code: "44", lengths: []int{10, 11}, mobilePrefixes: []string{"7"}},
	{country: "NP", code: "977", lengths: []int{10}, mobilePrefixes: []string{"98", "97"}},
	{country: "IN", code: "91", lengths: []int{10}, mobilePrefixes: []string{"9", "8", "7", "6"}},
	{country: "AU", code: "61", lengths: []int{9}, mobilePrefixes: []string{"4"}},
	{country: "CA", code: "1", lengths: []int{10}},
	{country: "DE", code: "49", lengths: []int{10, 11}, mobilePrefixes: []string{"15", "16", "17"}},
	{country: "FR", code: "33", lengths: []int{9}, mobilePrefixes: []string{"6", "7"}},
}

func specFor(country string) (phoneSpec, bool) {
	for _, s := range phoneSpecs {
		if s.country == country {
			return s, true
		}
	}
	return phoneSpec{}, false
}

// PhoneDigits keeps the digits of s and a leading plus sign
func PhoneDigits(s string) string {
	digits := nonDigitRe.ReplaceAllString(s, "")
	if strings.HasPrefix(strings.TrimSpace(s), "+") {
		return "+" + digits
	}
	return digits
}

// SplitPhones returns the parts of s that look like separate phone numbers
func SplitPhones(s string) []string {
	var phones []string
	for _, part := range phoneSeparatorRe.Split(strings.TrimSpace(s), -1) {
		part = strings.TrimSpace(part)
		if part != "" && len(PhoneDigits(part)) >= 7 {
			phones = append(phones, part)
		}
	}
	return phones
}

// IsPhonePlaceholder reports dummy numbers such as 0000000 or 1234567890
func IsPhonePlaceholder(s string) bool {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if phonePlaceholderSet.Has(normalized) {
		return true
	}
	digits := strings.TrimPrefix(PhoneDigits(normalized), "+")
	if phonePlaceholderSet.Has(digits) {
		return true
	}
	return len(digits) >= 7 && strings.Count(digits, digits[:1]) == len(digits)
}

// PhoneCountry detects a country from the calling code a number starts with
func PhoneCountry(s string) (string, bool) {
	digits := strings.TrimPrefix(PhoneDigits(s), "+")
	for _, spec := range phoneSpecs {
		if strings.HasPrefix(digits, spec.code) {
			return spec.country, true
		}
	}
	return "", false
}

// nationalNumber strips the calling code of country from a number
func nationalNumber(s string, spec phoneSpec) string {
	digits := strings.TrimPrefix(PhoneDigits(s), "+")
	return strings.TrimPrefix(digits, spec.code)
}

// E164 formats a number as +<code><national number>
func E164(s, country string) string {
	spec, ok := specFor(country)
	if !ok {
		if strings.HasPrefix(s, "+") {
			return s
		}
		return "+" + strings.TrimPrefix(PhoneDigits(s), "+")
	}
	return "+" + spec.code + nationalNumber(s, spec)
}

// ValidPhoneLength checks the national number length for a known country
// and falls back to 7-15 digits
func ValidPhoneLength(s, country string) bool {
	spec, ok := specFor(country)
	if !ok {
		n := len(strings.TrimPrefix(PhoneDigits(s), "+"))
		return n >= 7 && n <= 15
	}
	n := len(nationalNumber(s, spec))
	for _, l := range spec.lengths {
		if n == l {
			return true
		}
	}
	return false
}

// PhoneType returns Mobile or Landline when the country's mobile prefixes
// are known, and the empty string otherwise
func PhoneType(s, country string) string {
	spec, ok := specFor(country)
	if !ok || len(spec.mobilePrefixes) == 0 {
		return ""
	}
	national := nationalNumber(s, spec)
	for _, p := range spec.mobilePrefixes {
		if strings.HasPrefix(national, p) {
			return "Mobile"
		}
	}
	return "Landline"
}

func (r *run) phonePlaceholders(c *formula.Column) formula.Result {
	r.originals[c.Name] = c.Values()
	return c.Transform("PHONE-07", "Placeholder phone removed", func(v interface{}) (interface{}, bool) {
		return nil, IsPhonePlaceholder(text(v))
	})
}

func phoneExtensions(c *formula.Column) formula.Result {
	extensions := make([]interface{}, c.Data.NumRows())
	res := c.TransformRows("PHONE-08", "Extension separated", func(row int, v interface{}) (interface{}, bool) {
		s, ok := v.(string)
		if !ok {
			return v, false
		}
		m := phoneExtensionRe.FindStringSubmatch(s)
		if m == nil {
			return v, false
		}
		extensions[row] = m[1]
		return strings.TrimSpace(phoneExtensionRe.ReplaceAllString(s, "")), true
	})
	c.SetDerived("PHONE-08", c.Name+"_extension", extensions)
	return res
}

func stripPhoneFormatting(c *formula.Column) formula.Result {
	return c.Transform("PHONE-03", "Formatting characters removed", func(v interface{}) (interface{}, bool) {
		s := text(v)
		cleaned := PhoneDigits(s)
		if cleaned == "" || cleaned == "+" {
			return v, false
		}
		if _, isString := v.(string); isString && cleaned == s {
			return v, false
		}
		return cleaned, true
	})
}

func (r *run) e164(c *formula.Column) formula.Result {
	return c.Transform("PHONE-09", "Format standardized (e164)", func(v interface{}) (interface{}, bool) {
		s := text(v)
		if strings.TrimPrefix(PhoneDigits(s), "+") == "" {
			return v, false
		}
		country, ok := PhoneCountry(s)
		if !ok {
			country = r.country
		}
		formatted := E164(s, country)
		return formatted, formatted != s
	})
}

func phoneTypes(c *formula.Column) formula.Result {
	res := c.Result("PHONE-11", formula.Auto)
	types := make([]interface{}, c.Data.NumRows())
	for i, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		s := text(v)
		country, _ := PhoneCountry(s)
		if t := PhoneType(s, country); t != "" {
			types[i] = t
		}
	}
	res.Changes = c.SetDerived("PHONE-11", c.Name+"_type", types)
	return res
}

func (r *run) multiNumberScan(c *formula.Column) formula.Result {
	var single int
	var multi []int
	for i, v := range r.originals[c.Name] {
		if model.IsNull(v) {
			continue
		}
		switch n := len(SplitPhones(text(v))); {
		case n >= 2:
			multi = append(multi, i)
		case n == 1:
			single++
		}
	}
	total := single + len(multi)
	if total == 0 {
		return c.Result("PHONE-01", formula.AskFirst)
	}
	pct := float64(len(multi)) / float64(total) * 100
	if pct < 50 {
		return c.Result("PHONE-01", formula.AskFirst)
	}
	return c.Flag("PHONE-01", "multiple_phone_numbers",
		fmt.Sprintf("%.1f%% of phone values contain multiple numbers", pct),
		"Consider splitting into phone_primary and phone_secondary columns",
		multi, map[string]interface{}{
			"single_number_count":     single,
			"multi_number_count":      len(multi),
			"multi_number_percentage": formula.Round(pct, 1),
		})
}

func phoneLengths(c *formula.Column) formula.Result {
	return c.FlagWhere("PHONE-05", "invalid_phone_length", "Phone numbers with invalid length detected",
		"Verify phone number digits", func(v interface{}) bool {
			s := text(v)
			country, _ := PhoneCountry(s)
			return !ValidPhoneLength(s, country)
		})
}

func duplicatePhones(c *formula.Column) formula.Result {
	const desc, suggested = "Duplicate phone numbers detected across different records", "Review for data errors"
	idCol, ok := related(c, "UID")
	if !ok {
		rows, _ := c.Duplicates(func(v interface{}) string { return text(v) })
		return c.Flag("PHONE-06", "duplicate_phone", desc, suggested, rows, nil)
	}

	idIdx := c.Data.ColumnIndex(idCol)
	values := c.Values()
	owners := make(map[string]map[string]struct{})
	for i, v := range values {
		id := c.Data.Cell(i, idIdx)
		if model.IsNull(v) || model.IsNull(id) {
			continue
		}
		phone := text(v)
		if owners[phone] == nil {
			owners[phone] = make(map[string]struct{})
		}
		owners[phone][model.Key(id)] = struct{}{}
	}
	var rows []int
	for i, v := range values {
		if !model.IsNull(v) && len(owners[text(v)]) > 1 {
			rows = append(rows, i)
		}
	}
	return c.Flag("PHONE-06", "duplicate_phone", desc, suggested, rows,
		map[string]interface{}{"id_column": idCol})
}
