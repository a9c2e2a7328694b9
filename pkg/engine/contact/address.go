package contact

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

var (
	lineBreakRe = regexp.MustCompile(`[\r\n]+`)
	poBoxRe     = regexp.MustCompile(`(?i)\b(?:p\.?\s*o\.?\s*box|post\s*office\s*box|po\s*box|pobox)\s*\d*`)
)

type abbreviation struct {
	re        *regexp.Regexp
	expansion string
}

func abbr(short, expansion string) abbreviation {
	return abbreviation{re: regexp.MustCompile(`(?i)\b` + short + `\b\.?`), expansion: expansion}
}

var addressAbbreviationList = []abbreviation{
	abbr("st", "Street"),
	abbr("ave", "Avenue"),
	abbr("apt", "Apartment"),
	abbr("blvd", "Boulevard"),
	abbr("rd", "Road"),
	abbr("dr", "Drive"),
	abbr("ln", "Lane"),
	abbr("ct", "Court"),
	abbr("pl", "Place"),
	abbr("pkwy", "Parkway"),
	abbr("hwy", "Highway"),
	abbr("no", "Number"),
	abbr("fl", "Floor"),
	abbr("ste", "Suite"),
	abbr("bldg", "Building"),
}

var addressPlaceholderSet = formula.NewSet(
	"n/a", "na", "none", "null", "unknown", "-", "--",
	"address here", "test address", "123 test st", "123 test street",
	"sample address", "address", "no address", "not provided",
)

// ExpandAddress spells out street-type abbreviations
func ExpandAddress(s string) string {
	for _, a := range addressAbbreviationList {
		s = a.re.ReplaceAllString(s, a.expansion)
	}
	return s
}

// AddressCase title-cases each word, keeping short all-caps tokens such
// as NW or PO
func AddressCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) <= 3 && isUpperWord(w) {
			continue
		}
		words[i] = formula.Capitalize(w)
	}
	return strings.Join(words, " ")
}

func isUpperWord(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func addressPlaceholders(c *formula.Column) formula.Result {
	return c.Transform("ADDR-04", "Placeholder address removed", func(v interface{}) (interface{}, bool) {
		return nil, addressPlaceholderSet.Has(strings.ToLower(strings.TrimSpace(model.Stringify(v))))
	})
}

func addressWhitespace(c *formula.Column) formula.Result {
	return c.TransformStrings("ADDR-01", "Whitespace normalized", func(s string) (interface{}, bool) {
		cleaned := formula.CollapseSpaces(lineBreakRe.ReplaceAllString(s, " "))
		return cleaned, cleaned != s
	})
}

func addressAbbreviations(c *formula.Column) formula.Result {
	return c.TransformStrings("ADDR-02", "Abbreviations expanded", func(s string) (interface{}, bool) {
		expanded := ExpandAddress(s)
		return expanded, expanded != s
	})
}

func addressCase(c *formula.Column) formula.Result {
	return c.TransformStrings("ADDR-05", "Case normalized", func(s string) (interface{}, bool) {
		titled := AddressCase(s)
		return titled, titled != s
	})
}

func addressComponents(c *formula.Column) formula.Result {
	var rows []int
	var samples []string
	checked := 0
	for i, v := range c.Values() {
		if model.IsNull(v) {
			continue
		}
		if checked++; checked > 10 {
			break
		}
		s := model.Stringify(v)
		if strings.Contains(s, ",") || len(strings.Fields(s)) > 5 {
			rows = append(rows, i)
			if r := []rune(s); len(r) > 100 {
				s = string(r[:100])
			}
			samples = append(samples, s)
		}
	}
	return c.Flag("ADDR-03", "address_components", "Complex addresses may benefit from component separation",
		"Consider splitting into house_number, street, city, postal_code",
		rows, map[string]interface{}{"sample_addresses": samples})
}

func poBoxes(c *formula.Column) formula.Result {
	rows := c.Rows(func(v interface{}) bool { return poBoxRe.MatchString(model.Stringify(v)) })
	return c.Flag("ADDR-07", "po_box_address", "PO Box addresses detected",
		"Consider handling separately from physical addresses", rows, nil)
}
