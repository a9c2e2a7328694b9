package category

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

var preserveUpper = formula.NewSet("IT", "HR", "US", "UK", "EU", "UN", "AI", "ML", "DB")

// LabelCase title-cases a label. Short all-caps labels and well known
// acronyms keep their capitals.
func LabelCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if s == strings.ToUpper(s) && s != strings.ToLower(s) && utf8.RuneCountInString(s) <= 5 {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		if upper := strings.ToUpper(w); preserveUpper.Has(upper) {
			words[i] = upper
			continue
		}
		words[i] = formula.Capitalize(w)
	}
	return strings.Join(words, " ")
}

// encodingFixes undoes UTF-8 text that was decoded as Windows-1252 and
// flattens typographic punctuation
var encodingFixes = strings.NewReplacer(
	"â€™", "'", "â€˜", "'", "â€œ", `"`, "â€\u009d", `"`,
	"â€\u201c", "-", "â€\u201d", "-", "â€¦", "...",
	"Ã©", "é", "Ã¨", "è", "Ã¡", "á", "Ã\u00a0", "à", "Ã³", "ó", "Ã±", "ñ",
	"Ã¼", "ü", "Ã¶", "ö", "Ã¤", "ä", "Ã§", "ç", "Ã­", "í", "Ãº", "ú",
	"Â\u00a0", " ",
	"’", "'", "‘", "'", "“", `"`, "”", `"`,
	"—", "-", "–", "-", "\u00a0", " ",
)

// FixEncoding repairs mojibake and typographic punctuation, then applies
// NFKC normalization
func FixEncoding(s string) string {
	return norm.NFKC.String(encodingFixes.Replace(s))
}

// variantKey folds case and punctuation so that "Full-time", "full time"
// and "FULL TIME." compare equal
func variantKey(s string) string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return formula.CollapseSpaces(folded)
}

// Similarity is one minus the case-insensitive edit distance relative to
// the longer string
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(formula.Distance(a, b))/float64(longest)
}

// stringCounts counts the string cells of a column, returning the values
// in first-seen order
func stringCounts(values []interface{}) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, seen := counts[s]; !seen {
			order = append(order, s)
		}
		counts[s]++
	}
	return counts, order
}

// byFrequency sorts values by descending count, then alphabetically
func byFrequency(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for v := range counts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// frequencyText renders counts as "Sales=5, Marketing=3"
func frequencyText(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, v := range byFrequency(counts) {
		parts = append(parts, v+"="+strconv.Itoa(counts[v]))
	}
	return strings.Join(parts, ", ")
}
