package formula

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// placeholders are values that stand in for missing data
var placeholders = map[string]struct{}{
	"n/a": {}, "na": {}, "n.a.": {}, "none": {}, "null": {}, "unknown": {}, "test": {}, "xxx": {},
	"----": {}, "---": {}, "--": {}, "-": {}, ".": {}, "..": {}, "...": {}, "tbd": {}, "pending": {},
	"not available": {}, "not applicable": {}, "no data": {}, "empty": {},
}

// IsPlaceholder reports whether a string is a stand-in for a missing value
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CollapseSpaces trims a string and collapses internal whitespace runs
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Capitalize upper-cases the first rune and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// TitleCase capitalizes every whitespace separated word
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// NameCase title-cases a personal name, keeping O'Brien, Al-Hassan and
// McDonald/MacArthur capitalization.
func NameCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = nameWord(w)
	}
	return strings.Join(words, " ")
}

func nameWord(w string) string {
	switch {
	case strings.Contains(w, "'"):
		parts := strings.Split(w, "'")
		for i, p := range parts {
			parts[i] = Capitalize(p)
		}
		return strings.Join(parts, "'")
	case strings.Contains(w, "-"):
		parts := strings.Split(w, "-")
		for i, p := range parts {
			parts[i] = Capitalize(p)
		}
		return strings.Join(parts, "-")
	}
	lower := strings.ToLower(w)
	if strings.HasPrefix(lower, "mac") && len(w) > 3 {
		return "Mac" + Capitalize(w[3:])
	}
	if strings.HasPrefix(lower, "mc") && len(w) > 2 {
		return "Mc" + Capitalize(w[2:])
	}
	return Capitalize(w)
}

// Distance returns the Levenshtein edit distance between two strings
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// ClosestMatch returns the candidate with the smallest edit distance to s,
// provided the distance is at most maxDist and is not zero.
func ClosestMatch(s string, candidates []string, maxDist int) (string, int, bool) {
	best, bestDist := "", maxDist+1
	for _, c := range candidates {
		d := Distance(s, c)
		if d == 0 {
			return "", 0, false
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestDist, true
}

// DigitRatio returns the share of runes in s that are digits
func DigitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	runes := []rune(s)
	digits := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return float64(digits) / float64(len(runes))
}

var wordToNumber = map[string]int64{
	"zero": 0, "oh": 0,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100, "thousand": 1000, "million": 1000000, "billion": 1000000000,
}

// numberTypos maps common misspellings of number words
var numberTypos = map[string]string{
	"zeroo": "zero", "zer0": "zero",
	"won": "one", "wun": "one",
	"too": "two", "tow": "two",
	"thee": "three", "thre": "three",
	"fore": "four", "fo": "four", "fourty": "forty",
	"fiv": "five", "fife": "five", "fiveteen": "fifteen",
	"sic": "six", "sixt": "six",
	"sven": "seven", "sevn": "seven",
	"eigt": "eight", "eigth": "eight",
	"nien": "nine", "nne": "nine",
	"tem":   "ten",
	"elven": "eleven", "elevan": "eleven", "elevn": "eleven",
	"twleve": "twelve", "twelv": "twelve", "tweve": "twelve",
	"thirten": "thirteen", "thurteen": "thirteen", "thirtteen": "thirteen",
	"forteen": "fourteen", "fourten": "fourteen",
	"fiften": "fifteen",
	"sixten": "sixteen", "sixtteen": "sixteen",
	"seventen": "seventeen", "seventten": "seventeen",
	"eighten": "eighteen", "eightteen": "eighteen",
	"nineeten": "nineteen", "ninteen": "nineteen",
	"tweny": "twenty", "twentty": "twenty", "twennty": "twenty",
	"thrity": "thirty", "thirthy": "thirty",
	"fify": "fifty", "fifthy": "fifty",
	"sixthy": "sixty",
	"eigthy": "eighty",
	"ninty":  "ninety",
	"hunderd": "hundred", "hundrerd": "hundred",
}

// CorrectNumberWord fixes a misspelled number word, reporting whether it changed
func CorrectNumberWord(w string) (string, bool) {
	if fixed, ok := numberTypos[strings.ToLower(w)]; ok {
		return fixed, true
	}
	return w, false
}

// WordsToNumber parses written numbers such as "twenty five",
// "twenty-five" or "one hundred and twenty", tolerating common typos.
func WordsToNumber(text string) (int64, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, false
	}
	if n, ok := wordToNumber[text]; ok {
		return n, true
	}
	if fixed, ok := numberTypos[text]; ok {
		if n, ok := wordToNumber[fixed]; ok {
			return n, true
		}
	}
	text = strings.ReplaceAll(text, "-", " ")
	text = strings.ReplaceAll(text, " and ", " ")
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0, false
	}
	var total, current int64
	for _, w := range words {
		if fixed, ok := numberTypos[w]; ok {
			w = fixed
		}
		v, ok := wordToNumber[w]
		if !ok {
			return 0, false
		}
		switch v {
		case 100:
			if current == 0 {
				current = 1
			}
			current *= 100
		case 1000, 1000000, 1000000000:
			if current == 0 {
				current = 1
			}
			total += current * v
			current = 0
		default:
			current += v
		}
	}
	return total + current, true
}

// ContainsAny reports whether s contains any of the substrings
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// MostFrequent returns the most common string, breaking ties by first
// appearance
func MostFrequent(values []string) (string, int) {
	counts := make(map[string]int)
	order := []string{}
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount
}

// Set is a lookup table of strings
type Set map[string]struct{}

// NewSet builds a Set from values
func NewSet(values ...string) Set {
	out := make(Set, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// Has reports whether s is in the set
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}
