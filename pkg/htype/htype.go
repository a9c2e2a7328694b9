// Package htype classifies each column of a dataset into one of the
// registered semantic header types, which decides the formula set used to
// clean it.
package htype

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Map is the per-column classification handed to the rule engines
type Map = model.HtypeMap

// Type is one registered semantic column type
type Type struct {
	Code        string
	Name        string
	FormulaSet  string
	Keywords    []string
	Excludes    []string
	PII         bool
	Sensitivity string
}

// Match builds the classification record for this type
func (t Type) Match(confidence float64, reason string) model.HtypeMatch {
	return model.HtypeMatch{
		HtypeCode:        t.Code,
		HtypeName:        t.Name,
		FormulaSet:       t.FormulaSet,
		Confidence:       confidence,
		MatchReason:      reason,
		IsPII:            t.PII,
		SensitivityLevel: t.Sensitivity,
	}
}

func (t Type) excluded(normalized string) bool {
	for _, ex := range t.Excludes {
		if strings.Contains(normalized, ex) {
			return true
		}
	}
	return false
}

type keywordEntry struct {
	keyword string
	codes   []string
}

var (
	byCode       = make(map[string]Type, len(registry))
	exactKeyword = make(map[string]string)
	keywordIndex []keywordEntry
)

func init() {
	positions := make(map[string]int)
	for _, t := range registry {
		byCode[t.Code] = t
		for _, kw := range t.Keywords {
			kw = strings.ToLower(kw)
			if _, ok := exactKeyword[kw]; !ok {
				exactKeyword[kw] = t.Code
			}
			pos, ok := positions[kw]
			if !ok {
				pos = len(keywordIndex)
				positions[kw] = pos
				keywordIndex = append(keywordIndex, keywordEntry{keyword: kw})
			}
			keywordIndex[pos].codes = append(keywordIndex[pos].codes, t.Code)
		}
	}
}

// Lookup returns the registered type for a code
func Lookup(code string) (Type, bool) {
	t, ok := byCode[code]
	return t, ok
}

// Types returns the registry in lookup order
func Types() []Type {
	return append([]Type(nil), registry...)
}

const textCode = "HTYPE-022"

type valuePattern struct {
	code     string
	re       *regexp.Regexp
	minRatio float64
}

var valuePatterns = []valuePattern{
	{"HTYPE-010", regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`), 0.5},
	{"HTYPE-009", regexp.MustCompile(`^[\+]?[\d\s\-\(\)]{7,20}$`), 0.5},
	{"HTYPE-023", regexp.MustCompile(`^(https?://|www\.)[^\s]+`), 0.5},
	{"HTYPE-036", regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$|^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`), 0.5},
	{"HTYPE-035", regexp.MustCompile(`^-?\d{1,3}\.\d+$`), 0.7},
	{"HTYPE-008", regexp.MustCompile(`(?i)^(male|female|m|f|man|woman|boy|girl|other|non-binary|transgender|prefer not to say)$`), 0.7},
	{"HTYPE-030", regexp.MustCompile(`(?i)^(A|B|AB|O)[+-]?$|^(A|B|AB|O)\s*(positive|negative|pos|neg)$`), 0.7},
	{"HTYPE-018", regexp.MustCompile(`(?i)^(yes|no|y|n|true|false|1|0|on|off|active|inactive)$`), 0.8},
	{"HTYPE-042", regexp.MustCompile(`^[A-Z]{3}$`), 0.8},
}

var (
	datetimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}(:\d{2})?`),
		regexp.MustCompile(`(?i)^\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\s+\d{1,2}:\d{2}`),
	}
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\d{1,2}:\d{2}(:\d{2})?\s*(AM|PM|am|pm)?$`),
		regexp.MustCompile(`(?i)^\d{1,2}\s*(AM|PM|am|pm)$`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\d{1,4}[-/\.]\d{1,2}[-/\.]\d{1,4}$`),
		regexp.MustCompile(`(?i)^\d{1,2}\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{2,4}$`),
		regexp.MustCompile(`(?i)^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{1,2},?\s+\d{2,4}$`),
	}

	separatorRe = regexp.MustCompile(`[\s\-.]+`)
	nonWordRe   = regexp.MustCompile(`[^a-z0-9_]`)
)

// sampleSeed fixes value sampling so detection is repeatable
const sampleSeed = 42

// sampleSize caps the values inspected by the pattern cascade
const sampleSize = 100

// Detector classifies columns. It holds no per-call state and may be shared.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a detector
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger}
}

// NormalizeName lowercases a column name and folds separators to underscores
func NormalizeName(col string) string {
	n := strings.TrimSpace(strings.ToLower(col))
	n = separatorRe.ReplaceAllString(n, "_")
	return nonWordRe.ReplaceAllString(n, "")
}

type candidate struct {
	code       string
	confidence float64
	reason     string
}

func (c *candidate) match() model.HtypeMatch {
	return byCode[c.code].Match(c.confidence, c.reason)
}

// Detect classifies every column of ds
func (d *Detector) Detect(ds *model.Dataset) (Map, error) {
	if ds == nil {
		return nil, fmt.Errorf("htype detection: %w", model.ErrEmptyDataset)
	}
	out := make(Map, ds.NumCols())
	for i, col := range ds.Columns() {
		out[col] = d.DetectColumn(col, ds.Column(i))
	}
	d.logger.Debug("Column types detected", zap.Int("columns", len(out)))
	return out, nil
}

// DetectColumn classifies one column: exact or partial name match first,
// then value patterns, then the value distribution, then a text fallback.
func (d *Detector) DetectColumn(col string, values []interface{}) model.HtypeMatch {
	byName := matchName(col)
	if byName != nil && byName.confidence >= 0.75 {
		return byName.match()
	}
	if m := matchValuePattern(values); m != nil && m.confidence >= 0.6 {
		return m.match()
	}
	if m := matchDistribution(col, values); m != nil {
		return m.match()
	}
	if byName != nil {
		return byName.match()
	}
	return byCode[textCode].Match(0.2, "No specific type detected, defaulting to text")
}

func matchName(col string) *candidate {
	n := NormalizeName(col)

	if code, ok := exactKeyword[n]; ok && !byCode[code].excluded(n) {
		return &candidate{code, 1.0, fmt.Sprintf("Exact column name match: '%s'", col)}
	}

	var best *candidate
	bestLen := 0
	for _, e := range keywordIndex {
		if len(e.keyword) <= bestLen || !strings.Contains(n, e.keyword) {
			continue
		}
		for _, code := range e.codes {
			if !byCode[code].excluded(n) {
				best = &candidate{code, 0.85, fmt.Sprintf("Keyword '%s' found in column name", e.keyword)}
				bestLen = len(e.keyword)
				break
			}
		}
	}
	if best != nil {
		return best
	}

	for _, t := range registry {
		for _, kw := range t.Keywords {
			if strings.HasSuffix(kw, "_") && strings.HasPrefix(n, kw) && !t.excluded(n) {
				return &candidate{t.Code, 0.75, fmt.Sprintf("Prefix pattern '%s' matched", kw)}
			}
		}
	}
	return nil
}

// sample returns up to sampleSize stringified non-null values, chosen with
// a fixed seed when the column is larger than the sample
func sample(values []interface{}) []string {
	nonNull := model.NonNull(values)
	if len(nonNull) > sampleSize {
		rng := rand.New(rand.NewSource(sampleSeed))
		picked := make([]interface{}, 0, sampleSize)
		for _, i := range rng.Perm(len(nonNull))[:sampleSize] {
			picked = append(picked, nonNull[i])
		}
		nonNull = picked
	}
	out := make([]string, len(nonNull))
	for i, v := range nonNull {
		out[i] = strings.TrimSpace(model.Stringify(v))
	}
	return out
}

func matchValuePattern(values []interface{}) *candidate {
	s := sample(values)
	if len(s) == 0 {
		return nil
	}
	total := float64(len(s))
	for _, p := range valuePatterns {
		hits := 0
		for _, v := range s {
			if p.re.MatchString(v) {
				hits++
			}
		}
		ratio := float64(hits) / total
		if ratio >= p.minRatio {
			conf := math.Min(1.0, 0.6+(ratio-p.minRatio)*0.4)
			return &candidate{p.code, conf, fmt.Sprintf("Value pattern match (%.0f%% of values)", ratio*100)}
		}
	}

	count := func(patterns []*regexp.Regexp) float64 {
		hits := 0
		for _, re := range patterns {
			for _, v := range s {
				if re.MatchString(v) {
					hits++
				}
			}
		}
		return float64(hits) / total
	}
	switch {
	case count(datetimePatterns) >= 0.5:
		return &candidate{"HTYPE-006", 0.7, "DateTime value pattern detected"}
	case count(timePatterns) >= 0.5:
		return &candidate{"HTYPE-005", 0.7, "Time value pattern detected"}
	case count(datePatterns) >= 0.5:
		return &candidate{"HTYPE-004", 0.7, "Date value pattern detected"}
	}
	return nil
}

func decimalRatio(xs []float64) float64 {
	n := 0
	for _, x := range xs {
		if x != math.Trunc(x) {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}

func matchDistribution(col string, values []interface{}) *candidate {
	nonNull := model.NonNull(values)
	if len(nonNull) == 0 {
		return nil
	}

	nums := formula.Numbers(nonNull)
	if float64(len(nums))/float64(len(nonNull)) >= 0.9 {
		lo, hi := nums[0], nums[0]
		distinct := make(map[float64]struct{}, len(nums))
		for _, x := range nums {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
			distinct[x] = struct{}{}
		}
		name := strings.ToLower(col)

		if lo >= 0 && hi <= 150 && decimalRatio(nums) < 0.1 &&
			(strings.Contains(name, "age") || strings.Contains(name, "years")) {
			return &candidate{"HTYPE-007", 0.6, "Numeric distribution suggests age (0-120 integer range)"}
		}
		if lo >= 0 && hi <= 100 && formula.ContainsAny(name, "percent", "rate", "ratio") {
			return &candidate{"HTYPE-017", 0.6, "Numeric distribution suggests percentage"}
		}
		if len(distinct) <= 11 && lo >= 0 && hi <= 10 {
			return &candidate{"HTYPE-021", 0.5, "Limited numeric range suggests score/rating"}
		}
		if lo >= 1 && hi <= float64(len(nonNull)*2) && decimalRatio(nums) < 0.05 {
			return &candidate{"HTYPE-043", 0.4, "Positive integer range suggests rank"}
		}
		if lo >= 0 && decimalRatio(nums) < 0.1 {
			return &candidate{"HTYPE-016", 0.4, "General positive integer distribution"}
		}
		return &candidate{"HTYPE-015", 0.35, "General numeric distribution with decimals"}
	}

	if model.InferDtype(values) != "object" {
		return nil
	}
	unique := model.DistinctCount(nonNull)
	if unique <= 10 && float64(unique)/float64(len(nonNull)) < 0.1 {
		name := strings.ToLower(col)
		if strings.Contains(name, "status") || strings.Contains(name, "state") {
			return &candidate{"HTYPE-020", 0.5, "Low cardinality suggests status field"}
		}
		return &candidate{"HTYPE-019", 0.45, "Low cardinality suggests category field"}
	}
	totalLen := 0
	for _, v := range nonNull {
		totalLen += len([]rune(model.Stringify(v)))
	}
	if float64(totalLen)/float64(len(nonNull)) > 50 {
		return &candidate{textCode, 0.4, "High average text length suggests free text/notes"}
	}
	return nil
}
