// Package contact cleans contact and location columns: phone numbers,
// email addresses, street addresses, cities, countries, postal codes and
// coordinates.
package contact

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

// Output is the result of one contact and location run
type Output = formula.Output[formula.TypeSummary]

// Options configures the engine
type Options struct {
	// DefaultCountry is the ISO-2 country assumed for phone numbers that
	// carry no recognizable country code. Defaults to US.
	DefaultCountry string
}

// Engine runs the PHONE, EMAIL, ADDR, CITY, CNTRY, POST and GEO formula sets
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a contact and location engine
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = "US"
	}
	return &Engine{opts: opts, logger: logger}
}

// run carries per-call state. Phone columns are captured before any
// formatting so the multi-number scan sees the separators.
type run struct {
	country   string
	originals map[string][]interface{}
}

func (r *run) battery() formula.Battery {
	return formula.Battery{
		"PHONE": {
			{ID: "PHONE-07", Policy: formula.Auto, Apply: r.phonePlaceholders},
			{ID: "PHONE-08", Policy: formula.Auto, Apply: phoneExtensions},
			{ID: "PHONE-03", Policy: formula.Auto, Apply: stripPhoneFormatting},
			{ID: "PHONE-09", Policy: formula.Auto, Apply: r.e164},
			{ID: "PHONE-11", Policy: formula.Auto, Apply: phoneTypes},
			{ID: "PHONE-01", Policy: formula.AskFirst, Apply: r.multiNumberScan},
			{ID: "PHONE-05", Policy: formula.AskFirst, Apply: phoneLengths},
			{ID: "PHONE-06", Policy: formula.AskFirst, Apply: duplicatePhones},
			{ID: "PHONE-10", Policy: formula.AskFirst, Apply: missing("PHONE-10", "missing_phone", "Missing phone numbers detected", "Cannot predict phone numbers, requires user input")},
		},
		"EMAIL": {
			{ID: "EMAIL-06", Policy: formula.Auto, Apply: emailWhitespace},
			{ID: "EMAIL-07", Policy: formula.Auto, Apply: emailPlaceholders},
			{ID: "EMAIL-01", Policy: formula.Auto, Apply: lowercaseEmails},
			{ID: "EMAIL-09", Policy: formula.Auto, Apply: splitEmails},
			{ID: "EMAIL-02", Policy: formula.AskFirst, Apply: emailFormat},
			{ID: "EMAIL-03", Policy: formula.AskFirst, Apply: emailDomains},
			{ID: "EMAIL-04", Policy: formula.AskFirst, Apply: duplicateEmails},
			{ID: "EMAIL-05", Policy: formula.AskFirst, Apply: disposableEmails},
			{ID: "EMAIL-08", Policy: formula.AskFirst, Apply: missing("EMAIL-08", "missing_email", "Missing email addresses", "Cannot predict email, requires user input")},
			{ID: "EMAIL-10", Policy: formula.AskFirst, Apply: emailTypos},
		},
		"ADDR": {
			{ID: "ADDR-04", Policy: formula.Auto, Apply: addressPlaceholders},
			{ID: "ADDR-01", Policy: formula.Auto, Apply: addressWhitespace},
			{ID: "ADDR-02", Policy: formula.Auto, Apply: addressAbbreviations},
			{ID: "ADDR-05", Policy: formula.Auto, Apply: addressCase},
			{ID: "ADDR-03", Policy: formula.AskFirst, Apply: addressComponents},
			{ID: "ADDR-06", Policy: formula.AskFirst, Apply: missing("ADDR-06", "missing_address", "Missing addresses", "Cannot predict address, requires user input")},
			{ID: "ADDR-07", Policy: formula.AskFirst, Apply: poBoxes},
		},
		"CITY": {
			{ID: "CITY-03", Policy: formula.Auto, Apply: cityAbbreviations},
			{ID: "CITY-01", Policy: formula.Auto, Apply: placeTitleCase("CITY-01")},
			{ID: "CITY-05", Policy: formula.Auto, Apply: cityVariants},
			{ID: "CITY-02", Policy: formula.AskFirst, Apply: citySpelling},
			{ID: "CITY-04", Policy: formula.AskFirst, Apply: cityCountryConsistency},
			{ID: "CITY-06", Policy: formula.AskFirst, Apply: cityFromAddress},
		},
		"CNTRY": {
			{ID: "CNTRY-03", Policy: formula.Auto, Apply: countryAbbreviations},
			{ID: "CNTRY-01", Policy: formula.Auto, Apply: countryNames},
			{ID: "CNTRY-04", Policy: formula.Auto, Apply: placeTitleCase("CNTRY-04")},
			{ID: "CNTRY-02", Policy: formula.AskFirst, Apply: countrySpelling},
			{ID: "CNTRY-05", Policy: formula.AskFirst, Apply: invalidCountries},
			{ID: "CNTRY-06", Policy: formula.AskFirst, Apply: dominantCountry},
		},
		"POST": {
			{ID: "POST-01", Policy: formula.Auto, Apply: postalLeadingZeros},
			{ID: "POST-03", Policy: formula.Auto, Apply: zipPlusFour},
			{ID: "POST-02", Policy: formula.AskFirst, Apply: postalFormat},
			{ID: "POST-04", Policy: formula.AskFirst, Apply: postalLetters},
			{ID: "POST-05", Policy: formula.AskFirst, Apply: postalConsistency},
		},
		"GEO": {
			{ID: "GEO-02", Policy: formula.Auto, Apply: dmsToDecimal},
			{ID: "GEO-04", Policy: formula.Auto, Apply: coordinatePrecision},
			{ID: "GEO-01", Policy: formula.AskFirst, Apply: coordinateRange},
			{ID: "GEO-03", Policy: formula.AskFirst, Apply: nullIsland},
			{ID: "GEO-05", Policy: formula.AskFirst, Apply: missing("GEO-05", "missing_coordinates", "Missing coordinate values", "Cannot predict coordinates, requires geocoding or user input")},
			{ID: "GEO-06", Policy: formula.AskFirst, Apply: latLngSwaps},
		},
	}
}

// Run applies the contact and location formulas to a copy of ds
func (e *Engine) Run(jobID string, ds *model.Dataset, sink audit.Sink, htypes model.HtypeMap) (*Output, error) {
	if ds == nil {
		return nil, fmt.Errorf("contact location rules: %w", model.ErrEmptyDataset)
	}
	r := &run{country: e.opts.DefaultCountry, originals: make(map[string][]interface{})}
	rec := formula.NewRecorder(jobID, sink)
	out := ds.Clone()
	summary := formula.RunBattery(rec, out, htypes, r.battery())

	e.logger.Info("Contact location rules completed",
		zap.String("job_id", jobID),
		zap.String("default_country", r.country),
		zap.Strings("columns", summary.ColumnsProcessed),
		zap.Int("changes", summary.TotalChanges),
		zap.Int("flags", summary.TotalFlags))

	return &Output{Dataset: out, Summary: summary, Flags: rec.Flags()}, nil
}

// missing flags null and blank cells
func missing(id, flagType, description, suggested string) func(c *formula.Column) formula.Result {
	return func(c *formula.Column) formula.Result {
		var rows []int
		for i, v := range c.Values() {
			if model.IsNull(v) {
				rows = append(rows, i)
				continue
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				rows = append(rows, i)
			}
		}
		return c.Flag(id, flagType, description, suggested, rows, nil)
	}
}

// related returns the first other column, in dataset order, whose formula
// set is set
func related(c *formula.Column, set string) (string, bool) {
	for _, name := range c.Htypes.ColumnsWithSet(c.Data.Columns(), set) {
		if name != c.Name {
			return name, true
		}
	}
	return "", false
}

// text renders a cell for string heuristics. Integral floats lose their
// decimal suffix so numeric phone numbers and postal codes read naturally.
func text(v interface{}) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10)
		}
	}
	return model.Stringify(v)
}
