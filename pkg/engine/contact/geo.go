package contact

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
)

// dmsRe matches 27°42'15"N and its spaced or unicode-primed variants
var dmsRe = regexp.MustCompile(`(?i)^([-+]?\d+(?:\.\d+)?)\s*°\s*(?:(\d+(?:\.\d+)?)\s*[′']\s*)?(?:(\d+(?:\.\d+)?)\s*[″"]\s*)?([NSEW])?`)

// coordinate precision kept by GEO-04
const coordinateDecimals = 6

type axis int

const (
	axisUnknown axis = iota
	axisLat
	axisLng
)

func axisOf(name string) axis {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "lat"):
		return axisLat
	case strings.Contains(lower, "lng"), strings.Contains(lower, "lon"):
		return axisLng
	}
	return axisUnknown
}

// partner returns the coordinate column on the other axis
func partner(c *formula.Column) (string, axis, bool) {
	own := axisOf(c.Name)
	if own == axisUnknown {
		return "", own, false
	}
	for _, name := range c.Htypes.ColumnsWithSet(c.Data.Columns(), "GEO") {
		if name != c.Name && axisOf(name) != axisUnknown && axisOf(name) != own {
			return name, own, true
		}
	}
	return "", own, false
}

// ParseDMS converts degrees, minutes and seconds to decimal degrees
func ParseDMS(s string) (float64, bool) {
	m := dmsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	deg, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	var minutes, seconds float64
	if m[2] != "" {
		minutes, _ = strconv.ParseFloat(m[2], 64)
	}
	if m[3] != "" {
		seconds, _ = strconv.ParseFloat(m[3], 64)
	}
	decimal := deg + minutes/60 + seconds/3600
	if dir := strings.ToUpper(m[4]); dir == "S" || dir == "W" {
		decimal = -decimal
	}
	return formula.Round(decimal, coordinateDecimals), true
}

func dmsToDecimal(c *formula.Column) formula.Result {
	return c.TransformStrings("GEO-02", "DMS converted to decimal", func(s string) (interface{}, bool) {
		if !strings.ContainsAny(s, "°′″'") {
			return s, false
		}
		decimal, ok := ParseDMS(s)
		return decimal, ok
	})
}

func coordinatePrecision(c *formula.Column) formula.Result {
	return c.Transform("GEO-04", "Precision normalized to 6 decimals", func(v interface{}) (interface{}, bool) {
		f, ok := formula.ToFloat(v)
		if !ok {
			return v, false
		}
		rounded := formula.Round(f, coordinateDecimals)
		_, isFloat := v.(float64)
		return rounded, !isFloat || rounded != f
	})
}

func coordinateRange(c *formula.Column) formula.Result {
	own := axisOf(c.Name)
	kind := map[axis]string{axisLat: "Latitude", axisLng: "Longitude", axisUnknown: "Coordinate"}[own]
	return c.Flag("GEO-01", "coordinate_out_of_range", "Out-of-range "+kind+" values",
		"Verify coordinate values", c.Rows(func(v interface{}) bool {
			f, ok := formula.ToFloat(v)
			if !ok {
				return true
			}
			switch own {
			case axisLat:
				return math.Abs(f) > 90
			default:
				return math.Abs(f) > 180
			}
		}), nil)
}

// pairs calls fn for every row where this latitude column and its
// longitude partner both hold numbers. Longitude columns report nothing so
// each pair is flagged once.
func pairs(c *formula.Column, fn func(lat, lng float64) bool) (string, []int) {
	other, own, ok := partner(c)
	if !ok || own != axisLat {
		return "", nil
	}
	otherIdx := c.Data.ColumnIndex(other)
	var rows []int
	for i, v := range c.Values() {
		lat, okLat := formula.ToFloat(v)
		lng, okLng := formula.ToFloat(c.Data.Cell(i, otherIdx))
		if !okLat || !okLng {
			continue
		}
		if fn(lat, lng) {
			rows = append(rows, i)
		}
	}
	return other, rows
}

func nullIsland(c *formula.Column) formula.Result {
	other, rows := pairs(c, func(lat, lng float64) bool { return lat == 0 && lng == 0 })
	return c.Flag("GEO-03", "zero_coordinates", "Coordinates at (0, 0) are usually missing values",
		"Verify or clear (0, 0) coordinates", rows, map[string]interface{}{"paired_column": other})
}

func latLngSwaps(c *formula.Column) formula.Result {
	other, rows := pairs(c, func(lat, lng float64) bool { return math.Abs(lat) > 90 && math.Abs(lng) <= 90 })
	return c.Flag("GEO-06", "lat_lng_swap", "Possible latitude/longitude column swap detected",
		"Verify that '"+c.Name+"' and '"+other+"' are not swapped", rows, nil)
}
