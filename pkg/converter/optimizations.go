package converter

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/model"
)

// optimizeColumn narrows the type of a text column from its values and its
// HTYPE. SQLite keeps the generic type since its affinity is loose.
func (c *TypeConverter) optimizeColumn(col model.Column, values []interface{}, match model.HtypeMatch, d Dialect) model.Column {
	if d != Postgres || col.DataType != KindObject {
		return col
	}

	optimized := col
	nonNull := 0
	maxLen := 0
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			if v != nil {
				// Mixed cells stay TEXT
				return col
			}
			continue
		}
		nonNull++
		if n := utf8.RuneCountInString(s); n > maxLen {
			maxLen = n
		}
	}
	if nonNull == 0 {
		return col
	}

	switch {
	case isDateFormulaSet(match.FormulaSet) && allStrings(values, isISODate):
		optimized.PgType = "DATE"
	case match.FormulaSet == "UID" && allStrings(values, isUUID):
		optimized.PgType = "UUID"
	default:
		optimized.PgType = c.handleVarcharType(maxLen)
	}

	if optimized.PgType != col.PgType {
		c.logger.Debug("Optimized snapshot column",
			zap.String("column", col.Name),
			zap.String("htype", match.HtypeCode),
			zap.String("from", col.PgType),
			zap.String("to", optimized.PgType))
	}
	return optimized
}

func isDateFormulaSet(set string) bool {
	return set == "DATE"
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func isUUID(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}

// allStrings reports whether every non-null value is a string accepted by ok
func allStrings(values []interface{}, ok func(string) bool) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString || !ok(s) {
			return false
		}
	}
	return true
}
