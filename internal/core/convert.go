package core

// convert.go provides numeric coercion for spreadsheet cells.
//
// These functions handle the messy reality of user-provided spreadsheet data:
//   - Currency symbols ($, €, £) and thousands separators
//   - Percentage signs ("12%" reads as 12)
//   - Accounting format for negatives ("(1,234.50)")
//   - Stray whitespace and Excel formula prefixes (="value")
//
// Parsing goes through pgtype.Numeric so decimal text is read exactly before
// it is converted to float64.

import (
	"math"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// numericStrip lists the symbols removed before a numeric parse.
var numericStrip = strings.NewReplacer(
	"$", "",
	"€", "", // Euro
	"£", "", // Pound
	"%", "",
	",", "",
)

// ParseNumeric converts a display string to a number.
// Returns false if the cleaned string is empty or not a decimal number.
func ParseNumeric(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.TrimSpace(numericStrip.Replace(s))

	if isNegative {
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			return 0, false
		}
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid || math.IsInf(f.Float64, 0) || math.IsNaN(f.Float64) {
		return 0, false
	}
	return f.Float64, true
}

// CellNumber returns the numeric value of a cell.
// Number cells are returned as-is; string cells go through ParseNumeric.
func CellNumber(c Cell) (float64, bool) {
	switch c.Kind {
	case KindNumber:
		return c.Num, true
	case KindString:
		return ParseNumeric(c.Str)
	default:
		return 0, false
	}
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace (including non-breaking spaces)
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}

	return s
}
