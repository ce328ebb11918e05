package core

// patterns.go provides the special-column predicates used by the classifier.
//
// Each matcher takes a single display string and answers true or false. They
// are deliberately strict: a value that is ambiguous (for example a bare run of
// ten digits) does not match, and the column-level majority vote decides what
// the column is.

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	zipRegex = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	idRegex  = regexp.MustCompile(`^\d-\d{8}$`)

	// Optional +1/1 prefix, optional parenthesized area code, then 3-3-4 digits
	// with optional separators among '-', '.', ' '.
	phoneRegex = regexp.MustCompile(`^(?:\+?1[-. ]?)?(?:\(\d{3}\)|\d{3})[-. ]?\d{3}[-. ]?\d{4}$`)

	// Three numeric parts split by a single kind of separator, optionally followed by a time.
	numericDateRegex = regexp.MustCompile(`^(\d{1,4})([/-])(\d{1,2})([/-])(\d{1,4})(?:[ T]\d{1,2}:\d{2}(?::\d{2})?)?$`)

	// English month name or abbreviation followed by a day and/or a year token.
	monthDateRegex = regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+\d{1,4}(?:st|nd|rd|th)?\b`)
)

// IsZip reports whether s is a 5-digit ZIP or a ZIP+4.
func IsZip(s string) bool {
	return zipRegex.MatchString(strings.TrimSpace(s))
}

// IsID reports whether s has the X-XXXXXXXX identifier shape.
func IsID(s string) bool {
	return idRegex.MatchString(strings.TrimSpace(s))
}

// IsPhone reports whether s is a US phone number.
// A bare run of digits is not treated as a phone number: it needs a separator,
// parentheses or a '+' to be unambiguous.
func IsPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneRegex.MatchString(s) {
		return false
	}
	return strings.ContainsAny(s, "()-. +")
}

// IsDate reports whether s looks like a calendar date.
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if m := numericDateRegex.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return false
		}
		return plausibleDate(m[1], m[3], m[5])
	}
	return monthDateRegex.MatchString(s)
}

// plausibleDate accepts y/m/d when the first part has four digits, otherwise
// m/d/y or d/m/y with a two- or four-digit year.
func plausibleDate(a, b, c string) bool {
	x, _ := strconv.Atoi(a)
	y, _ := strconv.Atoi(b)
	z, _ := strconv.Atoi(c)

	if len(a) == 4 {
		return len(c) <= 2 && validMonth(y) && validDay(z)
	}
	if len(c) != 2 && len(c) != 4 {
		return false
	}
	monthFirst := validMonth(x) && validDay(y)
	dayFirst := validDay(x) && validMonth(y)
	return monthFirst || dayFirst
}

func validMonth(m int) bool { return m >= 1 && m <= 12 }
func validDay(d int) bool   { return d >= 1 && d <= 31 }

// patternMatcher pairs a special class with its predicate.
type patternMatcher struct {
	class Class
	match func(string) bool
}

// specialPatterns lists the matchers in tie-break precedence order:
// when two patterns dominate a column with the same proportion, the earlier
// one wins.
var specialPatterns = []patternMatcher{
	{ClassID, IsID},
	{ClassZipCode, IsZip},
	{ClassPhone, IsPhone},
	{ClassDate, IsDate},
}
