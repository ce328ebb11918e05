package core

// classify.go decides the class of every column of a RawTable.
//
// Classification is a majority vote over the non-empty values of a column:
//  1. If more than Threshold of the values match a special pattern (ZIP, phone,
//     ID, date) the column is that pattern and resolves to Text.
//  2. Otherwise, if more than Threshold of the values parse as numbers after
//     stripping currency, percent signs and separators, the column is Numeric.
//  3. Otherwise the column is Text.
//
// User overrides are merged afterwards by ApplyOverrides. Classification never
// fails: every column resolves to exactly one final class.

import "slices"

// DefaultThreshold is the share of non-empty values a class needs to win a column.
const DefaultThreshold = 0.5

// DefaultSampleSize is how many example values each profile keeps for display.
const DefaultSampleSize = 5

// Classifier assigns a ColumnProfile to every column of a table.
type Classifier struct {
	// Threshold is the majority a pattern or numeric parse needs (strictly greater than).
	Threshold float64
	// SampleSize is the number of display samples kept per column.
	SampleSize int
}

// NewClassifier returns a classifier with the default majority threshold.
func NewClassifier() *Classifier {
	return &Classifier{Threshold: DefaultThreshold, SampleSize: DefaultSampleSize}
}

// Classify profiles every column of t, in column order.
func (c *Classifier) Classify(t *RawTable) Profiles {
	profiles := make(Profiles, len(t.Columns))
	for i, col := range t.Columns {
		profiles[i] = c.classifyColumn(col, t.Values(col))
	}
	return profiles
}

// classifyColumn runs the detection steps over one column's cells.
func (c *Classifier) classifyColumn(name string, cells []Cell) ColumnProfile {
	threshold := c.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	sampleSize := c.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	profile := ColumnProfile{Name: name, Detected: ClassText, Final: ClassText}

	values := make([]string, 0, len(cells))
	typed := make([]bool, 0, len(cells))
	numeric := 0
	for _, cell := range cells {
		if cell.IsEmpty() {
			continue
		}
		values = append(values, CleanCell(cell.String()))
		typed = append(typed, cell.Kind == KindNumber)
		if _, ok := CellNumber(cell); ok {
			numeric++
		}
	}

	profile.NonEmpty = len(values)
	profile.Samples = samples(values, sampleSize)

	if len(values) == 0 {
		return profile
	}

	total := float64(len(values))
	numericRatio := float64(numeric) / total

	// Typed numbers only count toward the special patterns when the column
	// is not already numeric by majority.
	matchTyped := numericRatio <= threshold

	// Special patterns: highest proportion wins, ties keep precedence order.
	best, bestRatio := ClassText, 0.0
	for _, p := range specialPatterns {
		matched := 0
		for i, v := range values {
			if typed[i] && !matchTyped {
				continue
			}
			if p.match(v) {
				matched++
			}
		}
		ratio := float64(matched) / total
		if ratio > threshold && ratio > bestRatio {
			best, bestRatio = p.class, ratio
		}
	}
	if best != ClassText {
		profile.Detected = best
		profile.Ratio = bestRatio
		return profile
	}

	if numericRatio > threshold {
		profile.Detected = ClassNumeric
		profile.Final = ClassNumeric
		profile.Ratio = numericRatio
		return profile
	}

	profile.Ratio = 1 - numericRatio
	return profile
}

// samples returns up to n values in first-seen order.
func samples(values []string, n int) []string {
	if len(values) < n {
		n = len(values)
	}
	out := make([]string, n)
	copy(out, values[:n])
	return out
}

// ApplyOverrides merges user directives into profiles and returns a new slice.
// A column in ForceExclude is Text regardless of detection; otherwise a column
// in ForceIncludeNumeric is Numeric. Override names that match no column are
// returned so the caller can warn about them.
func ApplyOverrides(profiles Profiles, overrides OverrideSet) (Profiles, []string) {
	out := make(Profiles, len(profiles))
	known := make(map[string]bool, len(profiles))

	for i, p := range profiles {
		known[p.Name] = true
		p.Samples = append([]string(nil), p.Samples...)
		p.Override = OverrideNone
		p.Final = autoFinal(p.Detected)

		switch {
		case overrides.ForceExclude[p.Name]:
			p.Final = ClassText
			p.Override = OverrideExclude
		case overrides.ForceIncludeNumeric[p.Name]:
			p.Final = ClassNumeric
			p.Override = OverrideInclude
		}
		out[i] = p
	}

	var unknown []string
	for _, set := range []map[string]bool{overrides.ForceExclude, overrides.ForceIncludeNumeric} {
		for name := range set {
			if !known[name] {
				unknown = append(unknown, name)
			}
		}
	}
	slices.Sort(unknown)
	return out, slices.Compact(unknown)
}

// autoFinal maps a detected class to its final class without overrides.
func autoFinal(detected Class) Class {
	if detected == ClassNumeric {
		return ClassNumeric
	}
	return ClassText
}
