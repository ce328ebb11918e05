package core

// pipeline.go chains the stages of a roll-up run:
//
//	RawTable -> Classify -> ApplyOverrides -> Normalize -> Aggregate
//
// Run is a pure function over its inputs. Two runs never share state, so
// callers may run any number of them concurrently.

import "strings"

// Default column-name hints for the initial selection.
var (
	DefaultGroupHints = []string{"school type"}
	DefaultValueHints = []string{"students", "pending"}
)

// Options configures a single run.
type Options struct {
	Overrides    OverrideSet
	GroupBy      string
	Value        string
	Classifier   *Classifier
	Standardizer *Standardizer
}

// Report is everything a run produced.
type Report struct {
	Profiles         Profiles
	UnknownOverrides []string
	Cleaned          *CleanedTable
	Result           *AggregationResult
}

// Profile classifies raw and merges overrides. It is the first half of Run,
// used on its own to present column choices before a selection is made.
func Profile(raw *RawTable, classifier *Classifier, overrides OverrideSet) (Profiles, []string) {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return ApplyOverrides(classifier.Classify(raw), overrides)
}

// Run executes the whole pipeline. On a ConfigurationError the report still
// carries the profiles and cleaned table, but Result is nil.
func Run(raw *RawTable, opts Options) (*Report, error) {
	std := opts.Standardizer
	if std == nil {
		std = DefaultStandardizer()
	}

	profiles, unknown := Profile(raw, opts.Classifier, opts.Overrides)
	report := &Report{
		Profiles:         profiles,
		UnknownOverrides: unknown,
		Cleaned:          Normalize(raw, profiles, std),
	}

	result, err := Aggregate(report.Cleaned, opts.GroupBy, opts.Value)
	if err != nil {
		return report, err
	}
	report.Result = result
	return report, nil
}

// Selection is a suggested group/value column pair. Either may be empty when
// there is no candidate of that class.
type Selection struct {
	GroupBy string `json:"groupBy"`
	Value   string `json:"value"`
}

// DefaultSelection suggests the initial group and value columns.
// For each, the last candidate whose lowercased name contains a hint wins;
// without a match the first candidate is used.
func DefaultSelection(profiles Profiles, groupHints, valueHints []string) Selection {
	if groupHints == nil {
		groupHints = DefaultGroupHints
	}
	if valueHints == nil {
		valueHints = DefaultValueHints
	}
	return Selection{
		GroupBy: pickColumn(profiles.TextColumns(), groupHints),
		Value:   pickColumn(profiles.NumericColumns(), valueHints),
	}
}

func pickColumn(candidates, hints []string) string {
	if len(candidates) == 0 {
		return ""
	}
	pick := candidates[0]
	for _, c := range candidates {
		lower := strings.ToLower(c)
		for _, h := range hints {
			if h != "" && strings.Contains(lower, strings.ToLower(h)) {
				pick = c
				break
			}
		}
	}
	return pick
}
