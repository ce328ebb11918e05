package core

// aggregate.go sums a numeric column grouped by a text column.
//
// Groups are emitted in the order their key first appears in the cleaned
// table. SortedByTotal gives the ranked view used for display and export.

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// AggregationResult is the grouped summary of a run.
type AggregationResult struct {
	GroupColumn string       `json:"groupColumn"`
	ValueColumn string       `json:"valueColumn"`
	Groups      []GroupTotal `json:"groups"`
}

// Len returns the number of groups.
func (r *AggregationResult) Len() int { return len(r.Groups) }

// Lookup returns the total for a group key.
func (r *AggregationResult) Lookup(key string) (GroupTotal, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return GroupTotal{}, false
}

// SortedByTotal returns the groups ordered by total descending.
// Equal totals keep first-seen order. The result's own order is not changed.
func (r *AggregationResult) SortedByTotal() []GroupTotal {
	out := make([]GroupTotal, len(r.Groups))
	copy(out, r.Groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

// GrandTotal returns the sum of all group totals.
func (r *AggregationResult) GrandTotal() float64 {
	if len(r.Groups) == 0 {
		return 0
	}
	totals := make(stats.Float64Data, len(r.Groups))
	for i, g := range r.Groups {
		totals[i] = g.Total
	}
	sum, err := stats.Sum(totals)
	if err != nil {
		return 0
	}
	return sum
}

// Aggregate partitions rows of t by the groupBy column and sums the value
// column within each partition.
//
// It returns a *ConfigurationError, and no result, when either column is
// missing, the group column is numeric, or the value column is text.
func Aggregate(t *CleanedTable, groupBy, value string) (*AggregationResult, error) {
	group, ok := t.Column(groupBy)
	if !ok {
		return nil, &ConfigurationError{Column: groupBy, Reason: ReasonColumnMissing}
	}
	if group.Class != ClassText {
		return nil, &ConfigurationError{Column: groupBy, Reason: ReasonGroupNotText}
	}

	values, ok := t.Column(value)
	if !ok {
		return nil, &ConfigurationError{Column: value, Reason: ReasonColumnMissing}
	}
	if values.Class != ClassNumeric {
		return nil, &ConfigurationError{Column: value, Reason: ReasonValueNotNumber}
	}

	result := &AggregationResult{GroupColumn: groupBy, ValueColumn: value}
	index := make(map[string]int)

	for i := 0; i < t.Len(); i++ {
		key := group.Texts[i]
		pos, seen := index[key]
		if !seen {
			pos = len(result.Groups)
			index[key] = pos
			result.Groups = append(result.Groups, GroupTotal{Key: key})
		}
		result.Groups[pos].Total += values.Numbers[i]
		result.Groups[pos].Rows++
	}

	return result, nil
}
