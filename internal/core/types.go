package core

// types.go defines the tables, cells and column profiles passed between stages.

import (
	"strconv"
	"strings"
)

// CellKind identifies what a raw cell holds.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindString
	KindNumber
)

// Cell is a single raw spreadsheet value: empty, a string, or a number.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

// EmptyCell returns a missing value.
func EmptyCell() Cell { return Cell{Kind: KindEmpty} }

// StringCell returns a string value. An empty string is still a string cell;
// use EmptyCell for missing values.
func StringCell(s string) Cell { return Cell{Kind: KindString, Str: s} }

// NumberCell returns a numeric value.
func NumberCell(f float64) Cell { return Cell{Kind: KindNumber, Num: f} }

// IsEmpty reports whether the cell is missing or holds only whitespace.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindString:
		return strings.TrimSpace(c.Str) == ""
	default:
		return false
	}
}

// String returns the display form of the cell.
// Numbers are rendered without trailing zeros ("100.5", "33130").
func (c Cell) String() string {
	switch c.Kind {
	case KindString:
		return c.Str
	case KindNumber:
		return formatNumber(c.Num)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row maps column names to cell values.
type Row map[string]Cell

// RawTable is a sheet as loaded from a workbook.
// Columns are unique and keep sheet order. A RawTable is never mutated once
// loaded; every stage produces new values.
type RawTable struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Values returns the cells of one column in row order.
// Rows that lack the column yield empty cells.
func (t *RawTable) Values(column string) []Cell {
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		if c, ok := row[column]; ok {
			out[i] = c
		}
	}
	return out
}

// Class is the classification of a column.
type Class string

const (
	ClassNumeric Class = "numeric"
	ClassZipCode Class = "zip_code"
	ClassPhone   Class = "phone"
	ClassID      Class = "id"
	ClassDate    Class = "date"
	ClassText    Class = "text"
)

// Label returns a human-readable name for a class.
func (c Class) Label() string {
	switch c {
	case ClassNumeric:
		return "Numeric"
	case ClassZipCode:
		return "ZIP code"
	case ClassPhone:
		return "Phone"
	case ClassID:
		return "ID"
	case ClassDate:
		return "Date"
	default:
		return "Text"
	}
}

// IsSpecial reports whether the class is a special pattern that is excluded
// from numeric treatment by default.
func (c Class) IsSpecial() bool {
	switch c {
	case ClassZipCode, ClassPhone, ClassID, ClassDate:
		return true
	default:
		return false
	}
}

// OverrideKind records which user directive, if any, decided a column's final class.
type OverrideKind string

const (
	OverrideNone    OverrideKind = ""
	OverrideInclude OverrideKind = "include"
	OverrideExclude OverrideKind = "exclude"
)

// ColumnProfile is the classification of one column.
type ColumnProfile struct {
	Name     string       `json:"name"`
	Detected Class        `json:"detected"`
	Final    Class        `json:"final"` // always ClassNumeric or ClassText
	Samples  []string     `json:"samples"`
	NonEmpty int          `json:"nonEmpty"`
	Ratio    float64      `json:"ratio"` // share of non-empty values supporting Detected
	Override OverrideKind `json:"override,omitempty"`
}

// Profiles holds one ColumnProfile per table column, in column order.
type Profiles []ColumnProfile

// Lookup returns the profile for a column.
func (p Profiles) Lookup(name string) (ColumnProfile, bool) {
	for _, cp := range p {
		if cp.Name == name {
			return cp, true
		}
	}
	return ColumnProfile{}, false
}

// TextColumns returns the names of columns whose final class is Text.
// These are the candidates for the group-by column.
func (p Profiles) TextColumns() []string {
	return p.namesWithFinal(ClassText)
}

// NumericColumns returns the names of columns whose final class is Numeric.
// These are the candidates for the value column.
func (p Profiles) NumericColumns() []string {
	return p.namesWithFinal(ClassNumeric)
}

func (p Profiles) namesWithFinal(class Class) []string {
	var names []string
	for _, cp := range p {
		if cp.Final == class {
			names = append(names, cp.Name)
		}
	}
	return names
}

// OverrideSet holds user classification directives.
// Precedence: ForceExclude > ForceIncludeNumeric > auto-detection.
type OverrideSet struct {
	ForceIncludeNumeric map[string]bool
	ForceExclude        map[string]bool
}

// NewOverrideSet builds an OverrideSet from two name lists.
// Blank names are ignored.
func NewOverrideSet(include, exclude []string) OverrideSet {
	return OverrideSet{
		ForceIncludeNumeric: toSet(include),
		ForceExclude:        toSet(exclude),
	}
}

// IsZero reports whether the set holds no directives.
func (o OverrideSet) IsZero() bool {
	return len(o.ForceIncludeNumeric) == 0 && len(o.ForceExclude) == 0
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			set[n] = true
		}
	}
	return set
}

// GroupTotal is one row of an aggregation.
type GroupTotal struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
	Rows  int     `json:"rows"`
}
