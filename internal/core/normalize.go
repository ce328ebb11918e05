package core

// normalize.go turns a RawTable into a CleanedTable.
//
// Rules per column, by final class:
//   - Numeric: strip currency/percent/separators and parse; empty or
//     unparsable cells become 0.
//   - Text: trim; empty or missing cells become "Empty"; known category
//     spellings are standardized.
//
// Recoveries are silent: a blank cell in a count column means zero and a
// blank school type is its own group.

import "strings"

// EmptyText is the value written into missing text cells.
const EmptyText = "Empty"

// CleanedColumn is one normalized column. Exactly one of Numbers or Texts is
// populated, according to Class.
type CleanedColumn struct {
	Name    string
	Class   Class
	Numbers []float64
	Texts   []string
}

// CleanedTable has the same shape as the RawTable it came from, but every
// cell holds a number (Numeric columns) or a non-empty string (Text columns).
type CleanedTable struct {
	Columns []CleanedColumn
	rows    int
	index   map[string]int
}

// Len returns the number of rows.
func (t *CleanedTable) Len() int { return t.rows }

// Column returns a column by name.
func (t *CleanedTable) Column(name string) (*CleanedColumn, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.Columns[i], true
}

// Names returns the column names in order.
func (t *CleanedTable) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Cell returns the cell at row i of a column as a Cell value.
func (c *CleanedColumn) Cell(i int) Cell {
	if c.Class == ClassNumeric {
		return NumberCell(c.Numbers[i])
	}
	return StringCell(c.Texts[i])
}

// Raw converts the cleaned table back into a RawTable.
// Normalizing the result with the same profiles yields an identical table.
func (t *CleanedTable) Raw() *RawTable {
	raw := &RawTable{
		Columns: t.Names(),
		Rows:    make([]Row, t.rows),
	}
	for i := range raw.Rows {
		row := make(Row, len(t.Columns))
		for j := range t.Columns {
			col := &t.Columns[j]
			row[col.Name] = col.Cell(i)
		}
		raw.Rows[i] = row
	}
	return raw
}

// Normalize cleans every cell of raw according to its column's final class.
// Columns without a profile are treated as Text. raw is not modified.
func Normalize(raw *RawTable, profiles Profiles, std *Standardizer) *CleanedTable {
	out := &CleanedTable{
		Columns: make([]CleanedColumn, len(raw.Columns)),
		rows:    raw.Len(),
		index:   make(map[string]int, len(raw.Columns)),
	}

	for i, name := range raw.Columns {
		class := ClassText
		if p, ok := profiles.Lookup(name); ok && p.Final == ClassNumeric {
			class = ClassNumeric
		}

		col := CleanedColumn{Name: name, Class: class}
		cells := raw.Values(name)
		if class == ClassNumeric {
			col.Numbers = make([]float64, len(cells))
			for r, c := range cells {
				col.Numbers[r] = NormalizeNumber(c)
			}
		} else {
			col.Texts = make([]string, len(cells))
			for r, c := range cells {
				col.Texts[r] = NormalizeText(c, std)
			}
		}

		out.Columns[i] = col
		out.index[name] = i
	}

	return out
}

// NormalizeNumber returns the numeric value of a cell, or 0 when the cell is
// empty or cannot be parsed.
func NormalizeNumber(c Cell) float64 {
	if f, ok := CellNumber(c); ok {
		return f
	}
	return 0
}

// NormalizeText trims a cell, fills missing values with EmptyText and applies
// the categorical lookup.
func NormalizeText(c Cell, std *Standardizer) string {
	v := strings.TrimSpace(CleanCell(c.String()))
	if v == "" {
		return EmptyText
	}
	return std.Apply(v)
}
