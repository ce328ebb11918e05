// Package workbook reads sheets out of .xlsx files and writes roll-up
// exports, using excelize.
//
// The first row of a sheet is its header row. Numeric cells become number
// cells; text cells keep their text so leading zeros survive; cells whose
// number format renders them as something other than a number (dates,
// times) keep their display text.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/rollup/internal/core"
)

// DefaultExportSheet is the name of the totals sheet in exports.
const DefaultExportSheet = "Student Counts"

// CleanedSheet is the name of the optional normalized-data sheet.
const CleanedSheet = "Cleaned Data"

// Adapter implements core.WorkbookReader and core.WorkbookWriter.
type Adapter struct {
	exportSheet string
}

// New returns an Adapter that writes totals to exportSheet.
func New(exportSheet string) *Adapter {
	if strings.TrimSpace(exportSheet) == "" {
		exportSheet = DefaultExportSheet
	}
	return &Adapter{exportSheet: exportSheet}
}

var (
	_ core.WorkbookReader = (*Adapter)(nil)
	_ core.WorkbookWriter = (*Adapter)(nil)
)

func open(data []byte) (*excelize.File, error) {
	if len(data) == 0 {
		return nil, &core.UnreadableWorkbookError{Err: core.ErrEmptyFile}
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &core.UnreadableWorkbookError{Err: err}
	}
	return f, nil
}

// SheetNames lists the sheets of a workbook in tab order.
func (a *Adapter) SheetNames(data []byte) ([]string, error) {
	f, err := open(data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return f.GetSheetList(), nil
}

// Load reads one sheet into a RawTable. The header is the first row, then
// skip rows are dropped before the data starts.
func (a *Adapter) Load(data []byte, sheet string, skip int) (*core.RawTable, error) {
	if skip < 0 {
		return nil, &core.ConfigurationError{Reason: core.ReasonNegativeSkip}
	}

	f, err := open(data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	name, ok := findSheet(f.GetSheetList(), sheet)
	if !ok {
		return nil, &core.SheetNotFoundError{Sheet: sheet, Available: f.GetSheetList()}
	}

	display, err := f.GetRows(name)
	if err != nil {
		return nil, &core.UnreadableWorkbookError{Err: fmt.Errorf("read sheet %q: %w", name, err)}
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &core.UnreadableWorkbookError{Err: fmt.Errorf("read sheet %q: %w", name, err)}
	}
	if len(display) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", name, core.ErrNoHeaderRow)
	}

	width := 0
	for _, row := range display {
		width = max(width, len(row))
	}
	columns := headerNames(display[0], width)
	if len(columns) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", name, core.ErrNoHeaderRow)
	}

	table := &core.RawTable{Columns: columns}
	for r := 1 + skip; r < len(display); r++ {
		row := make(core.Row, len(columns))
		blank := true
		for c, col := range columns {
			cell := readCell(f, name, r, c, at(display, r, c), at(raw, r, c))
			if !cell.IsEmpty() {
				blank = false
			}
			row[col] = cell
		}
		if !blank {
			table.Rows = append(table.Rows, row)
		}
	}

	return table, nil
}

// findSheet matches a sheet by exact name, then by trimmed case-insensitive name.
func findSheet(sheets []string, want string) (string, bool) {
	for _, s := range sheets {
		if s == want {
			return s, true
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(want)) {
			return s, true
		}
	}
	return "", false
}

// headerNames builds unique column names from the header row.
// Blank headers become "Unnamed: <i>"; repeats get ".1", ".2", ... suffixes.
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]bool, width)
	for i := range names {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base, n := name, 0
		for seen[name] {
			n++
			name = base + "." + strconv.Itoa(n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func at(rows [][]string, r, c int) string {
	if r >= len(rows) || c >= len(rows[r]) {
		return ""
	}
	return rows[r][c]
}

// readCell picks the Cell kind for one value. r and c are zero-based.
func readCell(f *excelize.File, sheet string, r, c int, display, raw string) core.Cell {
	if strings.TrimSpace(display) == "" && strings.TrimSpace(raw) == "" {
		return core.EmptyCell()
	}

	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return core.StringCell(display)
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return core.StringCell(display)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeBool, excelize.CellTypeError:
		return core.StringCell(display)
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return core.StringCell(display)
	}
	// A number format that shows something other than a number (dates) keeps
	// its text, and so does zero padding such as ZIP formats.
	if display != raw {
		if _, ok := core.ParseNumeric(display); !ok || zeroPadded(display) {
			return core.StringCell(display)
		}
	}
	return core.NumberCell(num)
}

// zeroPadded reports whether s shows a leading zero before another digit.
func zeroPadded(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}

// WriteResult serializes a result: a totals sheet ranked by total, plus a
// sheet with the normalized table when cleaned is not nil.
func (a *Adapter) WriteResult(result *core.AggregationResult, cleaned *core.CleanedTable) ([]byte, error) {
	if result == nil {
		return nil, errors.New("write result: nil result")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), a.exportSheet); err != nil {
		return nil, fmt.Errorf("name export sheet: %w", err)
	}

	header := []interface{}{result.GroupColumn, "Total " + result.ValueColumn}
	if err := f.SetSheetRow(a.exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, g := range result.SortedByTotal() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{g.Key, g.Total}
		if err := f.SetSheetRow(a.exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write group %q: %w", g.Key, err)
		}
	}

	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(a.exportSheet, "A1", "B1", bold)
	}

	if cleaned != nil {
		if err := writeCleaned(f, cleaned); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCleaned(f *excelize.File, t *core.CleanedTable) error {
	if _, err := f.NewSheet(CleanedSheet); err != nil {
		return fmt.Errorf("create cleaned sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(CleanedSheet, "A1", &header); err != nil {
		return fmt.Errorf("write cleaned header: %w", err)
	}

	for r := 0; r < t.Len(); r++ {
		row := make([]interface{}, len(t.Columns))
		for i := range t.Columns {
			col := &t.Columns[i]
			if col.Class == core.ClassNumeric {
				row[i] = col.Numbers[r]
			} else {
				row[i] = col.Texts[r]
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CleanedSheet, cell, &row); err != nil {
			return fmt.Errorf("write cleaned row %d: %w", r+1, err)
		}
	}
	return nil
}
