package workbook

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/rollup/internal/core"
)

// buildWorkbook writes each sheet's rows starting at A1 and returns the bytes.
// Sheets are created in the order given.
func buildWorkbook(t *testing.T, sheets []string, rows map[string][][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheets[0]))
	for _, name := range sheets[1:] {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	for name, data := range rows {
		for i, row := range data {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func schoolRows() [][]interface{} {
	return [][]interface{}{
		{"School Name", "School Type", "Zip", "Students"},
		{"(notes row)"},
		{"(units row)"},
		{"Lincoln", "Public", "00501", 1200},
		{"St. Mary", "PRVT", "33131", 85.5},
		{},
		{"Harbor", " Public ", "33133", "$300"},
	}
}

func TestAdapter_SheetNames(t *testing.T) {
	data := buildWorkbook(t, []string{"Summary", "School Info"}, map[string][][]interface{}{
		"School Info": schoolRows(),
	})

	sheets, err := New("").SheetNames(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", "School Info"}, sheets)
}

func TestAdapter_Load(t *testing.T) {
	data := buildWorkbook(t, []string{"School Info"}, map[string][][]interface{}{
		"School Info": schoolRows(),
	})

	table, err := New("").Load(data, "School Info", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"School Name", "School Type", "Zip", "Students"}, table.Columns)
	require.Equal(t, 3, table.Len(), "blank rows are dropped")

	first := table.Rows[0]
	assert.Equal(t, core.StringCell("Lincoln"), first["School Name"])
	assert.Equal(t, core.StringCell("00501"), first["Zip"], "text keeps leading zeros")
	assert.Equal(t, core.NumberCell(1200), first["Students"])

	assert.Equal(t, core.NumberCell(85.5), table.Rows[1]["Students"])
	assert.Equal(t, core.StringCell("$300"), table.Rows[2]["Students"])
	assert.Equal(t, core.StringCell(" Public "), table.Rows[2]["School Type"])
}

func TestAdapter_LoadSkipCounts(t *testing.T) {
	data := buildWorkbook(t, []string{"S"}, map[string][][]interface{}{
		"S": {
			{"Type", "Count"},
			{"A", 1},
			{"B", 2},
			{"C", 3},
		},
	})
	a := New("")

	tests := []struct {
		skip     int
		wantRows int
	}{
		{skip: 0, wantRows: 3},
		{skip: 2, wantRows: 1},
		{skip: 3, wantRows: 0},
		{skip: 10, wantRows: 0},
	}
	for _, tt := range tests {
		table, err := a.Load(data, "S", tt.skip)
		require.NoError(t, err)
		assert.Equal(t, tt.wantRows, table.Len(), "skip %d", tt.skip)
		assert.Equal(t, []string{"Type", "Count"}, table.Columns)
	}
}

func TestAdapter_LoadHeaderNames(t *testing.T) {
	data := buildWorkbook(t, []string{"S"}, map[string][][]interface{}{
		"S": {
			{"Name", "", "Name", "Name"},
			{"a", "b", "c", "d", "e"},
		},
	})

	table, err := New("").Load(data, "S", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Unnamed: 1", "Name.1", "Name.2", "Unnamed: 4"}, table.Columns)
	assert.Equal(t, core.StringCell("e"), table.Rows[0]["Unnamed: 4"])
}

func TestAdapter_LoadDateCellsKeepText(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Opened", "Count", "Zip"}))
	require.NoError(t, f.SetCellValue(sheet, "A2", 45306))
	require.NoError(t, f.SetCellValue(sheet, "B2", 7))
	require.NoError(t, f.SetCellValue(sheet, "C2", 2134))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A2", "A2", style))
	zipFmt := "00000"
	zipStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &zipFmt})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "C2", "C2", zipStyle))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	table, err := New("").Load(buf.Bytes(), sheet, 0)
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, core.KindString, table.Rows[0]["Opened"].Kind)
	assert.Equal(t, core.NumberCell(7), table.Rows[0]["Count"])
	assert.Equal(t, core.StringCell("02134"), table.Rows[0]["Zip"], "zero-padded format keeps leading zero")
}

func TestAdapter_LoadErrors(t *testing.T) {
	data := buildWorkbook(t, []string{"School Info", "Empty"}, map[string][][]interface{}{
		"School Info": schoolRows(),
	})
	a := New("")

	t.Run("sheet not found", func(t *testing.T) {
		_, err := a.Load(data, "Schools", 2)
		var sheetErr *core.SheetNotFoundError
		require.ErrorAs(t, err, &sheetErr)
		assert.Equal(t, "Schools", sheetErr.Sheet)
		assert.Equal(t, []string{"School Info", "Empty"}, sheetErr.Available)
	})

	t.Run("sheet matched case-insensitively", func(t *testing.T) {
		table, err := a.Load(data, "school info", 2)
		require.NoError(t, err)
		assert.Equal(t, 3, table.Len())
	})

	t.Run("empty sheet", func(t *testing.T) {
		_, err := a.Load(data, "Empty", 0)
		assert.ErrorIs(t, err, core.ErrNoHeaderRow)
	})

	t.Run("negative skip", func(t *testing.T) {
		_, err := a.Load(data, "School Info", -1)
		assert.True(t, core.IsConfigurationError(err))
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := a.Load([]byte("School Name,Students\nLincoln,10\n"), "School Info", 0)
		var ue *core.UnreadableWorkbookError
		assert.ErrorAs(t, err, &ue)

		_, err = a.SheetNames(nil)
		assert.ErrorAs(t, err, &ue)
	})
}

func TestAdapter_WriteResult(t *testing.T) {
	result := &core.AggregationResult{
		GroupColumn: "School Type",
		ValueColumn: "Students",
		Groups: []core.GroupTotal{
			{Key: "Charter", Total: 300, Rows: 1},
			{Key: "Public", Total: 1200.5, Rows: 2},
			{Key: core.EmptyText, Total: 40, Rows: 1},
		},
	}

	data, err := New("Totals").WriteResult(result, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Totals"}, f.GetSheetList())
	rows, err := f.GetRows("Totals")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"School Type", "Total Students"},
		{"Public", "1200.5"},
		{"Charter", "300"},
		{core.EmptyText, "40"},
	}, rows)
}

func TestAdapter_WriteResultWithCleanedSheet(t *testing.T) {
	raw := &core.RawTable{
		Columns: []string{"Type", "Students"},
		Rows: []core.Row{
			{"Type": core.StringCell("PRVT"), "Students": core.StringCell("$10")},
			{"Type": core.EmptyCell(), "Students": core.NumberCell(5)},
		},
	}
	report, err := core.Run(raw, core.Options{GroupBy: "Type", Value: "Students"})
	require.NoError(t, err)

	data, err := New("").WriteResult(report.Result, report.Cleaned)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{DefaultExportSheet, CleanedSheet}, f.GetSheetList())
	rows, err := f.GetRows(CleanedSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Type", "Students"},
		{core.PrivateSchoolLabel, "10"},
		{core.EmptyText, "5"},
	}, rows)
}

func TestAdapter_WriteResultNil(t *testing.T) {
	_, err := New("").WriteResult(nil, nil)
	assert.Error(t, err)
}

// The export reads back through Load as the same totals.
func TestAdapter_RoundTrip(t *testing.T) {
	a := New("")
	result := &core.AggregationResult{
		GroupColumn: "Type",
		ValueColumn: "Count",
		Groups:      []core.GroupTotal{{Key: "A", Total: 2}, {Key: "B", Total: 7.25}},
	}
	data, err := a.WriteResult(result, nil)
	require.NoError(t, err)

	table, err := a.Load(data, DefaultExportSheet, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Type", "Total Count"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, core.StringCell("B"), table.Rows[0]["Type"])
	assert.Equal(t, core.NumberCell(7.25), table.Rows[0]["Total Count"])
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
