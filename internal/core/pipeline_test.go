package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schoolTable() *RawTable {
	return table(
		[]string{"School Name", "School Type", "Zip", "Students", "Pending"},
		strs("Lincoln", "St. Mary", "Oak Grove", "Harbor", "Bayside"),
		strs("Public", "PRVT", "Charter School", " Public ", ""),
		strs("33130", "33131", "33132", "33133", "33134"),
		strs("1,200", "85", "$300", "", "40"),
		nums(3, 0, 1, 2, 5),
	)
}

func TestRun(t *testing.T) {
	report, err := Run(schoolTable(), Options{GroupBy: "School Type", Value: "Students"})
	require.NoError(t, err)

	zip, _ := report.Profiles.Lookup("Zip")
	assert.Equal(t, ClassZipCode, zip.Detected)
	assert.Equal(t, ClassText, zip.Final)

	assert.Equal(t, []GroupTotal{
		{Key: "Public", Total: 1200, Rows: 2},
		{Key: PrivateSchoolLabel, Total: 85, Rows: 1},
		{Key: "Charter", Total: 300, Rows: 1},
		{Key: EmptyText, Total: 40, Rows: 1},
	}, report.Result.Groups)
	assert.Empty(t, report.UnknownOverrides)
}

func TestRun_TypedAmountsAreValueCandidates(t *testing.T) {
	raw := table(
		[]string{"School Type", "Budget"},
		strs("Public", "Charter", "PRVT"),
		nums(25000, 48000, 91000),
	)

	report, err := Run(raw, Options{GroupBy: "School Type", Value: "Budget"})
	require.NoError(t, err)

	budget, ok := report.Profiles.Lookup("Budget")
	require.True(t, ok)
	assert.Equal(t, ClassNumeric, budget.Detected)
	assert.Equal(t, []string{"Budget"}, report.Profiles.NumericColumns())
	assert.InDelta(t, 164000, report.Result.GrandTotal(), 1e-9)
}

func TestRun_OverridesFlowThrough(t *testing.T) {
	report, err := Run(schoolTable(), Options{
		Overrides: NewOverrideSet([]string{"Zip", "Region"}, nil),
		GroupBy:   "School Type",
		Value:     "Zip",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Region"}, report.UnknownOverrides)
	g, ok := report.Result.Lookup("Public")
	require.True(t, ok)
	assert.InDelta(t, 33130.0+33133.0, g.Total, 1e-9)
}

func TestRun_ConfigurationErrorKeepsProfiles(t *testing.T) {
	report, err := Run(schoolTable(), Options{GroupBy: "Students", Value: "Pending"})

	require.True(t, IsConfigurationError(err))
	require.NotNil(t, report)
	assert.Nil(t, report.Result)
	assert.Len(t, report.Profiles, 5)
	assert.Equal(t, 5, report.Cleaned.Len())
}

func TestRun_DoesNotModifyInput(t *testing.T) {
	raw := schoolTable()
	_, err := Run(raw, Options{GroupBy: "School Type", Value: "Students"})
	require.NoError(t, err)

	assert.Equal(t, "PRVT", raw.Rows[1]["School Type"].Str)
	assert.Equal(t, KindEmpty, raw.Rows[4]["School Type"].Kind)
}

func TestDefaultSelection(t *testing.T) {
	tests := []struct {
		name       string
		profiles   Profiles
		groupHints []string
		valueHints []string
		want       Selection
	}{
		{
			name: "hints pick the school columns",
			profiles: Profiles{
				{Name: "School Name", Final: ClassText},
				{Name: "School Type", Final: ClassText},
				{Name: "Enrollment", Final: ClassNumeric},
				{Name: "Students", Final: ClassNumeric},
			},
			want: Selection{GroupBy: "School Type", Value: "Students"},
		},
		{
			name: "last hint match wins",
			profiles: Profiles{
				{Name: "Type", Final: ClassText},
				{Name: "Students", Final: ClassNumeric},
				{Name: "Pending Students", Final: ClassNumeric},
			},
			want: Selection{GroupBy: "Type", Value: "Pending Students"},
		},
		{
			name: "no match falls back to first candidate",
			profiles: Profiles{
				{Name: "Region", Final: ClassText},
				{Name: "City", Final: ClassText},
				{Name: "Amount", Final: ClassNumeric},
			},
			want: Selection{GroupBy: "Region", Value: "Amount"},
		},
		{
			name: "custom hints",
			profiles: Profiles{
				{Name: "Region", Final: ClassText},
				{Name: "City", Final: ClassText},
				{Name: "Amount", Final: ClassNumeric},
			},
			groupHints: []string{"city"},
			valueHints: []string{},
			want:       Selection{GroupBy: "City", Value: "Amount"},
		},
		{
			name:     "no candidates",
			profiles: Profiles{{Name: "Notes", Final: ClassText}},
			want:     Selection{GroupBy: "Notes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultSelection(tt.profiles, tt.groupHints, tt.valueHints))
		})
	}
}
