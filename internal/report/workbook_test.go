package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/underwriting-cli/internal/model"
)

func f64(v float64) *float64 { return &v }

func sampleEvaluations() []model.Evaluation {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return []model.Evaluation{
		{
			ID:       "ev-1",
			CaseID:   "case-1",
			Decision: model.Decision{Status: model.StatusApproved, Reason: "Strong financial and credit indicators", Score: 72.5},
			FinalScore: model.FinalScore{
				SubScores:          model.SubScores{Income: f64(80), Credit: f64(90)},
				FinalWeightedScore: f64(72.5),
			},
			TextFraud: model.TextFraudResult{Type: model.TextFraudAuthentic, Text: []string{}},
			ImageFraud: &model.FraudAnalysisResult{
				IsAuthentic:     true,
				ConfidenceScore: 97.1,
				RiskLevel:       model.RiskMinimal,
				Flags:           []string{"Size anomaly in Eagle: area ratio 0.40x vs reference"},
			},
			Collisions: []string{"Gross Monthly Income <- tax-statements"},
			CreatedAt:  at,
		},
		{
			ID:        "ev-2",
			CaseID:    "case-2",
			Decision:  model.Decision{Status: model.StatusManualReview, Reason: "text consistency failure"},
			TextFraud: model.TextFraudResult{Type: model.TextFraudWarning, Text: []string{"Tax document", "Utility bills"}},
			CreatedAt: at.Add(time.Hour),
		},
	}
}

// readSheet returns every row of the named sheet as strings.
func readSheet(t *testing.T, f *xlsx.File, name string) [][]string {
	t.Helper()
	sheet, ok := f.Sheet[name]
	require.True(t, ok, "sheet %q", name)
	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	require.NoError(t, Save(path, sampleEvaluations()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, SheetEvaluations, f.Sheets[0].Name)

	evRows := readSheet(t, f, SheetEvaluations)
	require.Len(t, evRows, 3)
	assert.Equal(t, evaluationHeader, evRows[0])
	assert.Equal(t, []string{
		"ev-1", "case-1", "2025-03-01 09:30:00", "approved", "Strong financial and credit indicators",
		"72.5", "72.5", "Authentic", "", "MINIMAL", "97.1", "Gross Monthly Income <- tax-statements",
	}, evRows[1])
	assert.Equal(t, "manual_review", evRows[2][3])
	assert.Equal(t, "", evRows[2][6], "missing final score stays blank")
	assert.Equal(t, "Tax document; Utility bills", evRows[2][8])

	subRows := readSheet(t, f, SheetSubScores)
	require.Len(t, subRows, 3)
	assert.Equal(t, []string{"ev-1", "case-1", "80", "90", "", "", "", "", "", ""}, subRows[1])

	flagRows := readSheet(t, f, SheetFlags)
	require.Len(t, flagRows, 2)
	assert.Equal(t, []string{"ev-1", "case-1", "Size anomaly in Eagle: area ratio 0.40x vs reference"}, flagRows[1])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	rows := readSheet(t, f, SheetEvaluations)
	assert.Len(t, rows, 1, "header only")
}

func TestSave_BadPath(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "missing", "dir", "a.xlsx"), sampleEvaluations())
	assert.Error(t, err)
}
