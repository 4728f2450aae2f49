// Package report exports evaluation records as an XLSX audit workbook.
package report

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// Sheet names in the order they are written.
const (
	SheetEvaluations = "Evaluations"
	SheetSubScores   = "Sub-scores"
	SheetFlags       = "Passport flags"
)

var evaluationHeader = []string{
	"Evaluation", "Case", "Created", "Status", "Reason", "Decision score",
	"Final weighted score", "Name check", "Mismatched documents",
	"Passport risk", "Passport confidence", "KPI collisions",
}

var subScoreHeader = []string{
	"Evaluation", "Case", "Income", "Credit score", "Delinquency risk", "DTI",
	"Liquidity", "Income consistency", "Employment stability", "Residency stability",
}

var flagHeader = []string{"Evaluation", "Case", "Flag"}

// Build lays out evs in a new workbook.
func Build(evs []model.Evaluation) (*xlsx.File, error) {
	f := xlsx.NewFile()

	evSheet, err := f.AddSheet(SheetEvaluations)
	if err != nil {
		return nil, eris.Wrap(err, "report: add evaluations sheet")
	}
	subSheet, err := f.AddSheet(SheetSubScores)
	if err != nil {
		return nil, eris.Wrap(err, "report: add sub-scores sheet")
	}
	flagSheet, err := f.AddSheet(SheetFlags)
	if err != nil {
		return nil, eris.Wrap(err, "report: add flags sheet")
	}

	addHeader(evSheet, evaluationHeader)
	addHeader(subSheet, subScoreHeader)
	addHeader(flagSheet, flagHeader)

	for _, ev := range evs {
		row := evSheet.AddRow()
		addStrings(row, ev.ID, ev.CaseID, ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			string(ev.Decision.Status), ev.Decision.Reason)
		row.AddCell().SetFloat(ev.Decision.Score)
		addOptional(row, ev.FinalScore.FinalWeightedScore)
		addStrings(row, string(ev.TextFraud.Type), strings.Join(ev.TextFraud.Text, "; "))
		if img := ev.ImageFraud; img != nil {
			addStrings(row, string(img.RiskLevel))
			row.AddCell().SetFloat(img.ConfidenceScore)
		} else {
			addStrings(row, "", "")
		}
		addStrings(row, strings.Join(ev.Collisions, "; "))

		s := ev.FinalScore.SubScores
		sub := subSheet.AddRow()
		addStrings(sub, ev.ID, ev.CaseID)
		for _, v := range []*float64{
			s.Income, s.Credit, s.DelinquencyRisk, s.DTI,
			s.Liquidity, s.IncomeConsistency, s.EmploymentStability, s.ResidencyStability,
		} {
			addOptional(sub, v)
		}

		if ev.ImageFraud != nil {
			for _, flag := range ev.ImageFraud.Flags {
				addStrings(flagSheet.AddRow(), ev.ID, ev.CaseID, flag)
			}
		}
	}
	return f, nil
}

// Write encodes the workbook for evs to w.
func Write(w io.Writer, evs []model.Evaluation) error {
	f, err := Build(evs)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "report: write workbook")
}

// Save writes the workbook for evs to path.
func Save(path string, evs []model.Evaluation) error {
	f, err := Build(evs)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, c := range cols {
		cell := row.AddCell()
		cell.SetString(c)
		cell.GetStyle().Font.Bold = true
	}
}

func addStrings(row *xlsx.Row, vals ...string) {
	for _, v := range vals {
		row.AddCell().SetString(v)
	}
}

// addOptional leaves the cell blank for a missing value.
func addOptional(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}
