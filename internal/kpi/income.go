package kpi

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

// Labels emitted by the pay stub, tax and utility calculators. They are read
// back by the scorer, so they are part of the stored format.
const (
	PaystubRecent = "Recent paystub"
	PaystubOld    = "Old paystub — request newer"

	StabilityStable   = "stable"
	StabilityVariable = "variable"
	StabilityUnknown  = "unknown"

	IncomeTypeSalaried = "Salaried (W-2)"
	IncomeTypeOther    = "Other / Unknown"
	IncomeStable       = "Stable Income"
	IncomeUnverified   = "Needs Verification"

	UtilityOnTime      = "On-time payer"
	UtilityOutstanding = "Possible late or outstanding balance"
	BillRecent         = "Recent bill"
	BillOld            = "Old bill — request latest bill"
)

const (
	stabilityTolerance = 0.10
	minMonthsInferred  = 0.5
	maxMonthsInferred  = 12
	consistentMonths   = 6
)

var (
	paystubLayouts = []string{"1/2/2006", "2006-1-2"}
	utilityLayouts = []string{"2006-1-2", "2/1/2006", "1/2/2006"}
)

// ErrStatementDate is returned when a utility bill has no usable statement date.
var ErrStatementDate = eris.New("kpi: unusable statement date")

// Paystub computes income KPIs from a pay stub. Pay stubs are assumed to be
// monthly, so the current gross is the gross monthly income.
func Paystub(doc model.IncomeProof, recencyDays int, now time.Time) model.PaystubKPIs {
	grossCur := parse.Amount(doc.GrossEarningsCurrent.String())
	grossYTD := parse.Amount(doc.GrossEarningsYTD.String())

	out := model.PaystubKPIs{
		GrossMonthlyIncome: parse.Round(grossCur, 2),
		TotalDeductions:    parse.Round(parse.Amount(doc.TotalDeductionsCurrent.String()), 2),
		RecencyCheck:       PaystubOld,
		StabilityFlag:      StabilityUnknown,
	}

	if paid, ok := parse.DateWithLayouts(doc.PayDate.String(), paystubLayouts...); ok {
		days := parse.DaysBetween(paid, now)
		out.RecencyDays = &days
		if days <= recencyDays {
			out.RecencyCheck = PaystubRecent
		}
	}

	// Very new hires (under half a month of YTD) stay "unknown".
	if grossYTD > 0 && grossCur > 0 {
		monthsInferred := grossYTD / grossCur
		if monthsInferred >= minMonthsInferred && monthsInferred <= maxMonthsInferred {
			ytdAvg := grossYTD / monthsInferred
			variance := math.Abs(grossCur-ytdAvg) / ytdAvg
			out.StabilityFlag = StabilityVariable
			if variance <= stabilityTolerance {
				out.StabilityFlag = StabilityStable
			}
		}
	}
	return out
}

// Tax computes income KPIs from a Form 1040 using a flat effective tax rate.
func Tax(doc model.TaxStatement, effectiveTaxRate float64) model.TaxKPIs {
	totalIncome := parse.Amount(doc.TotalIncome.String())
	wages := parse.Amount(doc.TotalWages.String())
	taxable := parse.Amount(doc.TaxableIncome.String())

	var grossMonthly float64
	if totalIncome > 0 {
		grossMonthly = totalIncome / 12
	}
	out := model.TaxKPIs{
		GrossMonthlyIncome:       parse.Round(grossMonthly, 2),
		EstimatedTakeHomePay:     parse.Round(grossMonthly*(1-effectiveTaxRate), 2),
		IncomeType:               IncomeTypeOther,
		IncomeStabilityIndicator: IncomeUnverified,
	}
	if wages > 0 {
		out.IncomeType = IncomeTypeSalaried
		out.IncomeStabilityIndicator = IncomeStable
	}
	if totalIncome > 0 {
		r := parse.Round(taxable/totalIncome, 2)
		out.TaxableIncomeRatio = &r
	}
	return out
}

// Utility computes payment KPIs from a utility bill. Unlike the other
// calculators it fails when the statement date is missing or unparseable.
func Utility(doc model.UtilityBill, recencyDays int, now time.Time) (model.UtilityKPIs, error) {
	stmt := doc.StatementDate.String()
	if stmt == "" {
		return model.UtilityKPIs{}, eris.Wrap(ErrStatementDate, "missing statement_date")
	}
	billed, ok := parse.DateWithLayouts(stmt, utilityLayouts...)
	if !ok {
		return model.UtilityKPIs{}, eris.Wrapf(ErrStatementDate, "unrecognized format %q", stmt)
	}

	out := model.UtilityKPIs{
		PaymentAmount:    parse.Round(parse.Amount(doc.TotalAmountDue.String()), 2),
		PaymentStability: UtilityOutstanding,
		BillingRecency:   BillOld,
		Consistency:      "No",
	}
	if parse.Amount(doc.CurrentUnpaidBalance.String()) == 0 && parse.Amount(doc.AmountDuePreviousStatement.String()) == 0 {
		out.PaymentStability = UtilityOnTime
	}
	if parse.DaysBetween(billed, now) <= recencyDays {
		out.BillingRecency = BillRecent
	}

	positive := 0
	for _, e := range doc.MonthlyBillingHistory {
		if parse.Amount(e.EnergyAmount.String()) > 0 {
			positive++
		}
	}
	if positive > consistentMonths {
		out.Consistency = "Yes"
	}
	return out, nil
}
