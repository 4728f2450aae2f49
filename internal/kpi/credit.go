package kpi

import (
	"fmt"
	"time"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

// CreditBands are the inclusive lower bounds of the credit score bands.
type CreditBands struct {
	Excellent int `mapstructure:"excellent"`
	Good      int `mapstructure:"good"`
	Fair      int `mapstructure:"fair"`
}

// DefaultCreditBands returns the standard 750/700/650 cut-offs.
func DefaultCreditBands() CreditBands {
	return CreditBands{Excellent: 750, Good: 700, Fair: 650}
}

// Band classifies score. A nil score is "unknown".
func (b CreditBands) Band(score *int) string {
	switch {
	case score == nil:
		return "unknown"
	case *score >= b.Excellent:
		return "excellent"
	case *score >= b.Good:
		return "good"
	case *score >= b.Fair:
		return "fair"
	default:
		return "poor"
	}
}

var pulledDateLayouts = []string{"1/2/2006", "1/2/06", "2006-1-2"}

// CreditReport computes the nested credit KPI set. now is used for
// recency when the report carries no parseable file_pulled_date.
func CreditReport(doc model.CreditReport, bands CreditBands, now time.Time) model.CreditReportKPIs {
	vantage := parse.OptionalInt(doc.VantageScore.String())
	insight := parse.OptionalInt(doc.InsightScore.String())

	out := model.CreditReportKPIs{RepresentativeCreditScore: vantage}
	if vantage != nil {
		out.SecondaryScore = insight
	} else {
		out.RepresentativeCreditScore = insight
	}
	out.CreditScoreBand = bands.Band(out.RepresentativeCreditScore)

	revolving := parse.IntOrZero(parse.OptionalInt(doc.RevolvingAccounts.String()))
	installment := parse.IntOrZero(parse.OptionalInt(doc.InstallmentAccounts.String()))
	mortgage := parse.IntOrZero(parse.OptionalInt(doc.MortgageAccounts.String()))
	out.CreditHistory = model.CreditHistory{
		TotalAccounts:       parse.OptionalInt(doc.TotalAccounts.String()),
		OpenTradelines:      parse.OptionalInt(doc.CurrentTradelines.String()),
		RevolvingAccounts:   revolving,
		InstallmentAccounts: installment,
		MortgageAccounts:    mortgage,
		CreditMixStrength:   creditMix(revolving, installment, mortgage),
	}

	out.CreditAge = creditAge(doc, now)

	d30 := parse.IntOrZero(parse.OptionalInt(doc.ThirtyDayDelinquencies.String()))
	d60 := parse.IntOrZero(parse.OptionalInt(doc.SixtyDayDelinquencies.String()))
	d90 := parse.IntOrZero(parse.OptionalInt(doc.NinetyDayDelinquencies.String()))
	out.Delinquency = model.DelinquencyProfile{
		ThirtyDay:              d30,
		SixtyDay:               d60,
		NinetyDay:              d90,
		HasRecentDelinquency:   d30+d60+d90 > 0,
		OverallDelinquencyRisk: delinquencyRisk(d30, d60, d90),
	}

	bankruptcies := parse.IntOrZero(parse.OptionalInt(doc.Bankruptcies.String()))
	collections := parse.IntOrZero(parse.OptionalInt(doc.Collections.String()))
	out.NegativeEvents = model.NegativeEvents{
		Bankruptcies:               bankruptcies,
		Collections:                collections,
		IsCleanFromMajorDerogatory: bankruptcies == 0 && collections == 0,
	}

	inquiries := parse.OptionalInt(doc.ApplicationInquiries180Days.String())
	out.Inquiries = model.InquiryProfile{
		RecentHardInquiries180d: inquiries,
		InquiryRisk:             inquiryRisk(inquiries),
	}

	out.Exposure = model.ExposureProfile{
		MaximumTotalPrincipal:   parse.OptionalAmount(doc.MaximumTotalPrincipal.String()),
		CurrentPrincipalBalance: parse.OptionalAmount(doc.CurrentPrincipal.String()),
	}

	out.Employment = model.EmploymentProfile{
		EmploymentStatus:       doc.EmploymentStatus.String(),
		EmploymentTenureMonths: parse.DurationMonths(doc.TotalTimeWithEmployer.String()),
	}
	return out
}

func creditMix(revolving, installment, mortgage int) string {
	total := revolving + installment + mortgage
	switch {
	case total >= 3 && revolving >= 1 && installment >= 1:
		return "adequate_mix"
	case total >= 1:
		return "limited_mix"
	default:
		return "unknown"
	}
}

func delinquencyRisk(d30, d60, d90 int) string {
	switch {
	case d30 == 1 && d60 == 0 && d90 == 0:
		return "minor_recent_issue"
	case d60+d90 > 0 || d30 >= 2:
		return "elevated"
	default:
		return "clean"
	}
}

func inquiryRisk(n *int) string {
	switch {
	case n == nil:
		return "unknown"
	case *n >= 4:
		return "high"
	case *n >= 2:
		return "moderate"
	default:
		return "low"
	}
}

func creditAge(doc model.CreditReport, now time.Time) model.CreditAge {
	age := model.CreditAge{
		AverageAccountAgeMonths: parse.DurationMonths(doc.AverageAccountAge.String()),
	}
	if fileMonths := parse.DurationMonths(doc.AccountLength.String()); fileMonths != nil {
		y := parse.Round(float64(*fileMonths)/12, 2)
		age.FileAgeYears = &y
	}
	if m, y, ok := parse.MonthYear(doc.OldestOpenAccount.String()); ok {
		s := fmt.Sprintf("%04d-%02d", y, m)
		age.OldestAccountOpenDate = &s
	}
	if m, y, ok := parse.MonthYear(doc.MostRecentAccount.String()); ok {
		ref, found := parse.DateWithLayouts(doc.FilePulledDate.String(), pulledDateLayouts...)
		if !found {
			ref = now
		}
		opened := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		months := parse.MonthsBetween(opened, ref)
		age.RecentAccountOpenMonthsAgo = &months
	}
	return age
}
