package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// BankStatementKPIs summarises cash flow from a bank statement.
type BankStatementKPIs struct {
	AverageMonthlyTransactionCount float64  `json:"average_monthly_transaction_count"`
	MonthlyAverageDebit            float64  `json:"monthly_average_debit"`
	MonthlyAverageCredit           float64  `json:"monthly_average_credit"`
	DebitCreditRatio               *float64 `json:"average_monthly_debit_credit_ratio"`
	AverageMonthlyBalance          float64  `json:"average_monthly_balance"`
}

// CreditReportKPIs is the nested KPI set derived from a credit report.
type CreditReportKPIs struct {
	RepresentativeCreditScore *int               `json:"representative_credit_score"`
	SecondaryScore            *int               `json:"secondary_score"`
	CreditScoreBand           string             `json:"credit_score_band"`
	CreditHistory             CreditHistory      `json:"credit_history"`
	CreditAge                 CreditAge          `json:"credit_age"`
	Delinquency               DelinquencyProfile `json:"delinquency_profile"`
	NegativeEvents            NegativeEvents     `json:"negative_events"`
	Inquiries                 InquiryProfile     `json:"inquiry_profile"`
	Exposure                  ExposureProfile    `json:"exposure_profile"`
	Employment                EmploymentProfile  `json:"employment_profile"`
}

// CreditHistory counts tradelines by kind.
type CreditHistory struct {
	TotalAccounts       *int   `json:"total_accounts"`
	OpenTradelines      *int   `json:"open_tradelines"`
	RevolvingAccounts   int    `json:"revolving_accounts"`
	InstallmentAccounts int    `json:"installment_accounts"`
	MortgageAccounts    int    `json:"mortgage_accounts"`
	CreditMixStrength   string `json:"credit_mix_strength"`
}

// CreditAge describes how long the applicant has held credit.
type CreditAge struct {
	AverageAccountAgeMonths    *int     `json:"average_account_age_months"`
	FileAgeYears               *float64 `json:"file_age_years"`
	OldestAccountOpenDate      *string  `json:"oldest_account_open_date"`
	RecentAccountOpenMonthsAgo *int     `json:"recent_account_open_months_ago"`
}

// DelinquencyProfile counts late payments.
type DelinquencyProfile struct {
	ThirtyDay              int    `json:"30_day_delinquencies"`
	SixtyDay               int    `json:"60_day_delinquencies"`
	NinetyDay              int    `json:"90_day_delinquencies"`
	HasRecentDelinquency   bool   `json:"has_recent_delinquency"`
	OverallDelinquencyRisk string `json:"overall_delinquency_risk"`
}

// NegativeEvents counts major derogatory marks.
type NegativeEvents struct {
	Bankruptcies               int  `json:"bankruptcies"`
	Collections                int  `json:"collections"`
	IsCleanFromMajorDerogatory bool `json:"is_clean_from_major_derogatory"`
}

// InquiryProfile bands recent hard inquiries.
type InquiryProfile struct {
	RecentHardInquiries180d *int   `json:"recent_hard_inquiries_180d"`
	InquiryRisk             string `json:"inquiry_risk"`
}

// ExposureProfile carries outstanding principal figures.
type ExposureProfile struct {
	MaximumTotalPrincipal   *float64 `json:"maximum_total_principal"`
	CurrentPrincipalBalance *float64 `json:"current_principal_balance"`
}

// EmploymentProfile carries the employment section of the credit report.
type EmploymentProfile struct {
	EmploymentStatus       string `json:"employment_status"`
	EmploymentTenureMonths *int   `json:"employment_tenure_months"`
}

// PaystubKPIs is derived from a single pay stub.
type PaystubKPIs struct {
	GrossMonthlyIncome float64 `json:"Gross Monthly Income"`
	RecencyDays        *int    `json:"paystub_recency_days"`
	TotalDeductions    float64 `json:"total_deductions"`
	RecencyCheck       string  `json:"recency_check"`
	StabilityFlag      string  `json:"stability_flag"`
}

// TaxKPIs is derived from a Form 1040.
type TaxKPIs struct {
	GrossMonthlyIncome       float64  `json:"Gross Monthly Income"`
	EstimatedTakeHomePay     float64  `json:"Estimated Take-Home Pay"`
	IncomeType               string   `json:"Income Type"`
	IncomeStabilityIndicator string   `json:"Income Stability Indicator"`
	TaxableIncomeRatio       *float64 `json:"Taxable-Income Ratio"`
}

// UtilityKPIs is derived from a utility bill.
type UtilityKPIs struct {
	PaymentAmount    float64 `json:"Utility Payment Amount"`
	PaymentStability string  `json:"Utility Payment Stability Indicator"`
	BillingRecency   string  `json:"Billing Recency Check"`
	Consistency      string  `json:"Consistency"`
}

// IdentityKPIs is derived from the passport data page.
type IdentityKPIs struct {
	NamePresent          bool   `json:"identity_name_present"`
	PassportExpired      *bool  `json:"passport_expired"`
	PassportDaysToExpiry *int   `json:"passport_days_to_expiry"`
	ApplicantAgeYears    *int   `json:"applicant_age_years"`
	IssuingCountry       string `json:"issuing_country"`
}

// KPIBundle holds at most one KPI set per document type for a case.
// DebtToIncome is not derived from any document; callers supply it from the
// loan application when known.
type KPIBundle struct {
	DebtToIncome *float64 `json:"debt_to_income_ratio,omitempty"`


	Credit   *CreditReportKPIs  `json:"credit_report,omitempty"`
	Bank     *BankStatementKPIs `json:"bank_statement,omitempty"`
	Identity *IdentityKPIs      `json:"identity,omitempty"`
	Paystub  *PaystubKPIs       `json:"paystub,omitempty"`
	Tax      *TaxKPIs           `json:"tax,omitempty"`
	Utility  *UtilityKPIs       `json:"utility,omitempty"`
}

// Set decodes a stored KPI artifact into the slot for dt.
func (b *KPIBundle) Set(dt DocumentType, raw []byte) error {
	var err error
	switch dt {
	case DocCreditReport:
		b.Credit = &CreditReportKPIs{}
		err = json.Unmarshal(raw, b.Credit)
	case DocBankStatement:
		b.Bank = &BankStatementKPIs{}
		err = json.Unmarshal(raw, b.Bank)
	case DocIdentity:
		b.Identity = &IdentityKPIs{}
		err = json.Unmarshal(raw, b.Identity)
	case DocIncomeProof:
		b.Paystub = &PaystubKPIs{}
		err = json.Unmarshal(raw, b.Paystub)
	case DocTaxStatement:
		b.Tax = &TaxKPIs{}
		err = json.Unmarshal(raw, b.Tax)
	case DocUtilityBill:
		b.Utility = &UtilityKPIs{}
		err = json.Unmarshal(raw, b.Utility)
	default:
		return eris.Wrapf(ErrUnknownDocumentType, "%q", dt)
	}
	if err != nil {
		return eris.Wrapf(err, "model: decode %s kpis", dt)
	}
	return nil
}

// Part returns the KPI set stored for dt, or nil.
func (b *KPIBundle) Part(dt DocumentType) any {
	switch dt {
	case DocCreditReport:
		if b.Credit != nil {
			return b.Credit
		}
	case DocBankStatement:
		if b.Bank != nil {
			return b.Bank
		}
	case DocIdentity:
		if b.Identity != nil {
			return b.Identity
		}
	case DocIncomeProof:
		if b.Paystub != nil {
			return b.Paystub
		}
	case DocTaxStatement:
		if b.Tax != nil {
			return b.Tax
		}
	case DocUtilityBill:
		if b.Utility != nil {
			return b.Utility
		}
	}
	return nil
}

// Present lists the document types that have a KPI set, in precedence order.
func (b *KPIBundle) Present() []DocumentType {
	var out []DocumentType
	for _, dt := range DocumentTypes {
		if b.Part(dt) != nil {
			out = append(out, dt)
		}
	}
	return out
}
