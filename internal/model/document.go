package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// DocumentType identifies one of the six documents in a loan case.
type DocumentType string

const (
	DocBankStatement DocumentType = "bank-statements"
	DocCreditReport  DocumentType = "credit-reports"
	DocIdentity      DocumentType = "identity-documents"
	DocIncomeProof   DocumentType = "income-proof"
	DocTaxStatement  DocumentType = "tax-statements"
	DocUtilityBill   DocumentType = "utility-bills"
)

// DocumentTypes lists every document type in merge precedence order: later
// entries win when two KPI sets share a key.
var DocumentTypes = []DocumentType{
	DocCreditReport,
	DocBankStatement,
	DocIdentity,
	DocIncomeProof,
	DocTaxStatement,
	DocUtilityBill,
}

// ErrUnknownDocumentType is returned for document types outside DocumentTypes.
var ErrUnknownDocumentType = eris.New("unknown document type")

// ParseDocumentType validates s against the known document types. Underscored
// spellings ("bank_statements") are accepted.
func ParseDocumentType(s string) (DocumentType, error) {
	norm := DocumentType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	for _, dt := range DocumentTypes {
		if dt == norm {
			return dt, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownDocumentType, "%q", s)
}

// Label is the human-readable name used in fraud reports.
func (d DocumentType) Label() string {
	switch d {
	case DocBankStatement:
		return "bank statement"
	case DocCreditReport:
		return "credit report"
	case DocIdentity:
		return "identity document"
	case DocIncomeProof:
		return "income document"
	case DocTaxStatement:
		return "tax document"
	case DocUtilityBill:
		return "utility bills"
	default:
		return string(d)
	}
}

// Text is an extracted field value. Extraction output is inconsistent about
// quoting numbers, so Text accepts JSON strings, numbers, booleans and null.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return eris.Wrap(err, "model: decode text field")
		}
		*t = Text(s)
	case b[0] == '{' || b[0] == '[':
		*t = ""
	default:
		*t = Text(b)
	}
	return nil
}

// String returns the trimmed value.
func (t Text) String() string { return strings.TrimSpace(string(t)) }

// TransactionRow is one line of a bank statement's transaction table.
type TransactionRow struct {
	Date        Text `json:"date"`
	Description Text `json:"description"`
	Amount      Text `json:"amount"`
	Type        Text `json:"type"`
}

// BankStatement is the extracted bank statement.
type BankStatement struct {
	AccountHolderName   Text             `json:"account_holder_name"`
	BankName            Text             `json:"bank_name"`
	AccountNumberMasked Text             `json:"account_number_masked"`
	Transactions        []TransactionRow `json:"transactions_table"`
}

// CreditReport is the extracted consumer credit report.
type CreditReport struct {
	FullName                    Text `json:"full_name"`
	FilePulledDate              Text `json:"file_pulled_date"`
	TotalAccounts               Text `json:"total_accounts"`
	CurrentTradelines           Text `json:"current_tradelines"`
	RevolvingAccounts           Text `json:"revolving_accounts"`
	InstallmentAccounts         Text `json:"installment_accounts"`
	MortgageAccounts            Text `json:"mortgage_accounts"`
	AccountLength               Text `json:"account_length"`
	AverageAccountAge           Text `json:"average_account_age"`
	OldestOpenAccount           Text `json:"oldest_open_account"`
	MostRecentAccount           Text `json:"most_recent_account"`
	InsightScore                Text `json:"insight_score"`
	VantageScore                Text `json:"vantage_score_3_0"`
	ThirtyDayDelinquencies      Text `json:"thirty_day_delinquencies"`
	SixtyDayDelinquencies       Text `json:"sixty_day_delinquencies"`
	NinetyDayDelinquencies      Text `json:"ninety_day_delinquencies"`
	Bankruptcies                Text `json:"bankruptcies"`
	Collections                 Text `json:"collections"`
	ApplicationInquiries180Days Text `json:"application_inquiries_180_days"`
	MaximumTotalPrincipal       Text `json:"maximum_total_principal"`
	CurrentPrincipal            Text `json:"current_principal"`
	EmployerName                Text `json:"employer_name"`
	EmploymentStatus            Text `json:"employment_status"`
	TotalTimeWithEmployer       Text `json:"total_time_with_employer"`
}

// IncomeProof is an extracted pay stub.
type IncomeProof struct {
	CompanyName            Text `json:"company_name"`
	EmployeeName           Text `json:"employee_name"`
	PayDate                Text `json:"pay_date"`
	PayPeriod              Text `json:"pay_period"`
	GrossEarningsCurrent   Text `json:"gross_earnings_current"`
	GrossEarningsYTD       Text `json:"gross_earnings_ytd"`
	TotalDeductionsCurrent Text `json:"total_deductions_current"`
	NetPayCurrent          Text `json:"net_pay_current"`
}

// TaxStatement is an extracted Form 1040.
type TaxStatement struct {
	TaxpayerFirstName   Text `json:"taxpayer_first_name"`
	TaxpayerLastName    Text `json:"taxpayer_last_name"`
	TotalWages          Text `json:"total_wages"`
	TotalIncome         Text `json:"total_income"`
	AdjustedGrossIncome Text `json:"adjusted_gross_income"`
	TaxableIncome       Text `json:"taxable_income"`
}

// MonthlyBillingEntry is one bar of a utility bill's usage history chart.
type MonthlyBillingEntry struct {
	Month        Text `json:"month"`
	MonthName    Text `json:"month_name"`
	Year         Text `json:"year"`
	EnergyAmount Text `json:"energy_amount"`
}

// UtilityBill is an extracted utility bill.
type UtilityBill struct {
	CustomerName               Text                  `json:"customer_name"`
	StatementDate              Text                  `json:"statement_date"`
	TotalAmountDue             Text                  `json:"total_amount_due"`
	AmountDuePreviousStatement Text                  `json:"amount_due_previous_statement"`
	CurrentUnpaidBalance       Text                  `json:"current_unpaid_balance"`
	MonthlyBillingHistory      []MonthlyBillingEntry `json:"monthly_billing_history"`
}

// IdentityDocument is an extracted passport data page.
type IdentityDocument struct {
	FullName       Text `json:"full_name"`
	DateOfBirth    Text `json:"date_of_birth"`
	Address        Text `json:"address"`
	PassportNumber Text `json:"passport_number"`
	ExpiryDate     Text `json:"expiry_date"`
	IssuingCountry Text `json:"issuing_country"`
}

// HolderName returns the applicant name a document of type dt carries, read
// from its raw extraction JSON.
func HolderName(dt DocumentType, raw []byte) (string, error) {
	var name string
	var err error
	switch dt {
	case DocBankStatement:
		var d BankStatement
		err = json.Unmarshal(raw, &d)
		name = d.AccountHolderName.String()
	case DocCreditReport:
		var d CreditReport
		err = json.Unmarshal(raw, &d)
		name = d.FullName.String()
	case DocIdentity:
		var d IdentityDocument
		err = json.Unmarshal(raw, &d)
		name = d.FullName.String()
	case DocIncomeProof:
		var d IncomeProof
		err = json.Unmarshal(raw, &d)
		name = d.EmployeeName.String()
	case DocTaxStatement:
		var d TaxStatement
		err = json.Unmarshal(raw, &d)
		name = strings.TrimSpace(d.TaxpayerFirstName.String() + " " + d.TaxpayerLastName.String())
	case DocUtilityBill:
		var d UtilityBill
		err = json.Unmarshal(raw, &d)
		name = d.CustomerName.String()
	default:
		return "", eris.Wrapf(ErrUnknownDocumentType, "%q", dt)
	}
	if err != nil {
		return "", eris.Wrapf(err, "model: decode %s", dt)
	}
	return name, nil
}
