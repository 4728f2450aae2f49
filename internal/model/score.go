package model

// SubScores holds the eight dimension scores in [0,100]; nil means the
// dimension had no input.
type SubScores struct {
	Income              *float64 `json:"income_score"`
	Credit              *float64 `json:"credit_score_score"`
	DelinquencyRisk     *float64 `json:"delinquency_risk_score"`
	DTI                 *float64 `json:"dti_score"`
	Liquidity           *float64 `json:"liquidity_score"`
	IncomeConsistency   *float64 `json:"income_consistency_score"`
	EmploymentStability *float64 `json:"employment_stability_score"`
	ResidencyStability  *float64 `json:"residency_stability_score"`
}

// FinalScore is the scorer output persisted as kpis_final.
type FinalScore struct {
	SubScores          SubScores `json:"sub_scores"`
	FinalWeightedScore *float64  `json:"final_weighted_score"`
}
