package scorer

import (
	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

// Scorer computes sub-scores and the weighted final score for a bundle.
type Scorer struct {
	weights config.ScoringConfig
}

// New validates and normalises the weights.
func New(c config.ScoringConfig) (*Scorer, error) {
	if err := ValidateConfig(c); err != nil {
		return nil, err
	}
	return &Scorer{weights: Normalize(c)}, nil
}

// Weights returns the normalised weights.
func (s *Scorer) Weights() config.ScoringConfig { return s.weights }

// Score computes every sub-score from the typed bundle. Most dimensions are
// nil when their source document is missing and drop out of the final
// average. Delinquency and residency are always scored.
func (s *Scorer) Score(b model.KPIBundle) model.FinalScore {
	sub := SubScores(b)
	return model.FinalScore{
		SubScores:          sub,
		FinalWeightedScore: s.Aggregate(sub),
	}
}

// SubScores maps a bundle onto the eight scoring dimensions.
func SubScores(b model.KPIBundle) model.SubScores {
	var out model.SubScores

	if b.DebtToIncome != nil {
		out.DTI = ptr(scoreDTI(*b.DebtToIncome))
	}

	if p := b.Paystub; p != nil {
		if p.RecencyDays != nil {
			out.Income = scoreIncome(*p.RecencyDays)
		}
		out.IncomeConsistency = scoreIncomeStability(p.StabilityFlag)
	}

	// No credit report counts as a clean history.
	var d model.DelinquencyProfile
	var neg model.NegativeEvents
	if c := b.Credit; c != nil {
		d, neg = c.Delinquency, c.NegativeEvents
	}
	out.DelinquencyRisk = ptr(scoreDelinquency(d.ThirtyDay, d.SixtyDay, d.NinetyDay, neg.Bankruptcies, neg.Collections))

	if c := b.Credit; c != nil {
		if c.RepresentativeCreditScore != nil {
			out.Credit = ptr(scoreCredit(float64(*c.RepresentativeCreditScore)))
		}
		if m := c.Employment.EmploymentTenureMonths; m != nil {
			out.EmploymentStability = ptr(scoreEmployment(*m))
		}
	}

	if bank := b.Bank; bank != nil {
		out.Liquidity = ptr(scoreLiquidity(bank.AverageMonthlyBalance))
	}

	// A missing bill has no consistency label and scores 0.
	var consistency string
	if u := b.Utility; u != nil {
		consistency = u.Consistency
	}
	out.ResidencyStability = ptr(scoreResidency(consistency))
	return out
}

// Aggregate returns Σ w·s / Σ w over the non-nil sub-scores, rounded to two
// decimals, or nil when every sub-score is nil.
func (s *Scorer) Aggregate(sub model.SubScores) *float64 {
	w := s.weights
	dims := []struct {
		weight float64
		score  *float64
	}{
		{w.Income, sub.Income},
		{w.Credit, sub.Credit},
		{w.DelinquencyRisk, sub.DelinquencyRisk},
		{w.DTI, sub.DTI},
		{w.Liquidity, sub.Liquidity},
		{w.IncomeConsistency, sub.IncomeConsistency},
		{w.EmploymentStability, sub.EmploymentStability},
		{w.ResidencyStability, sub.ResidencyStability},
	}

	var totalW, totalS float64
	for _, d := range dims {
		if d.score == nil {
			continue
		}
		totalW += d.weight
		totalS += d.weight * *d.score
	}
	if totalW <= 0 {
		return nil
	}
	return ptr(parse.Round(totalS/totalW, 2))
}

func ptr(v float64) *float64 { return &v }
