// Package scorer combines a case's KPI bundle into weighted sub-scores and a
// final creditworthiness score.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/config"
)

// DefaultWeights returns the standard dimension weights. They sum to 1.
func DefaultWeights() config.ScoringConfig {
	return config.ScoringConfig{
		Income:              0.20,
		Credit:              0.23,
		DelinquencyRisk:     0.18,
		DTI:                 0.23,
		Liquidity:           0.09,
		IncomeConsistency:   0.03,
		EmploymentStability: 0.02,
		ResidencyStability:  0.02,
	}
}

// WeightSum returns the sum of all dimension weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.Income + c.Credit + c.DelinquencyRisk + c.DTI +
		c.Liquidity + c.IncomeConsistency + c.EmploymentStability + c.ResidencyStability
}

// Normalize scales every weight so the weights sum to 1. c must have a
// positive sum.
func Normalize(c config.ScoringConfig) config.ScoringConfig {
	sum := WeightSum(c)
	return config.ScoringConfig{
		Income:              c.Income / sum,
		Credit:              c.Credit / sum,
		DelinquencyRisk:     c.DelinquencyRisk / sum,
		DTI:                 c.DTI / sum,
		Liquidity:           c.Liquidity / sum,
		IncomeConsistency:   c.IncomeConsistency / sum,
		EmploymentStability: c.EmploymentStability / sum,
		ResidencyStability:  c.ResidencyStability / sum,
	}
}

// ValidateConfig checks that the weights are usable.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"income", c.Income},
		{"credit", c.Credit},
		{"delinquency_risk", c.DelinquencyRisk},
		{"dti", c.DTI},
		{"liquidity", c.Liquidity},
		{"income_consistency", c.IncomeConsistency},
		{"employment_stability", c.EmploymentStability},
		{"residency_stability", c.ResidencyStability},
	}
	for _, w := range weights {
		if w.w < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", w.name))
		}
	}

	if WeightSum(c) <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
