// Package decision turns the fraud signals and the weighted score of a case
// into its final status.
package decision

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/model"
)

// Reasons attached to each outcome.
const (
	ReasonNotAuthentic    = "documents not authentic"
	ReasonTextConsistency = "text consistency failure"
	ReasonStrong          = "Strong financial and credit indicators"
	ReasonBorderline      = "Borderline score; manual verification needed"
	ReasonLow             = "Low creditworthiness"
)

// ErrInvalidInput is returned for inputs the engine cannot decide on.
var ErrInvalidInput = eris.New("decision: invalid input")

// Input is everything the engine needs for one case.
type Input struct {
	IsAuthentic   bool
	TextFraudType model.TextFraudType
	Score         *float64
}

// Engine applies the decision rules with configurable score thresholds.
type Engine struct {
	approve float64
	review  float64
}

// New returns an Engine. Scores at or above approve are approved and scores
// at or above review go to manual review.
func New(c config.DecisionConfig) (*Engine, error) {
	if math.IsNaN(c.ApproveThreshold) || math.IsNaN(c.ReviewThreshold) {
		return nil, eris.New("decision: thresholds must be numbers")
	}
	if c.ReviewThreshold > c.ApproveThreshold {
		return nil, eris.Errorf("decision: review threshold %.2f exceeds approve threshold %.2f",
			c.ReviewThreshold, c.ApproveThreshold)
	}
	return &Engine{approve: c.ApproveThreshold, review: c.ReviewThreshold}, nil
}

// Default returns an Engine with the 60/40 thresholds.
func Default() *Engine {
	return &Engine{approve: 60, review: 40}
}

// Decide evaluates in. The first failing gate wins: identity authenticity,
// then name consistency, then the score bands.
func (e *Engine) Decide(in Input) (model.Decision, error) {
	if !in.IsAuthentic {
		return model.Decision{Status: model.StatusRejected, Reason: ReasonNotAuthentic}, nil
	}

	switch in.TextFraudType {
	case model.TextFraudAuthentic:
	case model.TextFraudWarning:
		return model.Decision{Status: model.StatusManualReview, Reason: ReasonTextConsistency}, nil
	default:
		return model.Decision{}, eris.Wrapf(ErrInvalidInput, "unknown text fraud type %q", in.TextFraudType)
	}

	if in.Score == nil {
		return model.Decision{}, eris.Wrap(ErrInvalidInput, "missing final score")
	}
	score := *in.Score
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return model.Decision{}, eris.Wrapf(ErrInvalidInput, "final score %v is not finite", score)
	}

	switch {
	case score >= e.approve:
		return model.Decision{Status: model.StatusApproved, Reason: ReasonStrong, Score: score}, nil
	case score >= e.review:
		return model.Decision{Status: model.StatusManualReview, Reason: ReasonBorderline, Score: score}, nil
	default:
		return model.Decision{Status: model.StatusRejected, Reason: ReasonLow, Score: score}, nil
	}
}
