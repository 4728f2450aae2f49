package model

import "time"

// Status is the terminal state of a case evaluation.
type Status string

const (
	StatusApproved     Status = "approved"
	StatusManualReview Status = "manual_review"
	StatusRejected     Status = "rejected"
)

// Decision is persisted as final_decision. It is never mutated.
type Decision struct {
	Status Status  `json:"status"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// Evaluation is the audit record of one evaluation run.
type Evaluation struct {
	ID         string               `json:"id"`
	CaseID     string               `json:"case_id"`
	Decision   Decision             `json:"decision"`
	FinalScore FinalScore           `json:"final_score"`
	TextFraud  TextFraudResult      `json:"text_fraud"`
	ImageFraud *FraudAnalysisResult `json:"image_fraud,omitempty"`
	Collisions []string             `json:"collisions,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}
