// Package notify reports case outcomes that need a human: rejections and
// manual reviews.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/model"
)

// Outcome is the notification payload for one evaluation.
type Outcome struct {
	CaseID       string              `json:"case_id"`
	EvaluationID string              `json:"evaluation_id"`
	Status       model.Status        `json:"status"`
	Reason       string              `json:"reason"`
	Score        float64             `json:"score"`
	TextFraud    model.TextFraudType `json:"text_fraud"`
	Mismatched   []string            `json:"mismatched_documents,omitempty"`
	ImageRisk    model.RiskLevel     `json:"image_risk,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// FromEvaluation builds the payload for ev.
func FromEvaluation(ev *model.Evaluation) Outcome {
	o := Outcome{
		CaseID:       ev.CaseID,
		EvaluationID: ev.ID,
		Status:       ev.Decision.Status,
		Reason:       ev.Decision.Reason,
		Score:        ev.Decision.Score,
		TextFraud:    ev.TextFraud.Type,
		Mismatched:   ev.TextFraud.Text,
		Timestamp:    ev.CreatedAt,
	}
	if ev.ImageFraud != nil {
		o.ImageRisk = ev.ImageFraud.RiskLevel
	}
	return o
}

// Notifier delivers an outcome.
type Notifier interface {
	Notify(ctx context.Context, o Outcome) error
}

// ShouldNotify reports whether an outcome needs attention.
func ShouldNotify(s model.Status) bool {
	return s == model.StatusRejected || s == model.StatusManualReview
}

// Multi fans an outcome out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, o Outcome) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New returns a notifier for every configured channel. With nothing
// configured the result is an empty Multi that does nothing.
func New(c config.NotifyConfig) Multi {
	var m Multi
	if c.WebhookURL != "" {
		m = append(m, NewWebhook(c.WebhookURL))
	}
	if c.Email.Enabled() {
		m = append(m, NewEmail(c.Email))
	}
	zap.L().Debug("notify: channels configured", zap.Int("count", len(m)))
	return m
}
