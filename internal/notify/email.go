package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/config"
)

// sendFunc matches (*email.Email).Send so tests can capture messages.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Email sends outcomes over SMTP.
type Email struct {
	cfg  config.EmailConfig
	send sendFunc
}

// NewEmail creates an Email notifier.
func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (n *Email) Notify(ctx context.Context, o Outcome) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "notify: email")
	}

	e := n.message(o)
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
	}
	if err := n.send(e, addr, auth); err != nil {
		return eris.Wrapf(err, "notify: send email for case %s", o.CaseID)
	}
	zap.L().Info("notify: email sent",
		zap.String("case_id", o.CaseID),
		zap.Strings("to", n.cfg.To),
	)
	return nil
}

func (n *Email) message(o Outcome) *email.Email {
	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = n.cfg.To

	label := strings.ReplaceAll(string(o.Status), "_", " ")
	e.Subject = fmt.Sprintf("Case %s: %s", o.CaseID, label)

	var b strings.Builder
	fmt.Fprintf(&b, "Case %s was marked %s.\n\n", o.CaseID, label)
	fmt.Fprintf(&b, "Reason: %s\n", o.Reason)
	fmt.Fprintf(&b, "Score: %.2f\n", o.Score)
	fmt.Fprintf(&b, "Name check: %s\n", o.TextFraud)
	if len(o.Mismatched) > 0 {
		fmt.Fprintf(&b, "Mismatched documents: %s\n", strings.Join(o.Mismatched, ", "))
	}
	if o.ImageRisk != "" {
		fmt.Fprintf(&b, "Passport risk: %s\n", o.ImageRisk)
	}
	fmt.Fprintf(&b, "Evaluation: %s\n", o.EvaluationID)
	e.Text = []byte(b.String())
	return e
}
