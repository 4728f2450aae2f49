package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/resilience"
)

// Webhook posts outcomes as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
	policy resilience.Policy
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithWebhookPolicy sets the retry policy. Only transient failures
// (timeouts, 429, 5xx) are retried unless the policy says otherwise.
func WithWebhookPolicy(p resilience.Policy) WebhookOption {
	return func(w *Webhook) { w.policy = p }
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		policy: resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) Notify(ctx context.Context, o Outcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "notify: marshal outcome")
	}

	p := w.policy
	p.OnRetry = resilience.RetryLogger("notify.webhook", zap.String("case_id", o.CaseID))
	if err := p.Do(ctx, func(ctx context.Context) error {
		return w.post(ctx, payload)
	}); err != nil {
		return eris.Wrap(err, "notify: webhook")
	}

	zap.L().Info("notify: webhook sent",
		zap.String("case_id", o.CaseID),
		zap.String("status", string(o.Status)),
	)
	return nil
}

func (w *Webhook) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resilience.HTTPStatusError("webhook", resp.StatusCode, string(body))
	}
	return nil
}
