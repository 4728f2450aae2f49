package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/resilience"
)

func sampleOutcome() Outcome {
	return Outcome{
		CaseID:       "case-42",
		EvaluationID: "ev-1",
		Status:       model.StatusManualReview,
		Reason:       "text consistency failure",
		TextFraud:    model.TextFraudWarning,
		Mismatched:   []string{"Utility bills"},
		ImageRisk:    model.RiskLow,
		Timestamp:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestShouldNotify(t *testing.T) {
	assert.True(t, ShouldNotify(model.StatusRejected))
	assert.True(t, ShouldNotify(model.StatusManualReview))
	assert.False(t, ShouldNotify(model.StatusApproved))
}

func TestFromEvaluation(t *testing.T) {
	ev := &model.Evaluation{
		ID:         "ev-1",
		CaseID:     "case-42",
		Decision:   model.Decision{Status: model.StatusRejected, Reason: "documents not authentic"},
		TextFraud:  model.TextFraudResult{Type: model.TextFraudAuthentic, Text: []string{}},
		ImageFraud: &model.FraudAnalysisResult{RiskLevel: model.RiskCritical},
	}
	o := FromEvaluation(ev)
	assert.Equal(t, "case-42", o.CaseID)
	assert.Equal(t, model.StatusRejected, o.Status)
	assert.Equal(t, model.RiskCritical, o.ImageRisk)

	ev.ImageFraud = nil
	assert.Empty(t, FromEvaluation(ev).ImageRisk)
}

func TestWebhook_Notify(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var o Outcome
		require.NoError(t, json.NewDecoder(r.Body).Decode(&o))
		assert.Equal(t, "case-42", o.CaseID)
		assert.Equal(t, model.StatusManualReview, o.Status)
		assert.Equal(t, []string{"Utility bills"}, o.Mismatched)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(srv.URL).Notify(context.Background(), sampleOutcome()))
	assert.Equal(t, int32(1), received.Load())
}

// noWait is a retry policy that never sleeps.
func noWait() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestWebhook_ServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithWebhookPolicy(noWait())).Notify(context.Background(), sampleOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load(), "5xx is retried up to the attempt limit")
}

func TestWebhook_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(srv.URL, WithWebhookPolicy(noWait())).Notify(context.Background(), sampleOutcome()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad payload"))
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithWebhookPolicy(noWait())).Notify(context.Background(), sampleOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400: bad payload")
	assert.False(t, resilience.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmail_Notify(t *testing.T) {
	n := NewEmail(config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "bot",
		Password: "secret",
		From:     "underwriting@example.com",
		To:       []string{"risk@example.com"},
	})

	var gotAddr string
	var gotAuth smtp.Auth
	var gotMsg *email.Email
	n.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		gotMsg, gotAddr, gotAuth = e, addr, auth
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), sampleOutcome()))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	require.NotNil(t, gotMsg)
	assert.Equal(t, "Case case-42: manual review", gotMsg.Subject)
	assert.Equal(t, []string{"risk@example.com"}, gotMsg.To)
	body := string(gotMsg.Text)
	assert.Contains(t, body, "Reason: text consistency failure")
	assert.Contains(t, body, "Mismatched documents: Utility bills")
	assert.Contains(t, body, "Passport risk: LOW")
}

func TestEmail_NoAuthWithoutUsername(t *testing.T) {
	n := NewEmail(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 25, From: "a@b", To: []string{"c@d"}})
	var gotAuth smtp.Auth = smtp.PlainAuth("", "x", "y", "z")
	n.send = func(_ *email.Email, _ string, auth smtp.Auth) error {
		gotAuth = auth
		return nil
	}
	require.NoError(t, n.Notify(context.Background(), sampleOutcome()))
	assert.Nil(t, gotAuth)
}

func TestEmail_SendError(t *testing.T) {
	n := NewEmail(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 25, From: "a@b", To: []string{"c@d"}})
	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("dial tcp: refused") }

	err := n.Notify(context.Background(), sampleOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case case-42")
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(context.Context, Outcome) error {
	r.calls++
	return r.err
}

func TestMulti_NotifiesAllAndJoinsErrors(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a failed")}
	b := &recordingNotifier{}
	c := &recordingNotifier{err: errors.New("c failed")}

	err := Multi{a, b, c}.Notify(context.Background(), sampleOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "c failed")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)

	assert.NoError(t, Multi{}.Notify(context.Background(), sampleOutcome()))
}

func TestNew_Channels(t *testing.T) {
	assert.Empty(t, New(config.NotifyConfig{}))

	m := New(config.NotifyConfig{
		WebhookURL: "https://hooks.example.com/x",
		Email:      config.EmailConfig{SMTPHost: "h", From: "f@x", To: []string{"t@x"}},
	})
	require.Len(t, m, 2)
	assert.IsType(t, &Webhook{}, m[0])
	assert.IsType(t, &Email{}, m[1])
}
