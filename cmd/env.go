package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/imagefraud"
	"github.com/sells-group/underwriting-cli/internal/notify"
	"github.com/sells-group/underwriting-cli/internal/pipeline"
	"github.com/sells-group/underwriting-cli/internal/resilience"
	"github.com/sells-group/underwriting-cli/internal/store"
	"github.com/sells-group/underwriting-cli/pkg/visionagent"
)

// caseEnv holds the store and pipeline shared by the case commands.
type caseEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases the store.
func (e *caseEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore validates the store settings for mode, opens the configured
// backend and migrates it.
func initStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

// initEnv builds the pipeline for mode. The passport detector is only
// created for the passport command, which is the only one that needs an API
// key. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*caseEnv, error) {
	st, err := initStore(ctx, mode)
	if err != nil {
		return nil, err
	}

	var det pipeline.PassportDetector
	if mode == "passport" {
		det = initDetector()
	}

	var n notify.Notifier
	if m := notify.New(cfg.Notify); len(m) > 0 {
		n = m
		zap.L().Debug("notifications enabled", zap.Int("channels", len(m)))
	}

	p, err := pipeline.New(cfg, st, det, n)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &caseEnv{Store: st, Pipeline: p}, nil
}

// initDetector builds the rate-limited detection client and wraps it in the
// per-landmark retry policy.
func initDetector() *imagefraud.Detector {
	opts := []visionagent.Option{
		visionagent.WithBaseURL(cfg.Detector.BaseURL),
		visionagent.WithModel(cfg.Detector.Model),
	}
	if cfg.Detector.TimeoutSecs > 0 {
		opts = append(opts, visionagent.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Detector.TimeoutSecs) * time.Second,
		}))
	}
	if cfg.Detector.RequestsPerSecond > 0 {
		opts = append(opts, visionagent.WithRateLimit(cfg.Detector.RequestsPerSecond, 1))
	}
	client := visionagent.NewClient(cfg.Detector.APIKey, opts...)

	policy := resilience.FromConfig(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialDelayMs,
		cfg.Retry.MaxDelayMs,
		cfg.Retry.Factor,
		cfg.Retry.JitterFraction,
	)
	return imagefraud.NewDetector(client,
		imagefraud.WithPolicy(policy),
		imagefraud.WithPhysicalWidth(cfg.Passport.PhysicalWidthCM),
	)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}
