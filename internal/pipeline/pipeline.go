// Package pipeline runs a case through ingestion, scoring, fraud checks and
// the final decision, persisting every intermediate artifact.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/decision"
	"github.com/sells-group/underwriting-cli/internal/imagefraud"
	"github.com/sells-group/underwriting-cli/internal/kpi"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/notify"
	"github.com/sells-group/underwriting-cli/internal/scorer"
	"github.com/sells-group/underwriting-cli/internal/store"
	"github.com/sells-group/underwriting-cli/internal/textfraud"
)

var (
	// ErrNoDetector is returned by IngestIdentity when no passport detector
	// was configured.
	ErrNoDetector = eris.New("pipeline: passport detector not configured")

	// ErrEmptyCase is returned by Evaluate when a case has no KPI artifacts.
	ErrEmptyCase = eris.New("pipeline: case has no documents")
)

// PassportDetector locates the passport landmarks in an image.
type PassportDetector interface {
	Detect(ctx context.Context, img []byte, filename string) (model.PassportGeometry, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the time source used for KPI recency and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator sets the evaluation ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// Pipeline wires the calculators, fraud checks and decision engine to a store.
type Pipeline struct {
	store    store.Store
	calc     *kpi.Calculator
	scorer   *scorer.Scorer
	text     *textfraud.Detector
	detector PassportDetector
	analyzer *imagefraud.Analyzer
	engine   *decision.Engine
	notifier notify.Notifier
	now      func() time.Time
	newID    func() string
}

// New builds a Pipeline from cfg. det and n may be nil: without a detector
// IngestIdentity fails, without a notifier outcomes are only logged.
func New(cfg *config.Config, st store.Store, det PassportDetector, n notify.Notifier, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		store:    st,
		detector: det,
		notifier: n,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}

	p.calc = kpi.NewCalculator(kpi.Options{
		Bands: kpi.CreditBands{
			Excellent: cfg.KPI.CreditBands.Excellent,
			Good:      cfg.KPI.CreditBands.Good,
			Fair:      cfg.KPI.CreditBands.Fair,
		},
		RecencyDays:      cfg.KPI.RecencyDays,
		EffectiveTaxRate: cfg.KPI.EffectiveTaxRate,
		Now:              p.now,
	})

	var err error
	if p.scorer, err = scorer.New(cfg.Scoring); err != nil {
		return nil, eris.Wrap(err, "pipeline: scorer")
	}
	p.text = textfraud.New(cfg.TextFraud.SimilarityThreshold)
	if p.engine, err = decision.New(cfg.Decision); err != nil {
		return nil, eris.Wrap(err, "pipeline: decision engine")
	}

	ref := imagefraud.DefaultReference()
	if cfg.Passport.ReferencePath != "" {
		if ref, err = imagefraud.LoadReference(cfg.Passport.ReferencePath); err != nil {
			return nil, eris.Wrap(err, "pipeline: passport reference")
		}
	}
	if p.analyzer, err = imagefraud.NewAnalyzer(ref); err != nil {
		return nil, eris.Wrap(err, "pipeline: passport analyzer")
	}

	return p, nil
}

// Ingest stores the raw extraction of one document and its KPI set. The
// extraction is only stored once its KPIs compute.
func (p *Pipeline) Ingest(ctx context.Context, caseID string, dt model.DocumentType, raw []byte) (any, error) {
	log := zap.L().With(zap.String("case_id", caseID), zap.String("document_type", string(dt)))

	if _, err := model.ParseDocumentType(string(dt)); err != nil {
		return nil, err
	}
	kpis, err := p.calc.Compute(dt, raw)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: compute %s kpis", dt)
	}

	if err := p.store.PutArtifact(ctx, caseID, model.ExtractionArtifact(dt), raw); err != nil {
		return nil, eris.Wrapf(err, "pipeline: store %s extraction", dt)
	}
	if err := store.PutJSON(ctx, p.store, caseID, model.KPIArtifact(dt), kpis); err != nil {
		return nil, eris.Wrapf(err, "pipeline: store %s kpis", dt)
	}

	log.Info("pipeline: document ingested")
	return kpis, nil
}

// IngestIdentity ingests the identity document and runs the passport
// geometry check on its image once. The report and an annotated PNG are
// stored with the case.
func (p *Pipeline) IngestIdentity(ctx context.Context, caseID string, raw, img []byte, filename string) (*model.FraudAnalysisResult, error) {
	if p.detector == nil {
		return nil, ErrNoDetector
	}
	if _, err := p.Ingest(ctx, caseID, model.DocIdentity, raw); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("case_id", caseID), zap.String("file", filename))

	geom, err := p.detector.Detect(ctx, img, filename)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: detect passport components")
	}
	result := p.analyzer.Analyze(geom)
	if err := store.PutJSON(ctx, p.store, caseID, model.ArtifactPassportReport, result); err != nil {
		return nil, eris.Wrap(err, "pipeline: store passport report")
	}

	annotated, err := imagefraud.Annotate(img, geom)
	if err != nil {
		log.Warn("pipeline: annotate passport failed", zap.Error(err))
	} else if err := p.store.PutArtifact(ctx, caseID, model.ArtifactPassportAnnotated, annotated); err != nil {
		return nil, eris.Wrap(err, "pipeline: store annotated passport")
	}

	log.Info("pipeline: passport analyzed",
		zap.Bool("authentic", result.IsAuthentic),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Float64("confidence", result.ConfidenceScore),
		zap.Int("flags", len(result.Flags)),
	)
	return &result, nil
}

// Evaluate scores a case, runs both fraud checks, decides it and persists the
// outcome. dti is the applicant's debt-to-income ratio when known.
func (p *Pipeline) Evaluate(ctx context.Context, caseID string, dti *float64) (*model.Evaluation, error) {
	log := zap.L().With(zap.String("case_id", caseID))
	log.Info("pipeline: evaluating case")

	// Phase 1: KPI bundle + score.
	bundle, err := p.loadBundle(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(bundle.Present()) == 0 {
		return nil, eris.Wrapf(ErrEmptyCase, "case %s", caseID)
	}
	bundle.DebtToIncome = dti

	_, collisions, err := kpi.Flatten(bundle)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: merge kpis")
	}
	score := p.scorer.Score(bundle)

	// Phase 2: name consistency.
	names, err := p.loadNames(ctx, caseID)
	if err != nil {
		return nil, err
	}
	text, err := p.text.Check(names)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: text fraud check")
	}

	// Phase 3: passport report from ingestion.
	var passport *model.FraudAnalysisResult
	var report model.FraudAnalysisResult
	switch err := store.GetJSON(ctx, p.store, caseID, model.ArtifactPassportReport, &report); {
	case err == nil:
		passport = &report
	case errors.Is(err, store.ErrNotFound):
		log.Warn("pipeline: no passport report, identity treated as not authentic")
	default:
		return nil, eris.Wrap(err, "pipeline: load passport report")
	}

	// Phase 4: decision.
	dec, err := p.engine.Decide(decision.Input{
		IsAuthentic:   passport != nil && passport.IsAuthentic,
		TextFraudType: text.Type,
		Score:         score.FinalWeightedScore,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: decide case %s", caseID)
	}

	// Phase 5: persist.
	artifacts := []struct {
		name string
		v    any
	}{
		{model.ArtifactFraudReport, text},
		{model.ArtifactKPIsFinal, score},
		{model.ArtifactFinalDecision, dec},
	}
	for _, a := range artifacts {
		if err := store.PutJSON(ctx, p.store, caseID, a.name, a.v); err != nil {
			return nil, eris.Wrapf(err, "pipeline: store %s", a.name)
		}
	}

	ev := &model.Evaluation{
		ID:         p.newID(),
		CaseID:     caseID,
		Decision:   dec,
		FinalScore: score,
		TextFraud:  text,
		ImageFraud: passport,
		CreatedAt:  p.now().UTC(),
	}
	for _, c := range collisions {
		ev.Collisions = append(ev.Collisions, c.String())
	}
	if err := p.store.SaveEvaluation(ctx, ev); err != nil {
		return nil, eris.Wrap(err, "pipeline: save evaluation")
	}

	log.Info("pipeline: case decided",
		zap.String("evaluation_id", ev.ID),
		zap.String("status", string(dec.Status)),
		zap.String("reason", dec.Reason),
		zap.Float64("score", dec.Score),
	)

	// Phase 6: notify.
	if p.notifier != nil && notify.ShouldNotify(dec.Status) {
		if err := p.notifier.Notify(ctx, notify.FromEvaluation(ev)); err != nil {
			log.Warn("pipeline: notification failed", zap.Error(err))
		}
	}

	return ev, nil
}

// loadBundle reads every stored KPI artifact of the case.
func (p *Pipeline) loadBundle(ctx context.Context, caseID string) (model.KPIBundle, error) {
	var b model.KPIBundle
	for _, dt := range model.DocumentTypes {
		raw, err := p.store.GetArtifact(ctx, caseID, model.KPIArtifact(dt))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return b, eris.Wrapf(err, "pipeline: load %s kpis", dt)
		}
		if err := b.Set(dt, raw); err != nil {
			return b, err
		}
	}
	return b, nil
}

// loadNames reads the holder name of each stored extraction. Missing
// documents are left out and compare as an empty name.
func (p *Pipeline) loadNames(ctx context.Context, caseID string) (map[model.DocumentType]string, error) {
	names := make(map[model.DocumentType]string, len(textfraud.Order))
	for _, dt := range textfraud.Order {
		raw, err := p.store.GetArtifact(ctx, caseID, model.ExtractionArtifact(dt))
		if errors.Is(err, store.ErrNotFound) {
			zap.L().Debug("pipeline: extraction missing for name check",
				zap.String("case_id", caseID), zap.String("document_type", string(dt)))
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: load %s extraction", dt)
		}
		name, err := model.HolderName(dt, raw)
		if err != nil {
			return nil, err
		}
		names[dt] = name
	}
	return names, nil
}
